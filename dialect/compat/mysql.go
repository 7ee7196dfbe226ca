package compat

import "github.com/syssam/dbkit/schema/field"

const mysqlDocs = "https://dev.mysql.com/doc/refman/8.0/en/data-types.html"

// mysqlCatalog covers Postgres constructs without a MySQL or MariaDB
// counterpart. Both dialects share the codes.
func mysqlCatalog(dialectName string) *Catalog {
	c := NewCatalog(dialectName)
	c.Add(withDocs(mysqlDocs,
		&Rule{
			Code: "MYSQL_W100", Severity: SeverityWarning, Category: CategoryDataType, Feature: "JSONB",
			Message:     "{column} is {detected}; MySQL stores it as JSON",
			Alternative: "json()",
			AutoFix: &AutoFix{
				Description:     "Replace JSONB with JSON",
				OriginalType:    "JSONB",
				ReplacementType: "JSON",
			},
		},
		&Rule{
			Code: "MYSQL_W101", Severity: SeverityWarning, Category: CategoryDataType, Feature: "UUID",
			Message:     "{column} is UUID; MySQL stores it as CHAR(36)",
			Alternative: "char(36) or binary(16)",
			AutoFix: &AutoFix{
				Description:     "Store the UUID as text",
				OriginalType:    "UUID",
				ReplacementType: "CHAR(36)",
			},
		},
		&Rule{
			Code: "MYSQL_I102", Severity: SeverityInfo, Category: CategoryDataType, Feature: "SERIAL",
			Message: "{detected} maps to BIGINT UNSIGNED AUTO_INCREMENT",
		},
		&Rule{
			Code: "MYSQL_I103", Severity: SeverityInfo, Category: CategoryDataType, Feature: "BYTEA",
			Message: "{column} is BYTEA; MySQL stores it as LONGBLOB",
		},
		&Rule{
			Code: "MYSQL_W104", Severity: SeverityWarning, Category: CategoryDataType, Feature: "TIMESTAMPTZ",
			Message:     "{column} is {detected}; MySQL does not store time zones",
			Alternative: "timestamp() with UTC values",
		},
		&Rule{
			Code: "MYSQL_E105", Severity: SeverityError, Category: CategoryDataType, Feature: "INTERVAL",
			Message:     "INTERVAL columns are not supported",
			Alternative: "an integer number of seconds",
		},
		&Rule{
			Code: "MYSQL_W106", Severity: SeverityWarning, Category: CategoryDataType, Feature: "MONEY",
			Message:     "{column} is MONEY; MySQL stores it as DECIMAL(19,4)",
			Alternative: "numeric(19, 4)",
		},
		&Rule{
			Code: "MYSQL_E107", Severity: SeverityError, Category: CategoryDataType, Feature: "NETWORK",
			Message:     "network address type {detected} is not supported",
			Alternative: "varchar(45)",
		},
		&Rule{
			Code: "MYSQL_E108", Severity: SeverityError, Category: CategoryDataType, Feature: "TEXT SEARCH",
			Message:     "text search type {detected} is not supported",
			Alternative: "a FULLTEXT index",
		},
		&Rule{
			Code: "MYSQL_E109", Severity: SeverityError, Category: CategoryDataType, Feature: "RANGE",
			Message:     "range type {detected} is not supported",
			Alternative: "two bound columns",
		},
		&Rule{
			Code: "MYSQL_W110", Severity: SeverityWarning, Category: CategoryDataType, Feature: "GEOMETRIC",
			Message: "geometric type {detected} maps to a MySQL spatial type",
		},
		&Rule{
			Code: "MYSQL_E111", Severity: SeverityError, Category: CategoryDataType, Feature: "XML",
			Message:     "XML columns are not supported",
			Alternative: "text()",
		},
		&Rule{
			Code: "MYSQL_E112", Severity: SeverityError, Category: CategoryDataType, Feature: "ARRAY",
			Message:     "array column {column} is not supported",
			Alternative: "json()",
		},
		&Rule{
			Code: "MYSQL_E113", Severity: SeverityError, Category: CategoryDataType, Feature: "OID",
			Message: "object identifier type {detected} is not supported",
		},
		&Rule{
			Code: "MYSQL_W114", Severity: SeverityWarning, Category: CategoryDataType, Feature: "VECTOR",
			Message: "{detected} needs MySQL 9.0 or a vector-capable MariaDB",
		},
		&Rule{
			Code: "MYSQL_W115", Severity: SeverityWarning, Category: CategoryDataType, Feature: "POSTGIS",
			Message: "PostGIS type {detected} maps to a MySQL spatial type without SRID typmods",
		},
		&Rule{
			Code: "MYSQL_E116", Severity: SeverityError, Category: CategoryDataType, Feature: "VARBIT",
			Message:     "variable length bit strings are not supported",
			Alternative: "bit(n) or varbinary",
		},
		&Rule{
			Code: "MYSQL_I117", Severity: SeverityInfo, Category: CategoryDataType, Feature: "IDENTITY",
			Message: "identity column {column} maps to AUTO_INCREMENT",
		},
		&Rule{
			Code: "MYSQL_E200", Severity: SeverityError, Category: CategoryConstraint, Feature: "DEFERRABLE",
			Message: "deferrable constraints are not supported",
		},
		&Rule{
			Code: "MYSQL_E201", Severity: SeverityError, Category: CategoryIndex, Feature: "PARTIAL INDEX",
			Message:     "partial index {index} is not supported",
			Alternative: "an index on a generated column",
		},
		&Rule{
			Code: "MYSQL_E202", Severity: SeverityError, Category: CategoryIndex, Feature: "INDEX METHOD",
			Message:     "index access method {detected} is not supported",
			Alternative: "a BTREE, FULLTEXT or SPATIAL index",
		},
		&Rule{
			Code: "MYSQL_W203", Severity: SeverityWarning, Category: CategoryIndex, Feature: "HASH INDEX",
			Message: "InnoDB builds USING HASH indexes as BTREE",
		},
		&Rule{
			Code: "MYSQL_W204", Severity: SeverityWarning, Category: CategoryIndex, Feature: "EXPRESSION INDEX",
			Message: "expression index {index} needs MySQL 8.0.13 or later",
		},
		&Rule{
			Code: "MYSQL_W205", Severity: SeverityWarning, Category: CategoryDDL, Feature: "UNLOGGED",
			Message: "UNLOGGED is ignored",
		},
		&Rule{
			Code: "MYSQL_E206", Severity: SeverityError, Category: CategoryDDL, Feature: "DOMAIN",
			Message:     "domains are not supported",
			Alternative: "the base type with a CHECK constraint",
		},
		&Rule{
			Code: "MYSQL_E207", Severity: SeverityError, Category: CategoryDDL, Feature: "COMPOSITE TYPE",
			Message:     "composite types are not supported",
			Alternative: "json() or separate columns",
		},
		&Rule{
			Code: "MYSQL_W208", Severity: SeverityWarning, Category: CategoryDDL, Feature: "ENUM TYPE",
			Message: "enum type {object} becomes an inline ENUM column",
		},
		&Rule{
			Code: "MYSQL_E209", Severity: SeverityError, Category: CategorySequence, Feature: "SEQUENCE",
			Message:     "sequences are not supported",
			Alternative: "AUTO_INCREMENT",
		},
		&Rule{
			Code: "MYSQL_E210", Severity: SeverityError, Category: CategoryDDL, Feature: "EXTENSION",
			Message: "extensions are not supported",
		},
		&Rule{
			Code: "MYSQL_W211", Severity: SeverityWarning, Category: CategoryTrigger, Feature: "TRIGGER",
			Message: "trigger {object} must be rewritten with an inline MySQL body",
		},
		&Rule{
			Code: "MYSQL_E212", Severity: SeverityError, Category: CategoryFunction, Feature: "LANGUAGE",
			Message:     "function {object} uses a procedural language MySQL does not run",
			Alternative: "a MySQL stored routine",
		},
		&Rule{
			Code: "MYSQL_E300", Severity: SeverityError, Category: CategorySyntax, Feature: "CAST",
			Message:     "{detected}: :: casts are not supported",
			Alternative: "CAST(x AS type)",
		},
		&Rule{
			Code: "MYSQL_E301", Severity: SeverityError, Category: CategorySyntax, Feature: "ILIKE",
			Message:     "ILIKE is not supported",
			Alternative: "LIKE with a case-insensitive collation",
		},
		&Rule{
			Code: "MYSQL_W302", Severity: SeverityWarning, Category: CategoryDML, Feature: "RETURNING",
			Message:     "RETURNING is only supported by MariaDB",
			Alternative: "LAST_INSERT_ID() or a follow-up SELECT",
		},
		&Rule{
			Code: "MYSQL_E303", Severity: SeverityError, Category: CategoryDML, Feature: "ON CONFLICT",
			Message:     "ON CONFLICT is not supported",
			Alternative: "ON DUPLICATE KEY UPDATE",
		},
		&Rule{
			Code: "MYSQL_E304", Severity: SeverityError, Category: CategorySyntax, Feature: "DOLLAR QUOTING",
			Message: "dollar-quoted strings are not supported",
		},
		&Rule{
			Code: "MYSQL_E305", Severity: SeverityError, Category: CategoryIndex, Feature: "CONCURRENTLY",
			Message:     "CONCURRENTLY is not supported",
			Alternative: "ALGORITHM=INPLACE, LOCK=NONE",
		},
		&Rule{
			Code: "MYSQL_E306", Severity: SeverityError, Category: CategoryDML, Feature: "LISTEN/NOTIFY",
			Message: "LISTEN and NOTIFY are not supported",
		},
		&Rule{
			Code: "MYSQL_E307", Severity: SeverityError, Category: CategoryDML, Feature: "DISTINCT ON",
			Message:     "DISTINCT ON is not supported",
			Alternative: "ROW_NUMBER() OVER (PARTITION BY ...)",
		},
		&Rule{
			Code: "MYSQL_E308", Severity: SeverityError, Category: CategoryConstraint, Feature: "EXCLUDE",
			Message: "exclusion constraints are not supported",
		},
		&Rule{
			Code: "MYSQL_E309", Severity: SeverityError, Category: CategoryFunction, Feature: "FULL TEXT",
			Message:     "{detected} is not supported",
			Alternative: "MATCH (...) AGAINST (...) with a FULLTEXT index",
		},
	)...)

	c.MatchTypes("MYSQL_W100", "", "JSONB")
	c.MatchTypes("MYSQL_W101", "", "UUID")
	c.MatchTypes("MYSQL_I102", "", "SERIAL", "SMALLSERIAL", "BIGSERIAL", "SERIAL2", "SERIAL4", "SERIAL8")
	c.MatchTypes("MYSQL_I103", "", "BYTEA")
	c.MatchTypes("MYSQL_W104", `^(timestamptz|timetz|(timestamp|time)\s*(\(\s*\d+\s*\))?\s+with\s+time\s+zone)\b`,
		"TIMESTAMP WITH TIME ZONE", "TIME WITH TIME ZONE")
	c.MatchTypes("MYSQL_E105", "", "INTERVAL")
	c.MatchTypes("MYSQL_W106", "", "MONEY")
	c.MatchTypes("MYSQL_E111", "", "XML")
	c.MatchTypes("MYSQL_E112", arrayPattern)
	c.MatchTypes("MYSQL_E116", `^(varbit|bit\s+varying)\b`, "VARBIT")
	c.MatchFamilies("MYSQL_E107", field.FamilyNetwork)
	c.MatchFamilies("MYSQL_E108", field.FamilyTextSearch)
	c.MatchFamilies("MYSQL_E109", field.FamilyRange)
	c.MatchFamilies("MYSQL_W110", field.FamilyGeometric)
	c.MatchFamilies("MYSQL_E113", field.FamilyOID)
	c.MatchFamilies("MYSQL_W114", field.FamilyVector)
	c.MatchFamilies("MYSQL_W115", field.FamilyPostGIS)

	c.MatchFeature("MYSQL_E112", FeatureArray, FeatureNestedArray)
	c.MatchFeature("MYSQL_I117", FeatureIdentity)
	c.MatchFeature("MYSQL_E200", FeatureDeferrable)
	c.MatchFeature("MYSQL_E201", FeaturePartialIndex)
	c.MatchFeature("MYSQL_W204", FeatureExpressionIndex)
	c.MatchFeature("MYSQL_W205", FeatureUnlogged)
	c.MatchFeature("MYSQL_E206", FeatureDomain)
	c.MatchFeature("MYSQL_E207", FeatureComposite)
	c.MatchFeature("MYSQL_W208", FeatureEnum)
	c.MatchFeature("MYSQL_E209", FeatureSequence)
	c.MatchFeature("MYSQL_E210", FeatureExtension)
	c.MatchFeature("MYSQL_W211", FeatureTrigger)
	c.MatchFeature("MYSQL_E212", FeatureLanguage)
	c.MatchIndexMethods("MYSQL_E202", "gin", "gist", "spgist", "brin")
	c.MatchIndexMethods("MYSQL_W203", "hash")
	c.AllowLanguages("sql")

	c.MatchSQL("MYSQL_E200", `\bDEFERRABLE\b`, "")
	c.MatchSQL("MYSQL_E202", `\bUSING\s+(GIN|GIST|SPGIST|BRIN)\b`, "")
	c.MatchSQL("MYSQL_W205", `\bCREATE\s+UNLOGGED\s+TABLE\b`, "")
	c.MatchSQL("MYSQL_E206", `\bCREATE\s+DOMAIN\b`, "")
	c.MatchSQL("MYSQL_E207", `\bCREATE\s+TYPE\s+[\w."]+\s+AS\s*\(`, "")
	c.MatchSQL("MYSQL_W208", `\bCREATE\s+TYPE\s+[\w."]+\s+AS\s+ENUM\b`, "")
	c.MatchSQL("MYSQL_E209", `\bCREATE\s+SEQUENCE\b|\bNEXTVAL\s*\(`, "")
	c.MatchSQL("MYSQL_E210", `\bCREATE\s+EXTENSION\b`, "")
	c.MatchSQL("MYSQL_E212", `\bLANGUAGE\s+'?(plpgsql|plpython3?u|plperl|plv8)\b'?`, "")
	c.MatchSQL("MYSQL_E300", `[\w)'"\]]::\w+`, "")
	c.MatchSQL("MYSQL_E301", `\bILIKE\b`, "")
	c.MatchSQL("MYSQL_W302", `\bRETURNING\b`, "")
	c.MatchSQL("MYSQL_E303", `\bON\s+CONFLICT\b`, "")
	c.MatchSQL("MYSQL_E304", `\$(\w*)\$`, "")
	c.MatchSQL("MYSQL_E305", `\bINDEX\s+CONCURRENTLY\b`, "")
	c.MatchSQL("MYSQL_E306", `\b(LISTEN|NOTIFY|UNLISTEN)\s+\w+|\bpg_notify\s*\(`, "")
	c.MatchSQL("MYSQL_E307", `\bDISTINCT\s+ON\s*\(`, "")
	c.MatchSQL("MYSQL_E308", `\bEXCLUDE\s+(USING\s+\w+\s*)?\(`, "")
	c.MatchSQL("MYSQL_E309", `\b(to_tsvector|to_tsquery|plainto_tsquery|websearch_to_tsquery|ts_rank|ts_rank_cd|ts_headline)\s*\(`, "")
	return c
}
