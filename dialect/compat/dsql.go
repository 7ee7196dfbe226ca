package compat

import (
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema/field"
)

const dsqlDocs = "https://docs.aws.amazon.com/aurora-dsql/latest/userguide/working-with-postgresql-compatibility-unsupported-features.html"

// withDocs sets the docs URL of rules that have none.
func withDocs(url string, rules ...*Rule) []*Rule {
	for _, r := range rules {
		if r.DocsURL == "" {
			r.DocsURL = url
		}
	}
	return rules
}

// serialFix rewrites serial columns to random UUID keys.
var serialFix = &AutoFix{
	Description:       "Replace the serial column with a UUID generated by the server",
	OriginalType:      "SERIAL",
	ReplacementType:   "UUID",
	AdditionalChanges: []string{"DEFAULT gen_random_uuid()", "update referencing foreign key columns to UUID"},
}

func dsqlCatalog() *Catalog {
	c := NewCatalog(dialect.DSQL)
	c.Add(withDocs(dsqlDocs,
		&Rule{
			Code: "SERIAL", Severity: SeverityError, Category: CategoryDataType, Feature: "SERIAL",
			Message:     "{detected} columns are not supported: Aurora DSQL has no sequences",
			Alternative: "uuid() + gen_random_uuid()",
			AutoFix:     serialFix,
		},
		&Rule{
			Code: "IDENTITY_COLUMN", Severity: SeverityError, Category: CategoryDataType, Feature: "IDENTITY",
			Message:     "identity column {column} is not supported: Aurora DSQL has no sequences",
			Alternative: "uuid() + gen_random_uuid()",
			AutoFix: &AutoFix{
				Description:       "Replace the identity column with a UUID generated by the server",
				ReplacementType:   "UUID",
				AdditionalChanges: []string{"DEFAULT gen_random_uuid()"},
			},
		},
		&Rule{
			Code: "JSONB_COLUMN", Severity: SeverityError, Category: CategoryDataType, Feature: "JSONB",
			Message:     "JSONB columns are not supported; JSONB is available only as a runtime type",
			Alternative: "text()",
			AutoFix:     &AutoFix{Description: "Store the document as text and cast at query time", OriginalType: "JSONB", ReplacementType: "TEXT"},
		},
		&Rule{
			Code: "JSON_COLUMN", Severity: SeverityError, Category: CategoryDataType, Feature: "JSON",
			Message:     "JSON columns are not supported; JSON is available only as a runtime type",
			Alternative: "text()",
			AutoFix:     &AutoFix{Description: "Store the document as text and cast at query time", OriginalType: "JSON", ReplacementType: "TEXT"},
		},
		&Rule{
			Code: "ARRAY_COLUMN", Severity: SeverityError, Category: CategoryDataType, Feature: "ARRAY",
			Message:     "array column {column} is not supported",
			Alternative: "text() holding a JSON array, or a child table",
		},
		&Rule{
			Code: "UNSUPPORTED_TYPE", Severity: SeverityError, Category: CategoryDataType, Feature: "TYPE",
			Message:     "column type {detected} is not supported by Aurora DSQL",
			Alternative: "text() or a supported scalar type",
		},
		&Rule{
			Code: "SEQUENCE", Severity: SeverityError, Category: CategorySequence, Feature: "SEQUENCE",
			Message:     "sequences are not supported",
			Alternative: "uuid() + gen_random_uuid()",
		},
		&Rule{
			Code: "FOREIGN_KEY", Severity: SeverityError, Category: CategoryConstraint, Feature: "FOREIGN KEY",
			Message:     "foreign key constraints are not supported",
			Alternative: "enforce referential integrity in the application",
		},
		&Rule{
			Code: "TRIGGER", Severity: SeverityError, Category: CategoryTrigger, Feature: "TRIGGER",
			Message:     "triggers are not supported",
			Alternative: "run the logic in the application",
		},
		&Rule{
			Code: "FUNCTION_LANGUAGE", Severity: SeverityError, Category: CategoryFunction, Feature: "LANGUAGE",
			Message:     "function {object} uses an unsupported language; only SQL functions are supported",
			Alternative: "LANGUAGE sql",
		},
		&Rule{
			Code: "EXTENSION", Severity: SeverityError, Category: CategoryDDL, Feature: "EXTENSION",
			Message:     "extensions are not supported",
			Alternative: "built-in functions",
		},
		&Rule{
			Code: "DOMAIN", Severity: SeverityError, Category: CategoryDDL, Feature: "DOMAIN",
			Message:     "domains are not supported",
			Alternative: "the base type with a CHECK constraint",
		},
		&Rule{
			Code: "ENUM_TYPE", Severity: SeverityError, Category: CategoryDataType, Feature: "ENUM",
			Message:     "enum types are not supported",
			Alternative: "text() with a CHECK (value IN (...)) constraint",
		},
		&Rule{
			Code: "COMPOSITE_TYPE", Severity: SeverityError, Category: CategoryDataType, Feature: "COMPOSITE",
			Message:     "composite types are not supported",
			Alternative: "separate columns",
		},
		&Rule{
			Code: "TEMP_TABLE", Severity: SeverityError, Category: CategoryDDL, Feature: "TEMPORARY TABLE",
			Message:     "temporary tables are not supported",
			Alternative: "a regular table cleaned up by the application",
		},
		&Rule{
			Code: "UNLOGGED_TABLE", Severity: SeverityError, Category: CategoryDDL, Feature: "UNLOGGED",
			Message:     "unlogged tables are not supported",
			Alternative: "a regular table",
		},
		&Rule{
			Code: "PARTITION", Severity: SeverityError, Category: CategoryDDL, Feature: "PARTITION",
			Message:     "table partitioning is not supported; data is distributed automatically",
			Alternative: "a single table",
		},
		&Rule{
			Code: "INDEX_METHOD", Severity: SeverityError, Category: CategoryIndex, Feature: "INDEX METHOD",
			Message:     "index access method {detected} is not supported; only btree indexes exist",
			Alternative: "a btree index",
		},
		&Rule{
			Code: "PARTIAL_INDEX", Severity: SeverityError, Category: CategoryIndex, Feature: "PARTIAL INDEX",
			Message:     "partial index {index} is not supported",
			Alternative: "a full index",
		},
		&Rule{
			Code: "EXPRESSION_INDEX", Severity: SeverityError, Category: CategoryIndex, Feature: "EXPRESSION INDEX",
			Message:     "expression index {index} is not supported",
			Alternative: "a generated column indexed directly",
		},
		&Rule{
			Code: "INDEX_ASYNC", Severity: SeverityWarning, Category: CategoryIndex, Feature: "CREATE INDEX",
			Message:     "indexes on existing tables must be created with CREATE INDEX ASYNC",
			Alternative: "CREATE INDEX ASYNC",
		},
		&Rule{
			Code: "INDEX_CONCURRENTLY", Severity: SeverityError, Category: CategoryIndex, Feature: "CONCURRENTLY",
			Message:     "CREATE INDEX CONCURRENTLY is not supported",
			Alternative: "CREATE INDEX ASYNC",
		},
		&Rule{
			Code: "EXCLUSION", Severity: SeverityError, Category: CategoryConstraint, Feature: "EXCLUDE",
			Message:     "exclusion constraints are not supported",
			Alternative: "a unique constraint or an application check",
		},
		&Rule{
			Code: "TRUNCATE", Severity: SeverityError, Category: CategoryDML, Feature: "TRUNCATE",
			Message:     "TRUNCATE is not supported",
			Alternative: "DELETE in batches",
		},
		&Rule{
			Code: "ADVISORY_LOCK", Severity: SeverityError, Category: CategoryTransaction, Feature: "ADVISORY LOCK",
			Message:     "advisory locks are not supported; transactions use optimistic concurrency",
			Alternative: "retry on serialization failure (SQLSTATE 40001)",
		},
		&Rule{
			Code: "SAVEPOINT", Severity: SeverityError, Category: CategoryTransaction, Feature: "SAVEPOINT",
			Message:     "savepoints are not supported",
			Alternative: "shorter transactions",
		},
		&Rule{
			Code: "LISTEN_NOTIFY", Severity: SeverityError, Category: CategoryDML, Feature: "LISTEN/NOTIFY",
			Message:     "LISTEN and NOTIFY are not supported",
			Alternative: "an external queue",
		},
		&Rule{
			Code: "VACUUM", Severity: SeverityError, Category: CategoryAdmin, Feature: "VACUUM",
			Message: "VACUUM is not supported; storage is managed by the service",
		},
		&Rule{
			Code: "TABLESPACE", Severity: SeverityError, Category: CategoryAdmin, Feature: "TABLESPACE",
			Message: "tablespaces are not supported",
		},
		&Rule{
			Code: "COLLATION", Severity: SeverityError, Category: CategoryDDL, Feature: "COLLATION",
			Message: "custom collations are not supported; only the C collation is available",
		},
	)...)

	c.MatchTypes("SERIAL", "", "SERIAL", "SMALLSERIAL", "BIGSERIAL", "SERIAL2", "SERIAL4", "SERIAL8")
	c.MatchTypes("JSONB_COLUMN", "", "JSONB")
	c.MatchTypes("JSON_COLUMN", "", "JSON")
	c.MatchTypes("ARRAY_COLUMN", arrayPattern)
	c.MatchTypes("UNSUPPORTED_TYPE", "", "XML", "MONEY")
	c.MatchFamilies("UNSUPPORTED_TYPE",
		field.FamilyGeometric, field.FamilyRange, field.FamilyTextSearch,
		field.FamilyPostGIS, field.FamilyVector, field.FamilyNetwork)

	c.MatchFeature("ARRAY_COLUMN", FeatureArray, FeatureNestedArray)
	c.MatchFeature("IDENTITY_COLUMN", FeatureIdentity)
	c.MatchFeature("FOREIGN_KEY", FeatureForeignKey)
	c.MatchFeature("SEQUENCE", FeatureSequence)
	c.MatchFeature("TRIGGER", FeatureTrigger)
	c.MatchFeature("FUNCTION_LANGUAGE", FeatureLanguage)
	c.MatchFeature("EXTENSION", FeatureExtension)
	c.MatchFeature("DOMAIN", FeatureDomain)
	c.MatchFeature("ENUM_TYPE", FeatureEnum)
	c.MatchFeature("COMPOSITE_TYPE", FeatureComposite)
	c.MatchFeature("TEMP_TABLE", FeatureTemporary)
	c.MatchFeature("UNLOGGED_TABLE", FeatureUnlogged)
	c.MatchFeature("PARTITION", FeaturePartition)
	c.MatchFeature("PARTIAL_INDEX", FeaturePartialIndex)
	c.MatchFeature("EXPRESSION_INDEX", FeatureExpressionIndex)
	c.MatchFeature("COLLATION", FeatureCollation)
	c.MatchIndexMethods("INDEX_METHOD", "gin", "gist", "spgist", "brin", "hash")
	c.AllowLanguages("sql")

	c.MatchSQL("SEQUENCE", `\bCREATE\s+SEQUENCE\b|\bNEXTVAL\s*\(`, "")
	c.MatchSQL("IDENTITY_COLUMN", `\bGENERATED\s+(ALWAYS|BY\s+DEFAULT)\s+AS\s+IDENTITY\b`, "")
	c.MatchSQL("FOREIGN_KEY", `\bFOREIGN\s+KEY\b|\bREFERENCES\s+[\w."]+`, "")
	c.MatchSQL("TRIGGER", `\bCREATE\s+(OR\s+REPLACE\s+)?(CONSTRAINT\s+)?TRIGGER\b`, "")
	c.MatchSQL("FUNCTION_LANGUAGE", `\bLANGUAGE\s+'?(plpgsql|plpython3?u|plperl|plv8|c)\b'?`, "")
	c.MatchSQL("EXTENSION", `\bCREATE\s+EXTENSION\b`, "")
	c.MatchSQL("DOMAIN", `\bCREATE\s+DOMAIN\b`, "")
	c.MatchSQL("ENUM_TYPE", `\bCREATE\s+TYPE\s+[\w."]+\s+AS\s+ENUM\b`, "")
	c.MatchSQL("COMPOSITE_TYPE", `\bCREATE\s+TYPE\s+[\w."]+\s+AS\s*\(`, "")
	c.MatchSQL("TEMP_TABLE", `\bCREATE\s+((GLOBAL|LOCAL)\s+)?TEMP(ORARY)?\s+TABLE\b`, "")
	c.MatchSQL("UNLOGGED_TABLE", `\bCREATE\s+UNLOGGED\s+TABLE\b`, "")
	c.MatchSQL("PARTITION", `\bPARTITION\s+(BY|OF)\b`, "")
	c.MatchSQL("INDEX_METHOD", `\bUSING\s+(GIN|GIST|SPGIST|BRIN|HASH)\b`, "")
	c.MatchSQL("INDEX_CONCURRENTLY", `\bINDEX\s+CONCURRENTLY\b`, "")
	c.MatchSQL("INDEX_ASYNC", `\bCREATE\s+(UNIQUE\s+)?INDEX\s+\w+`, `INDEX\s+(ASYNC|CONCURRENTLY)\b`)
	c.MatchSQL("EXCLUSION", `\bEXCLUDE\s+(USING\s+\w+\s*)?\(`, "")
	c.MatchSQL("TRUNCATE", `\bTRUNCATE\s+(TABLE\s+)?[\w."]+`, "")
	c.MatchSQL("ADVISORY_LOCK", `\bpg_(try_)?advisory_(xact_)?lock(_shared)?\s*\(`, "")
	c.MatchSQL("SAVEPOINT", `\bSAVEPOINT\s+\w+`, "")
	c.MatchSQL("LISTEN_NOTIFY", `\b(LISTEN|NOTIFY|UNLISTEN)\s+\w+|\bpg_notify\s*\(`, "")
	c.MatchSQL("VACUUM", `(?m)^\s*VACUUM\b`, "")
	c.MatchSQL("TABLESPACE", `\bTABLESPACE\s+\w+`, "")
	c.MatchSQL("COLLATION", `\bCREATE\s+COLLATION\b`, "")
	return c
}

// arrayPattern matches an array type such as integer[] or varchar(10)[].
const arrayPattern = `^[a-z_][\w ]*?(\([^)]*\))?\s*\[\s*\d*\s*\]`
