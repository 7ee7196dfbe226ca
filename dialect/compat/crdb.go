package compat

import (
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema/field"
)

const crdbDocs = "https://www.cockroachlabs.com/docs/stable/postgresql-compatibility"

func crdbCatalog() *Catalog {
	c := NewCatalog(dialect.CRDB)
	c.Add(withDocs(crdbDocs,
		&Rule{
			Code: "CRDB_E100", Severity: SeverityError, Category: CategoryConstraint, Feature: "EXCLUDE",
			Message:     "exclusion constraints are not supported",
			Alternative: "a unique constraint or an application check",
		},
		&Rule{
			Code: "CRDB_E101", Severity: SeverityError, Category: CategoryConstraint, Feature: "DEFERRABLE",
			Message:     "deferrable constraint {constraint} is not supported; constraints are checked immediately",
			Alternative: "order the writes so referenced rows exist first",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/foreign-key",
		},
		&Rule{
			Code: "CRDB_E200", Severity: SeverityError, Category: CategoryIndex, Feature: "INDEX METHOD",
			Message:     "index access method {detected} is not supported",
			Alternative: "a btree index, or an inverted index for JSONB, arrays and spatial data",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/inverted-indexes",
		},
		&Rule{
			Code: "CRDB_W201", Severity: SeverityWarning, Category: CategoryIndex, Feature: "HASH INDEX",
			Message:     "USING HASH creates a hash-sharded btree index, not a hash index",
			Alternative: "a btree index",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/hash-sharded-indexes",
		},
		&Rule{
			Code: "CRDB_I202", Severity: SeverityInfo, Category: CategoryIndex, Feature: "CONCURRENTLY",
			Message: "CONCURRENTLY is accepted and ignored; schema changes are always online",
		},
		&Rule{
			Code: "CRDB_W300", Severity: SeverityWarning, Category: CategoryTrigger, Feature: "TRIGGER",
			Message:     "triggers require CockroachDB 24.3 or later",
			Alternative: "changefeeds or application logic on older versions",
		},
		&Rule{
			Code: "CRDB_W301", Severity: SeverityWarning, Category: CategoryFunction, Feature: "PL/pgSQL",
			Message:     "PL/pgSQL support is partial; cursors, exceptions and some statements may fail",
			Alternative: "LANGUAGE sql",
		},
		&Rule{
			Code: "CRDB_E302", Severity: SeverityError, Category: CategoryFunction, Feature: "LANGUAGE",
			Message:     "function {object} uses an unsupported language",
			Alternative: "LANGUAGE sql or LANGUAGE plpgsql",
		},
		&Rule{
			Code: "CRDB_E400", Severity: SeverityError, Category: CategoryDataType, Feature: "TYPE",
			Message:     "column type {detected} is not supported",
			Alternative: "text() or a supported type",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/data-types",
		},
		&Rule{
			Code: "CRDB_W401", Severity: SeverityWarning, Category: CategoryDataType, Feature: "SERIAL",
			Message:     "{detected} uses unique_rowid(): values are unique but not sequential",
			Alternative: "uuid() + gen_random_uuid()",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/serial",
			AutoFix:     serialFix,
		},
		&Rule{
			Code: "CRDB_E402", Severity: SeverityError, Category: CategoryDataType, Feature: "ARRAY",
			Message:     "nested array column {column} is not supported",
			Alternative: "a one-dimensional array or JSONB",
		},
		&Rule{
			Code: "CRDB_W500", Severity: SeverityWarning, Category: CategorySequence, Feature: "SEQUENCE",
			Message:     "sequences serialize writes across the cluster",
			Alternative: "uuid() + gen_random_uuid()",
		},
		&Rule{
			Code: "CRDB_E501", Severity: SeverityError, Category: CategoryTransaction, Feature: "ADVISORY LOCK",
			Message:     "advisory locks are not supported",
			Alternative: "SELECT ... FOR UPDATE on a lock row",
		},
		&Rule{
			Code: "CRDB_E502", Severity: SeverityError, Category: CategoryDML, Feature: "LISTEN/NOTIFY",
			Message:     "LISTEN and NOTIFY are not supported",
			Alternative: "changefeeds",
		},
		&Rule{
			Code: "CRDB_E503", Severity: SeverityError, Category: CategoryDDL, Feature: "EXTENSION",
			Message:     "extensions are not supported; common extension functions are built in",
			Alternative: "built-in functions such as gen_random_uuid()",
		},
		&Rule{
			Code: "CRDB_E504", Severity: SeverityError, Category: CategoryAdmin, Feature: "TABLESPACE",
			Message:     "tablespaces are not supported",
			Alternative: "zone configurations",
		},
		&Rule{
			Code: "CRDB_E505", Severity: SeverityError, Category: CategoryAdmin, Feature: "VACUUM",
			Message: "VACUUM is not supported; garbage collection is automatic",
		},
		&Rule{
			Code: "CRDB_I600", Severity: SeverityInfo, Category: CategoryTransaction, Feature: "TRANSACTION",
			Message:     "explicit transactions run at SERIALIZABLE and may fail with SQLSTATE 40001",
			Alternative: "retry the transaction on 40001",
			DocsURL:     "https://www.cockroachlabs.com/docs/stable/transaction-retry-error-reference",
		},
		&Rule{
			Code: "CRDB_E700", Severity: SeverityError, Category: CategoryDDL, Feature: "DOMAIN",
			Message:     "domains are not supported",
			Alternative: "the base type with a CHECK constraint",
		},
		&Rule{
			Code: "CRDB_E701", Severity: SeverityError, Category: CategoryDDL, Feature: "UNLOGGED",
			Message:     "unlogged tables are not supported",
			Alternative: "a regular table",
		},
		&Rule{
			Code: "CRDB_W702", Severity: SeverityWarning, Category: CategoryDDL, Feature: "PARTITION",
			Message:     "declarative partitioning differs: PARTITION OF is not supported and PARTITION BY needs an enterprise license",
			Alternative: "REGIONAL BY ROW tables or hash-sharded indexes",
		},
		&Rule{
			Code: "CRDB_W900", Severity: SeverityWarning, Category: CategorySyntax, Feature: "GRAMMAR",
			Message: "statement does not parse with the CockroachDB grammar: {detected}",
		},
	)...)

	c.MatchTypes("CRDB_W401", "", "SERIAL", "SMALLSERIAL", "BIGSERIAL", "SERIAL2", "SERIAL4", "SERIAL8")
	c.MatchTypes("CRDB_E400", "", "XML", "MONEY", "MACADDR", "MACADDR8", "CIDR", "TXID_SNAPSHOT")
	c.MatchFamilies("CRDB_E400", field.FamilyGeometric, field.FamilyRange, field.FamilyVector)
	c.MatchTypes("CRDB_E402", `^[a-z_][\w ]*?(\([^)]*\))?\s*(\[\s*\d*\s*\]\s*){2,}`)

	c.MatchFeature("CRDB_E402", FeatureNestedArray)
	c.MatchFeature("CRDB_E101", FeatureDeferrable)
	c.MatchFeature("CRDB_W300", FeatureTrigger)
	c.MatchFeature("CRDB_E302", FeatureLanguage)
	c.MatchFeature("CRDB_W500", FeatureSequence)
	c.MatchFeature("CRDB_E503", FeatureExtension)
	c.MatchFeature("CRDB_E700", FeatureDomain)
	c.MatchFeature("CRDB_E701", FeatureUnlogged)
	c.MatchFeature("CRDB_W702", FeaturePartition)
	c.MatchIndexMethods("CRDB_E200", "spgist", "brin")
	c.MatchIndexMethods("CRDB_W201", "hash")
	c.MatchLanguages("CRDB_W301", "plpgsql")
	c.AllowLanguages("sql", "plpgsql")

	c.MatchSQL("CRDB_E100", `\bEXCLUDE\s+(USING\s+\w+\s*)?\(`, "")
	c.MatchSQL("CRDB_E101", `(\bNOT\s+)?\bDEFERRABLE\b`, `^NOT\b`)
	c.MatchSQL("CRDB_E200", `\bUSING\s+(SPGIST|BRIN)\b`, "")
	c.MatchSQL("CRDB_W201", `\bINDEX\b[^;]*?\bUSING\s+HASH\b`, "")
	c.MatchSQL("CRDB_I202", `\bINDEX\s+CONCURRENTLY\b`, "")
	c.MatchSQL("CRDB_W300", `\bCREATE\s+(OR\s+REPLACE\s+)?(CONSTRAINT\s+)?TRIGGER\b`, "")
	c.MatchSQL("CRDB_W301", `\bLANGUAGE\s+'?plpgsql\b'?`, "")
	c.MatchSQL("CRDB_E302", `\bLANGUAGE\s+'?(plpython3?u|plperl|plv8|c)\b'?`, "")
	c.MatchSQL("CRDB_W500", `\bCREATE\s+SEQUENCE\b`, "")
	c.MatchSQL("CRDB_E501", `\bpg_(try_)?advisory_(xact_)?lock(_shared)?\s*\(`, "")
	c.MatchSQL("CRDB_E502", `\b(LISTEN|NOTIFY|UNLISTEN)\s+\w+|\bpg_notify\s*\(`, "")
	c.MatchSQL("CRDB_E503", `\bCREATE\s+EXTENSION\b`, "")
	c.MatchSQL("CRDB_E504", `\bTABLESPACE\s+\w+`, "")
	c.MatchSQL("CRDB_E505", `(?m)^\s*VACUUM\b`, "")
	c.MatchSQL("CRDB_I600", `(?m)^\s*(BEGIN(\s+(TRANSACTION|WORK))?\s*;|START\s+TRANSACTION\b)`, "")
	c.MatchSQL("CRDB_E700", `\bCREATE\s+DOMAIN\b`, "")
	c.MatchSQL("CRDB_E701", `\bCREATE\s+UNLOGGED\s+TABLE\b`, "")
	c.MatchSQL("CRDB_W702", `\bPARTITION\s+OF\b`, "")
	c.CheckGrammar("CRDB_W900")
	return c
}
