package compat

import "github.com/syssam/dbkit/dialect"

const nileDocs = "https://www.thenile.dev/docs/tenant-virtualization/tenant-sharing"

// Nile built-in tables managed by the platform.
var nileBuiltins = []string{"tenants", "tenant_users", "users"}

func nileCatalog() *Catalog {
	c := NewCatalog(dialect.Nile)
	c.Add(withDocs(nileDocs,
		&Rule{
			Code: "NILE-BT-001", Severity: SeverityError, Category: CategoryBuiltinTable, Feature: "BUILT-IN TABLE",
			Message:     "table {table} collides with a Nile built-in table",
			Alternative: "rename the table, or extend the built-in table with a separate table keyed by its id",
			DocsURL:     "https://www.thenile.dev/docs/tenant-virtualization/tenant-management",
		},
		&Rule{
			Code: "NILE-BT-002", Severity: SeverityError, Category: CategoryBuiltinTable, Feature: "BUILT-IN TABLE",
			Message:     "built-in tables cannot be altered or dropped: {detected}",
			Alternative: "store extra attributes in a separate table",
		},
		&Rule{
			Code: "NILE-TC-001", Severity: SeverityInfo, Category: CategoryDDL, Feature: "TENANT TABLE",
			Message: "{table} is a tenant table: rows are isolated per tenant_id",
		},
		&Rule{
			Code: "NILE-TC-002", Severity: SeverityInfo, Category: CategoryDDL, Feature: "SHARED TABLE",
			Message: "{table} is a shared table: rows are visible to every tenant",
		},
		&Rule{
			Code: "NILE-TC-003", Severity: SeverityWarning, Category: CategoryDDL, Feature: "TENANT COLUMN",
			Message:     "{table}.tenant_id is {detected}; the table is classified as shared",
			Alternative: "tenant_id UUID NOT NULL references tenants(id)",
		},
		&Rule{
			Code: "NILE-PK-001", Severity: SeverityError, Category: CategoryPrimaryKey, Feature: "PRIMARY KEY",
			Message:     "primary key of tenant table {table} must include tenant_id",
			Alternative: "PRIMARY KEY (tenant_id, id)",
		},
		&Rule{
			Code: "NILE-PK-002", Severity: SeverityWarning, Category: CategoryPrimaryKey, Feature: "PRIMARY KEY",
			Message:     "primary key of tenant table {table} should lead with tenant_id",
			Alternative: "PRIMARY KEY (tenant_id, id)",
		},
		&Rule{
			Code: "NILE-UQ-001", Severity: SeverityError, Category: CategoryConstraint, Feature: "UNIQUE",
			Message:     "unique constraint {constraint} on tenant table {table} must include tenant_id",
			Alternative: "UNIQUE (tenant_id, ...)",
		},
		&Rule{
			Code: "NILE-FK-001", Severity: SeverityError, Category: CategoryForeignKey, Feature: "FOREIGN KEY",
			Message:     "shared table {table} cannot reference tenant table {detected}",
			Alternative: "move the reference to the tenant table, or make {table} a tenant table",
		},
		&Rule{
			Code: "NILE-FK-002", Severity: SeverityWarning, Category: CategoryForeignKey, Feature: "FOREIGN KEY",
			Message: "tenant table {table} references shared table {detected}; deletes on the shared table affect every tenant",
		},
		&Rule{
			Code: "NILE-FK-003", Severity: SeverityError, Category: CategoryForeignKey, Feature: "FOREIGN KEY",
			Message:     "foreign key {constraint} between tenant tables must include tenant_id",
			Alternative: "FOREIGN KEY (tenant_id, ...) REFERENCES {detected} (tenant_id, ...)",
		},
		&Rule{
			Code: "NILE-FN-001", Severity: SeverityError, Category: CategoryFunction, Feature: "LANGUAGE",
			Message:     "function {object} uses an unsupported language",
			Alternative: "LANGUAGE plpgsql or LANGUAGE sql",
		},
		&Rule{
			Code: "NILE-SEQ-001", Severity: SeverityWarning, Category: CategorySequence, Feature: "SEQUENCE",
			Message:     "sequences are global and shared by all tenants",
			Alternative: "uuid() + gen_random_uuid()",
		},
		&Rule{
			Code: "NILE-ADM-001", Severity: SeverityError, Category: CategoryAdmin, Feature: "ADMIN",
			Message:     "administrative statement is not allowed: {detected}",
			Alternative: "manage databases from the Nile console",
		},
		&Rule{
			Code: "NILE-EXT-001", Severity: SeverityWarning, Category: CategoryDDL, Feature: "EXTENSION",
			Message: "only preinstalled extensions are available: {detected}",
			DocsURL: "https://www.thenile.dev/docs/extensions/introduction",
		},
	)...)

	c.WithTenancy(Tenancy{Column: "tenant_id", Builtin: nileBuiltins})
	c.MatchFeature("NILE-FN-001", FeatureLanguage)
	c.MatchFeature("NILE-SEQ-001", FeatureSequence)
	c.MatchFeature("NILE-EXT-001", FeatureExtension)
	c.AllowLanguages("plpgsql", "sql")

	c.MatchSQL("NILE-ADM-001", `\b(CREATE|DROP|ALTER)\s+DATABASE\b|\bALTER\s+SYSTEM\b|\bCREATE\s+(ROLE|USER)\b`, "")
	c.MatchSQL("NILE-BT-002", `\b(ALTER|DROP)\s+TABLE\s+(IF\s+EXISTS\s+)?("?public"?\.)?"?(tenants|tenant_users|users)"?(\s|;|$)`, "")
	c.MatchSQL("NILE-SEQ-001", `\bCREATE\s+SEQUENCE\b`, "")
	c.MatchSQL("NILE-EXT-001", `\bCREATE\s+EXTENSION\s+(IF\s+NOT\s+EXISTS\s+)?"?\w+"?`, "")
	c.MatchSQL("NILE-FN-001", `\bLANGUAGE\s+'?(plpython3?u|plperl|plv8|c)\b'?`, "")
	return c
}
