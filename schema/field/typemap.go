package field

import (
	"fmt"

	"github.com/syssam/dbkit/dialect"
)

// mysqlTypes maps Postgres type tokens to MySQL column types. Types not in
// the map are emitted unchanged.
var mysqlTypes = map[string]string{
	"SMALLSERIAL":      "SMALLINT",
	"SERIAL":           "INT",
	"BIGSERIAL":        "BIGINT",
	"INTEGER":          "INT",
	"DOUBLE PRECISION": "DOUBLE",
	"MONEY":            "DECIMAL(19, 4)",
	"BYTEA":            "LONGBLOB",
	"BOOLEAN":          "BOOLEAN",
	"UUID":             "CHAR(36)",
	"JSONB":            "JSON",
	"XML":              "LONGTEXT",
	"INTERVAL":         "VARCHAR(64)",
	"INET":             "VARCHAR(45)",
	"CIDR":             "VARCHAR(49)",
	"MACADDR":          "VARCHAR(17)",
	"MACADDR8":         "VARCHAR(23)",
	"VARBIT":           "BIT",
	"TSVECTOR":         "LONGTEXT",
	"TSQUERY":          "TEXT",
	"OID":              "INT UNSIGNED",
	"GEOMETRY":         "GEOMETRY",
	"GEOGRAPHY":        "GEOMETRY",
}

// sqliteTypes maps Postgres type tokens to SQLite types by affinity.
var sqliteTypes = map[string]string{
	"SMALLINT":         "INTEGER",
	"INTEGER":          "INTEGER",
	"BIGINT":           "INTEGER",
	"SMALLSERIAL":      "INTEGER",
	"SERIAL":           "INTEGER",
	"BIGSERIAL":        "INTEGER",
	"DECIMAL":          "NUMERIC",
	"NUMERIC":          "NUMERIC",
	"REAL":             "REAL",
	"DOUBLE PRECISION": "REAL",
	"MONEY":            "NUMERIC",
	"BYTEA":            "BLOB",
	"BOOLEAN":          "INTEGER",
	"DATE":             "TEXT",
	"TIME":             "TEXT",
	"TIMESTAMP":        "TEXT",
	"INTERVAL":         "TEXT",
	"OID":              "INTEGER",
}

// TypeFor returns the column type for the named dialect. A SchemaType
// override for the dialect wins; the Postgres family uses SQLType; the
// MySQL and SQLite families map the Postgres token to a native type, and
// array columns become JSON (MySQL) or TEXT (SQLite).
func (d *Descriptor) TypeFor(name string) string {
	if t, ok := d.SchemaType[name]; ok {
		return t
	}
	switch dialect.FamilyOf(name) {
	case dialect.FamilyMySQL:
		return d.mysqlType()
	case dialect.FamilySQLite:
		return d.sqliteType()
	default:
		return d.SQLType()
	}
}

func (d *Descriptor) mysqlType() string {
	if d.IsArray() {
		return "JSON"
	}
	switch d.Type {
	case "TIME", "TIMESTAMP":
		typ := d.Type
		if d.Type == "TIMESTAMP" && !d.Timezone {
			typ = "DATETIME"
		}
		if d.Precision != nil {
			return fmt.Sprintf("%s(%d)", typ, *d.Precision)
		}
		return typ
	case "VARCHAR":
		if d.Length == 0 {
			return "TEXT"
		}
	case "TEXT":
		return "LONGTEXT"
	case "REAL":
		return "FLOAT"
	}
	switch d.Family {
	case FamilyGeometric:
		return "GEOMETRY"
	case FamilyRange, FamilyVector:
		return "JSON"
	case FamilyUser:
		return "TEXT"
	}
	if t, ok := mysqlTypes[d.Type]; ok {
		return t
	}
	return d.SQLType()
}

func (d *Descriptor) sqliteType() string {
	if d.IsArray() {
		return "TEXT"
	}
	if t, ok := sqliteTypes[d.Type]; ok {
		return t
	}
	switch d.Family {
	case FamilyInteger, FamilySerial:
		return "INTEGER"
	case FamilyNumeric:
		return "NUMERIC"
	case FamilyBinary:
		return "BLOB"
	}
	return "TEXT"
}
