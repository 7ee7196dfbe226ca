// Package field provides fluent builders for table columns.
//
// Each SQL type family has a factory returning a *Column whose decorators
// mutate the column configuration and return the builder:
//
//	field.UUID("id").PrimaryKey().Default(field.GenRandomUUID())
//	field.Varchar("email", 255).NotNull().Unique()
//	field.Decimal("amount", 10, 2).NotNull().Default(0)
//	field.Timestamp("created_at").Precision(3).WithTimezone().Default(field.Now())
//	field.Text("status").Check("status_check", "active", "disabled")
//	field.Vector("embedding", 1536)
//	field.Geometry("location", "Point", 4326)
//
// # Defaults
//
// Defaults are literals unless marked as SQL expressions:
//
//	field.Text("role").Default("member")           // DEFAULT 'member'
//	field.Timestamptz("seen_at").DefaultExpr("now()") // DEFAULT now()
//
// # Errors
//
// Invalid arguments (a vector with zero dimensions, AUTOINCREMENT on a
// text column) do not panic. The first error is recorded on
// Descriptor().Err and reported by schema.DefineTable.
//
// # Dialect Types
//
// Type tokens are Postgres spellings. Descriptor.TypeFor maps them to the
// MySQL and SQLite families; SchemaType overrides the mapping:
//
//	field.Text("body").SchemaType(map[string]string{
//	    dialect.MySQL: "MEDIUMTEXT",
//	})
package field
