// Package schema is the table model of dbkit: tables assembled from column,
// index and foreign key builders, rendered as dialect-specific DDL or
// converted into an atlas schema for diffing.
//
// The building blocks live in subpackages:
//
//   - [field]: column-type builders
//   - [index]: index builders
//   - [edge]: table-level foreign keys
//   - [mixin]: reusable column groups
//
// # Quick Start
//
//	users := schema.MustDefineTable("users", []field.Builder{
//	    field.UUID("id").PrimaryKey().Default(field.GenRandomUUID()),
//	    field.Varchar("email", 255).NotNull().Unique(),
//	},
//	    schema.Mixins(mixin.Time{}),
//	    schema.Indexes(index.Fields("created_at").Desc("created_at")),
//	)
//
//	ddl, err := users.ToSQL(dialect.Postgres)
//	// CREATE TABLE "users" ("created_at" TIMESTAMPTZ NOT NULL DEFAULT now(), ...)
//
// Mixin columns come before the table's own columns.
//
// # Dialects
//
// The same table renders for every dialect in [dialect.Names]. Types are
// mapped per dialect (UUID becomes CHAR(36) on MySQL), MySQL tables get an
// ENGINE/CHARSET/COLLATE suffix and inline references become named
// FOREIGN KEY constraints, SQLite supports STRICT and WITHOUT ROWID, and
// DEFERRABLE is dropped where the engine rejects it.
//
// # Objects
//
// A [Bundle] groups tables with enums, domains, composite types, sequences,
// functions, triggers and extensions. [Bundle.ToSQL] orders statements so
// that every object is created after its dependencies; tables are sorted by
// their foreign keys.
//
// # Errors
//
// Builder errors are collected and returned joined by [DefineTable]. Model
// violations (unknown columns, duplicate names, a WITHOUT ROWID table
// without primary key) are reported by [Table.Validate]. All are
// [dbkit.InvalidArgumentError] values.
package schema
