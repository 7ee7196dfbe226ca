// Package dialect provides the identity of the database dialects supported
// by dbkit and the driver interfaces shared by the dialect/sql packages.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL 15+
//   - DSQL: Amazon Aurora DSQL (Postgres-compatible, distributed)
//   - CRDB: CockroachDB (Postgres wire, distributed)
//   - Nile: Nile (Postgres 15 with tenant-aware tables)
//   - MySQL: MySQL 8
//   - MariaDB: MariaDB 10.5+
//   - SQLite: SQLite 3.35+
//   - Turso: libSQL / Turso
//
// Each dialect belongs to a family that decides quoting, placeholders and
// catalog layout:
//
//	info, _ := dialect.Lookup("cockroachdb") // alias of dialect.CRDB
//	info.Family         // dialect.FamilyPostgres
//	info.Placeholder(2) // "$2"
//	info.QuoteChar      // '"'
//
// # Driver Interface
//
// The Driver and Tx interfaces are implemented by dialect/sql:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: formatter, driver, pools and statistics
//   - dialect/sql/sqlcond: predicate and expression DSL
//   - dialect/sql/sqljoin: one-to-many join planner
//   - dialect/sql/schema: catalog introspection
//   - dialect/sqlschema: referential actions
//   - dialect/compat: compatibility rule catalogs and validator
//   - dialect/adapter: per-dialect façade
package dialect
