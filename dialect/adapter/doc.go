// Package adapter provides one façade per dialect family over the DDL
// renderer, the catalog inspector and the compatibility rules.
//
// Adapters are looked up by dialect name or alias:
//
//	a, err := adapter.New("cockroachdb")
//	if err != nil {
//		return err
//	}
//	stmts, err := a.GenerateCreateTable(users)
//	res := a.ValidateTable(users)
//
// Operations that reach the database take a Source and open their own
// single-connection handle, which is closed before they return:
//
//	b, err := a.Introspect(ctx, adapter.DSN("postgres://localhost/app"))
//
// GenerateAlterTable diffs two versions of a table. Postgres and MySQL
// alter columns in place; SQLite rebuilds the table when a column
// definition changes.
//
// Register replaces the factory of a dialect, e.g. to plug a libsql
// driver for Turso.
package adapter
