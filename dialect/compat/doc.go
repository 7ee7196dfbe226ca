// Package compat reports which schema constructs, column types and SQL
// features a target dialect rejects or degrades.
//
// Each restricted dialect (Aurora DSQL, CockroachDB, Nile, MySQL and
// MariaDB) owns a Catalog of rules. A Validator applies a catalog to a
// schema bundle or to raw SQL and returns a Result of diagnostics grouped
// by severity:
//
//	v := compat.NewValidator(dialect.DSQL)
//	res := v.ValidateSQL("CREATE TABLE t (id SERIAL PRIMARY KEY)", compat.Location{})
//	if !res.Valid {
//		res.Pretty(os.Stderr, true)
//	}
//
// Validation never fails and never modifies its input: incompatibilities
// are diagnostics, and rules that carry an AutoFix only describe the
// rewrite.
package compat
