// Package gen turns Postgres expressions back into dbkit code.
//
// Generated columns, defaults and check constraints are stored in the
// catalog as expressions. TranspileExpr parses such an expression with
// the Postgres parser and emits the equivalent Go source against the
// sqlcond expression DSL:
//
//	src, err := gen.TranspileExpr("(first_name || ' '::text) || last_name")
//	// sqlcond.Concat(sqlcond.Col("first_name"), " ", sqlcond.Col("last_name"))
//
// Functions are resolved through a registry of well-known Postgres
// functions. Functions with a DSL method become method calls on their
// receiver argument; the rest are emitted through sqlcond.Fn. Functions,
// operators and node kinds without a mapping fail with an
// UnsupportedNodeError naming what is missing, unless Options.AllowRaw
// is set, in which case the deparsed SQL is wrapped in sqlcond.Raw.
package gen
