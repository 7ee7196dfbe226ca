// Package sqlcond builds WHERE-clause predicates and scalar expressions
// that render for every dbkit dialect.
//
// A [Collector] records predicates as [Node] values in insertion order.
// Nothing is rendered until [Build] is called, so the same collector
// renders for Postgres, MySQL or SQLite:
//
//	c := sqlcond.New().
//		Equal("status", "active").
//		And(func(c *sqlcond.Collector) { c.In("role", "admin", "owner") })
//	where, err := sqlcond.Build(c, dialect.Postgres)
//	// "status" = 'active' AND ("role" IN ('admin', 'owner'))
//
// # Families
//
// Operators of the Postgres type families are reached through sub-builders
// that append to the parent collector:
//
//	c.JSONB().HasKey("meta", "plan")
//	c.Array().Overlaps("tags", "go", "sql")
//	c.Fulltext().Match("body", "fast cars")
//	c.Range().Contains("during", "2024-01-01")
//	c.Network().IsPrivate("ip")
//	c.PostGIS().DWithin("geom", point, 100)
//
// Family nodes carry the family prefix in their method name (jsonb_hasKey)
// and are dispatched by that prefix at render time. A family method that a
// dialect cannot express fails with an invalid argument error rather than
// rendering different semantics.
//
// # Expressions
//
// [Expr] composes SQL functions and operators left to right:
//
//	sqlcond.Col("email").Lower().Eq("a@b.c") // (LOWER("email") = 'a@b.c')
//
// # Table proxies
//
// [TableRef] and [ColumnRef] bind columns to a table alias. They are
// produced by schema.Table.Proxy and consumed by the sqljoin planner.
package sqlcond
