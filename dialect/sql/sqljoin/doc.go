// Package sqljoin plans joins between two proxied tables.
//
// [On] builds a join predicate. [Many] plans the child side of a
// one-to-many relation and renders it either as a plain subquery, for use
// with LEFT JOIN LATERAL, or in lateral form, a scalar subquery that
// aggregates the child rows into a JSON array:
//
//	posts := sqljoin.Many(users.Proxy(), postsTable.Proxy()).
//		Equal("id", "author_id").
//		OrderBy("created_at", sqljoin.Desc).
//		Limit(5)
//	col, err := posts.ToLateralSQL(dialect.Postgres)
//	// (SELECT COALESCE(json_agg(sub.*), '[]'::json) AS "posts" FROM (SELECT ...) sub)
//
// Names passed to the typed conditions resolve against their own side of
// the join through the table proxies. Names used in Where, GroupBy and
// OrderBy render unqualified and resolve against the child table.
package sqljoin
