package schema

import "github.com/syssam/dbkit/dialect/sql/sqlcond"

// Proxy returns a query-side reference to t, optionally aliased. Column
// references resolve logical names to their storage keys.
//
//	users := usersTable.Proxy("u")
//	users.C("email") // "u"."email"
func (t *Table) Proxy(alias ...string) sqlcond.TableRef {
	columns := make(map[string]sqlcond.ColumnInfo, len(t.Columns))
	for _, c := range t.Columns {
		columns[c.Name] = sqlcond.ColumnInfo{SQLName: c.Column(), Type: c.SQLType()}
	}
	ref := sqlcond.NewTableRef(t.Name, columns)
	if len(alias) > 0 {
		ref = ref.As(alias[0])
	}
	return ref
}
