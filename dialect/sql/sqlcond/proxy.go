package sqlcond

import (
	"sort"

	"github.com/syssam/dbkit/dialect/sql"
)

// TableRef is a table as seen by a query: its SQL name, the alias it is
// referenced by and the logical to physical mapping of its columns.
// schema.Table.Proxy builds one from a table definition.
type TableRef struct {
	name    string
	alias   string
	columns map[string]ColumnInfo
}

// ColumnInfo describes a proxied column.
type ColumnInfo struct {
	SQLName string
	Type    string
}

// NewTableRef returns a reference to the table name. columns maps logical
// column names to their SQL names and types; it may be nil.
func NewTableRef(name string, columns map[string]ColumnInfo) TableRef {
	return TableRef{name: name, alias: name, columns: columns}
}

// Name returns the SQL table name.
func (t TableRef) Name() string { return t.name }

// Alias returns the name the table is referenced by.
func (t TableRef) Alias() string { return t.alias }

// As returns a copy of t referenced by alias.
func (t TableRef) As(alias string) TableRef {
	if alias != "" {
		t.alias = alias
	}
	return t
}

// Columns returns the logical column names in sorted order.
func (t TableRef) Columns() []string {
	names := make([]string, 0, len(t.columns))
	for n := range t.columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// C returns the column with the logical name. Unknown names reference a
// physical column of the same name.
func (t TableRef) C(name string) ColumnRef {
	ref := ColumnRef{Table: t.name, Alias: t.alias, Name: name, SQLName: name}
	if info, ok := t.columns[name]; ok {
		ref.Type = info.Type
		if info.SQLName != "" {
			ref.SQLName = info.SQLName
		}
	}
	return ref
}

// RenderSQL renders the table for a FROM clause: "name" or "name" AS "alias".
func (t TableRef) RenderSQL(f *sql.Formatter) string {
	if t.alias == "" || t.alias == t.name {
		return f.Ident(t.name)
	}
	return f.Ident(t.name) + " AS " + f.Ident(t.alias)
}

// ColumnRef is a column reference bound to a table alias.
type ColumnRef struct {
	Table   string
	Alias   string
	Name    string
	SQLName string
	Type    string

	unqualified bool
}

// Ref returns a column of table without a proxy.
func Ref(table, column string) ColumnRef {
	return ColumnRef{Table: table, Alias: table, Name: column, SQLName: column}
}

// Unqualified returns a copy of c rendered without its table alias.
func (c ColumnRef) Unqualified() ColumnRef {
	c.unqualified = true
	return c
}

// RenderSQL renders "alias"."column", or "column" when unqualified.
func (c ColumnRef) RenderSQL(f *sql.Formatter) string {
	if c.unqualified || c.Alias == "" {
		return f.Ident(c.SQLName)
	}
	return f.QualifiedIdent(c.Alias, c.SQLName)
}

// Expr returns c as a chainable expression.
func (c ColumnRef) Expr() Expr { return newExpr(c.RenderSQL) }
