package adapter

import (
	stdsql "database/sql"
	"fmt"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
)

// rebuildPrefix names the temporary table of a SQLite table rebuild.
const rebuildPrefix = "_dbkit_new_"

// SQLite is the adapter of the SQLite family: SQLite and Turso.
type SQLite struct{ *core }

// NewSQLite returns the adapter of a SQLite family dialect.
func NewSQLite(info dialect.Info, opts ...Option) Adapter {
	a := &SQLite{core: newCore(info, opts)}
	a.ops = a
	return a
}

// alterTable adds and drops columns in place. SQLite cannot change the
// definition of an existing column nor add or drop constraints, so those
// changes rebuild the table. ADD COLUMN cannot add a PRIMARY KEY or UNIQUE
// column either.
func (a *SQLite) alterTable(from, to *schema.Table, d *tableDiff) ([]Statement, error) {
	inlineKey := slices.ContainsFunc(d.inlineCons, func(c schema.ConstraintDef) bool {
		return c.Kind == schema.ConstraintPrimaryKey || c.Kind == schema.ConstraintUnique
	})
	if len(d.modified)+len(d.addedCons)+len(d.droppedCons) == 0 && !inlineKey {
		return a.alterInPlace(from, to, d, nil)
	}
	return a.rebuild(from, to, d)
}

// rebuild creates the target table under a temporary name, copies the
// shared columns, replaces the old table and recreates the indexes.
func (a *SQLite) rebuild(from, to *schema.Table, d *tableDiff) ([]Statement, error) {
	tmp := *to
	tmp.Name = rebuildPrefix + to.Name
	tmp.Indexes = nil
	create, err := tmp.ToSQL(a.info.Name)
	if err != nil {
		return nil, err
	}
	var cols []string
	for _, c := range to.Columns {
		if _, ok := from.Column(c.Column()); ok && c.Generated == nil {
			cols = append(cols, a.f.Ident(c.Column()))
		}
	}
	destructive := len(d.dropped) > 0
	affects := []string{to.Name}
	for _, ch := range d.modified {
		destructive = destructive || ch.typ
		affects = append(affects, columnRef(to, ch.to))
	}
	for _, c := range d.added {
		affects = append(affects, columnRef(to, c))
	}
	for _, c := range d.dropped {
		affects = append(affects, columnRef(from, c))
	}
	list := strings.Join(cols, ", ")
	stmts := []Statement{
		{SQL: create, Type: StatementCreate, Affects: []string{tmp.Name}},
		{
			SQL:     fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", a.tableIdent(&tmp), list, list, a.tableIdent(from)),
			Type:    StatementAlter,
			Affects: affects,
		},
		{SQL: "DROP TABLE " + a.tableIdent(from), Type: StatementDrop, Destructive: destructive, Affects: affects},
		{SQL: "ALTER TABLE " + a.tableIdent(&tmp) + " RENAME TO " + a.f.Ident(to.Name), Type: StatementAlter, Affects: []string{tmp.Name, to.Name}},
	}
	for _, idx := range to.Indexes {
		s, err := a.GenerateCreateIndex(to, idx)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func (a *SQLite) migrationTable(name string) (*schema.Table, error) {
	id := field.Integer("id").PrimaryKey().Autoincrement()
	return schema.DefineTable(name, append([]field.Builder{id}, migrationColumns()...), schema.IfNotExists())
}

func (a *SQLite) friendlyType(typ string) string { return friendly(typ) }

// openDB opens the database through the registered driver of the dialect:
// modernc.org/sqlite for SQLite and a libsql driver for Turso.
func (a *SQLite) openDB(dsn string) (*stdsql.DB, error) {
	drv, err := sql.Open(a.info.Name, dsn)
	if err != nil {
		return nil, err
	}
	return drv.DB(), nil
}
