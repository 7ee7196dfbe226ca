package schema

import (
	"slices"
	"strings"

	"github.com/syssam/dbkit/schema/index"
)

// Bundle is a complete database schema: the objects of one database schema
// as defined in code or reconstructed by introspection.
type Bundle struct {
	Name       string // database schema, e.g. public.
	Version    string // server version, set by introspection.
	Tables     []*Table
	Enums      []*Enum
	Domains    []*Domain
	Composites []*Composite
	Sequences  []*Sequence
	Functions  []*Function
	Triggers   []*Trigger
	Extensions []*Extension
	Collations []string
}

// NewBundle returns a bundle holding the given tables.
func NewBundle(tables ...*Table) *Bundle {
	return &Bundle{Tables: tables}
}

// Table returns the named table.
func (b *Bundle) Table(name string) (*Table, bool) {
	for _, t := range b.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TableIndex is an index together with its table.
type TableIndex struct {
	Table string
	Name  string
	Index *index.Descriptor
}

// Indexes returns the indexes of all tables.
func (b *Bundle) Indexes() []TableIndex {
	var idxs []TableIndex
	for _, t := range b.Tables {
		for _, idx := range t.Indexes {
			idxs = append(idxs, TableIndex{Table: t.Name, Name: t.IndexName(idx), Index: idx})
		}
	}
	return idxs
}

// ConstraintKind is the kind of a table constraint.
type ConstraintKind string

// Constraint kinds.
const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintCheck      ConstraintKind = "CHECK"
	ConstraintForeignKey ConstraintKind = "FOREIGN KEY"
)

// Constraint is a flattened view of a table constraint.
type Constraint struct {
	Table      string
	Name       string
	Kind       ConstraintKind
	Columns    []string
	RefTable   string
	RefColumns []string
	Expr       string
	Deferrable bool
}

// Constraints returns the constraints of a table in DDL order: primary
// key, unique, check, foreign key.
func (t *Table) Constraints() []Constraint {
	var cs []Constraint
	if pk := t.PrimaryKeyColumns(); len(pk) > 0 {
		cs = append(cs, Constraint{Table: t.Name, Name: t.PrimaryKeyName, Kind: ConstraintPrimaryKey, Columns: pk})
	}
	for _, c := range t.Columns {
		if c.Unique {
			cs = append(cs, Constraint{Table: t.Name, Kind: ConstraintUnique, Columns: []string{c.Column()}})
		}
	}
	for _, u := range t.Uniques {
		cs = append(cs, Constraint{Table: t.Name, Name: u.Name, Kind: ConstraintUnique, Columns: t.columnNames(u.Columns)})
	}
	for _, c := range t.Columns {
		for _, ck := range c.Checks {
			cs = append(cs, Constraint{Table: t.Name, Name: ck.Name, Kind: ConstraintCheck, Columns: []string{c.Column()}, Expr: ck.Expr})
		}
	}
	for _, ck := range t.Checks {
		cs = append(cs, Constraint{Table: t.Name, Name: ck.Name, Kind: ConstraintCheck, Expr: ck.Expr})
	}
	for _, c := range t.Columns {
		if ref := c.Reference; ref != nil {
			cs = append(cs, Constraint{Table: t.Name, Kind: ConstraintForeignKey, Columns: []string{c.Column()}, RefTable: ref.Table, RefColumns: []string{ref.Column}})
		}
	}
	for _, fk := range t.ForeignKeys {
		cs = append(cs, Constraint{
			Table:      t.Name,
			Name:       fk.StorageKey,
			Kind:       ConstraintForeignKey,
			Columns:    t.columnNames(fk.Columns),
			RefTable:   fk.RefTable,
			RefColumns: fk.RefColumns,
			Deferrable: fk.Deferrable,
		})
	}
	return cs
}

// Constraints returns the constraints of all tables.
func (b *Bundle) Constraints() []Constraint {
	var cs []Constraint
	for _, t := range b.Tables {
		cs = append(cs, t.Constraints()...)
	}
	return cs
}

// SortedTables returns the tables in foreign key dependency order:
// referenced tables come first and ties are broken by name. Tables in a
// reference cycle are appended by name.
func (b *Bundle) SortedTables() []*Table {
	byName := make(map[string]*Table, len(b.Tables))
	for _, t := range b.Tables {
		byName[t.Name] = t
	}
	pending := make(map[string]int, len(b.Tables))
	dependents := make(map[string][]string)
	for _, t := range b.Tables {
		pending[t.Name] += 0
		for _, ref := range t.References() {
			if _, ok := byName[ref]; !ok {
				continue
			}
			pending[t.Name]++
			dependents[ref] = append(dependents[ref], t.Name)
		}
	}
	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sorted := make([]*Table, 0, len(b.Tables))
	for len(ready) > 0 {
		slices.Sort(ready)
		name := ready[0]
		ready = ready[1:]
		sorted = append(sorted, byName[name])
		delete(pending, name)
		for _, d := range dependents[name] {
			if pending[d]--; pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	rest := make([]string, 0, len(pending))
	for name := range pending {
		rest = append(rest, name)
	}
	slices.Sort(rest)
	for _, name := range rest {
		sorted = append(sorted, byName[name])
	}
	return sorted
}

// ToSQL returns the DDL of the bundle in dependency order: extensions,
// enums, domains, composite types, sequences, tables (with their comments),
// indexes, functions and triggers. Objects the dialect cannot express are
// an error.
func (b *Bundle) ToSQL(dialectName string) ([]string, error) {
	var stmts []string
	add := func(s string, err error) error {
		if err != nil {
			return err
		}
		stmts = append(stmts, s)
		return nil
	}
	for _, e := range b.Extensions {
		if err := add(e.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	for _, e := range b.Enums {
		if err := add(e.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	for _, d := range b.Domains {
		if err := add(d.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	for _, c := range b.Composites {
		if err := add(c.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	for _, s := range b.Sequences {
		if err := add(s.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	tables := b.SortedTables()
	for _, t := range tables {
		tb, err := newBuilder(t, dialectName)
		if err != nil {
			return nil, err
		}
		if err := add(tb.createTable()); err != nil {
			return nil, err
		}
		stmts = append(stmts, tb.comments()...)
	}
	for _, t := range tables {
		idxs, err := t.ToCreateIndexSQL(dialectName)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, idxs...)
	}
	for _, fn := range b.Functions {
		if err := add(fn.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	for _, tr := range b.Triggers {
		if err := add(tr.ToSQL(dialectName)); err != nil {
			return nil, err
		}
	}
	return stmts, nil
}

// Script joins the bundle DDL into a single script.
func (b *Bundle) Script(dialectName string) (string, error) {
	stmts, err := b.ToSQL(dialectName)
	if err != nil {
		return "", err
	}
	if len(stmts) == 0 {
		return "", nil
	}
	return strings.Join(stmts, ";\n") + ";\n", nil
}
