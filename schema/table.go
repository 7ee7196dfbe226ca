package schema

import (
	"fmt"
	"slices"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/edge"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
	"github.com/syssam/dbkit/schema/mixin"
)

// Table is a table definition. It is produced by DefineTable, or directly
// by the introspection inspectors.
type Table struct {
	Name           string
	Schema         string
	Columns        []*field.Descriptor
	PrimaryKey     []string // table-level primary key, by column name.
	PrimaryKeyName string
	Uniques        []*Unique
	Checks         []*Check
	ForeignKeys    []*edge.Descriptor
	Indexes        []*index.Descriptor
	Partition      *Partition
	PartitionOf    *PartitionOf
	Options        Options
	Annotation     sqlschema.Annotation

	mixins  []mixin.Mixin
	fields  []field.Builder
	indexes []*index.Builder
	fks     []*edge.Builder
	optErrs []error
}

// Options holds the table options.
type Options struct {
	IfNotExists  bool
	Temporary    bool
	Unlogged     bool // Postgres.
	Strict       bool // SQLite.
	WithoutRowid bool // SQLite.
	Comment      string
}

// Unique is a table-level UNIQUE constraint.
type Unique struct {
	Name    string
	Columns []string
}

// Check is a table-level CHECK constraint.
type Check struct {
	Name string
	Expr string
}

// Option configures a table definition.
type Option func(*Table)

// IfNotExists adds IF NOT EXISTS to the CREATE statements.
func IfNotExists() Option {
	return func(t *Table) { t.Options.IfNotExists = true }
}

// Temporary creates a temporary table.
func Temporary() Option {
	return func(t *Table) { t.Options.Temporary = true }
}

// Unlogged creates an UNLOGGED table (Postgres).
func Unlogged() Option {
	return func(t *Table) { t.Options.Unlogged = true }
}

// Strict creates a STRICT table (SQLite).
func Strict() Option {
	return func(t *Table) { t.Options.Strict = true }
}

// WithoutRowid creates a WITHOUT ROWID table (SQLite). The table must
// declare a primary key.
func WithoutRowid() Option {
	return func(t *Table) { t.Options.WithoutRowid = true }
}

// Comment sets the table comment.
func Comment(c string) Option {
	return func(t *Table) { t.Options.Comment = c }
}

// InSchema places the table in the named database schema.
func InSchema(name string) Option {
	return func(t *Table) { t.Schema = name }
}

// PrimaryKey declares a table-level primary key. A single column key is
// emitted inline.
func PrimaryKey(columns ...string) Option {
	return func(t *Table) {
		if len(columns) == 0 {
			t.optErrs = append(t.optErrs, dbkit.NewInvalidArgumentError("schema.PrimaryKey", t.Name, "primary key requires at least one column"))
			return
		}
		t.PrimaryKey = columns
	}
}

// PrimaryKeyName names the table-level primary key constraint.
func PrimaryKeyName(name string) Option {
	return func(t *Table) { t.PrimaryKeyName = name }
}

// UniqueConstraint adds a UNIQUE constraint. The name is optional.
func UniqueConstraint(name string, columns ...string) Option {
	return func(t *Table) {
		if len(columns) == 0 {
			t.optErrs = append(t.optErrs, dbkit.NewInvalidArgumentError("schema.UniqueConstraint", name, "unique constraint requires at least one column"))
			return
		}
		t.Uniques = append(t.Uniques, &Unique{Name: name, Columns: columns})
	}
}

// CheckConstraint adds a CHECK constraint. The name is optional.
func CheckConstraint(name, expr string) Option {
	return func(t *Table) {
		if expr == "" {
			t.optErrs = append(t.optErrs, dbkit.NewInvalidArgumentError("schema.CheckConstraint", name, "check expression must not be empty"))
			return
		}
		t.Checks = append(t.Checks, &Check{Name: name, Expr: expr})
	}
}

// Indexes adds indexes to the table.
func Indexes(builders ...*index.Builder) Option {
	return func(t *Table) { t.indexes = append(t.indexes, builders...) }
}

// ForeignKeys adds table-level foreign keys.
func ForeignKeys(builders ...*edge.Builder) Option {
	return func(t *Table) { t.fks = append(t.fks, builders...) }
}

// Mixins merges reusable column groups into the table. Mixin columns come
// before the table's own columns.
func Mixins(mixins ...mixin.Mixin) Option {
	return func(t *Table) { t.mixins = append(t.mixins, mixins...) }
}

// Annotations sets SQL annotations on the table; later values win.
func Annotations(annotations ...sqlschema.Annotation) Option {
	return func(t *Table) {
		t.Annotation = sqlschema.Merge(append([]sqlschema.Annotation{t.Annotation}, annotations...)...)
		if t.Annotation.Schema != "" {
			t.Schema = t.Annotation.Schema
		}
	}
}

// DefineTable assembles a table from column builders and options. Builder
// errors and model violations are returned joined.
//
//	users, err := schema.DefineTable("users", []field.Builder{
//		field.UUID("id").PrimaryKey().Default(field.GenRandomUUID()),
//		field.Varchar("email", 255).NotNull().Unique(),
//	})
func DefineTable(name string, columns []field.Builder, opts ...Option) (*Table, error) {
	t := &Table{Name: name, fields: columns}
	for _, opt := range opts {
		opt(t)
	}
	errs := t.optErrs
	if name == "" {
		errs = append(errs, dbkit.NewInvalidArgumentError("schema.DefineTable", name, "table name must not be empty"))
	}
	var builders []field.Builder
	for _, m := range t.mixins {
		builders = append(builders, m.Fields()...)
		t.indexes = append(t.indexes, m.Indexes()...)
		t.fks = append(t.fks, m.ForeignKeys()...)
	}
	builders = append(builders, t.fields...)
	for _, b := range builders {
		desc := b.Descriptor()
		if desc.Err != nil {
			errs = append(errs, desc.Err)
			continue
		}
		t.Columns = append(t.Columns, desc)
	}
	for _, b := range t.indexes {
		desc := b.Descriptor()
		if desc.Err != nil {
			errs = append(errs, desc.Err)
			continue
		}
		t.Indexes = append(t.Indexes, desc)
	}
	for _, b := range t.fks {
		desc := b.Descriptor()
		if desc.Err != nil {
			errs = append(errs, desc.Err)
			continue
		}
		t.ForeignKeys = append(t.ForeignKeys, desc)
	}
	t.mixins, t.fields, t.indexes, t.fks, t.optErrs = nil, nil, nil, nil, nil
	if len(errs) > 0 {
		return nil, dbkit.NewAggregateError(errs...)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustDefineTable is like DefineTable but panics on error.
func MustDefineTable(name string, columns []field.Builder, opts ...Option) *Table {
	t, err := DefineTable(name, columns, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks the model invariants: at least one column (unless the
// table is a partition), unique column names, known constraint columns,
// matching foreign key arity and a primary key for WITHOUT ROWID tables.
func (t *Table) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, dbkit.InvalidArgumentf("schema.Table", t.Name, format, args...))
	}
	if len(t.Columns) == 0 && t.PartitionOf == nil {
		fail("table must have at least one column")
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		name := c.Column()
		if seen[name] {
			fail("duplicate column %q", name)
		}
		seen[name] = true
	}
	known := func(what string, columns []string) {
		for _, c := range columns {
			if _, ok := t.Column(c); !ok {
				fail("%s references unknown column %q", what, c)
			}
		}
	}
	if len(t.PrimaryKey) > 0 {
		known("primary key", t.PrimaryKey)
		for _, c := range t.Columns {
			if c.PrimaryKey && !slices.Contains(t.PrimaryKey, c.Name) && !slices.Contains(t.PrimaryKey, c.Column()) {
				fail("column %q is marked as primary key but is not part of PRIMARY KEY (%v)", c.Name, t.PrimaryKey)
			}
		}
	}
	for _, u := range t.Uniques {
		known("unique constraint", u.Columns)
	}
	for _, idx := range t.Indexes {
		known("index", idx.Fields)
	}
	for _, fk := range t.ForeignKeys {
		known("foreign key", fk.Columns)
		if len(fk.Columns) != len(fk.RefColumns) {
			fail("foreign key has %d columns but references %d", len(fk.Columns), len(fk.RefColumns))
		}
	}
	pk := t.PrimaryKeyColumns()
	if t.Options.WithoutRowid && len(pk) == 0 {
		fail("WITHOUT ROWID table must have a primary key")
	}
	if p := t.Partition; p != nil {
		known("partition key", p.Columns)
		if len(pk) > 0 {
			for _, c := range p.Columns {
				if !slices.Contains(pk, t.columnName(c)) {
					fail("primary key must include partition column %q", c)
				}
			}
		}
	}
	return dbkit.NewAggregateError(errs...)
}

// Column returns the column with the given logical or physical name.
func (t *Table) Column(name string) (*field.Descriptor, bool) {
	for _, c := range t.Columns {
		if c.Name == name || c.Column() == name {
			return c, true
		}
	}
	return nil, false
}

// columnName maps a logical column name to its physical name.
func (t *Table) columnName(name string) string {
	if c, ok := t.Column(name); ok {
		return c.Column()
	}
	return name
}

func (t *Table) columnNames(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = t.columnName(n)
	}
	return out
}

// PrimaryKeyColumns returns the physical primary key columns: the
// table-level key if declared, otherwise the columns marked PrimaryKey.
func (t *Table) PrimaryKeyColumns() []string {
	if len(t.PrimaryKey) > 0 {
		return t.columnNames(t.PrimaryKey)
	}
	var pk []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c.Column())
		}
	}
	return pk
}

// inlinePK returns the column whose PRIMARY KEY is emitted inline, if the
// key has a single column.
func (t *Table) inlinePK() string {
	if pk := t.PrimaryKeyColumns(); len(pk) == 1 {
		return pk[0]
	}
	return ""
}

// References returns the tables referenced by foreign keys, in order of
// first appearance. Self references are excluded.
func (t *Table) References() []string {
	var refs []string
	add := func(name string) {
		if name != t.Name && !slices.Contains(refs, name) {
			refs = append(refs, name)
		}
	}
	for _, c := range t.Columns {
		if c.Reference != nil {
			add(c.Reference.Table)
		}
	}
	for _, fk := range t.ForeignKeys {
		add(fk.RefTable)
	}
	return refs
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return fmt.Sprintf("table(%s, %d columns)", t.Name, len(t.Columns))
}
