// Package index provides fluent builders for table indexes.
//
//	index.Fields("email").Unique()
//	index.Fields("tenant_id", "created_at").Desc("created_at").NullsLast("created_at")
//	index.Exprs("lower(email)").Using("btree").Where("deleted_at IS NULL")
package index

import (
	"slices"

	"github.com/syssam/dbkit"
)

// Annotation is the interface implemented by index annotations, such as
// sqlschema.IndexAnnotation.
type Annotation interface {
	Name() string
}

// Direction is the sort direction of an index column.
type Direction string

// Sort directions.
const (
	DirectionUnset Direction = ""
	Asc            Direction = "ASC"
	Desc           Direction = "DESC"
)

// Nulls is the NULL ordering of an index column.
type Nulls string

// NULL orderings.
const (
	NullsUnset Nulls = ""
	NullsFirst Nulls = "FIRST"
	NullsLast  Nulls = "LAST"
)

// Column is one key part of an index: a column name or an expression.
type Column struct {
	Name      string
	Expr      string
	Direction Direction
	Nulls     Nulls
	OpClass   string
	Collation string
}

// A Descriptor for index configuration.
type Descriptor struct {
	Fields      []string     // column names, in key order.
	Columns     []*Column    // key parts; Fields entries and expressions.
	Unique      bool         // unique index.
	StorageKey  string       // index name.
	Method      string       // access method (btree, gin, gist, ...).
	Where       string       // partial index predicate.
	Comment     string       // index comment.
	Concurrent  bool         // CREATE INDEX CONCURRENTLY.
	Annotations []Annotation // dialect-specific settings.
	Err         error
}

// Builder for indexes.
type Builder struct {
	desc *Descriptor
}

// Fields creates an index on the given columns.
func Fields(fields ...string) *Builder {
	b := &Builder{desc: &Descriptor{}}
	for _, f := range fields {
		b.desc.Fields = append(b.desc.Fields, f)
		b.desc.Columns = append(b.desc.Columns, &Column{Name: f})
	}
	return b
}

// Exprs creates an index on the given expressions.
func Exprs(exprs ...string) *Builder {
	b := &Builder{desc: &Descriptor{}}
	for _, e := range exprs {
		b.desc.Columns = append(b.desc.Columns, &Column{Expr: e})
	}
	return b
}

// Expr adds an expression key part.
func (b *Builder) Expr(expr string) *Builder {
	b.desc.Columns = append(b.desc.Columns, &Column{Expr: expr})
	return b
}

// Unique makes the index unique.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// StorageKey sets the index name.
func (b *Builder) StorageKey(key string) *Builder {
	b.desc.StorageKey = key
	return b
}

// Using sets the index access method.
func (b *Builder) Using(method string) *Builder {
	b.desc.Method = method
	return b
}

// Where makes the index partial.
func (b *Builder) Where(predicate string) *Builder {
	b.desc.Where = predicate
	return b
}

// Comment sets the index comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Concurrently creates the index without locking writes (Postgres).
func (b *Builder) Concurrently() *Builder {
	b.desc.Concurrent = true
	return b
}

// Desc sorts the named columns in descending order. Without arguments it
// applies to every key part.
func (b *Builder) Desc(columns ...string) *Builder {
	return b.each(columns, func(c *Column) { c.Direction = Desc })
}

// Asc sorts the named columns in ascending order.
func (b *Builder) Asc(columns ...string) *Builder {
	return b.each(columns, func(c *Column) { c.Direction = Asc })
}

// NullsFirst orders NULLs first for the named columns.
func (b *Builder) NullsFirst(columns ...string) *Builder {
	return b.each(columns, func(c *Column) { c.Nulls = NullsFirst })
}

// NullsLast orders NULLs last for the named columns.
func (b *Builder) NullsLast(columns ...string) *Builder {
	return b.each(columns, func(c *Column) { c.Nulls = NullsLast })
}

// OpClass sets the operator class of a column.
func (b *Builder) OpClass(column, opclass string) *Builder {
	return b.each([]string{column}, func(c *Column) { c.OpClass = opclass })
}

// Collate sets the collation of a column.
func (b *Builder) Collate(column, collation string) *Builder {
	return b.each([]string{column}, func(c *Column) { c.Collation = collation })
}

func (b *Builder) each(columns []string, fn func(*Column)) *Builder {
	for _, name := range columns {
		if !slices.Contains(b.desc.Fields, name) {
			if b.desc.Err == nil {
				b.desc.Err = dbkit.NewInvalidArgumentError("index", name, "column is not part of the index")
			}
			return b
		}
	}
	for _, c := range b.desc.Columns {
		if len(columns) == 0 || c.Expr == "" && slices.Contains(columns, c.Name) {
			fn(c)
		}
	}
	return b
}

// Annotations adds a list of annotations to the index object to be used by
// codegen extensions.
//
//	index.Fields("title").
//		Annotations(sqlschema.IncludeColumns("body"))
func (b *Builder) Annotations(annotations ...Annotation) *Builder {
	b.desc.Annotations = append(b.desc.Annotations, annotations...)
	return b
}

// Descriptor returns the index descriptor.
func (b *Builder) Descriptor() *Descriptor {
	if b.desc.Err == nil && len(b.desc.Columns) == 0 {
		b.desc.Err = dbkit.NewInvalidArgumentError("index", b.desc.StorageKey, "an index requires at least one column or expression")
	}
	return b.desc
}
