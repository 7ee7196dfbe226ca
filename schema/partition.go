package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/dbkit/dialect/sql"
)

// PartitionStrategy is a declarative partitioning method.
type PartitionStrategy string

// Partitioning methods.
const (
	PartitionRange PartitionStrategy = "RANGE"
	PartitionList  PartitionStrategy = "LIST"
	PartitionHash  PartitionStrategy = "HASH"
)

// Partition describes the PARTITION BY clause of a partitioned table.
type Partition struct {
	Strategy PartitionStrategy
	Columns  []string
}

// PartitionOf makes a table a partition of a parent table.
type PartitionOf struct {
	Parent string
	Bound  PartitionBound
}

// PartitionBound is the FOR VALUES clause of a partition. MINVALUE and
// MAXVALUE are passed as sql.Raw.
type PartitionBound struct {
	From, To           []any
	In                 []any
	Modulus, Remainder int
	Default            bool
}

// PartitionByRange partitions the table by ranges of the columns.
func PartitionByRange(columns ...string) Option {
	return partitionBy(PartitionRange, columns)
}

// PartitionByList partitions the table by lists of values.
func PartitionByList(columns ...string) Option {
	return partitionBy(PartitionList, columns)
}

// PartitionByHash partitions the table by hash.
func PartitionByHash(columns ...string) Option {
	return partitionBy(PartitionHash, columns)
}

func partitionBy(s PartitionStrategy, columns []string) Option {
	return func(t *Table) { t.Partition = &Partition{Strategy: s, Columns: columns} }
}

// PartitionOfTable makes the table a partition of parent.
//
//	schema.DefineTable("events_2024", nil,
//		schema.PartitionOfTable("events", schema.ForValuesFrom(
//			[]any{"2024-01-01"}, []any{"2025-01-01"},
//		)),
//	)
func PartitionOfTable(parent string, bound PartitionBound) Option {
	return func(t *Table) { t.PartitionOf = &PartitionOf{Parent: parent, Bound: bound} }
}

// ForValuesFrom is a range partition bound.
func ForValuesFrom(from, to []any) PartitionBound {
	return PartitionBound{From: from, To: to}
}

// ForValuesIn is a list partition bound.
func ForValuesIn(values ...any) PartitionBound {
	return PartitionBound{In: values}
}

// ForValuesWithModulus is a hash partition bound.
func ForValuesWithModulus(modulus, remainder int) PartitionBound {
	return PartitionBound{Modulus: modulus, Remainder: remainder}
}

// DefaultPartition is the DEFAULT partition bound.
func DefaultPartition() PartitionBound {
	return PartitionBound{Default: true}
}

func (p *Partition) render(f *sql.Formatter, t *Table) string {
	cols := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = f.Ident(t.columnName(c))
	}
	return fmt.Sprintf("PARTITION BY %s (%s)", p.Strategy, strings.Join(cols, ", "))
}

func (b PartitionBound) render(f *sql.Formatter) (string, error) {
	list := func(vs []any) string {
		parts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = f.Literal(v)
		}
		return strings.Join(parts, ", ")
	}
	switch {
	case b.Default:
		return "DEFAULT", nil
	case len(b.From) > 0 || len(b.To) > 0:
		if len(b.From) != len(b.To) {
			return "", fmt.Errorf("range bound has %d lower values but %d upper values", len(b.From), len(b.To))
		}
		return fmt.Sprintf("FOR VALUES FROM (%s) TO (%s)", list(b.From), list(b.To)), nil
	case len(b.In) > 0:
		return fmt.Sprintf("FOR VALUES IN (%s)", list(b.In)), nil
	case b.Modulus > 0:
		if b.Remainder < 0 || b.Remainder >= b.Modulus {
			return "", fmt.Errorf("remainder %d out of range for modulus %d", b.Remainder, b.Modulus)
		}
		return fmt.Sprintf("FOR VALUES WITH (MODULUS %d, REMAINDER %d)", b.Modulus, b.Remainder), nil
	default:
		return "", errors.New("empty partition bound")
	}
}
