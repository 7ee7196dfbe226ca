package sqljoin

import (
	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sql/sqlcond"
)

// ConditionBuilder builds the predicate that joins a left table to a right
// table. Typed conditions compare columns of both sides; Where adds scalar
// conditions. All of them are joined with AND in insertion order.
type ConditionBuilder struct {
	left, right sqlcond.TableRef
	conds       *sqlcond.Collector
	selects     []sql.Renderer
	err         error
}

// On starts a join condition between left and right.
//
//	sqljoin.On(users, posts).Equal("id", "author_id")
//	// "users"."id" = "posts"."author_id"
func On(left, right sqlcond.TableRef) *ConditionBuilder {
	b := &ConditionBuilder{left: left, right: right, conds: sqlcond.New()}
	if right.Name() == "" {
		b.err = dbkit.NewInvalidArgumentError("sqljoin.On", "right", "table name is required")
	}
	return b
}

// Left returns the left table.
func (b *ConditionBuilder) Left() sqlcond.TableRef { return b.left }

// Right returns the right table.
func (b *ConditionBuilder) Right() sqlcond.TableRef { return b.right }

// Err returns the first error recorded by the builder.
func (b *ConditionBuilder) Err() error { return b.err }

// leftCol resolves a left operand: names are columns of the left table.
func (b *ConditionBuilder) leftCol(v any) any {
	if name, ok := v.(string); ok {
		return b.left.C(name)
	}
	return v
}

// rightCol resolves a right operand: names are columns of the right table.
func (b *ConditionBuilder) rightCol(v any) any {
	if name, ok := v.(string); ok {
		return b.right.C(name)
	}
	return v
}

// Equal adds left = right. Names resolve against their own side; column
// references are used as given.
func (b *ConditionBuilder) Equal(left, right any) *ConditionBuilder {
	b.conds.ColumnEqual(b.leftCol(left), b.rightCol(right))
	return b
}

// NotEqual adds left <> right.
func (b *ConditionBuilder) NotEqual(left, right any) *ConditionBuilder {
	b.conds.ColumnNotEqual(b.leftCol(left), b.rightCol(right))
	return b
}

// GreaterThan adds left > right.
func (b *ConditionBuilder) GreaterThan(left, right any) *ConditionBuilder {
	b.conds.ColumnGreaterThan(b.leftCol(left), b.rightCol(right))
	return b
}

// GreaterThanEqual adds left >= right.
func (b *ConditionBuilder) GreaterThanEqual(left, right any) *ConditionBuilder {
	b.conds.ColumnGreaterThanEqual(b.leftCol(left), b.rightCol(right))
	return b
}

// LessThan adds left < right.
func (b *ConditionBuilder) LessThan(left, right any) *ConditionBuilder {
	b.conds.ColumnLessThan(b.leftCol(left), b.rightCol(right))
	return b
}

// LessThanEqual adds left <= right.
func (b *ConditionBuilder) LessThanEqual(left, right any) *ConditionBuilder {
	b.conds.ColumnLessThanEqual(b.leftCol(left), b.rightCol(right))
	return b
}

// Using joins on columns that share their name on both sides.
func (b *ConditionBuilder) Using(columns ...string) *ConditionBuilder {
	if len(columns) == 0 {
		b.setErr(dbkit.NewInvalidArgumentError("sqljoin.Using", b.right.Name(), "at least one column is required"))
	}
	for _, c := range columns {
		b.Equal(c, c)
	}
	return b
}

// Where adds scalar conditions. Bare names in fn render unqualified and
// resolve against the FROM table of the query.
func (b *ConditionBuilder) Where(fn func(*sqlcond.Collector)) *ConditionBuilder {
	c := sqlcond.New()
	fn(c)
	b.conds.Add(c.Nodes()...)
	return b
}

// Select adds columns of the right table to the projection. Columns
// whose SQL name differs from their logical name are aliased back to the
// logical name.
func (b *ConditionBuilder) Select(columns ...string) *ConditionBuilder {
	for _, name := range columns {
		ref := b.right.C(name)
		if ref.SQLName != name {
			b.selects = append(b.selects, ref.Expr().As(name))
			continue
		}
		b.selects = append(b.selects, ref)
	}
	return b
}

// SelectRefs adds column references or expressions to the projection.
func (b *ConditionBuilder) SelectRefs(refs ...sql.Renderer) *ConditionBuilder {
	b.selects = append(b.selects, refs...)
	return b
}

func (b *ConditionBuilder) setErr(err error) {
	if b.err == nil {
		b.err = err
	}
}

// ToSQL renders the join predicate.
func (b *ConditionBuilder) ToSQL(dialectName string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	return sqlcond.Build(b.conds, dialectName)
}
