package sqljoin

import (
	"math"
	"strconv"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sql/sqlcond"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Nulls places NULL values in an ordering.
type Nulls string

// Null orderings.
const (
	NullsFirst Nulls = "FIRST"
	NullsLast  Nulls = "LAST"
)

type orderTerm struct {
	col   any
	dir   Direction
	nulls Nulls
}

// ManyBuilder plans the right side of a one-to-many join: the rows of the
// right table matching the join condition, optionally grouped, ordered
// and paginated. It renders either as a plain subquery or in lateral form,
// which aggregates the rows into one JSON array column.
type ManyBuilder struct {
	cond    *ConditionBuilder
	alias   string
	groupBy []any
	having  *sqlcond.Collector
	orderBy []orderTerm
	limit   *int
	offset  *int
}

// Many starts a one-to-many join from left to the rows of right.
//
//	sqljoin.Many(users, posts).
//		Equal(sqlcond.Ref("posts", "author_id"), sqlcond.Ref("users", "id")).
//		OrderBy("created_at", sqljoin.Desc).
//		Limit(5)
func Many(left, right sqlcond.TableRef) *ManyBuilder {
	return &ManyBuilder{cond: On(left, right), alias: right.Alias(), having: sqlcond.New()}
}

// As sets the name of the lateral JSON column. It defaults to the right
// table alias.
func (m *ManyBuilder) As(alias string) *ManyBuilder {
	m.alias = alias
	return m
}

// Condition returns the join condition builder.
func (m *ManyBuilder) Condition() *ConditionBuilder { return m.cond }

// Equal adds left = right to the join condition.
func (m *ManyBuilder) Equal(left, right any) *ManyBuilder {
	m.cond.Equal(left, right)
	return m
}

// NotEqual adds left <> right to the join condition.
func (m *ManyBuilder) NotEqual(left, right any) *ManyBuilder {
	m.cond.NotEqual(left, right)
	return m
}

// GreaterThan adds left > right to the join condition.
func (m *ManyBuilder) GreaterThan(left, right any) *ManyBuilder {
	m.cond.GreaterThan(left, right)
	return m
}

// GreaterThanEqual adds left >= right to the join condition.
func (m *ManyBuilder) GreaterThanEqual(left, right any) *ManyBuilder {
	m.cond.GreaterThanEqual(left, right)
	return m
}

// LessThan adds left < right to the join condition.
func (m *ManyBuilder) LessThan(left, right any) *ManyBuilder {
	m.cond.LessThan(left, right)
	return m
}

// LessThanEqual adds left <= right to the join condition.
func (m *ManyBuilder) LessThanEqual(left, right any) *ManyBuilder {
	m.cond.LessThanEqual(left, right)
	return m
}

// Using joins on columns that share their name on both sides.
func (m *ManyBuilder) Using(columns ...string) *ManyBuilder {
	m.cond.Using(columns...)
	return m
}

// Where adds scalar conditions to the subquery.
func (m *ManyBuilder) Where(fn func(*sqlcond.Collector)) *ManyBuilder {
	m.cond.Where(fn)
	return m
}

// Select projects columns of the right table.
func (m *ManyBuilder) Select(columns ...string) *ManyBuilder {
	m.cond.Select(columns...)
	return m
}

// SelectRefs projects column references or expressions.
func (m *ManyBuilder) SelectRefs(refs ...sql.Renderer) *ManyBuilder {
	m.cond.SelectRefs(refs...)
	return m
}

// GroupBy groups the subquery by columns of the right table or by
// expressions.
func (m *ManyBuilder) GroupBy(columns ...any) *ManyBuilder {
	m.groupBy = append(m.groupBy, columns...)
	return m
}

// Having adds conditions on the groups.
func (m *ManyBuilder) Having(fn func(*sqlcond.Collector)) *ManyBuilder {
	fn(m.having)
	return m
}

// OrderBy orders the subquery by a column of the right table or an
// expression.
func (m *ManyBuilder) OrderBy(col any, dir Direction) *ManyBuilder {
	return m.OrderByNulls(col, dir, "")
}

// OrderByNulls orders the subquery and places NULL values first or last.
func (m *ManyBuilder) OrderByNulls(col any, dir Direction, nulls Nulls) *ManyBuilder {
	switch dir {
	case "", Asc, Desc:
	default:
		m.cond.setErr(dbkit.InvalidArgumentf("sqljoin.OrderBy", string(dir), "direction must be ASC or DESC"))
	}
	switch nulls {
	case "", NullsFirst, NullsLast:
	default:
		m.cond.setErr(dbkit.InvalidArgumentf("sqljoin.OrderBy", string(nulls), "nulls must be FIRST or LAST"))
	}
	m.orderBy = append(m.orderBy, orderTerm{col: col, dir: dir, nulls: nulls})
	return m
}

// Limit caps the number of rows.
func (m *ManyBuilder) Limit(n int) *ManyBuilder {
	if n < 0 {
		m.cond.setErr(dbkit.InvalidArgumentf("sqljoin.Limit", "", "limit must not be negative, got %d", n))
	}
	m.limit = &n
	return m
}

// Offset skips the first n rows.
func (m *ManyBuilder) Offset(n int) *ManyBuilder {
	if n < 0 {
		m.cond.setErr(dbkit.InvalidArgumentf("sqljoin.Offset", "", "offset must not be negative, got %d", n))
	}
	m.offset = &n
	return m
}

// Err returns the first error recorded by the builder.
func (m *ManyBuilder) Err() error { return m.cond.err }

// ToSQL renders the subquery form:
//
//	SELECT ... FROM <right> WHERE ... [GROUP BY] [HAVING] [ORDER BY] [LIMIT] [OFFSET]
func (m *ManyBuilder) ToSQL(dialectName string) (string, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("sqljoin.ToSQL", dialectName, "unknown dialect")
	}
	if err := m.Err(); err != nil {
		return "", err
	}
	f := sql.NewFormatter(info.Name)
	right := m.cond.right

	columns := make([]string, 0, len(m.cond.selects))
	for _, s := range m.cond.selects {
		columns = append(columns, s.RenderSQL(f))
	}
	if len(columns) == 0 {
		columns = append(columns, f.Ident(right.Alias())+".*")
	}
	b := sq.Select(columns...).From(right.RenderSQL(f))

	where, err := sqlcond.Build(m.cond.conds, info.Name)
	if err != nil {
		return "", err
	}
	if where != "" {
		b = b.Where(where)
	}
	if len(m.groupBy) > 0 {
		groups := make([]string, len(m.groupBy))
		for i, g := range m.groupBy {
			groups[i] = m.column(f, g)
		}
		b = b.GroupBy(groups...)
	}
	having, err := sqlcond.Build(m.having, info.Name)
	if err != nil {
		return "", err
	}
	if having != "" {
		b = b.Having(having)
	}
	if len(m.orderBy) > 0 {
		b = b.OrderBy(m.orderTerms(f)...)
	}
	if m.limit != nil {
		b = b.Limit(uint64(*m.limit))
	}
	switch {
	case m.offset == nil:
	case m.limit == nil && info.IsSQLite():
		// SQLite and MySQL accept OFFSET only after a LIMIT.
		b = b.Suffix("LIMIT -1 OFFSET " + strconv.Itoa(*m.offset))
	case m.limit == nil && info.IsMySQL():
		b = b.Limit(math.MaxUint64).Offset(uint64(*m.offset))
	default:
		b = b.Offset(uint64(*m.offset))
	}
	query, _, err := b.ToSql()
	if err != nil {
		return "", dbkit.NewInvalidArgumentError("sqljoin.ToSQL", right.Name(), err.Error())
	}
	return query, nil
}

// ToLateralSQL renders the lateral form, which projects the matching rows
// as one JSON array. An empty match yields [] rather than NULL.
//
//	(SELECT COALESCE(json_agg(sub.*), '[]'::json) AS "posts" FROM (SELECT ...) sub)
func (m *ManyBuilder) ToLateralSQL(dialectName string) (string, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("sqljoin.ToLateralSQL", dialectName, "unknown dialect")
	}
	if !info.IsPostgres() {
		return "", dbkit.NewInvalidArgumentError("sqljoin.ToLateralSQL", dialectName, "lateral JSON aggregation requires a Postgres dialect")
	}
	inner, err := m.ToSQL(info.Name)
	if err != nil {
		return "", err
	}
	f := sql.NewFormatter(info.Name)
	return "(SELECT COALESCE(json_agg(sub.*), '[]'::json) AS " + f.Ident(m.alias) + " FROM (" + inner + ") sub)", nil
}

// column renders a grouping or ordering operand. Names are columns of the
// right table and render unqualified.
func (m *ManyBuilder) column(f *sql.Formatter, v any) string {
	switch c := v.(type) {
	case string:
		return m.cond.right.C(c).Unqualified().RenderSQL(f)
	case sql.Renderer:
		return c.RenderSQL(f)
	}
	return f.Literal(v)
}

func (m *ManyBuilder) orderTerms(f *sql.Formatter) []string {
	terms := make([]string, 0, len(m.orderBy))
	for _, o := range m.orderBy {
		col := m.column(f, o.col)
		if o.nulls != "" && f.Info().IsMySQL() {
			// MySQL has no NULLS FIRST/LAST; sort on an IS NULL key first.
			key := col + " IS NULL"
			if o.nulls == NullsFirst {
				key += " DESC"
			}
			terms = append(terms, key)
		}
		term := col
		if o.dir != "" {
			term += " " + string(o.dir)
		}
		if o.nulls != "" && !f.Info().IsMySQL() {
			term += " NULLS " + string(o.nulls)
		}
		terms = append(terms, term)
	}
	return terms
}
