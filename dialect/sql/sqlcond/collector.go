package sqlcond

import (
	"github.com/syssam/dbkit/dialect/sql"
)

// Base predicate methods. Family methods carry their family name as prefix,
// e.g. jsonb_contains or postgis_intersects.
const (
	MethodEqual              = "equal"
	MethodNotEqual           = "notEqual"
	MethodLessThan           = "lessThan"
	MethodLessThanEqual      = "lessThanEqual"
	MethodGreaterThan        = "greaterThan"
	MethodGreaterThanEqual   = "greaterThanEqual"
	MethodIsNull             = "isNull"
	MethodIsNotNull          = "isNotNull"
	MethodBetween            = "between"
	MethodNotBetween         = "notBetween"
	MethodLike               = "like"
	MethodNotLike            = "notLike"
	MethodILike              = "ilike"
	MethodNotILike           = "notIlike"
	MethodRegex              = "regex"
	MethodNotRegex           = "notRegex"
	MethodIRegex             = "iregex"
	MethodNotIRegex          = "notIregex"
	MethodSimilarTo          = "similarTo"
	MethodNotSimilarTo       = "notSimilarTo"
	MethodIsTrue             = "isTrue"
	MethodIsFalse            = "isFalse"
	MethodDistinctFrom       = "distinctFrom"
	MethodNotDistinctFrom    = "notDistinctFrom"
	MethodOverlaps           = "overlaps"
	MethodIn                 = "in"
	MethodNotIn              = "notIn"
	MethodExists             = "exists"
	MethodNotExists          = "notExists"
	MethodSearch             = "search"
	MethodNotSearch          = "notSearch"
	MethodExpr               = "expr"
	MethodOr                 = "or"
	MethodAnd                = "and"
	MethodNot                = "not"
	MethodColumnEqual        = "columnEqual"
	MethodColumnNotEqual     = "columnNotEqual"
	MethodColumnLessThan     = "columnLessThan"
	MethodColumnGreaterThan  = "columnGreaterThan"
	MethodColumnLessEqual    = "columnLessThanEqual"
	MethodColumnGreaterEqual = "columnGreaterThanEqual"
)

// Node is one predicate. Method selects the renderer, Column is the
// left operand (a column name, a ColumnRef or an Expr) and Args holds the
// method payload. Combinators keep their operands in Children.
type Node struct {
	Method   string
	Column   any
	Args     []any
	Children []*Node
}

// Collector accumulates predicates in insertion order. Rendered predicates
// are joined with AND.
//
//	c := sqlcond.New().
//		Equal("status", "active").
//		And(func(c *sqlcond.Collector) { c.In("role", "admin", "owner") })
//	where, err := sqlcond.Build(c, dialect.Postgres)
//	// "status" = 'active' AND ("role" IN ('admin', 'owner'))
type Collector struct {
	nodes []*Node

	jsonb     *JSONB
	array     *Array
	fulltext  *Fulltext
	ranges    *Range
	geometric *Geometric
	network   *Network
	postgis   *PostGIS
}

// New returns an empty collector.
func New() *Collector { return &Collector{} }

// Nodes returns the collected predicates.
func (c *Collector) Nodes() []*Node { return c.nodes }

// Len returns the number of top-level predicates.
func (c *Collector) Len() int { return len(c.nodes) }

// Empty reports whether no predicate was added.
func (c *Collector) Empty() bool { return len(c.nodes) == 0 }

// Add appends raw nodes.
func (c *Collector) Add(nodes ...*Node) *Collector {
	c.nodes = append(c.nodes, nodes...)
	return c
}

func (c *Collector) add(method string, col any, args ...any) *Collector {
	c.nodes = append(c.nodes, &Node{Method: method, Column: col, Args: args})
	return c
}

// ToSQL renders the predicates for the named dialect.
func (c *Collector) ToSQL(dialectName string) (string, error) {
	return Build(c, dialectName)
}

// RenderSQL implements sql.Renderer. Render errors yield FALSE so that a
// broken predicate never widens a query; use Build to observe them.
func (c *Collector) RenderSQL(f *sql.Formatter) string {
	s, err := newRenderer(f).list(c.nodes, " AND ")
	if err != nil {
		return "FALSE"
	}
	return s
}

// Equal adds col = v. A slice value renders as IN and nil as IS NULL.
func (c *Collector) Equal(col, v any) *Collector { return c.add(MethodEqual, col, v) }

// NotEqual adds col <> v. A slice value renders as NOT IN and nil as
// IS NOT NULL.
func (c *Collector) NotEqual(col, v any) *Collector { return c.add(MethodNotEqual, col, v) }

// LessThan adds col < v.
func (c *Collector) LessThan(col, v any) *Collector { return c.add(MethodLessThan, col, v) }

// LessThanEqual adds col <= v.
func (c *Collector) LessThanEqual(col, v any) *Collector { return c.add(MethodLessThanEqual, col, v) }

// GreaterThan adds col > v.
func (c *Collector) GreaterThan(col, v any) *Collector { return c.add(MethodGreaterThan, col, v) }

// GreaterThanEqual adds col >= v.
func (c *Collector) GreaterThanEqual(col, v any) *Collector {
	return c.add(MethodGreaterThanEqual, col, v)
}

// IsNull adds col IS NULL.
func (c *Collector) IsNull(col any) *Collector { return c.add(MethodIsNull, col) }

// IsNotNull adds col IS NOT NULL.
func (c *Collector) IsNotNull(col any) *Collector { return c.add(MethodIsNotNull, col) }

// Between adds col BETWEEN lo AND hi.
func (c *Collector) Between(col, lo, hi any) *Collector { return c.add(MethodBetween, col, lo, hi) }

// NotBetween adds col NOT BETWEEN lo AND hi.
func (c *Collector) NotBetween(col, lo, hi any) *Collector {
	return c.add(MethodNotBetween, col, lo, hi)
}

// Like adds col LIKE pattern.
func (c *Collector) Like(col any, pattern string) *Collector { return c.add(MethodLike, col, pattern) }

// NotLike adds col NOT LIKE pattern.
func (c *Collector) NotLike(col any, pattern string) *Collector {
	return c.add(MethodNotLike, col, pattern)
}

// ILike adds a case-insensitive LIKE.
func (c *Collector) ILike(col any, pattern string) *Collector {
	return c.add(MethodILike, col, pattern)
}

// NotILike adds a negated case-insensitive LIKE.
func (c *Collector) NotILike(col any, pattern string) *Collector {
	return c.add(MethodNotILike, col, pattern)
}

// Regex adds a POSIX regular expression match (~).
func (c *Collector) Regex(col any, pattern string) *Collector {
	return c.add(MethodRegex, col, pattern)
}

// NotRegex adds a negated regular expression match (!~).
func (c *Collector) NotRegex(col any, pattern string) *Collector {
	return c.add(MethodNotRegex, col, pattern)
}

// IRegex adds a case-insensitive regular expression match (~*).
func (c *Collector) IRegex(col any, pattern string) *Collector {
	return c.add(MethodIRegex, col, pattern)
}

// NotIRegex adds a negated case-insensitive regular expression match (!~*).
func (c *Collector) NotIRegex(col any, pattern string) *Collector {
	return c.add(MethodNotIRegex, col, pattern)
}

// SimilarTo adds col SIMILAR TO pattern.
func (c *Collector) SimilarTo(col any, pattern string) *Collector {
	return c.add(MethodSimilarTo, col, pattern)
}

// NotSimilarTo adds col NOT SIMILAR TO pattern.
func (c *Collector) NotSimilarTo(col any, pattern string) *Collector {
	return c.add(MethodNotSimilarTo, col, pattern)
}

// IsTrue adds col IS TRUE.
func (c *Collector) IsTrue(col any) *Collector { return c.add(MethodIsTrue, col) }

// IsFalse adds col IS FALSE.
func (c *Collector) IsFalse(col any) *Collector { return c.add(MethodIsFalse, col) }

// DistinctFrom adds col IS DISTINCT FROM v.
func (c *Collector) DistinctFrom(col, v any) *Collector { return c.add(MethodDistinctFrom, col, v) }

// NotDistinctFrom adds col IS NOT DISTINCT FROM v.
func (c *Collector) NotDistinctFrom(col, v any) *Collector {
	return c.add(MethodNotDistinctFrom, col, v)
}

// Overlaps adds (start, end) OVERLAPS (otherStart, otherEnd).
func (c *Collector) Overlaps(start, end, otherStart, otherEnd any) *Collector {
	return c.add(MethodOverlaps, start, end, otherStart, otherEnd)
}

// In adds col IN (values...). A single sql.Renderer value is rendered as a
// subquery.
func (c *Collector) In(col any, values ...any) *Collector { return c.add(MethodIn, col, values...) }

// NotIn adds col NOT IN (values...).
func (c *Collector) NotIn(col any, values ...any) *Collector {
	return c.add(MethodNotIn, col, values...)
}

// Exists adds EXISTS (subquery). The subquery is an sql.Renderer or an SQL
// string.
func (c *Collector) Exists(subquery any) *Collector { return c.add(MethodExists, nil, subquery) }

// NotExists adds NOT EXISTS (subquery).
func (c *Collector) NotExists(subquery any) *Collector {
	return c.add(MethodNotExists, nil, subquery)
}

// Search adds a plain full-text search of query over col.
func (c *Collector) Search(col any, query string) *Collector {
	return c.add(MethodSearch, col, query)
}

// NotSearch adds a negated full-text search.
func (c *Collector) NotSearch(col any, query string) *Collector {
	return c.add(MethodNotSearch, col, query)
}

// Where adds a boolean expression.
//
//	c.Where(sqlcond.Col("price").Mul(sqlcond.Col("qty")).Gt(100))
func (c *Collector) Where(e sql.Renderer) *Collector { return c.add(MethodExpr, e) }

// ColumnEqual adds a column-to-column comparison left = right.
func (c *Collector) ColumnEqual(left, right any) *Collector {
	return c.add(MethodColumnEqual, left, right)
}

// ColumnNotEqual adds left <> right.
func (c *Collector) ColumnNotEqual(left, right any) *Collector {
	return c.add(MethodColumnNotEqual, left, right)
}

// ColumnLessThan adds left < right.
func (c *Collector) ColumnLessThan(left, right any) *Collector {
	return c.add(MethodColumnLessThan, left, right)
}

// ColumnLessThanEqual adds left <= right.
func (c *Collector) ColumnLessThanEqual(left, right any) *Collector {
	return c.add(MethodColumnLessEqual, left, right)
}

// ColumnGreaterThan adds left > right.
func (c *Collector) ColumnGreaterThan(left, right any) *Collector {
	return c.add(MethodColumnGreaterThan, left, right)
}

// ColumnGreaterThanEqual adds left >= right.
func (c *Collector) ColumnGreaterThanEqual(left, right any) *Collector {
	return c.add(MethodColumnGreaterEqual, left, right)
}

// Or adds the predicates collected by fn joined with OR. The group is
// always parenthesized, even with a single predicate.
func (c *Collector) Or(fn func(*Collector)) *Collector { return c.group(MethodOr, fn) }

// And adds the predicates collected by fn joined with AND, parenthesized.
func (c *Collector) And(fn func(*Collector)) *Collector { return c.group(MethodAnd, fn) }

// Not adds NOT (...) over the predicates collected by fn.
func (c *Collector) Not(fn func(*Collector)) *Collector { return c.group(MethodNot, fn) }

func (c *Collector) group(method string, fn func(*Collector)) *Collector {
	sub := New()
	fn(sub)
	c.nodes = append(c.nodes, &Node{Method: method, Children: sub.nodes})
	return c
}

// JSONB returns the JSONB sub-builder.
func (c *Collector) JSONB() *JSONB {
	if c.jsonb == nil {
		c.jsonb = &JSONB{c: c}
	}
	return c.jsonb
}

// Array returns the array sub-builder.
func (c *Collector) Array() *Array {
	if c.array == nil {
		c.array = &Array{c: c}
	}
	return c.array
}

// Fulltext returns the full-text search sub-builder.
func (c *Collector) Fulltext() *Fulltext {
	if c.fulltext == nil {
		c.fulltext = &Fulltext{c: c}
	}
	return c.fulltext
}

// Range returns the range type sub-builder.
func (c *Collector) Range() *Range {
	if c.ranges == nil {
		c.ranges = &Range{c: c}
	}
	return c.ranges
}

// Geometric returns the geometric type sub-builder.
func (c *Collector) Geometric() *Geometric {
	if c.geometric == nil {
		c.geometric = &Geometric{c: c}
	}
	return c.geometric
}

// Network returns the network address sub-builder.
func (c *Collector) Network() *Network {
	if c.network == nil {
		c.network = &Network{c: c}
	}
	return c.network
}

// PostGIS returns the PostGIS sub-builder.
func (c *Collector) PostGIS() *PostGIS {
	if c.postgis == nil {
		c.postgis = &PostGIS{c: c}
	}
	return c.postgis
}
