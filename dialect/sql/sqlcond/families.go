package sqlcond

import "slices"

// Family prefixes of sub-builder methods.
const (
	FamilyJSONB     = "jsonb"
	FamilyArray     = "array"
	FamilyFulltext  = "fulltext"
	FamilyRange     = "range"
	FamilyGeometric = "geometric"
	FamilyNetwork   = "network"
	FamilyPostGIS   = "postgis"
)

// JSONB builds predicates over json and jsonb columns. Object and slice
// values are encoded as JSON documents.
type JSONB struct{ c *Collector }

func (j *JSONB) add(method string, col any, args ...any) *JSONB {
	j.c.add(FamilyJSONB+"_"+method, col, args...)
	return j
}

// Contains adds col @> doc.
func (j *JSONB) Contains(col, doc any) *JSONB { return j.add("contains", col, doc) }

// ContainedBy adds col <@ doc.
func (j *JSONB) ContainedBy(col, doc any) *JSONB { return j.add("containedBy", col, doc) }

// HasKey adds col ? key.
func (j *JSONB) HasKey(col any, key string) *JSONB { return j.add("hasKey", col, key) }

// HasAnyKeys adds col ?| array[keys].
func (j *JSONB) HasAnyKeys(col any, keys ...string) *JSONB {
	return j.add("hasAnyKeys", col, anys(keys)...)
}

// HasAllKeys adds col ?& array[keys].
func (j *JSONB) HasAllKeys(col any, keys ...string) *JSONB {
	return j.add("hasAllKeys", col, anys(keys)...)
}

// FieldEquals compares the text of a top-level key: col ->> key = v.
func (j *JSONB) FieldEquals(col any, key string, v any) *JSONB {
	return j.add("fieldEquals", col, key, v)
}

// PathEquals compares the text at a nested path: col #>> '{a,b}' = v.
// Keys are taken verbatim and may contain any character.
func (j *JSONB) PathEquals(col any, path []string, v any) *JSONB {
	return j.add("pathEquals", col, slices.Clone(path), v)
}

// PathExists adds col @? jsonpath.
func (j *JSONB) PathExists(col any, jsonpath string) *JSONB {
	return j.add("pathExists", col, jsonpath)
}

// PathMatch adds col @@ jsonpath.
func (j *JSONB) PathMatch(col any, jsonpath string) *JSONB {
	return j.add("pathMatch", col, jsonpath)
}

// IsObject checks that the document is a JSON object.
func (j *JSONB) IsObject(col any) *JSONB { return j.add("isObject", col) }

// IsArray checks that the document is a JSON array.
func (j *JSONB) IsArray(col any) *JSONB { return j.add("isArray", col) }

// Array builds predicates over array columns.
type Array struct{ c *Collector }

func (a *Array) add(method string, col any, args ...any) *Array {
	a.c.add(FamilyArray+"_"+method, col, args...)
	return a
}

// Contains adds col @> ARRAY[values].
func (a *Array) Contains(col any, values ...any) *Array { return a.add("contains", col, values...) }

// ContainedBy adds col <@ ARRAY[values].
func (a *Array) ContainedBy(col any, values ...any) *Array {
	return a.add("containedBy", col, values...)
}

// Overlaps adds col && ARRAY[values].
func (a *Array) Overlaps(col any, values ...any) *Array { return a.add("overlaps", col, values...) }

// Any adds v = ANY(col).
func (a *Array) Any(col, v any) *Array { return a.add("any", col, v) }

// All adds v = ALL(col).
func (a *Array) All(col, v any) *Array { return a.add("all", col, v) }

// Length adds cardinality(col) = n.
func (a *Array) Length(col any, n int) *Array { return a.add("length", col, n) }

// IsEmpty adds cardinality(col) = 0.
func (a *Array) IsEmpty(col any) *Array { return a.add("isEmpty", col) }

// IsNotEmpty adds cardinality(col) > 0.
func (a *Array) IsNotEmpty(col any) *Array { return a.add("isNotEmpty", col) }

// SearchMode selects the query parser of a full-text match.
type SearchMode string

// Search modes. On MySQL, raw queries use BOOLEAN MODE and the others
// NATURAL LANGUAGE MODE.
const (
	SearchPlain     SearchMode = "plain"
	SearchPhrase    SearchMode = "phrase"
	SearchWebsearch SearchMode = "websearch"
	SearchRaw       SearchMode = "raw"
)

// SearchOptions configures a full-text match.
type SearchOptions struct {
	Config string // text search configuration, e.g. english.
	Mode   SearchMode
	Vector bool // the column already holds a tsvector.
}

// Fulltext builds full-text search predicates.
type Fulltext struct{ c *Collector }

func (ft *Fulltext) add(method string, col any, args ...any) *Fulltext {
	ft.c.add(FamilyFulltext+"_"+method, col, args...)
	return ft
}

// Match adds a full-text match of query over col.
//
//	c.Fulltext().Match("body", "fast cars", sqlcond.SearchOptions{Config: "english", Mode: sqlcond.SearchWebsearch})
//	// to_tsvector('english', "body") @@ websearch_to_tsquery('english', 'fast cars')
func (ft *Fulltext) Match(col any, query string, opts ...SearchOptions) *Fulltext {
	return ft.add("match", col, query, searchOptions(opts))
}

// NotMatch adds a negated full-text match.
func (ft *Fulltext) NotMatch(col any, query string, opts ...SearchOptions) *Fulltext {
	return ft.add("notMatch", col, query, searchOptions(opts))
}

// RankAbove keeps rows whose ts_rank against query exceeds threshold.
func (ft *Fulltext) RankAbove(col any, query string, threshold float64, opts ...SearchOptions) *Fulltext {
	return ft.add("rankAbove", col, query, searchOptions(opts), threshold)
}

func searchOptions(opts []SearchOptions) SearchOptions {
	o := SearchOptions{Mode: SearchPlain}
	if len(opts) > 0 {
		o = opts[0]
		if o.Mode == "" {
			o.Mode = SearchPlain
		}
	}
	return o
}

// Range builds predicates over range and multirange columns. Range values
// are range literals such as '[1,10)' or element values.
type Range struct{ c *Collector }

func (r *Range) add(method string, col any, args ...any) *Range {
	r.c.add(FamilyRange+"_"+method, col, args...)
	return r
}

// Contains adds col @> v, where v is an element or a range.
func (r *Range) Contains(col, v any) *Range { return r.add("contains", col, v) }

// ContainedBy adds col <@ v.
func (r *Range) ContainedBy(col, v any) *Range { return r.add("containedBy", col, v) }

// Overlaps adds col && v.
func (r *Range) Overlaps(col, v any) *Range { return r.add("overlaps", col, v) }

// StrictlyLeft adds col << v.
func (r *Range) StrictlyLeft(col, v any) *Range { return r.add("strictlyLeft", col, v) }

// StrictlyRight adds col >> v.
func (r *Range) StrictlyRight(col, v any) *Range { return r.add("strictlyRight", col, v) }

// NotExtendRight adds col &< v.
func (r *Range) NotExtendRight(col, v any) *Range { return r.add("notExtendRight", col, v) }

// NotExtendLeft adds col &> v.
func (r *Range) NotExtendLeft(col, v any) *Range { return r.add("notExtendLeft", col, v) }

// Adjacent adds col -|- v.
func (r *Range) Adjacent(col, v any) *Range { return r.add("adjacent", col, v) }

// IsEmpty adds isempty(col).
func (r *Range) IsEmpty(col any) *Range { return r.add("isEmpty", col) }

// Geometric builds predicates over the built-in geometric types. Values are
// geometric literals such as '(1,2)' or expressions.
type Geometric struct{ c *Collector }

func (g *Geometric) add(method string, col any, args ...any) *Geometric {
	g.c.add(FamilyGeometric+"_"+method, col, args...)
	return g
}

// Contains adds col @> v.
func (g *Geometric) Contains(col, v any) *Geometric { return g.add("contains", col, v) }

// ContainedBy adds col <@ v.
func (g *Geometric) ContainedBy(col, v any) *Geometric { return g.add("containedBy", col, v) }

// Overlaps adds col && v.
func (g *Geometric) Overlaps(col, v any) *Geometric { return g.add("overlaps", col, v) }

// Intersects adds col ?# v.
func (g *Geometric) Intersects(col, v any) *Geometric { return g.add("intersects", col, v) }

// Left adds col << v.
func (g *Geometric) Left(col, v any) *Geometric { return g.add("left", col, v) }

// Right adds col >> v.
func (g *Geometric) Right(col, v any) *Geometric { return g.add("right", col, v) }

// Above adds col |>> v.
func (g *Geometric) Above(col, v any) *Geometric { return g.add("above", col, v) }

// Below adds col <<| v.
func (g *Geometric) Below(col, v any) *Geometric { return g.add("below", col, v) }

// WithinDistance adds col <-> v <= distance.
func (g *Geometric) WithinDistance(col, v any, distance float64) *Geometric {
	return g.add("withinDistance", col, v, distance)
}

// Network builds predicates over inet and cidr columns.
type Network struct{ c *Collector }

func (n *Network) add(method string, col any, args ...any) *Network {
	n.c.add(FamilyNetwork+"_"+method, col, args...)
	return n
}

// ContainedBy adds col << cidr.
func (n *Network) ContainedBy(col any, cidr string) *Network { return n.add("containedBy", col, cidr) }

// ContainedByOrEqual adds col <<= cidr.
func (n *Network) ContainedByOrEqual(col any, cidr string) *Network {
	return n.add("containedByOrEqual", col, cidr)
}

// Contains adds col >> addr.
func (n *Network) Contains(col any, addr string) *Network { return n.add("contains", col, addr) }

// ContainsOrEqual adds col >>= addr.
func (n *Network) ContainsOrEqual(col any, addr string) *Network {
	return n.add("containsOrEqual", col, addr)
}

// Overlaps adds col && cidr.
func (n *Network) Overlaps(col any, cidr string) *Network { return n.add("overlaps", col, cidr) }

// Family adds family(col) = version.
func (n *Network) Family(col any, version int) *Network { return n.add("family", col, version) }

// IsPrivate keeps RFC 1918 and unique local addresses.
func (n *Network) IsPrivate(col any) *Network { return n.add("isPrivate", col) }

// PostGIS builds spatial predicates. Geometry arguments are expressions
// such as MakePoint or GeomFromText.
type PostGIS struct{ c *Collector }

func (p *PostGIS) add(method string, col any, args ...any) *PostGIS {
	p.c.add(FamilyPostGIS+"_"+method, col, args...)
	return p
}

// Intersects adds ST_Intersects(col, geom).
func (p *PostGIS) Intersects(col, geom any) *PostGIS { return p.add("intersects", col, geom) }

// Contains adds ST_Contains(col, geom).
func (p *PostGIS) Contains(col, geom any) *PostGIS { return p.add("contains", col, geom) }

// Within adds ST_Within(col, geom).
func (p *PostGIS) Within(col, geom any) *PostGIS { return p.add("within", col, geom) }

// Covers adds ST_Covers(col, geom).
func (p *PostGIS) Covers(col, geom any) *PostGIS { return p.add("covers", col, geom) }

// Touches adds ST_Touches(col, geom).
func (p *PostGIS) Touches(col, geom any) *PostGIS { return p.add("touches", col, geom) }

// Crosses adds ST_Crosses(col, geom).
func (p *PostGIS) Crosses(col, geom any) *PostGIS { return p.add("crosses", col, geom) }

// Disjoint adds ST_Disjoint(col, geom).
func (p *PostGIS) Disjoint(col, geom any) *PostGIS { return p.add("disjoint", col, geom) }

// Equals adds ST_Equals(col, geom).
func (p *PostGIS) Equals(col, geom any) *PostGIS { return p.add("equals", col, geom) }

// DWithin adds ST_DWithin(col, geom, distance).
func (p *PostGIS) DWithin(col, geom any, distance float64) *PostGIS {
	return p.add("dwithin", col, geom, distance)
}

// BBoxIntersects adds col && geom.
func (p *PostGIS) BBoxIntersects(col, geom any) *PostGIS {
	return p.add("bboxIntersects", col, geom)
}

func anys[T any](vs []T) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}
