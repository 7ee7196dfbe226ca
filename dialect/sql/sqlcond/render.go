package sqlcond

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
)

// Build renders the predicates of c for the named dialect, joined with
// AND. An empty collector renders as the empty string.
func Build(c *Collector, dialectName string) (string, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return "", dbkit.NewInvalidArgumentError("sqlcond.Build", dialectName, "unknown dialect")
	}
	if c == nil || c.Empty() {
		return "", nil
	}
	return newRenderer(sql.NewFormatter(info.Name)).list(c.nodes, " AND ")
}

// familyRenderer renders the nodes of one method family. method is the
// node method without the family prefix.
type familyRenderer func(r *renderer, method string, n *Node) (string, error)

var families = map[string]familyRenderer{
	FamilyJSONB:     (*renderer).jsonb,
	FamilyArray:     (*renderer).array,
	FamilyFulltext:  (*renderer).fulltext,
	FamilyRange:     (*renderer).rangeOp,
	FamilyGeometric: (*renderer).geometric,
	FamilyNetwork:   (*renderer).network,
	FamilyPostGIS:   (*renderer).postgis,
}

type renderer struct {
	f    *sql.Formatter
	info dialect.Info
}

func newRenderer(f *sql.Formatter) *renderer {
	return &renderer{f: f, info: f.Info()}
}

func (r *renderer) fail(n *Node, format string, args ...any) error {
	return dbkit.InvalidArgumentf("sqlcond.Build", n.Method, format, args...)
}

func (r *renderer) unsupported(n *Node) error {
	return r.fail(n, "%s is not supported by %s", n.Method, r.info.Name)
}

// list renders nodes joined by sep. Empty groups are skipped.
func (r *renderer) list(nodes []*Node, sep string) (string, error) {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		s, err := r.node(n)
		if err != nil {
			return "", err
		}
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep), nil
}

// node dispatches on the method prefix: family methods go to the family
// renderer, everything else to the base renderer.
func (r *renderer) node(n *Node) (string, error) {
	if err := operandErr(append([]any{n.Column}, n.Args...)); err != nil {
		return "", err
	}
	if family, method, ok := strings.Cut(n.Method, "_"); ok {
		fr, ok := families[family]
		if !ok {
			return "", r.fail(n, "unknown method family %q", family)
		}
		return fr(r, method, n)
	}
	return r.base(n)
}

// operand renders a column operand: "table.column" strings are qualified,
// other strings are quoted as one identifier and renderers are emitted
// as-is.
func (r *renderer) operand(col any) (string, error) {
	switch c := col.(type) {
	case string:
		if c == "" {
			return "", dbkit.NewInvalidArgumentError("sqlcond.Build", c, "empty column name")
		}
		if table, column, ok := strings.Cut(c, "."); ok {
			return r.f.QualifiedIdent(table, column), nil
		}
		return r.f.Ident(c), nil
	case sql.Renderer:
		return c.RenderSQL(r.f), nil
	default:
		return "", dbkit.InvalidArgumentf("sqlcond.Build", fmt.Sprint(col), "unsupported column operand %T", col)
	}
}

func (r *renderer) value(v any) string { return r.f.Literal(v) }

func (r *renderer) args(n *Node, want int) error {
	if len(n.Args) < want {
		return r.fail(n, "expected %d arguments, got %d", want, len(n.Args))
	}
	return nil
}

// isList reports whether v is a slice or array other than []byte.
func isList(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func expand(v any) []any {
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

var comparisons = map[string]string{
	MethodLessThan:           "<",
	MethodLessThanEqual:      "<=",
	MethodGreaterThan:        ">",
	MethodGreaterThanEqual:   ">=",
	MethodColumnEqual:        "=",
	MethodColumnNotEqual:     "<>",
	MethodColumnLessThan:     "<",
	MethodColumnLessEqual:    "<=",
	MethodColumnGreaterThan:  ">",
	MethodColumnGreaterEqual: ">=",
}

func (r *renderer) base(n *Node) (string, error) {
	switch n.Method {
	case MethodOr:
		return r.group(n.Children, " OR ", "(", ")")
	case MethodAnd:
		return r.group(n.Children, " AND ", "(", ")")
	case MethodNot:
		return r.group(n.Children, " AND ", "NOT (", ")")
	case MethodExists, MethodNotExists:
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		sub, err := r.subquery(n.Args[0])
		if err != nil {
			return "", err
		}
		if n.Method == MethodNotExists {
			return "NOT EXISTS (" + sub + ")", nil
		}
		return "EXISTS (" + sub + ")", nil
	case MethodOverlaps:
		return r.overlaps(n)
	case MethodExpr:
		return r.operand(n.Column)
	}
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	switch n.Method {
	case MethodEqual, MethodNotEqual:
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		v, eq := n.Args[0], n.Method == MethodEqual
		switch {
		case v == nil && eq:
			return col + " IS NULL", nil
		case v == nil:
			return col + " IS NOT NULL", nil
		case isList(v):
			return r.in(col, expand(v), !eq)
		case eq:
			return col + " = " + r.value(v), nil
		default:
			return col + " <> " + r.value(v), nil
		}
	case MethodLessThan, MethodLessThanEqual, MethodGreaterThan, MethodGreaterThanEqual:
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		return col + " " + comparisons[n.Method] + " " + r.value(n.Args[0]), nil
	case MethodColumnEqual, MethodColumnNotEqual, MethodColumnLessThan, MethodColumnLessEqual,
		MethodColumnGreaterThan, MethodColumnGreaterEqual:
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		right, err := r.operand(n.Args[0])
		if err != nil {
			return "", err
		}
		return col + " " + comparisons[n.Method] + " " + right, nil
	case MethodIsNull:
		return col + " IS NULL", nil
	case MethodIsNotNull:
		return col + " IS NOT NULL", nil
	case MethodIsTrue:
		return col + " IS TRUE", nil
	case MethodIsFalse:
		return col + " IS FALSE", nil
	case MethodBetween, MethodNotBetween:
		if err := r.args(n, 2); err != nil {
			return "", err
		}
		op := " BETWEEN "
		if n.Method == MethodNotBetween {
			op = " NOT BETWEEN "
		}
		return col + op + r.value(n.Args[0]) + " AND " + r.value(n.Args[1]), nil
	case MethodIn, MethodNotIn:
		values := n.Args
		if len(values) == 1 && isList(values[0]) {
			values = expand(values[0])
		}
		return r.in(col, values, n.Method == MethodNotIn)
	case MethodLike, MethodNotLike, MethodILike, MethodNotILike:
		return r.like(n, col)
	case MethodRegex, MethodNotRegex, MethodIRegex, MethodNotIRegex:
		return r.regex(n, col)
	case MethodSimilarTo, MethodNotSimilarTo:
		if !r.info.IsPostgres() {
			return "", r.unsupported(n)
		}
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		op := " SIMILAR TO "
		if n.Method == MethodNotSimilarTo {
			op = " NOT SIMILAR TO "
		}
		return col + op + r.value(n.Args[0]), nil
	case MethodDistinctFrom, MethodNotDistinctFrom:
		return r.distinct(n, col)
	case MethodSearch, MethodNotSearch:
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		query, _ := n.Args[0].(string)
		s, err := r.match(n, col, query, SearchOptions{Mode: SearchPlain})
		if err != nil || n.Method == MethodSearch {
			return s, err
		}
		return "NOT (" + s + ")", nil
	}
	return "", r.fail(n, "unknown method")
}

// group renders a combinator. A group with one child keeps its
// parentheses so that it composes unambiguously with AND.
func (r *renderer) group(children []*Node, sep, open, closing string) (string, error) {
	s, err := r.list(children, sep)
	if err != nil || s == "" {
		return "", err
	}
	return open + s + closing, nil
}

func (r *renderer) subquery(v any) (string, error) {
	switch q := v.(type) {
	case string:
		return q, nil
	case sql.Renderer:
		return q.RenderSQL(r.f), nil
	}
	return "", dbkit.InvalidArgumentf("sqlcond.Build", fmt.Sprint(v), "unsupported subquery %T", v)
}

// in renders a value list. A renderer value such as Raw("SELECT ...")
// is emitted verbatim, which makes it a subquery.
func (r *renderer) in(col string, values []any, negate bool) (string, error) {
	if len(values) == 0 {
		if negate {
			return "1 = 1", nil
		}
		return "1 = 0", nil
	}
	op := " IN ("
	if negate {
		op = " NOT IN ("
	}
	lits := make([]string, len(values))
	for i, v := range values {
		lits[i] = r.value(v)
	}
	return col + op + strings.Join(lits, ", ") + ")", nil
}

func (r *renderer) like(n *Node, col string) (string, error) {
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	pattern := r.value(n.Args[0])
	negate := n.Method == MethodNotLike || n.Method == MethodNotILike
	fold := n.Method == MethodILike || n.Method == MethodNotILike
	not := ""
	if negate {
		not = "NOT "
	}
	switch {
	case !fold:
		return col + " " + not + "LIKE " + pattern, nil
	case r.info.IsPostgres():
		return col + " " + not + "ILIKE " + pattern, nil
	default:
		return "LOWER(" + col + ") " + not + "LIKE LOWER(" + pattern + ")", nil
	}
}

func (r *renderer) regex(n *Node, col string) (string, error) {
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	pattern := r.value(n.Args[0])
	negate := n.Method == MethodNotRegex || n.Method == MethodNotIRegex
	fold := n.Method == MethodIRegex || n.Method == MethodNotIRegex
	switch {
	case r.info.IsPostgres():
		op := "~"
		if fold {
			op += "*"
		}
		if negate {
			op = "!" + op
		}
		return col + " " + op + " " + pattern, nil
	case r.info.IsMySQL():
		flag := "'c'"
		if fold {
			flag = "'i'"
		}
		s := "REGEXP_LIKE(" + col + ", " + pattern + ", " + flag + ")"
		if negate {
			s = "NOT " + s
		}
		return s, nil
	default:
		if fold {
			return "", r.unsupported(n)
		}
		if negate {
			return col + " NOT REGEXP " + pattern, nil
		}
		return col + " REGEXP " + pattern, nil
	}
}

func (r *renderer) distinct(n *Node, col string) (string, error) {
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	v := r.value(n.Args[0])
	negate := n.Method == MethodNotDistinctFrom
	switch {
	case r.info.IsMySQL() && negate:
		return col + " <=> " + v, nil
	case r.info.IsMySQL():
		return "NOT (" + col + " <=> " + v + ")", nil
	case r.info.IsSQLite() && negate:
		return col + " IS " + v, nil
	case r.info.IsSQLite():
		return col + " IS NOT " + v, nil
	case negate:
		return col + " IS NOT DISTINCT FROM " + v, nil
	default:
		return col + " IS DISTINCT FROM " + v, nil
	}
}

func (r *renderer) overlaps(n *Node) (string, error) {
	if !r.info.IsPostgres() {
		return "", r.unsupported(n)
	}
	if err := r.args(n, 3); err != nil {
		return "", err
	}
	start, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	end, err := r.operand(n.Args[0])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s, %s) OVERLAPS (%s, %s)", start, end, r.value(n.Args[1]), r.value(n.Args[2])), nil
}

// jsonDoc renders a JSON document: strings are taken as JSON text and
// other values are marshaled.
func (r *renderer) jsonDoc(v any) string {
	switch d := v.(type) {
	case string:
		return r.value(d)
	case sql.Renderer:
		return d.RenderSQL(r.f)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return r.value(fmt.Sprint(v))
	}
	return r.value(string(b))
}

var plainKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// jsonPath converts keys into a MySQL/SQLite JSON path: $.a.b[0]. Keys
// that are not identifiers are quoted: $."a.b".
func jsonPath(keys ...string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, k := range keys {
		switch {
		case isIndex(k):
			b.WriteString("[" + k + "]")
		case plainKey.MatchString(k):
			b.WriteString("." + k)
		default:
			b.WriteString(`."` + jsonKeyEscaper.Replace(k) + `"`)
		}
	}
	return b.String()
}

var jsonKeyEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func isIndex(k string) bool {
	n, err := strconv.Atoi(k)
	return err == nil && n >= 0 && strconv.Itoa(n) == k
}

// textArray renders keys as a Postgres text array literal body: {a,b}.
// Elements with delimiters, quotes, blanks or the NULL keyword are quoted.
func textArray(keys []string) string {
	elems := make([]string, len(keys))
	for i, k := range keys {
		if k == "" || strings.EqualFold(k, "null") || strings.ContainsAny(k, "{},\"\\ \t\n\r") {
			k = `"` + jsonKeyEscaper.Replace(k) + `"`
		}
		elems[i] = k
	}
	return "{" + strings.Join(elems, ",") + "}"
}

// textValue renders v for comparison with extracted JSON text.
func (r *renderer) textValue(v any) string {
	switch v.(type) {
	case string, sql.Renderer:
		return r.value(v)
	}
	return r.value(fmt.Sprint(v))
}

func (r *renderer) jsonb(method string, n *Node) (string, error) {
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	pg, my, lite := r.info.IsPostgres(), r.info.IsMySQL(), r.info.IsSQLite()
	keys := func() []string {
		out := make([]string, len(n.Args))
		for i, a := range n.Args {
			out[i] = fmt.Sprint(a)
		}
		return out
	}
	switch method {
	case "contains", "containedBy":
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		doc := r.jsonDoc(n.Args[0])
		switch {
		case pg && method == "contains":
			return col + " @> " + doc + "::jsonb", nil
		case pg:
			return col + " <@ " + doc + "::jsonb", nil
		case my && method == "contains":
			return "JSON_CONTAINS(" + col + ", " + doc + ")", nil
		case my:
			return "JSON_CONTAINS(" + doc + ", " + col + ")", nil
		}
	case "hasKey", "hasAnyKeys", "hasAllKeys":
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		ks := keys()
		all := method == "hasAllKeys"
		switch {
		case pg && method == "hasKey":
			return col + " ? " + r.value(ks[0]), nil
		case pg:
			op := " ?| "
			if all {
				op = " ?& "
			}
			lits := make([]string, len(ks))
			for i, k := range ks {
				lits[i] = r.value(k)
			}
			return col + op + "array[" + strings.Join(lits, ", ") + "]", nil
		case my:
			mode := "'one'"
			if all {
				mode = "'all'"
			}
			paths := make([]string, len(ks))
			for i, k := range ks {
				paths[i] = r.value(jsonPath(k))
			}
			return "JSON_CONTAINS_PATH(" + col + ", " + mode + ", " + strings.Join(paths, ", ") + ")", nil
		case lite:
			parts := make([]string, len(ks))
			for i, k := range ks {
				parts[i] = "json_type(" + col + ", " + r.value(jsonPath(k)) + ") IS NOT NULL"
			}
			if len(parts) == 1 {
				return parts[0], nil
			}
			sep := " OR "
			if all {
				sep = " AND "
			}
			return "(" + strings.Join(parts, sep) + ")", nil
		}
	case "fieldEquals", "pathEquals":
		if err := r.args(n, 2); err != nil {
			return "", err
		}
		path := []string{fmt.Sprint(n.Args[0])}
		if method == "pathEquals" {
			p, ok := n.Args[0].([]string)
			if !ok || len(p) == 0 {
				return "", r.fail(n, "path must be a non-empty []string, got %T", n.Args[0])
			}
			path = p
		}
		if n.Args[1] == nil {
			return "", r.fail(n, "use IsNull on an extracted value to compare with NULL")
		}
		switch {
		case pg && method == "fieldEquals":
			return col + " ->> " + r.value(path[0]) + " = " + r.textValue(n.Args[1]), nil
		case pg:
			return col + " #>> " + r.value(textArray(path)) + " = " + r.textValue(n.Args[1]), nil
		case my:
			return col + " ->> " + r.value(jsonPath(path...)) + " = " + r.textValue(n.Args[1]), nil
		case lite:
			return "json_extract(" + col + ", " + r.value(jsonPath(path...)) + ") = " + r.value(n.Args[1]), nil
		}
	case "pathExists", "pathMatch":
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		if pg {
			op := " @? "
			if method == "pathMatch" {
				op = " @@ "
			}
			return col + op + r.value(n.Args[0]), nil
		}
	case "isObject", "isArray":
		kind := strings.ToLower(strings.TrimPrefix(method, "is"))
		switch {
		case pg:
			return "jsonb_typeof(" + col + ") = " + r.value(kind), nil
		case my:
			return "JSON_TYPE(" + col + ") = " + r.value(strings.ToUpper(kind)), nil
		case lite:
			return "json_type(" + col + ") = " + r.value(kind), nil
		}
	default:
		return "", r.fail(n, "unknown jsonb method")
	}
	return "", r.unsupported(n)
}

func (r *renderer) array(method string, n *Node) (string, error) {
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	pg, my, lite := r.info.IsPostgres(), r.info.IsMySQL(), r.info.IsSQLite()
	switch method {
	case "contains", "containedBy", "overlaps":
		if len(n.Args) == 0 {
			return "", r.fail(n, "at least one value is required")
		}
		values := n.Args
		if len(values) == 1 && isList(values[0]) {
			values = expand(values[0])
		}
		switch {
		case pg:
			op := map[string]string{"contains": "@>", "containedBy": "<@", "overlaps": "&&"}[method]
			return col + " " + op + " " + r.value(values), nil
		case my:
			doc := r.jsonDoc(values)
			switch method {
			case "contains":
				return "JSON_CONTAINS(" + col + ", " + doc + ")", nil
			case "containedBy":
				return "JSON_CONTAINS(" + doc + ", " + col + ")", nil
			default:
				return "JSON_OVERLAPS(" + col + ", " + doc + ")", nil
			}
		}
	case "any", "all":
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		v := r.value(n.Args[0])
		switch {
		case pg:
			return v + " = " + strings.ToUpper(method) + "(" + col + ")", nil
		case my && method == "any":
			return v + " MEMBER OF(" + col + ")", nil
		case lite && method == "any":
			return "EXISTS (SELECT 1 FROM json_each(" + col + ") WHERE value = " + v + ")", nil
		}
	case "length", "isEmpty", "isNotEmpty":
		var size string
		switch {
		case pg:
			size = "cardinality(" + col + ")"
		case my:
			size = "JSON_LENGTH(" + col + ")"
		default:
			size = "json_array_length(" + col + ")"
		}
		switch method {
		case "isEmpty":
			return size + " = 0", nil
		case "isNotEmpty":
			return size + " > 0", nil
		}
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		return size + " = " + r.value(n.Args[0]), nil
	default:
		return "", r.fail(n, "unknown array method")
	}
	return "", r.unsupported(n)
}

var tsqueryFuncs = map[SearchMode]string{
	SearchPlain:     "plainto_tsquery",
	SearchPhrase:    "phraseto_tsquery",
	SearchWebsearch: "websearch_to_tsquery",
	SearchRaw:       "to_tsquery",
}

func (r *renderer) fulltext(method string, n *Node) (string, error) {
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	if err := r.args(n, 2); err != nil {
		return "", err
	}
	query, _ := n.Args[0].(string)
	opts, _ := n.Args[1].(SearchOptions)
	switch method {
	case "match":
		return r.match(n, col, query, opts)
	case "notMatch":
		s, err := r.match(n, col, query, opts)
		if err != nil {
			return "", err
		}
		return "NOT (" + s + ")", nil
	case "rankAbove":
		if err := r.args(n, 3); err != nil {
			return "", err
		}
		threshold := r.value(n.Args[2])
		switch {
		case r.info.IsPostgres():
			vector, tsquery, err := r.tsParts(col, query, opts)
			if err != nil {
				return "", err
			}
			return "ts_rank(" + vector + ", " + tsquery + ") > " + threshold, nil
		case r.info.IsMySQL():
			return r.mysqlMatch(col, query, opts) + " > " + threshold, nil
		}
		return "", r.unsupported(n)
	}
	return "", r.fail(n, "unknown fulltext method")
}

func (r *renderer) tsParts(col, query string, opts SearchOptions) (string, string, error) {
	fn, ok := tsqueryFuncs[opts.Mode]
	if !ok {
		return "", "", dbkit.InvalidArgumentf("sqlcond.Build", string(opts.Mode), "unknown search mode")
	}
	cfg := ""
	if opts.Config != "" {
		cfg = r.value(opts.Config) + ", "
	}
	vector := col
	if !opts.Vector {
		vector = "to_tsvector(" + cfg + col + ")"
	}
	return vector, fn + "(" + cfg + r.value(query) + ")", nil
}

func (r *renderer) mysqlMatch(col, query string, opts SearchOptions) string {
	mode := "IN NATURAL LANGUAGE MODE"
	if opts.Mode == SearchRaw {
		mode = "IN BOOLEAN MODE"
	}
	return "MATCH (" + col + ") AGAINST (" + r.value(query) + " " + mode + ")"
}

func (r *renderer) match(n *Node, col, query string, opts SearchOptions) (string, error) {
	switch {
	case r.info.IsPostgres():
		vector, tsquery, err := r.tsParts(col, query, opts)
		if err != nil {
			return "", err
		}
		return vector + " @@ " + tsquery, nil
	case r.info.IsMySQL():
		return r.mysqlMatch(col, query, opts), nil
	case r.info.IsSQLite():
		return col + " MATCH " + r.value(query), nil
	}
	return "", r.unsupported(n)
}

var rangeOps = map[string]string{
	"contains":       "@>",
	"containedBy":    "<@",
	"overlaps":       "&&",
	"strictlyLeft":   "<<",
	"strictlyRight":  ">>",
	"notExtendRight": "&<",
	"notExtendLeft":  "&>",
	"adjacent":       "-|-",
}

func (r *renderer) rangeOp(method string, n *Node) (string, error) {
	if !r.info.IsPostgres() {
		return "", r.unsupported(n)
	}
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	if method == "isEmpty" {
		return "isempty(" + col + ")", nil
	}
	op, ok := rangeOps[method]
	if !ok {
		return "", r.fail(n, "unknown range method")
	}
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	return col + " " + op + " " + r.value(n.Args[0]), nil
}

var geometricOps = map[string]string{
	"contains":    "@>",
	"containedBy": "<@",
	"overlaps":    "&&",
	"intersects":  "?#",
	"left":        "<<",
	"right":       ">>",
	"above":       "|>>",
	"below":       "<<|",
}

func (r *renderer) geometric(method string, n *Node) (string, error) {
	if !r.info.IsPostgres() {
		return "", r.unsupported(n)
	}
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	if method == "withinDistance" {
		if err := r.args(n, 2); err != nil {
			return "", err
		}
		return col + " <-> " + r.value(n.Args[0]) + " <= " + r.value(n.Args[1]), nil
	}
	op, ok := geometricOps[method]
	if !ok {
		return "", r.fail(n, "unknown geometric method")
	}
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	return col + " " + op + " " + r.value(n.Args[0]), nil
}

var networkOps = map[string]string{
	"containedBy":        "<<",
	"containedByOrEqual": "<<=",
	"contains":           ">>",
	"containsOrEqual":    ">>=",
	"overlaps":           "&&",
}

var privateNetworks = []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "fc00::/7"}

func (r *renderer) network(method string, n *Node) (string, error) {
	if !r.info.IsPostgres() {
		return "", r.unsupported(n)
	}
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	switch method {
	case "isPrivate":
		parts := make([]string, len(privateNetworks))
		for i, cidr := range privateNetworks {
			parts[i] = col + " << " + r.value(cidr)
		}
		return "(" + strings.Join(parts, " OR ") + ")", nil
	case "family":
		if err := r.args(n, 1); err != nil {
			return "", err
		}
		return "family(" + col + ") = " + r.value(n.Args[0]), nil
	}
	op, ok := networkOps[method]
	if !ok {
		return "", r.fail(n, "unknown network method")
	}
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	return col + " " + op + " " + r.value(n.Args[0]), nil
}

var postgisFuncs = map[string]string{
	"intersects": "ST_Intersects",
	"contains":   "ST_Contains",
	"within":     "ST_Within",
	"covers":     "ST_Covers",
	"touches":    "ST_Touches",
	"crosses":    "ST_Crosses",
	"disjoint":   "ST_Disjoint",
	"equals":     "ST_Equals",
}

func (r *renderer) postgis(method string, n *Node) (string, error) {
	pg, my := r.info.IsPostgres(), r.info.IsMySQL()
	if !pg && !my {
		return "", r.unsupported(n)
	}
	col, err := r.operand(n.Column)
	if err != nil {
		return "", err
	}
	if err := r.args(n, 1); err != nil {
		return "", err
	}
	geom := r.value(n.Args[0])
	switch method {
	case "dwithin":
		if err := r.args(n, 2); err != nil {
			return "", err
		}
		if my {
			return "ST_Distance(" + col + ", " + geom + ") <= " + r.value(n.Args[1]), nil
		}
		return "ST_DWithin(" + col + ", " + geom + ", " + r.value(n.Args[1]) + ")", nil
	case "bboxIntersects":
		if my {
			return "MBRIntersects(" + col + ", " + geom + ")", nil
		}
		return col + " && " + geom, nil
	case "covers":
		if my {
			return "", r.unsupported(n)
		}
	}
	fn, ok := postgisFuncs[method]
	if !ok {
		return "", r.fail(n, "unknown postgis method")
	}
	return fn + "(" + col + ", " + geom + ")", nil
}
