package sqlcond

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect/sql"
)

// Expr is a scalar SQL expression. Methods compose left to right, so
//
//	sqlcond.Col("name").Lower().Concat("x")
//
// renders as CONCAT(LOWER("name"), 'x'). Arguments that are not
// renderers are formatted as literals. An expression built from invalid
// input renders as NULL and reports the problem through Err; Build fails
// with that error.
type Expr struct {
	render func(*sql.Formatter) string
	err    error
}

// Err returns the error of an invalid expression or of one of its
// operands.
func (e Expr) Err() error { return e.err }

// RenderSQL implements sql.Renderer.
func (e Expr) RenderSQL(f *sql.Formatter) string {
	if e.render == nil {
		return "NULL"
	}
	return e.render(f)
}

// ToSQL renders e for the named dialect.
func (e Expr) ToSQL(dialectName string) string {
	return e.RenderSQL(sql.NewFormatter(dialectName))
}

// newExpr returns an expression that inherits the first error of its
// operands.
func newExpr(fn func(*sql.Formatter) string, operands ...any) Expr {
	return Expr{render: fn, err: operandErr(operands)}
}

func invalid(err error) Expr { return Expr{err: err} }

func operandErr(operands []any) error {
	for _, v := range operands {
		if e, ok := v.(interface{ Err() error }); ok {
			if err := e.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Col references a column. "table.column" is rendered qualified.
func Col(name string) Expr {
	return newExpr(func(f *sql.Formatter) string {
		if table, column, ok := strings.Cut(name, "."); ok {
			return f.QualifiedIdent(table, column)
		}
		return f.Ident(name)
	})
}

// Val is a literal value.
func Val(v any) Expr {
	return newExpr(func(f *sql.Formatter) string { return f.Literal(v) }, v)
}

// Raw is an SQL fragment emitted verbatim.
func Raw(s string) Expr {
	return newExpr(func(*sql.Formatter) string { return s })
}

// Fn calls the SQL function name with args.
func Fn(name string, args ...any) Expr {
	return newExpr(func(f *sql.Formatter) string {
		return name + "(" + join(f, args, ", ") + ")"
	}, args...)
}

// Now is now().
func Now() Expr { return Raw("now()") }

// CurrentTimestamp is CURRENT_TIMESTAMP.
func CurrentTimestamp() Expr { return Raw("CURRENT_TIMESTAMP") }

// GenRandomUUID is gen_random_uuid().
func GenRandomUUID() Expr { return Raw("gen_random_uuid()") }

// Coalesce returns the first non-null argument.
func Coalesce(args ...any) Expr { return Fn("COALESCE", args...) }

// Greatest returns the largest argument.
func Greatest(args ...any) Expr { return Fn("GREATEST", args...) }

// Least returns the smallest argument.
func Least(args ...any) Expr { return Fn("LEAST", args...) }

// Concat concatenates args. SQLite uses the || operator.
func Concat(args ...any) Expr {
	return newExpr(func(f *sql.Formatter) string {
		if f.Info().IsSQLite() {
			return "(" + join(f, args, " || ") + ")"
		}
		return "CONCAT(" + join(f, args, ", ") + ")"
	}, args...)
}

// ConcatWS concatenates args with sep.
func ConcatWS(sep string, args ...any) Expr {
	return Fn("CONCAT_WS", append([]any{sep}, args...)...)
}

func operand(f *sql.Formatter, v any) string {
	if r, ok := v.(sql.Renderer); ok {
		return r.RenderSQL(f)
	}
	return f.Literal(v)
}

func join(f *sql.Formatter, args []any, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = operand(f, a)
	}
	return strings.Join(parts, sep)
}

// call applies fn to the receiver followed by args.
func (e Expr) call(fn string, args ...any) Expr {
	return Fn(fn, append([]any{e}, args...)...)
}

func (e Expr) infix(op string, v any) Expr {
	return newExpr(func(f *sql.Formatter) string {
		return "(" + e.RenderSQL(f) + " " + op + " " + operand(f, v) + ")"
	}, e, v)
}

func (e Expr) postfix(s string) Expr {
	return newExpr(func(f *sql.Formatter) string { return e.RenderSQL(f) + s }, e)
}

// As aliases e in a select list.
func (e Expr) As(alias string) Expr {
	return newExpr(func(f *sql.Formatter) string { return e.RenderSQL(f) + " AS " + f.Ident(alias) }, e)
}

// Lower is LOWER(e).
func (e Expr) Lower() Expr { return e.call("LOWER") }

// Upper is UPPER(e).
func (e Expr) Upper() Expr { return e.call("UPPER") }

// Length is the character length of e.
func (e Expr) Length() Expr {
	return newExpr(func(f *sql.Formatter) string {
		if f.Info().IsMySQL() {
			return "CHAR_LENGTH(" + e.RenderSQL(f) + ")"
		}
		return "LENGTH(" + e.RenderSQL(f) + ")"
	}, e)
}

// Trim is TRIM(e).
func (e Expr) Trim() Expr { return e.call("TRIM") }

// Ltrim is LTRIM(e).
func (e Expr) Ltrim() Expr { return e.call("LTRIM") }

// Rtrim is RTRIM(e).
func (e Expr) Rtrim() Expr { return e.call("RTRIM") }

// Substring extracts length characters starting at the 1-based start.
// A non-positive length extracts to the end.
func (e Expr) Substring(start, length int) Expr {
	return newExpr(func(f *sql.Formatter) string {
		fn := "SUBSTRING"
		if f.Info().IsSQLite() {
			fn = "SUBSTR"
		}
		s := fn + "(" + e.RenderSQL(f) + ", " + strconv.Itoa(start)
		if length > 0 {
			s += ", " + strconv.Itoa(length)
		}
		return s + ")"
	}, e)
}

// Replace substitutes every from in e with to.
func (e Expr) Replace(from, to any) Expr { return e.call("REPLACE", from, to) }

// Left returns the first n characters.
func (e Expr) Left(n int) Expr { return e.call("LEFT", n) }

// Right returns the last n characters.
func (e Expr) Right(n int) Expr { return e.call("RIGHT", n) }

// Reverse is REVERSE(e).
func (e Expr) Reverse() Expr { return e.call("REVERSE") }

// MD5 is md5(e).
func (e Expr) MD5() Expr { return e.call("md5") }

// Concat appends args to e.
func (e Expr) Concat(args ...any) Expr { return Concat(append([]any{e}, args...)...) }

// Add is e + v.
func (e Expr) Add(v any) Expr { return e.infix("+", v) }

// Sub is e - v.
func (e Expr) Sub(v any) Expr { return e.infix("-", v) }

// Mul is e * v.
func (e Expr) Mul(v any) Expr { return e.infix("*", v) }

// Div is e / v.
func (e Expr) Div(v any) Expr { return e.infix("/", v) }

// Mod is e % v.
func (e Expr) Mod(v any) Expr { return e.infix("%", v) }

// castType matches type names such as text, numeric(10, 2), integer[]
// or timestamp(3) with time zone.
var castType = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*( [A-Za-z][A-Za-z0-9_]*)*(\(\s*\d+\s*(,\s*\d+\s*)?\))?( [A-Za-z]+)*(\[\])*$`)

// Cast converts e to the SQL type typ. typ must be a type name with
// optional numeric arguments and array suffixes.
func (e Expr) Cast(typ string) Expr {
	typ = strings.TrimSpace(typ)
	if !castType.MatchString(typ) {
		return invalid(dbkit.NewInvalidArgumentError("sqlcond.Cast", typ, "invalid type name"))
	}
	return newExpr(func(f *sql.Formatter) string { return "CAST(" + e.RenderSQL(f) + " AS " + typ + ")" }, e)
}

// Coalesce is COALESCE(e, args...).
func (e Expr) Coalesce(args ...any) Expr { return e.call("COALESCE", args...) }

// NullIf is NULLIF(e, v).
func (e Expr) NullIf(v any) Expr { return e.call("NULLIF", v) }

// Abs is ABS(e).
func (e Expr) Abs() Expr { return e.call("ABS") }

// Round rounds e, optionally to digits decimal places.
func (e Expr) Round(digits ...int) Expr {
	if len(digits) > 0 {
		return e.call("ROUND", digits[0])
	}
	return e.call("ROUND")
}

// Floor is FLOOR(e).
func (e Expr) Floor() Expr { return e.call("FLOOR") }

// Ceil is CEIL(e).
func (e Expr) Ceil() Expr { return e.call("CEIL") }

// Sqrt is SQRT(e).
func (e Expr) Sqrt() Expr { return e.call("SQRT") }

// JSONGet extracts key as JSON: e -> 'key'.
func (e Expr) JSONGet(key string) Expr { return e.extract(false, key) }

// JSONGetText extracts key as text: e ->> 'key'.
func (e Expr) JSONGetText(key string) Expr { return e.extract(true, key) }

// JSONPath extracts a nested value as JSON: e #> '{a,b}'.
func (e Expr) JSONPath(path ...string) Expr { return e.extract(false, path...) }

// JSONPathText extracts a nested value as text: e #>> '{a,b}'.
func (e Expr) JSONPathText(path ...string) Expr { return e.extract(true, path...) }

func (e Expr) extract(text bool, path ...string) Expr {
	return newExpr(func(f *sql.Formatter) string {
		col := e.RenderSQL(f)
		info := f.Info()
		switch {
		case info.IsPostgres() && len(path) == 1:
			op := " -> "
			if text {
				op = " ->> "
			}
			return "(" + col + op + f.Literal(path[0]) + ")"
		case info.IsPostgres():
			op := " #> "
			if text {
				op = " #>> "
			}
			return "(" + col + op + f.Literal(textArray(path)) + ")"
		case info.IsMySQL():
			op := " -> "
			if text {
				op = " ->> "
			}
			return "(" + col + op + f.Literal(jsonPath(path...)) + ")"
		default:
			return "json_extract(" + col + ", " + f.Literal(jsonPath(path...)) + ")"
		}
	}, e)
}

// ArrayLength is array_length(e, dim).
func (e Expr) ArrayLength(dim int) Expr { return e.call("array_length", dim) }

// Cardinality is cardinality(e).
func (e Expr) Cardinality() Expr { return e.call("cardinality") }

// ArrayAppend is array_append(e, v).
func (e Expr) ArrayAppend(v any) Expr { return e.call("array_append", v) }

// ArrayToString joins the elements of e with sep.
func (e Expr) ArrayToString(sep string) Expr { return e.call("array_to_string", sep) }

// ToTsvector converts e to a tsvector, optionally with a text search
// configuration.
func (e Expr) ToTsvector(config ...string) Expr { return e.textSearch("to_tsvector", config) }

// ToTsquery parses e as a tsquery.
func (e Expr) ToTsquery(config ...string) Expr { return e.textSearch("to_tsquery", config) }

// PlainToTsquery parses e as plain text.
func (e Expr) PlainToTsquery(config ...string) Expr {
	return e.textSearch("plainto_tsquery", config)
}

// WebsearchToTsquery parses e with web search syntax.
func (e Expr) WebsearchToTsquery(config ...string) Expr {
	return e.textSearch("websearch_to_tsquery", config)
}

func (e Expr) textSearch(fn string, config []string) Expr {
	if len(config) > 0 && config[0] != "" {
		return Fn(fn, config[0], e)
	}
	return e.call(fn)
}

// TsRank is ts_rank(e, query).
func (e Expr) TsRank(query any) Expr { return e.call("ts_rank", query) }

// TsMatch is e @@ query.
func (e Expr) TsMatch(query any) Expr { return e.infix("@@", query) }

// DateTrunc truncates e to unit, e.g. day.
func (e Expr) DateTrunc(unit string) Expr {
	return newExpr(func(f *sql.Formatter) string {
		return "date_trunc(" + f.Literal(unit) + ", " + e.RenderSQL(f) + ")"
	}, e)
}

// extractFields are the fields accepted by Extract with their SQLite
// strftime format.
var extractFields = map[string]string{
	"year":    "%Y",
	"quarter": "%m",
	"month":   "%m",
	"week":    "%W",
	"day":     "%d",
	"hour":    "%H",
	"minute":  "%M",
	"second":  "%S",
	"dow":     "%w",
	"doy":     "%j",
	"epoch":   "%s",
}

// Extract is EXTRACT(field FROM e). field is one of year, quarter, month,
// week, day, hour, minute, second, dow, doy and epoch. MySQL and SQLite
// use date functions for the fields their EXTRACT lacks.
func (e Expr) Extract(field string) Expr {
	field = strings.ToLower(strings.TrimSpace(field))
	format, ok := extractFields[field]
	if !ok {
		return invalid(dbkit.NewInvalidArgumentError("sqlcond.Extract", field, "unknown EXTRACT field"))
	}
	return newExpr(func(f *sql.Formatter) string {
		x := e.RenderSQL(f)
		switch info := f.Info(); {
		case info.IsSQLite() && field == "quarter":
			return "((CAST(strftime('%m', " + x + ") AS INTEGER) + 2) / 3)"
		case info.IsSQLite():
			return "CAST(strftime('" + format + "', " + x + ") AS INTEGER)"
		case info.IsMySQL() && field == "dow":
			return "(DAYOFWEEK(" + x + ") - 1)"
		case info.IsMySQL() && field == "doy":
			return "DAYOFYEAR(" + x + ")"
		case info.IsMySQL() && field == "epoch":
			return "UNIX_TIMESTAMP(" + x + ")"
		}
		return "EXTRACT(" + strings.ToUpper(field) + " FROM " + x + ")"
	}, e)
}

// Eq is e = v.
func (e Expr) Eq(v any) Expr { return e.infix("=", v) }

// Neq is e <> v.
func (e Expr) Neq(v any) Expr { return e.infix("<>", v) }

// Gt is e > v.
func (e Expr) Gt(v any) Expr { return e.infix(">", v) }

// Gte is e >= v.
func (e Expr) Gte(v any) Expr { return e.infix(">=", v) }

// Lt is e < v.
func (e Expr) Lt(v any) Expr { return e.infix("<", v) }

// Lte is e <= v.
func (e Expr) Lte(v any) Expr { return e.infix("<=", v) }

// Like is e LIKE pattern.
func (e Expr) Like(pattern string) Expr { return e.infix("LIKE", pattern) }

// IsNull is e IS NULL.
func (e Expr) IsNull() Expr { return e.postfix(" IS NULL") }

// IsNotNull is e IS NOT NULL.
func (e Expr) IsNotNull() Expr { return e.postfix(" IS NOT NULL") }

// And is e AND v.
func (e Expr) And(v any) Expr { return e.infix("AND", v) }

// Or is e OR v.
func (e Expr) Or(v any) Expr { return e.infix("OR", v) }

// Not is NOT (e).
func (e Expr) Not() Expr {
	return newExpr(func(f *sql.Formatter) string { return "NOT (" + e.RenderSQL(f) + ")" }, e)
}

// Op applies a binary operator that has no dedicated method, such as
// the Postgres || or ~ operators.
func (e Expr) Op(op string, v any) Expr { return e.infix(op, v) }

// CaseBuilder builds a searched CASE expression.
type CaseBuilder struct {
	whens []caseWhen
	els   any
	set   bool
}

type caseWhen struct {
	cond, then any
}

// Case starts a CASE expression.
//
//	sqlcond.Case().
//		When(sqlcond.Col("score").Gte(90), "A").
//		Else("B").
//		End()
func Case() *CaseBuilder { return &CaseBuilder{} }

// When adds a WHEN cond THEN then branch.
func (b *CaseBuilder) When(cond, then any) *CaseBuilder {
	b.whens = append(b.whens, caseWhen{cond: cond, then: then})
	return b
}

// Else sets the ELSE branch.
func (b *CaseBuilder) Else(v any) *CaseBuilder {
	b.els, b.set = v, true
	return b
}

// End finishes the expression.
func (b *CaseBuilder) End() Expr {
	whens, els, set := append([]caseWhen(nil), b.whens...), b.els, b.set
	operands := []any{els}
	for _, w := range whens {
		operands = append(operands, w.cond, w.then)
	}
	return newExpr(func(f *sql.Formatter) string {
		var s strings.Builder
		s.WriteString("CASE")
		for _, w := range whens {
			s.WriteString(" WHEN " + operand(f, w.cond) + " THEN " + operand(f, w.then))
		}
		if set {
			s.WriteString(" ELSE " + operand(f, els))
		}
		s.WriteString(" END")
		return s.String()
	}, operands...)
}
