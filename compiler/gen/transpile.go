package gen

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/dave/jennifer/jen"
	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/schema/field"
)

// DSLPackage is the import path of the expression DSL the generated code
// is written against.
const DSLPackage = "github.com/syssam/dbkit/dialect/sql/sqlcond"

// Options configures a transpilation.
type Options struct {
	// AllowRaw emits nodes without a mapping as sqlcond.Raw holding the
	// deparsed SQL instead of failing.
	AllowRaw bool
}

// Transpile converts a Postgres expression node into Go source against
// the sqlcond expression DSL.
func Transpile(n *pg_query.Node) (string, error) {
	return Options{}.Transpile(n)
}

// TranspileExpr parses a Postgres expression, e.g. the text returned by
// pg_get_expr for a generated column, and transpiles it.
func TranspileExpr(expr string) (string, error) {
	return Options{}.TranspileExpr(expr)
}

// Transpile converts a Postgres expression node into Go source.
func (o Options) Transpile(n *pg_query.Node) (string, error) {
	if n == nil {
		return "", dbkit.NewInvalidArgumentError("gen.Transpile", "node", "expression node is required")
	}
	t := &transpiler{opts: o}
	v, err := t.node(n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%#v", v.expr()), nil
}

// TranspileExpr parses and transpiles a Postgres expression.
func (o Options) TranspileExpr(expr string) (string, error) {
	n, err := parseExpr(expr)
	if err != nil {
		return "", err
	}
	return o.Transpile(n)
}

func parseExpr(expr string) (*pg_query.Node, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, dbkit.NewInvalidArgumentError("gen.TranspileExpr", "expr", "expression is empty")
	}
	res, err := pg_query.Parse("SELECT " + expr)
	if err != nil {
		return nil, dbkit.NewInvalidArgumentError("gen.TranspileExpr", "expr", err.Error())
	}
	if len(res.Stmts) != 1 {
		return nil, dbkit.NewInvalidArgumentError("gen.TranspileExpr", "expr", "expected a single expression")
	}
	sel := res.Stmts[0].Stmt.GetSelectStmt()
	if sel == nil || len(sel.TargetList) != 1 || len(sel.FromClause) > 0 || sel.WhereClause != nil {
		return nil, dbkit.NewInvalidArgumentError("gen.TranspileExpr", "expr", "expected a single expression")
	}
	rt := sel.TargetList[0].GetResTarget()
	if rt == nil || rt.Val == nil {
		return nil, dbkit.NewInvalidArgumentError("gen.TranspileExpr", "expr", "expected a single expression")
	}
	return rt.Val, nil
}

// deparse renders a node back to SQL.
func deparse(n *pg_query.Node) (string, error) {
	res := &pg_query.ParseResult{
		Stmts: []*pg_query.RawStmt{{
			Stmt: &pg_query.Node{
				Node: &pg_query.Node_SelectStmt{SelectStmt: &pg_query.SelectStmt{
					TargetList: []*pg_query.Node{{
						Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: n}},
					}},
					LimitOption: pg_query.LimitOption_LIMIT_OPTION_DEFAULT,
					Op:          pg_query.SetOperation_SETOP_NONE,
				}},
			},
		}},
	}
	s, err := pg_query.Deparse(res)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "SELECT ")), nil
}

func unsupported(kind, name, hint string) error {
	return dbkit.NewUnsupportedNodeError(kind, name, hint)
}

func dsl(name string) *jen.Statement { return jen.Qual(DSLPackage, name) }

// value is a transpiled expression. Constants stay Go literals until
// they are used as a receiver, and the operands of a || chain are
// collected so that a||b||c becomes a single Concat call.
type value struct {
	code   *jen.Statement
	lit    any
	isLit  bool
	concat []value
}

func literal(v any) value {
	if v == nil {
		return value{code: jen.Nil(), isLit: true}
	}
	return value{code: jen.Lit(v), lit: v, isLit: true}
}

func (v value) operands() []value {
	if len(v.concat) > 0 {
		return v.concat
	}
	return []value{v}
}

// arg is the form of v passed as an argument.
func (v value) arg() jen.Code {
	if len(v.concat) > 0 {
		return dsl("Concat").Call(args(v.concat)...)
	}
	return v.code
}

// expr is the form of v used as a method receiver.
func (v value) expr() jen.Code {
	if v.isLit {
		return dsl("Val").Call(v.code)
	}
	return v.arg()
}

func args(vs []value) []jen.Code {
	codes := make([]jen.Code, len(vs))
	for i, v := range vs {
		codes[i] = v.arg()
	}
	return codes
}

type transpiler struct {
	opts Options
}

func (t *transpiler) node(n *pg_query.Node) (value, error) {
	v, err := t.dispatch(n)
	if err != nil && t.opts.AllowRaw && dbkit.IsUnsupportedNode(err) {
		s, derr := deparse(n)
		if derr != nil {
			return value{}, err
		}
		return value{code: dsl("Raw").Call(jen.Lit(s))}, nil
	}
	return v, err
}

func (t *transpiler) nodes(ns []*pg_query.Node) ([]value, error) {
	vs := make([]value, 0, len(ns))
	for _, n := range ns {
		v, err := t.node(n)
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, nil
}

func (t *transpiler) dispatch(n *pg_query.Node) (value, error) {
	if n == nil {
		return value{}, dbkit.NewInvalidArgumentError("gen.Transpile", "node", "expression node is required")
	}
	switch n := n.Node.(type) {
	case *pg_query.Node_ColumnRef:
		return t.columnRef(n.ColumnRef)
	case *pg_query.Node_AConst:
		return t.constant(n.AConst)
	case *pg_query.Node_FuncCall:
		return t.funcCall(n.FuncCall)
	case *pg_query.Node_AExpr:
		return t.aExpr(n.AExpr)
	case *pg_query.Node_TypeCast:
		return t.typeCast(n.TypeCast)
	case *pg_query.Node_NullTest:
		return t.nullTest(n.NullTest)
	case *pg_query.Node_BoolExpr:
		return t.boolExpr(n.BoolExpr)
	case *pg_query.Node_CaseExpr:
		return t.caseExpr(n.CaseExpr)
	case *pg_query.Node_CoalesceExpr:
		vs, err := t.nodes(n.CoalesceExpr.Args)
		if err != nil {
			return value{}, err
		}
		return value{code: dsl("Coalesce").Call(args(vs)...)}, nil
	case *pg_query.Node_MinMaxExpr:
		vs, err := t.nodes(n.MinMaxExpr.Args)
		if err != nil {
			return value{}, err
		}
		fn := "Least"
		if n.MinMaxExpr.Op == pg_query.MinMaxOp_IS_GREATEST {
			fn = "Greatest"
		}
		return value{code: dsl(fn).Call(args(vs)...)}, nil
	case *pg_query.Node_SqlvalueFunction:
		return t.sqlValue(n.SqlvalueFunction)
	default:
		name := strings.TrimPrefix(fmt.Sprintf("%T", n), "*pg_query.Node_")
		return value{}, unsupported("node", name, "add a handler for it to the transpiler")
	}
}

func names(ns []*pg_query.Node) []string {
	parts := make([]string, 0, len(ns))
	for _, n := range ns {
		if s := n.GetString_(); s != nil {
			parts = append(parts, s.Sval)
		}
	}
	return parts
}

func (t *transpiler) columnRef(c *pg_query.ColumnRef) (value, error) {
	for _, f := range c.Fields {
		if f.GetAStar() != nil {
			return value{}, unsupported("node", "A_Star", "select lists are not expressions")
		}
	}
	return value{code: dsl("Col").Call(jen.Lit(strings.Join(names(c.Fields), ".")))}, nil
}

func (t *transpiler) constant(c *pg_query.A_Const) (value, error) {
	if c.Isnull {
		return literal(nil), nil
	}
	switch v := c.Val.(type) {
	case nil:
		return literal(0), nil
	case *pg_query.A_Const_Ival:
		return literal(int(v.Ival.Ival)), nil
	case *pg_query.A_Const_Fval:
		if n, err := strconv.ParseInt(v.Fval.Fval, 10, 64); err == nil {
			return literal(int(n)), nil
		}
		return numeric(v.Fval.Fval)
	case *pg_query.A_Const_Boolval:
		return literal(v.Boolval.Boolval), nil
	case *pg_query.A_Const_Sval:
		return literal(v.Sval.Sval), nil
	default:
		return value{}, unsupported("node", "BitString", "bit string constants have no DSL form")
	}
}

// numeric returns a float literal when s round-trips through float64, and
// the constant as written otherwise.
func numeric(s string) (value, error) {
	if _, ok := new(big.Float).SetString(s); !ok {
		return value{}, dbkit.NewInvalidArgumentError("gen.Transpile", s, "invalid numeric constant")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strconv.FormatFloat(f, 'f', -1, 64) == s {
		return literal(f), nil
	}
	return value{code: dsl("Raw").Call(jen.Lit(s))}, nil
}

func (t *transpiler) funcCall(fc *pg_query.FuncCall) (value, error) {
	parts := names(fc.Funcname)
	if fc.Over != nil {
		return value{}, unsupported("node", "WindowFunc", "window functions are not expressions of a single row")
	}
	f, ok := lookupFunction(parts)
	if !ok {
		name := strings.Join(parts, ".")
		return value{}, unsupported("function", name, fmt.Sprintf("register %q in the function registry", name))
	}
	var vs []value
	if fc.AggStar {
		vs = []value{{code: dsl("Raw").Call(jen.Lit("*"))}}
	} else {
		var err error
		if vs, err = t.nodes(fc.Args); err != nil {
			return value{}, err
		}
	}
	if f.method != "" {
		for _, sig := range f.sigs {
			recv, ok := match(sig, vs)
			if !ok {
				continue
			}
			if recv < 0 {
				return value{code: dsl(f.method).Call(args(vs)...)}, nil
			}
			rest := make([]value, 0, len(vs)-1)
			rest = append(rest, vs[:recv]...)
			rest = append(rest, vs[recv+1:]...)
			return method1(vs[recv], f.method, args(rest)...), nil
		}
	}
	return value{code: dsl("Fn").Call(append([]jen.Code{jen.Lit(f.name)}, args(vs)...)...)}, nil
}

func (t *transpiler) aExpr(e *pg_query.A_Expr) (value, error) {
	parts := names(e.Name)
	op := strings.Join(parts, ".")
	if e.Kind == pg_query.A_Expr_Kind_AEXPR_OP && e.Lexpr == nil {
		rhs, err := t.node(e.Rexpr)
		if err != nil {
			return value{}, err
		}
		switch op {
		case "-":
			return method1(literal(0), "Sub", rhs.arg()), nil
		case "+":
			return rhs, nil
		}
		return value{}, unsupported("operator", op, "add the prefix operator to the transpiler")
	}
	var infix string
	switch e.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP, pg_query.A_Expr_Kind_AEXPR_LIKE, pg_query.A_Expr_Kind_AEXPR_ILIKE,
		pg_query.A_Expr_Kind_AEXPR_DISTINCT, pg_query.A_Expr_Kind_AEXPR_NOT_DISTINCT, pg_query.A_Expr_Kind_AEXPR_NULLIF:
	default:
		kind := strings.TrimPrefix(e.Kind.String(), "AEXPR_")
		return value{}, unsupported("operator", kind, "only scalar binary operators are supported")
	}
	lhs, err := t.node(e.Lexpr)
	if err != nil {
		return value{}, err
	}
	rhs, err := t.node(e.Rexpr)
	if err != nil {
		return value{}, err
	}
	switch e.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		return t.binary(op, lhs, rhs)
	case pg_query.A_Expr_Kind_AEXPR_LIKE:
		if s, ok := rhs.lit.(string); ok && rhs.isLit && op == "~~" {
			return method1(lhs, "Like", jen.Lit(s)), nil
		}
		infix = "LIKE"
		if op == "!~~" {
			infix = "NOT LIKE"
		}
	case pg_query.A_Expr_Kind_AEXPR_ILIKE:
		infix = "ILIKE"
		if op == "!~~*" {
			infix = "NOT ILIKE"
		}
	case pg_query.A_Expr_Kind_AEXPR_DISTINCT:
		infix = "IS DISTINCT FROM"
	case pg_query.A_Expr_Kind_AEXPR_NOT_DISTINCT:
		infix = "IS NOT DISTINCT FROM"
	case pg_query.A_Expr_Kind_AEXPR_NULLIF:
		return method1(lhs, "NullIf", rhs.arg()), nil
	}
	return method1(lhs, "Op", jen.Lit(infix), rhs.arg()), nil
}

func (t *transpiler) typeCast(tc *pg_query.TypeCast) (value, error) {
	v, err := t.node(tc.Arg)
	if err != nil {
		return value{}, err
	}
	var parts []string
	for _, p := range names(tc.TypeName.GetNames()) {
		if p != "pg_catalog" {
			parts = append(parts, p)
		}
	}
	name := strings.ToLower(strings.Join(parts, "."))
	_, isString := v.lit.(string)
	switch {
	case name == "regconfig":
		return v, nil
	case (name == "text" || name == "varchar") && v.isLit && isString:
		return v, nil
	}
	return method1(v, "Cast", jen.Lit(castType(name, tc.TypeName))), nil
}

// castType renders the target type of a cast in its canonical spelling,
// e.g. int4 is INTEGER and numeric(10,2) is NUMERIC(10, 2).
func castType(name string, tn *pg_query.TypeName) string {
	var mods []string
	for _, m := range tn.GetTypmods() {
		if c := m.GetAConst(); c != nil && c.GetIval() != nil {
			mods = append(mods, strconv.Itoa(int(c.GetIval().Ival)))
		}
	}
	typ := name
	if len(mods) > 0 {
		typ += "(" + strings.Join(mods, ",") + ")"
	}
	typ += strings.Repeat("[]", len(tn.GetArrayBounds()))
	return field.ParseType("", typ).SQLType()
}

func (t *transpiler) nullTest(nt *pg_query.NullTest) (value, error) {
	v, err := t.node(nt.Arg)
	if err != nil {
		return value{}, err
	}
	if nt.Nulltesttype == pg_query.NullTestType_IS_NULL {
		return method1(v, "IsNull"), nil
	}
	return method1(v, "IsNotNull"), nil
}

func (t *transpiler) boolExpr(b *pg_query.BoolExpr) (value, error) {
	vs, err := t.nodes(b.Args)
	if err != nil {
		return value{}, err
	}
	if len(vs) == 0 {
		return value{}, dbkit.NewInvalidArgumentError("gen.Transpile", "BoolExpr", "boolean expression without arguments")
	}
	switch b.Boolop {
	case pg_query.BoolExprType_NOT_EXPR:
		return method1(vs[0], "Not"), nil
	case pg_query.BoolExprType_AND_EXPR, pg_query.BoolExprType_OR_EXPR:
		method := "And"
		if b.Boolop == pg_query.BoolExprType_OR_EXPR {
			method = "Or"
		}
		v := vs[0]
		for _, next := range vs[1:] {
			v = method1(v, method, next.arg())
		}
		return v, nil
	}
	return value{}, unsupported("operator", b.Boolop.String(), "add the boolean operator to the transpiler")
}

func (t *transpiler) caseExpr(c *pg_query.CaseExpr) (value, error) {
	var subject *value
	if c.Arg != nil {
		v, err := t.node(c.Arg)
		if err != nil {
			return value{}, err
		}
		subject = &v
	}
	code := dsl("Case").Call()
	for _, n := range c.Args {
		w := n.GetCaseWhen()
		if w == nil {
			return value{}, unsupported("node", "CaseExpr", "expected WHEN clauses")
		}
		cond, err := t.node(w.Expr)
		if err != nil {
			return value{}, err
		}
		if subject != nil {
			cond = method1(*subject, "Eq", cond.arg())
		}
		res, err := t.node(w.Result)
		if err != nil {
			return value{}, err
		}
		code = code.Dot("When").Call(cond.arg(), res.arg())
	}
	if c.Defresult != nil {
		def, err := t.node(c.Defresult)
		if err != nil {
			return value{}, err
		}
		code = code.Dot("Else").Call(def.arg())
	}
	return value{code: code.Dot("End").Call()}, nil
}

var sqlValueKeywords = map[pg_query.SQLValueFunctionOp]string{
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_DATE:        "CURRENT_DATE",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME:        "CURRENT_TIME",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME_N:      "CURRENT_TIME",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP_N: "CURRENT_TIMESTAMP",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIME:           "LOCALTIME",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIME_N:         "LOCALTIME",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIMESTAMP:      "LOCALTIMESTAMP",
	pg_query.SQLValueFunctionOp_SVFOP_LOCALTIMESTAMP_N:    "LOCALTIMESTAMP",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_ROLE:        "CURRENT_ROLE",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_USER:        "CURRENT_USER",
	pg_query.SQLValueFunctionOp_SVFOP_USER:                "USER",
	pg_query.SQLValueFunctionOp_SVFOP_SESSION_USER:        "SESSION_USER",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_CATALOG:     "CURRENT_CATALOG",
	pg_query.SQLValueFunctionOp_SVFOP_CURRENT_SCHEMA:      "CURRENT_SCHEMA",
}

// sqlValue emits the SQL value keywords such as CURRENT_TIMESTAMP.
func (t *transpiler) sqlValue(f *pg_query.SQLValueFunction) (value, error) {
	if f.Op == pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP {
		return value{code: dsl("CurrentTimestamp").Call()}, nil
	}
	kw, ok := sqlValueKeywords[f.Op]
	if !ok {
		return value{}, unsupported("node", f.Op.String(), "add the keyword to the transpiler")
	}
	if f.Typmod >= 0 && strings.HasSuffix(f.Op.String(), "_N") {
		kw += "(" + strconv.Itoa(int(f.Typmod)) + ")"
	}
	return value{code: dsl("Raw").Call(jen.Lit(kw))}, nil
}
