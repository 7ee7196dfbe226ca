package gen_test

import (
	"errors"
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/compiler/gen"
)

func TestTranspileExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr string
		want string
	}{
		{"column", "email", `sqlcond.Col("email")`},
		{"qualified column", "users.id", `sqlcond.Col("users.id")`},
		{"string", "'abc'", `sqlcond.Val("abc")`},
		{"text cast on string", "'abc'::text", `sqlcond.Val("abc")`},
		{"quote", "name || 'it''s'", `sqlcond.Concat(sqlcond.Col("name"), "it's")`},
		{"concat chain", "(first_name || ' '::text) || last_name", `sqlcond.Concat(sqlcond.Col("first_name"), " ", sqlcond.Col("last_name"))`},
		{"arithmetic", "price * quantity", `sqlcond.Col("price").Mul(sqlcond.Col("quantity"))`},
		{"literal receiver", "1.5 * x", `sqlcond.Val(1.5).Mul(sqlcond.Col("x"))`},
		{"negative", "x * -1", `sqlcond.Col("x").Mul(-1)`},
		{"bigint", "n * 9000000000", `sqlcond.Col("n").Mul(9000000000)`},
		{"wider than bigint", "n * 99999999999999999999", `sqlcond.Col("n").Mul(sqlcond.Raw("99999999999999999999"))`},
		{"exact decimal", "0.12345678901234567890 * x", `sqlcond.Raw("0.12345678901234567890").Mul(sqlcond.Col("x"))`},
		{"trailing zero", "price >= 10.50", `sqlcond.Col("price").Gte(sqlcond.Raw("10.50"))`},
		{"unary minus", "-x", `sqlcond.Val(0).Sub(sqlcond.Col("x"))`},
		{"comparison", "a > 0 AND b <= 10", `sqlcond.Col("a").Gt(0).And(sqlcond.Col("b").Lte(10))`},
		{"or", "a OR b OR c", `sqlcond.Col("a").Or(sqlcond.Col("b")).Or(sqlcond.Col("c"))`},
		{"not", "NOT active", `sqlcond.Col("active").Not()`},
		{"is null", "deleted_at IS NULL", `sqlcond.Col("deleted_at").IsNull()`},
		{"is not null", "deleted_at IS NOT NULL", `sqlcond.Col("deleted_at").IsNotNull()`},
		{"chainable", "lower(email)", `sqlcond.Col("email").Lower()`},
		{"nested chain", "upper(substr(code, 1, 3))", `sqlcond.Col("code").Substring(1, 3).Upper()`},
		{"round", "round(price::numeric, 2)", `sqlcond.Col("price").Cast("NUMERIC").Round(2)`},
		{"cast with modifiers", "total::numeric(10,2)", `sqlcond.Col("total").Cast("NUMERIC(10, 2)")`},
		{"cast alias", "n::int4", `sqlcond.Col("n").Cast("INTEGER")`},
		{"column text cast", "id::text", `sqlcond.Col("id").Cast("TEXT")`},
		{"receiver after config", "date_trunc('day', created_at)", `sqlcond.Col("created_at").DateTrunc("day")`},
		{"extract", "EXTRACT(year FROM created_at)", `sqlcond.Col("created_at").Extract("year")`},
		{
			"text search",
			"to_tsvector('english'::regconfig, COALESCE(title, ''::text) || ' ' || COALESCE(body, ''::text))",
			`sqlcond.Concat(sqlcond.Coalesce(sqlcond.Col("title"), ""), " ", sqlcond.Coalesce(sqlcond.Col("body"), "")).ToTsvector("english")`,
		},
		{"package function", "coalesce(nickname, name)", `sqlcond.Coalesce(sqlcond.Col("nickname"), sqlcond.Col("name"))`},
		{"greatest", "GREATEST(a, b)", `sqlcond.Greatest(sqlcond.Col("a"), sqlcond.Col("b"))`},
		{"no arguments", "gen_random_uuid()", `sqlcond.GenRandomUUID()`},
		{"now", "now()", `sqlcond.Now()`},
		{"current timestamp", "CURRENT_TIMESTAMP", `sqlcond.CurrentTimestamp()`},
		{"current date", "CURRENT_DATE", `sqlcond.Raw("CURRENT_DATE")`},
		{"generic function", "split_part(email, '@', 2)", `sqlcond.Fn("split_part", sqlcond.Col("email"), "@", 2)`},
		{"signature mismatch", "left(name, n)", `sqlcond.Fn("left", sqlcond.Col("name"), sqlcond.Col("n"))`},
		{"qualified builtin", "pg_catalog.lower(email)", `sqlcond.Col("email").Lower()`},
		{"count star", "count(*)", `sqlcond.Fn("count", sqlcond.Raw("*"))`},
		{"json text", "data ->> 'name'", `sqlcond.Col("data").JSONGetText("name")`},
		{"json", "data -> 'tags'", `sqlcond.Col("data").JSONGet("tags")`},
		{"json path", "data #>> '{a,b}'", `sqlcond.Col("data").JSONPathText("a", "b")`},
		{"json index", "data -> 0", `sqlcond.Col("data").Op("->", 0)`},
		{"regex", "name ~ '^a'", `sqlcond.Col("name").Op("~", "^a")`},
		{"containment", "tags @> ARRAY_COL", `sqlcond.Col("tags").Op("@>", sqlcond.Col("array_col"))`},
		{"like", "name LIKE 'a%'", `sqlcond.Col("name").Like("a%")`},
		{"ilike", "name ILIKE 'a%'", `sqlcond.Col("name").Op("ILIKE", "a%")`},
		{"distinct", "a IS DISTINCT FROM b", `sqlcond.Col("a").Op("IS DISTINCT FROM", sqlcond.Col("b"))`},
		{"nullif", "NULLIF(a, '')", `sqlcond.Col("a").NullIf("")`},
		{"text match", "search @@ query", `sqlcond.Col("search").TsMatch(sqlcond.Col("query"))`},
		{"null", "NULL", `sqlcond.Val(nil)`},
		{"bool", "true", `sqlcond.Val(true)`},
		{
			"searched case",
			"CASE WHEN score >= 90 THEN 'A' ELSE 'B' END",
			`sqlcond.Case().When(sqlcond.Col("score").Gte(90), "A").Else("B").End()`,
		},
		{
			"simple case",
			"CASE status WHEN 1 THEN 'on' END",
			`sqlcond.Case().When(sqlcond.Col("status").Eq(1), "on").End()`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := gen.TranspileExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranspileExpr_Unsupported(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		kind string
		name string
	}{
		{"my_func(x)", "function", "my_func"},
		{"app.slugify(title)", "function", "app.slugify"},
		{"status IN ('a', 'b')", "operator", "IN"},
		{"a BETWEEN 1 AND 2", "operator", "BETWEEN"},
		{"a === b", "operator", "==="},
		{"(SELECT 1)", "node", "SubLink"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			t.Parallel()
			_, err := gen.TranspileExpr(tt.expr)
			require.Error(t, err)
			assert.True(t, dbkit.IsUnsupportedNode(err))
			var e *dbkit.UnsupportedNodeError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.name, e.Name)
			assert.NotEmpty(t, e.Hint)
		})
	}
}

func TestTranspileExpr_AllowRaw(t *testing.T) {
	t.Parallel()

	opts := gen.Options{AllowRaw: true}
	got, err := opts.TranspileExpr("my_func(x)")
	require.NoError(t, err)
	assert.Equal(t, `sqlcond.Raw("my_func(x)")`, got)

	got, err = opts.TranspileExpr("lower(my_func(x))")
	require.NoError(t, err)
	assert.Equal(t, `sqlcond.Raw("my_func(x)").Lower()`, got)

	got, err = opts.TranspileExpr("a + 1 > 0 AND status IN ('a', 'b')")
	require.NoError(t, err)
	assert.Contains(t, got, `sqlcond.Col("a").Add(1).Gt(0).And(sqlcond.Raw(`)
	assert.Contains(t, got, "IN")
}

func TestTranspileExpr_Invalid(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "   ", "a +", "1, 2", "a FROM t"} {
		_, err := gen.TranspileExpr(expr)
		assert.True(t, dbkit.IsInvalidArgument(err), expr)
	}
}

func TestTranspile(t *testing.T) {
	t.Parallel()

	res, err := pg_query.Parse("SELECT price * 2")
	require.NoError(t, err)
	n := res.Stmts[0].Stmt.GetSelectStmt().TargetList[0].GetResTarget().Val
	got, err := gen.Transpile(n)
	require.NoError(t, err)
	assert.Equal(t, `sqlcond.Col("price").Mul(2)`, got)

	_, err = gen.Transpile(nil)
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestFunctions(t *testing.T) {
	t.Parallel()

	fns := gen.Functions()
	assert.Greater(t, len(fns), 200)
	assert.IsIncreasing(t, fns)
	assert.Contains(t, fns, "to_tsvector")
	assert.Contains(t, fns, "st_distance")
}
