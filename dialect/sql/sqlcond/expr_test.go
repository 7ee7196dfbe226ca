package sqlcond_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sql/sqlcond"
)

func TestExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		expr    sqlcond.Expr
		want    string
	}{
		{"chain", dialect.Postgres, sqlcond.Col("x").Lower().Concat("x"), `CONCAT(LOWER("x"), 'x')`},
		{"chain_sqlite", dialect.SQLite, sqlcond.Col("x").Lower().Concat("x"), `(LOWER("x") || 'x')`},
		{"qualified", dialect.Postgres, sqlcond.Col("u.email").Upper(), `UPPER("u"."email")`},
		{"length_mysql", dialect.MySQL, sqlcond.Col("name").Length(), "CHAR_LENGTH(`name`)"},
		{"length", dialect.Postgres, sqlcond.Col("name").Trim().Length(), `LENGTH(TRIM("name"))`},
		{"substring", dialect.Postgres, sqlcond.Col("name").Substring(2, 3), `SUBSTRING("name", 2, 3)`},
		{"substring_sqlite", dialect.SQLite, sqlcond.Col("name").Substring(2, 0), `SUBSTR("name", 2)`},
		{"replace", dialect.Postgres, sqlcond.Col("s").Replace("-", ""), `REPLACE("s", '-', '')`},
		{"arithmetic", dialect.Postgres, sqlcond.Col("price").Mul(sqlcond.Col("qty")).Add(1), `(("price" * "qty") + 1)`},
		{"cast", dialect.Postgres, sqlcond.Col("id").Cast("text"), `CAST("id" AS text)`},
		{"round", dialect.Postgres, sqlcond.Col("price").Round(2), `ROUND("price", 2)`},
		{"coalesce", dialect.Postgres, sqlcond.Coalesce(sqlcond.Col("nick"), sqlcond.Col("name"), "anon"), `COALESCE("nick", "name", 'anon')`},
		{"nullif", dialect.Postgres, sqlcond.Col("a").NullIf(""), `NULLIF("a", '')`},
		{"json_text", dialect.Postgres, sqlcond.Col("meta").JSONGetText("plan"), `("meta" ->> 'plan')`},
		{"json_get", dialect.Postgres, sqlcond.Col("meta").JSONGet("plan"), `("meta" -> 'plan')`},
		{"json_path", dialect.Postgres, sqlcond.Col("meta").JSONPath("a", "b"), `("meta" #> '{a,b}')`},
		{"json_path_text", dialect.Postgres, sqlcond.Col("meta").JSONPathText("a", "b"), `("meta" #>> '{a,b}')`},
		{"json_text_mysql", dialect.MySQL, sqlcond.Col("meta").JSONGetText("plan"), "(`meta` ->> '$.plan')"},
		{"json_sqlite", dialect.SQLite, sqlcond.Col("meta").JSONPathText("a", "1"), `json_extract("meta", '$.a[1]')`},
		{"array", dialect.Postgres, sqlcond.Col("tags").ArrayAppend("go").Cardinality(), `cardinality(array_append("tags", 'go'))`},
		{"array_length", dialect.Postgres, sqlcond.Col("tags").ArrayLength(1), `array_length("tags", 1)`},
		{"ts_match", dialect.Postgres, sqlcond.Col("body").ToTsvector("english").TsMatch(sqlcond.Val("go").PlainToTsquery("english")),
			`(to_tsvector('english', "body") @@ plainto_tsquery('english', 'go'))`},
		{"ts_rank", dialect.Postgres, sqlcond.Col("tsv").TsRank(sqlcond.Val("go").ToTsquery()), `ts_rank("tsv", to_tsquery('go'))`},
		{"date_trunc", dialect.Postgres, sqlcond.Col("created_at").DateTrunc("day"), `date_trunc('day', "created_at")`},
		{"extract", dialect.Postgres, sqlcond.Col("created_at").Extract("year"), `EXTRACT(YEAR FROM "created_at")`},
		{"extract_mysql", dialect.MySQL, sqlcond.Col("created_at").Extract("MONTH"), "EXTRACT(MONTH FROM `created_at`)"},
		{"extract_mysql_dow", dialect.MySQL, sqlcond.Col("created_at").Extract("dow"), "(DAYOFWEEK(`created_at`) - 1)"},
		{"extract_mysql_epoch", dialect.MariaDB, sqlcond.Col("created_at").Extract("epoch"), "UNIX_TIMESTAMP(`created_at`)"},
		{"extract_sqlite", dialect.SQLite, sqlcond.Col("created_at").Extract("year"), `CAST(strftime('%Y', "created_at") AS INTEGER)`},
		{"extract_sqlite_quarter", dialect.Turso, sqlcond.Col("created_at").Extract("quarter"), `((CAST(strftime('%m', "created_at") AS INTEGER) + 2) / 3)`},
		{"cast_args", dialect.Postgres, sqlcond.Col("price").Cast("numeric(10, 2)"), `CAST("price" AS numeric(10, 2))`},
		{"cast_tz", dialect.Postgres, sqlcond.Col("at").Cast("timestamp(3) with time zone"), `CAST("at" AS timestamp(3) with time zone)`},
		{"cast_array", dialect.Postgres, sqlcond.Col("ids").Cast("bigint[]"), `CAST("ids" AS bigint[])`},
		{"cast_mysql", dialect.MySQL, sqlcond.Col("n").Cast("UNSIGNED INTEGER"), "CAST(`n` AS UNSIGNED INTEGER)"},
		{"json_path_quoted", dialect.Postgres, sqlcond.Col("meta").JSONPathText("a b", "c,d", "e"), `("meta" #>> '{"a b","c,d",e}')`},
		{"json_path_quoted_mysql", dialect.MySQL, sqlcond.Col("meta").JSONPathText("a.b", "c"), "(`meta` ->> '$.\"a.b\".c')"},
		{"json_path_quoted_sqlite", dialect.SQLite, sqlcond.Col("meta").JSONGet("first-name"), `json_extract("meta", '$."first-name"')`},
		{"case", dialect.Postgres, sqlcond.Case().When(sqlcond.Col("score").Gte(90), "A").Else("B").End(), `CASE WHEN ("score" >= 90) THEN 'A' ELSE 'B' END`},
		{"case_no_else", dialect.Postgres, sqlcond.Case().When(sqlcond.Col("a").IsNull(), 0).End(), `CASE WHEN "a" IS NULL THEN 0 END`},
		{"logic", dialect.Postgres, sqlcond.Col("a").Gt(1).And(sqlcond.Col("b").Lt(2)).Not(), `NOT ((("a" > 1) AND ("b" < 2)))`},
		{"alias", dialect.Postgres, sqlcond.Col("a").Lower().As("a_lower"), `LOWER("a") AS "a_lower"`},
		{"fn", dialect.Postgres, sqlcond.Fn("md5", sqlcond.Col("email")), `md5("email")`},
		{"op", dialect.Postgres, sqlcond.Col("a").Op("||", sqlcond.Col("b")), `("a" || "b")`},
		{"raw", dialect.Postgres, sqlcond.Now(), "now()"},
		{"zero", dialect.Postgres, sqlcond.Expr{}, "NULL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.expr.ToSQL(tt.dialect))
		})
	}
}

func TestExprErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		expr sqlcond.Expr
	}{
		{"extract_field", sqlcond.Col("created_at").Extract("fortnight")},
		{"extract_injection", sqlcond.Col("created_at").Extract("year FROM now()) --")},
		{"cast_injection", sqlcond.Col("id").Cast("text); DROP TABLE users; --")},
		{"cast_empty", sqlcond.Col("id").Cast("")},
		{"cast_quote", sqlcond.Col("id").Cast(`"text"`)},
		{"nested", sqlcond.Col("a").Cast("int; --").Add(1).Lower()},
		{"operand", sqlcond.Coalesce(sqlcond.Col("a"), sqlcond.Col("b").Extract("?"))},
		{"case", sqlcond.Case().When(sqlcond.Col("a").IsNull(), sqlcond.Col("b").Cast("x)")).End()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, dbkit.IsInvalidArgument(tt.expr.Err()), tt.expr.Err())

			_, err := sqlcond.Build(sqlcond.New().Where(tt.expr), dialect.Postgres)
			assert.True(t, dbkit.IsInvalidArgument(err))
		})
	}
	assert.NoError(t, sqlcond.Col("a").Cast("text").Extract("year").Err())
	assert.Equal(t, "NULL", sqlcond.Col("id").Cast("int)").ToSQL(dialect.Postgres))

	_, err := sqlcond.Build(sqlcond.New().Equal(sqlcond.Col("at").Extract("nope"), 1), dialect.MySQL)
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestExprIsRenderer(t *testing.T) {
	t.Parallel()
	var r sql.Renderer = sqlcond.Col("a").Eq(1)
	f := sql.NewFormatter(dialect.MySQL)
	assert.Equal(t, "(`a` = 1)", r.RenderSQL(f))
	assert.Equal(t, "(`a` = 1)", f.Literal(r))
}

func TestTableRef(t *testing.T) {
	t.Parallel()

	users := sqlcond.NewTableRef("users", map[string]sqlcond.ColumnInfo{
		"email": {SQLName: "email_address", Type: "TEXT"},
		"id":    {SQLName: "id", Type: "UUID"},
	})
	f := sql.NewFormatter(dialect.Postgres)

	assert.Equal(t, "users", users.Alias())
	assert.Equal(t, `"users"`, users.RenderSQL(f))
	assert.Equal(t, []string{"email", "id"}, users.Columns())

	u := users.As("u")
	assert.Equal(t, `"users" AS "u"`, u.RenderSQL(f))
	email := u.C("email")
	assert.Equal(t, "TEXT", email.Type)
	assert.Equal(t, `"u"."email_address"`, email.RenderSQL(f))
	assert.Equal(t, `"email_address"`, email.Unqualified().RenderSQL(f))
	assert.Equal(t, `"u"."nickname"`, u.C("nickname").RenderSQL(f))
	assert.Equal(t, `LOWER("u"."email_address")`, email.Expr().Lower().ToSQL(dialect.Postgres))
	assert.Equal(t, "users", users.Alias(), "As returns a copy")

	c := sqlcond.New().Equal(email, "a@b.c")
	got, err := sqlcond.Build(c, dialect.Postgres)
	assert.NoError(t, err)
	assert.Equal(t, `"u"."email_address" = 'a@b.c'`, got)
}
