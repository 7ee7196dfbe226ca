package sqljoin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sql/sqlcond"
	"github.com/syssam/dbkit/dialect/sql/sqljoin"
)

var (
	users = sqlcond.NewTableRef("users", map[string]sqlcond.ColumnInfo{
		"id": {SQLName: "id", Type: "UUID"},
	})
	posts = sqlcond.NewTableRef("posts", map[string]sqlcond.ColumnInfo{
		"id":       {SQLName: "id", Type: "UUID"},
		"authorId": {SQLName: "author_id", Type: "UUID"},
		"title":    {SQLName: "title", Type: "TEXT"},
	})
)

func TestManyToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		build   func() *sqljoin.ManyBuilder
		want    string
	}{
		{
			name:    "refs_order_limit",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).
					Equal(sqlcond.Ref("posts", "author_id"), sqlcond.Ref("users", "id")).
					OrderBy("created_at", sqljoin.Desc).
					Limit(5)
			},
			want: `SELECT "posts".* FROM "posts" WHERE "posts"."author_id" = "users"."id" ORDER BY "created_at" DESC LIMIT 5`,
		},
		{
			name:    "logical_names",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).Equal("id", "authorId").Select("id", "authorId")
			},
			want: `SELECT "posts"."id", "posts"."author_id" AS "authorId" FROM "posts" WHERE "users"."id" = "posts"."author_id"`,
		},
		{
			name:    "where_merged",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).
					Equal("id", "authorId").
					Where(func(c *sqlcond.Collector) { c.Equal("published", true).Like("title", "Go%") })
			},
			want: `SELECT "posts".* FROM "posts" WHERE "users"."id" = "posts"."author_id" AND "published" = TRUE AND "title" LIKE 'Go%'`,
		},
		{
			name:    "using",
			dialect: dialect.SQLite,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).Using("tenant_id")
			},
			want: `SELECT "posts".* FROM "posts" WHERE "users"."tenant_id" = "posts"."tenant_id"`,
		},
		{
			name:    "group_having",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				count := sqlcond.Fn("count", sqlcond.Raw("*"))
				return sqljoin.Many(users, posts).
					SelectRefs(sqlcond.Col("author_id"), count.As("n")).
					GroupBy("authorId").
					Having(func(c *sqlcond.Collector) { c.GreaterThan(count, 1) })
			},
			want: `SELECT "author_id", count(*) AS "n" FROM "posts" GROUP BY "author_id" HAVING count(*) > 1`,
		},
		{
			name:    "limit_offset",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).OrderBy("id", sqljoin.Asc).Limit(10).Offset(20)
			},
			want: `SELECT "posts".* FROM "posts" ORDER BY "id" ASC LIMIT 10 OFFSET 20`,
		},
		{
			name:    "offset_sqlite",
			dialect: dialect.SQLite,
			build:   func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).Offset(20) },
			want:    `SELECT "posts".* FROM "posts" LIMIT -1 OFFSET 20`,
		},
		{
			name:    "offset_mysql",
			dialect: dialect.MySQL,
			build:   func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).Offset(20) },
			want:    "SELECT `posts`.* FROM `posts` LIMIT 18446744073709551615 OFFSET 20",
		},
		{
			name:    "nulls_last",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).OrderByNulls("published_at", sqljoin.Desc, sqljoin.NullsLast)
			},
			want: `SELECT "posts".* FROM "posts" ORDER BY "published_at" DESC NULLS LAST`,
		},
		{
			name:    "nulls_first_mysql",
			dialect: dialect.MySQL,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users, posts).OrderByNulls("published_at", sqljoin.Asc, sqljoin.NullsFirst)
			},
			want: "SELECT `posts`.* FROM `posts` ORDER BY `published_at` IS NULL DESC, `published_at` ASC",
		},
		{
			name:    "aliased",
			dialect: dialect.Postgres,
			build: func() *sqljoin.ManyBuilder {
				return sqljoin.Many(users.As("u"), posts.As("p")).Equal("id", "authorId")
			},
			want: `SELECT "p".* FROM "posts" AS "p" WHERE "u"."id" = "p"."author_id"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.build().ToSQL(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestManyToLateralSQL(t *testing.T) {
	t.Parallel()

	m := sqljoin.Many(users, posts).
		Equal(sqlcond.Ref("posts", "author_id"), sqlcond.Ref("users", "id")).
		OrderBy("created_at", sqljoin.Desc).
		Limit(5)
	got, err := m.ToLateralSQL(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `(SELECT COALESCE(json_agg(sub.*), '[]'::json) AS "posts" FROM (`+
		`SELECT "posts".* FROM "posts" WHERE "posts"."author_id" = "users"."id" ORDER BY "created_at" DESC LIMIT 5`+
		`) sub)`, got)

	got, err = m.As("recent_posts").ToLateralSQL(dialect.Nile)
	require.NoError(t, err)
	assert.Contains(t, got, `AS "recent_posts" FROM (`)

	_, err = m.ToLateralSQL(dialect.MySQL)
	require.Error(t, err)
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestLateralAlwaysAggregatesToArray(t *testing.T) {
	t.Parallel()

	builders := []*sqljoin.ManyBuilder{
		sqljoin.Many(users, posts),
		sqljoin.Many(users, posts).Equal("id", "authorId"),
		sqljoin.Many(users, posts).Where(func(c *sqlcond.Collector) { c.In("id") }),
		sqljoin.Many(users, posts).Select("authorId").GroupBy("authorId").Limit(0),
		sqljoin.Many(users.As("u"), posts.As("p")).Offset(3),
	}
	for i, m := range builders {
		for _, d := range []string{dialect.Postgres, dialect.CRDB, dialect.DSQL, dialect.Nile} {
			got, err := m.ToLateralSQL(d)
			require.NoError(t, err, "builder %d", i)
			alias := posts.Alias()
			if i == 4 {
				alias = "p"
			}
			assert.True(t, strings.HasPrefix(got, `(SELECT COALESCE(json_agg(sub.*), '[]'::json) AS "`+alias+`" FROM (`), got)
			assert.True(t, strings.HasSuffix(got, ") sub)"), got)
		}
	}
}

func TestManyErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		build   func() *sqljoin.ManyBuilder
	}{
		{"unknown_dialect", "oracle", func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts) }},
		{"negative_limit", dialect.Postgres, func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).Limit(-1) }},
		{"negative_offset", dialect.Postgres, func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).Offset(-1) }},
		{"bad_direction", dialect.Postgres, func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).OrderBy("id", "UP") }},
		{"bad_nulls", dialect.Postgres, func() *sqljoin.ManyBuilder {
			return sqljoin.Many(users, posts).OrderByNulls("id", sqljoin.Asc, "MIDDLE")
		}},
		{"empty_using", dialect.Postgres, func() *sqljoin.ManyBuilder { return sqljoin.Many(users, posts).Using() }},
		{"missing_table", dialect.Postgres, func() *sqljoin.ManyBuilder { return sqljoin.Many(users, sqlcond.TableRef{}) }},
		{"bad_condition", dialect.MySQL, func() *sqljoin.ManyBuilder {
			return sqljoin.Many(users, posts).Where(func(c *sqlcond.Collector) { c.Range().IsEmpty("during") })
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.build().ToSQL(tt.dialect)
			require.Error(t, err)
			assert.True(t, dbkit.IsInvalidArgument(err))
		})
	}
}

func TestConditionBuilder(t *testing.T) {
	t.Parallel()

	b := sqljoin.On(users, posts).
		Equal("id", "authorId").
		GreaterThanEqual(sqlcond.Ref("users", "created_at"), "created_at").
		Where(func(c *sqlcond.Collector) { c.IsNull("deleted_at") })
	got, err := b.ToSQL(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `"users"."id" = "posts"."author_id" AND "users"."created_at" >= "posts"."created_at" AND "deleted_at" IS NULL`, got)
	assert.Equal(t, "users", b.Left().Name())
	assert.Equal(t, "posts", b.Right().Name())

	got, err = sqljoin.On(users, posts).NotEqual("id", "id").LessThan("a", "b").LessThanEqual("c", "d").GreaterThan("e", "f").ToSQL(dialect.MySQL)
	require.NoError(t, err)
	assert.Equal(t, "`users`.`id` <> `posts`.`id` AND `users`.`a` < `posts`.`b` AND `users`.`c` <= `posts`.`d` AND `users`.`e` > `posts`.`f`", got)
}

func TestManyProjectionRenderer(t *testing.T) {
	t.Parallel()
	var r sql.Renderer = posts.C("title")
	got, err := sqljoin.Many(users, posts).SelectRefs(r).ToSQL(dialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "posts"."title" FROM "posts"`, got)
}
