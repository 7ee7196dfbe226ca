package schema

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	"github.com/syssam/dbkit/dialect/sqlschema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// escape quotes a query fragment for the sqlmock regexp matcher.
func escape(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func expectPostgresCatalog(mk sqlmock.Sqlmock) {
	mk.ExpectQuery(escape("SHOW server_version")).
		WillReturnRows(sqlmock.NewRows([]string{"server_version"}).AddRow("16.2"))
	mk.ExpectQuery(escape("COALESCE(obj_description(c.oid, 'pg_class'), '') FROM pg_catalog.pg_class c")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "comment"}).
			AddRow("posts", "").
			AddRow("users", "app users"))
	mk.ExpectQuery(escape("format_type(a.atttypid, a.atttypmod)")).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "attname", "type", "notnull", "default", "identity", "generated", "comment", "collation"}).
			AddRow("posts", "id", "integer", true, "nextval('posts_id_seq'::regclass)", "", "", "", "").
			AddRow("posts", "author_id", "uuid", true, "", "", "", "", "").
			AddRow("posts", "tags", "text[]", false, "", "", "", "", "").
			AddRow("posts", "total", "numeric(10,2)", false, "(price * 2)", "", "s", "", "").
			AddRow("posts", "seq_no", "bigint", true, "", "a", "", "", "").
			AddRow("users", "id", "uuid", true, "gen_random_uuid()", "", "", "", "").
			AddRow("users", "email", "character varying(255)", true, "", "", "", "login", `en_US`).
			AddRow("users", "created_at", "timestamp with time zone", true, "now()", "", "", "", ""))
	mk.ExpectQuery(escape("unnest(con.conkey, con.confkey) WITH ORDINALITY")).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "conname", "contype", "attname", "ref", "refattname", "del", "upd", "deferrable", "deferred"}).
			AddRow("posts", "posts_author_id_fkey", "f", "author_id", "users", "id", "c", "a", false, false).
			AddRow("posts", "posts_pkey", "p", "id", "", "", " ", " ", false, false).
			AddRow("users", "users_email_key", "u", "email", "", "", " ", " ", false, false).
			AddRow("users", "users_pkey", "p", "id", "", "", " ", " ", false, false))
	mk.ExpectQuery(escape("FROM pg_catalog.pg_index ix")).
		WillReturnRows(sqlmock.NewRows([]string{"table", "index", "unique", "method", "column", "def", "desc", "nulls_first", "where"}).
			AddRow("posts", "posts_author_title_idx", false, "btree", "author_id", "author_id", false, false, "(deleted_at IS NULL)").
			AddRow("posts", "posts_author_title_idx", false, "btree", "", "lower(title)", true, false, "(deleted_at IS NULL)").
			AddRow("posts", "posts_tags_idx", false, "gin", "tags", "tags", false, false, ""))
	mk.ExpectQuery(escape("pg_get_constraintdef(con.oid) FROM pg_catalog.pg_constraint con")).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "conname", "def"}).
			AddRow("posts", "posts_total_check", "CHECK ((total > (0)::numeric))"))
	mk.ExpectQuery(escape("JOIN pg_catalog.pg_enum e")).
		WillReturnRows(sqlmock.NewRows([]string{"typname", "enumlabel"}).
			AddRow("mood", "sad").
			AddRow("mood", "happy"))
	mk.ExpectQuery(escape("format_type(t.typbasetype, t.typtypmod)")).
		WillReturnRows(sqlmock.NewRows([]string{"typname", "base", "notnull", "default", "conname", "def"}).
			AddRow("email_address", "text", false, "", "email_address_check", "CHECK ((VALUE ~ '@'::text))"))
	mk.ExpectQuery(escape("FROM pg_catalog.pg_sequences s")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "type", "start", "inc", "min", "max", "cache", "cycle"}).
			AddRow("order_seq", "bigint", int64(1), int64(1), int64(1), int64(9223372036854775807), int64(1), false))
	mk.ExpectQuery(escape("c.relkind = 'c'")).
		WillReturnRows(sqlmock.NewRows([]string{"typname", "attname", "type"}).
			AddRow("address", "street", "text").
			AddRow("address", "zip", "character varying(10)"))
	mk.ExpectQuery(escape("FROM pg_catalog.pg_extension e")).
		WillReturnRows(sqlmock.NewRows([]string{"extname", "nspname", "extversion"}).
			AddRow("pgcrypto", "public", "1.3"))
}

func TestInspect_Postgres(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	expectPostgresCatalog(mk)

	type event struct {
		step   string
		status Status
	}
	var events []event
	insp, err := NewInspector(db, dialect.Postgres, WithSchema("public"), WithProgress(func(step string, _ int, status Status) {
		events = append(events, event{step, status})
	}))
	require.NoError(t, err)
	b, err := insp.Inspect(context.Background())
	require.NoError(t, err)
	require.NoError(t, mk.ExpectationsWereMet())

	assert.Equal(t, "public", b.Name)
	assert.Equal(t, "16.2", b.Version)
	require.Len(t, b.Tables, 2)

	posts, ok := b.Table("posts")
	require.True(t, ok)
	assert.Equal(t, "public", posts.Schema)
	assert.Equal(t, []string{"id"}, posts.PrimaryKey)
	assert.Equal(t, "posts_pkey", posts.PrimaryKeyName)

	id, ok := posts.Column("id")
	require.True(t, ok)
	assert.Equal(t, "SERIAL", id.Type)
	assert.Equal(t, field.FamilySerial, id.Family)
	assert.Nil(t, id.Default)

	tags, ok := posts.Column("tags")
	require.True(t, ok)
	assert.Equal(t, "TEXT", tags.Type)
	assert.Equal(t, 1, tags.ArrayDims)
	assert.False(t, tags.NotNull)

	total, ok := posts.Column("total")
	require.True(t, ok)
	require.NotNil(t, total.Generated)
	assert.True(t, total.Generated.Stored)
	assert.Equal(t, sql.Raw("(price * 2)"), total.Generated.Expr)
	require.NotNil(t, total.Precision)
	assert.Equal(t, 10, *total.Precision)
	assert.Equal(t, 2, *total.Scale)

	seq, ok := posts.Column("seq_no")
	require.True(t, ok)
	require.NotNil(t, seq.Identity)
	assert.True(t, seq.Identity.Always)

	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Equal(t, "posts_author_id_fkey", fk.StorageKey)
	assert.Equal(t, []string{"author_id"}, fk.Columns)
	assert.Equal(t, "users", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
	assert.Equal(t, sqlschema.Cascade, fk.OnDelete)
	assert.Equal(t, sqlschema.NoAction, fk.OnUpdate)

	require.Len(t, posts.Indexes, 2)
	idx := posts.Indexes[0]
	assert.Equal(t, "posts_author_title_idx", idx.StorageKey)
	assert.Empty(t, idx.Method)
	assert.Equal(t, []string{"author_id"}, idx.Fields)
	assert.Equal(t, "(deleted_at IS NULL)", idx.Where)
	require.Len(t, idx.Columns, 2)
	assert.Equal(t, "lower(title)", idx.Columns[1].Expr)
	assert.Equal(t, index.Desc, idx.Columns[1].Direction)
	assert.Equal(t, index.NullsLast, idx.Columns[1].Nulls)
	assert.Equal(t, "gin", posts.Indexes[1].Method)

	require.Len(t, posts.Checks, 1)
	assert.Equal(t, "posts_total_check", posts.Checks[0].Name)
	assert.Equal(t, "(total > (0)::numeric)", posts.Checks[0].Expr)

	users, ok := b.Table("users")
	require.True(t, ok)
	assert.Equal(t, "app users", users.Options.Comment)
	email, ok := users.Column("email")
	require.True(t, ok)
	assert.Equal(t, "VARCHAR", email.Type)
	assert.Equal(t, 255, email.Length)
	assert.Equal(t, "login", email.Comment)
	assert.Equal(t, "en_US", email.Collation)
	created, ok := users.Column("created_at")
	require.True(t, ok)
	assert.Equal(t, "TIMESTAMP", created.Type)
	assert.True(t, created.Timezone)
	assert.Equal(t, sql.Raw("now()"), created.Default)
	require.Len(t, users.Uniques, 1)
	assert.Equal(t, "users_email_key", users.Uniques[0].Name)
	assert.Equal(t, []string{"email"}, users.Uniques[0].Columns)

	require.Len(t, b.Enums, 1)
	assert.Equal(t, []string{"sad", "happy"}, b.Enums[0].Values)
	require.Len(t, b.Domains, 1)
	assert.Equal(t, "text", b.Domains[0].BaseType)
	require.Len(t, b.Domains[0].Checks, 1)
	assert.Equal(t, "(VALUE ~ '@'::text)", b.Domains[0].Checks[0].Expr)
	require.Len(t, b.Sequences, 1)
	assert.Equal(t, "BIGINT", b.Sequences[0].Type)
	assert.Equal(t, int64(9223372036854775807), b.Sequences[0].MaxValue)
	require.Len(t, b.Composites, 1)
	assert.Len(t, b.Composites[0].Attributes, 2)
	require.Len(t, b.Extensions, 1)
	assert.Equal(t, "pgcrypto", b.Extensions[0].Name)

	var done []string
	for _, e := range events {
		if e.status == StatusDone {
			done = append(done, e.step)
		}
	}
	assert.Equal(t, []string{
		StepTables, StepColumns, StepConstraints, StepIndexes, StepChecks,
		StepEnums, StepDomains, StepSequences, StepComposites, StepExtensions,
	}, done)
	assert.Equal(t, event{StepTables, StatusRunning}, events[0])
}

func TestInspect_PostgresCurrentSchema(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SELECT current_schema()")).
		WillReturnRows(sqlmock.NewRows([]string{"current_schema"}).AddRow("app"))
	mk.ExpectQuery(escape("FROM pg_catalog.pg_class c")).
		WithArgs("app").
		WillReturnRows(sqlmock.NewRows([]string{"relname", "comment"}).
			AddRow("accounts", "").
			AddRow("users", ""))

	insp, err := NewInspector(db, dialect.Postgres)
	require.NoError(t, err)
	names, err := insp.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"accounts", "users"}, names)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestInspect_PostgresStepError(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SHOW server_version")).
		WillReturnRows(sqlmock.NewRows([]string{"server_version"}).AddRow("16.2"))
	mk.ExpectQuery(escape("FROM pg_catalog.pg_class c")).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "comment"}).AddRow("users", ""))
	mk.ExpectQuery(escape("format_type(a.atttypid, a.atttypmod)")).
		WillReturnRows(sqlmock.NewRows([]string{"relname", "attname", "type", "notnull", "default", "identity", "generated", "comment", "collation"}).
			AddRow("users", "id", "bigint", true, "", "d", "", "", ""))
	mk.ExpectQuery(escape("unnest(con.conkey, con.confkey)")).
		WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for table pg_constraint"})

	var failed []string
	insp, err := NewInspector(db, dialect.Postgres, WithSchema("public"), WithProgress(func(step string, _ int, status Status) {
		if status == StatusFailed {
			failed = append(failed, step)
		}
	}))
	require.NoError(t, err)
	b, err := insp.Inspect(context.Background())
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, dbkit.IsCatalogError(err))

	var cerr *dbkit.CatalogError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, dialect.Postgres, cerr.Dialect)
	assert.Equal(t, StepConstraints, cerr.Step)
	assert.Equal(t, "42501", cerr.SQLState)
	assert.Equal(t, []string{StepConstraints}, failed)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestInspect_PostgresOptionalSteps(t *testing.T) {
	t.Parallel()

	steps := postgresCatalog{}.steps(&options{functions: true, triggers: true, collations: true})
	var names []string
	for _, s := range steps {
		names = append(names, s.name)
	}
	assert.Equal(t, []string{StepFunctions, StepTriggers, StepCollations}, names[len(names)-3:])
	assert.Len(t, postgresCatalog{}.steps(&options{}), 10)
	assert.Len(t, tableSteps(steps), 5)
}

func TestInspect_CockroachVersion(t *testing.T) {
	t.Parallel()

	db, mk, err := sqlmock.New()
	require.NoError(t, err)
	mk.ExpectQuery(escape("SELECT version()")).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("CockroachDB CCL v24.1.0"))

	insp, err := NewInspector(db, dialect.CRDB)
	require.NoError(t, err)
	v, err := insp.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CockroachDB CCL v24.1.0", v)
	require.NoError(t, mk.ExpectationsWereMet())
}

func TestNewInspector_Errors(t *testing.T) {
	t.Parallel()

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	_, err = NewInspector(db, "oracle")
	assert.True(t, dbkit.IsInvalidArgument(err))
	_, err = NewInspector(nil, dialect.Postgres)
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestCheckExpr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def, want string
	}{
		{"CHECK ((price > 0))", "(price > 0)"},
		{"CHECK ((price > 0)) NOT VALID", "(price > 0)"},
		{"CHECK (a > 0) AND (b > 0)", "(a > 0) AND (b > 0)"},
		{"(`age` > 0)", "`age` > 0"},
		{"(a > 0) OR (b > 0)", "(a > 0) OR (b > 0)"},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, checkExpr(tt.def))
		})
	}
}
