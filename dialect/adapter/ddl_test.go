package adapter_test

import (
	"context"
	stdsql "database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/adapter"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

func usersV1(id func() *field.Column, opts ...schema.Option) *schema.Table {
	return schema.MustDefineTable("users", []field.Builder{
		id(),
		field.Varchar("email", 255).NotNull(),
		field.Text("name"),
		field.Integer("age"),
	}, opts...)
}

func usersV2(id func() *field.Column, opts ...schema.Option) *schema.Table {
	return schema.MustDefineTable("users", []field.Builder{
		id(),
		field.Varchar("email", 320).NotNull(),
		field.Text("name").NotNull().Default("anon"),
		field.Text("bio"),
	}, opts...)
}

func sqls(stmts []adapter.Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

func TestGenerateCreateTable(t *testing.T) {
	t.Parallel()

	posts := schema.MustDefineTable("posts", []field.Builder{
		field.UUID("id").PrimaryKey().Default(field.GenRandomUUID()),
		field.UUID("author_id").NotNull(),
		field.Text("title").NotNull().Comment("post title"),
	}, schema.Indexes(index.Fields("author_id", "title")))

	stmts, err := mustNew(t, dialect.Postgres).GenerateCreateTable(posts)
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, `CREATE TABLE "posts" ("id" UUID PRIMARY KEY DEFAULT gen_random_uuid(), "author_id" UUID NOT NULL, "title" TEXT NOT NULL)`, stmts[0].SQL)
	assert.Equal(t, adapter.StatementCreate, stmts[0].Type)
	assert.Equal(t, adapter.StatementAlter, stmts[1].Type)
	assert.Contains(t, stmts[1].SQL, "COMMENT ON COLUMN")
	assert.Equal(t, `CREATE INDEX "posts_author_id_title_idx" ON "posts" ("author_id", "title")`, stmts[2].SQL)
	assert.Equal(t, []string{"posts", "posts_author_id_title_idx"}, stmts[2].Affects)
	for _, s := range stmts {
		assert.False(t, s.Destructive)
	}

	stmts, err = mustNew(t, dialect.SQLite).GenerateCreateTable(posts)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `CREATE INDEX "posts_author_id_title_idx" ON "posts" ("author_id", "title")`, stmts[1].SQL)

	_, err = mustNew(t, dialect.Postgres).GenerateCreateTable(nil)
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestGenerateAlterTable(t *testing.T) {
	t.Parallel()

	id := func() *field.Column { return field.UUID("id").PrimaryKey() }
	t.Run("postgres", func(t *testing.T) {
		t.Parallel()
		stmts, err := mustNew(t, dialect.Postgres).GenerateAlterTable(usersV1(id), usersV2(id))
		require.NoError(t, err)
		assert.Equal(t, []string{
			`ALTER TABLE "users" ADD COLUMN "bio" TEXT`,
			`ALTER TABLE "users" ALTER COLUMN "email" TYPE VARCHAR(320) USING "email"::VARCHAR(320)`,
			`ALTER TABLE "users" ALTER COLUMN "name" SET NOT NULL, ALTER COLUMN "name" SET DEFAULT 'anon'`,
			`ALTER TABLE "users" DROP COLUMN "age"`,
		}, sqls(stmts))
		assert.Equal(t, []bool{false, true, false, true}, []bool{
			stmts[0].Destructive, stmts[1].Destructive, stmts[2].Destructive, stmts[3].Destructive,
		})
		assert.Equal(t, []string{"users.age"}, stmts[3].Affects)
	})
	t.Run("reverse", func(t *testing.T) {
		t.Parallel()
		stmts, err := mustNew(t, dialect.Postgres).GenerateAlterTable(usersV2(id), usersV1(id))
		require.NoError(t, err)
		assert.Contains(t, sqls(stmts), `ALTER TABLE "users" ALTER COLUMN "name" DROP NOT NULL, ALTER COLUMN "name" DROP DEFAULT`)
	})
	t.Run("mysql", func(t *testing.T) {
		t.Parallel()
		stmts, err := mustNew(t, dialect.MySQL).GenerateAlterTable(usersV1(id), usersV2(id))
		require.NoError(t, err)
		assert.Equal(t, []string{
			"ALTER TABLE `users` ADD COLUMN `bio` LONGTEXT",
			"ALTER TABLE `users` MODIFY COLUMN `email` VARCHAR(320) NOT NULL",
			"ALTER TABLE `users` MODIFY COLUMN `name` LONGTEXT NOT NULL DEFAULT 'anon'",
			"ALTER TABLE `users` DROP COLUMN `age`",
		}, sqls(stmts))
	})
	t.Run("unchanged", func(t *testing.T) {
		t.Parallel()
		stmts, err := mustNew(t, dialect.Postgres).GenerateAlterTable(usersV1(id), usersV1(id))
		require.NoError(t, err)
		assert.Empty(t, stmts)
	})
	t.Run("renamed", func(t *testing.T) {
		t.Parallel()
		other := schema.MustDefineTable("accounts", []field.Builder{id()})
		_, err := mustNew(t, dialect.Postgres).GenerateAlterTable(usersV1(id), other)
		assert.True(t, dbkit.IsInvalidArgument(err))
	})
}

func TestGenerateAlterTable_Indexes(t *testing.T) {
	t.Parallel()

	id := func() *field.Column { return field.UUID("id").PrimaryKey() }
	from := usersV1(id, schema.Indexes(index.Fields("email").StorageKey("users_email")))
	to := usersV1(id, schema.Indexes(index.Fields("email").Unique().StorageKey("users_email"), index.Fields("name")))

	stmts, err := mustNew(t, dialect.Postgres).GenerateAlterTable(from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`DROP INDEX "users_email"`,
		`CREATE UNIQUE INDEX "users_email" ON "users" ("email")`,
		`CREATE INDEX "users_name_idx" ON "users" ("name")`,
	}, sqls(stmts))
	assert.Equal(t, adapter.StatementDrop, stmts[0].Type)

	stmts, err = mustNew(t, dialect.MariaDB).GenerateAlterTable(from, to)
	require.NoError(t, err)
	assert.Equal(t, "DROP INDEX `users_email` ON `users`", stmts[0].SQL)
}

func TestGenerateAlterTable_SQLiteRebuild(t *testing.T) {
	t.Parallel()

	id := func() *field.Column { return field.Integer("id").PrimaryKey() }
	a := mustNew(t, dialect.SQLite)
	stmts, err := a.GenerateAlterTable(usersV1(id), usersV2(id))
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0].SQL, `CREATE TABLE "_dbkit_new_users" (`)
	assert.Equal(t, `INSERT INTO "_dbkit_new_users" ("id", "email", "name") SELECT "id", "email", "name" FROM "users"`, stmts[1].SQL)
	assert.Equal(t, `DROP TABLE "users"`, stmts[2].SQL)
	assert.True(t, stmts[2].Destructive)
	assert.Equal(t, `ALTER TABLE "_dbkit_new_users" RENAME TO "users"`, stmts[3].SQL)

	path := filepath.Join(t.TempDir(), "app.db")
	db, err := stdsql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	create, err := a.GenerateCreateTable(usersV1(id))
	require.NoError(t, err)
	for _, s := range append(create, stmts...) {
		if s.Type == adapter.StatementCreate && s.Affects[0] == "users" {
			_, err = db.ExecContext(ctx, s.SQL)
			require.NoError(t, err, s.SQL)
			_, err = db.ExecContext(ctx, `INSERT INTO "users" ("id", "email", "name", "age") VALUES (1, 'a@example.com', 'ann', 30)`)
			require.NoError(t, err)
			continue
		}
		_, err = db.ExecContext(ctx, s.SQL)
		require.NoError(t, err, s.SQL)
	}

	var name string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT "name" FROM "users" WHERE "id" = 1`).Scan(&name))
	assert.Equal(t, "ann", name)

	b, err := a.Introspect(ctx, adapter.DSN(path))
	require.NoError(t, err)
	users, ok := b.Table("users")
	require.True(t, ok)
	col, ok := users.Column("name")
	require.True(t, ok)
	assert.True(t, col.NotNull)
	_, ok = users.Column("age")
	assert.False(t, ok)
	names, err := a.ListTables(ctx, adapter.DSN(path))
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, names)
}

func accountsV1() *schema.Table {
	return schema.MustDefineTable("accounts", []field.Builder{
		field.BigInt("id").PrimaryKey(),
		field.Varchar("email", 255).NotNull(),
		field.BigInt("org_id"),
		field.Integer("score"),
	})
}

func accountsV2() *schema.Table {
	return schema.MustDefineTable("accounts", []field.Builder{
		field.BigInt("id").PrimaryKey(),
		field.Varchar("email", 255).NotNull().Unique(),
		field.BigInt("org_id").References("orgs", "id"),
		field.Integer("score").CheckExpr("", "score >= 0"),
	}, schema.CheckConstraint("accounts_score_max", "score <= 100"))
}

func TestGenerateAlterTable_Constraints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dialect string
		add     []string
		drop    []string
	}{
		{
			dialect: dialect.Postgres,
			add: []string{
				`ALTER TABLE "accounts" ADD CONSTRAINT "accounts_email_key" UNIQUE ("email")`,
				`ALTER TABLE "accounts" ADD CONSTRAINT "accounts_score_check" CHECK (score >= 0)`,
				`ALTER TABLE "accounts" ADD CONSTRAINT "accounts_score_max" CHECK (score <= 100)`,
				`ALTER TABLE "accounts" ADD CONSTRAINT "accounts_org_id_fkey" FOREIGN KEY ("org_id") REFERENCES "orgs" ("id")`,
			},
			drop: []string{
				`ALTER TABLE "accounts" DROP CONSTRAINT "accounts_org_id_fkey"`,
				`ALTER TABLE "accounts" DROP CONSTRAINT "accounts_score_check"`,
				`ALTER TABLE "accounts" DROP CONSTRAINT "accounts_score_max"`,
				`ALTER TABLE "accounts" DROP CONSTRAINT "accounts_email_key"`,
			},
		},
		{
			dialect: dialect.MySQL,
			add: []string{
				"ALTER TABLE `accounts` ADD CONSTRAINT `email` UNIQUE (`email`)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_chk_1` CHECK (score >= 0)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_score_max` CHECK (score <= 100)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_org_id_fkey` FOREIGN KEY (`org_id`) REFERENCES `orgs` (`id`)",
			},
			drop: []string{
				"ALTER TABLE `accounts` DROP FOREIGN KEY `accounts_org_id_fkey`",
				"ALTER TABLE `accounts` DROP CHECK `accounts_chk_1`",
				"ALTER TABLE `accounts` DROP CHECK `accounts_score_max`",
				"ALTER TABLE `accounts` DROP INDEX `email`",
			},
		},
		{
			dialect: dialect.MariaDB,
			add: []string{
				"ALTER TABLE `accounts` ADD CONSTRAINT `email` UNIQUE (`email`)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_chk_1` CHECK (score >= 0)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_score_max` CHECK (score <= 100)",
				"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_org_id_fkey` FOREIGN KEY (`org_id`) REFERENCES `orgs` (`id`)",
			},
			drop: []string{
				"ALTER TABLE `accounts` DROP FOREIGN KEY `accounts_org_id_fkey`",
				"ALTER TABLE `accounts` DROP CONSTRAINT `accounts_chk_1`",
				"ALTER TABLE `accounts` DROP CONSTRAINT `accounts_score_max`",
				"ALTER TABLE `accounts` DROP INDEX `email`",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()
			a := mustNew(t, tt.dialect)
			stmts, err := a.GenerateAlterTable(accountsV1(), accountsV2())
			require.NoError(t, err)
			assert.Equal(t, tt.add, sqls(stmts))
			for _, s := range stmts {
				assert.Equal(t, adapter.StatementAlter, s.Type)
				assert.False(t, s.Destructive)
			}
			assert.Equal(t, []string{"accounts", "accounts_score_max"}, stmts[2].Affects)

			stmts, err = a.GenerateAlterTable(accountsV2(), accountsV1())
			require.NoError(t, err)
			assert.Equal(t, tt.drop, sqls(stmts))
			assert.Equal(t, adapter.StatementDrop, stmts[0].Type)

			stmts, err = a.GenerateAlterTable(accountsV2(), accountsV2())
			require.NoError(t, err)
			assert.Empty(t, stmts)
		})
	}
}

func TestGenerateAlterTable_PrimaryKey(t *testing.T) {
	t.Parallel()

	from := schema.MustDefineTable("memberships", []field.Builder{
		field.BigInt("user_id").PrimaryKey(),
		field.BigInt("org_id").NotNull(),
	})
	to := schema.MustDefineTable("memberships", []field.Builder{
		field.BigInt("user_id").NotNull(),
		field.BigInt("org_id").NotNull(),
	}, schema.PrimaryKey("user_id", "org_id"))

	tests := []struct {
		dialect string
		want    []string
	}{
		{
			dialect: dialect.Postgres,
			want: []string{
				`ALTER TABLE "memberships" DROP CONSTRAINT "memberships_pkey"`,
				`ALTER TABLE "memberships" ADD CONSTRAINT "memberships_pkey" PRIMARY KEY ("user_id", "org_id")`,
			},
		},
		{
			dialect: dialect.CRDB,
			want:    []string{`ALTER TABLE "memberships" ALTER PRIMARY KEY USING COLUMNS ("user_id", "org_id")`},
		},
		{
			dialect: dialect.MySQL,
			want: []string{
				"ALTER TABLE `memberships` DROP PRIMARY KEY",
				"ALTER TABLE `memberships` ADD PRIMARY KEY (`user_id`, `org_id`)",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()
			stmts, err := mustNew(t, tt.dialect).GenerateAlterTable(from, to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sqls(stmts))
		})
	}
}

func TestGenerateAlterTable_AddedColumnConstraints(t *testing.T) {
	t.Parallel()

	from := accountsV1()
	to := schema.MustDefineTable("accounts", []field.Builder{
		field.BigInt("id").PrimaryKey(),
		field.Varchar("email", 255).NotNull(),
		field.BigInt("org_id"),
		field.Integer("score"),
		field.Varchar("handle", 32).Unique(),
		field.BigInt("team_id").References("teams", "id"),
	})

	stmts, err := mustNew(t, dialect.Postgres).GenerateAlterTable(from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`ALTER TABLE "accounts" ADD COLUMN "handle" VARCHAR(32) UNIQUE`,
		`ALTER TABLE "accounts" ADD COLUMN "team_id" BIGINT REFERENCES "teams" ("id")`,
	}, sqls(stmts))

	stmts, err = mustNew(t, dialect.MySQL).GenerateAlterTable(from, to)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ALTER TABLE `accounts` ADD COLUMN `handle` VARCHAR(32) UNIQUE",
		"ALTER TABLE `accounts` ADD COLUMN `team_id` BIGINT",
		"ALTER TABLE `accounts` ADD CONSTRAINT `accounts_team_id_fkey` FOREIGN KEY (`team_id`) REFERENCES `teams` (`id`)",
	}, sqls(stmts))

	stmts, err = mustNew(t, dialect.SQLite).GenerateAlterTable(from, to)
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0].SQL, `"handle" TEXT UNIQUE`)
}

func TestGenerateAlterTable_SQLiteConstraints(t *testing.T) {
	t.Parallel()

	a := mustNew(t, dialect.SQLite)
	stmts, err := a.GenerateAlterTable(accountsV1(), accountsV2())
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0].SQL, `"email" TEXT NOT NULL UNIQUE`)
	assert.Contains(t, stmts[0].SQL, `CHECK (score <= 100)`)
	assert.False(t, stmts[2].Destructive)

	db, err := stdsql.Open("sqlite", filepath.Join(t.TempDir(), "accounts.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	create, err := a.GenerateCreateTable(accountsV1())
	require.NoError(t, err)
	for _, s := range append(create, stmts...) {
		_, err = db.ExecContext(ctx, s.SQL)
		require.NoError(t, err, s.SQL)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO "accounts" ("id", "email", "score") VALUES (1, 'a@example.com', 10)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO "accounts" ("id", "email", "score") VALUES (2, 'a@example.com', 20)`)
	assert.ErrorContains(t, err, "UNIQUE")
	_, err = db.ExecContext(ctx, `INSERT INTO "accounts" ("id", "email", "score") VALUES (3, 'b@example.com', 200)`)
	assert.ErrorContains(t, err, "CHECK")
}

func TestGenerateDropTable(t *testing.T) {
	t.Parallel()

	opts := adapter.DropOptions{IfExists: true, Cascade: true}
	s := mustNew(t, dialect.Postgres).GenerateDropTable("public.users", opts)
	assert.Equal(t, `DROP TABLE IF EXISTS "public"."users" CASCADE`, s.SQL)
	assert.True(t, s.Destructive)
	assert.Equal(t, adapter.StatementDrop, s.Type)
	assert.Equal(t, "DROP TABLE IF EXISTS `users`", mustNew(t, dialect.MySQL).GenerateDropTable("users", opts).SQL)
	assert.Equal(t, `DROP TABLE "users"`, mustNew(t, dialect.SQLite).GenerateDropTable("users", adapter.DropOptions{Cascade: true}).SQL)
}

func TestGetMigrationTableDDL(t *testing.T) {
	t.Parallel()

	const (
		pgCols     = `"name" VARCHAR(255) NOT NULL, "filename" VARCHAR(255) NOT NULL, "hash" VARCHAR(64) NOT NULL, "batch" INTEGER NOT NULL, "applied_at" TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(), "execution_time_ms" INTEGER NOT NULL DEFAULT 0, `
		pgTail     = `"sql_up" TEXT, "sql_down" TEXT, "source" VARCHAR(32)`
		mysqlCols  = "`name` VARCHAR(255) NOT NULL, `filename` VARCHAR(255) NOT NULL, `hash` VARCHAR(64) NOT NULL, `batch` INT NOT NULL, `applied_at` TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, `execution_time_ms` INT NOT NULL DEFAULT 0, `metadata` JSON, `sql_up` LONGTEXT, `sql_down` LONGTEXT, `source` VARCHAR(32)"
		sqliteCols = `"name" TEXT NOT NULL, "filename" TEXT NOT NULL, "hash" TEXT NOT NULL, "batch" INTEGER NOT NULL, "applied_at" TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP, "execution_time_ms" INTEGER NOT NULL DEFAULT 0, "metadata" TEXT, "sql_up" TEXT, "sql_down" TEXT, "source" TEXT`
	)
	tests := []struct {
		dialect string
		table   string
		want    string
	}{
		{
			dialect: dialect.Postgres,
			want:    `CREATE TABLE IF NOT EXISTS "__dbkit_migrations" ("id" SERIAL PRIMARY KEY, ` + pgCols + `"metadata" JSON, ` + pgTail + `)`,
		},
		{
			dialect: dialect.CRDB,
			want:    `CREATE TABLE IF NOT EXISTS "__dbkit_migrations" ("id" SERIAL PRIMARY KEY, ` + pgCols + `"metadata" JSON, ` + pgTail + `)`,
		},
		{
			dialect: dialect.DSQL,
			table:   "schema_history",
			want:    `CREATE TABLE IF NOT EXISTS "schema_history" ("id" UUID PRIMARY KEY DEFAULT gen_random_uuid(), ` + pgCols + `"metadata" TEXT, ` + pgTail + `)`,
		},
		{
			dialect: dialect.MySQL,
			want:    "CREATE TABLE IF NOT EXISTS `__dbkit_migrations` (`id` BIGINT PRIMARY KEY AUTO_INCREMENT, " + mysqlCols + ") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci",
		},
		{
			dialect: dialect.SQLite,
			want:    `CREATE TABLE IF NOT EXISTS "__dbkit_migrations" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, ` + sqliteCols + `)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			t.Parallel()
			got, err := mustNew(t, tt.dialect).GetMigrationTableDDL(tt.table)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetMigrationTableDDL_SQLite(t *testing.T) {
	t.Parallel()

	ddl, err := mustNew(t, dialect.SQLite).GetMigrationTableDDL("")
	require.NoError(t, err)
	db, err := stdsql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	_, err = db.ExecContext(ctx, ddl)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO "__dbkit_migrations" ("name", "filename", "hash", "batch", "metadata") VALUES ('init', '0001_init.sql', 'abc', 1, '{}')`)
	require.NoError(t, err)

	var (
		id, ms    int64
		appliedAt string
	)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT "id", "applied_at", "execution_time_ms" FROM "__dbkit_migrations"`).Scan(&id, &appliedAt, &ms))
	assert.Equal(t, int64(1), id)
	assert.NotEmpty(t, appliedAt)
	assert.Zero(t, ms)
}
