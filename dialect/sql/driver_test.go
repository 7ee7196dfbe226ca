package sql

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

func mockDriver(t *testing.T, name string) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.SetMaxOpenConns(1)
	return OpenDB(name, db), mock
}

func TestDriver_QuerySettings(t *testing.T) {
	t.Parallel()
	tenant := uuid.MustParse("018f2d6e-7a3b-7c1d-9e4f-5a6b7c8d9e0f")
	tests := []struct {
		name    string
		dialect string
		ctx     context.Context
		set     []string
		reset   []string
	}{
		{
			name:    "postgres",
			dialect: dialect.Postgres,
			ctx:     WithSetting(context.Background(), "search_path", "app"),
			set:     []string{"SET search_path = 'app'"},
			reset:   []string{"RESET search_path"},
		},
		{
			name:    "overridden once reset",
			dialect: dialect.CRDB,
			ctx:     WithSetting(WithSetting(context.Background(), "application_name", "a"), "application_name", "b"),
			set:     []string{"SET application_name = 'a'", "SET application_name = 'b'"},
			reset:   []string{"RESET application_name"},
		},
		{
			name:    "nile tenant",
			dialect: dialect.Nile,
			ctx:     WithTenant(context.Background(), tenant),
			set:     []string{"SET nile.tenant_id = '018f2d6e-7a3b-7c1d-9e4f-5a6b7c8d9e0f'"},
			reset:   []string{"RESET nile.tenant_id"},
		},
		{
			name:    "postgres timeout",
			dialect: dialect.Postgres,
			ctx:     WithStatementTimeout(context.Background(), 5*time.Second),
			set:     []string{"SET statement_timeout = 5000"},
			reset:   []string{"RESET statement_timeout"},
		},
		{
			name:    "mysql timeout",
			dialect: dialect.MySQL,
			ctx:     WithStatementTimeout(context.Background(), 1500*time.Millisecond),
			set:     []string{"SET SESSION max_execution_time = 1500"},
			reset:   []string{"SET SESSION max_execution_time = DEFAULT"},
		},
		{
			name:    "mariadb escaping",
			dialect: dialect.MariaDB,
			ctx:     WithSetting(context.Background(), "sql_mode", `it's \ ok`),
			set:     []string{`SET SESSION sql_mode = 'it''s \\ ok'`},
			reset:   []string{"SET SESSION sql_mode = DEFAULT"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			drv, mock := mockDriver(t, tt.dialect)
			for _, q := range tt.set {
				mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
			}
			mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
			for _, q := range tt.reset {
				mock.ExpectExec(q).WillReturnResult(sqlmock.NewResult(0, 0))
			}
			rows := &Rows{}
			require.NoError(t, drv.Query(tt.ctx, "SELECT 1", []any{}, rows))
			require.True(t, rows.Next())
			require.NoError(t, rows.Close())
			require.NoError(t, rows.Close(), "closing twice releases once")
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDriver_ExecSettings(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	ctx := WithSetting(context.Background(), "lock_timeout", "2s")
	mock.ExpectExec("SET lock_timeout = '2s'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX idx ON t (a)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, drv.Exec(ctx, "CREATE INDEX idx ON t (a)", []any{}, nil))

	mock.ExpectExec("SET lock_timeout = '2s'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX idx ON t (a)").WillReturnError(errors.New("lock timeout"))
	mock.ExpectExec("RESET lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
	err := drv.Exec(ctx, "CREATE INDEX idx ON t (a)", []any{}, nil)
	require.ErrorContains(t, err, "lock timeout")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_TxSettings(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectBegin()
	mock.ExpectExec("SET search_path = 'tenant_a'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	rows := &Rows{}
	require.NoError(t, tx.Query(WithSetting(context.Background(), "search_path", "tenant_a"), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_SettingErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		dialect string
		setting string
		reason  string
	}{
		{name: "sqlite", dialect: dialect.SQLite, setting: "foreign_keys", reason: "not supported by SQLite"},
		{name: "turso", dialect: dialect.Turso, setting: "foreign_keys", reason: "not supported by Turso"},
		{name: "injection", dialect: dialect.Postgres, setting: "x = 1; DROP TABLE users; --", reason: "invalid setting name"},
		{name: "three parts", dialect: dialect.Postgres, setting: "a.b.c", reason: "invalid setting name"},
		{name: "leading digit", dialect: dialect.Postgres, setting: "1abc", reason: "invalid setting name"},
		{name: "mysql qualified", dialect: dialect.MySQL, setting: "nile.tenant_id", reason: "qualified names"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			drv, mock := mockDriver(t, tt.dialect)
			ctx := WithSetting(context.Background(), tt.setting, "v")
			err := drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
			require.Error(t, err)
			assert.True(t, dbkit.IsInvalidArgument(err))
			assert.ErrorContains(t, err, tt.reason)
			require.NoError(t, mock.ExpectationsWereMet(), "no statement may reach the database")
		})
	}
}

func TestDriver_SettingValuerError(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Nile)
	ctx := WithSetting(context.Background(), NileTenantSetting, failingValuer{})
	err := drv.Exec(ctx, "DELETE FROM todos", []any{}, nil)
	assert.ErrorContains(t, err, "no key loaded")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_SetFailureReleases(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	mock.ExpectExec("SET search_path = 'x'").WillReturnError(errors.New("permission denied"))
	mock.ExpectExec("RESET search_path").WillReturnResult(sqlmock.NewResult(0, 0))
	err := drv.Query(WithSetting(context.Background(), "search_path", "x"), "SELECT 1", []any{}, &Rows{})
	require.ErrorContains(t, err, "permission denied")
	require.NoError(t, mock.ExpectationsWereMet())

	// The single pooled connection must be available again.
	mock.ExpectQuery("SELECT 2").WillReturnRows(sqlmock.NewRows([]string{"2"}).AddRow(2))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 2", []any{}, rows))
	require.NoError(t, rows.Close())
}

func TestSettingFromContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, ok := SettingFromContext(ctx, "a")
	assert.False(t, ok)

	base := WithSetting(ctx, "a", "1")
	derived := WithSetting(base, "a", "2")
	v, ok := SettingFromContext(derived, "a")
	require.True(t, ok)
	assert.Equal(t, "2", v)
	v, _ = SettingFromContext(base, "a")
	assert.Equal(t, "1", v, "deriving a context must not mutate its parent")

	v, ok = SettingFromContext(WithStatementTimeout(ctx, time.Minute), "statement_timeout")
	require.True(t, ok)
	assert.Equal(t, int64(60000), v)
}

func TestDriver_ExecResult(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectExec("INSERT INTO users (name) VALUES (?)").
		WithArgs("a8m").
		WillReturnResult(sqlmock.NewResult(7, 1))
	var res Result
	require.NoError(t, drv.Exec(context.Background(), "INSERT INTO users (name) VALUES (?)", []any{"a8m"}, &res))
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	mock.ExpectExec("DELETE FROM users").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", nil, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_ArgumentTypes(t *testing.T) {
	t.Parallel()
	drv, _ := mockDriver(t, dialect.Postgres)
	ctx := context.Background()
	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"exec args", func() error { return drv.Exec(ctx, "SELECT 1", []string{"a"}, nil) }, "unexpected args type []string"},
		{"exec result", func() error { return drv.Exec(ctx, "SELECT 1", nil, new(int)) }, "unexpected result type *int"},
		{"query rows", func() error { return drv.Query(ctx, "SELECT 1", nil, new(sql.Rows)) }, "unexpected rows type *sql.Rows"},
		{"query args", func() error { return drv.Query(ctx, "SELECT 1", 1, &Rows{}) }, "unexpected args type int"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorContains(t, tt.run(), tt.want)
		})
	}
}

func TestDriver_Transaction(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance = balance - $1 WHERE id = $2").
		WithArgs(10, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	tx, err := drv.BeginTx(context.Background(), &TxOptions{})
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "UPDATE accounts SET balance = balance - $1 WHERE id = $2", []any{10, 1}, nil))
	require.NoError(t, tx.Commit())

	mock.ExpectBegin()
	mock.ExpectRollback()
	tx, err = drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))
	_, err = drv.Tx(context.Background())
	require.ErrorContains(t, err, "dbkit: sql: begin: too many connections")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriver_Cancellation(t *testing.T) {
	t.Parallel()
	drv, mock := mockDriver(t, dialect.Postgres)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock.ExpectQuery("SELECT pg_sleep(10)").WillDelayFor(time.Second)
	err := drv.Query(ctx, "SELECT pg_sleep(10)", []any{}, &Rows{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestOpenDB_Dialect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
	}{
		{dialect.Postgres, dialect.Postgres},
		{"cockroachdb", dialect.CRDB},
		{"aurora-dsql", dialect.DSQL},
		{"sqlite3", dialect.SQLite},
		{"libsql", dialect.Turso},
		{"MySQL", dialect.MySQL},
		{"custom", "custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			require.NoError(t, err)
			defer db.Close()
			drv := OpenDB(tt.name, db)
			assert.Equal(t, tt.want, drv.Dialect())
			assert.Same(t, db, drv.DB())
			mock.ExpectPing()
			require.NoError(t, drv.Ping(context.Background()))
			mock.ExpectClose()
			require.NoError(t, drv.Close())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	_, err := Open("oracle", "")
	require.Error(t, err)
	assert.True(t, dbkit.IsInvalidArgument(err))

	_, err = Open(dialect.Turso, "libsql://db.turso.io")
	require.Error(t, err)
	require.True(t, dbkit.IsDriverNotFound(err))
	var nf *dbkit.DriverNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "libsql", nf.Driver)
	assert.Contains(t, nf.Install, "libsql-client-go")

	// sqlmock registers itself under "sqlmock", never under a dialect driver name.
	assert.True(t, DriverRegistered("sqlmock"))
	assert.False(t, DriverRegistered("libsql"))
}

func TestInstallHint(t *testing.T) {
	t.Parallel()
	for _, info := range []dialect.Info{dialect.MustLookup(dialect.Nile), dialect.MustLookup(dialect.MariaDB), dialect.MustLookup(dialect.SQLite)} {
		assert.Contains(t, installHint(info.DriverName), "import _")
	}
	assert.Equal(t, `register a database/sql driver named "odbc"`, installHint("odbc"))
}
