// Package sql provides the SQL text primitives and database/sql plumbing
// shared by the dbkit dialects.
//
// # Formatting
//
// A Formatter quotes identifiers and formats literals for one dialect:
//
//	f := sql.NewFormatter(dialect.Postgres)
//	f.Ident("user")                    // "user"
//	f.QualifiedIdent("app", "users")   // "app"."users"
//	f.Literal("it's")                  // 'it''s'
//	f.Literal([]int{1, 2})             // ARRAY[1, 2]
//
// Format renders templates in the style of the Postgres format() function:
//
//	f.Format("ALTER TABLE %I ADD COLUMN %I TEXT DEFAULT %L", "users", "bio", "n/a")
//
// Values wrapped with Raw, and any Renderer, are emitted verbatim:
//
//	f.Literal(sql.Raw("now()")) // now()
//
// # Placeholders
//
// The Postgres family uses $N placeholders, the MySQL and SQLite families
// use ?. Rebind converts a query written with ? to the dialect style:
//
//	q, _ := sql.Rebind(dialect.CRDB, "SELECT * FROM t WHERE a = ? AND b = ?")
//	// SELECT * FROM t WHERE a = $1 AND b = $2
//
// # Drivers
//
// Open returns a Driver over the registered database/sql driver of a
// dialect, or a DriverNotFoundError telling how to register it:
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//
// Session settings attached with WithSetting are applied with SET before
// each statement and reset before the connection returns to the pool.
// WithTenant scopes Nile statements to a tenant:
//
//	ctx = sql.WithTenant(ctx, tenantID)
//	err = drv.Query(ctx, "SELECT * FROM todos", []any{}, &rows)
//
// SQLite and Turso have no session settings and reject them.
//
// A StatsRecorder counts statements and their durations. StatsDriver
// records the statements of a Driver, StatsQuerier those of a plain
// database/sql handle. WithSlowQueryLog logs slow statements through slog.
//
// # Pools
//
// PoolManager keeps one reference-counted *sql.DB per connection. Pools
// left without references are closed by Sweep once idle longer than the
// idle timeout:
//
//	m := sql.NewPoolManager(sql.WithPoolLimits(cfg.Pool.Limits()))
//	defer m.Close()
//	err := m.WithTransaction(ctx, dialect.Postgres, dsn, func(ctx context.Context, tx *stdsql.Tx) error {
//		_, err := tx.ExecContext(ctx, ddl)
//		return err
//	})
//
// WithTransaction commits when fn returns nil and rolls back otherwise.
//
// # Errors
//
// SQLState extracts the SQLSTATE code of pgx, lib/pq and MySQL errors.
// IsRetryable reports serialization failures and deadlocks, which callers
// may retry; dbkit never retries on its own.
package sql
