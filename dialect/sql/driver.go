package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

// Driver runs statements of one dialect over a database/sql handle.
type Driver struct {
	Conn
	dialect string
}

var _ dialect.Driver = (*Driver)(nil)

// NewDriver returns a Driver running statements on c.
func NewDriver(name string, c Conn) *Driver {
	return &Driver{Conn: c, dialect: name}
}

// Open resolves the database/sql driver of the named dialect and opens a
// handle to source. Dialects share drivers within a family, e.g. CRDB and
// Nile connect through the pgx driver.
func Open(name, source string) (*Driver, error) {
	info, ok := dialect.Lookup(name)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("sql.Open", name, "unknown dialect")
	}
	if !DriverRegistered(info.DriverName) {
		return nil, dbkit.NewDriverNotFoundError(info.Name, info.DriverName, installHint(info.DriverName))
	}
	db, err := sql.Open(info.DriverName, source)
	if err != nil {
		return nil, fmt.Errorf("dbkit: sql: open %s: %w", info.Name, err)
	}
	return OpenDB(info.Name, db), nil
}

// OpenDB returns a Driver over an opened *sql.DB. Dialect aliases are
// resolved; unknown names are kept as given.
func OpenDB(name string, db *sql.DB) *Driver {
	if n, ok := dialect.Normalize(name); ok {
		name = n
	}
	return NewDriver(name, Conn{ExecQuerier: db, dialect: name})
}

// DriverRegistered reports whether a database/sql driver is registered
// under the given name.
func DriverRegistered(name string) bool {
	return slices.Contains(sql.Drivers(), name)
}

var installHints = map[string]string{
	"pgx":    `import _ "github.com/jackc/pgx/v5/stdlib"`,
	"mysql":  `import _ "github.com/go-sql-driver/mysql"`,
	"sqlite": `import _ "modernc.org/sqlite"`,
	"libsql": `import _ "github.com/tursodatabase/libsql-client-go/libsql"`,
}

func installHint(driverName string) string {
	if h, ok := installHints[driverName]; ok {
		return h
	}
	return fmt.Sprintf("register a database/sql driver named %q", driverName)
}

// DB returns the *sql.DB the driver was opened with.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the canonical dialect name of the driver.
func (d *Driver) Dialect() string { return d.dialect }

// Ping checks that the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	return d.DB().PingContext(ctx)
}

// Tx begins a transaction with the default options.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx begins a transaction. Statements run on the returned Tx honor
// the session settings of their own context.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("dbkit: sql: begin: %w", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect}, Tx: tx}, nil
}

// Close closes the underlying *sql.DB.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction of a Driver.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec runs a statement that returns no rows. args must be a []any and
// v either nil or a *Result receiving the outcome.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (err error) {
	argv, err := argsOf(args)
	if err != nil {
		return err
	}
	res, ok := v.(*Result)
	if v != nil && !ok {
		return fmt.Errorf("dbkit: sql: exec: unexpected result type %T, want *sql.Result", v)
	}
	s, err := c.applySettings(ctx)
	if err != nil {
		return fmt.Errorf("dbkit: sql: exec: %w", err)
	}
	defer func() { err = errors.Join(err, s.close()) }()
	r, err := s.ExecContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dbkit: sql: exec: %w", err)
	}
	if res != nil {
		*res = r
	}
	return nil
}

// Query runs a statement that returns rows into v, which must be a *Rows.
// The caller closes the rows; closing them also releases the connection
// pinned for session settings.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	rows, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dbkit: sql: query: unexpected rows type %T, want *sql.Rows", v)
	}
	argv, err := argsOf(args)
	if err != nil {
		return err
	}
	s, err := c.applySettings(ctx)
	if err != nil {
		return fmt.Errorf("dbkit: sql: query: %w", err)
	}
	r, err := s.QueryContext(ctx, query, argv...)
	if err != nil {
		return fmt.Errorf("dbkit: sql: query: %w", errors.Join(err, s.close()))
	}
	rows.ColumnScanner = r
	if s.release != nil {
		rows.ColumnScanner = releasingRows{ColumnScanner: r, release: s.release}
	}
	return nil
}

func argsOf(args any) ([]any, error) {
	switch a := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return a, nil
	default:
		return nil, fmt.Errorf("dbkit: sql: unexpected args type %T, want []any", args)
	}
}

type (
	// Result is the outcome of Exec.
	Result = sql.Result
	// TxOptions configures BeginTx.
	TxOptions = sql.TxOptions
	// Rows holds the result of Query. It wraps the scanner so that
	// *sql.Rows is never copied.
	Rows struct{ ColumnScanner }
)

// ColumnScanner is the row iteration API of *sql.Rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// releasingRows releases the pinned connection once the rows are closed.
type releasingRows struct {
	ColumnScanner
	release func() error
}

func (r releasingRows) Close() error {
	return errors.Join(r.ColumnScanner.Close(), r.release())
}
