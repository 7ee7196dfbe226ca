package schema

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
	dbschema "github.com/syssam/dbkit/schema"
)

// Status is the state of an introspection step reported to a ProgressFunc.
type Status string

// Step states.
const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Introspection steps, in the order they run.
const (
	StepTables      = "tables"
	StepColumns     = "columns"
	StepConstraints = "constraints"
	StepIndexes     = "indexes"
	StepChecks      = "checks"
	StepEnums       = "enums"
	StepDomains     = "domains"
	StepSequences   = "sequences"
	StepComposites  = "composites"
	StepExtensions  = "extensions"
	StepFunctions   = "functions"
	StepTriggers    = "triggers"
	StepCollations  = "collations"
)

// ProgressFunc observes introspection. It is called before each step with
// StatusRunning and after it with the number of catalog rows read.
type ProgressFunc func(step string, count int, status Status)

// Option configures an Inspector.
type Option func(*options)

type options struct {
	schema     string
	tables     []string
	progress   ProgressFunc
	logger     *slog.Logger
	stats      *sql.StatsRecorder
	functions  bool
	triggers   bool
	collations bool
}

// WithSchema sets the database schema to inspect. It defaults to public on
// Postgres, the connected database on MySQL and main on SQLite.
func WithSchema(name string) Option {
	return func(o *options) { o.schema = name }
}

// WithTables limits introspection to the named tables.
func WithTables(names ...string) Option {
	return func(o *options) { o.tables = append(o.tables, names...) }
}

// WithProgress sets the progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithStats records the catalog queries on r.
func WithStats(r *sql.StatsRecorder) Option {
	return func(o *options) { o.stats = r }
}

// WithLogger sets the logger used for step debug logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFunctions includes user-defined functions.
func WithFunctions() Option {
	return func(o *options) { o.functions = true }
}

// WithTriggers includes triggers.
func WithTriggers() Option {
	return func(o *options) { o.triggers = true }
}

// WithCollations includes user-defined collations.
func WithCollations() Option {
	return func(o *options) { o.collations = true }
}

// querier is implemented by *sql.Conn, *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*stdsql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *stdsql.Row
}

// step is one catalog query and its mapping into the bundle.
type step struct {
	name string
	run  func(context.Context, *state) (int, error)
}

// catalog is the set of catalog queries of a dialect family.
type catalog interface {
	// defaultSchema resolves the schema to inspect when none is set.
	defaultSchema(context.Context, querier) (string, error)
	steps(*options) []step
	version(context.Context, querier) (string, error)
	schemas(context.Context, querier) ([]string, error)
	tables(context.Context, *state) (int, error)
}

// state is the bundle under construction.
type state struct {
	q      querier
	info   dialect.Info
	schema string
	only   map[string]bool
	bundle *dbschema.Bundle
	byName map[string]*dbschema.Table
	ddl    map[string]string // CREATE TABLE statements, SQLite only.
}

// table returns the introspected table with the given name, or nil when
// it was filtered out.
func (s *state) table(name string) *dbschema.Table {
	return s.byName[name]
}

// addTable registers a table found by the tables step.
func (s *state) addTable(t *dbschema.Table) bool {
	if len(s.only) > 0 && !s.only[t.Name] {
		return false
	}
	t.Schema = s.schema
	s.bundle.Tables = append(s.bundle.Tables, t)
	s.byName[t.Name] = t
	return true
}

// Inspector reads a live database schema into a schema.Bundle.
type Inspector struct {
	db      *stdsql.DB
	info    dialect.Info
	catalog catalog
	opts    options
}

// NewInspector returns an inspector for the database.
//
//	insp, err := schema.NewInspector(db, dialect.Postgres, schema.WithProgress(fn))
//	bundle, err := insp.Inspect(ctx)
func NewInspector(db *stdsql.DB, dialectName string, opts ...Option) (*Inspector, error) {
	info, ok := dialect.Lookup(dialectName)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("schema.NewInspector", dialectName, "unknown dialect")
	}
	if db == nil {
		return nil, dbkit.NewInvalidArgumentError("schema.NewInspector", "db", "database handle is required")
	}
	i := &Inspector{db: db, info: info, opts: options{logger: slog.Default()}}
	for _, opt := range opts {
		opt(&i.opts)
	}
	switch info.Family {
	case dialect.FamilyMySQL:
		i.catalog = mysqlCatalog{}
	case dialect.FamilySQLite:
		i.catalog = sqliteCatalog{}
	default:
		i.catalog = postgresCatalog{crdb: info.Name == dialect.CRDB}
	}
	return i, nil
}

// Dialect returns the dialect of the inspected database.
func (i *Inspector) Dialect() string { return i.info.Name }

// Inspect reads all tables and schema objects. Steps run sequentially on a
// single connection, which is released before Inspect returns. The first
// failing step aborts introspection and no partial bundle is returned.
func (i *Inspector) Inspect(ctx context.Context) (*dbschema.Bundle, error) {
	return i.inspect(ctx, i.opts.tables, i.catalog.steps(&i.opts))
}

// InspectTable reads a single table.
func (i *Inspector) InspectTable(ctx context.Context, name string) (*dbschema.Table, error) {
	b, err := i.inspect(ctx, []string{name}, tableSteps(i.catalog.steps(&i.opts)))
	if err != nil {
		return nil, err
	}
	t, ok := b.Table(name)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("schema.InspectTable", name, "table not found")
	}
	return t, nil
}

// ListTables returns the table names of the schema, sorted.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := i.withConn(ctx, StepTables, func(conn *stdsql.Conn) error {
		s, err := i.newState(ctx, conn, i.opts.tables)
		if err != nil {
			return err
		}
		if _, err := i.catalog.tables(ctx, s); err != nil {
			return err
		}
		for _, t := range s.bundle.Tables {
			names = append(names, t.Name)
		}
		return nil
	})
	return names, err
}

// ListSchemas returns the user schemas (databases on MySQL) of the server.
func (i *Inspector) ListSchemas(ctx context.Context) ([]string, error) {
	var names []string
	err := i.withConn(ctx, "schemas", func(conn *stdsql.Conn) (err error) {
		names, err = i.catalog.schemas(ctx, i.querier(conn))
		return err
	})
	return names, err
}

// Version returns the server version string.
func (i *Inspector) Version(ctx context.Context) (string, error) {
	var v string
	err := i.withConn(ctx, "version", func(conn *stdsql.Conn) (err error) {
		v, err = i.catalog.version(ctx, i.querier(conn))
		return err
	})
	return v, err
}

func (i *Inspector) inspect(ctx context.Context, tables []string, steps []step) (*dbschema.Bundle, error) {
	var b *dbschema.Bundle
	err := i.withConn(ctx, "", func(conn *stdsql.Conn) error {
		s, err := i.newState(ctx, conn, tables)
		if err != nil {
			return err
		}
		if s.bundle.Version, err = i.catalog.version(ctx, i.querier(conn)); err != nil {
			return i.catalogErr("version", err)
		}
		for _, st := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			i.report(st.name, 0, StatusRunning)
			start := time.Now()
			n, err := st.run(ctx, s)
			if err != nil {
				i.report(st.name, n, StatusFailed)
				return i.catalogErr(st.name, err)
			}
			i.opts.logger.DebugContext(ctx, "introspect step",
				"dialect", i.info.Name, "step", st.name, "count", n, "duration", time.Since(start))
			i.report(st.name, n, StatusDone)
		}
		b = s.bundle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (i *Inspector) newState(ctx context.Context, conn *stdsql.Conn, tables []string) (*state, error) {
	name := i.opts.schema
	if name == "" {
		var err error
		if name, err = i.catalog.defaultSchema(ctx, i.querier(conn)); err != nil {
			return nil, i.catalogErr("schema", err)
		}
	}
	s := &state{
		q:      i.querier(conn),
		info:   i.info,
		schema: name,
		bundle: &dbschema.Bundle{Name: name},
		byName: make(map[string]*dbschema.Table),
		ddl:    make(map[string]string),
	}
	if len(tables) > 0 {
		s.only = make(map[string]bool, len(tables))
		for _, t := range tables {
			s.only[t] = true
		}
	}
	return s, nil
}

// querier returns conn, recording its queries when stats are enabled.
func (i *Inspector) querier(conn *stdsql.Conn) querier {
	if i.opts.stats == nil {
		return conn
	}
	return i.opts.stats.Wrap(conn)
}

// withConn runs fn on a dedicated connection and releases it on every
// exit path.
func (i *Inspector) withConn(ctx context.Context, stepName string, fn func(*stdsql.Conn) error) error {
	conn, err := i.db.Conn(ctx)
	if err != nil {
		return i.catalogErr("connect", err)
	}
	err = fn(conn)
	if cerr := conn.Close(); cerr != nil && err == nil {
		err = i.catalogErr("release", cerr)
	}
	if err != nil && stepName != "" && !dbkit.IsCatalogError(err) && ctx.Err() == nil {
		err = i.catalogErr(stepName, err)
	}
	return err
}

func (i *Inspector) report(stepName string, n int, status Status) {
	if i.opts.progress != nil {
		i.opts.progress(stepName, n, status)
	}
}

func (i *Inspector) catalogErr(stepName string, err error) error {
	if dbkit.IsCatalogError(err) {
		return err
	}
	e := dbkit.NewCatalogError(i.info.Name, stepName, err)
	e.SQLState = sql.SQLState(err)
	return e
}

// tableSteps keeps the steps that build tables.
func tableSteps(steps []step) []step {
	keep := make([]step, 0, len(steps))
	for _, s := range steps {
		switch s.name {
		case StepTables, StepColumns, StepConstraints, StepIndexes, StepChecks:
			keep = append(keep, s)
		}
	}
	return keep
}

// query runs a squirrel query and calls scan for each row.
func query(ctx context.Context, q querier, b sq.Sqlizer, scan func(*stdsql.Rows) error) (int, error) {
	text, args, err := b.ToSql()
	if err != nil {
		return 0, err
	}
	return queryRaw(ctx, q, text, args, scan)
}

func queryRaw(ctx context.Context, q querier, text string, args []any, scan func(*stdsql.Rows) error) (n int, err error) {
	rows, err := q.QueryContext(ctx, text, args...)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return n, fmt.Errorf("scan row %d: %w", n, err)
		}
		n++
	}
	return n, rows.Err()
}

// scalar reads a single string value.
func scalar(ctx context.Context, q querier, text string) (string, error) {
	var v string
	if err := q.QueryRowContext(ctx, text).Scan(&v); err != nil {
		return "", err
	}
	return v, nil
}
