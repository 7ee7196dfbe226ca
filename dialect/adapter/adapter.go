package adapter

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/compat"
	"github.com/syssam/dbkit/dialect/sql"
	inspect "github.com/syssam/dbkit/dialect/sql/schema"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
	"github.com/syssam/dbkit/schema/index"
)

// DefaultMigrationTable is the name of the table recording applied
// migrations.
const DefaultMigrationTable = "__dbkit_migrations"

// StatementType classifies a generated statement.
type StatementType string

// Statement types.
const (
	StatementCreate StatementType = "CREATE"
	StatementAlter  StatementType = "ALTER"
	StatementDrop   StatementType = "DROP"
)

// Statement is a generated DDL statement.
type Statement struct {
	SQL  string
	Type StatementType
	// Destructive reports whether the statement may lose data.
	Destructive bool
	// Affects lists the touched objects: table names, table.column pairs
	// and index names.
	Affects []string
}

// DropOptions configures GenerateDropTable. Cascade is ignored outside the
// Postgres family.
type DropOptions struct {
	IfExists bool
	Cascade  bool
}

// Source describes how to reach a database.
type Source interface {
	DSN(dialectName string) (string, error)
}

// DSN is a Source given as a data source name or URL.
type DSN string

// DSN implements Source.
func (d DSN) DSN(string) (string, error) { return string(d), nil }

// GoField describes the Go struct field of a column.
type GoField struct {
	Name string
	Type string
	Tag  string
}

// Adapter is the uniform view of a dialect: its identity, capabilities,
// DDL generation, introspection, validation and type mapping.
type Adapter interface {
	// Info returns the dialect identity.
	Info() dialect.Info

	// IsTypeSupported reports whether a column type can be used as is.
	IsTypeSupported(typ string) bool
	// GetAlternative returns the suggested replacement of an unsupported
	// feature such as "sequence" or "trigger".
	GetAlternative(feature string) (string, bool)
	// GetAlternativeType returns the suggested replacement of a column type.
	GetAlternativeType(typ string) (string, bool)

	GenerateCreateTable(t *schema.Table) ([]Statement, error)
	GenerateCreateIndex(t *schema.Table, idx *index.Descriptor) (Statement, error)
	// GenerateAlterTable returns the statements migrating from to to.
	// Identical tables produce no statements.
	GenerateAlterTable(from, to *schema.Table) ([]Statement, error)
	GenerateDropTable(table string, opts DropOptions) Statement
	// GetMigrationTableDDL returns the CREATE TABLE statement of the
	// migration history table. An empty name selects DefaultMigrationTable.
	GetMigrationTableDDL(table string) (string, error)

	Introspect(ctx context.Context, src Source, opts ...inspect.Option) (*schema.Bundle, error)
	IntrospectTable(ctx context.Context, src Source, table string) (*schema.Table, error)
	ListTables(ctx context.Context, src Source) ([]string, error)
	ListSchemas(ctx context.Context, src Source) ([]string, error)
	GetDatabaseVersion(ctx context.Context, src Source) (string, error)
	TestConnection(ctx context.Context, src Source) error

	Validate(b *schema.Bundle) *compat.Result
	ValidateTable(t *schema.Table) *compat.Result
	ValidateSQL(sql string, loc compat.Location) *compat.Result

	// MapTypeToFriendly returns the short lower-case spelling of a catalog
	// type, e.g. "character varying(255)" becomes "varchar(255)".
	MapTypeToFriendly(typ string) string
	// MapTypeToInternal returns the native column type of the dialect.
	MapTypeToInternal(typ string) string
	// GoType returns the Go type holding values of a column type.
	GoType(typ string) string
	GoField(d *field.Descriptor) GoField
	// Rebind rewrites ? placeholders to the dialect style.
	Rebind(query string) (string, error)
}

// Option configures an adapter.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	open     sql.OpenFunc
	timeout  time.Duration
	inspect  []inspect.Option
	validate []compat.Option
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithOpener replaces the function opening database handles. The adapter
// limits the returned handle to a single connection and closes it after
// each operation.
func WithOpener(open sql.OpenFunc) Option {
	return func(o *options) {
		o.open = open
	}
}

// WithConnectTimeout bounds connection establishment.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithInspectOptions sets options applied to every introspection.
func WithInspectOptions(opts ...inspect.Option) Option {
	return func(o *options) {
		o.inspect = append(o.inspect, opts...)
	}
}

// WithQueryStats records the catalog queries of every introspection on r.
func WithQueryStats(r *sql.StatsRecorder) Option {
	return WithInspectOptions(inspect.WithStats(r))
}

// WithValidatorOptions configures the compatibility validator.
func WithValidatorOptions(opts ...compat.Option) Option {
	return func(o *options) {
		o.validate = append(o.validate, opts...)
	}
}

// Factory builds the adapter of a dialect.
type Factory func(info dialect.Info, opts ...Option) Adapter

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

func init() {
	for _, name := range dialect.Names() {
		switch dialect.FamilyOf(name) {
		case dialect.FamilyMySQL:
			factories[name] = NewMySQL
		case dialect.FamilySQLite:
			factories[name] = NewSQLite
		default:
			factories[name] = NewPostgres
		}
	}
}

// Register sets the factory of a known dialect, replacing the built-in
// one. It panics if the dialect is unknown or f is nil.
func Register(name string, f Factory) {
	n, ok := dialect.Normalize(name)
	if !ok {
		panic(fmt.Sprintf("adapter: Register of unknown dialect %q", name))
	}
	if f == nil {
		panic("adapter: Register factory is nil")
	}
	mu.Lock()
	defer mu.Unlock()
	factories[n] = f
}

// New returns the adapter of the named dialect. Legacy aliases such as
// "cockroachdb" are accepted.
func New(name string, opts ...Option) (Adapter, error) {
	info, ok := dialect.Lookup(name)
	if !ok {
		return nil, dbkit.NewInvalidArgumentError("adapter.New", name, "unknown dialect")
	}
	mu.RLock()
	f := factories[info.Name]
	mu.RUnlock()
	return f(info, opts...), nil
}

// ops holds the behavior that differs between dialect families.
type ops interface {
	alterTable(from, to *schema.Table, d *tableDiff) ([]Statement, error)
	migrationTable(name string) (*schema.Table, error)
	friendlyType(typ string) string
	openDB(dsn string) (*stdsql.DB, error)
}

// core implements the family independent part of Adapter.
type core struct {
	info dialect.Info
	f    *sql.Formatter
	v    *compat.Validator
	opts options
	ops  ops
}

func newCore(info dialect.Info, opts []Option) *core {
	c := &core{info: info, f: sql.NewFormatter(info.Name)}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.logger == nil {
		c.opts.logger = slog.Default()
	}
	c.v = compat.NewValidator(info.Name, c.opts.validate...)
	return c
}

func (c *core) Info() dialect.Info { return c.info }

func (c *core) IsTypeSupported(typ string) bool {
	r, ok := c.v.Catalog().TypeRule(typ)
	return !ok || r.Severity != compat.SeverityError
}

func (c *core) GetAlternative(feature string) (string, bool) {
	r, ok := c.v.Catalog().FeatureRule(compat.Feature(feature))
	if !ok || r.Alternative == "" {
		return "", false
	}
	return r.Alternative, true
}

func (c *core) GetAlternativeType(typ string) (string, bool) {
	r, ok := c.v.Catalog().TypeRule(typ)
	switch {
	case !ok:
		return "", false
	case r.AutoFix != nil && r.AutoFix.ReplacementType != "":
		return r.AutoFix.ReplacementType, true
	case r.Alternative != "":
		return r.Alternative, true
	}
	return "", false
}

func (c *core) Validate(b *schema.Bundle) *compat.Result { return c.v.Validate(b) }

func (c *core) ValidateTable(t *schema.Table) *compat.Result { return c.v.ValidateTable(t) }

func (c *core) ValidateSQL(s string, loc compat.Location) *compat.Result {
	return c.v.ValidateSQL(s, loc)
}

func (c *core) Rebind(query string) (string, error) { return sql.Rebind(c.info.Name, query) }

func (c *core) MapTypeToFriendly(typ string) string { return c.ops.friendlyType(typ) }
