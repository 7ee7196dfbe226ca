package dialect

import (
	"context"
	"database/sql/driver"
	"fmt"
	"slices"
	"strings"
)

// Dialect names. Postgres, DSQL, CRDB and Nile share the Postgres family,
// MySQL and MariaDB the MySQL family, SQLite and Turso the SQLite family.
const (
	Postgres = "postgres"
	DSQL     = "dsql"
	CRDB     = "crdb"
	Nile     = "nile"
	MySQL    = "mysql"
	MariaDB  = "mariadb"
	SQLite   = "sqlite"
	Turso    = "turso"
)

// Family groups dialects that share SQL grammar, quoting and catalogs.
type Family string

// Dialect families.
const (
	FamilyPostgres Family = "postgres"
	FamilyMySQL    Family = "mysql"
	FamilySQLite   Family = "sqlite"
)

// PlaceholderStyle is the parameter placeholder spelling of a dialect.
type PlaceholderStyle int

const (
	// PlaceholderDollar is $1, $2, ...
	PlaceholderDollar PlaceholderStyle = iota
	// PlaceholderQuestion is ?, ?, ...
	PlaceholderQuestion
)

// Info describes the identity of a dialect.
type Info struct {
	Name        string
	Family      Family
	DisplayName string
	DefaultPort int
	DefaultUser string
	QuoteChar   byte
	Params      PlaceholderStyle
	// DriverName is the database/sql driver used to reach the dialect.
	DriverName string
}

// Placeholder returns the n-th (1-based) parameter placeholder.
func (i Info) Placeholder(n int) string {
	if i.Params == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// IsPostgres reports whether the dialect belongs to the Postgres family.
func (i Info) IsPostgres() bool { return i.Family == FamilyPostgres }

// IsMySQL reports whether the dialect belongs to the MySQL family.
func (i Info) IsMySQL() bool { return i.Family == FamilyMySQL }

// IsSQLite reports whether the dialect belongs to the SQLite family.
func (i Info) IsSQLite() bool { return i.Family == FamilySQLite }

var infos = map[string]Info{
	Postgres: {Name: Postgres, Family: FamilyPostgres, DisplayName: "PostgreSQL", DefaultPort: 5432, DefaultUser: "postgres", QuoteChar: '"', Params: PlaceholderDollar, DriverName: "pgx"},
	DSQL:     {Name: DSQL, Family: FamilyPostgres, DisplayName: "Aurora DSQL", DefaultPort: 5432, DefaultUser: "admin", QuoteChar: '"', Params: PlaceholderDollar, DriverName: "pgx"},
	CRDB:     {Name: CRDB, Family: FamilyPostgres, DisplayName: "CockroachDB", DefaultPort: 26257, DefaultUser: "root", QuoteChar: '"', Params: PlaceholderDollar, DriverName: "pgx"},
	Nile:     {Name: Nile, Family: FamilyPostgres, DisplayName: "Nile", DefaultPort: 5432, DefaultUser: "postgres", QuoteChar: '"', Params: PlaceholderDollar, DriverName: "pgx"},
	MySQL:    {Name: MySQL, Family: FamilyMySQL, DisplayName: "MySQL", DefaultPort: 3306, DefaultUser: "root", QuoteChar: '`', Params: PlaceholderQuestion, DriverName: "mysql"},
	MariaDB:  {Name: MariaDB, Family: FamilyMySQL, DisplayName: "MariaDB", DefaultPort: 3306, DefaultUser: "root", QuoteChar: '`', Params: PlaceholderQuestion, DriverName: "mysql"},
	SQLite:   {Name: SQLite, Family: FamilySQLite, DisplayName: "SQLite", QuoteChar: '"', Params: PlaceholderQuestion, DriverName: "sqlite"},
	Turso:    {Name: Turso, Family: FamilySQLite, DisplayName: "Turso", QuoteChar: '"', Params: PlaceholderQuestion, DriverName: "libsql"},
}

// aliases maps legacy or informal dialect names to canonical ones.
var aliases = map[string]string{
	"postgresql":    Postgres,
	"pg":            Postgres,
	"pgx":           Postgres,
	"cockroachdb":   CRDB,
	"cockroach":     CRDB,
	"aurora-dsql":   DSQL,
	"aurora_dsql":   DSQL,
	"nile-postgres": Nile,
	"sqlite3":       SQLite,
	"libsql":        Turso,
}

// Normalize returns the canonical dialect name for name, resolving legacy
// aliases. It returns false if the name is unknown.
func Normalize(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := infos[n]; ok {
		return n, true
	}
	if c, ok := aliases[n]; ok {
		return c, true
	}
	return "", false
}

// Lookup returns the identity of the named dialect.
func Lookup(name string) (Info, bool) {
	n, ok := Normalize(name)
	if !ok {
		return Info{}, false
	}
	return infos[n], true
}

// MustLookup is like Lookup but panics if the dialect is unknown.
func MustLookup(name string) Info {
	info, ok := Lookup(name)
	if !ok {
		panic(fmt.Sprintf("dialect: unknown dialect %q", name))
	}
	return info
}

// FamilyOf returns the family of the named dialect, defaulting to Postgres.
func FamilyOf(name string) Family {
	if info, ok := Lookup(name); ok {
		return info.Family
	}
	return FamilyPostgres
}

// Names returns all canonical dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(infos))
	for n := range infos {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// ExecQuerier runs statements. args is a []any of statement arguments.
type ExecQuerier interface {
	// Exec runs a statement returning no rows. v is nil or a *sql.Result
	// of the dialect/sql package.
	Exec(ctx context.Context, query string, args, v any) error
	// Query runs a statement returning rows into v, a *sql.Rows of the
	// dialect/sql package.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver runs statements against one database.
type Driver interface {
	ExecQuerier
	// Tx begins a transaction bound to ctx until it ends.
	Tx(ctx context.Context) (Tx, error)
	Close() error
	// Dialect returns the canonical dialect name.
	Dialect() string
}

// Tx is a transaction of a Driver.
type Tx interface {
	ExecQuerier
	driver.Tx
}
