package adapter

import (
	stdsql "database/sql"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
)

// Postgres is the adapter of the Postgres family: PostgreSQL, Aurora DSQL,
// CockroachDB and Nile.
type Postgres struct{ *core }

// NewPostgres returns the adapter of a Postgres family dialect.
func NewPostgres(info dialect.Info, opts ...Option) Adapter {
	a := &Postgres{core: newCore(info, opts)}
	a.ops = a
	return a
}

func (a *Postgres) alterTable(from, to *schema.Table, d *tableDiff) ([]Statement, error) {
	return a.alterInPlace(from, to, d, a.modifyColumn)
}

// modifyColumn combines the type, nullability and default changes of a
// column into one ALTER TABLE statement.
func (a *Postgres) modifyColumn(t *schema.Table, ch columnChange) (Statement, error) {
	col := a.f.Ident(ch.to.Column())
	var actions []string
	if ch.typ {
		typ := ch.to.TypeFor(a.info.Name)
		actions = append(actions, "ALTER COLUMN "+col+" TYPE "+typ+" USING "+col+"::"+typ)
	}
	if ch.null {
		if nullable(t, ch.to) {
			actions = append(actions, "ALTER COLUMN "+col+" DROP NOT NULL")
		} else {
			actions = append(actions, "ALTER COLUMN "+col+" SET NOT NULL")
		}
	}
	if ch.def {
		if ch.toDefault == "" {
			actions = append(actions, "ALTER COLUMN "+col+" DROP DEFAULT")
		} else {
			actions = append(actions, "ALTER COLUMN "+col+" SET DEFAULT "+ch.toDefault)
		}
	}
	return Statement{
		SQL:         "ALTER TABLE " + a.tableIdent(t) + " " + strings.Join(actions, ", "),
		Type:        StatementAlter,
		Destructive: ch.typ,
		Affects:     []string{columnRef(t, ch.to)},
	}, nil
}

// migrationTable keys the history table by a serial id. Aurora DSQL has
// no sequences and uses a server generated UUID instead.
func (a *Postgres) migrationTable(name string) (*schema.Table, error) {
	id := field.Serial("id").PrimaryKey()
	if a.info.Name == dialect.DSQL {
		id = field.UUID("id").PrimaryKey().Default(field.GenRandomUUID())
	}
	return schema.DefineTable(name, append([]field.Builder{id}, migrationColumns()...), schema.IfNotExists())
}

func (a *Postgres) friendlyType(typ string) string { return friendly(typ) }

func (a *Postgres) openDB(dsn string) (*stdsql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, dbkit.NewInvalidArgumentError("adapter.Connect", "dsn", err.Error())
	}
	if a.opts.timeout > 0 {
		cfg.ConnectTimeout = a.opts.timeout
	}
	return stdlib.OpenDB(*cfg), nil
}
