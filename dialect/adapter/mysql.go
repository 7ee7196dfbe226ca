package adapter

import (
	stdsql "database/sql"
	"regexp"

	"github.com/go-sql-driver/mysql"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/schema"
	"github.com/syssam/dbkit/schema/field"
)

// MySQL is the adapter of the MySQL family: MySQL and MariaDB.
type MySQL struct{ *core }

// NewMySQL returns the adapter of a MySQL family dialect.
func NewMySQL(info dialect.Info, opts ...Option) Adapter {
	a := &MySQL{core: newCore(info, opts)}
	a.ops = a
	return a
}

func (a *MySQL) alterTable(from, to *schema.Table, d *tableDiff) ([]Statement, error) {
	return a.alterInPlace(from, to, d, a.modifyColumn)
}

// modifyColumn restates the column definition with MODIFY COLUMN. Its
// constraints are diffed separately.
func (a *MySQL) modifyColumn(t *schema.Table, ch columnChange) (Statement, error) {
	def, err := t.ModifyColumnSQL(a.info.Name, ch.to.Column())
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL:         "ALTER TABLE " + a.tableIdent(t) + " MODIFY COLUMN " + def,
		Type:        StatementAlter,
		Destructive: ch.typ,
		Affects:     []string{columnRef(t, ch.to)},
	}, nil
}

func (a *MySQL) migrationTable(name string) (*schema.Table, error) {
	id := field.BigInt("id").PrimaryKey().Autoincrement()
	return schema.DefineTable(name, append([]field.Builder{id}, migrationColumns()...), schema.IfNotExists())
}

var tinyBool = regexp.MustCompile(`(?i)^\s*(tinyint\s*\(\s*1\s*\)|bool|boolean)\s*$`)

func (a *MySQL) friendlyType(typ string) string {
	if tinyBool.MatchString(typ) {
		return "boolean"
	}
	return friendly(typ)
}

func (a *MySQL) openDB(dsn string) (*stdsql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, dbkit.NewInvalidArgumentError("adapter.Connect", "dsn", err.Error())
	}
	cfg.ParseTime = true
	if a.opts.timeout > 0 {
		cfg.Timeout = a.opts.timeout
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return stdsql.OpenDB(connector), nil
}
