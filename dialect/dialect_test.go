package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit/dialect"
)

func TestLookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		want        string
		family      dialect.Family
		placeholder string
		quote       byte
	}{
		{"postgres", "postgres", dialect.Postgres, dialect.FamilyPostgres, "$3", '"'},
		{"postgresql_alias", "PostgreSQL", dialect.Postgres, dialect.FamilyPostgres, "$3", '"'},
		{"cockroach_alias", "cockroachdb", dialect.CRDB, dialect.FamilyPostgres, "$3", '"'},
		{"dsql_alias", "aurora-dsql", dialect.DSQL, dialect.FamilyPostgres, "$3", '"'},
		{"nile", "nile", dialect.Nile, dialect.FamilyPostgres, "$3", '"'},
		{"mysql", "mysql", dialect.MySQL, dialect.FamilyMySQL, "?", '`'},
		{"mariadb", "mariadb", dialect.MariaDB, dialect.FamilyMySQL, "?", '`'},
		{"sqlite3_alias", "sqlite3", dialect.SQLite, dialect.FamilySQLite, "?", '"'},
		{"libsql_alias", " libsql ", dialect.Turso, dialect.FamilySQLite, "?", '"'},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info, ok := dialect.Lookup(tt.input)
			require.True(t, ok)
			assert.Equal(t, tt.want, info.Name)
			assert.Equal(t, tt.family, info.Family)
			assert.Equal(t, tt.placeholder, info.Placeholder(3))
			assert.Equal(t, tt.quote, info.QuoteChar)
		})
	}
}

func TestLookupUnknown(t *testing.T) {
	t.Parallel()
	_, ok := dialect.Lookup("oracle")
	assert.False(t, ok)
	assert.Panics(t, func() { dialect.MustLookup("oracle") })
	assert.Equal(t, dialect.FamilyPostgres, dialect.FamilyOf("oracle"))
}

func TestInfoIdentity(t *testing.T) {
	t.Parallel()
	crdb := dialect.MustLookup(dialect.CRDB)
	assert.Equal(t, "CockroachDB", crdb.DisplayName)
	assert.Equal(t, 26257, crdb.DefaultPort)
	assert.Equal(t, "root", crdb.DefaultUser)
	assert.True(t, crdb.IsPostgres())
	assert.False(t, crdb.IsMySQL())

	mysql := dialect.MustLookup(dialect.MySQL)
	assert.Equal(t, 3306, mysql.DefaultPort)
	assert.Equal(t, "mysql", mysql.DriverName)
	assert.True(t, mysql.IsMySQL())

	assert.True(t, dialect.MustLookup(dialect.Turso).IsSQLite())
}

func TestNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"crdb", "dsql", "mariadb", "mysql", "nile", "postgres", "sqlite", "turso"}, dialect.Names())
}
