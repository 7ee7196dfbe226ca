package sql

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

func TestFormatterIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		dialect string
		input   string
		want    string
	}{
		{"postgres_plain", dialect.Postgres, "users", `"users"`},
		{"postgres_quote", dialect.Postgres, `we"ird`, `"we""ird"`},
		{"postgres_backslash", dialect.Postgres, `a\b`, `"a\b"`},
		{"crdb_uses_double_quotes", dialect.CRDB, "Order", `"Order"`},
		{"mysql_plain", dialect.MySQL, "users", "`users`"},
		{"mysql_backtick", dialect.MySQL, "we`ird", "`we``ird`"},
		{"mariadb_backtick", dialect.MariaDB, "a", "`a`"},
		{"sqlite_quote", dialect.SQLite, `x"y`, `"x""y"`},
		{"unknown_falls_back_to_postgres", "oracle", "t", `"t"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewFormatter(tt.dialect).Ident(tt.input))
		})
	}
}

// unquote reverses Ident for the double-quote dialects.
func unquote(s string, q byte) string {
	inner := s[1 : len(s)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		out = append(out, inner[i])
		if inner[i] == q && i+1 < len(inner) && inner[i+1] == q {
			i++
		}
	}
	return string(out)
}

func TestFormatterIdentRoundTrip(t *testing.T) {
	t.Parallel()
	inputs := []string{"users", `a"b`, `""`, "a`b", "x y", `back\slash`, "ünïcode", "'; DROP TABLE x; --"}
	for _, d := range []string{dialect.Postgres, dialect.MySQL, dialect.SQLite} {
		f := NewFormatter(d)
		q := f.Info().QuoteChar
		for _, in := range inputs {
			out := f.Ident(in)
			require.Equal(t, q, out[0])
			require.Equal(t, q, out[len(out)-1])
			assert.Equal(t, in, unquote(out, q), "dialect %s input %q", d, in)
		}
	}
}

func TestFormatterQualifiedIdent(t *testing.T) {
	t.Parallel()
	f := NewFormatter(dialect.Postgres)
	assert.Equal(t, `"public"."users"`, f.QualifiedIdent("public", "users"))
	assert.Equal(t, `"users"`, f.QualifiedIdent("", "users"))
	assert.Equal(t, "`app`.`users`", NewFormatter(dialect.MySQL).QualifiedIdent("app", "users"))
}

func TestFormatterIdentIfNeeded(t *testing.T) {
	t.Parallel()
	f := NewFormatter(dialect.Postgres)
	assert.Equal(t, "users", f.IdentIfNeeded("users"))
	assert.Equal(t, `"user"`, f.IdentIfNeeded("user"))
	assert.Equal(t, `"Users"`, f.IdentIfNeeded("Users"))
	assert.Equal(t, `"1st"`, f.IdentIfNeeded("1st"))
	assert.Equal(t, "`key`", NewFormatter(dialect.MySQL).IdentIfNeeded("key"))
	assert.Equal(t, "user", NewFormatter(dialect.MySQL).IdentIfNeeded("user"))
}

type stringer struct{}

func (stringer) String() string { return "it's" }

func TestFormatterLiteral(t *testing.T) {
	t.Parallel()

	ts := time.Date(2024, 3, 9, 10, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	var nilPtr *int
	seven := 7

	tests := []struct {
		name    string
		dialect string
		value   any
		want    string
	}{
		{"nil", dialect.Postgres, nil, "NULL"},
		{"string", dialect.Postgres, "active", "'active'"},
		{"string_quote", dialect.Postgres, "it's", "'it''s'"},
		{"string_backslash_pg", dialect.Postgres, `a\b`, `E'a\\b'`},
		{"string_backslash_mysql", dialect.MySQL, `a\b'c`, `'a\\b''c'`},
		{"string_backslash_sqlite", dialect.SQLite, `a\b'c`, `'a\b''c'`},
		{"bool_pg", dialect.Postgres, true, "TRUE"},
		{"bool_mysql", dialect.MySQL, false, "FALSE"},
		{"bool_sqlite", dialect.SQLite, true, "1"},
		{"int", dialect.Postgres, 42, "42"},
		{"int64_negative", dialect.Postgres, int64(-9), "-9"},
		{"uint8", dialect.MySQL, uint8(255), "255"},
		{"float", dialect.Postgres, 1.5, "1.5"},
		{"float32", dialect.Postgres, float32(0.25), "0.25"},
		{"nan_pg", dialect.Postgres, math.NaN(), "'NaN'"},
		{"inf_pg", dialect.Postgres, math.Inf(-1), "'-Infinity'"},
		{"nan_mysql", dialect.MySQL, math.NaN(), "NULL"},
		{"time_pg", dialect.Postgres, ts, "'2024-03-09T10:30:00Z'"},
		{"time_mysql", dialect.MySQL, ts, "'2024-03-09 10:30:00'"},
		{"bytes_pg", dialect.Postgres, []byte{0xde, 0xad}, `'\xdead'::bytea`},
		{"bytes_sqlite", dialect.SQLite, []byte{0xde, 0xad}, "X'DEAD'"},
		{"uuid", dialect.Postgres, id, "'6ba7b810-9dad-11d1-80b4-00c04fd430c8'"},
		{"raw", dialect.Postgres, Raw("now()"), "now()"},
		{"stringer", dialect.Postgres, stringer{}, "'it''s'"},
		{"array_pg", dialect.Postgres, []string{"a", "b"}, "ARRAY['a', 'b']"},
		{"array_int_pg", dialect.Postgres, []int{1, 2, 3}, "ARRAY[1, 2, 3]"},
		{"array_empty_pg", dialect.Postgres, []int{}, "'{}'"},
		{"array_mysql", dialect.MySQL, []string{"a", "b"}, `'["a","b"]'`},
		{"array_nil", dialect.Postgres, []string(nil), "NULL"},
		{"map_json", dialect.Postgres, map[string]int{"a": 1}, `'{"a":1}'`},
		{"json_raw", dialect.Postgres, json.RawMessage(`{"k":"v"}`), `'{"k":"v"}'`},
		{"nil_pointer", dialect.Postgres, nilPtr, "NULL"},
		{"pointer", dialect.Postgres, &seven, "7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewFormatter(tt.dialect).Literal(tt.value))
		})
	}
}

type failingValuer struct{}

func (failingValuer) Value() (driver.Value, error) { return nil, errors.New("no key loaded") }

func TestFormatterLiteralValuerError(t *testing.T) {
	t.Parallel()
	f := NewFormatter(dialect.Postgres)

	assert.PanicsWithError(t, "dbkit: sql: literal of sql.failingValuer: no key loaded", func() {
		f.Literal(failingValuer{})
	})
	assert.Panics(t, func() { f.Literal([]any{1, failingValuer{}}) })

	_, err := f.FormatLiteral(failingValuer{})
	assert.EqualError(t, err, "dbkit: sql: literal of sql.failingValuer: no key loaded")
	_, err = f.FormatLiteral(map[string]any{"k": failingValuer{}})
	assert.NoError(t, err)
	lit, err := f.FormatLiteral(validValuer{})
	require.NoError(t, err)
	assert.Equal(t, "'ok'", lit)

	_, err = f.Format("SELECT %L", failingValuer{})
	assert.ErrorContains(t, err, "no key loaded")
}

type validValuer struct{}

func (validValuer) Value() (driver.Value, error) { return "ok", nil }

func TestFormatterFormat(t *testing.T) {
	t.Parallel()
	f := NewFormatter(dialect.Postgres)

	got, err := f.Format("SELECT %I FROM %I WHERE %I = %L AND n > %s -- 100%%", "email", "users", "status", "it's", 5)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "email" FROM "users" WHERE "status" = 'it''s' AND n > 5 -- 100%`, got)

	got, err = NewFormatter(dialect.MySQL).Format("DROP TABLE %I", "a`b")
	require.NoError(t, err)
	assert.Equal(t, "DROP TABLE `a``b`", got)

	_, err = f.Format("SELECT %I, %I", "a")
	assert.True(t, dbkit.IsInvalidArgument(err))

	_, err = f.Format("SELECT %I", "a", "b")
	assert.True(t, dbkit.IsInvalidArgument(err))

	_, err = f.Format("SELECT %d", 1)
	assert.True(t, dbkit.IsInvalidArgument(err))

	_, err = f.Format("SELECT 1 %")
	assert.True(t, dbkit.IsInvalidArgument(err))
}

func TestRebind(t *testing.T) {
	t.Parallel()
	got, err := Rebind(dialect.CRDB, "SELECT * FROM t WHERE a = ? AND b = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", got)

	got, err = Rebind(dialect.MySQL, "SELECT * FROM t WHERE a = ?")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t WHERE a = ?", got)

	assert.Equal(t, "$4", NewFormatter(dialect.Nile).Placeholder(4))
	assert.Equal(t, "?", NewFormatter(dialect.SQLite).Placeholder(4))
}

func TestIsReserved(t *testing.T) {
	t.Parallel()
	assert.True(t, IsReserved(dialect.Postgres, "SELECT"))
	assert.True(t, IsReserved(dialect.Postgres, "user"))
	assert.False(t, IsReserved(dialect.Postgres, "email"))
	assert.True(t, IsReserved(dialect.MySQL, "key"))
	assert.True(t, IsReserved(dialect.SQLite, "autoincrement"))
}
