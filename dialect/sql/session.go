package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/dbkit"
)

// NileTenantSetting is the Nile setting that scopes statements to a tenant.
const NileTenantSetting = "nile.tenant_id"

// statementTimeout is renamed to max_execution_time on the MySQL family.
const statementTimeout = "statement_timeout"

// resetTimeout bounds the RESET statements run when a connection returns
// to the pool. It is applied on a fresh context since ctx may be done.
const resetTimeout = 5 * time.Second

// settingNameRe matches plain and two-part (class.name) setting names.
var settingNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Setting is a session setting applied before every statement that runs
// with the context holding it.
type Setting struct {
	Name  string
	Value any
}

type settingsKey struct{}

// WithSetting returns a copy of ctx that applies SET name = value before
// each statement executed through a Driver. Values are rendered with the
// dialect Formatter. Settings are reset before the connection is returned
// to the pool; statements of a transaction leave them to the caller.
func WithSetting(ctx context.Context, name string, value any) context.Context {
	prev := settingsFrom(ctx)
	next := make([]Setting, len(prev), len(prev)+1)
	copy(next, prev)
	return context.WithValue(ctx, settingsKey{}, append(next, Setting{Name: name, Value: value}))
}

// WithTenant scopes the statements run with ctx to a Nile tenant.
func WithTenant(ctx context.Context, id uuid.UUID) context.Context {
	return WithSetting(ctx, NileTenantSetting, id.String())
}

// WithStatementTimeout bounds the server-side execution time of the
// statements run with ctx. The MySQL family applies it to SELECT only.
func WithStatementTimeout(ctx context.Context, d time.Duration) context.Context {
	return WithSetting(ctx, statementTimeout, d.Milliseconds())
}

// SettingFromContext returns the last value set for name on ctx.
func SettingFromContext(ctx context.Context, name string) (any, bool) {
	s := settingsFrom(ctx)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Name == name {
			return s[i].Value, true
		}
	}
	return nil, false
}

func settingsFrom(ctx context.Context) []Setting {
	s, _ := ctx.Value(settingsKey{}).([]Setting)
	return s
}

// settingStmts renders the SET and RESET statements of the given settings.
// RESET statements are deduplicated by name.
func settingStmts(name string, settings []Setting) (set, reset []string, err error) {
	f := NewFormatter(name)
	info := f.Info()
	if info.IsSQLite() {
		return nil, nil, dbkit.NewInvalidArgumentError("sql.WithSetting", settings[0].Name, "session settings are not supported by "+info.DisplayName)
	}
	seen := make(map[string]bool, len(settings))
	for _, s := range settings {
		if len(s.Name) > 128 || !settingNameRe.MatchString(s.Name) {
			return nil, nil, dbkit.NewInvalidArgumentError("sql.WithSetting", s.Name, "invalid setting name")
		}
		key, setFmt, resetFmt := s.Name, "SET %s = %s", "RESET %s"
		if info.IsMySQL() {
			if strings.Contains(key, ".") {
				return nil, nil, dbkit.NewInvalidArgumentError("sql.WithSetting", s.Name, "qualified names are not supported by "+info.DisplayName)
			}
			if key == statementTimeout {
				key = "max_execution_time"
			}
			setFmt, resetFmt = "SET SESSION %s = %s", "SET SESSION %s = DEFAULT"
		}
		lit, err := f.FormatLiteral(s.Value)
		if err != nil {
			return nil, nil, err
		}
		set = append(set, fmt.Sprintf(setFmt, key, lit))
		if !seen[key] {
			seen[key] = true
			reset = append(reset, fmt.Sprintf(resetFmt, key))
		}
	}
	return set, reset, nil
}

// session binds the settings of ctx to one connection. release returns the
// connection to the pool after resetting the settings.
type session struct {
	ExecQuerier
	release func() error
}

// applySettings returns the ExecQuerier statements must run on. Without
// settings it is c itself. Otherwise a *sql.DB is pinned to one connection
// for the duration of the statement, and a *sql.Tx is used as is.
func (c Conn) applySettings(ctx context.Context) (*session, error) {
	settings := settingsFrom(ctx)
	if len(settings) == 0 {
		return &session{ExecQuerier: c}, nil
	}
	set, reset, err := settingStmts(c.dialect, settings)
	if err != nil {
		return nil, err
	}
	s := &session{}
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		s.ExecQuerier = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, err
		}
		s.ExecQuerier = conn
		s.release = sync.OnceValue(func() error {
			rctx, cancel := context.WithTimeout(context.Background(), resetTimeout)
			defer cancel()
			for _, q := range reset {
				if _, err := conn.ExecContext(rctx, q); err != nil {
					// Discard the connection rather than pool it with the setting applied.
					_ = conn.Raw(func(any) error { return driver.ErrBadConn })
					return err
				}
			}
			return conn.Close()
		})
	default:
		return nil, fmt.Errorf("dbkit: sql: session settings need a *sql.DB or *sql.Tx, got %T", c.ExecQuerier)
	}
	for _, q := range set {
		if _, err := s.ExecContext(ctx, q); err != nil {
			return nil, errors.Join(err, s.close())
		}
	}
	return s, nil
}

func (s *session) close() error {
	if s.release == nil {
		return nil
	}
	return s.release()
}
