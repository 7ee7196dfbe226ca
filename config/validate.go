package config

import (
	"strings"

	"github.com/syssam/dbkit"
	"github.com/syssam/dbkit/dialect"
)

// ValidateAndMigrate returns a migrated copy of cfg and the problems
// found in it. Dialect aliases are replaced by their canonical names.
// The configuration is usable only if no errors are returned.
func ValidateAndMigrate(cfg *Config) (*Config, []*dbkit.ConfigurationError) {
	if cfg == nil {
		return nil, []*dbkit.ConfigurationError{dbkit.NewConfigurationError("", "configuration is required")}
	}
	out := cfg.clone()
	var errs []*dbkit.ConfigurationError
	add := func(path, format string, a ...any) {
		errs = append(errs, dbkit.NewConfigurationError(path, format, a...))
	}

	info, known := dialect.Lookup(out.Dialect)
	switch {
	case strings.TrimSpace(out.Dialect) == "":
		add("dialect", "dialect is required (one of %s)", strings.Join(dialect.Names(), ", "))
	case !known:
		add("dialect", "unknown dialect %q (one of %s)", out.Dialect, strings.Join(dialect.Names(), ", "))
	default:
		out.Dialect = info.Name
	}

	if known {
		validateConnection(out.Connection, info, add)
	}
	if c := out.Connection; c.Port < 0 || c.Port > 65535 {
		add("connection.port", "port %d is out of range 1..65535", c.Port)
	}

	p := out.Pool
	if p.Min != nil && *p.Min < 0 {
		add("pool.min", "must be >= 0, got %d", *p.Min)
	}
	if p.Max != nil && *p.Max < 1 {
		add("pool.max", "must be >= 1, got %d", *p.Max)
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		add("pool.min", "min (%d) must not exceed max (%d)", *p.Min, *p.Max)
	}
	if p.IdleTimeoutMillis != nil && *p.IdleTimeoutMillis < 0 {
		add("pool.idleTimeoutMillis", "must be >= 0, got %d", *p.IdleTimeoutMillis)
	}
	if p.ConnectionTimeoutMillis != nil && *p.ConnectionTimeoutMillis < 0 {
		add("pool.connectionTimeoutMillis", "must be >= 0, got %d", *p.ConnectionTimeoutMillis)
	}

	if port := out.Studio.Port; port != nil && (*port < 1 || *port > 65535) {
		add("studio.port", "port %d is out of range 1..65535", *port)
	}
	return out, errs
}

func validateConnection(c Connection, info dialect.Info, add func(path, format string, a ...any)) {
	if c.URL != "" {
		return
	}
	switch {
	case info.Name == dialect.Turso:
		if c.Host == "" {
			add("connection", "turso needs a url or a host")
		}
	case info.IsSQLite():
		if c.Database == "" {
			add("connection.database", "sqlite needs a url or a database file")
		}
	case info.Name == dialect.DSQL && c.Host == "" && c.AWS.Endpoint() != "":
		if c.Database == "" {
			add("connection.database", "database is required without a url")
		}
	default:
		if c.Host == "" {
			add("connection.host", "host is required without a url")
		}
		if c.Database == "" {
			add("connection.database", "database is required without a url")
		}
	}
}

// clone returns a deep copy of c.
func (c *Config) clone() *Config {
	out := *c
	out.Pool = Pool{
		Min:                     cloneInt(c.Pool.Min),
		Max:                     cloneInt(c.Pool.Max),
		IdleTimeoutMillis:       cloneInt(c.Pool.IdleTimeoutMillis),
		ConnectionTimeoutMillis: cloneInt(c.Pool.ConnectionTimeoutMillis),
	}
	out.Studio.Port = cloneInt(c.Studio.Port)
	return &out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
