// Package config holds the connection configuration recognized by the
// introspection and dialect adapters.
//
// A configuration is decoded from YAML with Parse, overlaid with DBKIT_*
// environment variables by FromEnv and checked by ValidateAndMigrate:
//
//	cfg, err := config.Parse(data)
//	if err != nil {
//		return err
//	}
//	if err := config.FromEnv(cfg); err != nil {
//		return err
//	}
//	cfg, errs := config.ValidateAndMigrate(cfg)
//	if len(errs) > 0 {
//		// report errs
//	}
//	a, _ := adapter.New(cfg.Dialect)
//	tables, err := a.Introspect(ctx, cfg.Connection)
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/syssam/dbkit/dialect"
	"github.com/syssam/dbkit/dialect/sql"
)

// Config is the top-level configuration object.
type Config struct {
	Dialect    string     `yaml:"dialect" env:"DIALECT"`
	Connection Connection `yaml:"connection"`
	Pool       Pool       `yaml:"pool,omitempty" envPrefix:"POOL_"`
	Migrations Migrations `yaml:"migrations,omitempty" envPrefix:"MIGRATIONS_"`
	Studio     Studio     `yaml:"studio,omitempty" envPrefix:"STUDIO_"`
}

// Connection describes how to reach the database, either as a URL or by
// its parts. A URL takes precedence over the parts.
type Connection struct {
	URL      string  `yaml:"url,omitempty" env:"URL"`
	Host     string  `yaml:"host,omitempty" env:"HOST"`
	Port     int     `yaml:"port,omitempty" env:"PORT"`
	Database string  `yaml:"database,omitempty" env:"DATABASE"`
	User     string  `yaml:"user,omitempty" env:"USER"`
	Password string  `yaml:"password,omitempty" env:"PASSWORD"`
	SSL      SSLMode `yaml:"ssl,omitempty" env:"SSL"`
	AWS      AWS     `yaml:"aws,omitempty" envPrefix:"AWS_"`
}

// AWS holds the Aurora DSQL cluster coordinates. When Host is empty the
// cluster endpoint is derived from them.
type AWS struct {
	Region  string `yaml:"region,omitempty" env:"REGION"`
	Cluster string `yaml:"cluster,omitempty" env:"CLUSTER"`
}

// Endpoint returns the DSQL cluster endpoint, or "" if incomplete.
func (a AWS) Endpoint() string {
	if a.Region == "" || a.Cluster == "" {
		return ""
	}
	return fmt.Sprintf("%s.dsql.%s.on.aws", a.Cluster, a.Region)
}

// Pool configures the connection pool. Nil fields use the driver default.
type Pool struct {
	Min                     *int `yaml:"min,omitempty" env:"MIN"`
	Max                     *int `yaml:"max,omitempty" env:"MAX"`
	IdleTimeoutMillis       *int `yaml:"idleTimeoutMillis,omitempty" env:"IDLE_TIMEOUT_MILLIS"`
	ConnectionTimeoutMillis *int `yaml:"connectionTimeoutMillis,omitempty" env:"CONNECTION_TIMEOUT_MILLIS"`
}

// Limits converts the pool configuration to the limits of a
// sql.PoolManager.
func (p Pool) Limits() sql.PoolLimits {
	var l sql.PoolLimits
	if p.Min != nil {
		l.MinIdle = *p.Min
	}
	if p.Max != nil {
		l.MaxOpen = *p.Max
	}
	if p.IdleTimeoutMillis != nil {
		l.IdleTimeout = time.Duration(*p.IdleTimeoutMillis) * time.Millisecond
	}
	if p.ConnectionTimeoutMillis != nil {
		l.ConnectionTimeout = time.Duration(*p.ConnectionTimeoutMillis) * time.Millisecond
	}
	return l
}

// Migrations configures where migration files live.
type Migrations struct {
	Directory string `yaml:"directory,omitempty" env:"DIRECTORY"`
	Table     string `yaml:"table,omitempty" env:"TABLE"`
}

// Studio configures the schema browser.
type Studio struct {
	Port *int `yaml:"port,omitempty" env:"PORT"`
}

// SSLMode is the TLS mode of a connection. In YAML it may also be given
// as a boolean: true is "require" and false is "disable".
type SSLMode string

// SSL modes.
const (
	SSLDisable    SSLMode = "disable"
	SSLPrefer     SSLMode = "prefer"
	SSLRequire    SSLMode = "require"
	SSLVerifyCA   SSLMode = "verify-ca"
	SSLVerifyFull SSLMode = "verify-full"
)

var sslModes = map[string]SSLMode{
	"disable":     SSLDisable,
	"false":       SSLDisable,
	"prefer":      SSLPrefer,
	"preferred":   SSLPrefer,
	"require":     SSLRequire,
	"true":        SSLRequire,
	"verify-ca":   SSLVerifyCA,
	"verify-full": SSLVerifyFull,
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SSLMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	if s == "" {
		*m = ""
		return nil
	}
	mode, ok := sslModes[s]
	if !ok {
		return fmt.Errorf("config: unknown ssl mode %q", s)
	}
	*m = mode
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *SSLMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: line %d: ssl must be a boolean or a mode", value.Line)
	}
	return m.UnmarshalText([]byte(value.Value))
}

// DSN returns the data source name of the configured connection.
func (c *Config) DSN() (string, error) {
	return c.Connection.DSN(c.Dialect)
}

// Info returns the identity of the configured dialect.
func (c *Config) Info() (dialect.Info, bool) {
	return dialect.Lookup(c.Dialect)
}

// legacyKeys maps dotted legacy keys to their current names.
var legacyKeys = []struct{ from, to string }{
	{"driver", "dialect"},
	{"pool.idleTimeout", "pool.idleTimeoutMillis"},
	{"pool.connectionTimeout", "pool.connectionTimeoutMillis"},
	{"migrations.dir", "migrations.directory"},
}

// Parse decodes a YAML configuration. Legacy keys and dialect aliases are
// migrated before decoding; unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if raw == nil {
		return &Config{}, nil
	}
	if err := migrateKeys(raw); err != nil {
		return nil, err
	}
	if d, ok := raw["dialect"].(string); ok {
		if n, ok := dialect.Normalize(d); ok {
			raw["dialect"] = n
		}
	}
	migrated, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(migrated))
	dec.KnownFields(true)
	cfg := &Config{}
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// migrateKeys renames legacy keys in place. A legacy key never overrides
// its current name.
func migrateKeys(raw map[string]any) error {
	for _, k := range legacyKeys {
		from, to := strings.Split(k.from, "."), strings.Split(k.to, ".")
		parent, ok := section(raw, from[:len(from)-1])
		if !ok {
			continue
		}
		v, ok := parent[from[len(from)-1]]
		if !ok {
			continue
		}
		delete(parent, from[len(from)-1])
		key := to[len(to)-1]
		if _, exists := parent[key]; exists {
			continue
		}
		if strings.HasSuffix(key, "Millis") {
			ms, err := millis(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", k.from, err)
			}
			v = ms
		}
		parent[key] = v
	}
	return nil
}

func section(raw map[string]any, path []string) (map[string]any, bool) {
	m := raw
	for _, p := range path {
		next, ok := m[p].(map[string]any)
		if !ok {
			return nil, false
		}
		m = next
	}
	return m, true
}

// millis converts a legacy timeout to milliseconds. Numbers are taken as
// milliseconds and strings as Go durations, e.g. "30s".
func millis(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, err
		}
		return int(d / time.Millisecond), nil
	default:
		return 0, fmt.Errorf("unexpected timeout %v", v)
	}
}
