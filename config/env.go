package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/syssam/dbkit/dialect"
)

// EnvPrefix prefixes the environment variables read by FromEnv, e.g.
// DBKIT_DIALECT, DBKIT_HOST or DBKIT_POOL_MAX.
const EnvPrefix = "DBKIT_"

// urlEnv is the conventional connection URL variable.
type urlEnv struct {
	URL string `env:"DATABASE_URL"`
}

// FromEnv overlays the process environment on cfg. Variables that are not
// set leave the configuration untouched; DATABASE_URL is used when no
// DBKIT_URL is given.
func FromEnv(cfg *Config) error {
	return FromEnvironment(cfg, env.ToMap(os.Environ()))
}

// FromEnvironment is like FromEnv but reads the given variables.
func FromEnvironment(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	if _, ok := environ[EnvPrefix+"URL"]; !ok {
		var u urlEnv
		if err := env.ParseWithOptions(&u, env.Options{Environment: environ}); err != nil {
			return fmt.Errorf("config: environment: %w", err)
		}
		if u.URL != "" {
			cfg.Connection.URL = u.URL
		}
	}
	if n, ok := dialect.Normalize(cfg.Dialect); ok {
		cfg.Dialect = n
	}
	return nil
}
