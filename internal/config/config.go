// Package config resolves server settings from defaults, an optional TOML
// file, ASSETLIFE_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // empty disables the gRPC health listener

	Env string // "dev" | "prod"

	// DB
	DBDriver     string // sqlite | postgres | memory
	DBPath       string // e.g. "./data/assetlife.db"
	DatabaseURL  string // postgres DSN
	WriteWorkers int    // postgres only; sqlite always uses one

	// Lifecycle rules
	RulesFile  string // empty uses the embedded defaults
	WatchRules bool

	ActorHeader string

	LogLevel  string
	LogFormat string // console | json

	SeedDev         bool
	ShutdownTimeout time.Duration
}

func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		Env:             "dev",
		DBDriver:        DriverSQLite,
		DBPath:          "./data/assetlife.db",
		WriteWorkers:    4,
		ActorHeader:     "X-Actor-ID",
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate normalises case-insensitive fields and rejects inconsistent
// combinations.
func (c *Config) Validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		return fmt.Errorf("env must be dev or prod, got %q", c.Env)
	}

	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			return errors.New("db-path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("database-url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("db-driver must be sqlite, postgres or memory, got %q", c.DBDriver)
	}

	if strings.TrimSpace(c.HTTPAddr) == "" {
		return errors.New("http-addr is required")
	}
	if c.GRPCAddr != "" && c.GRPCAddr == c.HTTPAddr {
		return errors.New("grpc-addr must differ from http-addr")
	}
	if c.WriteWorkers < 1 {
		return fmt.Errorf("write-workers must be >= 1, got %d", c.WriteWorkers)
	}
	if c.WatchRules && c.RulesFile == "" {
		return errors.New("watch-rules needs a rules-file")
	}
	if strings.TrimSpace(c.ActorHeader) == "" {
		return errors.New("actor-header must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown-timeout must be positive")
	}
	if c.SeedDev && c.Env != "dev" {
		return errors.New("seed-dev is only allowed in the dev env")
	}
	return nil
}

// configSetter applies values unless the matching flag was set explicitly.
type configSetter struct {
	changed map[string]bool
}

func (s configSetter) skip(flag string) bool {
	return s.changed != nil && s.changed[flag]
}

func (s configSetter) setString(dst *string, flag, v string) {
	if s.skip(flag) || strings.TrimSpace(v) == "" {
		return
	}
	*dst = v
}

func (s configSetter) setInt(dst *int, flag string, v int) {
	if s.skip(flag) || v == 0 {
		return
	}
	*dst = v
}

func (s configSetter) setBool(dst *bool, flag string, v *bool) {
	if s.skip(flag) || v == nil {
		return
	}
	*dst = *v
}

func (s configSetter) setDuration(dst *time.Duration, flag string, v time.Duration) {
	if s.skip(flag) || v == 0 {
		return
	}
	*dst = v
}
