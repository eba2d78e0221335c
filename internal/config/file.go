package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config for the TOML file. Booleans are pointers so an
// absent key leaves the current value alone.
type FileConfig struct {
	HTTPAddr        string `toml:"http_addr"`
	GRPCAddr        string `toml:"grpc_addr"`
	Env             string `toml:"env"`
	DBDriver        string `toml:"db_driver"`
	DBPath          string `toml:"db_path"`
	DatabaseURL     string `toml:"database_url"`
	WriteWorkers    int    `toml:"write_workers"`
	RulesFile       string `toml:"rules_file"`
	WatchRules      *bool  `toml:"watch_rules"`
	ActorHeader     string `toml:"actor_header"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	SeedDev         *bool  `toml:"seed_dev"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fc, fmt.Errorf("%s:%d:%d: %w", path, row, col, err)
		}
		return fc, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := configSetter{changed: changed}

	s.setString(&cfg.HTTPAddr, "http-addr", fc.HTTPAddr)
	s.setString(&cfg.GRPCAddr, "grpc-addr", fc.GRPCAddr)
	s.setString(&cfg.Env, "env", fc.Env)
	s.setString(&cfg.DBDriver, "db-driver", fc.DBDriver)
	s.setString(&cfg.DBPath, "db-path", fc.DBPath)
	s.setString(&cfg.DatabaseURL, "database-url", fc.DatabaseURL)
	s.setInt(&cfg.WriteWorkers, "write-workers", fc.WriteWorkers)
	s.setString(&cfg.RulesFile, "rules-file", fc.RulesFile)
	s.setBool(&cfg.WatchRules, "watch-rules", fc.WatchRules)
	s.setString(&cfg.ActorHeader, "actor-header", fc.ActorHeader)
	s.setString(&cfg.LogLevel, "log-level", fc.LogLevel)
	s.setString(&cfg.LogFormat, "log-format", fc.LogFormat)
	s.setBool(&cfg.SeedDev, "seed-dev", fc.SeedDev)

	if fc.ShutdownTimeout != "" {
		d, err := time.ParseDuration(fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("shutdown_timeout: %w", err)
		}
		s.setDuration(&cfg.ShutdownTimeout, "shutdown-timeout", d)
	}
	return nil
}
