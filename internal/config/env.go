package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "ASSETLIFE_"

// ApplyEnvConfig overlays ASSETLIFE_* variables. Malformed numbers, booleans
// and durations are reported rather than ignored.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := configSetter{changed: changed}

	s.setString(&cfg.HTTPAddr, "http-addr", getenv("HTTP_ADDR"))
	s.setString(&cfg.GRPCAddr, "grpc-addr", getenv("GRPC_ADDR"))
	s.setString(&cfg.Env, "env", getenv("ENV"))
	s.setString(&cfg.DBDriver, "db-driver", getenv("DB_DRIVER"))
	s.setString(&cfg.DBPath, "db-path", getenv("DB_PATH"))
	s.setString(&cfg.DatabaseURL, "database-url", getenv("DATABASE_URL"))
	s.setString(&cfg.RulesFile, "rules-file", getenv("RULES_FILE"))
	s.setString(&cfg.ActorHeader, "actor-header", getenv("ACTOR_HEADER"))
	s.setString(&cfg.LogLevel, "log-level", getenv("LOG_LEVEL"))
	s.setString(&cfg.LogFormat, "log-format", getenv("LOG_FORMAT"))

	n, err := getenvInt("WRITE_WORKERS")
	if err != nil {
		return err
	}
	s.setInt(&cfg.WriteWorkers, "write-workers", n)

	watch, err := getenvBool("WATCH_RULES")
	if err != nil {
		return err
	}
	s.setBool(&cfg.WatchRules, "watch-rules", watch)

	seed, err := getenvBool("SEED_DEV")
	if err != nil {
		return err
	}
	s.setBool(&cfg.SeedDev, "seed-dev", seed)

	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSHUTDOWN_TIMEOUT: %w", envPrefix, err)
		}
		s.setDuration(&cfg.ShutdownTimeout, "shutdown-timeout", d)
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func getenvInt(key string) (int, error) {
	v := getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s%s: want a non-negative integer, got %q", envPrefix, key, v)
	}
	return n, nil
}

func getenvBool(key string) (*bool, error) {
	v := getenv(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s%s: want a boolean, got %q", envPrefix, key, v)
	}
	return &b, nil
}
