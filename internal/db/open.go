package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Config struct {
	Dialect Dialect
	Path    string // sqlite file, e.g. "./data/assetlife.db"
	URL     string // postgres DSN
	Env     string // "dev" | "prod"
}

// Handle bundles an open database with its dialect.
type Handle struct {
	DB      *sql.DB
	Dialect Dialect
}

func (h *Handle) Close() error { return h.DB.Close() }

func Open(ctx context.Context, cfg Config) (*Handle, error) {
	if cfg.Dialect == "" {
		cfg.Dialect = SQLite
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}

	var dsn string
	switch cfg.Dialect {
	case SQLite:
		if cfg.Path == "" {
			cfg.Path = "./data/assetlife.db"
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
		// modernc.org/sqlite DSN with per-connection PRAGMAs.
		dsn = fmt.Sprintf(
			"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
			cfg.Path,
		)
	case Postgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres: database url is required")
		}
		dsn = cfg.URL
	default:
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}

	db, err := sql.Open(cfg.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	if cfg.Dialect == SQLite {
		// Single connection: every write already goes through one worker.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(4)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(ctx, db, cfg.Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Handle{DB: db, Dialect: cfg.Dialect}, nil
}
