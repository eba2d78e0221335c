package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/assetlife/server/internal/assetlife/store/sqlstore"
	"github.com/assetlife/server/internal/assetlife/types"
	"github.com/assetlife/server/internal/db"
)

// openTestDB returns an in-memory SQLite handle with the same PRAGMAs and
// schema as production. It is closed automatically when the test finishes.
func openTestDB(t *testing.T) *db.Handle {
	t.Helper()

	// Each test gets its own shared-cache database; the name must not
	// contain the '/' that subtests add.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		name,
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	if err := db.Migrate(context.Background(), conn, db.SQLite); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return &db.Handle{DB: conn, Dialect: db.SQLite}
}

// newTestStore wires a Store to a fresh database and write worker.
func newTestStore(t *testing.T) (*sqlstore.Store, *db.Handle) {
	t.Helper()

	h := openTestDB(t)
	w := db.NewWorker(h.DB)
	t.Cleanup(func() { w.Close() })
	return sqlstore.New(h, w), h
}

func seedAsset(t *testing.T, s *sqlstore.Store, id string, status types.Stage) types.Asset {
	t.Helper()

	a := types.Asset{
		ID:           id,
		Status:       status,
		Name:         "Asset " + id,
		Category:     "IT Equipment",
		Location:     "HQ-1",
		PurchaseCost: decimal.RequireFromString("1200.50"),
		CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := s.CreateAsset(context.Background(), a); err != nil {
		t.Fatalf("seedAsset %s: %v", id, err)
	}
	return a
}
