// Package sqlstore implements the asset, event, maintenance, disposal,
// allocation and procurement stores on database/sql. The same queries run against SQLite and Postgres;
// placeholders are rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/assetlife/server/internal/assetlife/store"
	dbpkg "github.com/assetlife/server/internal/db"
)

// Store reads through the pool and funnels every write through the db
// worker. On SQLite the pool has a single connection, so callers must not
// issue reads while they are still ranging over History.
type Store struct {
	db      *sql.DB
	dialect dbpkg.Dialect
	writer  *dbpkg.Worker
	now     func() time.Time
}

func New(h *dbpkg.Handle, writer *dbpkg.Worker) *Store {
	return &Store{
		db:      h.DB,
		dialect: h.Dialect,
		writer:  writer,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) q(query string) string { return s.dialect.Rebind(query) }

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func msToTime(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMs(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := msToTime(ns.Int64)
	return &t
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMilli()
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// exists reports whether a row with the given key is present.
func exists(ctx context.Context, q queryer, query string, key string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// touchAsset bumps an asset's version inside tx. Writes that can change a
// guard's outcome call it so a transition that evaluated its guards against
// the earlier state loses its compare-and-swap.
func (s *Store) touchAsset(ctx context.Context, tx *sql.Tx, assetID string) error {
	res, err := tx.ExecContext(ctx, s.q(`UPDATE assets SET version = version + 1 WHERE asset_id = ?;`), assetID)
	if err != nil {
		return fmt.Errorf("touch asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch asset rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("asset %s: %w", assetID, store.ErrNotFound)
	}
	return nil
}

var (
	_ store.AssetStore       = (*Store)(nil)
	_ store.EventLog         = (*Store)(nil)
	_ store.Transactor       = (*Store)(nil)
	_ store.MaintenanceStore = (*Store)(nil)
	_ store.DisposalStore    = (*Store)(nil)
	_ store.AllocationStore  = (*Store)(nil)
	_ store.ProcurementStore = (*Store)(nil)
)
