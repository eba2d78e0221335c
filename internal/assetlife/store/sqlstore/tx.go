package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// WithinTx runs fn inside one database transaction on the write worker.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, &sqlTx{s: s, tx: tx})
	})
}

type sqlTx struct {
	s  *Store
	tx *sql.Tx
}

func (t *sqlTx) UpdateStatus(ctx context.Context, u store.StatusUpdate) (types.Asset, error) {
	res, err := t.tx.ExecContext(ctx, t.s.q(`
UPDATE assets
SET status = ?, version = version + 1, updated_at_ms = ?
WHERE asset_id = ? AND status = ? AND version = ?;`),
		string(u.NewStatus), t.s.now().UnixMilli(),
		u.AssetID, string(u.ExpectedStatus), u.ExpectedVersion,
	)
	if err != nil {
		return types.Asset{}, fmt.Errorf("UpdateStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Asset{}, fmt.Errorf("UpdateStatus rows affected: %w", err)
	}
	if n == 0 {
		ok, err := exists(ctx, t.tx, t.s.q(`SELECT 1 FROM assets WHERE asset_id = ?;`), u.AssetID)
		if err != nil {
			return types.Asset{}, fmt.Errorf("UpdateStatus: %w", err)
		}
		if !ok {
			return types.Asset{}, store.ErrNotFound
		}
		return types.Asset{}, store.ErrConflict
	}

	return t.s.getAsset(ctx, t.tx, u.AssetID)
}

func (t *sqlTx) AppendEvent(ctx context.Context, ev types.LifecycleEvent) (int64, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.s.now()
	}

	var id int64
	err := t.tx.QueryRowContext(ctx, t.s.q(`
INSERT INTO lifecycle_events(
  asset_id, from_stage, to_stage, notes, actor_id, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?)
RETURNING event_id;`),
		ev.AssetID, string(ev.FromStage), string(ev.ToStage),
		ev.Notes, ev.ActorID, ev.Timestamp.UTC().UnixMilli(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("AppendEvent insert: %w", err)
	}
	return id, nil
}
