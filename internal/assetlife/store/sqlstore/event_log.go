package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const eventColumns = `event_id, asset_id, from_stage, to_stage, notes, actor_id, created_at_ms`

func scanEvent(r rowScanner) (types.LifecycleEvent, error) {
	var (
		ev       types.LifecycleEvent
		from, to string
		ms       int64
	)
	if err := r.Scan(&ev.ID, &ev.AssetID, &from, &to, &ev.Notes, &ev.ActorID, &ms); err != nil {
		return types.LifecycleEvent{}, err
	}
	ev.FromStage = types.Stage(from)
	ev.ToStage = types.Stage(to)
	ev.Timestamp = msToTime(ms)
	return ev, nil
}

// History runs the query each time the sequence is ranged over. Rows are
// streamed; the connection is held until iteration stops.
func (s *Store) History(ctx context.Context, assetID string) iter.Seq2[types.LifecycleEvent, error] {
	return func(yield func(types.LifecycleEvent, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.q(`
SELECT `+eventColumns+`
FROM lifecycle_events
WHERE asset_id = ?
ORDER BY event_id ASC;`), assetID)
		if err != nil {
			yield(types.LifecycleEvent{}, fmt.Errorf("History: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				yield(types.LifecycleEvent{}, fmt.Errorf("History scan: %w", err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(types.LifecycleEvent{}, fmt.Errorf("History rows: %w", err))
		}
	}
}

func (s *Store) LastEvent(ctx context.Context, assetID string) (types.LifecycleEvent, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, s.q(`
SELECT `+eventColumns+`
FROM lifecycle_events
WHERE asset_id = ?
ORDER BY event_id DESC
LIMIT 1;`), assetID))
	if err == sql.ErrNoRows {
		return types.LifecycleEvent{}, store.ErrNotFound
	}
	if err != nil {
		return types.LifecycleEvent{}, fmt.Errorf("LastEvent: %w", err)
	}
	return ev, nil
}
