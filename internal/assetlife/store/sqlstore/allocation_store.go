package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const allocationColumns = `
  allocation_id, asset_id, assigned_to, kind, department, location,
  purpose, notes, status, start_date_ms, expected_return_ms,
  allocated_by, returned_at_ms, created_at_ms, updated_at_ms`

func scanAllocation(r rowScanner) (types.Allocation, error) {
	var (
		al                        types.Allocation
		kind, status              string
		start, expected, returned sql.NullInt64
		createdMs, updMs          int64
	)
	if err := r.Scan(
		&al.ID, &al.AssetID, &al.AssignedTo, &kind, &al.Department, &al.Location,
		&al.Purpose, &al.Notes, &status, &start, &expected,
		&al.AllocatedBy, &returned, &createdMs, &updMs,
	); err != nil {
		return types.Allocation{}, err
	}
	al.Type = types.AllocationType(kind)
	al.Status = types.AllocationStatus(status)
	al.StartDate = nullMs(start)
	al.ExpectedReturn = nullMs(expected)
	al.ReturnedAt = nullMs(returned)
	al.CreatedAt = msToTime(createdMs)
	al.UpdatedAt = msToTime(updMs)
	return al, nil
}

func (s *Store) CreateAllocation(ctx context.Context, al types.Allocation, expectedVersion int64) error {
	if al.CreatedAt.IsZero() {
		al.CreatedAt = s.now()
	}
	al.UpdatedAt = al.CreatedAt
	al.Status = types.AllocationActive

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.handOver(ctx, tx, al, expectedVersion); err != nil {
			return fmt.Errorf("CreateAllocation: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO allocations(`+allocationColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`),
			al.ID, al.AssetID, al.AssignedTo, string(al.Type), al.Department, al.Location,
			al.Purpose, al.Notes, string(al.Status), timeArg(al.StartDate), timeArg(al.ExpectedReturn),
			al.AllocatedBy, timeArg(al.ReturnedAt), al.CreatedAt.UTC().UnixMilli(), al.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("CreateAllocation insert: %w", err)
		}
		return nil
	})
}

// handOver points the asset at al's assignee and location, provided the
// asset is still at expectedVersion and has no other active allocation.
func (s *Store) handOver(ctx context.Context, tx *sql.Tx, al types.Allocation, expectedVersion int64) error {
	busy, err := exists(ctx, tx, s.q(`
SELECT 1 FROM allocations
WHERE asset_id = ? AND status = 'ACTIVE'
LIMIT 1;`), al.AssetID)
	if err != nil {
		return err
	}
	if busy {
		return fmt.Errorf("asset %s already allocated: %w", al.AssetID, store.ErrConflict)
	}

	res, err := tx.ExecContext(ctx, s.q(`
UPDATE assets
SET owner_id = ?, location = ?, version = version + 1, updated_at_ms = ?
WHERE asset_id = ? AND version = ?;`),
		al.AssignedTo, al.Location, s.now().UnixMilli(), al.AssetID, expectedVersion)
	if err != nil {
		return fmt.Errorf("hand over asset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("hand over rows affected: %w", err)
	}
	if n == 0 {
		if _, err := s.getAsset(ctx, tx, al.AssetID); err != nil {
			return err
		}
		return fmt.Errorf("asset %s: %w", al.AssetID, store.ErrConflict)
	}
	return nil
}

func (s *Store) GetAllocation(ctx context.Context, id string) (types.Allocation, error) {
	return s.getAllocation(ctx, s.db, id)
}

func (s *Store) getAllocation(ctx context.Context, q queryer, id string) (types.Allocation, error) {
	al, err := scanAllocation(q.QueryRowContext(ctx,
		s.q(`SELECT`+allocationColumns+` FROM allocations WHERE allocation_id = ?;`), id))
	if err == sql.ErrNoRows {
		return types.Allocation{}, store.ErrNotFound
	}
	if err != nil {
		return types.Allocation{}, fmt.Errorf("GetAllocation: %w", err)
	}
	return al, nil
}

func (s *Store) ListAllocations(ctx context.Context, f types.AllocationFilter) ([]types.Allocation, error) {
	query := `SELECT` + allocationColumns + ` FROM allocations WHERE 1=1`
	var args []any
	if f.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, f.AssetID)
	}
	if f.AssignedTo != "" {
		query += ` AND assigned_to = ?`
		args = append(args, f.AssignedTo)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at_ms ASC, allocation_id ASC;`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ListAllocations: %w", err)
	}
	defer rows.Close()

	out := make([]types.Allocation, 0)
	for rows.Next() {
		al, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAllocations scan: %w", err)
		}
		out = append(out, al)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAllocations rows: %w", err)
	}
	return out, nil
}

func (s *Store) CheckIn(ctx context.Context, id string) (types.Allocation, error) {
	var out types.Allocation
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		now := s.now().UnixMilli()
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE allocations
SET status = ?, returned_at_ms = ?, updated_at_ms = ?
WHERE allocation_id = ? AND status = ?;`),
			string(types.AllocationReturned), now, now, id, string(types.AllocationActive))
		if err != nil {
			return fmt.Errorf("CheckIn: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("CheckIn rows affected: %w", err)
		}
		if n == 0 {
			if _, err := s.getAllocation(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrConflict
		}

		if out, err = s.getAllocation(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.q(`
UPDATE assets
SET owner_id = CASE WHEN owner_id = ? THEN NULL ELSE owner_id END,
    version = version + 1, updated_at_ms = ?
WHERE asset_id = ?;`), out.AssignedTo, now, out.AssetID); err != nil {
			return fmt.Errorf("CheckIn release asset: %w", err)
		}
		return nil
	})
	return out, err
}

func (s *Store) CheckOut(ctx context.Context, id string, expectedVersion int64) (types.Allocation, error) {
	var out types.Allocation
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		al, err := s.getAllocation(ctx, tx, id)
		if err != nil {
			return err
		}
		if al.Status != types.AllocationReturned {
			return store.ErrConflict
		}
		if err := s.handOver(ctx, tx, al, expectedVersion); err != nil {
			return fmt.Errorf("CheckOut: %w", err)
		}

		res, err := tx.ExecContext(ctx, s.q(`
UPDATE allocations
SET status = ?, returned_at_ms = NULL, updated_at_ms = ?
WHERE allocation_id = ? AND status = ?;`),
			string(types.AllocationActive), s.now().UnixMilli(), id, string(types.AllocationReturned))
		if err != nil {
			return fmt.Errorf("CheckOut: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("CheckOut rows affected: %w", err)
		} else if n == 0 {
			return store.ErrConflict
		}

		out, err = s.getAllocation(ctx, tx, id)
		return err
	})
	return out, err
}

func (s *Store) CountActiveAllocations(ctx context.Context, assetID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.q(`
SELECT COUNT(*) FROM allocations
WHERE asset_id = ? AND status = 'ACTIVE';`), assetID).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountActiveAllocations: %w", err)
	}
	return n, nil
}
