package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const disposalColumns = `
  request_id, asset_id, reason, description, method, status,
  requested_by, decided_by, created_at_ms, updated_at_ms`

func scanDisposal(r rowScanner) (types.DisposalRequest, error) {
	var (
		d              types.DisposalRequest
		status         string
		decidedBy      sql.NullString
		createdMs, upd int64
	)
	if err := r.Scan(
		&d.ID, &d.AssetID, &d.Reason, &d.Description, &d.Method, &status,
		&d.RequestedBy, &decidedBy, &createdMs, &upd,
	); err != nil {
		return types.DisposalRequest{}, err
	}
	d.Status = types.DisposalStatus(status)
	d.DecidedBy = nullString(decidedBy)
	d.CreatedAt = msToTime(createdMs)
	d.UpdatedAt = msToTime(upd)
	return d, nil
}

func (s *Store) CreateDisposal(ctx context.Context, d types.DisposalRequest) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.touchAsset(ctx, tx, d.AssetID); err != nil {
			return fmt.Errorf("CreateDisposal: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO disposal_requests(`+disposalColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`),
			d.ID, d.AssetID, d.Reason, d.Description, d.Method, string(d.Status),
			d.RequestedBy, stringArg(d.DecidedBy), d.CreatedAt.UTC().UnixMilli(), d.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("CreateDisposal insert: %w", err)
		}
		return nil
	})
}

func (s *Store) GetDisposal(ctx context.Context, id string) (types.DisposalRequest, error) {
	return s.getDisposal(ctx, s.db, id)
}

func (s *Store) getDisposal(ctx context.Context, q queryer, id string) (types.DisposalRequest, error) {
	d, err := scanDisposal(q.QueryRowContext(ctx,
		s.q(`SELECT`+disposalColumns+` FROM disposal_requests WHERE request_id = ?;`), id))
	if err == sql.ErrNoRows {
		return types.DisposalRequest{}, store.ErrNotFound
	}
	if err != nil {
		return types.DisposalRequest{}, fmt.Errorf("GetDisposal: %w", err)
	}
	return d, nil
}

func (s *Store) ListDisposals(ctx context.Context, assetID string) ([]types.DisposalRequest, error) {
	query := `SELECT` + disposalColumns + ` FROM disposal_requests`
	var args []any
	if assetID != "" {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY created_at_ms ASC, request_id ASC;`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ListDisposals: %w", err)
	}
	defer rows.Close()

	out := make([]types.DisposalRequest, 0)
	for rows.Next() {
		d, err := scanDisposal(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDisposals scan: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListDisposals rows: %w", err)
	}
	return out, nil
}

func (s *Store) DecideDisposal(ctx context.Context, id string, to types.DisposalStatus, decidedBy string) (types.DisposalRequest, error) {
	var out types.DisposalRequest
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE disposal_requests
SET status = ?, decided_by = ?, updated_at_ms = ?
WHERE request_id = ? AND status = ?;`),
			string(to), decidedBy, s.now().UnixMilli(), id, string(types.DisposalRequested))
		if err != nil {
			return fmt.Errorf("DecideDisposal: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DecideDisposal rows affected: %w", err)
		}
		if n == 0 {
			if _, err := s.getDisposal(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrConflict
		}

		if out, err = s.getDisposal(ctx, tx, id); err != nil {
			return err
		}
		return s.touchAsset(ctx, tx, out.AssetID)
	})
	return out, err
}

func (s *Store) HasApprovedDisposal(ctx context.Context, assetID string) (bool, error) {
	ok, err := exists(ctx, s.db, s.q(`
SELECT 1 FROM disposal_requests
WHERE asset_id = ? AND status = 'APPROVED'
LIMIT 1;`), assetID)
	if err != nil {
		return false, fmt.Errorf("HasApprovedDisposal: %w", err)
	}
	return ok, nil
}
