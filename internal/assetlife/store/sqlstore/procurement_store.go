package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const procurementColumns = `
  request_id, asset_id, item_name, category, quantity, estimated_cost,
  vendor, priority, justification, department, requested_by, status,
  decided_by, reject_reason, created_at_ms, updated_at_ms`

func scanProcurement(r rowScanner) (types.ProcurementRequest, error) {
	var (
		p                  types.ProcurementRequest
		assetID, decidedBy sql.NullString
		status             string
		createdMs, updMs   int64
	)
	if err := r.Scan(
		&p.ID, &assetID, &p.ItemName, &p.Category, &p.Quantity, &p.EstimatedCost,
		&p.Vendor, &p.Priority, &p.Justification, &p.Department, &p.RequestedBy, &status,
		&decidedBy, &p.RejectReason, &createdMs, &updMs,
	); err != nil {
		return types.ProcurementRequest{}, err
	}
	p.AssetID = nullString(assetID)
	p.DecidedBy = nullString(decidedBy)
	p.Status = types.ProcurementStatus(status)
	p.CreatedAt = msToTime(createdMs)
	p.UpdatedAt = msToTime(updMs)
	return p, nil
}

func (s *Store) CreateProcurement(ctx context.Context, p types.ProcurementRequest) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = p.CreatedAt

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if p.AssetID != nil {
			ok, err := exists(ctx, tx, s.q(`SELECT 1 FROM assets WHERE asset_id = ?;`), *p.AssetID)
			if err != nil {
				return fmt.Errorf("CreateProcurement: %w", err)
			}
			if !ok {
				return fmt.Errorf("CreateProcurement asset %s: %w", *p.AssetID, store.ErrNotFound)
			}
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO procurement_requests(`+procurementColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`),
			p.ID, stringArg(p.AssetID), p.ItemName, p.Category, p.Quantity, p.EstimatedCost,
			p.Vendor, p.Priority, p.Justification, p.Department, p.RequestedBy, string(p.Status),
			stringArg(p.DecidedBy), p.RejectReason, p.CreatedAt.UTC().UnixMilli(), p.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("CreateProcurement insert: %w", err)
		}
		return nil
	})
}

func (s *Store) GetProcurement(ctx context.Context, id string) (types.ProcurementRequest, error) {
	return s.getProcurement(ctx, s.db, id)
}

func (s *Store) getProcurement(ctx context.Context, q queryer, id string) (types.ProcurementRequest, error) {
	p, err := scanProcurement(q.QueryRowContext(ctx,
		s.q(`SELECT`+procurementColumns+` FROM procurement_requests WHERE request_id = ?;`), id))
	if err == sql.ErrNoRows {
		return types.ProcurementRequest{}, store.ErrNotFound
	}
	if err != nil {
		return types.ProcurementRequest{}, fmt.Errorf("GetProcurement: %w", err)
	}
	return p, nil
}

func (s *Store) ListProcurements(ctx context.Context, f types.ProcurementFilter) ([]types.ProcurementRequest, error) {
	query := `SELECT` + procurementColumns + ` FROM procurement_requests WHERE 1=1`
	var args []any
	if f.AssetID != "" {
		query += ` AND asset_id = ?`
		args = append(args, f.AssetID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at_ms ASC, request_id ASC;`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ListProcurements: %w", err)
	}
	defer rows.Close()

	out := make([]types.ProcurementRequest, 0)
	for rows.Next() {
		p, err := scanProcurement(rows)
		if err != nil {
			return nil, fmt.Errorf("ListProcurements scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListProcurements rows: %w", err)
	}
	return out, nil
}

func (s *Store) DecideProcurement(ctx context.Context, id string, to types.ProcurementStatus, decidedBy, reason string) (types.ProcurementRequest, error) {
	var out types.ProcurementRequest
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE procurement_requests
SET status = ?, decided_by = ?, reject_reason = ?, updated_at_ms = ?
WHERE request_id = ? AND status = ?;`),
			string(to), decidedBy, reason, s.now().UnixMilli(), id, string(types.ProcurementPending))
		if err != nil {
			return fmt.Errorf("DecideProcurement: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DecideProcurement rows affected: %w", err)
		}
		if n == 0 {
			if _, err := s.getProcurement(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrConflict
		}

		if out, err = s.getProcurement(ctx, tx, id); err != nil {
			return err
		}
		if out.AssetID == nil {
			return nil
		}
		return s.touchAsset(ctx, tx, *out.AssetID)
	})
	return out, err
}

func (s *Store) HasApprovedProcurement(ctx context.Context, assetID string) (bool, error) {
	ok, err := exists(ctx, s.db, s.q(`
SELECT 1 FROM procurement_requests
WHERE asset_id = ? AND status = 'APPROVED'
LIMIT 1;`), assetID)
	if err != nil {
		return false, fmt.Errorf("HasApprovedProcurement: %w", err)
	}
	return ok, nil
}
