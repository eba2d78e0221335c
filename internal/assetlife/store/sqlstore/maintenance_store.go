package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const ticketColumns = `
  ticket_id, asset_id, kind, status, scheduled_for_ms, vendor,
  estimated_cost, notes, opened_by, created_at_ms, updated_at_ms`

func scanTicket(r rowScanner) (types.MaintenanceTicket, error) {
	var (
		t              types.MaintenanceTicket
		kind, status   string
		scheduled      sql.NullInt64
		cost           decimal.NullDecimal
		createdMs, upd int64
	)
	if err := r.Scan(
		&t.ID, &t.AssetID, &kind, &status, &scheduled, &t.Vendor,
		&cost, &t.Notes, &t.OpenedBy, &createdMs, &upd,
	); err != nil {
		return types.MaintenanceTicket{}, err
	}
	t.Kind = types.TicketKind(kind)
	t.Status = types.TicketStatus(status)
	t.ScheduledFor = nullMs(scheduled)
	if cost.Valid {
		d := cost.Decimal
		t.EstimatedCost = &d
	}
	t.CreatedAt = msToTime(createdMs)
	t.UpdatedAt = msToTime(upd)
	return t, nil
}

func (s *Store) CreateTicket(ctx context.Context, t types.MaintenanceTicket) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	var cost any
	if t.EstimatedCost != nil {
		cost = *t.EstimatedCost
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.touchAsset(ctx, tx, t.AssetID); err != nil {
			return fmt.Errorf("CreateTicket: %w", err)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO maintenance_tickets(`+ticketColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`),
			t.ID, t.AssetID, string(t.Kind), string(t.Status), timeArg(t.ScheduledFor), t.Vendor,
			cost, t.Notes, t.OpenedBy, t.CreatedAt.UTC().UnixMilli(), t.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("CreateTicket insert: %w", err)
		}
		return nil
	})
}

func (s *Store) GetTicket(ctx context.Context, id string) (types.MaintenanceTicket, error) {
	return s.getTicket(ctx, s.db, id)
}

func (s *Store) getTicket(ctx context.Context, q queryer, id string) (types.MaintenanceTicket, error) {
	t, err := scanTicket(q.QueryRowContext(ctx,
		s.q(`SELECT`+ticketColumns+` FROM maintenance_tickets WHERE ticket_id = ?;`), id))
	if err == sql.ErrNoRows {
		return types.MaintenanceTicket{}, store.ErrNotFound
	}
	if err != nil {
		return types.MaintenanceTicket{}, fmt.Errorf("GetTicket: %w", err)
	}
	return t, nil
}

func (s *Store) ListTickets(ctx context.Context, assetID string) ([]types.MaintenanceTicket, error) {
	query := `SELECT` + ticketColumns + ` FROM maintenance_tickets`
	var args []any
	if assetID != "" {
		query += ` WHERE asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY created_at_ms ASC, ticket_id ASC;`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ListTickets: %w", err)
	}
	defer rows.Close()

	out := make([]types.MaintenanceTicket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTickets scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTickets rows: %w", err)
	}
	return out, nil
}

func (s *Store) SetTicketStatus(ctx context.Context, id string, from, to types.TicketStatus) (types.MaintenanceTicket, error) {
	var out types.MaintenanceTicket
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.q(`
UPDATE maintenance_tickets
SET status = ?, updated_at_ms = ?
WHERE ticket_id = ? AND status = ?;`),
			string(to), s.now().UnixMilli(), id, string(from))
		if err != nil {
			return fmt.Errorf("SetTicketStatus: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("SetTicketStatus rows affected: %w", err)
		}
		if n == 0 {
			if _, err := s.getTicket(ctx, tx, id); err != nil {
				return err
			}
			return store.ErrConflict
		}

		if out, err = s.getTicket(ctx, tx, id); err != nil {
			return err
		}
		return s.touchAsset(ctx, tx, out.AssetID)
	})
	return out, err
}

func (s *Store) CountOpenTickets(ctx context.Context, assetID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
SELECT COUNT(*) FROM maintenance_tickets
WHERE asset_id = ? AND status IN (?, ?);`),
		assetID, string(types.TicketScheduled), string(types.TicketInProgress),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("CountOpenTickets: %w", err)
	}
	return n, nil
}
