package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

const assetColumns = `
  asset_id, status, version, name, category, department,
  serial_number, location, owner_id, vendor, description,
  purchase_cost, purchase_date_ms, created_at_ms, updated_at_ms`

func scanAsset(r rowScanner) (types.Asset, error) {
	var (
		a                types.Asset
		status           string
		owner            sql.NullString
		purchaseDate     sql.NullInt64
		createdMs, updMs int64
	)
	if err := r.Scan(
		&a.ID, &status, &a.Version, &a.Name, &a.Category, &a.Department,
		&a.SerialNumber, &a.Location, &owner, &a.Vendor, &a.Description,
		&a.PurchaseCost, &purchaseDate, &createdMs, &updMs,
	); err != nil {
		return types.Asset{}, err
	}
	a.Status = types.Stage(status)
	a.OwnerID = nullString(owner)
	a.PurchaseDate = nullMs(purchaseDate)
	a.CreatedAt = msToTime(createdMs)
	a.UpdatedAt = msToTime(updMs)
	return a, nil
}

func (s *Store) CreateAsset(ctx context.Context, a types.Asset) error {
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		dup, err := exists(ctx, tx, s.q(`SELECT 1 FROM assets WHERE asset_id = ?;`), a.ID)
		if err != nil {
			return fmt.Errorf("CreateAsset: %w", err)
		}
		if dup {
			return fmt.Errorf("CreateAsset %s: %w", a.ID, store.ErrConflict)
		}

		if _, err := tx.ExecContext(ctx, s.q(`
INSERT INTO assets(`+assetColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`),
			a.ID, string(a.Status), a.Version, a.Name, a.Category, a.Department,
			a.SerialNumber, a.Location, stringArg(a.OwnerID), a.Vendor, a.Description,
			a.PurchaseCost, timeArg(a.PurchaseDate),
			a.CreatedAt.UTC().UnixMilli(), a.UpdatedAt.UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("CreateAsset insert: %w", err)
		}
		return nil
	})
}

func (s *Store) GetAsset(ctx context.Context, id string) (types.Asset, error) {
	return s.getAsset(ctx, s.db, id)
}

func (s *Store) getAsset(ctx context.Context, q queryer, id string) (types.Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx,
		s.q(`SELECT`+assetColumns+` FROM assets WHERE asset_id = ?;`), id))
	if err == sql.ErrNoRows {
		return types.Asset{}, store.ErrNotFound
	}
	if err != nil {
		return types.Asset{}, fmt.Errorf("GetAsset: %w", err)
	}
	return a, nil
}

func (s *Store) ListAssets(ctx context.Context, f types.AssetFilter) ([]types.Asset, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}

	query := `SELECT` + assetColumns + ` FROM assets`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at_ms ASC, asset_id ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query+";"), args...)
	if err != nil {
		return nil, fmt.Errorf("ListAssets: %w", err)
	}
	defer rows.Close()

	out := make([]types.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAssets scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAssets rows: %w", err)
	}
	return out, nil
}

// UpdateAttributes rewrites every attribute column from the patched record
// and bumps the version. Status is never part of the statement.
func (s *Store) UpdateAttributes(ctx context.Context, id string, p types.AttributePatch) (types.Asset, error) {
	var out types.Asset
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		a, err := s.getAsset(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Apply(&a)
		a.UpdatedAt = s.now()

		if _, err := tx.ExecContext(ctx, s.q(`
UPDATE assets
SET name = ?, category = ?, department = ?, serial_number = ?,
    location = ?, owner_id = ?, vendor = ?, description = ?,
    purchase_cost = ?, purchase_date_ms = ?, updated_at_ms = ?,
    version = version + 1
WHERE asset_id = ?;`),
			a.Name, a.Category, a.Department, a.SerialNumber,
			a.Location, stringArg(a.OwnerID), a.Vendor, a.Description,
			a.PurchaseCost, timeArg(a.PurchaseDate), a.UpdatedAt.UnixMilli(),
			id,
		); err != nil {
			return fmt.Errorf("UpdateAttributes: %w", err)
		}
		a.Version++
		out = a
		return nil
	})
	return out, err
}
