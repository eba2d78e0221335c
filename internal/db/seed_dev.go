package db

import (
	"context"
	"fmt"
	"time"
)

type SeedDevOptions struct {
	// Location given to the demo assets. Empty keeps them in PROCUREMENT
	// without a location so the location guard can be tried out.
	Location string
}

type seedAsset struct {
	id, name, category, department, serial, status string
	cost                                           string
}

var devAssets = []seedAsset{
	{"00000000-0000-4000-8000-000000000001", "Dell Latitude 7440", "IT Equipment", "Engineering", "DL7440-0001", "PROCUREMENT", "1450.00"},
	{"00000000-0000-4000-8000-000000000002", "Forklift FX-20", "Machinery", "Warehouse", "FX20-9911", "IN_OPERATION", "23800.00"},
	{"00000000-0000-4000-8000-000000000003", "Conference Display 86in", "Furniture & Fixtures", "Facilities", "CD86-4410", "COMMISSIONED", "3120.50"},
}

// SeedDev inserts a few demo assets. Existing rows are left alone so it is
// safe to run on every dev start.
func SeedDev(ctx context.Context, h *Handle, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	for _, a := range devAssets {
		loc := opt.Location
		if a.status == "PROCUREMENT" {
			loc = ""
		}
		if _, err := h.DB.ExecContext(ctx, h.Dialect.Rebind(`
INSERT INTO assets(
  asset_id, status, version, name, category, department,
  serial_number, location, purchase_cost,
  created_at_ms, updated_at_ms
) VALUES (?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(asset_id) DO NOTHING;`),
			a.id, a.status, a.name, a.category, a.department,
			a.serial, loc, a.cost, now, now,
		); err != nil {
			return fmt.Errorf("seed asset %s: %w", a.id, err)
		}
	}

	return nil
}
