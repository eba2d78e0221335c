package httpapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetlife/server/internal/assetlife/service"
	"github.com/assetlife/server/internal/assetlife/types"
)

// ── Lifecycle events ─────────────────────────────────────────────────────────

// eventDTO repeats toStage as stage for dashboard pages that read e.stage.
type eventDTO struct {
	ID        int64       `json:"id"`
	AssetID   string      `json:"assetId"`
	FromStage types.Stage `json:"fromStage"`
	ToStage   types.Stage `json:"toStage"`
	Stage     types.Stage `json:"stage"`
	Notes     string      `json:"notes"`
	ActorID   string      `json:"actorId"`
	Timestamp time.Time   `json:"timestamp"`
}

func eventToDTO(ev types.LifecycleEvent) eventDTO {
	return eventDTO{
		ID:        ev.ID,
		AssetID:   ev.AssetID,
		FromStage: ev.FromStage,
		ToStage:   ev.ToStage,
		Stage:     ev.ToStage,
		Notes:     ev.Notes,
		ActorID:   ev.ActorID,
		Timestamp: ev.Timestamp,
	}
}

// ── Asset patch ──────────────────────────────────────────────────────────────

// optionalString distinguishes an absent field from an explicit null.
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// assetPatchBody is the body of PATCH /assets/{id}. Status is decoded only
// so that it can be refused.
type assetPatchBody struct {
	Name         *string          `json:"name"`
	Category     *string          `json:"category"`
	Department   *string          `json:"department"`
	SerialNumber *string          `json:"serialNumber"`
	Location     *string          `json:"location"`
	OwnerID      optionalString   `json:"ownerId"`
	Vendor       *string          `json:"vendor"`
	Description  *string          `json:"description"`
	PurchaseCost *decimal.Decimal `json:"purchaseCost"`
	PurchaseDate optionalString   `json:"purchaseDate"`
	Status       json.RawMessage  `json:"status"`
}

func (b assetPatchBody) toPatch() (types.AttributePatch, error) {
	p := types.AttributePatch{
		Name:         b.Name,
		Category:     b.Category,
		Department:   b.Department,
		SerialNumber: b.SerialNumber,
		Location:     b.Location,
		Vendor:       b.Vendor,
		Description:  b.Description,
		PurchaseCost: b.PurchaseCost,
	}

	if b.OwnerID.Set {
		if b.OwnerID.Value == nil || strings.TrimSpace(*b.OwnerID.Value) == "" {
			p.ClearOwner = true
		} else {
			v := strings.TrimSpace(*b.OwnerID.Value)
			p.OwnerID = &v
		}
	}

	if b.PurchaseDate.Set {
		if b.PurchaseDate.Value == nil || strings.TrimSpace(*b.PurchaseDate.Value) == "" {
			p.ClearPurchaseDate = true
		} else {
			when, err := service.ParseDate("purchaseDate", *b.PurchaseDate.Value)
			if err != nil {
				return types.AttributePatch{}, err
			}
			p.PurchaseDate = when
		}
	}
	return p, nil
}

// ── Status updates ───────────────────────────────────────────────────────────

type statusBody struct {
	Status string `json:"status"`
}

type decisionBody struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}
