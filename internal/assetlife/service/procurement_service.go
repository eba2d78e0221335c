package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// ProcurementService records purchase requests and their approval. Like
// disposal approval, approving a request never moves an asset.
type ProcurementService struct {
	purchases store.ProcurementStore
	assets    assetGetter
	now       func() time.Time
}

func NewProcurementService(ps store.ProcurementStore, assets assetGetter) *ProcurementService {
	return &ProcurementService{purchases: ps, assets: assets, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ProcurementService) Submit(ctx context.Context, body types.ProcurementRequestBody) (types.ProcurementRequest, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.ProcurementRequest{}, actor.ErrMissing
	}

	item := strings.TrimSpace(body.ItemName)
	if item == "" {
		return types.ProcurementRequest{}, fmt.Errorf("%w: itemName is required", ErrValidation)
	}
	qty := body.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return types.ProcurementRequest{}, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	cost := decimal.Zero
	if body.EstimatedCost != nil {
		if body.EstimatedCost.IsNegative() {
			return types.ProcurementRequest{}, fmt.Errorf("%w: estimatedCost must not be negative", ErrValidation)
		}
		cost = *body.EstimatedCost
	}
	if strings.TrimSpace(body.Status) != "" {
		st, err := types.ParseProcurementStatus(body.Status)
		if err != nil {
			return types.ProcurementRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if st != types.ProcurementPending {
			return types.ProcurementRequest{}, fmt.Errorf("%w: a new procurement request must be %s", ErrValidation, types.ProcurementPending)
		}
	}

	var assetID *string
	if id := strings.TrimSpace(body.AssetID); id != "" {
		a, err := s.assets.GetAsset(ctx, id)
		if err != nil {
			return types.ProcurementRequest{}, err
		}
		if a.Status.Terminal() {
			return types.ProcurementRequest{}, fmt.Errorf("%w: asset is already disposed", ErrInvalidState)
		}
		assetID = &id
	}

	now := s.now()
	p := types.ProcurementRequest{
		ID:            uuid.NewString(),
		AssetID:       assetID,
		ItemName:      item,
		Category:      strings.TrimSpace(body.Category),
		Quantity:      qty,
		EstimatedCost: cost,
		Vendor:        strings.TrimSpace(body.Vendor),
		Priority:      strings.ToUpper(strings.TrimSpace(body.Priority)),
		Justification: body.Justification,
		Department:    strings.TrimSpace(body.Department),
		RequestedBy:   by,
		Status:        types.ProcurementPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.purchases.CreateProcurement(ctx, p); err != nil {
		return types.ProcurementRequest{}, err
	}
	return p, nil
}

func (s *ProcurementService) Get(ctx context.Context, id string) (types.ProcurementRequest, error) {
	return s.purchases.GetProcurement(ctx, id)
}

func (s *ProcurementService) List(ctx context.Context, assetID, status string) ([]types.ProcurementRequest, error) {
	f := types.ProcurementFilter{AssetID: strings.TrimSpace(assetID)}
	if strings.TrimSpace(status) != "" {
		st, err := types.ParseProcurementStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.Status = st
	}
	return s.purchases.ListProcurements(ctx, f)
}

// Decide approves or rejects a pending request on behalf of the actor in
// ctx. A rejection needs a reason; an approval drops it.
func (s *ProcurementService) Decide(ctx context.Context, id, status, reason string) (types.ProcurementRequest, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.ProcurementRequest{}, actor.ErrMissing
	}

	to, err := types.ParseProcurementStatus(status)
	if err != nil {
		return types.ProcurementRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if to != types.ProcurementApproved && to != types.ProcurementRejected {
		return types.ProcurementRequest{}, fmt.Errorf("%w: decision must be %s or %s", ErrValidation, types.ProcurementApproved, types.ProcurementRejected)
	}
	reason = strings.TrimSpace(reason)
	switch {
	case to == types.ProcurementApproved:
		reason = ""
	case reason == "":
		return types.ProcurementRequest{}, fmt.Errorf("%w: a rejection needs a reason", ErrValidation)
	}

	cur, err := s.purchases.GetProcurement(ctx, id)
	if err != nil {
		return types.ProcurementRequest{}, err
	}
	if cur.Status != types.ProcurementPending {
		return types.ProcurementRequest{}, fmt.Errorf("%w: request was already %s", ErrInvalidState, cur.Status)
	}
	return s.purchases.DecideProcurement(ctx, id, to, by, reason)
}
