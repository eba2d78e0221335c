package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// AssetService manages asset records. It has no way to change status after
// creation; that belongs to the lifecycle engine.
type AssetService struct {
	store store.AssetStore
	now   func() time.Time
}

func NewAssetService(st store.AssetStore) *AssetService {
	return &AssetService{store: st, now: func() time.Time { return time.Now().UTC() }}
}

func (s *AssetService) Create(ctx context.Context, req types.CreateAssetRequest) (types.Asset, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return types.Asset{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	status := types.StageProcurement
	if strings.TrimSpace(req.Status) != "" {
		st, err := types.ParseStage(req.Status)
		if err != nil {
			return types.Asset{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if st.Terminal() {
			return types.Asset{}, fmt.Errorf("%w: an asset cannot be created in %s", ErrValidation, st)
		}
		status = st
	}

	cost := decimal.Zero
	if req.PurchaseCost != nil {
		if req.PurchaseCost.IsNegative() {
			return types.Asset{}, fmt.Errorf("%w: purchaseCost must not be negative", ErrValidation)
		}
		cost = *req.PurchaseCost
	}

	bought, err := ParseDate("purchaseDate", req.PurchaseDate)
	if err != nil {
		return types.Asset{}, err
	}

	var owner *string
	if req.OwnerID != nil && strings.TrimSpace(*req.OwnerID) != "" {
		v := strings.TrimSpace(*req.OwnerID)
		owner = &v
	}

	now := s.now()
	a := types.Asset{
		ID:           uuid.NewString(),
		Status:       status,
		Name:         name,
		Category:     strings.TrimSpace(req.Category),
		Department:   strings.TrimSpace(req.Department),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Location:     strings.TrimSpace(req.Location),
		OwnerID:      owner,
		Vendor:       strings.TrimSpace(req.Vendor),
		Description:  req.Description,
		PurchaseCost: cost,
		PurchaseDate: bought,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateAsset(ctx, a); err != nil {
		return types.Asset{}, err
	}
	return a, nil
}

func (s *AssetService) Get(ctx context.Context, id string) (types.Asset, error) {
	return s.store.GetAsset(ctx, strings.TrimSpace(id))
}

func (s *AssetService) List(ctx context.Context, f types.AssetFilter) ([]types.Asset, error) {
	return s.store.ListAssets(ctx, f)
}

// Patch applies an attribute-only update.
func (s *AssetService) Patch(ctx context.Context, id string, p types.AttributePatch) (types.Asset, error) {
	if p.Empty() {
		return types.Asset{}, fmt.Errorf("%w: no attributes to update", ErrValidation)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return types.Asset{}, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if p.PurchaseCost != nil && p.PurchaseCost.IsNegative() {
		return types.Asset{}, fmt.Errorf("%w: purchaseCost must not be negative", ErrValidation)
	}
	return s.store.UpdateAttributes(ctx, strings.TrimSpace(id), p)
}
