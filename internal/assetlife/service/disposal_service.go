package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

type assetGetter interface {
	GetAsset(ctx context.Context, id string) (types.Asset, error)
}

// DisposalService records disposal requests and their approval. Approval
// does not move the asset; it only satisfies the disposal guard.
type DisposalService struct {
	disposals store.DisposalStore
	assets    assetGetter
	now       func() time.Time
}

func NewDisposalService(ds store.DisposalStore, assets assetGetter) *DisposalService {
	return &DisposalService{disposals: ds, assets: assets, now: func() time.Time { return time.Now().UTC() }}
}

func (s *DisposalService) Request(ctx context.Context, body types.DisposalRequestBody) (types.DisposalRequest, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.DisposalRequest{}, actor.ErrMissing
	}

	assetID := strings.TrimSpace(body.AssetID)
	if assetID == "" {
		return types.DisposalRequest{}, fmt.Errorf("%w: assetId is required", ErrValidation)
	}
	reason := strings.TrimSpace(body.Reason)
	if reason == "" {
		return types.DisposalRequest{}, fmt.Errorf("%w: reason is required", ErrValidation)
	}
	if strings.TrimSpace(body.Status) != "" {
		st, err := types.ParseDisposalStatus(body.Status)
		if err != nil {
			return types.DisposalRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if st != types.DisposalRequested {
			return types.DisposalRequest{}, fmt.Errorf("%w: a new disposal request must be %s", ErrValidation, types.DisposalRequested)
		}
	}

	a, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return types.DisposalRequest{}, err
	}
	if a.Status.Terminal() {
		return types.DisposalRequest{}, fmt.Errorf("%w: asset is already disposed", ErrInvalidState)
	}

	now := s.now()
	d := types.DisposalRequest{
		ID:          uuid.NewString(),
		AssetID:     assetID,
		Reason:      reason,
		Description: body.Description,
		Method:      strings.TrimSpace(body.Method),
		Status:      types.DisposalRequested,
		RequestedBy: by,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.disposals.CreateDisposal(ctx, d); err != nil {
		return types.DisposalRequest{}, err
	}
	return d, nil
}

func (s *DisposalService) List(ctx context.Context, assetID string) ([]types.DisposalRequest, error) {
	return s.disposals.ListDisposals(ctx, strings.TrimSpace(assetID))
}

// Decide approves or rejects a pending request on behalf of the actor in
// ctx.
func (s *DisposalService) Decide(ctx context.Context, id, status string) (types.DisposalRequest, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.DisposalRequest{}, actor.ErrMissing
	}

	to, err := types.ParseDisposalStatus(status)
	if err != nil {
		return types.DisposalRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if to != types.DisposalApproved && to != types.DisposalRejected {
		return types.DisposalRequest{}, fmt.Errorf("%w: decision must be %s or %s", ErrValidation, types.DisposalApproved, types.DisposalRejected)
	}

	cur, err := s.disposals.GetDisposal(ctx, id)
	if err != nil {
		return types.DisposalRequest{}, err
	}
	if cur.Status != types.DisposalRequested {
		return types.DisposalRequest{}, fmt.Errorf("%w: request was already %s", ErrInvalidState, cur.Status)
	}
	return s.disposals.DecideDisposal(ctx, id, to, by)
}
