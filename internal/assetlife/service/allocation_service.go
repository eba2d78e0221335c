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

// AllocationService checks assets out to people and back in. An asset can
// only be held while it is COMMISSIONED or IN_OPERATION, and by one
// assignee at a time.
type AllocationService struct {
	allocs store.AllocationStore
	assets assetGetter
	now    func() time.Time
}

func NewAllocationService(as store.AllocationStore, assets assetGetter) *AllocationService {
	return &AllocationService{allocs: as, assets: assets, now: func() time.Time { return time.Now().UTC() }}
}

func allocatable(st types.Stage) bool {
	return st == types.StageCommissioned || st == types.StageInOperation
}

func (s *AllocationService) Allocate(ctx context.Context, req types.AllocationRequest) (types.Allocation, error) {
	by := actor.FromContext(ctx)
	if by == "" {
		return types.Allocation{}, actor.ErrMissing
	}

	assetID := strings.TrimSpace(req.AssetID)
	if assetID == "" {
		return types.Allocation{}, fmt.Errorf("%w: assetId is required", ErrValidation)
	}
	assignee := strings.TrimSpace(req.AssignedToID)
	if assignee == "" {
		return types.Allocation{}, fmt.Errorf("%w: assignedToId is required", ErrValidation)
	}
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return types.Allocation{}, fmt.Errorf("%w: location is required", ErrValidation)
	}

	kind, err := types.ParseAllocationType(req.AllocationType)
	if err != nil {
		return types.Allocation{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if strings.TrimSpace(req.Status) != "" {
		st, err := types.ParseAllocationStatus(req.Status)
		if err != nil {
			return types.Allocation{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		if st != types.AllocationActive {
			return types.Allocation{}, fmt.Errorf("%w: a new allocation must be %s", ErrValidation, types.AllocationActive)
		}
	}

	start, err := ParseDate("startDate", req.StartDate)
	if err != nil {
		return types.Allocation{}, err
	}
	due, err := ParseDate("expectedReturnDate", req.ExpectedReturnDate)
	if err != nil {
		return types.Allocation{}, err
	}
	if kind == types.AllocationTemporary && (start == nil || due == nil) {
		return types.Allocation{}, fmt.Errorf("%w: a temporary allocation needs startDate and expectedReturnDate", ErrValidation)
	}
	if start != nil && due != nil && !due.After(*start) {
		return types.Allocation{}, fmt.Errorf("%w: expectedReturnDate must be after startDate", ErrValidation)
	}

	a, err := s.available(ctx, assetID)
	if err != nil {
		return types.Allocation{}, err
	}

	now := s.now()
	al := types.Allocation{
		ID:             uuid.NewString(),
		AssetID:        assetID,
		AssignedTo:     assignee,
		Type:           kind,
		Department:     strings.TrimSpace(req.Department),
		Location:       location,
		Purpose:        req.Purpose,
		Notes:          req.Notes,
		Status:         types.AllocationActive,
		StartDate:      start,
		ExpectedReturn: due,
		AllocatedBy:    by,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.allocs.CreateAllocation(ctx, al, a.Version); err != nil {
		return types.Allocation{}, err
	}
	return al, nil
}

// available returns the asset if it may be handed out right now.
func (s *AllocationService) available(ctx context.Context, assetID string) (types.Asset, error) {
	a, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return types.Asset{}, err
	}
	if !allocatable(a.Status) {
		return types.Asset{}, fmt.Errorf("%w: asset is %s; only %s or %s assets can be allocated",
			ErrInvalidState, a.Status, types.StageCommissioned, types.StageInOperation)
	}
	n, err := s.allocs.CountActiveAllocations(ctx, assetID)
	if err != nil {
		return types.Asset{}, err
	}
	if n > 0 {
		return types.Asset{}, fmt.Errorf("%w: asset is already checked out", ErrInvalidState)
	}
	return a, nil
}

func (s *AllocationService) Get(ctx context.Context, id string) (types.Allocation, error) {
	return s.allocs.GetAllocation(ctx, id)
}

func (s *AllocationService) List(ctx context.Context, assetID, assignedTo, status string) ([]types.Allocation, error) {
	f := types.AllocationFilter{
		AssetID:    strings.TrimSpace(assetID),
		AssignedTo: strings.TrimSpace(assignedTo),
	}
	if strings.TrimSpace(status) != "" {
		st, err := types.ParseAllocationStatus(status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		f.Status = st
	}
	return s.allocs.ListAllocations(ctx, f)
}

// CheckIn returns the asset. The asset keeps its location; its owner is
// cleared if it still points at the assignee.
func (s *AllocationService) CheckIn(ctx context.Context, id string) (types.Allocation, error) {
	if actor.FromContext(ctx) == "" {
		return types.Allocation{}, actor.ErrMissing
	}

	cur, err := s.allocs.GetAllocation(ctx, id)
	if err != nil {
		return types.Allocation{}, err
	}
	if cur.Status != types.AllocationActive {
		return types.Allocation{}, fmt.Errorf("%w: allocation is already checked in", ErrInvalidState)
	}
	return s.allocs.CheckIn(ctx, id)
}

// CheckOut hands a returned allocation's asset back to the same assignee.
func (s *AllocationService) CheckOut(ctx context.Context, id string) (types.Allocation, error) {
	if actor.FromContext(ctx) == "" {
		return types.Allocation{}, actor.ErrMissing
	}

	cur, err := s.allocs.GetAllocation(ctx, id)
	if err != nil {
		return types.Allocation{}, err
	}
	if cur.Status != types.AllocationReturned {
		return types.Allocation{}, fmt.Errorf("%w: allocation is already checked out", ErrInvalidState)
	}
	a, err := s.available(ctx, cur.AssetID)
	if err != nil {
		return types.Allocation{}, err
	}
	return s.allocs.CheckOut(ctx, id, a.Version)
}
