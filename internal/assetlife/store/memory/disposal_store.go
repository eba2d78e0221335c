package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) CreateDisposal(_ context.Context, d types.DisposalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[d.AssetID]; !ok {
		return fmt.Errorf("CreateDisposal asset %s: %w", d.AssetID, store.ErrNotFound)
	}
	if _, ok := s.disposals[d.ID]; ok {
		return fmt.Errorf("CreateDisposal %s: %w", d.ID, store.ErrConflict)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	s.disposals[d.ID] = d
	s.touchLocked(d.AssetID)
	return nil
}

func (s *Store) GetDisposal(_ context.Context, id string) (types.DisposalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disposals[id]
	if !ok {
		return types.DisposalRequest{}, store.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDisposals(_ context.Context, assetID string) ([]types.DisposalRequest, error) {
	s.mu.RLock()
	out := make([]types.DisposalRequest, 0)
	for _, d := range s.disposals {
		if assetID != "" && d.AssetID != assetID {
			continue
		}
		out = append(out, d)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) DecideDisposal(_ context.Context, id string, to types.DisposalStatus, decidedBy string) (types.DisposalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.disposals[id]
	if !ok {
		return types.DisposalRequest{}, store.ErrNotFound
	}
	if d.Status != types.DisposalRequested {
		return types.DisposalRequest{}, store.ErrConflict
	}
	d.Status = to
	d.DecidedBy = &decidedBy
	d.UpdatedAt = s.now()
	s.disposals[id] = d
	s.touchLocked(d.AssetID)
	return d, nil
}

func (s *Store) HasApprovedDisposal(_ context.Context, assetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.disposals {
		if d.AssetID == assetID && d.Status == types.DisposalApproved {
			return true, nil
		}
	}
	return false, nil
}
