package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) CreateProcurement(_ context.Context, p types.ProcurementRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.AssetID != nil {
		if _, ok := s.assets[*p.AssetID]; !ok {
			return fmt.Errorf("CreateProcurement asset %s: %w", *p.AssetID, store.ErrNotFound)
		}
	}
	if _, ok := s.purchases[p.ID]; ok {
		return fmt.Errorf("CreateProcurement %s: %w", p.ID, store.ErrConflict)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = p.CreatedAt
	s.purchases[p.ID] = cloneProcurement(p)
	return nil
}

func (s *Store) GetProcurement(_ context.Context, id string) (types.ProcurementRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return types.ProcurementRequest{}, store.ErrNotFound
	}
	return cloneProcurement(p), nil
}

func (s *Store) ListProcurements(_ context.Context, f types.ProcurementFilter) ([]types.ProcurementRequest, error) {
	s.mu.RLock()
	out := make([]types.ProcurementRequest, 0)
	for _, p := range s.purchases {
		if f.AssetID != "" && (p.AssetID == nil || *p.AssetID != f.AssetID) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, cloneProcurement(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DecideProcurement(_ context.Context, id string, to types.ProcurementStatus, decidedBy, reason string) (types.ProcurementRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return types.ProcurementRequest{}, store.ErrNotFound
	}
	if p.Status != types.ProcurementPending {
		return types.ProcurementRequest{}, store.ErrConflict
	}
	p.Status = to
	p.DecidedBy = &decidedBy
	p.RejectReason = reason
	p.UpdatedAt = s.now()
	s.purchases[id] = p
	if p.AssetID != nil {
		s.touchLocked(*p.AssetID)
	}
	return cloneProcurement(p), nil
}

func (s *Store) HasApprovedProcurement(_ context.Context, assetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.purchases {
		if p.AssetID != nil && *p.AssetID == assetID && p.Status == types.ProcurementApproved {
			return true, nil
		}
	}
	return false, nil
}

func cloneProcurement(p types.ProcurementRequest) types.ProcurementRequest {
	if p.AssetID != nil {
		v := *p.AssetID
		p.AssetID = &v
	}
	if p.DecidedBy != nil {
		v := *p.DecidedBy
		p.DecidedBy = &v
	}
	return p
}
