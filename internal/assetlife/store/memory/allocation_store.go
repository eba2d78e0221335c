package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) CreateAllocation(_ context.Context, al types.Allocation, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.allocs[al.ID]; ok {
		return fmt.Errorf("CreateAllocation %s: %w", al.ID, store.ErrConflict)
	}
	if err := s.handOverLocked(al, expectedVersion); err != nil {
		return fmt.Errorf("CreateAllocation: %w", err)
	}

	now := s.now()
	if al.CreatedAt.IsZero() {
		al.CreatedAt = now
	}
	al.UpdatedAt = al.CreatedAt
	al.Status = types.AllocationActive
	s.allocs[al.ID] = cloneAllocation(al)
	return nil
}

func (s *Store) GetAllocation(_ context.Context, id string) (types.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	al, ok := s.allocs[id]
	if !ok {
		return types.Allocation{}, store.ErrNotFound
	}
	return cloneAllocation(al), nil
}

func (s *Store) ListAllocations(_ context.Context, f types.AllocationFilter) ([]types.Allocation, error) {
	s.mu.RLock()
	out := make([]types.Allocation, 0)
	for _, al := range s.allocs {
		if f.AssetID != "" && al.AssetID != f.AssetID {
			continue
		}
		if f.AssignedTo != "" && al.AssignedTo != f.AssignedTo {
			continue
		}
		if f.Status != "" && al.Status != f.Status {
			continue
		}
		out = append(out, cloneAllocation(al))
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

func (s *Store) CheckIn(_ context.Context, id string) (types.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	al, ok := s.allocs[id]
	if !ok {
		return types.Allocation{}, store.ErrNotFound
	}
	if al.Status != types.AllocationActive {
		return types.Allocation{}, store.ErrConflict
	}

	now := s.now()
	if a, ok := s.assets[al.AssetID]; ok {
		if a.OwnerID != nil && *a.OwnerID == al.AssignedTo {
			a.OwnerID = nil
		}
		a.Version++
		a.UpdatedAt = now
		s.assets[al.AssetID] = a
	}

	al.Status = types.AllocationReturned
	al.ReturnedAt = &now
	al.UpdatedAt = now
	s.allocs[id] = al
	return cloneAllocation(al), nil
}

func (s *Store) CheckOut(_ context.Context, id string, expectedVersion int64) (types.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	al, ok := s.allocs[id]
	if !ok {
		return types.Allocation{}, store.ErrNotFound
	}
	if al.Status != types.AllocationReturned {
		return types.Allocation{}, store.ErrConflict
	}
	if err := s.handOverLocked(al, expectedVersion); err != nil {
		return types.Allocation{}, fmt.Errorf("CheckOut: %w", err)
	}

	al.Status = types.AllocationActive
	al.ReturnedAt = nil
	al.UpdatedAt = s.now()
	s.allocs[id] = al
	return cloneAllocation(al), nil
}

func (s *Store) CountActiveAllocations(_ context.Context, assetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAllocationsLocked(assetID), nil
}

func (s *Store) activeAllocationsLocked(assetID string) int {
	n := 0
	for _, al := range s.allocs {
		if al.AssetID == assetID && al.Status == types.AllocationActive {
			n++
		}
	}
	return n
}

// handOverLocked gives the asset to al's assignee if the asset is still at
// expectedVersion and nobody else holds it. Callers hold s.mu.
func (s *Store) handOverLocked(al types.Allocation, expectedVersion int64) error {
	a, ok := s.assets[al.AssetID]
	if !ok {
		return fmt.Errorf("asset %s: %w", al.AssetID, store.ErrNotFound)
	}
	if a.Version != expectedVersion || s.activeAllocationsLocked(al.AssetID) > 0 {
		return fmt.Errorf("asset %s: %w", al.AssetID, store.ErrConflict)
	}

	owner := al.AssignedTo
	a.OwnerID = &owner
	a.Location = al.Location
	a.Version++
	a.UpdatedAt = s.now()
	s.assets[al.AssetID] = a
	return nil
}

func cloneAllocation(al types.Allocation) types.Allocation {
	for _, p := range []**time.Time{&al.StartDate, &al.ExpectedReturn, &al.ReturnedAt} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	return al
}
