package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) CreateAsset(_ context.Context, a types.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[a.ID]; ok {
		return fmt.Errorf("CreateAsset %s: %w", a.ID, store.ErrConflict)
	}
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	s.assets[a.ID] = cloneAsset(a)
	return nil
}

func (s *Store) GetAsset(_ context.Context, id string) (types.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return types.Asset{}, store.ErrNotFound
	}
	return cloneAsset(a), nil
}

func (s *Store) ListAssets(_ context.Context, f types.AssetFilter) ([]types.Asset, error) {
	s.mu.RLock()
	out := make([]types.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Category != "" && a.Category != f.Category {
			continue
		}
		if f.OwnerID != "" && (a.OwnerID == nil || *a.OwnerID != f.OwnerID) {
			continue
		}
		out = append(out, cloneAsset(a))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateAttributes(_ context.Context, id string, p types.AttributePatch) (types.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.assets[id]
	if !ok {
		return types.Asset{}, store.ErrNotFound
	}
	a = cloneAsset(a)
	p.Apply(&a)
	a.Version++
	a.UpdatedAt = s.now()
	s.assets[id] = a
	return cloneAsset(a), nil
}
