package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) CreateTicket(_ context.Context, t types.MaintenanceTicket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[t.AssetID]; !ok {
		return fmt.Errorf("CreateTicket asset %s: %w", t.AssetID, store.ErrNotFound)
	}
	if _, ok := s.tickets[t.ID]; ok {
		return fmt.Errorf("CreateTicket %s: %w", t.ID, store.ErrConflict)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	s.tickets[t.ID] = t
	s.touchLocked(t.AssetID)
	return nil
}

func (s *Store) GetTicket(_ context.Context, id string) (types.MaintenanceTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return types.MaintenanceTicket{}, store.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTickets(_ context.Context, assetID string) ([]types.MaintenanceTicket, error) {
	s.mu.RLock()
	out := make([]types.MaintenanceTicket, 0)
	for _, t := range s.tickets {
		if assetID != "" && t.AssetID != assetID {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SetTicketStatus(_ context.Context, id string, from, to types.TicketStatus) (types.MaintenanceTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return types.MaintenanceTicket{}, store.ErrNotFound
	}
	if t.Status != from {
		return types.MaintenanceTicket{}, store.ErrConflict
	}
	t.Status = to
	t.UpdatedAt = s.now()
	s.tickets[id] = t
	s.touchLocked(t.AssetID)
	return t, nil
}

func (s *Store) CountOpenTickets(_ context.Context, assetID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tickets {
		if t.AssetID == assetID && t.Status.Open() {
			n++
		}
	}
	return n, nil
}
