package memory

import (
	"context"
	"iter"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

func (s *Store) History(_ context.Context, assetID string) iter.Seq2[types.LifecycleEvent, error] {
	return func(yield func(types.LifecycleEvent, error) bool) {
		s.mu.RLock()
		evs := make([]types.LifecycleEvent, len(s.events[assetID]))
		copy(evs, s.events[assetID])
		s.mu.RUnlock()

		for _, ev := range evs {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func (s *Store) LastEvent(_ context.Context, assetID string) (types.LifecycleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[assetID]
	if len(evs) == 0 {
		return types.LifecycleEvent{}, store.ErrNotFound
	}
	return evs[len(evs)-1], nil
}

// Events returns a copy of every recorded event across all assets.
// Test-only helper.
func (s *Store) Events() []types.LifecycleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.LifecycleEvent
	for _, evs := range s.events {
		out = append(out, evs...)
	}
	return out
}
