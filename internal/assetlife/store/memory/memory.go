package memory

import (
	"context"
	"sync"
	"time"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// Store keeps assets, lifecycle events, maintenance tickets, disposal
// requests, allocations and purchase requests in process memory. It
// implements every store interface and is intended for tests and dev
// environments.
type Store struct {
	mu        sync.RWMutex
	assets    map[string]types.Asset
	events    map[string][]types.LifecycleEvent
	tickets   map[string]types.MaintenanceTicket
	disposals map[string]types.DisposalRequest
	allocs    map[string]types.Allocation
	purchases map[string]types.ProcurementRequest

	lastEventID int64
	now         func() time.Time
}

var (
	_ store.AssetStore       = (*Store)(nil)
	_ store.EventLog         = (*Store)(nil)
	_ store.Transactor       = (*Store)(nil)
	_ store.MaintenanceStore = (*Store)(nil)
	_ store.DisposalStore    = (*Store)(nil)
	_ store.AllocationStore  = (*Store)(nil)
	_ store.ProcurementStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		assets:    make(map[string]types.Asset),
		events:    make(map[string][]types.LifecycleEvent),
		tickets:   make(map[string]types.MaintenanceTicket),
		disposals: make(map[string]types.DisposalRequest),
		allocs:    make(map[string]types.Allocation),
		purchases: make(map[string]types.ProcurementRequest),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithinTx stages every write fn makes and applies them under a single
// write lock once fn returns nil. Preconditions are checked again at commit.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(tx)
}

type memTx struct {
	s       *Store
	updates []store.StatusUpdate
	events  []types.LifecycleEvent
}

func (t *memTx) UpdateStatus(_ context.Context, u store.StatusUpdate) (types.Asset, error) {
	t.s.mu.RLock()
	a, ok := t.s.assets[u.AssetID]
	t.s.mu.RUnlock()
	if !ok {
		return types.Asset{}, store.ErrNotFound
	}
	if a.Status != u.ExpectedStatus || a.Version != u.ExpectedVersion {
		return types.Asset{}, store.ErrConflict
	}

	t.updates = append(t.updates, u)

	a = cloneAsset(a)
	a.Status = u.NewStatus
	a.Version++
	return a, nil
}

func (t *memTx) AppendEvent(_ context.Context, ev types.LifecycleEvent) (int64, error) {
	t.s.mu.Lock()
	t.s.lastEventID++
	ev.ID = t.s.lastEventID
	t.s.mu.Unlock()

	if ev.Timestamp.IsZero() {
		ev.Timestamp = t.s.now()
	}
	t.events = append(t.events, ev)
	return ev.ID, nil
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range tx.updates {
		a, ok := s.assets[u.AssetID]
		if !ok {
			return store.ErrNotFound
		}
		if a.Status != u.ExpectedStatus || a.Version != u.ExpectedVersion {
			return store.ErrConflict
		}
	}
	for _, ev := range tx.events {
		if _, ok := s.assets[ev.AssetID]; !ok {
			return store.ErrNotFound
		}
	}

	now := s.now()
	for _, u := range tx.updates {
		a := s.assets[u.AssetID]
		a.Status = u.NewStatus
		a.Version++
		a.UpdatedAt = now
		s.assets[u.AssetID] = a
	}
	for _, ev := range tx.events {
		s.events[ev.AssetID] = append(s.events[ev.AssetID], ev)
	}
	return nil
}

// touchLocked bumps an asset's version so that a transition whose guards
// read the earlier state fails its commit. Callers hold s.mu.
func (s *Store) touchLocked(assetID string) {
	if a, ok := s.assets[assetID]; ok {
		a.Version++
		s.assets[assetID] = a
	}
}

func cloneAsset(a types.Asset) types.Asset {
	if a.OwnerID != nil {
		v := *a.OwnerID
		a.OwnerID = &v
	}
	if a.PurchaseDate != nil {
		v := *a.PurchaseDate
		a.PurchaseDate = &v
	}
	return a
}
