package lifecycle_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/store/memory"
	"github.com/assetlife/server/internal/assetlife/types"
)

// newEngine wires an Engine to a fresh in-memory store. tx, if non-nil,
// replaces the store as the engine's Transactor.
func newEngine(t *testing.T, tx func(*memory.Store) store.Transactor) (*lifecycle.Engine, *memory.Store) {
	t.Helper()

	s := memory.New()
	var txr store.Transactor = s
	if tx != nil {
		txr = tx(s)
	}
	e := lifecycle.NewEngine(lifecycle.Deps{
		Assets:       s,
		Events:       s,
		Transactor:   txr,
		Tickets:      s,
		Disposals:    s,
		Allocations:  s,
		Procurements: s,
		Logger:       zerolog.Nop(),
	})
	return e, s
}

func asUser(id string) context.Context {
	return actor.WithID(context.Background(), id)
}

func seedAsset(t *testing.T, s *memory.Store, id string, status types.Stage, location string) {
	t.Helper()

	if err := s.CreateAsset(context.Background(), types.Asset{
		ID:       id,
		Status:   status,
		Name:     "asset " + id,
		Location: location,
	}); err != nil {
		t.Fatalf("seedAsset %s: %v", id, err)
	}
}

func approveDisposal(t *testing.T, s *memory.Store, assetID string) {
	t.Helper()

	if err := s.CreateDisposal(context.Background(), types.DisposalRequest{
		ID:          "disp-" + assetID,
		AssetID:     assetID,
		Reason:      "end of life",
		Status:      types.DisposalApproved,
		RequestedBy: "mgr",
	}); err != nil {
		t.Fatalf("approveDisposal %s: %v", assetID, err)
	}
}

func history(t *testing.T, e *lifecycle.Engine, assetID string) []types.LifecycleEvent {
	t.Helper()

	seq, err := e.HistoryOf(context.Background(), assetID)
	if err != nil {
		t.Fatalf("HistoryOf %s: %v", assetID, err)
	}
	var out []types.LifecycleEvent
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("HistoryOf %s: %v", assetID, err)
		}
		out = append(out, ev)
	}
	return out
}

func status(t *testing.T, s *memory.Store, assetID string) types.Stage {
	t.Helper()

	a, err := s.GetAsset(context.Background(), assetID)
	if err != nil {
		t.Fatalf("GetAsset %s: %v", assetID, err)
	}
	return a.Status
}

// ── Transactor wrappers for fault injection ─────────────────────────────

// failingAppend commits nothing: every AppendEvent fails.
type failingAppend struct {
	inner store.Transactor
	err   error
}

func (f failingAppend) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	return f.inner.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return fn(ctx, failingTx{Tx: tx, err: f.err})
	})
}

type failingTx struct {
	store.Tx
	err error
}

func (f failingTx) AppendEvent(context.Context, types.LifecycleEvent) (int64, error) {
	return 0, f.err
}

// interloper moves the asset behind the engine's back right before the
// engine's own commit, as another process sharing the database would.
type interloper struct {
	s       *memory.Store
	assetID string
	to      types.Stage
}

func (i interloper) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	a, err := i.s.GetAsset(ctx, i.assetID)
	if err != nil {
		return err
	}
	if err := i.s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.UpdateStatus(ctx, store.StatusUpdate{
			AssetID: a.ID, ExpectedStatus: a.Status, ExpectedVersion: a.Version, NewStatus: i.to,
		})
		return err
	}); err != nil {
		return err
	}
	return i.s.WithinTx(ctx, fn)
}

// gate blocks the commit until released and records whether the context
// handed to the commit was cancelled.
type gate struct {
	inner   store.Transactor
	entered chan struct{}
	release chan struct{}
}

func (g *gate) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	close(g.entered)
	<-g.release
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.inner.WithinTx(ctx, fn)
}
