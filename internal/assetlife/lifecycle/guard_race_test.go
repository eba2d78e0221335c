package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/store/memory"
	"github.com/assetlife/server/internal/assetlife/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Guard inputs changing between evaluation and commit
// ═══════════════════════════════════════════════════════════════════════════

// staleTickets reports the open-ticket count as it was, then opens a ticket
// before the engine gets to commit. It opens at most one.
type staleTickets struct {
	s       *memory.Store
	assetID string
	opened  bool
}

func (st *staleTickets) CountOpenTickets(ctx context.Context, assetID string) (int, error) {
	n, err := st.s.CountOpenTickets(ctx, assetID)
	if err != nil || st.opened {
		return n, err
	}
	st.opened = true
	if err := st.s.CreateTicket(ctx, types.MaintenanceTicket{
		ID: "late-ticket", AssetID: st.assetID, Kind: types.TicketCorrective,
		Status: types.TicketScheduled, OpenedBy: "tech",
	}); err != nil {
		return 0, err
	}
	return n, nil
}

func TestTransition_TicketOpenedAfterGuardIsConflict(t *testing.T) {
	s := memory.New()
	e := lifecycle.NewEngine(lifecycle.Deps{
		Assets:     s,
		Events:     s,
		Transactor: s,
		Tickets:    &staleTickets{s: s, assetID: "a"},
		Disposals:  s,
		Logger:     zerolog.Nop(),
	})
	seedAsset(t, s, "a", types.StageMaintenance, "Workshop")

	_, err := e.Transition(asUser("u"), "a", types.StageInOperation, "")
	if !errors.Is(err, lifecycle.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := status(t, s, "a"); got != types.StageMaintenance {
		t.Fatalf("status = %s, want MAINTENANCE", got)
	}
	if n := len(s.Events()); n != 0 {
		t.Fatalf("stale transition wrote %d events", n)
	}

	// A retry sees the ticket and is refused by the guard.
	_, err = e.Transition(asUser("u"), "a", types.StageInOperation, "")
	var ge *lifecycle.GuardError
	if !errors.As(err, &ge) || ge.Guard != lifecycle.GuardNoOpenMaintenance {
		t.Fatalf("retry: expected no_open_maintenance guard failure, got %v", err)
	}
}

// patchBeforeCommit applies an attribute patch right before delegating the
// commit, as a concurrent PATCH /assets/{id} would.
type patchBeforeCommit struct {
	s       *memory.Store
	assetID string
	patch   types.AttributePatch
}

func (p patchBeforeCommit) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	if _, err := p.s.UpdateAttributes(ctx, p.assetID, p.patch); err != nil {
		return err
	}
	return p.s.WithinTx(ctx, fn)
}

func TestTransition_LocationClearedAfterGuardIsConflict(t *testing.T) {
	empty := ""
	e, s := newEngine(t, func(s *memory.Store) store.Transactor {
		return patchBeforeCommit{s: s, assetID: "a", patch: types.AttributePatch{Location: &empty}}
	})
	seedAsset(t, s, "a", types.StageProcurement, "Dock 4")

	_, err := e.Transition(asUser("u"), "a", types.StageCommissioned, "")
	if !errors.Is(err, lifecycle.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := status(t, s, "a"); got != types.StageProcurement {
		t.Fatalf("status = %s, want PROCUREMENT", got)
	}
}

func TestTransition_DisposalFiledAfterGuardIsConflict(t *testing.T) {
	e, s := newEngine(t, func(ms *memory.Store) store.Transactor {
		return fileDisposalBeforeCommit{s: ms, assetID: "a"}
	})
	seedAsset(t, s, "a", types.StageInOperation, "HQ")
	approveDisposal(t, s, "a")

	_, err := e.Transition(asUser("u"), "a", types.StageDisposal, "")
	if !errors.Is(err, lifecycle.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := status(t, s, "a"); got != types.StageInOperation {
		t.Fatalf("status = %s, want IN_OPERATION", got)
	}
}

// fileDisposalBeforeCommit files another disposal request for the asset
// right before the engine commits.
type fileDisposalBeforeCommit struct {
	s       *memory.Store
	assetID string
}

func (f fileDisposalBeforeCommit) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	if err := f.s.CreateDisposal(ctx, types.DisposalRequest{
		ID: "disp-late", AssetID: f.assetID, Reason: "duplicate", Status: types.DisposalRequested, RequestedBy: "mgr",
	}); err != nil {
		return err
	}
	return f.s.WithinTx(ctx, fn)
}

func TestTransition_CheckOutAfterGuardIsConflict(t *testing.T) {
	e, s := newEngine(t, func(ms *memory.Store) store.Transactor {
		return allocateBeforeCommit{s: ms, assetID: "a"}
	})
	seedAsset(t, s, "a", types.StageInOperation, "HQ")
	approveDisposal(t, s, "a")

	_, err := e.Transition(asUser("u"), "a", types.StageDisposal, "")
	if !errors.Is(err, lifecycle.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got := status(t, s, "a"); got != types.StageInOperation {
		t.Fatalf("status = %s, want IN_OPERATION", got)
	}
}

// allocateBeforeCommit checks the asset out to someone right before the
// engine commits.
type allocateBeforeCommit struct {
	s       *memory.Store
	assetID string
}

func (a allocateBeforeCommit) WithinTx(ctx context.Context, fn func(context.Context, store.Tx) error) error {
	cur, err := a.s.GetAsset(ctx, a.assetID)
	if err != nil {
		return err
	}
	if err := a.s.CreateAllocation(ctx, types.Allocation{
		ID: "alloc-1", AssetID: a.assetID, AssignedTo: "emp-1", Type: types.AllocationPermanent,
		Location: "Desk 1", AllocatedBy: "desk",
	}, cur.Version); err != nil {
		return err
	}
	return a.s.WithinTx(ctx, fn)
}
