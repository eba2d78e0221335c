package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// ═══════════════════════════════════════════════════════════════════════════
// Assets
// ═══════════════════════════════════════════════════════════════════════════

func TestAssetStore_CreateAndGet_RoundTripsColumns(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	owner := "emp-7"
	bought := time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC)
	in := types.Asset{
		ID:           "a-1",
		Status:       types.StageProcurement,
		Name:         "Forklift",
		Category:     "Machinery",
		Department:   "Warehouse",
		SerialNumber: "FX-1",
		Location:     "Dock 4",
		OwnerID:      &owner,
		Vendor:       "Acme",
		PurchaseCost: decimal.RequireFromString("23800.10"),
		PurchaseDate: &bought,
	}
	if err := s.CreateAsset(ctx, in); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	got, err := s.GetAsset(ctx, "a-1")
	if err != nil {
		t.Fatalf("GetAsset: %v", err)
	}
	if got.Status != types.StageProcurement || got.Version != 0 {
		t.Errorf("status/version = %s/%d", got.Status, got.Version)
	}
	if got.OwnerID == nil || *got.OwnerID != owner {
		t.Errorf("owner = %v, want %s", got.OwnerID, owner)
	}
	if !got.PurchaseCost.Equal(in.PurchaseCost) {
		t.Errorf("purchase cost = %s, want %s", got.PurchaseCost, in.PurchaseCost)
	}
	if got.PurchaseDate == nil || !got.PurchaseDate.Equal(bought) {
		t.Errorf("purchase date = %v, want %v", got.PurchaseDate, bought)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestAssetStore_CreateDuplicate_Conflict(t *testing.T) {
	s, _ := newTestStore(t)
	seedAsset(t, s, "a-1", types.StageProcurement)

	err := s.CreateAsset(context.Background(), types.Asset{ID: "a-1", Status: types.StageProcurement, Name: "dup"})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAssetStore_GetMissing_NotFound(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetAsset(context.Background(), "nope")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssetStore_ListAssets_Filters(t *testing.T) {
	s, _ := newTestStore(t)
	seedAsset(t, s, "a-1", types.StageProcurement)
	seedAsset(t, s, "a-2", types.StageInOperation)
	seedAsset(t, s, "a-3", types.StageInOperation)

	all, err := s.ListAssets(context.Background(), types.AssetFilter{})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(all))
	}

	inOp, err := s.ListAssets(context.Background(), types.AssetFilter{Status: types.StageInOperation, Limit: 1})
	if err != nil {
		t.Fatalf("ListAssets filtered: %v", err)
	}
	if len(inOp) != 1 || inOp[0].ID != "a-2" {
		t.Fatalf("expected [a-2], got %+v", inOp)
	}
}

func TestAssetStore_UpdateAttributes_LeavesStatusAlone(t *testing.T) {
	s, _ := newTestStore(t)
	seedAsset(t, s, "a-1", types.StageInOperation)

	loc := "Plant B"
	got, err := s.UpdateAttributes(context.Background(), "a-1", types.AttributePatch{Location: &loc, ClearOwner: true})
	if err != nil {
		t.Fatalf("UpdateAttributes: %v", err)
	}
	if got.Location != loc {
		t.Errorf("location = %q, want %q", got.Location, loc)
	}
	if got.Status != types.StageInOperation {
		t.Errorf("status changed: %s", got.Status)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1 (attribute writes bump it)", got.Version)
	}

	if _, err := s.UpdateAttributes(context.Background(), "missing", types.AttributePatch{Location: &loc}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAssetStore_UpdateAttributes_ClearsPurchaseDate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageInOperation)

	bought := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpdateAttributes(ctx, "a-1", types.AttributePatch{PurchaseDate: &bought}); err != nil {
		t.Fatalf("set date: %v", err)
	}
	if a, _ := s.GetAsset(ctx, "a-1"); a.PurchaseDate == nil || !a.PurchaseDate.Equal(bought) {
		t.Fatalf("purchase date = %v, want %v", a.PurchaseDate, bought)
	}

	if _, err := s.UpdateAttributes(ctx, "a-1", types.AttributePatch{ClearPurchaseDate: true}); err != nil {
		t.Fatalf("clear date: %v", err)
	}
	if a, _ := s.GetAsset(ctx, "a-1"); a.PurchaseDate != nil {
		t.Fatalf("purchase date = %v, want cleared", a.PurchaseDate)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Transactions: status CAS + event append
// ═══════════════════════════════════════════════════════════════════════════

func TestWithinTx_CommitsStatusAndEventTogether(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageProcurement)

	var evID int64
	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.UpdateStatus(ctx, store.StatusUpdate{
			AssetID: "a-1", ExpectedStatus: types.StageProcurement, ExpectedVersion: 0,
			NewStatus: types.StageCommissioned,
		})
		if err != nil {
			return err
		}
		if a.Version != 1 {
			t.Errorf("version inside tx = %d, want 1", a.Version)
		}
		evID, err = tx.AppendEvent(ctx, types.LifecycleEvent{
			AssetID: "a-1", FromStage: types.StageProcurement, ToStage: types.StageCommissioned,
			ActorID: "u-1", Notes: "installed",
		})
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if evID <= 0 {
		t.Fatalf("expected positive event id, got %d", evID)
	}

	a, _ := s.GetAsset(ctx, "a-1")
	if a.Status != types.StageCommissioned {
		t.Errorf("status = %s, want COMMISSIONED", a.Status)
	}

	last, err := s.LastEvent(ctx, "a-1")
	if err != nil {
		t.Fatalf("LastEvent: %v", err)
	}
	if last.ID != evID || last.ToStage != types.StageCommissioned || last.ActorID != "u-1" {
		t.Errorf("unexpected last event %+v", last)
	}
}

func TestWithinTx_ErrorRollsBackStatus(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageProcurement)

	boom := errors.New("append failed")
	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.UpdateStatus(ctx, store.StatusUpdate{
			AssetID: "a-1", ExpectedStatus: types.StageProcurement, NewStatus: types.StageCommissioned,
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected error, got %v", err)
	}

	a, _ := s.GetAsset(ctx, "a-1")
	if a.Status != types.StageProcurement || a.Version != 0 {
		t.Fatalf("status rolled forward: %s/%d", a.Status, a.Version)
	}
	if _, err := s.LastEvent(ctx, "a-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no events, got %v", err)
	}
}

func TestUpdateStatus_StaleVersion_Conflict(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageProcurement)

	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.UpdateStatus(ctx, store.StatusUpdate{
			AssetID: "a-1", ExpectedStatus: types.StageProcurement, ExpectedVersion: 5,
			NewStatus: types.StageCommissioned,
		})
		return err
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.UpdateStatus(ctx, store.StatusUpdate{AssetID: "ghost", NewStatus: types.StageAudit})
		return err
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event log: ordering and append-only enforcement
// ═══════════════════════════════════════════════════════════════════════════

func TestHistory_AscendingAndRestartable(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageProcurement)
	seedAsset(t, s, "a-2", types.StageProcurement)

	path := []types.Stage{types.StageProcurement, types.StageCommissioned, types.StageInOperation, types.StageAudit}
	for i := 1; i < len(path); i++ {
		from, to := path[i-1], path[i]
		err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			if _, err := tx.UpdateStatus(ctx, store.StatusUpdate{
				AssetID: "a-1", ExpectedStatus: from, ExpectedVersion: int64(i - 1), NewStatus: to,
			}); err != nil {
				return err
			}
			_, err := tx.AppendEvent(ctx, types.LifecycleEvent{AssetID: "a-1", FromStage: from, ToStage: to, ActorID: "u"})
			return err
		})
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	for pass := 0; pass < 2; pass++ {
		var got []types.Stage
		var lastID int64
		for ev, err := range s.History(ctx, "a-1") {
			if err != nil {
				t.Fatalf("History: %v", err)
			}
			if ev.ID <= lastID {
				t.Fatalf("event ids not ascending: %d after %d", ev.ID, lastID)
			}
			lastID = ev.ID
			got = append(got, ev.ToStage)
		}
		if len(got) != 3 || got[2] != types.StageAudit {
			t.Fatalf("pass %d: history = %v", pass, got)
		}
	}

	for _, err := range s.History(ctx, "a-2") {
		t.Fatalf("expected empty history for a-2, got err=%v", err)
	}
}

func TestEventLog_RejectsUpdateAndDelete(t *testing.T) {
	s, h := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageProcurement)

	err := s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.AppendEvent(ctx, types.LifecycleEvent{
			AssetID: "a-1", FromStage: types.StageProcurement, ToStage: types.StageCommissioned, ActorID: "u",
		})
		return err
	})
	if err != nil {
		t.Fatalf("AppendEvent: %v", err)
	}

	if _, err := h.DB.ExecContext(ctx, `UPDATE lifecycle_events SET notes = 'edited';`); err == nil {
		t.Error("expected UPDATE on lifecycle_events to fail")
	}
	if _, err := h.DB.ExecContext(ctx, `DELETE FROM lifecycle_events;`); err == nil {
		t.Error("expected DELETE on lifecycle_events to fail")
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Maintenance tickets and disposal requests
// ═══════════════════════════════════════════════════════════════════════════

func TestMaintenance_OpenCountAndStatusCAS(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageInOperation)

	cost := decimal.RequireFromString("250")
	tk := types.MaintenanceTicket{
		ID: "m-1", AssetID: "a-1", Kind: types.TicketCorrective,
		Status: types.TicketScheduled, EstimatedCost: &cost, OpenedBy: "tech",
	}
	if err := s.CreateTicket(ctx, tk); err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}

	n, err := s.CountOpenTickets(ctx, "a-1")
	if err != nil || n != 1 {
		t.Fatalf("CountOpenTickets = %d, %v; want 1", n, err)
	}

	got, err := s.SetTicketStatus(ctx, "m-1", types.TicketScheduled, types.TicketCompleted)
	if err != nil {
		t.Fatalf("SetTicketStatus: %v", err)
	}
	if got.Status != types.TicketCompleted || got.EstimatedCost == nil || !got.EstimatedCost.Equal(cost) {
		t.Errorf("unexpected ticket %+v", got)
	}

	if _, err := s.SetTicketStatus(ctx, "m-1", types.TicketScheduled, types.TicketCancelled); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if n, _ := s.CountOpenTickets(ctx, "a-1"); n != 0 {
		t.Fatalf("open tickets after completion = %d", n)
	}

	if err := s.CreateTicket(ctx, types.MaintenanceTicket{ID: "m-2", AssetID: "ghost", Status: types.TicketScheduled}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown asset, got %v", err)
	}
}

func TestDisposal_DecideOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageInOperation)

	if err := s.CreateDisposal(ctx, types.DisposalRequest{
		ID: "d-1", AssetID: "a-1", Reason: "obsolete", Status: types.DisposalRequested, RequestedBy: "mgr",
	}); err != nil {
		t.Fatalf("CreateDisposal: %v", err)
	}

	ok, err := s.HasApprovedDisposal(ctx, "a-1")
	if err != nil || ok {
		t.Fatalf("HasApprovedDisposal before decision = %v, %v", ok, err)
	}

	got, err := s.DecideDisposal(ctx, "d-1", types.DisposalApproved, "cfo")
	if err != nil {
		t.Fatalf("DecideDisposal: %v", err)
	}
	if got.DecidedBy == nil || *got.DecidedBy != "cfo" {
		t.Errorf("decidedBy = %v", got.DecidedBy)
	}

	if ok, _ := s.HasApprovedDisposal(ctx, "a-1"); !ok {
		t.Fatal("expected approved disposal")
	}
	if _, err := s.DecideDisposal(ctx, "d-1", types.DisposalRejected, "cfo"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict on second decision, got %v", err)
	}
	if _, err := s.DecideDisposal(ctx, "nope", types.DisposalRejected, "cfo"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGuardInputWrites_BumpAssetVersion(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	seedAsset(t, s, "a-1", types.StageInOperation)

	version := func() int64 {
		t.Helper()
		a, err := s.GetAsset(ctx, "a-1")
		if err != nil {
			t.Fatalf("GetAsset: %v", err)
		}
		return a.Version
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"open ticket", func() error {
			return s.CreateTicket(ctx, types.MaintenanceTicket{ID: "m-1", AssetID: "a-1", Kind: types.TicketInspection, Status: types.TicketScheduled, OpenedBy: "tech"})
		}},
		{"close ticket", func() error {
			_, err := s.SetTicketStatus(ctx, "m-1", types.TicketScheduled, types.TicketCompleted)
			return err
		}},
		{"file disposal", func() error {
			return s.CreateDisposal(ctx, types.DisposalRequest{ID: "d-1", AssetID: "a-1", Reason: "r", Status: types.DisposalRequested, RequestedBy: "mgr"})
		}},
		{"decide disposal", func() error {
			_, err := s.DecideDisposal(ctx, "d-1", types.DisposalApproved, "cfo")
			return err
		}},
	}
	for _, st := range steps {
		before := version()
		if err := st.fn(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		if after := version(); after != before+1 {
			t.Fatalf("%s: version %d -> %d, want +1", st.name, before, after)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Allocations and procurement requests
// ═══════════════════════════════════════════════════════════════════════════

func TestAllocation_HandOverAndReturn(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := seedAsset(t, s, "a-1", types.StageInOperation)

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	due := start.AddDate(0, 0, 14)
	al := types.Allocation{
		ID: "al-1", AssetID: "a-1", AssignedTo: "emp-1", Type: types.AllocationTemporary,
		Location: "Site B", StartDate: &start, ExpectedReturn: &due, AllocatedBy: "desk",
	}
	if err := s.CreateAllocation(ctx, al, a.Version+1); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale version: expected ErrConflict, got %v", err)
	}
	if err := s.CreateAllocation(ctx, al, a.Version); err != nil {
		t.Fatalf("CreateAllocation: %v", err)
	}

	got, _ := s.GetAsset(ctx, "a-1")
	if got.OwnerID == nil || *got.OwnerID != "emp-1" || got.Location != "Site B" || got.Version != a.Version+1 {
		t.Fatalf("asset after hand-over %+v", got)
	}
	if n, _ := s.CountActiveAllocations(ctx, "a-1"); n != 1 {
		t.Fatalf("active allocations = %d", n)
	}

	second := al
	second.ID = "al-2"
	if err := s.CreateAllocation(ctx, second, got.Version); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second active allocation: expected ErrConflict, got %v", err)
	}

	back, err := s.CheckIn(ctx, "al-1")
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if back.Status != types.AllocationReturned || back.ReturnedAt == nil ||
		back.StartDate == nil || !back.StartDate.Equal(start) || back.ExpectedReturn == nil || !back.ExpectedReturn.Equal(due) {
		t.Fatalf("allocation after check-in %+v", back)
	}
	if _, err := s.CheckIn(ctx, "al-1"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("double check-in: expected ErrConflict, got %v", err)
	}
	got, _ = s.GetAsset(ctx, "a-1")
	if got.OwnerID != nil {
		t.Fatalf("owner after check-in = %v", *got.OwnerID)
	}

	again, err := s.CheckOut(ctx, "al-1", got.Version)
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if again.Status != types.AllocationActive || again.ReturnedAt != nil {
		t.Fatalf("allocation after check-out %+v", again)
	}

	list, err := s.ListAllocations(ctx, types.AllocationFilter{AssignedTo: "emp-1", Status: types.AllocationActive})
	if err != nil || len(list) != 1 || list[0].ID != "al-1" {
		t.Fatalf("ListAllocations = %+v, %v", list, err)
	}
	if _, err := s.GetAllocation(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProcurement_DecideOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	a := seedAsset(t, s, "a-1", types.StageProcurement)

	assetID := "a-1"
	cost := decimal.RequireFromString("18250.75")
	if err := s.CreateProcurement(ctx, types.ProcurementRequest{
		ID: "p-1", AssetID: &assetID, ItemName: "Forklift", Quantity: 1, EstimatedCost: cost,
		Status: types.ProcurementPending, RequestedBy: "ops",
	}); err != nil {
		t.Fatalf("CreateProcurement: %v", err)
	}
	if err := s.CreateProcurement(ctx, types.ProcurementRequest{
		ID: "p-2", ItemName: "Chairs", Quantity: 12, Status: types.ProcurementPending, RequestedBy: "ops",
	}); err != nil {
		t.Fatalf("CreateProcurement without asset: %v", err)
	}

	got, err := s.DecideProcurement(ctx, "p-1", types.ProcurementApproved, "cfo", "")
	if err != nil {
		t.Fatalf("DecideProcurement: %v", err)
	}
	if got.DecidedBy == nil || *got.DecidedBy != "cfo" || !got.EstimatedCost.Equal(cost) {
		t.Fatalf("unexpected request %+v", got)
	}
	if ok, _ := s.HasApprovedProcurement(ctx, "a-1"); !ok {
		t.Fatal("expected approved procurement")
	}
	if after, _ := s.GetAsset(ctx, "a-1"); after.Version != a.Version+1 {
		t.Fatalf("version = %d, want %d", after.Version, a.Version+1)
	}
	if _, err := s.DecideProcurement(ctx, "p-1", types.ProcurementRejected, "cfo", "late"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second decision: expected ErrConflict, got %v", err)
	}

	rejected, err := s.DecideProcurement(ctx, "p-2", types.ProcurementRejected, "cfo", "no budget")
	if err != nil || rejected.RejectReason != "no budget" || rejected.AssetID != nil {
		t.Fatalf("reject = %+v, %v", rejected, err)
	}

	list, err := s.ListProcurements(ctx, types.ProcurementFilter{AssetID: "a-1"})
	if err != nil || len(list) != 1 || list[0].ID != "p-1" {
		t.Fatalf("ListProcurements = %+v, %v", list, err)
	}
}
