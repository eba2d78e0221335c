// Package lifecycle owns asset status. It validates requested moves against
// the configured state graph and guards, then commits the status change and
// its event together.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/store"
	"github.com/assetlife/server/internal/assetlife/types"
)

// AssetReader is the part of the asset store the engine reads.
type AssetReader interface {
	GetAsset(ctx context.Context, id string) (types.Asset, error)
}

// TicketCounter reports open maintenance work for an asset.
type TicketCounter interface {
	CountOpenTickets(ctx context.Context, assetID string) (int, error)
}

// DisposalChecker reports whether an asset has an approved disposal request.
type DisposalChecker interface {
	HasApprovedDisposal(ctx context.Context, assetID string) (bool, error)
}

// AllocationCounter reports whether an asset is checked out.
type AllocationCounter interface {
	CountActiveAllocations(ctx context.Context, assetID string) (int, error)
}

// ProcurementChecker reports whether an asset's purchase was approved.
type ProcurementChecker interface {
	HasApprovedProcurement(ctx context.Context, assetID string) (bool, error)
}

// Deps bundles the collaborators of an Engine.
type Deps struct {
	Assets       AssetReader
	Events       store.EventLog
	Transactor   store.Transactor
	Tickets      TicketCounter
	Disposals    DisposalChecker
	Allocations  AllocationCounter
	Procurements ProcurementChecker
	Validator    *Validator
	Logger       zerolog.Logger
	Clock        func() time.Time
}

// Engine is the only component that changes asset status.
type Engine struct {
	assets    AssetReader
	events    store.EventLog
	tx        store.Transactor
	tickets   TicketCounter
	disposals DisposalChecker
	allocs    AllocationCounter
	purchases ProcurementChecker
	validator *Validator
	locks     *keyLock
	log       zerolog.Logger
	now       func() time.Time
}

func NewEngine(d Deps) *Engine {
	if d.Validator == nil {
		d.Validator = NewValidator(nil)
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		assets:    d.Assets,
		events:    d.Events,
		tx:        d.Transactor,
		tickets:   d.Tickets,
		disposals: d.Disposals,
		allocs:    d.Allocations,
		purchases: d.Procurements,
		validator: d.Validator,
		locks:     newKeyLock(),
		log:       d.Logger.With().Str("component", "lifecycle").Logger(),
		now:       d.Clock,
	}
}

// Validator returns the engine's rule holder.
func (e *Engine) Validator() *Validator { return e.validator }

// Transition moves an asset to stage `to` on behalf of the actor in ctx and
// returns the recorded event. Nothing is written unless the whole move
// succeeds.
//
// Cancelling ctx aborts the call while it waits for the asset or evaluates
// guards. Once the commit starts it runs to completion.
func (e *Engine) Transition(ctx context.Context, assetID string, to types.Stage, notes string) (types.LifecycleEvent, error) {
	actorID := actor.FromContext(ctx)
	if actorID == "" {
		return types.LifecycleEvent{}, ErrNoActor
	}
	if !to.Valid() {
		return types.LifecycleEvent{}, &TransitionError{AssetID: assetID, To: to, Reason: "unknown stage"}
	}

	unlock, err := e.locks.Lock(ctx, assetID)
	if err != nil {
		return types.LifecycleEvent{}, err
	}
	defer unlock()

	a, err := e.assets.GetAsset(ctx, assetID)
	if err != nil {
		return types.LifecycleEvent{}, e.storeErr("get asset", assetID, err)
	}

	rs := e.validator.Rules()
	if a.Status == to {
		return types.LifecycleEvent{}, e.reject(&TransitionError{AssetID: assetID, From: a.Status, To: to, Reason: "asset is already in this stage"})
	}
	if a.Status.Terminal() {
		return types.LifecycleEvent{}, e.reject(&TransitionError{AssetID: assetID, From: a.Status, To: to, Reason: "stage is terminal"})
	}
	if !rs.IsAllowed(a.Status, to) {
		return types.LifecycleEvent{}, e.reject(&TransitionError{AssetID: assetID, From: a.Status, To: to})
	}

	snap, err := e.snapshot(ctx, a, rs.GuardsFor(a.Status, to))
	if err != nil {
		return types.LifecycleEvent{}, err
	}
	if err := rs.Guard(snap, to); err != nil {
		return types.LifecycleEvent{}, e.reject(err)
	}

	if err := ctx.Err(); err != nil {
		return types.LifecycleEvent{}, err
	}

	ev := types.LifecycleEvent{
		AssetID:   a.ID,
		FromStage: a.Status,
		ToStage:   to,
		Notes:     notes,
		ActorID:   actorID,
		Timestamp: e.now(),
	}

	commitCtx := context.WithoutCancel(ctx)
	err = e.tx.WithinTx(commitCtx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.UpdateStatus(ctx, store.StatusUpdate{
			AssetID:         a.ID,
			ExpectedStatus:  a.Status,
			ExpectedVersion: a.Version,
			NewStatus:       to,
		}); err != nil {
			return err
		}
		id, err := tx.AppendEvent(ctx, ev)
		if err != nil {
			return err
		}
		ev.ID = id
		return nil
	})
	if err != nil {
		return types.LifecycleEvent{}, e.storeErr("commit transition", assetID, err)
	}

	e.log.Info().
		Str("asset_id", ev.AssetID).
		Str("from", string(ev.FromStage)).
		Str("to", string(ev.ToStage)).
		Str("actor", ev.ActorID).
		Int64("event_id", ev.ID).
		Msg("transition committed")

	return ev, nil
}

// HistoryOf returns the asset's events in commit order. The sequence reads
// the log each time it is ranged over.
func (e *Engine) HistoryOf(ctx context.Context, assetID string) (iter.Seq2[types.LifecycleEvent, error], error) {
	if _, err := e.assets.GetAsset(ctx, assetID); err != nil {
		return nil, e.storeErr("get asset", assetID, err)
	}

	src := e.events.History(ctx, assetID)
	return func(yield func(types.LifecycleEvent, error) bool) {
		for ev, err := range src {
			if err != nil {
				yield(types.LifecycleEvent{}, &StorageError{Op: "read history", Err: err})
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}, nil
}

// Target is a stage the asset may move to next. Ready is false when a guard
// would currently block the move; Reason then says why.
type Target struct {
	Stage  types.Stage `json:"stage"`
	Guards []string    `json:"guards,omitempty"`
	Ready  bool        `json:"ready"`
	Reason string      `json:"reason,omitempty"`
}

// AllowedTargets lists the graph-legal next stages for an asset and
// evaluates their guards against its current state.
func (e *Engine) AllowedTargets(ctx context.Context, assetID string) ([]Target, error) {
	a, err := e.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, e.storeErr("get asset", assetID, err)
	}

	rs := e.validator.Rules()
	stages := rs.AllowedFrom(a.Status)
	if len(stages) == 0 {
		return []Target{}, nil
	}

	var all []string
	for _, to := range stages {
		all = append(all, rs.GuardsFor(a.Status, to)...)
	}
	snap, err := e.snapshot(ctx, a, all)
	if err != nil {
		return nil, err
	}

	out := make([]Target, 0, len(stages))
	for _, to := range stages {
		t := Target{Stage: to, Guards: rs.GuardsFor(a.Status, to), Ready: true}
		var ge *GuardError
		if err := rs.Guard(snap, to); errors.As(err, &ge) {
			t.Ready = false
			t.Reason = ge.Reason
		}
		out = append(out, t)
	}
	return out, nil
}

// snapshot gathers what the named guards need. Reads that no guard uses
// are skipped.
func (e *Engine) snapshot(ctx context.Context, a types.Asset, guardNames []string) (Snapshot, error) {
	s := Snapshot{Asset: a}
	if len(guardNames) == 0 {
		return s, nil
	}

	if slices.Contains(guardNames, GuardNoOpenMaintenance) && e.tickets != nil {
		n, err := e.tickets.CountOpenTickets(ctx, a.ID)
		if err != nil {
			return Snapshot{}, &StorageError{Op: "count open tickets", Err: err}
		}
		s.OpenTickets = n
	}
	if slices.Contains(guardNames, GuardApprovedDisposal) && e.disposals != nil {
		ok, err := e.disposals.HasApprovedDisposal(ctx, a.ID)
		if err != nil {
			return Snapshot{}, &StorageError{Op: "check disposal approval", Err: err}
		}
		s.ApprovedDisposal = ok
	}
	if slices.Contains(guardNames, GuardNoActiveAllocation) && e.allocs != nil {
		n, err := e.allocs.CountActiveAllocations(ctx, a.ID)
		if err != nil {
			return Snapshot{}, &StorageError{Op: "count active allocations", Err: err}
		}
		s.ActiveAllocations = n
	}
	if slices.Contains(guardNames, GuardApprovedPurchase) && e.purchases != nil {
		ok, err := e.purchases.HasApprovedProcurement(ctx, a.ID)
		if err != nil {
			return Snapshot{}, &StorageError{Op: "check procurement approval", Err: err}
		}
		s.ApprovedProcurement = ok
	}

	if slices.Contains(guardNames, GuardReturnToPrevious) {
		last, err := e.events.LastEvent(ctx, a.ID)
		switch {
		case err == nil:
			s.PreviousStage = last.FromStage
		case errors.Is(err, store.ErrNotFound):
		default:
			return Snapshot{}, &StorageError{Op: "read last event", Err: err}
		}
	}
	return s, nil
}

func (e *Engine) reject(err error) error {
	e.log.Debug().Err(err).Msg("transition rejected")
	return err
}

// storeErr keeps not-found and conflict recognisable and wraps everything
// else as a StorageError.
func (e *Engine) storeErr(op, assetID string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	case errors.Is(err, store.ErrConflict):
		e.log.Debug().Str("asset_id", assetID).Msg("transition lost a concurrent update")
		return fmt.Errorf("asset %s: %w", assetID, ErrConflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
