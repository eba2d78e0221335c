package store

import (
	"context"
	"errors"
	"iter"

	"github.com/assetlife/server/internal/assetlife/types"
)

var (
	// ErrNotFound is returned when a keyed record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by a conditional write whose precondition no
	// longer holds (another writer got there first).
	ErrConflict = errors.New("concurrent modification")
)

// AssetStore holds current asset records. It cannot change an asset's
// status; that is only possible through a Tx obtained from a Transactor.
type AssetStore interface {
	CreateAsset(ctx context.Context, a types.Asset) error
	GetAsset(ctx context.Context, id string) (types.Asset, error)
	ListAssets(ctx context.Context, f types.AssetFilter) ([]types.Asset, error)
	UpdateAttributes(ctx context.Context, id string, p types.AttributePatch) (types.Asset, error)
}

// EventLog is the read side of the append-only lifecycle ledger. Appends go
// through Tx so they commit together with the status change.
type EventLog interface {
	// History yields the asset's events in commit order. Each range over the
	// returned sequence reads the log again.
	History(ctx context.Context, assetID string) iter.Seq2[types.LifecycleEvent, error]

	// LastEvent returns the most recent event, or ErrNotFound if there is none.
	LastEvent(ctx context.Context, assetID string) (types.LifecycleEvent, error)
}

// StatusUpdate is a compare-and-swap on an asset's status. The write only
// happens if the stored row still has ExpectedStatus and ExpectedVersion.
type StatusUpdate struct {
	AssetID         string
	ExpectedStatus  types.Stage
	ExpectedVersion int64
	NewStatus       types.Stage
}

// Tx is the unit of work handed to the function passed to WithinTx.
type Tx interface {
	UpdateStatus(ctx context.Context, u StatusUpdate) (types.Asset, error)
	AppendEvent(ctx context.Context, ev types.LifecycleEvent) (int64, error)
}

// Transactor runs fn atomically: either everything fn did through tx is
// committed or nothing is.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// MaintenanceStore persists maintenance tickets.
type MaintenanceStore interface {
	CreateTicket(ctx context.Context, t types.MaintenanceTicket) error
	GetTicket(ctx context.Context, id string) (types.MaintenanceTicket, error)
	ListTickets(ctx context.Context, assetID string) ([]types.MaintenanceTicket, error)
	// SetTicketStatus moves a ticket from `from` to `to`; ErrConflict if the
	// ticket is no longer in `from`.
	SetTicketStatus(ctx context.Context, id string, from, to types.TicketStatus) (types.MaintenanceTicket, error)
	CountOpenTickets(ctx context.Context, assetID string) (int, error)
}

// DisposalStore persists disposal requests.
type DisposalStore interface {
	CreateDisposal(ctx context.Context, d types.DisposalRequest) error
	GetDisposal(ctx context.Context, id string) (types.DisposalRequest, error)
	ListDisposals(ctx context.Context, assetID string) ([]types.DisposalRequest, error)
	// DecideDisposal moves a REQUESTED request to APPROVED or REJECTED;
	// ErrConflict if it was already decided.
	DecideDisposal(ctx context.Context, id string, to types.DisposalStatus, decidedBy string) (types.DisposalRequest, error)
	HasApprovedDisposal(ctx context.Context, assetID string) (bool, error)
}

// AllocationStore persists allocations. Every write also updates the asset
// row (owner, location, version) in the same transaction.
type AllocationStore interface {
	// CreateAllocation records an ACTIVE allocation and hands the asset to
	// the assignee. It fails with ErrConflict if the asset's version is no
	// longer expectedVersion or it already has an active allocation.
	CreateAllocation(ctx context.Context, al types.Allocation, expectedVersion int64) error
	GetAllocation(ctx context.Context, id string) (types.Allocation, error)
	ListAllocations(ctx context.Context, f types.AllocationFilter) ([]types.Allocation, error)
	// CheckIn moves an ACTIVE allocation to RETURNED and clears the asset's
	// owner if it is still the assignee. ErrConflict if it was not ACTIVE.
	CheckIn(ctx context.Context, id string) (types.Allocation, error)
	// CheckOut moves a RETURNED allocation back to ACTIVE under the same
	// rules as CreateAllocation.
	CheckOut(ctx context.Context, id string, expectedVersion int64) (types.Allocation, error)
	CountActiveAllocations(ctx context.Context, assetID string) (int, error)
}

// ProcurementStore persists purchase requests.
type ProcurementStore interface {
	CreateProcurement(ctx context.Context, p types.ProcurementRequest) error
	GetProcurement(ctx context.Context, id string) (types.ProcurementRequest, error)
	ListProcurements(ctx context.Context, f types.ProcurementFilter) ([]types.ProcurementRequest, error)
	// DecideProcurement moves a PENDING request to APPROVED or REJECTED;
	// ErrConflict if it was already decided.
	DecideProcurement(ctx context.Context, id string, to types.ProcurementStatus, decidedBy, reason string) (types.ProcurementRequest, error)
	HasApprovedProcurement(ctx context.Context, assetID string) (bool, error)
}
