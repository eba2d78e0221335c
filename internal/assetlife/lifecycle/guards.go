package lifecycle

import (
	"fmt"
	"strings"

	"github.com/assetlife/server/internal/assetlife/types"
)

// Snapshot is what guards see of an asset at decision time.
type Snapshot struct {
	Asset               types.Asset
	OpenTickets         int
	ApprovedDisposal    bool
	ActiveAllocations   int
	ApprovedProcurement bool
	// PreviousStage is the stage the asset was in before its current one,
	// or "" if no transition has been recorded yet.
	PreviousStage types.Stage
}

// guardFunc returns "" when the transition may proceed, otherwise the reason
// it may not.
type guardFunc func(s Snapshot, to types.Stage) string

const (
	GuardLocationRequired   = "location_required"
	GuardNoOpenMaintenance  = "no_open_maintenance"
	GuardApprovedDisposal   = "approved_disposal"
	GuardReturnToPrevious   = "return_to_previous"
	GuardNoActiveAllocation = "no_active_allocation"
	GuardApprovedPurchase   = "approved_procurement"
)

var guards = map[string]guardFunc{
	GuardLocationRequired: func(s Snapshot, _ types.Stage) string {
		if strings.TrimSpace(s.Asset.Location) == "" {
			return "asset has no location"
		}
		return ""
	},
	GuardNoOpenMaintenance: func(s Snapshot, _ types.Stage) string {
		if s.OpenTickets > 0 {
			return fmt.Sprintf("asset has %d open maintenance ticket(s)", s.OpenTickets)
		}
		return ""
	},
	GuardApprovedDisposal: func(s Snapshot, _ types.Stage) string {
		if !s.ApprovedDisposal {
			return "no approved disposal request"
		}
		return ""
	},
	GuardNoActiveAllocation: func(s Snapshot, _ types.Stage) string {
		if s.ActiveAllocations > 0 {
			return "asset is still checked out"
		}
		return ""
	},
	GuardApprovedPurchase: func(s Snapshot, _ types.Stage) string {
		if !s.ApprovedProcurement {
			return "no approved procurement request"
		}
		return ""
	},
	GuardReturnToPrevious: func(s Snapshot, to types.Stage) string {
		if s.PreviousStage == "" || s.PreviousStage == to {
			return ""
		}
		return fmt.Sprintf("asset must return to %s", s.PreviousStage)
	},
}

// GuardNames lists the guards a rules file may reference.
func GuardNames() []string {
	return []string{
		GuardLocationRequired,
		GuardNoOpenMaintenance,
		GuardApprovedDisposal,
		GuardReturnToPrevious,
		GuardNoActiveAllocation,
		GuardApprovedPurchase,
	}
}
