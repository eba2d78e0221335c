package types

import (
	"fmt"
	"strings"
)

// Stage is a position in the asset lifecycle.
type Stage string

const (
	StageProcurement  Stage = "PROCUREMENT"
	StageCommissioned Stage = "COMMISSIONED"
	StageInOperation  Stage = "IN_OPERATION"
	StageMaintenance  Stage = "MAINTENANCE"
	StageAudit        Stage = "AUDIT"
	StageValuation    Stage = "VALUATION"
	StageTransfer     Stage = "TRANSFER"
	StageDisposal     Stage = "DISPOSAL"
)

var allStages = []Stage{
	StageProcurement,
	StageCommissioned,
	StageInOperation,
	StageMaintenance,
	StageAudit,
	StageValuation,
	StageTransfer,
	StageDisposal,
}

// legacyStages maps status strings written by older dashboard pages onto the
// canonical stage set. They are accepted on input only.
var legacyStages = map[string]Stage{
	"AVAILABLE":     StageProcurement,
	"READY_FOR_USE": StageProcurement,
	"IN_USE":        StageInOperation,
}

// AllStages returns the canonical stages in lifecycle order.
func AllStages() []Stage {
	out := make([]Stage, len(allStages))
	copy(out, allStages)
	return out
}

// ParseStage normalizes s (case, surrounding space, '-' or ' ' separators)
// and resolves legacy aliases.
func ParseStage(s string) (Stage, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	if norm == "" {
		return "", fmt.Errorf("stage is required")
	}
	st := Stage(norm)
	if st.Valid() {
		return st, nil
	}
	if legacy, ok := legacyStages[norm]; ok {
		return legacy, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}

func (s Stage) Valid() bool {
	for _, st := range allStages {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Stage) Terminal() bool { return s == StageDisposal }

func (s Stage) String() string { return string(s) }
