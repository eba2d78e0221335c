package lifecycle

import (
	"sync/atomic"

	"github.com/assetlife/server/internal/assetlife/types"
)

// Validator holds the active rule table. The table can be replaced while
// serving; a caller that needs a consistent view across several checks takes
// one RuleSet via Rules and uses it throughout.
type Validator struct {
	rules atomic.Pointer[RuleSet]
}

func NewValidator(rs *RuleSet) *Validator {
	if rs == nil {
		rs = DefaultRules()
	}
	v := &Validator{}
	v.rules.Store(rs)
	return v
}

// Rules returns the current table.
func (v *Validator) Rules() *RuleSet { return v.rules.Load() }

// Swap installs rs as the current table.
func (v *Validator) Swap(rs *RuleSet) { v.rules.Store(rs) }

func (v *Validator) IsAllowed(from, to types.Stage) bool {
	return v.Rules().IsAllowed(from, to)
}

func (v *Validator) Guard(s Snapshot, to types.Stage) error {
	return v.Rules().Guard(s, to)
}

func (v *Validator) AllowedFrom(from types.Stage) []types.Stage {
	return v.Rules().AllowedFrom(from)
}
