package lifecycle

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/assetlife/server/internal/assetlife/types"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// AnyStage in a rules file expands to every non-terminal stage.
const AnyStage = "ANY"

// Rule is one allowed edge of the state graph.
type Rule struct {
	From   types.Stage `json:"from" yaml:"from"`
	To     types.Stage `json:"to" yaml:"to"`
	Guards []string    `json:"guards,omitempty" yaml:"guards,omitempty"`
}

type edge struct{ from, to types.Stage }

// RuleSet is an immutable, validated transition table.
type RuleSet struct {
	edges map[edge][]string
}

type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	From   stageList `yaml:"from"`
	To     stageList `yaml:"to"`
	Guards []string  `yaml:"guards"`
}

// stageList accepts either a single stage or a sequence of stages.
type stageList []string

func (l *stageList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*l = stageList{n.Value}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := n.Decode(&ss); err != nil {
			return err
		}
		*l = ss
		return nil
	}
	return fmt.Errorf("line %d: expected a stage or list of stages", n.Line)
}

// DefaultRules returns the built-in transition table.
func DefaultRules() *RuleSet {
	rs, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic("lifecycle: embedded rules are invalid: " + err.Error())
	}
	return rs
}

// LoadRulesFile reads and validates a rules file. An empty path returns the
// built-in table.
func LoadRulesFile(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	rs, err := ParseRules(b)
	if err != nil {
		return nil, fmt.Errorf("rules %s: %w", path, err)
	}
	return rs, nil
}

// ParseRules decodes a YAML rules document, expands ANY and validates the
// result. Rules naming the same edge more than once have their guards merged.
func ParseRules(data []byte) (*RuleSet, error) {
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("no rules defined")
	}

	rs := &RuleSet{edges: make(map[edge][]string)}
	for i, r := range f.Rules {
		froms, err := expandStages(r.From)
		if err != nil {
			return nil, fmt.Errorf("rule %d from: %w", i+1, err)
		}
		tos, err := expandStages(r.To)
		if err != nil {
			return nil, fmt.Errorf("rule %d to: %w", i+1, err)
		}
		for _, g := range r.Guards {
			if _, ok := guards[g]; !ok {
				return nil, fmt.Errorf("rule %d: unknown guard %q (known: %s)", i+1, g, strings.Join(GuardNames(), ", "))
			}
		}

		explicit := len(r.From) == 1 && len(r.To) == 1 &&
			!strings.EqualFold(r.From[0], AnyStage) && !strings.EqualFold(r.To[0], AnyStage)

		for _, from := range froms {
			if from.Terminal() {
				return nil, fmt.Errorf("rule %d: %s is terminal and cannot be a source", i+1, from)
			}
			for _, to := range tos {
				if from == to {
					if explicit {
						return nil, fmt.Errorf("rule %d: %s -> %s is a no-op", i+1, from, to)
					}
					continue
				}
				k := edge{from, to}
				gs := rs.edges[k]
				for _, g := range r.Guards {
					if !slices.Contains(gs, g) {
						gs = append(gs, g)
					}
				}
				if gs == nil {
					gs = []string{}
				}
				rs.edges[k] = gs
			}
		}
	}
	return rs, nil
}

func expandStages(names []string) ([]types.Stage, error) {
	if len(names) == 0 {
		return nil, errors.New("at least one stage is required")
	}
	var out []types.Stage
	for _, n := range names {
		n = strings.ToUpper(strings.TrimSpace(n))
		if n == AnyStage {
			for _, st := range types.AllStages() {
				if !st.Terminal() {
					out = append(out, st)
				}
			}
			continue
		}
		st := types.Stage(n)
		if !st.Valid() {
			return nil, fmt.Errorf("unknown stage %q", n)
		}
		out = append(out, st)
	}
	return out, nil
}

// IsAllowed reports whether the graph has an edge from -> to. A move to the
// same stage is never allowed.
func (rs *RuleSet) IsAllowed(from, to types.Stage) bool {
	if from == to {
		return false
	}
	_, ok := rs.edges[edge{from, to}]
	return ok
}

// GuardsFor returns the guard names attached to from -> to.
func (rs *RuleSet) GuardsFor(from, to types.Stage) []string {
	return slices.Clone(rs.edges[edge{from, to}])
}

// Guard runs every guard on the edge from the snapshot's current stage to
// `to` and returns a *GuardError for the first one that fails.
func (rs *RuleSet) Guard(s Snapshot, to types.Stage) error {
	for _, name := range rs.edges[edge{s.Asset.Status, to}] {
		if reason := guards[name](s, to); reason != "" {
			return &GuardError{Guard: name, Reason: reason}
		}
	}
	return nil
}

// AllowedFrom returns the targets reachable from `from`, in lifecycle order.
func (rs *RuleSet) AllowedFrom(from types.Stage) []types.Stage {
	var out []types.Stage
	for _, to := range types.AllStages() {
		if rs.IsAllowed(from, to) {
			out = append(out, to)
		}
	}
	return out
}

// Rules returns every edge ordered by source then target stage.
func (rs *RuleSet) Rules() []Rule {
	var out []Rule
	for _, from := range types.AllStages() {
		for _, to := range types.AllStages() {
			gs, ok := rs.edges[edge{from, to}]
			if !ok {
				continue
			}
			out = append(out, Rule{From: from, To: to, Guards: slices.Clone(gs)})
		}
	}
	return out
}
