package rules

import (
	"fmt"
	"strings"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// Change records one field a rule rewrote.
type Change struct {
	Rule  int
	Field string
	Old   string
	New   string
}

// MatchOutcome describes what the engine did to one transaction.
type MatchOutcome struct {
	Fired    []int // rule indices, in firing order
	Labels   []string
	Aliases  []int // alias rules whose patterns matched; only the first fires
	Changes  []Change
	Dropped  bool
	DropRule int // -1 unless Dropped
}

// RuleFailedError means a matching rule could not render its actions.
type RuleFailedError struct {
	Rule  int
	Label string
	Err   error
}

func (e *RuleFailedError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("rule %d (%s): %v", e.Rule, e.Label, e.Err)
	}
	return fmt.Sprintf("rule %d: %v", e.Rule, e.Err)
}

func (e *RuleFailedError) Unwrap() error { return e.Err }

// Engine applies a validated RuleSet. It holds no mutable state and may be
// shared between goroutines.
type Engine struct {
	rules RuleSet
}

// NewEngine validates every rule in rs.
func NewEngine(rs RuleSet) (*Engine, error) {
	for i, r := range rs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
	}
	return &Engine{rules: rs}, nil
}

// Len returns the number of rules.
func (e *Engine) Len() int { return len(e.rules) }

// Rule returns the rule at index i.
func (e *Engine) Rule(i int) Rule { return e.rules[i] }

// MatchedAliases returns the names of the payee aliases that matched.
func (e *Engine) MatchedAliases(out MatchOutcome) []string {
	var names []string
	for _, i := range out.Aliases {
		names = append(names, strings.TrimPrefix(e.rules[i].Label, aliasLabelPrefix))
	}
	return names
}

// Apply runs every rule against txn in order. Each rule sees the effects of
// the rules before it. A rule's templates are all rendered against the state
// before that rule, then assigned in declaration order. A drop action or a
// Stop rule ends evaluation. txn itself is never modified.
//
// Consecutive alias rules from one source form a block: each is matched
// against the transaction as it was when the block started, and only the
// first match is applied.
func (e *Engine) Apply(txn model.Transaction) (model.Transaction, MatchOutcome, error) {
	out := MatchOutcome{DropRule: -1}
	cur := txn.Clone()

	var blockStart model.Transaction
	aliasApplied := false
	for i, r := range e.rules {
		subject := cur
		if r.Alias {
			if i == 0 || !e.rules[i-1].Alias || e.rules[i-1].Source != r.Source {
				blockStart = cur.Clone()
				aliasApplied = false
			}
			subject = blockStart
		}

		caps, ok := r.match(subject)
		if !ok {
			continue
		}
		if r.Alias {
			out.Aliases = append(out.Aliases, i)
			if aliasApplied {
				continue
			}
			aliasApplied = true
		}
		out.Fired = append(out.Fired, i)
		out.Labels = append(out.Labels, r.Label)

		lookup := func(name string) (string, bool) {
			if v, ok := caps[name]; ok {
				return v, true
			}
			return cur.Get(name)
		}
		values := make([]string, len(r.Actions))
		for j, a := range r.Actions {
			if a.Kind != ActionSet {
				continue
			}
			v, err := a.Template.Render(lookup)
			if err != nil {
				return txn, out, &RuleFailedError{Rule: i, Label: r.Label, Err: err}
			}
			values[j] = v
		}

		for j, a := range r.Actions {
			switch a.Kind {
			case ActionDrop:
				out.Dropped = true
				out.DropRule = i
				return cur, out, nil
			case ActionSet:
				f := fieldName(a.Field)
				old, exists := cur.Get(f)
				if exists && old == values[j] {
					continue
				}
				assign(&cur, f, values[j])
				out.Changes = append(out.Changes, Change{Rule: i, Field: f, Old: old, New: values[j]})
			}
		}
		if r.Stop {
			break
		}
	}
	return cur, out, nil
}
