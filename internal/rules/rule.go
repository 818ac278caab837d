// Package rules rewrites and enriches parsed transactions with an ordered list
// of predicate/action rules.
package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// ErrProtectedField is wrapped by RuleActionRejectedError.
var ErrProtectedField = errors.New("field is protected")

// extraPrefix may be used to address an extra field explicitly.
const extraPrefix = "extra."

// Predicate tests one transaction field with a regular expression search.
type Predicate struct {
	Field   string
	Pattern *regexp.Regexp
}

// ActionKind is the closed set of things a rule can do.
type ActionKind int

const (
	ActionSet ActionKind = iota
	ActionDrop
)

// Action is one step of a rule. Set actions overwrite Field with the
// rendered Template.
type Action struct {
	Kind     ActionKind
	Field    string
	Template *Template
}

// Set returns an action that overwrites field with tmpl.
func Set(field string, tmpl *Template) Action {
	return Action{Kind: ActionSet, Field: field, Template: tmpl}
}

// Drop returns an action that excludes the transaction from output.
func Drop() Action {
	return Action{Kind: ActionDrop}
}

// Rule fires its actions when every predicate matches.
type Rule struct {
	Label      string
	Source     string // file the rule was loaded from, if any
	Predicates []Predicate
	Actions    []Action
	Stop       bool // end evaluation after this rule fires
	Alias      bool // generated from a payee alias
}

// RuleActionRejectedError means a rule tries to modify a field rules may not
// touch.
type RuleActionRejectedError struct {
	Rule  string
	Field string
}

func (e *RuleActionRejectedError) Error() string {
	return fmt.Sprintf("rule %s: cannot set %q: %v", e.Rule, e.Field, ErrProtectedField)
}

func (e *RuleActionRejectedError) Unwrap() error { return ErrProtectedField }

// Validate checks the rule's actions against the protected fields.
func (r Rule) Validate() error {
	for _, p := range r.Predicates {
		if p.Pattern == nil {
			return fmt.Errorf("rule %s: nil pattern for %q", r.name(), p.Field)
		}
	}
	for _, a := range r.Actions {
		if a.Kind != ActionSet {
			continue
		}
		switch fieldName(a.Field) {
		case model.FieldDate, model.FieldAmount:
			return &RuleActionRejectedError{Rule: r.name(), Field: a.Field}
		case "":
			return fmt.Errorf("rule %s: empty field name", r.name())
		}
		if a.Template == nil {
			return fmt.Errorf("rule %s: no value for %q", r.name(), a.Field)
		}
	}
	return nil
}

func (r Rule) name() string {
	if r.Label != "" {
		return fmt.Sprintf("%q", r.Label)
	}
	return "<unlabeled>"
}

// match reports whether every predicate matches t and returns the named
// captures of all predicates. Later predicates win on duplicate names; groups
// that took no part in the match are left out. A rule without predicates
// matches every transaction.
func (r Rule) match(t model.Transaction) (map[string]string, bool) {
	var caps map[string]string
	for _, p := range r.Predicates {
		v, ok := t.Get(fieldName(p.Field))
		if !ok {
			return nil, false
		}
		m := p.Pattern.FindStringSubmatchIndex(v)
		if m == nil {
			return nil, false
		}
		for i, name := range p.Pattern.SubexpNames() {
			if name == "" || m[2*i] < 0 {
				continue
			}
			if caps == nil {
				caps = make(map[string]string)
			}
			caps[name] = v[m[2*i]:m[2*i+1]]
		}
	}
	return caps, true
}

// RuleSet is an ordered list of rules.
type RuleSet []Rule

// Concat joins rule sets in order.
func Concat(sets ...RuleSet) RuleSet {
	var out RuleSet
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// fieldName strips the optional "extra." prefix.
func fieldName(f string) string {
	return strings.TrimPrefix(f, extraPrefix)
}

// assign writes v into the field named f.
func assign(t *model.Transaction, f, v string) {
	switch f {
	case model.FieldPayee:
		t.Payee = v
	case model.FieldMemo:
		t.Memo = v
	case model.FieldCategory:
		t.Category = v
	default:
		if t.Extra == nil {
			t.Extra = make(map[string]string)
		}
		t.Extra[f] = v
	}
}
