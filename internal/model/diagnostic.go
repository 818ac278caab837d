package model

import "fmt"

// DiagnosticKind classifies why a source row is missing from the output.
type DiagnosticKind string

const (
	DiagMalformedLine   DiagnosticKind = "malformed_line"
	DiagDateParse       DiagnosticKind = "date_parse"
	DiagAmountParse     DiagnosticKind = "amount_parse"
	DiagAmbiguousAmount DiagnosticKind = "ambiguous_amount"
	DiagRuleFailed      DiagnosticKind = "rule_failed"
	DiagDropped         DiagnosticKind = "dropped"
)

// Diagnostic records one failed or dropped row.
type Diagnostic struct {
	File    string
	Line    int // 1-based source line
	Kind    DiagnosticKind
	Rule    int // index of the rule that dropped or failed the row; -1 otherwise
	Message string
}

func (d Diagnostic) String() string {
	if d.Rule >= 0 {
		return fmt.Sprintf("%s:%d: %s (rule %d): %s", d.File, d.Line, d.Kind, d.Rule, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", d.File, d.Line, d.Kind, d.Message)
}
