package importer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// ErrNoAmount is reported for a row whose amount columns are all empty.
var ErrNoAmount = errors.New("no amount in row")

// RowError is implemented by every error that loses a single row without
// affecting the rest of the file.
type RowError interface {
	error
	SourceLine() int
	Kind() model.DiagnosticKind
}

// MalformedLineError means a line could not be split, or its field count does
// not match the schema's column count.
type MalformedLineError struct {
	Line int
	Got  int
	Want int
	Err  error
}

func (e *MalformedLineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: malformed line: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: expected %d fields, got %d", e.Line, e.Want, e.Got)
}

func (e *MalformedLineError) Unwrap() error              { return e.Err }
func (e *MalformedLineError) SourceLine() int            { return e.Line }
func (e *MalformedLineError) Kind() model.DiagnosticKind { return model.DiagMalformedLine }

// DateParseError means a date column did not match the schema's format.
type DateParseError struct {
	Line   int
	Column int // 1-based
	Value  string
	Format string
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: parsing date %q with format %q: %v", e.Line, e.Column, e.Value, e.Format, e.Err)
}

func (e *DateParseError) Unwrap() error              { return e.Err }
func (e *DateParseError) SourceLine() int            { return e.Line }
func (e *DateParseError) Kind() model.DiagnosticKind { return model.DiagDateParse }

// AmountParseError means an amount column held something other than a number,
// or the row carried no amount at all.
type AmountParseError struct {
	Line   int
	Column int // 1-based; 0 when the error concerns the row as a whole
	Value  string
	Err    error
}

func (e *AmountParseError) Error() string {
	if e.Column == 0 {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d, column %d: parsing amount %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *AmountParseError) Unwrap() error              { return e.Err }
func (e *AmountParseError) SourceLine() int            { return e.Line }
func (e *AmountParseError) Kind() model.DiagnosticKind { return model.DiagAmountParse }

// AmbiguousAmountError means a split-column row carried both a non-zero inflow
// and a non-zero outflow.
type AmbiguousAmountError struct {
	Line    int
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

func (e *AmbiguousAmountError) Error() string {
	return fmt.Sprintf("line %d: both inflow %s and outflow %s are set", e.Line, e.Inflow, e.Outflow)
}

func (e *AmbiguousAmountError) SourceLine() int            { return e.Line }
func (e *AmbiguousAmountError) Kind() model.DiagnosticKind { return model.DiagAmbiguousAmount }

// AsRowError reports whether err is a row-level error and returns it.
func AsRowError(err error) (RowError, bool) {
	var re RowError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
