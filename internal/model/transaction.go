package model

import (
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical output layout for transaction dates.
const DateFormat = "2006-01-02"

// Canonical field names, as used by schemas, rule predicates and rule actions.
const (
	FieldDate     = "date"
	FieldPayee    = "payee"
	FieldCategory = "category"
	FieldMemo     = "memo"
	FieldAmount   = "amount"
)

// IsCanonical reports whether name is one of the fixed transaction fields.
func IsCanonical(name string) bool {
	switch name {
	case FieldDate, FieldPayee, FieldCategory, FieldMemo, FieldAmount:
		return true
	}
	return false
}

// Transaction is a normalized bank transaction.
type Transaction struct {
	Date     time.Time // calendar date, UTC midnight
	Payee    string
	Category string
	Memo     string
	Amount   decimal.Decimal // negative = outflow, positive = inflow
	Extra    map[string]string
}

// Get returns the string form of a field. Unknown names are looked up in Extra.
func (t Transaction) Get(field string) (string, bool) {
	switch field {
	case FieldDate:
		return t.Date.Format(DateFormat), true
	case FieldPayee:
		return t.Payee, true
	case FieldCategory:
		return t.Category, true
	case FieldMemo:
		return t.Memo, true
	case FieldAmount:
		return FormatAmount(t.Amount), true
	}
	v, ok := t.Extra[field]
	return v, ok
}

// Clone returns a copy that shares no map with t.
func (t Transaction) Clone() Transaction {
	c := t
	if t.Extra != nil {
		c.Extra = maps.Clone(t.Extra)
	}
	return c
}

// Equal reports whether two transactions carry identical values.
func (t Transaction) Equal(o Transaction) bool {
	return t.Date.Equal(o.Date) &&
		t.Payee == o.Payee &&
		t.Category == o.Category &&
		t.Memo == o.Memo &&
		t.Amount.Equal(o.Amount) &&
		t.Amount.Exponent() == o.Amount.Exponent() &&
		maps.Equal(t.Extra, o.Extra)
}

// FormatAmount renders d with at least two fraction digits, keeping any
// additional precision present in the source.
func FormatAmount(d decimal.Decimal) string {
	places := int32(2)
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	return d.StringFixed(places)
}
