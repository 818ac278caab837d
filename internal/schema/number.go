package schema

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ErrNotNumber is returned by NumberFormat.Parse for text that is not a number
// in the column's convention.
var ErrNotNumber = errors.New("not a number")

// NumberFormat is the locale convention of an amount column.
type NumberFormat struct {
	Decimal   rune
	Thousands rune // 0 when the source never groups digits
}

var (
	// PeriodFormat reads "1,234.56".
	PeriodFormat = NumberFormat{Decimal: '.', Thousands: ','}
	// CommaFormat reads "1.234,56".
	CommaFormat = NumberFormat{Decimal: ',', Thousands: '.'}
)

// Parse reads s as an optionally signed decimal number. Thousands separators
// must group the integer part in threes; anything else is rejected rather than
// guessed at. The source precision is kept exactly.
func (f NumberFormat) Parse(s string) (decimal.Decimal, error) {
	v := s
	sign := ""
	if v != "" && (v[0] == '+' || v[0] == '-') {
		if v[0] == '-' {
			sign = "-"
		}
		v = v[1:]
	}

	intPart, frac, hasFrac := strings.Cut(v, string(f.Decimal))
	if hasFrac && !allDigits(frac) {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrNotNumber)
	}

	if f.Thousands != 0 && strings.ContainsRune(intPart, f.Thousands) {
		groups := strings.Split(intPart, string(f.Thousands))
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return decimal.Decimal{}, fmt.Errorf("%q: misplaced thousands separator: %w", s, ErrNotNumber)
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return decimal.Decimal{}, fmt.Errorf("%q: misplaced thousands separator: %w", s, ErrNotNumber)
			}
		}
		intPart = strings.Join(groups, "")
	}

	if !allDigits(intPart) {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrNotNumber)
	}

	norm := sign + intPart
	if hasFrac {
		norm += "." + frac
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrNotNumber)
	}
	return d, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (f NumberFormat) String() string {
	if f.Thousands == 0 {
		return fmt.Sprintf("decimal %q", f.Decimal)
	}
	return fmt.Sprintf("decimal %q, thousands %q", f.Decimal, f.Thousands)
}

func (f NumberFormat) validate() error {
	if f.Decimal == 0 {
		return fmt.Errorf("decimal separator is required")
	}
	if f.Decimal == f.Thousands {
		return fmt.Errorf("decimal and thousands separators are both %q", f.Decimal)
	}
	for _, r := range []rune{f.Decimal, f.Thousands} {
		if r >= '0' && r <= '9' || r == '+' || r == '-' {
			return fmt.Errorf("separator %q is not usable", r)
		}
	}
	return nil
}

// numberFormatByName resolves the named conventions accepted in schema files.
func numberFormatByName(name string) (NumberFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "period", "dot", "":
		return PeriodFormat, nil
	case "comma":
		return CommaFormat, nil
	}
	return NumberFormat{}, fmt.Errorf("unknown number format %q (want period or comma)", name)
}

// separator parses a one-character separator; the empty string means none.
func separator(s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("separator %q must be a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}
