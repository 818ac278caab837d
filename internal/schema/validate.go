package schema

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// SchemaValidationError lists every structural problem found in a schema.
type SchemaValidationError struct {
	Schema   string
	Problems []string
}

func (e *SchemaValidationError) Error() string {
	name := e.Schema
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("invalid schema %q: %s", name, strings.Join(e.Problems, "; "))
}

func (e *SchemaValidationError) add(format string, args ...any) {
	e.Problems = append(e.Problems, fmt.Sprintf(format, args...))
}

// Compile validates f and builds an immutable BankSchema. All problems are
// reported together in a *SchemaValidationError.
func Compile(f File, baseDir string) (*BankSchema, error) {
	verr := &SchemaValidationError{Schema: f.Name}
	s := &BankSchema{
		Name:             strings.TrimSpace(f.Name),
		IgnoreHeaderRows: f.IgnoreHeaderRows,
		Encoding:         EncodingAuto,
	}

	if s.Name == "" {
		verr.add("name is required")
	}

	if f.IgnoreHeaderRows < 0 {
		verr.add("ignore_header_rows must not be negative, got %d", f.IgnoreHeaderRows)
	}

	switch {
	case utf8.RuneCountInString(f.Delimiter) != 1:
		verr.add("delimiter must be a single character, got %q", f.Delimiter)
	default:
		r, _ := utf8.DecodeRuneInString(f.Delimiter)
		if r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
			verr.add("delimiter %q is not usable", f.Delimiter)
		}
		s.Delimiter = r
	}

	switch enc := Encoding(strings.ToLower(f.Encoding)); enc {
	case "", EncodingAuto:
	case EncodingUTF8, "utf8":
		s.Encoding = EncodingUTF8
	case EncodingLatin1, "iso-8859-1":
		s.Encoding = EncodingLatin1
	default:
		verr.add("unknown encoding %q", f.Encoding)
	}

	if f.FilePattern != "" {
		re, err := regexp.Compile(f.FilePattern)
		if err != nil {
			verr.add("file_pattern: %v", err)
		}
		s.FilePattern = re
	}

	for i, p := range f.IgnorePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			verr.add("ignore_patterns[%d]: %v", i, err)
			continue
		}
		s.IgnorePatterns = append(s.IgnorePatterns, re)
	}

	s.Columns = compileColumns(f.Columns, verr)
	validateLayout(s.Columns, verr)

	for _, r := range f.Rules {
		if !filepath.IsAbs(r) && baseDir != "" {
			r = filepath.Join(baseDir, r)
		}
		s.Rules = append(s.Rules, r)
	}

	if len(verr.Problems) > 0 {
		return nil, verr
	}
	return s, nil
}

func compileColumns(cols []Column, verr *SchemaValidationError) []ColumnSpec {
	specs := make([]ColumnSpec, 0, len(cols))
	for i, c := range cols {
		kind, err := ParseKind(c.Type)
		if err != nil {
			verr.add("columns[%d]: %v", i, err)
			continue
		}
		spec := ColumnSpec{Kind: kind}

		switch kind {
		case KindDate:
			spec.DateFormat = c.Arg
			spec.Layout, err = dateLayout(c.Arg)
			if err != nil {
				verr.add("columns[%d]: %v", i, err)
			}
		case KindInflow, KindOutflow:
			spec.Number, err = columnNumberFormat(c)
			if err != nil {
				verr.add("columns[%d]: %v", i, err)
			}
		case KindExtra:
			spec.Key = strings.TrimSpace(c.Arg)
			if spec.Key == "" {
				spec.Key = strings.TrimSpace(c.Options["key"])
			}
		case KindCDFlag:
			spec.Debit = c.Arg
			if spec.Debit == "" {
				spec.Debit = c.Options["debit"]
			}
			if spec.Debit == "" {
				verr.add("columns[%d]: cdflag needs the value that marks a debit", i)
			}
		}
		specs = append(specs, spec)
	}
	return specs
}

func columnNumberFormat(c Column) (NumberFormat, error) {
	if c.Options == nil {
		return numberFormatByName(c.Arg)
	}
	dec, err := separator(c.Options["decimal"])
	if err != nil {
		return NumberFormat{}, err
	}
	thousands, err := separator(c.Options["thousands"])
	if err != nil {
		return NumberFormat{}, err
	}
	nf := NumberFormat{Decimal: dec, Thousands: thousands}
	if err := nf.validate(); err != nil {
		return NumberFormat{}, err
	}
	return nf, nil
}

// validateLayout enforces cross-column invariants.
func validateLayout(cols []ColumnSpec, verr *SchemaValidationError) {
	if len(cols) == 0 {
		verr.add("at least one column is required")
		return
	}

	counts := make(map[Kind]int)
	extraKeys := make(map[string]int)
	for i, c := range cols {
		counts[c.Kind]++
		if c.Kind != KindExtra {
			continue
		}
		switch {
		case c.Key == "":
			verr.add("columns[%d]: extra column needs a key", i)
		case model.IsCanonical(c.Key):
			verr.add("columns[%d]: extra key %q shadows a transaction field", i, c.Key)
		default:
			if prev, dup := extraKeys[c.Key]; dup {
				verr.add("columns[%d]: extra key %q already used by columns[%d]", i, c.Key, prev)
			} else {
				extraKeys[c.Key] = i
			}
		}
	}

	if counts[KindDate] != 1 {
		verr.add("exactly one date column is required, got %d", counts[KindDate])
	}
	for _, k := range []Kind{KindPayee, KindMemo, KindCategory, KindInflow, KindOutflow, KindCDFlag} {
		if counts[k] > 1 {
			verr.add("at most one %s column is allowed, got %d", k, counts[k])
		}
	}

	amounts := counts[KindInflow] + counts[KindOutflow]
	if amounts == 0 {
		verr.add("an inflow or outflow column is required")
	}
	if counts[KindCDFlag] > 0 && amounts != 1 {
		verr.add("a cdflag column needs exactly one amount column, got %d", amounts)
	}
}
