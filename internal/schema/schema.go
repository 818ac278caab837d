// Package schema describes bank export layouts: how many rows to skip, which
// lines are noise, how fields are delimited and what each column position means.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the interpretation applied to one CSV column.
type Kind int

const (
	KindIgnore Kind = iota
	KindDate
	KindPayee
	KindMemo
	KindCategory
	KindInflow
	KindOutflow
	KindExtra
	KindCDFlag
)

var kindNames = map[Kind]string{
	KindIgnore:   "ignore",
	KindDate:     "date",
	KindPayee:    "payee",
	KindMemo:     "memo",
	KindCategory: "category",
	KindInflow:   "inflow",
	KindOutflow:  "outflow",
	KindExtra:    "extra",
	KindCDFlag:   "cdflag",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind returns the Kind for a schema column type name.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, kn := range kindNames {
		if kn == n {
			return k, nil
		}
	}
	return KindIgnore, fmt.Errorf("unknown column type %q", name)
}

// IsAmount reports whether the column carries an inflow or outflow value.
func (k Kind) IsAmount() bool {
	return k == KindInflow || k == KindOutflow
}

// ColumnSpec describes one physical column.
type ColumnSpec struct {
	Kind Kind

	// DateFormat is the format as written in the schema file; Layout is its Go equivalent.
	DateFormat string
	Layout     string

	Number NumberFormat // inflow, outflow
	Key    string       // extra
	Debit  string       // cdflag: value marking a debit row
}

// Encoding names how raw file bytes are decoded to text.
type Encoding string

const (
	EncodingAuto   Encoding = "auto"
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin1"
)

// BankSchema is a compiled, validated bank export layout. It is never
// modified after Compile and may be shared between goroutines.
type BankSchema struct {
	Name             string
	Path             string // file the schema was loaded from, if any
	FilePattern      *regexp.Regexp
	IgnoreHeaderRows int
	IgnorePatterns   []*regexp.Regexp
	Delimiter        rune
	Encoding         Encoding
	Columns          []ColumnSpec
	Rules            []string // rule file paths, in composition order
}

// MatchesFile reports whether the schema's file pattern matches name.
// A schema without a pattern matches nothing.
func (s *BankSchema) MatchesFile(name string) bool {
	return s.FilePattern != nil && s.FilePattern.MatchString(name)
}

// IgnoreLine reports whether a raw line matches any ignore pattern.
func (s *BankSchema) IgnoreLine(line string) bool {
	for _, p := range s.IgnorePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// HasFlag reports whether the schema carries a credit/debit flag column.
func (s *BankSchema) HasFlag() bool {
	for _, c := range s.Columns {
		if c.Kind == KindCDFlag {
			return true
		}
	}
	return false
}
