package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrEmptyValue is returned when a not_empty placeholder resolves to "".
var ErrEmptyValue = errors.New("value cannot be empty")

var placeholder = regexp.MustCompile(`\$\{(\w+)(?:\|(\w+))?\}`)

// Filter transforms an interpolated value.
type Filter string

const (
	FilterNone      Filter = ""
	FilterTitleCase Filter = "title_case"
	FilterLowercase Filter = "lowercase"
	FilterUppercase Filter = "uppercase"
	FilterNotEmpty  Filter = "not_empty"
)

func (f Filter) valid() bool {
	switch f {
	case FilterNone, FilterTitleCase, FilterLowercase, FilterUppercase, FilterNotEmpty:
		return true
	}
	return false
}

type segment struct {
	text   string // literal text; empty for placeholders
	name   string
	filter Filter
}

// Template is a parsed action value such as "${payee|title_case} (card)".
type Template struct {
	src      string
	segments []segment
}

// ParseTemplate parses src. Unknown filters are an error.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{src: src}
	last := 0
	for _, m := range placeholder.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			t.segments = append(t.segments, segment{text: src[last:m[0]]})
		}
		seg := segment{name: src[m[2]:m[3]]}
		if m[4] >= 0 {
			seg.filter = Filter(src[m[4]:m[5]])
			if !seg.filter.valid() {
				return nil, fmt.Errorf("template %q: unknown filter %q", src, seg.filter)
			}
		}
		t.segments = append(t.segments, seg)
		last = m[1]
	}
	if last < len(src) {
		t.segments = append(t.segments, segment{text: src[last:]})
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(src string) *Template {
	t, err := ParseTemplate(src)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Template) String() string { return t.src }

// Render interpolates the template. lookup resolves placeholder names; an
// unresolved name renders as "".
func (t *Template) Render(lookup func(name string) (string, bool)) (string, error) {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.name == "" {
			b.WriteString(seg.text)
			continue
		}
		v, _ := lookup(seg.name)
		switch seg.filter {
		case FilterTitleCase:
			v = titleCase(v)
		case FilterLowercase:
			v = strings.ToLower(v)
		case FilterUppercase:
			v = strings.ToUpper(v)
		case FilterNotEmpty:
			if v == "" {
				return "", fmt.Errorf("${%s}: %w", seg.name, ErrEmptyValue)
			}
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

// titleCase treats underscores and lower-to-upper case changes as word
// breaks, then capitalizes each word: "fooBar_baz" becomes "Foo Bar Baz".
func titleCase(v string) string {
	var b strings.Builder
	prev := rune(-1)
	for _, r := range v {
		switch {
		case r == '_':
			r = ' '
		case unicode.IsUpper(r) && prev >= 0 && unicode.IsLower(prev):
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return cases.Title(language.Und).String(b.String())
}
