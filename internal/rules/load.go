package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/bankcsv/internal/model"
)

// File is the on-disk rule file format.
type File struct {
	PreTransform  []RuleDoc             `yaml:"pre_transform"`
	Payees        map[string]StringList `yaml:"payees"`
	Rules         []RuleDoc             `yaml:"rules"`
	PostTransform []RuleDoc             `yaml:"post_transform"`
}

// RuleDoc is one rule as written in a rule file.
type RuleDoc struct {
	Label string `yaml:"label"`
	Match Fields `yaml:"match"` // {} matches every row; omitted is an error
	Set   Fields `yaml:"set"`
	Drop  bool   `yaml:"drop"`
	Stop  bool   `yaml:"stop"`
}

// FieldValue is one entry of a match or set mapping.
type FieldValue struct {
	Field string
	Value string
}

// Fields is a YAML mapping that keeps its document order.
type Fields []FieldValue

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Fields) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping of field to value", n.Line)
	}
	out := make(Fields, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value for %q must be a string", v.Line, k.Value)
		}
		out = append(out, FieldValue{Field: k.Value, Value: v.Value})
	}
	*f = out
	return nil
}

// StringList accepts either a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		*s = StringList{n.Value}
		return nil
	}
	var list []string
	if err := n.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// Parse decodes and compiles one rule file. source names the file in error
// messages and in Rule.Source. An empty document yields an empty RuleSet.
func Parse(data []byte, source string) (RuleSet, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing rules %s: %w", source, err)
	}
	rs, err := Compile(f, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return rs, nil
}

// Load reads and compiles the rule file at path.
func Load(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	return Parse(data, path)
}

// LoadFiles loads every file in order and concatenates the results.
func LoadFiles(paths ...string) (RuleSet, error) {
	var sets []RuleSet
	for _, p := range paths {
		rs, err := Load(p)
		if err != nil {
			return nil, err
		}
		sets = append(sets, rs)
	}
	return Concat(sets...), nil
}

// Compile turns a decoded rule file into rules, in the order pre_transform,
// payee aliases (sorted by alias), rules, post_transform.
func Compile(f File, source string) (RuleSet, error) {
	var rs RuleSet
	add := func(section string, docs []RuleDoc) error {
		for i, d := range docs {
			r, err := compileRule(d, source)
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", section, i, err)
			}
			rs = append(rs, r)
		}
		return nil
	}

	if err := add("pre_transform", f.PreTransform); err != nil {
		return nil, err
	}
	aliases, err := compileAliases(f.Payees, source)
	if err != nil {
		return nil, err
	}
	rs = append(rs, aliases...)
	if err := add("rules", f.Rules); err != nil {
		return nil, err
	}
	if err := add("post_transform", f.PostTransform); err != nil {
		return nil, err
	}
	return rs, nil
}

func compileRule(d RuleDoc, source string) (Rule, error) {
	r := Rule{Label: d.Label, Source: source, Stop: d.Stop}
	if d.Match == nil {
		return Rule{}, fmt.Errorf("rule %s: no match conditions (use match: {} to match every row)", r.name())
	}
	for _, m := range d.Match {
		re, err := regexp.Compile(m.Value)
		if err != nil {
			return Rule{}, fmt.Errorf("match %s: %w", m.Field, err)
		}
		r.Predicates = append(r.Predicates, Predicate{Field: m.Field, Pattern: re})
	}
	for _, s := range d.Set {
		tmpl, err := ParseTemplate(s.Value)
		if err != nil {
			return Rule{}, fmt.Errorf("set %s: %w", s.Field, err)
		}
		r.Actions = append(r.Actions, Set(s.Field, tmpl))
	}
	if d.Drop {
		r.Actions = append(r.Actions, Drop())
	}
	if len(r.Actions) == 0 {
		return Rule{}, fmt.Errorf("rule %s: no actions", r.name())
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

const aliasLabelPrefix = "payee alias "

// compileAliases builds one rule per payee alias. Patterns written as
// ^...$ are regular expressions; anything else is matched literally. Both
// ignore case.
func compileAliases(payees map[string]StringList, source string) (RuleSet, error) {
	names := make([]string, 0, len(payees))
	for name := range payees {
		names = append(names, name)
	}
	sort.Strings(names)

	var rs RuleSet
	for _, name := range names {
		patterns := payees[name]
		if len(patterns) == 0 {
			return nil, fmt.Errorf("payees[%s]: no patterns", name)
		}
		alts := make([]string, len(patterns))
		for i, p := range patterns {
			if len(p) >= 2 && strings.HasPrefix(p, "^") && strings.HasSuffix(p, "$") {
				alts[i] = "(?:" + p + ")"
			} else {
				alts[i] = regexp.QuoteMeta(p)
			}
		}
		re, err := regexp.Compile("(?i)" + strings.Join(alts, "|"))
		if err != nil {
			return nil, fmt.Errorf("payees[%s]: %w", name, err)
		}
		rs = append(rs, Rule{
			Label:      aliasLabelPrefix + name,
			Source:     source,
			Alias:      true,
			Predicates: []Predicate{{Field: model.FieldPayee, Pattern: re}},
			Actions:    []Action{Set(model.FieldPayee, &Template{src: name, segments: []segment{{text: name}}})},
		})
	}
	return rs, nil
}
