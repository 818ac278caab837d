package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML representation of a bank schema.
type File struct {
	Name             string   `yaml:"name"`
	FilePattern      string   `yaml:"file_pattern,omitempty"`
	IgnoreHeaderRows int      `yaml:"ignore_header_rows"`
	IgnorePatterns   []string `yaml:"ignore_patterns,omitempty"`
	Delimiter        string   `yaml:"delimiter"`
	Encoding         string   `yaml:"encoding,omitempty"`
	Columns          []Column `yaml:"columns"`
	Rules            []string `yaml:"rules,omitempty"`
}

// Column is one column entry of a schema file. It is written either as a bare
// type name ("ignore") or as {type, args}, where args is a scalar or a mapping.
type Column struct {
	Type    string
	Arg     string
	Options map[string]string
}

// UnmarshalYAML accepts both column notations.
func (c *Column) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Type = value.Value
		return nil
	}

	var raw struct {
		Type string    `yaml:"type"`
		Args yaml.Node `yaml:"args"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Type = raw.Type

	switch raw.Args.Kind {
	case 0:
	case yaml.ScalarNode:
		if raw.Args.Tag != "!!null" {
			c.Arg = raw.Args.Value
		}
	case yaml.MappingNode:
		if err := raw.Args.Decode(&c.Options); err != nil {
			return fmt.Errorf("line %d: decoding column args: %w", raw.Args.Line, err)
		}
	default:
		return fmt.Errorf("line %d: column args must be a scalar or a mapping", raw.Args.Line)
	}
	return nil
}

// Parse decodes and compiles a schema. Relative rule paths resolve against baseDir.
func Parse(data []byte, baseDir string) (*BankSchema, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing schema: empty document")
		}
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return Compile(f, baseDir)
}

// Load reads and compiles a schema file.
func Load(path string) (*BankSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// LoadDir loads every *.yaml and *.yml schema in dir, sorted by file name.
func LoadDir(dir string) ([]*BankSchema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	schemas := make([]*BankSchema, 0, len(names))
	for _, n := range names {
		s, err := Load(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}
