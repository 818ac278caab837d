package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleared-dev/bankcsv/internal/schema"
)

// Registry holds bank schemas in registration order.
type Registry struct {
	schemas []*schema.BankSchema
	byName  map[string]*schema.BankSchema
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*schema.BankSchema)}
}

// Register adds a schema. Names are case-insensitive and must be unique.
func (r *Registry) Register(s *schema.BankSchema) error {
	key := strings.ToLower(s.Name)
	if _, ok := r.byName[key]; ok {
		return fmt.Errorf("duplicate schema name: %s", s.Name)
	}
	r.byName[key] = s
	r.schemas = append(r.schemas, s)
	return nil
}

// Get returns the schema registered under name, or nil.
func (r *Registry) Get(name string) *schema.BankSchema {
	return r.byName[strings.ToLower(name)]
}

// All returns the registered schemas in registration order.
func (r *Registry) All() []*schema.BankSchema {
	return r.schemas
}

// Match returns the first schema whose file pattern matches the base name of
// path, or nil.
func (r *Registry) Match(path string) *schema.BankSchema {
	base := filepath.Base(path)
	for _, s := range r.schemas {
		if s.MatchesFile(base) {
			return s
		}
	}
	return nil
}

// LoadRegistry builds a registry from every schema file in dir.
func LoadRegistry(dir string) (*Registry, error) {
	schemas, err := schema.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
	}
	return r, nil
}

// processedDir is the subdirectory exports are moved to once converted.
const processedDir = "processed"

// Scan returns the CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
