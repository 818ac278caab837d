package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/rules"
	"github.com/cleared-dev/bankcsv/internal/schema"
)

func newCheckCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [schema.yaml...]",
		Short: "Validate bank schemas and their rule files",
		Long: "Validate bank schemas and the rule files they reference. Without arguments every\n" +
			"schema in the configured schemas directory is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 {
				var err error
				paths, err = schemaFiles(a.cfg.SchemasDir)
				if err != nil {
					return err
				}
			}
			return runCheck(cmd, paths)
		},
	}
}

func runCheck(cmd *cobra.Command, paths []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, p := range paths {
		s, e, err := checkSchema(p)
		if err != nil {
			failed++
			fmt.Fprintf(out, "FAIL %s\n", p)
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(out, "     %s\n", line)
			}
			continue
		}
		fmt.Fprintf(out, "ok   %s (%s: %d columns, %d rules)\n", p, s.Name, len(s.Columns), e.Len())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schema(s) failed validation", failed, len(paths))
	}
	return nil
}

func checkSchema(path string) (*schema.BankSchema, *rules.Engine, error) {
	s, err := schema.Load(path)
	if err != nil {
		return nil, nil, err
	}
	rs, err := rules.LoadFiles(s.Rules...)
	if err != nil {
		return nil, nil, err
	}
	e, err := rules.NewEngine(rs)
	if err != nil {
		return nil, nil, err
	}
	return s, e, nil
}

// schemaFiles lists the schema files directly inside dir, sorted by name.
func schemaFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, errors.New("no schema files in " + dir)
	}
	return paths, nil
}
