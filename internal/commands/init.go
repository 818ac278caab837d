package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/config"
	"github.com/cleared-dev/bankcsv/internal/gitops"
)

const exampleSchema = `# Example schema for a bank exporting "Date,Description,Debit,Credit".
name: Example
file_pattern: '(?i)^example.*\.csv$'
ignore_header_rows: 1
delimiter: ","
encoding: auto
columns:
  - {type: date, args: "%Y-%m-%d"}
  - payee
  - {type: outflow, args: period}
  - {type: inflow, args: period}
rules:
  - rules/example.yaml
`

const exampleRules = `payees:
  Amazon: ['^AMZN.*$', 'amazon mktp']
rules:
  - label: card fees
    match: {payee: '(?i)^card fee'}
    set: {category: 'Bank Fees'}
`

const gitignore = "import/\nout/\nlogs/\n"

func newInitCommand() *cobra.Command {
	var withGit bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bankcsv project",
		Args:  cobra.MaximumNArgs(1),
		// init writes the config, so it must not require one
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir); err != nil {
				return err
			}
			if withGit {
				hash, err := initGit(cmd, absDir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized bankcsv project at %s (%s)\n", absDir, hash)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized bankcsv project at %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withGit, "git", false, "initialize a git repository and commit the scaffold")

	return cmd
}

func runInit(dir string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	cfg := config.Default()
	dirs := []string{
		cfg.SchemasDir,
		filepath.Join(cfg.SchemasDir, "rules"),
		cfg.Import.Dir,
		filepath.Join(cfg.Import.Dir, "processed"),
		cfg.Output.Dir,
		filepath.Dir(cfg.Diagnostics.File),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	files := map[string]string{
		filepath.Join(cfg.SchemasDir, "example.yaml"):          exampleSchema,
		filepath.Join(cfg.SchemasDir, "rules", "example.yaml"): exampleRules,
		filepath.Join(cfg.Import.Dir, ".gitkeep"):              "",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

func initGit(cmd *cobra.Command, dir string) (string, error) {
	if !gitops.Available() {
		return "", fmt.Errorf("--git: git not found on PATH")
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return "", fmt.Errorf("writing .gitignore: %w", err)
	}
	if err := gitops.Init(cmd.Context(), dir); err != nil {
		return "", err
	}
	return gitops.CommitAll(cmd.Context(), dir, "init: bankcsv project", gitops.DefaultAuthor)
}
