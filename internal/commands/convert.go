package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/importer"
	"github.com/cleared-dev/bankcsv/internal/output"
	"github.com/cleared-dev/bankcsv/internal/pipeline"
	"github.com/cleared-dev/bankcsv/internal/rules"
	"github.com/cleared-dev/bankcsv/internal/schema"
)

type convertOptions struct {
	bank          string
	ruleFiles     []string
	outFile       string
	extraColumns  []string
	progress      bool
	moveProcessed bool
}

func newConvertCommand(a *app) *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert [files...]",
		Short: "Convert bank exports to normalized CSV",
		Long: "Convert bank exports to normalized CSV. Without arguments every CSV file in the\n" +
			"configured import directory is converted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("move-processed") {
				opts.moveProcessed = a.cfg.Import.MoveProcessed
			}
			if !cmd.Flags().Changed("extra-columns") {
				opts.extraColumns = a.cfg.Output.ExtraColumns
			}
			return runConvert(cmd, a, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.bank, "bank", "b", "", "schema name or schema file to use for every input")
	cmd.Flags().StringArrayVarP(&opts.ruleFiles, "rules", "r", nil, "additional rule file, applied after schema rules (repeatable)")
	cmd.Flags().StringVarP(&opts.outFile, "output", "o", "", `write all transactions to one file ("-" for stdout)`)
	cmd.Flags().String("out-dir", "", "directory for per-file output")
	cmd.Flags().String("rules-dir", "", "directory of rule files applied to every schema")
	cmd.Flags().Int("workers", 0, "files converted in parallel")
	cmd.Flags().StringSliceVar(&opts.extraColumns, "extra-columns", nil, "extra fields to write as additional columns")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar")
	cmd.Flags().BoolVar(&opts.moveProcessed, "move-processed", false, "move converted files from the import dir to its processed/ subdir")

	return cmd
}

func runConvert(cmd *cobra.Command, a *app, opts convertOptions, args []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	paths := args
	fromImportDir := len(args) == 0
	if fromImportDir {
		files, err := importer.Scan(cfg.Import.Dir)
		if err != nil {
			return err
		}
		for _, f := range files {
			paths = append(paths, f.Path)
		}
		if len(paths) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", cfg.Import.Dir)
			return nil
		}
	}

	reg, forced, err := loadSchemas(cfg.SchemasDir, opts.bank)
	if err != nil {
		return err
	}
	extra, err := loadExtraRules(cfg.RulesDir, opts.ruleFiles)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	if opts.progress {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Converting"),
			progressbar.OptionClearOnFinish(),
		)
	}

	conv, err := pipeline.New(pipeline.Options{
		Registry: reg,
		Schema:   forced,
		Rules:    extra,
		Workers:  cfg.Workers,
		Logger:   a.log,
		OnResult: func(*pipeline.Result) {
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	})
	if err != nil {
		return err
	}

	results, err := conv.ConvertFiles(ctx, paths)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := writeResults(cmd, cfg.Output.Dir, opts, results); err != nil {
		return err
	}

	var diags int
	now := time.Now().UTC()
	for _, res := range results {
		for _, d := range res.Diagnostics {
			fmt.Fprintln(cmd.ErrOrStderr(), d)
		}
		diags += len(res.Diagnostics)
		if cfg.Diagnostics.File != "" {
			if err := output.AppendLog(cfg.Diagnostics.File, now, res.Diagnostics); err != nil {
				a.log.WithError(err).Warn("failed to write diagnostics log")
			}
		}
	}

	if fromImportDir && opts.moveProcessed {
		for _, p := range paths {
			if err := importer.MarkProcessed(cfg.Import.Dir, filepath.Base(p)); err != nil {
				return err
			}
		}
	}

	if opts.outFile != "-" {
		var txns int
		for _, res := range results {
			txns += len(res.Transactions)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Converted %d file(s): %d transaction(s), %d diagnostic(s)\n", len(results), txns, diags)
	}
	return nil
}

// loadSchemas returns the registry from dir and, when bank is set, the schema
// every file must use. bank may name a registered schema or a schema file.
func loadSchemas(dir, bank string) (*importer.Registry, *schema.BankSchema, error) {
	if bank != "" {
		if _, err := os.Stat(bank); err == nil {
			s, err := schema.Load(bank)
			if err != nil {
				return nil, nil, err
			}
			return nil, s, nil
		}
	}

	reg, err := importer.LoadRegistry(dir)
	if err != nil {
		return nil, nil, err
	}
	if bank == "" {
		return reg, nil, nil
	}
	s := reg.Get(bank)
	if s == nil {
		return nil, nil, fmt.Errorf("unknown schema %q", bank)
	}
	return reg, s, nil
}

// loadExtraRules loads every rule file in dir, in name order, followed by files.
func loadExtraRules(dir string, files []string) (rules.RuleSet, error) {
	var paths []string
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("reading rules dir: %w", err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
		sort.Strings(paths)
	}
	return rules.LoadFiles(append(paths, files...)...)
}

func writeResults(cmd *cobra.Command, outDir string, opts convertOptions, results []*pipeline.Result) error {
	if opts.outFile != "" {
		var w io.Writer = cmd.OutOrStdout()
		if opts.outFile != "-" {
			f, err := os.Create(opts.outFile)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer f.Close()
			w = f
		}
		tw := output.NewTransactionWriter(w, opts.extraColumns)
		for _, res := range results {
			if err := tw.Write(res.Transactions); err != nil {
				return fmt.Errorf("writing %s: %w", opts.outFile, err)
			}
		}
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	for _, res := range results {
		path := filepath.Join(outDir, filepath.Base(res.File))
		if err := writeFile(path, res, opts.extraColumns); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, res *pipeline.Result, extraColumns []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if err := output.WriteTransactions(f, res.Transactions, extraColumns); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
