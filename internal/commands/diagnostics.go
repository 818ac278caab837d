package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/model"
	"github.com/cleared-dev/bankcsv/internal/output"
)

func newDiagnosticsCommand(a *app) *cobra.Command {
	var file, kind string

	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Show rows that earlier conversions failed or dropped",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Diagnostics.File == "" {
				return fmt.Errorf("diagnostics log is disabled (diagnostics.file is empty)")
			}
			entries, err := output.ReadLog(a.cfg.Diagnostics.File)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, e := range entries {
				if file != "" && filepath.Base(e.File) != filepath.Base(file) {
					continue
				}
				if kind != "" && e.Kind != model.DiagnosticKind(kind) {
					continue
				}
				fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Diagnostic)
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "No diagnostics recorded")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "only show diagnostics for this export")
	cmd.Flags().StringVar(&kind, "kind", "", "only show diagnostics of this kind (e.g. dropped, date_parse)")

	return cmd
}
