package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/importer"
)

func newSchemasCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "List the bank schemas in the schemas directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := importer.LoadRegistry(a.cfg.SchemasDir)
			if err != nil {
				return err
			}
			all := reg.All()
			if len(all) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No schemas in %s\n", a.cfg.SchemasDir)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFILE PATTERN\tRULE FILES\tPATH")
			for _, s := range all {
				pattern := "-"
				if s.FilePattern != nil {
					pattern = s.FilePattern.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Name, pattern, len(s.Rules), s.Path)
			}
			return w.Flush()
		},
	}
}
