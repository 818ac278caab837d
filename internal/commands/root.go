package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/bankcsv/internal/buildinfo"
	"github.com/cleared-dev/bankcsv/internal/config"
	"github.com/cleared-dev/bankcsv/internal/logging"
)

// app carries state shared by all subcommands once the root command has
// loaded configuration.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *logrus.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "bankcsv",
		Short:   "Normalize bank CSV exports into one transaction format",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./"+config.FileName+")")
	flags.String("schemas", "", "directory of bank schema files")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newCheckCommand(a))
	rootCmd.AddCommand(newSchemasCommand(a))
	rootCmd.AddCommand(newDiagnosticsCommand(a))

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadWithFlags(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, logging.Format(cfg.Log.Format))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logger
	return nil
}
