package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Driver     string // overrides database.driver
	Database   string // overrides database.dsn
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for studyctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "studyctl",
		Short: "studyctl - questionnaire composition",
		Long: `Compose study questionnaires from product templates, configuration
answers and dependency rules.

Catalogs are authored in CUE, loaded into a SQLite or PostgreSQL database
and composed into per-project questionnaires.`,
		Version:       fmt.Sprintf("%s (catalog schema %s)", ir.EngineVersion, ir.CatalogVersion),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "database driver (sqlite3|pgx)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database DSN or SQLite path")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewCustomCommand(opts))
	cmd.AddCommand(NewDeactivateCommand(opts))
	cmd.AddCommand(NewReactivateCommand(opts))
	cmd.AddCommand(NewLinesCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
