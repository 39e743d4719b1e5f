package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <catalog>",
		Short: "Validate a catalog and write it to the database",
		Long: `Validate a CUE catalog and upsert it into the database.

Catalog records and declared projects (with their answer selections) are
written in one transaction. Existing questionnaire lines are kept.

Example:
  studyctl load --db ./study.db ./catalog`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLoad(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cat, result, err := checkCatalog(formatter, path)
	if err != nil {
		return err
	}

	s, err := opts.openSession(cmd)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return err
	}
	defer s.Close()

	if err := s.store.SaveCatalog(cmd.Context(), cat); err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to save catalog", err)
	}
	s.logger.Info("catalog loaded", "path", path, "rules", result.Summary.Rules, "projects", result.Summary.Projects)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Loaded %s\n", result.Summary)
	printWarnings(formatter, result.Warnings)
	return nil
}
