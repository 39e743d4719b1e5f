package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/compiler"
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.ConflictWarning `json:"warnings,omitempty"`
	Summary  *CatalogSummary            `json:"summary,omitempty"`
}

// CatalogSummary counts the entities of a catalog.
type CatalogSummary struct {
	Files           int `json:"files"`
	QuestionBanks   int `json:"question_banks"`
	Modules         int `json:"modules"`
	ConfigQuestions int `json:"config_questions"`
	Products        int `json:"products"`
	Templates       int `json:"templates"`
	Rules           int `json:"rules"`
	Projects        int `json:"projects"`
}

func summarize(res *compiler.LoadResult) *CatalogSummary {
	cat := res.Catalog
	return &CatalogSummary{
		Files:           res.FileCount,
		QuestionBanks:   len(cat.QuestionBanks),
		Modules:         len(cat.Modules),
		ConfigQuestions: len(cat.ConfigQuestions),
		Products:        len(cat.Products),
		Templates:       len(cat.Templates),
		Rules:           len(cat.Rules),
		Projects:        len(cat.Projects),
	}
}

func (s *CatalogSummary) String() string {
	return fmt.Sprintf("%d question bank(s), %d module(s), %d configuration question(s), %d product(s), %d template(s), %d rule(s), %d project(s)",
		s.QuestionBanks, s.Modules, s.ConfigQuestions, s.Products, s.Templates, s.Rules, s.Projects)
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog without loading it",
		Long: `Validate a CUE catalog (a file or a directory of CUE files).

Performs schema checking, reference and rule consistency checks, and
reports rules with opposite effects that can fire together. No database
is touched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	_, result, err := checkCatalog(formatter, path)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Catalog valid")
	fmt.Fprintf(formatter.Writer, "  %s\n", result.Summary)
	printWarnings(formatter, result.Warnings)
	return nil
}

// checkCatalog loads, validates and analyzes a catalog. Load and
// validation failures are written to the formatter and returned as
// ExitErrors.
func checkCatalog(formatter *OutputFormatter, path string) (*ir.Catalog, *ValidationResult, error) {
	res, err := compiler.Load(path)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return nil, nil, outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return nil, nil, outputValidateError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
	}
	formatter.VerboseLog("Compiled %d CUE file(s) from %s", res.FileCount, path)

	if errs := compiler.Validate(res.Catalog); len(errs) > 0 {
		return nil, nil, outputValidationErrors(formatter, errs)
	}

	warnings := compiler.AnalyzeConflicts(res.Catalog.ConfigQuestions, res.Catalog.Rules)
	return res.Catalog, &ValidationResult{
		Valid:    true,
		Warnings: warnings,
		Summary:  summarize(res),
	}, nil
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.ConflictWarning) {
	for _, w := range warnings {
		fmt.Fprintf(formatter.Writer, "⚠ %s\n", w.Message)
	}
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return reported(NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message)))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return reported(NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	// Validation failures = exit code 1
	return reported(NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs))))
}
