package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run composition scenarios",
		Long: `Run composition scenarios through the harness.

Each scenario loads its own catalog into a throwaway SQLite database,
executes its steps and checks expectations and assertions. When a golden
file named after the scenario exists, the step trace must match it too.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  studyctl test ./scenarios
  studyctl test ./scenarios --filter "scenario_*"
  studyctl test ./scenarios --golden-dir ./golden --update
  studyctl test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	if opts.GoldenDir == "" {
		opts.GoldenDir = filepath.Join(scenariosDir, "golden")
	}

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarioFiles)),
		Total:     len(scenarioFiles),
	}
	if len(scenarioFiles) == 0 {
		if formatter.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	for _, scenarioFile := range scenarioFiles {
		scenResult := runScenario(scenarioFile, opts, formatter, cmd)
		result.Scenarios = append(result.Scenarios, scenResult)

		if scenResult.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.Format == "json" {
		return outputTestJSON(formatter, result)
	}
	return outputTestText(formatter, result)
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario and returns the result.
func runScenario(scenarioFile string, opts *TestOptions, formatter *OutputFormatter, cmd *cobra.Command) ScenarioResult {
	fail := func(name string, errs ...string) ScenarioResult {
		if formatter.Format != "json" {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", name)
			for _, e := range errs {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}
	pass := func(name, note string) ScenarioResult {
		if formatter.Format != "json" {
			fmt.Fprintf(formatter.Writer, "✓ %s%s\n", name, note)
		}
		return ScenarioResult{Name: name, Pass: true}
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return fail(filepath.Base(scenarioFile), fmt.Sprintf("failed to load scenario: %v", err))
	}
	formatter.VerboseLog("Running %s (%d step(s))", scenario.Name, len(scenario.Steps))

	var runOpts []harness.Option
	if opts.Verbose {
		cfg, err := opts.loadConfig()
		if err == nil {
			runOpts = append(runOpts, harness.WithLogger(cfg.NewLogger(formatter.GetErrWriter())))
		}
	}

	result, err := harness.Run(cmd.Context(), scenario, runOpts...)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fail(scenario.Name, fmt.Sprintf("failed to render trace: %v", err))
	}
	goldenPath := filepath.Join(opts.GoldenDir, scenario.Name+".golden")

	if opts.Update {
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to create golden directory: %v", err))
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			return fail(scenario.Name, fmt.Sprintf("failed to write golden file: %v", err))
		}
		return pass(scenario.Name, " (golden updated)")
	}

	golden, err := os.ReadFile(goldenPath)
	switch {
	case os.IsNotExist(err):
		// No golden file - assertion-based validation only
	case err != nil:
		return fail(scenario.Name, fmt.Sprintf("failed to read golden file: %v", err))
	case !bytes.Equal(golden, snapshot):
		return fail(scenario.Name, "trace does not match golden file (run with --update to regenerate)")
	}

	if !result.Pass {
		return fail(scenario.Name, result.Errors...)
	}
	return pass(scenario.Name, "")
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(formatter *OutputFormatter, result TestResult) error {
	if result.Failed == 0 {
		return formatter.Success(result)
	}

	message := fmt.Sprintf("%d scenario(s) failed", result.Failed)
	if err := formatter.encode(CLIResponse{
		Status: "error",
		Data:   result,
		Error:  &CLIError{Code: "E_TEST_FAILED", Message: message},
	}); err != nil {
		return err
	}
	// Test failures = exit code 1
	return reported(NewExitError(ExitFailure, message))
}

// outputTestText outputs the test result as text.
func outputTestText(formatter *OutputFormatter, result TestResult) error {
	w := formatter.Writer

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return reported(NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed)))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
