package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/engine"
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// composeCommand builds a database-backed command taking a project id as
// its first argument.
func composeCommand(rootOpts *RootOptions, use, short, long string, args cobra.PositionalArgs,
	run func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			s, err := rootOpts.openSession(cmd)
			if err != nil {
				_ = formatter.Error("E001", err.Error(), nil)
				return err
			}
			defer s.Close()
			s.logger.Debug("command started", "command", cmd.Name(), "request_id", formatter.RequestID)
			return run(s, formatter, cmd, args)
		},
	}
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return composeCommand(rootOpts,
		"resolve <project>",
		"Show which template questions apply, without writing",
		`Resolve the project's template under its current answer selections.

Prints the included questions in display order, the rules that fired and
any template or rule targets that were skipped because they are missing or
inactive. Nothing is written.`,
		cobra.ExactArgs(1),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			res, err := s.composer.ResolveTemplate(cmd.Context(), args[0])
			if err != nil {
				return f.EngineFailure(err, nil)
			}
			if f.Format == "json" {
				return f.Success(res)
			}
			printResolution(f.Writer, res)
			return nil
		})
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return composeCommand(rootOpts,
		"apply <project>",
		"Append the resolved template questions to the questionnaire",
		`Resolve the project's template and append the included questions after
the last active line.

The whole application is rejected if any of the questions already has a
line in the project, active or not.`,
		cobra.ExactArgs(1),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			res, err := s.composer.ApplyTemplate(cmd.Context(), args[0])
			if err != nil {
				var data any
				if res != nil {
					data = res
				}
				return f.EngineFailure(err, data)
			}
			if f.Format == "json" {
				return f.Success(res)
			}
			fmt.Fprintf(f.Writer, "✓ Applied %d question(s)\n", len(res.Applied))
			for _, q := range res.Applied {
				fmt.Fprintf(f.Writer, "  %s  %s\n", q.QuestionID, q.QuestionName)
			}
			return nil
		})
}

// AddOptions holds flags for the add command.
type AddOptions struct {
	Kind      string
	SortOrder int
	IDs       []string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{}
	cmd := composeCommand(rootOpts,
		"add <project>",
		"Insert question banks or modules into the questionnaire",
		`Insert question banks or modules at a sort order, shifting the lines at
or after it. Modules expand into one line per active question bank.

Without --sort-order the new lines are appended.

Example:
  studyctl add P1 --kind Question --ids AGE,GENDER --sort-order 2
  studyctl add P1 --kind Module --ids DEMO`,
		cobra.ExactArgs(1),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			rows := make([]engine.RowRef, len(opts.IDs))
			for i, id := range opts.IDs {
				rows[i] = engine.RowRef{ID: id}
			}
			res, err := s.composer.AddQuestionsOrModules(cmd.Context(), engine.AddRequest{
				ProjectID:  args[0],
				SortOrder:  opts.SortOrder,
				EntityKind: engine.EntityKind(opts.Kind),
				Rows:       rows,
			})
			return reportAdd(f, res, err)
		})

	cmd.Flags().StringVar(&opts.Kind, "kind", string(ir.KindQuestion), "entity kind (Question|Module)")
	cmd.Flags().IntVar(&opts.SortOrder, "sort-order", engine.AppendSortOrder, "first sort order of the new lines (-1 appends)")
	cmd.Flags().StringSliceVar(&opts.IDs, "ids", nil, "question bank or module ids")
	_ = cmd.MarkFlagRequired("ids")
	return cmd
}

// CustomOptions holds flags for the custom command.
type CustomOptions struct {
	Text      string
	SortOrder int
}

// NewCustomCommand creates the custom command.
func NewCustomCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CustomOptions{}
	cmd := composeCommand(rootOpts,
		"custom <project> <variable-name>",
		"Insert a hand-written question",
		`Insert a custom question identified by its variable name. Variable names
are compared ignoring case and surrounding space.`,
		cobra.ExactArgs(2),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			res, err := s.composer.AddCustomQuestion(cmd.Context(), engine.CustomQuestionRequest{
				ProjectID:    args[0],
				SortOrder:    opts.SortOrder,
				VariableName: args[1],
				Text:         opts.Text,
			})
			return reportAdd(f, res, err)
		})

	cmd.Flags().StringVar(&opts.Text, "text", "", "question text")
	cmd.Flags().IntVar(&opts.SortOrder, "sort-order", engine.AppendSortOrder, "sort order of the new line (-1 appends)")
	return cmd
}

func reportAdd(f *OutputFormatter, res *engine.AddResult, err error) error {
	if err != nil {
		var data any
		if res != nil {
			data = res
		}
		return f.EngineFailure(err, data)
	}
	if f.Format == "json" {
		return f.Success(res)
	}
	ins := res.Insertion
	fmt.Fprintf(f.Writer, "✓ Added %d line(s) at %d", len(ins.Created), ins.Start)
	if ins.Displaced > 0 {
		fmt.Fprintf(f.Writer, ", moved %d", ins.Displaced)
	}
	fmt.Fprintln(f.Writer)
	return nil
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return composeCommand(rootOpts,
		"deactivate <project> <line>",
		"Soft-delete a questionnaire line",
		`Deactivate a questionnaire line. The line keeps its sort order and still
blocks re-adding the same question; reactivate it instead.`,
		cobra.ExactArgs(2),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			line, err := s.composer.DeactivateLine(cmd.Context(), args[0], args[1])
			return reportLine(f, line, err, "deactivated")
		})
}

// NewReactivateCommand creates the reactivate command.
func NewReactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return composeCommand(rootOpts,
		"reactivate <project> <line>",
		"Restore a soft-deleted questionnaire line",
		`Reactivate a questionnaire line at its former sort order, or after the
last active line when that slot has been taken.`,
		cobra.ExactArgs(2),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			line, err := s.composer.ReactivateLine(cmd.Context(), args[0], args[1])
			return reportLine(f, line, err, "reactivated")
		})
}

func reportLine(f *OutputFormatter, line ir.QuestionnaireLine, err error, verb string) error {
	if err != nil {
		return f.EngineFailure(err, nil)
	}
	if f.Format == "json" {
		return f.Success(line)
	}
	fmt.Fprintf(f.Writer, "✓ %s %s at %d\n", line.VariableName, verb, line.SortOrder)
	return nil
}

// NewLinesCommand creates the lines command.
func NewLinesCommand(rootOpts *RootOptions) *cobra.Command {
	var all bool
	cmd := composeCommand(rootOpts,
		"lines <project>",
		"List the questionnaire",
		`List a project's questionnaire lines in sort order. Inactive lines are
shown with --all.`,
		cobra.ExactArgs(1),
		func(s *session, f *OutputFormatter, cmd *cobra.Command, args []string) error {
			scope := ir.ScopeActive
			if all {
				scope = ir.ScopeAll
			}
			lines, err := s.composer.ListQuestionnaire(cmd.Context(), args[0], scope)
			if err != nil {
				return f.EngineFailure(err, nil)
			}
			if f.Format == "json" {
				return f.Success(lines)
			}
			printLines(f.Writer, lines)
			return nil
		})
	cmd.Flags().BoolVar(&all, "all", false, "include inactive lines")
	return cmd
}

func printResolution(w io.Writer, res *engine.Resolution) {
	fmt.Fprintf(w, "Template %s for project %s: %d question(s)\n", res.TemplateID, res.ProjectID, len(res.Questions))
	for _, q := range res.Questions {
		suffix := ""
		if q.ModuleID != "" {
			suffix = " [" + q.ModuleID + "]"
		}
		fmt.Fprintf(w, "  %d. %s  %s%s\n", q.DisplayOrder, q.QuestionID, q.QuestionName, suffix)
	}
	if len(res.FiredRules) > 0 {
		fmt.Fprintf(w, "Fired rules: %s\n", strings.Join(res.FiredRules, ", "))
	}
	for _, t := range res.Skipped {
		fmt.Fprintf(w, "⚠ skipped %s: not found or inactive\n", t)
	}
}

func printLines(w io.Writer, lines []ir.QuestionnaireLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No lines.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SORT\tVARIABLE\tSOURCE\tSTATE\tID")
	for _, l := range lines {
		source := l.QuestionBankID
		if l.IsCustom() {
			source = "(custom)"
		} else if l.ModuleID != "" {
			source += " [" + l.ModuleID + "]"
		}
		state := "active"
		if !l.Active {
			state = "inactive"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.SortOrder, l.VariableName, source, state, l.ID)
	}
	_ = tw.Flush()
}
