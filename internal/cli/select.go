package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// SelectResult is the outcome of the select command.
type SelectResult struct {
	ProjectID  string   `json:"project_id"`
	QuestionID string   `json:"question_id"`
	Selected   []string `json:"selected"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <project> <question> [answer...]",
		Short: "Set a project's answers to a configuration question",
		Long: `Replace the selected answers of one configuration question.

Listed answers are selected; every other answer of the question is
deselected. Pass no answers to clear the question. SingleCoded questions
accept at most one answer.

Example:
  studyctl select P1 music_genre rock pop`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(rootOpts, args[0], args[1], args[2:], cmd)
		},
	}
	return cmd
}

func runSelect(opts *RootOptions, projectID, questionID string, answers []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	ctx := cmd.Context()

	s, err := opts.openSession(cmd)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return err
	}
	defer s.Close()

	project, err := s.store.GetProject(ctx, projectID)
	if errors.Is(err, ir.ErrNoRecord) {
		return rejectSelect(formatter, fmt.Sprintf("Project '%s' not found.", projectID))
	}
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load project", err)
	}

	questions, err := s.store.ListConfigurationQuestions(ctx, project.ProductID)
	if err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load configuration questions", err)
	}
	idx := slices.IndexFunc(questions, func(q ir.ConfigurationQuestion) bool { return q.ID == questionID })
	if idx < 0 {
		return rejectSelect(formatter, fmt.Sprintf("Configuration question '%s' is not part of product '%s'.", questionID, project.ProductID))
	}
	question := questions[idx]

	var unknown []string
	for _, a := range answers {
		if !slices.ContainsFunc(question.Answers, func(ca ir.ConfigurationAnswer) bool { return ca.ID == a }) {
			unknown = append(unknown, a)
		}
	}
	if len(unknown) > 0 {
		return rejectSelect(formatter, fmt.Sprintf("Answers %s do not belong to '%s'.", strings.Join(unknown, ", "), questionID))
	}
	if question.CodingMode == ir.CodingSingle && len(answers) > 1 {
		return rejectSelect(formatter, fmt.Sprintf("'%s' is SingleCoded; select at most one answer.", questionID))
	}

	selections := make([]ir.ProjectAnswerSelection, len(question.Answers))
	result := SelectResult{ProjectID: projectID, QuestionID: questionID, Selected: []string{}}
	for i, a := range question.Answers {
		selected := slices.Contains(answers, a.ID)
		selections[i] = ir.ProjectAnswerSelection{
			ProjectID:  projectID,
			QuestionID: questionID,
			AnswerID:   a.ID,
			Selected:   selected,
		}
		if selected {
			result.Selected = append(result.Selected, a.ID)
		}
	}
	if err := s.store.SaveSelections(ctx, selections); err != nil {
		_ = formatter.Error("E001", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to save selections", err)
	}
	s.logger.Info("selections saved", "project_id", projectID, "question_id", questionID, "selected", len(result.Selected))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s.%s = [%s]\n", projectID, questionID, strings.Join(result.Selected, ", "))
	return nil
}

func rejectSelect(formatter *OutputFormatter, message string) error {
	_ = formatter.Error("VALIDATION", message, nil)
	return reported(NewExitError(ExitFailure, message))
}
