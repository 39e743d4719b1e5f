package engine

import (
	"context"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// AppliedQuestion is a question added by ApplyTemplate.
type AppliedQuestion struct {
	QuestionID   string `json:"question_id"`
	QuestionName string `json:"question_name"`
}

// ApplyResult is the outcome of ApplyTemplate.
type ApplyResult struct {
	Applied    []AppliedQuestion `json:"applied"`
	Resolution Resolution        `json:"resolution"`
	Insertion  *Insertion        `json:"insertion,omitempty"`
}

// ResolveTemplate computes which questions the project's template
// contributes under its current answer selections, without writing.
//
// Errors: ProjectNotFound, TemplateNotAssigned. Targets that cannot be
// expanded are skipped and listed in Resolution.Skipped.
func (c *Composer) ResolveTemplate(ctx context.Context, projectID string) (*Resolution, error) {
	project, err := c.loadProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.TemplateID == "" {
		return nil, newError(ErrCodeNotFound, ReasonTemplateNotAssigned,
			fmt.Sprintf("Project '%s' has no template assigned.", projectID))
	}

	lines, err := c.gw.ListTemplateLines(ctx, project.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("resolve template: load template lines: %w", err)
	}

	configQuestions, err := c.gw.ListConfigurationQuestions(ctx, project.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolve template: load configuration questions: %w", err)
	}
	questionIDs := make([]string, len(configQuestions))
	for i, q := range configQuestions {
		questionIDs[i] = q.ID
	}

	selections, err := c.gw.ListAnswerSelections(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("resolve template: load selections: %w", err)
	}

	rules, err := c.gw.ListDependencyRules(ctx, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve template: load rules: %w", err)
	}

	// Only targets that can actually take effect need expanding.
	fired := FiredRules(rules, selections, questionIDs)
	targets := make([]ir.Target, 0, len(lines)+len(fired))
	for _, l := range lines {
		targets = append(targets, l.Target)
	}
	for _, r := range fired {
		c.logger.Debug("rule fired",
			"project_id", projectID,
			"rule_id", r.ID,
			"effect", r.Effect,
			"target", r.Target.String(),
		)
		targets = append(targets, r.Target)
	}

	expansions, _, err := c.expander.ExpandAll(ctx, targets)
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	res := Resolve(ResolveInput{
		Lines:             lines,
		Rules:             fired,
		Selections:        selections,
		ConfigQuestionIDs: questionIDs,
		Expansions:        expansions,
	})
	res.ProjectID = projectID
	res.TemplateID = project.TemplateID

	for _, t := range res.Skipped {
		c.logger.Warn("target skipped: not found or inactive",
			"project_id", projectID,
			"template_id", project.TemplateID,
			"target", t.String(),
		)
	}
	c.logger.Debug("template resolved",
		"project_id", projectID,
		"questions", len(res.Questions),
		"fired_rules", len(res.FiredRules),
		"fingerprint", res.Fingerprint,
	)

	return &res, nil
}

// ApplyTemplate resolves the project's template and appends the resolved
// questions to its questionnaire.
//
// The whole application is rejected if any resolved question already has
// a line in the project (active or inactive). On partial batch failure the
// result lists the questions that were added and the error is
// PARTIAL_BATCH_FAILURE.
func (c *Composer) ApplyTemplate(ctx context.Context, projectID string) (*ApplyResult, error) {
	res, err := c.ResolveTemplate(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{Applied: []AppliedQuestion{}, Resolution: *res}
	if len(res.Questions) == 0 {
		c.logger.Info("template applied", "project_id", projectID, "applied", 0)
		return result, nil
	}

	existing, err := c.gw.ListQuestionnaireLines(ctx, projectID, ir.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("apply template: load lines: %w", err)
	}

	candidates := make([]candidate, len(res.Questions))
	lines := make([]ir.QuestionnaireLine, len(res.Questions))
	names := make(map[string]string, len(res.Questions))
	for i, q := range res.Questions {
		candidates[i] = candidate{kind: candidateQuestion, id: q.QuestionID, name: q.QuestionName}
		lines[i] = ir.QuestionnaireLine{
			QuestionBankID: q.QuestionID,
			ModuleID:       q.ModuleID,
			VariableName:   q.VariableName,
		}
		names[q.QuestionID] = q.QuestionName
	}
	if err := checkDuplicates(existing, candidates); err != nil {
		return nil, err
	}

	ins, insErr := c.insertLines(ctx, projectID, AppendSortOrder, lines)
	if ins == nil {
		return nil, insErr
	}

	result.Insertion = ins
	for _, l := range ins.Created {
		result.Applied = append(result.Applied, AppliedQuestion{QuestionID: l.QuestionBankID, QuestionName: names[l.QuestionBankID]})
	}
	c.logger.Info("template applied", "project_id", projectID, "applied", len(result.Applied))
	return result, insErr
}
