package engine

import (
	"context"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// ListQuestionnaire returns the project's lines in render order. ScopeActive
// is the rendered questionnaire; ScopeAll adds inactive lines.
func (c *Composer) ListQuestionnaire(ctx context.Context, projectID string, scope ir.LineScope) ([]ir.QuestionnaireLine, error) {
	if _, err := c.loadProject(ctx, projectID); err != nil {
		return nil, err
	}
	lines, err := c.gw.ListQuestionnaireLines(ctx, projectID, scope)
	if err != nil {
		return nil, fmt.Errorf("list questionnaire: %w", err)
	}
	return lines, nil
}

// findLine returns the line with lineID among all lines of a project.
func (c *Composer) findLine(ctx context.Context, projectID, lineID string) (ir.QuestionnaireLine, []ir.QuestionnaireLine, error) {
	if _, err := c.loadProject(ctx, projectID); err != nil {
		return ir.QuestionnaireLine{}, nil, err
	}
	all, err := c.gw.ListQuestionnaireLines(ctx, projectID, ir.ScopeAll)
	if err != nil {
		return ir.QuestionnaireLine{}, nil, fmt.Errorf("load lines: %w", err)
	}
	for _, l := range all {
		if l.ID == lineID {
			return l, all, nil
		}
	}
	return ir.QuestionnaireLine{}, nil, newError(ErrCodeNotFound, ReasonLineNotFound,
		fmt.Sprintf("Questionnaire line '%s' not found.", lineID))
}

// DeactivateLine soft-deletes a line. Deactivating an inactive line is a
// no-op. The line keeps its sort order so it can be reactivated in place.
func (c *Composer) DeactivateLine(ctx context.Context, projectID, lineID string) (ir.QuestionnaireLine, error) {
	line, _, err := c.findLine(ctx, projectID, lineID)
	if err != nil {
		return ir.QuestionnaireLine{}, err
	}
	if !line.Active {
		return line, nil
	}

	inactive := false
	if _, err := c.gw.UpdateLines(ctx, []ir.LineUpdate{{ID: line.ID, Active: &inactive}}, ir.FailFast); err != nil {
		return ir.QuestionnaireLine{}, fmt.Errorf("deactivate line %s: %w", lineID, err)
	}
	line.Active = false
	c.logger.Info("line deactivated", "project_id", projectID, "line_id", lineID)
	return line, nil
}

// ReactivateLine restores a soft-deleted line.
//
// The line is rejected if another active line already holds the same
// question bank (or, for custom lines, the same normalized variable name).
// It takes back its former sort order when no active line uses it, and is
// appended otherwise. Reactivating an active line is a no-op.
func (c *Composer) ReactivateLine(ctx context.Context, projectID, lineID string) (ir.QuestionnaireLine, error) {
	line, all, err := c.findLine(ctx, projectID, lineID)
	if err != nil {
		return ir.QuestionnaireLine{}, err
	}
	if line.Active {
		return line, nil
	}

	var active []ir.QuestionnaireLine
	for _, l := range all {
		if l.Active {
			active = append(active, l)
		}
	}

	if err := checkActiveConflict(line, active); err != nil {
		return ir.QuestionnaireLine{}, err
	}

	sortOrder := line.SortOrder
	for _, l := range active {
		if l.SortOrder == sortOrder {
			sortOrder = resolveStart(AppendSortOrder, active)
			break
		}
	}

	reactivated := true
	update := ir.LineUpdate{ID: line.ID, Active: &reactivated, SortOrder: &sortOrder}
	if _, err := c.gw.UpdateLines(ctx, []ir.LineUpdate{update}, ir.FailFast); err != nil {
		return ir.QuestionnaireLine{}, fmt.Errorf("reactivate line %s: %w", lineID, err)
	}
	line.Active = true
	line.SortOrder = sortOrder
	c.logger.Info("line reactivated", "project_id", projectID, "line_id", lineID, "sort_order", sortOrder)
	return line, nil
}

// checkActiveConflict reports whether reactivating line would give the
// project two active lines for the same content.
func checkActiveConflict(line ir.QuestionnaireLine, active []ir.QuestionnaireLine) error {
	if line.IsCustom() {
		name := ir.NormalizeVariableName(line.VariableName)
		for _, l := range active {
			if l.IsCustom() && ir.NormalizeVariableName(l.VariableName) == name {
				return newError(ErrCodeValidation, ReasonDuplicateCustomQuestion,
					fmt.Sprintf("Custom question '%s' is already active in the Project.", line.VariableName))
			}
		}
		return nil
	}
	for _, l := range active {
		if l.QuestionBankID == line.QuestionBankID {
			return newError(ErrCodeValidation, ReasonDuplicateStandardQuestion,
				fmt.Sprintf("Question '%s' is already active in the Project.", line.VariableName))
		}
	}
	return nil
}
