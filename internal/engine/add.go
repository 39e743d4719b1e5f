package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// validate is shared; validator caches struct metadata and is safe for
// concurrent use.
var validate = validator.New()

// EntityKind is what AddQuestionsOrModules adds.
type EntityKind = ir.TargetKind

// RowRef identifies one entity to add.
type RowRef struct {
	ID string `json:"id" validate:"required"`
}

// AddRequest asks to add question banks or modules to a questionnaire.
type AddRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	// SortOrder is the first slot to insert at, or AppendSortOrder.
	SortOrder  int        `json:"sort_order" validate:"min=-1"`
	EntityKind EntityKind `json:"entity_kind" validate:"oneof=Question Module"`
	Rows       []RowRef   `json:"rows" validate:"required,min=1,dive"`
}

// CustomQuestionRequest asks to add a hand-written question.
type CustomQuestionRequest struct {
	ProjectID    string `json:"project_id" validate:"required"`
	SortOrder    int    `json:"sort_order" validate:"min=-1"`
	VariableName string `json:"variable_name" validate:"required"`
	Text         string `json:"text"`
}

// AddResult is the outcome of an addition.
type AddResult struct {
	Insertion *Insertion `json:"insertion"`
}

// validateRequest runs struct validation and maps failures to engine
// validation errors.
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate request: %w", err)
	}

	var (
		msgs   []string
		reason ErrorReason
	)
	for _, fe := range verrs {
		r, msg := describeFieldError(fe)
		if reason == "" {
			reason = r
		}
		msgs = append(msgs, msg)
	}
	return &Error{Code: ErrCodeValidation, Reason: reason, Messages: distinct(msgs), Err: err}
}

func describeFieldError(fe validator.FieldError) (ErrorReason, string) {
	switch fe.Field() {
	case "SortOrder":
		return ReasonInvalidSortOrder, "Sort order invalid."
	case "Rows":
		return ReasonEmptyRows, "No rows provided."
	}
	return ReasonInvalidRequest, fmt.Sprintf("Field '%s' failed '%s' validation.", fe.Namespace(), fe.Tag())
}

// AddQuestionsOrModules adds question banks or modules to a project's
// questionnaire at req.SortOrder.
//
// Every id must name an active record, and nothing being added may already
// have a line in the project. Both checks reject the whole request before
// any write. Ids repeated in one request are added once.
//
// Modules expand in place into one line per active question bank, each
// carrying the module reference.
func (c *Composer) AddQuestionsOrModules(ctx context.Context, req AddRequest) (*AddResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := c.loadProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	ids := uniqueIDs(req.Rows)

	var (
		candidates []candidate
		lines      []ir.QuestionnaireLine
		err        error
	)
	switch req.EntityKind {
	case ir.KindQuestion:
		candidates, lines, err = c.questionContent(ctx, ids)
	case ir.KindModule:
		candidates, lines, err = c.moduleContent(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	existing, err := c.gw.ListQuestionnaireLines(ctx, req.ProjectID, ir.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("add %s: load lines: %w", req.EntityKind, err)
	}
	if err := checkDuplicates(existing, dedupeCandidates(candidates)); err != nil {
		c.logger.Debug("addition rejected", "project_id", req.ProjectID, "error", err)
		return nil, err
	}

	ins, insErr := c.insertLines(ctx, req.ProjectID, req.SortOrder, lines)
	if ins == nil {
		return nil, insErr
	}
	return &AddResult{Insertion: ins}, insErr
}

// questionContent loads question banks by id, failing with TargetNotFound
// for any that are missing or inactive.
func (c *Composer) questionContent(ctx context.Context, ids []string) ([]candidate, []ir.QuestionnaireLine, error) {
	banks, err := c.gw.GetQuestionBanks(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("add questions: load question banks: %w", err)
	}
	byID := make(map[string]ir.QuestionBank, len(banks))
	for _, b := range banks {
		byID[b.ID] = b
	}

	var missing []string
	candidates := make([]candidate, 0, len(ids))
	lines := make([]ir.QuestionnaireLine, 0, len(ids))
	for _, id := range ids {
		b, ok := byID[id]
		if !ok || !b.Active {
			missing = append(missing, id)
			continue
		}
		candidates = append(candidates, questionCandidate(b))
		lines = append(lines, ir.QuestionnaireLine{QuestionBankID: b.ID, VariableName: b.VariableName})
	}
	if len(missing) > 0 {
		return nil, nil, targetNotFound(ir.KindQuestion, missing)
	}
	return candidates, lines, nil
}

// moduleContent loads and expands modules by id. Banks shared by several
// modules produce one line, under the first module that reaches them.
func (c *Composer) moduleContent(ctx context.Context, ids []string) ([]candidate, []ir.QuestionnaireLine, error) {
	modules, err := c.gw.GetModules(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("add modules: load modules: %w", err)
	}
	byID := make(map[string]ir.Module, len(modules))
	for _, m := range modules {
		byID[m.ID] = m
	}

	var missing []string
	targets := make([]ir.Target, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok || !m.Active {
			missing = append(missing, id)
			continue
		}
		targets = append(targets, ir.ModuleTarget(id))
	}
	if len(missing) > 0 {
		return nil, nil, targetNotFound(ir.KindModule, missing)
	}

	expansions, _, err := c.expander.ExpandAll(ctx, targets)
	if err != nil {
		return nil, nil, fmt.Errorf("add modules: %w", err)
	}
	// Unexpandable modules have no expansion; a module with no active
	// question bank adds nothing. Both count as missing.
	var bad []string
	for _, t := range targets {
		if exp, ok := expansions[t]; !ok || len(exp.Banks) == 0 {
			bad = append(bad, t.ID)
		}
	}
	if len(bad) > 0 {
		return nil, nil, targetNotFound(ir.KindModule, bad)
	}

	var candidates []candidate
	var lines []ir.QuestionnaireLine
	seenBank := make(map[string]bool)
	for _, t := range targets {
		candidates = append(candidates, moduleCandidate(byID[t.ID]))
		for _, b := range expansions[t].Banks {
			candidates = append(candidates, questionCandidate(b))
			if seenBank[b.ID] {
				continue
			}
			seenBank[b.ID] = true
			lines = append(lines, ir.QuestionnaireLine{
				QuestionBankID: b.ID,
				ModuleID:       t.ID,
				VariableName:   b.VariableName,
			})
		}
	}
	return candidates, lines, nil
}

func uniqueIDs(rows []RowRef) []string {
	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		ids = append(ids, r.ID)
	}
	return ids
}

// AddCustomQuestion adds a hand-written question identified by its
// variable name. Names are compared after normalization (NFC, trimmed,
// case folded) against every custom line of the project.
func (c *Composer) AddCustomQuestion(ctx context.Context, req CustomQuestionRequest) (*AddResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := c.loadProject(ctx, req.ProjectID); err != nil {
		return nil, err
	}

	existing, err := c.gw.ListQuestionnaireLines(ctx, req.ProjectID, ir.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("add custom question: load lines: %w", err)
	}
	if err := checkDuplicates(existing, []candidate{customCandidate(req.VariableName)}); err != nil {
		return nil, err
	}

	line := ir.QuestionnaireLine{VariableName: req.VariableName, Text: req.Text}
	ins, insErr := c.insertLines(ctx, req.ProjectID, req.SortOrder, []ir.QuestionnaireLine{line})
	if ins == nil {
		return nil, insErr
	}
	return &AddResult{Insertion: ins}, insErr
}
