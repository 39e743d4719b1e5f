package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/tvdias/poc-study-designer-sub003/internal/compiler"
	"github.com/tvdias/poc-study-designer-sub003/internal/engine"
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
	"github.com/tvdias/poc-study-designer-sub003/internal/store"
	"github.com/tvdias/poc-study-designer-sub003/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenario steps through a Composer backed by a real store.
type Harness struct {
	store    *store.Store
	composer *engine.Composer
	catalog  *ir.Catalog
	project  string
	logger   *slog.Logger
}

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger routes engine and harness logs to l. Logs are discarded by
// default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh SQLite database in a temporary directory.
// Execution flow:
//  1. Load, validate and store the catalog
//  2. Apply selection overrides and seed lines
//  3. Execute steps, checking each step's expectations
//  4. Evaluate assertions on the final questionnaire
//
// A returned error means the scenario could not be set up; failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := os.MkdirTemp("", "studyharness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.OpenSQLite(filepath.Join(dir, "study.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	cat, err := loadCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(cat); len(errs) > 0 {
		return nil, fmt.Errorf("catalog %s: %w", scenario.Catalog, errs[0])
	}
	if err := st.SaveCatalog(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to save catalog: %w", err)
	}

	h := &Harness{
		store: st,
		composer: engine.New(st,
			engine.WithLogger(o.logger),
			engine.WithIDGenerator(testutil.NewSequenceGenerator("line")),
		),
		catalog: cat,
		project: scenario.Project,
		logger:  o.logger,
	}

	if err := h.applySelections(ctx, scenario.Selections); err != nil {
		return nil, fmt.Errorf("failed to apply selections: %w", err)
	}
	if err := h.seedLines(ctx, scenario.Lines); err != nil {
		return nil, fmt.Errorf("failed to seed lines: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, stepErr := h.executeStep(ctx, step)
		ev.Step = i
		describeOutcome(&ev, stepErr)

		lines, err := h.store.ListQuestionnaireLines(ctx, h.project, ir.ScopeActive)
		if err != nil {
			return nil, fmt.Errorf("step %d: failed to list lines: %w", i, err)
		}
		ev.Lines = renderLines(lines)
		result.AddTrace(ev)
		checkExpect(i, step, ev, stepErr, result)

		h.logger.Info("scenario step completed",
			"scenario", scenario.Name,
			"step", i,
			"op", step.Op,
			"outcome", ev.Outcome,
		)
	}

	active, err := h.store.ListQuestionnaireLines(ctx, h.project, ir.ScopeActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list final lines: %w", err)
	}
	all, err := h.store.ListQuestionnaireLines(ctx, h.project, ir.ScopeAll)
	if err != nil {
		return nil, fmt.Errorf("failed to list final lines: %w", err)
	}
	result.Lines = renderLines(active)
	for _, msg := range EvaluateAssertions(active, all, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// loadCatalog compiles a CUE file or directory.
func loadCatalog(path string) (*ir.Catalog, error) {
	res, err := compiler.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return res.Catalog, nil
}

// applySelections replaces the selected answers of each listed question.
// Answers of the question that are not listed are deselected.
func (h *Harness) applySelections(ctx context.Context, overrides map[string][]string) error {
	if len(overrides) == 0 {
		return nil
	}

	questionIDs := make([]string, 0, len(overrides))
	for id := range overrides {
		questionIDs = append(questionIDs, id)
	}
	sort.Strings(questionIDs)

	var selections []ir.ProjectAnswerSelection
	for _, qid := range questionIDs {
		idx := slices.IndexFunc(h.catalog.ConfigQuestions, func(q ir.ConfigurationQuestion) bool { return q.ID == qid })
		if idx < 0 {
			return fmt.Errorf("unknown configuration question %q", qid)
		}
		q := h.catalog.ConfigQuestions[idx]

		want := overrides[qid]
		for _, aid := range want {
			if !slices.ContainsFunc(q.Answers, func(a ir.ConfigurationAnswer) bool { return a.ID == aid }) {
				return fmt.Errorf("answer %q is not an answer of %q", aid, qid)
			}
		}
		for _, a := range q.Answers {
			selections = append(selections, ir.ProjectAnswerSelection{
				ProjectID:  h.project,
				QuestionID: qid,
				AnswerID:   a.ID,
				Selected:   slices.Contains(want, a.ID),
			})
		}
	}
	return h.store.SaveSelections(ctx, selections)
}

// seedLines writes pre-existing lines in one all-or-nothing batch.
func (h *Harness) seedLines(ctx context.Context, seeds []SeedLine) error {
	if len(seeds) == 0 {
		return nil
	}

	lines := make([]ir.QuestionnaireLine, len(seeds))
	for i, s := range seeds {
		line := ir.QuestionnaireLine{
			ID:           s.ID,
			ProjectID:    h.project,
			SortOrder:    s.SortOrder,
			VariableName: s.VariableName,
			Active:       s.Active == nil || *s.Active,
		}
		if s.Question != "" {
			idx := slices.IndexFunc(h.catalog.QuestionBanks, func(b ir.QuestionBank) bool { return b.ID == s.Question })
			if idx < 0 {
				return fmt.Errorf("lines[%d]: unknown question bank %q", i, s.Question)
			}
			line.QuestionBankID = s.Question
			line.VariableName = h.catalog.QuestionBanks[idx].VariableName
		}
		lines[i] = line
	}

	_, err := h.store.CreateLines(ctx, lines, ir.FailFast)
	return err
}

// executeStep runs one step and fills the op-specific parts of its event.
func (h *Harness) executeStep(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Op: step.Op}
	sortOrder := engine.AppendSortOrder
	if step.SortOrder != nil {
		sortOrder = *step.SortOrder
	}

	switch step.Op {
	case OpResolve:
		res, err := h.composer.ResolveTemplate(ctx, h.project)
		if res != nil {
			for _, q := range res.Questions {
				ev.Questions = append(ev.Questions, q.QuestionID)
			}
			ev.FiredRules = res.FiredRules
		}
		return ev, err

	case OpApply:
		res, err := h.composer.ApplyTemplate(ctx, h.project)
		if res != nil {
			for _, q := range res.Applied {
				ev.Questions = append(ev.Questions, q.QuestionID)
			}
			ev.FiredRules = res.Resolution.FiredRules
		}
		return ev, err

	case OpAdd:
		rows := make([]engine.RowRef, len(step.IDs))
		for i, id := range step.IDs {
			rows[i] = engine.RowRef{ID: id}
		}
		_, err := h.composer.AddQuestionsOrModules(ctx, engine.AddRequest{
			ProjectID:  h.project,
			SortOrder:  sortOrder,
			EntityKind: engine.EntityKind(step.Kind),
			Rows:       rows,
		})
		return ev, err

	case OpCustom:
		_, err := h.composer.AddCustomQuestion(ctx, engine.CustomQuestionRequest{
			ProjectID:    h.project,
			SortOrder:    sortOrder,
			VariableName: step.VariableName,
			Text:         step.Text,
		})
		return ev, err

	case OpDeactivate:
		_, err := h.composer.DeactivateLine(ctx, h.project, step.Line)
		return ev, err

	case OpReactivate:
		_, err := h.composer.ReactivateLine(ctx, h.project, step.Line)
		return ev, err
	}

	return ev, fmt.Errorf("unknown op %q", step.Op)
}

// describeOutcome records how a step ended.
func describeOutcome(ev *TraceEvent, err error) {
	switch {
	case err == nil:
		ev.Outcome = OutcomeOK
		return
	case engine.IsPartial(err):
		ev.Outcome = OutcomePartial
	default:
		ev.Outcome = OutcomeError
	}
	var engErr *engine.Error
	if errors.As(err, &engErr) {
		ev.Code = string(engErr.Code)
	}
	ev.Error = err.Error()
}

// checkExpect compares a step's event with its expect clause.
func checkExpect(index int, step Step, ev TraceEvent, err error, result *Result) {
	exp := step.Expect
	wantErr := exp != nil && (exp.Code != "" || exp.Error != "")

	switch {
	case err != nil && !wantErr:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected error: %v", index, step.Op, err))
	case err == nil && wantErr:
		result.AddError(fmt.Sprintf("step %d (%s): expected an error, got none", index, step.Op))
	case err != nil:
		if exp.Code != "" && ev.Code != exp.Code {
			result.AddError(fmt.Sprintf("step %d (%s): expected code %s, got %q", index, step.Op, exp.Code, ev.Code))
		}
		if exp.Error != "" && !strings.Contains(ev.Error, exp.Error) {
			result.AddError(fmt.Sprintf("step %d (%s): expected error containing %q, got %q", index, step.Op, exp.Error, ev.Error))
		}
	}

	if exp != nil && exp.Questions != nil && !slices.Equal(exp.Questions, ev.Questions) {
		result.AddError(fmt.Sprintf("step %d (%s): expected questions %v, got %v", index, step.Op, exp.Questions, ev.Questions))
	}
}

// renderLines formats lines as "variable@sort_order" in render order.
func renderLines(lines []ir.QuestionnaireLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%s@%d", l.VariableName, l.SortOrder)
	}
	return out
}
