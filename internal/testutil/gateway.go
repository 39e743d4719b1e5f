package testutil

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// ErrInjected is returned for items failed through FailCreate/FailUpdate.
var ErrInjected = errors.New("injected failure")

// ErrUniqueActive mirrors the store's partial unique indexes.
var ErrUniqueActive = errors.New("unique constraint: active line already exists")

// FakeGateway is an in-memory record store implementing engine.Gateway.
//
// It enforces the same rules as the SQL store: one active line per
// question bank and per normalized custom variable name, FailFast batches
// roll back, reads are ordered deterministically.
//
// Failure injection: FailCreate and FailUpdate return an error to fail a
// single item; ListErr fails every read.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeGateway struct {
	mu sync.Mutex

	banks       map[string]ir.QuestionBank
	modules     map[string]ir.Module
	questions   map[string]ir.ConfigurationQuestion
	products    map[string]ir.Product
	templates   map[string]ir.ProductTemplate
	rules       []ir.DependencyRule
	projects    map[string]ir.Project
	selections  []ir.ProjectAnswerSelection
	lines       []ir.QuestionnaireLine
	createCalls []ir.BatchMode
	updateCalls []ir.BatchMode

	FailCreate func(ir.QuestionnaireLine) error
	FailUpdate func(ir.LineUpdate) error
	ListErr    error
}

// NewFakeGateway creates a gateway seeded with a catalog. cat may be nil.
func NewFakeGateway(cat *ir.Catalog) *FakeGateway {
	g := &FakeGateway{
		banks:     make(map[string]ir.QuestionBank),
		modules:   make(map[string]ir.Module),
		questions: make(map[string]ir.ConfigurationQuestion),
		products:  make(map[string]ir.Product),
		templates: make(map[string]ir.ProductTemplate),
		projects:  make(map[string]ir.Project),
	}
	if cat == nil {
		return g
	}
	for _, b := range cat.QuestionBanks {
		g.banks[b.ID] = b
	}
	for _, m := range cat.Modules {
		g.modules[m.ID] = m
	}
	for _, q := range cat.ConfigQuestions {
		g.questions[q.ID] = q
	}
	for _, p := range cat.Products {
		g.products[p.ID] = p
	}
	for _, t := range cat.Templates {
		g.templates[t.ID] = t
	}
	g.rules = slices.Clone(cat.Rules)
	for _, f := range cat.Projects {
		g.projects[f.Project.ID] = f.Project
		for _, s := range f.Selections {
			s.ProjectID = f.Project.ID
			g.selections = append(g.selections, s)
		}
	}
	return g
}

// SetSelections replaces every selection of a project.
func (g *FakeGateway) SetSelections(projectID string, selections []ir.ProjectAnswerSelection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	kept := g.selections[:0:0]
	for _, s := range g.selections {
		if s.ProjectID != projectID {
			kept = append(kept, s)
		}
	}
	for _, s := range selections {
		s.ProjectID = projectID
		kept = append(kept, s)
	}
	g.selections = kept
}

// SeedLines stores lines directly, bypassing constraints.
func (g *FakeGateway) SeedLines(lines ...ir.QuestionnaireLine) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lines = append(g.lines, lines...)
}

// Lines returns a copy of every stored line, ordered like the store.
func (g *FakeGateway) Lines() []ir.QuestionnaireLine {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := slices.Clone(g.lines)
	sortLines(out)
	return out
}

// CreateModes returns the batch mode of every CreateLines call.
func (g *FakeGateway) CreateModes() []ir.BatchMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.createCalls)
}

// UpdateModes returns the batch mode of every UpdateLines call.
func (g *FakeGateway) UpdateModes() []ir.BatchMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.updateCalls)
}

func sortLines(lines []ir.QuestionnaireLine) {
	slices.SortStableFunc(lines, func(a, b ir.QuestionnaireLine) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func (g *FakeGateway) GetProject(_ context.Context, projectID string) (ir.Project, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return ir.Project{}, g.ListErr
	}
	p, ok := g.projects[projectID]
	if !ok {
		return ir.Project{}, fmt.Errorf("get project %s: %w", projectID, ir.ErrNoRecord)
	}
	return p, nil
}

func (g *FakeGateway) ListTemplateLines(_ context.Context, templateID string) ([]ir.ProductTemplateLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	lines := slices.Clone(g.templates[templateID].Lines)
	if lines == nil {
		lines = []ir.ProductTemplateLine{}
	}
	slices.SortStableFunc(lines, func(a, b ir.ProductTemplateLine) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return lines, nil
}

func (g *FakeGateway) ListConfigurationQuestions(_ context.Context, productID string) ([]ir.ConfigurationQuestion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.ConfigurationQuestion{}
	for _, id := range g.products[productID].ConfigQuestionIDs {
		if q, ok := g.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (g *FakeGateway) ListAnswerSelections(_ context.Context, projectID string) ([]ir.ProjectAnswerSelection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.ProjectAnswerSelection{}
	for _, s := range g.selections {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (g *FakeGateway) ListDependencyRules(_ context.Context, questionIDs []string) ([]ir.DependencyRule, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.DependencyRule{}
	for _, r := range g.rules {
		if slices.Contains(questionIDs, r.SourceQuestionID) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b ir.DependencyRule) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (g *FakeGateway) GetModules(_ context.Context, ids []string) ([]ir.Module, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.Module{}
	for _, id := range ids {
		if m, ok := g.modules[id]; ok && !slices.ContainsFunc(out, func(x ir.Module) bool { return x.ID == id }) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b ir.Module) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (g *FakeGateway) GetQuestionBanks(_ context.Context, ids []string) ([]ir.QuestionBank, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.QuestionBank{}
	for _, id := range ids {
		if b, ok := g.banks[id]; ok && !slices.ContainsFunc(out, func(x ir.QuestionBank) bool { return x.ID == id }) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b ir.QuestionBank) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (g *FakeGateway) ListQuestionnaireLines(_ context.Context, projectID string, scope ir.LineScope) ([]ir.QuestionnaireLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	out := []ir.QuestionnaireLine{}
	for _, l := range g.lines {
		if l.ProjectID != projectID {
			continue
		}
		if scope == ir.ScopeActive && !l.Active {
			continue
		}
		out = append(out, l)
	}
	sortLines(out)
	return out, nil
}

// conflicts reports whether line would break an active-uniqueness rule
// against the stored lines (ignoring the line's own id).
func (g *FakeGateway) conflicts(line ir.QuestionnaireLine) bool {
	if !line.Active {
		return false
	}
	name := ir.NormalizeVariableName(line.VariableName)
	for _, l := range g.lines {
		if l.ID == line.ID || !l.Active || l.ProjectID != line.ProjectID {
			continue
		}
		if line.IsCustom() && l.IsCustom() && ir.NormalizeVariableName(l.VariableName) == name {
			return true
		}
		if !line.IsCustom() && l.QuestionBankID == line.QuestionBankID {
			return true
		}
	}
	return false
}

func (g *FakeGateway) createOne(line ir.QuestionnaireLine) error {
	if g.FailCreate != nil {
		if err := g.FailCreate(line); err != nil {
			return err
		}
	}
	if _, ok := g.projects[line.ProjectID]; !ok {
		return fmt.Errorf("insert line %s: unknown project %s", line.ID, line.ProjectID)
	}
	for _, l := range g.lines {
		if l.ID == line.ID {
			return fmt.Errorf("insert line %s: duplicate id", line.ID)
		}
	}
	if g.conflicts(line) {
		return fmt.Errorf("insert line %s: %w", line.ID, ErrUniqueActive)
	}
	g.lines = append(g.lines, line)
	return nil
}

func (g *FakeGateway) CreateLines(_ context.Context, lines []ir.QuestionnaireLine, mode ir.BatchMode) ([]ir.ItemOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls = append(g.createCalls, mode)

	snapshot := slices.Clone(g.lines)
	outcomes := make([]ir.ItemOutcome, 0, len(lines))
	for i, line := range lines {
		err := g.createOne(line)
		outcomes = append(outcomes, ir.ItemOutcome{Index: i, ID: line.ID, Err: err})
		if err != nil && mode == ir.FailFast {
			g.lines = snapshot
			return outcomes, fmt.Errorf("create lines: item %d: %w", i, err)
		}
	}
	return outcomes, nil
}

func (g *FakeGateway) updateOne(u ir.LineUpdate) error {
	if g.FailUpdate != nil {
		if err := g.FailUpdate(u); err != nil {
			return err
		}
	}
	for i, l := range g.lines {
		if l.ID != u.ID {
			continue
		}
		if u.SortOrder != nil {
			l.SortOrder = *u.SortOrder
		}
		if u.Active != nil {
			l.Active = *u.Active
		}
		if g.conflicts(l) {
			return fmt.Errorf("update line %s: %w", u.ID, ErrUniqueActive)
		}
		g.lines[i] = l
		return nil
	}
	return fmt.Errorf("update line %s: %w", u.ID, ir.ErrNoRecord)
}

func (g *FakeGateway) UpdateLines(_ context.Context, updates []ir.LineUpdate, mode ir.BatchMode) ([]ir.ItemOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls = append(g.updateCalls, mode)

	snapshot := slices.Clone(g.lines)
	outcomes := make([]ir.ItemOutcome, 0, len(updates))
	for i, u := range updates {
		err := g.updateOne(u)
		outcomes = append(outcomes, ir.ItemOutcome{Index: i, ID: u.ID, Err: err})
		if err != nil && mode == ir.FailFast {
			g.lines = snapshot
			return outcomes, fmt.Errorf("update lines: item %d: %w", i, err)
		}
	}
	return outcomes, nil
}
