package engine

import (
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
	"github.com/tvdias/poc-study-designer-sub003/internal/testutil"
)

var _ Gateway = (*testutil.FakeGateway)(nil)

func bank(id string) ir.QuestionBank {
	return ir.QuestionBank{ID: id, Name: id, VariableName: id, Active: true}
}

func rule(id string, seq int64, source string, eff ir.Effect, target ir.Target, answers ...string) ir.DependencyRule {
	return ir.DependencyRule{
		ID:                id,
		Seq:               seq,
		SourceQuestionID:  source,
		Effect:            eff,
		Target:            target,
		RequiredAnswerIDs: answers,
	}
}

func selected(question string, answers ...string) []ir.ProjectAnswerSelection {
	out := make([]ir.ProjectAnswerSelection, len(answers))
	for i, a := range answers {
		out[i] = ir.ProjectAnswerSelection{ProjectID: "P1", QuestionID: question, AnswerID: a, Selected: true}
	}
	return out
}

func questionExp(b ir.QuestionBank) Expansion {
	return Expansion{Target: ir.QuestionTarget(b.ID), Banks: []ir.QuestionBank{b}}
}

func moduleExp(id string, banks ...ir.QuestionBank) Expansion {
	return Expansion{Target: ir.ModuleTarget(id), ModuleID: id, Banks: banks}
}

func expansions(exps ...Expansion) map[ir.Target]Expansion {
	m := make(map[ir.Target]Expansion, len(exps))
	for _, e := range exps {
		m[e.Target] = e
	}
	return m
}

func questionIDs(res Resolution) []string {
	ids := []string{}
	for _, q := range res.Questions {
		ids = append(ids, q.QuestionID)
	}
	return ids
}

// musicCatalog is a product with a MultiCoded "genre" question, a template
// holding module DEMO (AGE, GENDER) by default and question BRAND off by
// default, and project P1 on that template.
func musicCatalog() *ir.Catalog {
	return &ir.Catalog{
		QuestionBanks: []ir.QuestionBank{
			bank("AGE"), bank("GENDER"), bank("BRAND"), bank("ROCK_Q"), bank("POP_Q"),
			{ID: "OLD", Name: "OLD", VariableName: "OLD", Active: false},
		},
		Modules: []ir.Module{
			{ID: "DEMO", Name: "Demographics", Active: true, QuestionBankIDs: []string{"AGE", "OLD", "GENDER"}},
			{ID: "MUSIC", Name: "Music", Active: true, QuestionBankIDs: []string{"ROCK_Q", "POP_Q"}},
			{ID: "RETIRED", Name: "Retired", Active: false, QuestionBankIDs: []string{"AGE"}},
		},
		ConfigQuestions: []ir.ConfigurationQuestion{{
			ID: "genre", Name: "Music genre", CodingMode: ir.CodingMulti,
			Answers: []ir.ConfigurationAnswer{
				{ID: "rock", OwnerQuestionID: "genre", Name: "Rock"},
				{ID: "pop", OwnerQuestionID: "genre", Name: "Pop"},
			},
		}},
		Products: []ir.Product{{ID: "PR1", Name: "Music tracker", ConfigQuestionIDs: []string{"genre"}}},
		Templates: []ir.ProductTemplate{{
			ID: "T1", ProductID: "PR1", Name: "Tracker",
			Lines: []ir.ProductTemplateLine{
				{TemplateID: "T1", Position: 0, Target: ir.ModuleTarget("DEMO"), IncludeByDefault: true},
				{TemplateID: "T1", Position: 1, Target: ir.QuestionTarget("BRAND"), IncludeByDefault: false},
			},
		}},
		Rules: []ir.DependencyRule{
			rule("R1", 1, "genre", ir.EffectInclude, ir.QuestionTarget("BRAND"), "rock"),
			rule("R2", 2, "genre", ir.EffectInclude, ir.QuestionTarget("POP_Q"), "pop"),
		},
		Projects: []ir.ProjectFixture{
			{
				Project:    ir.Project{ID: "P1", Name: "Study", ProductID: "PR1", TemplateID: "T1"},
				Selections: selected("genre", "rock"),
			},
			{Project: ir.Project{ID: "P2", Name: "No template", ProductID: "PR1"}},
		},
	}
}

// newTestComposer returns a composer over a fake seeded with cat and
// deterministic line ids.
func newTestComposer(cat *ir.Catalog) (*Composer, *testutil.FakeGateway) {
	gw := testutil.NewFakeGateway(cat)
	return New(gw, WithIDGenerator(testutil.NewSequenceGenerator("L"))), gw
}

func existingLine(id, bankID string, sortOrder int) ir.QuestionnaireLine {
	return ir.QuestionnaireLine{
		ID:             id,
		ProjectID:      "P1",
		QuestionBankID: bankID,
		SortOrder:      sortOrder,
		VariableName:   bankID,
		Active:         true,
	}
}

func sortOrders(lines []ir.QuestionnaireLine) map[string]int {
	m := make(map[string]int, len(lines))
	for _, l := range lines {
		m[l.ID] = l.SortOrder
	}
	return m
}
