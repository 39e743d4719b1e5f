package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

func compileString(t *testing.T, src string) cue.Value {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return v
}

func TestCompileCatalogBasic(t *testing.T) {
	v := compileString(t, `
		question_bank: {
			AGE: { name: "Age", variable_name: "AGE" }
			OLD: { name: "Old", variable_name: "OLD", active: false }
		}
		module: DEMO: {
			name: "Demographics"
			questions: ["AGE", "OLD"]
		}
		config_question: genre: {
			name: "Music genre"
			coding_mode: "SingleCoded"
			answers: { rock: "Rock", pop: "Pop" }
		}
		product: PR1: { name: "Tracker", config_questions: ["genre"] }
		template: T1: {
			product: "PR1"
			name: "Base"
			lines: [
				{ module: "DEMO", default: true },
				{ question: "AGE" },
			]
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.Equal(t, []ir.QuestionBank{
		{ID: "AGE", Name: "Age", VariableName: "AGE", Active: true},
		{ID: "OLD", Name: "Old", VariableName: "OLD", Active: false},
	}, cat.QuestionBanks)

	require.Len(t, cat.Modules, 1)
	assert.Equal(t, []string{"AGE", "OLD"}, cat.Modules[0].QuestionBankIDs)
	assert.True(t, cat.Modules[0].Active)

	require.Len(t, cat.ConfigQuestions, 1)
	q := cat.ConfigQuestions[0]
	assert.Equal(t, ir.CodingSingle, q.CodingMode)
	assert.Equal(t, []ir.ConfigurationAnswer{
		{ID: "rock", OwnerQuestionID: "genre", Name: "Rock"},
		{ID: "pop", OwnerQuestionID: "genre", Name: "Pop"},
	}, q.Answers)

	require.Len(t, cat.Templates, 1)
	assert.Equal(t, []ir.ProductTemplateLine{
		{TemplateID: "T1", Position: 0, Target: ir.ModuleTarget("DEMO"), IncludeByDefault: true},
		{TemplateID: "T1", Position: 1, Target: ir.QuestionTarget("AGE"), IncludeByDefault: false},
	}, cat.Templates[0].Lines)

	assert.Empty(t, cat.Rules)
	assert.Empty(t, cat.Projects)
}

func TestCompileCatalogRuleSeqFollowsDeclarationOrder(t *testing.T) {
	v := compileString(t, `
		rule: {
			R9: { source: "genre", answers: ["rock"], effect: "Include", module: "DEMO" }
			R1: { source: "genre", answers: ["pop"], effect: "Exclude", question: "AGE" }
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	require.Len(t, cat.Rules, 2)
	assert.Equal(t, ir.DependencyRule{
		ID: "R9", Seq: 1, SourceQuestionID: "genre", Effect: ir.EffectInclude,
		Target: ir.ModuleTarget("DEMO"), RequiredAnswerIDs: []string{"rock"},
	}, cat.Rules[0])
	assert.Equal(t, int64(2), cat.Rules[1].Seq)
	assert.Equal(t, ir.QuestionTarget("AGE"), cat.Rules[1].Target)
	assert.Equal(t, ir.EffectExclude, cat.Rules[1].Effect)
}

func TestCompileCatalogProjects(t *testing.T) {
	v := compileString(t, `
		project: {
			P1: {
				name: "Study"
				product: "PR1"
				template: "T1"
				selections: genre: ["rock", "pop"]
			}
			P2: { name: "Bare", product: "PR1" }
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	require.Len(t, cat.Projects, 2)
	assert.Equal(t, ir.Project{ID: "P1", Name: "Study", ProductID: "PR1", TemplateID: "T1"}, cat.Projects[0].Project)
	assert.Equal(t, []ir.ProjectAnswerSelection{
		{ProjectID: "P1", QuestionID: "genre", AnswerID: "rock", Selected: true},
		{ProjectID: "P1", QuestionID: "genre", AnswerID: "pop", Selected: true},
	}, cat.Projects[0].Selections)

	assert.Empty(t, cat.Projects[1].Project.TemplateID)
	assert.Empty(t, cat.Projects[1].Selections)
}

func TestCompileCatalogQuotedLabels(t *testing.T) {
	v := compileString(t, `
		question_bank: "Q-1": { name: "Dashed", variable_name: "Q_1" }
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)
	require.Len(t, cat.QuestionBanks, 1)
	assert.Equal(t, "Q-1", cat.QuestionBanks[0].ID)
}

func TestCompileCatalogTargetRequired(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{
			name:  "template line without target",
			src:   `template: T1: { product: "PR1", name: "Base", lines: [{ default: true }] }`,
			field: "template.T1.lines[0]",
		},
		{
			name:  "rule with both targets",
			src:   `rule: R1: { source: "genre", answers: ["rock"], effect: "Include", module: "M", question: "Q" }`,
			field: "rule.R1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCatalog(compileString(t, tt.src))
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
			assert.Contains(t, compileErr.Message, "exactly one of module or question")
		})
	}
}

func TestCompileCatalogSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing variable name", `question_bank: AGE: { name: "Age" }`},
		{"wrong type", `module: M: { name: "M", questions: "AGE" }`},
		{"unknown coding mode", `config_question: q: { name: "Q", coding_mode: "Sometimes" }`},
		{"unknown effect", `rule: R1: { source: "q", answers: ["a"], effect: "Maybe", question: "Q" }`},
		{"unknown template line field", `template: T1: { product: "P", name: "T", lines: [{ module: "M", weight: 2 }] }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileCatalog(compileString(t, tt.src))
			assert.Error(t, err)
		})
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "rule.R1", Message: "bad"}
	assert.Equal(t, "rule.R1: bad", err.Error())
	assert.Nil(t, formatCUEError(nil))
}
