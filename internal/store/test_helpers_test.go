package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testCatalog is a small catalog with one product, one template, a genre
// question and a project P1 that selected "rock".
func testCatalog() *ir.Catalog {
	return &ir.Catalog{
		QuestionBanks: []ir.QuestionBank{
			{ID: "Q1", Name: "Age", VariableName: "AGE", Active: true},
			{ID: "Q2", Name: "Gender", VariableName: "GENDER", Active: true},
			{ID: "Q3", Name: "Region", VariableName: "REGION", Active: false},
		},
		Modules: []ir.Module{
			{ID: "M1", Name: "Demographics", Active: true, QuestionBankIDs: []string{"Q2", "Q1", "Q3"}},
		},
		ConfigQuestions: []ir.ConfigurationQuestion{
			{ID: "genre", Name: "Genre", CodingMode: ir.CodingMulti, Answers: []ir.ConfigurationAnswer{
				{ID: "rock", OwnerQuestionID: "genre", Name: "Rock"},
				{ID: "jazz", OwnerQuestionID: "genre", Name: "Jazz"},
			}},
		},
		Products: []ir.Product{{ID: "PR1", Name: "Music", ConfigQuestionIDs: []string{"genre"}}},
		Templates: []ir.ProductTemplate{{
			ID: "T1", ProductID: "PR1", Name: "Base",
			Lines: []ir.ProductTemplateLine{
				{TemplateID: "T1", Position: 0, Target: ir.ModuleTarget("M1"), IncludeByDefault: true},
				{TemplateID: "T1", Position: 1, Target: ir.QuestionTarget("Q1"), IncludeByDefault: false},
			},
		}},
		Rules: []ir.DependencyRule{
			{ID: "R2", Seq: 2, SourceQuestionID: "genre", Effect: ir.EffectExclude, Target: ir.QuestionTarget("Q2"), RequiredAnswerIDs: []string{"jazz"}},
			{ID: "R1", Seq: 1, SourceQuestionID: "genre", Effect: ir.EffectInclude, Target: ir.QuestionTarget("Q1"), RequiredAnswerIDs: []string{"rock", "jazz"}},
		},
		Projects: []ir.ProjectFixture{{
			Project: ir.Project{ID: "P1", Name: "Study", ProductID: "PR1", TemplateID: "T1"},
			Selections: []ir.ProjectAnswerSelection{
				{QuestionID: "genre", AnswerID: "rock", Selected: true},
			},
		}},
	}
}

// seedStore creates a test store loaded with testCatalog.
func seedStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	if err := s.SaveCatalog(context.Background(), testCatalog()); err != nil {
		t.Fatalf("SaveCatalog() failed: %v", err)
	}
	return s
}

func line(id, bankID string, sortOrder int) ir.QuestionnaireLine {
	return ir.QuestionnaireLine{
		ID:             id,
		ProjectID:      "P1",
		QuestionBankID: bankID,
		SortOrder:      sortOrder,
		VariableName:   "VAR_" + id,
		Active:         true,
	}
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
