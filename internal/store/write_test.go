package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

func TestCreateLines_ContinueOnError(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	outcomes, err := s.CreateLines(ctx, []ir.QuestionnaireLine{
		line("L1", "Q1", 1),
		line("L2", "Q1", 2), // second active line for Q1 violates the partial index
		line("L3", "Q2", 3),
	}, ir.ContinueOnError)
	if err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}

	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	if !outcomes[0].OK() || outcomes[1].OK() || !outcomes[2].OK() {
		t.Errorf("outcomes = %+v, want ok/fail/ok", outcomes)
	}

	lines, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeAll)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].ID != "L1" || lines[1].ID != "L3" {
		t.Errorf("lines = %v, want L1, L3", lines)
	}
}

func TestCreateLines_FailFastRollsBack(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	outcomes, err := s.CreateLines(ctx, []ir.QuestionnaireLine{
		line("L1", "Q1", 1),
		line("L2", "Q1", 2),
		line("L3", "Q2", 3),
	}, ir.FailFast)
	if err == nil {
		t.Fatal("CreateLines(FailFast) should fail")
	}
	if len(outcomes) != 2 || outcomes[1].OK() {
		t.Errorf("outcomes = %+v, want two with the second failing", outcomes)
	}

	lines, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeAll)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	if len(lines) != 0 {
		t.Errorf("got %d lines after rollback, want 0", len(lines))
	}
}

func TestCreateLines_InactiveDuplicateAllowed(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	old := line("L1", "Q1", 1)
	old.Active = false
	outcomes, err := s.CreateLines(ctx, []ir.QuestionnaireLine{old, line("L2", "Q1", 1)}, ir.ContinueOnError)
	if err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}
	for _, o := range outcomes {
		if !o.OK() {
			t.Errorf("outcome %d failed: %v", o.Index, o.Err)
		}
	}
}

func TestCreateLines_CustomNormalizedUniqueness(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	a := ir.QuestionnaireLine{ID: "C1", ProjectID: "P1", SortOrder: 1, VariableName: "Brand", Active: true}
	b := ir.QuestionnaireLine{ID: "C2", ProjectID: "P1", SortOrder: 2, VariableName: "  BRAND ", Active: true}

	outcomes, err := s.CreateLines(ctx, []ir.QuestionnaireLine{a, b}, ir.ContinueOnError)
	if err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}
	if !outcomes[0].OK() {
		t.Errorf("first custom line failed: %v", outcomes[0].Err)
	}
	if outcomes[1].OK() {
		t.Error("second custom line with the same normalized name should fail")
	}
}

func TestListQuestionnaireLines_Scope(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	inactive := line("L2", "Q2", 1)
	inactive.Active = false
	custom := ir.QuestionnaireLine{ID: "L3", ProjectID: "P1", ModuleID: "M1", SortOrder: 2, VariableName: "OPEN", Text: "Anything else?", Active: true}
	if _, err := s.CreateLines(ctx, []ir.QuestionnaireLine{line("L1", "Q1", 1), inactive, custom}, ir.FailFast); err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}

	active, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeActive)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active lines, want 2", len(active))
	}
	if !active[1].IsCustom() || active[1].Text != "Anything else?" || active[1].ModuleID != "M1" {
		t.Errorf("custom line = %+v", active[1])
	}

	all, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeAll)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	// Same sort order: id breaks the tie
	if len(all) != 3 || all[0].ID != "L1" || all[1].ID != "L2" {
		t.Errorf("all lines = %+v", all)
	}
}

func TestUpdateLines(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	if _, err := s.CreateLines(ctx, []ir.QuestionnaireLine{line("L1", "Q1", 1), line("L2", "Q2", 2)}, ir.FailFast); err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}

	outcomes, err := s.UpdateLines(ctx, []ir.LineUpdate{
		{ID: "L1", SortOrder: intPtr(5)},
		{ID: "L2", Active: boolPtr(false)},
		{ID: "L404", SortOrder: intPtr(1)},
	}, ir.ContinueOnError)
	if err != nil {
		t.Fatalf("UpdateLines() failed: %v", err)
	}
	if !outcomes[0].OK() || !outcomes[1].OK() {
		t.Errorf("outcomes = %+v", outcomes)
	}
	if !errors.Is(outcomes[2].Err, ir.ErrNoRecord) {
		t.Errorf("missing line err = %v, want ErrNoRecord", outcomes[2].Err)
	}

	all, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeAll)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	if all[0].ID != "L2" || all[0].Active || all[0].SortOrder != 2 {
		t.Errorf("L2 = %+v, want inactive at 2", all[0])
	}
	if all[1].ID != "L1" || all[1].SortOrder != 5 || !all[1].Active {
		t.Errorf("L1 = %+v, want active at 5", all[1])
	}
}

func TestUpdateLines_FailFastRollsBack(t *testing.T) {
	s := seedStore(t)
	ctx := context.Background()

	if _, err := s.CreateLines(ctx, []ir.QuestionnaireLine{line("L1", "Q1", 1)}, ir.FailFast); err != nil {
		t.Fatalf("CreateLines() failed: %v", err)
	}

	_, err := s.UpdateLines(ctx, []ir.LineUpdate{
		{ID: "L1", SortOrder: intPtr(9)},
		{ID: "L404", SortOrder: intPtr(1)},
	}, ir.FailFast)
	if !errors.Is(err, ir.ErrNoRecord) {
		t.Fatalf("UpdateLines(FailFast) err = %v, want ErrNoRecord", err)
	}

	lines, err := s.ListQuestionnaireLines(ctx, "P1", ir.ScopeActive)
	if err != nil {
		t.Fatalf("ListQuestionnaireLines() failed: %v", err)
	}
	if lines[0].SortOrder != 1 {
		t.Errorf("sort order = %d after rollback, want 1", lines[0].SortOrder)
	}
}
