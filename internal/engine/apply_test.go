package engine

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
	"github.com/tvdias/poc-study-designer-sub003/internal/testutil"
)

func TestResolveTemplate(t *testing.T) {
	c, _ := newTestComposer(musicCatalog())

	res, err := c.ResolveTemplate(context.Background(), "P1")
	require.NoError(t, err)

	want := []ResolvedQuestion{
		{QuestionID: "AGE", QuestionName: "AGE", VariableName: "AGE", DisplayOrder: 1, ModuleID: "DEMO"},
		{QuestionID: "GENDER", QuestionName: "GENDER", VariableName: "GENDER", DisplayOrder: 2, ModuleID: "DEMO"},
		{QuestionID: "BRAND", QuestionName: "BRAND", VariableName: "BRAND", DisplayOrder: 3},
	}
	if diff := cmp.Diff(want, res.Questions); diff != "" {
		t.Errorf("ResolveTemplate() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"R1"}, res.FiredRules)
	assert.Equal(t, "P1", res.ProjectID)
	assert.Equal(t, "T1", res.TemplateID)
}

func TestResolveTemplate_SelectionsChangeOutcome(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())
	gw.SetSelections("P1", selected("genre", "pop"))

	res, err := c.ResolveTemplate(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, []string{"AGE", "GENDER", "POP_Q"}, questionIDs(*res))
}

func TestResolveTemplate_DoesNotWrite(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())

	_, err := c.ResolveTemplate(context.Background(), "P1")
	require.NoError(t, err)

	assert.Empty(t, gw.Lines())
	assert.Empty(t, gw.CreateModes())
}

func TestResolveTemplate_Errors(t *testing.T) {
	c, _ := newTestComposer(musicCatalog())

	_, err := c.ResolveTemplate(context.Background(), "P404")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, ReasonProjectNotFound, ReasonOf(err))
	assert.ErrorIs(t, err, ir.ErrNoRecord)

	_, err = c.ResolveTemplate(context.Background(), "P2")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, ReasonTemplateNotAssigned, ReasonOf(err))
}

func TestResolveTemplate_LogsSkippedTargets(t *testing.T) {
	cat := musicCatalog()
	cat.Templates[0].Lines = append(cat.Templates[0].Lines,
		ir.ProductTemplateLine{TemplateID: "T1", Position: 2, Target: ir.ModuleTarget("RETIRED"), IncludeByDefault: true})

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	c := New(testutil.NewFakeGateway(cat), WithLogger(logger))

	res, err := c.ResolveTemplate(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, []ir.Target{ir.ModuleTarget("RETIRED")}, res.Skipped)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"target":"Module:RETIRED"`)
}

func TestApplyTemplate(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())

	result, err := c.ApplyTemplate(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, []AppliedQuestion{
		{QuestionID: "AGE", QuestionName: "AGE"},
		{QuestionID: "GENDER", QuestionName: "GENDER"},
		{QuestionID: "BRAND", QuestionName: "BRAND"},
	}, result.Applied)

	lines := gw.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, ir.QuestionnaireLine{
		ID: "L-001", ProjectID: "P1", QuestionBankID: "AGE", ModuleID: "DEMO",
		SortOrder: 1, VariableName: "AGE", Active: true,
	}, lines[0])
	assert.Equal(t, "BRAND", lines[2].QuestionBankID)
	assert.Empty(t, lines[2].ModuleID)
	assert.Equal(t, 3, lines[2].SortOrder)
}

func TestApplyTemplate_AppendsAfterExistingLines(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())
	gw.SeedLines(existingLine("E1", "ROCK_Q", 10))

	result, err := c.ApplyTemplate(context.Background(), "P1")
	require.NoError(t, err)

	assert.Equal(t, 11, result.Insertion.Start)
	assert.Equal(t, 10, sortOrders(gw.Lines())["E1"])
}

func TestApplyTemplate_TwiceIsRejectedAsDuplicate(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())

	_, err := c.ApplyTemplate(context.Background(), "P1")
	require.NoError(t, err)

	_, err = c.ApplyTemplate(context.Background(), "P1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Equal(t, ReasonDuplicateStandardQuestion, ReasonOf(err))
	assert.Equal(t,
		"Question 'AGE' already exists in the Project. If it is inactive, activate it again instead.\n"+
			"Question 'GENDER' already exists in the Project. If it is inactive, activate it again instead.\n"+
			"Question 'BRAND' already exists in the Project. If it is inactive, activate it again instead.",
		err.Error())
	assert.Len(t, gw.Lines(), 3, "no write on duplicate")
}

func TestApplyTemplate_OneDuplicateBlocksWholeBatch(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())
	inactive := existingLine("E1", "GENDER", 1)
	inactive.Active = false
	gw.SeedLines(inactive)

	_, err := c.ApplyTemplate(context.Background(), "P1")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Len(t, gw.Lines(), 1)
	assert.Empty(t, gw.CreateModes())
}

func TestApplyTemplate_NothingResolved(t *testing.T) {
	cat := musicCatalog()
	cat.Templates[0].Lines = nil
	cat.Projects[0].Selections = nil
	c, gw := newTestComposer(cat)

	result, err := c.ApplyTemplate(context.Background(), "P1")
	require.NoError(t, err)
	assert.Empty(t, result.Applied)
	assert.Nil(t, result.Insertion)
	assert.Empty(t, gw.CreateModes())
}

func TestApplyTemplate_PartialFailure(t *testing.T) {
	c, gw := newTestComposer(musicCatalog())
	gw.FailCreate = func(l ir.QuestionnaireLine) error {
		if l.QuestionBankID == "GENDER" {
			return assert.AnError
		}
		return nil
	}

	result, err := c.ApplyTemplate(context.Background(), "P1")
	require.Error(t, err)
	require.NotNil(t, result)

	assert.True(t, IsPartial(err))
	assert.Equal(t, []AppliedQuestion{
		{QuestionID: "AGE", QuestionName: "AGE"},
		{QuestionID: "BRAND", QuestionName: "BRAND"},
	}, result.Applied)
	assert.Equal(t, map[string]int{"L-001": 1, "L-003": 2}, sortOrders(gw.Lines()))
}
