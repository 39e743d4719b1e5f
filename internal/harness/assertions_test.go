package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

func testLines() (active, all []ir.QuestionnaireLine) {
	all = []ir.QuestionnaireLine{
		{ID: "l1", QuestionBankID: "A", VariableName: "A", SortOrder: 1, Active: true},
		{ID: "l2", QuestionBankID: "B", VariableName: "B", SortOrder: 2, Active: false},
		{ID: "l3", VariableName: "OPEN", SortOrder: 3, Active: true},
	}
	return []ir.QuestionnaireLine{all[0], all[2]}, all
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	active, all := testLines()

	errs := EvaluateAssertions(active, all, []Assertion{
		{Type: AssertLinesOrder, Lines: []string{"A@1", "OPEN@3"}},
		{Type: AssertLineCount, Count: 2},
		{Type: AssertLineCount, Count: 2, Scope: "active"},
		{Type: AssertLineCount, Count: 3, Scope: "all"},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_NoAssertions(t *testing.T) {
	active, all := testLines()
	assert.Empty(t, EvaluateAssertions(active, all, nil))
}

func TestAssertLinesOrder_Mismatch(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"wrong order", []string{"OPEN@3", "A@1"}},
		{"wrong sort order", []string{"A@1", "OPEN@2"}},
		{"missing line", []string{"A@1"}},
		{"empty", []string{}},
	}

	active, all := testLines()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(active, all, []Assertion{{Type: AssertLinesOrder, Lines: tt.want}})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "Assertion failed: lines_order")
			assert.Contains(t, errs[0], "Actual: [A@1 OPEN@3]")
		})
	}
}

func TestAssertLineCount_Mismatch(t *testing.T) {
	active, all := testLines()

	errs := EvaluateAssertions(active, all, []Assertion{
		{Type: AssertLineCount, Count: 3},
		{Type: AssertLineCount, Count: 2, Scope: "all"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Expected: 3 active line(s)")
	assert.Contains(t, errs[0], "Actual: 2 active line(s)")
	assert.Contains(t, errs[1], "Expected: 2 all line(s)")
	assert.Contains(t, errs[1], "Actual: 3 all line(s)")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(nil, nil, []Assertion{{Type: "trace_contains"}})
	require.Len(t, errs, 1)
	assert.Equal(t, `unknown assertion type "trace_contains"`, errs[0])
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertLineCount,
		Expected: "1 active line(s)",
		Actual:   "2 active line(s)",
		Lines:    []string{"A@1", "OPEN@3"},
	}

	want := "Assertion failed: line_count\n" +
		"  Expected: 1 active line(s)\n" +
		"  Actual: 2 active line(s)\n" +
		"\nQuestionnaire:\n" +
		"  [1] A@1\n" +
		"  [2] OPEN@3\n"
	assert.Equal(t, want, err.Error())
}
