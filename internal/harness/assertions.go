package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Lines    []string // Final active lines for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nQuestionnaire:\n")
	for i, l := range e.Lines {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, l)
	}

	return buf.String()
}

// assertLinesOrder checks the active lines, rendered "variable@sort_order",
// against the expected list. Order and sort orders must match exactly.
func assertLinesOrder(active []string, assertion Assertion) error {
	if slices.Equal(active, assertion.Lines) {
		return nil
	}
	return &AssertionError{
		Type:     AssertLinesOrder,
		Expected: fmt.Sprintf("%v", assertion.Lines),
		Actual:   fmt.Sprintf("%v", active),
		Lines:    active,
	}
}

// assertLineCount checks the number of lines in the assertion's scope.
func assertLineCount(active []string, all []ir.QuestionnaireLine, assertion Assertion) error {
	count := len(active)
	scope := "active"
	if assertion.Scope == "all" {
		count = len(all)
		scope = "all"
	}
	if count == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertLineCount,
		Expected: fmt.Sprintf("%d %s line(s)", assertion.Count, scope),
		Actual:   fmt.Sprintf("%d %s line(s)", count, scope),
		Lines:    active,
	}
}

// EvaluateAssertions runs every assertion against the final questionnaire
// and returns the failure messages.
func EvaluateAssertions(active, all []ir.QuestionnaireLine, assertions []Assertion) []string {
	rendered := renderLines(active)
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertLinesOrder:
			err = assertLinesOrder(rendered, a)
		case AssertLineCount:
			err = assertLineCount(rendered, all, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
