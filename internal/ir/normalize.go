package ir

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeVariableName returns the comparison key for custom variable names:
// NFC-normalized, trimmed and case-folded. "  Age " and "AGE" collide.
func NormalizeVariableName(name string) string {
	// A Caser may be stateful, so one is created per call.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(name)))
}
