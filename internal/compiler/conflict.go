package compiler

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// ConflictWarning reports two rules with opposite effects on one target
// that can fire for the same project.
//
// Conflicts are warnings, not errors. The resolver applies fired rules in
// (seq, id) order and the last one wins, so the outcome is deterministic;
// the warning only tells the author which rule that is.
type ConflictWarning struct {
	Target  ir.Target `json:"target"`
	Rules   []string  `json:"rules"`  // in application order
	Winner  string    `json:"winner"` // rule applied last
	Message string    `json:"message"`
	Level   string    `json:"level"` // "warning"
}

// AnalyzeConflicts performs static conflict analysis on dependency rules.
//
// The algorithm:
//  1. Group rules by target
//  2. For every Include/Exclude pair within a group, check that some
//     selection satisfies both (SingleCoded sources hold one answer)
//  3. Report each such pair once, ordered by application order
//
// Rules without conflicts return an empty warning list.
func AnalyzeConflicts(questions []ir.ConfigurationQuestion, rules []ir.DependencyRule) []ConflictWarning {
	warnings := []ConflictWarning{}
	if len(rules) < 2 {
		return warnings
	}

	modes := make(map[string]ir.CodingMode, len(questions))
	for _, q := range questions {
		modes[q.ID] = q.CodingMode
	}

	ordered := slices.Clone(rules)
	slices.SortFunc(ordered, func(a, b ir.DependencyRule) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	byTarget := make(map[ir.Target][]ir.DependencyRule)
	var targets []ir.Target
	for _, r := range ordered {
		if _, ok := byTarget[r.Target]; !ok {
			targets = append(targets, r.Target)
		}
		byTarget[r.Target] = append(byTarget[r.Target], r)
	}

	for _, t := range targets {
		group := byTarget[t]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.Effect == b.Effect || !canFireTogether(a, b, modes) {
					continue
				}
				warnings = append(warnings, ConflictWarning{
					Target: t,
					Rules:  []string{a.ID, b.ID},
					Winner: b.ID,
					Message: fmt.Sprintf("rules %s (%s) and %s (%s) can both fire for %s; %s is applied last and wins",
						a.ID, a.Effect, b.ID, b.Effect, t, b.ID),
					Level: "warning",
				})
			}
		}
	}

	return warnings
}

// canFireTogether reports whether one project selection can satisfy the
// required answers of both rules.
func canFireTogether(a, b ir.DependencyRule, modes map[string]ir.CodingMode) bool {
	if len(a.RequiredAnswerIDs) == 0 || len(b.RequiredAnswerIDs) == 0 {
		return false
	}
	if a.SourceQuestionID != b.SourceQuestionID || modes[a.SourceQuestionID] != ir.CodingSingle {
		return true
	}
	// A SingleCoded question holds one answer: both rules must require it.
	needed := make(map[string]bool)
	for _, id := range a.RequiredAnswerIDs {
		needed[id] = true
	}
	for _, id := range b.RequiredAnswerIDs {
		needed[id] = true
	}
	return len(needed) == 1
}
