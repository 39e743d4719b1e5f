package engine

import (
	"cmp"
	"slices"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// answerSet maps a configuration question id to its selected answer ids.
type answerSet map[string]map[string]bool

// selectedAnswers indexes the selected answers of a project.
// Rows with Selected == false are ignored.
func selectedAnswers(selections []ir.ProjectAnswerSelection) answerSet {
	set := make(answerSet)
	for _, s := range selections {
		if !s.Selected {
			continue
		}
		if set[s.QuestionID] == nil {
			set[s.QuestionID] = make(map[string]bool)
		}
		set[s.QuestionID][s.AnswerID] = true
	}
	return set
}

// fires reports whether every required answer of rule is selected for the
// rule's source question. A rule with no required answers never fires.
func (a answerSet) fires(rule ir.DependencyRule) bool {
	if len(rule.RequiredAnswerIDs) == 0 {
		return false
	}
	selected := a[rule.SourceQuestionID]
	for _, id := range rule.RequiredAnswerIDs {
		if !selected[id] {
			return false
		}
	}
	return true
}

// Fires reports whether rule fires under the given selections.
//
// The test is the same for SingleCoded and MultiCoded sources: the required
// answers must be a subset of the selected answers of the source question.
func Fires(rule ir.DependencyRule, selections []ir.ProjectAnswerSelection) bool {
	return selectedAnswers(selections).fires(rule)
}

// FiredRules returns the rules that fire, in application order (seq, then
// id). Rules whose source question is not in configQuestionIDs are ignored.
func FiredRules(rules []ir.DependencyRule, selections []ir.ProjectAnswerSelection, configQuestionIDs []string) []ir.DependencyRule {
	inProduct := make(map[string]bool, len(configQuestionIDs))
	for _, id := range configQuestionIDs {
		inProduct[id] = true
	}
	answers := selectedAnswers(selections)

	fired := []ir.DependencyRule{}
	for _, r := range sortRules(rules) {
		if !inProduct[r.SourceQuestionID] {
			continue
		}
		if answers.fires(r) {
			fired = append(fired, r)
		}
	}
	return fired
}

// sortRules returns a copy of rules ordered by seq, then id.
func sortRules(rules []ir.DependencyRule) []ir.DependencyRule {
	sorted := slices.Clone(rules)
	slices.SortStableFunc(sorted, func(a, b ir.DependencyRule) int {
		if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return sorted
}
