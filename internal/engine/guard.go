package engine

import (
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// candidateKind says what a guard candidate stands for.
type candidateKind int

const (
	candidateQuestion candidateKind = iota
	candidateCustom
	candidateModule
)

// candidate is something about to be added to a questionnaire.
//
// Question candidates are checked by bank id, custom candidates by
// normalized variable name and module candidates by module id.
type candidate struct {
	kind candidateKind
	id   string
	name string
}

func questionCandidate(b ir.QuestionBank) candidate {
	return candidate{kind: candidateQuestion, id: b.ID, name: b.Name}
}

func customCandidate(variableName string) candidate {
	return candidate{kind: candidateCustom, id: ir.NormalizeVariableName(variableName), name: variableName}
}

func moduleCandidate(m ir.Module) candidate {
	return candidate{kind: candidateModule, id: m.ID, name: m.Name}
}

// existingContent indexes every line of a project, active or not.
type existingContent struct {
	banks   map[string]bool
	customs map[string]bool
	modules map[string]bool
}

func indexLines(lines []ir.QuestionnaireLine) existingContent {
	ex := existingContent{
		banks:   make(map[string]bool),
		customs: make(map[string]bool),
		modules: make(map[string]bool),
	}
	for _, l := range lines {
		if l.IsCustom() {
			ex.customs[ir.NormalizeVariableName(l.VariableName)] = true
		} else {
			ex.banks[l.QuestionBankID] = true
		}
		if l.ModuleID != "" {
			ex.modules[l.ModuleID] = true
		}
	}
	return ex
}

const inactiveHint = "If it is inactive, activate it again instead."

// checkDuplicates rejects the whole batch if any candidate already exists
// in the project's lines (active or inactive). All distinct messages are
// reported together.
func checkDuplicates(existing []ir.QuestionnaireLine, candidates []candidate) error {
	ex := indexLines(existing)

	var (
		msgs   []string
		reason ErrorReason
	)
	report := func(r ErrorReason, msg string) {
		if reason == "" {
			reason = r
		}
		msgs = append(msgs, msg)
	}

	for _, c := range candidates {
		switch c.kind {
		case candidateQuestion:
			if ex.banks[c.id] {
				report(ReasonDuplicateStandardQuestion,
					fmt.Sprintf("Question '%s' already exists in the Project. %s", c.name, inactiveHint))
			}
		case candidateCustom:
			if ex.customs[c.id] {
				report(ReasonDuplicateCustomQuestion,
					fmt.Sprintf("Custom question '%s' already exists in the Project. %s", c.name, inactiveHint))
			}
		case candidateModule:
			if ex.modules[c.id] {
				report(ReasonDuplicateModule,
					fmt.Sprintf("Module '%s' already exists in the Project. %s", c.name, inactiveHint))
			}
		}
	}

	if len(msgs) == 0 {
		return nil
	}
	return newError(ErrCodeValidation, reason, distinct(msgs)...)
}

// dedupeCandidates collapses candidates repeated within one batch to their
// first occurrence.
func dedupeCandidates(cs []candidate) []candidate {
	type key struct {
		kind candidateKind
		id   string
	}
	seen := make(map[key]bool, len(cs))
	out := make([]candidate, 0, len(cs))
	for _, c := range cs {
		k := key{c.kind, c.id}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}
