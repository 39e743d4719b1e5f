package engine

import (
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// ResolveInput is everything the Inclusion Resolver needs, already loaded.
type ResolveInput struct {
	// Lines are the template lines in declaration order.
	Lines []ir.ProductTemplateLine
	// Rules are candidate dependency rules in any order.
	Rules      []ir.DependencyRule
	Selections []ir.ProjectAnswerSelection
	// ConfigQuestionIDs is the product-configuration set.
	ConfigQuestionIDs []string
	// Expansions holds the content of every target that could be expanded.
	// Targets absent from the map are skipped.
	Expansions map[ir.Target]Expansion
}

// ResolvedQuestion is one question bank the template contributes.
type ResolvedQuestion struct {
	QuestionID   string `json:"question_id"`
	QuestionName string `json:"question_name"`
	VariableName string `json:"variable_name"`
	DisplayOrder int    `json:"display_order"`
	ModuleID     string `json:"module_id,omitempty"`
}

// Resolution is the outcome of resolving a template for a project.
type Resolution struct {
	ProjectID  string             `json:"project_id,omitempty"`
	TemplateID string             `json:"template_id,omitempty"`
	Questions  []ResolvedQuestion `json:"questions"`
	FiredRules []string           `json:"fired_rules"`
	Skipped    []ir.Target        `json:"skipped"`
	// Fingerprint hashes Questions; unchanged input gives the same value.
	Fingerprint string `json:"fingerprint"`
}

// effect sets the inclusion flag of every bank a target expands to.
type effect struct {
	target   ir.Target
	included bool
}

// flag is the fold state of one question bank.
type flag struct {
	bank     ir.QuestionBank
	included bool
	moduleID string
}

// Resolve computes which question banks a template contributes.
//
// It folds seed effects (one per template line, value = include-by-default)
// followed by the effects of fired rules (ordered by seq, then id) over a
// per-bank inclusion flag. Every effect overwrites the flag of each bank
// its target expands to, so the last applied effect wins. The module of a
// question is taken from the effect that last set its flag.
//
// Display order is 1-based and follows first appearance: template lines
// expand in place, banks first reached by a rule follow in rule order.
//
// Resolve is a pure function.
func Resolve(in ResolveInput) Resolution {
	fired := FiredRules(in.Rules, in.Selections, in.ConfigQuestionIDs)

	effects := make([]effect, 0, len(in.Lines)+len(fired))
	for _, l := range in.Lines {
		effects = append(effects, effect{target: l.Target, included: l.IncludeByDefault})
	}
	firedIDs := make([]string, 0, len(fired))
	for _, r := range fired {
		effects = append(effects, effect{target: r.Target, included: r.Effect == ir.EffectInclude})
		firedIDs = append(firedIDs, r.ID)
	}

	flags := make(map[string]*flag)
	var order []string
	skipped := []ir.Target{}
	skippedSeen := make(map[ir.Target]bool)

	for _, e := range effects {
		exp, ok := in.Expansions[e.target]
		if !ok {
			if !skippedSeen[e.target] {
				skippedSeen[e.target] = true
				skipped = append(skipped, e.target)
			}
			continue
		}
		for _, b := range exp.Banks {
			f, seen := flags[b.ID]
			if !seen {
				f = &flag{bank: b}
				flags[b.ID] = f
				order = append(order, b.ID)
			}
			f.included = e.included
			f.moduleID = exp.ModuleID
		}
	}

	questions := []ResolvedQuestion{}
	for _, id := range order {
		f := flags[id]
		if !f.included {
			continue
		}
		questions = append(questions, ResolvedQuestion{
			QuestionID:   f.bank.ID,
			QuestionName: f.bank.Name,
			VariableName: f.bank.VariableName,
			DisplayOrder: len(questions) + 1,
			ModuleID:     f.moduleID,
		})
	}

	return Resolution{
		Questions:   questions,
		FiredRules:  firedIDs,
		Skipped:     skipped,
		Fingerprint: ir.MustFingerprint(ir.DomainResolution, questions),
	}
}
