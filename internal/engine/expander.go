package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// Expander turns module and question targets into ordered question banks.
type Expander struct {
	gw Gateway
}

// NewExpander creates an Expander reading from gw.
func NewExpander(gw Gateway) *Expander {
	return &Expander{gw: gw}
}

// Expansion is the content of one target.
type Expansion struct {
	Target ir.Target
	// ModuleID is set when Target is a module.
	ModuleID string
	Banks    []ir.QuestionBank
}

// Expand returns the question banks t contributes, in module authoring
// order. A question target yields a single bank.
//
// Fails with TargetNotFound when the module or question is missing or
// inactive, or when the module links a question bank that does not exist.
// Links to inactive banks are dropped.
func (x *Expander) Expand(ctx context.Context, t ir.Target) (Expansion, error) {
	expansions, missing, err := x.ExpandAll(ctx, []ir.Target{t})
	if err != nil {
		return Expansion{}, err
	}
	if len(missing) > 0 {
		return Expansion{}, targetNotFound(t.Kind, []string{t.ID})
	}
	return expansions[t], nil
}

// ExpandAll expands every distinct target with two batched lookups.
// Targets that cannot be expanded are returned in missing (first-seen
// order) instead of failing the call.
func (x *Expander) ExpandAll(ctx context.Context, targets []ir.Target) (map[ir.Target]Expansion, []ir.Target, error) {
	var moduleIDs, bankIDs []string
	seen := make(map[ir.Target]bool, len(targets))
	var unique []ir.Target
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
		switch t.Kind {
		case ir.KindModule:
			moduleIDs = append(moduleIDs, t.ID)
		case ir.KindQuestion:
			bankIDs = append(bankIDs, t.ID)
		}
	}

	modules, err := x.gw.GetModules(ctx, moduleIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("expand targets: load modules: %w", err)
	}
	moduleByID := make(map[string]ir.Module, len(modules))
	for _, m := range modules {
		moduleByID[m.ID] = m
		if m.Active {
			bankIDs = append(bankIDs, m.QuestionBankIDs...)
		}
	}

	banks, err := x.gw.GetQuestionBanks(ctx, bankIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("expand targets: load question banks: %w", err)
	}
	bankByID := make(map[string]ir.QuestionBank, len(banks))
	for _, b := range banks {
		bankByID[b.ID] = b
	}

	out := make(map[ir.Target]Expansion, len(unique))
	var missing []ir.Target
	for _, t := range unique {
		exp, ok := expandOne(t, moduleByID, bankByID)
		if !ok {
			missing = append(missing, t)
			continue
		}
		out[t] = exp
	}
	return out, missing, nil
}

func expandOne(t ir.Target, modules map[string]ir.Module, banks map[string]ir.QuestionBank) (Expansion, bool) {
	switch t.Kind {
	case ir.KindQuestion:
		b, ok := banks[t.ID]
		if !ok || !b.Active {
			return Expansion{}, false
		}
		return Expansion{Target: t, Banks: []ir.QuestionBank{b}}, true
	case ir.KindModule:
		m, ok := modules[t.ID]
		if !ok || !m.Active {
			return Expansion{}, false
		}
		exp := Expansion{Target: t, ModuleID: m.ID, Banks: []ir.QuestionBank{}}
		for _, id := range m.QuestionBankIDs {
			b, ok := banks[id]
			if !ok {
				return Expansion{}, false
			}
			if b.Active {
				exp.Banks = append(exp.Banks, b)
			}
		}
		return exp, true
	}
	return Expansion{}, false
}

// targetNotFound builds the "{Kind} with ids {ids} not found or inactive."
// error.
func targetNotFound(kind ir.TargetKind, ids []string) *Error {
	return newError(ErrCodeNotFound, ReasonTargetNotFound,
		fmt.Sprintf("%s with ids %s not found or inactive.", kind, strings.Join(ids, ", ")))
}
