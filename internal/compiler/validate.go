package compiler

import (
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateID         = "E200" // two entities of one kind share an id
	ErrUnknownReference    = "E201" // reference to an undeclared entity
	ErrRuleNoAnswers       = "E202" // rule requires no answers
	ErrSingleCodedAnswers  = "E203" // SingleCoded rule must require exactly one answer
	ErrAnswerNotOwned      = "E204" // required answer belongs to another question
	ErrDuplicateModuleLink = "E205" // module lists a question twice
	ErrInvalidEnum         = "E206" // unknown coding mode or effect
	ErrSingleCodedSelected = "E207" // SingleCoded question with several selected answers
	ErrRuleSourceScope     = "E208" // rule source is in no product
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// catalogIndex holds the ids declared in a catalog, by kind.
type catalogIndex struct {
	banks     map[string]bool
	modules   map[string]bool
	questions map[string]ir.ConfigurationQuestion
	answers   map[string]string // answer id -> owner question id
	products  map[string]bool
	templates map[string]bool
	inProduct map[string]bool // config question ids used by any product
}

// Validate checks the referential integrity of a compiled catalog.
// Returns all errors found (does not fail-fast), in catalog order.
func Validate(cat *ir.Catalog) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	idx := catalogIndex{
		banks:     make(map[string]bool),
		modules:   make(map[string]bool),
		questions: make(map[string]ir.ConfigurationQuestion),
		answers:   make(map[string]string),
		products:  make(map[string]bool),
		templates: make(map[string]bool),
		inProduct: make(map[string]bool),
	}

	// E200: duplicate ids, per kind
	for i, b := range cat.QuestionBanks {
		if idx.banks[b.ID] {
			add(fmt.Sprintf("question_bank[%d]", i), ErrDuplicateID, "duplicate question bank id %q", b.ID)
		}
		idx.banks[b.ID] = true
	}
	for i, m := range cat.Modules {
		if idx.modules[m.ID] {
			add(fmt.Sprintf("module[%d]", i), ErrDuplicateID, "duplicate module id %q", m.ID)
		}
		idx.modules[m.ID] = true
	}
	for i, q := range cat.ConfigQuestions {
		if _, ok := idx.questions[q.ID]; ok {
			add(fmt.Sprintf("config_question[%d]", i), ErrDuplicateID, "duplicate configuration question id %q", q.ID)
		}
		idx.questions[q.ID] = q
		for _, a := range q.Answers {
			if owner, ok := idx.answers[a.ID]; ok {
				add(fmt.Sprintf("config_question.%s.answers.%s", q.ID, a.ID), ErrDuplicateID,
					"answer id %q already belongs to question %q", a.ID, owner)
				continue
			}
			idx.answers[a.ID] = q.ID
		}
	}
	for i, p := range cat.Products {
		if idx.products[p.ID] {
			add(fmt.Sprintf("product[%d]", i), ErrDuplicateID, "duplicate product id %q", p.ID)
		}
		idx.products[p.ID] = true
		for _, qid := range p.ConfigQuestionIDs {
			idx.inProduct[qid] = true
		}
	}
	for i, t := range cat.Templates {
		if idx.templates[t.ID] {
			add(fmt.Sprintf("template[%d]", i), ErrDuplicateID, "duplicate template id %q", t.ID)
		}
		idx.templates[t.ID] = true
	}

	for _, m := range cat.Modules {
		seen := make(map[string]bool, len(m.QuestionBankIDs))
		for j, qid := range m.QuestionBankIDs {
			field := fmt.Sprintf("module.%s.questions[%d]", m.ID, j)
			if !idx.banks[qid] {
				add(field, ErrUnknownReference, "unknown question bank %q", qid)
			}
			// E205: a module expands each bank once
			if seen[qid] {
				add(field, ErrDuplicateModuleLink, "question bank %q listed twice in module %q", qid, m.ID)
			}
			seen[qid] = true
		}
	}

	for _, q := range cat.ConfigQuestions {
		if !q.CodingMode.IsValid() {
			add(fmt.Sprintf("config_question.%s.coding_mode", q.ID), ErrInvalidEnum,
				"invalid coding mode %q, must be %q or %q", q.CodingMode, ir.CodingSingle, ir.CodingMulti)
		}
	}

	for _, p := range cat.Products {
		for j, qid := range p.ConfigQuestionIDs {
			if _, ok := idx.questions[qid]; !ok {
				add(fmt.Sprintf("product.%s.config_questions[%d]", p.ID, j), ErrUnknownReference,
					"unknown configuration question %q", qid)
			}
		}
	}

	for _, t := range cat.Templates {
		if !idx.products[t.ProductID] {
			add(fmt.Sprintf("template.%s.product", t.ID), ErrUnknownReference, "unknown product %q", t.ProductID)
		}
		for j, l := range t.Lines {
			if !idx.hasTarget(l.Target) {
				add(fmt.Sprintf("template.%s.lines[%d]", t.ID, j), ErrUnknownReference, "unknown target %s", l.Target)
			}
		}
	}

	for _, r := range cat.Rules {
		errs = append(errs, validateRule(r, idx)...)
	}

	for _, pf := range cat.Projects {
		errs = append(errs, validateProject(pf, idx)...)
	}

	return errs
}

func (idx catalogIndex) hasTarget(t ir.Target) bool {
	switch t.Kind {
	case ir.KindModule:
		return idx.modules[t.ID]
	case ir.KindQuestion:
		return idx.banks[t.ID]
	}
	return false
}

// validateRule checks a dependency rule against the catalog.
func validateRule(r ir.DependencyRule, idx catalogIndex) []ValidationError {
	var errs []ValidationError
	field := "rule." + r.ID

	if !r.Effect.IsValid() {
		errs = append(errs, ValidationError{
			Field:   field + ".effect",
			Message: fmt.Sprintf("invalid effect %q, must be %q or %q", r.Effect, ir.EffectInclude, ir.EffectExclude),
			Code:    ErrInvalidEnum,
		})
	}

	if !idx.hasTarget(r.Target) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown target %s", r.Target),
			Code:    ErrUnknownReference,
		})
	}

	source, ok := idx.questions[r.SourceQuestionID]
	if !ok {
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: fmt.Sprintf("unknown configuration question %q", r.SourceQuestionID),
			Code:    ErrUnknownReference,
		})
	} else if !idx.inProduct[source.ID] {
		errs = append(errs, ValidationError{
			Field:   field + ".source",
			Message: fmt.Sprintf("configuration question %q is not used by any product, rule can never fire", source.ID),
			Code:    ErrRuleSourceScope,
		})
	}

	// E202: a rule must require at least one answer
	if len(r.RequiredAnswerIDs) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".answers",
			Message: "rule must require at least one answer",
			Code:    ErrRuleNoAnswers,
		})
	}

	// E203: SingleCoded sources admit one selected answer, so an AND over
	// several could never hold
	if ok && source.CodingMode == ir.CodingSingle && len(r.RequiredAnswerIDs) > 1 {
		errs = append(errs, ValidationError{
			Field:   field + ".answers",
			Message: fmt.Sprintf("SingleCoded question %q allows exactly one required answer, got %d", source.ID, len(r.RequiredAnswerIDs)),
			Code:    ErrSingleCodedAnswers,
		})
	}

	for j, aid := range r.RequiredAnswerIDs {
		owner, known := idx.answers[aid]
		switch {
		case !known:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.answers[%d]", field, j),
				Message: fmt.Sprintf("unknown answer %q", aid),
				Code:    ErrUnknownReference,
			})
		case owner != r.SourceQuestionID:
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.answers[%d]", field, j),
				Message: fmt.Sprintf("answer %q belongs to question %q, not %q", aid, owner, r.SourceQuestionID),
				Code:    ErrAnswerNotOwned,
			})
		}
	}

	return errs
}

// validateProject checks a project fixture and its selections.
func validateProject(pf ir.ProjectFixture, idx catalogIndex) []ValidationError {
	var errs []ValidationError
	p := pf.Project
	field := "project." + p.ID

	if !idx.products[p.ProductID] {
		errs = append(errs, ValidationError{
			Field:   field + ".product",
			Message: fmt.Sprintf("unknown product %q", p.ProductID),
			Code:    ErrUnknownReference,
		})
	}
	if p.TemplateID != "" && !idx.templates[p.TemplateID] {
		errs = append(errs, ValidationError{
			Field:   field + ".template",
			Message: fmt.Sprintf("unknown template %q", p.TemplateID),
			Code:    ErrUnknownReference,
		})
	}

	counts := make(map[string]int)
	for _, s := range pf.Selections {
		sf := fmt.Sprintf("%s.selections.%s", field, s.QuestionID)
		if _, ok := idx.questions[s.QuestionID]; !ok {
			errs = append(errs, ValidationError{
				Field:   sf,
				Message: fmt.Sprintf("unknown configuration question %q", s.QuestionID),
				Code:    ErrUnknownReference,
			})
			continue
		}
		if owner := idx.answers[s.AnswerID]; owner != s.QuestionID {
			errs = append(errs, ValidationError{
				Field:   sf,
				Message: fmt.Sprintf("answer %q is not an answer of %q", s.AnswerID, s.QuestionID),
				Code:    ErrAnswerNotOwned,
			})
			continue
		}
		if s.Selected {
			counts[s.QuestionID]++
		}
	}

	for _, s := range pf.Selections {
		q := idx.questions[s.QuestionID]
		if q.CodingMode == ir.CodingSingle && counts[s.QuestionID] > 1 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.selections.%s", field, s.QuestionID),
				Message: fmt.Sprintf("SingleCoded question %q has %d selected answers", s.QuestionID, counts[s.QuestionID]),
				Code:    ErrSingleCodedSelected,
			})
			counts[s.QuestionID] = 0 // report once
		}
	}

	return errs
}
