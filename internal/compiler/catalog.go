package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileCatalog parses a CUE value into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is unified with the catalog schema first, so missing or
// mistyped fields surface as CUE errors with positions. Declaration order
// is kept for every entity; rules get their Seq from it.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`question_bank: AGE: { name: "Age", variable_name: "AGE" }`)
//	cat, err := CompileCatalog(v)
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	v = v.Unify(schema)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &ir.Catalog{
		QuestionBanks:   []ir.QuestionBank{},
		Modules:         []ir.Module{},
		ConfigQuestions: []ir.ConfigurationQuestion{},
		Products:        []ir.Product{},
		Templates:       []ir.ProductTemplate{},
		Rules:           []ir.DependencyRule{},
		Projects:        []ir.ProjectFixture{},
	}

	steps := []struct {
		section string
		parse   func(*ir.Catalog, string, cue.Value) error
	}{
		{"question_bank", parseQuestionBank},
		{"module", parseModule},
		{"config_question", parseConfigQuestion},
		{"product", parseProduct},
		{"template", parseTemplate},
		{"rule", parseRule},
		{"project", parseProject},
	}
	for _, step := range steps {
		err := eachField(v, step.section, func(id string, f cue.Value) error {
			return step.parse(cat, id, f)
		})
		if err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// eachField calls fn for every regular field of section, in order.
func eachField(v cue.Value, section string, fn func(string, cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func parseQuestionBank(cat *ir.Catalog, id string, v cue.Value) error {
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	variable, err := stringField(v, "variable_name")
	if err != nil {
		return err
	}
	active, err := boolField(v, "active")
	if err != nil {
		return err
	}
	cat.QuestionBanks = append(cat.QuestionBanks, ir.QuestionBank{
		ID:           id,
		Name:         name,
		VariableName: variable,
		Active:       active,
	})
	return nil
}

func parseModule(cat *ir.Catalog, id string, v cue.Value) error {
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	active, err := boolField(v, "active")
	if err != nil {
		return err
	}
	questions, err := stringList(v, "questions")
	if err != nil {
		return err
	}
	cat.Modules = append(cat.Modules, ir.Module{
		ID:              id,
		Name:            name,
		Active:          active,
		QuestionBankIDs: questions,
	})
	return nil
}

func parseConfigQuestion(cat *ir.Catalog, id string, v cue.Value) error {
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	mode, err := stringField(v, "coding_mode")
	if err != nil {
		return err
	}
	q := ir.ConfigurationQuestion{
		ID:         id,
		Name:       name,
		CodingMode: ir.CodingMode(mode),
		Answers:    []ir.ConfigurationAnswer{},
	}
	err = eachField(v, "answers", func(answerID string, a cue.Value) error {
		answerName, err := a.String()
		if err != nil {
			return formatCUEError(err)
		}
		q.Answers = append(q.Answers, ir.ConfigurationAnswer{
			ID:              answerID,
			OwnerQuestionID: id,
			Name:            answerName,
		})
		return nil
	})
	if err != nil {
		return err
	}
	cat.ConfigQuestions = append(cat.ConfigQuestions, q)
	return nil
}

func parseProduct(cat *ir.Catalog, id string, v cue.Value) error {
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	questions, err := stringList(v, "config_questions")
	if err != nil {
		return err
	}
	cat.Products = append(cat.Products, ir.Product{ID: id, Name: name, ConfigQuestionIDs: questions})
	return nil
}

func parseTemplate(cat *ir.Catalog, id string, v cue.Value) error {
	product, err := stringField(v, "product")
	if err != nil {
		return err
	}
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	tmpl := ir.ProductTemplate{ID: id, ProductID: product, Name: name, Lines: []ir.ProductTemplateLine{}}

	iter, err := v.LookupPath(cue.ParsePath("lines")).List()
	if err != nil {
		return formatCUEError(err)
	}
	for pos := 0; iter.Next(); pos++ {
		lv := iter.Value()
		target, err := parseTarget(lv, fmt.Sprintf("template.%s.lines[%d]", id, pos))
		if err != nil {
			return err
		}
		def, err := boolField(lv, "default")
		if err != nil {
			return err
		}
		tmpl.Lines = append(tmpl.Lines, ir.ProductTemplateLine{
			TemplateID:       id,
			Position:         pos,
			Target:           target,
			IncludeByDefault: def,
		})
	}
	cat.Templates = append(cat.Templates, tmpl)
	return nil
}

func parseRule(cat *ir.Catalog, id string, v cue.Value) error {
	source, err := stringField(v, "source")
	if err != nil {
		return err
	}
	effect, err := stringField(v, "effect")
	if err != nil {
		return err
	}
	answers, err := stringList(v, "answers")
	if err != nil {
		return err
	}
	target, err := parseTarget(v, "rule."+id)
	if err != nil {
		return err
	}
	cat.Rules = append(cat.Rules, ir.DependencyRule{
		ID:                id,
		Seq:               int64(len(cat.Rules) + 1),
		SourceQuestionID:  source,
		Effect:            ir.Effect(effect),
		Target:            target,
		RequiredAnswerIDs: answers,
	})
	return nil
}

func parseProject(cat *ir.Catalog, id string, v cue.Value) error {
	name, err := stringField(v, "name")
	if err != nil {
		return err
	}
	product, err := stringField(v, "product")
	if err != nil {
		return err
	}
	template, err := stringField(v, "template")
	if err != nil {
		return err
	}
	fixture := ir.ProjectFixture{
		Project:    ir.Project{ID: id, Name: name, ProductID: product, TemplateID: template},
		Selections: []ir.ProjectAnswerSelection{},
	}
	err = eachField(v, "selections", func(questionID string, sv cue.Value) error {
		iter, err := sv.List()
		if err != nil {
			return formatCUEError(err)
		}
		for iter.Next() {
			answerID, err := iter.Value().String()
			if err != nil {
				return formatCUEError(err)
			}
			fixture.Selections = append(fixture.Selections, ir.ProjectAnswerSelection{
				ProjectID:  id,
				QuestionID: questionID,
				AnswerID:   answerID,
				Selected:   true,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	cat.Projects = append(cat.Projects, fixture)
	return nil
}

// parseTarget reads the module/question pair of a template line or rule.
// Exactly one of them must be set.
func parseTarget(v cue.Value, field string) (ir.Target, error) {
	module, err := stringField(v, "module")
	if err != nil {
		return ir.Target{}, err
	}
	question, err := stringField(v, "question")
	if err != nil {
		return ir.Target{}, err
	}
	switch {
	case module != "" && question == "":
		return ir.ModuleTarget(module), nil
	case question != "" && module == "":
		return ir.QuestionTarget(question), nil
	}
	return ir.Target{}, &CompileError{
		Field:   field,
		Message: "exactly one of module or question is required",
		Pos:     v.Pos(),
	}
}

func stringField(v cue.Value, path string) (string, error) {
	f, _ := v.LookupPath(cue.ParsePath(path)).Default()
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func boolField(v cue.Value, path string) (bool, error) {
	f, _ := v.LookupPath(cue.ParsePath(path)).Default()
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	iter, err := v.LookupPath(cue.ParsePath(path)).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
