package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
	"github.com/tvdias/poc-study-designer-sub003/internal/queryir"
)

// query compiles and runs a queryir read.
// Callers are responsible for closing the returned rows.
func (s *Store) query(ctx context.Context, q queryir.Query) (*sql.Rows, error) {
	stmt, params, err := s.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return s.db.QueryContext(ctx, stmt, params...)
}

func anyStrings(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// GetProject retrieves a project by ID.
// Returns ir.ErrNoRecord if not found.
func (s *Store) GetProject(ctx context.Context, projectID string) (ir.Project, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, product_id, template_id
		FROM projects
		WHERE id = ?
	`), projectID)

	var p ir.Project
	var templateID sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.ProductID, &templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Project{}, fmt.Errorf("get project %s: %w", projectID, ir.ErrNoRecord)
		}
		return ir.Project{}, fmt.Errorf("get project %s: %w", projectID, err)
	}
	p.TemplateID = templateID.String
	return p, nil
}

// ListTemplateLines returns the lines of a template in declaration order.
func (s *Store) ListTemplateLines(ctx context.Context, templateID string) ([]ir.ProductTemplateLine, error) {
	rows, err := s.query(ctx, queryir.Select{
		From:     "template_lines",
		Columns:  []string{"template_id", "position", "target_kind", "target_id", "include_by_default"},
		Filter:   queryir.Equals{Field: "template_id", Value: templateID},
		OrderBy:  []string{"position"},
		TieBreak: "target_id",
	})
	if err != nil {
		return nil, fmt.Errorf("query template lines: %w", err)
	}
	defer rows.Close()

	lines := []ir.ProductTemplateLine{}
	for rows.Next() {
		var l ir.ProductTemplateLine
		var kind string
		if err := rows.Scan(&l.TemplateID, &l.Position, &kind, &l.Target.ID, &l.IncludeByDefault); err != nil {
			return nil, fmt.Errorf("scan template line: %w", err)
		}
		l.Target.Kind = ir.TargetKind(kind)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate template lines: %w", err)
	}
	return lines, nil
}

// ListConfigurationQuestions returns the product-configuration set of a
// product, in product order, with answers in authoring order.
func (s *Store) ListConfigurationQuestions(ctx context.Context, productID string) ([]ir.ConfigurationQuestion, error) {
	ids, err := s.productQuestionIDs(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []ir.ConfigurationQuestion{}, nil
	}

	rows, err := s.query(ctx, queryir.Select{
		From:    "configuration_questions",
		Columns: []string{"id", "name", "coding_mode"},
		Filter:  queryir.In{Field: "id", Values: anyStrings(ids)},
	})
	if err != nil {
		return nil, fmt.Errorf("query configuration questions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*ir.ConfigurationQuestion, len(ids))
	for rows.Next() {
		var q ir.ConfigurationQuestion
		var mode string
		if err := rows.Scan(&q.ID, &q.Name, &mode); err != nil {
			return nil, fmt.Errorf("scan configuration question: %w", err)
		}
		q.CodingMode = ir.CodingMode(mode)
		q.Answers = []ir.ConfigurationAnswer{}
		byID[q.ID] = &q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configuration questions: %w", err)
	}

	answers, err := s.query(ctx, queryir.Select{
		From:    "configuration_answers",
		Columns: []string{"id", "question_id", "name"},
		Filter:  queryir.In{Field: "question_id", Values: anyStrings(ids)},
		OrderBy: []string{"position"},
	})
	if err != nil {
		return nil, fmt.Errorf("query configuration answers: %w", err)
	}
	defer answers.Close()

	for answers.Next() {
		var a ir.ConfigurationAnswer
		if err := answers.Scan(&a.ID, &a.OwnerQuestionID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan configuration answer: %w", err)
		}
		if q, ok := byID[a.OwnerQuestionID]; ok {
			q.Answers = append(q.Answers, a)
		}
	}
	if err := answers.Err(); err != nil {
		return nil, fmt.Errorf("iterate configuration answers: %w", err)
	}

	out := make([]ir.ConfigurationQuestion, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *Store) productQuestionIDs(ctx context.Context, productID string) ([]string, error) {
	rows, err := s.query(ctx, queryir.Select{
		From:     "product_config_questions",
		Columns:  []string{"question_id"},
		Filter:   queryir.Equals{Field: "product_id", Value: productID},
		OrderBy:  []string{"position"},
		TieBreak: "question_id",
	})
	if err != nil {
		return nil, fmt.Errorf("query product questions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product question: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product questions: %w", err)
	}
	return ids, nil
}

// ListAnswerSelections returns every selection row recorded for a project,
// selected or not.
func (s *Store) ListAnswerSelections(ctx context.Context, projectID string) ([]ir.ProjectAnswerSelection, error) {
	rows, err := s.query(ctx, queryir.Select{
		From:     "project_answer_selections",
		Columns:  []string{"project_id", "question_id", "answer_id", "selected"},
		Filter:   queryir.Equals{Field: "project_id", Value: projectID},
		OrderBy:  []string{"question_id"},
		TieBreak: "answer_id",
	})
	if err != nil {
		return nil, fmt.Errorf("query selections: %w", err)
	}
	defer rows.Close()

	selections := []ir.ProjectAnswerSelection{}
	for rows.Next() {
		var sel ir.ProjectAnswerSelection
		if err := rows.Scan(&sel.ProjectID, &sel.QuestionID, &sel.AnswerID, &sel.Selected); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		selections = append(selections, sel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate selections: %w", err)
	}
	return selections, nil
}

// ListDependencyRules returns the rules whose source question is one of
// questionIDs, ordered by seq then id.
func (s *Store) ListDependencyRules(ctx context.Context, questionIDs []string) ([]ir.DependencyRule, error) {
	if len(questionIDs) == 0 {
		return []ir.DependencyRule{}, nil
	}

	rows, err := s.query(ctx, queryir.Select{
		From:    "dependency_rules",
		Columns: []string{"id", "seq", "source_question_id", "effect", "target_kind", "target_id"},
		Filter:  queryir.In{Field: "source_question_id", Values: anyStrings(questionIDs)},
		OrderBy: []string{"seq"},
	})
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []ir.DependencyRule{}
	for rows.Next() {
		var r ir.DependencyRule
		var effect, kind string
		if err := rows.Scan(&r.ID, &r.Seq, &r.SourceQuestionID, &effect, &kind, &r.Target.ID); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Effect = ir.Effect(effect)
		r.Target.Kind = ir.TargetKind(kind)
		r.RequiredAnswerIDs = []string{}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ruleIDs := make([]string, len(rules))
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		ruleIDs[i] = r.ID
		index[r.ID] = i
	}

	answers, err := s.query(ctx, queryir.Select{
		From:     "rule_answers",
		Columns:  []string{"rule_id", "answer_id"},
		Filter:   queryir.In{Field: "rule_id", Values: anyStrings(ruleIDs)},
		OrderBy:  []string{"position"},
		TieBreak: "rule_id",
	})
	if err != nil {
		return nil, fmt.Errorf("query rule answers: %w", err)
	}
	defer answers.Close()

	for answers.Next() {
		var ruleID, answerID string
		if err := answers.Scan(&ruleID, &answerID); err != nil {
			return nil, fmt.Errorf("scan rule answer: %w", err)
		}
		i := index[ruleID]
		rules[i].RequiredAnswerIDs = append(rules[i].RequiredAnswerIDs, answerID)
	}
	if err := answers.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule answers: %w", err)
	}

	return rules, nil
}

// GetModules returns the modules among ids that exist, ordered by id.
func (s *Store) GetModules(ctx context.Context, ids []string) ([]ir.Module, error) {
	if len(ids) == 0 {
		return []ir.Module{}, nil
	}

	rows, err := s.query(ctx, queryir.Select{
		From:    "modules",
		Columns: []string{"id", "name", "active"},
		Filter:  queryir.In{Field: "id", Values: anyStrings(ids)},
	})
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	modules := []ir.Module{}
	index := make(map[string]int)
	for rows.Next() {
		var m ir.Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Active); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		m.QuestionBankIDs = []string{}
		index[m.ID] = len(modules)
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	if len(modules) == 0 {
		return modules, nil
	}

	links, err := s.query(ctx, queryir.Select{
		From:     "module_questions",
		Columns:  []string{"module_id", "question_bank_id"},
		Filter:   queryir.In{Field: "module_id", Values: anyStrings(ids)},
		OrderBy:  []string{"position"},
		TieBreak: "module_id",
	})
	if err != nil {
		return nil, fmt.Errorf("query module questions: %w", err)
	}
	defer links.Close()

	for links.Next() {
		var moduleID, bankID string
		if err := links.Scan(&moduleID, &bankID); err != nil {
			return nil, fmt.Errorf("scan module question: %w", err)
		}
		if i, ok := index[moduleID]; ok {
			modules[i].QuestionBankIDs = append(modules[i].QuestionBankIDs, bankID)
		}
	}
	if err := links.Err(); err != nil {
		return nil, fmt.Errorf("iterate module questions: %w", err)
	}

	return modules, nil
}

// GetQuestionBanks returns the question banks among ids that exist,
// ordered by id. Inactive banks are included.
func (s *Store) GetQuestionBanks(ctx context.Context, ids []string) ([]ir.QuestionBank, error) {
	if len(ids) == 0 {
		return []ir.QuestionBank{}, nil
	}

	rows, err := s.query(ctx, queryir.Select{
		From:    "question_banks",
		Columns: []string{"id", "name", "variable_name", "active"},
		Filter:  queryir.In{Field: "id", Values: anyStrings(ids)},
	})
	if err != nil {
		return nil, fmt.Errorf("query question banks: %w", err)
	}
	defer rows.Close()

	banks := []ir.QuestionBank{}
	for rows.Next() {
		var b ir.QuestionBank
		if err := rows.Scan(&b.ID, &b.Name, &b.VariableName, &b.Active); err != nil {
			return nil, fmt.Errorf("scan question bank: %w", err)
		}
		banks = append(banks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question banks: %w", err)
	}
	return banks, nil
}

// ListQuestionnaireLines returns a project's lines ordered by sort order,
// then id.
func (s *Store) ListQuestionnaireLines(ctx context.Context, projectID string, scope ir.LineScope) ([]ir.QuestionnaireLine, error) {
	preds := []queryir.Predicate{queryir.Equals{Field: "project_id", Value: projectID}}
	if scope == ir.ScopeActive {
		preds = append(preds, queryir.Equals{Field: "active", Value: true})
	}

	rows, err := s.query(ctx, queryir.Select{
		From:    "questionnaire_lines",
		Columns: []string{"id", "project_id", "question_bank_id", "module_id", "sort_order", "variable_name", "text", "active"},
		Filter:  queryir.Where(preds...),
		OrderBy: []string{"sort_order"},
	})
	if err != nil {
		return nil, fmt.Errorf("query questionnaire lines: %w", err)
	}
	defer rows.Close()

	lines := []ir.QuestionnaireLine{}
	for rows.Next() {
		var l ir.QuestionnaireLine
		var bankID, moduleID sql.NullString
		if err := rows.Scan(&l.ID, &l.ProjectID, &bankID, &moduleID, &l.SortOrder, &l.VariableName, &l.Text, &l.Active); err != nil {
			return nil, fmt.Errorf("scan questionnaire line: %w", err)
		}
		l.QuestionBankID = bankID.String
		l.ModuleID = moduleID.String
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questionnaire lines: %w", err)
	}
	return lines, nil
}
