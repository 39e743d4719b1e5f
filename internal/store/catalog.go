package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// SaveCatalog upserts a compiled catalog in one transaction.
//
// Parent rows are upserted by id. Ordered children (module questions,
// answers, product questions, template lines, rule answers) are replaced
// wholesale for every parent present in the catalog. Projects declared as
// fixtures are upserted together with their selections; existing
// questionnaire lines are never touched.
func (s *Store) SaveCatalog(ctx context.Context, cat *ir.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save catalog: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	steps := []struct {
		name string
		fn   func(context.Context, *sql.Tx, *ir.Catalog) error
	}{
		{"question banks", s.saveQuestionBanks},
		{"modules", s.saveModules},
		{"configuration questions", s.saveConfigQuestions},
		{"products", s.saveProducts},
		{"templates", s.saveTemplates},
		{"rules", s.saveRules},
		{"projects", s.saveProjects},
	}
	for _, step := range steps {
		if err := step.fn(ctx, tx, cat); err != nil {
			return fmt.Errorf("save catalog: %s: %w", step.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save catalog: commit: %w", err)
	}
	return nil
}

func (s *Store) saveQuestionBanks(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, b := range cat.QuestionBanks {
		_, err := s.exec(ctx, tx, `
			INSERT INTO question_banks (id, name, variable_name, active)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				variable_name = excluded.variable_name,
				active = excluded.active
		`, b.ID, b.Name, b.VariableName, boolInt(b.Active))
		if err != nil {
			return fmt.Errorf("bank %s: %w", b.ID, err)
		}
	}
	return nil
}

func (s *Store) saveModules(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, m := range cat.Modules {
		_, err := s.exec(ctx, tx, `
			INSERT INTO modules (id, name, active)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, active = excluded.active
		`, m.ID, m.Name, boolInt(m.Active))
		if err != nil {
			return fmt.Errorf("module %s: %w", m.ID, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM module_questions WHERE module_id = ?`, m.ID); err != nil {
			return fmt.Errorf("module %s: clear questions: %w", m.ID, err)
		}
		for pos, bankID := range m.QuestionBankIDs {
			_, err := s.exec(ctx, tx, `
				INSERT INTO module_questions (module_id, position, question_bank_id)
				VALUES (?, ?, ?)
			`, m.ID, pos, bankID)
			if err != nil {
				return fmt.Errorf("module %s: question %s: %w", m.ID, bankID, err)
			}
		}
	}
	return nil
}

func (s *Store) saveConfigQuestions(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, q := range cat.ConfigQuestions {
		_, err := s.exec(ctx, tx, `
			INSERT INTO configuration_questions (id, name, coding_mode)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, coding_mode = excluded.coding_mode
		`, q.ID, q.Name, string(q.CodingMode))
		if err != nil {
			return fmt.Errorf("config question %s: %w", q.ID, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM configuration_answers WHERE question_id = ?`, q.ID); err != nil {
			return fmt.Errorf("config question %s: clear answers: %w", q.ID, err)
		}
		for pos, a := range q.Answers {
			_, err := s.exec(ctx, tx, `
				INSERT INTO configuration_answers (id, question_id, position, name)
				VALUES (?, ?, ?, ?)
			`, a.ID, q.ID, pos, a.Name)
			if err != nil {
				return fmt.Errorf("config question %s: answer %s: %w", q.ID, a.ID, err)
			}
		}
	}
	return nil
}

func (s *Store) saveProducts(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, p := range cat.Products {
		_, err := s.exec(ctx, tx, `
			INSERT INTO products (id, name)
			VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, p.ID, p.Name)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.ID, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM product_config_questions WHERE product_id = ?`, p.ID); err != nil {
			return fmt.Errorf("product %s: clear questions: %w", p.ID, err)
		}
		for pos, qid := range p.ConfigQuestionIDs {
			_, err := s.exec(ctx, tx, `
				INSERT INTO product_config_questions (product_id, position, question_id)
				VALUES (?, ?, ?)
			`, p.ID, pos, qid)
			if err != nil {
				return fmt.Errorf("product %s: question %s: %w", p.ID, qid, err)
			}
		}
	}
	return nil
}

func (s *Store) saveTemplates(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, t := range cat.Templates {
		_, err := s.exec(ctx, tx, `
			INSERT INTO product_templates (id, product_id, name)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET product_id = excluded.product_id, name = excluded.name
		`, t.ID, t.ProductID, t.Name)
		if err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM template_lines WHERE template_id = ?`, t.ID); err != nil {
			return fmt.Errorf("template %s: clear lines: %w", t.ID, err)
		}
		for _, l := range t.Lines {
			_, err := s.exec(ctx, tx, `
				INSERT INTO template_lines (template_id, position, target_kind, target_id, include_by_default)
				VALUES (?, ?, ?, ?, ?)
			`, t.ID, l.Position, string(l.Target.Kind), l.Target.ID, boolInt(l.IncludeByDefault))
			if err != nil {
				return fmt.Errorf("template %s: line %d: %w", t.ID, l.Position, err)
			}
		}
	}
	return nil
}

func (s *Store) saveRules(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, r := range cat.Rules {
		_, err := s.exec(ctx, tx, `
			INSERT INTO dependency_rules (id, seq, source_question_id, effect, target_kind, target_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				seq = excluded.seq,
				source_question_id = excluded.source_question_id,
				effect = excluded.effect,
				target_kind = excluded.target_kind,
				target_id = excluded.target_id
		`, r.ID, r.Seq, r.SourceQuestionID, string(r.Effect), string(r.Target.Kind), r.Target.ID)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM rule_answers WHERE rule_id = ?`, r.ID); err != nil {
			return fmt.Errorf("rule %s: clear answers: %w", r.ID, err)
		}
		for pos, answerID := range r.RequiredAnswerIDs {
			_, err := s.exec(ctx, tx, `
				INSERT INTO rule_answers (rule_id, position, answer_id)
				VALUES (?, ?, ?)
			`, r.ID, pos, answerID)
			if err != nil {
				return fmt.Errorf("rule %s: answer %s: %w", r.ID, answerID, err)
			}
		}
	}
	return nil
}

func (s *Store) saveProjects(ctx context.Context, tx *sql.Tx, cat *ir.Catalog) error {
	for _, f := range cat.Projects {
		p := f.Project
		_, err := s.exec(ctx, tx, `
			INSERT INTO projects (id, name, product_id, template_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				product_id = excluded.product_id,
				template_id = excluded.template_id
		`, p.ID, p.Name, p.ProductID, nullString(p.TemplateID))
		if err != nil {
			return fmt.Errorf("project %s: %w", p.ID, err)
		}

		selections := make([]ir.ProjectAnswerSelection, len(f.Selections))
		for i, sel := range f.Selections {
			sel.ProjectID = p.ID
			selections[i] = sel
		}
		if err := s.saveSelections(ctx, tx, selections); err != nil {
			return fmt.Errorf("project %s: %w", p.ID, err)
		}
	}
	return nil
}
