package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

// CreateLines inserts questionnaire lines.
//
// In ContinueOnError mode every line is written on its own and the returned
// outcomes report each result; the error return is reserved for failures
// that prevent the batch from running at all.
//
// In FailFast mode all lines are written in one transaction. At the first
// failing line the transaction is rolled back and CreateLines returns the
// outcomes up to and including the failing item together with an error.
func (s *Store) CreateLines(ctx context.Context, lines []ir.QuestionnaireLine, mode ir.BatchMode) ([]ir.ItemOutcome, error) {
	if mode == ir.FailFast {
		return s.createLinesTx(ctx, lines)
	}

	outcomes := make([]ir.ItemOutcome, len(lines))
	for i, line := range lines {
		outcomes[i] = ir.ItemOutcome{Index: i, ID: line.ID}
		if err := s.insertLine(ctx, s.db, line); err != nil {
			outcomes[i].Err = err
		}
	}
	return outcomes, nil
}

func (s *Store) createLinesTx(ctx context.Context, lines []ir.QuestionnaireLine) ([]ir.ItemOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create lines: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	outcomes := make([]ir.ItemOutcome, 0, len(lines))
	for i, line := range lines {
		outcome := ir.ItemOutcome{Index: i, ID: line.ID}
		if err := s.insertLine(ctx, tx, line); err != nil {
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			return outcomes, fmt.Errorf("create lines: item %d: %w", i, err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create lines: commit: %w", err)
	}
	return outcomes, nil
}

func (s *Store) insertLine(ctx context.Context, q execer, line ir.QuestionnaireLine) error {
	_, err := s.exec(ctx, q, `
		INSERT INTO questionnaire_lines
		(id, project_id, question_bank_id, module_id, sort_order, variable_name, normalized_variable_name, text, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		line.ID,
		line.ProjectID,
		nullString(line.QuestionBankID),
		nullString(line.ModuleID),
		line.SortOrder,
		line.VariableName,
		ir.NormalizeVariableName(line.VariableName),
		line.Text,
		boolInt(line.Active),
	)
	if err != nil {
		return fmt.Errorf("insert line %s: %w", line.ID, err)
	}
	return nil
}

// UpdateLines applies sort order and activity changes to existing lines.
// Batch modes behave as in CreateLines. Updating a missing line fails that
// item with ir.ErrNoRecord.
func (s *Store) UpdateLines(ctx context.Context, updates []ir.LineUpdate, mode ir.BatchMode) ([]ir.ItemOutcome, error) {
	if mode == ir.FailFast {
		return s.updateLinesTx(ctx, updates)
	}

	outcomes := make([]ir.ItemOutcome, len(updates))
	for i, u := range updates {
		outcomes[i] = ir.ItemOutcome{Index: i, ID: u.ID}
		if err := s.updateLine(ctx, s.db, u); err != nil {
			outcomes[i].Err = err
		}
	}
	return outcomes, nil
}

func (s *Store) updateLinesTx(ctx context.Context, updates []ir.LineUpdate) ([]ir.ItemOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update lines: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	outcomes := make([]ir.ItemOutcome, 0, len(updates))
	for i, u := range updates {
		outcome := ir.ItemOutcome{Index: i, ID: u.ID}
		if err := s.updateLine(ctx, tx, u); err != nil {
			outcome.Err = err
			outcomes = append(outcomes, outcome)
			return outcomes, fmt.Errorf("update lines: item %d: %w", i, err)
		}
		outcomes = append(outcomes, outcome)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update lines: commit: %w", err)
	}
	return outcomes, nil
}

func (s *Store) updateLine(ctx context.Context, q execer, u ir.LineUpdate) error {
	var sortOrder, active any
	if u.SortOrder != nil {
		sortOrder = *u.SortOrder
	}
	if u.Active != nil {
		active = boolInt(*u.Active)
	}

	result, err := s.exec(ctx, q, `
		UPDATE questionnaire_lines
		SET sort_order = COALESCE(?, sort_order),
		    active = COALESCE(?, active)
		WHERE id = ?
	`, sortOrder, active, u.ID)
	if err != nil {
		return fmt.Errorf("update line %s: %w", u.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update line %s: rows affected: %w", u.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update line %s: %w", u.ID, ir.ErrNoRecord)
	}
	return nil
}

// SaveSelections records answer selections. Existing rows for the same
// (project, question, answer) are overwritten.
func (s *Store) SaveSelections(ctx context.Context, selections []ir.ProjectAnswerSelection) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save selections: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := s.saveSelections(ctx, tx, selections); err != nil {
		return fmt.Errorf("save selections: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save selections: commit: %w", err)
	}
	return nil
}

func (s *Store) saveSelections(ctx context.Context, tx *sql.Tx, selections []ir.ProjectAnswerSelection) error {
	for _, sel := range selections {
		_, err := s.exec(ctx, tx, `
			INSERT INTO project_answer_selections (project_id, question_id, answer_id, selected)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(project_id, question_id, answer_id) DO UPDATE SET selected = excluded.selected
		`, sel.ProjectID, sel.QuestionID, sel.AnswerID, boolInt(sel.Selected))
		if err != nil {
			return fmt.Errorf("selection %s/%s/%s: %w", sel.ProjectID, sel.QuestionID, sel.AnswerID, err)
		}
	}
	return nil
}
