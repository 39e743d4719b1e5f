package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdias/poc-study-designer-sub003/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	query := queryir.Select{
		From:    "question_banks",
		Columns: []string{"id", "name"},
		Filter:  queryir.Equals{Field: "variable_name", Value: "AGE"},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, name FROM question_banks WHERE variable_name = ? ORDER BY id ASC COLLATE BINARY",
		sql)

	// Verify parameterized query (no interpolation)
	assert.NotContains(t, sql, "AGE")
	assert.Equal(t, []any{"AGE"}, params)
}

func TestCompile_OrderByWithTieBreak(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(&queryir.Select{
		From:    "questionnaire_lines",
		Columns: []string{"id", "sort_order"},
		Filter: queryir.Where(
			queryir.Equals{Field: "project_id", Value: "P1"},
			queryir.Equals{Field: "active", Value: true},
		),
		OrderBy: []string{"sort_order"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, sort_order FROM questionnaire_lines WHERE project_id = ? AND active = ? ORDER BY sort_order ASC, id ASC COLLATE BINARY",
		sql)
	assert.Equal(t, []any{"P1", 1}, params, "bools are stored as integers")
}

func TestCompile_CustomTieBreak(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, _, err := compiler.Compile(queryir.Select{
		From:     "template_lines",
		Columns:  []string{"template_id", "position"},
		OrderBy:  []string{"position"},
		TieBreak: "template_id",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT template_id, position FROM template_lines ORDER BY position ASC, template_id ASC COLLATE BINARY",
		sql)
}

func TestCompile_TieBreakNotDuplicated(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, _, err := compiler.Compile(queryir.Select{
		From:    "modules",
		Columns: []string{"id"},
		OrderBy: []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM modules ORDER BY id ASC COLLATE BINARY", sql)
}

func TestCompile_In(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "dependency_rules",
		Columns: []string{"id"},
		Filter:  queryir.In{Field: "source_question_id", Values: []any{"genre", "gender"}},
		OrderBy: []string{"seq"},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE source_question_id IN (?, ?)")
	assert.Equal(t, []any{"genre", "gender"}, params)
}

func TestCompile_EmptyInMatchesNothing(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "dependency_rules",
		Columns: []string{"id"},
		Filter:  queryir.In{Field: "source_question_id"},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE 1 = 0")
	assert.Empty(t, params)
}

func TestCompile_NestedAndIsParenthesized(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "questionnaire_lines",
		Columns: []string{"id"},
		Filter: queryir.Where(
			queryir.Equals{Field: "project_id", Value: "P1"},
			queryir.Where(queryir.IsNull{Field: "question_bank_id"}, queryir.Equals{Field: "active", Value: false}),
		),
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE project_id = ? AND (question_bank_id IS NULL AND active = ?)")
	assert.Equal(t, []any{"P1", 0}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	sql, _, err := compiler.Compile(queryir.Select{
		From:    "modules",
		Columns: []string{"id"},
		Filter:  queryir.And{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
}

func TestCompile_Postgres(t *testing.T) {
	compiler := NewSQLCompiler(Postgres)

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "questionnaire_lines",
		Columns: []string{"id"},
		Filter: queryir.Where(
			queryir.Equals{Field: "project_id", Value: "P1"},
			queryir.In{Field: "question_bank_id", Values: []any{"Q1", "Q2"}},
		),
		OrderBy: []string{"sort_order"},
	})
	require.NoError(t, err)

	assert.Equal(t,
		`SELECT id FROM questionnaire_lines WHERE project_id = $1 AND question_bank_id IN ($2, $3) ORDER BY sort_order ASC, id ASC COLLATE "C"`,
		sql)
	assert.Equal(t, []any{"P1", "Q1", "Q2"}, params)
}

func TestCompile_InvalidQuery(t *testing.T) {
	compiler := NewSQLCompiler(SQLite)

	_, _, err := compiler.Compile(queryir.Select{From: "x y", Columns: []string{"id"}})
	require.Error(t, err)

	var verr *queryir.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, "UPDATE t SET a = ? WHERE id = ?", "UPDATE t SET a = ? WHERE id = ?"},
		{"postgres numbered", Postgres, "UPDATE t SET a = ? WHERE id = ?", "UPDATE t SET a = $1 WHERE id = $2"},
		{"quoted mark kept", Postgres, "SELECT '?' FROM t WHERE id = ?", "SELECT '?' FROM t WHERE id = $1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.in))
		})
	}
}

func TestDialectString(t *testing.T) {
	assert.Equal(t, "sqlite", SQLite.String())
	assert.Equal(t, "postgres", Postgres.String())
	assert.Equal(t, "unknown", Dialect(9).String())
}
