package cli

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvdias/poc-study-designer-sub003/internal/engine"
	"github.com/tvdias/poc-study-designer-sub003/internal/ir"
)

func resolvedIDs(res engine.Resolution) []string {
	ids := make([]string, len(res.Questions))
	for i, q := range res.Questions {
		ids[i] = q.QuestionID
	}
	return ids
}

func lineSummary(lines []ir.QuestionnaireLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.VariableName + "@" + strconv.Itoa(l.SortOrder)
	}
	return out
}

func listLines(t *testing.T, db string, extra ...string) []ir.QuestionnaireLine {
	t.Helper()
	args := append([]string{"--format", "json", "lines", "--db", db, "P1"}, extra...)
	out, err := execute(t, args...)
	require.NoError(t, err)
	return decodeResponse[[]ir.QuestionnaireLine](t, out).Data
}

func TestResolve(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "--format", "json", "resolve", "--db", db, "P1")
	require.NoError(t, err)

	resp := decodeResponse[engine.Resolution](t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"AGE", "GENDER", "A"}, resolvedIDs(resp.Data))
	assert.Equal(t, []string{"ROCK_A"}, resp.Data.FiredRules)
	assert.Equal(t, "DEMO", resp.Data.Questions[0].ModuleID)

	text, err := execute(t, "resolve", "--db", db, "P1")
	require.NoError(t, err)
	assert.Contains(t, text, "Template BASE for project P1: 3 question(s)")
	assert.Contains(t, text, "1. AGE  Age [DEMO]")
	assert.Contains(t, text, "Fired rules: ROCK_A")
}

func TestResolve_Errors(t *testing.T) {
	db := loadedDB(t)

	tests := []struct {
		project string
		reason  string
	}{
		{"P2", string(engine.ReasonTemplateNotAssigned)},
		{"P9", string(engine.ReasonProjectNotFound)},
	}
	for _, tt := range tests {
		t.Run(tt.project, func(t *testing.T) {
			out, err := execute(t, "--format", "json", "resolve", "--db", db, tt.project)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "NOT_FOUND", resp.Error.Code)
			details := resp.Error.Details.(map[string]any)
			assert.Equal(t, tt.reason, details["reason"])
		})
	}
}

func TestSelectThenResolve(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "--format", "json", "select", "--db", db, "P1", "music_genre", "rock", "pop")
	require.NoError(t, err)
	sel := decodeResponse[SelectResult](t, out)
	assert.Equal(t, []string{"rock", "pop"}, sel.Data.Selected)

	out, err = execute(t, "--format", "json", "resolve", "--db", db, "P1")
	require.NoError(t, err)
	resp := decodeResponse[engine.Resolution](t, out)
	assert.Equal(t, []string{"AGE", "GENDER", "A", "B"}, resolvedIDs(resp.Data))

	// Jazz excludes A again.
	_, err = execute(t, "select", "--db", db, "P1", "music_genre", "rock", "jazz")
	require.NoError(t, err)
	out, err = execute(t, "--format", "json", "resolve", "--db", db, "P1")
	require.NoError(t, err)
	resp = decodeResponse[engine.Resolution](t, out)
	assert.Equal(t, []string{"AGE", "GENDER"}, resolvedIDs(resp.Data))
	assert.Equal(t, []string{"ROCK_A", "JAZZ_NO_A"}, resp.Data.FiredRules)
}

func TestSelect_Rejections(t *testing.T) {
	db := loadedDB(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown project", []string{"P9", "music_genre", "rock"}, "Project 'P9' not found."},
		{"unknown question", []string{"P1", "mood", "happy"}, "Configuration question 'mood' is not part of product 'MUSIC'."},
		{"foreign answer", []string{"P1", "music_genre", "north"}, "Answers north do not belong to 'music_genre'."},
		{"single coded", []string{"P1", "region", "north", "south"}, "'region' is SingleCoded; select at most one answer."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "select", "--db", db}, tt.args...)
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, "VALIDATION", resp.Error.Code)
			assert.Equal(t, tt.want, resp.Error.Message)
		})
	}
}

func TestSelect_Clear(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "select", "--db", db, "P1", "music_genre")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ P1.music_genre = []")

	out, err = execute(t, "--format", "json", "resolve", "--db", db, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"AGE", "GENDER"}, resolvedIDs(decodeResponse[engine.Resolution](t, out).Data))
}

func TestApply(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "--format", "json", "apply", "--db", db, "P1")
	require.NoError(t, err)
	resp := decodeResponse[engine.ApplyResult](t, out)
	require.Len(t, resp.Data.Applied, 3)
	assert.Equal(t, "AGE", resp.Data.Applied[0].QuestionID)

	assert.Equal(t, []string{"AGE@1", "GENDER@2", "A@3"}, lineSummary(listLines(t, db)))

	out, err = execute(t, "apply", "--db", db, "P1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [VALIDATION]: Question 'Age' already exists in the Project.")
}

func TestAdd_InsertAndDisplace(t *testing.T) {
	db := loadedDB(t)
	_, err := execute(t, "apply", "--db", db, "P1")
	require.NoError(t, err)

	out, err := execute(t, "add", "--db", db, "P1", "--ids", "B", "--sort-order", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Added 1 line(s) at 2, moved 2")

	assert.Equal(t, []string{"AGE@1", "B@2", "GENDER@3", "A@4"}, lineSummary(listLines(t, db)))
}

func TestAdd_Rejections(t *testing.T) {
	db := loadedDB(t)
	_, err := execute(t, "apply", "--db", db, "P1")
	require.NoError(t, err)

	tests := []struct {
		name   string
		args   []string
		code   string
		reason engine.ErrorReason
	}{
		{"duplicate module", []string{"--kind", "Module", "--ids", "DEMO"}, "VALIDATION", engine.ReasonDuplicateModule},
		{"unknown question", []string{"--ids", "NOPE"}, "NOT_FOUND", engine.ReasonTargetNotFound},
		{"bad sort order", []string{"--ids", "B", "--sort-order=-5"}, "VALIDATION", engine.ReasonInvalidSortOrder},
		{"bad kind", []string{"--kind", "Section", "--ids", "B"}, "VALIDATION", engine.ReasonInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--format", "json", "add", "--db", db, "P1"}, tt.args...)
			out, err := execute(t, args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))

			resp := decodeResponse[any](t, out)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, string(tt.reason), resp.Error.Details.(map[string]any)["reason"])
		})
	}

	assert.Equal(t, []string{"AGE@1", "GENDER@2", "A@3"}, lineSummary(listLines(t, db)))
}

func TestAdd_RequiresIDs(t *testing.T) {
	_, err := execute(t, "add", "--db", loadedDB(t), "P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "ids" not set`)
}

func TestCustomAndLineLifecycle(t *testing.T) {
	db := loadedDB(t)
	_, err := execute(t, "apply", "--db", db, "P1")
	require.NoError(t, err)

	out, err := execute(t, "custom", "--db", db, "P1", "OPEN", "--text", "Anything else?")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Added 1 line(s) at 4")

	out, err = execute(t, "--format", "json", "custom", "--db", db, "P1", " open ")
	require.Error(t, err)
	resp := decodeResponse[any](t, out)
	assert.Equal(t, string(engine.ReasonDuplicateCustomQuestion), resp.Error.Details.(map[string]any)["reason"])

	lines := listLines(t, db)
	require.Len(t, lines, 4)
	custom := lines[3]
	assert.True(t, custom.IsCustom())
	assert.Equal(t, "Anything else?", custom.Text)
	gender := lines[1]

	out, err = execute(t, "deactivate", "--db", db, "P1", gender.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ GENDER deactivated at 2")
	assert.Equal(t, []string{"AGE@1", "A@3", "OPEN@4"}, lineSummary(listLines(t, db)))
	assert.Len(t, listLines(t, db, "--all"), 4)

	text, err := execute(t, "lines", "--db", db, "P1", "--all")
	require.NoError(t, err)
	assert.Contains(t, text, "SORT")
	assert.Contains(t, text, "inactive")
	assert.Contains(t, text, "(custom)")

	out, err = execute(t, "--format", "json", "reactivate", "--db", db, "P1", gender.ID)
	require.NoError(t, err)
	line := decodeResponse[ir.QuestionnaireLine](t, out).Data
	assert.True(t, line.Active)
	assert.Equal(t, 2, line.SortOrder)

	_, err = execute(t, "deactivate", "--db", db, "P1", "missing-line")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestLines_Empty(t *testing.T) {
	out, err := execute(t, "lines", "--db", loadedDB(t), "P1")
	require.NoError(t, err)
	assert.Contains(t, out, "No lines.")
}

func TestLines_UnknownProject(t *testing.T) {
	db := loadedDB(t)

	for _, extra := range [][]string{nil, {"--all"}} {
		args := append([]string{"--format", "json", "lines", "--db", db, "P9"}, extra...)
		out, err := execute(t, args...)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		resp := decodeResponse[any](t, out)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, string(engine.ReasonProjectNotFound), resp.Error.Details.(map[string]any)["reason"])
	}
}
