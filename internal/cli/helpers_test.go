package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	studyCatalog   = "testdata/catalog"
	invalidCatalog = "testdata/invalid"
)

// execute runs studyctl with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// loadedDB returns a fresh database with the study catalog loaded.
func loadedDB(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "study.db")
	_, err := execute(t, "load", "--db", db, studyCatalog)
	require.NoError(t, err)
	return db
}

type jsonResponse[T any] struct {
	Status    string    `json:"status"`
	Data      T         `json:"data"`
	Error     *CLIError `json:"error"`
	RequestID string    `json:"request_id"`
}

func decodeResponse[T any](t *testing.T, out string) jsonResponse[T] {
	t.Helper()
	var resp jsonResponse[T]
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
