package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

func executeTrace(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewTraceCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// journaledRun applies logging_v1 then audit to Widget, journaling into a
// fresh database. Returns the database path and run token.
func journaledRun(t *testing.T) (string, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "lineage.db")
	result := applyJSON(t, widgetsDir, "--class", "Widget",
		"--ext", "logging_v1", "--ext", "audit", "--db", dbPath)
	return dbPath, result.RunToken
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--run", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestTraceNonExistentDatabase(t *testing.T) {
	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", "/nonexistent/path/test.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestTraceListRunsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No runs found.\n", out)
}

func TestTraceListRuns(t *testing.T) {
	dbPath, token := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   []ir.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, token, resp.Data[0].Token)
	assert.Equal(t, widgetsDir, resp.Data[0].Manifest)
	assert.Equal(t, ir.EngineVersion, resp.Data[0].EngineVersion)
}

func TestTraceRunText(t *testing.T) {
	dbPath, token := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", token)
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Run: "+token)
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "  [1] applied logging_v1 on Widget#1 -> Widget+logging_v1#2\n")
	assert.Contains(t, out, "  [2] already_applied logging_v1 on Widget+logging_v1#2 -> Widget+logging_v1#2\n")
	assert.Contains(t, out, "  [3] applied audit on Widget+logging_v1#2 -> Widget+logging_v1+audit#3\n")
	assert.Contains(t, out, "=== Outcomes ===")
	assert.Contains(t, out, "applied:")
	assert.NotContains(t, out, "ID: ")
}

func TestTraceRunJSON(t *testing.T) {
	dbPath, token := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", dbPath, "--run", token)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, token, resp.Data.Run.Token)
	require.Len(t, resp.Data.Timeline, 3)
	assert.Equal(t, "^1.0.0", resp.Data.Timeline[1].VersionRange)
	assert.Equal(t, map[string]int{"applied": 2, "already_applied": 1}, resp.Data.Outcomes)

	for i, ev := range resp.Data.Timeline {
		assert.Equal(t, int64(i+1), ev.Seq)
		assert.Equal(t, ir.MustEventID(token, ev.Seq, ev.Outcome, ev.Class, ev.Extension), ev.ID)
	}
}

func TestTraceRunWithExtensionFilter(t *testing.T) {
	dbPath, token := journaledRun(t)

	out, err := executeTrace(t, &RootOptions{Format: "text", Verbose: true},
		"--db", dbPath, "--run", token, "--extension", "audit")
	require.NoError(t, err)

	assert.Contains(t, out, "applied audit on Widget+logging_v1#2")
	assert.NotContains(t, out, "applied logging_v1")
	assert.Contains(t, out, "ID: ")
	assert.Contains(t, out, "Manifest Digest: ")
}

func TestTraceRunNotFound(t *testing.T) {
	dbPath, _ := journaledRun(t)

	_, err := executeTrace(t, &RootOptions{Format: "text"}, "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestTraceExtensionHistory(t *testing.T) {
	dbPath, _ := journaledRun(t)

	// A second run over the same database.
	applyJSON(t, widgetsDir, "--class", "Widget", "--ext", "logging_v1", "--db", dbPath)

	out, err := executeTrace(t, &RootOptions{Format: "json"}, "--db", dbPath, "--extension", "logging_v1")
	require.NoError(t, err)

	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "logging_v1", resp.Data.Extension)
	assert.Len(t, resp.Data.Events, 3)
	for _, ev := range resp.Data.Events {
		assert.Equal(t, "logging_v1", ev.Extension)
	}
}

func TestFilterExtension(t *testing.T) {
	events := []ir.Event{{Extension: "a"}, {Extension: "b"}, {Extension: "a"}}

	assert.Equal(t, events, filterExtension(events, ""))
	assert.Len(t, filterExtension(events, "a"), 2)
	assert.Empty(t, filterExtension(events, "c"))
	assert.NotNil(t, filterExtension(events, "c"))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "0123456789ab...", truncateID("0123456789abcdef"))
}
