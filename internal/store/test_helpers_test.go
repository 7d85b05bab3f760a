package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/lineage/internal/ir"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun writes a run with minimal required fields.
func createTestRun(t *testing.T, s *Store, token string) ir.Run {
	t.Helper()
	run := ir.Run{
		Token:          token,
		Manifest:       "testdata/manifest",
		ManifestDigest: "test-digest",
		EngineVersion:  ir.EngineVersion,
		SchemaVersion:  ir.SchemaVersion,
	}
	if err := s.WriteRun(context.Background(), run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	return run
}

// createTestEvent creates an applied event with a content-addressed ID.
func createTestEvent(runToken string, seq int64, extension string) ir.Event {
	class := "Widget#1"
	return ir.Event{
		ID:              ir.MustEventID(runToken, seq, "applied", class, extension),
		RunToken:        runToken,
		Seq:             seq,
		Outcome:         "applied",
		Class:           class,
		Result:          "Sub#2",
		Extension:       extension,
		ExtensionDigest: "digest-" + extension,
	}
}
