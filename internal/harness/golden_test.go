package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	result := &Result{
		RunToken: "run-1",
		Trace: []TraceEvent{
			{Seq: 1, Outcome: "applied", Class: "A#1", Result: "A+x#2", Extension: "x"},
			{Seq: 2, Outcome: "conflict", Class: "A+x#2", Extension: "y", VersionRange: "^2.0.0", ErrorCode: "VERSION_RANGE_UNSATISFIED"},
		},
	}

	got, err := Snapshot("snap", result)
	require.NoError(t, err)

	want := `{"run_token":"run-1","scenario_name":"snap","trace":[` +
		`{"class":"A#1","extension":"x","outcome":"applied","result":"A+x#2","seq":1},` +
		`{"class":"A+x#2","error_code":"VERSION_RANGE_UNSATISFIED","extension":"y","outcome":"conflict","seq":2,"version_range":"^2.0.0"}]}`
	assert.Equal(t, want, string(got))
}

func TestSnapshot_EmptyTrace(t *testing.T) {
	got, err := Snapshot("empty", NewResult())
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"empty","trace":[]}`, string(got))
}
