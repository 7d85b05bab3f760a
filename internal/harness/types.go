package harness

import "github.com/roach88/lineage/internal/ir"

// TraceEvent is the journal view of one engine outcome, without the
// content-addressed fields that golden files should not depend on.
type TraceEvent struct {
	Seq          int64  `json:"seq"`
	Outcome      string `json:"outcome"`
	Class        string `json:"class"`
	Result       string `json:"result,omitempty"`
	Extension    string `json:"extension"`
	VersionRange string `json:"version_range,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
}

func traceEvent(ev ir.Event) TraceEvent {
	return TraceEvent{
		Seq:          ev.Seq,
		Outcome:      ev.Outcome,
		Class:        ev.Class,
		Result:       ev.Result,
		Extension:    ev.Extension,
		VersionRange: ev.VersionRange,
		ErrorCode:    ev.ErrorCode,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// RunToken is the journal run the trace was read from.
	RunToken string `json:"run_token"`

	// Trace is the journal, in seq order, as read back from the store.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
