// Package journal records extension engine outcomes into the store.
//
// A Recorder is a lineage.Observer: attach it to a Hierarchy with
// lineage.WithObserver and every Extend outcome (including those of
// recursively applied dependencies) becomes one row in the run's journal.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/ir"
	"github.com/roach88/lineage/internal/store"
)

// Labeler names an extension in the journal. The default is
// (*lineage.Extension).Label.
type Labeler func(*lineage.Extension) string

// Recorder journals lineage events for a single run.
//
// Observe never fails: the first write error is kept and reported by Err,
// and later events are still collected in memory.
type Recorder struct {
	ctx     context.Context
	store   *store.Store
	run     ir.Run
	clock   Sequencer
	labeler Labeler
	logger  *slog.Logger

	mu     sync.Mutex
	events []ir.Event
	err    error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the sequencer used to stamp events. Defaults to a new Clock.
func WithClock(clock Sequencer) RecorderOption {
	return func(r *Recorder) {
		r.clock = clock
	}
}

// WithLabeler sets how extensions are named in the journal.
func WithLabeler(labeler Labeler) RecorderOption {
	return func(r *Recorder) {
		r.labeler = labeler
	}
}

// WithLogger sets the logger for write failures.
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRun builds a run record with a fresh token.
func NewRun(gen TokenGenerator, manifest, manifestDigest string) ir.Run {
	return ir.Run{
		Token:          gen.Generate(),
		Manifest:       manifest,
		ManifestDigest: manifestDigest,
		EngineVersion:  ir.EngineVersion,
		SchemaVersion:  ir.SchemaVersion,
	}
}

// NewRecorder writes run to st and returns a Recorder appending to it.
// st may be nil, in which case events are only kept in memory.
func NewRecorder(ctx context.Context, st *store.Store, run ir.Run, opts ...RecorderOption) (*Recorder, error) {
	if run.Token == "" {
		return nil, errors.New("run token is required")
	}

	r := &Recorder{
		ctx:     ctx,
		store:   st,
		run:     run,
		clock:   NewClock(),
		labeler: (*lineage.Extension).Label,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		events:  []ir.Event{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if st != nil {
		if err := st.WriteRun(ctx, run); err != nil {
			return nil, fmt.Errorf("start run %s: %w", run.Token, err)
		}
	}
	return r, nil
}

// Run returns the run being recorded.
func (r *Recorder) Run() ir.Run { return r.run }

// Observe implements lineage.Observer.
func (r *Recorder) Observe(e lineage.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, err := r.toEvent(e)
	if err == nil && r.store != nil {
		err = r.store.WriteEvent(r.ctx, ev)
	}
	if err != nil {
		r.logger.Error("failed to journal event",
			"run", r.run.Token,
			"seq", ev.Seq,
			"outcome", string(e.Outcome),
			"error", err)
		if r.err == nil {
			r.err = err
		}
	}
	r.events = append(r.events, ev)
}

// Events returns the events observed so far, in order.
func (r *Recorder) Events() []ir.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ir.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Err returns the first error encountered while journaling.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// toEvent converts an engine event. Caller must hold r.mu so that seq order
// matches observation order.
func (r *Recorder) toEvent(e lineage.Event) (ir.Event, error) {
	label := r.labeler(e.Extension)

	ev := ir.Event{
		RunToken:     r.run.Token,
		Seq:          r.clock.Next(),
		Outcome:      string(e.Outcome),
		Class:        e.Class.String(),
		Extension:    label,
		VersionRange: e.VersionRange,
	}
	if e.Result != nil {
		ev.Result = e.Result.String()
	}

	var re *lineage.RuntimeError
	if errors.As(e.Err, &re) {
		ev.ErrorCode = string(re.Code)
		ev.Error = re.Message
		if len(re.Details) > 0 {
			ev.Details = ir.StringMap(re.Details)
		}
	} else if e.Err != nil {
		ev.Error = e.Err.Error()
	}

	digest, err := ir.ExtensionDigest(Record(e.Extension, r.labeler))
	if err != nil {
		return ev, err
	}
	ev.ExtensionDigest = digest

	id, err := ir.EventID(ev.RunToken, ev.Seq, ev.Outcome, ev.Class, ev.Extension)
	if err != nil {
		return ev, err
	}
	ev.ID = id
	return ev, nil
}

// Record builds the journal view of ext, naming it and its direct
// dependencies with labeler.
func Record(ext *lineage.Extension, labeler Labeler) ir.ExtensionRecord {
	if labeler == nil {
		labeler = (*lineage.Extension).Label
	}

	rec := ir.ExtensionRecord{
		Label:        labeler(ext),
		Name:         ext.Name(),
		Version:      ext.Version(),
		Extends:      []string{},
		Dependencies: ext.Dependencies(),
	}
	for _, dep := range ext.Extends() {
		rec.Extends = append(rec.Extends, labeler(dep))
	}
	return rec
}
