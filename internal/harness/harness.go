package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/journal"
	"github.com/roach88/lineage/internal/manifest"
	"github.com/roach88/lineage/internal/store"
	"github.com/roach88/lineage/internal/testutil"
)

// BaseBinding is the name the scenario's root class is bound to.
const BaseBinding = "base"

// Harness is the state of one scenario execution.
type Harness struct {
	store     *store.Store
	set       *manifest.Set
	hierarchy *lineage.Hierarchy
	recorder  *journal.Recorder
	logger    *slog.Logger

	bindings map[string]*lineage.Class
	current  *lineage.Class
}

// Option configures Run.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger for step diagnostics and the engine. Defaults to
// a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database and a fresh Hierarchy.
// Execution flow:
//  1. Load and build the manifest
//  2. Start a journal run with a fixed token and deterministic clock
//  3. Execute steps, checking each step's expectation
//  4. Read the journal back from the store as the trace
//  5. Evaluate assertions
//
// Step and assertion failures are reported in the Result. An error is
// returned only when the scenario cannot be executed at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{logger: testutil.DiscardLogger()}
	for _, opt := range opts {
		opt(cfg)
	}

	m, errs := manifest.Load(scenario.Manifest, manifest.LoadModeCollectAll)
	if len(errs) > 0 {
		return nil, fmt.Errorf("load manifest %s: %w", scenario.Manifest, errs[0])
	}
	set, err := manifest.Build(m)
	if err != nil {
		return nil, fmt.Errorf("build manifest %s: %w", scenario.Manifest, err)
	}
	digest, err := m.Digest()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	run := journal.NewRun(testutil.NewFixedTokenGenerator(scenario.RunToken), m.Dir, digest)
	rec, err := journal.NewRecorder(ctx, st, run,
		journal.WithClock(testutil.NewDeterministicClock()),
		journal.WithLabeler(set.Label),
		journal.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	hierarchy := lineage.NewHierarchy(
		lineage.WithLogger(cfg.logger),
		lineage.WithObserver(rec),
	)
	base, err := set.NewClass(hierarchy, scenario.Class)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:     st,
		set:       set,
		hierarchy: hierarchy,
		recorder:  rec,
		logger:    cfg.logger,
		bindings:  map[string]*lineage.Class{BaseBinding: base},
		current:   base,
	}

	result := NewResult()
	result.RunToken = run.Token

	if err := h.executeSteps(scenario.Steps, result); err != nil {
		return nil, err
	}

	if err := rec.Err(); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	events, err := st.ReadEvents(ctx, run.Token)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	for _, ev := range events {
		result.Trace = append(result.Trace, traceEvent(ev))
	}

	for _, msg := range h.evaluateAssertions(scenario.Assertions, result.Trace) {
		result.AddError(msg)
	}

	return result, nil
}

// executeSteps runs all steps in order. Unknown bindings or extension ids are
// scenario errors and abort the run.
func (h *Harness) executeSteps(steps []Step, result *Result) error {
	for i, step := range steps {
		from := h.current
		if step.From != "" {
			cls, ok := h.bindings[step.From]
			if !ok {
				return fmt.Errorf("steps[%d]: unknown class binding %q", i, step.From)
			}
			from = cls
		}

		if step.Subclass != "" {
			cls := from.Subclass(step.Subclass)
			h.bind(step.As, cls)
			h.logger.Debug("step subclassed", "step", i, "class", cls.String())
			continue
		}

		ext, ok := h.set.Extension(step.Extend)
		if !ok {
			return fmt.Errorf("steps[%d]: unknown extension %q", i, step.Extend)
		}

		var opts []lineage.ExtendOption
		if step.Version != "" {
			opts = append(opts, lineage.WithVersion(step.Version))
		}

		got, err := from.Extend(ext, opts...)
		if msg := h.checkStep(i, step, got, err); msg != "" {
			result.AddError(msg)
		}
		if err != nil {
			continue
		}

		h.bind(step.As, got)
		h.logger.Debug("step extended",
			"step", i,
			"extension", step.Extend,
			"from", from.String(),
			"result", got.String())
	}
	return nil
}

func (h *Harness) bind(name string, cls *lineage.Class) {
	h.current = cls
	if name != "" {
		h.bindings[name] = cls
	}
}

// checkStep compares a step's outcome with its expectation and returns a
// failure message, or "" if it matched.
func (h *Harness) checkStep(i int, step Step, got *lineage.Class, err error) string {
	var want Expect
	if step.Expect != nil {
		want = *step.Expect
	}

	if want.Error != "" {
		if err == nil {
			return fmt.Sprintf("steps[%d] (%s): expected %s error, got class %s", i, step.Extend, want.Error, got)
		}
		if kind := ErrorKind(err); kind != want.Error {
			return fmt.Sprintf("steps[%d] (%s): expected %s error, got %s: %v", i, step.Extend, want.Error, kind, err)
		}
		return ""
	}

	if err != nil {
		return fmt.Sprintf("steps[%d] (%s): unexpected error: %v", i, step.Extend, err)
	}

	if want.SameAs != "" {
		other, ok := h.bindings[want.SameAs]
		if !ok {
			return fmt.Sprintf("steps[%d] (%s): unknown class binding %q", i, step.Extend, want.SameAs)
		}
		if got != other {
			return fmt.Sprintf("steps[%d] (%s): expected same class as %s (%s), got %s", i, step.Extend, want.SameAs, other, got)
		}
	}
	return ""
}

// ErrorKind classifies an Extend error for expect.error.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case lineage.IsContractError(err):
		return KindContract
	case lineage.IsVersionMismatch(err):
		return KindVersionMismatch
	case lineage.IsRangeUnsatisfied(err):
		return KindRangeUnsatisfied
	case lineage.IsValidationError(err):
		return KindValidation
	default:
		return "unknown"
	}
}

// labels returns the manifest ids of exts.
func (h *Harness) labels(exts []*lineage.Extension) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = h.set.Label(ext)
	}
	return out
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
