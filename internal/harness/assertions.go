package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/lineage"
	"github.com/roach88/lineage/internal/manifest"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s on %s\n", event.Seq, event.Outcome, event.Extension, event.Class)
		}
	}

	return buf.String()
}

// evaluateAssertions evaluates all assertions and returns a message for each
// failure.
func (h *Harness) evaluateAssertions(assertions []Assertion, trace []TraceEvent) []string {
	var errs []string

	for i, a := range assertions {
		var err error
		if a.Type == AssertOutcomeCount {
			err = assertOutcomeCount(trace, a)
		} else {
			err = h.assertClass(i, a, trace)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// assertClass evaluates the assertions that inspect a bound class.
func (h *Harness) assertClass(index int, a Assertion, trace []TraceEvent) error {
	cls := h.current
	if a.Class != "" {
		bound, ok := h.bindings[a.Class]
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown class binding %q", index, a.Class)
		}
		cls = bound
	}

	switch a.Type {
	case AssertExtensions:
		got := h.labels(cls.Extensions())
		want := a.Extensions
		if want == nil {
			want = []string{}
		}
		if !slices.Equal(got, want) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s extensions %s", cls, formatList(want)),
				Actual:   formatList(got),
				Trace:    trace,
			}
		}

	case AssertDirectlyExtended:
		if got := cls.IsDirectlyExtended(); got != a.Expect {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s directly extended = %t", cls, a.Expect),
				Actual:   fmt.Sprintf("%t", got),
				Trace:    trace,
			}
		}

	case AssertExtendedWith:
		ext, ok := h.set.Extension(a.Extension)
		if !ok {
			return fmt.Errorf("assertions[%d]: unknown extension %q", index, a.Extension)
		}
		got, err := cls.IsExtendedWith(ext)
		if err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if got != a.Expect {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s extended with %s = %t", cls, a.Extension, a.Expect),
				Actual:   fmt.Sprintf("%t", got),
				Trace:    trace,
			}
		}

	case AssertSameClass:
		var first *lineage.Class
		for _, name := range a.Classes {
			bound, ok := h.bindings[name]
			if !ok {
				return fmt.Errorf("assertions[%d]: unknown class binding %q", index, name)
			}
			if first == nil {
				first = bound
				continue
			}
			if bound != first {
				return &AssertionError{
					Type:     a.Type,
					Expected: fmt.Sprintf("%s all the same class", formatList(a.Classes)),
					Actual:   fmt.Sprintf("%s is %s, %s is %s", a.Classes[0], first, name, bound),
				}
			}
		}

	case AssertInitCount:
		inst := cls.New()
		got := 0
		if v, ok := inst.Get(manifest.InitField(a.Extension)); ok {
			got, _ = v.(int)
		}
		if got != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s constructor ran %d times on new %s", a.Extension, a.Count, cls),
				Actual:   fmt.Sprintf("%d times", got),
			}
		}

	case AssertCall:
		got, err := cls.New().Call(a.Method)
		if err != nil {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s.%s() = %v", cls, a.Method, a.Result),
				Actual:   err.Error(),
			}
		}
		if fmt.Sprint(got) != fmt.Sprint(a.Result) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%s.%s() = %v", cls, a.Method, a.Result),
				Actual:   fmt.Sprint(got),
			}
		}

	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// assertOutcomeCount checks the journal holds exactly Count events with
// Outcome.
func assertOutcomeCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Outcome == a.Outcome {
			count++
		}
	}

	if count != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s events", a.Count, a.Outcome),
			Actual:   fmt.Sprintf("%d events", count),
			Trace:    trace,
		}
	}
	return nil
}
