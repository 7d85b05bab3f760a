package lineage

// Outcome classifies how a single Extend call (or one of its recursive
// dependency applications) ended.
type Outcome string

const (
	// OutcomeApplied means the transformation ran and its result was stamped.
	OutcomeApplied Outcome = "applied"

	// OutcomeCached means the input class's cache already held a result.
	OutcomeCached Outcome = "cached"

	// OutcomeAlreadyApplied means the exact extension is in the lineage.
	OutcomeAlreadyApplied Outcome = "already_applied"

	// OutcomeNamedSatisfied means a compatible same-named extension is in
	// the lineage.
	OutcomeNamedSatisfied Outcome = "named_satisfied"

	// OutcomeConflict means a same-named extension with an incompatible
	// version is in the lineage.
	OutcomeConflict Outcome = "conflict"

	// OutcomeRejected means the transformation broke the subclass contract.
	OutcomeRejected Outcome = "rejected"
)

// Event describes one outcome of the extension engine.
type Event struct {
	// Class is the class the extension was applied to, after dependency
	// resolution.
	Class *Class

	// Result is the class returned. Nil for conflict and rejected.
	Result *Class

	Extension *Extension
	Outcome   Outcome

	// VersionRange is the caller's range, empty when none was given.
	VersionRange string

	// Err is set for conflict and rejected outcomes.
	Err error
}

// Observer receives engine events synchronously, after the side-table lock
// has been released.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }
