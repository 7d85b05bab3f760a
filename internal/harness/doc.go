// Package harness runs extension scenarios against a manifest.
//
// A scenario names a manifest directory and a class from it, applies
// extensions step by step through the real engine, journals every outcome
// into an in-memory store and then checks assertions about the resulting
// classes.
//
// # Scenario Format
//
//	name: diamond
//	description: "shared dependency is applied once"
//	manifest: ../manifests/widgets
//	class: Widget
//	run_token: run-diamond
//	steps:
//	  - extend: left
//	    as: with_left
//	  - extend: right
//	    as: both
//	  - extend: logging_v2
//	    from: base
//	    version: "^2.0.0"
//	    expect:
//	      same_as: base
//	  - subclass: Plain
//	    as: plain
//	assertions:
//	  - type: extensions
//	    class: both
//	    extensions: [shared, left, right]
//	  - type: init_count
//	    class: both
//	    extension: shared
//	    count: 1
//
// Each step extends (or plainly subclasses) the class bound to from, or the
// previous step's result when from is empty. The root class is bound to
// "base". A step with expect.error must fail with that kind of error; a step
// without it must succeed.
//
// # Assertion Types
//
//   - extensions: the class's extensions, by manifest id, in order
//   - directly_extended: IsDirectlyExtended equals expect
//   - extended_with: IsExtendedWith(extension) equals expect
//   - same_class: every class in classes is the same handle
//   - init_count: a new instance ran extension's constructor count times
//   - call: calling method on a new instance returns result
//   - outcome_count: the journal holds count events with outcome
//
// # Deterministic Testing
//
// Runs use a fixed run token (scenario.run_token or testutil.DefaultRunToken),
// a deterministic logical clock, a fresh Hierarchy and manifest ids as
// extension labels, so traces are identical across runs and can be compared
// with golden files.
package harness
