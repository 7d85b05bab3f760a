// Package ir provides the canonical record types shared by the lineage
// tooling: journal runs and events, extension fingerprints, and the
// constrained value model they are hashed from.
//
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
