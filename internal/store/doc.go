// Package store provides SQLite-backed durable storage for extension
// application journals.
//
// The store is an append-only log with:
//   - Runs: one session of Extend calls against a manifest
//   - Events: one row per engine outcome within a run
//
// # Ordering
//
// All ordering uses the seq column (logical clock), never timestamps, and
// every query includes ORDER BY seq ASC, id ASC COLLATE BINARY so results are
// identical across reads.
//
// # Idempotency
//
// Event IDs are content-addressed (see internal/ir). Writes use
// ON CONFLICT DO NOTHING, so replaying a journal never duplicates rows.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
