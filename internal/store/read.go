package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/lineage/internal/ir"
)

const eventColumns = `id, run_token, seq, outcome, class, result, extension, extension_digest,
	version_range, error_code, error, details`

// ReadRun retrieves a single run by token.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, token string) (ir.Run, error) {
	var run ir.Run
	err := s.db.QueryRowContext(ctx, `
		SELECT token, manifest, manifest_digest, engine_version, schema_version
		FROM runs
		WHERE token = ?
	`, token).Scan(&run.Token, &run.Manifest, &run.ManifestDigest, &run.EngineVersion, &run.SchemaVersion)
	if err != nil {
		return ir.Run{}, err
	}
	return run, nil
}

// ListRuns returns every run, ordered by token.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListRuns(ctx context.Context) ([]ir.Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, manifest, manifest_digest, engine_version, schema_version
		FROM runs
		ORDER BY token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []ir.Run{}
	for rows.Next() {
		var run ir.Run
		if err := rows.Scan(&run.Token, &run.Manifest, &run.ManifestDigest, &run.EngineVersion, &run.SchemaVersion); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns all events for a run.
// Results are ordered deterministically: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if no events exist for the run.
func (s *Store) ReadEvents(ctx context.Context, runToken string) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE run_token = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, runToken)
}

// ReadExtensionHistory returns every event for the given extension label
// across all runs, in (run, seq) order.
func (s *Store) ReadExtensionHistory(ctx context.Context, extension string) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE extension = ?
		ORDER BY run_token COLLATE BINARY ASC, seq ASC, id COLLATE BINARY ASC
	`, extension)
}

// ReadEvent retrieves a single event by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvent(ctx context.Context, id string) (ir.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE id = ?
	`, id)
	return scanEvent(row)
}

// CountOutcomes returns how many events of each outcome a run recorded.
func (s *Store) CountOutcomes(ctx context.Context, runToken string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*)
		FROM events
		WHERE run_token = ?
		GROUP BY outcome
		ORDER BY outcome COLLATE BINARY ASC
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		counts[outcome] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return counts, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (ir.Event, error) {
	var ev ir.Event
	var details string
	err := row.Scan(
		&ev.ID,
		&ev.RunToken,
		&ev.Seq,
		&ev.Outcome,
		&ev.Class,
		&ev.Result,
		&ev.Extension,
		&ev.ExtensionDigest,
		&ev.VersionRange,
		&ev.ErrorCode,
		&ev.Error,
		&details,
	)
	if err == sql.ErrNoRows {
		return ir.Event{}, err
	}
	if err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}

	ev.Details, err = unmarshalDetails(details)
	if err != nil {
		return ir.Event{}, err
	}
	return ev, nil
}
