package store

import (
	"context"
	"fmt"

	"github.com/roach88/lineage/internal/ir"
)

// WriteRun inserts a run record.
// Uses ON CONFLICT(token) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, run ir.Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(token, manifest, manifest_digest, engine_version, schema_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		run.Token,
		run.Manifest,
		run.ManifestDigest,
		run.EngineVersion,
		run.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteEvent inserts an event record.
// Uses ON CONFLICT DO NOTHING for idempotency - rewriting an event with the
// same ID (or the same run and seq) is silently ignored.
//
// The run referenced by RunToken must exist (foreign key constraint).
func (s *Store) WriteEvent(ctx context.Context, ev ir.Event) error {
	details, err := marshalDetails(ev.Details)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, run_token, seq, outcome, class, result, extension, extension_digest,
		 version_range, error_code, error, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.ID,
		ev.RunToken,
		ev.Seq,
		ev.Outcome,
		ev.Class,
		ev.Result,
		ev.Extension,
		ev.ExtensionDigest,
		ev.VersionRange,
		ev.ErrorCode,
		ev.Error,
		details,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}
