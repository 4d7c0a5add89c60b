package store

import (
	"context"
	"fmt"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
)

// Session is one recorded playback run.
type Session struct {
	ID              string
	CompositionID   string
	CompositionHash string
	Group           string
	Mode            engine.Mode
	FPS             float64
	EngineVersion   string
	IRVersion       string

	// Composition is the resolved composition the session played.
	Composition *ir.Composition
}

// NewSession describes a session about to play comp on a timeline.
// The composition hash is computed if the composition does not carry one.
func NewSession(id string, comp *ir.Composition, group string, opts engine.TimelineOptions) (Session, error) {
	hash := comp.Hash
	if hash == "" {
		var err error
		if hash, err = ir.CompositionHash(comp); err != nil {
			return Session{}, fmt.Errorf("new session: %w", err)
		}
	}
	return Session{
		ID:              id,
		CompositionID:   comp.ID,
		CompositionHash: hash,
		Group:           group,
		Mode:            opts.Mode,
		FPS:             opts.FPS,
		EngineVersion:   ir.EngineVersion,
		IRVersion:       ir.IRVersion,
		Composition:     comp,
	}, nil
}

// WriteSession inserts a session record into the store.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteSession(ctx context.Context, sess Session) error {
	compJSON, err := marshalComposition(sess.Composition)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, composition_id, composition_hash, composition, sync_group, mode, fps, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.CompositionID,
		sess.CompositionHash,
		compJSON,
		sess.Group,
		string(sess.Mode),
		sess.FPS,
		sess.EngineVersion,
		sess.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// WriteEvents inserts a batch of events for a session in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - an event whose seq is
// already recorded for the session is silently ignored.
//
// Note: The session must exist (foreign key constraint).
func (s *Store) WriteEvents(ctx context.Context, sessionID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(session_id, seq, kind, sync_group, target, time, frame, fps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			ev.Seq,
			string(ev.Kind),
			ev.Group,
			ev.ID,
			ev.Time,
			ev.Frame,
			ev.FPS,
		); err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}
