package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/scenecast/internal/engine"
)

// ReadSession returns a session with its composition decoded.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, composition_id, composition_hash, composition, sync_group, mode, fps, engine_version, ir_version
		FROM sessions
		WHERE id = ?
	`, id)

	var (
		sess     Session
		mode     string
		compJSON string
	)
	err := row.Scan(
		&sess.ID, &sess.CompositionID, &sess.CompositionHash, &compJSON,
		&sess.Group, &mode, &sess.FPS, &sess.EngineVersion, &sess.IRVersion,
	)
	if err != nil {
		return Session{}, err
	}
	sess.Mode = engine.Mode(mode)

	sess.Composition, err = unmarshalComposition(compJSON)
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// SessionSummary is a session row without its composition, plus its event
// count.
type SessionSummary struct {
	ID            string `json:"id"`
	CompositionID string `json:"composition_id"`
	Group         string `json:"group"`
	Mode          string `json:"mode"`
	Events        int    `json:"events"`
}

// ListSessions returns every session ordered by id. Session ids are UUIDv7,
// so this is start order.
//
// Returns an empty slice (not nil) if the store has no sessions.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.composition_id, s.sync_group, s.mode, COUNT(e.seq)
		FROM sessions s
		LEFT JOIN events e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.CompositionID, &sum.Group, &sum.Mode, &sum.Events); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvents returns every event of a session in seq order.
//
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, sync_group, target, time, frame, fps
		FROM events
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return scanEvents(rows)
}

// ReadTransitions returns a session's events of one kind in seq order.
func (s *Store) ReadTransitions(ctx context.Context, sessionID string, kind engine.EventKind) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, sync_group, target, time, frame, fps
		FROM events
		WHERE session_id = ? AND kind = ?
		ORDER BY seq ASC
	`, sessionID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return scanEvents(rows)
}

// LastSeq returns the highest recorded seq for a session, or 0.
// Used to continue a session with engine.NewSequencerAt.
func (s *Store) LastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM events WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func scanEvents(rows *sql.Rows) ([]engine.Event, error) {
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		var (
			ev   engine.Event
			kind string
		)
		if err := rows.Scan(&ev.Seq, &kind, &ev.Group, &ev.ID, &ev.Time, &ev.Frame, &ev.FPS); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = engine.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
