package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Kind  string // optional - filter to one event kind
	Ticks bool   // include tick events
}

// TraceResult holds one session's recorded events.
type TraceResult struct {
	SessionID     string         `json:"session_id"`
	CompositionID string         `json:"composition_id"`
	Hash          string         `json:"composition_hash"`
	Group         string         `json:"group"`
	Mode          engine.Mode    `json:"mode"`
	FPS           float64        `json:"fps"`
	Events        []engine.Event `json:"events"`
	Stats         TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for a session.
type TraceStats struct {
	TotalEvents int     `json:"total_events"`
	Ticks       int     `json:"ticks"`
	Transitions int     `json:"transitions"`
	LastTime    float64 `json:"last_time"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <db> [session-id]",
		Short: "Show recorded playback sessions",
		Long: `Inspect a trace database written by play --db.

Without a session id, lists every recorded session in start order. With
one, prints the session's transitions in emission order.

Examples:
  scenecast trace ./trace.db
  scenecast trace ./trace.db 0192f3c4-...
  scenecast trace ./trace.db 0192f3c4-... --kind cue-start
  scenecast trace ./trace.db 0192f3c4-... --ticks --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 2 {
				session = args[1]
			}
			return runTrace(opts, args[0], session, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (e.g. scene-start)")
	cmd.Flags().BoolVar(&opts.Ticks, "ticks", false, "include tick events")

	return cmd
}

// openTraceStore opens an existing trace database. store.Open would create
// a missing file, so existence is checked first.
func openTraceStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("trace database not found: %s", path), Err: err}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "failed to open database", Err: err}
	}
	return st, nil
}

// sessionNotFound wraps sql.ErrNoRows from a session lookup.
func sessionNotFound(id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("session not found: %s", id), Err: err}
	}
	return err
}

func runTrace(opts *TraceOptions, dbPath, sessionID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openTraceStore(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer st.Close()

	if sessionID == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		if formatter.JSON() {
			return formatter.Success(sessions)
		}
		printSessions(cmd.OutOrStdout(), sessions)
		return nil
	}

	sess, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		return formatter.Fail(ExitCommandError, sessionNotFound(sessionID, err))
	}

	var events []engine.Event
	if opts.Kind != "" {
		events, err = st.ReadTransitions(ctx, sessionID, engine.EventKind(opts.Kind))
	} else {
		events, err = st.ReadEvents(ctx, sessionID)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := buildTraceResult(sess, events, opts.Ticks || opts.Kind == string(engine.EventTick))
	if formatter.JSON() {
		return formatter.Success(result)
	}
	printTrace(cmd.OutOrStdout(), result)
	return nil
}

// buildTraceResult counts every event and keeps ticks only when asked.
func buildTraceResult(sess store.Session, events []engine.Event, ticks bool) TraceResult {
	result := TraceResult{
		SessionID:     sess.ID,
		CompositionID: sess.CompositionID,
		Hash:          sess.CompositionHash,
		Group:         sess.Group,
		Mode:          sess.Mode,
		FPS:           sess.FPS,
		Events:        []engine.Event{},
	}
	for _, ev := range events {
		result.Stats.TotalEvents++
		result.Stats.LastTime = ev.Time
		if ev.Kind == engine.EventTick {
			result.Stats.Ticks++
			if !ticks {
				continue
			}
		} else {
			result.Stats.Transitions++
		}
		result.Events = append(result.Events, ev)
	}
	return result
}

func printSessions(w io.Writer, sessions []store.SessionSummary) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No sessions recorded")
		return
	}
	fmt.Fprintf(w, "%d session(s):\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  %s  group=%s mode=%s events=%d\n", s.ID, s.CompositionID, s.Group, s.Mode, s.Events)
	}
}

func printTrace(w io.Writer, r TraceResult) {
	fmt.Fprintf(w, "Session: %s\n", r.SessionID)
	fmt.Fprintf(w, "Composition: %s (%s)\n", r.CompositionID, r.Hash)
	fmt.Fprintf(w, "Group: %s  Mode: %s  FPS: %g\n\n", r.Group, r.Mode, r.FPS)

	if len(r.Events) == 0 {
		fmt.Fprintln(w, "No events")
	}
	for _, ev := range r.Events {
		fmt.Fprintf(w, "  [%d] %8.3fs  frame %-6d %-15s %s\n", ev.Seq, ev.Time, ev.Frame, ev.Kind, ev.ID)
	}

	fmt.Fprintf(w, "\nEvents: %d (%d ticks, %d transitions), last at %gs\n",
		r.Stats.TotalEvents, r.Stats.Ticks, r.Stats.Transitions, r.Stats.LastTime)
}
