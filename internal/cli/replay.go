package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Sessions         []store.ReplayResult `json:"sessions"`
	TotalSessions    int                  `json:"total_sessions"`
	AllDeterministic bool                 `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <db> [session-id]",
		Short: "Replay recorded sessions and verify determinism",
		Long: `Feed each recorded session's tick times to a fresh player bound to
the stored composition and compare the transitions it emits with the
recorded ones.

Exit codes:
  0 - All sessions are deterministic
  1 - A replay diverged from its recording
  2 - Command error (database not found, etc.)

Examples:
  scenecast replay ./trace.db
  scenecast replay ./trace.db 0192f3c4-...
  scenecast replay ./trace.db --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 2 {
				session = args[1]
			}
			return runReplay(opts, args[0], session, cmd)
		},
	}

	return cmd
}

func runReplay(opts *ReplayOptions, dbPath, sessionID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openTraceStore(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	defer st.Close()

	ids := []string{sessionID}
	if sessionID == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
		ids = ids[:0]
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	summary := ReplaySummary{Sessions: []store.ReplayResult{}, AllDeterministic: true}
	for _, id := range ids {
		formatter.VerboseLog("Replaying session %s", id)
		res, err := st.Replay(ctx, id)
		if err != nil {
			return formatter.Fail(ExitCommandError, sessionNotFound(id, err))
		}
		summary.Sessions = append(summary.Sessions, res)
		summary.AllDeterministic = summary.AllDeterministic && res.Deterministic()
	}
	summary.TotalSessions = len(summary.Sessions)

	if formatter.JSON() {
		if err := formatter.Success(summary); err != nil {
			return err
		}
	} else {
		printReplay(cmd.OutOrStdout(), summary)
	}

	if !summary.AllDeterministic {
		return NewExitError(ExitFailure, "replay diverged from recording")
	}
	return nil
}

func printReplay(w io.Writer, s ReplaySummary) {
	if s.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions recorded")
		return
	}
	for _, r := range s.Sessions {
		if r.Deterministic() {
			fmt.Fprintf(w, "✓ %s: %d events over %d ticks replayed identically\n", r.SessionID, r.Events, r.Ticks)
			continue
		}
		fmt.Fprintf(w, "✗ %s: %d mismatch(es)\n", r.SessionID, len(r.Mismatches))
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "    at %d: recorded %s, replayed %s\n", m.Index, describeEvent(m.Recorded), describeEvent(m.Replayed))
		}
	}
	if s.AllDeterministic {
		fmt.Fprintf(w, "\nAll %d session(s) deterministic\n", s.TotalSessions)
	} else {
		fmt.Fprintln(w, "\nDeterminism check FAILED")
	}
}

func describeEvent(ev *engine.Event) string {
	if ev == nil {
		return "(nothing)"
	}
	return fmt.Sprintf("%s:%s@%gs", ev.Kind, ev.ID, ev.Time)
}
