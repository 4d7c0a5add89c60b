package store

import (
	"context"
	"fmt"

	"github.com/roach88/scenecast/internal/engine"
)

// Mismatch is one position where a replay diverged from the recording.
// A nil side means that stream ended first.
type Mismatch struct {
	Index    int           `json:"index"`
	Recorded *engine.Event `json:"recorded,omitempty"`
	Replayed *engine.Event `json:"replayed,omitempty"`
}

// ReplayResult reports whether a session replays to the same events.
type ReplayResult struct {
	SessionID  string     `json:"session_id"`
	Ticks      int        `json:"ticks"`
	Events     int        `json:"events"`
	Mismatches []Mismatch `json:"mismatches,omitempty"`
}

// Deterministic reports whether the replay matched the recording.
func (r ReplayResult) Deterministic() bool { return len(r.Mismatches) == 0 }

// Replay re-runs a recorded session: a fresh player bound to the stored
// composition receives the stored tick times, and the events it emits are
// compared with the recorded ones. Seq numbers are not compared, since a
// recorded player may have shared its sequencer. A session that was rebound
// mid-run replays against its initial composition and reports the
// divergence.
func (s *Store) Replay(ctx context.Context, sessionID string) (ReplayResult, error) {
	sess, err := s.ReadSession(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}
	recorded, err := s.ReadEvents(ctx, sessionID)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("replay %s: %w", sessionID, err)
	}

	log := &engine.EventLog{}
	player := engine.NewPlayer(sess.Composition, engine.WithListener(log))

	result := ReplayResult{SessionID: sessionID, Events: len(recorded)}
	for _, ev := range recorded {
		if ev.Kind != engine.EventTick {
			continue
		}
		result.Ticks++
		player.OnTick(engine.TickInfo{
			Group: ev.Group,
			Time:  ev.Time,
			Frame: ev.Frame,
			FPS:   ev.FPS,
		})
	}

	replayed := log.Events
	for i := 0; i < max(len(recorded), len(replayed)); i++ {
		var want, got *engine.Event
		if i < len(recorded) {
			want = &recorded[i]
		}
		if i < len(replayed) {
			got = &replayed[i]
		}
		if want == nil || got == nil || !sameEvent(*want, *got) {
			result.Mismatches = append(result.Mismatches, Mismatch{Index: i, Recorded: want, Replayed: got})
		}
	}
	return result, nil
}

func sameEvent(a, b engine.Event) bool {
	return a.Kind == b.Kind &&
		a.ID == b.ID &&
		a.Group == b.Group &&
		a.Time == b.Time &&
		a.Frame == b.Frame
}
