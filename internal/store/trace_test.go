package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/testutil"
)

func TestSession_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	comp := createTestComposition()
	sess := createTestSession(t, s, "s-1", comp)

	wantHash, err := ir.CompositionHash(comp)
	require.NoError(t, err)
	assert.Equal(t, wantHash, sess.CompositionHash)

	got, err := s.ReadSession(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.CompositionID)
	assert.Equal(t, engine.ModeBounded, got.Mode)
	assert.Equal(t, ir.EngineVersion, got.EngineVersion)
	assert.Equal(t, comp, got.Composition)
}

func TestSession_ComputesHashOnlyWhenMissing(t *testing.T) {
	comp := createTestComposition()
	comp.Hash = "precomputed"
	sess, err := NewSession("s", comp, "main", engine.TimelineOptions{})
	require.NoError(t, err)
	assert.Equal(t, "precomputed", sess.CompositionHash)
}

func TestSession_WriteIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	sess := createTestSession(t, s, "s-1", createTestComposition())

	require.NoError(t, s.WriteSession(t.Context(), sess))

	sessions, err := s.ListSessions(t.Context())
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEvents_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s-1", createTestComposition())

	events := []engine.Event{
		{Seq: 3, Kind: engine.EventSceneStart, Group: "main", ID: "intro"},
		{Seq: 1, Kind: engine.EventTick, Group: "main", ID: "demo"},
		{Seq: 2, Kind: engine.EventCueStart, Group: "main", ID: "hello", Time: 0.25, Frame: 2, FPS: 10},
	}
	require.NoError(t, s.WriteEvents(t.Context(), "s-1", events))
	// Duplicate seqs are ignored
	require.NoError(t, s.WriteEvents(t.Context(), "s-1", events[:1]))

	got, err := s.ReadEvents(t.Context(), "s-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].Seq, got[1].Seq, got[2].Seq})
	assert.Equal(t, events[2], got[1])

	cues, err := s.ReadTransitions(t.Context(), "s-1", engine.EventCueStart)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, "hello", cues[0].ID)

	last, err := s.LastSeq(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestEvents_EmptySession(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s-1", createTestComposition())

	got, err := s.ReadEvents(t.Context(), "s-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	last, err := s.LastSeq(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestEvents_UnknownSessionRollsBack(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteEvents(t.Context(), "missing", []engine.Event{{Seq: 1, Kind: engine.EventTick}})
	require.Error(t, err)
}

func TestListSessions(t *testing.T) {
	s := createTestStore(t)
	createTestSession(t, s, "s-2", createTestComposition())
	createTestSession(t, s, "s-1", createTestComposition())
	require.NoError(t, s.WriteEvents(t.Context(), "s-2", []engine.Event{{Seq: 1, Kind: engine.EventTick}, {Seq: 2, Kind: engine.EventTick}}))

	got, err := s.ListSessions(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []SessionSummary{
		{ID: "s-1", CompositionID: "demo", Group: "main", Mode: "bounded", Events: 0},
		{ID: "s-2", CompositionID: "demo", Group: "main", Mode: "bounded", Events: 2},
	}, got)
}

// playRecorded plays comp for the given tick deltas with a Recorder attached
// and returns the store and session id.
func playRecorded(t *testing.T, comp *ir.Composition, deltas ...float64) (*Store, *Recorder) {
	t.Helper()
	s := createTestStore(t)
	createTestSession(t, s, "s-1", comp)
	rec := NewRecorder(s, "s-1")

	reg := engine.NewRegistry()
	tl := reg.Timeline("main", engine.TimelineOptions{FPS: comp.FPS, Duration: 3})
	_, err := reg.Attach("main", engine.NewPlayer(comp, engine.WithListener(rec)))
	require.NoError(t, err)

	clock := testutil.NewManualClock()
	tl.Start()
	tl.Tick(clock.Now())
	for _, d := range deltas {
		tl.Tick(clock.AdvanceSeconds(d))
	}
	return s, rec
}

func TestRecorder_FlushWritesBufferedEvents(t *testing.T) {
	s, rec := playRecorded(t, createTestComposition(), 0.5, 0.5)
	assert.Equal(t, "s-1", rec.Session())
	pending := rec.Pending()
	require.Positive(t, pending)

	require.NoError(t, rec.Flush(t.Context()))
	assert.Zero(t, rec.Pending())

	got, err := s.ReadEvents(t.Context(), "s-1")
	require.NoError(t, err)
	assert.Len(t, got, pending)

	// Nothing buffered: flush is a no-op
	require.NoError(t, rec.Flush(t.Context()))
}

func TestRecorder_FailedFlushKeepsEvents(t *testing.T) {
	s := createTestStore(t)
	rec := NewRecorder(s, "never-written")
	rec.OnEvent(engine.Event{Seq: 1, Kind: engine.EventTick})

	require.Error(t, rec.Flush(t.Context()))
	assert.Equal(t, 1, rec.Pending())
}

func TestReplay_Deterministic(t *testing.T) {
	s, rec := playRecorded(t, createTestComposition(), 0.3, 0.4, 0.6, 0.9, 1.2)
	require.NoError(t, rec.Flush(t.Context()))

	result, err := s.Replay(t.Context(), "s-1")
	require.NoError(t, err)
	assert.True(t, result.Deterministic(), "mismatches: %+v", result.Mismatches)
	assert.Equal(t, 6, result.Ticks)
	assert.Positive(t, result.Events)
}

func TestReplay_DetectsDivergence(t *testing.T) {
	s, rec := playRecorded(t, createTestComposition(), 0.6, 0.6)
	require.NoError(t, rec.Flush(t.Context()))

	// Drop a recorded transition
	_, err := s.db.Exec(`DELETE FROM events WHERE session_id = 's-1' AND kind = 'component-show'`)
	require.NoError(t, err)

	result, err := s.Replay(t.Context(), "s-1")
	require.NoError(t, err)
	assert.False(t, result.Deterministic())
}

func TestReplay_UnknownSession(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Replay(t.Context(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
