package harness

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/markup"
)

const twoScenes = `<composition id="c" fps="10">
  <scene id="a" duration="1s" on:start="enter()">
    <cue id="q" duration="500ms"/>
  </scene>
  <scene id="b" duration="1s"/>
</composition>`

func ptr[T any](v T) *T { return &v }

func TestRun_MinimalScenario(t *testing.T) {
	scenario := &Scenario{
		Name:        "minimal",
		Description: "Minimal test scenario",
		Markup:      twoScenes,
		Assertions: []Assertion{
			{Type: AssertEventContains, Kind: engine.EventSceneStart, ID: "a"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, DefaultSessionID, result.SessionID)

	// Only the initial tick: tick, scene-start, its handler, cue-start
	want := []string{"event tick:c", "event scene-start:a", "hook scene-start:a", "event cue-start:q"}
	var got []string
	for _, e := range result.Trace {
		got = append(got, e.Type+" "+e.Label())
	}
	assert.Empty(t, cmp.Diff(want, got))
	assert.Equal(t, "enter()", result.Trace[2].Source)
	assert.Equal(t, "start", result.Trace[2].Handler)
	assert.Equal(t, result.Trace[1].Seq, result.Trace[2].Seq, "hook shares its transition's seq")
}

func TestRun_StepsAdvanceTheClock(t *testing.T) {
	scenario := &Scenario{
		Name:        "advance",
		Description: "advance",
		Markup:      twoScenes,
		Steps:       []Step{{Advance: 0.25, Repeat: 6}},
		Assertions: []Assertion{
			{Type: AssertEventCount, Kind: engine.EventTick, Count: 7},
			{Type: AssertEventOrder, Events: []string{"cue-end:q", "scene-end:a", "scene-start:b"}},
			{Type: AssertFinalState, Scene: ptr("b"), Cues: []string{}, Time: ptr(1.5), Running: ptr(true)},
			{Type: AssertDeterministic},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, int64(15), result.State.Frame)
}

func TestRun_StopAndSeek(t *testing.T) {
	scenario := &Scenario{
		Name:        "stop_seek",
		Description: "stop, seek, start",
		Markup:      twoScenes,
		Steps: []Step{
			{Stop: true},
			{Advance: 1},
			{Seek: ptr(1.2)},
			{Start: true},
			{Advance: 0.1},
		},
		Assertions: []Assertion{
			// Stopped frames and the silent seek emit nothing
			{Type: AssertEventCount, Kind: engine.EventTick, Count: 2},
			// The restart tick has zero delta
			{Type: AssertFinalState, Scene: ptr("b"), Time: ptr(1.2), Running: ptr(true)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_PatchIsReflectedNextFrame(t *testing.T) {
	scenario := &Scenario{
		Name:        "patch",
		Description: "patch",
		Markup:      twoScenes,
		Steps: []Step{
			{Advance: 0.5},
			{Patch: []markup.Patch{{Op: "set-attr", Target: "a", Name: "duration", Value: "3s"}}},
			{Advance: 1},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Scene: ptr("a"), Time: ptr(1.5), Running: ptr(true)},
			{Type: AssertEventCount, Kind: engine.EventSceneEnd, Count: 0},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ExpectedPatchError(t *testing.T) {
	base := Scenario{
		Name:        "patch_error",
		Description: "patch error",
		Markup:      twoScenes,
		Assertions:  []Assertion{{Type: AssertDeterministic}},
	}

	t.Run("matching code passes", func(t *testing.T) {
		s := base
		s.Steps = []Step{{Patch: []markup.Patch{{Op: "remove", Target: "missing"}}, ExpectError: "MISSING_TARGET"}}
		result, err := Run(&s)
		require.NoError(t, err)
		assert.True(t, result.Pass, result.Errors)
	})

	t.Run("wrong code fails", func(t *testing.T) {
		s := base
		s.Steps = []Step{{Patch: []markup.Patch{{Op: "remove", Target: "missing"}}, ExpectError: "SEALED"}}
		result, err := Run(&s)
		require.NoError(t, err)
		assert.False(t, result.Pass)
		assert.Contains(t, result.Errors[0], "got MISSING_TARGET")
	})

	t.Run("applied batch fails", func(t *testing.T) {
		s := base
		s.Steps = []Step{{Patch: []markup.Patch{{Op: "set-attr", Target: "a", Name: "x", Value: "1"}}, ExpectError: "SEALED"}}
		result, err := Run(&s)
		require.NoError(t, err)
		assert.False(t, result.Pass)
		assert.Contains(t, result.Errors[0], "batch applied")
	})

	t.Run("unexpected failure is reported", func(t *testing.T) {
		s := base
		s.Steps = []Step{{Patch: []markup.Patch{{Op: "remove", Target: "missing"}}}}
		result, err := Run(&s)
		require.NoError(t, err)
		assert.False(t, result.Pass)
		assert.Contains(t, result.Errors[0], "patch failed")
	})
}

func TestRun_ReflectionFailureKeepsPlaying(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_edit",
		Description: "an edit that cannot resolve",
		Markup:      twoScenes,
		Steps: []Step{
			{Patch: []markup.Patch{{Op: "set-attr", Target: "a", Name: "start", Value: "scene(b).end"}}},
			{Advance: 0.5},
		},
		Assertions: []Assertion{
			{Type: AssertFinalState, Scene: ptr("a")},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "reflection failed")
}

func TestRun_OpenCompositionNeedsLiveMode(t *testing.T) {
	open := `<composition id="open"><scene id="forever"/></composition>`

	_, err := Run(&Scenario{Name: "open", Description: "d", Markup: open,
		Assertions: []Assertion{{Type: AssertDeterministic}}})
	require.Error(t, err)
	assert.True(t, engine.IsOpenDurationError(err))

	result, err := Run(&Scenario{Name: "open", Description: "d", Markup: open, Mode: engine.ModeLive,
		Steps:      []Step{{Advance: 100}},
		Assertions: []Assertion{{Type: AssertFinalState, Scene: ptr("forever"), Time: ptr(100.0)}}})
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_ResolveErrorIsSetupFailure(t *testing.T) {
	_, err := Run(&Scenario{Name: "bad", Description: "d", Markup: `<composition/>`,
		Assertions: []Assertion{{Type: AssertDeterministic}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to resolve composition")
}

func TestRun_CustomGroupAndSession(t *testing.T) {
	result, err := Run(&Scenario{
		Name:        "custom",
		Description: "d",
		Markup:      twoScenes,
		Group:       "lobby",
		SessionID:   "fixed-1",
		Assertions:  []Assertion{{Type: AssertDeterministic}},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
	assert.Equal(t, "fixed-1", result.SessionID)
}
