package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_SingleScene(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/single_scene.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestSnapshot_IsCanonical(t *testing.T) {
	result := NewResult()
	result.SessionID = "s"
	result.Trace = []TraceEvent{{Type: "hook", Seq: 1, Kind: "scene-start", ID: "a<b>", Handler: "start", Source: "x && y"}}
	result.State = FinalState{Cues: []string{}, Visible: []string{}}

	got, err := Snapshot("n", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"n","session_id":"s","state":{"cues":[],"frame":0,"running":false,"time":0,"visible":[]},`+
			`"trace":[{"frame":0,"handler":"start","id":"a<b>","kind":"scene-start","seq":1,"source":"x && y","time":0,"type":"hook"}]}`,
		string(got))
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/intro_outro.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
