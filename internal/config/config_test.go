package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	p := Defaults()
	assert.Equal(t, Player{
		Group:          "main",
		Mode:           "bounded",
		Loop:           false,
		RefreshRate:    60,
		EnforceSealing: true,
		RecordTrace:    false,
		TraceDB:        "scenecast-trace.db",
		MetricsAddr:    "",
		Debounce:       "100ms",
	}, p)
	assert.Equal(t, 100*time.Millisecond, p.DebounceDuration())
}

func TestLoad(t *testing.T) {
	p, err := Load(filepath.Join("testdata", "player.cue"))
	require.NoError(t, err)

	assert.Equal(t, "lobby", p.Group)
	assert.Equal(t, "live", p.Mode)
	assert.Equal(t, 30.0, p.RefreshRate)
	assert.True(t, p.RecordTrace)
	assert.Equal(t, "lobby.db", p.TraceDB)
	assert.True(t, p.EnforceSealing, "unset fields keep their defaults")
	assert.Equal(t, 250*time.Millisecond, p.DebounceDuration())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.cue"))
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeRead, ce.Code)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown mode", `mode: "paused"`},
		{"refresh rate too high", `refreshRate: 500`},
		{"empty group", `group: ""`},
		{"unknown field", `volume: 11`},
		{"bad debounce", `debounce: "soon"`},
		{"wrong type", `loop: "yes"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), "inline.cue")
			require.Error(t, err)
			assert.True(t, IsSchemaError(err), "got %v", err)
		})
	}
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse([]byte(`group: "a`), "broken.cue")
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeCompile, ce.Code)
	assert.Contains(t, ce.Error(), "broken.cue")
}
