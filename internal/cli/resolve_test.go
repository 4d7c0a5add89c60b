package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecast/internal/ir"
)

func TestResolve_Text(t *testing.T) {
	out, err := execute(t, "text", "resolve", "testdata/short.xml")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Resolved short (2 scenes)")
	assert.Contains(t, out, "Duration: 0.5")
	assert.Contains(t, out, "- intro [0, 0.25) cues=1 components=1")
	assert.Contains(t, out, "- outro [0.25, 0.5) cues=1 components=0")
}

func TestResolve_JSON(t *testing.T) {
	out, err := execute(t, "json", "resolve", "testdata/short.xml")
	require.NoError(t, err)

	var comp ir.Composition
	resp := decodeData(t, out, &comp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "short", comp.ID)
	require.Len(t, comp.Scenes, 2)
	assert.InDelta(t, 0.25, comp.Scenes[1].Start, 1e-12)
	assert.NotEmpty(t, comp.Hash)
}

func TestResolve_OutputFileIsCanonical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.json")

	out, err := execute(t, "text", "resolve", "testdata/short.xml", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Output written to: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var comp ir.Composition
	require.NoError(t, json.Unmarshal(data, &comp))
	canonical, err := ir.MarshalCanonical(&comp)
	require.NoError(t, err)
	assert.Equal(t, string(canonical)+"\n", string(data))
}

func TestResolve_FromHTTP(t *testing.T) {
	body, err := os.ReadFile("testdata/short.xml")
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	out, err := execute(t, "text", "resolve", srv.URL+"/short.xml")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Resolved short")
}

func TestResolve_ValidationErrors(t *testing.T) {
	out, err := execute(t, "text", "resolve", "testdata/invalid.xml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E102]")
	assert.Contains(t, out, "E110")
}

func TestResolve_Cycle(t *testing.T) {
	out, err := execute(t, "json", "resolve", "testdata/cycle.xml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeData(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E204", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "cycle")
}

func TestResolve_NotFound(t *testing.T) {
	out, err := execute(t, "text", "resolve", "testdata/missing.xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, out, "not found")
}

func TestResolve_OpenComposition(t *testing.T) {
	out, err := execute(t, "text", "resolve", "testdata/open.xml")
	require.NoError(t, err)
	assert.Contains(t, out, "Duration: open")
	assert.Contains(t, out, "- only [0, open)")
}
