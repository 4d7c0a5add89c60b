package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/config"
	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/markup"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONKeepsMarkupReadable(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"markup": `<scene id="a"/>`}))
	assert.Contains(t, buf.String(), `<scene id=\"a\"/>`)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E201", "bad expression", map[string]string{"field": "scene[intro]@start"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E201", resp.Error.Code)
	assert.Equal(t, "bad expression", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Error("E005", "not found", "ignored unless verbose"))
	assert.Equal(t, "Error [E005]: not found\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error("E005", "not found", "more"))
	assert.Contains(t, buf.String(), "Details: more")
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: diag}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, diag.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", diag.String())
	assert.Empty(t, out.String())
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := &markup.PatchError{Code: markup.ErrCodeSealed, Target: "hello", Message: "scene is sealed"}
	err := formatter.Fail(ExitFailure, cause)

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, markup.IsSealedError(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "SEALED", resp.Error.Code)
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk on fire")
	err := WrapExitError(ExitCommandError, "failed to open database", inner)

	assert.Equal(t, "failed to open database: disk on fire", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))

	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("not an exit error")))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"load", &LoadError{Code: ErrCodeNotFound, Message: "x"}, "E005"},
		{"validation", &ValidationFailure{Source: "a.xml", Errors: []compiler.ValidationError{{Code: "E102"}, {Code: "E110"}}}, "E102"},
		{"compile", fmt.Errorf("resolve: %w", &compiler.CompileError{Code: compiler.ErrNegativeWindow}), "E202"},
		{"unresolved", &compiler.UnresolvedRefsError{Scenes: []string{"a"}}, "E204"},
		{"convergence", &compiler.ConvergenceError{Passes: 3}, "E205"},
		{"patch", &markup.PatchError{Code: markup.ErrCodeDuplicateID}, "DUPLICATE_ID"},
		{"runtime", engine.NewOpenDurationError("c"), "OPEN_DURATION"},
		{"config", &config.Error{Code: config.ErrCodeSchema}, "E013"},
		{"generic", os.ErrPermission, "E001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}
