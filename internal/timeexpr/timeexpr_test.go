package timeexpr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, src string, ctx Context) float64 {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err, "parse %q", src)
	v, err := Eval(e, ctx)
	require.NoError(t, err, "eval %q", src)
	return v
}

func ptr(v float64) *float64 { return &v }

func TestEval_Units(t *testing.T) {
	ctx := Fixed{Rate: 25}

	assert.InDelta(t, 0.96, eval(t, "24f", ctx), 1e-9)
	assert.InDelta(t, 0.5, eval(t, "500ms", ctx), 1e-9)
	assert.InDelta(t, 2.0, eval(t, "2s", ctx), 1e-9)
	assert.InDelta(t, 1.5, eval(t, "1.5", ctx), 1e-9)
	assert.InDelta(t, 0.25, eval(t, ".25", ctx), 1e-9)
}

func TestEval_Precedence(t *testing.T) {
	ctx := Fixed{Rate: 30}

	tests := []struct {
		src  string
		want float64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"8 / 2 / 2", 2},
		{"-2 + 5", 3},
		{"--2", 2},
		{"+3 * -1", -3},
		{"1s + 500ms", 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.InDelta(t, tt.want, eval(t, tt.src, ctx), 1e-9)
		})
	}
}

func TestEval_Functions(t *testing.T) {
	ctx := Fixed{Rate: 30}

	assert.Equal(t, 1.0, eval(t, "min(3, 1, 2)", ctx))
	assert.Equal(t, 3.0, eval(t, "max(3, 1, 2)", ctx))
	assert.Equal(t, 5.0, eval(t, "clamp(7, 0, 5)", ctx))
	assert.Equal(t, 0.0, eval(t, "clamp(-1, 0, 5)", ctx))
	assert.Equal(t, 2.0, eval(t, "clamp(2, 0, 5)", ctx))
	assert.InDelta(t, 1.5, eval(t, "snap(1.4, 0.5)", ctx), 1e-9)
	assert.InDelta(t, 1.37, eval(t, "snap(1.37, 0)", ctx), 1e-9)
	assert.Equal(t, 0.0, eval(t, "timeline.start", ctx))
}

func TestEval_References(t *testing.T) {
	ctx := Fixed{
		Rate: 30,
		Scenes: map[string]Window{
			"intro": {Start: 0, End: ptr(4)},
			"open":  {Start: 10},
		},
		Cues: map[string]Window{
			"hook": {Start: 1.5, End: ptr(3)},
		},
		Prev: &Window{Start: 2, End: ptr(6)},
		Next: &Window{Start: 9},
	}

	assert.Equal(t, 0.0, eval(t, "scene(intro)", ctx))
	assert.Equal(t, 4.0, eval(t, "scene(intro).end", ctx))
	assert.Equal(t, 0.0, eval(t, "scene('intro').start", ctx))
	assert.Equal(t, 1.5, eval(t, "cue(hook)", ctx))
	assert.Equal(t, 3.0, eval(t, `cue("hook").end`, ctx))
	assert.Equal(t, 2.0, eval(t, "prev.start", ctx))
	assert.Equal(t, 7.0, eval(t, "prev.end + 1", ctx))
	assert.Equal(t, 9.0, eval(t, "next.start", ctx))
	assert.Equal(t, 5.0, eval(t, "max(scene(intro).end, cue(hook)) + 1s", ctx))
}

func TestEval_Unresolved(t *testing.T) {
	ctx := Fixed{
		Rate:   30,
		Scenes: map[string]Window{"open": {Start: 10}},
	}

	tests := []struct {
		src  string
		want UnresolvedError
	}{
		{"scene(later)", UnresolvedError{Kind: RefScene, ID: "later", Edge: EdgeStart}},
		{"scene(open).end", UnresolvedError{Kind: RefScene, ID: "open", Edge: EdgeEnd}},
		{"cue(x) + 1", UnresolvedError{Kind: RefCue, ID: "x", Edge: EdgeStart}},
		{"prev.end", UnresolvedError{Kind: RefPrev, Edge: EdgeEnd}},
		{"next.start", UnresolvedError{Kind: RefNext, Edge: EdgeStart}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Eval(MustParse(tt.src), ctx)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnresolved))
			assert.True(t, IsUnresolved(err))

			var ue *UnresolvedError
			require.ErrorAs(t, err, &ue)
			assert.Equal(t, tt.want, *ue)
		})
	}
}

func TestEval_Errors(t *testing.T) {
	ctx := Fixed{Rate: 30}

	tests := []string{
		"foo",
		"prev",
		"bogus(1)",
		"min(1)",
		"clamp(1, 2)",
		"snap(1)",
		"scene()",
		"scene(1)",
		"scene(a, b)",
		"prev.middle",
		"timeline.end",
		"(1 + 2).start",
		"1 / 0",
		"'str'",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Eval(MustParse(src), ctx)
			require.Error(t, err)
			assert.False(t, IsUnresolved(err), "%q must be a hard error", src)

			var ee *EvalError
			assert.ErrorAs(t, err, &ee)
		})
	}
}

func TestEval_FramesWithoutRate(t *testing.T) {
	_, err := Eval(MustParse("12f"), Fixed{})
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Contains(t, ee.Msg, "frame rate")
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{"", 0},
		{"1 +", 3},
		{"(1 + 2", 6},
		{"3x", 1},
		{"max(1 2)", 6},
		{"1 $ 2", 2},
		{"scene('a", 6},
		{"prev.", 5},
		{"1 2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.offset, se.Offset)
			assert.Equal(t, tt.src, se.Expr)
		})
	}
}

func TestExpr_String(t *testing.T) {
	assert.Equal(t, "(scene(intro).end + 500ms)", MustParse("scene(intro).end+500ms").String())
	assert.Equal(t, "max(24f, -1)", MustParse("max(24f,-1)").String())
	assert.Equal(t, `cue("a-b")`, MustParse(`cue("a-b")`).String())
}

func TestRefs(t *testing.T) {
	refs := Refs(MustParse("max(scene(a).end, cue(b)) + prev.end - next.start + scene('c')"))
	assert.Equal(t, []Ref{
		{Kind: RefScene, ID: "a", Edge: EdgeEnd},
		{Kind: RefCue, ID: "b", Edge: EdgeStart},
		{Kind: RefPrev, Edge: EdgeEnd},
		{Kind: RefNext, Edge: EdgeStart},
		{Kind: RefScene, ID: "c", Edge: EdgeStart},
	}, refs)

	assert.Empty(t, Refs(MustParse("1 + 2f")))
}
