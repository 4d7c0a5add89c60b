package markup

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
<composition id="demo" fps="25">
  <scene id="intro" duration="2s">
    <cue id="hello" on:start="wave()">
      <voice trimEnd="0.1">Hello &amp; welcome</voice>
    </cue>
    <title-card text="Hi" time-scale="2"/>
  </scene>
  <scene id="outro"/>
</composition>`

func TestParse_Tree(t *testing.T) {
	root, err := ParseString(sample)
	require.NoError(t, err)

	assert.Equal(t, "composition", root.Tag)
	assert.Equal(t, "demo", root.ID())
	require.Len(t, root.Children, 2)

	intro := root.Children[0]
	assert.Equal(t, "2s", intro.AttrOr("duration", ""))
	cue := intro.Children[0]
	handler, ok := cue.Attr("on:start")
	require.True(t, ok, "prefixed attribute keeps its prefix")
	assert.Equal(t, "wave()", handler)
	assert.Equal(t, "Hello & welcome", cue.Children[0].Text)

	card := intro.Children[1]
	assert.Equal(t, "title-card", card.Tag)
	assert.Equal(t, []Attr{{"text", "Hi"}, {"time-scale", "2"}}, card.Attrs)
}

func TestParse_Namespaces(t *testing.T) {
	root, err := ParseString(`
<composition xmlns="urn:videoml" xmlns:fx="urn:effects" id="ns">
  <scene id="s" on:start="go()" fx:blur="2">
    <fx:glow id="g"/>
  </scene>
</composition>`)
	require.NoError(t, err)

	assert.Equal(t, "composition", root.Tag, "default namespace is not part of the tag")
	assert.Equal(t, []Attr{{"id", "ns"}}, root.Attrs, "namespace declarations are dropped")

	scene := root.Children[0]
	assert.Equal(t, "scene", scene.Tag)
	assert.Equal(t, []Attr{{"id", "s"}, {"on:start", "go()"}, {"fx:blur", "2"}}, scene.Attrs)
	assert.Equal(t, "fx:glow", scene.Children[0].Tag, "declared prefixes are restored")
}

func TestParse_Errors(t *testing.T) {
	_, err := ParseString("")
	assert.ErrorIs(t, err, ErrNoRoot)

	_, err = ParseString("<a/><b/>")
	assert.ErrorIs(t, err, ErrMultipleRoots)

	_, err = ParseString("<a><b></a>")
	assert.Error(t, err)
}

func TestSerialize_RoundTrip(t *testing.T) {
	root, err := ParseString(sample)
	require.NoError(t, err)

	out, err := Serialize(root)
	require.NoError(t, err)
	assert.Contains(t, out, `Hello &amp; welcome`)

	again, err := ParseString(out)
	require.NoError(t, err)
	if diff := cmp.Diff(root, again); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestIndex_Duplicates(t *testing.T) {
	root, err := ParseString(`<composition id="c"><scene id="a"/><scene id="a"/><scene id="b"/></composition>`)
	require.NoError(t, err)

	idx := BuildIndex(root)
	assert.Equal(t, []string{"a"}, idx.Duplicates())

	b, ok := idx.Lookup("b")
	require.True(t, ok)
	assert.Same(t, root, idx.Parent(b))
	assert.Equal(t, []*Element{root}, idx.Ancestors(b))
}

func TestElement_CloneIsDeep(t *testing.T) {
	root, err := ParseString(sample)
	require.NoError(t, err)

	c := root.Clone()
	c.Children[0].SetAttr("duration", "9s")
	c.Children[0].Children = nil

	assert.Equal(t, "2s", root.Children[0].AttrOr("duration", ""))
	assert.Len(t, root.Children[0].Children, 2)
}

func newDoc(t *testing.T, opts ...DocumentOption) *Document {
	t.Helper()
	root, err := ParseString(sample)
	require.NoError(t, err)
	return NewDocument(root, opts...)
}

func TestDocument_Append(t *testing.T) {
	doc := newDoc(t)

	zero := 0
	err := doc.Apply(
		Patch{Op: OpAppend, Target: "intro", Markup: `<badge id="b1"/>`},
		Patch{Op: OpAppend, Target: "intro", Index: &zero, Markup: `<badge id="b0"/>`},
	)
	require.NoError(t, err)

	intro, ok := doc.Lookup("intro")
	require.True(t, ok)
	require.Len(t, intro.Children, 4)
	assert.Equal(t, "b0", intro.Children[0].ID())
	assert.Equal(t, "b1", intro.Children[3].ID())
}

func TestDocument_Ops(t *testing.T) {
	doc := newDoc(t)

	require.NoError(t, doc.Apply(Patch{Op: OpSetAttr, Target: "intro", Name: "duration", Value: "4s"}))
	el, _ := doc.Lookup("intro")
	assert.Equal(t, "4s", el.AttrOr("duration", ""))

	require.NoError(t, doc.Apply(Patch{Op: OpClearAttr, Target: "intro", Name: "duration"}))
	el, _ = doc.Lookup("intro")
	_, has := el.Attr("duration")
	assert.False(t, has)

	require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "spoken"}))
	el, _ = doc.Lookup("hello")
	assert.Equal(t, "spoken", el.Text)

	require.NoError(t, doc.Apply(Patch{Op: OpReplace, Target: "outro", Markup: `<scene id="finale" start="10s"/>`}))
	_, ok := doc.Lookup("outro")
	assert.False(t, ok)
	_, ok = doc.Lookup("finale")
	assert.True(t, ok)

	require.NoError(t, doc.Apply(Patch{Op: OpRemove, Target: "finale"}))
	assert.Len(t, doc.Root().Children, 1)
}

func TestDocument_Errors(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		code  PatchErrorCode
	}{
		{"missing target", Patch{Op: OpRemove, Target: "nope"}, ErrCodeMissingTarget},
		{"remove root", Patch{Op: OpRemove, Target: "demo"}, ErrCodeInvalidTarget},
		{"seal non-scene", Patch{Op: OpSeal, Target: "hello"}, ErrCodeInvalidTarget},
		{"append without node", Patch{Op: OpAppend, Target: "intro"}, ErrCodeInvalidNode},
		{"append duplicate id", Patch{Op: OpAppend, Target: "intro", Markup: `<x id="outro"/>`}, ErrCodeDuplicateID},
		{"unknown op", Patch{Op: "rename", Target: "intro"}, ErrCodeUnknownOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t)
			err := doc.Apply(tt.patch)
			var pe *PatchError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.code, pe.Code)
		})
	}
}

func TestDocument_SealedSceneRejectsPatches(t *testing.T) {
	doc := newDoc(t)
	require.NoError(t, doc.Apply(Patch{Op: OpSeal, Target: "intro"}))
	assert.True(t, doc.Sealed("intro"))

	before, err := doc.Serialize()
	require.NoError(t, err)

	for _, p := range []Patch{
		{Op: OpSetAttr, Target: "intro", Name: "start", Value: "1s"},
		{Op: OpSetText, Target: "hello", Value: "changed"},
		{Op: OpAppend, Target: "hello", Markup: `<pause seconds="1"/>`},
		{Op: OpRemove, Target: "hello"},
	} {
		err := doc.Apply(p)
		assert.True(t, IsSealedError(err), "%s %s: %v", p.Op, p.Target, err)
	}

	after, err := doc.Serialize()
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Unsealed scenes remain editable.
	require.NoError(t, doc.Apply(Patch{Op: OpSetAttr, Target: "outro", Name: "start", Value: "5s"}))
}

func TestDocument_SealingNotEnforced(t *testing.T) {
	doc := newDoc(t, WithSealing(false))
	require.NoError(t, doc.Apply(Patch{Op: OpSeal, Target: "intro"}))
	require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "changed"}))
}

func TestDocument_BatchIsAllOrNothing(t *testing.T) {
	doc := newDoc(t)
	before := doc.Root()

	err := doc.Apply(
		Patch{Op: OpSetAttr, Target: "intro", Name: "duration", Value: "8s"},
		Patch{Op: OpRemove, Target: "missing"},
	)
	var pe *PatchError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Index)
	assert.True(t, IsMissingTargetError(err))

	assert.Same(t, before, doc.Root())
	el, _ := doc.Lookup("intro")
	assert.Equal(t, "2s", el.AttrOr("duration", ""))
}

func TestDocument_Observe(t *testing.T) {
	doc := newDoc(t)

	var got []Change
	cancel := doc.Observe(func(c Change) { got = append(got, c) })

	require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "a"}))
	require.Error(t, doc.Apply(Patch{Op: OpRemove, Target: "missing"}))
	require.Len(t, got, 1, "failed batches are not observed")
	assert.Equal(t, OpSetText, got[0].Patches[0].Op)

	cancel()
	require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "b"}))
	assert.Len(t, got, 1)
}

func TestDocument_ObserversRunInRegistrationOrder(t *testing.T) {
	doc := newDoc(t)

	var order []int
	cancels := make([]func(), 0, 8)
	for i := range 8 {
		cancels = append(cancels, doc.Observe(func(Change) { order = append(order, i) }))
	}
	cancels[3]()

	for range 3 {
		order = order[:0]
		require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "x"}))
		assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7}, order)
	}
}

func TestDocument_RootIsACopy(t *testing.T) {
	root, err := ParseString(sample)
	require.NoError(t, err)
	doc := NewDocument(root)

	require.NoError(t, doc.Apply(Patch{Op: OpSetText, Target: "hello", Value: "changed"}))
	assert.True(t, strings.HasPrefix(root.Children[0].Children[0].Children[0].Text, "Hello"))
}
