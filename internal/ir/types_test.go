package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(v float64) *float64 { return &v }

func TestComposition_SceneBound(t *testing.T) {
	c := &Composition{Scenes: []Scene{
		{ID: "a", Start: 0, End: f64(3)},
		{ID: "b", Start: 3},
		{ID: "c", Start: 5},
	}}

	bound, ok := c.SceneBound(0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, bound)

	bound, ok = c.SceneBound(1)
	assert.True(t, ok)
	assert.Equal(t, 5.0, bound, "open scene is bounded by the next start")

	_, ok = c.SceneBound(2)
	assert.False(t, ok, "open final scene has no bound")
}

func TestComposition_TotalDuration(t *testing.T) {
	c := &Composition{Scenes: []Scene{
		{ID: "a", Start: 0, End: f64(3)},
		{ID: "b", Start: 3, End: f64(7)},
	}}
	total, ok := c.TotalDuration()
	assert.True(t, ok)
	assert.Equal(t, 7.0, total)

	c.Scenes = append(c.Scenes, Scene{ID: "open", Start: 7})
	_, ok = c.TotalDuration()
	assert.False(t, ok)

	c.Duration = f64(12)
	total, ok = c.TotalDuration()
	assert.True(t, ok)
	assert.Equal(t, 12.0, total)
}

func TestComposition_Lookup(t *testing.T) {
	c := &Composition{Scenes: []Scene{
		{ID: "a", Cues: []Cue{{ID: "c1"}}},
		{ID: "b", Cues: []Cue{{ID: "c2"}}},
	}}

	s, ok := c.Scene("b")
	assert.True(t, ok)
	assert.Equal(t, "b", s.ID)

	cue, owner, ok := c.Cue("c2")
	assert.True(t, ok)
	assert.Equal(t, "c2", cue.ID)
	assert.Equal(t, "b", owner.ID)

	_, _, ok = c.Cue("missing")
	assert.False(t, ok)
}

func TestScene_Walk(t *testing.T) {
	s := &Scene{
		Layers: []Layer{{ID: "bg", Components: []Component{{ID: "img"}}}},
		Components: []Component{{
			ID: "seq", Flow: FlowSequence,
			Children: []Component{{ID: "one"}, {ID: "two"}},
		}},
	}

	var ids []string
	var layers []string
	s.Walk(func(c *Component, layer *Layer) {
		ids = append(ids, c.ID)
		if layer != nil {
			layers = append(layers, layer.ID+":"+c.ID)
		}
	})
	assert.Equal(t, []string{"img", "seq", "one", "two"}, ids)
	assert.Equal(t, []string{"bg:img"}, layers)
}
