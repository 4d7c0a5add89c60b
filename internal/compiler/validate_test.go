package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	errs := Validate(parse(t, `
<composition id="c" fps="24" width="640" height="360" duration="10">
  <voiceover provider="tts" voice="nova" sampleRate="24000" seed="3" leadIn="250ms"/>
  <scene id="a" styles='{"bg":"#000"}'>
    <cue id="q1">
      <voice trim-end="0.2" duration="1.2">Hello</voice>
      <pause mean="0.5" std="0.1"/>
      <bullet>one</bullet>
    </cue>
    <pause seconds="1"/>
    <layer id="l1" z="1" visible="true">
      <sequence time-scale="2"><card/><card on:enter="pulse()"/></sequence>
    </layer>
  </scene>
</composition>`))
	assert.Empty(t, errs)
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	errs := Validate(parse(t, `
<movie>
  <scene/>
  <scene id="a"/>
  <scene id="a"/>
  <voiceover/>
  <voiceover/>
  <script/>
</movie>`))

	assert.Equal(t, []string{
		ErrRootTag,
		ErrMissingID,
		ErrMissingID,
		ErrDuplicateSceneID,
		ErrMultipleVoice,
		ErrUnknownTag,
	}, codes(errs))
}

func TestValidate_Codes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"duplicate cue", `<scene id="a"><cue id="x"/></scene><scene id="b"><cue id="x"/></scene>`, ErrDuplicateCueID, "composition[c]/scene[b]/cue[x]@id"},
		{"cue shares component id", `<scene id="a"><box id="x"/><cue id="x"/></scene>`, ErrDuplicateID, "composition[c]/scene[a]/cue[x]@id"},
		{"cue without id", `<scene id="a"><cue/></scene>`, ErrMissingID, "composition[c]/scene[a]/cue[#0]@id"},
		{"layer without id", `<scene id="a"><layer/></scene>`, ErrMissingID, "composition[c]/scene[a]/layer[#0]@id"},
		{"nested scene", `<scene id="a"><scene id="b"/></scene>`, ErrNestedScene, "composition[c]/scene[a]/scene[b]"},
		{"bad props", `<scene id="a"><box props="[1]"/></scene>`, ErrMalformedJSON, "composition[c]/scene[a]/box[#0]@props"},
		{"bad markup", `<scene id="a" markup="nope"/>`, ErrMalformedJSON, "composition[c]/scene[a]@markup"},
		{"bad expression", `<scene id="a" start="2 *"/>`, ErrBadExpression, "composition[c]/scene[a]@start"},
		{"bad unit", `<scene id="a" duration="3h"/>`, ErrBadExpression, "composition[c]/scene[a]@duration"},
		{"bad time scale", `<scene id="a" timeScale="0"/>`, ErrBadNumber, "composition[c]/scene[a]@timeScale"},
		{"bad z", `<scene id="a"><box z="top"/></scene>`, ErrBadNumber, "composition[c]/scene[a]/box[#0]@z"},
		{"bad visible", `<scene id="a"><box visible="yes"/></scene>`, ErrBadNumber, "composition[c]/scene[a]/box[#0]@visible"},
		{"voice outside cue", `<scene id="a"><voice/></scene>`, ErrMisplaced, "composition[c]/scene[a]/voice[#0]"},
		{"cue in container", `<scene id="a"><stack><cue id="q"/></stack></scene>`, ErrMisplaced, "composition[c]/scene[a]/stack[#0]/cue[q]"},
		{"nested layer", `<scene id="a"><layer id="l"><layer id="m"/></layer></scene>`, ErrMisplaced, "composition[c]/scene[a]/layer[l]/layer[m]"},
		{"unknown cue child", `<scene id="a"><cue id="q"><box/></cue></scene>`, ErrMisplaced, "composition[c]/scene[a]/cue[q]/box[#0]"},
		{"pause without length", `<scene id="a"><pause mean="1"/></scene>`, ErrPauseLength, "composition[c]/scene[a]/pause[#0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(parse(t, `<composition id="c">`+tt.body+`</composition>`))
			require.Len(t, errs, 1, "%v", errs)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_RootNumbers(t *testing.T) {
	errs := Validate(parse(t, `<composition id="c" fps="-1" width="wide"/>`))
	assert.Equal(t, []string{ErrBadNumber, ErrBadNumber}, codes(errs))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Field: "composition[c]@id", Message: "missing", Code: ErrMissingID}
	assert.Equal(t, "[E102] composition[c]@id: missing", e.Error())
}
