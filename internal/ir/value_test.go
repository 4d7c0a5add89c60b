package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"True", String("True")},
		{"42", Number(42)},
		{"-1.5", Number(-1.5)},
		{"1e3", Number(1000)},
		{".5", Number(0.5)},
		{"Inf", String("Inf")},
		{"NaN", String("NaN")},
		{"0x10", String("0x10")},
		{"1_000", String("1_000")},
		{"12px", String("12px")},
		{"-", String("-")},
		{"", String("")},
		{"hello", String("hello")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Coerce(tt.raw))
		})
	}
}

func TestMerge_ChildOverridesKeyByKey(t *testing.T) {
	parent := Map{
		"color": String("red"),
		"font":  Map{"size": Number(12), "family": String("serif")},
		"keep":  Bool(true),
	}
	child := Map{
		"color": String("blue"),
		"font":  Map{"size": Number(14)},
	}

	got := Merge(parent, child)

	assert.Equal(t, Map{
		"color": String("blue"),
		"font":  Map{"size": Number(14), "family": String("serif")},
		"keep":  Bool(true),
	}, got)

	// Inputs untouched
	assert.Equal(t, String("red"), parent["color"])
	assert.Equal(t, Number(12), parent["font"].(Map)["size"])
}

func TestMerge_NonMapReplacesMap(t *testing.T) {
	got := Merge(Map{"a": Map{"x": Number(1)}}, Map{"a": String("flat")})
	assert.Equal(t, Map{"a": String("flat")}, got)
}

func TestMerge_Empty(t *testing.T) {
	assert.Nil(t, Merge(nil, nil))
	assert.Equal(t, Map{"a": Number(1)}, Merge(nil, Map{"a": Number(1)}))
}

func TestDecodeMap(t *testing.T) {
	m, err := DecodeMap([]byte(`{"opacity": 0.5, "tags": ["a", 1], "nested": {"on": true}, "none": null}`))
	require.NoError(t, err)

	assert.Equal(t, Map{
		"opacity": Number(0.5),
		"tags":    List{String("a"), Number(1)},
		"nested":  Map{"on": Bool(true)},
		"none":    Null{},
	}, m)
}

func TestDecodeMap_Errors(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"str"`, `{"a":`, `{} {}`, ``} {
		t.Run(raw, func(t *testing.T) {
			_, err := DecodeMap([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestMap_MarshalJSON_SortedKeys(t *testing.T) {
	b, err := Map{"b": Number(2), "a": List{Bool(true), Null{}}, "c": String("x")}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"a":[true,null],"b":2,"c":"x"}`, string(b))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "2", formatNumber(2))
	assert.Equal(t, "0.96", formatNumber(0.96))
	assert.Equal(t, "-3.5", formatNumber(-3.5))
	assert.Equal(t, "1e-7", formatNumber(0.0000001))
	assert.Equal(t, "1e+21", formatNumber(1e21))
}

func TestComposition_JSONRoundTripKeepsTypedValues(t *testing.T) {
	in := Composition{
		ID: "demo",
		Scenes: []Scene{{
			ID: "a",
			Components: []Component{{
				ID:    "title",
				Type:  "TitleCard",
				Props: Map{"size": Number(3), "bold": Bool(true), "tags": List{String("x")}, "style": Map{"color": String("red")}},
			}},
		}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Composition
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestList_UnmarshalJSON_RejectsObject(t *testing.T) {
	var l List
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &l))
}
