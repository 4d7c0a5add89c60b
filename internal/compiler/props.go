package compiler

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
)

// typeName converts a component tag to its PascalCase type name:
// "title-card" → "TitleCard", "lowerThird" → "LowerThird".
func typeName(tag string) string {
	words := strings.FieldsFunc(tag, func(r rune) bool {
		return r == '-' || r == '_' || r == ':' || r == '.'
	})
	// Casers carry state, so each call gets its own.
	caser := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range words {
		b.WriteString(caser.String(w))
	}
	return b.String()
}

// props builds the property bag of a component: every non-reserved,
// non-handler attribute coerced to a typed value, with the props JSON object
// merged over them.
func props(el *markup.Element) ir.Map {
	attrs := ir.Map{}
	for _, a := range el.Attrs {
		if reserved[a.Name] {
			continue
		}
		if _, ok := handlerName(a.Name); ok {
			continue
		}
		attrs[a.Name] = ir.Coerce(a.Value)
	}
	var extra ir.Map
	if raw, ok := el.Attr("props"); ok {
		// Validate has already rejected malformed JSON.
		extra, _ = ir.DecodeMap([]byte(raw))
	}
	return ir.Merge(attrs, extra)
}

// handlers collects on:<event> attributes.
func handlers(el *markup.Element) map[string]string {
	var out map[string]string
	for _, a := range el.Attrs {
		if event, ok := handlerName(a.Name); ok {
			if out == nil {
				out = make(map[string]string)
			}
			out[event] = a.Value
		}
	}
	return out
}

// cascade is the inherited styling and timing state passed down the tree.
type cascade struct {
	styles ir.Map
	markup ir.Map
	scale  float64
}

// child derives the cascade for el from its parent's.
func (c cascade) child(el *markup.Element) cascade {
	next := cascade{
		styles: c.styles,
		markup: c.markup,
		scale:  c.scale,
	}
	if raw, ok := el.Attr("styles"); ok {
		m, _ := ir.DecodeMap([]byte(raw))
		next.styles = ir.Merge(c.styles, m)
	}
	if raw, ok := el.Attr("markup"); ok {
		m, _ := ir.DecodeMap([]byte(raw))
		next.markup = ir.Merge(c.markup, m)
	}
	if raw, ok := attr(el, "timeScale", "time-scale"); ok {
		if f, err := strconv.ParseFloat(raw, 64); err == nil && f > 0 {
			next.scale *= f
		}
	}
	return next
}

// visible reads the visible attribute, defaulting to true.
func visible(el *markup.Element) bool {
	return el.AttrOr("visible", "true") != "false"
}

// zIndex reads the z attribute, defaulting to 0.
func zIndex(el *markup.Element) int {
	z, _ := strconv.Atoi(el.AttrOr("z", "0"))
	return z
}
