package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/scenecast/internal/markup"
)

// Structural tags.
const (
	tagScene     = "scene"
	tagVoiceOver = "voiceover"
	tagCue       = "cue"
	tagVoice     = "voice"
	tagPause     = "pause"
	tagBullet    = "bullet"
	tagLayer     = "layer"
	tagSequence  = "sequence"
	tagStack     = "stack"
)

// rootTags are the accepted document root aliases.
var rootTags = map[string]bool{
	"composition":  true,
	"presentation": true,
	"video":        true,
}

// reserved attributes are consumed by the resolver and never become props.
var reserved = map[string]bool{
	"id":         true,
	"visible":    true,
	"z":          true,
	"start":      true,
	"end":        true,
	"duration":   true,
	"styles":     true,
	"markup":     true,
	"props":      true,
	"timeScale":  true,
	"time-scale": true,
}

// timeAttrs lists the attributes holding time expressions, per tag. Component
// tags use timedAttrs.
var (
	timedAttrs = []string{"start", "end", "duration"}
	timeAttrs  = map[string][]string{
		tagPause:     {"seconds", "mean", "std", "min", "max"},
		tagVoice:     {"duration", "trimEnd", "trim-end"},
		tagVoiceOver: {"leadIn", "lead-in", "trimEnd", "trim-end"},
		tagBullet:    nil,
	}
)

func timeAttrsOf(tag string) []string {
	if attrs, ok := timeAttrs[tag]; ok {
		return attrs
	}
	return timedAttrs
}

// isContainer reports whether tag applies a flow to its children.
func isContainer(tag string) bool {
	return tag == tagSequence || tag == tagStack || tag == tagLayer
}

// isComponent reports whether tag is a visual component inside a scene.
func isComponent(tag string) bool {
	switch tag {
	case tagScene, tagVoiceOver, tagCue, tagVoice, tagPause, tagBullet, tagLayer:
		return false
	}
	return true
}

// attr returns the first present attribute among aliases.
func attr(el *markup.Element, names ...string) (string, bool) {
	for _, n := range names {
		if v, ok := el.Attr(n); ok {
			return v, true
		}
	}
	return "", false
}

// segment names el within its parent for error paths.
func segment(el *markup.Element, index int) string {
	if id := el.ID(); id != "" {
		return fmt.Sprintf("%s[%s]", el.Tag, id)
	}
	return fmt.Sprintf("%s[#%d]", el.Tag, index)
}

func joinPath(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

func attrPath(path, name string) string {
	return path + "@" + name
}

// handlerName returns the event name of an on:<event> attribute.
func handlerName(name string) (string, bool) {
	return strings.CutPrefix(name, "on:")
}
