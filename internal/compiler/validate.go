package compiler

import (
	"fmt"
	"strconv"

	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/timeexpr"
)

// Validation error codes (E100-E199)
const (
	ErrRootTag          = "E101" // root tag is not an accepted alias
	ErrMissingID        = "E102" // required id attribute missing
	ErrDuplicateSceneID = "E103" // two scenes share an id
	ErrDuplicateCueID   = "E104" // two cues share an id anywhere in the composition
	ErrDuplicateID      = "E105" // any other element id used twice
	ErrMultipleVoice    = "E106" // more than one voiceover
	ErrNestedScene      = "E107" // scene inside a scene
	ErrUnknownTag       = "E108" // unknown composition-level element
	ErrMalformedJSON    = "E109" // styles/markup/props is not a JSON object
	ErrBadExpression    = "E110" // time expression does not parse
	ErrBadNumber        = "E111" // numeric or boolean attribute is malformed
	ErrMisplaced        = "E112" // element not allowed at this position
	ErrPauseLength      = "E113" // pause has neither seconds nor mean+std
)

// ValidationError represents a structural problem in a markup tree.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a markup tree for structural errors.
// Returns all errors found (does not fail-fast).
func Validate(root *markup.Element) []ValidationError {
	v := &validator{ids: make(map[string]string)}
	v.root(root)
	return v.errs
}

type validator struct {
	errs       []ValidationError
	ids        map[string]string // id -> tag of first owner
	voiceovers int
}

func (v *validator) add(code, field, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code})
}

func (v *validator) root(root *markup.Element) {
	if root == nil {
		v.add(ErrRootTag, "root", "document is empty")
		return
	}
	path := segment(root, 0)
	if !rootTags[root.Tag] {
		v.add(ErrRootTag, path, "root element must be <composition>, <presentation> or <video>, got <%s>", root.Tag)
	}
	if root.ID() == "" {
		v.add(ErrMissingID, attrPath(path, "id"), "composition id is required")
	}
	v.number(root, path, "fps", false)
	v.number(root, path, "width", true)
	v.number(root, path, "height", true)
	v.common(root, path, []string{"duration", "poster"})

	for i, child := range root.Children {
		cpath := joinPath(path, segment(child, i))
		switch child.Tag {
		case tagScene:
			v.scene(child, cpath)
		case tagVoiceOver:
			v.voiceovers++
			if v.voiceovers > 1 {
				v.add(ErrMultipleVoice, cpath, "at most one voiceover is allowed")
			}
			v.number(child, cpath, "sampleRate", true)
			v.number(child, cpath, "sample-rate", true)
			v.number(child, cpath, "seed", true)
			v.common(child, cpath, timeAttrsOf(tagVoiceOver))
		default:
			v.add(ErrUnknownTag, cpath, "unexpected <%s> at composition level", child.Tag)
		}
	}
}

func (v *validator) scene(el *markup.Element, path string) {
	v.requireID(el, path)
	v.common(el, path, timedAttrs)
	for i, child := range el.Children {
		cpath := joinPath(path, segment(child, i))
		switch child.Tag {
		case tagCue:
			v.cue(child, cpath)
		case tagPause:
			v.pause(child, cpath)
		default:
			v.visual(child, cpath)
		}
	}
}

func (v *validator) cue(el *markup.Element, path string) {
	v.requireID(el, path)
	v.common(el, path, timedAttrs)
	for i, child := range el.Children {
		cpath := joinPath(path, segment(child, i))
		switch child.Tag {
		case tagVoice:
			v.common(child, cpath, timeAttrsOf(tagVoice))
		case tagBullet:
		case tagPause:
			v.pause(child, cpath)
		default:
			v.add(ErrMisplaced, cpath, "<%s> is not allowed inside a cue", child.Tag)
		}
	}
}

func (v *validator) pause(el *markup.Element, path string) {
	v.common(el, path, timeAttrsOf(tagPause))
	_, hasSeconds := el.Attr("seconds")
	_, hasMean := el.Attr("mean")
	_, hasStd := el.Attr("std")
	if !hasSeconds && !(hasMean && hasStd) {
		v.add(ErrPauseLength, path, "pause needs seconds, or mean and std")
	}
}

// visual validates layers, containers and components below a scene.
func (v *validator) visual(el *markup.Element, path string) {
	switch el.Tag {
	case tagScene:
		v.add(ErrNestedScene, path, "scenes cannot be nested")
		return
	case tagLayer:
		v.requireID(el, path)
	case tagCue, tagVoice, tagBullet, tagPause, tagVoiceOver:
		v.add(ErrMisplaced, path, "<%s> is not allowed here", el.Tag)
		return
	}
	v.common(el, path, timedAttrs)
	v.number(el, path, "z", true)
	if raw, ok := el.Attr("visible"); ok && raw != "true" && raw != "false" {
		v.add(ErrBadNumber, attrPath(path, "visible"), "visible must be true or false, got %q", raw)
	}

	for i, child := range el.Children {
		cpath := joinPath(path, segment(child, i))
		if child.Tag == tagLayer {
			v.add(ErrMisplaced, cpath, "layers must be direct children of a scene")
			continue
		}
		v.visual(child, cpath)
	}
}

// common runs the checks shared by every element: id uniqueness, JSON
// attributes, time expressions and time scale.
func (v *validator) common(el *markup.Element, path string, exprAttrs []string) {
	if id := el.ID(); id != "" {
		if owner, seen := v.ids[id]; seen {
			switch {
			case el.Tag == tagCue && owner == tagCue:
				v.add(ErrDuplicateCueID, attrPath(path, "id"), "duplicate cue id %q", id)
			case el.Tag == tagScene && owner == tagScene:
				v.add(ErrDuplicateSceneID, attrPath(path, "id"), "duplicate scene id %q", id)
			default:
				v.add(ErrDuplicateID, attrPath(path, "id"), "id %q is already used by a <%s>", id, owner)
			}
		} else {
			v.ids[id] = el.Tag
		}
	}

	for _, name := range []string{"styles", "markup", "props"} {
		if raw, ok := el.Attr(name); ok {
			if _, err := ir.DecodeMap([]byte(raw)); err != nil {
				v.add(ErrMalformedJSON, attrPath(path, name), "%v", err)
			}
		}
	}

	for _, name := range exprAttrs {
		if raw, ok := el.Attr(name); ok {
			if _, err := timeexpr.Parse(raw); err != nil {
				v.add(ErrBadExpression, attrPath(path, name), "%v", err)
			}
		}
	}

	for _, name := range []string{"timeScale", "time-scale"} {
		if raw, ok := el.Attr(name); ok {
			if f, err := strconv.ParseFloat(raw, 64); err != nil || f <= 0 {
				v.add(ErrBadNumber, attrPath(path, name), "time scale must be a positive number, got %q", raw)
			}
		}
	}
}

func (v *validator) requireID(el *markup.Element, path string) {
	if el.ID() == "" {
		v.add(ErrMissingID, attrPath(path, "id"), "<%s> requires an id", el.Tag)
	}
}

// number checks an optional numeric attribute; integer restricts it to
// whole numbers.
func (v *validator) number(el *markup.Element, path, name string, integer bool) {
	raw, ok := el.Attr(name)
	if !ok {
		return
	}
	if integer {
		if _, err := strconv.Atoi(raw); err != nil {
			v.add(ErrBadNumber, attrPath(path, name), "expected an integer, got %q", raw)
		}
		return
	}
	if f, err := strconv.ParseFloat(raw, 64); err != nil || f <= 0 {
		v.add(ErrBadNumber, attrPath(path, name), "expected a positive number, got %q", raw)
	}
}
