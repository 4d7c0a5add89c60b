package ir

// Composition is the fully resolved, time-absolute representation of an
// authored presentation.
type Composition struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	FPS       float64    `json:"fps"`
	Width     int        `json:"width"`
	Height    int        `json:"height"`
	Duration  *float64   `json:"duration,omitempty"` // Fixed total duration, if authored
	Poster    *float64   `json:"poster,omitempty"`   // Poster frame time
	VoiceOver *VoiceOver `json:"voiceover,omitempty"`
	Scenes    []Scene    `json:"scenes"`
	Hash      string     `json:"hash,omitempty"` // CompositionHash of everything above
}

// VoiceOver is the composition-level narration synthesis configuration.
// It is carried through untouched; synthesis is a renderer concern.
type VoiceOver struct {
	Provider   string  `json:"provider,omitempty"`
	Voice      string  `json:"voice,omitempty"`
	Model      string  `json:"model,omitempty"`
	Format     string  `json:"format,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
	LeadIn     float64 `json:"lead_in,omitempty"`  // seconds
	TrimEnd    float64 `json:"trim_end,omitempty"` // seconds
}

// Scene is a top-level temporal section with its own window.
// End is nil for an open-ended scene.
type Scene struct {
	ID         string            `json:"id"`
	Start      float64           `json:"start"`
	End        *float64          `json:"end,omitempty"`
	Items      []Item            `json:"items,omitempty"`
	Cues       []Cue             `json:"cues,omitempty"`
	Layers     []Layer           `json:"layers,omitempty"`
	Components []Component       `json:"components,omitempty"`
	Handlers   map[string]string `json:"handlers,omitempty"`
}

// ItemKind distinguishes scene items.
type ItemKind string

const (
	ItemCue   ItemKind = "cue"
	ItemPause ItemKind = "pause"
)

// Item is one entry of a scene's narration order: a cue or a pause.
type Item struct {
	Kind  ItemKind `json:"kind"`
	CueID string   `json:"cue_id,omitempty"`
	Pause *Pause   `json:"pause,omitempty"`
	Start float64  `json:"start"`
	End   float64  `json:"end"`
}

// Cue is a labeled, independently timed narration unit. Cue ids are unique
// across the whole composition.
type Cue struct {
	ID       string            `json:"id"`
	Label    string            `json:"label,omitempty"`
	Segments []Segment         `json:"segments,omitempty"`
	Bullets  []string          `json:"bullets,omitempty"`
	Start    float64           `json:"start"`
	End      *float64          `json:"end,omitempty"`
	Handlers map[string]string `json:"handlers,omitempty"`
}

// SegmentKind distinguishes cue content segments.
type SegmentKind string

const (
	SegmentVoice SegmentKind = "voice"
	SegmentPause SegmentKind = "pause"
)

// Segment is a spoken text run or a pause inside a cue.
type Segment struct {
	Kind     SegmentKind `json:"kind"`
	Text     string      `json:"text,omitempty"`
	Duration *float64    `json:"duration,omitempty"` // Known audio length of a voice segment
	TrimEnd  float64     `json:"trim_end,omitempty"`
	Pause    *Pause      `json:"pause,omitempty"`
}

// Pause is a fixed or randomized gap. Seconds is always the resolved length;
// for gaussian pauses it is the deterministic sample.
type Pause struct {
	Seconds float64  `json:"seconds"`
	Mean    *float64 `json:"mean,omitempty"`
	Std     *float64 `json:"std,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// Layer is a named, z-ordered stack of components within a scene.
type Layer struct {
	ID         string      `json:"id"`
	Visible    bool        `json:"visible"`
	Z          int         `json:"z"`
	Styles     Map         `json:"styles,omitempty"`
	Markup     Map         `json:"markup,omitempty"`
	Start      float64     `json:"start"`
	End        *float64    `json:"end,omitempty"`
	Components []Component `json:"components,omitempty"`
}

// Flow is the timing discipline a container applies to untimed children.
type Flow string

const (
	FlowNone     Flow = ""
	FlowSequence Flow = "sequence"
	FlowStack    Flow = "stack"
)

// Component is a timed visual element. Containers (Flow != FlowNone) carry
// their resolved children.
type Component struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Props    Map               `json:"props,omitempty"`
	Styles   Map               `json:"styles,omitempty"`
	Markup   Map               `json:"markup,omitempty"`
	Visible  bool              `json:"visible"`
	Z        int               `json:"z,omitempty"`
	Start    float64           `json:"start"`
	End      *float64          `json:"end,omitempty"`
	Flow     Flow              `json:"flow,omitempty"`
	Children []Component       `json:"children,omitempty"`
	Handlers map[string]string `json:"handlers,omitempty"`
}

// Scene returns the scene with the given id.
func (c *Composition) Scene(id string) (*Scene, bool) {
	for i := range c.Scenes {
		if c.Scenes[i].ID == id {
			return &c.Scenes[i], true
		}
	}
	return nil, false
}

// Cue returns the cue with the given id and its owning scene.
func (c *Composition) Cue(id string) (*Cue, *Scene, bool) {
	for i := range c.Scenes {
		s := &c.Scenes[i]
		for j := range s.Cues {
			if s.Cues[j].ID == id {
				return &s.Cues[j], s, true
			}
		}
	}
	return nil, nil, false
}

// SceneBound returns the exclusive upper bound of scene i: its own end, else
// the next scene's start. ok is false for an open final scene.
func (c *Composition) SceneBound(i int) (float64, bool) {
	s := c.Scenes[i]
	if s.End != nil {
		return *s.End, true
	}
	if i+1 < len(c.Scenes) {
		return c.Scenes[i+1].Start, true
	}
	return 0, false
}

// TotalDuration is the authored duration, else the latest scene bound.
// ok is false when the final scene is open and no duration is authored,
// meaning the composition can only play in live mode.
func (c *Composition) TotalDuration() (float64, bool) {
	if c.Duration != nil {
		return *c.Duration, true
	}
	if len(c.Scenes) == 0 {
		return 0, true
	}
	var total float64
	for i := range c.Scenes {
		bound, ok := c.SceneBound(i)
		if !ok {
			return 0, false
		}
		total = max(total, bound)
	}
	return total, true
}

// Walk visits every component of the scene depth-first in document order,
// layers first.
func (s *Scene) Walk(fn func(c *Component, layer *Layer)) {
	var visit func(cs []Component, layer *Layer)
	visit = func(cs []Component, layer *Layer) {
		for i := range cs {
			fn(&cs[i], layer)
			visit(cs[i].Children, layer)
		}
	}
	for i := range s.Layers {
		visit(s.Layers[i].Components, &s.Layers[i])
	}
	visit(s.Components, nil)
}
