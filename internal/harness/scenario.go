package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/markup"
)

// Scenario defines a playback test scenario.
// A scenario resolves one composition, drives its player through a list of
// steps on a manual clock, and asserts on the emitted events and the final
// player state.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Composition is a path to a markup file, relative to the scenario file.
	// Exactly one of Composition and Markup must be set.
	Composition string `yaml:"composition,omitempty"`

	// Markup is inline composition markup.
	Markup string `yaml:"markup,omitempty"`

	// Group is the synchronization group the player joins. Defaults to "main".
	Group string `yaml:"group,omitempty"`

	// Mode is "bounded" (default) or "live".
	Mode engine.Mode `yaml:"mode,omitempty"`

	// Loop wraps a bounded timeline at its end.
	Loop bool `yaml:"loop,omitempty"`

	// Steps drive playback in order. The harness always delivers one
	// zero-delta tick before the first step.
	Steps []Step `yaml:"steps"`

	// Assertions validate the recorded events and final state.
	Assertions []Assertion `yaml:"assertions"`

	// SessionID is an optional fixed session id for the recorded trace.
	// Defaults to "test-session".
	SessionID string `yaml:"session_id,omitempty"`

	// dir is the scenario file's directory, used to resolve Composition.
	dir string
}

// Step is one playback action. Exactly one field must be set.
type Step struct {
	// Advance moves the manual clock by this many seconds and runs a frame.
	Advance float64 `yaml:"advance,omitempty"`

	// Repeat runs the Advance step this many times. Defaults to 1.
	Repeat int `yaml:"repeat,omitempty"`

	// Seek moves the timeline without notifying the player.
	Seek *float64 `yaml:"seek,omitempty"`

	// Patch applies one all-or-nothing batch to the live document. The
	// change is reflected on the next frame.
	Patch []markup.Patch `yaml:"patch,omitempty"`

	// ExpectError is the PatchError code the batch must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Stop and Start control the timeline.
	Stop  bool `yaml:"stop,omitempty"`
	Start bool `yaml:"start,omitempty"`
}

// Assertion validates the trace or the final player state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_contains": an event with Kind (and ID, if set) was emitted
	// - "event_order": Events ("kind:id") appear in this relative order
	// - "event_count": Kind (and ID, if set) was emitted exactly Count times
	// - "final_state": the player's final state matches
	// - "hook_called": a handler with Source ran for ID
	// - "deterministic": replaying the recorded trace reproduces it
	Type string `yaml:"type"`

	Kind   engine.EventKind `yaml:"kind,omitempty"`
	ID     string           `yaml:"id,omitempty"`
	Count  int              `yaml:"count,omitempty"`
	Events []string         `yaml:"events,omitempty"`
	Source string           `yaml:"source,omitempty"`

	// Final state fields (used by final_state). Omitted fields are not
	// checked; an empty Scene means no scene is active.
	Scene   *string  `yaml:"scene,omitempty"`
	Cues    []string `yaml:"cues,omitempty"`
	Visible []string `yaml:"visible,omitempty"`
	Time    *float64 `yaml:"time,omitempty"`
	Running *bool    `yaml:"running,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventOrder    = "event_order"
	AssertEventCount    = "event_count"
	AssertFinalState    = "final_state"
	AssertHookCalled    = "hook_called"
	AssertDeterministic = "deterministic"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	scenario.dir = filepath.Dir(path)

	if scenario.Composition != "" {
		if _, err := os.Stat(scenario.compositionPath()); os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: composition file not found: %s", path, scenario.Composition)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. A Composition path in the result is
// resolved against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict fields catch typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) compositionPath() string {
	if filepath.IsAbs(s.Composition) || s.dir == "" {
		return s.Composition
	}
	return filepath.Join(s.dir, s.Composition)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if (s.Composition == "") == (s.Markup == "") {
		return fmt.Errorf("exactly one of composition and markup is required")
	}

	switch s.Mode {
	case "", engine.ModeBounded, engine.ModeLive:
	default:
		return fmt.Errorf("unknown mode %q", s.Mode)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	if st.Advance != 0 {
		set++
	}
	if st.Seek != nil {
		set++
	}
	if st.Patch != nil {
		set++
	}
	if st.Stop {
		set++
	}
	if st.Start {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of advance, seek, patch, stop and start is required", index)
	}

	if st.Advance < 0 {
		return fmt.Errorf("steps[%d]: advance must be positive", index)
	}
	if st.Repeat < 0 || (st.Repeat > 0 && st.Advance == 0) {
		return fmt.Errorf("steps[%d]: repeat requires a positive advance", index)
	}
	if st.ExpectError != "" && st.Patch == nil {
		return fmt.Errorf("steps[%d]: expect_error requires a patch", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_contains", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
	case AssertHookCalled:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for hook_called", index)
		}
	case AssertFinalState, AssertDeterministic:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
