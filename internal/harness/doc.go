// Package harness provides scenario testing for composition playback.
//
// The harness resolves a composition, drives a player through a list of
// steps on a manual clock, records the emitted events and validates them
// with assertions and golden traces.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	composition: ../compositions/demo.xml   # or inline markup:
//	group: main
//	mode: bounded
//	loop: false
//	steps:
//	  - advance: 0.5
//	    repeat: 4
//	  - patch:
//	      - { op: set-attr, target: intro, name: duration, value: 4s }
//	  - patch:
//	      - { op: set-attr, target: sealed-cue, name: duration, value: 1s }
//	    expect_error: SEALED
//	assertions:
//	  - type: event_order
//	    events: ["scene-start:intro", "scene-end:intro"]
//	  - type: final_state
//	    scene: outro
//	    visible: [logo]
//
// # Assertion Types
//
//   - event_contains: an event of the given kind (and id) was emitted
//   - event_order: "kind:id" labels appear in order, not necessarily adjacent
//   - event_count: an event of the given kind (and id) appears exactly N times
//   - hook_called: an on:<event> handler with the given source ran
//   - final_state: active scene, cues, visible components, time, running
//   - deterministic: replaying the recorded trace reproduces it
//
// # Deterministic Testing
//
// Every scenario runs against:
//   - A manual clock starting at testutil.Epoch
//   - A fixed session id (scenario.session_id or "test-session")
//   - An in-memory SQLite trace store (isolated per run)
//
// The first frame is always a zero-delta tick at time 0. Patches are
// reflected on the following frame, exactly as in a live run.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/intro_outro.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
