// Package engine implements the scenecast playback scheduler.
//
// A Registry holds one Timeline per synchronization group. Players attach to
// a group, and every tick of the group's timeline classifies the scenes, cues
// and components of each player's resolved composition as active or
// inactive, emitting edge-triggered Events.
//
// ARCHITECTURE:
//
// Single-Writer Frame Loop:
// A Driver owns the registry and ticks it from one goroutine. Nothing in the
// registry, its timelines or its players takes a lock; cross-goroutine work
// is marshalled onto the loop with Driver.Post. This keeps:
// - ticks per timeline strictly sequential
// - subscriber callbacks complete before the next frame
// - the event order reproducible for trace comparison
//
// Tick Flow:
// 1. Driver.Step drains posted commands and runs frame hooks
// 2. Each running Timeline advances by the wall-clock delta (zero on the
//    first tick after Start), wraps or clamps in bounded mode
// 3. Every attached Player emits tick, then scene, cue and component
//    transitions, ending before starting within each kind
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Events carry a Seq from a Sequencer. Players sharing a Sequencer produce a
// single total order. Wall-clock time only drives the timeline, never event
// ordering.
//
// Half-Open Windows:
// Cues and components are active on [start, end). An open end is bounded by
// the owning scene's upper bound: its end, else the next scene's start.
package engine
