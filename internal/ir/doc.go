// Package ir provides the resolved composition model for scenecast.
//
// This package contains the output of the time resolver and the types the
// playback scheduler consumes. All other internal packages may import ir; ir
// imports nothing internal, which keeps it the foundational layer.
//
// Key design constraints:
//   - All times are absolute seconds (float64) from the start of the timeline
//   - An absent end (nil) is an open bound, "until superseded"
//   - Property bags are typed Values, never interface{} maps
//   - All JSON tags use snake_case
package ir
