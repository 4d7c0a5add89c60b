package engine

import (
	"math"
	"slices"
	"time"
)

// Mode selects how a timeline treats its duration.
type Mode string

const (
	// ModeBounded advances up to Duration, then wraps or stops.
	ModeBounded Mode = "bounded"

	// ModeLive advances without bound.
	ModeLive Mode = "live"
)

// DefaultFPS is used when TimelineOptions.FPS is not positive.
const DefaultFPS = 30.0

// TimelineOptions configures a timeline at creation.
type TimelineOptions struct {
	FPS      float64
	Mode     Mode
	Duration float64 // seconds; only meaningful in bounded mode
	Loop     bool
}

// TickInfo is what a timeline tells its subscribers on every tick.
type TickInfo struct {
	Group string
	Time  float64
	Frame int64
	FPS   float64
	Delta float64

	// Final is set on the tick that clamped a non-looping bounded timeline
	// to its duration. No tick follows it until the timeline restarts.
	Final bool
}

// Subscriber receives ticks from a timeline.
type Subscriber interface {
	OnTick(TickInfo)
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(TickInfo)

// OnTick calls f(info).
func (f SubscriberFunc) OnTick(info TickInfo) { f(info) }

// Subscription is the handle returned by Attach.
type Subscription struct {
	timeline *Timeline
	sub      Subscriber
}

// Timeline returns the timeline the subscription is attached to.
func (s *Subscription) Timeline() *Timeline { return s.timeline }

// Timeline is the mutable clock of one synchronization group.
//
// State machine: stopped (initial) → running (Start) → stopped (Stop, or the
// end of a non-looping bounded run).
//
// Thread-safety: Timeline is NOT safe for concurrent use. It belongs to the
// driver goroutine; other goroutines marshal work onto it with Driver.Post.
type Timeline struct {
	group string
	opts  TimelineOptions

	time    float64
	frame   int64
	running bool

	last   time.Time
	primed bool // false until the first tick after Start

	subs []*Subscription
}

func newTimeline(group string, opts TimelineOptions) *Timeline {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Mode == "" {
		opts.Mode = ModeBounded
	}
	if opts.Duration < 0 {
		opts.Duration = 0
	}
	return &Timeline{group: group, opts: opts}
}

// Group returns the synchronization group key.
func (t *Timeline) Group() string { return t.group }

// Options returns the timeline's current configuration.
func (t *Timeline) Options() TimelineOptions { return t.opts }

// Time returns the current playback time in seconds.
func (t *Timeline) Time() float64 { return t.time }

// Frame returns floor(time × fps).
func (t *Timeline) Frame() int64 { return t.frame }

// Running reports whether ticks advance the clock.
func (t *Timeline) Running() bool { return t.running }

// Start transitions the timeline to running. The next tick has zero delta.
// Starting a bounded, non-looping timeline that already reached its end
// rewinds it to 0. Starting a running timeline is a no-op.
func (t *Timeline) Start() {
	if t.running {
		return
	}
	if t.opts.Mode == ModeBounded && !t.opts.Loop && t.time >= t.opts.Duration {
		t.set(0)
	}
	t.running = true
	t.primed = false
}

// Stop transitions the timeline to stopped. Idempotent.
func (t *Timeline) Stop() {
	t.running = false
	t.primed = false
}

// Seek moves the clock without notifying subscribers. In bounded mode the
// target is clamped to [0, duration].
func (t *Timeline) Seek(seconds float64) {
	seconds = max(seconds, 0)
	if t.opts.Mode == ModeBounded {
		seconds = min(seconds, t.opts.Duration)
	}
	t.set(seconds)
}

// SetDuration changes the bounded duration, clamping the current time.
func (t *Timeline) SetDuration(seconds float64) {
	t.opts.Duration = max(seconds, 0)
	if t.opts.Mode == ModeBounded && t.time > t.opts.Duration {
		t.set(t.opts.Duration)
	}
}

// SetLoop toggles looping.
func (t *Timeline) SetLoop(loop bool) { t.opts.Loop = loop }

// Tick advances the clock by the wall-clock delta since the previous tick and
// notifies every subscriber in attach order. Returns false, without
// notifying anyone, when the timeline is stopped.
func (t *Timeline) Tick(now time.Time) bool {
	if !t.running {
		return false
	}

	var delta float64
	if t.primed {
		delta = max(now.Sub(t.last).Seconds(), 0)
	}
	t.last = now
	t.primed = true

	next := t.time + delta
	final := false
	if t.opts.Mode == ModeBounded && next >= t.opts.Duration {
		switch {
		case !t.opts.Loop:
			next = t.opts.Duration
			final = true
			t.Stop()
		case t.opts.Duration == 0:
			next = 0
		default:
			next = math.Mod(next, t.opts.Duration)
		}
	}
	t.set(next)

	info := TickInfo{
		Group: t.group,
		Time:  t.time,
		Frame: t.frame,
		FPS:   t.opts.FPS,
		Delta: delta,
		Final: final,
	}
	// Subscribers may detach while being notified
	for _, s := range slices.Clone(t.subs) {
		s.sub.OnTick(info)
	}
	return true
}

// Subscribers returns the number of attached subscribers.
func (t *Timeline) Subscribers() int { return len(t.subs) }

func (t *Timeline) set(seconds float64) {
	t.time = seconds
	t.frame = int64(math.Floor(seconds * t.opts.FPS))
}

func (t *Timeline) attach(sub Subscriber) *Subscription {
	s := &Subscription{timeline: t, sub: sub}
	t.subs = append(t.subs, s)
	return s
}

func (t *Timeline) detach(s *Subscription) bool {
	i := slices.Index(t.subs, s)
	if i < 0 {
		return false
	}
	t.subs = slices.Delete(t.subs, i, i+1)
	return true
}
