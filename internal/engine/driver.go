package engine

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRefreshRate is the ticker frequency, in Hz, used when no frame
// source is configured.
const DefaultRefreshRate = 60.0

// FrameSource delivers display-refresh instants to the driver.
type FrameSource interface {
	Frames() <-chan time.Time
	Stop()
}

// tickerSource is the default FrameSource.
type tickerSource struct {
	ticker *time.Ticker
}

// NewTickerSource returns a FrameSource firing rate times per second.
func NewTickerSource(rate float64) FrameSource {
	if rate <= 0 {
		rate = DefaultRefreshRate
	}
	return &tickerSource{ticker: time.NewTicker(time.Duration(float64(time.Second) / rate))}
}

func (s *tickerSource) Frames() <-chan time.Time { return s.ticker.C }
func (s *tickerSource) Stop()                    { s.ticker.Stop() }

// FrameHook runs once per frame, before any timeline ticks.
type FrameHook func(now time.Time)

// Driver is the single scheduling goroutine. It owns a Registry and every
// timeline and player reachable from it.
//
// ARCHITECTURE:
//
// Single-Writer Frame Loop:
// Run processes frames and posted commands in one goroutine. Timelines,
// players and the registry carry no locks; anything running elsewhere
// (fetches, file watchers, signal handlers) reaches them through Post.
//
// Per frame, Step:
// 1. drains posted commands in FIFO order
// 2. runs frame hooks in registration order
// 3. ticks every timeline in group creation order
//
// Subscriber callbacks for a frame complete before the next frame is read.
type Driver struct {
	reg    *Registry
	source FrameSource
	queue  *commandQueue
	hooks  []FrameHook
	logger *slog.Logger
	rate   float64
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithFrameSource replaces the default ticker.
func WithFrameSource(fs FrameSource) DriverOption {
	return func(d *Driver) { d.source = fs }
}

// WithRefreshRate sets the default ticker frequency in Hz.
func WithRefreshRate(hz float64) DriverOption {
	return func(d *Driver) { d.rate = hz }
}

// WithDriverLogger sets the driver's logger.
func WithDriverLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) { d.logger = l }
}

// NewDriver creates a driver for reg.
func NewDriver(reg *Registry, opts ...DriverOption) *Driver {
	d := &Driver{
		reg:   reg,
		queue: newCommandQueue(),
		rate:  DefaultRefreshRate,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Registry returns the registry the driver ticks.
func (d *Driver) Registry() *Registry { return d.reg }

// OnFrame adds a per-frame hook. Call it before Run, or from a posted
// command.
func (d *Driver) OnFrame(h FrameHook) {
	d.hooks = append(d.hooks, h)
}

// Post schedules fn to run on the driver goroutine before the next frame.
// Safe to call from any goroutine. Returns a DRIVER_STOPPED RuntimeError
// once the driver has stopped.
func (d *Driver) Post(fn func()) error {
	if !d.queue.Enqueue(fn) {
		return &RuntimeError{Code: ErrCodeDriverStopped, Message: "driver is stopped"}
	}
	return nil
}

// Step runs one frame synchronously. Use it instead of Run for
// deterministic, caller-driven playback; never call it while Run is active.
func (d *Driver) Step(now time.Time) {
	d.queue.Drain()
	for _, h := range d.hooks {
		h(now)
	}
	d.reg.Each(func(tl *Timeline) {
		tl.Tick(now)
	})
}

// Run drives frames until ctx is cancelled, Stop is called, or the frame
// source closes. Commands already posted when Stop is called still run.
func (d *Driver) Run(ctx context.Context) error {
	if d.source == nil {
		d.source = NewTickerSource(d.rate)
	}
	defer d.source.Stop()

	d.logger.Info("driver starting", "groups", len(d.reg.Groups()))
	frames := d.source.Frames()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("driver stopping: context cancelled")
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			d.queue.Drain()
			if d.queue.Closed() {
				d.logger.Info("driver stopping: stopped")
				return nil
			}

		case now, ok := <-frames:
			if !ok {
				d.logger.Info("driver stopping: frame source closed")
				d.queue.Close()
				return nil
			}
			d.Step(now)
		}
	}
}

// Stop makes Run return after draining posted commands. Idempotent.
func (d *Driver) Stop() {
	d.queue.Close()
}
