package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/config"
	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/metrics"
	"github.com/roach88/scenecast/internal/mount"
	"github.com/roach88/scenecast/internal/store"
)

// flushEvery is how many frames the recorder buffers between writes.
const flushEvery = 30

// PlayResult summarizes a finished playback.
type PlayResult struct {
	SessionID   string      `json:"session_id,omitempty"`
	Composition string      `json:"composition"`
	Group       string      `json:"group"`
	Mode        engine.Mode `json:"mode"`
	Time        float64     `json:"time"`
	Frame       int64       `json:"frame"`
	Transitions int         `json:"transitions"`
	Reloads     int         `json:"reloads,omitempty"`
	TraceDB     string      `json:"trace_db,omitempty"`
}

// playback wires one composition to a driver: registry, timeline, player,
// document reflector, optional trace recorder and metrics.
//
// Everything except close runs on the driver goroutine once run starts.
type playback struct {
	cfg    config.Player
	logger *slog.Logger
	out    io.Writer // transition lines; nil to stay quiet

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	doc       *markup.Document
	reflector *mount.Reflector
	driver    *engine.Driver
	timeline  *engine.Timeline
	player    *engine.Player

	store     *store.Store
	recorder  *store.Recorder
	sessionID string

	frames      int
	transitions int
	reloads     int
}

// newPlayback prepares comp for playback. The timeline is created stopped.
func newPlayback(ctx context.Context, cfg config.Player, root *markup.Element, comp *ir.Composition, out io.Writer, logger *slog.Logger) (*playback, error) {
	opts := engine.TimelineOptions{FPS: comp.FPS, Mode: engine.Mode(cfg.Mode), Loop: cfg.Loop}
	if opts.Mode == engine.ModeBounded {
		total, ok := comp.TotalDuration()
		if !ok {
			return nil, engine.NewOpenDurationError(comp.ID)
		}
		opts.Duration = total
	}

	p := &playback{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		registry: prometheus.NewRegistry(),
	}
	p.metrics = metrics.New(p.registry)

	listeners := []engine.PlayerOption{
		engine.WithListener(engine.ListenerFunc(p.onEvent)),
		engine.WithHook(p.onHook),
		engine.WithLogger(logger),
		engine.WithMetrics(p.metrics),
	}
	if cfg.RecordTrace {
		if err := p.openTrace(ctx, comp, opts); err != nil {
			return nil, err
		}
		listeners = append(listeners, engine.WithListener(p.recorder))
	}
	p.player = engine.NewPlayer(comp, listeners...)

	reg := engine.NewRegistry()
	p.timeline = reg.Timeline(cfg.Group, opts)
	if _, err := reg.Attach(cfg.Group, p.player); err != nil {
		p.closeStore()
		return nil, err
	}
	p.driver = engine.NewDriver(reg,
		engine.WithRefreshRate(cfg.RefreshRate),
		engine.WithDriverLogger(logger),
	)

	p.bind(root)
	p.driver.OnFrame(func(time.Time) {
		// Failures already went to the resolve error handler
		_, _ = p.reflector.Flush()
	})
	if p.recorder != nil {
		p.driver.OnFrame(func(time.Time) {
			p.frames++
			if p.frames%flushEvery == 0 {
				p.flush(ctx)
			}
		})
	}
	return p, nil
}

// bind points the reflector at a fresh document for root.
func (p *playback) bind(root *markup.Element) {
	if p.reflector != nil {
		p.reflector.Close()
	}
	p.doc = markup.NewDocument(root, markup.WithSealing(p.cfg.EnforceSealing))
	p.reflector = mount.NewReflector(p.doc, mount.Retimed{Target: p.player, Timeline: p.timeline},
		mount.WithResolveOptions(compiler.WithMetrics(p.metrics), compiler.WithLogger(p.logger)),
		mount.WithMetrics(p.metrics),
		mount.WithReflectorLogger(p.logger),
		mount.WithResolveErrorHandler(func(err error) {
			p.logger.Warn("edit not applied, keeping previous composition", "error", err)
		}),
	)
}

// reload swaps in a re-resolved source. Runs on the driver goroutine.
func (p *playback) reload(root *markup.Element, comp *ir.Composition) {
	p.bind(root)
	mount.Retimed{Target: p.player, Timeline: p.timeline}.Rebind(comp)
	p.reloads++
	p.logger.Info("composition reloaded", "composition", comp.ID, "hash", comp.Hash)
}

func (p *playback) openTrace(ctx context.Context, comp *ir.Composition, opts engine.TimelineOptions) error {
	st, err := store.Open(p.cfg.TraceDB)
	if err != nil {
		return fmt.Errorf("open trace store: %w", err)
	}
	p.sessionID = engine.UUIDv7Generator{}.Generate()
	sess, err := store.NewSession(p.sessionID, comp, p.cfg.Group, opts)
	if err == nil {
		err = st.WriteSession(ctx, sess)
	}
	if err != nil {
		st.Close()
		return fmt.Errorf("record session: %w", err)
	}
	p.store = st
	p.recorder = store.NewRecorder(st, p.sessionID)
	p.logger.Info("recording trace", "db", p.cfg.TraceDB, "session", p.sessionID)
	return nil
}

func (p *playback) onEvent(ev engine.Event) {
	if ev.Kind == engine.EventTick {
		return
	}
	p.transitions++
	if p.out != nil {
		fmt.Fprintf(p.out, "  %8.3fs  frame %-6d %-15s %s\n", ev.Time, ev.Frame, ev.Kind, ev.ID)
	}
}

// onHook logs authored handlers. Handler text is never executed here.
func (p *playback) onHook(call engine.HookCall) error {
	p.logger.Info("handler",
		"event", call.Event,
		"target", call.Target,
		"scene", call.Scene,
		"source", call.Source,
	)
	return nil
}

// stopAtEnd stops the driver on the final tick of a non-looping bounded run.
func (p *playback) stopAtEnd() {
	sub := engine.SubscriberFunc(func(info engine.TickInfo) {
		if info.Final {
			p.driver.Stop()
		}
	})
	// The player attached first, so its final transitions are emitted before this runs
	_, _ = p.driver.Registry().Attach(p.cfg.Group, sub)
}

// run starts the timeline and drives frames until ctx ends or the driver
// stops. The metrics endpoint, if configured, lives exactly as long.
func (p *playback) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := p.driver.Run(gctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	if p.cfg.MetricsAddr != "" {
		srv := p.metricsServer()
		g.Go(func() error {
			p.logger.Info("serving metrics", "addr", p.cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := p.driver.Post(p.timeline.Start); err != nil {
		return err
	}
	return g.Wait()
}

func (p *playback) metricsServer() *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              p.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (p *playback) flush(ctx context.Context) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Flush(ctx); err != nil {
		p.logger.Error("failed to flush trace", "session", p.sessionID, "error", err)
	}
}

// close flushes the trace and releases the store. Call after run returns.
func (p *playback) close() error {
	p.reflector.Close()
	if p.recorder == nil {
		return nil
	}
	err := p.recorder.Flush(context.Background())
	p.closeStore()
	return err
}

func (p *playback) closeStore() {
	if p.store != nil {
		p.store.Close()
		p.store = nil
	}
}

func (p *playback) result() PlayResult {
	res := PlayResult{
		SessionID:   p.sessionID,
		Composition: p.player.Composition().ID,
		Group:       p.cfg.Group,
		Mode:        p.timeline.Options().Mode,
		Time:        p.timeline.Time(),
		Frame:       p.timeline.Frame(),
		Transitions: p.transitions,
		Reloads:     p.reloads,
	}
	if p.recorder != nil {
		res.TraceDB = p.cfg.TraceDB
	}
	return res
}
