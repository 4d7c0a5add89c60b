package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/mount"
	"github.com/roach88/scenecast/internal/store"
	"github.com/roach88/scenecast/internal/testutil"
)

// DefaultSessionID is the trace session id used when a scenario sets none.
// It matches the fallback of testutil.FixedSessionGenerator.
const DefaultSessionID = "test-session"

// Harness is the test execution engine.
// It plays one scenario on a manual clock through the same driver, player
// and reflector a live run uses, so traces are identical across runs.
type Harness struct {
	scenario  *Scenario
	store     *store.Store
	doc       *markup.Document
	reflector *mount.Reflector
	driver    *engine.Driver
	timeline  *engine.Timeline
	player    *engine.Player
	recorder  *store.Recorder
	clock     *testutil.ManualClock
	logger    *slog.Logger
	result    *Result
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Parse and resolve the composition
// 2. Start the timeline and deliver the initial zero-delta tick
// 3. Execute steps
// 4. Flush the recorded trace and evaluate assertions
//
// The returned error covers setup failures only; a failing step or
// assertion is reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := setup(ctx, scenario, st)
	if err != nil {
		return nil, err
	}
	defer h.reflector.Close()

	h.driver.Step(h.clock.Now())
	for i, step := range scenario.Steps {
		h.executeStep(i, step)
	}

	if err := h.recorder.Flush(ctx); err != nil {
		return nil, fmt.Errorf("failed to flush trace: %w", err)
	}

	h.result.State = h.finalState()
	actx := &AssertionContext{
		Store:     st,
		Ctx:       ctx,
		SessionID: h.result.SessionID,
		State:     h.result.State,
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func setup(ctx context.Context, scenario *Scenario, st *store.Store) (*Harness, error) {
	root, err := loadMarkup(scenario)
	if err != nil {
		return nil, err
	}
	comp, err := compiler.Resolve(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve composition: %w", err)
	}

	opts := engine.TimelineOptions{FPS: comp.FPS, Mode: scenario.Mode, Loop: scenario.Loop}
	if opts.Mode == "" {
		opts.Mode = engine.ModeBounded
	}
	if opts.Mode == engine.ModeBounded {
		total, ok := comp.TotalDuration()
		if !ok {
			return nil, engine.NewOpenDurationError(comp.ID)
		}
		opts.Duration = total
	}

	group := scenario.Group
	if group == "" {
		group = "main"
	}
	var ids engine.SessionIDGenerator = testutil.NewFixedSessionGenerator(scenario.SessionID)
	sessionID := ids.Generate()

	sess, err := store.NewSession(sessionID, comp, group, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := st.WriteSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	result := NewResult()
	result.SessionID = sessionID
	recorder := store.NewRecorder(st, sessionID)

	h := &Harness{
		scenario: scenario,
		store:    st,
		doc:      markup.NewDocument(root),
		clock:    testutil.NewManualClock(),
		logger:   logger,
		result:   result,
		recorder: recorder,
	}

	h.player = engine.NewPlayer(comp,
		engine.WithListener(result),
		engine.WithListener(recorder),
		engine.WithHook(func(call engine.HookCall) error {
			result.addHookTrace(call)
			return nil
		}),
		engine.WithLogger(logger),
	)

	reg := engine.NewRegistry()
	h.timeline = reg.Timeline(group, opts)
	if _, err := reg.Attach(group, h.player); err != nil {
		return nil, err
	}

	h.reflector = mount.NewReflector(h.doc, mount.Retimed{Target: h.player, Timeline: h.timeline},
		mount.WithReflectorLogger(logger),
		mount.WithResolveErrorHandler(func(err error) {
			result.AddError(fmt.Sprintf("reflection failed: %v", err))
		}),
	)
	h.driver = engine.NewDriver(reg, engine.WithDriverLogger(logger))
	h.driver.OnFrame(h.reflector.FrameHook())

	h.timeline.Start()
	return h, nil
}

func loadMarkup(scenario *Scenario) (*markup.Element, error) {
	if scenario.Markup != "" {
		root, err := markup.ParseString(scenario.Markup)
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup: %w", err)
		}
		return root, nil
	}
	path := scenario.compositionPath()
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read composition: %w", err)
	}
	root, err := markup.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", scenario.Composition, err)
	}
	return root, nil
}

// executeStep runs one step. Failures are recorded on the result so later
// steps and assertions still run.
func (h *Harness) executeStep(i int, step Step) {
	switch {
	case step.Advance > 0:
		for range max(step.Repeat, 1) {
			h.driver.Step(h.clock.AdvanceSeconds(step.Advance))
		}
	case step.Seek != nil:
		h.timeline.Seek(*step.Seek)
	case step.Stop:
		h.timeline.Stop()
	case step.Start:
		h.timeline.Start()
	case step.Patch != nil:
		h.applyPatch(i, step)
	}
	h.logger.Debug("step completed", "step", i, "time", h.timeline.Time())
}

func (h *Harness) applyPatch(i int, step Step) {
	err := h.doc.Apply(step.Patch...)
	if step.ExpectError == "" {
		if err != nil {
			h.result.AddError(fmt.Sprintf("step %d: patch failed: %v", i, err))
		}
		return
	}

	var pe *markup.PatchError
	switch {
	case err == nil:
		h.result.AddError(fmt.Sprintf("step %d: expected patch error %s, batch applied", i, step.ExpectError))
	case !errors.As(err, &pe):
		h.result.AddError(fmt.Sprintf("step %d: expected patch error %s, got %v", i, step.ExpectError, err))
	case string(pe.Code) != step.ExpectError:
		h.result.AddError(fmt.Sprintf("step %d: expected patch error %s, got %s", i, step.ExpectError, pe.Code))
	}
}

func (h *Harness) finalState() FinalState {
	scene, _ := h.player.ActiveScene()
	return FinalState{
		Scene:   scene,
		Cues:    h.player.ActiveCues(),
		Visible: h.player.VisibleComponents(),
		Time:    h.timeline.Time(),
		Frame:   h.timeline.Frame(),
		Running: h.timeline.Running(),
	}
}
