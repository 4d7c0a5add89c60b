package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/config"
	"github.com/roach88/scenecast/internal/mount"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Config      string        // CUE player configuration
	Group       string        // synchronization group
	Loop        bool          // loop a bounded timeline
	Live        bool          // live mode: no duration bound
	For         time.Duration // stop after this much wall time
	Database    string        // trace database; enables recording
	MetricsAddr string        // Prometheus listen address
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a composition against the wall clock",
		Long: `Resolve a composition and play it on a frame-driven timeline,
printing every scene, cue and component transition as it happens.

A bounded composition stops at its duration unless --loop is set; a live
one runs until interrupted or --for elapses. Settings come from the
optional --config file (CUE, validated against the player schema) and are
overridden by explicit flags.

Examples:
  scenecast play ./demo.xml
  scenecast play ./demo.xml --loop --for 30s
  scenecast play ./demo.xml --db trace.db --metrics-addr :9090
  scenecast play ./demo.xml --config player.cue --live`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	addPlayerFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the trace into this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

// addPlayerFlags registers the flags play and watch share.
func addPlayerFlags(cmd *cobra.Command, opts *PlayOptions) {
	cmd.Flags().StringVar(&opts.Config, "config", "", "player configuration file (CUE)")
	cmd.Flags().StringVar(&opts.Group, "group", "", "synchronization group")
	cmd.Flags().BoolVar(&opts.Loop, "loop", false, "loop a bounded composition")
	cmd.Flags().BoolVar(&opts.Live, "live", false, "play without a duration bound")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (0 = until done or interrupted)")
}

// playerConfig loads --config (or the defaults) and applies the flags the
// user actually set on top.
func playerConfig(opts *PlayOptions, cmd *cobra.Command) (config.Player, error) {
	cfg := config.Defaults()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Player{}, err
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("group") {
		cfg.Group = opts.Group
	}
	if flags.Changed("loop") {
		cfg.Loop = opts.Loop
	}
	if flags.Changed("live") && opts.Live {
		cfg.Mode = "live"
	}
	if flags.Changed("db") {
		cfg.TraceDB = opts.Database
		cfg.RecordTrace = true
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.MetricsAddr
	}
	return cfg, nil
}

// playContext is cancelled on SIGINT/SIGTERM or after d when d > 0.
func playContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runPlay(opts *PlayOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := playerConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	ctx, cancel := playContext(opts.For)
	defer cancel()

	root, comp, err := loadComposition(ctx, mount.NewSourceFetcher(), source, compiler.WithLogger(logger))
	if err != nil {
		return reportResolveError(formatter, err)
	}

	var out = cmd.OutOrStdout()
	if formatter.JSON() {
		out = nil
	}
	pb, err := newPlayback(ctx, cfg, root, comp, out, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	if !cfg.Loop {
		pb.stopAtEnd()
	}

	if !formatter.JSON() {
		fmt.Fprintf(cmd.OutOrStdout(), "Playing %s (group %s, %s)\n", comp.ID, cfg.Group, cfg.Mode)
	}
	runErr := pb.run(ctx)
	closeErr := pb.close()
	if runErr != nil {
		return formatter.Fail(ExitCommandError, runErr)
	}
	if closeErr != nil {
		return formatter.Fail(ExitCommandError, fmt.Errorf("failed to flush trace: %w", closeErr))
	}

	res := pb.result()
	if formatter.JSON() {
		return formatter.Success(res)
	}
	printPlayResult(cmd, res)
	return nil
}

func printPlayResult(cmd *cobra.Command, res PlayResult) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Stopped at %gs (frame %d), %d transitions\n", res.Time, res.Frame, res.Transitions)
	if res.Reloads > 0 {
		fmt.Fprintf(w, "  Reloads: %d\n", res.Reloads)
	}
	if res.SessionID != "" {
		fmt.Fprintf(w, "  Session: %s (%s)\n", res.SessionID, res.TraceDB)
	}
}
