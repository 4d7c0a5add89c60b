package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/mount"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Play a composition and reload it on every save",
		Long: `Play a local composition file and re-mount it whenever it changes
on disk. Each burst of saves is debounced, re-read, resolved and rebound to
the running player without restarting the timeline. A save that fails to
parse or resolve is logged and the previous composition keeps playing.

The timeline keeps running past the end of a bounded composition so edits
that extend it take effect; use --loop to replay from the start.

Examples:
  scenecast watch ./demo.xml --loop
  scenecast watch ./demo.xml --config player.cue -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args[0], cmd)
		},
	}

	addPlayerFlags(cmd, opts)

	return cmd
}

func runWatch(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := playerConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	ctx, cancel := playContext(opts.For)
	defer cancel()

	source, err := filepath.Abs(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	fetcher := mount.FileFetcher{}
	root, comp, err := loadComposition(ctx, fetcher, source, compiler.WithLogger(logger))
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

	// onLoad runs on the driver goroutine via Post
	onLoad := func(_, text string) {
		root, err := markup.ParseString(text)
		if err != nil {
			logger.Warn("reload skipped: markup does not parse", "path", source, "error", err)
			return
		}
		if errs := compiler.Validate(root); len(errs) > 0 {
			logger.Warn("reload skipped: markup is invalid", "path", source, "errors", len(errs), "first", errs[0].Error())
			return
		}
		next, err := compiler.Resolve(root, compiler.WithMetrics(pb.metrics), compiler.WithLogger(logger))
		if err != nil {
			logger.Warn("reload skipped: composition does not resolve", "path", source, "error", err)
			return
		}
		pb.reload(root, next)
		if out != nil {
			fmt.Fprintf(out, "↻ Reloaded %s\n", next.ID)
		}
	}
	mounter := mount.NewMounter(fetcher, pb.driver.Post, onLoad,
		mount.WithLogger(logger),
		mount.WithErrorHandler(func(err error) {
			logger.Warn("reload failed", "path", source, "error", err)
		}),
	)

	if !formatter.JSON() {
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (group %s, %s)\n", source, cfg.Group, cfg.Mode)
	}

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)
	g.Go(func() error {
		defer stopWatch()
		return pb.run(gctx)
	})
	g.Go(func() error {
		return mount.Watch(watchCtx, source, cfg.DebounceDuration(), func() {
			mounter.Mount(watchCtx, source)
		}, logger)
	})
	runErr := g.Wait()
	mounter.Cancel()
	mounter.Wait()

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
