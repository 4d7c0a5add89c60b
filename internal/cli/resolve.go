package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/mount"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Output string // output file path
}

// ResolveSummary is the text-mode digest of a resolved composition.
type ResolveSummary struct {
	ID       string
	Hash     string
	Duration *float64
	Scenes   []SceneSummary
}

// SceneSummary is one scene line of a ResolveSummary.
type SceneSummary struct {
	ID         string
	Start      float64
	End        *float64
	Cues       int
	Components int
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <file>",
		Short: "Resolve a composition to absolute times",
		Long: `Parse, validate and resolve composition markup, printing the
resolved composition with absolute start and end times for every scene,
cue and component.

The source may be a local path or an http(s):// URL. With -o the
composition is written as canonical JSON, suitable for hashing and diffing.

Examples:
  scenecast resolve ./demo.xml
  scenecast resolve ./demo.xml -o demo.json
  scenecast resolve https://example.com/demo.xml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")

	return cmd
}

func runResolve(opts *ResolveOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	formatter.VerboseLog("Resolving %s", source)
	_, comp, err := loadComposition(context.Background(), mount.NewSourceFetcher(), source, compiler.WithLogger(logger))
	if err != nil {
		return reportResolveError(formatter, err)
	}

	if opts.Output != "" {
		if err := writeCanonical(opts.Output, comp); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: "failed to write output", Err: err})
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(comp)
	}
	printResolveSummary(cmd.OutOrStdout(), summarize(comp), opts.Output)
	return nil
}

// reportResolveError prints err, including every validation error and the
// blocking references of an unresolved composition, and returns the exit
// error for it.
func reportResolveError(formatter *OutputFormatter, err error) error {
	var vf *ValidationFailure
	var ue *compiler.UnresolvedRefsError
	var le *LoadError
	switch {
	case errors.As(err, &vf):
		_ = formatter.Error(vf.Errors[0].Code, fmt.Sprintf("%d validation error(s)", len(vf.Errors)), vf.Errors)
		if !formatter.JSON() {
			for _, e := range vf.Errors {
				fmt.Fprintf(formatter.Writer, "  ✗ %v\n", e)
			}
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	case errors.As(err, &ue):
		_ = formatter.Error(compiler.ErrUnresolvedRefs, err.Error(), ue.Refs)
		return WrapExitError(ExitFailure, "resolution failed", err)
	case errors.As(err, &le):
		return formatter.Fail(ExitCommandError, err)
	}
	return formatter.Fail(ExitFailure, err)
}

func writeCanonical(path string, comp *ir.Composition) error {
	data, err := ir.MarshalCanonical(comp)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func summarize(comp *ir.Composition) ResolveSummary {
	s := ResolveSummary{ID: comp.ID, Hash: comp.Hash}
	if total, ok := comp.TotalDuration(); ok {
		s.Duration = &total
	}
	for i := range comp.Scenes {
		sc := &comp.Scenes[i]
		components := 0
		sc.Walk(func(*ir.Component, *ir.Layer) { components++ })
		s.Scenes = append(s.Scenes, SceneSummary{
			ID:         sc.ID,
			Start:      sc.Start,
			End:        sc.End,
			Cues:       len(sc.Cues),
			Components: components,
		})
	}
	return s
}

func printResolveSummary(w io.Writer, s ResolveSummary, output string) {
	fmt.Fprintf(w, "✓ Resolved %s (%d scenes)\n", s.ID, len(s.Scenes))
	fmt.Fprintf(w, "  Duration: %s\n", formatEnd(s.Duration))
	fmt.Fprintf(w, "  Hash:     %s\n", s.Hash)
	for _, sc := range s.Scenes {
		fmt.Fprintf(w, "  - %s [%g, %s) cues=%d components=%d\n",
			sc.ID, sc.Start, formatEnd(sc.End), sc.Cues, sc.Components)
	}
	if output != "" {
		fmt.Fprintf(w, "Output written to: %s\n", output)
	}
}

// formatEnd renders an optional end time, "open" when unset.
func formatEnd(end *float64) string {
	if end == nil {
		return "open"
	}
	return fmt.Sprintf("%g", *end)
}
