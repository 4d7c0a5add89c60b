package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/mount"
)

// PatchOptions holds flags for the patch command.
type PatchOptions struct {
	*RootOptions
	Output    string // output file path
	NoSealing bool   // allow edits under sealed scenes
}

// PatchResult reports an applied patch batch.
type PatchResult struct {
	Applied     int    `json:"applied"`
	Composition string `json:"composition"`
	Hash        string `json:"hash"`
	Output      string `json:"output,omitempty"`
	Markup      string `json:"markup,omitempty"`
}

// NewPatchCommand creates the patch command.
func NewPatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "patch <file> <patches.yaml>",
		Short: "Apply a patch batch to composition markup",
		Long: `Apply a YAML list of patches to composition markup as one batch and
print the edited markup. The batch is all-or-nothing: if any patch fails,
nothing is written. The edited composition must still resolve.

Patch file format:
  - op: set-attr
    target: intro
    name: duration
    value: 3s
  - op: append
    target: intro
    node: <cue id="extra" duration="1s"/>
  - op: seal
    target: intro

Ops: append, remove, set-attr, clear-attr, set-text, replace, seal.

Examples:
  scenecast patch ./demo.xml ./edits.yaml
  scenecast patch ./demo.xml ./edits.yaml -o demo.patched.xml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPatch(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.NoSealing, "no-sealing", false, "allow edits inside sealed scenes")

	return cmd
}

// loadPatches reads a YAML list of patches, rejecting unknown fields.
func loadPatches(path string) ([]markup.Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("patch file not found: %s", path), Err: err}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to read %s", path), Err: err}
	}

	var patches []markup.Patch
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&patches); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("failed to parse %s", path), Err: err}
	}
	if len(patches) == 0 {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s contains no patches", path)}
	}
	return patches, nil
}

func runPatch(opts *PatchOptions, source, patchFile string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	root, _, err := loadMarkup(context.Background(), mount.NewSourceFetcher(), source)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}
	patches, err := loadPatches(patchFile)
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	doc := markup.NewDocument(root, markup.WithSealing(!opts.NoSealing))
	if err := doc.Apply(patches...); err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	formatter.VerboseLog("Applied %d patches", len(patches))

	// An edit that breaks resolution is rejected, same as a live edit
	comp, err := compiler.Resolve(doc.Root(), compiler.WithLogger(logger))
	if err != nil {
		return reportResolveError(formatter, err)
	}
	text, err := doc.Serialize()
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}

	result := PatchResult{Applied: len(patches), Composition: comp.ID, Hash: comp.Hash}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(text), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeWriteFailed, Message: "failed to write output", Err: err})
		}
		result.Output = opts.Output
	} else {
		result.Markup = text
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	out := cmd.OutOrStdout()
	if opts.Output == "" {
		fmt.Fprint(out, text)
		return nil
	}
	fmt.Fprintf(out, "✓ Applied %d patches to %s\n", result.Applied, result.Composition)
	fmt.Fprintf(out, "Output written to: %s\n", opts.Output)
	return nil
}
