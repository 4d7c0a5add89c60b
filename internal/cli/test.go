package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern on the file name)
	Golden string // golden directory, default <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string              `json:"name"`
	Path   string              `json:"path"`
	Pass   bool                `json:"pass"`
	Golden harness.GoldenStatus `json:"golden,omitempty"`
	Errors []string            `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run playback scenarios",
		Long: `Run YAML playback scenarios on a manual clock and check their
assertions. Each scenario's trace is compared with <name>.golden in the
golden directory; a missing golden file is reported but does not fail.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  scenecast test ./scenarios
  scenecast test ./scenarios --filter "loop*"
  scenecast test ./scenarios --update
  scenecast test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenario files matching this glob")
	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden directory (default: <scenarios-dir>/golden)")

	return cmd
}

func runTest(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	paths, err := harness.FindScenarios(dir)
	if err != nil {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: "failed to find scenarios", Err: err})
	}
	if opts.Filter != "" {
		paths, err = filterScenarios(paths, opts.Filter)
		if err != nil {
			return formatter.Fail(ExitCommandError, err)
		}
	}
	if len(paths) == 0 {
		return formatter.Fail(ExitCommandError, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("no scenarios in %s", dir)})
	}

	golden := opts.Golden
	if golden == "" {
		golden = filepath.Join(dir, "golden")
	}
	formatter.VerboseLog("Running %d scenario(s), golden dir %s", len(paths), golden)

	cases, err := harness.RunSuite(paths, harness.SuiteOptions{GoldenDir: golden, Update: opts.Update})
	if err != nil {
		return formatter.Fail(ExitCommandError, err)
	}

	result := summarizeCases(cases)
	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printTestResult(cmd.OutOrStdout(), result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", result.Failed, result.Total))
	}
	return nil
}

func filterScenarios(paths []string, pattern string) ([]string, error) {
	var out []string
	for _, p := range paths {
		ok, err := filepath.Match(pattern, filepath.Base(p))
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", pattern, err)
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func summarizeCases(cases []harness.CaseResult) TestResult {
	result := TestResult{Scenarios: []ScenarioResult{}, Total: len(cases)}
	for _, c := range cases {
		sr := ScenarioResult{Name: c.Scenario, Path: c.Path, Pass: c.Pass(), Golden: c.Golden}
		if sr.Name == "" {
			sr.Name = filepath.Base(c.Path)
		}
		switch {
		case c.Err != "":
			sr.Errors = []string{c.Err}
		case c.Result != nil:
			sr.Errors = c.Result.Errors
		}
		if c.Golden == harness.GoldenMismatch {
			sr.Errors = append(sr.Errors, "trace differs from golden file (run with --update to accept)")
		}
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}
	return result
}

func printTestResult(w io.Writer, r TestResult) {
	for _, s := range r.Scenarios {
		mark := "✓"
		if !s.Pass {
			mark = "✗"
		}
		line := fmt.Sprintf("%s %s", mark, s.Name)
		if s.Golden != "" && s.Golden != harness.GoldenMatch {
			line += fmt.Sprintf(" (golden: %s)", s.Golden)
		}
		fmt.Fprintln(w, line)
		for _, e := range s.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", r.Passed, r.Failed, r.Total)
}
