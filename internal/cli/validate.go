package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/mount"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// ValidationResult holds the validation outcome.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Source string                     `json:"source"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate composition markup",
		Long: `Check composition markup for structural errors without resolving
times: unknown tags, missing or duplicate ids, malformed JSON attributes,
unparsable time expressions and misplaced elements.

Every problem is reported, not just the first.

Examples:
  scenecast validate ./demo.xml
  scenecast validate ./demo.xml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, source string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	root, _, err := loadMarkup(context.Background(), mount.NewSourceFetcher(), source)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Code == ErrCodeParseFailed {
			return formatter.Fail(ExitFailure, err)
		}
		return formatter.Fail(ExitCommandError, err)
	}

	errs := compiler.Validate(root)
	result := ValidationResult{Valid: len(errs) == 0, Source: source, Errors: errs}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		_ = formatter.Error(errs[0].Code, fmt.Sprintf("%d validation error(s)", len(errs)), result)
		return NewExitError(ExitFailure, "validation failed")
	}

	out := cmd.OutOrStdout()
	if result.Valid {
		fmt.Fprintf(out, "✓ %s is valid\n", source)
		return nil
	}
	fmt.Fprintf(out, "✗ %s has %d validation error(s):\n", source, len(errs))
	for _, e := range errs {
		fmt.Fprintf(out, "  [%s] %s: %s\n", e.Code, e.Field, e.Message)
	}
	return NewExitError(ExitFailure, "validation failed")
}
