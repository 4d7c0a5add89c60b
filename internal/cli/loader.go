package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/scenecast/internal/compiler"
	"github.com/roach88/scenecast/internal/config"
	"github.com/roach88/scenecast/internal/engine"
	"github.com/roach88/scenecast/internal/ir"
	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/mount"
)

// Error codes for CLI failures outside the compiler and engine.
const (
	ErrCodeGeneric     = "E001" // Generic error
	ErrCodeLoadFailed  = "E004" // Source could not be fetched
	ErrCodeNotFound    = "E005" // File, session or database not found
	ErrCodeParseFailed = "E006" // Markup or patch file is malformed
	ErrCodeWriteFailed = "E007" // Output could not be written
)

// LoadError represents an error loading a composition or patch file.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the stable code for err: compiler, patch, config and
// runtime codes pass through, anything else maps to ErrCodeGeneric.
func ErrorCode(err error) string {
	var (
		le *LoadError
		vf *ValidationFailure
		ce *compiler.CompileError
		ue *compiler.UnresolvedRefsError
		cv *compiler.ConvergenceError
		pe *markup.PatchError
		re *engine.RuntimeError
		fe *config.Error
	)
	switch {
	case errors.As(err, &le):
		return le.Code
	case errors.As(err, &vf):
		return vf.Errors[0].Code
	case errors.As(err, &ce):
		return ce.Code
	case errors.As(err, &ue):
		return compiler.ErrUnresolvedRefs
	case errors.As(err, &cv):
		return compiler.ErrNoConvergence
	case errors.As(err, &pe):
		return string(pe.Code)
	case errors.As(err, &re):
		return string(re.Code)
	case errors.As(err, &fe):
		return fe.Code
	}
	return ErrCodeGeneric
}

// loadMarkup fetches source (a path, file:// or http(s):// URL) and parses it.
func loadMarkup(ctx context.Context, fetcher mount.Fetcher, source string) (*markup.Element, string, error) {
	text, err := fetcher.Fetch(ctx, source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("composition not found: %s", source), Err: err}
		}
		return nil, "", &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to fetch %s", source), Err: err}
	}
	root, err := markup.ParseString(text)
	if err != nil {
		return nil, "", &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("failed to parse %s", source), Err: err}
	}
	return root, text, nil
}

// loadComposition fetches, validates and resolves source. Validation
// problems are returned as a *ValidationFailure so callers can report
// every one of them.
func loadComposition(ctx context.Context, fetcher mount.Fetcher, source string, opts ...compiler.Option) (*markup.Element, *ir.Composition, error) {
	root, _, err := loadMarkup(ctx, fetcher, source)
	if err != nil {
		return nil, nil, err
	}
	if errs := compiler.Validate(root); len(errs) > 0 {
		return nil, nil, &ValidationFailure{Source: source, Errors: errs}
	}
	comp, err := compiler.Resolve(root, opts...)
	if err != nil {
		return nil, nil, err
	}
	return root, comp, nil
}

// ValidationFailure carries every structural error of one composition.
type ValidationFailure struct {
	Source string
	Errors []compiler.ValidationError
}

func (e *ValidationFailure) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %v", e.Source, e.Errors[0])
	}
	return fmt.Sprintf("%s: %d validation errors, first: %v", e.Source, len(e.Errors), e.Errors[0])
}
