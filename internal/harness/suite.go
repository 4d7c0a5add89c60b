package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// GoldenStatus describes how a scenario trace compared with its golden file.
type GoldenStatus string

const (
	GoldenMatch    GoldenStatus = "match"
	GoldenMismatch GoldenStatus = "mismatch"
	GoldenMissing  GoldenStatus = "missing"
	GoldenUpdated  GoldenStatus = "updated"
)

// CaseResult is the outcome of one scenario in a suite run.
type CaseResult struct {
	Path     string       `json:"path"`
	Scenario string       `json:"scenario"`
	Result   *Result      `json:"result,omitempty"`
	Golden   GoldenStatus `json:"golden,omitempty"`
	Err      string       `json:"error,omitempty"`
}

// Pass reports whether the scenario ran, passed its assertions and matched
// (or wrote) its golden trace.
func (c CaseResult) Pass() bool {
	return c.Err == "" && c.Result != nil && c.Result.Pass && c.Golden != GoldenMismatch
}

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// GoldenDir holds <scenario name>.golden traces. Empty skips golden
	// comparison.
	GoldenDir string

	// Update rewrites golden files instead of comparing.
	Update bool
}

// FindScenarios returns the .yaml and .yml files directly inside dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("scenario directory: %w", err)
		}
	}
	slices.Sort(paths)
	return paths, nil
}

// RunSuite loads and runs every scenario file in paths. A scenario that
// fails to load or set up is reported in its CaseResult; RunSuite itself
// only fails on golden file I/O errors.
func RunSuite(paths []string, opts SuiteOptions) ([]CaseResult, error) {
	results := make([]CaseResult, 0, len(paths))
	for _, path := range paths {
		cr := CaseResult{Path: path}

		scenario, err := LoadScenario(path)
		if err != nil {
			cr.Err = err.Error()
			results = append(results, cr)
			continue
		}
		cr.Scenario = scenario.Name

		result, err := Run(scenario)
		if err != nil {
			cr.Err = err.Error()
			results = append(results, cr)
			continue
		}
		cr.Result = result

		if opts.GoldenDir != "" {
			snap, err := Snapshot(scenario.Name, result)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			goldenPath := filepath.Join(opts.GoldenDir, scenario.Name+".golden")
			if cr.Golden, err = compareGolden(goldenPath, snap, opts.Update); err != nil {
				return nil, err
			}
		}
		results = append(results, cr)
	}
	return results, nil
}

// compareGolden checks got against the file at path, or writes it when
// update is set.
func compareGolden(path string, got []byte, update bool) (GoldenStatus, error) {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			return "", fmt.Errorf("write golden file: %w", err)
		}
		return GoldenUpdated, nil
	}

	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return GoldenMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(want, got) {
		return GoldenMismatch, nil
	}
	return GoldenMatch, nil
}
