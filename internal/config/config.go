// Package config loads player configuration from CUE files validated
// against an embedded #Player schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// Player is the decoded player configuration.
type Player struct {
	Group          string  `json:"group"`
	Mode           string  `json:"mode"`
	Loop           bool    `json:"loop"`
	RefreshRate    float64 `json:"refreshRate"`
	EnforceSealing bool    `json:"enforceSealing"`
	RecordTrace    bool    `json:"recordTrace"`
	TraceDB        string  `json:"traceDB"`
	MetricsAddr    string  `json:"metricsAddr"`
	Debounce       string  `json:"debounce"`
}

// DebounceDuration parses Debounce. The schema guarantees the format.
func (p Player) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(p.Debounce)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// Error codes for configuration failures.
const (
	ErrCodeRead    = "E011" // Config file could not be read
	ErrCodeCompile = "E012" // Config file is not valid CUE
	ErrCodeSchema  = "E013" // Config does not satisfy #Player
)

// Error reports a configuration failure with its CUE position when known.
type Error struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsSchemaError returns true if err is a schema violation.
func IsSchemaError(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == ErrCodeSchema
}

// Defaults returns the configuration an empty file produces.
func Defaults() Player {
	p, err := decode(cuecontext.New(), nil, "")
	if err != nil {
		// The embedded schema is fixed at build time
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return *p
}

// Load reads and validates a CUE configuration file.
func Load(path string) (*Player, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeRead, Message: err.Error()}
	}
	return decode(cuecontext.New(), data, path)
}

// Parse validates CUE source held in memory. filename is used in positions.
func Parse(data []byte, filename string) (*Player, error) {
	return decode(cuecontext.New(), data, filename)
}

func decode(ctx *cue.Context, data []byte, filename string) (*Player, error) {
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(ErrCodeCompile, err)
	}
	def := schema.LookupPath(cue.ParsePath("#Player"))

	value := def
	if len(data) > 0 {
		file := ctx.CompileBytes(data, cue.Filename(filename))
		if err := file.Err(); err != nil {
			return nil, formatCUEError(ErrCodeCompile, err)
		}
		value = def.Unify(file)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}

	var p Player
	if err := value.Decode(&p); err != nil {
		return nil, formatCUEError(ErrCodeSchema, err)
	}
	return &p, nil
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(code string, err error) *Error {
	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Message: err.Error()}
	}

	firstErr := errs[0]
	e := &Error{Code: code, Message: firstErr.Error()}
	if positions := cueerrors.Positions(firstErr); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
