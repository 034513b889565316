// Package config loads engine settings from CUE.
//
// A config file is unified with an embedded schema that supplies defaults
// and rejects unknown fields or out-of-range values:
//
//	cell_range_limit:  5000
//	max_undo_depth:    100
//	auto_resize_rows:  false
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/gridcore/internal/grid"
)

//go:embed schema.cue
var schemaSource string

// Config holds the engine settings.
type Config struct {
	CellRangeLimit     int     `json:"cell_range_limit"`
	MaxUndoDepth       int     `json:"max_undo_depth"`
	MaxCascadeSteps    int     `json:"max_cascade_steps"`
	DefaultRowHeight   float64 `json:"default_row_height"`
	DefaultColumnWidth float64 `json:"default_column_width"`
	AutoResizeRows     bool    `json:"auto_resize_rows"`
}

// Default matches the schema defaults.
var Default = Config{
	CellRangeLimit:     10000,
	MaxUndoDepth:       0,
	MaxCascadeSteps:    1000,
	DefaultRowHeight:   21,
	DefaultColumnWidth: 100,
	AutoResizeRows:     true,
}

// GridDefaults returns the row and column sizes for a new grid.
func (c Config) GridDefaults() grid.Defaults {
	return grid.Defaults{
		RowHeight:   c.DefaultRowHeight,
		ColumnWidth: c.DefaultColumnWidth,
	}
}

// Load reads and compiles a CUE config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return compile(path, string(data))
}

// Compile compiles CUE source. Empty source yields Default.
func Compile(src string) (Config, error) {
	return compile("config.cue", src)
}

func compile(filename, src string) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile schema: %w", err)
	}

	user := ctx.CompileString(src, cue.Filename(filename))
	if err := user.Err(); err != nil {
		return Config{}, formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(user)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, formatCUEError(err)
	}
	return cfg, nil
}

// Error is a config error with its source position when CUE reports one.
type Error struct {
	Message string
	Pos     token.Pos
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &Error{Message: err.Error()}
	}

	first := errs[0]
	e := &Error{Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		e.Pos = positions[0]
	}
	return e
}
