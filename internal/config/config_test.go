package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/grid"
)

func TestCompile_EmptyIsDefault(t *testing.T) {
	cfg, err := Compile("")
	require.NoError(t, err)
	assert.Equal(t, Default, cfg)
}

func TestCompile_Overrides(t *testing.T) {
	cfg, err := Compile(`
cell_range_limit: 500
max_undo_depth:   25
auto_resize_rows: false
default_row_height: 18.5
`)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.CellRangeLimit)
	assert.Equal(t, 25, cfg.MaxUndoDepth)
	assert.False(t, cfg.AutoResizeRows)
	assert.Equal(t, 18.5, cfg.DefaultRowHeight)
	assert.Equal(t, Default.MaxCascadeSteps, cfg.MaxCascadeSteps)
	assert.Equal(t, Default.DefaultColumnWidth, cfg.DefaultColumnWidth)
}

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `max_rows: 10`},
		{"zero range limit", `cell_range_limit: 0`},
		{"negative undo depth", `max_undo_depth: -1`},
		{"wrong type", `auto_resize_rows: "yes"`},
		{"syntax", `cell_range_limit: `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src)
			require.Error(t, err)

			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.cue")
	require.NoError(t, os.WriteFile(path, []byte("max_cascade_steps: 50\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.MaxCascadeSteps)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cue"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGridDefaults(t *testing.T) {
	assert.Equal(t, grid.DefaultSizes, Default.GridDefaults())
}
