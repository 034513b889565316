package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcore/internal/config"
	"github.com/roach88/gridcore/internal/harness"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Kind   string            `json:"kind"` // "config" or "scenario"
	Config *config.Config    `json:"config,omitempty"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one problem found in a file.
type ValidationError struct {
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a config or scenario file",
		Long: `Validate a CUE config file (.cue) or a scenario file (.yaml, .yml)
without running anything.

Config files are checked against the config schema, and the resolved
settings are printed. Scenario files are parsed and checked for structure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("file not found: %s", path), err)
	}

	var result ValidationResult
	switch ext := filepath.Ext(path); ext {
	case ".cue":
		formatter.VerboseLog("Validating config %s", path)
		result = validateConfig(path)
	case ".yaml", ".yml":
		formatter.VerboseLog("Validating scenario %s", path)
		result = validateScenarioFile(path)
	default:
		msg := fmt.Sprintf("unsupported file type %q: expected .cue, .yaml or .yml", ext)
		if err := formatter.Error(ErrCodeUnknown, msg, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, msg)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, path, result)
	}
	return outputValidateSuccess(formatter, path, result)
}

func validateConfig(path string) ValidationResult {
	cfg, err := config.Load(path)
	if err != nil {
		return ValidationResult{Kind: "config", Errors: []ValidationError{configError(err)}}
	}
	return ValidationResult{Valid: true, Kind: "config", Config: &cfg}
}

// configError keeps the CUE position of a config error when there is one.
func configError(err error) ValidationError {
	var cerr *config.Error
	if errors.As(err, &cerr) {
		ve := ValidationError{Message: cerr.Message}
		if cerr.Pos.IsValid() {
			ve.Line = cerr.Pos.Line()
			ve.Column = cerr.Pos.Column()
		}
		return ve
	}
	return ValidationError{Message: err.Error()}
}

func validateScenarioFile(path string) ValidationResult {
	if _, err := harness.LoadScenario(path); err != nil {
		return ValidationResult{Kind: "scenario", Errors: []ValidationError{{Message: err.Error()}}}
	}
	return ValidationResult{Valid: true, Kind: "scenario"}
}

func outputValidateSuccess(formatter *OutputFormatter, path string, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is a valid %s\n", path, result.Kind)
	if c := result.Config; c != nil {
		fmt.Fprintf(formatter.Writer, "  cell_range_limit:     %d\n", c.CellRangeLimit)
		fmt.Fprintf(formatter.Writer, "  max_undo_depth:       %d\n", c.MaxUndoDepth)
		fmt.Fprintf(formatter.Writer, "  max_cascade_steps:    %d\n", c.MaxCascadeSteps)
		fmt.Fprintf(formatter.Writer, "  default_row_height:   %g\n", c.DefaultRowHeight)
		fmt.Fprintf(formatter.Writer, "  default_column_width: %g\n", c.DefaultColumnWidth)
		fmt.Fprintf(formatter.Writer, "  auto_resize_rows:     %t\n", c.AutoResizeRows)
	}
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, path string, result ValidationResult) error {
	code := ErrCodeScenario
	if result.Kind == "config" {
		code = ErrCodeConfig
	}

	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    code,
				Message: fmt.Sprintf("%s is not a valid %s", path, result.Kind),
			},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s is not a valid %s\n", path, result.Kind)
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(formatter.Writer, "  line %d, column %d: %s\n", e.Line, e.Column, e.Message)
			} else {
				fmt.Fprintf(formatter.Writer, "  %s\n", e.Message)
			}
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %s", path))
}
