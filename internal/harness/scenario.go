package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted session against one controller: a list of
// steps (edits, undo, redo, interpreter and renderer replies) and the
// expected final state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sheets are created in order with ids s1, s2, ... Defaults to
	// a single "Sheet1".
	Sheets []string `yaml:"sheets,omitempty"`

	// Config is CUE source for the controller configuration.
	Config string `yaml:"config,omitempty"`

	Steps  []Step `yaml:"steps"`
	Expect Expect `yaml:"expect,omitempty"`
}

// Step is exactly one of the fields below, plus an optional expected
// error code.
type Step struct {
	Edit       []Action        `yaml:"edit,omitempty"`
	Server     []Action        `yaml:"server,omitempty"`
	Undo       bool            `yaml:"undo,omitempty"`
	Redo       bool            `yaml:"redo,omitempty"`
	CodeResult *CodeResultStep `yaml:"code_result,omitempty"`
	RowHeights *RowHeightsStep `yaml:"row_heights,omitempty"`
	GetCells   *GetCellsStep   `yaml:"get_cells,omitempty"`

	// ExpectError is the CoreError code (e.g. TRANSACTION_NOT_FOUND) the
	// step must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step kinds, as reported in the trace.
const (
	StepEdit       = "edit"
	StepServer     = "server"
	StepUndo       = "undo"
	StepRedo       = "redo"
	StepCodeResult = "code_result"
	StepRowHeights = "row_heights"
	StepGetCells   = "get_cells"
)

// Kind returns the step kind, or "" when the step sets no kind or more
// than one.
func (s Step) Kind() string {
	var kinds []string
	if s.Edit != nil {
		kinds = append(kinds, StepEdit)
	}
	if s.Server != nil {
		kinds = append(kinds, StepServer)
	}
	if s.Undo {
		kinds = append(kinds, StepUndo)
	}
	if s.Redo {
		kinds = append(kinds, StepRedo)
	}
	if s.CodeResult != nil {
		kinds = append(kinds, StepCodeResult)
	}
	if s.RowHeights != nil {
		kinds = append(kinds, StepRowHeights)
	}
	if s.GetCells != nil {
		kinds = append(kinds, StepGetCells)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// Action is one operation inside an edit or server step. Exactly one
// field is set.
type Action struct {
	Set          *SetAction    `yaml:"set,omitempty"`
	Formula      *CodeAction   `yaml:"formula,omitempty"`
	Code         *CodeAction   `yaml:"code,omitempty"`
	Format       *FormatAction `yaml:"format,omitempty"`
	ResizeRow    *ResizeAction `yaml:"resize_row,omitempty"`
	ResizeColumn *ResizeAction `yaml:"resize_column,omitempty"`
	InsertColumn *ColumnAction `yaml:"insert_column,omitempty"`
	DeleteColumn *ColumnAction `yaml:"delete_column,omitempty"`
}

func (a Action) count() int {
	n := 0
	for _, set := range []bool{
		a.Set != nil, a.Formula != nil, a.Code != nil, a.Format != nil,
		a.ResizeRow != nil, a.ResizeColumn != nil,
		a.InsertColumn != nil, a.DeleteColumn != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// SetAction writes a value, or a block of values whose rows run down from
// Cell.
type SetAction struct {
	Cell   string  `yaml:"cell"`
	Value  any     `yaml:"value,omitempty"`
	Values [][]any `yaml:"values,omitempty"`
}

// CodeAction places a code cell and computes it. Language defaults to
// Formula.
type CodeAction struct {
	Cell     string `yaml:"cell"`
	Language string `yaml:"language,omitempty"`
	Code     string `yaml:"code"`
}

// FormatAction changes formats over a range such as "A1:B2".
type FormatAction struct {
	Range string `yaml:"range"`
	Wrap  *bool  `yaml:"wrap,omitempty"`
	Bold  *bool  `yaml:"bold,omitempty"`
}

// ResizeAction sets a row height or column width by hand.
type ResizeAction struct {
	Sheet string  `yaml:"sheet,omitempty"`
	Index int64   `yaml:"index"`
	Size  float64 `yaml:"size"`
}

// ColumnAction inserts or deletes a column by letter.
type ColumnAction struct {
	Sheet  string `yaml:"sheet,omitempty"`
	Column string `yaml:"column"`
}

// CodeResultStep answers the single transaction parked on an interpreter.
type CodeResultStep struct {
	Value  any     `yaml:"value,omitempty"`
	Array  [][]any `yaml:"array,omitempty"`
	Error  string  `yaml:"error,omitempty"`
	Line   *uint32 `yaml:"line,omitempty"`
	Cancel bool    `yaml:"cancel,omitempty"`

	// TransactionID overrides the parked id, to exercise bad replies.
	TransactionID string `yaml:"transaction_id,omitempty"`
}

// RowHeightsStep answers the single transaction parked on the renderer.
type RowHeightsStep struct {
	Sheet   string            `yaml:"sheet,omitempty"`
	Heights map[int64]float64 `yaml:"heights"`
}

// GetCellsStep is a read made by the code cell currently computing.
type GetCellsStep struct {
	Range string  `yaml:"range"`
	Sheet *string `yaml:"sheet,omitempty"`
	Line  *uint32 `yaml:"line,omitempty"`
}

// Expect describes the final state. Cell keys are "A1" or "Sheet!A1";
// values are numbers, strings, booleans, null for blank, or "#Kind" for a
// cell error.
type Expect struct {
	Cells      map[string]any    `yaml:"cells,omitempty"`
	RowHeights []RowHeightExpect `yaml:"row_heights,omitempty"`
	Parked     *int              `yaml:"parked,omitempty"`
	UndoDepth  *int              `yaml:"undo_depth,omitempty"`
	RedoDepth  *int              `yaml:"redo_depth,omitempty"`
}

// RowHeightExpect is the expected stored height of one row.
type RowHeightExpect struct {
	Sheet  string  `yaml:"sheet,omitempty"`
	Row    int64   `yaml:"row"`
	Height float64 `yaml:"height"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for _, name := range s.Sheets {
		if name == "" {
			return fmt.Errorf("sheet names must be non-empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate sheet %q", name)
		}
		seen[name] = true
	}

	for i, step := range s.Steps {
		kind := step.Kind()
		if kind == "" {
			return fmt.Errorf("steps[%d]: exactly one step kind is required", i)
		}
		actions := step.Edit
		if kind == StepServer {
			actions = step.Server
		}
		for j, a := range actions {
			if err := validateAction(a); err != nil {
				return fmt.Errorf("steps[%d].%s[%d]: %w", i, kind, j, err)
			}
		}
		switch kind {
		case StepEdit, StepServer:
			if len(actions) == 0 {
				return fmt.Errorf("steps[%d]: %s needs at least one action", i, kind)
			}
		case StepRowHeights:
			if len(step.RowHeights.Heights) == 0 {
				return fmt.Errorf("steps[%d].row_heights: heights is required", i)
			}
		case StepGetCells:
			if step.GetCells.Range == "" {
				return fmt.Errorf("steps[%d].get_cells: range is required", i)
			}
		}
	}
	return nil
}

func validateAction(a Action) error {
	if a.count() != 1 {
		return fmt.Errorf("exactly one action kind is required")
	}
	switch {
	case a.Set != nil:
		if a.Set.Cell == "" {
			return fmt.Errorf("set: cell is required")
		}
		if a.Set.Value != nil && a.Set.Values != nil {
			return fmt.Errorf("set: value and values are exclusive")
		}
	case a.Formula != nil, a.Code != nil:
		c := a.Formula
		if c == nil {
			c = a.Code
		}
		if c.Cell == "" || c.Code == "" {
			return fmt.Errorf("code: cell and code are required")
		}
	case a.Format != nil:
		if a.Format.Range == "" {
			return fmt.Errorf("format: range is required")
		}
	case a.InsertColumn != nil, a.DeleteColumn != nil:
		c := a.InsertColumn
		if c == nil {
			c = a.DeleteColumn
		}
		if c.Column == "" {
			return fmt.Errorf("column is required")
		}
	}
	return nil
}
