package ir

import "fmt"

// CodeLanguage is the language a code cell is written in.
type CodeLanguage string

const (
	LanguageFormula    CodeLanguage = "Formula"
	LanguagePython     CodeLanguage = "Python"
	LanguageJavascript CodeLanguage = "Javascript"
	LanguageConnection CodeLanguage = "Connection"
)

// IsSynchronous reports whether the language evaluates inside the engine.
// Every other language is computed by an external interpreter.
func (l CodeLanguage) IsSynchronous() bool {
	return l == LanguageFormula
}

// CodeRun is the outcome of the last evaluation of a code cell.
type CodeRun struct {
	// Output is the computed value: a single value (1x1) or an array that
	// spills right and down from the anchor.
	Output CellValues `json:"output"`

	// Error is set when the evaluation failed; Output is then blank.
	Error *RunError `json:"error,omitempty"`

	StdOut string `json:"std_out,omitempty"`
	StdErr string `json:"std_err,omitempty"`

	// LineNumber is the interpreter line that produced the error or last
	// statement, when reported.
	LineNumber *uint32 `json:"line_number,omitempty"`

	// CellsAccessed are the ranges read during the evaluation, used to
	// decide when the cell must be recomputed.
	CellsAccessed []SheetRect `json:"cells_accessed,omitempty"`
}

// DataTable is a code cell anchored at a position: its source, language
// and last output.
type DataTable struct {
	Name     string       `json:"name"`
	Language CodeLanguage `json:"language"`
	Code     string       `json:"code"`
	Run      *CodeRun     `json:"run,omitempty"`
}

// Size returns the dimensions of the table's output (1x1 when empty).
func (d *DataTable) Size() ArraySize {
	if d.Run == nil || d.Run.Error != nil || d.Run.Output.W == 0 || d.Run.Output.H == 0 {
		return ArraySize{W: 1, H: 1}
	}
	return d.Run.Output.Size()
}

// OutputRect is the rectangle covered by the table anchored at pos.
func (d *DataTable) OutputRect(pos Pos) Rect {
	sz := d.Size()
	return Rect{Min: pos, Max: Pos{X: pos.X + int64(sz.W) - 1, Y: pos.Y + int64(sz.H) - 1}}
}

// ValueAt returns the displayed value at (x, y) relative to the anchor.
func (d *DataTable) ValueAt(x, y uint32) CellValue {
	if d.Run == nil {
		return Blank{}
	}
	if d.Run.Error != nil {
		if x == 0 && y == 0 {
			return d.Run.Error
		}
		return Blank{}
	}
	return d.Run.Output.Get(x, y)
}

// Clone returns a deep copy of the table.
func (d *DataTable) Clone() *DataTable {
	if d == nil {
		return nil
	}
	out := *d
	if d.Run != nil {
		run := *d.Run
		run.Output.Values = append([]CellValue(nil), d.Run.Output.Values...)
		run.CellsAccessed = append([]SheetRect(nil), d.Run.CellsAccessed...)
		if d.Run.Error != nil {
			e := *d.Run.Error
			run.Error = &e
		}
		if d.Run.LineNumber != nil {
			ln := *d.Run.LineNumber
			run.LineNumber = &ln
		}
		out.Run = &run
	}
	return &out
}

// String renders the table as "Language(name)".
func (d *DataTable) String() string {
	return fmt.Sprintf("%s(%s)", d.Language, d.Name)
}
