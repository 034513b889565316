package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/gridcore/internal/ir"
)

// CodeRunner sends code cells to an external interpreter. The result comes
// back later through Controller.CompleteCode (or a MessageCodeResult on the
// inbox). RunCode must not block on the result.
type CodeRunner interface {
	RunCode(ctx context.Context, req CodeRequest) error
}

// Renderer measures rendered row heights and is told when stored heights
// change.
type Renderer interface {
	// RequestRowHeights asks for measurements. The reply comes back through
	// Controller.CompleteRowHeights.
	RequestRowHeights(ctx context.Context, req RowHeightRequest) error

	// ResizedRowHeights reports rows whose stored height changed.
	ResizedRowHeights(sheet ir.SheetID, heights []ir.RowHeight)
}

// CodeRequest asks an interpreter to run one code cell.
type CodeRequest struct {
	TransactionID string          `json:"transaction_id"`
	SheetPos      ir.SheetPos     `json:"sheet_pos"`
	Language      ir.CodeLanguage `json:"language"`
	Code          string          `json:"code"`
}

// CodeResult is an interpreter's reply.
type CodeResult struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`

	// OutputValue is a single result; OutputArray wins when both are set.
	OutputValue ir.CellValue   `json:"-"`
	OutputArray *ir.CellValues `json:"output_array,omitempty"`
	StdOut      string         `json:"std_out,omitempty"`
	StdErr      string         `json:"std_err,omitempty"`
	LineNumber  *uint32        `json:"line_number,omitempty"`

	// CancelCompute reports that the run was cancelled; the cell keeps its
	// previous output.
	CancelCompute bool `json:"cancel_compute,omitempty"`
}

type plainCodeResult CodeResult

type codeResultJSON struct {
	plainCodeResult
	OutputValue json.RawMessage `json:"output_value,omitempty"`
}

// UnmarshalJSON decodes the tagged output_value into OutputValue.
func (r *CodeResult) UnmarshalJSON(data []byte) error {
	var w codeResultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = CodeResult(w.plainCodeResult)
	if len(w.OutputValue) > 0 {
		v, err := ir.UnmarshalCellValue(w.OutputValue)
		if err != nil {
			return fmt.Errorf("output_value: %w", err)
		}
		r.OutputValue = v
	}
	return nil
}

// MarshalJSON encodes OutputValue in the tagged form.
func (r CodeResult) MarshalJSON() ([]byte, error) {
	w := codeResultJSON{plainCodeResult: plainCodeResult(r)}
	if r.OutputValue != nil {
		b, err := ir.MarshalCellValue(r.OutputValue)
		if err != nil {
			return nil, err
		}
		w.OutputValue = b
	}
	return json.Marshal(w)
}

// run converts the reply into the code cell's new run.
func (r CodeResult) run(accessed []ir.SheetRect) *ir.CodeRun {
	run := &ir.CodeRun{
		StdOut:        r.StdOut,
		StdErr:        r.StdErr,
		LineNumber:    r.LineNumber,
		CellsAccessed: accessed,
	}
	switch {
	case !r.Success:
		msg := r.StdErr
		if msg == "" {
			msg = "code run failed"
		}
		run.Error = &ir.RunError{Kind: ir.ErrCode, Msg: msg}
	case r.OutputArray != nil:
		run.Output = *r.OutputArray
	case r.OutputValue != nil:
		run.Output = ir.SingleValue(r.OutputValue)
	default:
		run.Output = ir.SingleValue(ir.Blank{})
	}
	return run
}

// RowHeightRequest asks the renderer to measure rows of one sheet.
type RowHeightRequest struct {
	TransactionID string     `json:"transaction_id"`
	SheetID       ir.SheetID `json:"sheet_id"`
	Rows          []int64    `json:"rows"`
}

// RowHeightsReply carries the measured heights.
type RowHeightsReply struct {
	TransactionID string         `json:"transaction_id"`
	SheetID       ir.SheetID     `json:"sheet_id"`
	RowHeights    []ir.RowHeight `json:"row_heights"`
}

// GetCellsRequest is the re-entrant read a running code cell makes.
type GetCellsRequest struct {
	TransactionID string  `json:"transaction_id"`
	Rect          ir.Rect `json:"rect"`

	// SheetName selects a sheet by name; nil means the computing cell's sheet.
	SheetName *string `json:"sheet_name,omitempty"`

	// LineNumber is the interpreter line making the call, kept on the cell
	// if the call fails.
	LineNumber *uint32 `json:"line_number,omitempty"`
}

// CellResult is one cell returned by get_cells.
type CellResult struct {
	X        int64        `json:"x"`
	Y        int64        `json:"y"`
	Value    ir.CellValue `json:"value"`
	TypeName string       `json:"type_name"`
}
