package ops

import (
	"github.com/roach88/gridcore/internal/ir"
)

// Kind is the wire tag of an operation variant.
type Kind string

const (
	KindSetCellValues    Kind = "set_cell_values"
	KindSetCellFormats   Kind = "set_cell_formats"
	KindSetBorders       Kind = "set_borders"
	KindSetDataTable     Kind = "set_data_table"
	KindComputeCode      Kind = "compute_code"
	KindResizeColumn     Kind = "resize_column"
	KindResizeRow        Kind = "resize_row"
	KindResizeRows       Kind = "resize_rows"
	KindInsertColumn     Kind = "insert_column"
	KindDeleteColumn     Kind = "delete_column"
	KindSetValidation    Kind = "set_validation"
	KindRemoveValidation Kind = "remove_validation"
	KindAddSheet         Kind = "add_sheet"
	KindDeleteSheet      Kind = "delete_sheet"
)

// Operation is one atomic grid mutation.
type Operation interface {
	operation()

	// Kind returns the variant's wire tag.
	Kind() Kind
}

// SetCellValues writes a block of values with its top-left corner at SheetPos.
type SetCellValues struct {
	SheetPos ir.SheetPos   `json:"sheet_pos"`
	Values   ir.CellValues `json:"values"`
}

// SetCellFormats applies format updates to a rectangle. Formats holds either
// one update applied to every cell or one update per cell in row-major order.
type SetCellFormats struct {
	SheetRect ir.SheetRect      `json:"sheet_rect"`
	Formats   []ir.FormatUpdate `json:"formats"`
}

// SetBorders replaces the borders of every cell in a rectangle. Borders holds
// either one value for every cell or one per cell in row-major order.
type SetBorders struct {
	SheetRect ir.SheetRect `json:"sheet_rect"`
	Borders   []ir.Borders `json:"borders"`
}

// SetDataTable places, replaces or (with a nil DataTable) removes the code
// cell anchored at SheetPos. Index is the table's position in the sheet's
// table order; -1 appends or keeps the current position.
type SetDataTable struct {
	SheetPos  ir.SheetPos   `json:"sheet_pos"`
	DataTable *ir.DataTable `json:"data_table"`
	Index     int           `json:"index"`
}

// ComputeCode evaluates the code cell anchored at SheetPos. It never
// produces reverse operations itself; the SetDataTable that stores the
// result does.
type ComputeCode struct {
	SheetPos ir.SheetPos `json:"sheet_pos"`
}

// ResizeColumn sets one column width.
type ResizeColumn struct {
	SheetID       ir.SheetID `json:"sheet_id"`
	Column        int64      `json:"column"`
	NewSize       float64    `json:"new_size"`
	ClientResized bool       `json:"client_resized,omitempty"`
}

// ResizeRow sets one row height.
type ResizeRow struct {
	SheetID       ir.SheetID `json:"sheet_id"`
	Row           int64      `json:"row"`
	NewSize       float64    `json:"new_size"`
	ClientResized bool       `json:"client_resized,omitempty"`
}

// ResizeRows sets several row heights at once, as measured by the renderer.
type ResizeRows struct {
	SheetID    ir.SheetID     `json:"sheet_id"`
	RowHeights []ir.RowHeight `json:"row_heights"`
}

// CopyFormats selects which neighbour's formats a newly inserted column takes.
type CopyFormats string

const (
	CopyFormatsNone   CopyFormats = "none"
	CopyFormatsBefore CopyFormats = "before"
	CopyFormatsAfter  CopyFormats = "after"
)

// InsertColumn shifts Column and every column after it right by one.
type InsertColumn struct {
	SheetID     ir.SheetID  `json:"sheet_id"`
	Column      int64       `json:"column"`
	CopyFormats CopyFormats `json:"copy_formats,omitempty"`
}

// DeleteColumn removes Column and shifts every later column left by one.
type DeleteColumn struct {
	SheetID ir.SheetID `json:"sheet_id"`
	Column  int64      `json:"column"`
}

// SetValidation creates or replaces a validation (matched by ID).
type SetValidation struct {
	Validation ir.Validation `json:"validation"`
}

// RemoveValidation deletes a validation.
type RemoveValidation struct {
	SheetID      ir.SheetID `json:"sheet_id"`
	ValidationID string     `json:"validation_id"`
}

// AddSheet inserts a sheet with the complete content of the snapshot.
type AddSheet struct {
	Sheet ir.SheetSnapshot `json:"sheet"`
}

// DeleteSheet removes a sheet and everything on it.
type DeleteSheet struct {
	SheetID ir.SheetID `json:"sheet_id"`
}

func (SetCellValues) operation()    {}
func (SetCellFormats) operation()   {}
func (SetBorders) operation()       {}
func (SetDataTable) operation()     {}
func (ComputeCode) operation()      {}
func (ResizeColumn) operation()     {}
func (ResizeRow) operation()        {}
func (ResizeRows) operation()       {}
func (InsertColumn) operation()     {}
func (DeleteColumn) operation()     {}
func (SetValidation) operation()    {}
func (RemoveValidation) operation() {}
func (AddSheet) operation()         {}
func (DeleteSheet) operation()      {}

func (SetCellValues) Kind() Kind    { return KindSetCellValues }
func (SetCellFormats) Kind() Kind   { return KindSetCellFormats }
func (SetBorders) Kind() Kind       { return KindSetBorders }
func (SetDataTable) Kind() Kind     { return KindSetDataTable }
func (ComputeCode) Kind() Kind      { return KindComputeCode }
func (ResizeColumn) Kind() Kind     { return KindResizeColumn }
func (ResizeRow) Kind() Kind        { return KindResizeRow }
func (ResizeRows) Kind() Kind       { return KindResizeRows }
func (InsertColumn) Kind() Kind     { return KindInsertColumn }
func (DeleteColumn) Kind() Kind     { return KindDeleteColumn }
func (SetValidation) Kind() Kind    { return KindSetValidation }
func (RemoveValidation) Kind() Kind { return KindRemoveValidation }
func (AddSheet) Kind() Kind         { return KindAddSheet }
func (DeleteSheet) Kind() Kind      { return KindDeleteSheet }

// SheetID returns the sheet an operation targets.
func SheetID(op Operation) ir.SheetID {
	switch o := op.(type) {
	case SetCellValues:
		return o.SheetPos.SheetID
	case SetCellFormats:
		return o.SheetRect.SheetID
	case SetBorders:
		return o.SheetRect.SheetID
	case SetDataTable:
		return o.SheetPos.SheetID
	case ComputeCode:
		return o.SheetPos.SheetID
	case ResizeColumn:
		return o.SheetID
	case ResizeRow:
		return o.SheetID
	case ResizeRows:
		return o.SheetID
	case InsertColumn:
		return o.SheetID
	case DeleteColumn:
		return o.SheetID
	case SetValidation:
		return o.Validation.SheetID
	case RemoveValidation:
		return o.SheetID
	case AddSheet:
		return o.Sheet.ID
	case DeleteSheet:
		return o.SheetID
	default:
		return ""
	}
}
