package ir

import (
	"encoding/json"
	"fmt"
)

// CellEntry is one stored value in a sheet snapshot.
type CellEntry struct {
	Pos   Pos       `json:"pos"`
	Value CellValue `json:"value"`
}

// UnmarshalJSON decodes the tagged value of the entry.
func (e *CellEntry) UnmarshalJSON(data []byte) error {
	var w struct {
		Pos   Pos             `json:"pos"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := UnmarshalCellValue(w.Value)
	if err != nil {
		return fmt.Errorf("cell %s: %w", w.Pos, err)
	}
	*e = CellEntry{Pos: w.Pos, Value: v}
	return nil
}

// FormatEntry is one cell format in a sheet snapshot.
type FormatEntry struct {
	Pos    Pos    `json:"pos"`
	Format Format `json:"format"`
}

// BorderEntry is one cell border in a sheet snapshot.
type BorderEntry struct {
	Pos     Pos     `json:"pos"`
	Borders Borders `json:"borders"`
}

// DataTableEntry is one anchored data table in a sheet snapshot, listed in
// the sheet's table order.
type DataTableEntry struct {
	Pos   Pos        `json:"pos"`
	Table *DataTable `json:"table"`
}

// Offset is a non-default column width or row height.
type Offset struct {
	Index         int64   `json:"index"`
	Size          float64 `json:"size"`
	ClientResized bool    `json:"client_resized,omitempty"`
}

// SheetSnapshot is the complete content of one sheet. It is the payload of
// AddSheet and the reverse of DeleteSheet, so every field a sheet stores
// must appear here. Entries are sorted (row-major by position) so equal
// sheets produce equal snapshots.
type SheetSnapshot struct {
	ID           SheetID          `json:"id"`
	Name         string           `json:"name"`
	Order        int              `json:"order"`
	Cells        []CellEntry      `json:"cells,omitempty"`
	Formats      []FormatEntry    `json:"formats,omitempty"`
	Borders      []BorderEntry    `json:"borders,omitempty"`
	DataTables   []DataTableEntry `json:"data_tables,omitempty"`
	ColumnWidths []Offset         `json:"column_widths,omitempty"`
	RowHeights   []Offset         `json:"row_heights,omitempty"`
	Validations  []Validation     `json:"validations,omitempty"`
}
