package grid

import (
	"slices"

	"github.com/roach88/gridcore/internal/ir"
)

type tableEntry struct {
	pos   ir.Pos
	table *ir.DataTable
}

type offset struct {
	size          float64
	clientResized bool
}

// Sheet is one sheet of the grid. Only Grid.Apply mutates it.
type Sheet struct {
	id   ir.SheetID
	name string

	values  map[ir.Pos]ir.CellValue
	formats map[ir.Pos]ir.Format
	borders map[ir.Pos]ir.Borders

	// tables keeps data tables in sheet order; SetDataTable indexes into it.
	tables []tableEntry

	columnWidths map[int64]offset
	rowHeights   map[int64]offset

	// validations are kept sorted by ID.
	validations []ir.Validation

	defaults *Defaults
}

func newSheet(id ir.SheetID, name string, d *Defaults) *Sheet {
	return &Sheet{
		id:           id,
		name:         name,
		values:       make(map[ir.Pos]ir.CellValue),
		formats:      make(map[ir.Pos]ir.Format),
		borders:      make(map[ir.Pos]ir.Borders),
		columnWidths: make(map[int64]offset),
		rowHeights:   make(map[int64]offset),
		defaults:     d,
	}
}

// ID returns the sheet id.
func (s *Sheet) ID() ir.SheetID { return s.id }

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Value returns the plain value stored at pos (Blank if none). Code cell
// output is not included; see DisplayValue.
func (s *Sheet) Value(pos ir.Pos) ir.CellValue {
	if v, ok := s.values[pos]; ok {
		return v
	}
	return ir.Blank{}
}

// DisplayValue returns what the cell shows: code cell output when pos lies
// inside a data table's output, the stored value otherwise.
func (s *Sheet) DisplayValue(pos ir.Pos) ir.CellValue {
	for _, e := range s.tables {
		r := e.table.OutputRect(e.pos)
		if r.Contains(pos) {
			return e.table.ValueAt(uint32(pos.X-e.pos.X), uint32(pos.Y-e.pos.Y))
		}
	}
	return s.Value(pos)
}

// Format returns the format at pos.
func (s *Sheet) Format(pos ir.Pos) ir.Format {
	return s.formats[pos]
}

// Borders returns the borders at pos.
func (s *Sheet) Borders(pos ir.Pos) ir.Borders {
	return s.borders[pos]
}

// DataTable returns the code cell anchored at pos and its index in the
// sheet's table order.
func (s *Sheet) DataTable(pos ir.Pos) (*ir.DataTable, int, bool) {
	i := s.tableIndex(pos)
	if i < 0 {
		return nil, -1, false
	}
	return s.tables[i].table, i, true
}

// DataTables lists every code cell in table order.
func (s *Sheet) DataTables() []ir.DataTableEntry {
	out := make([]ir.DataTableEntry, len(s.tables))
	for i, e := range s.tables {
		out[i] = ir.DataTableEntry{Pos: e.pos, Table: e.table}
	}
	return out
}

func (s *Sheet) tableIndex(pos ir.Pos) int {
	return slices.IndexFunc(s.tables, func(e tableEntry) bool { return e.pos == pos })
}

// ColumnWidth returns the width of a column.
func (s *Sheet) ColumnWidth(col int64) float64 {
	if o, ok := s.columnWidths[col]; ok {
		return o.size
	}
	return s.defaults.ColumnWidth
}

// RowHeight returns the height of a row.
func (s *Sheet) RowHeight(row int64) float64 {
	if o, ok := s.rowHeights[row]; ok {
		return o.size
	}
	return s.defaults.RowHeight
}

// RowClientResized reports whether the user set the row height by hand.
// Such rows are never auto-resized.
func (s *Sheet) RowClientResized(row int64) bool {
	return s.rowHeights[row].clientResized
}

// Validations lists the sheet's validations sorted by ID.
func (s *Sheet) Validations() []ir.Validation {
	return slices.Clone(s.validations)
}

// ValidationAt returns the validation covering pos, if any.
func (s *Sheet) ValidationAt(pos ir.Pos) (ir.Validation, bool) {
	for _, v := range s.validations {
		if v.Rect.Contains(pos) {
			return v, true
		}
	}
	return ir.Validation{}, false
}

// Bounds returns the rectangle covering every value, format, border and
// data table on the sheet. ok is false for an empty sheet.
func (s *Sheet) Bounds() (ir.Rect, bool) {
	var r ir.Rect
	ok := false
	add := func(rr ir.Rect) {
		if !ok {
			r, ok = rr, true
			return
		}
		r = r.Union(rr)
	}
	for p := range s.values {
		add(ir.SingleRect(p))
	}
	for p := range s.formats {
		add(ir.SingleRect(p))
	}
	for p := range s.borders {
		add(ir.SingleRect(p))
	}
	for _, e := range s.tables {
		add(e.table.OutputRect(e.pos))
	}
	return r, ok
}

// hasContent reports whether the cell displays something.
func (s *Sheet) hasContent(pos ir.Pos) bool {
	return !ir.IsBlank(s.DisplayValue(pos))
}

// columnPositions lists the keys of m in one column, sorted by row.
func columnPositions[V any](m map[ir.Pos]V, col int64) []ir.Pos {
	var out []ir.Pos
	for p := range m {
		if p.X == col {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b ir.Pos) int { return cmpInt(a.Y, b.Y) })
	return out
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// shiftColumns moves every key with X >= from by delta columns.
func shiftColumns[V any](m map[ir.Pos]V, from, delta int64) map[ir.Pos]V {
	out := make(map[ir.Pos]V, len(m))
	for p, v := range m {
		if p.X >= from {
			p.X += delta
		}
		out[p] = v
	}
	return out
}
