package grid

import (
	"slices"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// applyInsertColumn shifts column and everything right of it by one. The
// new column is empty unless CopyFormats asks for a neighbour's formats.
func applyInsertColumn(s *Sheet, o ops.InsertColumn) (Effect, []ops.Operation, error) {
	col := o.Column
	eff := Effect{SheetID: s.id}
	if r, ok := s.Bounds(); ok && r.Max.X >= col {
		eff.Changed = []ir.SheetRect{ir.NewSheetRect(ir.Pos{X: col, Y: r.Min.Y}, ir.Pos{X: r.Max.X + 1, Y: r.Max.Y}, s.id)}
	}

	s.values = shiftColumns(s.values, col, 1)
	s.formats = shiftColumns(s.formats, col, 1)
	s.borders = shiftColumns(s.borders, col, 1)
	for i := range s.tables {
		if s.tables[i].pos.X >= col {
			old := s.tables[i].pos.ToSheetPos(s.id)
			s.tables[i].pos.X++
			eff.CodeCells = append(eff.CodeCells, old, s.tables[i].pos.ToSheetPos(s.id))
		}
	}
	s.columnWidths = shiftOffsets(s.columnWidths, col, 1)
	for i := range s.validations {
		r := &s.validations[i].Rect
		switch {
		case r.Min.X >= col:
			r.Min.X++
			r.Max.X++
		case r.Max.X >= col:
			r.Max.X++
		}
	}

	switch o.CopyFormats {
	case ops.CopyFormatsBefore:
		copyColumnFormats(s, col-1, col)
	case ops.CopyFormatsAfter:
		copyColumnFormats(s, col+1, col)
	}

	return eff, []ops.Operation{ops.DeleteColumn{SheetID: s.id, Column: col}}, nil
}

// applyDeleteColumn removes a column and shifts later columns left.
//
// The reverse list restores the column exactly. In push order it holds:
// validations, borders, formats, data tables (highest index first), values,
// the column width, then InsertColumn. Undo applies the list back to front,
// so the empty column is inserted before anything is written into it.
func applyDeleteColumn(s *Sheet, o ops.DeleteColumn) (Effect, []ops.Operation, error) {
	col := o.Column
	eff := Effect{SheetID: s.id}
	if r, ok := s.Bounds(); ok && r.Max.X >= col {
		eff.Changed = []ir.SheetRect{ir.NewSheetRect(ir.Pos{X: col, Y: r.Min.Y}, ir.Pos{X: r.Max.X, Y: r.Max.Y}, s.id)}
	}

	var reverse []ops.Operation
	reverse = append(reverse, deleteColumnValidations(s, col)...)
	reverse = append(reverse, reverseBordersForColumn(s, col)...)
	reverse = append(reverse, reverseFormatsForColumn(s, col)...)
	reverse = append(reverse, reverseTablesForColumn(s, col)...)
	reverse = append(reverse, reverseValuesForColumn(s, col)...)
	if w, ok := s.columnWidths[col]; ok {
		reverse = append(reverse, ops.ResizeColumn{SheetID: s.id, Column: col, NewSize: w.size, ClientResized: w.clientResized})
	}
	reverse = append(reverse, ops.InsertColumn{SheetID: s.id, Column: col, CopyFormats: ops.CopyFormatsNone})

	for _, p := range columnPositions(s.values, col) {
		delete(s.values, p)
	}
	for _, p := range columnPositions(s.formats, col) {
		delete(s.formats, p)
	}
	for _, p := range columnPositions(s.borders, col) {
		delete(s.borders, p)
	}
	delete(s.columnWidths, col)
	s.values = shiftColumns(s.values, col+1, -1)
	s.formats = shiftColumns(s.formats, col+1, -1)
	s.borders = shiftColumns(s.borders, col+1, -1)
	s.columnWidths = shiftOffsets(s.columnWidths, col+1, -1)

	s.tables = slices.DeleteFunc(s.tables, func(e tableEntry) bool {
		if e.pos.X == col {
			eff.CodeCells = append(eff.CodeCells, e.pos.ToSheetPos(s.id))
			return true
		}
		return false
	})
	for i := range s.tables {
		if s.tables[i].pos.X > col {
			old := s.tables[i].pos.ToSheetPos(s.id)
			s.tables[i].pos.X--
			eff.CodeCells = append(eff.CodeCells, old, s.tables[i].pos.ToSheetPos(s.id))
		}
	}

	return eff, reverse, nil
}

// deleteColumnValidations removes col from every validation and returns the
// SetValidation operations that restore the touched validations.
func deleteColumnValidations(s *Sheet, col int64) []ops.Operation {
	var reverse []ops.Operation
	kept := s.validations[:0]
	for _, v := range s.validations {
		r := v.Rect
		switch {
		case r.Max.X < col:
			kept = append(kept, v)
			continue
		case r.Min.X == col && r.Max.X == col:
			reverse = append(reverse, ops.SetValidation{Validation: v})
			continue
		}
		reverse = append(reverse, ops.SetValidation{Validation: v})
		if r.Min.X > col {
			r.Min.X--
		}
		r.Max.X--
		v.Rect = r
		kept = append(kept, v)
	}
	s.validations = kept
	return reverse
}

func reverseBordersForColumn(s *Sheet, col int64) []ops.Operation {
	positions := columnPositions(s.borders, col)
	if len(positions) == 0 {
		return nil
	}
	first, last := positions[0].Y, positions[len(positions)-1].Y
	borders := make([]ir.Borders, 0, last-first+1)
	for y := first; y <= last; y++ {
		borders = append(borders, s.borders[ir.Pos{X: col, Y: y}])
	}
	rect := ir.NewSheetRect(ir.Pos{X: col, Y: first}, ir.Pos{X: col, Y: last}, s.id)
	return []ops.Operation{ops.SetBorders{SheetRect: rect, Borders: compactSame(borders)}}
}

func reverseFormatsForColumn(s *Sheet, col int64) []ops.Operation {
	positions := columnPositions(s.formats, col)
	if len(positions) == 0 {
		return nil
	}
	first, last := positions[0].Y, positions[len(positions)-1].Y
	updates := make([]ir.FormatUpdate, 0, last-first+1)
	for y := first; y <= last; y++ {
		updates = append(updates, ir.FormatToUpdate(s.formats[ir.Pos{X: col, Y: y}]))
	}
	rect := ir.NewSheetRect(ir.Pos{X: col, Y: first}, ir.Pos{X: col, Y: last}, s.id)
	return []ops.Operation{ops.SetCellFormats{SheetRect: rect, Formats: compactSame(updates)}}
}

// reverseTablesForColumn returns SetDataTable operations for the tables
// anchored in col, highest index first so undo re-inserts them in order.
func reverseTablesForColumn(s *Sheet, col int64) []ops.Operation {
	var reverse []ops.Operation
	for i := len(s.tables) - 1; i >= 0; i-- {
		e := s.tables[i]
		if e.pos.X != col {
			continue
		}
		reverse = append(reverse, ops.SetDataTable{
			SheetPos:  e.pos.ToSheetPos(s.id),
			DataTable: e.table.Clone(),
			Index:     i,
		})
	}
	return reverse
}

// reverseValuesForColumn returns one SetCellValues per contiguous run of
// values in col.
func reverseValuesForColumn(s *Sheet, col int64) []ops.Operation {
	positions := columnPositions(s.values, col)
	var reverse []ops.Operation
	for start := 0; start < len(positions); {
		end := start
		for end+1 < len(positions) && positions[end+1].Y == positions[end].Y+1 {
			end++
		}
		vals := make([]ir.CellValue, 0, end-start+1)
		for _, p := range positions[start : end+1] {
			vals = append(vals, s.values[p])
		}
		reverse = append(reverse, ops.SetCellValues{
			SheetPos: positions[start].ToSheetPos(s.id),
			Values:   ir.CellValues{W: 1, H: uint32(len(vals)), Values: vals},
		})
		start = end + 1
	}
	return reverse
}

func copyColumnFormats(s *Sheet, from, to int64) {
	for _, p := range columnPositions(s.formats, from) {
		s.formats[ir.Pos{X: to, Y: p.Y}] = s.formats[p]
	}
}

func shiftOffsets(m map[int64]offset, from, delta int64) map[int64]offset {
	out := make(map[int64]offset, len(m))
	for k, v := range m {
		if k >= from {
			k += delta
		}
		out[k] = v
	}
	return out
}
