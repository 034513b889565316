package grid

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// Apply applies one operation and returns its effect and reverse operations.
//
// ComputeCode is executed by the engine, not the store; Apply accepts it as
// a no-op so replaying a recorded transaction never fails on it.
func (g *Grid) Apply(op ops.Operation) (Effect, []ops.Operation, error) {
	switch o := op.(type) {
	case ops.AddSheet:
		return g.applyAddSheet(o)
	case ops.DeleteSheet:
		return g.applyDeleteSheet(o)
	case ops.ComputeCode:
		return Effect{SheetID: o.SheetPos.SheetID}, nil, nil
	}

	id := ops.SheetID(op)
	s := g.Sheet(id)
	if s == nil {
		return Effect{}, nil, fmt.Errorf("%s: %w: %s", op.Kind(), ErrSheetNotFound, id)
	}

	switch o := op.(type) {
	case ops.SetCellValues:
		return g.applySetCellValues(s, o)
	case ops.SetCellFormats:
		return g.applySetCellFormats(s, o)
	case ops.SetBorders:
		return applySetBorders(s, o)
	case ops.SetDataTable:
		return g.applySetDataTable(s, o)
	case ops.ResizeColumn:
		return applyResizeColumn(s, o)
	case ops.ResizeRow:
		return applyResizeRow(s, o)
	case ops.ResizeRows:
		return applyResizeRows(s, o)
	case ops.InsertColumn:
		return applyInsertColumn(s, o)
	case ops.DeleteColumn:
		return applyDeleteColumn(s, o)
	case ops.SetValidation:
		return applySetValidation(s, o)
	case ops.RemoveValidation:
		return applyRemoveValidation(s, o)
	default:
		return Effect{}, nil, fmt.Errorf("%w: unsupported operation %T", ErrInvalidOperation, op)
	}
}

func (g *Grid) applySetCellValues(s *Sheet, o ops.SetCellValues) (Effect, []ops.Operation, error) {
	if len(o.Values.Values) != o.Values.Size().Len() || o.Values.Size().Len() == 0 {
		return Effect{}, nil, fmt.Errorf("%s: %w: %d values for %s block",
			o.Kind(), ErrInvalidOperation, len(o.Values.Values), o.Values.Size())
	}

	old := ir.NewCellValues(o.Values.W, o.Values.H)
	var rows []int64
	for y := uint32(0); y < o.Values.H; y++ {
		for x := uint32(0); x < o.Values.W; x++ {
			p := ir.Pos{X: o.SheetPos.X + int64(x), Y: o.SheetPos.Y + int64(y)}
			old.Set(x, y, s.Value(p))
			v := o.Values.Get(x, y)
			if ir.IsBlank(v) {
				delete(s.values, p)
			} else {
				s.values[p] = v
			}
		}
		rows = append(rows, o.SheetPos.Y+int64(y))
	}

	rect := ir.Rect{
		Min: o.SheetPos.Pos(),
		Max: ir.Pos{X: o.SheetPos.X + int64(o.Values.W) - 1, Y: o.SheetPos.Y + int64(o.Values.H) - 1},
	}
	eff := Effect{
		SheetID:        s.id,
		Changed:        []ir.SheetRect{rect.ToSheetRect(s.id)},
		AutoResizeRows: g.resizeCandidates(s, rect, rows, old),
	}
	reverse := ops.SetCellValues{SheetPos: o.SheetPos, Values: old}
	return eff, []ops.Operation{reverse}, nil
}

// resizeCandidates returns the rows of rect holding a wrapped cell whose
// content changed. A cell that was cleared still counts: its row may shrink.
func (g *Grid) resizeCandidates(s *Sheet, rect ir.Rect, rows []int64, old ir.CellValues) []int64 {
	var touched []int64
	for _, p := range rect.Positions() {
		if !s.Format(p).WrapsText() {
			continue
		}
		prev := old.Get(uint32(p.X-rect.Min.X), uint32(p.Y-rect.Min.Y))
		if !ir.IsBlank(prev) || s.hasContent(p) {
			touched = append(touched, p.Y)
		}
	}
	if len(touched) == 0 {
		return nil
	}
	slices.Sort(touched)
	touched = slices.Compact(touched)
	var out []int64
	for _, r := range touched {
		if slices.Contains(rows, r) && !s.RowClientResized(r) {
			out = append(out, r)
		}
	}
	return out
}

// perCell expands a one-or-per-cell payload to one entry per position.
func perCell[T any](items []T, rect ir.Rect) ([]T, error) {
	n := int(rect.Width() * rect.Height())
	switch len(items) {
	case n:
		return items, nil
	case 1:
		out := make([]T, n)
		for i := range out {
			out[i] = items[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d entries for %d cells", ErrInvalidOperation, len(items), n)
	}
}

func (g *Grid) applySetCellFormats(s *Sheet, o ops.SetCellFormats) (Effect, []ops.Operation, error) {
	rect := o.SheetRect.Rect()
	updates, err := perCell(o.Formats, rect)
	if err != nil {
		return Effect{}, nil, fmt.Errorf("%s: %w", o.Kind(), err)
	}

	undo := make([]ir.FormatUpdate, len(updates))
	var heightRows []int64
	for i, p := range rect.Positions() {
		next, u := updates[i].Apply(s.Format(p))
		undo[i] = u
		if next.IsDefault() {
			delete(s.formats, p)
		} else {
			s.formats[p] = next
		}
		if updates[i].AffectsRowHeight() && s.hasContent(p) && !s.RowClientResized(p.Y) {
			heightRows = append(heightRows, p.Y)
		}
	}
	slices.Sort(heightRows)

	eff := Effect{SheetID: s.id, AutoResizeRows: slices.Compact(heightRows)}
	reverse := ops.SetCellFormats{SheetRect: o.SheetRect, Formats: compactSame(undo)}
	return eff, []ops.Operation{reverse}, nil
}

// compactSame collapses a per-cell list whose entries are all equal to a
// single entry.
func compactSame[T any](items []T) []T {
	for i := 1; i < len(items); i++ {
		if !reflect.DeepEqual(items[0], items[i]) {
			return items
		}
	}
	if len(items) == 0 {
		return items
	}
	return items[:1]
}

func applySetBorders(s *Sheet, o ops.SetBorders) (Effect, []ops.Operation, error) {
	rect := o.SheetRect.Rect()
	borders, err := perCell(o.Borders, rect)
	if err != nil {
		return Effect{}, nil, fmt.Errorf("%s: %w", o.Kind(), err)
	}
	old := make([]ir.Borders, len(borders))
	for i, p := range rect.Positions() {
		old[i] = s.Borders(p)
		if borders[i].IsEmpty() {
			delete(s.borders, p)
		} else {
			s.borders[p] = borders[i]
		}
	}
	reverse := ops.SetBorders{SheetRect: o.SheetRect, Borders: compactSame(old)}
	return Effect{SheetID: s.id}, []ops.Operation{reverse}, nil
}

func (g *Grid) applySetDataTable(s *Sheet, o ops.SetDataTable) (Effect, []ops.Operation, error) {
	pos := o.SheetPos.Pos()
	eff := Effect{SheetID: s.id, CodeCells: []ir.SheetPos{o.SheetPos}}

	var reverse ops.SetDataTable
	idx := s.tableIndex(pos)
	if idx >= 0 {
		prev := s.tables[idx].table
		reverse = ops.SetDataTable{SheetPos: o.SheetPos, DataTable: prev.Clone(), Index: idx}
		eff.Changed = append(eff.Changed, prev.OutputRect(pos).ToSheetRect(s.id))
		s.tables = slices.Delete(s.tables, idx, idx+1)
	} else {
		reverse = ops.SetDataTable{SheetPos: o.SheetPos, DataTable: nil, Index: -1}
	}

	if o.DataTable != nil {
		entry := tableEntry{pos: pos, table: o.DataTable.Clone()}
		at := o.Index
		if at < 0 {
			at = idx
		}
		if at < 0 || at > len(s.tables) {
			at = len(s.tables)
		}
		s.tables = slices.Insert(s.tables, at, entry)
		eff.Changed = append(eff.Changed, entry.table.OutputRect(pos).ToSheetRect(s.id))
	}

	rows := make([]int64, 0)
	for _, r := range eff.Changed {
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			rows = append(rows, y)
		}
	}
	eff.AutoResizeRows = g.AutoResizeRows(s.id, rows)
	return eff, []ops.Operation{reverse}, nil
}

func applyResizeColumn(s *Sheet, o ops.ResizeColumn) (Effect, []ops.Operation, error) {
	prev := offset{size: s.ColumnWidth(o.Column), clientResized: s.columnWidths[o.Column].clientResized}
	setOffset(s.columnWidths, o.Column, offset{size: o.NewSize, clientResized: o.ClientResized}, s.defaults.ColumnWidth)
	reverse := ops.ResizeColumn{SheetID: s.id, Column: o.Column, NewSize: prev.size, ClientResized: prev.clientResized}
	return Effect{SheetID: s.id}, []ops.Operation{reverse}, nil
}

func applyResizeRow(s *Sheet, o ops.ResizeRow) (Effect, []ops.Operation, error) {
	prev := offset{size: s.RowHeight(o.Row), clientResized: s.RowClientResized(o.Row)}
	setOffset(s.rowHeights, o.Row, offset{size: o.NewSize, clientResized: o.ClientResized}, s.defaults.RowHeight)
	eff := Effect{SheetID: s.id}
	if prev.size != o.NewSize {
		eff.ResizedRows = []ir.RowHeight{{Row: o.Row, Height: o.NewSize}}
	}
	reverse := ops.ResizeRow{SheetID: s.id, Row: o.Row, NewSize: prev.size, ClientResized: prev.clientResized}
	return eff, []ops.Operation{reverse}, nil
}

func applyResizeRows(s *Sheet, o ops.ResizeRows) (Effect, []ops.Operation, error) {
	eff := Effect{SheetID: s.id}
	old := make([]ir.RowHeight, 0, len(o.RowHeights))
	seen := make(map[int64]bool, len(o.RowHeights))
	for _, rh := range o.RowHeights {
		prev := s.RowHeight(rh.Row)
		// A repeated row restores the height from before the first entry.
		if !seen[rh.Row] {
			seen[rh.Row] = true
			old = append(old, ir.RowHeight{Row: rh.Row, Height: prev})
		}
		// Measured heights never mark a row as client resized.
		setOffset(s.rowHeights, rh.Row, offset{size: rh.Height, clientResized: s.RowClientResized(rh.Row)}, s.defaults.RowHeight)
		if prev != rh.Height {
			eff.ResizedRows = append(eff.ResizedRows, rh)
		}
	}
	reverse := ops.ResizeRows{SheetID: s.id, RowHeights: old}
	return eff, []ops.Operation{reverse}, nil
}

func setOffset(m map[int64]offset, idx int64, o offset, def float64) {
	if o.size == def && !o.clientResized {
		delete(m, idx)
		return
	}
	m[idx] = o
}

func applySetValidation(s *Sheet, o ops.SetValidation) (Effect, []ops.Operation, error) {
	v := o.Validation
	if v.ID == "" {
		return Effect{}, nil, fmt.Errorf("%s: %w: empty validation id", o.Kind(), ErrInvalidOperation)
	}
	var reverse ops.Operation = ops.RemoveValidation{SheetID: s.id, ValidationID: v.ID}
	i := slices.IndexFunc(s.validations, func(x ir.Validation) bool { return x.ID == v.ID })
	if i >= 0 {
		reverse = ops.SetValidation{Validation: s.validations[i]}
		s.validations[i] = v
	} else {
		s.validations = append(s.validations, v)
	}
	sortValidations(s.validations)
	return Effect{SheetID: s.id}, []ops.Operation{reverse}, nil
}

func applyRemoveValidation(s *Sheet, o ops.RemoveValidation) (Effect, []ops.Operation, error) {
	i := slices.IndexFunc(s.validations, func(x ir.Validation) bool { return x.ID == o.ValidationID })
	if i < 0 {
		return Effect{SheetID: s.id}, nil, nil
	}
	reverse := ops.SetValidation{Validation: s.validations[i]}
	s.validations = slices.Delete(s.validations, i, i+1)
	return Effect{SheetID: s.id}, []ops.Operation{reverse}, nil
}

func (g *Grid) applyAddSheet(o ops.AddSheet) (Effect, []ops.Operation, error) {
	if err := g.checkNewSheet(o.Sheet.ID, o.Sheet.Name); err != nil {
		return Effect{}, nil, fmt.Errorf("%s: %w", o.Kind(), err)
	}
	s := g.restoreSheet(o.Sheet)
	at := o.Sheet.Order
	if at < 0 || at > len(g.sheets) {
		at = len(g.sheets)
	}
	g.sheets = slices.Insert(g.sheets, at, s)

	eff := Effect{SheetID: s.id}
	if r, ok := s.Bounds(); ok {
		eff.Changed = []ir.SheetRect{r.ToSheetRect(s.id)}
	}
	for _, e := range s.tables {
		eff.CodeCells = append(eff.CodeCells, e.pos.ToSheetPos(s.id))
	}
	return eff, []ops.Operation{ops.DeleteSheet{SheetID: s.id}}, nil
}

func (g *Grid) applyDeleteSheet(o ops.DeleteSheet) (Effect, []ops.Operation, error) {
	snap, err := g.Snapshot(o.SheetID)
	if err != nil {
		return Effect{}, nil, fmt.Errorf("%s: %w", o.Kind(), err)
	}
	s := g.sheets[snap.Order]
	eff := Effect{SheetID: s.id, SheetRemoved: true}
	if r, ok := s.Bounds(); ok {
		eff.Changed = []ir.SheetRect{r.ToSheetRect(s.id)}
	}
	for _, e := range s.tables {
		eff.CodeCells = append(eff.CodeCells, e.pos.ToSheetPos(s.id))
	}
	g.sheets = slices.Delete(g.sheets, snap.Order, snap.Order+1)
	return eff, []ops.Operation{ops.AddSheet{Sheet: snap}}, nil
}
