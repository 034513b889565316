package grid

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/gridcore/internal/ir"
)

// Snapshot captures the complete content of a sheet. Entries are sorted so
// two sheets with equal content produce equal snapshots.
func (g *Grid) Snapshot(id ir.SheetID) (ir.SheetSnapshot, error) {
	idx := slices.IndexFunc(g.sheets, func(s *Sheet) bool { return s.id == id })
	if idx < 0 {
		return ir.SheetSnapshot{}, fmt.Errorf("snapshot %s: %w", id, ErrSheetNotFound)
	}
	return snapshotSheet(g.sheets[idx], idx), nil
}

func snapshotSheet(s *Sheet, order int) ir.SheetSnapshot {
	snap := ir.SheetSnapshot{ID: s.id, Name: s.name, Order: order}

	for _, p := range sortedPositions(s.values) {
		snap.Cells = append(snap.Cells, ir.CellEntry{Pos: p, Value: s.values[p]})
	}
	for _, p := range sortedPositions(s.formats) {
		snap.Formats = append(snap.Formats, ir.FormatEntry{Pos: p, Format: s.formats[p]})
	}
	for _, p := range sortedPositions(s.borders) {
		snap.Borders = append(snap.Borders, ir.BorderEntry{Pos: p, Borders: s.borders[p]})
	}
	for _, e := range s.tables {
		snap.DataTables = append(snap.DataTables, ir.DataTableEntry{Pos: e.pos, Table: e.table.Clone()})
	}
	snap.ColumnWidths = sortedOffsets(s.columnWidths)
	snap.RowHeights = sortedOffsets(s.rowHeights)
	if len(s.validations) > 0 {
		snap.Validations = slices.Clone(s.validations)
	}
	return snap
}

// restoreSheet builds a sheet from a snapshot.
func (g *Grid) restoreSheet(snap ir.SheetSnapshot) *Sheet {
	s := newSheet(snap.ID, snap.Name, &g.defaults)
	for _, c := range snap.Cells {
		if !ir.IsBlank(c.Value) {
			s.values[c.Pos] = c.Value
		}
	}
	for _, f := range snap.Formats {
		if !f.Format.IsDefault() {
			s.formats[f.Pos] = f.Format
		}
	}
	for _, b := range snap.Borders {
		if !b.Borders.IsEmpty() {
			s.borders[b.Pos] = b.Borders
		}
	}
	for _, t := range snap.DataTables {
		s.tables = append(s.tables, tableEntry{pos: t.Pos, table: t.Table.Clone()})
	}
	for _, o := range snap.ColumnWidths {
		s.columnWidths[o.Index] = offset{size: o.Size, clientResized: o.ClientResized}
	}
	for _, o := range snap.RowHeights {
		s.rowHeights[o.Index] = offset{size: o.Size, clientResized: o.ClientResized}
	}
	s.validations = slices.Clone(snap.Validations)
	sortValidations(s.validations)
	return s
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewWithDefaults(g.defaults)
	for i, s := range g.sheets {
		out.sheets = append(out.sheets, out.restoreSheet(snapshotSheet(s, i)))
	}
	return out
}

// Digest is a content hash over every sheet, in sheet order. Replaying the
// same operations onto an empty grid always yields the same digest.
func (g *Grid) Digest() (string, error) {
	snaps := make([]ir.SheetSnapshot, 0, len(g.sheets))
	for _, s := range g.sheets {
		snap, err := g.Snapshot(s.id)
		if err != nil {
			return "", err
		}
		snaps = append(snaps, snap)
	}
	return ir.CanonicalHash(ir.DomainGrid, snaps)
}

func sortedPositions[V any](m map[ir.Pos]V) []ir.Pos {
	return slices.SortedFunc(maps.Keys(m), func(a, b ir.Pos) int {
		if c := cmpInt(a.Y, b.Y); c != 0 {
			return c
		}
		return cmpInt(a.X, b.X)
	})
}

func sortedOffsets(m map[int64]offset) []ir.Offset {
	var out []ir.Offset
	for _, k := range slices.Sorted(maps.Keys(m)) {
		o := m[k]
		out = append(out, ir.Offset{Index: k, Size: o.size, ClientResized: o.clientResized})
	}
	return out
}

func sortValidations(v []ir.Validation) {
	slices.SortFunc(v, func(a, b ir.Validation) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
}
