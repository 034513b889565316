package grid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

const sheet1 ir.SheetID = "s1"

func newTestGrid(t *testing.T) *Grid {
	t.Helper()
	g := New()
	_, err := g.AddSheet(sheet1, "Sheet1")
	require.NoError(t, err)
	return g
}

func at(x, y int64) ir.SheetPos {
	return ir.SheetPos{X: x, Y: y, SheetID: sheet1}
}

func mustApply(t *testing.T, g *Grid, op ops.Operation) (Effect, []ops.Operation) {
	t.Helper()
	eff, rev, err := g.Apply(op)
	require.NoError(t, err, ops.Describe(op))
	return eff, rev
}

// undo applies a reverse list back to front, as the engine does.
func undo(t *testing.T, g *Grid, reverse []ops.Operation) {
	t.Helper()
	for i := len(reverse) - 1; i >= 0; i-- {
		mustApply(t, g, reverse[i])
	}
}

func snapshot(t *testing.T, g *Grid, id ir.SheetID) ir.SheetSnapshot {
	t.Helper()
	snap, err := g.Snapshot(id)
	require.NoError(t, err)
	return snap
}

func seed(t *testing.T, g *Grid) {
	t.Helper()
	mustApply(t, g, ops.SetCellValues{SheetPos: at(1, 1), Values: ir.CellValues{W: 2, H: 2, Values: []ir.CellValue{
		ir.Number(1), ir.Text("a"), ir.Logical(true), ir.Number(4),
	}}})
	mustApply(t, g, ops.SetCellFormats{
		SheetRect: ir.NewSheetRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 1, Y: 3}, sheet1),
		Formats:   []ir.FormatUpdate{{Bold: ir.Set(true)}},
	})
	mustApply(t, g, ops.SetBorders{
		SheetRect: ir.NewSheetRect(ir.Pos{X: 2, Y: 2}, ir.Pos{X: 2, Y: 2}, sheet1),
		Borders:   []ir.Borders{{Top: &ir.BorderLine{Style: "line1", Color: "black"}}},
	})
	mustApply(t, g, ops.ResizeColumn{SheetID: sheet1, Column: 2, NewSize: 150, ClientResized: true})
}

func TestApply_RoundTrip(t *testing.T) {
	ten := 10.0
	cases := []struct {
		name string
		op   ops.Operation
	}{
		{"set values over existing", ops.SetCellValues{SheetPos: at(2, 1), Values: ir.CellValues{W: 1, H: 3, Values: []ir.CellValue{
			ir.Text("x"), ir.Blank{}, ir.Number(9),
		}}}},
		{"clear formats", ops.SetCellFormats{
			SheetRect: ir.NewSheetRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 2, Y: 2}, sheet1),
			Formats:   []ir.FormatUpdate{{Bold: ir.Clear[bool](), FillColor: ir.Set("#ff0000")}},
		}},
		{"replace borders", ops.SetBorders{
			SheetRect: ir.NewSheetRect(ir.Pos{X: 2, Y: 2}, ir.Pos{X: 3, Y: 2}, sheet1),
			Borders:   []ir.Borders{{}},
		}},
		{"resize column", ops.ResizeColumn{SheetID: sheet1, Column: 2, NewSize: 80}},
		{"resize row", ops.ResizeRow{SheetID: sheet1, Row: 3, NewSize: 50, ClientResized: true}},
		{"resize rows", ops.ResizeRows{SheetID: sheet1, RowHeights: []ir.RowHeight{{Row: 1, Height: 30}, {Row: 2, Height: 21}}}},
		{"resize rows repeating a row", ops.ResizeRows{SheetID: sheet1, RowHeights: []ir.RowHeight{{Row: 0, Height: 30}, {Row: 0, Height: 40}}}},
		{"insert column before", ops.InsertColumn{SheetID: sheet1, Column: 2, CopyFormats: ops.CopyFormatsBefore}},
		{"delete column", ops.DeleteColumn{SheetID: sheet1, Column: 1}},
		{"add data table", ops.SetDataTable{SheetPos: at(5, 5), DataTable: &ir.DataTable{
			Name: "Formula1", Language: ir.LanguageFormula, Code: "A1+1",
		}, Index: -1}},
		{"add validation", ops.SetValidation{Validation: ir.Validation{
			ID: "v1", SheetID: sheet1, Rect: ir.NewRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 3, Y: 3}),
			Rule: ir.ValidationRule{Kind: ir.RuleNumberRange, Max: &ten},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newTestGrid(t)
			seed(t, g)
			before := snapshot(t, g, sheet1)

			_, rev := mustApply(t, g, tc.op)
			require.NotEmpty(t, rev)
			undo(t, g, rev)

			assert.Equal(t, before, snapshot(t, g, sheet1))
		})
	}
}

func TestClone_IsIndependent(t *testing.T) {
	g := newTestGrid(t)
	seed(t, g)
	want, err := g.Digest()
	require.NoError(t, err)

	clone := g.Clone()
	got, err := clone.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	mustApply(t, clone, ops.SetCellValues{SheetPos: at(1, 1), Values: ir.SingleValue(ir.Text("changed"))})
	mustApply(t, clone, ops.ResizeRow{SheetID: sheet1, Row: 4, NewSize: 70})

	after, err := g.Digest()
	require.NoError(t, err)
	assert.Equal(t, want, after, "writes to the clone stay in the clone")
	assert.Equal(t, ir.Text("changed"), clone.DisplayValue(at(1, 1)))
}

func TestApply_MissingSheetLeavesGridUntouched(t *testing.T) {
	g := newTestGrid(t)
	seed(t, g)
	before, err := g.Digest()
	require.NoError(t, err)

	_, _, err = g.Apply(ops.SetCellValues{
		SheetPos: ir.SheetPos{X: 1, Y: 1, SheetID: "gone"},
		Values:   ir.SingleValue(ir.Number(1)),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSheetNotFound))

	after, err := g.Digest()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestApply_ShapeMismatchRejected(t *testing.T) {
	g := newTestGrid(t)
	_, _, err := g.Apply(ops.SetCellFormats{
		SheetRect: ir.NewSheetRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 2, Y: 2}, sheet1),
		Formats:   []ir.FormatUpdate{{}, {}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidOperation))
}

func TestApply_DeleteSheetRestoresEverything(t *testing.T) {
	g := newTestGrid(t)
	_, err := g.AddSheet("s2", "Second")
	require.NoError(t, err)
	seed(t, g)
	before := snapshot(t, g, sheet1)

	eff, rev := mustApply(t, g, ops.DeleteSheet{SheetID: sheet1})
	assert.True(t, eff.SheetRemoved)
	assert.False(t, g.HasSheet(sheet1))
	assert.Equal(t, ir.SheetID("s2"), g.Sheets()[0].ID())

	undo(t, g, rev)
	assert.Equal(t, before, snapshot(t, g, sheet1))
	assert.Equal(t, sheet1, g.Sheets()[0].ID())
}

func TestSheetByName_CaseInsensitive(t *testing.T) {
	g := newTestGrid(t)
	id, ok := g.SheetByName("sHEEt1")
	require.True(t, ok)
	assert.Equal(t, sheet1, id)

	_, err := g.AddSheet("s9", "SHEET1")
	require.Error(t, err)
}

func TestDisplayValue_CodeOutputOverValues(t *testing.T) {
	g := newTestGrid(t)
	mustApply(t, g, ops.SetDataTable{SheetPos: at(1, 1), DataTable: &ir.DataTable{
		Name: "Python1", Language: ir.LanguagePython, Code: "[1,2]",
		Run: &ir.CodeRun{Output: ir.CellValues{W: 1, H: 2, Values: []ir.CellValue{ir.Number(1), ir.Number(2)}}},
	}, Index: -1})

	assert.Equal(t, ir.Number(1), g.DisplayValue(at(1, 1)))
	assert.Equal(t, ir.Number(2), g.DisplayValue(at(1, 2)))
	assert.Equal(t, ir.Blank{}, g.DisplayValue(at(1, 3)))

	v := g.DisplayValue(ir.SheetPos{X: 1, Y: 1, SheetID: "nope"})
	re, ok := v.(*ir.RunError)
	require.True(t, ok)
	assert.Equal(t, ir.ErrBadCellReference, re.Kind)
}

func TestResizeRows_ReportsOnlyChangedRows(t *testing.T) {
	g := newTestGrid(t)
	eff, _ := mustApply(t, g, ops.ResizeRows{SheetID: sheet1, RowHeights: []ir.RowHeight{
		{Row: 0, Height: 40}, {Row: 1, Height: 21},
	}})
	assert.Equal(t, []ir.RowHeight{{Row: 0, Height: 40}}, eff.ResizedRows)
	assert.Equal(t, 40.0, g.Sheet(sheet1).RowHeight(0))
}

func TestAutoResizeRows_WrappedContentOnly(t *testing.T) {
	g := newTestGrid(t)
	eff, _ := mustApply(t, g, ops.SetCellFormats{
		SheetRect: ir.NewSheetRect(ir.Pos{X: 0, Y: 0}, ir.Pos{X: 0, Y: 0}, sheet1),
		Formats:   []ir.FormatUpdate{{Wrap: ir.Set(ir.WrapWrap)}},
	})
	assert.Empty(t, eff.AutoResizeRows, "blank wrapped cell has nothing to measure")

	eff, _ = mustApply(t, g, ops.SetCellValues{SheetPos: at(0, 0), Values: ir.SingleValue(ir.Text("long text"))})
	assert.Equal(t, []int64{0}, eff.AutoResizeRows)

	eff, _ = mustApply(t, g, ops.SetCellValues{SheetPos: at(5, 5), Values: ir.SingleValue(ir.Text("no wrap"))})
	assert.Empty(t, eff.AutoResizeRows)

	mustApply(t, g, ops.ResizeRow{SheetID: sheet1, Row: 0, NewSize: 60, ClientResized: true})
	eff, _ = mustApply(t, g, ops.SetCellValues{SheetPos: at(0, 0), Values: ir.SingleValue(ir.Text("again"))})
	assert.Empty(t, eff.AutoResizeRows, "client resized rows are left alone")
}

func TestValidations_SortedAndRemovable(t *testing.T) {
	g := newTestGrid(t)
	for _, id := range []string{"b", "a"} {
		mustApply(t, g, ops.SetValidation{Validation: ir.Validation{
			ID: id, SheetID: sheet1, Rect: ir.SingleRect(ir.Pos{X: 1, Y: 1}),
			Rule: ir.ValidationRule{Kind: ir.RuleLogical},
		}})
	}
	vs := g.Sheet(sheet1).Validations()
	require.Len(t, vs, 2)
	assert.Equal(t, "a", vs[0].ID)

	_, rev := mustApply(t, g, ops.RemoveValidation{SheetID: sheet1, ValidationID: "a"})
	assert.Len(t, g.Sheet(sheet1).Validations(), 1)
	undo(t, g, rev)
	assert.Len(t, g.Sheet(sheet1).Validations(), 2)

	_, ok := g.Sheet(sheet1).ValidationAt(ir.Pos{X: 1, Y: 1})
	assert.True(t, ok)
}
