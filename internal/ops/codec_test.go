package ops

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/ir"
)

func TestMarshal_FlatTaggedObject(t *testing.T) {
	b, err := Marshal(ResizeRow{SheetID: "s1", Row: 0, NewSize: 40})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"resize_row","sheet_id":"s1","row":0,"new_size":40}`, string(b))
}

func TestUnmarshal_DecodesNestedCellValues(t *testing.T) {
	in := `{"type":"set_cell_values","sheet_pos":{"x":1,"y":2,"sheet_id":"s1"},
		"values":{"w":2,"h":1,"values":[{"type":"number","value":3},{"type":"error","kind":"Value","msg":"bad"}]}}`
	op, err := Unmarshal([]byte(in))
	require.NoError(t, err)

	scv, ok := op.(SetCellValues)
	require.True(t, ok)
	assert.Equal(t, ir.SheetPos{X: 1, Y: 2, SheetID: "s1"}, scv.SheetPos)
	assert.Equal(t, ir.Number(3), scv.Values.Get(0, 0))
	assert.True(t, ir.ValuesEqual(&ir.RunError{Kind: ir.ErrValue, Msg: "bad"}, scv.Values.Get(1, 0)))
}

func TestUnmarshal_Errors(t *testing.T) {
	_, err := Unmarshal([]byte(`{"sheet_id":"s1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing type")

	_, err = Unmarshal([]byte(`{"type":"merge_cells"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge_cells")
}

// A data table round trip exercises the nested CodeRun and optional fields
// that a flat struct comparison would miss.
func TestMarshalList_DataTableRoundTrip(t *testing.T) {
	line := uint32(3)
	list := []Operation{
		SetDataTable{
			SheetPos: ir.SheetPos{X: 2, Y: 1, SheetID: "s1"},
			DataTable: &ir.DataTable{
				Name:     "Python1",
				Language: ir.LanguagePython,
				Code:     "1 + 1",
				Run: &ir.CodeRun{
					Output:        ir.SingleValue(ir.Number(2)),
					StdOut:        "ok",
					LineNumber:    &line,
					CellsAccessed: []ir.SheetRect{ir.NewSheetRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 1, Y: 3}, "s1")},
				},
			},
			Index: 0,
		},
		SetCellFormats{
			SheetRect: ir.NewSheetRect(ir.Pos{X: 1, Y: 1}, ir.Pos{X: 1, Y: 1}, "s1"),
			Formats:   []ir.FormatUpdate{{Bold: ir.Set(true), FillColor: ir.Clear[string]()}},
		},
	}

	b, err := MarshalList(list)
	require.NoError(t, err)
	back, err := UnmarshalList(b)
	require.NoError(t, err)
	assert.True(t, EqualLists(list, back))
}

func TestFormatUpdate_ClearSurvivesWire(t *testing.T) {
	op := SetCellFormats{
		SheetRect: ir.NewSheetRect(ir.Pos{}, ir.Pos{}, "s1"),
		Formats:   []ir.FormatUpdate{{Wrap: ir.Clear[ir.CellWrap]()}},
	}
	b, err := Marshal(op)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	formats := raw["formats"].([]any)
	assert.Equal(t, map[string]any{"wrap": map[string]any{"value": nil}}, formats[0])
}

func TestFingerprint_StableAndDistinct(t *testing.T) {
	a := []Operation{ResizeColumn{SheetID: "s1", Column: 1, NewSize: 120}}
	b := []Operation{ResizeColumn{SheetID: "s1", Column: 2, NewSize: 120}}

	fa, err := Fingerprint(a)
	require.NoError(t, err)
	fa2, err := Fingerprint(a)
	require.NoError(t, err)
	fb, err := Fingerprint(b)
	require.NoError(t, err)

	assert.Equal(t, fa, fa2)
	assert.NotEqual(t, fa, fb)
}

func TestSheetID(t *testing.T) {
	assert.Equal(t, ir.SheetID("s2"), SheetID(ComputeCode{SheetPos: ir.SheetPos{SheetID: "s2"}}))
	assert.Equal(t, ir.SheetID("s3"), SheetID(AddSheet{Sheet: ir.SheetSnapshot{ID: "s3"}}))
}
