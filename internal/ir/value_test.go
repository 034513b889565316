package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellValue_WireForm(t *testing.T) {
	tests := []struct {
		name string
		v    CellValue
		want string
	}{
		{"blank", Blank{}, `{"type":"blank"}`},
		{"text", Text("hi"), `{"type":"text","value":"hi"}`},
		{"number", Number(2.5), `{"type":"number","value":2.5}`},
		{"logical", Logical(true), `{"type":"logical","value":true}`},
		{"error", &RunError{Kind: ErrCircularReference}, `{"type":"error","kind":"CircularReference"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCellValue(tt.v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))

			back, err := UnmarshalCellValue(got)
			require.NoError(t, err)
			assert.True(t, ValuesEqual(tt.v, back))
		})
	}
}

func TestCellValue_NaNRejected(t *testing.T) {
	_, err := MarshalCellValue(Number(math.NaN()))
	require.Error(t, err)
}

func TestUnmarshalCellValue_UnknownType(t *testing.T) {
	_, err := UnmarshalCellValue([]byte(`{"type":"image"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image")
}

func TestCellValues_UnmarshalChecksShape(t *testing.T) {
	var cv CellValues
	err := json.Unmarshal([]byte(`{"w":2,"h":1,"values":[{"type":"blank"}]}`), &cv)
	require.Error(t, err)

	err = json.Unmarshal([]byte(`{"w":2,"h":1,"values":[{"type":"number","value":1},{"type":"text","value":"a"}]}`), &cv)
	require.NoError(t, err)
	assert.Equal(t, Number(1), cv.Get(0, 0))
	assert.Equal(t, Text("a"), cv.Get(1, 0))
	assert.Equal(t, Blank{}, cv.Get(5, 5))
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "3", Number(3).String())
	assert.Equal(t, "0.25", Number(0.25).String())
	assert.Equal(t, "1e+20", Number(1e20).String())
	assert.Equal(t, "TRUE", Logical(true).String())
}

func TestValuesEqual_NilIsBlank(t *testing.T) {
	assert.True(t, ValuesEqual(nil, Blank{}))
	assert.False(t, ValuesEqual(Number(1), Text("1")))
	assert.True(t, ValuesEqual(&RunError{Kind: ErrValue, Msg: "x"}, &RunError{Kind: ErrValue, Msg: "x"}))
}

func TestFormatUpdate_ApplyReturnsUndo(t *testing.T) {
	orig := Format{Bold: ptr(true)}
	upd := FormatUpdate{Bold: Clear[bool](), FillColor: Set("red")}

	next, undo := upd.Apply(orig)
	assert.Nil(t, next.Bold)
	require.NotNil(t, next.FillColor)
	assert.Equal(t, "red", *next.FillColor)

	restored, _ := undo.Apply(next)
	assert.Equal(t, orig, restored)
}

func TestValidationRule_Check(t *testing.T) {
	lo, hi := 1.0, 10.0
	r := ValidationRule{Kind: RuleNumberRange, Min: &lo, Max: &hi}
	assert.True(t, r.Check(Number(5)))
	assert.False(t, r.Check(Number(11)))
	assert.False(t, r.Check(Text("5")))
	assert.True(t, r.Check(Blank{}))

	list := ValidationRule{Kind: RuleList, List: []string{"a", "b"}}
	assert.True(t, list.Check(Text("a")))
	assert.False(t, list.Check(Text("c")))
}

func ptr[T any](v T) *T { return &v }
