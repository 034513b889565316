package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeysByUTF16(t *testing.T) {
	// U+E000 sorts after U+1F600 in UTF-8 but before it in UTF-16,
	// because the emoji encodes as a surrogate pair starting 0xD83D.
	got, err := MarshalCanonical(map[string]any{
		"\U0001F600": 1,
		"\uE000":     2,
		"a":          3,
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":3,\"\U0001F600\":1,\"\uE000\":2}", string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"s": "<a & b>"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a & b>"}`, string(got))
}

func TestMarshalCanonical_NFCNormalizes(t *testing.T) {
	got, err := MarshalCanonical("e\u0301")
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	got, err := MarshalCanonical("a\u2028b")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(got))

	got, err = MarshalCanonical(`a\u2028b`)
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(got))
}

func TestMarshalCanonical_Numbers(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{40, "40"},
		{1e21, "1e+21"},
		{1.5e-7, "1.5e-7"},
		{123456789012, "123456789012"},
	}
	for _, tt := range tests {
		got, err := MarshalCanonical(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(got), "input %v", tt.in)
	}
}

func TestMarshalCanonical_StructsUseJSONTags(t *testing.T) {
	got, err := MarshalCanonical(SheetPos{X: 2, Y: 1, SheetID: "s"})
	require.NoError(t, err)
	assert.Equal(t, `{"sheet_id":"s","x":2,"y":1}`, string(got))
}

func TestMarshalCanonical_CellValues(t *testing.T) {
	got, err := MarshalCanonical([]CellValue{Number(1), Text("x"), Blank{}})
	require.NoError(t, err)
	assert.Equal(t, `[{"type":"number","value":1},{"type":"text","value":"x"},{"type":"blank"}]`, string(got))
}

func TestCanonicalHash_DomainSeparated(t *testing.T) {
	a, err := CanonicalHash(DomainOperations, map[string]any{"k": 1})
	require.NoError(t, err)
	b, err := CanonicalHash(DomainGrid, map[string]any{"k": 1})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)

	again, err := CanonicalHash(DomainOperations, map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, a, again)
}
