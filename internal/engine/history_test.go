package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_LIFO(t *testing.T) {
	h := NewHistory(0)
	h.PushUndo(HistoryEntry{TransactionID: "a"})
	h.PushUndo(HistoryEntry{TransactionID: "b"})

	e, ok := h.PopUndo()
	require.True(t, ok)
	assert.Equal(t, "b", e.TransactionID)

	e, ok = h.PopUndo()
	require.True(t, ok)
	assert.Equal(t, "a", e.TransactionID)

	_, ok = h.PopUndo()
	assert.False(t, ok)
}

func TestHistory_ClearRedo(t *testing.T) {
	h := NewHistory(0)
	h.PushRedo(HistoryEntry{TransactionID: "a"})
	h.PushRedo(HistoryEntry{TransactionID: "b"})
	assert.Equal(t, 2, h.RedoDepth())

	h.ClearRedo()

	assert.Equal(t, 0, h.RedoDepth())
	_, ok := h.PopRedo()
	assert.False(t, ok)
}

func TestHistory_MaxDepthDropsOldest(t *testing.T) {
	h := NewHistory(2)
	h.PushUndo(HistoryEntry{TransactionID: "a"})
	h.PushUndo(HistoryEntry{TransactionID: "b"})
	h.PushUndo(HistoryEntry{TransactionID: "c"})

	assert.Equal(t, 2, h.UndoDepth())
	e, _ := h.PopUndo()
	assert.Equal(t, "c", e.TransactionID)
	e, _ = h.PopUndo()
	assert.Equal(t, "b", e.TransactionID)
}
