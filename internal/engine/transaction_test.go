package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

func TestOrigin_ParseRoundTrip(t *testing.T) {
	for _, o := range []Origin{OriginUser, OriginUndo, OriginRedo, OriginServer, OriginInternal} {
		got, err := ParseOrigin(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, got)
	}

	_, err := ParseOrigin("robot")
	assert.Error(t, err)
}

func TestOrigin_Predicates(t *testing.T) {
	assert.True(t, OriginUser.IsUser())
	assert.True(t, OriginInternal.IsUser())
	assert.False(t, OriginServer.IsUser())
	assert.True(t, OriginUndo.IsUndoRedo())
	assert.True(t, OriginRedo.IsUndoRedo())
	assert.False(t, OriginUser.IsUndoRedo())
}

func TestPendingTransaction_QueueOrder(t *testing.T) {
	tx := newTransaction(testID(1), OriginUser, []ops.Operation{
		setValue(1, 1, ir.Number(1)),
		setValue(2, 1, ir.Number(2)),
	}, "")

	tx.pushFront(setValue(3, 1, ir.Number(3)))
	tx.pushBack(setValue(4, 1, ir.Number(4)))

	var xs []int64
	for {
		op, ok := tx.pop()
		if !ok {
			break
		}
		xs = append(xs, op.(ops.SetCellValues).SheetPos.X)
	}
	assert.Equal(t, []int64{3, 1, 2, 4}, xs)
}

func TestPendingTransaction_UndoOperationsReversed(t *testing.T) {
	tx := newTransaction(testID(1), OriginUser, nil, "")
	tx.ReverseOperations = []ops.Operation{setValue(1, 1, ir.Blank{}), setValue(1, 1, ir.Number(1))}

	undo := tx.UndoOperations()

	assert.Equal(t, []ops.Operation{setValue(1, 1, ir.Number(1)), setValue(1, 1, ir.Blank{})}, undo)
	assert.Equal(t, ir.Blank{}, tx.ReverseOperations[0].(ops.SetCellValues).Values.Values[0], "receiver is not reordered")
}

func TestPendingTransaction_JSONRoundTrip(t *testing.T) {
	sp := testPos(1, 1)
	tx := newTransaction(testID(7), OriginInternal, []ops.Operation{ops.ComputeCode{SheetPos: sp}}, "A1")
	tx.Applied = []ops.Operation{setValue(2, 2, ir.Text("x"))}
	tx.ReverseOperations = []ops.Operation{setValue(2, 2, ir.Blank{})}
	tx.CellsAccessed.Add(ir.NewSheetRect(ir.Pos{X: 2, Y: 2}, ir.Pos{X: 3, Y: 3}, sheet1))
	tx.HasAsync = 1
	tx.Waiting = AsyncCode
	tx.CurrentSheetPos = &sp
	tx.Cascade = testID(6)

	data, err := json.Marshal(tx)
	require.NoError(t, err)

	var got PendingTransaction
	require.NoError(t, json.Unmarshal(data, &got))

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, OriginInternal, got.Origin)
	assert.Equal(t, "A1", got.Cursor)
	assert.True(t, ops.EqualLists(tx.Operations, got.Operations))
	assert.True(t, ops.EqualLists(tx.Applied, got.Applied))
	assert.True(t, ops.EqualLists(tx.ReverseOperations, got.ReverseOperations))
	assert.Equal(t, tx.CellsAccessed.Rects(), got.CellsAccessed.Rects())
	assert.Equal(t, 1, got.HasAsync)
	assert.Equal(t, AsyncCode, got.Waiting)
	assert.Equal(t, &sp, got.CurrentSheetPos)
	assert.Equal(t, testID(6), got.Cascade)
	assert.Contains(t, string(data), `"origin":"internal"`)
}

func TestCodeResult_JSON(t *testing.T) {
	var r CodeResult
	err := json.Unmarshal([]byte(`{
		"transaction_id": "00000000-0000-0000-0000-000000000001",
		"success": true,
		"output_value": {"type": "number", "value": 3},
		"std_out": "hi"
	}`), &r)
	require.NoError(t, err)

	assert.Equal(t, testID(1), r.TransactionID)
	assert.True(t, r.Success)
	assert.Equal(t, ir.Number(3), r.OutputValue)
	assert.Equal(t, "hi", r.StdOut)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var back CodeResult
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}
