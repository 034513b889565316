package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

func TestWriteTransaction_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestEntry("tx-1", 1, ir.Text("hello"))

	inserted, err := s.WriteTransaction(ctx, want)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := s.ReadTransaction(ctx, "tx-1")
	require.NoError(t, err)

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Seq, got.Seq)
	assert.Equal(t, want.Origin, got.Origin)
	assert.Equal(t, want.Cursor, got.Cursor)
	assert.Equal(t, want.Hash, got.Hash)
	assert.Equal(t, want.GridDigest, got.GridDigest)
	assert.True(t, ops.EqualLists(want.Operations, got.Operations), "forward operations differ")
	assert.True(t, ops.EqualLists(want.ReverseOperations, got.ReverseOperations), "reverse operations differ")
}

func TestWriteTransaction_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	e := createTestEntry("tx-1", 1, ir.Number(1))

	inserted, err := s.WriteTransaction(ctx, e)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = s.WriteTransaction(ctx, e)
	require.NoError(t, err)
	assert.False(t, inserted, "second write of the same id is ignored")

	entries, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadTransaction_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadTransaction(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListTransactions_SeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, e := range []Entry{
		createTestEntry("c", 3, ir.Number(3)),
		createTestEntry("a", 1, ir.Number(1)),
		createTestEntry("b", 2, ir.Number(2)),
	} {
		_, err := s.WriteTransaction(ctx, e)
		require.NoError(t, err)
	}

	entries, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestListTransactions_Empty(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	entries, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	last, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), last)
}

func TestReplay_StopsAtFirstError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for i, id := range []string{"a", "b", "c"} {
		_, err := s.WriteTransaction(ctx, createTestEntry(id, int64(i+1), ir.Number(float64(i))))
		require.NoError(t, err)
	}

	var seen []string
	boom := errors.New("boom")
	err := s.Replay(ctx, func(e Entry) error {
		seen = append(seen, e.ID)
		if e.ID == "b" {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestMarshalOperations_Canonical(t *testing.T) {
	list := []ops.Operation{ops.ResizeColumn{SheetID: "s1", Column: 2, NewSize: 120}}

	a, err := marshalOperations(list)
	require.NoError(t, err)
	b, err := marshalOperations(list)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	empty, err := marshalOperations(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}
