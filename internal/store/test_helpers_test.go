package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// createTestStore opens a store in a temp dir that is closed on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry setting one cell.
func createTestEntry(id string, seq int64, v ir.CellValue) Entry {
	pos := ir.SheetPos{X: 1, Y: 1, SheetID: "s1"}
	return Entry{
		ID:                id,
		Seq:               seq,
		Origin:            "user",
		Cursor:            "A1",
		Operations:        []ops.Operation{ops.SetCellValues{SheetPos: pos, Values: ir.SingleValue(v)}},
		ReverseOperations: []ops.Operation{ops.SetCellValues{SheetPos: pos, Values: ir.SingleValue(ir.Blank{})}},
		Hash:              "hash-" + id,
		GridDigest:        "digest-" + id,
		OperationsVersion: ir.OperationsVersion,
		EngineVersion:     ir.EngineVersion,
	}
}
