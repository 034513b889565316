package engine

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// Origin says who started a transaction. It gates the side effects of
// finalize: which stack the reverse operations land on and whether renderer
// round trips happen.
type Origin int

const (
	// OriginUser is a local edit.
	OriginUser Origin = iota + 1
	// OriginUndo applies an undo entry.
	OriginUndo
	// OriginRedo applies a redo entry.
	OriginRedo
	// OriginServer applies a transaction that another client committed.
	OriginServer
	// OriginInternal is engine bookkeeping: dependent recomputation and
	// workbook seeding.
	OriginInternal
)

var originNames = map[Origin]string{
	OriginUser:     "user",
	OriginUndo:     "undo",
	OriginRedo:     "redo",
	OriginServer:   "server",
	OriginInternal: "internal",
}

// String returns the origin's lower-case name.
func (o Origin) String() string {
	if s, ok := originNames[o]; ok {
		return s
	}
	return fmt.Sprintf("origin(%d)", int(o))
}

// ParseOrigin is the inverse of Origin.String.
func ParseOrigin(s string) (Origin, error) {
	for o, name := range originNames {
		if name == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown origin %q", s)
}

// IsUser reports whether the transaction acts on behalf of the local user.
// Internal recomputation counts: a code cell recomputed because the user
// edited its inputs may read cells like any other user-run code.
func (o Origin) IsUser() bool {
	return o == OriginUser || o == OriginInternal
}

// IsUndoRedo reports whether the transaction replays a history entry.
func (o Origin) IsUndoRedo() bool {
	return o == OriginUndo || o == OriginRedo
}

// AsyncKind is what a parked transaction waits for.
type AsyncKind int

const (
	// AsyncNone means the transaction is not waiting.
	AsyncNone AsyncKind = iota
	// AsyncCode waits for an interpreter result.
	AsyncCode
	// AsyncRowHeights waits for renderer row measurements.
	AsyncRowHeights
)

// String returns the kind's name, also used as a metrics label.
func (k AsyncKind) String() string {
	switch k {
	case AsyncCode:
		return "code"
	case AsyncRowHeights:
		return "row_heights"
	default:
		return "none"
	}
}

// PendingTransaction is the mutable state of one in-flight transaction.
//
// It is an explicit continuation: everything needed to resume after an
// external reply lives here, and it serializes to JSON.
type PendingTransaction struct {
	ID     string
	Origin Origin
	Cursor string

	// Operations is the FIFO queue of forward operations still to apply.
	Operations []ops.Operation

	// Applied are the forward operations that changed the grid, in order.
	Applied []ops.Operation

	// ReverseOperations are pushed as operations apply. Undo applies them
	// back to front.
	ReverseOperations []ops.Operation

	// CellsAccessed collects the ranges the parked code cell read through
	// get_cells, and becomes its run's CellsAccessed on resume. Formula cells
	// finish synchronously, so their reads go straight onto their CodeRun.
	// Recompute scheduling only looks at the runs stored on the grid.
	CellsAccessed ir.CellsAccessed

	// HasAsync counts outstanding external requests (0 or 1).
	HasAsync int

	// Waiting is the kind of reply the transaction is parked on.
	Waiting AsyncKind

	// CurrentSheetPos is the code cell being computed, when Waiting is
	// AsyncCode.
	CurrentSheetPos *ir.SheetPos

	// Cascade is the recompute cascade token; empty for transactions that
	// do not recompute dependents of an earlier one.
	Cascade string

	dirty      []ir.SheetRect
	resizeRows map[ir.SheetID][]int64
	computed   []ir.SheetPos
	done       bool

	// view is the grid as this transaction left it when it parked.
	view *grid.Grid
}

func newTransaction(id string, origin Origin, operations []ops.Operation, cursor string) *PendingTransaction {
	return &PendingTransaction{
		ID:         id,
		Origin:     origin,
		Cursor:     cursor,
		Operations: slices.Clone(operations),
	}
}

// record notes an operation the grid applied.
func (t *PendingTransaction) record(op ops.Operation, eff grid.Effect, reverse []ops.Operation) {
	t.Applied = append(t.Applied, op)
	t.ReverseOperations = append(t.ReverseOperations, reverse...)
	t.dirty = append(t.dirty, eff.Changed...)
}

// pop removes the next forward operation.
func (t *PendingTransaction) pop() (ops.Operation, bool) {
	if len(t.Operations) == 0 {
		return nil, false
	}
	op := t.Operations[0]
	t.Operations[0] = nil
	t.Operations = t.Operations[1:]
	return op, true
}

// pushFront queues an operation to run before anything already queued.
func (t *PendingTransaction) pushFront(op ops.Operation) {
	t.Operations = slices.Insert(t.Operations, 0, op)
}

// pushBack queues an operation after everything already queued.
func (t *PendingTransaction) pushBack(op ops.Operation) {
	t.Operations = append(t.Operations, op)
}

// UndoOperations returns the reverse operations in the order undo applies
// them.
func (t *PendingTransaction) UndoOperations() []ops.Operation {
	out := slices.Clone(t.ReverseOperations)
	slices.Reverse(out)
	return out
}

func (t *PendingTransaction) addResizeRows(id ir.SheetID, rows []int64) {
	if len(rows) == 0 {
		return
	}
	if t.resizeRows == nil {
		t.resizeRows = make(map[ir.SheetID][]int64)
	}
	merged := append(t.resizeRows[id], rows...)
	slices.Sort(merged)
	t.resizeRows[id] = slices.Compact(merged)
}

// nextResizeSheet removes and returns the pending measurement for the
// sheet with the smallest id.
func (t *PendingTransaction) nextResizeSheet() (ir.SheetID, []int64, bool) {
	if len(t.resizeRows) == 0 {
		return "", nil, false
	}
	ids := make([]ir.SheetID, 0, len(t.resizeRows))
	for id := range t.resizeRows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	rows := t.resizeRows[ids[0]]
	delete(t.resizeRows, ids[0])
	return ids[0], rows, true
}

type transactionJSON struct {
	ID                string          `json:"id"`
	Origin            string          `json:"origin"`
	Cursor            string          `json:"cursor,omitempty"`
	Operations        json.RawMessage `json:"operations"`
	Applied           json.RawMessage `json:"applied"`
	ReverseOperations json.RawMessage `json:"reverse_operations"`
	CellsAccessed     []ir.SheetRect  `json:"cells_accessed,omitempty"`
	HasAsync          int             `json:"has_async"`
	Waiting           AsyncKind       `json:"waiting"`
	CurrentSheetPos   *ir.SheetPos    `json:"current_sheet_pos,omitempty"`
	Cascade           string          `json:"cascade,omitempty"`
}

// MarshalJSON encodes the continuation.
func (t *PendingTransaction) MarshalJSON() ([]byte, error) {
	forward, err := ops.MarshalList(t.Operations)
	if err != nil {
		return nil, fmt.Errorf("marshal operations: %w", err)
	}
	applied, err := ops.MarshalList(t.Applied)
	if err != nil {
		return nil, fmt.Errorf("marshal applied operations: %w", err)
	}
	reverse, err := ops.MarshalList(t.ReverseOperations)
	if err != nil {
		return nil, fmt.Errorf("marshal reverse operations: %w", err)
	}
	return json.Marshal(transactionJSON{
		ID:                t.ID,
		Origin:            t.Origin.String(),
		Cursor:            t.Cursor,
		Operations:        forward,
		Applied:           applied,
		ReverseOperations: reverse,
		CellsAccessed:     t.CellsAccessed.Rects(),
		HasAsync:          t.HasAsync,
		Waiting:           t.Waiting,
		CurrentSheetPos:   t.CurrentSheetPos,
		Cascade:           t.Cascade,
	})
}

// UnmarshalJSON decodes a continuation written by MarshalJSON.
func (t *PendingTransaction) UnmarshalJSON(data []byte) error {
	var w transactionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	origin, err := ParseOrigin(w.Origin)
	if err != nil {
		return err
	}
	forward, err := ops.UnmarshalList(w.Operations)
	if err != nil {
		return fmt.Errorf("unmarshal operations: %w", err)
	}
	applied, err := ops.UnmarshalList(w.Applied)
	if err != nil {
		return fmt.Errorf("unmarshal applied operations: %w", err)
	}
	reverse, err := ops.UnmarshalList(w.ReverseOperations)
	if err != nil {
		return fmt.Errorf("unmarshal reverse operations: %w", err)
	}
	*t = PendingTransaction{
		ID:                w.ID,
		Origin:            origin,
		Cursor:            w.Cursor,
		Operations:        forward,
		Applied:           applied,
		ReverseOperations: reverse,
		HasAsync:          w.HasAsync,
		Waiting:           w.Waiting,
		CurrentSheetPos:   w.CurrentSheetPos,
		Cascade:           w.Cascade,
	}
	for _, r := range w.CellsAccessed {
		t.CellsAccessed.Add(r)
	}
	return nil
}
