package engine

import (
	"context"
	"errors"
	"reflect"

	"github.com/roach88/gridcore/internal/formula"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// CodeState is a step of a code cell run, used for logs and metrics.
//
//	Requested → Evaluating → Completed
//	                       → AwaitingExternal → Completed | Errored
//	                       → Errored
type CodeState string

const (
	CodeRequested        CodeState = "requested"
	CodeEvaluating       CodeState = "evaluating"
	CodeCompleted        CodeState = "completed"
	CodeAwaitingExternal CodeState = "awaiting_external"
	CodeErrored          CodeState = "errored"
	CodeCancelled        CodeState = "cancelled"
)

func (c *Controller) codeState(tx *PendingTransaction, sp ir.SheetPos, lang ir.CodeLanguage, state CodeState) {
	c.metrics.CodeRun(string(lang), string(state))
	c.log.Debug("code run",
		"id", tx.ID,
		"pos", sp.String(),
		"language", string(lang),
		"state", string(state),
	)
}

// computeCode runs the code cell at sp. Formulas complete synchronously;
// other languages park the transaction until CompleteCode.
func (c *Controller) computeCode(ctx context.Context, tx *PendingTransaction, sp ir.SheetPos) error {
	s := c.grid.Sheet(sp.SheetID)
	if s == nil {
		c.log.Warn("compute skipped: sheet not found", "id", tx.ID, "pos", sp.String())
		return nil
	}
	table, _, ok := s.DataTable(sp.Pos())
	if !ok {
		c.log.Debug("compute skipped: no code cell", "id", tx.ID, "pos", sp.String())
		return nil
	}

	tx.computed = append(tx.computed, sp)
	c.codeState(tx, sp, table.Language, CodeRequested)

	if table.Language.IsSynchronous() {
		c.codeState(tx, sp, table.Language, CodeEvaluating)
		run := c.evaluateFormula(sp, table)
		if run.Error != nil {
			c.codeState(tx, sp, table.Language, CodeErrored)
		} else {
			c.codeState(tx, sp, table.Language, CodeCompleted)
		}
		c.setCodeRun(tx, sp, table, run)
		return nil
	}

	if c.runner == nil {
		c.codeState(tx, sp, table.Language, CodeErrored)
		c.setCodeRun(tx, sp, table, &ir.CodeRun{
			Error: ir.NewRunError(ir.ErrCode, "no interpreter for %s", table.Language),
		})
		return nil
	}

	req := CodeRequest{
		TransactionID: tx.ID,
		SheetPos:      sp,
		Language:      table.Language,
		Code:          table.Code,
	}
	tx.CurrentSheetPos = &sp
	tx.CellsAccessed = ir.CellsAccessed{}
	c.codeState(tx, sp, table.Language, CodeAwaitingExternal)

	err := c.suspend(ctx, tx, AsyncCode, func() error {
		return c.runner.RunCode(ctx, req)
	})
	if err != nil {
		// The request never reached the interpreter; the error lands on the
		// cell and the transaction carries on.
		c.log.Warn("code run not sent", "id", tx.ID, "pos", sp.String(), "error", err)
		tx.CurrentSheetPos = nil
		tx.CellsAccessed = ir.CellsAccessed{}
		c.codeState(tx, sp, table.Language, CodeErrored)
		if current, ok := c.tableAt(sp); ok {
			table = current
		}
		c.setCodeRun(tx, sp, table, &ir.CodeRun{Error: ir.NewRunError(ir.ErrCode, "%v", err)})
	}
	return nil
}

// evaluateFormula computes a formula cell against the current grid.
func (c *Controller) evaluateFormula(sp ir.SheetPos, table *ir.DataTable) *ir.CodeRun {
	fctx := formula.NewCtx(c.grid, sp)
	fctx.RangeLimit = c.rangeLimit

	v, err := formula.Eval(fctx, table.Code)
	run := &ir.CodeRun{CellsAccessed: fctx.CellsAccessed.Rects()}
	if err != nil {
		var runErr *ir.RunError
		if !errors.As(err, &runErr) {
			runErr = ir.NewRunError(ir.ErrValue, "%v", err)
		}
		run.Error = runErr
		return run
	}
	run.Output = formula.ToCellValues(v)
	return run
}

// setCodeRun queues the write of a new run for the code cell at sp, ahead
// of anything else queued. Nothing is queued when the run is unchanged.
func (c *Controller) setCodeRun(tx *PendingTransaction, sp ir.SheetPos, table *ir.DataTable, run *ir.CodeRun) {
	if table.Run != nil && reflect.DeepEqual(table.Run, run) {
		return
	}
	next := table.Clone()
	next.Run = run
	tx.pushFront(ops.SetDataTable{SheetPos: sp, DataTable: next, Index: -1})
}

// CompleteCode resumes a transaction parked on an interpreter.
//
// The reply becomes a SetDataTable for the computing cell and the
// transaction continues. An unknown, unparsable or not-suspended id is a
// TRANSACTION_NOT_FOUND error and changes nothing.
func (c *Controller) CompleteCode(ctx context.Context, result CodeResult) error {
	tx, err := c.unpark(result.TransactionID, AsyncCode)
	if err != nil {
		return err
	}

	sp := *tx.CurrentSheetPos
	accessed := tx.CellsAccessed.Rects()
	tx.CurrentSheetPos = nil
	tx.CellsAccessed = ir.CellsAccessed{}

	table, ok := c.tableAt(sp)
	switch {
	case !ok:
		c.log.Warn("code result dropped: code cell is gone", "id", tx.ID, "pos", sp.String())
	case result.CancelCompute:
		c.codeState(tx, sp, table.Language, CodeCancelled)
	default:
		run := result.run(accessed)
		if run.Error != nil {
			c.codeState(tx, sp, table.Language, CodeErrored)
		} else {
			c.codeState(tx, sp, table.Language, CodeCompleted)
		}
		c.setCodeRun(tx, sp, table, run)
	}

	return c.drain(ctx, tx)
}

func (c *Controller) tableAt(sp ir.SheetPos) (*ir.DataTable, bool) {
	s := c.grid.Sheet(sp.SheetID)
	if s == nil {
		return nil, false
	}
	table, _, ok := s.DataTable(sp.Pos())
	return table, ok
}

// GetCells answers a running code cell's read of a rectangle.
//
// The transaction must be a parked user transaction waiting on code. The
// rectangle is recorded in its cells accessed. Naming a sheet that does not
// exist stores a CodeCellSheetError on the computing cell, finalizes the
// transaction and returns CODE_CELL_SHEET_ERROR.
//
// Reads see the grid as the transaction left it when it parked. Only
// non-blank cells are returned, in row-major order.
func (c *Controller) GetCells(ctx context.Context, req GetCellsRequest) ([]CellResult, error) {
	if !parseID(req.TransactionID) {
		return nil, NewTransactionNotFound(req.TransactionID, "transaction id does not parse")
	}
	tx, ok := c.registry.Get(req.TransactionID)
	if !ok {
		return nil, NewTransactionNotFound(req.TransactionID, "transaction is not parked")
	}
	if tx.Waiting != AsyncCode || tx.CurrentSheetPos == nil {
		return nil, NewTransactionNotFound(req.TransactionID, "transaction is not running code")
	}
	if !tx.Origin.IsUser() {
		return nil, NewTransactionNotFound(req.TransactionID, "transaction is not a user transaction")
	}

	view := c.grid
	if tx.view != nil {
		view = tx.view
	}
	sheetID := tx.CurrentSheetPos.SheetID
	if req.SheetName != nil {
		id, ok := view.SheetByName(*req.SheetName)
		if !ok {
			return nil, c.failCodeCell(ctx, req, *req.SheetName)
		}
		sheetID = id
	}

	rect := req.Rect.ToSheetRect(sheetID)
	if size := rect.Size(); int(max(size.W, size.H)) > c.rangeLimit {
		return nil, ir.NewRunError(ir.ErrArrayTooBig, "range %s exceeds %d cells per side", size, c.rangeLimit)
	}
	tx.CellsAccessed.Add(rect)

	var cells []CellResult
	for _, p := range req.Rect.Positions() {
		v := view.DisplayValue(p.ToSheetPos(sheetID))
		if ir.IsBlank(v) {
			continue
		}
		cells = append(cells, CellResult{X: p.X, Y: p.Y, Value: v, TypeName: v.TypeName()})
	}
	return cells, nil
}

// failCodeCell ends the code run with a CodeCellSheetError on the computing
// cell and lets the transaction finish.
func (c *Controller) failCodeCell(ctx context.Context, req GetCellsRequest, sheetName string) error {
	tx, err := c.unpark(req.TransactionID, AsyncCode)
	if err != nil {
		return err
	}
	sp := *tx.CurrentSheetPos
	tx.CurrentSheetPos = nil
	tx.CellsAccessed = ir.CellsAccessed{}

	if table, ok := c.tableAt(sp); ok {
		c.codeState(tx, sp, table.Language, CodeErrored)
		c.setCodeRun(tx, sp, table, &ir.CodeRun{
			Error:      ir.NewRunError(ir.ErrCodeCellSheetError, "sheet %q not found", sheetName),
			LineNumber: req.LineNumber,
		})
	}
	if err := c.drain(ctx, tx); err != nil {
		return err
	}
	return NewCodeCellSheetError(req.TransactionID, sheetName)
}
