package engine

import (
	"context"
	"slices"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// scheduleRecompute starts the follow-up transaction that recomputes code
// cells depending on what tx changed.
//
// A code cell depends on a change when a range in its last run's
// CellsAccessed intersects a changed range, or intersects the output of
// another dependent. Dependents compute after the cells they read. Cells tx
// computed itself are skipped. A dependent that reaches its own output is
// marked CircularReference instead of computed. Follow-ups share a cascade
// token and their number is bounded by max_cascade_steps.
func (c *Controller) scheduleRecompute(ctx context.Context, tx *PendingTransaction) error {
	cascade := tx.Cascade
	deps := NewCycleDetector(c.grid)
	dependents := deps.Downstream(tx.dirty, tx.computed)
	if len(dependents) == 0 {
		c.endCascade(cascade)
		return nil
	}

	if cascade == "" {
		cascade = tx.ID
	}

	quota, ok := c.quotas[cascade]
	if !ok {
		quota = NewQuotaEnforcer(c.maxCascadeSteps)
		c.quotas[cascade] = quota
	}
	if err := quota.Check(cascade); err != nil {
		c.log.Error("recompute cascade exceeded max steps",
			"cascade", cascade,
			"transaction", tx.ID,
			"steps", quota.Current(),
			"limit", quota.MaxSteps(),
			"event", "cascade_exceeded",
		)
		c.endCascade(cascade)
		return NewCascadeExceeded(cascade, quota.Current(), quota.MaxSteps())
	}

	var marks, computes []ops.Operation
	for _, sp := range dependents {
		if !deps.OnCycle(sp) {
			computes = append(computes, ops.ComputeCode{SheetPos: sp})
			continue
		}
		table, ok := c.tableAt(sp)
		if !ok {
			continue
		}
		if table.Run != nil && table.Run.Error != nil && table.Run.Error.Kind == ir.ErrCircularReference {
			continue
		}
		c.log.Warn("circular reference across cells",
			"cascade", cascade,
			"pos", sp.String(),
			"event", "cascade_cycle",
		)
		next := table.Clone()
		accessed := []ir.SheetRect(nil)
		if table.Run != nil {
			accessed = table.Run.CellsAccessed
		}
		next.Run = &ir.CodeRun{
			Error:         ir.NewRunError(ir.ErrCircularReference, "%s depends on itself", sp),
			CellsAccessed: slices.Clone(accessed),
		}
		marks = append(marks, ops.SetDataTable{SheetPos: sp, DataTable: next, Index: -1})
	}
	operations := append(marks, computes...)
	if len(operations) == 0 {
		c.endCascade(cascade)
		return nil
	}

	c.log.Debug("recompute scheduled",
		"cascade", cascade,
		"after", tx.ID,
		"cells", len(operations),
	)
	_, err := c.start(ctx, OriginInternal, operations, tx.Cursor, cascade)
	return err
}

func (c *Controller) endCascade(cascade string) {
	if cascade == "" {
		return
	}
	delete(c.quotas, cascade)
}
