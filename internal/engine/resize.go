package engine

import (
	"context"
	"slices"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
)

// requestRowHeights parks tx on a renderer measurement when rows touched by
// the transaction need one. Sheets are measured one at a time, smallest id
// first. It reports whether the transaction parked. A request the renderer
// cannot take is logged and the sheet keeps its heights.
func (c *Controller) requestRowHeights(ctx context.Context, tx *PendingTransaction) (bool, error) {
	if tx.Origin != OriginUser || c.renderer == nil {
		return false, nil
	}
	for {
		id, rows, ok := tx.nextResizeSheet()
		if !ok {
			return false, nil
		}
		s := c.grid.Sheet(id)
		if s == nil {
			continue
		}
		rows = slices.DeleteFunc(rows, s.RowClientResized)
		if len(rows) == 0 {
			continue
		}

		req := RowHeightRequest{TransactionID: tx.ID, SheetID: id, Rows: rows}
		err := c.suspend(ctx, tx, AsyncRowHeights, func() error {
			return c.renderer.RequestRowHeights(ctx, req)
		})
		if err != nil {
			c.log.Warn("row height measurement skipped",
				"id", tx.ID,
				"sheet", string(id),
				"rows", len(rows),
				"error", err,
			)
			continue
		}
		return true, nil
	}
}

// CompleteRowHeights resumes a transaction parked on a renderer
// measurement.
//
// Only rows whose measured height differs from the stored height produce a
// ResizeRows operation, so an unchanged measurement commits nothing and
// notifies nobody. Rows the user sized by hand are ignored. When a reply
// repeats a row, its last height wins.
func (c *Controller) CompleteRowHeights(ctx context.Context, reply RowHeightsReply) error {
	tx, err := c.unpark(reply.TransactionID, AsyncRowHeights)
	if err != nil {
		return err
	}

	if s := c.grid.Sheet(reply.SheetID); s != nil {
		last := make(map[int64]float64, len(reply.RowHeights))
		for _, rh := range reply.RowHeights {
			last[rh.Row] = rh.Height
		}
		var changed []ir.RowHeight
		for _, rh := range reply.RowHeights {
			height, ok := last[rh.Row]
			if !ok {
				continue
			}
			delete(last, rh.Row)
			if s.RowClientResized(rh.Row) || s.RowHeight(rh.Row) == height {
				continue
			}
			changed = append(changed, ir.RowHeight{Row: rh.Row, Height: height})
		}
		if len(changed) > 0 {
			tx.pushBack(ops.ResizeRows{SheetID: reply.SheetID, RowHeights: changed})
		}
	}

	return c.drain(ctx, tx)
}
