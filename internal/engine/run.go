package engine

import (
	"context"
	"fmt"
)

// Enqueue submits a message for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the controller has been stopped.
func (c *Controller) Enqueue(m Message) bool {
	return c.queue.Enqueue(m)
}

// Run starts the single-writer message loop.
// Blocks until the context is cancelled or Stop is called.
//
// Must be called from exactly one goroutine, and while it runs no other
// goroutine may call the mutating methods directly.
//
// A message that fails is logged and processing continues; the error also
// goes to the message's Reply channel when one is set.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("controller starting")

	for {
		m, ok := c.queue.TryDequeue()
		if ok {
			reply := c.process(ctx, m)
			if reply.Err != nil {
				c.log.Error("message failed",
					"type", int(m.Type),
					"transaction", reply.TransactionID,
					"error", reply.Err,
				)
			}
			if m.Reply != nil {
				select {
				case m.Reply <- reply:
				default:
					c.log.Warn("reply dropped: channel full", "transaction", reply.TransactionID)
				}
			}
			continue
		}

		select {
		case <-ctx.Done():
			c.log.Info("controller stopping: context cancelled")
			c.queue.Close()
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel closes with the queue, so a closed and
			// empty queue lands here immediately.
			if c.queue.Len() == 0 && c.stopped() {
				c.log.Info("controller stopping: inbox closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the Run loop.
func (c *Controller) Stop() {
	c.queue.Close()
}

func (c *Controller) stopped() bool {
	c.queue.mu.Lock()
	defer c.queue.mu.Unlock()
	return c.queue.closed
}

// process handles one message.
// Called only from the Run goroutine.
func (c *Controller) process(ctx context.Context, m Message) Reply {
	switch m.Type {
	case MessageStart:
		id, err := c.Start(ctx, m.Operations, m.Cursor)
		return Reply{TransactionID: id, Err: err}

	case MessageServer:
		id, err := c.ApplyServerTransaction(ctx, m.Operations)
		return Reply{TransactionID: id, Err: err}

	case MessageUndo:
		id, _, err := c.Undo(ctx, m.Cursor)
		return Reply{TransactionID: id, Err: err}

	case MessageRedo:
		id, _, err := c.Redo(ctx, m.Cursor)
		return Reply{TransactionID: id, Err: err}

	case MessageCodeResult:
		if m.CodeResult == nil {
			return Reply{Err: fmt.Errorf("code result message missing result")}
		}
		return Reply{TransactionID: m.CodeResult.TransactionID, Err: c.CompleteCode(ctx, *m.CodeResult)}

	case MessageRowHeights:
		if m.RowHeights == nil {
			return Reply{Err: fmt.Errorf("row heights message missing reply")}
		}
		return Reply{TransactionID: m.RowHeights.TransactionID, Err: c.CompleteRowHeights(ctx, *m.RowHeights)}

	case MessageGetCells:
		if m.GetCells == nil {
			return Reply{Err: fmt.Errorf("get_cells message missing request")}
		}
		cells, err := c.GetCells(ctx, *m.GetCells)
		return Reply{TransactionID: m.GetCells.TransactionID, Cells: cells, Err: err}

	default:
		return Reply{Err: fmt.Errorf("unknown message type: %d", m.Type)}
	}
}
