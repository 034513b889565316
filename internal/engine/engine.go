package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/gridcore/internal/config"
	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/metrics"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
)

// DefaultMaxCascadeSteps bounds the follow-up transactions of one
// recompute cascade.
const DefaultMaxCascadeSteps = 1000

// Journal records committed transactions. Implemented by *store.Store.
type Journal interface {
	WriteTransaction(ctx context.Context, e store.Entry) (bool, error)
}

// Controller is the single-writer transaction controller.
//
// It applies operations to the grid, collects their reverse operations,
// parks transactions that wait on interpreters or the renderer, resumes them
// when the reply arrives, and commits finished transactions to the undo
// history and the journal.
//
// The shared grid only ever holds committed state plus the writes of the one
// transaction currently draining. A parked transaction's writes are rolled
// off the grid and reapplied when it resumes, so other transactions never
// read them.
//
// Thread-safety model:
//   - Start, Undo, Redo, CompleteCode, CompleteRowHeights and GetCells
//     mutate controller state and must be called from one goroutine: either
//     a single-threaded host calls them directly, or Run owns them and
//     other goroutines use Enqueue.
//   - Enqueue: safe from any goroutine.
//   - The registry is safe for concurrent use on its own.
type Controller struct {
	grid     *grid.Grid
	registry *AsyncRegistry
	history  *History
	clock    *Clock
	ids      IDGenerator
	queue    *inbox
	log      *slog.Logger

	runner   CodeRunner
	renderer Renderer
	journal  Journal
	metrics  *metrics.Engine

	quotas map[string]*QuotaEnforcer

	rangeLimit      int
	maxUndoDepth    int
	maxCascadeSteps int
	autoResizeRows  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithConfig applies engine settings from a loaded configuration.
func WithConfig(cfg config.Config) Option {
	return func(c *Controller) {
		c.rangeLimit = cfg.CellRangeLimit
		c.maxUndoDepth = cfg.MaxUndoDepth
		c.maxCascadeSteps = cfg.MaxCascadeSteps
		c.autoResizeRows = cfg.AutoResizeRows
	}
}

// WithCodeRunner attaches the interpreter boundary. Without one, code cells
// in languages other than formulas record an error.
func WithCodeRunner(r CodeRunner) Option {
	return func(c *Controller) {
		c.runner = r
	}
}

// WithRenderer attaches the renderer. Without one, row heights are never
// measured.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		c.renderer = r
	}
}

// WithJournal records committed transactions.
func WithJournal(j Journal) Option {
	return func(c *Controller) {
		c.journal = j
	}
}

// WithMetrics instruments the controller.
func WithMetrics(m *metrics.Engine) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithIDGenerator replaces the UUIDv7 transaction id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(c *Controller) {
		c.ids = g
	}
}

// WithClock continues journal seq numbers from a clock, e.g. one created
// with NewClockAt after reading the journal.
func WithClock(clock *Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

// New creates a Controller over g.
func New(g *grid.Grid, opts ...Option) *Controller {
	c := &Controller{
		grid:            g,
		registry:        NewAsyncRegistry(),
		clock:           NewClock(),
		ids:             UUIDv7Generator{},
		queue:           newInbox(),
		log:             slog.Default(),
		quotas:          make(map[string]*QuotaEnforcer),
		rangeLimit:      config.Default.CellRangeLimit,
		maxUndoDepth:    config.Default.MaxUndoDepth,
		maxCascadeSteps: DefaultMaxCascadeSteps,
		autoResizeRows:  config.Default.AutoResizeRows,
	}

	for _, opt := range opts {
		opt(c)
	}
	c.history = NewHistory(c.maxUndoDepth)

	return c
}

// Grid returns the grid the controller writes to.
func (c *Controller) Grid() *grid.Grid {
	return c.grid
}

// Registry returns the table of parked transactions.
func (c *Controller) Registry() *AsyncRegistry {
	return c.registry
}

// History returns the undo and redo stacks.
func (c *Controller) History() *History {
	return c.history
}

// Start runs a user transaction. It returns once the transaction has
// finalized or parked on an external reply; the id identifies it either way.
func (c *Controller) Start(ctx context.Context, operations []ops.Operation, cursor string) (string, error) {
	return c.start(ctx, OriginUser, operations, cursor, "")
}

// ApplyServerTransaction applies operations another client committed. It
// never touches undo history or the renderer. It is journaled like any other
// commit so replay reproduces the grid.
func (c *Controller) ApplyServerTransaction(ctx context.Context, operations []ops.Operation) (string, error) {
	return c.start(ctx, OriginServer, operations, "", "")
}

// Seed applies setup operations (typically AddSheet) as an internal
// transaction: journaled, so replay can rebuild the workbook, but not
// undoable.
func (c *Controller) Seed(ctx context.Context, operations []ops.Operation) (string, error) {
	return c.start(ctx, OriginInternal, operations, "", "")
}

// Undo reverts the most recent user transaction. ok is false when there is
// nothing to undo.
func (c *Controller) Undo(ctx context.Context, cursor string) (id string, ok bool, err error) {
	e, ok := c.history.PopUndo()
	if !ok {
		return "", false, nil
	}
	c.log.Info("undo", "entry", e.TransactionID, "operations", len(e.Operations))
	id, err = c.start(ctx, OriginUndo, e.Operations, cursor, "")
	return id, true, err
}

// Redo reapplies the most recently undone transaction. ok is false when
// there is nothing to redo.
func (c *Controller) Redo(ctx context.Context, cursor string) (id string, ok bool, err error) {
	e, ok := c.history.PopRedo()
	if !ok {
		return "", false, nil
	}
	c.log.Info("redo", "entry", e.TransactionID, "operations", len(e.Operations))
	id, err = c.start(ctx, OriginRedo, e.Operations, cursor, "")
	return id, true, err
}

func (c *Controller) start(ctx context.Context, origin Origin, operations []ops.Operation, cursor, cascade string) (string, error) {
	tx := newTransaction(c.ids.Generate(), origin, operations, cursor)
	tx.Cascade = cascade

	c.metrics.TransactionStarted(origin.String())
	c.log.Debug("transaction started",
		"id", tx.ID,
		"origin", origin.String(),
		"operations", len(operations),
		"cascade", cascade,
	)

	return tx.ID, c.drain(ctx, tx)
}

// drain applies queued operations until the transaction parks or finalizes.
func (c *Controller) drain(ctx context.Context, tx *PendingTransaction) error {
	for !tx.done && tx.HasAsync == 0 {
		op, ok := tx.pop()
		if !ok {
			parked, err := c.requestRowHeights(ctx, tx)
			if err != nil || parked {
				return err
			}
			return c.finalize(ctx, tx)
		}
		if err := c.applyNext(ctx, tx, op); err != nil {
			// Commit what already applied so the grid never holds writes
			// that undo cannot reach.
			c.log.Error("transaction aborted",
				"id", tx.ID,
				"op", ops.Describe(op),
				"error", err,
			)
			return errors.Join(err, c.finalize(ctx, tx))
		}
	}
	return nil
}

// applyNext applies one operation. An operation the grid rejects (most
// often because its sheet was deleted) is logged and skipped; the rest of
// the transaction still applies.
func (c *Controller) applyNext(ctx context.Context, tx *PendingTransaction, op ops.Operation) error {
	if cc, ok := op.(ops.ComputeCode); ok {
		return c.computeCode(ctx, tx, cc.SheetPos)
	}

	eff, reverse, err := c.grid.Apply(op)
	if err != nil {
		c.log.Warn("operation skipped",
			"id", tx.ID,
			"op", ops.Describe(op),
			"error", err,
		)
		return nil
	}

	tx.record(op, eff, reverse)
	if tx.Origin == OriginUser && c.autoResizeRows && c.renderer != nil {
		tx.addResizeRows(eff.SheetID, eff.AutoResizeRows)
	}
	c.notifyResized(eff)
	return nil
}

func (c *Controller) notifyResized(eff grid.Effect) {
	if len(eff.ResizedRows) > 0 && c.renderer != nil {
		c.renderer.ResizedRowHeights(eff.SheetID, eff.ResizedRows)
	}
}

// park rolls tx's writes off the shared grid so other transactions read the
// last committed state. tx keeps a private copy of the grid as it left it,
// which its own get_cells reads see.
func (c *Controller) park(tx *PendingTransaction) {
	if len(tx.Applied) == 0 {
		return
	}
	tx.view = c.grid.Clone()
	for _, op := range tx.UndoOperations() {
		eff, _, err := c.grid.Apply(op)
		if err != nil {
			c.log.Error("rollback operation failed",
				"id", tx.ID,
				"op", ops.Describe(op),
				"error", err,
			)
			continue
		}
		c.notifyResized(eff)
	}
}

// rebase reapplies a resumed transaction's writes on top of whatever
// committed while it was parked. Reverse operations are collected again
// against the current grid; writes that no longer apply are dropped.
func (c *Controller) rebase(tx *PendingTransaction) {
	if tx.view == nil {
		return
	}
	tx.view = nil
	applied := tx.Applied
	tx.Applied, tx.ReverseOperations, tx.dirty = nil, nil, nil
	for _, op := range applied {
		eff, reverse, err := c.grid.Apply(op)
		if err != nil {
			c.log.Warn("operation dropped on resume",
				"id", tx.ID,
				"op", ops.Describe(op),
				"error", err,
			)
			continue
		}
		tx.record(op, eff, reverse)
		c.notifyResized(eff)
	}
}

// suspend parks tx on an external reply and sends the request.
//
// Renderer measurements are only allowed for user transactions. While
// parked, the transaction's writes are off the shared grid. If send fails
// the transaction is unparked and rebased again and the error is returned.
func (c *Controller) suspend(ctx context.Context, tx *PendingTransaction, kind AsyncKind, send func() error) error {
	if kind == AsyncRowHeights && tx.Origin != OriginUser {
		return NewSuspendNotAllowed(tx.ID, tx.Origin, kind)
	}
	if tx.HasAsync > 0 {
		return NewDuplicateTransaction(tx.ID)
	}

	tx.HasAsync++
	tx.Waiting = kind
	if err := c.registry.Insert(tx); err != nil {
		tx.HasAsync--
		tx.Waiting = AsyncNone
		return err
	}

	c.park(tx)
	c.metrics.Suspended(kind.String())
	c.metrics.SetParked(c.registry.Len())
	c.log.Info("transaction suspended",
		"id", tx.ID,
		"origin", tx.Origin.String(),
		"waiting", kind.String(),
	)

	if err := send(); err != nil {
		if _, rerr := c.registry.Remove(tx.ID); rerr == nil {
			tx.HasAsync--
			tx.Waiting = AsyncNone
			c.metrics.SetParked(c.registry.Len())
			c.rebase(tx)
		}
		return fmt.Errorf("send %s request: %w", kind, err)
	}
	return nil
}

// unpark removes a transaction waiting for kind from the registry.
//
// The registry is left untouched when the id does not parse, is not
// parked, or is parked on a different kind of reply.
func (c *Controller) unpark(id string, kind AsyncKind) (*PendingTransaction, error) {
	fail := func(reason string) (*PendingTransaction, error) {
		c.metrics.ResumeFailed()
		c.log.Warn("reply discarded",
			"id", id,
			"kind", kind.String(),
			"reason", reason,
		)
		return nil, NewTransactionNotFound(id, reason)
	}

	if !parseID(id) {
		return fail("transaction id does not parse")
	}
	tx, ok := c.registry.Get(id)
	if !ok {
		return fail("transaction is not parked")
	}
	if tx.Waiting != kind {
		return fail(fmt.Sprintf("transaction is waiting for %s", tx.Waiting))
	}
	tx, err := c.registry.Remove(id)
	if err != nil {
		return fail(err.Error())
	}

	tx.HasAsync--
	tx.Waiting = AsyncNone
	c.rebase(tx)
	c.metrics.SetParked(c.registry.Len())
	c.log.Info("transaction resumed",
		"id", tx.ID,
		"kind", kind.String(),
	)
	return tx, nil
}

// finalize commits a finished transaction: undo history, journal, then
// dependent recomputation in a follow-up transaction.
func (c *Controller) finalize(ctx context.Context, tx *PendingTransaction) error {
	tx.done = true

	if len(tx.ReverseOperations) > 0 {
		entry := HistoryEntry{TransactionID: tx.ID, Cursor: tx.Cursor, Operations: tx.UndoOperations()}
		switch tx.Origin {
		case OriginUser:
			c.history.PushUndo(entry)
			c.history.ClearRedo()
		case OriginUndo:
			c.history.PushRedo(entry)
		case OriginRedo:
			c.history.PushUndo(entry)
		}
	}
	c.metrics.SetUndoDepth(c.history.UndoDepth())
	c.metrics.TransactionFinalized(tx.Origin.String())

	if len(tx.Applied) > 0 {
		c.writeJournal(ctx, tx)
	}

	c.log.Info("transaction finalized",
		"id", tx.ID,
		"origin", tx.Origin.String(),
		"applied", len(tx.Applied),
		"reverse", len(tx.ReverseOperations),
		"undo_depth", c.history.UndoDepth(),
		"redo_depth", c.history.RedoDepth(),
	)

	return c.scheduleRecompute(ctx, tx)
}

// writeJournal records a committed transaction. Failures are logged and
// never undo the commit: the in-memory grid stays authoritative.
func (c *Controller) writeJournal(ctx context.Context, tx *PendingTransaction) {
	if c.journal == nil {
		return
	}
	hash, err := ops.Fingerprint(tx.Applied)
	if err != nil {
		c.log.Error("journal fingerprint failed", "id", tx.ID, "error", err)
		return
	}
	digest, err := c.grid.Digest()
	if err != nil {
		c.log.Error("journal digest failed", "id", tx.ID, "error", err)
		return
	}
	entry := store.Entry{
		ID:                tx.ID,
		Seq:               c.clock.Next(),
		Origin:            tx.Origin.String(),
		Cursor:            tx.Cursor,
		Operations:        tx.Applied,
		ReverseOperations: tx.UndoOperations(),
		Hash:              hash,
		GridDigest:        digest,
		OperationsVersion: ir.OperationsVersion,
		EngineVersion:     ir.EngineVersion,
	}
	inserted, err := c.journal.WriteTransaction(ctx, entry)
	if err != nil {
		c.log.Error("journal write failed",
			"id", tx.ID,
			"seq", entry.Seq,
			"error", err,
		)
		return
	}
	if !inserted {
		c.log.Debug("transaction already journaled", "id", tx.ID)
	}
}
