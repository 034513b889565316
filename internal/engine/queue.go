package engine

import (
	"sync"

	"github.com/roach88/gridcore/internal/ops"
)

// MessageType distinguishes inbox messages.
type MessageType int

const (
	// MessageStart starts a user transaction.
	MessageStart MessageType = iota + 1
	// MessageServer applies a server transaction.
	MessageServer
	// MessageUndo undoes the latest user transaction.
	MessageUndo
	// MessageRedo redoes the latest undo.
	MessageRedo
	// MessageCodeResult resumes a transaction waiting on an interpreter.
	MessageCodeResult
	// MessageRowHeights resumes a transaction waiting on the renderer.
	MessageRowHeights
	// MessageGetCells reads cells for a running code cell.
	MessageGetCells
)

// Message is one request for the controller's Run loop. External callbacks
// (interpreters, the renderer) run on their own goroutines and funnel their
// replies through messages so the grid keeps a single writer.
type Message struct {
	Type MessageType

	Operations []ops.Operation
	Cursor     string

	CodeResult *CodeResult
	RowHeights *RowHeightsReply
	GetCells   *GetCellsRequest

	// Reply, when set, receives the outcome. It should be buffered; the
	// Run loop does not wait for a reader.
	Reply chan<- Reply
}

// Reply is the outcome of a processed message.
type Reply struct {
	TransactionID string
	Cells         []CellResult
	Err           error
}

// inbox is a thread-safe FIFO queue for messages.
//
// The queue is unbounded so reply callbacks never block on a busy
// controller. It uses a channel for signaling to enable context-aware
// waiting in the Run loop.
type inbox struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
	signal   chan struct{} // Signals message availability (buffered, size 1)
}

// newInbox creates an empty inbox.
func newInbox() *inbox {
	return &inbox{
		messages: make([]Message, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a message to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the inbox is closed.
func (q *inbox) Enqueue(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.messages = append(q.messages, m)

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Message{}, false) if the queue is empty.
func (q *inbox) TryDequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return Message{}, false
	}

	m := q.messages[0]

	// Nil out the slot so the backing array does not retain operations.
	q.messages[0] = Message{}

	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
	}

	return m, true
}

// Wait returns a channel that signals when messages may be available.
func (q *inbox) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Close signals that no more messages will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *inbox) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
