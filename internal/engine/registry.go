package engine

import (
	"slices"
	"sync"
)

// AsyncRegistry holds transactions parked on an external reply, keyed by
// transaction id.
//
// An id is present iff its transaction is suspended awaiting exactly one
// reply. Insert and Remove are safe to call from reply callbacks on any
// goroutine.
type AsyncRegistry struct {
	mu      sync.Mutex
	pending map[string]*PendingTransaction
}

// NewAsyncRegistry creates an empty registry.
func NewAsyncRegistry() *AsyncRegistry {
	return &AsyncRegistry{pending: make(map[string]*PendingTransaction)}
}

// Insert parks a transaction. A second insert of the same id is a
// DUPLICATE_TRANSACTION error and leaves the first in place.
func (r *AsyncRegistry) Insert(t *PendingTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[t.ID]; ok {
		return NewDuplicateTransaction(t.ID)
	}
	r.pending[t.ID] = t
	return nil
}

// Remove unparks and returns a transaction.
func (r *AsyncRegistry) Remove(id string) (*PendingTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.pending[id]
	if !ok {
		return nil, NewTransactionNotFound(id, "transaction is not parked")
	}
	delete(r.pending, id)
	return t, nil
}

// Get returns a parked transaction without removing it.
func (r *AsyncRegistry) Get(id string) (*PendingTransaction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.pending[id]
	return t, ok
}

// Len returns the number of parked transactions.
func (r *AsyncRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending)
}

// IDs returns the parked ids in sorted order.
func (r *AsyncRegistry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
