package store

import (
	"context"
	"fmt"

	"github.com/roach88/gridcore/internal/ops"
)

// Entry is one journaled transaction.
type Entry struct {
	ID     string
	Seq    int64
	Origin string
	Cursor string

	// Operations are the forward operations as applied, including those
	// generated from interpreter and renderer replies.
	Operations []ops.Operation

	// ReverseOperations undo the transaction, in application order.
	ReverseOperations []ops.Operation

	// Hash is the content hash of Operations.
	Hash string

	// GridDigest is the grid digest right after the transaction committed.
	GridDigest string

	OperationsVersion string
	EngineVersion     string
}

// WriteTransaction appends an entry to the journal.
// Uses ON CONFLICT DO NOTHING for idempotency: inserted is false when an
// entry with the same id (or seq) already exists.
func (s *Store) WriteTransaction(ctx context.Context, e Entry) (inserted bool, err error) {
	forward, err := marshalOperations(e.Operations)
	if err != nil {
		return false, fmt.Errorf("write transaction %s: %w", e.ID, err)
	}
	reverse, err := marshalOperations(e.ReverseOperations)
	if err != nil {
		return false, fmt.Errorf("write transaction %s: %w", e.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, seq, origin, cursor, operations, reverse_operations, hash, grid_digest, operations_version, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.ID,
		e.Seq,
		e.Origin,
		e.Cursor,
		forward,
		reverse,
		e.Hash,
		e.GridDigest,
		e.OperationsVersion,
		e.EngineVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write transaction %s: %w", e.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write transaction %s: rows affected: %w", e.ID, err)
	}
	return n > 0, nil
}
