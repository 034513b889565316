package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridcore/internal/ir"
)

// ErrNotFound is returned when a journal entry does not exist.
var ErrNotFound = errors.New("not found")

const selectEntry = `
	SELECT id, seq, origin, cursor, operations, reverse_operations, hash, grid_digest, operations_version, engine_version
	FROM transactions`

// ReadTransaction returns one entry by id.
func (s *Store) ReadTransaction(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, selectEntry+` WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return e, err
}

// ListTransactions returns every entry in commit order.
// Ordering is deterministic: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ListTransactions(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectEntry+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest seq in the journal, or 0 when it is empty.
// The controller's clock continues from here.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transactions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// Replay calls apply for every entry in commit order and stops at the
// first error.
func (s *Store) Replay(ctx context.Context, apply func(Entry) error) error {
	entries, err := s.ListTransactions(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(e); err != nil {
			return fmt.Errorf("replay %s (seq %d): %w", e.ID, e.Seq, err)
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e                Entry
		forward, reverse string
	)
	err := row.Scan(
		&e.ID,
		&e.Seq,
		&e.Origin,
		&e.Cursor,
		&forward,
		&reverse,
		&e.Hash,
		&e.GridDigest,
		&e.OperationsVersion,
		&e.EngineVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan transaction: %w", err)
	}
	if e.OperationsVersion != ir.OperationsVersion {
		return Entry{}, fmt.Errorf("transaction %s: operations version %q: %w", e.ID, e.OperationsVersion, ErrUnsupportedVersion)
	}
	if e.Operations, err = unmarshalOperations(forward); err != nil {
		return Entry{}, fmt.Errorf("transaction %s: %w", e.ID, err)
	}
	if e.ReverseOperations, err = unmarshalOperations(reverse); err != nil {
		return Entry{}, fmt.Errorf("transaction %s: %w", e.ID, err)
	}
	return e, nil
}
