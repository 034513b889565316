package engine

// # Replay
//
// Every committed transaction is journaled with its
// applied forward operations, a seq from the logical Clock and the digest
// of the grid right after it committed. Replay applies the journal in seq
// order to an empty grid through the same grid.Apply path the controller
// uses, and checks the digest after each entry:
//
//	[journal ORDER BY seq] → grid.Apply(op) for each op → Digest() == entry.GridDigest
//
// A mismatch does not stop the replay: every entry is applied and the first
// divergence is returned alongside the complete result. A commit made while
// another transaction was parked carries that transaction's partial writes
// in its digest, so a live journal can diverge without being corrupt.
//
// Code cells are not re-run: their results were journaled as SetDataTable
// operations, so replay never calls an interpreter or the renderer.
//
// Journal writes are idempotent (ON CONFLICT(id) DO NOTHING), so a crash
// between commit and write loses at most the unwritten entry and a retried
// write never duplicates one.

import (
	"context"
	"fmt"

	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/store"
)

// ReplaySource yields journal entries in commit order.
// Implemented by *store.Store.
type ReplaySource interface {
	Replay(ctx context.Context, apply func(store.Entry) error) error
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Entries    int
	Operations int
	LastSeq    int64

	// Digest is the grid digest after the last entry.
	Digest string
}

// DigestMismatchError reports a replayed grid that differs from the grid
// the entry was committed against.
type DigestMismatchError struct {
	TransactionID string
	Seq           int64
	Want          string
	Got           string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("replay diverged at seq %d (transaction %s): digest %s, journal has %s",
		e.Seq, e.TransactionID, e.Got, e.Want)
}

// Replay rebuilds g from src. g should be empty; the journal's first
// entries normally add its sheets. The first divergence is returned as a
// *DigestMismatchError after all entries were applied.
func Replay(ctx context.Context, src ReplaySource, g *grid.Grid) (ReplayResult, error) {
	var res ReplayResult
	var mismatch *DigestMismatchError
	err := src.Replay(ctx, func(e store.Entry) error {
		for i, op := range e.Operations {
			if _, _, err := g.Apply(op); err != nil {
				return fmt.Errorf("replay seq %d op %d: %w", e.Seq, i, err)
			}
		}
		digest, err := g.Digest()
		if err != nil {
			return fmt.Errorf("replay seq %d: %w", e.Seq, err)
		}
		if e.GridDigest != "" && digest != e.GridDigest && mismatch == nil {
			mismatch = &DigestMismatchError{
				TransactionID: e.ID,
				Seq:           e.Seq,
				Want:          e.GridDigest,
				Got:           digest,
			}
		}
		res.Entries++
		res.Operations += len(e.Operations)
		res.LastSeq = e.Seq
		res.Digest = digest
		return nil
	})
	if err != nil {
		return res, err
	}
	if mismatch != nil {
		return res, mismatch
	}
	return res, nil
}
