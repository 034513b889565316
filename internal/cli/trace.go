package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcore/internal/engine"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database      string
	TransactionID string // optional - one transaction only
	Origin        string // optional - filter by origin
	Reverse       bool   // also show reverse operations
}

// TraceEntry is one journaled transaction.
type TraceEntry struct {
	Seq        int64    `json:"seq"`
	ID         string   `json:"id"`
	Origin     string   `json:"origin"`
	Cursor     string   `json:"cursor,omitempty"`
	Operations []string `json:"operations"`
	Reverse    []string `json:"reverse,omitempty"`
	Hash       string   `json:"hash"`
	GridDigest string   `json:"grid_digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Entries []TraceEntry `json:"entries"`
	Stats   TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Transactions int            `json:"transactions"`
	Operations   int            `json:"operations"`
	ByOrigin     map[string]int `json:"by_origin"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled transactions",
		Long: `List the transactions in the journal in commit order.

Each entry shows its origin, cursor and the operations it applied, with
the content hash and grid digest recorded at commit.

Examples:
  gridcore trace --db ./grid.db
  gridcore trace --db ./grid.db --origin undo --reverse
  gridcore trace --db ./grid.db --tx 0190a3c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.TransactionID, "tx", "", "show one transaction")
	cmd.Flags().StringVar(&opts.Origin, "origin", "", "filter by origin (user|undo|redo|internal)")
	cmd.Flags().BoolVar(&opts.Reverse, "reverse", false, "show reverse operations")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	if opts.Origin != "" {
		if _, err := engine.ParseOrigin(opts.Origin); err != nil {
			return WrapExitError(ExitCommandError, "invalid --origin", err)
		}
	}

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := loadEntries(ctx, st, opts.TransactionID)
	if err != nil {
		return err
	}

	result := TraceResult{
		Entries: make([]TraceEntry, 0, len(entries)),
		Stats:   TraceStats{ByOrigin: map[string]int{}},
	}
	for _, e := range entries {
		if opts.Origin != "" && e.Origin != opts.Origin {
			continue
		}
		result.Entries = append(result.Entries, traceEntry(e, opts.Reverse))
		result.Stats.Transactions++
		result.Stats.Operations += len(e.Operations)
		result.Stats.ByOrigin[e.Origin]++
	}

	f := newFormatter(opts.RootOptions, cmd)
	if opts.Format == "json" {
		return f.Success(result)
	}
	printTrace(cmd, result)
	return nil
}

func loadEntries(ctx context.Context, st *store.Store, id string) ([]store.Entry, error) {
	if id == "" {
		entries, err := st.ListTransactions(ctx)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to list transactions", err)
		}
		return entries, nil
	}
	e, err := st.ReadTransaction(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewExitError(ExitFailure, fmt.Sprintf("transaction not found: %s", id))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read transaction", err)
	}
	return []store.Entry{e}, nil
}

func traceEntry(e store.Entry, reverse bool) TraceEntry {
	t := TraceEntry{
		Seq:        e.Seq,
		ID:         e.ID,
		Origin:     e.Origin,
		Cursor:     e.Cursor,
		Operations: describeAll(e.Operations),
		Hash:       e.Hash,
		GridDigest: e.GridDigest,
	}
	if reverse {
		t.Reverse = describeAll(e.ReverseOperations)
	}
	return t
}

func describeAll(list []ops.Operation) []string {
	out := make([]string, len(list))
	for i, op := range list {
		out[i] = ops.Describe(op)
	}
	return out
}

func printTrace(cmd *cobra.Command, r TraceResult) {
	w := cmd.OutOrStdout()
	if len(r.Entries) == 0 {
		fmt.Fprintln(w, "No transactions found.")
		return
	}

	for _, e := range r.Entries {
		fmt.Fprintf(w, "[%d] %s %s\n", e.Seq, e.Origin, e.ID)
		if e.Cursor != "" {
			fmt.Fprintf(w, "    cursor: %s\n", e.Cursor)
		}
		for _, op := range e.Operations {
			fmt.Fprintf(w, "    + %s\n", op)
		}
		for _, op := range e.Reverse {
			fmt.Fprintf(w, "    - %s\n", op)
		}
	}
	fmt.Fprintf(w, "\n%d transaction(s), %d operation(s)\n", r.Stats.Transactions, r.Stats.Operations)
}
