package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/gridcore/internal/config"
	"github.com/roach88/gridcore/internal/engine"
	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayReport holds the replay result.
type ReplayReport struct {
	Entries       int    `json:"entries"`
	Operations    int    `json:"operations"`
	LastSeq       int64  `json:"last_seq"`
	Digest        string `json:"digest"`
	Deterministic bool   `json:"deterministic"`

	// Divergence is set when a replayed grid differs from the journal.
	Divergence *Divergence `json:"divergence,omitempty"`
}

// Divergence locates the first entry whose digest did not match.
type Divergence struct {
	TransactionID string `json:"transaction_id"`
	Seq           int64  `json:"seq"`
	Want          string `json:"want"`
	Got           string `json:"got"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Rebuild the grid from the journal and verify it.

Every entry is applied to an empty grid and the grid digest is checked
against the digest journaled at commit. The journal is replayed twice and
both final digests must agree.

Exit codes:
  0 - Replay matched the journal
  1 - Replay diverged
  2 - Command error (database not found, etc.)

Examples:
  gridcore replay --db ./grid.db
  gridcore replay --db ./grid.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd)

	report, err := replayTwice(ctx, st, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay journal", err)
	}
	f.VerboseLog("replayed %d entries (%d operations)", report.Entries, report.Operations)

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: report}
		if !report.Deterministic {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeReplay, Message: "replay diverged from journal"}
		}
		if err := f.JSON(resp); err != nil {
			return err
		}
	} else {
		printReplayReport(cmd, report)
	}

	if !report.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from journal")
	}
	return nil
}

// openJournal opens an existing journal. store.Open would create a missing
// file, which is never what an inspection command wants.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// replayTwice rebuilds the grid twice from the journal. A digest mismatch
// is reported in the result, not as an error.
func replayTwice(ctx context.Context, st *store.Store, cfg config.Config) (ReplayReport, error) {
	var digests [2]string
	var report ReplayReport
	for i := range digests {
		res, err := engine.Replay(ctx, st, grid.NewWithDefaults(cfg.GridDefaults()))
		var mismatch *engine.DigestMismatchError
		if errors.As(err, &mismatch) {
			return ReplayReport{
				Entries:    res.Entries,
				Operations: res.Operations,
				LastSeq:    res.LastSeq,
				Digest:     res.Digest,
				Divergence: &Divergence{
					TransactionID: mismatch.TransactionID,
					Seq:           mismatch.Seq,
					Want:          mismatch.Want,
					Got:           mismatch.Got,
				},
			}, nil
		}
		if err != nil {
			return ReplayReport{}, err
		}
		digests[i] = res.Digest
		report = ReplayReport{
			Entries:    res.Entries,
			Operations: res.Operations,
			LastSeq:    res.LastSeq,
			Digest:     res.Digest,
		}
	}
	report.Deterministic = digests[0] == digests[1]
	return report, nil
}

func printReplayReport(cmd *cobra.Command, r ReplayReport) {
	w := cmd.OutOrStdout()
	if r.Entries == 0 && r.Divergence == nil {
		fmt.Fprintln(w, "Journal is empty.")
		return
	}

	fmt.Fprintf(w, "Entries:    %d\n", r.Entries)
	fmt.Fprintf(w, "Operations: %d\n", r.Operations)
	fmt.Fprintf(w, "Last seq:   %d\n", r.LastSeq)
	if r.Digest != "" {
		fmt.Fprintf(w, "Digest:     %s\n", r.Digest)
	}

	if d := r.Divergence; d != nil {
		fmt.Fprintf(w, "\n✗ Diverged at seq %d (transaction %s)\n", d.Seq, d.TransactionID)
		fmt.Fprintf(w, "  journal digest: %s\n", d.Want)
		fmt.Fprintf(w, "  replay digest:  %s\n", d.Got)
		return
	}
	if r.Deterministic {
		fmt.Fprintln(w, "\n✓ Replay matches the journal")
	} else {
		fmt.Fprintln(w, "\n✗ Replays produced different digests")
	}
}
