package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/gridcore/internal/engine"
	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/metrics"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database    string
	MetricsAddr string
	Sheets      []string

	// IDs overrides the transaction id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Serve the controller over stdin/stdout",
		Long: `Start the transaction controller and serve it over stdio.

The journal at --db is replayed first, so a restarted controller picks up
where it left off. An empty journal is seeded with the --sheet names.

Each stdin line is one JSON request:
  {"type":"start","operations":[...],"cursor":"..."}
  {"type":"server","operations":[...]}
  {"type":"undo"} / {"type":"redo"}
  {"type":"code_result","code_result":{...}}
  {"type":"row_heights","row_heights":{...}}
  {"type":"get_cells","get_cells":{...}}

Each stdout line is one JSON event: a "reply" per request, plus the
"run_code", "row_heights" and "resized" requests meant for the interpreter
and renderer.

Example:
  gridcore run --db ./grid.db --sheet Sheet1 --sheet Data
  gridcore run --db ./grid.db --metrics-addr :9090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runController(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().StringSliceVar(&opts.Sheets, "sheet", []string{"Sheet1"}, "sheets to create in an empty journal")

	return cmd
}

func runController(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.logger(cmd.ErrOrStderr())

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("opening journal", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing journal", "error", closeErr)
		}
	}()

	g := grid.NewWithDefaults(cfg.GridDefaults())
	replayed, err := engine.Replay(ctx, st, g)
	var mismatch *engine.DigestMismatchError
	if errors.As(err, &mismatch) {
		logger.Warn("journal replay diverged, continuing with the replayed grid",
			"seq", mismatch.Seq,
			"transaction", mismatch.TransactionID,
		)
	} else if err != nil {
		return WrapExitError(ExitFailure, "failed to replay journal", err)
	}
	logger.Info("journal replayed",
		"entries", replayed.Entries,
		"last_seq", replayed.LastSeq,
		"digest", replayed.Digest,
	)

	reg := prometheus.NewRegistry()
	out := newEventWriter(cmd.OutOrStdout())
	ctrlOpts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithJournal(st),
		engine.WithClock(engine.NewClockAt(replayed.LastSeq)),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithCodeRunner(out),
		engine.WithRenderer(out),
	}
	if opts.IDs != nil {
		ctrlOpts = append(ctrlOpts, engine.WithIDGenerator(opts.IDs))
	}
	ctrl := engine.New(g, ctrlOpts...)

	if len(g.Sheets()) == 0 {
		if err := seedSheets(ctx, ctrl, opts.Sheets); err != nil {
			return WrapExitError(ExitCommandError, "failed to create sheets", err)
		}
	}

	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", opts.MetricsAddr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("serving metrics", "addr", opts.MetricsAddr)
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	logger.Info("controller started", "db", opts.Database)
	serveErr := serveRequests(ctx, ctrl, cmd.InOrStdin(), out)

	ctrl.Stop()
	runErr := <-done
	if serveErr != nil {
		return WrapExitError(ExitCommandError, "failed to read requests", serveErr)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "controller error", runErr)
	}

	logger.Info("controller stopped gracefully")
	return nil
}

// seedSheets creates the initial sheets with fresh ids.
func seedSheets(ctx context.Context, ctrl *engine.Controller, names []string) error {
	seed := make([]ops.Operation, 0, len(names))
	for _, name := range names {
		seed = append(seed, ops.AddSheet{Sheet: ir.SheetSnapshot{ID: ir.SheetID(uuid.NewString()), Name: name}})
	}
	_, err := ctrl.Seed(ctx, seed)
	return err
}

// request is one stdin line.
type request struct {
	// ID is an optional client correlation id, echoed on the reply.
	ID string `json:"id,omitempty"`

	Type       string                  `json:"type"`
	Operations json.RawMessage         `json:"operations,omitempty"`
	Cursor     string                  `json:"cursor,omitempty"`
	CodeResult *engine.CodeResult      `json:"code_result,omitempty"`
	RowHeights *engine.RowHeightsReply `json:"row_heights,omitempty"`
	GetCells   *engine.GetCellsRequest `json:"get_cells,omitempty"`
}

var requestTypes = map[string]engine.MessageType{
	"start":       engine.MessageStart,
	"server":      engine.MessageServer,
	"undo":        engine.MessageUndo,
	"redo":        engine.MessageRedo,
	"code_result": engine.MessageCodeResult,
	"row_heights": engine.MessageRowHeights,
	"get_cells":   engine.MessageGetCells,
}

// message converts a request into an inbox message.
func (r request) message() (engine.Message, error) {
	t, ok := requestTypes[r.Type]
	if !ok {
		return engine.Message{}, fmt.Errorf("unknown request type %q", r.Type)
	}
	m := engine.Message{
		Type:       t,
		Cursor:     r.Cursor,
		CodeResult: r.CodeResult,
		RowHeights: r.RowHeights,
		GetCells:   r.GetCells,
	}
	if len(r.Operations) > 0 {
		list, err := ops.UnmarshalList(r.Operations)
		if err != nil {
			return engine.Message{}, fmt.Errorf("operations: %w", err)
		}
		m.Operations = list
	}
	return m, nil
}

// serveRequests feeds stdin lines to the controller one at a time, waiting
// for each reply so a client can answer run_code before sending more.
func serveRequests(ctx context.Context, ctrl *engine.Controller, in io.Reader, out *eventWriter) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			out.write(event{Event: "reply", Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}
		m, err := req.message()
		if err != nil {
			out.write(event{Event: "reply", ID: req.ID, Error: err.Error()})
			continue
		}

		replies := make(chan engine.Reply, 1)
		m.Reply = replies
		if !ctrl.Enqueue(m) {
			return fmt.Errorf("controller stopped")
		}

		select {
		case reply := <-replies:
			out.write(replyEvent(req.ID, reply))
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

func replyEvent(id string, r engine.Reply) event {
	e := event{Event: "reply", ID: id, TransactionID: r.TransactionID, Cells: r.Cells}
	if r.Err != nil {
		e.Error = r.Err.Error()
		var ce *engine.CoreError
		if errors.As(r.Err, &ce) {
			e.Code = string(ce.Code)
		}
	}
	return e
}

// event is one stdout line.
type event struct {
	Event         string                   `json:"event"`
	ID            string                   `json:"id,omitempty"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	Cells         []engine.CellResult      `json:"cells,omitempty"`
	Error         string                   `json:"error,omitempty"`
	Code          string                   `json:"code,omitempty"`
	RunCode       *engine.CodeRequest      `json:"run_code,omitempty"`
	RowHeights    *engine.RowHeightRequest `json:"row_heights,omitempty"`
	Resized       *resizedRows             `json:"resized,omitempty"`
}

type resizedRows struct {
	SheetID    ir.SheetID     `json:"sheet_id"`
	RowHeights []ir.RowHeight `json:"row_heights"`
}

// eventWriter serializes stdout events. It is also the controller's
// interpreter and renderer: their requests become events for the client.
type eventWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newEventWriter(w io.Writer) *eventWriter {
	return &eventWriter{enc: json.NewEncoder(w)}
}

func (w *eventWriter) write(e event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(e); err != nil {
		slog.Error("failed to write event", "event", e.Event, "error", err)
	}
}

func (w *eventWriter) RunCode(_ context.Context, req engine.CodeRequest) error {
	w.write(event{Event: "run_code", TransactionID: req.TransactionID, RunCode: &req})
	return nil
}

func (w *eventWriter) RequestRowHeights(_ context.Context, req engine.RowHeightRequest) error {
	w.write(event{Event: "row_heights", TransactionID: req.TransactionID, RowHeights: &req})
	return nil
}

func (w *eventWriter) ResizedRowHeights(sheet ir.SheetID, heights []ir.RowHeight) {
	w.write(event{Event: "resized", Resized: &resizedRows{SheetID: sheet, RowHeights: heights}})
}
