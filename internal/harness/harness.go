package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/gridcore/internal/config"
	"github.com/roach88/gridcore/internal/engine"
	"github.com/roach88/gridcore/internal/formula"
	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
	"github.com/roach88/gridcore/internal/testutil"
)

// Harness drives one controller through a scenario.
type Harness struct {
	cfg      config.Config
	ctrl     *engine.Controller
	store    *store.Store
	runner   *recordingRunner
	renderer *recordingRenderer
	sheets   []ir.SheetID
	logger   *slog.Logger
}

// Option configures a harness run.
type Option func(*options)

type options struct {
	journalPath string
	logger      *slog.Logger
}

// WithJournalPath journals to a SQLite file instead of memory, so the run
// can be replayed later.
func WithJournalPath(path string) Option {
	return func(o *options) { o.journalPath = path }
}

// WithLogger sends controller logs to l instead of discarding them.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a scenario:
// 1. Compile the scenario config and create the sheets
// 2. Execute each step against the controller, recording a trace event
// 3. Check the expectations against the final state
// 4. Replay the journal into a fresh grid and compare digests
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{
		journalPath: ":memory:",
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := config.Default
	if scenario.Config != "" {
		var err error
		if cfg, err = config.Compile(scenario.Config); err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
	}

	st, err := store.Open(o.journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()

	h := &Harness{
		cfg:      cfg,
		store:    st,
		runner:   &recordingRunner{},
		renderer: &recordingRenderer{},
		logger:   o.logger,
	}
	h.ctrl = engine.New(grid.NewWithDefaults(cfg.GridDefaults()),
		engine.WithConfig(cfg),
		engine.WithJournal(st),
		engine.WithCodeRunner(h.runner),
		engine.WithRenderer(h.renderer),
		engine.WithIDGenerator(testutil.NewSequentialIDs()),
		engine.WithLogger(o.logger),
	)

	ctx := context.Background()
	if err := h.seedSheets(ctx, scenario.Sheets); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		event, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, event)

		if event.Error != step.ExpectError {
			switch {
			case step.ExpectError == "":
				result.AddError(fmt.Sprintf("step %d (%s): unexpected error %s", i, event.Kind, event.Error))
			case event.Error == "":
				result.AddError(fmt.Sprintf("step %d (%s): expected error %s", i, event.Kind, step.ExpectError))
			default:
				result.AddError(fmt.Sprintf("step %d (%s): expected error %s, got %s", i, event.Kind, step.ExpectError, event.Error))
			}
		}
	}

	for _, msg := range h.checkExpect(scenario.Expect) {
		result.AddError(msg)
	}

	if result.Digest, err = h.ctrl.Grid().Digest(); err != nil {
		return nil, fmt.Errorf("digest: %w", err)
	}
	if err := h.verifyReplay(ctx, result); err != nil {
		return nil, err
	}

	h.logger.Info("scenario finished",
		"name", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
		"replayed", result.Replayed,
	)
	return result, nil
}

// seedSheets creates the scenario's sheets through the journal so replay
// starts from an empty grid.
func (h *Harness) seedSheets(ctx context.Context, names []string) error {
	if len(names) == 0 {
		names = []string{"Sheet1"}
	}
	seed := make([]ops.Operation, len(names))
	for i, name := range names {
		id := testutil.SheetID(i + 1)
		h.sheets = append(h.sheets, id)
		seed[i] = ops.AddSheet{Sheet: ir.SheetSnapshot{ID: id, Name: name}}
	}
	if _, err := h.ctrl.Seed(ctx, seed); err != nil {
		return fmt.Errorf("failed to create sheets: %w", err)
	}
	return nil
}

// executeStep runs one step. Controller errors are recorded on the event;
// only scenario mistakes (bad cell names, unknown sheets) are returned.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, error) {
	h.runner.reset()
	h.renderer.reset()

	event := TraceEvent{Step: index, Kind: step.Kind()}
	var stepErr error

	switch event.Kind {
	case StepEdit, StepServer:
		actions := step.Edit
		if event.Kind == StepServer {
			actions = step.Server
		}
		operations, err := h.operations(actions)
		if err != nil {
			return event, err
		}
		if event.Kind == StepEdit {
			_, stepErr = h.ctrl.Start(ctx, operations, "")
		} else {
			_, stepErr = h.ctrl.ApplyServerTransaction(ctx, operations)
		}
	case StepUndo:
		var ok bool
		_, ok, stepErr = h.ctrl.Undo(ctx, "")
		event.Noop = !ok
	case StepRedo:
		var ok bool
		_, ok, stepErr = h.ctrl.Redo(ctx, "")
		event.Noop = !ok
	case StepCodeResult:
		result, err := h.codeResult(step.CodeResult)
		if err != nil {
			return event, err
		}
		stepErr = h.ctrl.CompleteCode(ctx, result)
	case StepRowHeights:
		reply, err := h.rowHeights(step.RowHeights)
		if err != nil {
			return event, err
		}
		stepErr = h.ctrl.CompleteRowHeights(ctx, reply)
	case StepGetCells:
		req, err := h.getCells(step.GetCells)
		if err != nil {
			return event, err
		}
		var cells []engine.CellResult
		cells, stepErr = h.ctrl.GetCells(ctx, req)
		for _, c := range cells {
			event.Cells = append(event.Cells, fmt.Sprintf("%s=%s:%s",
				formula.A1(ir.Pos{X: c.X, Y: c.Y}), c.TypeName, ir.OrBlank(c.Value).String()))
		}
	}

	event.Error = errorCode(stepErr)
	event.Requests = h.runner.take()
	event.Requests = append(event.Requests, h.renderer.takeRequests()...)
	event.Resized = h.renderer.takeResized()
	event.Parked = h.ctrl.Registry().Len()
	event.UndoDepth = h.ctrl.History().UndoDepth()
	event.RedoDepth = h.ctrl.History().RedoDepth()

	h.logger.Debug("step executed",
		"step", index,
		"kind", event.Kind,
		"error", event.Error,
		"parked", event.Parked,
	)
	return event, nil
}

// verifyReplay rebuilds the grid from the journal and compares digests.
// It is skipped while work is still parked, since that work is not
// committed.
func (h *Harness) verifyReplay(ctx context.Context, result *Result) error {
	if h.ctrl.Registry().Len() > 0 {
		return nil
	}
	g := grid.NewWithDefaults(h.cfg.GridDefaults())
	rr, err := engine.Replay(ctx, h.store, g)
	if err != nil {
		var mismatch *engine.DigestMismatchError
		if errors.As(err, &mismatch) {
			result.AddError(mismatch.Error())
			return nil
		}
		return fmt.Errorf("replay: %w", err)
	}
	if rr.Digest != result.Digest {
		result.AddError(fmt.Sprintf("replay digest %s does not match live grid %s", rr.Digest, result.Digest))
		return nil
	}
	result.Replayed = true
	return nil
}

// errorCode reduces an error to its CoreError code when it has one.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce *engine.CoreError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	return err.Error()
}

// sheetID resolves a sheet name; "" is the first sheet.
func (h *Harness) sheetID(name string) (ir.SheetID, error) {
	if name == "" {
		return h.sheets[0], nil
	}
	id, ok := h.ctrl.Grid().SheetByName(name)
	if !ok {
		return "", fmt.Errorf("unknown sheet %q", name)
	}
	return id, nil
}

// cell resolves "A1" or "Sheet!A1".
func (h *Harness) cell(ref string) (ir.SheetPos, error) {
	sheet, name := "", ref
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		sheet, name = ref[:i], ref[i+1:]
	}
	id, err := h.sheetID(sheet)
	if err != nil {
		return ir.SheetPos{}, err
	}
	p, err := formula.ParseA1(name)
	if err != nil {
		return ir.SheetPos{}, err
	}
	return p.ToSheetPos(id), nil
}

// rect resolves "A1:B2" or "Sheet!A1:B2".
func (h *Harness) rect(ref string) (ir.SheetRect, error) {
	sheet, name := "", ref
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		sheet, name = ref[:i], ref[i+1:]
	}
	id, err := h.sheetID(sheet)
	if err != nil {
		return ir.SheetRect{}, err
	}
	r, err := formula.ParseA1Range(name)
	if err != nil {
		return ir.SheetRect{}, err
	}
	return r.ToSheetRect(id), nil
}

func column(letters string) (int64, error) {
	p, err := formula.ParseA1(letters + "1")
	if err != nil {
		return 0, fmt.Errorf("invalid column %q", letters)
	}
	return p.X, nil
}

// operations translates scenario actions into controller operations.
func (h *Harness) operations(actions []Action) ([]ops.Operation, error) {
	var out []ops.Operation
	for i, a := range actions {
		converted, err := h.operation(a)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		out = append(out, converted...)
	}
	return out, nil
}

func (h *Harness) operation(a Action) ([]ops.Operation, error) {
	switch {
	case a.Set != nil:
		sp, err := h.cell(a.Set.Cell)
		if err != nil {
			return nil, err
		}
		values, err := cellValues(a.Set.Value, a.Set.Values)
		if err != nil {
			return nil, err
		}
		return []ops.Operation{ops.SetCellValues{SheetPos: sp, Values: values}}, nil

	case a.Formula != nil, a.Code != nil:
		c, lang := a.Formula, ir.LanguageFormula
		if c == nil {
			c = a.Code
			if c.Language != "" {
				lang = ir.CodeLanguage(c.Language)
			}
		}
		sp, err := h.cell(c.Cell)
		if err != nil {
			return nil, err
		}
		return []ops.Operation{
			ops.SetDataTable{
				SheetPos:  sp,
				DataTable: &ir.DataTable{Name: formula.A1(sp.Pos()), Language: lang, Code: c.Code},
				Index:     -1,
			},
			ops.ComputeCode{SheetPos: sp},
		}, nil

	case a.Format != nil:
		sr, err := h.rect(a.Format.Range)
		if err != nil {
			return nil, err
		}
		var u ir.FormatUpdate
		if a.Format.Wrap != nil {
			u.Wrap = ir.Clear[ir.CellWrap]()
			if *a.Format.Wrap {
				u.Wrap = ir.Set(ir.WrapWrap)
			}
		}
		if a.Format.Bold != nil {
			u.Bold = ir.Set(*a.Format.Bold)
		}
		return []ops.Operation{ops.SetCellFormats{SheetRect: sr, Formats: []ir.FormatUpdate{u}}}, nil

	case a.ResizeRow != nil:
		id, err := h.sheetID(a.ResizeRow.Sheet)
		if err != nil {
			return nil, err
		}
		return []ops.Operation{ops.ResizeRow{
			SheetID: id, Row: a.ResizeRow.Index, NewSize: a.ResizeRow.Size, ClientResized: true,
		}}, nil

	case a.ResizeColumn != nil:
		id, err := h.sheetID(a.ResizeColumn.Sheet)
		if err != nil {
			return nil, err
		}
		return []ops.Operation{ops.ResizeColumn{
			SheetID: id, Column: a.ResizeColumn.Index, NewSize: a.ResizeColumn.Size, ClientResized: true,
		}}, nil

	case a.InsertColumn != nil, a.DeleteColumn != nil:
		c := a.InsertColumn
		if c == nil {
			c = a.DeleteColumn
		}
		id, err := h.sheetID(c.Sheet)
		if err != nil {
			return nil, err
		}
		col, err := column(c.Column)
		if err != nil {
			return nil, err
		}
		if a.InsertColumn != nil {
			return []ops.Operation{ops.InsertColumn{SheetID: id, Column: col}}, nil
		}
		return []ops.Operation{ops.DeleteColumn{SheetID: id, Column: col}}, nil
	}
	return nil, fmt.Errorf("empty action")
}

// parked returns the one transaction id waiting for a reply.
func (h *Harness) parked() (string, error) {
	ids := h.ctrl.Registry().IDs()
	if len(ids) != 1 {
		return "", fmt.Errorf("expected exactly one parked transaction, have %d", len(ids))
	}
	return ids[0], nil
}

func (h *Harness) codeResult(s *CodeResultStep) (engine.CodeResult, error) {
	id := s.TransactionID
	if id == "" {
		var err error
		if id, err = h.parked(); err != nil {
			return engine.CodeResult{}, err
		}
	}
	result := engine.CodeResult{
		TransactionID: id,
		Success:       s.Error == "",
		StdErr:        s.Error,
		LineNumber:    s.Line,
		CancelCompute: s.Cancel,
	}
	switch {
	case s.Array != nil:
		values, err := cellValues(nil, s.Array)
		if err != nil {
			return engine.CodeResult{}, err
		}
		result.OutputArray = &values
	case s.Value != nil:
		v, err := cellValue(s.Value)
		if err != nil {
			return engine.CodeResult{}, err
		}
		result.OutputValue = v
	}
	return result, nil
}

func (h *Harness) rowHeights(s *RowHeightsStep) (engine.RowHeightsReply, error) {
	id, err := h.parked()
	if err != nil {
		return engine.RowHeightsReply{}, err
	}
	sheet, err := h.sheetID(s.Sheet)
	if err != nil {
		return engine.RowHeightsReply{}, err
	}
	rows := make([]int64, 0, len(s.Heights))
	for row := range s.Heights {
		rows = append(rows, row)
	}
	slices.Sort(rows)
	reply := engine.RowHeightsReply{TransactionID: id, SheetID: sheet}
	for _, row := range rows {
		reply.RowHeights = append(reply.RowHeights, ir.RowHeight{Row: row, Height: s.Heights[row]})
	}
	return reply, nil
}

func (h *Harness) getCells(s *GetCellsStep) (engine.GetCellsRequest, error) {
	id, err := h.parked()
	if err != nil {
		return engine.GetCellsRequest{}, err
	}
	r, err := formula.ParseA1Range(s.Range)
	if err != nil {
		return engine.GetCellsRequest{}, err
	}
	return engine.GetCellsRequest{TransactionID: id, Rect: r, SheetName: s.Sheet, LineNumber: s.Line}, nil
}

// cellValue converts a YAML scalar: numbers, strings, booleans, and null
// for blank.
func cellValue(v any) (ir.CellValue, error) {
	switch val := v.(type) {
	case nil:
		return ir.Blank{}, nil
	case string:
		return ir.Text(val), nil
	case int:
		return ir.Number(val), nil
	case int64:
		return ir.Number(val), nil
	case uint64:
		return ir.Number(val), nil
	case float64:
		return ir.Number(val), nil
	case bool:
		return ir.Logical(val), nil
	default:
		return nil, fmt.Errorf("unsupported cell value %T", v)
	}
}

// cellValues builds a single value or a row-major block.
func cellValues(single any, rows [][]any) (ir.CellValues, error) {
	if rows == nil {
		v, err := cellValue(single)
		if err != nil {
			return ir.CellValues{}, err
		}
		return ir.SingleValue(v), nil
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return ir.CellValues{}, fmt.Errorf("values must be non-empty")
	}
	w := len(rows[0])
	out := ir.NewCellValues(uint32(w), uint32(len(rows)))
	for y, row := range rows {
		if len(row) != w {
			return ir.CellValues{}, fmt.Errorf("values row %d has %d entries, want %d", y, len(row), w)
		}
		for x, raw := range row {
			v, err := cellValue(raw)
			if err != nil {
				return ir.CellValues{}, err
			}
			out.Set(uint32(x), uint32(y), v)
		}
	}
	return out, nil
}

type recordingRunner struct {
	requests []string
}

func (r *recordingRunner) RunCode(_ context.Context, req engine.CodeRequest) error {
	r.requests = append(r.requests, fmt.Sprintf("run_code %s!%s %s",
		req.SheetPos.SheetID, formula.A1(req.SheetPos.Pos()), req.Language))
	return nil
}

func (r *recordingRunner) reset() { r.requests = nil }

func (r *recordingRunner) take() []string {
	out := r.requests
	r.requests = nil
	return out
}

type recordingRenderer struct {
	requests []string
	resized  []string
}

func (r *recordingRenderer) RequestRowHeights(_ context.Context, req engine.RowHeightRequest) error {
	r.requests = append(r.requests, fmt.Sprintf("row_heights %s %v", req.SheetID, req.Rows))
	return nil
}

func (r *recordingRenderer) ResizedRowHeights(sheet ir.SheetID, heights []ir.RowHeight) {
	parts := make([]string, len(heights))
	for i, rh := range heights {
		parts[i] = fmt.Sprintf("%d=%g", rh.Row, rh.Height)
	}
	r.resized = append(r.resized, fmt.Sprintf("%s %s", sheet, strings.Join(parts, " ")))
}

func (r *recordingRenderer) reset() {
	r.requests = nil
	r.resized = nil
}

func (r *recordingRenderer) takeRequests() []string {
	out := r.requests
	r.requests = nil
	return out
}

func (r *recordingRenderer) takeResized() []string {
	out := r.resized
	r.resized = nil
	return out
}
