package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/testutil"
)

var (
	sheet1 = testutil.SheetID(1)
	sheet2 = testutil.SheetID(2)
)

func testID(n int64) string {
	return testutil.ID(n)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestController creates a controller over a grid with sheets "Sheet1"
// (s1) and "Data" (s2), sequential transaction ids and a silent logger.
func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	g := testutil.NewGrid(t, "Sheet1", "Data")
	base := []Option{
		WithIDGenerator(testutil.NewSequentialIDs()),
		WithLogger(discardLogger()),
	}
	return New(g, append(base, opts...)...)
}

func setValue(x, y int64, v ir.CellValue) ops.SetCellValues {
	return ops.SetCellValues{SheetPos: testutil.At(x, y), Values: ir.SingleValue(v)}
}

func codeCell(x, y int64, lang ir.CodeLanguage, code string) []ops.Operation {
	sp := testutil.At(x, y)
	return []ops.Operation{
		ops.SetDataTable{
			SheetPos:  sp,
			DataTable: &ir.DataTable{Name: "Cell", Language: lang, Code: code},
			Index:     -1,
		},
		ops.ComputeCode{SheetPos: sp},
	}
}

func formulaCell(x, y int64, code string) []ops.Operation {
	return codeCell(x, y, ir.LanguageFormula, code)
}

func display(c *Controller, x, y int64) ir.CellValue {
	return c.Grid().DisplayValue(testutil.At(x, y))
}

func table(t *testing.T, c *Controller, x, y int64) *ir.DataTable {
	t.Helper()
	dt, ok := c.tableAt(testutil.At(x, y))
	if !ok {
		t.Fatalf("no code cell at (%d, %d)", x, y)
	}
	return dt
}

func mustStart(t *testing.T, c *Controller, operations ...ops.Operation) string {
	t.Helper()
	id, err := c.Start(context.Background(), operations, "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return id
}

type fakeRunner struct {
	mu       sync.Mutex
	requests []CodeRequest
	err      error
	onRun    func(CodeRequest)
}

func (r *fakeRunner) RunCode(_ context.Context, req CodeRequest) error {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	err, onRun := r.err, r.onRun
	r.mu.Unlock()

	if err != nil {
		return err
	}
	if onRun != nil {
		onRun(req)
	}
	return nil
}

func (r *fakeRunner) Requests() []CodeRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CodeRequest(nil), r.requests...)
}

type resized struct {
	Sheet   ir.SheetID
	Heights []ir.RowHeight
}

type fakeRenderer struct {
	requests []RowHeightRequest
	resized  []resized
	err      error
}

func (r *fakeRenderer) RequestRowHeights(_ context.Context, req RowHeightRequest) error {
	r.requests = append(r.requests, req)
	return r.err
}

func (r *fakeRenderer) ResizedRowHeights(sheet ir.SheetID, heights []ir.RowHeight) {
	r.resized = append(r.resized, resized{Sheet: sheet, Heights: heights})
}
