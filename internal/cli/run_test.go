package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/engine"
	"github.com/roach88/gridcore/internal/grid"
	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
	"github.com/roach88/gridcore/internal/testutil"
)

// seedJournal writes a journal holding one sheet with id s1.
func seedJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctrl := engine.New(grid.New(),
		engine.WithJournal(st),
		engine.WithIDGenerator(testutil.NewSequentialIDs()),
	)
	_, err = ctrl.Seed(context.Background(), []ops.Operation{
		ops.AddSheet{Sheet: ir.SheetSnapshot{ID: testutil.SheetID(1), Name: "Sheet1"}},
	})
	require.NoError(t, err)
	return path
}

func requestLine(t *testing.T, typ string, list ...ops.Operation) string {
	t.Helper()
	raw, err := ops.MarshalList(list)
	require.NoError(t, err)
	line, err := json.Marshal(map[string]any{"type": typ, "operations": json.RawMessage(raw)})
	require.NoError(t, err)
	return string(line)
}

// runWith executes the run command with stdin lines and returns the decoded
// stdout events.
func runWith(t *testing.T, db string, lines []string, extra ...string) []map[string]any {
	t.Helper()

	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	cmd.SetArgs(append([]string{"--db", db}, extra...))
	require.NoError(t, cmd.Execute(), stderr.String())

	var events []map[string]any
	dec := json.NewDecoder(&stdout)
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		events = append(events, e)
	}
	return events
}

func TestRunCommand_RequiresDB(t *testing.T) {
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestRunCommand_SetAndUndo(t *testing.T) {
	db := seedJournal(t)

	set := ops.SetCellValues{
		SheetPos: ir.SheetPos{X: 1, Y: 1, SheetID: testutil.SheetID(1)},
		Values:   ir.SingleValue(ir.Number(2)),
	}
	events := runWith(t, db, []string{
		requestLine(t, "start", set),
		`{"type":"undo","id":"u1"}`,
	})

	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, "reply", e["event"])
		assert.NotEmpty(t, e["transaction_id"])
		assert.Nil(t, e["error"])
	}
	assert.Equal(t, "u1", events[1]["id"])

	// Both transactions were journaled; the replayed grid is blank again.
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	g := grid.New()
	res, err := engine.Replay(context.Background(), st, g)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, "blank", ir.OrBlank(g.DisplayValue(set.SheetPos)).TypeName())
}

func TestRunCommand_CodeCellRoundTrip(t *testing.T) {
	db := seedJournal(t)
	sp := ir.SheetPos{X: 1, Y: 1, SheetID: testutil.SheetID(1)}
	txID := testutil.ID(100)

	// Transaction ids must not collide with the seeded journal's.
	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		IDs:         engine.NewFixedGenerator(txID, testutil.ID(101), testutil.ID(102)),
	})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(strings.Join([]string{
		requestLine(t, "start",
			ops.SetDataTable{SheetPos: sp, DataTable: &ir.DataTable{Name: "A1", Language: ir.LanguagePython, Code: "7"}, Index: -1},
			ops.ComputeCode{SheetPos: sp},
		),
		`{"type":"code_result","code_result":{"transaction_id":"` + txID + `","success":true,"output_value":{"type":"number","value":7}}}`,
	}, "\n")))
	cmd.SetArgs([]string{"--db", db})
	require.NoError(t, cmd.Execute(), stderr.String())

	var events []map[string]any
	dec := json.NewDecoder(&stdout)
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		events = append(events, e)
	}

	require.Len(t, events, 3)
	assert.Equal(t, "run_code", events[0]["event"])
	assert.Equal(t, txID, events[0]["transaction_id"])
	runCode := events[0]["run_code"].(map[string]any)
	assert.Equal(t, "Python", runCode["language"])
	assert.Equal(t, "7", runCode["code"])

	assert.Equal(t, "reply", events[1]["event"])
	assert.Equal(t, txID, events[1]["transaction_id"])
	assert.Nil(t, events[1]["error"])

	assert.Equal(t, "reply", events[2]["event"])
	assert.Nil(t, events[2]["error"])
}

func TestRunCommand_CodeResultForUnknownTransaction(t *testing.T) {
	db := seedJournal(t)

	events := runWith(t, db, []string{
		`{"type":"code_result","code_result":{"transaction_id":"` + testutil.ID(999) + `","success":true}}`,
	})

	require.Len(t, events, 1)
	assert.Equal(t, "reply", events[0]["event"])
	assert.Equal(t, "TRANSACTION_NOT_FOUND", events[0]["code"])
	assert.NotEmpty(t, events[0]["error"])
}

func TestRunCommand_BadRequests(t *testing.T) {
	db := seedJournal(t)

	events := runWith(t, db, []string{
		`not json`,
		`{"type":"bogus","id":"b1"}`,
		`{"type":"start","operations":[{"type":"NoSuchOperation"}]}`,
		`{"type":"redo"}`,
	})

	require.Len(t, events, 4)
	assert.Contains(t, events[0]["error"], "invalid request")
	assert.Equal(t, "b1", events[1]["id"])
	assert.Contains(t, events[1]["error"], `unknown request type "bogus"`)
	assert.Contains(t, events[2]["error"], "operations")
	// Nothing to redo: a quiet reply with no transaction.
	assert.Nil(t, events[3]["error"])
	assert.Nil(t, events[3]["transaction_id"])
}

func TestRunCommand_SeedsEmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "fresh.db")

	events := runWith(t, db, nil, "--sheet", "Sheet1", "--sheet", "Data")
	assert.Empty(t, events)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	g := grid.New()
	_, err = engine.Replay(context.Background(), st, g)
	require.NoError(t, err)
	_, ok := g.SheetByName("data")
	assert.True(t, ok)
	_, ok = g.SheetByName("Sheet1")
	assert.True(t, ok)
}

func TestRunCommand_RestartKeepsSheets(t *testing.T) {
	db := seedJournal(t)

	// A journal with sheets is not seeded again.
	runWith(t, db, nil, "--sheet", "Other")

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ListTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunCommand_StartsOnDivergedJournal(t *testing.T) {
	db := seedJournal(t)
	tamper(t, db)

	set := ops.SetCellValues{
		SheetPos: ir.SheetPos{X: 2, Y: 1, SheetID: testutil.SheetID(1)},
		Values:   ir.SingleValue(ir.Number(4)),
	}
	events := runWith(t, db, []string{requestLine(t, "start", set)})
	require.Len(t, events, 1)
	assert.Nil(t, events[0]["error"])

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	entries, err := st.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, int64(51), entries[2].Seq, "the clock continues after the last entry")
}
