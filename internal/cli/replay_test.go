package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/gridcore/internal/ir"
	"github.com/roach88/gridcore/internal/ops"
	"github.com/roach88/gridcore/internal/store"
	"github.com/roach88/gridcore/internal/testutil"
)

func executeReplay(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// tamper appends an entry whose digest cannot match the replayed grid.
func tamper(t *testing.T, db string) {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.WriteTransaction(context.Background(), store.Entry{
		ID:     testutil.ID(50),
		Seq:    50,
		Origin: "user",
		Operations: []ops.Operation{ops.SetCellValues{
			SheetPos: ir.SheetPos{X: 1, Y: 1, SheetID: testutil.SheetID(1)},
			Values:   ir.SingleValue(ir.Number(1)),
		}},
		Hash:              "tampered",
		GridDigest:        "not-a-real-digest",
		OperationsVersion: ir.OperationsVersion,
		EngineVersion:     ir.EngineVersion,
	})
	require.NoError(t, err)
}

func TestReplayCommand_RequiresDB(t *testing.T) {
	_, err := executeReplay(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayCommand_MissingJournal(t *testing.T) {
	_, err := executeReplay(t, "text", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_Matches(t *testing.T) {
	db := seedJournal(t)

	out, err := executeReplay(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:    1")
	assert.Contains(t, out, "Replay matches the journal")
}

func TestReplayCommand_MatchesJSON(t *testing.T) {
	db := seedJournal(t)

	out, err := executeReplay(t, "json", "--db", db)
	require.NoError(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   ReplayReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 1, response.Data.Entries)
	assert.Equal(t, 1, response.Data.Operations)
	assert.True(t, response.Data.Deterministic)
	assert.NotEmpty(t, response.Data.Digest)
	assert.Nil(t, response.Data.Divergence)
}

func TestReplayCommand_Diverged(t *testing.T) {
	db := seedJournal(t)
	tamper(t, db)

	out, err := executeReplay(t, "text", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Diverged at seq 50")
	assert.Contains(t, out, "not-a-real-digest")
}

func TestReplayCommand_DivergedJSON(t *testing.T) {
	db := seedJournal(t)
	tamper(t, db)

	out, err := executeReplay(t, "json", "--db", db)
	require.Error(t, err)

	var response struct {
		Status string       `json:"status"`
		Data   ReplayReport `json:"data"`
		Error  *CLIError    `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "error", response.Status)
	assert.Equal(t, ErrCodeReplay, response.Error.Code)
	require.NotNil(t, response.Data.Divergence)
	assert.Equal(t, testutil.ID(50), response.Data.Divergence.TransactionID)
	assert.Equal(t, int64(50), response.Data.Divergence.Seq)
	assert.Equal(t, 2, response.Data.Entries)
	assert.Equal(t, int64(50), response.Data.LastSeq)
}

func TestReplayCommand_EmptyJournal(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeReplay(t, "text", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Journal is empty.")
}
