package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksched/internal/testutil"
)

// recordRuns pads circuits into a fresh database with ids "hist-0001"...
func recordRuns(t *testing.T, circuits ...string) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	ids := testutil.NewSequentialIDs("hist")
	for _, c := range circuits {
		cmd := newPadCommand(&PadOptions{RootOptions: &RootOptions{Format: "text"}, IDs: ids})
		_, err := execute(cmd, "--db", db, "-o", filepath.Join(t.TempDir(), "out.yaml"), testdataPath(c))
		require.NoError(t, err, c)
	}
	return db
}

func TestHistoryList(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml", "bell.cue", "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)

	var runs []RunSummary
	assert.Equal(t, "ok", decodeData(t, out, &runs))
	require.Len(t, runs, 3)
	assert.Equal(t, "hist-0003", runs[0].ID, "newest first")
	assert.Equal(t, int64(3), runs[0].Seq)
	assert.Equal(t, "hist-0001", runs[2].ID)
	assert.Equal(t, runs[0].PaddedHash, runs[2].PaddedHash)
	assert.Empty(t, runs[0].Slots)
}

func TestHistoryListFilters(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml", "bell.cue", "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--circuit", "bell")
	require.NoError(t, err)
	var runs []RunSummary
	decodeData(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "hist-0002", runs[0].ID)

	out, err = execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--limit", "1")
	require.NoError(t, err)
	runs = nil
	decodeData(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "hist-0003", runs[0].ID)
}

func TestHistoryListText(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "hist-0001")
	assert.Contains(t, out, "delay")
}

func TestHistoryEmpty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)
}

func TestHistoryShow(t *testing.T) {
	db := recordRuns(t, "bell.cue")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "hist-0001")
	require.NoError(t, err)

	var run RunSummary
	decodeData(t, out, &run)
	assert.Equal(t, "bell", run.Circuit)
	assert.Equal(t, "delay", run.Policy)
	assert.NotEmpty(t, run.Slots)
	assert.NotEmpty(t, run.SlotsPerBlock)

	total := 0
	for _, n := range run.SlotsPerBlock {
		total += n
	}
	assert.Equal(t, len(run.Slots), total)
}

func TestHistoryShowText(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "hist-0001")
	require.NoError(t, err)
	assert.Contains(t, out, "Run hist-0001 (seq 1)\n")
	assert.Contains(t, out, "  Circuit: ghz4\n")
	assert.Contains(t, out, "    block 0: 10 slot(s)\n")
	assert.Contains(t, out, "PATH")
}

func TestHistoryShowNotFound(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "RUN_NOT_FOUND")
}

func TestHistoryDelete(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml", "bell.cue")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--delete", "hist-0001")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted run hist-0001 (ghz4, 10 slot(s))\n", out)

	out, err = execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db)
	require.NoError(t, err)
	var runs []RunSummary
	decodeData(t, out, &runs)
	require.Len(t, runs, 1)
	assert.Equal(t, "hist-0002", runs[0].ID)

	_, err = execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "hist-0001")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestHistoryDeleteErrors(t *testing.T) {
	db := recordRuns(t, "ghz4.yaml")

	out, err := execute(NewHistoryCommand(&RootOptions{Format: "json"}), "--db", db, "--delete", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "RUN_NOT_FOUND")

	_, err = execute(NewHistoryCommand(&RootOptions{Format: "text"}), "--db", db, "--delete", "hist-0001", "hist-0001")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistoryRequiresDB(t *testing.T) {
	_, err := execute(NewHistoryCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}
