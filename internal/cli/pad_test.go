package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/testutil"
)

func TestPadWritesYAMLToStdout(t *testing.T) {
	out, err := execute(NewPadCommand(&RootOptions{Format: "text"}), testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	doc, err := circuit.ParseYAML([]byte(out))
	require.NoError(t, err, "padded output must be a valid circuit document")
	assert.Equal(t, "ghz4", doc.Name)
	assert.NotEmpty(t, doc.Durations, "durations are carried over")

	var delays []int64
	for _, op := range doc.Ops {
		if op.Op == "delay" {
			require.NotNil(t, op.Duration)
			delays = append(delays, *op.Duration)
		}
	}
	assert.ElementsMatch(t, []int64{50, 750, 950, 500, 300}, delays)
	assert.Equal(t, "barrier", doc.Ops[len(doc.Ops)-1].Op)
}

func TestPadOutputFileAndDatabase(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	output := filepath.Join(dir, "ghz4.padded.yaml")

	out, err := execute(NewPadCommand(&RootOptions{Format: "json"}), "--db", db, "-o", output, "--slots", testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	var run RunOutput
	assert.Equal(t, "ok", decodeData(t, out, &run))
	assert.Equal(t, "delay", run.Policy)
	assert.NotEmpty(t, run.RunID)
	assert.Equal(t, int64(1), run.Seq)
	assert.Equal(t, output, run.Output)
	assert.Len(t, run.Slots, run.Nodes)

	doc, err := circuit.Load(output)
	require.NoError(t, err)
	assert.Equal(t, "ghz4", doc.Name)

	// A second run continues the sequence.
	out, err = execute(NewPadCommand(&RootOptions{Format: "json"}), "--db", db, testdataPath("ghz4.yaml"))
	require.NoError(t, err)
	decodeData(t, out, &run)
	assert.Equal(t, int64(2), run.Seq)
}

func TestPadWithFixedIDs(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	cmd := newPadCommand(&PadOptions{
		RootOptions: &RootOptions{Format: "text"},
		IDs:         testutil.NewSequentialIDs("cli"),
	})

	out, err := execute(cmd, "--db", db, "-o", filepath.Join(t.TempDir(), "p.yaml"), testdataPath("ghz4.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Padded ghz4 with delay: 1 block(s), 10 node(s)")
	assert.Contains(t, out, "Run: cli-0001 (seq 1)")
}

func TestPadDynamicalDecoupling(t *testing.T) {
	out, err := execute(NewPadCommand(&RootOptions{Format: "json"}),
		"--policy", "dd", "--dd-sequence", "x,x", "--qubits", "0", testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	var run RunOutput
	decodeData(t, out, &run)
	assert.Equal(t, "dd", run.Policy)
	// Two pulses and three delays replace the 500 tick gap on q0.
	assert.Equal(t, 14, run.Nodes)
}

func TestPadPolicyFile(t *testing.T) {
	fromFile, err := execute(NewPadCommand(&RootOptions{Format: "json"}),
		"--policy-file", testdataPath("dd.policy.yaml"), testdataPath("ghz4.yaml"))
	require.NoError(t, err)
	fromFlags, err := execute(NewPadCommand(&RootOptions{Format: "json"}),
		"--policy", "dd", "--dd-sequence", "x,x", testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	var a, b RunOutput
	decodeData(t, fromFile, &a)
	decodeData(t, fromFlags, &b)
	assert.Equal(t, b.ScheduleHash, a.ScheduleHash)
	assert.Equal(t, b.PaddedHash, a.PaddedHash)
}

func TestPadErrors(t *testing.T) {
	missingPolicy := filepath.Join(t.TempDir(), "none.yaml")
	badPolicy := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(badPolicy, []byte("name: dd\nsequnce: [x]\n"), 0644))

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"unknown policy", []string{"--policy", "tabu", testdataPath("ghz4.yaml")}, ExitFailure, "INVALID_POLICY"},
		{"dd gate without duration", []string{"--policy", "dd", "--dd-sequence", "sx", testdataPath("ghz4.yaml")}, ExitFailure, "DURATION_MISSING"},
		{"missing duration", []string{testdataPath("missing.yaml")}, ExitFailure, "DURATION_MISSING"},
		{"missing policy file", []string{"--policy-file", missingPolicy, testdataPath("ghz4.yaml")}, ExitCommandError, ""},
		{"policy file typo", []string{"--policy-file", badPolicy, testdataPath("ghz4.yaml")}, ExitCommandError, ""},
		{"bad database", []string{"--db", filepath.Join(t.TempDir(), "no", "such", "dir", "x.db"), testdataPath("ghz4.yaml")}, ExitCommandError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewPadCommand(&RootOptions{Format: "json"}), tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, out, tt.wantOut)
		})
	}
}
