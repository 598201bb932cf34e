package harness

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_Scenarios(t *testing.T) {
	for _, name := range []string{"ghz4_delay", "midmeas_delay"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			// Regenerate with:
			//   go test ./internal/harness -run TestRunWithGolden_Scenarios -update
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_FailedRunHasNoGolden(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "missing_duration.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Nil(t, result.Run)
}

func TestAssertGolden_ReusesResult(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "ghz4_delay.yaml"))
	require.NoError(t, err)

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, "ghz4_delay", result))
}

func TestRunSnapshot_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "midmeas_delay.yaml"))
	require.NoError(t, err)

	first, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	second, err := Run(t.Context(), scenario)
	require.NoError(t, err)

	a := NewRunSnapshot(scenario.Name, first.Run)
	b := NewRunSnapshot(scenario.Name, second.Run)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("snapshot differs between runs (-first +second):\n%s", diff)
	}
	assert.Len(t, a.Rows, 13)
	assert.Equal(t, SlotSnapshot{Graph: "midmeas", Op: "measure q[2] c[0]", Block: 0, Start: 900}, a.Rows[6])
}

func TestRunSnapshot_NestedGraphRows(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "fastpath_if.yaml"))
	require.NoError(t, err)

	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	snapshot := NewRunSnapshot(scenario.Name, result.Run)
	graphs := map[string]int{}
	for _, r := range snapshot.Rows {
		graphs[r.Graph]++
	}
	assert.Contains(t, graphs, "fastpath")
	assert.Contains(t, graphs, "fastpath.then")

	data, err := snapshot.MarshalCanonical()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"graph":"fastpath.then","op":"x q[2]"`)
}
