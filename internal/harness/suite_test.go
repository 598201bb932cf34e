package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverScenarios(t *testing.T) {
	paths, err := DiscoverScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"fastpath_if.yaml",
		"ghz4_dd.yaml",
		"ghz4_delay.yaml",
		"midmeas_delay.yaml",
		"missing_duration.yaml",
	}, names)
}

func TestDiscoverScenarios_File(t *testing.T) {
	path := filepath.Join("testdata", "scenarios", "ghz4_dd.yaml")
	paths, err := DiscoverScenarios(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
}

func TestDiscoverScenarios_Missing(t *testing.T) {
	_, err := DiscoverScenarios(filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunSuite_AllScenariosPass(t *testing.T) {
	paths, err := DiscoverScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	result, err := RunSuite(t.Context(), paths)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 5, result.Passed)
	assert.True(t, result.OK(), "failures: %+v", result.Failures)
}

func TestRunSuite_CollectsFailures(t *testing.T) {
	dir := t.TempDir()
	circuit, err := filepath.Abs(circuitPath("ghz4.yaml"))
	require.NoError(t, err)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: broken\n"), 0644))

	failing := filepath.Join(dir, "failing.yaml")
	require.NoError(t, os.WriteFile(failing, []byte(`
name: failing
description: "Counts one block too many"
circuit: `+circuit+`
assertions:
  - type: block_count
    count: 3
`), 0644))

	good := filepath.Join("testdata", "scenarios", "ghz4_delay.yaml")

	result, err := RunSuite(t.Context(), []string{broken, failing, good})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Failed)
	assert.False(t, result.OK())

	require.Len(t, result.Failures, 2)
	assert.Equal(t, broken, result.Failures[0].Path)
	assert.Contains(t, result.Failures[0].Error, "failed to load scenario")
	assert.Equal(t, "failing", result.Failures[1].Scenario)
	assert.Contains(t, result.Failures[1].Error, "scenario assertions failed")
}

func TestRunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result, err := RunSuite(ctx, []string{filepath.Join("testdata", "scenarios", "ghz4_delay.yaml")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, result.Total)
}
