package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawPlain(t *testing.T) {
	out, err := execute(NewDrawCommand(&RootOptions{Format: "text"}), "--no-color", testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "ghz4_delay.timeline.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestDrawScheduleOnlyWithoutDelays(t *testing.T) {
	out, err := execute(NewDrawCommand(&RootOptions{Format: "text"}),
		"--no-color", "--no-delays", "--policy", "none", testdataPath("ghz4.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, out, "delay[")
	assert.True(t, strings.HasPrefix(out, "ghz4 [dt]\nblock 0"), out)
}

func TestDrawJSONHasNoEscapes(t *testing.T) {
	out, err := execute(NewDrawCommand(&RootOptions{Format: "json"}), testdataPath("ghz4.yaml"))
	require.NoError(t, err)

	var draw DrawOutput
	assert.Equal(t, "ok", decodeData(t, out, &draw))
	assert.Equal(t, "ghz4", draw.Circuit)
	assert.Equal(t, 1, draw.Blocks)
	assert.NotContains(t, draw.Timeline, "\x1b[")
	assert.NotContains(t, draw.Timeline, "╭")
	assert.Contains(t, draw.Timeline, "barrier@0,1,2,3")
}

func TestDrawNestedBlocks(t *testing.T) {
	out, err := execute(NewDrawCommand(&RootOptions{Format: "text"}), "--no-color", testdataPath("bell.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "bell.then (node ")
	assert.Contains(t, out, "bell.else (node ")
}

func TestDrawFailure(t *testing.T) {
	_, err := execute(NewDrawCommand(&RootOptions{Format: "text"}), testdataPath("missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}
