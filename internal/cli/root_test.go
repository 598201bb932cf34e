package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "blocksched", cmd.Use)
	assert.Contains(t, cmd.Long, "execution blocks")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"schedule", "pad", "draw", "validate", "durations", "history", "replay", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestPolicyFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"pad", "draw"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			policy := sub.Flags().Lookup("policy")
			require.NotNil(t, policy)
			assert.Equal(t, "delay", policy.DefValue)

			for _, flag := range []string{"dd-sequence", "qubits", "dd-spacing", "alignment", "distribution", "no-skip-reset", "policy-file", "no-patch", "max-nodes"} {
				assert.NotNil(t, sub.Flags().Lookup(flag), "flag %s", flag)
			}
		})
	}
}

func TestPadCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	padCmd, _, err := cmd.Find([]string{"pad"})
	require.NoError(t, err)

	outputFlag := padCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)

	dbFlag := padCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)
}

func TestHistoryCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	historyCmd, _, err := cmd.Find([]string{"history"})
	require.NoError(t, err)

	limitFlag := historyCmd.Flags().Lookup("limit")
	require.NotNil(t, limitFlag)
	assert.Equal(t, "20", limitFlag.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	_, err := execute(cmd, "--format", "xml", "validate", testdataPath("ghz4.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootRunsSubcommand(t *testing.T) {
	cmd := NewRootCommand()
	out, err := execute(cmd, "validate", testdataPath("ghz4.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓")
}
