package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/engine"
)

// PadOptions holds flags for the pad command.
type PadOptions struct {
	*RootOptions
	Run      RunFlags
	Database string
	Output   string
	Slots    bool

	// IDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs engine.IDGenerator
}

// NewPadCommand creates the pad command.
func NewPadCommand(rootOpts *RootOptions) *cobra.Command {
	return newPadCommand(&PadOptions{RootOptions: rootOpts})
}

func newPadCommand(opts *PadOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pad <circuit>",
		Short: "Schedule a circuit and pad its idle time",
		Long: `Schedule a circuit and fill every idle qubit interval with the chosen
padding policy. The padded circuit is written as YAML, with the durations
of the input so it can be scheduled again.

With --db the run is recorded for history and replay.

Exit codes:
  0 - Circuit padded
  1 - Circuit invalid or not schedulable
  2 - Command error (unreadable file, database error, bad flags)

Examples:
  blocksched pad bell.yaml
  blocksched pad bell.yaml --policy dd --dd-sequence x,y,x,y --qubits 0,1
  blocksched pad bell.yaml --db runs.db -o bell.padded.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPad(opts, args[0], cmd)
		},
	}

	opts.Run.register(cmd, engine.PolicyDelay)
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the padded circuit to this file")
	cmd.Flags().BoolVar(&opts.Slots, "slots", false, "include the padded schedule in the output")

	return cmd
}

func runPad(opts *PadOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	cfg, err := opts.Run.Policy.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid policy", err)
	}
	doc, err := loadCircuit(path)
	if err != nil {
		return err
	}

	eng, st, err := openEngine(ctx, opts.Database, opts.IDs, opts.Run.engineOptions())
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	res, err := eng.Run(ctx, doc, cfg)
	if err != nil {
		return reportRunError(formatter, doc.Name, err)
	}
	formatter.VerboseLog("padded %s with %s: %d block(s)", res.Circuit, res.Policy.Name, res.Blocks)

	padded := circuit.FromGraph(res.Output)
	padded.Durations = doc.Durations
	padded.DT = doc.DT
	data, err := circuit.EncodeYAML(padded)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode padded circuit", err)
	}

	out := newRunOutput(res, opts.Slots)
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write padded circuit", err)
		}
		out.Output = opts.Output
	}

	if opts.Format == "json" {
		return formatter.JSON(out)
	}

	w := formatter.Writer
	if opts.Output == "" {
		_, _ = w.Write(data)
		return nil
	}
	fmt.Fprintf(w, "✓ Padded %s with %s: %d block(s), %d node(s)\n", out.Circuit, out.Policy, out.Blocks, out.Nodes)
	if out.RunID != "" {
		fmt.Fprintf(w, "  Run: %s (seq %d)\n", out.RunID, out.Seq)
	}
	fmt.Fprintf(w, "  Output: %s\n", out.Output)
	if opts.Slots {
		return writeSlots(w, out.Slots)
	}
	return nil
}
