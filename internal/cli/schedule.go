package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/engine"
)

// ScheduleOptions holds flags for the schedule command.
type ScheduleOptions struct {
	*RootOptions
	Run RunFlags
}

// SlotOutput is one scheduled node.
type SlotOutput struct {
	Path  string `json:"path"`
	Node  int    `json:"node"`
	Op    string `json:"op"`
	Kind  string `json:"kind"`
	Block int    `json:"block"`
	Start int64  `json:"start"`
}

// RunOutput describes one scheduling run.
type RunOutput struct {
	Circuit      string       `json:"circuit"`
	Policy       string       `json:"policy"`
	RunID        string       `json:"run_id,omitempty"`
	Seq          int64        `json:"seq,omitempty"`
	Blocks       int          `json:"blocks"`
	Nodes        int          `json:"nodes"`
	GraphHash    string       `json:"graph_hash"`
	PaddedHash   string       `json:"padded_hash"`
	ScheduleHash string       `json:"schedule_hash"`
	Output       string       `json:"output,omitempty"`
	Slots        []SlotOutput `json:"slots,omitempty"`
}

func newRunOutput(res *engine.Result, withSlots bool) RunOutput {
	rows := res.Slots()
	out := RunOutput{
		Circuit:      res.Circuit,
		Policy:       res.Policy.Name,
		RunID:        res.RunID,
		Seq:          res.Seq,
		Blocks:       res.Blocks,
		Nodes:        len(rows),
		GraphHash:    res.GraphHash,
		PaddedHash:   res.PaddedHash,
		ScheduleHash: res.ScheduleHash,
	}
	if withSlots {
		out.Slots = make([]SlotOutput, len(rows))
		for i, r := range rows {
			out.Slots[i] = SlotOutput{
				Path:  r.Path,
				Node:  r.Node,
				Op:    r.Label,
				Kind:  r.Kind,
				Block: r.Block,
				Start: r.Start,
			}
		}
	}
	return out
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schedule <circuit>",
		Short: "Print the block-aware ASAP schedule of a circuit",
		Long: `Schedule a circuit without padding and print the (block, start) of
every operation, nested block graphs included.

Exit codes:
  0 - Circuit scheduled
  1 - Circuit invalid or not schedulable (missing durations, unmapped layout)
  2 - Command error (unreadable file, bad flags)

Examples:
  blocksched schedule bell.yaml
  blocksched schedule bell.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Run.NoPatch, "no-patch", false, "use measure and reset durations as given")
	cmd.Flags().IntVar(&opts.Run.MaxNodes, "max-nodes", engine.DefaultMaxNodes, "reject circuits with more nodes (0 disables)")

	return cmd
}

func runSchedule(opts *ScheduleOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	doc, err := loadCircuit(path)
	if err != nil {
		return err
	}

	eng := engine.New(nil, nil, opts.Run.engineOptions()...)
	res, err := eng.Run(commandContext(cmd), doc, engine.PolicyConfig{Name: engine.PolicyNone})
	if err != nil {
		return reportRunError(formatter, doc.Name, err)
	}

	out := newRunOutput(res, true)
	if opts.Format == "json" {
		return formatter.JSON(out)
	}
	fmt.Fprintf(formatter.Writer, "%s: %d block(s), %d node(s)\n", out.Circuit, out.Blocks, out.Nodes)
	return writeSlots(formatter.Writer, out.Slots)
}

// writeSlots prints slots as an aligned table.
func writeSlots(w io.Writer, slots []SlotOutput) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tNODE\tBLOCK\tSTART\tOP")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Path, s.Node, s.Block, s.Start, s.Op)
	}
	return tw.Flush()
}
