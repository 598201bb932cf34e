package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// DurationsOptions holds flags for the durations command.
type DurationsOptions struct {
	*RootOptions
	NoPatch bool
}

// InstructionDuration is the resolved length of one instruction of a
// circuit.
type InstructionDuration struct {
	Op       string `json:"op"`
	Duration int64  `json:"duration,omitempty"`
	Source   string `json:"source"` // table | calibration | explicit | missing
	Error    string `json:"error,omitempty"`
}

// DurationsOutput is the JSON payload of the durations command.
type DurationsOutput struct {
	Circuit      string                `json:"circuit"`
	Patched      bool                  `json:"patched"`
	Table        []durations.Entry     `json:"table"`
	Instructions []InstructionDuration `json:"instructions"`
}

// NewDurationsCommand creates the durations command.
func NewDurationsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DurationsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "durations <circuit>",
		Short: "Show the duration table and instruction lengths of a circuit",
		Long: `Show the duration table of a circuit after measurement patching, and
the length every distinct instruction resolves to.

Exit codes:
  0 - Every instruction has a duration
  1 - At least one instruction has none
  2 - Command error (unreadable file, invalid table)

Examples:
  blocksched durations bell.yaml
  blocksched durations bell.yaml --no-patch --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDurations(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoPatch, "no-patch", false, "show measure and reset durations as given")

	return cmd
}

func runDurations(opts *DurationsOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	doc, err := loadCircuit(path)
	if err != nil {
		return err
	}
	g, err := doc.Build()
	if err != nil {
		return WrapExitError(ExitFailure, "invalid circuit", err)
	}
	table, err := doc.Table(durations.WithPatching(!opts.NoPatch))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid duration table", err)
	}

	out := DurationsOutput{
		Circuit:      doc.Name,
		Patched:      !opts.NoPatch,
		Table:        table.Entries(),
		Instructions: resolveInstructions(g, table),
	}
	missing := 0
	for _, in := range out.Instructions {
		if in.Source == "missing" {
			missing++
		}
	}

	if opts.Format == "json" {
		if err := formatter.JSON(out); err != nil {
			return err
		}
	} else if err := writeDurations(formatter, out); err != nil {
		return err
	}

	if missing > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d instruction(s) without a duration", missing))
	}
	return nil
}

// resolveInstructions lists each distinct instruction of g and its nested
// blocks once, in first-use order, with the length the scheduler would use.
func resolveInstructions(g *ir.Graph, table *durations.Table) []InstructionDuration {
	var out []InstructionDuration
	seen := map[string]bool{}
	var walk func(g *ir.Graph)
	walk = func(g *ir.Graph) {
		for _, n := range g.Nodes() {
			for _, b := range n.Blocks {
				walk(b)
			}
			switch n.Kind {
			case ir.KindGate, ir.KindMeasure, ir.KindReset:
			default:
				continue
			}
			op := n.String()
			if seen[op] {
				continue
			}
			seen[op] = true
			out = append(out, resolve(g, table, n, op))
		}
	}
	walk(g)
	return out
}

func resolve(g *ir.Graph, table *durations.Table, n *ir.Node, op string) InstructionDuration {
	if n.Duration != nil {
		if !n.Duration.Bound() {
			return InstructionDuration{Op: op, Source: "missing", Error: "unbound duration " + n.Duration.Symbol}
		}
		return InstructionDuration{Op: op, Duration: n.Duration.Ticks, Source: "explicit"}
	}
	if d, ok := g.Calibration(n); ok {
		return InstructionDuration{Op: op, Duration: d, Source: "calibration"}
	}
	d, err := table.Lookup(n.Name, n.Qubits, n.Params)
	if err != nil {
		return InstructionDuration{Op: op, Source: "missing", Error: err.Error()}
	}
	return InstructionDuration{Op: op, Duration: d, Source: "table"}
}

func writeDurations(f *OutputFormatter, out DurationsOutput) error {
	w := f.Writer
	fmt.Fprintf(w, "Duration table for %s", out.Circuit)
	if out.Patched {
		fmt.Fprint(w, " (measurement patching on)")
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tQUBITS\tPARAMS\tDURATION\tUNIT")
	for _, e := range out.Table {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Name, listOrStar(ints(e.Qubits)), listOrStar(floats(e.Params)),
			strconv.FormatFloat(e.Duration, 'g', -1, 64), e.Unit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Instructions")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, in := range out.Instructions {
		if in.Source == "missing" {
			fmt.Fprintf(tw, "✗ %s\t-\t%s\n", in.Op, in.Error)
			continue
		}
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", in.Op, in.Duration, in.Source)
	}
	return tw.Flush()
}

func ints(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.Itoa(x)
	}
	return out
}

func floats(xs []float64) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return out
}

func listOrStar(xs []string) string {
	if len(xs) == 0 {
		return "*"
	}
	return strings.Join(xs, ",")
}
