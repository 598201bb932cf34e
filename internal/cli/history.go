package cli

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database  string
	Circuit   string
	GraphHash string
	Limit     int
	Delete    string
}

// RunSummary describes a recorded run.
type RunSummary struct {
	ID            string       `json:"id"`
	Seq           int64        `json:"seq"`
	Circuit       string       `json:"circuit"`
	Policy        string       `json:"policy"`
	Options       string       `json:"options"`
	Blocks        int          `json:"blocks"`
	TimeUnit      string       `json:"time_unit"`
	GraphHash     string       `json:"graph_hash"`
	PaddedHash    string       `json:"padded_hash"`
	ScheduleHash  string       `json:"schedule_hash"`
	EngineVersion string       `json:"engine_version"`
	SlotsPerBlock map[int]int  `json:"slots_per_block,omitempty"`
	Slots         []SlotOutput `json:"slots,omitempty"`
}

func newRunSummary(run store.Run) RunSummary {
	s := RunSummary{
		ID:            run.ID,
		Seq:           run.Seq,
		Circuit:       run.Circuit,
		Policy:        run.Policy,
		Options:       run.Options,
		Blocks:        run.Blocks,
		TimeUnit:      run.TimeUnit,
		GraphHash:     run.GraphHash,
		PaddedHash:    run.PaddedHash,
		ScheduleHash:  run.ScheduleHash,
		EngineVersion: run.EngineVersion,
	}
	for _, r := range run.Slots {
		s.Slots = append(s.Slots, SlotOutput{
			Path:  r.Path,
			Node:  r.Node,
			Op:    r.Label,
			Kind:  r.Kind,
			Block: r.Block,
			Start: r.Start,
		})
	}
	return s
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run",
		Long: `List the runs recorded by "pad --db", newest first, show one run
with its padded schedule, or delete a run and its slots with --delete.

Exit codes:
  0 - Success
  1 - Run not found
  2 - Command error (database not found, etc.)

Examples:
  blocksched history --db runs.db
  blocksched history --db runs.db --circuit bell --limit 5
  blocksched history --db runs.db 0190a5c2-7b1e-7c3d-9a6f-1234567890ab
  blocksched history --db runs.db --delete 0190a5c2-7b1e-7c3d-9a6f-1234567890ab`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Delete != "" {
				if len(args) > 0 {
					return NewExitError(ExitCommandError, "--delete takes no run-id argument")
				}
				return runHistoryDelete(opts, cmd)
			}
			if len(args) == 1 {
				return runHistoryShow(opts, args[0], cmd)
			}
			return runHistoryList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Circuit, "circuit", "", "only runs of this circuit")
	cmd.Flags().StringVar(&opts.GraphHash, "graph-hash", "", "only runs of this input graph")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the run with this id")

	return cmd
}

func runHistoryList(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd), store.ListFilter{
		Circuit:   opts.Circuit,
		GraphHash: opts.GraphHash,
		Limit:     opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, run := range runs {
		summaries[i] = newRunSummary(run)
	}
	if opts.Format == "json" {
		return formatter.JSON(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tCIRCUIT\tPOLICY\tBLOCKS")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", s.Seq, s.ID, s.Circuit, s.Policy, s.Blocks)
	}
	return tw.Flush()
}

func runHistoryShow(opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, id)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error("RUN_NOT_FOUND", fmt.Sprintf("no run %q", id), nil)
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	perBlock, err := st.CountSlotsByBlock(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count slots", err)
	}

	s := newRunSummary(run)
	s.SlotsPerBlock = perBlock
	if opts.Format == "json" {
		return formatter.JSON(s)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Run %s (seq %d)\n", s.ID, s.Seq)
	fmt.Fprintf(w, "  Circuit: %s\n", s.Circuit)
	fmt.Fprintf(w, "  Policy: %s %s\n", s.Policy, s.Options)
	fmt.Fprintf(w, "  Blocks: %d [%s]\n", s.Blocks, s.TimeUnit)
	for _, b := range slices.Sorted(maps.Keys(perBlock)) {
		fmt.Fprintf(w, "    block %d: %d slot(s)\n", b, perBlock[b])
	}
	fmt.Fprintf(w, "  Schedule: %s\n", s.ScheduleHash)
	fmt.Fprintln(w)
	return writeSlots(w, s.Slots)
}

// DeleteOutput is the JSON payload of history --delete.
type DeleteOutput struct {
	ID      string `json:"id"`
	Circuit string `json:"circuit"`
	Slots   int    `json:"slots"`
}

func runHistoryDelete(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, opts.Delete)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error("RUN_NOT_FOUND", fmt.Sprintf("no run %q", opts.Delete), nil)
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if err := st.DeleteRun(ctx, run.ID); err != nil {
		return WrapExitError(ExitCommandError, "failed to delete run", err)
	}

	out := DeleteOutput{ID: run.ID, Circuit: run.Circuit, Slots: len(run.Slots)}
	if opts.Format == "json" {
		return formatter.JSON(out)
	}
	fmt.Fprintf(formatter.Writer, "✓ Deleted run %s (%s, %d slot(s))\n", out.ID, out.Circuit, out.Slots)
	return nil
}
