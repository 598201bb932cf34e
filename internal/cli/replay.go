package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/harness"
	"github.com/roach88/blocksched/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Circuit  string
	NoPatch  bool
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID      string   `json:"run_id"`
	Seq        int64    `json:"seq"`
	Circuit    string   `json:"circuit"`
	Policy     string   `json:"policy"`
	Match      bool     `json:"match"`
	Mismatches []string `json:"mismatches,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs     []ReplayRunResult `json:"runs"`
	Total    int               `json:"total"`
	AllMatch bool              `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id...]",
		Short: "Re-run recorded runs and verify their fingerprints",
		Long: `Re-run recorded runs from their stored circuit source and policy
options, and compare the input graph, padded graph and schedule
fingerprints with the recorded ones. Without run ids every run is
replayed.

Exit codes:
  0 - Every replay reproduced its run
  1 - At least one replay differs or fails
  2 - Command error (database not found, etc.)

Examples:
  blocksched replay --db runs.db
  blocksched replay --db runs.db --circuit bell
  blocksched replay --db runs.db 0190a5c2-7b1e-7c3d-9a6f-1234567890ab --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Circuit, "circuit", "", "replay only runs of this circuit")
	cmd.Flags().BoolVar(&opts.NoPatch, "no-patch", false, "replay runs recorded with --no-patch")

	return cmd
}

func runReplay(opts *ReplayOptions, ids []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(ids) == 0 {
		runs, err := st.ListRuns(ctx, store.ListFilter{Circuit: opts.Circuit})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		// Oldest first.
		for i := len(runs) - 1; i >= 0; i-- {
			ids = append(ids, runs[i].ID)
		}
	}

	var engineOpts []engine.EngineOption
	if opts.NoPatch {
		engineOpts = append(engineOpts, engine.WithDurationOptions(durations.WithPatching(false)))
	}
	eng := engine.New(st, nil, engineOpts...)

	result := ReplayResult{
		Runs:     make([]ReplayRunResult, 0, len(ids)),
		Total:    len(ids),
		AllMatch: true,
	}
	for _, id := range ids {
		formatter.VerboseLog("Replaying: %s", id)
		rr := replayRun(ctx, eng, id)
		if errors.Is(ctx.Err(), context.Canceled) {
			return WrapExitError(ExitCommandError, "replay cancelled", ctx.Err())
		}
		if !rr.Match {
			result.AllMatch = false
		}
		result.Runs = append(result.Runs, rr)
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replayRun replays one run; failures are reported in the result.
func replayRun(ctx context.Context, eng *engine.Engine, id string) ReplayRunResult {
	rr := ReplayRunResult{RunID: id}
	res, err := eng.Replay(ctx, id)
	if err != nil {
		rr.Error = fmt.Sprintf("%s: %v", harness.ErrorCode(err), err)
		if errors.Is(err, store.ErrRunNotFound) {
			rr.Error = fmt.Sprintf("RUN_NOT_FOUND: no run %q", id)
		}
		return rr
	}
	rr.Seq = res.Recorded.Seq
	rr.Circuit = res.Recorded.Circuit
	rr.Policy = res.Recorded.Policy
	rr.Match = res.Match()
	rr.Mismatches = res.Mismatches
	return rr
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllMatch {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    string(engine.ErrCodeReplayMismatch),
			Message: "replay verification failed",
		}
	}

	encoder := json.NewEncoder(f.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllMatch {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	if result.Total == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.Total)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Match {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)

		switch {
		case run.Error != "":
			fmt.Fprintf(w, "  Error: %s\n", run.Error)
		case !run.Match:
			fmt.Fprintf(w, "  %s (%s, seq %d) differs in %v\n", run.Circuit, run.Policy, run.Seq, run.Mismatches)
		case f.Verbose:
			fmt.Fprintf(w, "  %s (%s, seq %d)\n", run.Circuit, run.Policy, run.Seq)
		}
	}
	fmt.Fprintln(w)

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All runs reproduced")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
