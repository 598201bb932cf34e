package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/passes"
	"github.com/roach88/blocksched/internal/store"
)

// Engine runs circuits through the scheduling pipeline and records the runs.
//
// Thread-safety: Run and Replay may be called concurrently when the id
// generator and sequencer are safe for concurrent use; the store serializes
// writes.
type Engine struct {
	store     *store.Store // nil: runs are not recorded
	ids       IDGenerator
	clock     Sequencer
	quota     *NodeQuota
	tableOpts []durations.Option
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock replaces the engine's logical clock.
func WithClock(c Sequencer) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMaxNodes sets the node quota per circuit.
//
// Default: 100000 nodes (DefaultMaxNodes). Zero disables the check.
func WithMaxNodes(maxNodes int) EngineOption {
	return func(e *Engine) {
		e.quota = NewNodeQuota(maxNodes)
	}
}

// WithDurationOptions configures the duration table built from each
// document, e.g. durations.WithPatching(false).
func WithDurationOptions(opts ...durations.Option) EngineOption {
	return func(e *Engine) {
		e.tableOpts = append(e.tableOpts, opts...)
	}
}

// New creates an Engine. A nil store runs without recording; a nil ids uses
// UUIDv7Generator.
func New(s *store.Store, ids IDGenerator, opts ...EngineOption) *Engine {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	e := &Engine{
		store: s,
		ids:   ids,
		clock: NewClock(),
		quota: NewNodeQuota(DefaultMaxNodes),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Resume creates an Engine whose clock continues after the highest seq in s.
// A WithClock option still wins.
func Resume(ctx context.Context, s *store.Store, ids IDGenerator, opts ...EngineOption) (*Engine, error) {
	seq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume engine: %w", err)
	}
	opts = append([]EngineOption{WithClock(NewClockAt(seq))}, opts...)
	return New(s, ids, opts...), nil
}

// Store returns the engine's store, nil when runs are not recorded.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Result is the outcome of one run.
type Result struct {
	// RunID and Seq are empty when the run was not recorded.
	RunID string
	Seq   int64

	Circuit string
	Policy  PolicyConfig

	Input  *ir.Graph
	Output *ir.Graph

	// Pass holds the schedule of Output and its nested block graphs.
	Pass *passes.PassContext

	GraphHash    string
	PaddedHash   string
	ScheduleHash string

	// Blocks is the number of execution blocks of the root graph.
	Blocks int
}

// Schedule returns the flattened schedule of the output.
func (r *Result) Schedule() []passes.ScheduledNode {
	return r.Pass.NodeStartTime.Flatten(r.Output, r.Pass.NodeBlockGraphs)
}

// Slots returns the store rows for the output schedule.
func (r *Result) Slots() []store.SlotRow {
	rows := r.Schedule()
	out := make([]store.SlotRow, len(rows))
	for i, row := range rows {
		n := row.Ref.Graph.Node(row.Ref.ID)
		out[i] = store.SlotRow{
			Ord:   i,
			Path:  row.Path,
			Node:  int(row.Ref.ID),
			Label: n.String(),
			Kind:  n.Kind.String(),
			Block: row.Slot.Block,
			Start: row.Slot.Start,
		}
	}
	return out
}

// Run schedules and pads doc with cfg. With a store, the run is stamped with
// an id and seq and recorded together with the document source.
func (e *Engine) Run(ctx context.Context, doc *circuit.Document, cfg PolicyConfig) (*Result, error) {
	res, err := e.execute(ctx, doc, cfg)
	if err != nil {
		return nil, err
	}
	if e.store == nil {
		return res, nil
	}
	if err := e.record(ctx, doc, res); err != nil {
		return nil, err
	}
	return res, nil
}

// execute runs the pipeline without touching the store.
func (e *Engine) execute(ctx context.Context, doc *circuit.Document, cfg PolicyConfig) (*Result, error) {
	if err := circuit.Validate(doc); err != nil {
		return nil, err
	}
	g, err := doc.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", doc.Name, err)
	}
	if err := e.quota.Check(g); err != nil {
		return nil, err
	}

	table, err := doc.Table(e.tableOpts...)
	if err != nil {
		return nil, fmt.Errorf("durations for %s: %w", doc.Name, err)
	}

	cfg = cfg.Normalized()
	policy, err := cfg.Build(table)
	if err != nil {
		return nil, err
	}

	pipeline := []passes.Pass{passes.NewScheduler(table)}
	if policy != nil {
		pipeline = append(pipeline, passes.NewPadder(policy))
	}

	pc := passes.NewPassContext(table)
	out, err := passes.NewManager(pipeline...).Run(ctx, pc, g)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", doc.Name, err)
	}

	res := &Result{
		Circuit: doc.Name,
		Policy:  cfg,
		Input:   g,
		Output:  out,
		Pass:    pc,
		Blocks:  len(pc.NodeStartTime.Blocks(out)),
	}
	if res.GraphHash, err = ir.GraphHash(g); err != nil {
		return nil, err
	}
	if res.PaddedHash, err = ir.GraphHash(out); err != nil {
		return nil, err
	}
	if res.ScheduleHash, err = pc.NodeStartTime.Fingerprint(out, pc.NodeBlockGraphs); err != nil {
		return nil, err
	}

	slog.Debug("run complete",
		"circuit", doc.Name,
		"policy", cfg.Name,
		"blocks", res.Blocks,
		"nodes", out.Len(),
	)
	return res, nil
}

func (e *Engine) record(ctx context.Context, doc *circuit.Document, res *Result) error {
	source, err := circuit.EncodeYAML(doc)
	if err != nil {
		return err
	}
	options, err := res.Policy.Canonical()
	if err != nil {
		return err
	}

	res.RunID = e.ids.Generate()
	res.Seq = e.clock.Next()

	inserted, err := e.store.WriteRun(ctx, store.Run{
		ID:            res.RunID,
		Seq:           res.Seq,
		Circuit:       res.Circuit,
		GraphHash:     res.GraphHash,
		PaddedHash:    res.PaddedHash,
		ScheduleHash:  res.ScheduleHash,
		Policy:        res.Policy.Name,
		Options:       options,
		TimeUnit:      res.Pass.TimeUnit,
		Blocks:        res.Blocks,
		Source:        string(source),
		EngineVersion: ir.EngineVersion,
		IRVersion:     ir.IRVersion,
		Slots:         res.Slots(),
	})
	if err != nil {
		return fmt.Errorf("record run %s: %w", res.RunID, err)
	}
	if !inserted {
		return fmt.Errorf("record run %s: id already recorded", res.RunID)
	}

	slog.Info("run recorded",
		"run", res.RunID,
		"seq", res.Seq,
		"circuit", res.Circuit,
		"policy", res.Policy.Name,
	)
	return nil
}

// ReplayResult compares a recorded run with a fresh execution of its source.
type ReplayResult struct {
	Recorded store.Run
	Replayed *Result

	// Mismatches names the fingerprints that differ: "graph_hash",
	// "padded_hash", "schedule_hash".
	Mismatches []string
}

// Match reports whether the replay reproduced every fingerprint.
func (r *ReplayResult) Match() bool {
	return len(r.Mismatches) == 0
}

// Err returns a replay mismatch error, or nil on a match.
func (r *ReplayResult) Err() error {
	if r.Match() {
		return nil
	}
	return NewReplayMismatchError(r.Recorded.ID, r.Mismatches)
}

// Replay re-executes a recorded run from its stored source and options. The
// replay itself is not recorded.
func (e *Engine) Replay(ctx context.Context, runID string) (*ReplayResult, error) {
	if e.store == nil {
		return nil, errors.New("replay: engine has no store")
	}
	run, err := e.store.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	doc, err := circuit.ParseYAML([]byte(run.Source))
	if err != nil {
		return nil, NewCorruptRunError(run.ID, "source", err)
	}
	cfg, err := ParsePolicyOptions(run.Options)
	if err != nil {
		return nil, NewCorruptRunError(run.ID, "options", err)
	}

	res, err := e.execute(ctx, doc, cfg)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", run.ID, err)
	}

	out := &ReplayResult{Recorded: run, Replayed: res}
	if res.GraphHash != run.GraphHash {
		out.Mismatches = append(out.Mismatches, "graph_hash")
	}
	if res.PaddedHash != run.PaddedHash {
		out.Mismatches = append(out.Mismatches, "padded_hash")
	}
	if res.ScheduleHash != run.ScheduleHash {
		out.Mismatches = append(out.Mismatches, "schedule_hash")
	}

	slog.Debug("run replayed",
		"run", run.ID,
		"match", out.Match(),
	)
	return out, nil
}
