package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/passes"
	"github.com/roach88/blocksched/internal/store"
	"github.com/roach88/blocksched/internal/testutil"
)

// docFor wraps g in a document carrying the standard duration table.
func docFor(g *ir.Graph) *circuit.Document {
	d := circuit.FromGraph(g)
	d.Durations = testutil.StandardEntries()
	return d
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func qubitWire(g *ir.Graph, q int) []string {
	return ir.WireSequences(g)[ir.QubitWire(q).String()]
}

// =============================================================================
// Run
// =============================================================================

func TestEngine_RunWithoutStore(t *testing.T) {
	e := New(nil, nil)

	res, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)

	assert.Empty(t, res.RunID, "unrecorded run has no id")
	assert.Zero(t, res.Seq)
	assert.Equal(t, "ghz4", res.Circuit)
	assert.Equal(t, PolicyDelay, res.Policy.Name)
	assert.Equal(t, 1, res.Blocks)

	assert.Equal(t,
		[]string{"delay[950] q[3]", "cx q[2,3] #1", "barrier q[0,1,2,3] #1"},
		qubitWire(res.Output, 3))

	assert.Equal(t, ir.MustGraphHash(testutil.GHZ4()), res.GraphHash)
	assert.Len(t, res.PaddedHash, 64)
	assert.Len(t, res.ScheduleHash, 64)
	assert.NotEqual(t, res.GraphHash, res.PaddedHash)
}

func TestEngine_RunScheduleOnly(t *testing.T) {
	e := New(nil, nil)

	res, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{Name: PolicyNone})
	require.NoError(t, err)

	assert.Same(t, res.Input, res.Output, "no padder, no new graph")
	assert.Equal(t, res.GraphHash, res.PaddedHash)

	starts := map[string]int64{}
	for _, row := range res.Schedule() {
		n := row.Ref.Graph.Node(row.Ref.ID)
		starts[n.String()] = row.Slot.Start
	}
	assert.Equal(t, map[string]int64{
		"h q[0]":    0,
		"cx q[0,1]": 50,
		"cx q[1,2]": 750,
		"cx q[2,3]": 950,
	}, starts)
}

func TestEngine_RunDeterministic(t *testing.T) {
	e := New(nil, nil)

	a, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{})
	require.NoError(t, err)
	b, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{})
	require.NoError(t, err)

	assert.Equal(t, a.PaddedHash, b.PaddedHash)
	assert.Equal(t, a.ScheduleHash, b.ScheduleHash)
	assert.Equal(t, a.Slots(), b.Slots())
}

func TestEngine_RunDynamicalDecoupling(t *testing.T) {
	e := New(nil, nil)

	res, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{Name: PolicyDD})
	require.NoError(t, err)

	q0 := qubitWire(res.Output, 0)
	assert.Contains(t, q0, "x q[0]")
	assert.Contains(t, q0, "delay[250] q[0]", "1100 idle minus two x gates, balanced")
	assert.Contains(t, q0, "delay[500] q[0]")

	delay, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{})
	require.NoError(t, err)
	assert.NotEqual(t, delay.PaddedHash, res.PaddedHash)
	assert.Equal(t, delay.GraphHash, res.GraphHash)
}

func TestEngine_RunErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   func() *circuit.Document
		cfg   PolicyConfig
		opts  []EngineOption
		check func(error) bool
	}{
		{
			name:  "unknown policy",
			doc:   func() *circuit.Document { return docFor(testutil.GHZ4()) },
			cfg:   PolicyConfig{Name: "nope"},
			check: IsInvalidPolicy,
		},
		{
			name:  "bad spacing",
			doc:   func() *circuit.Document { return docFor(testutil.GHZ4()) },
			cfg:   PolicyConfig{Name: PolicyDD, Spacing: []float64{0.5, 0.6, 0.1}},
			check: IsInvalidPolicy,
		},
		{
			name:  "node quota",
			doc:   func() *circuit.Document { return docFor(testutil.GHZ4()) },
			opts:  []EngineOption{WithMaxNodes(3)},
			check: IsNodeQuota,
		},
		{
			name: "missing duration",
			doc: func() *circuit.Document {
				d := docFor(testutil.GHZ4())
				d.Ops = append(d.Ops, circuit.Op{Op: "sx", Qubits: []int{1}})
				return d
			},
			check: passes.IsDurationMissing,
		},
		{
			name: "invalid document",
			doc: func() *circuit.Document {
				d := docFor(testutil.GHZ4())
				d.Ops[0].Qubits = []int{9}
				return d
			},
			check: func(err error) bool {
				var de *circuit.DocumentError
				return errors.As(err, &de)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openStore(t)
			e := New(s, NewFixedGenerator("run-1"), tt.opts...)

			_, err := e.Run(t.Context(), tt.doc(), tt.cfg)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)

			runs, err := s.ListRuns(t.Context(), store.ListFilter{})
			require.NoError(t, err)
			assert.Empty(t, runs, "failed runs are not recorded")
		})
	}
}

func TestEngine_MaxNodesBoundary(t *testing.T) {
	e := New(nil, nil, WithMaxNodes(4))
	_, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{Name: PolicyNone})
	assert.NoError(t, err)

	e = New(nil, nil, WithMaxNodes(0))
	_, err = e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{Name: PolicyNone})
	assert.NoError(t, err, "zero disables the quota")
}

func TestEngine_RunCancelled(t *testing.T) {
	e := New(nil, nil)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := e.Run(ctx, docFor(testutil.GHZ4()), PolicyConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}

// =============================================================================
// Recording
// =============================================================================

func TestEngine_RecordsRuns(t *testing.T) {
	s := openStore(t)
	e := New(s, NewFixedGenerator("run-a", "run-b"))

	first, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)
	second, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{Name: PolicyDD})
	require.NoError(t, err)

	assert.Equal(t, "run-a", first.RunID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "run-b", second.RunID)
	assert.Equal(t, int64(2), second.Seq)

	run, err := s.ReadRun(t.Context(), "run-b")
	require.NoError(t, err)
	assert.Equal(t, "midmeas", run.Circuit)
	assert.Equal(t, "dd", run.Policy)
	assert.Equal(t, `{"alignment":1,"distribution":"middle","name":"dd","sequence":["x","x"],"skip_reset":true}`, run.Options)
	assert.Equal(t, second.GraphHash, run.GraphHash)
	assert.Equal(t, second.PaddedHash, run.PaddedHash)
	assert.Equal(t, second.ScheduleHash, run.ScheduleHash)
	assert.Equal(t, second.Blocks, run.Blocks)
	assert.Equal(t, "dt", run.TimeUnit)
	assert.Equal(t, ir.EngineVersion, run.EngineVersion)
	assert.Equal(t, second.Slots(), run.Slots)

	runs, err := s.ListRuns(t.Context(), store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID, "newest first")
}

func TestEngine_SlotsCoverOutput(t *testing.T) {
	e := New(nil, nil)
	res, err := e.Run(t.Context(), docFor(testutil.FastPathIf()), PolicyConfig{})
	require.NoError(t, err)

	slots := res.Slots()
	var root int
	for i, row := range slots {
		assert.Equal(t, i, row.Ord)
		if row.Path == "root" {
			root++
		}
	}
	assert.Equal(t, res.Output.Len(), root)
	assert.Greater(t, len(slots), root, "nested block rows follow the if_else")
}

func TestResume_ContinuesSeq(t *testing.T) {
	s := openStore(t)

	e := New(s, NewFixedGenerator("run-1", "run-2"))
	for range 2 {
		_, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
		require.NoError(t, err)
	}

	resumed, err := Resume(t.Context(), s, NewFixedGenerator("run-3"))
	require.NoError(t, err)
	res, err := resumed.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Seq)
}

func TestResume_ClockOptionWins(t *testing.T) {
	s := openStore(t)
	clock := testutil.NewRunClock(40)

	e, err := Resume(t.Context(), s, testutil.NewSequentialIDs(""), WithClock(clock))
	require.NoError(t, err)
	res, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)

	assert.Equal(t, "run-0001", res.RunID)
	assert.Equal(t, int64(41), res.Seq)
}

// =============================================================================
// Replay
// =============================================================================

func TestEngine_ReplayMatches(t *testing.T) {
	s := openStore(t)
	e := New(s, NewFixedGenerator("run-1", "run-2"))

	for _, cfg := range []PolicyConfig{
		{},
		{Name: PolicyDD, Sequence: []string{"x", "y", "x", "y"}, Spacing: []float64{0.125, 0.25, 0.25, 0.25, 0.125}, Alignment: 2},
	} {
		_, err := e.Run(t.Context(), docFor(testutil.MidMeasure()), cfg)
		require.NoError(t, err)
	}

	for _, id := range []string{"run-1", "run-2"} {
		rep, err := e.Replay(t.Context(), id)
		require.NoError(t, err)
		assert.True(t, rep.Match(), "%s mismatches: %v", id, rep.Mismatches)
		assert.NoError(t, rep.Err())
		assert.Empty(t, rep.Replayed.RunID, "replays are not recorded")
	}

	runs, err := s.ListRuns(t.Context(), store.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestEngine_ReplayDetectsMismatch(t *testing.T) {
	s := openStore(t)
	e := New(s, NewFixedGenerator("run-1"))

	_, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)

	_, err = s.DB().Exec(`UPDATE runs SET schedule_hash = 'stale' WHERE id = 'run-1'`)
	require.NoError(t, err)

	rep, err := e.Replay(t.Context(), "run-1")
	require.NoError(t, err)
	assert.False(t, rep.Match())
	assert.Equal(t, []string{"schedule_hash"}, rep.Mismatches)
	assert.True(t, IsReplayMismatch(rep.Err()))
	assert.Contains(t, rep.Err().Error(), "run=run-1")
}

func TestEngine_ReplayErrors(t *testing.T) {
	s := openStore(t)
	e := New(s, NewFixedGenerator("run-1", "run-2"))

	for range 2 {
		_, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
		require.NoError(t, err)
	}
	_, err := s.DB().Exec(`UPDATE runs SET source = 'name: [' WHERE id = 'run-1'`)
	require.NoError(t, err)
	_, err = s.DB().Exec(`UPDATE runs SET options = 'not json' WHERE id = 'run-2'`)
	require.NoError(t, err)

	_, err = e.Replay(t.Context(), "run-1")
	assert.True(t, IsCorruptRun(err), "corrupt source: %v", err)

	_, err = e.Replay(t.Context(), "run-2")
	assert.True(t, IsCorruptRun(err), "corrupt options: %v", err)

	_, err = e.Replay(t.Context(), "missing")
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	_, err = New(nil, nil).Replay(t.Context(), "run-1")
	assert.Error(t, err)
}
