package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksched/internal/circuit"
	"github.com/roach88/blocksched/internal/store"
	"github.com/roach88/blocksched/internal/testutil"
)

var (
	_ Sequencer = (*Clock)(nil)
	_ Sequencer = (*testutil.RunClock)(nil)
	_ Sequencer = (*countingSequencer)(nil)
)

// countingSequencer hands out seqs from base and counts how often it is asked.
type countingSequencer struct {
	base  int64
	calls int
}

func (s *countingSequencer) Next() int64 {
	s.calls++
	return s.base + int64(s.calls)
}

func TestClock_Sequence(t *testing.T) {
	c := NewClockAt(7)
	assert.Equal(t, int64(7), c.Current())
	assert.Equal(t, int64(8), c.Next())
	assert.Equal(t, int64(9), c.Next())
	assert.Equal(t, int64(9), c.Current(), "Current does not advance")
	assert.Equal(t, int64(0), NewClock().Current())
}

func TestClock_ConcurrentRunsGetDistinctSeqs(t *testing.T) {
	c := NewClock()
	const workers, perWorker = 16, 50

	var mu sync.Mutex
	seen := map[int64]bool{}
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				seq := c.Next()
				mu.Lock()
				seen[seq] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, int64(workers*perWorker), c.Current())
}

// =============================================================================
// Engine use
// =============================================================================

func TestClock_OnlyRecordedRunsTakeASeq(t *testing.T) {
	seq := &countingSequencer{base: 100}

	// Without a store nothing is recorded.
	res, err := New(nil, nil, WithClock(seq)).Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)
	assert.Zero(t, res.Seq)
	assert.Zero(t, seq.calls)

	e := New(openStore(t), NewFixedGenerator("run-1", "run-2"), WithClock(seq))

	// A failed run is never recorded.
	_, err = e.Run(t.Context(), circuit.FromGraph(testutil.GHZ4()), PolicyConfig{})
	require.Error(t, err)
	assert.Zero(t, seq.calls)

	res, err = e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)
	assert.Equal(t, int64(101), res.Seq)

	// Replays re-execute without recording.
	_, err = e.Replay(t.Context(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, seq.calls)
}

func TestClock_ResumeFollowsStoredMaxSeq(t *testing.T) {
	s := openStore(t)
	ids := testutil.NewSequentialIDs("seq")

	first := New(s, ids, WithClock(NewClockAt(41)))
	for range 2 {
		_, err := first.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{})
		require.NoError(t, err)
	}
	maxSeq, err := s.MaxSeq(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(43), maxSeq)

	// Removing the newest run frees its seq for the next resumed engine.
	require.NoError(t, s.DeleteRun(t.Context(), "seq-0002"))

	resumed, err := Resume(t.Context(), s, ids)
	require.NoError(t, err)
	res, err := resumed.Run(t.Context(), docFor(testutil.MidMeasure()), PolicyConfig{})
	require.NoError(t, err)
	assert.Equal(t, "seq-0003", res.RunID)
	assert.Equal(t, int64(43), res.Seq)

	runs, err := s.ListRuns(t.Context(), store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{"seq-0003", "seq-0001"}, []string{runs[0].ID, runs[1].ID})
}

func TestClock_ResumeOnEmptyStoreStartsAtOne(t *testing.T) {
	e, err := Resume(t.Context(), openStore(t), NewFixedGenerator("only"))
	require.NoError(t, err)

	res, err := e.Run(t.Context(), docFor(testutil.GHZ4()), PolicyConfig{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Seq)
}
