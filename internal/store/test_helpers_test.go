package store

import (
	"fmt"
	"path/filepath"
	"testing"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields and n slots in
// block 0, spaced 50 apart on wire q0.
func createTestRun(id, circuit string, seq int64, n int) Run {
	run := Run{
		ID:            id,
		Seq:           seq,
		Circuit:       circuit,
		GraphHash:     "graph-" + circuit,
		PaddedHash:    "padded-" + id,
		ScheduleHash:  "schedule-" + id,
		Policy:        "delay",
		Options:       "{}",
		TimeUnit:      "dt",
		Blocks:        1,
		Source:        "name: " + circuit + "\nqubits: 1\n",
		EngineVersion: "0.1.0",
		IRVersion:     "1",
	}
	for i := range n {
		run.Slots = append(run.Slots, SlotRow{
			Ord:   i,
			Path:  circuit,
			Node:  i,
			Label: fmt.Sprintf("x[50] q[0] #%d", i),
			Kind:  "gate",
			Block: 0,
			Start: int64(i * 50),
		})
	}
	return run
}
