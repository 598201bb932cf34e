package store

import (
	"context"
	"testing"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun("run-0001", "bell", 1, 3)

	inserted, err := s.WriteRun(context.Background(), run)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if !inserted {
		t.Error("inserted = false, want true")
	}

	var circuit, graphHash, policy string
	var seq int64
	err = s.db.QueryRow(`
		SELECT circuit, graph_hash, policy, seq
		FROM runs
		WHERE id = ?
	`, run.ID).Scan(&circuit, &graphHash, &policy, &seq)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if circuit != "bell" {
		t.Errorf("circuit = %q, want %q", circuit, "bell")
	}
	if graphHash != run.GraphHash {
		t.Errorf("graph_hash = %q, want %q", graphHash, run.GraphHash)
	}
	if policy != "delay" {
		t.Errorf("policy = %q, want %q", policy, "delay")
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	var slots int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM slots WHERE run_id = ?`, run.ID).Scan(&slots); err != nil {
		t.Fatalf("count slots: %v", err)
	}
	if slots != 3 {
		t.Errorf("slots = %d, want 3", slots)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun("run-0001", "bell", 1, 2)
	if _, err := s.WriteRun(ctx, first); err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	// Same id, different content: first write wins.
	second := createTestRun("run-0001", "ghz", 7, 5)
	inserted, err := s.WriteRun(ctx, second)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}
	if inserted {
		t.Error("inserted = true on duplicate id")
	}

	got, err := s.ReadRun(ctx, "run-0001")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Circuit != "bell" || got.Seq != 1 {
		t.Errorf("run = (%q, %d), want (bell, 1)", got.Circuit, got.Seq)
	}
	if len(got.Slots) != 2 {
		t.Errorf("slots = %d, want 2", len(got.Slots))
	}
}

func TestWriteRun_EmptyID(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteRun(context.Background(), createTestRun("", "bell", 1, 0))
	if err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestWriteRun_DuplicateOrdRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun("run-0001", "bell", 1, 2)
	run.Slots[1].Ord = 0

	if _, err := s.WriteRun(ctx, run); err == nil {
		t.Fatal("expected error for duplicate slot ord")
	}

	var runs int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&runs); err != nil {
		t.Fatalf("count runs: %v", err)
	}
	if runs != 0 {
		t.Errorf("runs = %d after failed write, want 0", runs)
	}
}

func TestWriteRun_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.WriteRun(ctx, createTestRun("run-0001", "bell", 1, 1)); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestDeleteRun_CascadesSlots(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteRun(ctx, createTestRun("run-0001", "bell", 1, 4)); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if err := s.DeleteRun(ctx, "run-0001"); err != nil {
		t.Fatalf("DeleteRun() failed: %v", err)
	}

	var slots int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM slots`).Scan(&slots); err != nil {
		t.Fatalf("count slots: %v", err)
	}
	if slots != 0 {
		t.Errorf("slots = %d after delete, want 0", slots)
	}

	if err := s.DeleteRun(ctx, "run-0001"); err != nil {
		t.Errorf("second DeleteRun() failed: %v", err)
	}
}
