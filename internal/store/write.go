package store

import (
	"context"
	"fmt"
	"log/slog"
)

// Run is one recorded scheduling run.
type Run struct {
	ID  string
	Seq int64

	Circuit      string
	GraphHash    string
	PaddedHash   string
	ScheduleHash string

	// Policy names the padding policy; Options holds its configuration as
	// canonical JSON.
	Policy  string
	Options string

	TimeUnit string
	Blocks   int

	// Source is the input circuit document as YAML.
	Source string

	EngineVersion string
	IRVersion     string

	// Slots is empty when the run was read without them.
	Slots []SlotRow
}

// SlotRow is the schedule entry of one node of the padded output.
type SlotRow struct {
	Ord   int
	Path  string
	Node  int
	Label string
	Kind  string
	Block int
	Start int64
}

// WriteRun inserts a run and its slots in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: writing the same run id
// twice keeps the first copy and reports inserted=false.
func (s *Store) WriteRun(ctx context.Context, run Run) (inserted bool, err error) {
	if run.ID == "" {
		return false, fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, circuit, graph_hash, padded_hash, schedule_hash, policy, options,
		 time_unit, blocks, source, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Seq,
		run.Circuit,
		run.GraphHash,
		run.PaddedHash,
		run.ScheduleHash,
		run.Policy,
		run.Options,
		run.TimeUnit,
		run.Blocks,
		run.Source,
		run.EngineVersion,
		run.IRVersion,
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	if n == 0 {
		err = tx.Rollback()
		return false, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO slots (run_id, ord, path, node, label, kind, block, start)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return false, fmt.Errorf("write slots: %w", err)
	}
	defer stmt.Close()

	for _, row := range run.Slots {
		if _, err = stmt.ExecContext(ctx, run.ID, row.Ord, row.Path, row.Node, row.Label, row.Kind, row.Block, row.Start); err != nil {
			return false, fmt.Errorf("write slot %d: %w", row.Ord, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}

	slog.Debug("run recorded",
		"run", run.ID,
		"seq", run.Seq,
		"circuit", run.Circuit,
		"slots", len(run.Slots),
	)
	return true, nil
}

// DeleteRun removes a run and its slots. Deleting a missing run is not an
// error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
