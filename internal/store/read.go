package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

const runColumns = `id, seq, circuit, graph_hash, padded_hash, schedule_hash, policy, options,
	time_unit, blocks, source, engine_version, ir_version`

// ReadRun returns a run with its slots in output order.
// Returns an error wrapping ErrRunNotFound if no run has the id.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Slots, err = s.readSlots(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

func (s *Store) readSlots(ctx context.Context, runID string) ([]SlotRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, path, node, label, kind, block, start
		FROM slots
		WHERE run_id = ?
		ORDER BY ord ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slots: %w", err)
	}
	defer rows.Close()

	slots := []SlotRow{}
	for rows.Next() {
		var r SlotRow
		if err := rows.Scan(&r.Ord, &r.Path, &r.Node, &r.Label, &r.Kind, &r.Block, &r.Start); err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}

// ListFilter narrows ListRuns. Zero fields match everything.
type ListFilter struct {
	Circuit   string
	GraphHash string
	// Limit caps the number of runs returned; 0 means no limit.
	Limit int
}

// ListRuns returns runs without their slots, newest first: ORDER BY seq
// DESC, id COLLATE BINARY ASC. Returns an empty slice (not nil) if nothing
// matches.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	var where []string
	var args []any
	if filter.Circuit != "" {
		where = append(where, "circuit = ?")
		args = append(args, filter.Circuit)
	}
	if filter.GraphHash != "" {
		where = append(where, "graph_hash = ?")
		args = append(args, filter.GraphHash)
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC, id COLLATE BINARY ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// MaxSeq returns the highest recorded seq, or 0 for an empty store.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

// CountSlotsByBlock returns the number of padded nodes per block of a run.
func (s *Store) CountSlotsByBlock(ctx context.Context, runID string) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT block, COUNT(*)
		FROM slots
		WHERE run_id = ?
		GROUP BY block
		ORDER BY block ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query slot counts: %w", err)
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var block, n int
		if err := rows.Scan(&block, &n); err != nil {
			return nil, fmt.Errorf("scan slot count: %w", err)
		}
		counts[block] = n
	}
	return counts, rows.Err()
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var r Run
	err := sc.Scan(
		&r.ID,
		&r.Seq,
		&r.Circuit,
		&r.GraphHash,
		&r.PaddedHash,
		&r.ScheduleHash,
		&r.Policy,
		&r.Options,
		&r.TimeUnit,
		&r.Blocks,
		&r.Source,
		&r.EngineVersion,
		&r.IRVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	return r, nil
}
