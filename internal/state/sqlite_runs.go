package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sftprep/pkg/core"
)

const runColumns = `id, command, families, steps, status, started_at, completed_at, error`

// CreateRun creates a new running run.
func (s *SQLiteStore) CreateRun(ctx context.Context, command string, families []core.Family, steps []core.Step) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &Run{
		ID:        generateID(),
		Command:   command,
		Families:  families,
		Steps:     steps,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("command", command))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, command, families, steps, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, joinList(families), joinList(steps), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun marks a run finished with status.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun retrieves a run by id or by a unique id prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id = ? DESC LIMIT 2`,
		id, len(id), id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(runs) > 1 && runs[0].ID != id:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
	return runs[0], nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRuns(rows)
}

// RecordStage inserts a stage run, assigning an id when sr has none.
func (s *SQLiteStore) RecordStage(ctx context.Context, sr *StageRun) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if sr.ID == "" {
		sr.ID = generateID()
	}
	if sr.StartedAt.IsZero() {
		sr.StartedAt = time.Now().UTC()
	}
	var completed sql.NullString
	if sr.CompletedAt != nil {
		completed = sql.NullString{String: formatTime(*sr.CompletedAt), Valid: true}
	}

	s.logger.Debug("recording stage",
		slog.String("run_id", sr.RunID),
		slog.String("family", string(sr.Family)),
		slog.String("step", string(sr.Step)),
		slog.String("status", string(sr.Status)))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_runs (id, run_id, family, step, status, rows_in, rows_out, removed, started_at, completed_at, error, details)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.RunID, string(sr.Family), string(sr.Step), string(sr.Status),
		sr.RowsIn, sr.RowsOut, sr.Removed,
		formatTime(sr.StartedAt), completed, nullString(sr.Error), nullString(sr.Details),
	)
	if err != nil {
		return fmt.Errorf("failed to record stage %s/%s: %w", sr.Family, sr.Step, err)
	}
	return nil
}

// ListStageRuns returns a run's stage runs in execution order.
func (s *SQLiteStore) ListStageRuns(ctx context.Context, runID string) ([]*StageRun, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, family, step, status, rows_in, rows_out, removed, started_at, completed_at, error, details
		 FROM stage_runs WHERE run_id = ? ORDER BY started_at, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stage runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*StageRun
	for rows.Next() {
		var (
			sr              StageRun
			family, step    string
			status, started string
			completed       sql.NullString
			errMsg, details sql.NullString
		)
		if err := rows.Scan(&sr.ID, &sr.RunID, &family, &step, &status,
			&sr.RowsIn, &sr.RowsOut, &sr.Removed, &started, &completed, &errMsg, &details); err != nil {
			return nil, fmt.Errorf("failed to scan stage run: %w", err)
		}
		sr.Family = core.Family(family)
		sr.Step = core.Step(step)
		sr.Status = RunStatus(status)
		sr.Error = errMsg.String
		sr.Details = details.String
		if sr.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if sr.CompletedAt, err = parseNullTime(completed); err != nil {
			return nil, err
		}
		out = append(out, &sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stage runs: %w", err)
	}
	return out, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var out []*Run
	for rows.Next() {
		var (
			run                     Run
			families, steps, status string
			started                 string
			completed, errMsg       sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Command, &families, &steps, &status, &started, &completed, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Families = splitList[core.Family](families)
		run.Steps = splitList[core.Step](steps)
		run.Status = RunStatus(status)
		run.Error = errMsg.String

		var err error
		if run.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if run.CompletedAt, err = parseNullTime(completed); err != nil {
			return nil, err
		}
		out = append(out, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return out, nil
}
