package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// StartRun creates a new RUNNING run for the order and returns its id.
func (s *SQLiteStore) StartRun(ctx context.Context, orderID string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	id := generateID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_order_id, status, started_at) VALUES (?, ?, ?, ?)`,
		id, orderID, RunStatusRunning, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FindWaitingForData returns the most recent WAITING_FOR_DATA run for
// the order, or nil if none exists.
func (s *SQLiteStore) FindWaitingForData(ctx context.Context, orderID string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, run_order_id, status, started_at, ended_at, workspace
		 FROM runs
		 WHERE run_order_id = ? AND status = ?
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`, orderID, RunStatusWaitingForData))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find waiting run: %w", err)
	}
	return run, nil
}

// SetRunStatus updates the run's status.
func (s *SQLiteStore) SetRunStatus(ctx context.Context, runID string, status RunStatus) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ? WHERE id = ?`, status, runID)
	if err != nil {
		return fmt.Errorf("failed to set run status: %w", err)
	}
	return nil
}

// EndRun sets the terminal status and stamps the end time together.
func (s *SQLiteStore) EndRun(ctx context.Context, runID string, status RunStatus) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`,
		status, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to end run: %w", err)
	}
	return nil
}

// LogWorkspace records the data-provisioning workspace handle.
func (s *SQLiteStore) LogWorkspace(ctx context.Context, runID, workspaceID string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET workspace = ? WHERE id = ?`, workspaceID, runID)
	if err != nil {
		return fmt.Errorf("failed to log workspace: %w", err)
	}
	return nil
}

// RecordOutputFiles replaces the run's output manifest atomically.
func (s *SQLiteStore) RecordOutputFiles(ctx context.Context, runID string, files []OutputFile) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM output_files WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear output files: %w", err)
	}
	for _, f := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO output_files (run_id, file_name, file_path, file_size) VALUES (?, ?, ?, ?)`,
			runID, f.FileName, f.FilePath, f.FileSize,
		); err != nil {
			return fmt.Errorf("failed to record output file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit output files: %w", err)
	}
	return nil
}

// FindEligibleOrderIDs returns up to limit order ids whose work should
// be (re)started: CREATED orders with no runs yet, or whose most recent
// run is parked in WAITING_FOR_DATA. Waiting orders come first so that
// resumptions are preferred over fresh starts; ties break newest first.
func (s *SQLiteStore) FindEligibleOrderIDs(ctx context.Context, limit int) ([]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT o.id
		 FROM run_orders o
		 LEFT JOIN runs r ON r.id = (
		     SELECT r2.id FROM runs r2
		     WHERE r2.run_order_id = o.id
		     ORDER BY r2.started_at DESC, r2.id DESC
		     LIMIT 1
		 )
		 WHERE o.status = ?
		   AND (r.id IS NULL OR r.status = ?)
		 ORDER BY CASE WHEN r.status = ? THEN 0 ELSE 1 END,
		          o.created_at DESC, o.id DESC
		 LIMIT ?`,
		OrderStatusCreated, RunStatusWaitingForData, RunStatusWaitingForData, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetRun retrieves a run with its sections, logs and output manifest.
// Returns nil if not found.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, run_order_id, status, started_at, ended_at, workspace
		 FROM runs WHERE id = ?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.Sections, err = s.loadSections(ctx, runID); err != nil {
		return nil, err
	}
	if run.OutputFiles, err = s.loadOutputFiles(ctx, runID); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run summaries for an order, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, orderID string) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_order_id, status, started_at, ended_at, workspace
		 FROM runs WHERE run_order_id = ?
		 ORDER BY started_at DESC, id DESC`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) loadOutputFiles(ctx context.Context, runID string) ([]OutputFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, file_path, file_size FROM output_files WHERE run_id = ? ORDER BY id`,
		runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load output files: %w", err)
	}
	defer rows.Close()

	var files []OutputFile
	for rows.Next() {
		var f OutputFile
		if err := rows.Scan(&f.FileName, &f.FilePath, &f.FileSize); err != nil {
			return nil, fmt.Errorf("failed to scan output file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

func scanRun(row scannable) (*Run, error) {
	run := &Run{}
	var endedAt sql.NullTime
	err := row.Scan(&run.ID, &run.OrderID, &run.Status, &run.Start, &endedAt, &run.Workspace)
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.End = &endedAt.Time
	}
	return run, nil
}
