package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, run_id, kind, topic, title, output_dir, status, progress_stage, progress_message, turn_count, segment_count, skipped_images, video_path, outcome, error_message, created_at, updated_at, finished_at, notified_at"

// Create inserts a pending run. A random run id is assigned when runID is empty.
func (s *Store) Create(ctx context.Context, runID, kind, topic, outputDir string) (*Run, error) {
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, errors.New("create run: kind required")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		runID = uuid.NewString()
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            run_id, kind, topic, output_dir, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID,
		kind,
		nullableString(strings.TrimSpace(topic)),
		nullableString(outputDir),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a run by row id. A missing run yields nil without error.
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindByRunID fetches a run by its public id or an unambiguous prefix of it.
func (s *Store) FindByRunID(ctx context.Context, runID string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE run_id = ? OR run_id LIKE ? ESCAPE '\' ORDER BY id LIMIT 2`,
		runID, escapeLike(runID)+"%")
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.RunID == runID {
			return run, nil
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", runID)
	}
}

// Update persists every mutable field of run and refreshes its updated_at.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("update run: nil run")
	}
	run.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
            title = ?, output_dir = ?, status = ?, progress_stage = ?, progress_message = ?,
            turn_count = ?, segment_count = ?, skipped_images = ?, video_path = ?,
            outcome = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE id = ?`,
		nullableString(run.Title),
		nullableString(run.OutputDir),
		run.Status,
		nullableString(run.ProgressStage),
		nullableString(run.ProgressMessage),
		run.TurnCount,
		run.SegmentCount,
		run.SkippedImages,
		nullableString(run.VideoPath),
		nullableString(run.Outcome),
		nullableString(run.ErrorMessage),
		run.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update run %d: not found", run.ID)
	}
	return nil
}

// List returns the most recent runs first, optionally filtered by status.
// A non-positive limit returns every matching run.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// MarkInterrupted fails the given runs if they are still in a non-terminal
// status. Callers pass runs whose owning process is known to be gone.
func (s *Store) MarkInterrupted(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args := []any{StatusFailed, now, now}
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusPending, StatusWriting, StatusRendering, StatusAssembling)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET status = ?, outcome = 'interrupted', error_message = 'Process exited before the run finished',
             updated_at = ?, finished_at = ?
         WHERE id IN (`+makePlaceholders(len(ids))+`) AND status IN (?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Unfinished returns runs still in a non-terminal status.
func (s *Store) Unfinished(ctx context.Context) ([]*Run, error) {
	return s.List(ctx, 0, StatusPending, StatusWriting, StatusRendering, StatusAssembling)
}

// Stats counts runs per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// MarkNotified records that the run's notification was delivered.
func (s *Store) MarkNotified(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("mark notified: nil run")
	}
	now := time.Now().UTC()
	if _, err := s.execWithRetry(ctx, `UPDATE runs SET notified_at = ? WHERE id = ?`, nullableTime(&now), run.ID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	run.NotifiedAt = &now
	return nil
}

// Remove deletes a run record. Files on disk are left alone.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
