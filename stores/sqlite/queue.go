// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mdhender/snippet/model"
)

// workColumns is the column list scanWork expects.
const workColumns = `id, source_id, stage, status, attempt, available_at,
	locked_by, locked_at, started_at, finished_at, error_code, error_message`

// InsertWork queues a job and returns its id.
func (s *SQLiteStore) InsertWork(ctx context.Context, work *model.Work) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO work (source_id, stage, status, attempt, available_at) VALUES (?, ?, ?, ?, ?)`,
		work.SourceID, work.Stage, work.Status, work.Attempt, formatTime(work.AvailableAt))
	if err != nil {
		return 0, fmt.Errorf("insert work: %w", err)
	}
	return result.LastInsertId()
}

// ClaimWork locks the oldest available queued job for stage and bumps its
// attempt counter. The select and the update are one statement, so two
// workers never get the same job. Returns nil, nil when the queue is empty.
func (s *SQLiteStore) ClaimWork(ctx context.Context, stage, workerID string) (*model.Work, error) {
	const query = `
		UPDATE work
		SET status = ?, locked_by = ?, locked_at = ?,
		    started_at = COALESCE(started_at, ?), attempt = attempt + 1
		WHERE id = (
			SELECT id FROM work
			WHERE stage = ? AND status = ? AND available_at <= ?
			ORDER BY available_at, id
			LIMIT 1)
		RETURNING ` + workColumns
	now := formatTime(time.Now())
	work, err := scanWork(s.db.QueryRowContext(ctx, query,
		model.WorkStatusRunning, workerID, now, now,
		stage, model.WorkStatusQueued, now))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("claim work: %w", err)
	}
	return work, nil
}

// FinishWork records the outcome of a job and releases its lock.
// Empty codes and messages are stored as NULL.
func (s *SQLiteStore) FinishWork(ctx context.Context, id int64, status, errorCode, errorMsg string) error {
	const query = `
		UPDATE work
		SET status = ?, finished_at = ?, error_code = ?, error_message = ?,
		    locked_by = NULL, locked_at = NULL
		WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query,
		status, formatTime(time.Now()), nullString(errorCode), nullString(errorMsg), id); err != nil {
		return fmt.Errorf("finish work %d: %w", id, err)
	}
	return nil
}

// ResetFailedWork puts every failed job for stage back on the queue and
// returns how many were requeued. The attempt counter is kept.
func (s *SQLiteStore) ResetFailedWork(ctx context.Context, stage string) (int, error) {
	const query = `
		UPDATE work
		SET status = ?, available_at = ?,
		    locked_by = NULL, locked_at = NULL, finished_at = NULL,
		    error_code = NULL, error_message = NULL
		WHERE stage = ? AND status = ?`
	result, err := s.db.ExecContext(ctx, query,
		model.WorkStatusQueued, formatTime(time.Now()), stage, model.WorkStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("reset failed work: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset failed work: %w", err)
	}
	return int(n), nil
}

// GetFailedWork lists the failed jobs for stage in id order.
func (s *SQLiteStore) GetFailedWork(ctx context.Context, stage string) ([]model.Work, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workColumns+` FROM work WHERE stage = ? AND status = ? ORDER BY id`,
		stage, model.WorkStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("get failed work: %w", err)
	}
	defer rows.Close()

	var jobs []model.Work
	for rows.Next() {
		job, err := scanWork(rows)
		if err != nil {
			return nil, fmt.Errorf("get failed work: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// GetWorkSummaryByRun counts the jobs of the sources first stored by runID,
// keyed by stage and then status.
func (s *SQLiteStore) GetWorkSummaryByRun(ctx context.Context, runID string) (map[string]map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.stage, w.status, COUNT(*)
		FROM work w JOIN sources src ON src.id = w.source_id
		WHERE src.run_id = ?
		GROUP BY w.stage, w.status`, runID)
	if err != nil {
		return nil, fmt.Errorf("work summary: %w", err)
	}
	defer rows.Close()

	summary := map[string]map[string]int{}
	for rows.Next() {
		var stage, status string
		var count int
		if err := rows.Scan(&stage, &status, &count); err != nil {
			return nil, fmt.Errorf("work summary: %w", err)
		}
		byStatus, ok := summary[stage]
		if !ok {
			byStatus = map[string]int{}
			summary[stage] = byStatus
		}
		byStatus[status] = count
	}
	return summary, rows.Err()
}

// rowScanner lets scanWork read from QueryRow and Query results.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanWork(row rowScanner) (*model.Work, error) {
	var (
		job                               model.Work
		availableAt                       string
		lockedBy, errorCode, errorMessage sql.NullString
		lockedAt, startedAt, finishedAt   sql.NullString
	)
	err := row.Scan(&job.ID, &job.SourceID, &job.Stage, &job.Status, &job.Attempt, &availableAt,
		&lockedBy, &lockedAt, &startedAt, &finishedAt, &errorCode, &errorMessage)
	if err != nil {
		return nil, err
	}
	job.AvailableAt = parseTime(availableAt)
	job.LockedBy, job.ErrorCode, job.ErrorMessage = nullStringPtr(lockedBy), nullStringPtr(errorCode), nullStringPtr(errorMessage)
	job.LockedAt, job.StartedAt, job.FinishedAt = parseTimePtr(lockedAt), parseTimePtr(startedAt), parseTimePtr(finishedAt)
	return &job, nil
}
