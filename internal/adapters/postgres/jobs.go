package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"sitescope/internal/ports"
)

// ClaimNext selects the next queued job using SKIP LOCKED and marks it and
// its scan running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.ScanJob, found bool, err error) {
	err = db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, scan_id FROM scan_jobs
			WHERE status = 'queued'
			ORDER BY queued_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		`).Scan(&job.ID, &job.ScanID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return startJob(ctx, tx, job.ID, job.ScanID)
	})
	if err != nil {
		return ports.ScanJob{}, false, err
	}
	return job, found, nil
}

// StartJobForScan claims the queued job of one specific scan, for the
// synchronous path.
func (db *DB) StartJobForScan(ctx context.Context, scanID string) (string, error) {
	var jobID string
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id FROM scan_jobs
			WHERE scan_id = $1 AND status = 'queued'
			FOR UPDATE SKIP LOCKED
		`, scanID).Scan(&jobID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return startJob(ctx, tx, jobID, scanID)
	})
	return jobID, err
}

func startJob(ctx context.Context, tx pgx.Tx, jobID, scanID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE scan_jobs SET status = 'running', started_at = now(), attempts = attempts + 1 WHERE id = $1
	`, jobID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE scans SET status = 'running', started_at = COALESCE(started_at, now()) WHERE id = $1
	`, scanID)
	return err
}

func (db *DB) UpdateScanProgress(ctx context.Context, scanID string, progress float64) error {
	progress = min(max(progress, 0), 1)
	_, err := db.Pool.Exec(ctx, `UPDATE scans SET progress = $2 WHERE id = $1`, scanID, progress)
	return err
}

// MarkCompleted completes the job and its scan atomically.
func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.finishJob(ctx, jobID, "completed", "")
}

// MarkFailed records reason on both the job and its scan.
func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.finishJob(ctx, jobID, "failed", reason)
}

func (db *DB) finishJob(ctx context.Context, jobID, status, reason string) error {
	var errText *string
	if reason != "" {
		errText = &reason
	}
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var scanID string
		if err := tx.QueryRow(ctx, `
			UPDATE scan_jobs SET status = $2, finished_at = now(), last_error = $3
			WHERE id = $1
			RETURNING scan_id
		`, jobID, status, errText).Scan(&scanID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		_, err := tx.Exec(ctx, `
			UPDATE scans
			SET status = $2, error = $3, finished_at = now(),
				progress = CASE WHEN $2 = 'completed' THEN 1 ELSE progress END
			WHERE id = $1
		`, scanID, status, errText)
		return err
	})
}
