package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

// DomainRepository
func (db *DB) GetOrCreate(ctx context.Context, registrable string) (string, error) {
	registrable = strings.ToLower(registrable)
	var id string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO domains (registrable_domain)
		VALUES ($1)
		ON CONFLICT (registrable_domain) DO UPDATE SET registrable_domain = EXCLUDED.registrable_domain
		RETURNING id
	`, registrable).Scan(&id)
	return id, err
}

// ScanRepository

// Create inserts the scan and its queued job together.
func (db *DB) Create(ctx context.Context, domainID string, url string) (string, error) {
	var scanID string
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `
			INSERT INTO scans (domain_id, url, status, progress)
			VALUES ($1, $2, 'queued', 0)
			RETURNING id
		`, domainID, url).Scan(&scanID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO scan_jobs (scan_id) VALUES ($1)`, scanID)
		return err
	})
	return scanID, err
}

func (db *DB) Status(ctx context.Context, scanID string) (string, float64, error) {
	var status string
	var progress float64
	err := db.Pool.QueryRow(ctx, `SELECT status, progress FROM scans WHERE id = $1`, scanID).Scan(&status, &progress)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	return status, progress, err
}

func (db *DB) Get(ctx context.Context, scanID string) (domain.Scan, error) {
	var s domain.Scan
	err := db.Pool.QueryRow(ctx, `
		SELECT s.id, s.domain_id, d.registrable_domain, s.url, s.started_at, s.finished_at, s.status, s.progress
		FROM scans s
		JOIN domains d ON d.id = s.domain_id
		WHERE s.id = $1
	`, scanID).Scan(&s.ID, &s.DomainRef, &s.Domain, &s.URL, &s.StartedAt, &s.FinishedAt, &s.Status, &s.Progress)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// RecordSync stores the task synchronization report on the scan.
func (db *DB) RecordSync(ctx context.Context, scanID string, report ports.SyncReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode sync report: %w", err)
	}
	tag, err := db.Pool.Exec(ctx, `UPDATE scans SET sync_report = $2 WHERE id = $1`, scanID, b)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AnalysisRepository

// SaveAnalysis stores the result document. Analyses are immutable: saving
// the same id twice is an error.
func (db *DB) SaveAnalysis(ctx context.Context, res *domain.AnalysisResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	var verification *int
	if res.Validation != nil {
		v := res.Validation.VerificationScore
		verification = &v
	}
	_, err = db.Pool.Exec(ctx, `
		INSERT INTO analyses (id, scan_id, domain, overall, verification_score, crawl_reliable, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.ID, res.ScanID, res.Domain, res.Scores.Overall.Score, verification, res.CrawlReliable, b)
	return err
}

func (db *DB) LatestAnalysis(ctx context.Context, registrable string) (*domain.AnalysisResult, error) {
	var b []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT result FROM analyses
		WHERE domain = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, strings.ToLower(registrable)).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var res domain.AnalysisResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &res, nil
}
