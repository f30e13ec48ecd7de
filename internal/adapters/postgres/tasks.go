package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"sitescope/internal/domain"
)

const taskColumns = `id, domain, stable_key, category, title, description, how_to,
	effort, priority, status, created_at, updated_at, completed_at, last_seen_scan_id, rule_id`

const insertTaskSQL = `INSERT INTO tasks (` + taskColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

const updateTaskSQL = `UPDATE tasks SET
	category = $2, title = $3, description = $4, how_to = $5, effort = $6, priority = $7,
	status = $8, updated_at = $9, completed_at = $10, last_seen_scan_id = $11, rule_id = $12
	WHERE id = $1`

func insertArgs(t domain.Task) []any {
	return []any{t.ID, t.Domain, t.Key, string(t.Category), t.Title, t.Description, t.HowTo,
		string(t.Effort), string(t.Priority), string(t.Status), t.CreatedAt, t.UpdatedAt, t.CompletedAt, t.LastSeenScanID, t.RuleID}
}

func updateArgs(t domain.Task) []any {
	return []any{t.ID, string(t.Category), t.Title, t.Description, t.HowTo, string(t.Effort),
		string(t.Priority), string(t.Status), t.UpdatedAt, t.CompletedAt, t.LastSeenScanID, t.RuleID}
}

func (db *DB) ListByDomain(ctx context.Context, registrable string) ([]domain.Task, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE domain = $1 ORDER BY created_at, stable_key`, registrable)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Task, error) {
		var (
			t                                  domain.Task
			category, effort, priority, status string
		)
		err := row.Scan(&t.ID, &t.Domain, &t.Key, &category, &t.Title, &t.Description, &t.HowTo,
			&effort, &priority, &status, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt, &t.LastSeenScanID, &t.RuleID)
		t.Category = domain.CategoryKey(category)
		t.Effort = domain.Effort(effort)
		t.Priority = domain.Priority(priority)
		t.Status = domain.TaskStatus(status)
		return t, err
	})
}

// ApplyBatch writes inserts and updates in one transaction. A conflicting
// insert fails the whole batch so the caller can fall back to row writes.
func (db *DB) ApplyBatch(ctx context.Context, inserts, updates []domain.Task) error {
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}
	return db.inTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, t := range inserts {
			batch.Queue(insertTaskSQL, insertArgs(t)...)
		}
		for _, t := range updates {
			batch.Queue(updateTaskSQL, updateArgs(t)...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("batch statement %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// InsertTask ignores a task whose (domain, stable_key) already exists.
func (db *DB) InsertTask(ctx context.Context, t domain.Task) error {
	_, err := db.Pool.Exec(ctx, insertTaskSQL+` ON CONFLICT (domain, stable_key) DO NOTHING`, insertArgs(t)...)
	return err
}

func (db *DB) UpdateTask(ctx context.Context, t domain.Task) error {
	tag, err := db.Pool.Exec(ctx, updateTaskSQL, updateArgs(t)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
