// Package tasks implements the user-facing task operations.
package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

type Service struct {
	repo   ports.TaskRepository
	locker ports.DomainLocker
	log    *zap.Logger
	now    func() time.Time
}

// New shares locker with the synchronizer so a manual completion never
// interleaves with a scan's task writes.
func New(repo ports.TaskRepository, locker ports.DomainLocker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, locker: locker, log: log, now: time.Now}
}

// List returns the domain's tasks, optionally filtered by status, most
// urgent first.
func (s *Service) List(ctx context.Context, registrable string, status domain.TaskStatus) ([]domain.Task, error) {
	all, err := s.repo.ListByDomain(ctx, registrable)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]domain.Task, 0, len(all))
	for _, t := range all {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Outstanding() != b.Outstanding() {
			return a.Outstanding()
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.Key < b.Key
	})
	return out, nil
}

// Complete marks an outstanding task as fixed by the user. Completing a task
// that is already completed or verified changes nothing.
func (s *Service) Complete(ctx context.Context, registrable, taskID string) (domain.Task, error) {
	unlock, err := s.locker.LockDomain(ctx, registrable)
	if err != nil {
		return domain.Task{}, fmt.Errorf("lock tasks for %s: %w", registrable, err)
	}
	defer unlock()

	all, err := s.repo.ListByDomain(ctx, registrable)
	if err != nil {
		return domain.Task{}, fmt.Errorf("list tasks: %w", err)
	}
	for _, t := range all {
		if t.ID != taskID {
			continue
		}
		if t.Resolved() {
			return t, nil
		}
		now := s.now().UTC()
		t.Status = domain.TaskCompleted
		t.CompletedAt = &now
		t.UpdatedAt = now
		if err := s.repo.UpdateTask(ctx, t); err != nil {
			return domain.Task{}, fmt.Errorf("complete task %s: %w", taskID, err)
		}
		s.log.Info("task completed", zap.String("domain", registrable), zap.String("task_id", taskID), zap.String("key", t.Key))
		return t, nil
	}
	return domain.Task{}, domain.ErrNotFound
}
