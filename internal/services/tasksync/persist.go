package tasksync

import (
	"context"

	"go.uber.org/zap"

	"sitescope/internal/domain"
)

// persist writes changes in batches of cfg.BatchSize. A failed batch is
// rolled back by the repository and retried row by row; inserts ignore an
// existing (domain, key) so a retry never duplicates a task. It returns the
// changes that were written and one failure per row that was not.
func (s *Synchronizer) persist(ctx context.Context, changes []change) (written []change, failures []domain.PersistenceFailure) {
	for start := 0; start < len(changes); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(changes))
		batch := changes[start:end]

		var inserts, updates []domain.Task
		for _, c := range batch {
			if c.insert {
				inserts = append(inserts, c.task)
			} else {
				updates = append(updates, c.task)
			}
		}
		err := s.repo.ApplyBatch(ctx, inserts, updates)
		if err == nil {
			written = append(written, batch...)
			continue
		}
		s.log.Warn("task batch failed, retrying per row",
			zap.Int("rows", len(batch)),
			zap.Error(err))

		for _, c := range batch {
			op := "update"
			var err error
			if c.insert {
				op = "insert"
				err = s.repo.InsertTask(ctx, c.task)
			} else {
				err = s.repo.UpdateTask(ctx, c.task)
			}
			if err != nil {
				s.log.Error("task write failed",
					zap.String("op", op),
					zap.String("key", c.task.Key),
					zap.Error(err))
				s.metrics.IncPersistenceFailure(op)
				failures = append(failures, domain.PersistenceFailure{Op: op, Target: c.task.Key, Err: err.Error()})
				continue
			}
			written = append(written, c)
		}
	}
	return written, failures
}
