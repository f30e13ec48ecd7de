package scanrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sitescope/internal/ports"
)

// ScanProcessor performs the scan work for a job's scan id.
type ScanProcessor interface {
	Process(ctx context.Context, scanID string) error
}

// Run starts worker goroutines that claim jobs and process them. It returns
// once ctx is cancelled and every in-flight job has been finished.
func Run(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, concurrency int, pollInterval time.Duration, log *zap.Logger) {
	if concurrency < 1 {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}
	jobsCh := make(chan ports.ScanJob, concurrency)

	// dispatcher loop
	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for {
				job, found, err := repo.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() == nil {
						log.Error("job claim failed", zap.Error(err))
					}
					break
				}
				if !found {
					break
				}
				select {
				case jobsCh <- job:
				case <-ctx.Done():
					// Claimed but never started: release it as failed rather
					// than leaving it running forever.
					finish(context.WithoutCancel(ctx), repo, job.ID, ctx.Err(), log)
					return
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			wlog := log.With(zap.Int("worker", idx))
			for job := range jobsCh {
				jlog := wlog.With(zap.String("job_id", job.ID), zap.String("scan_id", job.ScanID))
				err := processor.Process(ctx, job.ScanID)
				finish(context.WithoutCancel(ctx), repo, job.ID, err, jlog)
			}
		}(i)
	}
	wg.Wait()
}

// ProcessInline starts and processes a specific scan synchronously using the
// same processor as the background workers. It wraps domain.ErrNotFound when
// the scan's job was already claimed.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor ScanProcessor, scanID string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	jobID, err := repo.StartJobForScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("start job for scan %s: %w", scanID, err)
	}
	jlog := log.With(zap.String("job_id", jobID), zap.String("scan_id", scanID), zap.Bool("inline", true))
	perr := processor.Process(ctx, scanID)
	if ferr := finish(context.WithoutCancel(ctx), repo, jobID, perr, jlog); ferr != nil && perr == nil {
		return ferr
	}
	return perr
}

// finish records the job's terminal state.
func finish(ctx context.Context, repo ports.JobRepository, jobID string, perr error, log *zap.Logger) error {
	if perr != nil {
		log.Warn("scan failed", zap.Error(perr))
		if err := repo.MarkFailed(ctx, jobID, perr.Error()); err != nil {
			log.Error("mark failed", zap.Error(err))
			return err
		}
		return nil
	}
	if err := repo.MarkCompleted(ctx, jobID); err != nil {
		log.Error("mark completed", zap.Error(err))
		return err
	}
	log.Info("scan finished")
	return nil
}
