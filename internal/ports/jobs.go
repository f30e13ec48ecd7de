package ports

import (
	"context"

	"sitescope/internal/domain"
)

type ScanJob struct {
	ID     string
	ScanID string
}

// JobRepository supports claiming and updating scan jobs.
type JobRepository interface {
	ClaimNext(ctx context.Context) (job ScanJob, found bool, err error)
	UpdateScanProgress(ctx context.Context, scanID string, progress float64) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	StartJobForScan(ctx context.Context, scanID string) (jobID string, err error)
}

// SyncReport is what a scan records about its task synchronization.
type SyncReport struct {
	Created   int                         `json:"created"`
	Refreshed int                         `json:"refreshed"`
	Regressed int                         `json:"regressed"`
	Verified  int                         `json:"verified"`
	Unchanged int                         `json:"unchanged"`
	Failures  []domain.PersistenceFailure `json:"failures,omitempty"`
}
