package ports

import (
	"context"

	"sitescope/internal/domain"
)

// DomainRepository stores and fetches domains by registrable domain (eTLD+1).
type DomainRepository interface {
	GetOrCreate(ctx context.Context, registrable string) (domainID string, err error)
}

// ScanRepository manages scan records.
type ScanRepository interface {
	Create(ctx context.Context, domainID string, url string) (scanID string, err error)
	Status(ctx context.Context, scanID string) (status string, progress float64, err error)
	Get(ctx context.Context, scanID string) (domain.Scan, error)
	RecordSync(ctx context.Context, scanID string, report SyncReport) error
}

// AnalysisRepository persists immutable analysis results.
type AnalysisRepository interface {
	SaveAnalysis(ctx context.Context, res *domain.AnalysisResult) error
	LatestAnalysis(ctx context.Context, registrable string) (*domain.AnalysisResult, error)
}

// TaskRepository persists the per-domain task list.
type TaskRepository interface {
	ListByDomain(ctx context.Context, registrable string) ([]domain.Task, error)
	// ApplyBatch writes all inserts and updates atomically.
	ApplyBatch(ctx context.Context, inserts, updates []domain.Task) error
	// InsertTask must ignore a row whose (domain, key) already exists.
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
}

// DomainLocker serializes task writes per domain.
type DomainLocker interface {
	LockDomain(ctx context.Context, registrable string) (unlock func(), err error)
}
