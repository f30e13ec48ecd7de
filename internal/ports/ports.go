package ports

import (
	"context"

	"sitescope/internal/domain"
)

// Scanner enqueues and tracks scans.
type Scanner interface {
	Enqueue(ctx context.Context, url string) (scanID string, err error)
	Status(ctx context.Context, scanID string) (status string, progress float64, err error)
}

// Profiles provides latest score profiles for domains.
type Profiles interface {
	GetLatest(ctx context.Context, registrable string) (Profile, error)
}

// Tasks exposes the per-domain task list to users.
type Tasks interface {
	List(ctx context.Context, registrable string, status domain.TaskStatus) ([]domain.Task, error)
	Complete(ctx context.Context, registrable, taskID string) (domain.Task, error)
}

// Profile is the latest scored view of a domain.
type Profile struct {
	Domain            string                   `json:"domain"`
	ScanID            string                   `json:"scanId"`
	Scores            domain.Scorecard         `json:"scores"`
	Authority         []domain.AuthorityReport `json:"authority,omitempty"`
	VerificationScore *int                     `json:"verificationScore,omitempty"`
	CrawlReliable     bool                     `json:"crawlReliable"`
	OpenTasks         int                      `json:"openTasks"`
}
