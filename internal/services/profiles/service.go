package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

// ErrNotFound is returned when a domain has no persisted analysis yet.
var ErrNotFound = domain.ErrNotFound

type Service struct {
	analyses ports.AnalysisRepository
	tasks    ports.TaskRepository
}

// New builds the profile service. tasks may be nil, in which case the open
// task count is left at zero.
func New(analyses ports.AnalysisRepository, tasks ports.TaskRepository) *Service {
	return &Service{analyses: analyses, tasks: tasks}
}

func (s *Service) GetLatest(ctx context.Context, registrable string) (ports.Profile, error) {
	registrable = strings.ToLower(strings.TrimSpace(registrable))
	res, err := s.analyses.LatestAnalysis(ctx, registrable)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && res == nil) {
		return ports.Profile{}, ErrNotFound
	}
	if err != nil {
		return ports.Profile{}, fmt.Errorf("latest analysis for %s: %w", registrable, err)
	}
	prof := ports.Profile{
		Domain:        res.Domain,
		ScanID:        res.ScanID,
		Scores:        res.Scores,
		Authority:     res.Authority,
		CrawlReliable: res.CrawlReliable,
	}
	if res.Validation != nil {
		v := res.Validation.VerificationScore
		prof.VerificationScore = &v
	}
	if s.tasks != nil {
		tasks, err := s.tasks.ListByDomain(ctx, registrable)
		if err != nil {
			return ports.Profile{}, fmt.Errorf("tasks for %s: %w", registrable, err)
		}
		for _, t := range tasks {
			if t.Outstanding() {
				prof.OpenTasks++
			}
		}
	}
	return prof, nil
}
