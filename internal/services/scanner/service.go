package scanner

import (
	"context"
	"fmt"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

type Service struct {
	domains ports.DomainRepository
	scans   ports.ScanRepository
}

func New(domains ports.DomainRepository, scans ports.ScanRepository) *Service {
	return &Service{domains: domains, scans: scans}
}

// Enqueue records a queued scan (and its job row) for the registrable domain
// of rawurl. URLs the pipeline could never crawl are rejected here.
func (s *Service) Enqueue(ctx context.Context, rawurl string) (string, error) {
	target, err := domain.ParseTarget(rawurl)
	if err != nil {
		return "", err
	}
	domainID, err := s.domains.GetOrCreate(ctx, target.Registrable)
	if err != nil {
		return "", fmt.Errorf("domain %s: %w", target.Registrable, err)
	}
	scanID, err := s.scans.Create(ctx, domainID, target.URL)
	if err != nil {
		return "", fmt.Errorf("create scan: %w", err)
	}
	return scanID, nil
}

func (s *Service) Status(ctx context.Context, scanID string) (string, float64, error) {
	return s.scans.Status(ctx, scanID)
}
