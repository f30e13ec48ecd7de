package ports

import (
	"context"

	"sitescope/internal/domain"
)

// Crawler fetches the primary markup. It returns an error only when no
// response could be obtained at all.
type Crawler interface {
	Crawl(ctx context.Context, target domain.Target) (domain.CrawlResult, error)
}

// Collector provides one independent signal about a site.
type Collector[T any] interface {
	Collect(ctx context.Context, target domain.Target) (T, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc[T any] func(ctx context.Context, target domain.Target) (T, error)

func (f CollectorFunc[T]) Collect(ctx context.Context, target domain.Target) (T, error) {
	return f(ctx, target)
}

// ContentAnalyzer derives structured page facts from raw markup.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, crawl domain.CrawlResult) (domain.ContentFacts, error)
}

// IdentityInput is everything the identity synthesizer may look at.
type IdentityInput struct {
	Target  domain.Target
	Crawl   domain.Outcome[domain.CrawlResult]
	Content domain.Outcome[domain.ContentFacts]
	Archive domain.Outcome[domain.ArchiveHistory]
	DNS     domain.Outcome[domain.DNSRecords]
}

// IdentitySynthesizer derives the site "DNA".
type IdentitySynthesizer interface {
	Synthesize(ctx context.Context, in IdentityInput) (domain.Identity, error)
}

// Scorer computes category scores; it must be a pure function of the result.
type Scorer interface {
	Score(res *domain.AnalysisResult) domain.Scorecard
}

// AuthorityScorer computes one authority report from the aggregate.
type AuthorityScorer interface {
	Name() string
	Report(res *domain.AnalysisResult) domain.AuthorityReport
}

// Recommender turns weak scores into improvement items.
type Recommender interface {
	Recommend(res *domain.AnalysisResult) []domain.Recommendation
}

// PlanBuilder orders recommendations into a treatment plan.
type PlanBuilder interface {
	Build(recs []domain.Recommendation) domain.TreatmentPlan
}
