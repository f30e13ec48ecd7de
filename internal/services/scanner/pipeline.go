package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitescope/internal/domain"
	"sitescope/internal/metrics"
	"sitescope/internal/ports"
	"sitescope/internal/services/authority"
	"sitescope/internal/services/tasksync"
	"sitescope/internal/services/validator"
)

// Analyzer collects and derives the raw aggregate for one URL.
type Analyzer interface {
	Run(ctx context.Context, rawURL string) (*domain.AnalysisResult, error)
}

type Reconciler interface {
	Reconcile(res *domain.AnalysisResult) (*domain.AnalysisResult, *domain.ValidationSummary)
}

type TaskSyncer interface {
	Sync(ctx context.Context, in tasksync.Input) (ports.SyncReport, error)
}

type ProgressReporter interface {
	UpdateScanProgress(ctx context.Context, scanID string, progress float64) error
}

// Stages are the computations a scan runs through. Reconciler and Tasks are
// optional.
type Stages struct {
	Analyzer    Analyzer
	Scorer      ports.Scorer
	Authority   []ports.AuthorityScorer
	Recommender ports.Recommender
	Planner     ports.PlanBuilder
	Reconciler  Reconciler
	Tasks       TaskSyncer
}

type Stores struct {
	Scans    ports.ScanRepository
	Analyses ports.AnalysisRepository
	Progress ProgressReporter
}

// Pipeline runs one queued scan end to end. It implements the worker's
// ScanProcessor.
type Pipeline struct {
	stages  Stages
	stores  Stores
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func NewPipeline(stages Stages, stores Stores, log *zap.Logger, m *metrics.Metrics) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		stages:  stages,
		stores:  stores,
		log:     log,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Scan outcomes reported to metrics.
const (
	ScanCompleted = "completed"
	ScanDegraded  = "degraded"
	ScanFatal     = "fatal"
)

// Process returns an error only for a fatal failure (the scan cannot be
// loaded or its primary crawl failed). Everything else is recorded on the
// result or in the scan's sync report.
func (p *Pipeline) Process(ctx context.Context, scanID string) error {
	scan, err := p.stores.Scans.Get(ctx, scanID)
	if err != nil {
		p.metrics.IncScan(ScanFatal)
		return fmt.Errorf("load scan %s: %w", scanID, err)
	}
	log := p.log.With(zap.String("scan_id", scanID), zap.String("url", scan.URL))
	p.progress(ctx, scanID, 0.05)

	res, err := p.stages.Analyzer.Run(ctx, scan.URL)
	if err != nil {
		p.metrics.IncScan(ScanFatal)
		log.Warn("scan failed", zap.Error(err))
		return err
	}
	res.ID = p.newID()
	res.ScanID = scanID
	p.progress(ctx, scanID, 0.6)

	res = p.evaluate(ctx, res)
	res = p.reconcile(res, log)
	res = res.WithPlan(p.stages.Planner.Build(res.Recommendations))
	res = res.Finished(p.now())
	p.progress(ctx, scanID, 0.8)

	report := p.persist(ctx, res, log)
	if err := p.stores.Scans.RecordSync(ctx, scanID, report); err != nil {
		log.Warn("record sync report", zap.Error(err))
	}
	p.progress(ctx, scanID, 1)

	outcome := ScanCompleted
	if len(report.Failures) > 0 {
		outcome = ScanDegraded
	}
	p.metrics.IncScan(outcome)
	log.Info("scan finished",
		zap.String("domain", res.Domain),
		zap.String("outcome", outcome),
		zap.Bool("crawl_reliable", res.CrawlReliable),
		zap.Int("overall", res.Scores.Overall.Score),
		zap.Int("recommendations", len(res.Recommendations)),
		zap.Duration("duration", res.Duration))
	return nil
}

// evaluate scores the result and computes authority reports concurrently,
// then derives recommendations from the scores.
func (p *Pipeline) evaluate(ctx context.Context, res *domain.AnalysisResult) *domain.AnalysisResult {
	var (
		card    domain.Scorecard
		reports []domain.AuthorityReport
	)
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		card = p.stages.Scorer.Score(res)
		return nil
	})
	g.Go(func() error {
		reports = authority.ReportAll(res, p.stages.Authority)
		return nil
	})
	_ = g.Wait()

	res = res.WithScores(card).WithAuthority(reports)
	return res.WithRecommendations(p.stages.Recommender.Recommend(res))
}

// reconcile cross-checks the result against its markup. When anything was
// corrected the derived outputs are regenerated from the cleaned result.
func (p *Pipeline) reconcile(res *domain.AnalysisResult, log *zap.Logger) *domain.AnalysisResult {
	if p.stages.Reconciler == nil {
		return res
	}
	out, summary := p.stages.Reconciler.Reconcile(res)
	if summary == nil {
		log.Debug("reconciliation skipped", zap.Bool("crawl_reliable", res.CrawlReliable))
		return out
	}
	if validator.Changed(summary) {
		out = out.WithAuthority(authority.ReportAll(out, p.stages.Authority))
		out = out.WithRecommendations(p.stages.Recommender.Recommend(out))
	}
	return out
}

// persist saves the analysis and, only when that succeeded, synchronizes
// the domain's tasks with its recommendations.
func (p *Pipeline) persist(ctx context.Context, res *domain.AnalysisResult, log *zap.Logger) ports.SyncReport {
	var report ports.SyncReport
	if err := p.stores.Analyses.SaveAnalysis(ctx, res); err != nil {
		p.metrics.IncPersistenceFailure("analysis")
		log.Error("save analysis", zap.Error(err))
		report.Failures = append(report.Failures, domain.PersistenceFailure{Op: "save", Target: "analysis:" + res.ID, Err: err.Error()})
		return report
	}
	if p.stages.Tasks == nil {
		return report
	}
	report, err := p.stages.Tasks.Sync(ctx, tasksync.Input{
		Domain:          res.Domain,
		ScanID:          res.ScanID,
		Recommendations: res.Recommendations,
		CrawlReliable:   res.CrawlReliable,
		NoData:          res.Scores.NoDataSet(),
		Unobserved:      res.UnobservedSources(),
	})
	if err != nil {
		p.metrics.IncPersistenceFailure("sync")
		log.Error("sync tasks", zap.Error(err))
		report.Failures = append(report.Failures, domain.PersistenceFailure{Op: "sync", Target: "tasks:" + res.Domain, Err: err.Error()})
	}
	return report
}

func (p *Pipeline) progress(ctx context.Context, scanID string, v float64) {
	if p.stores.Progress == nil {
		return
	}
	if err := p.stores.Progress.UpdateScanProgress(ctx, scanID, v); err != nil {
		p.log.Debug("progress update failed", zap.String("scan_id", scanID), zap.Error(err))
	}
}
