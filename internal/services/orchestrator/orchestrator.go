// Package orchestrator runs the crawl and every signal collector for one scan
// and assembles the AnalysisResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sitescope/internal/domain"
	"sitescope/internal/metrics"
	"sitescope/internal/ports"
)

// Collectors holds one provider per signal. A nil provider is recorded as
// disabled.
type Collectors struct {
	Speed       ports.Collector[domain.SpeedMetrics]
	Certificate ports.Collector[domain.CertificateInfo]
	DNS         ports.Collector[domain.DNSRecords]
	Headers     ports.Collector[domain.SecurityHeaders]
	Reputation  ports.Collector[domain.Reputation]
	Validity    ports.Collector[domain.MarkupValidity]
	Index       ports.Collector[domain.IndexPresence]
	Archive     ports.Collector[domain.ArchiveHistory]
}

type Config struct {
	CollectorTimeout time.Duration
	CrawlTimeout     time.Duration
	// MinMarkupBytes is the reliability gate: smaller bodies are treated as
	// bot walls or error pages.
	MinMarkupBytes int
}

func DefaultConfig() Config {
	return Config{
		CollectorTimeout: 20 * time.Second,
		CrawlTimeout:     30 * time.Second,
		MinMarkupBytes:   2048,
	}
}

type Orchestrator struct {
	crawler     ports.Crawler
	collectors  Collectors
	analyzer    ports.ContentAnalyzer
	synthesizer ports.IdentitySynthesizer
	cfg         Config
	log         *zap.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func New(crawler ports.Crawler, collectors Collectors, analyzer ports.ContentAnalyzer, synthesizer ports.IdentitySynthesizer, cfg Config, log *zap.Logger, m *metrics.Metrics) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.CollectorTimeout <= 0 {
		cfg.CollectorTimeout = def.CollectorTimeout
	}
	if cfg.CrawlTimeout <= 0 {
		cfg.CrawlTimeout = def.CrawlTimeout
	}
	return &Orchestrator{
		crawler:     crawler,
		collectors:  collectors,
		analyzer:    analyzer,
		synthesizer: synthesizer,
		cfg:         cfg,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// Run produces the aggregate result for rawURL. The only error it returns is
// a domain.FatalError: the URL is unusable or the crawl got no response.
// Every other failure is recorded in the result.
func (o *Orchestrator) Run(ctx context.Context, rawURL string) (*domain.AnalysisResult, error) {
	target, err := domain.ParseTarget(rawURL)
	if err != nil {
		return nil, domain.FatalError{Err: fmt.Errorf("%w: %w", domain.ErrCrawlFailed, err)}
	}
	log := o.log.With(zap.String("domain", target.Registrable), zap.String("url", target.URL))

	res := &domain.AnalysisResult{
		Domain:    target.Registrable,
		URL:       target.URL,
		StartedAt: o.now(),
	}

	start := time.Now()
	if err := o.phaseOne(ctx, target, res); err != nil {
		log.Warn("primary crawl failed", zap.Error(err))
		return nil, err
	}
	o.metrics.ObservePhase("collect", time.Since(start))

	crawl, _ := res.Crawl.Get()
	res.CrawlReliable = crawl.StatusCode < 400 && len(crawl.Markup) >= o.cfg.MinMarkupBytes
	if !res.CrawlReliable {
		o.metrics.IncUnreliableCrawl()
		log.Info("crawl unreliable",
			zap.Int("status", crawl.StatusCode),
			zap.Int("bytes", len(crawl.Markup)),
			zap.Int("min_bytes", o.cfg.MinMarkupBytes))
	}

	start = time.Now()
	o.phaseTwo(ctx, target, res)
	o.metrics.ObservePhase("derive", time.Since(start))

	log.Debug("scan collected",
		zap.Bool("crawl_reliable", res.CrawlReliable),
		zap.Strings("failed", failedSlots(res)))
	return res, nil
}

// phaseOne fans out the crawl and every collector. Each goroutine writes only
// its own slot of res. Only the crawl may return an error to the group, which
// cancels the collectors still running.
func (o *Orchestrator) phaseOne(ctx context.Context, target domain.Target, res *domain.AnalysisResult) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		crawl, err := o.crawl(gctx, target)
		if err != nil {
			return domain.FatalError{Err: fmt.Errorf("%w: %w", domain.ErrCrawlFailed, err)}
		}
		res.Crawl = domain.Success(crawl)
		return nil
	})

	c := o.collectors
	g.Go(func() error { res.Speed = runCollector(gctx, o, "speed", c.Speed, target); return nil })
	g.Go(func() error { res.Certificate = runCollector(gctx, o, "certificate", c.Certificate, target); return nil })
	g.Go(func() error { res.DNS = runCollector(gctx, o, "dns", c.DNS, target); return nil })
	g.Go(func() error { res.Headers = runCollector(gctx, o, "headers", c.Headers, target); return nil })
	g.Go(func() error { res.Reputation = runCollector(gctx, o, "reputation", c.Reputation, target); return nil })
	g.Go(func() error { res.Validity = runCollector(gctx, o, "validity", c.Validity, target); return nil })
	g.Go(func() error { res.Index = runCollector(gctx, o, "index", c.Index, target); return nil })
	g.Go(func() error { res.Archive = runCollector(gctx, o, "archive", c.Archive, target); return nil })

	return g.Wait()
}

func (o *Orchestrator) crawl(ctx context.Context, target domain.Target) (crawl domain.CrawlResult, err error) {
	if o.crawler == nil {
		return crawl, errors.New("no crawler configured")
	}
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("crawler panicked", zap.Any("panic", r), zap.String("url", target.URL))
			err = fmt.Errorf("crawler panic: %v", r)
		}
	}()
	cctx, cancel := context.WithTimeout(ctx, o.cfg.CrawlTimeout)
	defer cancel()
	return o.crawler.Crawl(cctx, target)
}

// phaseTwo derives content facts from the markup, then the identity from
// everything collected so far.
func (o *Orchestrator) phaseTwo(ctx context.Context, target domain.Target, res *domain.AnalysisResult) {
	crawl, _ := res.Crawl.Get()
	switch {
	case !res.CrawlReliable:
		res.Content = domain.Failed[domain.ContentFacts](domain.ReasonUnreliable)
	case o.analyzer == nil:
		res.Content = domain.Failed[domain.ContentFacts](domain.ReasonDisabled)
	default:
		res.Content = isolate(ctx, o, "content", func(ctx context.Context) (domain.ContentFacts, error) {
			return o.analyzer.Analyze(ctx, crawl)
		})
	}

	if o.synthesizer == nil {
		res.Identity = domain.Failed[domain.Identity](domain.ReasonDisabled)
		return
	}
	in := ports.IdentityInput{
		Target:  target,
		Crawl:   res.Crawl,
		Content: res.Content,
		Archive: res.Archive,
		DNS:     res.DNS,
	}
	res.Identity = isolate(ctx, o, "identity", func(ctx context.Context) (domain.Identity, error) {
		return o.synthesizer.Synthesize(ctx, in)
	})
}

func runCollector[T any](ctx context.Context, o *Orchestrator, name string, c ports.Collector[T], target domain.Target) domain.Outcome[T] {
	if c == nil {
		o.metrics.ObserveCollector(name, true)
		return domain.Failed[T](domain.ReasonDisabled)
	}
	return isolate(ctx, o, name, func(ctx context.Context) (T, error) {
		return c.Collect(ctx, target)
	})
}

// isolate runs fn under its own timeout and turns any error or panic into a
// Failed outcome.
func isolate[T any](ctx context.Context, o *Orchestrator, name string, fn func(context.Context) (T, error)) (out domain.Outcome[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("collector panicked", zap.String("collector", name), zap.Any("panic", r))
			out = domain.Failed[T](domain.ReasonPanic)
		}
		o.metrics.ObserveCollector(name, out.Failed())
		if out.Failed() {
			o.log.Debug("collector failed",
				zap.String("collector", name),
				zap.String("reason", out.Reason()),
				zap.Duration("elapsed", time.Since(start)))
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, o.cfg.CollectorTimeout)
	defer cancel()
	v, err := fn(cctx)
	if err != nil {
		return domain.Failed[T](domain.FailureReason(err))
	}
	return domain.Success(v)
}

func failedSlots(res *domain.AnalysisResult) []string {
	var out []string
	add := func(name string, failed bool) {
		if failed {
			out = append(out, name)
		}
	}
	add("speed", res.Speed.Failed())
	add("certificate", res.Certificate.Failed())
	add("dns", res.DNS.Failed())
	add("headers", res.Headers.Failed())
	add("reputation", res.Reputation.Failed())
	add("validity", res.Validity.Failed())
	add("index", res.Index.Failed())
	add("archive", res.Archive.Failed())
	add("content", res.Content.Failed())
	add("identity", res.Identity.Failed())
	return out
}
