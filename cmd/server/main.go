package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sitescope/internal/adapters/collectors"
	httpadapter "sitescope/internal/adapters/http"
	pg "sitescope/internal/adapters/postgres"
	"sitescope/internal/config"
	"sitescope/internal/domain"
	"sitescope/internal/logging"
	"sitescope/internal/metrics"
	"sitescope/internal/services/authority"
	"sitescope/internal/services/identity"
	"sitescope/internal/services/orchestrator"
	profsvc "sitescope/internal/services/profiles"
	"sitescope/internal/services/recommend"
	scansvc "sitescope/internal/services/scanner"
	"sitescope/internal/services/scoring"
	tasksvc "sitescope/internal/services/tasks"
	"sitescope/internal/services/tasksync"
	"sitescope/internal/services/validator"
	scanworker "sitescope/internal/workers/scanrunner"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sitescope: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrMissingDatabaseURL) {
		return fmt.Errorf("DATABASE_URL is required for Postgres adapters")
	}
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := pg.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx, log); err != nil {
		return err
	}

	m := metrics.New()

	rubric, err := scoring.DefaultRubric().WithOverrides(cfg.Scoring.Weights, cfg.Scoring.Deltas)
	if err != nil {
		return fmt.Errorf("scoring overrides: %w", err)
	}
	scorer, err := scoring.NewEngine(rubric)
	if err != nil {
		return fmt.Errorf("scoring rubric: %w", err)
	}

	analyzer := orchestrator.New(
		collectors.NewCrawler(collectors.CrawlerConfig{
			UserAgent: cfg.Scan.UserAgent,
			Timeout:   cfg.Scan.CrawlTimeout,
		}, nil),
		newCollectors(cfg),
		collectors.NewContentAnalyzer(),
		identity.New(),
		orchestrator.Config{
			CollectorTimeout: cfg.Scan.CollectorTimeout,
			CrawlTimeout:     cfg.Scan.CrawlTimeout,
			MinMarkupBytes:   cfg.Scan.MinMarkupBytes,
		},
		log.Named("orchestrator"),
		m,
	)

	// The advisory lock is shared by the synchronizer and manual completions
	// so both serialize per domain across processes.
	syncer := tasksync.New(db, db, tasksync.Config{
		BatchSize: cfg.Tasks.BatchSize,
		Sources:   scoring.Sources,
	}, log.Named("tasksync"), m)
	pipeline := scansvc.NewPipeline(
		scansvc.Stages{
			Analyzer:    analyzer,
			Scorer:      scorer,
			Authority:   authority.Default(),
			Recommender: recommend.NewEngine(),
			Planner:     recommend.NewPlanner(),
			Reconciler:  validator.New(scorer, validator.DefaultConfig(), log.Named("validator"), m),
			Tasks:       syncer,
		},
		scansvc.Stores{Scans: db, Analyses: db, Progress: db},
		log.Named("pipeline"),
		m,
	)

	scanner := scansvc.New(db, db)
	profiles := profsvc.New(db, db)
	tasks := tasksvc.New(db, db, log.Named("tasks"))

	srv := httpadapter.New(scanner, profiles, tasks, db, pipeline, m, log.Named("http"))
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	workerCtx, stopWorkers := context.WithCancel(context.WithoutCancel(ctx))
	var workers sync.WaitGroup
	if cfg.Scan.Workers > 0 {
		workers.Add(1)
		go func() {
			defer workers.Done()
			scanworker.Run(workerCtx, db, pipeline, cfg.Scan.Workers, cfg.Scan.PollInterval, log.Named("worker"))
		}()
		log.Info("scan workers started", zap.Int("workers", cfg.Scan.Workers))
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("listening", zap.String("addr", cfg.Server.ListenAddr))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		stopWorkers()
		workers.Wait()
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stopWorkers()
	workers.Wait()
	return nil
}

// newCollectors builds every signal provider. Providers without credentials
// come back as nil pointers and report themselves disabled; successful
// results are cached per host.
func newCollectors(cfg config.Config) orchestrator.Collectors {
	client := &http.Client{Timeout: cfg.Scan.CollectorTimeout}
	opts := collectors.APIOptions{Client: client, RatePerSecond: cfg.Collectors.RatePerSecond}
	size, ttl := cfg.Scan.CacheSize, cfg.Scan.CacheTTL
	c := cfg.Collectors

	return orchestrator.Collectors{
		Speed:       orchestrator.NewCached[domain.SpeedMetrics](collectors.NewPageSpeed(c.PageSpeedAPIKey, opts), size, ttl),
		Certificate: orchestrator.NewCached[domain.CertificateInfo](collectors.NewTLS(cfg.Scan.CollectorTimeout), size, ttl),
		DNS:         orchestrator.NewCached[domain.DNSRecords](collectors.NewDNS(net.DefaultResolver), size, ttl),
		Headers:     collectors.NewHeaders(client, cfg.Scan.UserAgent),
		Reputation:  orchestrator.NewCached[domain.Reputation](collectors.NewSafeBrowsing(c.SafeBrowsingAPIKey, opts), size, ttl),
		Validity:    collectors.NewMarkupValidator(c.ValidatorURL, opts),
		Index:       orchestrator.NewCached[domain.IndexPresence](collectors.NewSearchIndex(c.SearchIndexURL, c.SearchIndexAPIKey, opts), size, ttl),
		Archive:     orchestrator.NewCached[domain.ArchiveHistory](collectors.NewWayback(c.WaybackURL, opts), size, ttl),
	}
}
