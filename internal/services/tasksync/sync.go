// Package tasksync reconciles a scan's recommendations with the persisted
// task list of its domain.
package tasksync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sitescope/internal/domain"
	"sitescope/internal/metrics"
	"sitescope/internal/ports"
)

type Config struct {
	BatchSize int
	// Sources maps a task's rule to the inputs it is evaluated from. When nil,
	// a task is verified only if every input was observed.
	Sources func(ruleID string, category domain.CategoryKey) []domain.Source
}

// Input is everything one synchronization needs from a scan.
type Input struct {
	Domain          string
	ScanID          string
	Recommendations []domain.Recommendation
	// CrawlReliable, NoData and Unobserved gate verification: absence of an
	// issue only counts as a fix when the scan could actually have seen it.
	CrawlReliable bool
	NoData        map[domain.CategoryKey]bool
	Unobserved    map[domain.Source]bool
}

type Synchronizer struct {
	repo    ports.TaskRepository
	locker  ports.DomainLocker
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func New(repo ports.TaskRepository, locker ports.DomainLocker, cfg Config, log *zap.Logger, m *metrics.Metrics) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Synchronizer{
		repo:    repo,
		locker:  locker,
		cfg:     cfg,
		log:     log,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

type transition string

const (
	transCreated   transition = "created"
	transRefreshed transition = "refreshed"
	transRegressed transition = "regressed"
	transVerified  transition = "verified"
)

// change is one pending write.
type change struct {
	task   domain.Task
	insert bool
	kind   transition
}

// Sync applies the task state machine for one scan. Writes for a domain are
// serialized through the locker. It fails only when the lock or the task
// history cannot be obtained; write failures are reported, not returned.
func (s *Synchronizer) Sync(ctx context.Context, in Input) (ports.SyncReport, error) {
	var report ports.SyncReport

	unlock, err := s.locker.LockDomain(ctx, in.Domain)
	if err != nil {
		return report, fmt.Errorf("lock tasks for %s: %w", in.Domain, err)
	}
	defer unlock()

	existing, err := s.repo.ListByDomain(ctx, in.Domain)
	if err != nil {
		return report, fmt.Errorf("list tasks for %s: %w", in.Domain, err)
	}

	changes, unchanged := s.plan(existing, in)
	report.Unchanged = unchanged

	valid := changes[:0]
	for _, c := range changes {
		if err := c.task.Validate(); err != nil {
			report.Failures = append(report.Failures, domain.PersistenceFailure{Op: "validate", Target: c.task.Key, Err: err.Error()})
			s.metrics.IncPersistenceFailure("validate")
			continue
		}
		valid = append(valid, c)
	}

	written, failures := s.persist(ctx, valid)
	report.Failures = append(report.Failures, failures...)
	for _, c := range written {
		switch c.kind {
		case transCreated:
			report.Created++
		case transRefreshed:
			report.Refreshed++
		case transRegressed:
			report.Regressed++
		case transVerified:
			report.Verified++
		}
	}
	s.metrics.AddTransitions(string(transCreated), report.Created)
	s.metrics.AddTransitions(string(transRefreshed), report.Refreshed)
	s.metrics.AddTransitions(string(transRegressed), report.Regressed)
	s.metrics.AddTransitions(string(transVerified), report.Verified)

	s.log.Info("tasks synchronized",
		zap.String("domain", in.Domain),
		zap.String("scan_id", in.ScanID),
		zap.Int("created", report.Created),
		zap.Int("refreshed", report.Refreshed),
		zap.Int("regressed", report.Regressed),
		zap.Int("verified", report.Verified),
		zap.Int("unchanged", report.Unchanged),
		zap.Int("failures", len(report.Failures)))
	return report, nil
}

// plan decides every transition without touching storage.
func (s *Synchronizer) plan(existing []domain.Task, in Input) (changes []change, unchanged int) {
	now := s.now().UTC()

	byKey := make(map[string]domain.Task, len(existing))
	for _, t := range existing {
		byKey[t.Key] = t
	}

	seen := make(map[string]bool, len(in.Recommendations))
	for _, rec := range in.Recommendations {
		key := rec.IdentityKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		t, ok := byKey[key]
		if !ok {
			changes = append(changes, change{insert: true, kind: transCreated, task: s.newTask(in, key, rec, now)})
			continue
		}

		switch t.Status {
		case domain.TaskCompleted, domain.TaskVerified:
			refreshed := refresh(t, rec, in.ScanID)
			refreshed.Status = domain.TaskRegressed
			refreshed.CompletedAt = nil
			refreshed.UpdatedAt = now
			changes = append(changes, change{kind: transRegressed, task: refreshed})
		default:
			refreshed := refresh(t, rec, in.ScanID)
			if sameTask(t, refreshed) {
				unchanged++
				continue
			}
			refreshed.UpdatedAt = now
			changes = append(changes, change{kind: transRefreshed, task: refreshed})
		}
	}

	for _, t := range existing {
		if seen[t.Key] || t.Status != domain.TaskCompleted {
			continue
		}
		if !s.observed(t, in) {
			continue
		}
		t.Status = domain.TaskVerified
		t.UpdatedAt = now
		t.LastSeenScanID = in.ScanID
		changes = append(changes, change{kind: transVerified, task: t})
	}
	return changes, unchanged
}

// observed reports whether this scan saw every input the task's rule reads.
func (s *Synchronizer) observed(t domain.Task, in Input) bool {
	if !in.CrawlReliable || in.NoData[t.Category] {
		return false
	}
	var sources []domain.Source
	if s.cfg.Sources != nil {
		sources = s.cfg.Sources(t.RuleID, t.Category)
	}
	if len(sources) == 0 {
		return len(in.Unobserved) == 0
	}
	for _, src := range sources {
		if in.Unobserved[src] {
			return false
		}
	}
	return true
}

func (s *Synchronizer) newTask(in Input, key string, rec domain.Recommendation, now time.Time) domain.Task {
	return domain.Task{
		ID:             s.newID(),
		Domain:         in.Domain,
		Key:            key,
		Category:       rec.Category,
		RuleID:         rec.RuleID,
		Title:          rec.Title,
		Description:    rec.Description,
		HowTo:          rec.HowTo,
		Effort:         rec.Effort,
		Priority:       rec.Priority,
		Status:         domain.TaskPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastSeenScanID: in.ScanID,
	}
}

// refresh copies the wording of rec onto t. Identity, status and timestamps
// are left to the caller.
func refresh(t domain.Task, rec domain.Recommendation, scanID string) domain.Task {
	t.Title = rec.Title
	t.Description = rec.Description
	t.HowTo = rec.HowTo
	t.Priority = rec.Priority
	t.Effort = rec.Effort
	if rec.RuleID != "" {
		t.RuleID = rec.RuleID
	}
	t.LastSeenScanID = scanID
	return t
}

func sameTask(a, b domain.Task) bool {
	return a.RuleID == b.RuleID &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.HowTo == b.HowTo &&
		a.Priority == b.Priority &&
		a.Effort == b.Effort &&
		a.Status == b.Status &&
		a.LastSeenScanID == b.LastSeenScanID
}
