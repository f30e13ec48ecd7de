package tasksync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
	"sitescope/internal/services/scoring"
)

// memRepo is an in-memory TaskRepository. ApplyBatch does not enforce the
// unique key so that unserialized writers would be caught duplicating.
type memRepo struct {
	mu          sync.Mutex
	tasks       []domain.Task
	failBatches bool
	failKeys    map[string]bool
	batches     int
	rowWrites   int
}

func (r *memRepo) ListByDomain(_ context.Context, d string) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if t.Domain == d {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) ApplyBatch(_ context.Context, inserts, updates []domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches++
	if r.failBatches {
		return errors.New("deadlock detected")
	}
	r.tasks = append(r.tasks, inserts...)
	for _, u := range updates {
		r.replace(u)
	}
	return nil
}

func (r *memRepo) InsertTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rowWrites++
	if r.failKeys[t.Key] {
		return fmt.Errorf("insert %s: constraint violation", t.Key)
	}
	for _, e := range r.tasks {
		if e.Domain == t.Domain && e.Key == t.Key {
			return nil
		}
	}
	r.tasks = append(r.tasks, t)
	return nil
}

func (r *memRepo) UpdateTask(_ context.Context, t domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rowWrites++
	if r.failKeys[t.Key] {
		return fmt.Errorf("update %s: timeout", t.Key)
	}
	r.replace(t)
	return nil
}

func (r *memRepo) replace(t domain.Task) {
	for i := range r.tasks {
		if r.tasks[i].ID == t.ID {
			r.tasks[i] = t
		}
	}
}

func (r *memRepo) byKey(t *testing.T, key string) domain.Task {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []domain.Task
	for _, task := range r.tasks {
		if task.Key == key {
			found = append(found, task)
		}
	}
	require.Len(t, found, 1, "tasks with key %s", key)
	return found[0]
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func rec(cat domain.CategoryKey, title string) domain.Recommendation {
	return domain.Recommendation{
		Key:         domain.StableKey(cat, title),
		Category:    cat,
		Title:       title,
		Description: "Fix " + title,
		Priority:    domain.PriorityHigh,
		Effort:      domain.EffortEasy,
	}
}

func newSync(repo *memRepo) *Synchronizer {
	s := New(repo, nil, Config{BatchSize: 2}, nil, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func input(scanID string, recs ...domain.Recommendation) Input {
	return Input{Domain: "example.com", ScanID: scanID, Recommendations: recs, CrawlReliable: true}
}

var metaKey = domain.StableKey(domain.CategorySEO, "Missing meta description")

func TestCreatesPendingTasks(t *testing.T) {
	repo := &memRepo{}
	report, err := newSync(repo).Sync(context.Background(), input("s1",
		rec(domain.CategorySEO, "Missing meta description"),
		rec(domain.CategorySecurity, "Enable HSTS"),
		rec(domain.CategoryContent, "Add alt text"),
	))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Created)
	assert.Empty(t, report.Failures)

	task := repo.byKey(t, metaKey)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, "s1", task.LastSeenScanID)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, 2, repo.batches, "three rows in batches of two")
}

func TestDuplicateSyncIsNoop(t *testing.T) {
	repo := &memRepo{}
	s := newSync(repo)
	in := input("s1", rec(domain.CategorySEO, "Missing meta description"), rec(domain.CategorySecurity, "Enable HSTS"))

	_, err := s.Sync(context.Background(), in)
	require.NoError(t, err)
	batches := repo.batches

	report, err := s.Sync(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 0, report.Refreshed)
	assert.Equal(t, 2, report.Unchanged)
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, batches, repo.batches, "no writes on the second run")
}

func TestCosmeticallyDifferentTitleMatchesExistingTask(t *testing.T) {
	repo := &memRepo{}
	s := newSync(repo)
	_, err := s.Sync(context.Background(), input("s1", rec(domain.CategorySEO, "Missing meta description")))
	require.NoError(t, err)

	reworded := rec(domain.CategorySEO, "Missing  Meta-Description!")
	reworded.Key = ""
	reworded.Priority = domain.PriorityCritical
	report, err := s.Sync(context.Background(), input("s2", reworded))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Refreshed)
	task := repo.byKey(t, metaKey)
	assert.Equal(t, domain.PriorityCritical, task.Priority)
	assert.Equal(t, "s2", task.LastSeenScanID)
	assert.Equal(t, domain.TaskPending, task.Status)
}

func TestCompletedTaskRegresses(t *testing.T) {
	completedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &memRepo{tasks: []domain.Task{{
		ID: "t1", Domain: "example.com", Key: metaKey, Category: domain.CategorySEO,
		Title: "Missing meta description", Effort: domain.EffortEasy, Priority: domain.PriorityHigh,
		Status: domain.TaskCompleted, CompletedAt: &completedAt,
	}}}

	report, err := newSync(repo).Sync(context.Background(), input("s2", rec(domain.CategorySEO, "Missing meta description")))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Regressed)
	assert.Equal(t, 0, report.Created)
	task := repo.byKey(t, metaKey)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, domain.TaskRegressed, task.Status)
	assert.Nil(t, task.CompletedAt)
}

func TestVerifiedTaskRegressesWhenSeenAgain(t *testing.T) {
	repo := &memRepo{tasks: []domain.Task{{
		ID: "t1", Domain: "example.com", Key: metaKey, Category: domain.CategorySEO,
		Title: "Missing meta description", Effort: domain.EffortEasy, Priority: domain.PriorityHigh,
		Status: domain.TaskVerified,
	}}}
	report, err := newSync(repo).Sync(context.Background(), input("s3", rec(domain.CategorySEO, "Missing meta description")))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Regressed)
	assert.Equal(t, domain.TaskRegressed, repo.byKey(t, metaKey).Status)
}

func TestRegressedTaskStaysRegressed(t *testing.T) {
	repo := &memRepo{tasks: []domain.Task{{
		ID: "t1", Domain: "example.com", Key: metaKey, Category: domain.CategorySEO,
		Title: "Missing meta description", Effort: domain.EffortEasy, Priority: domain.PriorityHigh,
		Status: domain.TaskRegressed,
	}}}
	_, err := newSync(repo).Sync(context.Background(), input("s3", rec(domain.CategorySEO, "Missing meta description")))
	require.NoError(t, err)
	assert.Equal(t, domain.TaskRegressed, repo.byKey(t, metaKey).Status)
}

func completedTask(id, key string, cat domain.CategoryKey) domain.Task {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return domain.Task{
		ID: id, Domain: "example.com", Key: key, Category: cat, Title: "t",
		Effort: domain.EffortEasy, Priority: domain.PriorityLow, Status: domain.TaskCompleted, CompletedAt: &at,
	}
}

func TestAbsentCompletedTaskIsVerified(t *testing.T) {
	repo := &memRepo{tasks: []domain.Task{completedTask("t1", metaKey, domain.CategorySEO)}}

	report, err := newSync(repo).Sync(context.Background(), input("s2"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Verified)
	task := repo.byKey(t, metaKey)
	assert.Equal(t, domain.TaskVerified, task.Status)
	assert.NotNil(t, task.CompletedAt, "completion time is kept")
}

func TestAbsenceWithoutConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"unreliable crawl", Input{Domain: "example.com", ScanID: "s2", CrawlReliable: false}},
		{"category without data", Input{Domain: "example.com", ScanID: "s2", CrawlReliable: true,
			NoData: map[domain.CategoryKey]bool{domain.CategorySEO: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{tasks: []domain.Task{completedTask("t1", metaKey, domain.CategorySEO)}}
			report, err := newSync(repo).Sync(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, 0, report.Verified)
			assert.Equal(t, domain.TaskCompleted, repo.byKey(t, metaKey).Status)
		})
	}
}

func TestAbsenceNeedsTheRulesOwnInputs(t *testing.T) {
	hstsKey := domain.StableKey(domain.CategorySecurity, "Enable HSTS")
	certKey := domain.StableKey(domain.CategorySecurity, "Renew the certificate")
	hsts := completedTask("t1", hstsKey, domain.CategorySecurity)
	hsts.RuleID = scoring.RuleSecMissingHSTS
	cert := completedTask("t2", certKey, domain.CategorySecurity)
	cert.RuleID = scoring.RuleSecInvalidCertificate
	repo := &memRepo{tasks: []domain.Task{hsts, cert}}

	s := New(repo, nil, Config{Sources: scoring.Sources}, nil, nil)
	in := input("s2")
	in.Unobserved = map[domain.Source]bool{domain.SourceHeaders: true}
	report, err := s.Sync(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Verified)
	assert.Equal(t, domain.TaskCompleted, repo.byKey(t, hstsKey).Status, "headers were never fetched")
	assert.Equal(t, domain.TaskVerified, repo.byKey(t, certKey).Status)

	report, err = s.Sync(context.Background(), input("s3"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Verified)
	assert.Equal(t, domain.TaskVerified, repo.byKey(t, hstsKey).Status)
}

func TestAbsenceWithoutRuleNeedsEveryCategoryInput(t *testing.T) {
	repo := &memRepo{tasks: []domain.Task{completedTask("t1", metaKey, domain.CategorySEO)}}
	s := New(repo, nil, Config{Sources: scoring.Sources}, nil, nil)

	in := input("s2")
	in.Unobserved = map[domain.Source]bool{domain.SourceIndex: true}
	report, err := s.Sync(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Verified)

	in.Unobserved = map[domain.Source]bool{domain.SourceHeaders: true}
	report, err = s.Sync(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Verified, "a security input says nothing about seo")
}

func TestAbsenceWithoutSourceMapNeedsFullObservation(t *testing.T) {
	repo := &memRepo{tasks: []domain.Task{completedTask("t1", metaKey, domain.CategorySEO)}}
	in := input("s2")
	in.Unobserved = map[domain.Source]bool{domain.SourceArchive: true}
	report, err := newSync(repo).Sync(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Verified)
	assert.Equal(t, domain.TaskCompleted, repo.byKey(t, metaKey).Status)
}

func TestNewTaskKeepsRuleID(t *testing.T) {
	repo := &memRepo{}
	r := rec(domain.CategorySecurity, "Enable HSTS")
	r.RuleID = scoring.RuleSecMissingHSTS
	_, err := newSync(repo).Sync(context.Background(), input("s1", r))
	require.NoError(t, err)
	assert.Equal(t, scoring.RuleSecMissingHSTS, repo.byKey(t, r.Key).RuleID)
}

func TestAbsentPendingTaskIsUntouched(t *testing.T) {
	pending := completedTask("t1", metaKey, domain.CategorySEO)
	pending.Status = domain.TaskPending
	pending.CompletedAt = nil
	pending.LastSeenScanID = "s1"
	repo := &memRepo{tasks: []domain.Task{pending}}

	report, err := newSync(repo).Sync(context.Background(), Input{
		Domain: "example.com", ScanID: "s2", CrawlReliable: true,
		NoData: map[domain.CategoryKey]bool{domain.CategorySEO: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Verified+report.Refreshed+report.Regressed)
	task := repo.byKey(t, metaKey)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, "s1", task.LastSeenScanID)
	assert.Zero(t, repo.batches)
}

func TestFailedBatchFallsBackToRows(t *testing.T) {
	repo := &memRepo{failBatches: true, failKeys: map[string]bool{}}
	recs := []domain.Recommendation{
		rec(domain.CategorySEO, "Missing meta description"),
		rec(domain.CategorySecurity, "Enable HSTS"),
		rec(domain.CategoryContent, "Add alt text"),
	}
	repo.failKeys[recs[1].Key] = true

	report, err := newSync(repo).Sync(context.Background(), input("s1", recs...))
	require.NoError(t, err, "write failures never fail the sync")

	assert.Equal(t, 2, report.Created, "only succeeded rows are counted")
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "insert", report.Failures[0].Op)
	assert.Equal(t, recs[1].Key, report.Failures[0].Target)
	assert.Equal(t, 2, repo.count())
	assert.Equal(t, 3, repo.rowWrites)
}

func TestRowRetryDoesNotDuplicate(t *testing.T) {
	repo := &memRepo{}
	s := newSync(repo)
	in := input("s1", rec(domain.CategorySEO, "Missing meta description"))
	_, err := s.Sync(context.Background(), in)
	require.NoError(t, err)

	// A replayed insert for the same key is ignored by the repository.
	task := repo.byKey(t, metaKey)
	task.ID = "other"
	require.NoError(t, repo.InsertTask(context.Background(), task))
	assert.Equal(t, 1, repo.count())
}

func TestInvalidTaskIsReportedNotWritten(t *testing.T) {
	repo := &memRepo{}
	bad := rec(domain.CategorySEO, "Missing meta description")
	bad.Effort = "Imkansiz"

	report, err := newSync(repo).Sync(context.Background(), input("s1", bad))
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "validate", report.Failures[0].Op)
	assert.Zero(t, repo.count())
}

func TestConcurrentSyncsOfOneDomainDoNotDuplicate(t *testing.T) {
	repo := &memRepo{}
	s := newSync(repo)
	in := input("s1",
		rec(domain.CategorySEO, "Missing meta description"),
		rec(domain.CategorySecurity, "Enable HSTS"),
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Sync(context.Background(), in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, repo.count())
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := NewLocalLocker()
	unlock, err := l.LockDomain(context.Background(), "example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.LockDomain(ctx, "example.com")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := l.LockDomain(context.Background(), "other.com")
	require.NoError(t, err, "domains do not block each other")
	other()

	unlock()
	unlock()
	again, err := l.LockDomain(context.Background(), "example.com")
	require.NoError(t, err)
	again()
	assert.Empty(t, l.locks)
}

func TestSyncFailsWhenHistoryUnavailable(t *testing.T) {
	s := New(failingRepo{&memRepo{}}, nil, Config{}, nil, nil)
	_, err := s.Sync(context.Background(), input("s1"))
	assert.Error(t, err)
}

type failingRepo struct{ *memRepo }

func (failingRepo) ListByDomain(context.Context, string) ([]domain.Task, error) {
	return nil, errors.New("connection reset")
}
