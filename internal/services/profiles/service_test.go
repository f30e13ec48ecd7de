package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
)

type stubAnalyses map[string]*domain.AnalysisResult

func (s stubAnalyses) SaveAnalysis(context.Context, *domain.AnalysisResult) error { return nil }

func (s stubAnalyses) LatestAnalysis(_ context.Context, registrable string) (*domain.AnalysisResult, error) {
	if registrable == "broken.com" {
		return nil, errors.New("connection reset")
	}
	res, ok := s[registrable]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return res, nil
}

type stubTasks []domain.Task

func (s stubTasks) ListByDomain(context.Context, string) ([]domain.Task, error) { return s, nil }
func (s stubTasks) ApplyBatch(context.Context, []domain.Task, []domain.Task) error { return nil }
func (s stubTasks) InsertTask(context.Context, domain.Task) error { return nil }
func (s stubTasks) UpdateTask(context.Context, domain.Task) error { return nil }

func TestGetLatest(t *testing.T) {
	analyses := stubAnalyses{"example.com": {
		Domain:        "example.com",
		ScanID:        "scan-9",
		CrawlReliable: true,
		Scores:        domain.Scorecard{Overall: domain.OverallScore{Score: 72}},
		Validation:    &domain.ValidationSummary{VerificationScore: 80},
	}}
	tasks := stubTasks{
		{Status: domain.TaskPending},
		{Status: domain.TaskRegressed},
		{Status: domain.TaskCompleted},
		{Status: domain.TaskVerified},
	}
	prof, err := New(analyses, tasks).GetLatest(context.Background(), " Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "scan-9", prof.ScanID)
	assert.Equal(t, 72, prof.Scores.Overall.Score)
	require.NotNil(t, prof.VerificationScore)
	assert.Equal(t, 80, *prof.VerificationScore)
	assert.Equal(t, 2, prof.OpenTasks)
}

func TestGetLatestWithoutValidation(t *testing.T) {
	analyses := stubAnalyses{"example.com": {Domain: "example.com"}}
	prof, err := New(analyses, nil).GetLatest(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Nil(t, prof.VerificationScore)
	assert.Zero(t, prof.OpenTasks)
}

func TestGetLatestErrors(t *testing.T) {
	s := New(stubAnalyses{}, nil)
	_, err := s.GetLatest(context.Background(), "unknown.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetLatest(context.Background(), "broken.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
