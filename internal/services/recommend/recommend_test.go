package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
	"sitescope/internal/services/scoring"
)

func scorecard(cats ...domain.CategoryScore) *domain.AnalysisResult {
	return &domain.AnalysisResult{Scores: domain.Scorecard{Categories: cats}}
}

func TestCatalogCoversEveryNegativeRule(t *testing.T) {
	for rule, delta := range scoring.DefaultRubric().Deltas {
		if delta >= 0 {
			continue
		}
		ent, ok := catalog[rule]
		if assert.True(t, ok, "no catalog entry for %s", rule) {
			r := domain.Recommendation{Key: "k", Category: domain.CategorySEO, Title: ent.Title, Priority: ent.Priority, Effort: ent.Effort}
			assert.NoError(t, r.Validate(), rule)
		}
	}
}

func TestRecommendFromFindings(t *testing.T) {
	res := scorecard(
		domain.CategoryScore{Key: domain.CategorySEO, Score: 65, Findings: []domain.Finding{
			{RuleID: scoring.RuleSEOTitle, Delta: 10},
			{RuleID: scoring.RuleSEOMissingMetaDesc, Delta: -15, Message: "Meta description is missing"},
		}},
		domain.CategoryScore{Key: domain.CategorySecurity, Score: 50, NoData: true, Findings: []domain.Finding{
			{RuleID: scoring.RuleSecMissingHSTS, Delta: -8},
		}},
	)
	recs := NewEngine().Recommend(res)
	require.Len(t, recs, 1, "positive findings and noData categories yield nothing")
	assert.Equal(t, "seo:missing-meta-description", recs[0].Key)
	assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
	assert.Equal(t, domain.EffortEasy, recs[0].Effort)
	assert.Equal(t, scoring.RuleSEOMissingMetaDesc, recs[0].RuleID)
}

func TestRedCategoryEscalatesPriority(t *testing.T) {
	res := scorecard(domain.CategoryScore{Key: domain.CategorySecurity, Score: 20, Findings: []domain.Finding{
		{RuleID: scoring.RuleSecMissingXCTO, Delta: -5},
	}})
	recs := NewEngine().Recommend(res)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.PriorityMedium, recs[0].Priority)
}

func TestUnknownRuleIsNamedAfterRule(t *testing.T) {
	res := scorecard(domain.CategoryScore{Key: domain.CategoryContent, Score: 70, Findings: []domain.Finding{
		{RuleID: "custom_rule", Delta: -20, Message: "Custom problem"},
	}})
	recs := NewEngine().Recommend(res)
	require.Len(t, recs, 1)
	assert.Equal(t, "content:custom-rule", recs[0].Key)
	assert.Equal(t, "Custom rule", recs[0].Title)
	assert.Equal(t, "Custom problem", recs[0].Description)
	assert.Equal(t, domain.PriorityHigh, recs[0].Priority)
}

func TestUnknownRuleWithoutIDUsesMessage(t *testing.T) {
	res := scorecard(domain.CategoryScore{Key: domain.CategoryContent, Score: 70, Findings: []domain.Finding{
		{Delta: -5, Message: "Custom problem"},
	}})
	recs := NewEngine().Recommend(res)
	require.Len(t, recs, 1)
	assert.Equal(t, "content:custom-problem", recs[0].Key)
}

func TestOverriddenRuleKeyIsStableAcrossScans(t *testing.T) {
	rubric, err := scoring.DefaultRubric().WithOverrides(nil, map[string]int{scoring.RulePerfScoreGood: -5})
	require.NoError(t, err)
	scorer := scoring.MustEngine(rubric)

	keyFor := func(score float64) string {
		res := &domain.AnalysisResult{Speed: domain.Success(domain.SpeedMetrics{PerformanceScore: score})}
		recs := NewEngine().Recommend(res.WithScores(scorer.Score(res)))
		for _, r := range recs {
			if r.RuleID == scoring.RulePerfScoreGood {
				return r.Key
			}
		}
		t.Fatalf("no recommendation for %s at %.0f", scoring.RulePerfScoreGood, score)
		return ""
	}
	assert.Equal(t, keyFor(72), keyFor(73))
	assert.Equal(t, "performance:perf-score-good", keyFor(72))
}

func TestRecommendIsDeterministicAndDeduplicated(t *testing.T) {
	res := scorecard(domain.CategoryScore{Key: domain.CategorySEO, Score: 40, Findings: []domain.Finding{
		{RuleID: scoring.RuleSEOMissingCanonical, Delta: -5},
		{RuleID: scoring.RuleSEOMissingTitle, Delta: -20},
		{RuleID: scoring.RuleSEOMissingTitle, Delta: -20},
		{RuleID: scoring.RuleSEOMissingViewport, Delta: -10},
	}})
	a := NewEngine().Recommend(res)
	b := NewEngine().Recommend(res)
	assert.Equal(t, a, b)
	require.Len(t, a, 3)
	assert.Equal(t, domain.PriorityCritical, a[0].Priority)
}

func TestPlanner(t *testing.T) {
	recs := []domain.Recommendation{
		{Category: domain.CategoryContent, Title: "Expand the page content", Priority: domain.PriorityHigh, Effort: domain.EffortHard},
		{Category: domain.CategorySEO, Title: "Add a viewport meta tag", Priority: domain.PriorityHigh, Effort: domain.EffortEasy},
		{Category: domain.CategorySecurity, Title: "Fix the TLS certificate", Priority: domain.PriorityCritical, Effort: domain.EffortMedium},
	}
	plan := NewPlanner().Build(recs)
	require.Len(t, plan.Steps, 3)

	assert.Equal(t, "security:fix-the-tls-certificate", plan.Steps[0].Key)
	assert.Equal(t, StagePlanned, plan.Steps[0].Stage)
	assert.Equal(t, StageQuickWin, plan.Steps[1].Stage)
	assert.Equal(t, StageProject, plan.Steps[2].Stage)
	for i, s := range plan.Steps {
		assert.Equal(t, i+1, s.Order)
	}
	assert.Equal(t, "Expand the page content", recs[0].Title, "input order untouched")
}
