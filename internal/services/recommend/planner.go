package recommend

import "sitescope/internal/domain"

// Plan stages, derived from effort.
const (
	StageQuickWin = "quick-win"
	StagePlanned  = "planned"
	StageProject  = "project"
)

type Planner struct{}

func NewPlanner() *Planner { return &Planner{} }

// Build orders recs by priority, then effort, then key. The input slice is
// not reordered.
func (p *Planner) Build(recs []domain.Recommendation) domain.TreatmentPlan {
	sorted := append([]domain.Recommendation(nil), recs...)
	sortRecommendations(sorted)

	steps := make([]domain.PlanStep, 0, len(sorted))
	for i, r := range sorted {
		steps = append(steps, domain.PlanStep{
			Order: i + 1,
			Key:   r.IdentityKey(),
			Title: r.Title,
			Stage: stageFor(r.Effort),
		})
	}
	return domain.TreatmentPlan{Steps: steps}
}

func stageFor(e domain.Effort) string {
	switch e {
	case domain.EffortEasy:
		return StageQuickWin
	case domain.EffortMedium:
		return StagePlanned
	default:
		return StageProject
	}
}
