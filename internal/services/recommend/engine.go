// Package recommend turns negative scoring findings into recommendations and
// orders them into a treatment plan.
package recommend

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"sitescope/internal/domain"
)

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Recommend maps every negative finding of a scored category to an
// improvement item. noData categories produce nothing. Items are keyed by
// StableKey and returned in plan order.
func (e *Engine) Recommend(res *domain.AnalysisResult) []domain.Recommendation {
	seen := make(map[string]bool)
	var out []domain.Recommendation
	for _, cat := range res.Scores.Categories {
		if cat.NoData {
			continue
		}
		for _, f := range cat.Findings {
			if f.Delta >= 0 {
				continue
			}
			r := fromFinding(cat, f)
			if seen[r.Key] {
				continue
			}
			seen[r.Key] = true
			out = append(out, r)
		}
	}
	sortRecommendations(out)
	return out
}

func fromFinding(cat domain.CategoryScore, f domain.Finding) domain.Recommendation {
	ent, ok := catalog[f.RuleID]
	if !ok {
		ent = entry{
			Title:       ruleTitle(f),
			Description: f.Message,
			Priority:    priorityForDelta(f.Delta),
			Effort:      domain.EffortMedium,
		}
	}
	// A red category escalates its low-priority items one step.
	if domain.BandFor(cat.Score) == domain.BandRed && ent.Priority.Rank() > domain.PriorityHigh.Rank() {
		ent.Priority = escalate(ent.Priority)
	}
	return domain.Recommendation{
		Key:         domain.StableKey(cat.Key, ent.Title),
		Category:    cat.Key,
		Title:       ent.Title,
		Description: ent.Description,
		HowTo:       ent.HowTo,
		Priority:    ent.Priority,
		Effort:      ent.Effort,
		RuleID:      f.RuleID,
	}
}

// ruleTitle names an uncatalogued finding after its rule. Messages carry
// per-scan measurements and would change the task key on every scan.
func ruleTitle(f domain.Finding) string {
	words := strings.Fields(strings.ReplaceAll(f.RuleID, "_", " "))
	if len(words) == 0 {
		return f.Message
	}
	title := strings.Join(words, " ")
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

func priorityForDelta(d int) domain.Priority {
	switch {
	case d <= -30:
		return domain.PriorityCritical
	case d <= -15:
		return domain.PriorityHigh
	case d <= -5:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

func escalate(p domain.Priority) domain.Priority {
	switch p {
	case domain.PriorityLow:
		return domain.PriorityMedium
	case domain.PriorityMedium:
		return domain.PriorityHigh
	default:
		return p
	}
}

func sortRecommendations(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if a.Effort.Rank() != b.Effort.Rank() {
			return a.Effort.Rank() < b.Effort.Rank()
		}
		return a.Key < b.Key
	})
}
