package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities, most urgent first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	default:
		return 3
	}
}

type Effort string

const (
	EffortEasy   Effort = "Kolay"
	EffortMedium Effort = "Orta"
	EffortHard   Effort = "Zor"
)

func (e Effort) Rank() int {
	switch e {
	case EffortEasy:
		return 0
	case EffortMedium:
		return 1
	default:
		return 2
	}
}

type Recommendation struct {
	Key         string      `json:"key" validate:"required"`
	Category    CategoryKey `json:"category" validate:"required"`
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description"`
	HowTo       string      `json:"howTo,omitempty"`
	Priority    Priority    `json:"priority" validate:"oneof=critical high medium low"`
	Effort      Effort      `json:"effort" validate:"oneof=Kolay Orta Zor"`
	RuleID      string      `json:"ruleId,omitempty"`
}

// IdentityKey returns the stored key or derives it from category and title.
func (r Recommendation) IdentityKey() string {
	if r.Key != "" {
		return r.Key
	}
	return StableKey(r.Category, r.Title)
}

type PlanStep struct {
	Order int    `json:"order"`
	Key   string `json:"key"`
	Title string `json:"title"`
	Stage string `json:"stage"`
}

type TreatmentPlan struct {
	Steps []PlanStep `json:"steps,omitempty"`
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// StableKey derives the cross-scan identity of a recommendation. Case,
// diacritics, punctuation and spacing differences map to the same key.
func StableKey(category CategoryKey, title string) string {
	return string(category) + ":" + normalizeKeyText(title)
}

func normalizeKeyText(s string) string {
	// Turkish dotted/dotless i do not fold through NFD alone.
	s = strings.NewReplacer("İ", "i", "I", "i", "ı", "i").Replace(s)
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, "-")
}
