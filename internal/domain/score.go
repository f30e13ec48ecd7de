package domain

import "encoding/json"

type CategoryKey string

const (
	CategoryPerformance CategoryKey = "performance"
	CategorySEO         CategoryKey = "seo"
	CategorySecurity    CategoryKey = "security"
	CategoryContent     CategoryKey = "content"
	CategoryDomainTrust CategoryKey = "domainTrust"
)

// Categories lists every category in rendering order.
var Categories = []CategoryKey{
	CategoryPerformance,
	CategorySEO,
	CategorySecurity,
	CategoryContent,
	CategoryDomainTrust,
}

// Band is the color bucket a score renders in.
type Band string

const (
	BandGreen  Band = "green"
	BandLime   Band = "lime"
	BandOrange Band = "orange"
	BandRed    Band = "red"
	BandNone   Band = "gray"
)

// BandFor is the only score-to-color mapping; renderers and the reconciler
// must both go through it.
func BandFor(score int) Band {
	switch {
	case score >= 80:
		return BandGreen
	case score >= 60:
		return BandLime
	case score >= 40:
		return BandOrange
	default:
		return BandRed
	}
}

// Report is the shape shared by category scores, the overall score and
// authority reports.
type Report interface {
	Overall() int
	Color() Band
	Details() []string
}

// Finding is one fired rubric rule.
type Finding struct {
	RuleID  string `json:"ruleId"`
	Delta   int    `json:"delta"`
	Message string `json:"message"`
}

type CategoryScore struct {
	Key       CategoryKey `json:"key"`
	Label     string      `json:"label"`
	Score     int         `json:"score"`
	NoData    bool        `json:"noData"`
	Rationale []string    `json:"rationale,omitempty"`
	Findings  []Finding   `json:"findings,omitempty"`
}

func (c CategoryScore) Overall() int      { return c.Score }
func (c CategoryScore) Details() []string { return c.Rationale }

func (c CategoryScore) Color() Band {
	if c.NoData {
		return BandNone
	}
	return BandFor(c.Score)
}

// MarshalJSON adds the derived color; it is never read back.
func (c CategoryScore) MarshalJSON() ([]byte, error) {
	type plain CategoryScore
	return json.Marshal(struct {
		plain
		Color Band `json:"color"`
	}{plain(c), c.Color()})
}

type OverallScore struct {
	Score   int                     `json:"score"`
	NoData  bool                    `json:"noData"`
	Weights map[CategoryKey]float64 `json:"weights,omitempty"`
}

func (o OverallScore) Overall() int { return o.Score }

func (o OverallScore) Color() Band {
	if o.NoData {
		return BandNone
	}
	return BandFor(o.Score)
}

func (o OverallScore) Details() []string { return nil }

func (o OverallScore) MarshalJSON() ([]byte, error) {
	type plain OverallScore
	return json.Marshal(struct {
		plain
		Color Band `json:"color"`
	}{plain(o), o.Color()})
}

// Scorecard is the Scoring Engine output.
type Scorecard struct {
	Categories []CategoryScore `json:"categories"`
	Overall    OverallScore    `json:"overall"`
}

// Category looks up one category score.
func (s Scorecard) Category(key CategoryKey) (CategoryScore, bool) {
	for _, c := range s.Categories {
		if c.Key == key {
			return c, true
		}
	}
	return CategoryScore{}, false
}

// NoDataSet returns the categories flagged noData.
func (s Scorecard) NoDataSet() map[CategoryKey]bool {
	out := make(map[CategoryKey]bool)
	for _, c := range s.Categories {
		if c.NoData {
			out[c.Key] = true
		}
	}
	return out
}

func (s Scorecard) clone() Scorecard {
	out := Scorecard{Overall: s.Overall}
	if s.Overall.Weights != nil {
		out.Overall.Weights = make(map[CategoryKey]float64, len(s.Overall.Weights))
		for k, v := range s.Overall.Weights {
			out.Overall.Weights[k] = v
		}
	}
	for _, c := range s.Categories {
		c.Rationale = append([]string(nil), c.Rationale...)
		c.Findings = append([]Finding(nil), c.Findings...)
		out.Categories = append(out.Categories, c)
	}
	return out
}

// AuthorityReport is a specialized sub-score computed from the same aggregate.
type AuthorityReport struct {
	Name    string   `json:"name"`
	Score   int      `json:"score"`
	NoData  bool     `json:"noData"`
	Signals []string `json:"signals,omitempty"`
}

func (a AuthorityReport) Overall() int      { return a.Score }
func (a AuthorityReport) Details() []string { return a.Signals }

func (a AuthorityReport) Color() Band {
	if a.NoData {
		return BandNone
	}
	return BandFor(a.Score)
}

func (a AuthorityReport) MarshalJSON() ([]byte, error) {
	type plain AuthorityReport
	return json.Marshal(struct {
		plain
		Color Band `json:"color"`
	}{plain(a), a.Color()})
}

var (
	_ Report = CategoryScore{}
	_ Report = OverallScore{}
	_ Report = AuthorityReport{}
)
