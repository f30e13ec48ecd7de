// Package authority computes the specialized authority reports. Like the
// scoring engine they are pure functions of the aggregate result.
package authority

import (
	"fmt"
	"time"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

const noDataScore = 50

// Default returns the built-in report set in rendering order.
func Default() []ports.AuthorityScorer {
	return []ports.AuthorityScorer{Trust{}, Presence{}}
}

// ReportAll runs every scorer against res.
func ReportAll(res *domain.AnalysisResult, scorers []ports.AuthorityScorer) []domain.AuthorityReport {
	out := make([]domain.AuthorityReport, 0, len(scorers))
	for _, s := range scorers {
		out = append(out, s.Report(res))
	}
	return out
}

type builder struct {
	score   int
	signals []string
	data    bool
}

func (b *builder) add(delta int, format string, args ...any) {
	b.score += delta
	b.signals = append(b.signals, fmt.Sprintf(format, args...))
}

func (b *builder) report(name string) domain.AuthorityReport {
	if !b.data {
		return domain.AuthorityReport{Name: name, Score: noDataScore, NoData: true}
	}
	return domain.AuthorityReport{Name: name, Score: clamp(b.score), Signals: b.signals}
}

func clamp(v int) int {
	return max(0, min(100, v))
}

func scanTime(res *domain.AnalysisResult) time.Time {
	if res.StartedAt.IsZero() {
		return time.Now()
	}
	return res.StartedAt
}

// Trust estimates how far a visitor can trust the domain: reputation,
// history, mail authentication and search presence.
type Trust struct{}

func (Trust) Name() string { return "trust" }

func (Trust) Report(res *domain.AnalysisResult) domain.AuthorityReport {
	b := builder{score: 50}
	if rep, ok := res.Reputation.Get(); ok {
		b.data = true
		if rep.Flagged {
			b.add(-40, "flagged by reputation provider")
		} else {
			b.add(10, "clean reputation")
		}
	}
	if a, ok := res.Archive.Get(); ok {
		b.data = true
		if a.Archived {
			age := a.AgeYears(scanTime(res))
			b.add(min(age*3, 25), "%d years of archive history", age)
		} else {
			b.add(-10, "no archive history")
		}
	}
	if dns, ok := res.DNS.Get(); ok {
		b.data = true
		if dns.HasSPF {
			b.add(5, "SPF published")
		}
		if dns.HasDMARC {
			b.add(5, "DMARC published")
		}
	}
	if idx, ok := res.Index.Get(); ok {
		b.data = true
		switch {
		case idx.ResultCount > 100:
			b.add(15, "%d indexed pages", idx.ResultCount)
		case idx.Indexed:
			b.add(10, "indexed")
		default:
			b.add(-10, "not indexed")
		}
	}
	return b.report(Trust{}.Name())
}

// Presence estimates how visible the brand is beyond its own pages.
type Presence struct{}

func (Presence) Name() string { return "presence" }

func (Presence) Report(res *domain.AnalysisResult) domain.AuthorityReport {
	b := builder{score: 40}
	if facts, ok := res.Content.Get(); ok && res.CrawlReliable {
		b.data = true
		if n := len(facts.SocialLinks); n > 0 {
			b.add(min(n*5, 20), "%d social profiles linked", n)
		} else {
			b.add(-10, "no social profiles linked")
		}
		if facts.HasOpenGraph {
			b.add(10, "Open Graph tags present")
		}
		if facts.OGSiteName != "" {
			b.add(5, "site name declared")
		}
	}
	if a, ok := res.Archive.Get(); ok && a.Archived {
		b.data = true
		b.add(10, "publicly archived")
	}
	if id, ok := res.Identity.Get(); ok {
		b.data = true
		switch id.Maturity {
		case domain.MaturityEstablished:
			b.add(15, "established brand")
		case domain.MaturityGrowing:
			b.add(5, "growing brand")
		}
	}
	return b.report(Presence{}.Name())
}
