// Package scoring turns an AnalysisResult into category scores and an
// overall score. Everything here is a pure function of its input.
package scoring

import (
	"fmt"
	"time"

	"sitescope/internal/domain"
)

// hit is one rule that fired for a category.
type hit struct {
	rule string
	msg  string
}

// evaluator inspects the result for one category. ok is false when every
// input the category depends on is unusable.
type evaluator func(res *domain.AnalysisResult) (hits []hit, ok bool)

// Engine applies a Rubric. It holds no state besides the rubric and is safe
// for concurrent use.
type Engine struct {
	rubric     Rubric
	evaluators map[domain.CategoryKey]evaluator
	now        func() time.Time
}

func NewEngine(r Rubric) (*Engine, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rubric: %w", err)
	}
	e := &Engine{rubric: r, now: time.Now}
	e.evaluators = map[domain.CategoryKey]evaluator{
		domain.CategoryPerformance: performance,
		domain.CategorySEO:         seo,
		domain.CategorySecurity:    security,
		domain.CategoryContent:     content,
		domain.CategoryDomainTrust: e.domainTrust,
	}
	return e, nil
}

// MustEngine is NewEngine for rubrics known to be valid.
func MustEngine(r Rubric) *Engine {
	e, err := NewEngine(r)
	if err != nil {
		panic(err)
	}
	return e
}

// Rubric returns the policy the engine scores with.
func (e *Engine) Rubric() Rubric { return e.rubric }

// Score computes every category and the overall score.
func (e *Engine) Score(res *domain.AnalysisResult) domain.Scorecard {
	cats := make([]domain.CategoryScore, 0, len(domain.Categories))
	for _, key := range domain.Categories {
		cats = append(cats, e.scoreCategory(key, res))
	}
	return domain.Scorecard{
		Categories: cats,
		Overall:    Overall(cats, e.rubric.Weights),
	}
}

func (e *Engine) scoreCategory(key domain.CategoryKey, res *domain.AnalysisResult) domain.CategoryScore {
	cs := domain.CategoryScore{Key: key, Label: e.rubric.label(key)}
	hits, ok := e.evaluators[key](res)
	if !ok {
		cs.NoData = true
		cs.Score = NoDataScore
		return cs
	}
	score := e.rubric.Base[key]
	for _, h := range hits {
		delta := e.rubric.Deltas[h.rule]
		score += delta
		cs.Findings = append(cs.Findings, domain.Finding{RuleID: h.rule, Delta: delta, Message: h.msg})
		cs.Rationale = append(cs.Rationale, rationale(h.msg, delta))
	}
	cs.Score = clamp(score)
	return cs
}

func rationale(msg string, delta int) string {
	if delta == 0 {
		return msg
	}
	return fmt.Sprintf("%s (%+d)", msg, delta)
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// markupFacts returns the content facts only when they came from a reliable
// crawl.
func markupFacts(res *domain.AnalysisResult) (domain.ContentFacts, bool) {
	if !res.CrawlReliable {
		return domain.ContentFacts{}, false
	}
	return res.Content.Get()
}

func performance(res *domain.AnalysisResult) ([]hit, bool) {
	s, ok := res.Speed.Get()
	if !ok {
		return nil, false
	}
	var hits []hit
	switch {
	case s.PerformanceScore >= 90:
		hits = append(hits, hit{RulePerfScoreHigh, fmt.Sprintf("Lab performance score is %.0f", s.PerformanceScore)})
	case s.PerformanceScore >= 50:
		hits = append(hits, hit{RulePerfScoreGood, fmt.Sprintf("Lab performance score is %.0f", s.PerformanceScore)})
	default:
		hits = append(hits, hit{RulePerfScorePoor, fmt.Sprintf("Lab performance score is only %.0f", s.PerformanceScore)})
	}
	switch {
	case s.LCPMillis > 0 && s.LCPMillis <= 2500:
		hits = append(hits, hit{RulePerfLCPFast, "Largest contentful paint is within 2.5s"})
	case s.LCPMillis > 4000:
		hits = append(hits, hit{RulePerfLCPSlow, fmt.Sprintf("Largest contentful paint takes %.1fs", s.LCPMillis/1000)})
	}
	if s.CLS > 0.25 {
		hits = append(hits, hit{RulePerfCLSHigh, fmt.Sprintf("Layout shift is high (CLS %.2f)", s.CLS)})
	}
	if s.TBTMillis > 600 {
		hits = append(hits, hit{RulePerfTBTHigh, fmt.Sprintf("Main thread is blocked for %.0fms", s.TBTMillis)})
	}
	return hits, true
}

func seo(res *domain.AnalysisResult) ([]hit, bool) {
	facts, haveFacts := markupFacts(res)
	index, haveIndex := res.Index.Get()
	if !haveFacts && !haveIndex {
		return nil, false
	}
	var hits []hit
	if haveFacts {
		switch n := len([]rune(facts.Title)); {
		case n == 0:
			hits = append(hits, hit{RuleSEOMissingTitle, "Page has no title"})
		case n < 10 || n > 70:
			hits = append(hits, hit{RuleSEOTitle, "Page has a title"}, hit{RuleSEOTitleLength, fmt.Sprintf("Title length %d is outside 10-70 characters", n)})
		default:
			hits = append(hits, hit{RuleSEOTitle, "Page has a title"})
		}
		if facts.MetaDescription == "" {
			hits = append(hits, hit{RuleSEOMissingMetaDesc, "Meta description is missing"})
		} else {
			hits = append(hits, hit{RuleSEOMetaDescription, "Meta description is present"})
		}
		switch {
		case facts.H1Count == 0:
			hits = append(hits, hit{RuleSEOMissingH1, "Page has no H1 heading"})
		case facts.H1Count > 1:
			hits = append(hits, hit{RuleSEOMultipleH1, fmt.Sprintf("Page has %d H1 headings", facts.H1Count)})
		default:
			hits = append(hits, hit{RuleSEOSingleH1, "Page has a single H1 heading"})
		}
		if facts.Canonical == "" {
			hits = append(hits, hit{RuleSEOMissingCanonical, "Canonical link is missing"})
		}
		if !facts.HasViewport {
			hits = append(hits, hit{RuleSEOMissingViewport, "Viewport meta tag is missing"})
		}
		if !facts.HasOpenGraph {
			hits = append(hits, hit{RuleSEOMissingOpenGraph, "Open Graph tags are missing"})
		}
		if len(facts.SchemaTypes) > 0 {
			hits = append(hits, hit{RuleSEOStructuredData, "Structured data is present"})
		} else {
			hits = append(hits, hit{RuleSEOMissingStructured, "Structured data is missing"})
		}
		if facts.Lang == "" {
			hits = append(hits, hit{RuleSEOMissingLang, "Document language is not declared"})
		}
	}
	if haveIndex {
		if index.Indexed {
			hits = append(hits, hit{RuleSEOIndexed, "Site appears in the search index"})
		} else {
			hits = append(hits, hit{RuleSEONotIndexed, "Site does not appear in the search index"})
		}
	}
	return hits, true
}

func security(res *domain.AnalysisResult) ([]hit, bool) {
	cert, haveCert := res.Certificate.Get()
	h, haveHeaders := res.Headers.Get()
	if !haveCert && !haveHeaders {
		return nil, false
	}
	var hits []hit
	if haveCert {
		if cert.Valid {
			hits = append(hits, hit{RuleSecValidCertificate, "TLS certificate is valid"})
			if cert.DaysRemaining < 14 {
				hits = append(hits, hit{RuleSecCertExpiring, fmt.Sprintf("TLS certificate expires in %d days", cert.DaysRemaining)})
			}
		} else {
			hits = append(hits, hit{RuleSecInvalidCertificate, "TLS certificate is invalid"})
		}
	}
	if haveHeaders {
		if h.HSTS {
			hits = append(hits, hit{RuleSecHSTS, "Strict-Transport-Security is set"})
		} else {
			hits = append(hits, hit{RuleSecMissingHSTS, "Strict-Transport-Security is missing"})
		}
		if h.CSP {
			hits = append(hits, hit{RuleSecCSP, "Content-Security-Policy is set"})
		} else {
			hits = append(hits, hit{RuleSecMissingCSP, "Content-Security-Policy is missing"})
		}
		if !h.XFrameOptions {
			hits = append(hits, hit{RuleSecMissingXFO, "X-Frame-Options is missing"})
		}
		if !h.XContentTypeOptions {
			hits = append(hits, hit{RuleSecMissingXCTO, "X-Content-Type-Options is missing"})
		}
		if !h.ReferrerPolicy {
			hits = append(hits, hit{RuleSecMissingReferrer, "Referrer-Policy is missing"})
		}
		if !h.PermissionsPolicy {
			hits = append(hits, hit{RuleSecMissingPermissions, "Permissions-Policy is missing"})
		}
	}
	return hits, true
}

func content(res *domain.AnalysisResult) ([]hit, bool) {
	facts, haveFacts := markupFacts(res)
	validity, haveValidity := res.Validity.Get()
	if !res.CrawlReliable {
		haveValidity = false
	}
	if !haveFacts && !haveValidity {
		return nil, false
	}
	var hits []hit
	if haveFacts {
		switch {
		case facts.WordCount >= 800:
			hits = append(hits, hit{RuleContentRich, fmt.Sprintf("Page has %d words", facts.WordCount)})
		case facts.WordCount >= 300:
			hits = append(hits, hit{RuleContentAdequate, fmt.Sprintf("Page has %d words", facts.WordCount)})
		default:
			hits = append(hits, hit{RuleContentThin, fmt.Sprintf("Page has only %d words", facts.WordCount)})
		}
		if facts.ParagraphCount < 3 {
			hits = append(hits, hit{RuleContentFewParagraphs, fmt.Sprintf("Page has %d paragraphs", facts.ParagraphCount)})
		}
		switch {
		case facts.ImageCount == 0:
			hits = append(hits, hit{RuleContentNoImages, "Page has no images"})
		case facts.ImagesWithoutAlt > 0:
			hits = append(hits, hit{RuleContentMissingAlt, fmt.Sprintf("%d of %d images lack alt text", facts.ImagesWithoutAlt, facts.ImageCount)})
		default:
			hits = append(hits, hit{RuleContentImagesAlt, "All images have alt text"})
		}
		if facts.InternalLinks < 5 {
			hits = append(hits, hit{RuleContentFewLinks, fmt.Sprintf("Page has %d internal links", facts.InternalLinks)})
		}
	}
	if haveValidity {
		switch {
		case validity.Errors == 0:
			hits = append(hits, hit{RuleContentMarkupClean, "Markup validates without errors"})
		case validity.Errors > 10:
			hits = append(hits, hit{RuleContentMarkupErrors, fmt.Sprintf("Markup has %d validation errors", validity.Errors)})
		}
	}
	return hits, true
}

func (e *Engine) domainTrust(res *domain.AnalysisResult) ([]hit, bool) {
	rep, haveRep := res.Reputation.Get()
	archive, haveArchive := res.Archive.Get()
	dns, haveDNS := res.DNS.Get()
	if !haveRep && !haveArchive && !haveDNS {
		return nil, false
	}
	var hits []hit
	if haveRep {
		if rep.Flagged {
			hits = append(hits, hit{RuleTrustFlagged, fmt.Sprintf("Site is flagged for %v", rep.Threats)})
		} else {
			hits = append(hits, hit{RuleTrustClean, "No malware or phishing reports"})
		}
	}
	if haveArchive {
		age := archive.AgeYears(e.at(res))
		switch {
		case !archive.Archived:
			hits = append(hits, hit{RuleTrustNoArchive, "Site has no public archive history"})
		case age >= 5:
			hits = append(hits, hit{RuleTrustEstablished, fmt.Sprintf("Site has %d years of history", age)})
		case age < 1:
			hits = append(hits, hit{RuleTrustYoung, "Site history is under a year old"})
		}
	}
	if haveDNS {
		if dns.HasSPF {
			hits = append(hits, hit{RuleTrustSPF, "SPF record is published"})
		} else {
			hits = append(hits, hit{RuleTrustMissingSPF, "SPF record is missing"})
		}
		if dns.HasDMARC {
			hits = append(hits, hit{RuleTrustDMARC, "DMARC record is published"})
		} else {
			hits = append(hits, hit{RuleTrustMissingDMARC, "DMARC record is missing"})
		}
		if len(dns.MX) == 0 {
			hits = append(hits, hit{RuleTrustMissingMX, "No MX record is published"})
		}
	}
	return hits, true
}

// at anchors time-dependent rules to the scan so rescoring is repeatable.
func (e *Engine) at(res *domain.AnalysisResult) time.Time {
	if !res.StartedAt.IsZero() {
		return res.StartedAt
	}
	return e.now()
}
