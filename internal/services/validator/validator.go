// Package validator cross-checks an analysis against facts re-derived from
// the raw markup, corrects or removes what disagrees and rescores.
package validator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"sitescope/internal/domain"
	"sitescope/internal/metrics"
	"sitescope/internal/ports"
)

type Config struct {
	// WordTolerance is the relative word-count difference still accepted.
	WordTolerance float64
	// WordSlack is the absolute floor of the word-count tolerance.
	WordSlack int
}

func DefaultConfig() Config {
	return Config{WordTolerance: 0.10, WordSlack: 5}
}

type Validator struct {
	scorer  ports.Scorer
	cfg     Config
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(scorer ports.Scorer, cfg Config, log *zap.Logger, m *metrics.Metrics) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.WordTolerance <= 0 && cfg.WordSlack <= 0 {
		cfg = DefaultConfig()
	}
	return &Validator{scorer: scorer, cfg: cfg, log: log, metrics: m}
}

// Reconcile returns a corrected copy of res and the summary of every check.
// The input is never modified. When the crawl gave no usable markup nothing
// is checked: res is returned as is with a nil summary.
func (v *Validator) Reconcile(res *domain.AnalysisResult) (*domain.AnalysisResult, *domain.ValidationSummary) {
	markup := res.Markup()
	if !res.CrawlReliable || len(markup) == 0 {
		return res, nil
	}
	start := time.Now()
	out := res.Clone()
	mf := scanMarkup(markup)

	var checks []domain.ValidationCheck

	if facts, ok := out.Content.Get(); ok {
		checks = append(checks,
			checkCount(FieldWordCount, &facts.WordCount, mf.words, v.wordTolerance(mf.words)),
			checkCount(FieldImageCount, &facts.ImageCount, mf.images, 0),
			checkCount(FieldH1Count, &facts.H1Count, mf.h1, 0),
			checkTitle(&facts, mf),
		)
		if c, ok := checkAltCount(&facts); ok {
			checks = append(checks, c)
		}
		if len(facts.AnalyticsTags) > 0 {
			checks = append(checks, checkList(FieldAnalyticsTags, &facts.AnalyticsTags, func(tag string) bool {
				return analyticsEvidenced(tag, mf.raw)
			}))
		}
		if len(facts.SocialLinks) > 0 {
			checks = append(checks, checkList(FieldSocialLinks, &facts.SocialLinks, func(link string) bool {
				return mf.hrefs[normalizeLink(link)]
			}))
		}
		out.Content = domain.Success(facts)
	}

	if id, ok := out.Identity.Get(); ok {
		if id.SiteType != "" {
			checks = append(checks, checkSiteType(&id, mf))
		}
		if id.BrandName != "" {
			checks = append(checks, checkBrand(&id, mf))
		}
		out.Identity = domain.Success(id)
	}

	if cert, ok := out.Certificate.Get(); ok {
		crawl, _ := out.Crawl.Get()
		check, keep := checkCertificate(cert, crawl)
		checks = append(checks, check)
		if !keep {
			out.Certificate = domain.Failed[domain.CertificateInfo](domain.ReasonFilteredByTool)
		}
	}

	// Scores are always recomputed from the cleaned facts.
	before := out.Scores
	out.Scores = v.scorer.Score(out)
	checks = append(checks, scoreChecks(before, out.Scores)...)

	summary := domain.NewValidationSummary(checks, time.Since(start))
	out.Validation = summary

	for _, c := range checks {
		v.metrics.IncCheck(string(c.Outcome()))
	}
	if summary != nil {
		v.metrics.ObserveVerification(summary.VerificationScore)
		v.log.Debug("reconciled",
			zap.String("domain", res.Domain),
			zap.Int("checks", summary.TotalChecks),
			zap.Int("verified", summary.Verified),
			zap.Int("filtered", summary.Filtered),
			zap.Int("verification_score", summary.VerificationScore))
	}
	return out, summary
}

func scoreChecks(before, after domain.Scorecard) []domain.ValidationCheck {
	var checks []domain.ValidationCheck
	for _, now := range after.Categories {
		prev, ok := before.Category(now.Key)
		if !ok {
			continue
		}
		if prev.NoData && now.NoData {
			continue
		}
		field := scoreField(now.Key)
		switch {
		case prev.NoData == now.NoData && prev.Score == now.Score:
			checks = append(checks, verified(field, "unchanged: %d", now.Score))
		default:
			checks = append(checks, corrected(field, "%s → %s", scoreLabel(prev), scoreLabel(now)))
		}
	}
	return checks
}

func scoreLabel(c domain.CategoryScore) string {
	if c.NoData {
		return "no data"
	}
	return fmt.Sprint(c.Score)
}

// Changed reports whether the reconciler corrected or removed anything.
func Changed(s *domain.ValidationSummary) bool {
	return s.Count(domain.CheckCorrected) > 0 || s.Count(domain.CheckFiltered) > 0
}
