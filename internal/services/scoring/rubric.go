package scoring

import (
	"fmt"
	"sort"

	"sitescope/internal/domain"
)

// Rule IDs. They double as config keys (scoring.deltas.<id>) and as the join
// key the recommendation catalog uses, so they must stay stable.
const (
	RulePerfScoreHigh = "perf_score_high"
	RulePerfScoreGood = "perf_score_good"
	RulePerfScorePoor = "perf_score_poor"
	RulePerfLCPFast   = "perf_lcp_fast"
	RulePerfLCPSlow   = "perf_lcp_slow"
	RulePerfCLSHigh   = "perf_cls_high"
	RulePerfTBTHigh   = "perf_tbt_high"

	RuleSEOTitle             = "seo_title"
	RuleSEOMissingTitle      = "seo_missing_title"
	RuleSEOTitleLength       = "seo_title_length"
	RuleSEOMetaDescription   = "seo_meta_description"
	RuleSEOMissingMetaDesc   = "seo_missing_meta_description"
	RuleSEOSingleH1          = "seo_single_h1"
	RuleSEOMissingH1         = "seo_missing_h1"
	RuleSEOMultipleH1        = "seo_multiple_h1"
	RuleSEOMissingCanonical  = "seo_missing_canonical"
	RuleSEOMissingViewport   = "seo_missing_viewport"
	RuleSEOMissingOpenGraph  = "seo_missing_open_graph"
	RuleSEOStructuredData    = "seo_structured_data"
	RuleSEOMissingStructured = "seo_missing_structured_data"
	RuleSEOMissingLang       = "seo_missing_lang"
	RuleSEOIndexed           = "seo_indexed"
	RuleSEONotIndexed        = "seo_not_indexed"

	RuleSecValidCertificate   = "sec_valid_certificate"
	RuleSecInvalidCertificate = "sec_invalid_certificate"
	RuleSecCertExpiring       = "sec_certificate_expiring"
	RuleSecHSTS               = "sec_hsts"
	RuleSecMissingHSTS        = "sec_missing_hsts"
	RuleSecCSP                = "sec_csp"
	RuleSecMissingCSP         = "sec_missing_csp"
	RuleSecMissingXFO         = "sec_missing_x_frame_options"
	RuleSecMissingXCTO        = "sec_missing_x_content_type_options"
	RuleSecMissingReferrer    = "sec_missing_referrer_policy"
	RuleSecMissingPermissions = "sec_missing_permissions_policy"

	RuleContentRich          = "content_rich"
	RuleContentAdequate      = "content_adequate"
	RuleContentThin          = "content_thin"
	RuleContentFewParagraphs = "content_few_paragraphs"
	RuleContentNoImages      = "content_no_images"
	RuleContentImagesAlt     = "content_images_alt"
	RuleContentMissingAlt    = "content_images_missing_alt"
	RuleContentFewLinks      = "content_few_internal_links"
	RuleContentMarkupClean   = "content_markup_clean"
	RuleContentMarkupErrors  = "content_markup_errors"

	RuleTrustClean        = "trust_clean_reputation"
	RuleTrustFlagged      = "trust_flagged"
	RuleTrustEstablished  = "trust_established_history"
	RuleTrustYoung        = "trust_young_history"
	RuleTrustNoArchive    = "trust_no_archive"
	RuleTrustSPF          = "trust_spf"
	RuleTrustMissingSPF   = "trust_missing_spf"
	RuleTrustDMARC        = "trust_dmarc"
	RuleTrustMissingDMARC = "trust_missing_dmarc"
	RuleTrustMissingMX    = "trust_missing_mx"
)

// Rubric is the scoring policy: category weights, base values and the point
// delta of every rule. Engines never mutate it.
type Rubric struct {
	Weights map[domain.CategoryKey]float64
	Base    map[domain.CategoryKey]int
	Deltas  map[string]int
	Labels  map[domain.CategoryKey]string
}

// NoDataScore is the neutral placeholder a noData category carries.
const NoDataScore = 50

// DefaultRubric returns the built-in product policy.
func DefaultRubric() Rubric {
	return Rubric{
		Weights: map[domain.CategoryKey]float64{
			domain.CategoryPerformance: 0.20,
			domain.CategorySEO:         0.20,
			domain.CategorySecurity:    0.15,
			domain.CategoryContent:     0.15,
			domain.CategoryDomainTrust: 0.30,
		},
		Base: map[domain.CategoryKey]int{
			domain.CategoryPerformance: 40,
			domain.CategorySEO:         50,
			domain.CategorySecurity:    40,
			domain.CategoryContent:     50,
			domain.CategoryDomainTrust: 50,
		},
		Labels: map[domain.CategoryKey]string{
			domain.CategoryPerformance: "Performance",
			domain.CategorySEO:         "SEO",
			domain.CategorySecurity:    "Security",
			domain.CategoryContent:     "Content",
			domain.CategoryDomainTrust: "Domain trust",
		},
		Deltas: map[string]int{
			RulePerfScoreHigh: 50,
			RulePerfScoreGood: 25,
			RulePerfScorePoor: -20,
			RulePerfLCPFast:   10,
			RulePerfLCPSlow:   -10,
			RulePerfCLSHigh:   -10,
			RulePerfTBTHigh:   -10,

			RuleSEOTitle:             10,
			RuleSEOMissingTitle:      -20,
			RuleSEOTitleLength:       -5,
			RuleSEOMetaDescription:   10,
			RuleSEOMissingMetaDesc:   -15,
			RuleSEOSingleH1:          5,
			RuleSEOMissingH1:         -10,
			RuleSEOMultipleH1:        -5,
			RuleSEOMissingCanonical:  -5,
			RuleSEOMissingViewport:   -10,
			RuleSEOMissingOpenGraph:  -5,
			RuleSEOStructuredData:    5,
			RuleSEOMissingStructured: -5,
			RuleSEOMissingLang:       -5,
			RuleSEOIndexed:           15,
			RuleSEONotIndexed:        -20,

			RuleSecValidCertificate:   25,
			RuleSecInvalidCertificate: -30,
			RuleSecCertExpiring:       -10,
			RuleSecHSTS:               10,
			RuleSecMissingHSTS:        -8,
			RuleSecCSP:                10,
			RuleSecMissingCSP:         -8,
			RuleSecMissingXFO:         -5,
			RuleSecMissingXCTO:        -5,
			RuleSecMissingReferrer:    -3,
			RuleSecMissingPermissions: -3,

			RuleContentRich:          20,
			RuleContentAdequate:      10,
			RuleContentThin:          -20,
			RuleContentFewParagraphs: -5,
			RuleContentNoImages:      -5,
			RuleContentImagesAlt:     5,
			RuleContentMissingAlt:    -10,
			RuleContentFewLinks:      -5,
			RuleContentMarkupClean:   10,
			RuleContentMarkupErrors:  -10,

			RuleTrustClean:        15,
			RuleTrustFlagged:      -50,
			RuleTrustEstablished:  20,
			RuleTrustYoung:        -10,
			RuleTrustNoArchive:    -15,
			RuleTrustSPF:          5,
			RuleTrustMissingSPF:   -5,
			RuleTrustDMARC:        5,
			RuleTrustMissingDMARC: -5,
			RuleTrustMissingMX:    -5,
		},
	}
}

// WithOverrides returns a copy of r with the given weights and deltas
// replaced. Unknown categories or rule IDs are rejected.
func (r Rubric) WithOverrides(weights map[string]float64, deltas map[string]int) (Rubric, error) {
	out := Rubric{
		Weights: make(map[domain.CategoryKey]float64, len(r.Weights)),
		Base:    make(map[domain.CategoryKey]int, len(r.Base)),
		Deltas:  make(map[string]int, len(r.Deltas)),
		Labels:  r.Labels,
	}
	for k, v := range r.Weights {
		out.Weights[k] = v
	}
	for k, v := range r.Base {
		out.Base[k] = v
	}
	for k, v := range r.Deltas {
		out.Deltas[k] = v
	}

	for _, k := range sortedKeys(weights) {
		key := domain.CategoryKey(k)
		if _, ok := out.Weights[key]; !ok {
			return r, fmt.Errorf("unknown scoring category %q", k)
		}
		out.Weights[key] = weights[k]
	}
	for _, k := range sortedKeys(deltas) {
		if _, ok := out.Deltas[k]; !ok {
			return r, fmt.Errorf("unknown scoring rule %q", k)
		}
		out.Deltas[k] = deltas[k]
	}
	return out, out.Validate()
}

// Validate rejects negative weights, a zero weight sum and missing bases.
func (r Rubric) Validate() error {
	sum := 0.0
	for _, c := range domain.Categories {
		w, ok := r.Weights[c]
		if !ok {
			return fmt.Errorf("missing weight for category %s", c)
		}
		if w < 0 {
			return fmt.Errorf("weight for category %s cannot be negative", c)
		}
		if _, ok := r.Base[c]; !ok {
			return fmt.Errorf("missing base for category %s", c)
		}
		sum += w
	}
	if sum <= 0 {
		return fmt.Errorf("category weights sum to zero")
	}
	return nil
}

func (r Rubric) label(c domain.CategoryKey) string {
	if l, ok := r.Labels[c]; ok {
		return l
	}
	return string(c)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
