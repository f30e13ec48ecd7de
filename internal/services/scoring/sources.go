package scoring

import "sitescope/internal/domain"

var categorySources = map[domain.CategoryKey][]domain.Source{
	domain.CategoryPerformance: {domain.SourceSpeed},
	domain.CategorySEO:         {domain.SourceMarkup, domain.SourceIndex},
	domain.CategorySecurity:    {domain.SourceCertificate, domain.SourceHeaders},
	domain.CategoryContent:     {domain.SourceMarkup, domain.SourceValidity},
	domain.CategoryDomainTrust: {domain.SourceReputation, domain.SourceArchive, domain.SourceDNS},
}

var (
	fromSpeed       = []domain.Source{domain.SourceSpeed}
	fromMarkup      = []domain.Source{domain.SourceMarkup}
	fromIndex       = []domain.Source{domain.SourceIndex}
	fromCertificate = []domain.Source{domain.SourceCertificate}
	fromHeaders     = []domain.Source{domain.SourceHeaders}
	fromValidity    = []domain.Source{domain.SourceValidity}
	fromReputation  = []domain.Source{domain.SourceReputation}
	fromArchive     = []domain.Source{domain.SourceArchive}
	fromDNS         = []domain.Source{domain.SourceDNS}
)

// ruleSources lists the input every rule is evaluated from.
var ruleSources = map[string][]domain.Source{
	RulePerfScoreHigh: fromSpeed,
	RulePerfScoreGood: fromSpeed,
	RulePerfScorePoor: fromSpeed,
	RulePerfLCPFast:   fromSpeed,
	RulePerfLCPSlow:   fromSpeed,
	RulePerfCLSHigh:   fromSpeed,
	RulePerfTBTHigh:   fromSpeed,

	RuleSEOTitle:             fromMarkup,
	RuleSEOMissingTitle:      fromMarkup,
	RuleSEOTitleLength:       fromMarkup,
	RuleSEOMetaDescription:   fromMarkup,
	RuleSEOMissingMetaDesc:   fromMarkup,
	RuleSEOSingleH1:          fromMarkup,
	RuleSEOMissingH1:         fromMarkup,
	RuleSEOMultipleH1:        fromMarkup,
	RuleSEOMissingCanonical:  fromMarkup,
	RuleSEOMissingViewport:   fromMarkup,
	RuleSEOMissingOpenGraph:  fromMarkup,
	RuleSEOStructuredData:    fromMarkup,
	RuleSEOMissingStructured: fromMarkup,
	RuleSEOMissingLang:       fromMarkup,
	RuleSEOIndexed:           fromIndex,
	RuleSEONotIndexed:        fromIndex,

	RuleSecValidCertificate:   fromCertificate,
	RuleSecInvalidCertificate: fromCertificate,
	RuleSecCertExpiring:       fromCertificate,
	RuleSecHSTS:               fromHeaders,
	RuleSecMissingHSTS:        fromHeaders,
	RuleSecCSP:                fromHeaders,
	RuleSecMissingCSP:         fromHeaders,
	RuleSecMissingXFO:         fromHeaders,
	RuleSecMissingXCTO:        fromHeaders,
	RuleSecMissingReferrer:    fromHeaders,
	RuleSecMissingPermissions: fromHeaders,

	RuleContentRich:          fromMarkup,
	RuleContentAdequate:      fromMarkup,
	RuleContentThin:          fromMarkup,
	RuleContentFewParagraphs: fromMarkup,
	RuleContentNoImages:      fromMarkup,
	RuleContentImagesAlt:     fromMarkup,
	RuleContentMissingAlt:    fromMarkup,
	RuleContentFewLinks:      fromMarkup,
	RuleContentMarkupClean:   fromValidity,
	RuleContentMarkupErrors:  fromValidity,

	RuleTrustClean:        fromReputation,
	RuleTrustFlagged:      fromReputation,
	RuleTrustEstablished:  fromArchive,
	RuleTrustYoung:        fromArchive,
	RuleTrustNoArchive:    fromArchive,
	RuleTrustSPF:          fromDNS,
	RuleTrustMissingSPF:   fromDNS,
	RuleTrustDMARC:        fromDNS,
	RuleTrustMissingDMARC: fromDNS,
	RuleTrustMissingMX:    fromDNS,
}

// Sources returns the inputs a rule is evaluated from. An unknown or empty
// rule id falls back to every input of the category.
func Sources(ruleID string, category domain.CategoryKey) []domain.Source {
	if src, ok := ruleSources[ruleID]; ok {
		return src
	}
	return categorySources[category]
}
