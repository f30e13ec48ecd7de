package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sitescope/internal/domain"
)

func TestEveryRuleHasSources(t *testing.T) {
	for id := range DefaultRubric().Deltas {
		assert.NotEmpty(t, ruleSources[id], id)
	}
}

func TestSources(t *testing.T) {
	assert.Equal(t, []domain.Source{domain.SourceHeaders}, Sources(RuleSecMissingHSTS, domain.CategorySecurity))
	assert.Equal(t, []domain.Source{domain.SourceCertificate}, Sources(RuleSecCertExpiring, domain.CategorySecurity))
	assert.Equal(t, []domain.Source{domain.SourceValidity}, Sources(RuleContentMarkupErrors, domain.CategoryContent))
	assert.ElementsMatch(t,
		[]domain.Source{domain.SourceCertificate, domain.SourceHeaders},
		Sources("", domain.CategorySecurity))
	assert.ElementsMatch(t,
		[]domain.Source{domain.SourceReputation, domain.SourceArchive, domain.SourceDNS},
		Sources("retired_rule", domain.CategoryDomainTrust))
}
