package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

func fixed(now time.Time) *Synthesizer {
	return &Synthesizer{now: func() time.Time { return now }}
}

func TestSynthesizeFromContent(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	in := ports.IdentityInput{
		Target: domain.Target{Host: "www.acme.com.tr", Registrable: "acme.com.tr"},
		Crawl:  domain.Success(domain.CrawlResult{StatusCode: 200}),
		Content: domain.Success(domain.ContentFacts{
			Title:       "Spring Sale | Acme Store",
			SchemaTypes: []string{"Organization", "Product"},
			WordCount:   900,
		}),
		Archive: domain.Success(domain.ArchiveHistory{Archived: true, FirstSnapshot: now.AddDate(-10, 0, 0)}),
	}
	id, err := fixed(now).Synthesize(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Acme Store", id.BrandName)
	assert.Equal(t, domain.SiteTypeEcommerce, id.SiteType)
	assert.Equal(t, "retail", id.Industry)
	assert.Equal(t, domain.MarketNational, id.MarketScope)
	assert.Equal(t, domain.MaturityEstablished, id.Maturity)
}

func TestBrandName(t *testing.T) {
	target := domain.Target{Registrable: "example.com"}
	cases := []struct {
		name  string
		facts domain.ContentFacts
		want  string
	}{
		{"og site name wins", domain.ContentFacts{OGSiteName: " Example Co ", Title: "Home | Other"}, "Example Co"},
		{"segment matching domain", domain.ContentFacts{Title: "Example - Fast widgets"}, "Example"},
		{"last segment fallback", domain.ContentFacts{Title: "Widgets for everyone | Widgetly"}, "Widgetly"},
		{"plain title", domain.ContentFacts{Title: "Welcome"}, "Welcome"},
		{"no title", domain.ContentFacts{}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, brandName(tc.facts, target))
		})
	}
}

func TestSiteType(t *testing.T) {
	cases := []struct {
		name  string
		facts domain.ContentFacts
		want  string
	}{
		{"schema news", domain.ContentFacts{SchemaTypes: []string{"NewsArticle"}}, domain.SiteTypeNews},
		{"keyword blog", domain.ContentFacts{Title: "My travel blog", WordCount: 1000, InternalLinks: 20}, domain.SiteTypeBlog},
		{"small page is landing", domain.ContentFacts{Title: "Hello", WordCount: 120, InternalLinks: 1}, domain.SiteTypeLanding},
		{"default corporate", domain.ContentFacts{Title: "Hello", WordCount: 800, InternalLinks: 12}, domain.SiteTypeCorporate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, siteType(tc.facts))
		})
	}
}

func TestMarketScope(t *testing.T) {
	assert.Equal(t, domain.MarketGlobal, marketScope(domain.Target{Registrable: "example.com"}, domain.ContentFacts{}))
	assert.Equal(t, domain.MarketNational, marketScope(domain.Target{Registrable: "example.de"}, domain.ContentFacts{}))
	assert.Equal(t, domain.MarketLocal, marketScope(domain.Target{Registrable: "example.com"},
		domain.ContentFacts{SchemaTypes: []string{"LocalBusiness"}}))
}

func TestMaturityNeedsArchive(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, maturity(domain.Failed[domain.ArchiveHistory](domain.ReasonTimeout), now))
	assert.Equal(t, domain.MaturityStartup, maturity(domain.Success(domain.ArchiveHistory{}), now))
	assert.Equal(t, domain.MaturityGrowing,
		maturity(domain.Success(domain.ArchiveHistory{Archived: true, FirstSnapshot: now.AddDate(-3, 0, 0)}), now))
}

func TestSynthesizeWithoutContent(t *testing.T) {
	s := New()
	_, err := s.Synthesize(context.Background(), ports.IdentityInput{
		Crawl:   domain.Failed[domain.CrawlResult]("connection"),
		Content: domain.Failed[domain.ContentFacts](domain.ReasonUnreliable),
	})
	require.ErrorIs(t, err, ErrNoInput)

	id, err := s.Synthesize(context.Background(), ports.IdentityInput{
		Target:  domain.Target{Registrable: "example.org"},
		Crawl:   domain.Success(domain.CrawlResult{StatusCode: 500}),
		Content: domain.Failed[domain.ContentFacts](domain.ReasonUnreliable),
	})
	require.NoError(t, err)
	assert.Empty(t, id.BrandName)
	assert.Equal(t, domain.MarketGlobal, id.MarketScope)
}
