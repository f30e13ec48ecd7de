// Package identity derives a site's "DNA" (brand, type, market and
// maturity) from what the collectors and the content analyzer found.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"sitescope/internal/domain"
	"sitescope/internal/ports"
)

var ErrNoInput = errors.New("identity: no content or crawl to derive from")

type Synthesizer struct {
	now func() time.Time
}

func New() *Synthesizer { return &Synthesizer{now: time.Now} }

func (s *Synthesizer) Synthesize(_ context.Context, in ports.IdentityInput) (domain.Identity, error) {
	facts, haveFacts := in.Content.Get()
	if !haveFacts && in.Crawl.Failed() {
		return domain.Identity{}, ErrNoInput
	}
	id := domain.Identity{
		MarketScope: marketScope(in.Target, facts),
		Maturity:    maturity(in.Archive, s.now()),
	}
	if haveFacts {
		id.BrandName = brandName(facts, in.Target)
		id.SiteType = siteType(facts)
		id.Industry = industry(facts)
	}
	return id, nil
}

var titleSeparators = []string{" | ", " - ", " – ", " — ", " :: ", " · "}

// brandName prefers og:site_name, then the title segment that best matches
// the domain label, then the last title segment.
func brandName(f domain.ContentFacts, t domain.Target) string {
	if n := strings.TrimSpace(f.OGSiteName); n != "" {
		return n
	}
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return ""
	}
	parts := []string{title}
	for _, sep := range titleSeparators {
		if strings.Contains(title, sep) {
			parts = strings.Split(title, sep)
			break
		}
	}
	label := strings.ToLower(strings.SplitN(t.Registrable, ".", 2)[0])
	for _, p := range parts {
		squashed := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(p), " ", ""))
		if label != "" && strings.Contains(squashed, label) {
			return strings.TrimSpace(p)
		}
	}
	return strings.TrimSpace(parts[len(parts)-1])
}

var typeKeywords = []struct {
	siteType string
	words    []string
}{
	{domain.SiteTypeEcommerce, []string{"shop", "store", "cart", "buy", "mağaza", "alışveriş", "sepet"}},
	{domain.SiteTypeNews, []string{"news", "haber", "gazete", "breaking"}},
	{domain.SiteTypeBlog, []string{"blog", "yazılar", "posts"}},
	{domain.SiteTypeSaaS, []string{"platform", "software", "app", "pricing", "free trial", "yazılım"}},
	{domain.SiteTypePortfolio, []string{"portfolio", "portfolyo", "photographer", "designer"}},
}

func siteType(f domain.ContentFacts) string {
	for _, t := range f.SchemaTypes {
		switch strings.ToLower(t) {
		case "product", "offer", "store", "onlinestore":
			return domain.SiteTypeEcommerce
		case "newsarticle", "newsmediaorganization":
			return domain.SiteTypeNews
		case "blog", "blogposting":
			return domain.SiteTypeBlog
		case "softwareapplication", "webapplication":
			return domain.SiteTypeSaaS
		}
	}
	text := strings.ToLower(f.Title + " " + f.MetaDescription)
	for _, k := range typeKeywords {
		for _, w := range k.words {
			if strings.Contains(text, w) {
				return k.siteType
			}
		}
	}
	if f.WordCount < 300 && f.InternalLinks < 5 {
		return domain.SiteTypeLanding
	}
	return domain.SiteTypeCorporate
}

var industryBySchema = map[string]string{
	"restaurant":              "food",
	"foodestablishment":       "food",
	"hotel":                   "hospitality",
	"lodgingbusiness":         "hospitality",
	"medicalorganization":     "health",
	"physician":               "health",
	"dentist":                 "health",
	"legalservice":            "legal",
	"attorney":                "legal",
	"realestateagent":         "real estate",
	"autodealer":              "automotive",
	"educationalorganization": "education",
	"school":                  "education",
	"financialservice":        "finance",
	"softwareapplication":     "software",
	"store":                   "retail",
	"product":                 "retail",
	"newsmediaorganization":   "media",
}

func industry(f domain.ContentFacts) string {
	for _, t := range f.SchemaTypes {
		if ind, ok := industryBySchema[strings.ToLower(t)]; ok {
			return ind
		}
	}
	return ""
}

var genericTLDs = map[string]bool{"com": true, "net": true, "org": true, "io": true, "co": true, "app": true, "dev": true}

func marketScope(t domain.Target, f domain.ContentFacts) string {
	for _, s := range f.SchemaTypes {
		if strings.EqualFold(s, "LocalBusiness") {
			return domain.MarketLocal
		}
	}
	tld := t.Registrable
	if i := strings.LastIndex(tld, "."); i >= 0 {
		tld = tld[i+1:]
	}
	if genericTLDs[tld] {
		return domain.MarketGlobal
	}
	if len(tld) == 2 {
		return domain.MarketNational
	}
	return domain.MarketGlobal
}

func maturity(archive domain.Outcome[domain.ArchiveHistory], now time.Time) string {
	a, ok := archive.Get()
	if !ok {
		return ""
	}
	switch age := a.AgeYears(now); {
	case age >= 8:
		return domain.MaturityEstablished
	case age >= 2:
		return domain.MaturityGrowing
	default:
		return domain.MaturityStartup
	}
}
