package validator

import (
	"fmt"
	"math"
	"strings"

	"sitescope/internal/domain"
)

// Field paths of the facts the reconciler checks.
const (
	FieldWordCount        = "content.wordCount"
	FieldImageCount       = "content.imageCount"
	FieldImagesWithoutAlt = "content.imagesWithoutAlt"
	FieldH1Count          = "content.h1Count"
	FieldTitle            = "content.title"
	FieldAnalyticsTags    = "content.analyticsTags"
	FieldSocialLinks      = "content.socialLinks"
	FieldSiteType         = "dna.identity.siteType"
	FieldBrandName        = "dna.identity.brandName"
	FieldCertificate      = "security.certificate"
)

func scoreField(c domain.CategoryKey) string { return "score." + string(c) }

func verified(field, format string, args ...any) domain.ValidationCheck {
	return domain.ValidationCheck{Field: field, Verified: true, Reason: fmt.Sprintf(format, args...)}
}

func corrected(field, format string, args ...any) domain.ValidationCheck {
	return domain.ValidationCheck{Field: field, Reason: domain.MarkerCorrected + ": " + fmt.Sprintf(format, args...)}
}

func removed(field, format string, args ...any) domain.ValidationCheck {
	return domain.ValidationCheck{Field: field, Reason: domain.MarkerRemoved + ": " + fmt.Sprintf(format, args...)}
}

func unverified(field, format string, args ...any) domain.ValidationCheck {
	return domain.ValidationCheck{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// checkCount compares a counted fact with the markup count. Disagreement
// outside tolerance corrects the fact to the markup value.
func checkCount(field string, got *int, want int, tolerance int) domain.ValidationCheck {
	if abs(*got-want) <= tolerance {
		return verified(field, "match: %d ~ %d", *got, want)
	}
	old := *got
	*got = want
	return corrected(field, "%d → %d", old, want)
}

// checkAltCount caps the missing-alt count at the corrected image count.
// It reports nothing when the count already fits.
func checkAltCount(facts *domain.ContentFacts) (domain.ValidationCheck, bool) {
	if facts.ImagesWithoutAlt <= facts.ImageCount {
		return domain.ValidationCheck{}, false
	}
	old := facts.ImagesWithoutAlt
	facts.ImagesWithoutAlt = facts.ImageCount
	return corrected(FieldImagesWithoutAlt, "%d → %d", old, facts.ImageCount), true
}

func (v *Validator) wordTolerance(n int) int {
	t := int(math.Ceil(float64(n) * v.cfg.WordTolerance))
	if t < v.cfg.WordSlack {
		return v.cfg.WordSlack
	}
	return t
}

func checkTitle(facts *domain.ContentFacts, mf markupFacts) domain.ValidationCheck {
	got := collapse(facts.Title)
	switch {
	case strings.EqualFold(got, mf.title):
		return verified(FieldTitle, "match")
	case mf.title == "":
		facts.Title = ""
		return removed(FieldTitle, "no <title> in markup")
	default:
		facts.Title = mf.title
		return corrected(FieldTitle, "%q → %q", got, mf.title)
	}
}

// analyticsSignatures are substrings that evidence a tag in raw markup.
var analyticsSignatures = map[string][]string{
	"google analytics":   {"google-analytics.com", "gtag(", "googletagmanager.com/gtag/js"},
	"google tag manager": {"googletagmanager.com/gtm.js", "googletagmanager.com/ns.html"},
	"facebook pixel":     {"connect.facebook.net", "fbq("},
	"hotjar":             {"static.hotjar.com", "hj("},
	"yandex metrica":     {"mc.yandex.ru", "ym("},
	"microsoft clarity":  {"clarity.ms"},
	"linkedin insight":   {"snap.licdn.com"},
	"tiktok pixel":       {"analytics.tiktok.com"},
	"matomo":             {"matomo", "piwik"},
	"plausible":          {"plausible.io"},
}

func analyticsEvidenced(tag, raw string) bool {
	sigs, ok := analyticsSignatures[strings.ToLower(tag)]
	if !ok {
		sigs = []string{strings.ToLower(tag)}
	}
	for _, s := range sigs {
		if strings.Contains(raw, s) {
			return true
		}
	}
	return false
}

// checkList keeps the entries evidenced in markup and drops the rest.
func checkList(field string, list *[]string, evidenced func(string) bool) domain.ValidationCheck {
	var kept, dropped []string
	for _, e := range *list {
		if evidenced(e) {
			kept = append(kept, e)
		} else {
			dropped = append(dropped, e)
		}
	}
	if len(dropped) == 0 {
		return verified(field, "all %d found in markup", len(kept))
	}
	*list = kept
	return removed(field, "%d entries not found in markup: %s", len(dropped), strings.Join(dropped, ", "))
}

// schemaSiteType is the rule-based fallback for the site type. It only
// answers for schema types that pin the type down; Organization alone
// does not.
func schemaSiteType(types []string) string {
	has := make(map[string]bool, len(types))
	for _, t := range types {
		has[strings.ToLower(t)] = true
	}
	switch {
	case has["product"] || has["offer"] || has["aggregateoffer"] || has["store"] || has["onlinestore"]:
		return domain.SiteTypeEcommerce
	case has["newsarticle"] || has["newsmediaorganization"]:
		return domain.SiteTypeNews
	case has["blog"] || has["blogposting"]:
		return domain.SiteTypeBlog
	case has["softwareapplication"] || has["webapplication"]:
		return domain.SiteTypeSaaS
	case has["person"] && has["creativework"]:
		return domain.SiteTypePortfolio
	default:
		return ""
	}
}

func checkSiteType(id *domain.Identity, mf markupFacts) domain.ValidationCheck {
	fallback := schemaSiteType(mf.schemaTypes)
	switch {
	case fallback == "":
		return unverified(FieldSiteType, "no structured data to compare with %q", id.SiteType)
	case fallback == id.SiteType:
		return verified(FieldSiteType, "match: %s", fallback)
	default:
		old := id.SiteType
		id.SiteType = fallback
		return corrected(FieldSiteType, "%s → %s", old, fallback)
	}
}

func checkBrand(id *domain.Identity, mf markupFacts) domain.ValidationCheck {
	brand := strings.ToLower(collapse(id.BrandName))
	for _, src := range []string{mf.title, mf.ogSiteName, mf.text} {
		if brand != "" && strings.Contains(strings.ToLower(collapse(src)), brand) {
			return verified(FieldBrandName, "found in markup")
		}
	}
	old := id.BrandName
	id.BrandName = ""
	return removed(FieldBrandName, "%q not found in markup", old)
}

// checkCertificate cross-checks the certificate collector with the crawl: a
// successful HTTPS fetch already proved the chain valid.
func checkCertificate(cert domain.CertificateInfo, crawl domain.CrawlResult) (domain.ValidationCheck, bool) {
	httpsOK := strings.HasPrefix(strings.ToLower(crawl.FinalURL), "https://") && crawl.StatusCode > 0 && crawl.StatusCode < 400
	switch {
	case !httpsOK:
		return unverified(FieldCertificate, "no HTTPS fetch to compare with"), true
	case cert.Valid:
		return verified(FieldCertificate, "HTTPS fetch succeeded"), true
	default:
		return removed(FieldCertificate, "reported invalid although the HTTPS fetch succeeded"), false
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
