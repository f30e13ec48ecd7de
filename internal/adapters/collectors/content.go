package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"sitescope/internal/domain"
)

// ContentAnalyzer derives ContentFacts from raw markup with goquery.
type ContentAnalyzer struct{}

func NewContentAnalyzer() *ContentAnalyzer { return &ContentAnalyzer{} }

var socialHosts = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com", "linkedin.com",
	"youtube.com", "tiktok.com", "pinterest.com", "github.com",
}

var fontHosts = map[string]string{
	"fonts.googleapis.com": "google fonts",
	"fonts.gstatic.com":    "google fonts",
	"use.typekit.net":      "adobe fonts",
	"fonts.bunny.net":      "bunny fonts",
	"use.fontawesome.com":  "font awesome",
}

// trackers maps script fragments to the analytics product they load.
var trackers = []struct {
	name      string
	fragments []string
}{
	{"google analytics", []string{"google-analytics.com", "googletagmanager.com/gtag/js", "gtag("}},
	{"google tag manager", []string{"googletagmanager.com/gtm.js"}},
	{"facebook pixel", []string{"connect.facebook.net", "fbq("}},
	{"hotjar", []string{"static.hotjar.com"}},
	{"yandex metrica", []string{"mc.yandex.ru"}},
	{"microsoft clarity", []string{"clarity.ms"}},
	{"linkedin insight", []string{"snap.licdn.com"}},
	{"tiktok pixel", []string{"analytics.tiktok.com"}},
	{"matomo", []string{"matomo.js", "piwik.js"}},
	{"plausible", []string{"plausible.io"}},
}

func (a *ContentAnalyzer) Analyze(_ context.Context, crawl domain.CrawlResult) (domain.ContentFacts, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(crawl.Markup))
	if err != nil {
		return domain.ContentFacts{}, fmt.Errorf("parse markup: %w", err)
	}
	page := crawl.FinalURL
	if page == "" {
		page = crawl.URL
	}
	base, _ := url.Parse(page)

	var f domain.ContentFacts
	f.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	f.Lang = strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name := strings.ToLower(s.AttrOr("name", ""))
		prop := strings.ToLower(s.AttrOr("property", ""))
		content := strings.TrimSpace(s.AttrOr("content", ""))
		switch {
		case name == "description":
			f.MetaDescription = content
		case name == "viewport":
			f.HasViewport = true
		case prop == "og:site_name":
			f.HasOpenGraph = true
			f.OGSiteName = content
		case strings.HasPrefix(prop, "og:"):
			f.HasOpenGraph = true
		}
	})

	fonts := map[string]bool{}
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		rel := strings.ToLower(s.AttrOr("rel", ""))
		href := s.AttrOr("href", "")
		if hasToken(rel, "canonical") && f.Canonical == "" {
			f.Canonical = resolve(base, href)
		}
		if hasToken(rel, "stylesheet") {
			f.CSSFiles++
		}
		if u, err := url.Parse(href); err == nil {
			if p, ok := fontHosts[strings.ToLower(u.Hostname())]; ok {
				fonts[p] = true
			}
		}
	})
	f.FontProviders = sortedSet(fonts)

	f.H1Count = doc.Find("h1").Length()
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			f.ParagraphCount++
		}
	})

	images := doc.Find("img")
	f.ImageCount = images.Length()
	images.Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); !ok {
			f.ImagesWithoutAlt++
		}
	})

	f.SchemaTypes = schemaTypes(doc)
	f.AnalyticsTags = analyticsTags(doc)
	f.InternalLinks, f.ExternalLinks, f.SocialLinks = links(doc, base)

	// Word counting ignores non-rendered text, so strip it last.
	doc.Find("script, style, noscript, template, title").Remove()
	for _, n := range doc.Nodes {
		f.WordCount += countWords(n)
	}
	return f, nil
}

func countWords(n *html.Node) int {
	if n.Type == html.TextNode {
		return len(strings.Fields(n.Data))
	}
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		total += countWords(c)
	}
	return total
}

func links(doc *goquery.Document, base *url.URL) (internal, external int, social []string) {
	site := ""
	if base != nil {
		site = registrable(base.Hostname())
	}
	seenSocial := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.AttrOr("href", ""))
		if raw == "" || strings.HasPrefix(raw, "#") {
			return
		}
		u, err := url.Parse(raw)
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return
		}
		host := strings.ToLower(u.Hostname())
		if registrable(host) == site {
			internal++
			return
		}
		external++
		for _, sh := range socialHosts {
			if (host == sh || strings.HasSuffix(host, "."+sh)) && !seenSocial[raw] {
				seenSocial[raw] = true
				social = append(social, raw)
				break
			}
		}
	})
	return internal, external, social
}

func analyticsTags(doc *goquery.Document) []string {
	var sources strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		sources.WriteString(strings.ToLower(s.AttrOr("src", "")))
		sources.WriteByte('\n')
		sources.WriteString(strings.ToLower(s.Text()))
		sources.WriteByte('\n')
	})
	all := sources.String()
	var tags []string
	for _, t := range trackers {
		for _, frag := range t.fragments {
			if strings.Contains(all, frag) {
				tags = append(tags, t.name)
				break
			}
		}
	}
	return tags
}

func schemaTypes(doc *goquery.Document) []string {
	seen := map[string]bool{}
	add := func(t string) {
		t = strings.TrimSpace(t)
		if i := strings.LastIndexAny(t, "/#"); i >= 0 {
			t = t[i+1:]
		}
		if t != "" {
			seen[t] = true
		}
	}
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		walkLD(v, add)
	})
	doc.Find("[itemtype]").Each(func(_ int, s *goquery.Selection) {
		for _, t := range strings.Fields(s.AttrOr("itemtype", "")) {
			add(t)
		}
	})
	return sortedSet(seen)
}

func walkLD(v any, add func(string)) {
	switch x := v.(type) {
	case []any:
		for _, e := range x {
			walkLD(e, add)
		}
	case map[string]any:
		switch t := x["@type"].(type) {
		case string:
			add(t)
		case []any:
			for _, e := range t {
				if s, ok := e.(string); ok {
					add(s)
				}
			}
		}
		if g, ok := x["@graph"]; ok {
			walkLD(g, add)
		}
	}
}

func registrable(host string) string {
	if r, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return r
	}
	return host
}

func resolve(base *url.URL, href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	return u.String()
}

func hasToken(list, token string) bool {
	for _, t := range strings.Fields(list) {
		if t == token {
			return true
		}
	}
	return false
}

func sortedSet(m map[string]bool) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
