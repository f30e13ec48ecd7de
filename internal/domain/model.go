package domain

import "time"

// Scan is one queued or processed scan request. Domain is the registrable
// domain the scan belongs to.
type Scan struct {
	ID         string
	DomainRef  string
	Domain     string
	URL        string
	StartedAt  *time.Time
	FinishedAt *time.Time
	Status     string // queued|running|completed|failed
	Progress   float64
}

// AnalysisResult is the aggregate root for one scan. Stages never mutate a
// result they receive: they return a copy through the With* helpers or Clone.
type AnalysisResult struct {
	ID     string `json:"id"`
	ScanID string `json:"scanId"`
	Domain string `json:"domain"`
	URL    string `json:"url"`

	Crawl         Outcome[CrawlResult] `json:"crawl"`
	CrawlReliable bool                 `json:"crawlReliable"`

	Speed       Outcome[SpeedMetrics]    `json:"speed"`
	Certificate Outcome[CertificateInfo] `json:"certificate"`
	DNS         Outcome[DNSRecords]      `json:"dns"`
	Headers     Outcome[SecurityHeaders] `json:"headers"`
	Reputation  Outcome[Reputation]      `json:"reputation"`
	Validity    Outcome[MarkupValidity]  `json:"validity"`
	Index       Outcome[IndexPresence]   `json:"index"`
	Archive     Outcome[ArchiveHistory]  `json:"archive"`

	Content  Outcome[ContentFacts] `json:"content"`
	Identity Outcome[Identity]     `json:"identity"`

	Scores          Scorecard          `json:"scores"`
	Authority       []AuthorityReport  `json:"authority,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
	Plan            TreatmentPlan      `json:"plan"`
	Validation      *ValidationSummary `json:"validation,omitempty"`

	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
}

// Source names one independently collected input of a scan.
type Source string

const (
	SourceMarkup      Source = "markup"
	SourceSpeed       Source = "speed"
	SourceCertificate Source = "certificate"
	SourceDNS         Source = "dns"
	SourceHeaders     Source = "headers"
	SourceReputation  Source = "reputation"
	SourceValidity    Source = "validity"
	SourceIndex       Source = "index"
	SourceArchive     Source = "archive"
)

// UnobservedSources returns the inputs this scan could not see. Markup and
// markup validity only count as observed on a reliable crawl.
func (r *AnalysisResult) UnobservedSources() map[Source]bool {
	out := make(map[Source]bool)
	add := func(src Source, failed bool) {
		if failed {
			out[src] = true
		}
	}
	add(SourceMarkup, !r.CrawlReliable || r.Content.Failed())
	add(SourceSpeed, r.Speed.Failed())
	add(SourceCertificate, r.Certificate.Failed())
	add(SourceDNS, r.DNS.Failed())
	add(SourceHeaders, r.Headers.Failed())
	add(SourceReputation, r.Reputation.Failed())
	add(SourceValidity, !r.CrawlReliable || r.Validity.Failed())
	add(SourceIndex, r.Index.Failed())
	add(SourceArchive, r.Archive.Failed())
	return out
}

// Markup returns the raw crawl body when the crawl succeeded.
func (r *AnalysisResult) Markup() []byte {
	if c, ok := r.Crawl.Get(); ok {
		return c.Markup
	}
	return nil
}

func (r *AnalysisResult) WithScores(s Scorecard) *AnalysisResult {
	out := *r
	out.Scores = s
	return &out
}

func (r *AnalysisResult) WithAuthority(reports []AuthorityReport) *AnalysisResult {
	out := *r
	out.Authority = reports
	return &out
}

func (r *AnalysisResult) WithRecommendations(recs []Recommendation) *AnalysisResult {
	out := *r
	out.Recommendations = recs
	return &out
}

func (r *AnalysisResult) WithPlan(p TreatmentPlan) *AnalysisResult {
	out := *r
	out.Plan = p
	return &out
}

func (r *AnalysisResult) WithValidation(v *ValidationSummary) *AnalysisResult {
	out := *r
	out.Validation = v
	return &out
}

// Finished stamps the end of the scan on a copy.
func (r *AnalysisResult) Finished(at time.Time) *AnalysisResult {
	out := *r
	out.FinishedAt = at
	out.Duration = at.Sub(r.StartedAt)
	return &out
}

// Clone returns a deep copy of everything the reconciler is allowed to edit:
// content facts, identity, certificate outcome and scores.
func (r *AnalysisResult) Clone() *AnalysisResult {
	out := *r
	if c, ok := r.Content.Get(); ok {
		out.Content = Success(c.clone())
	}
	if id, ok := r.Identity.Get(); ok {
		out.Identity = Success(id)
	}
	out.Scores = r.Scores.clone()
	out.Authority = append([]AuthorityReport(nil), r.Authority...)
	out.Recommendations = append([]Recommendation(nil), r.Recommendations...)
	out.Plan = TreatmentPlan{Steps: append([]PlanStep(nil), r.Plan.Steps...)}
	return &out
}

// Target identifies what a collector is asked about.
type Target struct {
	URL         string
	Host        string
	Registrable string
	Scheme      string
}

type CrawlResult struct {
	URL        string            `json:"url"`
	FinalURL   string            `json:"finalUrl"`
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty"`
	Markup     []byte            `json:"-"`
	Bytes      int               `json:"bytes"`
	FetchedAt  time.Time         `json:"fetchedAt"`
}

type SpeedMetrics struct {
	PerformanceScore float64 `json:"performanceScore"` // 0-100
	LCPMillis        float64 `json:"lcpMillis"`
	CLS              float64 `json:"cls"`
	TBTMillis        float64 `json:"tbtMillis"`
}

type CertificateInfo struct {
	Valid         bool      `json:"valid"`
	Issuer        string    `json:"issuer,omitempty"`
	NotAfter      time.Time `json:"notAfter"`
	DaysRemaining int       `json:"daysRemaining"`
	Protocol      string    `json:"protocol,omitempty"`
}

type DNSRecords struct {
	A        []string `json:"a,omitempty"`
	AAAA     []string `json:"aaaa,omitempty"`
	MX       []string `json:"mx,omitempty"`
	NS       []string `json:"ns,omitempty"`
	TXT      []string `json:"txt,omitempty"`
	HasSPF   bool     `json:"hasSpf"`
	HasDMARC bool     `json:"hasDmarc"`
}

type SecurityHeaders struct {
	HSTS                bool `json:"hsts"`
	CSP                 bool `json:"csp"`
	XFrameOptions       bool `json:"xFrameOptions"`
	XContentTypeOptions bool `json:"xContentTypeOptions"`
	ReferrerPolicy      bool `json:"referrerPolicy"`
	PermissionsPolicy   bool `json:"permissionsPolicy"`
}

type Reputation struct {
	Flagged bool     `json:"flagged"`
	Threats []string `json:"threats,omitempty"`
}

type MarkupValidity struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

type IndexPresence struct {
	Indexed     bool `json:"indexed"`
	ResultCount int  `json:"resultCount"`
}

type ArchiveHistory struct {
	Archived      bool      `json:"archived"`
	FirstSnapshot time.Time `json:"firstSnapshot"`
}

// AgeYears is the number of whole years since the first archived snapshot.
func (a ArchiveHistory) AgeYears(now time.Time) int {
	if !a.Archived || a.FirstSnapshot.IsZero() || now.Before(a.FirstSnapshot) {
		return 0
	}
	years := now.Year() - a.FirstSnapshot.Year()
	if now.YearDay() < a.FirstSnapshot.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// ContentFacts are structured page facts derived from the raw markup.
type ContentFacts struct {
	Title            string   `json:"title"`
	MetaDescription  string   `json:"metaDescription"`
	Lang             string   `json:"lang,omitempty"`
	Canonical        string   `json:"canonical,omitempty"`
	HasViewport      bool     `json:"hasViewport"`
	HasOpenGraph     bool     `json:"hasOpenGraph"`
	OGSiteName       string   `json:"ogSiteName,omitempty"`
	H1Count          int      `json:"h1Count"`
	WordCount        int      `json:"wordCount"`
	ParagraphCount   int      `json:"paragraphCount"`
	ImageCount       int      `json:"imageCount"`
	ImagesWithoutAlt int      `json:"imagesWithoutAlt"`
	InternalLinks    int      `json:"internalLinks"`
	ExternalLinks    int      `json:"externalLinks"`
	SchemaTypes      []string `json:"schemaTypes,omitempty"`
	AnalyticsTags    []string `json:"analyticsTags,omitempty"`
	CSSFiles         int      `json:"cssFiles"`
	FontProviders    []string `json:"fontProviders,omitempty"`
	SocialLinks      []string `json:"socialLinks,omitempty"`
}

func (c ContentFacts) clone() ContentFacts {
	c.SchemaTypes = append([]string(nil), c.SchemaTypes...)
	c.AnalyticsTags = append([]string(nil), c.AnalyticsTags...)
	c.FontProviders = append([]string(nil), c.FontProviders...)
	c.SocialLinks = append([]string(nil), c.SocialLinks...)
	return c
}

// Identity is the synthesized "DNA" of a site.
type Identity struct {
	BrandName   string `json:"brandName,omitempty"`
	Industry    string `json:"industry,omitempty"`
	SiteType    string `json:"siteType,omitempty"`
	MarketScope string `json:"marketScope,omitempty"`
	Maturity    string `json:"maturity,omitempty"`
}

const (
	SiteTypeEcommerce = "ecommerce"
	SiteTypeBlog      = "blog"
	SiteTypeNews      = "news"
	SiteTypeSaaS      = "saas"
	SiteTypeCorporate = "corporate"
	SiteTypePortfolio = "portfolio"
	SiteTypeLanding   = "landing"

	MarketLocal    = "local"
	MarketNational = "national"
	MarketGlobal   = "global"

	MaturityStartup     = "startup"
	MaturityGrowing     = "growing"
	MaturityEstablished = "established"
)
