package collectors

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"sitescope/internal/domain"
)

const (
	pageSpeedEndpoint    = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	safeBrowsingEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"
)

// PageSpeed reads lab metrics from the PageSpeed Insights API.
type PageSpeed struct {
	api      apiClient
	key      string
	endpoint string
}

// NewPageSpeed returns nil when no API key is configured.
func NewPageSpeed(key string, opts APIOptions) *PageSpeed {
	if key == "" {
		return nil
	}
	return &PageSpeed{api: newAPIClient("pagespeed", opts), key: key, endpoint: pageSpeedEndpoint}
}

type pageSpeedResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score *float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
		Audits map[string]struct {
			NumericValue float64 `json:"numericValue"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

func (p *PageSpeed) Collect(ctx context.Context, target domain.Target) (domain.SpeedMetrics, error) {
	if p == nil {
		return domain.SpeedMetrics{}, domain.ErrCollectorDisabled
	}
	q := url.Values{}
	q.Set("url", target.URL)
	q.Set("key", p.key)
	q.Set("strategy", "mobile")
	q.Set("category", "performance")

	var resp pageSpeedResponse
	if err := p.api.getJSON(ctx, p.endpoint+"?"+q.Encode(), &resp); err != nil {
		return domain.SpeedMetrics{}, err
	}
	lr := resp.LighthouseResult
	if lr.Categories.Performance.Score == nil {
		return domain.SpeedMetrics{}, StatusError{Provider: "pagespeed", Code: 204}
	}
	return domain.SpeedMetrics{
		PerformanceScore: *lr.Categories.Performance.Score * 100,
		LCPMillis:        lr.Audits["largest-contentful-paint"].NumericValue,
		CLS:              lr.Audits["cumulative-layout-shift"].NumericValue,
		TBTMillis:        lr.Audits["total-blocking-time"].NumericValue,
	}, nil
}

// SafeBrowsing checks the site against the Safe Browsing lookup API.
type SafeBrowsing struct {
	api      apiClient
	key      string
	endpoint string
}

func NewSafeBrowsing(key string, opts APIOptions) *SafeBrowsing {
	if key == "" {
		return nil
	}
	return &SafeBrowsing{api: newAPIClient("safebrowsing", opts), key: key, endpoint: safeBrowsingEndpoint}
}

type threatEntry struct {
	URL string `json:"url"`
}

type safeBrowsingRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

type safeBrowsingResponse struct {
	Matches []struct {
		ThreatType string `json:"threatType"`
	} `json:"matches"`
}

func (s *SafeBrowsing) Collect(ctx context.Context, target domain.Target) (domain.Reputation, error) {
	if s == nil {
		return domain.Reputation{}, domain.ErrCollectorDisabled
	}
	var req safeBrowsingRequest
	req.Client.ClientID = "sitescope"
	req.Client.ClientVersion = "1.0"
	req.ThreatInfo.ThreatTypes = []string{"MALWARE", "SOCIAL_ENGINEERING", "UNWANTED_SOFTWARE", "POTENTIALLY_HARMFUL_APPLICATION"}
	req.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	req.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	req.ThreatInfo.ThreatEntries = []threatEntry{{URL: target.URL}, {URL: "http://" + target.Host + "/"}}

	var resp safeBrowsingResponse
	if err := s.api.postJSON(ctx, s.endpoint+"?key="+url.QueryEscape(s.key), req, &resp); err != nil {
		return domain.Reputation{}, err
	}
	rep := domain.Reputation{Flagged: len(resp.Matches) > 0}
	seen := map[string]bool{}
	for _, m := range resp.Matches {
		if !seen[m.ThreatType] {
			seen[m.ThreatType] = true
			rep.Threats = append(rep.Threats, m.ThreatType)
		}
	}
	return rep, nil
}

// MarkupValidator asks a Nu HTML Checker instance to validate the page.
type MarkupValidator struct {
	api      apiClient
	endpoint string
}

// NewMarkupValidator returns nil when no checker endpoint is configured.
func NewMarkupValidator(endpoint string, opts APIOptions) *MarkupValidator {
	if endpoint == "" {
		return nil
	}
	return &MarkupValidator{api: newAPIClient("w3c", opts), endpoint: endpoint}
}

type nuResponse struct {
	Messages []struct {
		Type    string `json:"type"`
		SubType string `json:"subType"`
	} `json:"messages"`
}

func (v *MarkupValidator) Collect(ctx context.Context, target domain.Target) (domain.MarkupValidity, error) {
	if v == nil {
		return domain.MarkupValidity{}, domain.ErrCollectorDisabled
	}
	q := url.Values{}
	q.Set("doc", target.URL)
	q.Set("out", "json")

	var resp nuResponse
	if err := v.api.getJSON(ctx, v.endpoint+"?"+q.Encode(), &resp); err != nil {
		return domain.MarkupValidity{}, err
	}
	var out domain.MarkupValidity
	for _, m := range resp.Messages {
		switch {
		case m.Type == "error":
			out.Errors++
		case m.Type == "info" && m.SubType == "warning":
			out.Warnings++
		}
	}
	return out, nil
}

// Wayback finds the oldest snapshot through the availability API.
type Wayback struct {
	api      apiClient
	endpoint string
}

func NewWayback(endpoint string, opts APIOptions) *Wayback {
	if endpoint == "" {
		return nil
	}
	return &Wayback{api: newAPIClient("wayback", opts), endpoint: endpoint}
}

type waybackResponse struct {
	ArchivedSnapshots struct {
		Closest *struct {
			Available bool   `json:"available"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// waybackLayout is the snapshot timestamp format (yyyyMMddhhmmss).
const waybackLayout = "20060102150405"

func (w *Wayback) Collect(ctx context.Context, target domain.Target) (domain.ArchiveHistory, error) {
	if w == nil {
		return domain.ArchiveHistory{}, domain.ErrCollectorDisabled
	}
	q := url.Values{}
	q.Set("url", target.Registrable)
	// The closest snapshot to the earliest possible date is the first one.
	q.Set("timestamp", "19960101")

	var resp waybackResponse
	if err := w.api.getJSON(ctx, w.endpoint+"?"+q.Encode(), &resp); err != nil {
		return domain.ArchiveHistory{}, err
	}
	c := resp.ArchivedSnapshots.Closest
	if c == nil || !c.Available {
		return domain.ArchiveHistory{}, nil
	}
	first, err := time.Parse(waybackLayout, c.Timestamp)
	if err != nil {
		return domain.ArchiveHistory{Archived: true}, nil
	}
	return domain.ArchiveHistory{Archived: true, FirstSnapshot: first}, nil
}

// SearchIndex counts indexed pages with a site: query against a Custom
// Search compatible endpoint.
type SearchIndex struct {
	api      apiClient
	endpoint string
	key      string
}

func NewSearchIndex(endpoint, key string, opts APIOptions) *SearchIndex {
	if endpoint == "" || key == "" {
		return nil
	}
	return &SearchIndex{api: newAPIClient("search", opts), endpoint: endpoint, key: key}
}

type searchResponse struct {
	SearchInformation struct {
		TotalResults string `json:"totalResults"`
	} `json:"searchInformation"`
}

func (s *SearchIndex) Collect(ctx context.Context, target domain.Target) (domain.IndexPresence, error) {
	if s == nil {
		return domain.IndexPresence{}, domain.ErrCollectorDisabled
	}
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return domain.IndexPresence{}, err
	}
	q := u.Query()
	q.Set("key", s.key)
	q.Set("q", "site:"+target.Registrable)
	u.RawQuery = q.Encode()

	var resp searchResponse
	if err := s.api.getJSON(ctx, u.String(), &resp); err != nil {
		return domain.IndexPresence{}, err
	}
	n, _ := strconv.Atoi(resp.SearchInformation.TotalResults)
	return domain.IndexPresence{Indexed: n > 0, ResultCount: n}, nil
}
