// Package collectors holds the default crawler, content analyzer and signal
// collectors used by the orchestrator.
package collectors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"sitescope/internal/domain"
)

const defaultMaxBody = 5 << 20

type CrawlerConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int
}

// Crawler fetches the primary markup with a fresh colly collector per call,
// so concurrent scans never share callbacks.
type Crawler struct {
	cfg       CrawlerConfig
	transport http.RoundTripper
}

// NewCrawler returns a crawler. transport may be nil to use colly's default.
func NewCrawler(cfg CrawlerConfig, transport http.RoundTripper) *Crawler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBody
	}
	return &Crawler{cfg: cfg, transport: transport}
}

// Crawl returns the response as long as one was received, whatever its
// status. It fails only when no response came back at all.
func (c *Crawler) Crawl(ctx context.Context, target domain.Target) (domain.CrawlResult, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.MaxBodySize(c.cfg.MaxBodyBytes),
	}
	if c.cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(c.cfg.UserAgent))
	}
	col := colly.NewCollector(opts...)
	col.SetRequestTimeout(c.cfg.Timeout)
	col.IgnoreRobotsTxt = true
	col.ParseHTTPErrorResponse = true
	if c.transport != nil {
		col.WithTransport(c.transport)
	}

	var (
		result   domain.CrawlResult
		received bool
		fetchErr error
	)
	col.OnResponse(func(r *colly.Response) {
		received = true
		result = domain.CrawlResult{
			URL:        target.URL,
			FinalURL:   r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    flattenHeaders(r.Headers),
			Markup:     r.Body,
			Bytes:      len(r.Body),
			FetchedAt:  time.Now(),
		}
	})
	col.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	err := col.Visit(target.URL)
	if received {
		return result, nil
	}
	if err == nil {
		err = fetchErr
	}
	if err == nil {
		err = errors.New("no response")
	}
	return domain.CrawlResult{}, fmt.Errorf("crawl %s: %w", target.URL, err)
}

func flattenHeaders(h *http.Header) map[string]string {
	if h == nil {
		return nil
	}
	out := make(map[string]string, len(*h))
	for k, v := range *h {
		out[strings.ToLower(k)] = strings.Join(v, ", ")
	}
	return out
}
