package collectors

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
)

const crawlURL = "http://example.test/"

func TestCrawlerCapturesResponse(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", crawlURL, func(*http.Request) (*http.Response, error) {
		resp := httpmock.NewStringResponse(200, "<html><title>Hi</title></html>")
		resp.Header.Set("Strict-Transport-Security", "max-age=600")
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	})

	res, err := NewCrawler(CrawlerConfig{UserAgent: "test"}, transport).
		Crawl(context.Background(), domain.Target{URL: crawlURL, Host: "example.test"})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Equal(t, crawlURL, res.FinalURL)
	assert.Equal(t, "<html><title>Hi</title></html>", string(res.Markup))
	assert.Equal(t, len(res.Markup), res.Bytes)
	assert.Equal(t, "max-age=600", res.Headers["strict-transport-security"])
}

func TestCrawlerKeepsErrorResponses(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", crawlURL, httpmock.NewStringResponder(503, "maintenance"))

	res, err := NewCrawler(CrawlerConfig{}, transport).
		Crawl(context.Background(), domain.Target{URL: crawlURL, Host: "example.test"})
	require.NoError(t, err, "an HTTP error status is still a response")
	assert.Equal(t, 503, res.StatusCode)
	assert.Equal(t, "maintenance", string(res.Markup))
}

func TestCrawlerFailsWithoutResponse(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", crawlURL, httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := NewCrawler(CrawlerConfig{}, transport).
		Crawl(context.Background(), domain.Target{URL: crawlURL, Host: "example.test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
