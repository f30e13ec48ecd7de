package collectors

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
)

var target = domain.Target{URL: "https://www.example.com/", Host: "www.example.com", Registrable: "example.com", Scheme: "https"}

func mockOptions() (*httpmock.MockTransport, APIOptions) {
	transport := httpmock.NewMockTransport()
	return transport, APIOptions{Client: &http.Client{Transport: transport}}
}

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()
	_, opts := mockOptions()

	ps := NewPageSpeed("", opts)
	require.Nil(t, ps)
	_, err := ps.Collect(ctx, target)
	assert.ErrorIs(t, err, domain.ErrCollectorDisabled)

	_, err = NewSafeBrowsing("", opts).Collect(ctx, target)
	assert.ErrorIs(t, err, domain.ErrCollectorDisabled)
	_, err = NewMarkupValidator("", opts).Collect(ctx, target)
	assert.ErrorIs(t, err, domain.ErrCollectorDisabled)
	_, err = NewWayback("", opts).Collect(ctx, target)
	assert.ErrorIs(t, err, domain.ErrCollectorDisabled)
	_, err = NewSearchIndex("https://search.test/v1", "", opts).Collect(ctx, target)
	assert.ErrorIs(t, err, domain.ErrCollectorDisabled)
}

func TestPageSpeed(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", pageSpeedEndpoint, func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, target.URL, q.Get("url"))
		assert.Equal(t, "k", q.Get("key"))
		return httpmock.NewStringResponse(200, `{"lighthouseResult":{
			"categories":{"performance":{"score":0.87}},
			"audits":{
				"largest-contentful-paint":{"numericValue":2100.5},
				"cumulative-layout-shift":{"numericValue":0.02},
				"total-blocking-time":{"numericValue":150}}}}`), nil
	})

	got, err := NewPageSpeed("k", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.InDelta(t, 87, got.PerformanceScore, 0.001)
	assert.InDelta(t, 2100.5, got.LCPMillis, 0.001)
	assert.InDelta(t, 0.02, got.CLS, 0.0001)
	assert.InDelta(t, 150, got.TBTMillis, 0.001)
}

func TestPageSpeedQuotaError(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", pageSpeedEndpoint, httpmock.NewStringResponder(429, `{"error":{}}`))

	_, err := NewPageSpeed("k", opts).Collect(context.Background(), target)
	var se StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)
	assert.Equal(t, "error: pagespeed: http status 429", domain.FailureReason(err))
}

func TestSafeBrowsing(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("POST", safeBrowsingEndpoint, func(req *http.Request) (*http.Response, error) {
		var body safeBrowsingRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, target.URL, body.ThreatInfo.ThreatEntries[0].URL)
		return httpmock.NewStringResponse(200, `{"matches":[{"threatType":"MALWARE"},{"threatType":"MALWARE"},{"threatType":"SOCIAL_ENGINEERING"}]}`), nil
	})

	got, err := NewSafeBrowsing("k", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, got.Flagged)
	assert.Equal(t, []string{"MALWARE", "SOCIAL_ENGINEERING"}, got.Threats)
}

func TestSafeBrowsingClean(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("POST", safeBrowsingEndpoint, httpmock.NewStringResponder(200, `{}`))

	got, err := NewSafeBrowsing("k", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, got.Flagged)
}

func TestMarkupValidator(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", "https://validator.test/nu/", httpmock.NewStringResponder(200, `{"messages":[
		{"type":"error"},{"type":"error"},{"type":"info","subType":"warning"},{"type":"info"}]}`))

	got, err := NewMarkupValidator("https://validator.test/nu/", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.MarkupValidity{Errors: 2, Warnings: 1}, got)
}

func TestWayback(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", "https://archive.test/wayback/available", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "example.com", req.URL.Query().Get("url"))
		return httpmock.NewStringResponse(200, `{"archived_snapshots":{"closest":{"available":true,"timestamp":"20050301123000"}}}`), nil
	})

	got, err := NewWayback("https://archive.test/wayback/available", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	assert.Equal(t, time.Date(2005, 3, 1, 12, 30, 0, 0, time.UTC), got.FirstSnapshot)
}

func TestWaybackNeverArchived(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", "https://archive.test/wayback/available", httpmock.NewStringResponder(200, `{"archived_snapshots":{}}`))

	got, err := NewWayback("https://archive.test/wayback/available", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, got.Archived)
}

func TestSearchIndex(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", "https://search.test/v1", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "site:example.com", q.Get("q"))
		assert.Equal(t, "engine-1", q.Get("cx"), "endpoint query is preserved")
		return httpmock.NewStringResponse(200, `{"searchInformation":{"totalResults":"1240"}}`), nil
	})

	got, err := NewSearchIndex("https://search.test/v1?cx=engine-1", "k", opts).Collect(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexPresence{Indexed: true, ResultCount: 1240}, got)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	transport, opts := mockOptions()
	transport.RegisterResponder("GET", "https://search.test/v1", httpmock.NewStringResponder(200, `{}`))
	opts.RatePerSecond = 0.001

	s := NewSearchIndex("https://search.test/v1", "k", opts)
	_, err := s.Collect(context.Background(), target)
	require.NoError(t, err, "the first call uses the burst")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Collect(ctx, target)
	assert.Error(t, err)
}
