package collectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const maxAPIResponse = 4 << 20

// StatusError is a non-2xx answer from a signal provider.
type StatusError struct {
	Provider string
	Code     int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: http status %d", e.Provider, e.Code)
}

// apiClient is the JSON transport shared by the third-party collectors.
// Every call waits on the provider's limiter first.
type apiClient struct {
	provider string
	http     *http.Client
	limiter  *rate.Limiter
}

// APIOptions configures the HTTP side of every provider client.
type APIOptions struct {
	Client *http.Client
	// RatePerSecond bounds calls per provider; zero means unlimited.
	RatePerSecond float64
}

func newAPIClient(provider string, opts APIOptions) apiClient {
	c := opts.Client
	if c == nil {
		c = &http.Client{Timeout: 20 * time.Second}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return apiClient{provider: provider, http: c, limiter: lim}
}

func (c apiClient) getJSON(ctx context.Context, url string, out any) error {
	return c.do(ctx, http.MethodGet, url, nil, "", out)
}

func (c apiClient) postJSON(ctx context.Context, url string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, url, b, "application/json", out)
}

func (c apiClient) do(ctx context.Context, method, url string, body []byte, contentType string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.provider, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAPIResponse))
		return StatusError{Provider: c.provider, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxAPIResponse)).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}
