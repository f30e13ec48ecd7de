package domain

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ParseTarget normalizes a user-supplied URL. A missing scheme defaults to
// https. The registrable domain falls back to the host for IPs and
// single-label hosts.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, fmt.Errorf("%w: empty url", ErrInvalidTarget)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Target{}, fmt.Errorf("%w: url %q has no host", ErrInvalidTarget, raw)
	}
	registrable := host
	if net.ParseIP(host) == nil {
		if r, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			registrable = r
		}
	}
	return Target{URL: u.String(), Host: host, Registrable: registrable, Scheme: u.Scheme}, nil
}
