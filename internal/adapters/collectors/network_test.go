package collectors

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescope/internal/domain"
)

func TestHeadersCollector(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "https://example.com/", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "sitescope-test", req.Header.Get("User-Agent"))
		resp := httpmock.NewStringResponse(200, "ok")
		resp.Header.Set("Strict-Transport-Security", "max-age=31536000")
		resp.Header.Set("Content-Security-Policy", "default-src 'self'; frame-ancestors 'none'")
		resp.Header.Set("X-Content-Type-Options", "nosniff")
		return resp, nil
	})

	h := NewHeaders(&http.Client{Transport: transport}, "sitescope-test")
	got, err := h.Collect(context.Background(), domain.Target{URL: "https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, domain.SecurityHeaders{
		HSTS:                true,
		CSP:                 true,
		XFrameOptions:       true,
		XContentTypeOptions: true,
	}, got)
}

func TestTLSCollector(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	addr := srv.Listener.Addr().String()

	c := NewTLS(5 * time.Second)
	c.Addr = func(string) string { return addr }
	target := domain.Target{Host: "127.0.0.1"}

	// The test certificate is self-signed: invalid against system roots.
	info, err := c.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.False(t, info.Valid)
	assert.False(t, info.NotAfter.IsZero())
	assert.NotEmpty(t, info.Protocol)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	c.RootCAs = pool
	info, err = c.Collect(context.Background(), target)
	require.NoError(t, err)
	assert.True(t, info.Valid)
	assert.Positive(t, info.DaysRemaining)
}

func TestTLSCollectorConnectionError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewTLS(time.Second)
	c.Addr = func(string) string { return addr }
	_, err = c.Collect(context.Background(), domain.Target{Host: "127.0.0.1"})
	require.Error(t, err)
	assert.Equal(t, domain.ReasonConnection, domain.FailureReason(err))
}

type fakeResolver struct {
	addrs []net.IPAddr
	mx    []*net.MX
	txt   map[string][]string
	err   error
}

func (f fakeResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	return f.addrs, f.err
}

func (f fakeResolver) LookupMX(context.Context, string) ([]*net.MX, error) {
	return f.mx, nil
}

func (f fakeResolver) LookupNS(context.Context, string) ([]*net.NS, error) {
	return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
}

func (f fakeResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	if v, ok := f.txt[name]; ok {
		return v, nil
	}
	return nil, &net.DNSError{Err: "no such host", IsNotFound: true}
}

func TestDNSCollector(t *testing.T) {
	d := &DNS{r: fakeResolver{
		addrs: []net.IPAddr{{IP: net.ParseIP("93.184.216.34")}, {IP: net.ParseIP("2606:2800:220:1::248")}},
		mx:    []*net.MX{{Host: "mail.example.com.", Pref: 10}},
		txt: map[string][]string{
			"example.com":        {"v=spf1 -all", "google-site-verification=x"},
			"_dmarc.example.com": {"v=DMARC1; p=reject"},
		},
	}}
	rec, err := d.Collect(context.Background(), domain.Target{Host: "www.example.com", Registrable: "example.com"})
	require.NoError(t, err)
	assert.Equal(t, []string{"93.184.216.34"}, rec.A)
	assert.Equal(t, []string{"2606:2800:220:1::248"}, rec.AAAA)
	assert.Equal(t, []string{"mail.example.com"}, rec.MX)
	assert.Empty(t, rec.NS)
	assert.True(t, rec.HasSPF)
	assert.True(t, rec.HasDMARC)
}

func TestDNSCollectorUnresolvableHost(t *testing.T) {
	d := &DNS{r: fakeResolver{err: &net.DNSError{Err: "no such host", IsNotFound: true}}}
	_, err := d.Collect(context.Background(), domain.Target{Host: "nope.invalid", Registrable: "nope.invalid"})
	var dnsErr *net.DNSError
	require.True(t, errors.As(err, &dnsErr))
	assert.Equal(t, domain.ReasonConnection, domain.FailureReason(err))
}
