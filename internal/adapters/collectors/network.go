package collectors

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"sitescope/internal/domain"
)

// Headers reads the security-relevant response headers of the page.
type Headers struct {
	client    *http.Client
	userAgent string
}

func NewHeaders(client *http.Client, userAgent string) *Headers {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Headers{client: client, userAgent: userAgent}
}

func (h *Headers) Collect(ctx context.Context, target domain.Target) (domain.SecurityHeaders, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
	if err != nil {
		return domain.SecurityHeaders{}, err
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return domain.SecurityHeaders{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	hd := resp.Header
	csp := hd.Get("Content-Security-Policy")
	return domain.SecurityHeaders{
		HSTS:                hd.Get("Strict-Transport-Security") != "",
		CSP:                 csp != "",
		XFrameOptions:       hd.Get("X-Frame-Options") != "" || strings.Contains(csp, "frame-ancestors"),
		XContentTypeOptions: strings.EqualFold(strings.TrimSpace(hd.Get("X-Content-Type-Options")), "nosniff"),
		ReferrerPolicy:      hd.Get("Referrer-Policy") != "",
		PermissionsPolicy:   hd.Get("Permissions-Policy") != "" || hd.Get("Feature-Policy") != "",
	}, nil
}

// TLS inspects the certificate served on port 443. A certificate that fails
// verification is reported as invalid, not as an error.
type TLS struct {
	timeout time.Duration
	// RootCAs overrides the system roots.
	RootCAs *x509.CertPool
	// Addr maps a host to the address to dial.
	Addr func(host string) string
	now  func() time.Time
}

func NewTLS(timeout time.Duration) *TLS {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TLS{
		timeout: timeout,
		Addr:    func(host string) string { return net.JoinHostPort(host, "443") },
		now:     time.Now,
	}
}

func (t *TLS) Collect(ctx context.Context, target domain.Target) (domain.CertificateInfo, error) {
	state, verifyErr := t.handshake(ctx, target.Host, false)
	if verifyErr != nil {
		var certErr *tls.CertificateVerificationError
		var unknown x509.UnknownAuthorityError
		var hostErr x509.HostnameError
		var invalid x509.CertificateInvalidError
		if !errors.As(verifyErr, &certErr) && !errors.As(verifyErr, &unknown) &&
			!errors.As(verifyErr, &hostErr) && !errors.As(verifyErr, &invalid) {
			return domain.CertificateInfo{}, verifyErr
		}
		var err error
		state, err = t.handshake(ctx, target.Host, true)
		if err != nil {
			return domain.CertificateInfo{}, err
		}
	}
	if len(state.PeerCertificates) == 0 {
		return domain.CertificateInfo{}, fmt.Errorf("tls %s: no peer certificate", target.Host)
	}
	leaf := state.PeerCertificates[0]
	issuer := leaf.Issuer.CommonName
	if len(leaf.Issuer.Organization) > 0 {
		issuer = leaf.Issuer.Organization[0]
	}
	return domain.CertificateInfo{
		Valid:         verifyErr == nil,
		Issuer:        issuer,
		NotAfter:      leaf.NotAfter,
		DaysRemaining: int(leaf.NotAfter.Sub(t.now()).Hours() / 24),
		Protocol:      tls.VersionName(state.Version),
	}, nil
}

func (t *TLS) handshake(ctx context.Context, host string, insecure bool) (tls.ConnectionState, error) {
	d := tls.Dialer{
		NetDialer: &net.Dialer{Timeout: t.timeout},
		Config: &tls.Config{
			ServerName:         host,
			RootCAs:            t.RootCAs,
			InsecureSkipVerify: insecure,
			MinVersion:         tls.VersionTLS10,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", t.Addr(host))
	if err != nil {
		return tls.ConnectionState{}, err
	}
	defer conn.Close()
	return conn.(*tls.Conn).ConnectionState(), nil
}

// resolver is the subset of *net.Resolver the DNS collector needs.
type resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DNS gathers address, mail and policy records.
type DNS struct {
	r resolver
}

func NewDNS(r *net.Resolver) *DNS {
	if r == nil {
		r = net.DefaultResolver
	}
	return &DNS{r: r}
}

// Collect fails only when the host itself does not resolve. Missing MX, NS or
// TXT records are facts, not errors.
func (d *DNS) Collect(ctx context.Context, target domain.Target) (domain.DNSRecords, error) {
	addrs, err := d.r.LookupIPAddr(ctx, target.Host)
	if err != nil {
		return domain.DNSRecords{}, err
	}
	var rec domain.DNSRecords
	for _, a := range addrs {
		if a.IP.To4() != nil {
			rec.A = append(rec.A, a.IP.String())
		} else {
			rec.AAAA = append(rec.AAAA, a.IP.String())
		}
	}
	zone := target.Registrable
	if mx, err := d.r.LookupMX(ctx, zone); err == nil {
		for _, m := range mx {
			rec.MX = append(rec.MX, strings.TrimSuffix(m.Host, "."))
		}
	}
	if ns, err := d.r.LookupNS(ctx, zone); err == nil {
		for _, n := range ns {
			rec.NS = append(rec.NS, strings.TrimSuffix(n.Host, "."))
		}
		sort.Strings(rec.NS)
	}
	if txt, err := d.r.LookupTXT(ctx, zone); err == nil {
		rec.TXT = txt
		for _, t := range txt {
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(t)), "v=spf1") {
				rec.HasSPF = true
			}
		}
	}
	if txt, err := d.r.LookupTXT(ctx, "_dmarc."+zone); err == nil {
		for _, t := range txt {
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(t)), "V=DMARC1") {
				rec.HasDMARC = true
			}
		}
	}
	return rec, nil
}
