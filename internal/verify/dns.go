package verify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"
)

// DefaultDNSTimeout bounds each DNS query when no per-workspace value
// is configured.
const DefaultDNSTimeout = 5 * time.Second

// ErrNoMX is returned when a domain resolves but publishes no MX
// records.
var ErrNoMX = errors.New("no MX records")

// MX is one mail exchanger, sorted by preference (lowest first).
type MX struct {
	Pref uint16
	Host string
}

// Resolver performs the DNS half of verification. Lookup functions are
// fields so tests can script answers without a network.
type Resolver struct {
	// Timeout bounds each individual query; 0 means DefaultDNSTimeout.
	Timeout time.Duration

	lookupMX  func(ctx context.Context, domain string) ([]*net.MX, error)
	lookupTXT func(ctx context.Context, name string) ([]string, error)
	lookupIP  func(ctx context.Context, network, host string) ([]net.IP, error)
}

// NewResolver returns a resolver backed by the system DNS.
func NewResolver(timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}
	return &Resolver{
		Timeout:   timeout,
		lookupMX:  net.DefaultResolver.LookupMX,
		lookupTXT: net.DefaultResolver.LookupTXT,
		lookupIP:  net.DefaultResolver.LookupIP,
	}
}

func (r *Resolver) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	t := r.Timeout
	if t <= 0 {
		t = DefaultDNSTimeout
	}
	return context.WithTimeout(ctx, t)
}

// MXLookup returns the domain's mail exchangers sorted by preference,
// with trailing dots stripped. A domain with no usable MX records is an
// error; verification treats the address as undeliverable.
func (r *Resolver) MXLookup(ctx context.Context, domain string) ([]MX, error) {
	qctx, cancel := r.queryCtx(ctx)
	defer cancel()

	records, err := r.lookupMX(qctx, domain)
	if err != nil {
		return nil, fmt.Errorf("mx lookup %s: %w", domain, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("mx lookup %s: %w", domain, ErrNoMX)
	}
	mx := make([]MX, 0, len(records))
	for _, rec := range records {
		mx = append(mx, MX{Pref: rec.Pref, Host: strings.TrimSuffix(rec.Host, ".")})
	}
	sort.SliceStable(mx, func(i, j int) bool { return mx[i].Pref < mx[j].Pref })
	return mx, nil
}

// ResolveToIP resolves a hostname to its first A (then AAAA) address.
// Hosts that already are IP literals pass through unchanged. Returns ""
// when resolution fails; the SMTP probe reports that as its own error.
func (r *Resolver) ResolveToIP(ctx context.Context, host string) string {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}

	for _, network := range []string{"ip4", "ip6"} {
		qctx, cancel := r.queryCtx(ctx)
		ips, err := r.lookupIP(qctx, network, host)
		cancel()
		if err == nil && len(ips) > 0 {
			return ips[0].String()
		}
	}
	return ""
}

// CheckSPFDMARC reports whether the domain publishes an SPF record and
// a DMARC policy. Lookup failures count as absent rather than failing
// the verification.
func (r *Resolver) CheckSPFDMARC(ctx context.Context, domain string) (spf, dmarc bool) {
	qctx, cancel := r.queryCtx(ctx)
	records, err := r.lookupTXT(qctx, domain)
	cancel()
	if err == nil {
		for _, txt := range records {
			if strings.Contains(strings.ToLower(txt), "v=spf1") {
				spf = true
				break
			}
		}
	}

	qctx, cancel = r.queryCtx(ctx)
	records, err = r.lookupTXT(qctx, "_dmarc."+domain)
	cancel()
	if err == nil {
		for _, txt := range records {
			if strings.Contains(strings.ToLower(txt), "v=dmarc1") {
				dmarc = true
				break
			}
		}
	}
	return spf, dmarc
}

// dnsErrorType names the failure class for job logs.
func dnsErrorType(err error) string {
	if errors.Is(err, ErrNoMX) {
		return "NoAnswer"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return "NXDOMAIN"
		case dnsErr.IsTimeout:
			return "Timeout"
		}
		return "DNSError"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	return "DNSError"
}
