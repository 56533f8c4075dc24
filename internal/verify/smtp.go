package verify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/mailcheck/internal/joblog"
)

// DefaultSMTPTimeout bounds each SMTP socket operation when no
// per-workspace value is configured.
const DefaultSMTPTimeout = 5 * time.Second

// DefaultMailFrom is the envelope sender used for probes when the
// workspace has not configured one.
const DefaultMailFrom = "noreply@mailcheck.local"

const smtpPort = "25"

// Prober performs RCPT TO probes against MX hosts. It speaks the wire
// protocol directly so the exact response code is available: whether a
// 550 is a hard rejection or a 451 greylist changes the verdict. The
// conversation always stops before DATA.
type Prober struct {
	resolver *Resolver
	sentinel BlockSentinel
	timeout  time.Duration

	dial      func(ctx context.Context, addr string) (net.Conn, error)
	randLocal func() string
}

// NewProber returns a prober that dials MX hosts on port 25. sentinel
// may be nil, in which case connect timeouts are not recorded.
func NewProber(resolver *Resolver, sentinel BlockSentinel, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultSMTPTimeout
	}
	p := &Prober{resolver: resolver, sentinel: sentinel, timeout: timeout}
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: p.timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
	p.randLocal = randomLocalPart
	return p
}

// Probe attempts RCPT TO for the candidate on one MX host.
//
// Returns (accepted, detail, short): accepted is true for a 2xx RCPT
// response; detail is the classification the scorer keys on; short is
// the raw "code message" line when a response was received, "" when
// the conversation failed before RCPT.
func (p *Prober) Probe(ctx context.Context, mxHost, email, mailFrom string, sink joblog.Sink) (bool, string, string) {
	ip := p.resolver.ResolveToIP(ctx, mxHost)
	ipParam := ip
	if ipParam == "" {
		ipParam = "failed"
	}
	sink.Emit(joblog.CodeDebugSMTPDNSResolve, joblog.Params{"mx_host": mxHost, "ip": ipParam})
	if ip == "" {
		return false, "SMTP error: DNS timeout or no A/AAAA", ""
	}

	sink.Emit(joblog.CodeDebugSMTPConnecting, joblog.Params{
		"mx_host": mxHost,
		"ip":      ip,
		"timeout": int(p.timeout.Seconds()),
	})

	conn, err := p.dial(ctx, net.JoinHostPort(ip, smtpPort))
	if err != nil {
		return false, p.fail(ctx, mxHost, classifyConnectErr(err), err, sink), ""
	}
	c := &smtpConn{conn: conn, text: textproto.NewConn(conn), timeout: p.timeout}
	defer c.close()

	// Greeting
	if _, _, err := c.read(220); err != nil {
		return false, p.fail(ctx, mxHost, "greeting failed", err, sink), ""
	}

	helo := heloName(mailFrom)
	if _, _, err := c.cmd(250, "EHLO %s", helo); err != nil {
		var tpErr *textproto.Error
		if !errors.As(err, &tpErr) {
			return false, p.fail(ctx, mxHost, "connection lost", err, sink), ""
		}
		if _, _, err := c.cmd(250, "HELO %s", helo); err != nil {
			if errors.As(err, &tpErr) {
				return false, p.fail(ctx, mxHost, "HELO rejected", err, sink), ""
			}
			return false, p.fail(ctx, mxHost, "connection lost", err, sink), ""
		}
	}

	if _, _, err := c.cmd(250, "MAIL FROM:<%s>", mailFrom); err != nil {
		var tpErr *textproto.Error
		if errors.As(err, &tpErr) {
			return false, p.fail(ctx, mxHost, "sender refused", err, sink), ""
		}
		return false, p.fail(ctx, mxHost, "connection lost", err, sink), ""
	}

	code, msg, err := c.cmd(0, "RCPT TO:<%s>", email)
	if err != nil {
		return false, p.fail(ctx, mxHost, "connection lost", err, sink), ""
	}

	short := strconv.Itoa(code)
	if m := strings.Join(strings.Fields(msg), " "); m != "" {
		short = fmt.Sprintf("%d %s", code, m)
	}
	sink.Emit(joblog.CodeDebugSMTPRcptResult, joblog.Params{
		"mail_from": mailFrom,
		"email":     email,
		"response":  short,
	})

	switch {
	case code >= 200 && code < 300:
		return true, fmt.Sprintf("RCPT accepted (%d)", code), short
	case code >= 400 && code < 500:
		return false, fmt.Sprintf("Temporary failure (%d)", code), short
	default:
		return false, fmt.Sprintf("Rejected (%d)", code), short
	}
}

// fail logs the exception, records the timeout when the failure looks
// like a filtered port, and returns the detail string.
func (p *Prober) fail(ctx context.Context, mxHost, class string, err error, sink joblog.Sink) string {
	detail := "SMTP error: " + class
	sink.Emit(joblog.CodeDebugSMTPException, joblog.Params{"mx_host": mxHost, "error": detail})
	if p.sentinel != nil && isBlockedPortErr(err) {
		p.sentinel.RecordTimeout(ctx, mxHost)
	}
	return detail
}

func classifyConnectErr(err error) string {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "connect timeout"
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection refused") {
		return "connection refused"
	}
	return "connect failed"
}

// isBlockedPortErr reports whether the failure is the signature of a
// provider filtering port 25: the connect times out or is refused
// outright.
func isBlockedPortErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

// heloName derives a HELO argument from the probe sender's domain.
func heloName(mailFrom string) string {
	if i := strings.IndexByte(mailFrom, '@'); i >= 0 && i+1 < len(mailFrom) {
		return mailFrom[i+1:]
	}
	return "localhost"
}

const randLocalCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomLocalPart() string {
	b := make([]byte, 18)
	for i := range b {
		b[i] = randLocalCharset[rand.Intn(len(randLocalCharset))]
	}
	return string(b)
}

// smtpConn wraps one SMTP conversation, refreshing the deadline before
// every exchange so each command gets the full timeout.
type smtpConn struct {
	conn    net.Conn
	text    *textproto.Conn
	timeout time.Duration
}

func (c *smtpConn) read(expectCode int) (int, string, error) {
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	return c.text.ReadResponse(expectCode)
}

func (c *smtpConn) cmd(expectCode int, format string, args ...any) (int, string, error) {
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return 0, "", err
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	return c.text.ReadResponse(expectCode)
}

func (c *smtpConn) close() {
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	_ = c.text.PrintfLine("QUIT")
	_ = c.conn.Close()
}
