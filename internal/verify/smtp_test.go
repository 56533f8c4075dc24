package verify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/ignite/mailcheck/internal/joblog"
)

// scriptedDialer runs handler as the remote SMTP server over an
// in-memory pipe.
func scriptedDialer(handler func(c *textproto.Conn)) func(ctx context.Context, addr string) (net.Conn, error) {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		client, server := net.Pipe()
		go func() {
			defer server.Close()
			handler(textproto.NewConn(server))
		}()
		return client, nil
	}
}

// smtpHandler answers a standard EHLO/MAIL/RCPT conversation, with the
// given raw response line for RCPT TO.
func smtpHandler(rcptResponse string) func(*textproto.Conn) {
	return func(c *textproto.Conn) {
		c.PrintfLine("220 mx.test ESMTP")
		for {
			line, err := c.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				c.PrintfLine("250-mx.test")
				c.PrintfLine("250 PIPELINING")
			case strings.HasPrefix(line, "HELO"):
				c.PrintfLine("250 mx.test")
			case strings.HasPrefix(line, "MAIL"):
				c.PrintfLine("250 2.1.0 Ok")
			case strings.HasPrefix(line, "RCPT"):
				c.PrintfLine("%s", rcptResponse)
			case strings.HasPrefix(line, "QUIT"):
				c.PrintfLine("221 Bye")
				return
			default:
				c.PrintfLine("502 command not implemented")
			}
		}
	}
}

func staticIPResolver(ip string) *Resolver {
	r := testResolver()
	r.lookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
		if network == "ip4" {
			return []net.IP{net.ParseIP(ip)}, nil
		}
		return nil, &net.DNSError{Err: "no answer"}
	}
	return r
}

type fakeSentinel struct {
	blocked  bool
	recorded []string
}

func (f *fakeSentinel) IsBlocked(ctx context.Context) bool { return f.blocked }
func (f *fakeSentinel) RecordTimeout(ctx context.Context, host string) {
	f.recorded = append(f.recorded, host)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial tcp 192.0.2.25:25: i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestProbe_Accepted(t *testing.T) {
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(smtpHandler("250 2.1.5 Ok"))

	var sink joblog.CaptureSink
	accepted, detail, short := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", &sink)

	if !accepted {
		t.Fatalf("accepted = false, detail = %q", detail)
	}
	if detail != "RCPT accepted (250)" {
		t.Errorf("detail = %q", detail)
	}
	if short != "250 2.1.5 Ok" {
		t.Errorf("short = %q", short)
	}

	rec, ok := sink.First(joblog.CodeDebugSMTPRcptResult)
	if !ok {
		t.Fatal("expected DEBUG_SMTP_RCPT_RESULT")
	}
	if rec.Params["response"] != "250 2.1.5 Ok" || rec.Params["email"] != "john@example.com" {
		t.Errorf("rcpt result params = %v", rec.Params)
	}
	if rec, _ := sink.First(joblog.CodeDebugSMTPConnecting); rec.Params["ip"] != "192.0.2.25" {
		t.Errorf("connecting params = %v", rec.Params)
	}
}

func TestProbe_TemporaryFailure(t *testing.T) {
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(smtpHandler("451 4.7.1 Greylisted, try again later"))

	var sink joblog.CaptureSink
	accepted, detail, short := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", &sink)

	if accepted {
		t.Fatal("accepted = true for 451")
	}
	if detail != "Temporary failure (451)" {
		t.Errorf("detail = %q", detail)
	}
	if !strings.HasPrefix(short, "451 ") {
		t.Errorf("short = %q", short)
	}
}

func TestProbe_Rejected(t *testing.T) {
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(smtpHandler("550 5.1.1 User unknown"))

	var sink joblog.CaptureSink
	accepted, detail, short := p.Probe(context.Background(), "mx1.example.com", "nobody@example.com", "noreply@probe.test", &sink)

	if accepted {
		t.Fatal("accepted = true for 550")
	}
	if detail != "Rejected (550)" {
		t.Errorf("detail = %q", detail)
	}
	if short != "550 5.1.1 User unknown" {
		t.Errorf("short = %q", short)
	}
}

func TestProbe_FallsBackToHELO(t *testing.T) {
	handler := func(c *textproto.Conn) {
		c.PrintfLine("220 mx.test")
		for {
			line, err := c.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				c.PrintfLine("502 EHLO not supported")
			case strings.HasPrefix(line, "HELO"):
				c.PrintfLine("250 mx.test")
			case strings.HasPrefix(line, "MAIL"):
				c.PrintfLine("250 Ok")
			case strings.HasPrefix(line, "RCPT"):
				c.PrintfLine("250 Ok")
			case strings.HasPrefix(line, "QUIT"):
				return
			}
		}
	}
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(handler)

	accepted, detail, _ := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", joblog.NopSink)
	if !accepted {
		t.Fatalf("accepted = false, detail = %q", detail)
	}
}

func TestProbe_SenderRefused(t *testing.T) {
	handler := func(c *textproto.Conn) {
		c.PrintfLine("220 mx.test")
		for {
			line, err := c.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				c.PrintfLine("250 mx.test")
			case strings.HasPrefix(line, "MAIL"):
				c.PrintfLine("550 5.7.1 Sender rejected")
			case strings.HasPrefix(line, "QUIT"):
				return
			}
		}
	}
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(handler)

	var sink joblog.CaptureSink
	accepted, detail, short := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", &sink)

	if accepted {
		t.Fatal("accepted = true")
	}
	if detail != "SMTP error: sender refused" {
		t.Errorf("detail = %q", detail)
	}
	if short != "" {
		t.Errorf("short = %q, want empty", short)
	}
	if !sink.Has(joblog.CodeDebugSMTPException) {
		t.Error("expected DEBUG_SMTP_EXCEPTION")
	}
}

func TestProbe_ResolveFailure(t *testing.T) {
	r := testResolver()
	r.lookupIP = func(ctx context.Context, network, host string) ([]net.IP, error) {
		return nil, &net.DNSError{Err: "timeout", IsTimeout: true}
	}
	p := NewProber(r, nil, time.Second)
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		t.Fatal("dial must not be called when resolution fails")
		return nil, nil
	}

	var sink joblog.CaptureSink
	accepted, detail, short := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", &sink)

	if accepted || short != "" {
		t.Fatalf("accepted=%v short=%q", accepted, short)
	}
	if detail != "SMTP error: DNS timeout or no A/AAAA" {
		t.Errorf("detail = %q", detail)
	}
	rec, ok := sink.First(joblog.CodeDebugSMTPDNSResolve)
	if !ok || rec.Params["ip"] != "failed" {
		t.Errorf("dns resolve params = %v, ok=%v", rec.Params, ok)
	}
}

func TestProbe_ConnectTimeoutRecordsSentinel(t *testing.T) {
	sentinel := &fakeSentinel{}
	p := NewProber(staticIPResolver("192.0.2.25"), sentinel, time.Second)
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, timeoutErr{}
	}

	var sink joblog.CaptureSink
	accepted, detail, _ := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", &sink)

	if accepted {
		t.Fatal("accepted = true")
	}
	if detail != "SMTP error: connect timeout" {
		t.Errorf("detail = %q", detail)
	}
	if len(sentinel.recorded) != 1 || sentinel.recorded[0] != "mx1.example.com" {
		t.Errorf("recorded = %v", sentinel.recorded)
	}
}

func TestProbe_ConnectionRefusedRecordsSentinel(t *testing.T) {
	sentinel := &fakeSentinel{}
	p := NewProber(staticIPResolver("192.0.2.25"), sentinel, time.Second)
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, errors.New("dial tcp 192.0.2.25:25: connect: connection refused")
	}

	_, detail, _ := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", joblog.NopSink)
	if detail != "SMTP error: connection refused" {
		t.Errorf("detail = %q", detail)
	}
	if len(sentinel.recorded) != 1 {
		t.Errorf("recorded = %v", sentinel.recorded)
	}
}

func TestProbe_GenericConnectErrorNotRecorded(t *testing.T) {
	sentinel := &fakeSentinel{}
	p := NewProber(staticIPResolver("192.0.2.25"), sentinel, time.Second)
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, errors.New("dial tcp: network is unreachable")
	}

	_, detail, _ := p.Probe(context.Background(), "mx1.example.com", "john@example.com", "noreply@probe.test", joblog.NopSink)
	if detail != "SMTP error: connect failed" {
		t.Errorf("detail = %q", detail)
	}
	if len(sentinel.recorded) != 0 {
		t.Errorf("recorded = %v, want none", sentinel.recorded)
	}
}

func TestProbe_MultilineRcptResponse(t *testing.T) {
	handler := func(c *textproto.Conn) {
		c.PrintfLine("220 mx.test")
		for {
			line, err := c.ReadLine()
			if err != nil {
				return
			}
			switch {
			case strings.HasPrefix(line, "EHLO"):
				c.PrintfLine("250 mx.test")
			case strings.HasPrefix(line, "MAIL"):
				c.PrintfLine("250 Ok")
			case strings.HasPrefix(line, "RCPT"):
				c.PrintfLine("550-5.1.1 The email account")
				c.PrintfLine("550 5.1.1 does not exist")
			case strings.HasPrefix(line, "QUIT"):
				return
			}
		}
	}
	p := NewProber(staticIPResolver("192.0.2.25"), nil, time.Second)
	p.dial = scriptedDialer(handler)

	_, detail, short := p.Probe(context.Background(), "mx1.example.com", "x@example.com", "noreply@probe.test", joblog.NopSink)
	if detail != "Rejected (550)" {
		t.Errorf("detail = %q", detail)
	}
	if strings.Contains(short, "\n") {
		t.Errorf("short contains newline: %q", short)
	}
	if !strings.HasPrefix(short, "550 ") {
		t.Errorf("short = %q", short)
	}
}

func TestHeloName(t *testing.T) {
	tests := []struct {
		mailFrom string
		want     string
	}{
		{"noreply@probe.example.com", "probe.example.com"},
		{"plainstring", "localhost"},
		{"trailing@", "localhost"},
	}
	for _, tt := range tests {
		if got := heloName(tt.mailFrom); got != tt.want {
			t.Errorf("heloName(%q) = %q, want %q", tt.mailFrom, got, tt.want)
		}
	}
}

func TestRandomLocalPart(t *testing.T) {
	a, b := randomLocalPart(), randomLocalPart()
	if len(a) != 18 || len(b) != 18 {
		t.Fatalf("lengths = %d, %d", len(a), len(b))
	}
	if a == b {
		t.Error("two random local parts are identical")
	}
	for _, r := range a {
		if !strings.ContainsRune(randLocalCharset, r) {
			t.Errorf("unexpected rune %q", r)
		}
	}
}
