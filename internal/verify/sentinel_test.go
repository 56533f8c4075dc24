package verify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestSentinel(t *testing.T) (*Sentinel, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewSentinel(client), mr
}

func TestSentinel_BlocksAfterThreeDistinctHosts(t *testing.T) {
	s, _ := newTestSentinel(t)
	ctx := context.Background()

	s.RecordTimeout(ctx, "mx1.example.com")
	s.RecordTimeout(ctx, "mx2.example.com")
	if s.IsBlocked(ctx) {
		t.Fatal("two hosts must not trip the flag")
	}

	s.RecordTimeout(ctx, "mx3.example.com")
	if !s.IsBlocked(ctx) {
		t.Fatal("three distinct hosts must trip the flag")
	}
}

func TestSentinel_SameHostDoesNotCount(t *testing.T) {
	s, _ := newTestSentinel(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		s.RecordTimeout(ctx, "mx1.example.com")
	}
	if s.IsBlocked(ctx) {
		t.Fatal("repeated timeouts on one host must not trip the flag")
	}
}

func TestSentinel_WindowPrunesOldHosts(t *testing.T) {
	s, _ := newTestSentinel(t)
	ctx := context.Background()

	base := time.Now()
	s.now = func() time.Time { return base.Add(-10 * time.Minute) }
	s.RecordTimeout(ctx, "mx1.example.com")
	s.RecordTimeout(ctx, "mx2.example.com")

	// Ten minutes later the earlier entries fall out of the window.
	s.now = func() time.Time { return base }
	s.RecordTimeout(ctx, "mx3.example.com")

	if s.IsBlocked(ctx) {
		t.Fatal("stale hosts must not count toward the threshold")
	}
	info := s.Info(ctx)
	if info.TimeoutHostsCount != 1 {
		t.Errorf("timeout hosts = %d, want 1", info.TimeoutHostsCount)
	}
}

func TestSentinel_BlockedFlagExpires(t *testing.T) {
	s, mr := newTestSentinel(t)
	ctx := context.Background()

	s.RecordTimeout(ctx, "mx1.example.com")
	s.RecordTimeout(ctx, "mx2.example.com")
	s.RecordTimeout(ctx, "mx3.example.com")
	if !s.IsBlocked(ctx) {
		t.Fatal("expected blocked")
	}

	mr.FastForward(16 * time.Minute)
	if s.IsBlocked(ctx) {
		t.Fatal("flag must expire after its TTL")
	}
}

func TestSentinel_Clear(t *testing.T) {
	s, _ := newTestSentinel(t)
	ctx := context.Background()

	s.RecordTimeout(ctx, "mx1.example.com")
	s.RecordTimeout(ctx, "mx2.example.com")
	s.RecordTimeout(ctx, "mx3.example.com")
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if s.IsBlocked(ctx) {
		t.Fatal("expected not blocked after clear")
	}
	if info := s.Info(ctx); info.TimeoutHostsCount != 0 {
		t.Errorf("timeout hosts = %d, want 0", info.TimeoutHostsCount)
	}
}

func TestSentinel_Info(t *testing.T) {
	s, _ := newTestSentinel(t)
	ctx := context.Background()

	info := s.Info(ctx)
	if info.Blocked {
		t.Error("fresh sentinel reports blocked")
	}
	if info.Threshold != 3 || info.WindowSeconds != 300 {
		t.Errorf("threshold=%d window=%d", info.Threshold, info.WindowSeconds)
	}

	s.RecordTimeout(ctx, "mx1.example.com")
	s.RecordTimeout(ctx, "mx2.example.com")
	s.RecordTimeout(ctx, "mx3.example.com")

	info = s.Info(ctx)
	if !info.Blocked {
		t.Fatal("expected blocked")
	}
	if info.BlockedTTLSeconds <= 0 || info.BlockedTTLSeconds > 900 {
		t.Errorf("blocked ttl = %d", info.BlockedTTLSeconds)
	}
	if info.TimeoutHostsCount != 3 || len(info.TimeoutHosts) != 3 {
		t.Errorf("hosts count = %d, entries = %d", info.TimeoutHostsCount, len(info.TimeoutHosts))
	}
	for _, h := range info.TimeoutHosts {
		if h.Host == "" || h.Timestamp == 0 {
			t.Errorf("incomplete host entry %+v", h)
		}
	}
}

func TestSentinel_RedisDownDegradesSafely(t *testing.T) {
	s, mr := newTestSentinel(t)
	ctx := context.Background()
	mr.Close()

	// Verification must continue as if nothing is blocked.
	if s.IsBlocked(ctx) {
		t.Error("IsBlocked must read false when redis is down")
	}
	s.RecordTimeout(ctx, "mx1.example.com") // must not panic

	info := s.Info(ctx)
	if info.Blocked {
		t.Error("Info must report not blocked when redis is down")
	}
	if info.Error == "" {
		t.Error("Info should surface the redis error")
	}
}
