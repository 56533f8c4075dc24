package verify

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailcheck/internal/pkg/logger"
)

// Redis keys shared by every worker process.
const (
	sentinelKeyBlocked      = "smtp:outbound_blocked"
	sentinelKeyTimeoutHosts = "smtp:timeout_hosts"
)

// Detection thresholds: distinct MX hosts timing out inside the window
// indicate the host network filters outbound port 25, not that each
// remote server happens to be slow.
const (
	sentinelThresholdHosts = 3
	sentinelWindow         = 5 * time.Minute
	sentinelBlockedTTL     = 15 * time.Minute
)

// BlockSentinel is what the engine needs from outbound-block detection.
// A nil sentinel on the Verifier means "never blocked, record nothing".
type BlockSentinel interface {
	// IsBlocked reports whether SMTP probing should be skipped.
	IsBlocked(ctx context.Context) bool
	// RecordTimeout notes a connect timeout against an MX host.
	RecordTimeout(ctx context.Context, host string)
}

// Sentinel tracks SMTP connect timeouts across workers in Redis and
// raises a shared blocked flag once enough distinct MX hosts time out.
// Every method degrades to a safe answer when Redis is unavailable:
// verification keeps probing rather than failing.
type Sentinel struct {
	client *redis.Client
	now    func() time.Time
}

// NewSentinel returns a sentinel backed by the given Redis client.
func NewSentinel(client *redis.Client) *Sentinel {
	return &Sentinel{client: client, now: time.Now}
}

// RecordTimeout adds the host to the timeout window and sets the
// blocked flag when the distinct-host threshold is reached.
func (s *Sentinel) RecordTimeout(ctx context.Context, host string) {
	now := s.now()
	if err := s.client.ZAdd(ctx, sentinelKeyTimeoutHosts, redis.Z{
		Score:  float64(now.Unix()),
		Member: host,
	}).Err(); err != nil {
		logger.Error("redis error recording smtp timeout", "error", err)
		return
	}

	cutoff := now.Add(-sentinelWindow).Unix()
	s.client.ZRemRangeByScore(ctx, sentinelKeyTimeoutHosts, "-inf", strconv.FormatInt(cutoff, 10))
	s.client.Expire(ctx, sentinelKeyTimeoutHosts, sentinelWindow+time.Minute)

	count, err := s.client.ZCard(ctx, sentinelKeyTimeoutHosts).Result()
	if err != nil {
		logger.Error("redis error recording smtp timeout", "error", err)
		return
	}
	if count >= sentinelThresholdHosts {
		if err := s.client.SetEx(ctx, sentinelKeyBlocked, "1", sentinelBlockedTTL).Err(); err != nil {
			logger.Error("redis error setting smtp blocked flag", "error", err)
			return
		}
		logger.Warn("smtp outbound blocked detected",
			"distinct_hosts", count,
			"window_seconds", int(sentinelWindow.Seconds()),
			"flag_ttl_seconds", int(sentinelBlockedTTL.Seconds()))
	}
}

// IsBlocked reports whether the blocked flag is currently set. Redis
// being down reads as not blocked.
func (s *Sentinel) IsBlocked(ctx context.Context) bool {
	n, err := s.client.Exists(ctx, sentinelKeyBlocked).Result()
	if err != nil {
		logger.Error("redis error checking smtp blocked status", "error", err)
		return false
	}
	return n == 1
}

// Clear removes the blocked flag and the timeout window. Admin use.
func (s *Sentinel) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, sentinelKeyBlocked, sentinelKeyTimeoutHosts).Err(); err != nil {
		return err
	}
	logger.Info("smtp blocked flag and timeout hosts cleared")
	return nil
}

// TimeoutHost is one entry of the sliding timeout window.
type TimeoutHost struct {
	Host      string  `json:"host"`
	Timestamp float64 `json:"timestamp"`
}

// BlockInfo describes the sentinel state for the admin endpoint.
type BlockInfo struct {
	Blocked           bool          `json:"smtp_blocked"`
	BlockedTTLSeconds int64         `json:"blocked_ttl_seconds"`
	TimeoutHostsCount int           `json:"timeout_hosts_count"`
	TimeoutHosts      []TimeoutHost `json:"timeout_hosts"`
	Threshold         int           `json:"threshold"`
	WindowSeconds     int           `json:"window_seconds"`
	Error             string        `json:"error,omitempty"`
}

// Info returns the sentinel state. Redis errors are reported in the
// Error field with the flag read as not blocked.
func (s *Sentinel) Info(ctx context.Context) BlockInfo {
	info := BlockInfo{
		Threshold:     sentinelThresholdHosts,
		WindowSeconds: int(sentinelWindow.Seconds()),
		TimeoutHosts:  []TimeoutHost{},
	}

	n, err := s.client.Exists(ctx, sentinelKeyBlocked).Result()
	if err != nil {
		logger.Error("redis error getting smtp blocked info", "error", err)
		return BlockInfo{Error: err.Error()}
	}
	info.Blocked = n == 1
	if info.Blocked {
		if ttl, err := s.client.TTL(ctx, sentinelKeyBlocked).Result(); err == nil && ttl > 0 {
			info.BlockedTTLSeconds = int64(ttl.Seconds())
		}
	}

	entries, err := s.client.ZRangeWithScores(ctx, sentinelKeyTimeoutHosts, 0, -1).Result()
	if err != nil {
		logger.Error("redis error getting smtp blocked info", "error", err)
		return BlockInfo{Error: err.Error()}
	}
	for _, z := range entries {
		host, _ := z.Member.(string)
		info.TimeoutHosts = append(info.TimeoutHosts, TimeoutHost{Host: host, Timestamp: z.Score})
	}
	info.TimeoutHostsCount = len(info.TimeoutHosts)
	return info
}

