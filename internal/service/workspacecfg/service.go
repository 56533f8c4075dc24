package workspacecfg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/mailcheck/internal/verify"
)

// Known config keys. Adding a key here needs no migration; values are
// plain strings in workspace_config_entries.
const (
	keySMTPTimeout     = "smtp_timeout_seconds"
	keyDNSTimeout      = "dns_timeout_seconds"
	keyPatternIndices  = "enabled_pattern_indices"
	keyMailFrom        = "smtp_mail_from"
	keyWebProvider     = "web_search_provider"
	keyWebAPIKey       = "web_search_api_key"
	keyAllowNoLastname = "allow_no_lastname"
	keyCustomPatterns  = "custom_patterns"
	keySerperUsage     = "serper_usage"
)

const (
	minTimeoutSeconds  = 1
	maxTimeoutSeconds  = 30
	minPatternsEnabled = 5
	maxCustomPatterns  = 20
	maxPatternLength   = 100
)

// Defaults are the global fallbacks applied when a workspace has no
// override for a key.
type Defaults struct {
	SMTPTimeoutSeconds int
	DNSTimeoutSeconds  float64
	MailFrom           string
}

// Resolved is the effective verification config for one workspace, typed
// and clamped, ready to hand to the verifier.
type Resolved struct {
	SMTPTimeoutSeconds    int
	DNSTimeoutSeconds     float64
	EnabledPatternIndices []int
	MailFrom              string
	WebSearchProvider     string
	WebSearchAPIKey       string
	AllowNoLastname       bool
	CustomPatterns        []string
}

// SMTPTimeout returns the SMTP timeout as a duration.
func (r Resolved) SMTPTimeout() time.Duration {
	return time.Duration(r.SMTPTimeoutSeconds) * time.Second
}

// DNSTimeout returns the DNS timeout as a duration.
func (r Resolved) DNSTimeout() time.Duration {
	return time.Duration(r.DNSTimeoutSeconds * float64(time.Second))
}

// SerperUsage summarizes serper.dev web search spend for a workspace.
type SerperUsage struct {
	CurrentMonth int    `json:"current_month"`
	Total        int    `json:"total"`
	MonthKey     string `json:"month_key"`
}

// Merged is the config API response shape: resolved values with the API
// key masked, the canonical pattern labels, and the serper usage summary.
type Merged struct {
	SMTPTimeoutSeconds    int         `json:"smtp_timeout_seconds"`
	DNSTimeoutSeconds     float64     `json:"dns_timeout_seconds"`
	EnabledPatternIndices []int       `json:"enabled_pattern_indices"`
	MailFrom              string      `json:"smtp_mail_from"`
	WebSearchProvider     string      `json:"web_search_provider"`
	WebSearchAPIKey       string      `json:"web_search_api_key"`
	AllowNoLastname       bool        `json:"allow_no_lastname"`
	CustomPatterns        []string    `json:"custom_patterns"`
	PatternLabels         []string    `json:"pattern_labels"`
	SerperUsage           SerperUsage `json:"serper_usage"`
}

// Update carries a config PUT. Nil fields are left untouched; an empty
// string (or empty custom_patterns list) deletes the override so the
// global default applies again.
type Update struct {
	SMTPTimeoutSeconds    *int      `json:"smtp_timeout_seconds"`
	DNSTimeoutSeconds     *float64  `json:"dns_timeout_seconds"`
	EnabledPatternIndices *[]int    `json:"enabled_pattern_indices"`
	MailFrom              *string   `json:"smtp_mail_from"`
	WebSearchProvider     *string   `json:"web_search_provider"`
	WebSearchAPIKey       *string   `json:"web_search_api_key"`
	AllowNoLastname       *bool     `json:"allow_no_lastname"`
	CustomPatterns        *[]string `json:"custom_patterns"`
}

// Service implements workspace config business logic. It is safe for
// concurrent use.
type Service struct {
	repo     Repository
	defaults Defaults
	now      func() time.Time
}

// NewService creates a config service backed by the given repository.
// Zero-value defaults fall back to the built-in globals.
func NewService(repo Repository, defaults Defaults) *Service {
	if defaults.SMTPTimeoutSeconds == 0 {
		defaults.SMTPTimeoutSeconds = 5
	}
	if defaults.DNSTimeoutSeconds == 0 {
		defaults.DNSTimeoutSeconds = 5.0
	}
	if defaults.MailFrom == "" {
		defaults.MailFrom = verify.DefaultMailFrom
	}
	return &Service{repo: repo, defaults: defaults, now: time.Now}
}

// Resolve returns the workspace's effective config, merged with the
// global defaults. Unparseable stored values fall back to the default
// rather than failing the caller.
func (s *Service) Resolve(ctx context.Context, workspaceID int64) (Resolved, error) {
	entries, err := s.repo.ListEntries(ctx, workspaceID)
	if err != nil {
		return Resolved{}, fmt.Errorf("list config entries: %w", err)
	}
	raw := make(map[string]string, len(entries))
	for _, e := range entries {
		raw[e.Key] = e.Value
	}
	return s.resolve(raw), nil
}

func (s *Service) resolve(raw map[string]string) Resolved {
	out := Resolved{
		SMTPTimeoutSeconds:    s.defaults.SMTPTimeoutSeconds,
		DNSTimeoutSeconds:     s.defaults.DNSTimeoutSeconds,
		EnabledPatternIndices: allPatternIndices(),
		MailFrom:              s.defaults.MailFrom,
		CustomPatterns:        []string{},
	}

	if v, ok := raw[keySMTPTimeout]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			out.SMTPTimeoutSeconds = clampInt(n, minTimeoutSeconds, maxTimeoutSeconds)
		}
	}
	if v, ok := raw[keyDNSTimeout]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out.DNSTimeoutSeconds = clampFloat(f, minTimeoutSeconds, maxTimeoutSeconds)
		}
	}
	if v, ok := raw[keyPatternIndices]; ok {
		if indices, ok := parsePatternIndices(v); ok {
			out.EnabledPatternIndices = indices
		}
	}
	if v := strings.TrimSpace(raw[keyMailFrom]); v != "" {
		out.MailFrom = v
	}
	out.WebSearchProvider = strings.TrimSpace(raw[keyWebProvider])
	out.WebSearchAPIKey = strings.TrimSpace(raw[keyWebAPIKey])
	out.AllowNoLastname = parseBoolish(raw[keyAllowNoLastname])
	if v, ok := raw[keyCustomPatterns]; ok {
		out.CustomPatterns = parseCustomPatterns(v)
	}
	return out
}

// Merged returns the config API response for a workspace: resolved
// values, masked API key, pattern labels, and the serper usage summary.
func (s *Service) Merged(ctx context.Context, workspaceID int64) (Merged, error) {
	entries, err := s.repo.ListEntries(ctx, workspaceID)
	if err != nil {
		return Merged{}, fmt.Errorf("list config entries: %w", err)
	}
	raw := make(map[string]string, len(entries))
	for _, e := range entries {
		raw[e.Key] = e.Value
	}
	cfg := s.resolve(raw)

	return Merged{
		SMTPTimeoutSeconds:    cfg.SMTPTimeoutSeconds,
		DNSTimeoutSeconds:     cfg.DNSTimeoutSeconds,
		EnabledPatternIndices: cfg.EnabledPatternIndices,
		MailFrom:              cfg.MailFrom,
		WebSearchProvider:     cfg.WebSearchProvider,
		WebSearchAPIKey:       maskAPIKey(cfg.WebSearchAPIKey),
		AllowNoLastname:       cfg.AllowNoLastname,
		CustomPatterns:        cfg.CustomPatterns,
		PatternLabels:         patternLabels(),
		SerperUsage:           s.usageSummary(raw[keySerperUsage]),
	}, nil
}

// Update applies a config PUT and returns the merged config afterwards.
// Returns *ValidationError for values the API must reject.
func (s *Service) Update(ctx context.Context, workspaceID int64, upd Update) (Merged, error) {
	if upd.SMTPTimeoutSeconds != nil {
		v := clampInt(*upd.SMTPTimeoutSeconds, minTimeoutSeconds, maxTimeoutSeconds)
		if err := s.repo.UpsertEntry(ctx, workspaceID, keySMTPTimeout, strconv.Itoa(v)); err != nil {
			return Merged{}, fmt.Errorf("save %s: %w", keySMTPTimeout, err)
		}
	}
	if upd.DNSTimeoutSeconds != nil {
		v := clampFloat(*upd.DNSTimeoutSeconds, minTimeoutSeconds, maxTimeoutSeconds)
		if err := s.repo.UpsertEntry(ctx, workspaceID, keyDNSTimeout, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return Merged{}, fmt.Errorf("save %s: %w", keyDNSTimeout, err)
		}
	}
	if upd.EnabledPatternIndices != nil {
		if err := s.saveEnabledPatterns(ctx, workspaceID, *upd.EnabledPatternIndices); err != nil {
			return Merged{}, err
		}
	}
	if upd.MailFrom != nil {
		if err := s.setOrDelete(ctx, workspaceID, keyMailFrom, strings.TrimSpace(*upd.MailFrom)); err != nil {
			return Merged{}, err
		}
	}
	if upd.WebSearchProvider != nil {
		v := strings.ToLower(strings.TrimSpace(*upd.WebSearchProvider))
		if v != "" && v != "bing" && v != "serper" {
			return Merged{}, &ValidationError{
				Message: "web_search_provider must be 'bing', 'serper' or empty",
				Details: map[string]any{keyWebProvider: v},
			}
		}
		if err := s.setOrDelete(ctx, workspaceID, keyWebProvider, v); err != nil {
			return Merged{}, err
		}
	}
	if upd.WebSearchAPIKey != nil {
		if err := s.setOrDelete(ctx, workspaceID, keyWebAPIKey, strings.TrimSpace(*upd.WebSearchAPIKey)); err != nil {
			return Merged{}, err
		}
	}
	if upd.AllowNoLastname != nil {
		v := ""
		if *upd.AllowNoLastname {
			v = "true"
		}
		if err := s.setOrDelete(ctx, workspaceID, keyAllowNoLastname, v); err != nil {
			return Merged{}, err
		}
	}
	if upd.CustomPatterns != nil {
		if err := s.saveCustomPatterns(ctx, workspaceID, *upd.CustomPatterns); err != nil {
			return Merged{}, err
		}
	}
	return s.Merged(ctx, workspaceID)
}

// saveEnabledPatterns validates and stores the enabled pattern indices as
// a sorted, deduplicated JSON list.
func (s *Service) saveEnabledPatterns(ctx context.Context, workspaceID int64, indices []int) error {
	valid := make([]int, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < patternCount() {
			valid = append(valid, i)
		}
	}
	if len(valid) < minPatternsEnabled {
		return &ValidationError{
			Message: fmt.Sprintf("at least %d enabled patterns are required", minPatternsEnabled),
			Details: map[string]any{keyPatternIndices: valid},
		}
	}
	seen := make(map[int]bool, len(valid))
	distinct := make([]int, 0, len(valid))
	for _, i := range valid {
		if !seen[i] {
			seen[i] = true
			distinct = append(distinct, i)
		}
	}
	sort.Ints(distinct)

	encoded, err := json.Marshal(distinct)
	if err != nil {
		return fmt.Errorf("encode %s: %w", keyPatternIndices, err)
	}
	if err := s.repo.UpsertEntry(ctx, workspaceID, keyPatternIndices, string(encoded)); err != nil {
		return fmt.Errorf("save %s: %w", keyPatternIndices, err)
	}
	return nil
}

// saveCustomPatterns keeps only usable patterns; an empty result deletes
// the override.
func (s *Service) saveCustomPatterns(ctx context.Context, workspaceID int64, patterns []string) error {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p != "" && strings.Contains(p, "@{domain}") && len(p) <= maxPatternLength {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		if err := s.repo.DeleteEntry(ctx, workspaceID, keyCustomPatterns); err != nil {
			return fmt.Errorf("delete %s: %w", keyCustomPatterns, err)
		}
		return nil
	}
	if len(valid) > maxCustomPatterns {
		valid = valid[:maxCustomPatterns]
	}
	encoded, err := json.Marshal(valid)
	if err != nil {
		return fmt.Errorf("encode %s: %w", keyCustomPatterns, err)
	}
	if err := s.repo.UpsertEntry(ctx, workspaceID, keyCustomPatterns, string(encoded)); err != nil {
		return fmt.Errorf("save %s: %w", keyCustomPatterns, err)
	}
	return nil
}

func (s *Service) setOrDelete(ctx context.Context, workspaceID int64, key, value string) error {
	if value == "" {
		if err := s.repo.DeleteEntry(ctx, workspaceID, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	}
	if err := s.repo.UpsertEntry(ctx, workspaceID, key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SerperUsage returns the web search usage summary for a workspace.
func (s *Service) SerperUsage(ctx context.Context, workspaceID int64) (SerperUsage, error) {
	entry, err := s.repo.GetEntry(ctx, workspaceID, keySerperUsage)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return SerperUsage{}, fmt.Errorf("load serper usage: %w", err)
	}
	raw := ""
	if entry != nil {
		raw = entry.Value
	}
	return s.usageSummary(raw), nil
}

// IncrementSerperUsage bumps the current month's serper counter and
// returns the new month total. Called once per performed search.
func (s *Service) IncrementSerperUsage(ctx context.Context, workspaceID int64) (int, error) {
	entry, err := s.repo.GetEntry(ctx, workspaceID, keySerperUsage)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return 0, fmt.Errorf("load serper usage: %w", err)
	}
	raw := ""
	if entry != nil {
		raw = entry.Value
	}
	usage := parseUsageData(raw)

	monthKey := s.monthKey()
	usage[monthKey]++

	encoded, err := json.Marshal(usage)
	if err != nil {
		return 0, fmt.Errorf("encode serper usage: %w", err)
	}
	if err := s.repo.UpsertEntry(ctx, workspaceID, keySerperUsage, string(encoded)); err != nil {
		return 0, fmt.Errorf("save serper usage: %w", err)
	}
	return usage[monthKey], nil
}

func (s *Service) usageSummary(raw string) SerperUsage {
	usage := parseUsageData(raw)
	monthKey := s.monthKey()
	total := 0
	for _, n := range usage {
		total += n
	}
	return SerperUsage{
		CurrentMonth: usage[monthKey],
		Total:        total,
		MonthKey:     monthKey,
	}
}

func (s *Service) monthKey() string {
	return s.now().UTC().Format("2006-01")
}

// parseUsageData reads the stored {"YYYY-MM": count} JSON. Anything
// malformed counts as no usage.
func parseUsageData(raw string) map[string]int {
	out := map[string]int{}
	if raw == "" {
		return out
	}
	var data map[string]float64
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return map[string]int{}
	}
	for k, v := range data {
		out[k] = int(v)
	}
	return out
}

// parsePatternIndices parses a stored JSON list of pattern indices. The
// second return is false when the value cannot supply at least
// minPatternsEnabled distinct valid indices, meaning "enable all".
func parsePatternIndices(raw string) ([]int, bool) {
	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, false
	}
	seen := make(map[int]bool, len(parsed))
	valid := make([]int, 0, len(parsed))
	for _, item := range parsed {
		f, ok := item.(float64)
		if !ok || f != float64(int(f)) {
			continue
		}
		i := int(f)
		if i < 0 || i >= patternCount() || seen[i] {
			continue
		}
		seen[i] = true
		valid = append(valid, i)
	}
	if len(valid) < minPatternsEnabled {
		return nil, false
	}
	return valid, true
}

// parseCustomPatterns parses a stored JSON list of custom patterns,
// dropping anything that could not produce a candidate.
func parseCustomPatterns(raw string) []string {
	var parsed []any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []string{}
	}
	valid := make([]string, 0, len(parsed))
	for _, item := range parsed {
		p, ok := item.(string)
		if !ok {
			continue
		}
		if strings.Contains(p, "@{domain}") && len(p) <= maxPatternLength {
			valid = append(valid, strings.TrimSpace(p))
		}
	}
	if len(valid) > maxCustomPatterns {
		valid = valid[:maxCustomPatterns]
	}
	return valid
}

func parseBoolish(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// maskAPIKey hides all but the last four characters. Keys of four or
// fewer characters are fully masked.
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > 4 {
		return strings.Repeat("*", 8) + key[len(key)-4:]
	}
	return strings.Repeat("*", len(key))
}

func patternCount() int { return len(verify.CommonPatterns) }

func allPatternIndices() []int {
	out := make([]int, patternCount())
	for i := range out {
		out[i] = i
	}
	return out
}

func patternLabels() []string {
	out := make([]string, len(verify.CommonPatterns))
	copy(out, verify.CommonPatterns)
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v float64, lo, hi int) float64 {
	if v < float64(lo) {
		return float64(lo)
	}
	if v > float64(hi) {
		return float64(hi)
	}
	return v
}
