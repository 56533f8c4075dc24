package workspacecfg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/verify"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu    sync.RWMutex
	store map[int64]map[string]string
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[int64]map[string]string)}
}

func (m *mockRepo) seed(workspaceID int64, key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store[workspaceID] == nil {
		m.store[workspaceID] = make(map[string]string)
	}
	m.store[workspaceID][key] = value
}

func (m *mockRepo) ListEntries(_ context.Context, workspaceID int64) ([]domain.WorkspaceConfigEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.WorkspaceConfigEntry
	for k, v := range m.store[workspaceID] {
		out = append(out, domain.WorkspaceConfigEntry{WorkspaceID: workspaceID, Key: k, Value: v})
	}
	return out, nil
}

func (m *mockRepo) GetEntry(_ context.Context, workspaceID int64, key string) (*domain.WorkspaceConfigEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.store[workspaceID][key]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &domain.WorkspaceConfigEntry{WorkspaceID: workspaceID, Key: key, Value: v}, nil
}

func (m *mockRepo) UpsertEntry(_ context.Context, workspaceID int64, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store[workspaceID] == nil {
		m.store[workspaceID] = make(map[string]string)
	}
	m.store[workspaceID][key] = value
	return nil
}

func (m *mockRepo) DeleteEntry(_ context.Context, workspaceID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store[workspaceID], key)
	return nil
}

func newTestService(repo *mockRepo) *Service {
	s := NewService(repo, Defaults{})
	s.now = func() time.Time { return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC) }
	return s
}

func intPtr(i int) *int            { return &i }
func floatPtr(f float64) *float64  { return &f }
func strPtr(s string) *string      { return &s }
func boolPtr(b bool) *bool         { return &b }
func intsPtr(s []int) *[]int       { return &s }
func strsPtr(s []string) *[]string { return &s }

func TestResolve_Defaults(t *testing.T) {
	s := newTestService(newMockRepo())

	cfg, err := s.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.SMTPTimeoutSeconds != 5 {
		t.Errorf("smtp timeout = %d, want 5", cfg.SMTPTimeoutSeconds)
	}
	if cfg.DNSTimeoutSeconds != 5.0 {
		t.Errorf("dns timeout = %v, want 5.0", cfg.DNSTimeoutSeconds)
	}
	if len(cfg.EnabledPatternIndices) != len(verify.CommonPatterns) {
		t.Errorf("indices = %v, want all", cfg.EnabledPatternIndices)
	}
	if cfg.MailFrom != verify.DefaultMailFrom {
		t.Errorf("mailFrom = %q", cfg.MailFrom)
	}
	if cfg.WebSearchProvider != "" || cfg.WebSearchAPIKey != "" || cfg.AllowNoLastname {
		t.Errorf("web/allow fields not zero: %+v", cfg)
	}
	if cfg.CustomPatterns == nil || len(cfg.CustomPatterns) != 0 {
		t.Errorf("customPatterns = %v, want empty slice", cfg.CustomPatterns)
	}
}

func TestResolve_Overrides(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "smtp_timeout_seconds", "12")
	repo.seed(1, "dns_timeout_seconds", "2.5")
	repo.seed(1, "smtp_mail_from", "  sales@acme.com  ")
	repo.seed(1, "enabled_pattern_indices", "[9, 2, 0, 5, 7]")
	repo.seed(1, "web_search_provider", "serper")
	repo.seed(1, "web_search_api_key", "sk-123")
	repo.seed(1, "allow_no_lastname", "yes")
	repo.seed(1, "custom_patterns", `["{f}-{last}@{domain}"]`)
	s := newTestService(repo)

	cfg, err := s.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.SMTPTimeoutSeconds != 12 || cfg.DNSTimeoutSeconds != 2.5 {
		t.Errorf("timeouts = %d / %v", cfg.SMTPTimeoutSeconds, cfg.DNSTimeoutSeconds)
	}
	if cfg.MailFrom != "sales@acme.com" {
		t.Errorf("mailFrom = %q", cfg.MailFrom)
	}
	if fmt.Sprint(cfg.EnabledPatternIndices) != "[9 2 0 5 7]" {
		t.Errorf("indices = %v, want stored order preserved", cfg.EnabledPatternIndices)
	}
	if cfg.WebSearchProvider != "serper" || cfg.WebSearchAPIKey != "sk-123" {
		t.Errorf("web = %q / %q", cfg.WebSearchProvider, cfg.WebSearchAPIKey)
	}
	if !cfg.AllowNoLastname {
		t.Error("allowNoLastname = false")
	}
	if len(cfg.CustomPatterns) != 1 || cfg.CustomPatterns[0] != "{f}-{last}@{domain}" {
		t.Errorf("customPatterns = %v", cfg.CustomPatterns)
	}
}

func TestResolve_ClampsTimeouts(t *testing.T) {
	tests := []struct {
		key  string
		raw  string
		smtp int
		dns  float64
	}{
		{"smtp_timeout_seconds", "0", 1, 5.0},
		{"smtp_timeout_seconds", "99", 30, 5.0},
		{"dns_timeout_seconds", "0.2", 5, 1.0},
		{"dns_timeout_seconds", "45", 5, 30.0},
	}
	for _, tt := range tests {
		repo := newMockRepo()
		repo.seed(1, tt.key, tt.raw)
		s := newTestService(repo)

		cfg, err := s.Resolve(context.Background(), 1)
		if err != nil {
			t.Fatalf("%s=%q: %v", tt.key, tt.raw, err)
		}
		if cfg.SMTPTimeoutSeconds != tt.smtp || cfg.DNSTimeoutSeconds != tt.dns {
			t.Errorf("%s=%q: got %d / %v, want %d / %v",
				tt.key, tt.raw, cfg.SMTPTimeoutSeconds, cfg.DNSTimeoutSeconds, tt.smtp, tt.dns)
		}
	}
}

func TestResolve_UnparseableValuesFallBack(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"smtp not a number", "smtp_timeout_seconds", "abc"},
		{"dns not a number", "dns_timeout_seconds", "fast"},
		{"indices not json", "enabled_pattern_indices", "not json"},
		{"indices too few", "enabled_pattern_indices", "[0,1]"},
		{"indices duplicates collapse below minimum", "enabled_pattern_indices", "[1,1,1,1,1]"},
		{"indices non-integers ignored", "enabled_pattern_indices", `[0,1,2,3,"4"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepo()
			repo.seed(1, tt.key, tt.raw)
			s := newTestService(repo)

			cfg, err := s.Resolve(context.Background(), 1)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if cfg.SMTPTimeoutSeconds != 5 || cfg.DNSTimeoutSeconds != 5.0 {
				t.Errorf("timeouts = %d / %v, want defaults", cfg.SMTPTimeoutSeconds, cfg.DNSTimeoutSeconds)
			}
			if len(cfg.EnabledPatternIndices) != len(verify.CommonPatterns) {
				t.Errorf("indices = %v, want all", cfg.EnabledPatternIndices)
			}
		})
	}
}

func TestResolve_CustomPatternsFiltered(t *testing.T) {
	long := strings.Repeat("x", 101) + "@{domain}"
	repo := newMockRepo()
	repo.seed(1, "custom_patterns", `["  team.{first}@{domain} ", "nodomain@example.com", "`+long+`", 42]`)
	s := newTestService(repo)

	cfg, err := s.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(cfg.CustomPatterns) != 1 || cfg.CustomPatterns[0] != "team.{first}@{domain}" {
		t.Errorf("customPatterns = %v", cfg.CustomPatterns)
	}
}

func TestMerged_MasksKeyAndIncludesLabels(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "web_search_api_key", "sk-verysecret123")
	s := newTestService(repo)

	merged, err := s.Merged(context.Background(), 1)
	if err != nil {
		t.Fatalf("Merged: %v", err)
	}
	if merged.WebSearchAPIKey != "********t123" {
		t.Errorf("masked key = %q", merged.WebSearchAPIKey)
	}
	if len(merged.PatternLabels) != len(verify.CommonPatterns) || merged.PatternLabels[2] != "{first}.{last}@{domain}" {
		t.Errorf("patternLabels = %v", merged.PatternLabels)
	}
	if merged.SerperUsage.MonthKey != "2025-06" || merged.SerperUsage.Total != 0 {
		t.Errorf("serperUsage = %+v", merged.SerperUsage)
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"sk-verysecret123", "********t123"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.key); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestMerged_SerperUsageSummary(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "serper_usage", `{"2025-05": 3, "2025-06": 5}`)
	s := newTestService(repo)

	merged, err := s.Merged(context.Background(), 1)
	if err != nil {
		t.Fatalf("Merged: %v", err)
	}
	u := merged.SerperUsage
	if u.CurrentMonth != 5 || u.Total != 8 || u.MonthKey != "2025-06" {
		t.Errorf("serperUsage = %+v", u)
	}
}

func TestUpdate_ClampsAndStoresTimeouts(t *testing.T) {
	repo := newMockRepo()
	s := newTestService(repo)

	merged, err := s.Update(context.Background(), 1, Update{
		SMTPTimeoutSeconds: intPtr(99),
		DNSTimeoutSeconds:  floatPtr(0.5),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if merged.SMTPTimeoutSeconds != 30 || merged.DNSTimeoutSeconds != 1.0 {
		t.Errorf("merged timeouts = %d / %v", merged.SMTPTimeoutSeconds, merged.DNSTimeoutSeconds)
	}

	entry, err := repo.GetEntry(context.Background(), 1, "smtp_timeout_seconds")
	if err != nil || entry.Value != "30" {
		t.Errorf("stored smtp = %+v, err = %v", entry, err)
	}
}

func TestUpdate_EnabledPatternsStoredSortedDistinct(t *testing.T) {
	repo := newMockRepo()
	s := newTestService(repo)

	if _, err := s.Update(context.Background(), 1, Update{EnabledPatternIndices: intsPtr([]int{3, 1, 2, 9, 1, 0})}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	entry, err := repo.GetEntry(context.Background(), 1, "enabled_pattern_indices")
	if err != nil || entry.Value != "[0,1,2,3,9]" {
		t.Errorf("stored indices = %+v, err = %v", entry, err)
	}
}

func TestUpdate_EnabledPatternsRejectsTooFew(t *testing.T) {
	s := newTestService(newMockRepo())

	_, err := s.Update(context.Background(), 1, Update{EnabledPatternIndices: intsPtr([]int{1, 2, 99})})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if fmt.Sprint(ve.Details["enabled_pattern_indices"]) != "[1 2]" {
		t.Errorf("details = %v", ve.Details)
	}
}

func TestUpdate_ProviderValidated(t *testing.T) {
	repo := newMockRepo()
	s := newTestService(repo)

	if _, err := s.Update(context.Background(), 1, Update{WebSearchProvider: strPtr("duckduckgo")}); err == nil {
		t.Fatal("expected validation error for unsupported provider")
	}

	if _, err := s.Update(context.Background(), 1, Update{WebSearchProvider: strPtr("  BING ")}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	entry, err := repo.GetEntry(context.Background(), 1, "web_search_provider")
	if err != nil || entry.Value != "bing" {
		t.Errorf("stored provider = %+v, err = %v", entry, err)
	}
}

func TestUpdate_EmptyValuesDeleteOverrides(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "smtp_mail_from", "sales@acme.com")
	repo.seed(1, "web_search_provider", "bing")
	repo.seed(1, "web_search_api_key", "sk-123")
	repo.seed(1, "allow_no_lastname", "true")
	repo.seed(1, "custom_patterns", `["x@{domain}"]`)
	s := newTestService(repo)

	_, err := s.Update(context.Background(), 1, Update{
		MailFrom:          strPtr("  "),
		WebSearchProvider: strPtr(""),
		WebSearchAPIKey:   strPtr(""),
		AllowNoLastname:   boolPtr(false),
		CustomPatterns:    strsPtr([]string{}),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	for _, key := range []string{"smtp_mail_from", "web_search_provider", "web_search_api_key", "allow_no_lastname", "custom_patterns"} {
		if _, err := repo.GetEntry(context.Background(), 1, key); !errors.Is(err, ErrEntryNotFound) {
			t.Errorf("%s still stored after empty update", key)
		}
	}
}

func TestUpdate_CustomPatternsFiltered(t *testing.T) {
	repo := newMockRepo()
	s := newTestService(repo)

	_, err := s.Update(context.Background(), 1, Update{CustomPatterns: strsPtr([]string{
		" dev.{first}@{domain} ",
		"missing-placeholder@example.com",
		"",
	})})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	entry, err := repo.GetEntry(context.Background(), 1, "custom_patterns")
	if err != nil || entry.Value != `["dev.{first}@{domain}"]` {
		t.Errorf("stored patterns = %+v, err = %v", entry, err)
	}
}

func TestUpdate_UntouchedFieldsStay(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "web_search_api_key", "sk-123")
	s := newTestService(repo)

	if _, err := s.Update(context.Background(), 1, Update{SMTPTimeoutSeconds: intPtr(10)}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	entry, err := repo.GetEntry(context.Background(), 1, "web_search_api_key")
	if err != nil || entry.Value != "sk-123" {
		t.Errorf("api key entry = %+v, err = %v", entry, err)
	}
}

func TestIncrementSerperUsage(t *testing.T) {
	repo := newMockRepo()
	s := newTestService(repo)
	ctx := context.Background()

	if n, err := s.IncrementSerperUsage(ctx, 1); err != nil || n != 1 {
		t.Fatalf("first increment = %d, err = %v", n, err)
	}
	if n, err := s.IncrementSerperUsage(ctx, 1); err != nil || n != 2 {
		t.Fatalf("second increment = %d, err = %v", n, err)
	}

	usage, err := s.SerperUsage(ctx, 1)
	if err != nil {
		t.Fatalf("SerperUsage: %v", err)
	}
	if usage.CurrentMonth != 2 || usage.Total != 2 || usage.MonthKey != "2025-06" {
		t.Errorf("usage = %+v", usage)
	}
}

func TestSerperUsage_MalformedStoredValue(t *testing.T) {
	repo := newMockRepo()
	repo.seed(1, "serper_usage", "{broken")
	s := newTestService(repo)

	usage, err := s.SerperUsage(context.Background(), 1)
	if err != nil {
		t.Fatalf("SerperUsage: %v", err)
	}
	if usage.CurrentMonth != 0 || usage.Total != 0 {
		t.Errorf("usage = %+v, want zeroes", usage)
	}
}

func TestResolvedTimeoutHelpers(t *testing.T) {
	r := Resolved{SMTPTimeoutSeconds: 5, DNSTimeoutSeconds: 2.5}
	if r.SMTPTimeout() != 5*time.Second {
		t.Errorf("SMTPTimeout = %v", r.SMTPTimeout())
	}
	if r.DNSTimeout() != 2500*time.Millisecond {
		t.Errorf("DNSTimeout = %v", r.DNSTimeout())
	}
}
