package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultWebSearchTimeout bounds one search request. Web mentions are a
// nice-to-have signal; a slow provider must not stall verification.
const DefaultWebSearchTimeout = 3 * time.Second

// WebSearcher checks whether an address appears in public web sources
// via a configured search provider ("bing" or "serper").
type WebSearcher struct {
	client    *http.Client
	timeout   time.Duration
	bingURL   string
	serperURL string
}

// NewWebSearcher returns a searcher with the default endpoints.
func NewWebSearcher() *WebSearcher {
	return &WebSearcher{
		client:    &http.Client{},
		timeout:   DefaultWebSearchTimeout,
		bingURL:   "https://api.bing.microsoft.com/v7.0/search",
		serperURL: "https://google.serper.dev/search",
	}
}

// CheckMentioned searches for the exact (quoted) address.
//
// Returns (found, errMsg): (true, "") when the address appears,
// (false, "") when the search ran but found nothing, and (false, msg)
// when the search could not run. Errors never fail verification; they
// only surface in the job log.
func (w *WebSearcher) CheckMentioned(ctx context.Context, email, provider, apiKey string) (bool, string) {
	if strings.TrimSpace(apiKey) == "" {
		return false, "API key not configured"
	}
	if strings.TrimSpace(provider) == "" {
		return false, "Provider not configured"
	}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "bing":
		return w.checkBing(ctx, email, apiKey)
	case "serper":
		return w.checkSerper(ctx, email, apiKey)
	}
	return false, fmt.Sprintf("Provider '%s' not supported", strings.ToLower(strings.TrimSpace(provider)))
}

func (w *WebSearcher) checkBing(ctx context.Context, email, apiKey string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	query := url.QueryEscape(`"` + email + `"`)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.bingURL+"?q="+query+"&count=1", nil)
	if err != nil {
		return false, "Request error Bing: invalid request"
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", strings.TrimSpace(apiKey))

	resp, err := w.client.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return false, "Timeout connecting to Bing"
		}
		return false, "Request error Bing: connection failed"
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("HTTP error Bing: %d", resp.StatusCode)
	}

	var payload struct {
		WebPages struct {
			TotalEstimatedMatches int64 `json:"totalEstimatedMatches"`
		} `json:"webPages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, "Request error Bing: invalid response body"
	}
	return payload.WebPages.TotalEstimatedMatches > 0, ""
}

func (w *WebSearcher) checkSerper(ctx context.Context, email, apiKey string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	body, _ := json.Marshal(map[string]any{"q": `"` + email + `"`, "num": 1})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.serperURL, bytes.NewReader(body))
	if err != nil {
		return false, "Request error Serper: invalid request"
	}
	req.Header.Set("X-API-KEY", strings.TrimSpace(apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return false, "Timeout connecting to Serper"
		}
		return false, "Request error Serper: connection failed"
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("HTTP error Serper: %d", resp.StatusCode)
	}

	var payload struct {
		Organic []json.RawMessage `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, "Request error Serper: invalid response body"
	}
	return len(payload.Organic) > 0, ""
}

func isTimeoutErr(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
