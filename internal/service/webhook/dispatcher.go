package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/pkg/logger"
)

const (
	// DefaultDeliveryTimeout bounds one POST to a receiver.
	DefaultDeliveryTimeout = 10 * time.Second

	// maxRetries is how many times a failed delivery is retried. With
	// the initial attempt that makes maxRetries+1 POSTs.
	maxRetries = 5

	// maxResponseBytes caps the stored response body or error text.
	maxResponseBytes = 2000
)

// Signature computes the delivery signature header value:
// "sha256=" + hex HMAC-SHA256 of the body keyed with the hook secret.
func Signature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Dispatcher fans events out to subscribed endpoints. Deliveries run in
// background goroutines; Stop interrupts pending backoffs and waits for
// in-flight attempts to record their outcome.
type Dispatcher struct {
	repo    Repository
	client  *http.Client
	backoff func(retry int) time.Duration

	wg       sync.WaitGroup
	quit     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher. A zero timeout falls back to
// DefaultDeliveryTimeout.
func NewDispatcher(repo Repository, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Dispatcher{
		repo:   repo,
		client: &http.Client{Timeout: timeout},
		backoff: func(retry int) time.Duration {
			return time.Duration(1<<retry) * time.Second
		},
		quit: make(chan struct{}),
	}
}

// Dispatch delivers an event to every active subscription of the
// workspace that includes it in its event list. It returns once the
// deliveries are handed to background goroutines.
func (d *Dispatcher) Dispatch(ctx context.Context, workspaceID int64, event string, payload any) error {
	hooks, err := d.repo.ListActiveByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}

	body, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	for _, wh := range hooks {
		if !wh.SubscribesTo(event) {
			continue
		}
		d.wg.Add(1)
		go d.deliver(wh.ID, event, body)
	}
	return nil
}

// Stop interrupts pending retries and waits for running deliveries.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	d.wg.Wait()
}

func (d *Dispatcher) stopping() bool {
	select {
	case <-d.quit:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) deliver(webhookID int64, event string, body []byte) {
	defer d.wg.Done()
	for retry := 0; ; retry++ {
		if d.stopping() {
			return
		}
		done := d.attempt(webhookID, event, body, retry)
		if done || retry >= maxRetries {
			return
		}
		select {
		case <-time.After(d.backoff(retry)):
		case <-d.quit:
			return
		}
	}
}

// attempt performs one POST and records it. It returns true when no
// further retries should happen: delivered, or the hook is gone or
// deactivated.
func (d *Dispatcher) attempt(webhookID int64, event string, body []byte, retry int) bool {
	ctx := context.Background()

	wh, err := d.repo.GetByID(ctx, webhookID)
	if errors.Is(err, ErrNotFound) {
		return true
	}
	if err != nil {
		logger.Error("webhook load failed", "webhook_id", webhookID, "error", err.Error())
		return false
	}
	if !wh.IsActive {
		return true
	}

	delivery := &domain.WebhookDelivery{
		WebhookID:  wh.ID,
		Event:      event,
		Payload:    string(body),
		RetryCount: retry,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		delivery.ResponseBody = truncate(err.Error(), maxResponseBytes)
	} else {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Webhook-Signature", Signature(body, wh.Secret))

		resp, err := d.client.Do(req)
		if err != nil {
			delivery.ResponseBody = truncate(err.Error(), maxResponseBytes)
		} else {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			resp.Body.Close()
			code := resp.StatusCode
			delivery.StatusCode = &code
			delivery.ResponseBody = string(respBody)
			delivery.Success = code >= 200 && code < 300
		}
	}

	if err := d.repo.RecordDelivery(ctx, delivery); err != nil {
		logger.Error("webhook delivery record failed",
			"webhook_id", wh.ID, "event", event, "error", err.Error())
	}
	if !delivery.Success && retry >= maxRetries {
		logger.Warn("webhook delivery gave up",
			"webhook_id", wh.ID, "event", event, "retries", retry)
	}
	return delivery.Success
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
