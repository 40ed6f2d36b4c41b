package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types.
const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// SignatureHeader carries "sha256=<hex>" of the body when a secret is set.
const SignatureHeader = "X-Orderbot-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DefaultDelays are the waits before each delivery attempt.
var DefaultDelays = []time.Duration{0, 1 * time.Second, 5 * time.Second}

// Notifier delivers run events to one endpoint.
type Notifier struct {
	url    string
	secret string
	delays []time.Duration
	client *http.Client
}

// NewNotifier returns nil when url is empty; a nil Notifier's Notify is a no-op.
func NewNotifier(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		secret: secret,
		delays: DefaultDelays,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify delivers the event, retrying per the delay schedule. The run's
// outcome never depends on it, so failures are only logged.
func (n *Notifier) Notify(ctx context.Context, event *Event) {
	if n == nil {
		return
	}
	for attempt, delay := range n.delays {
		if delay > 0 {
			select {
			case <-ctx.Done():
				slog.Warn("webhook delivery abandoned", "event", event.Type, "error", ctx.Err())
				return
			case <-time.After(delay):
			}
		}
		err := n.Deliver(ctx, event)
		if err == nil {
			slog.Info("webhook delivered", "url", n.url, "event", event.Type, "attempt", attempt+1)
			return
		}
		slog.Warn("webhook delivery failed",
			"url", n.url,
			"event", event.Type,
			"attempt", attempt+1,
			"error", err,
		)
	}
	slog.Error("webhook delivery exhausted all retries", "url", n.url, "event", event.Type)
}

// Deliver sends the event once.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Orderbot-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
