package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/wellsgz/mcpulse/internal/logging"
)

// webhookPayload is compatible with Discord and Slack incoming webhooks
type webhookPayload struct {
	Content string `json:"content"`
	Text    string `json:"text"`
	Event   Event  `json:"event"`
}

// Webhook posts events as JSON to a URL
type Webhook struct {
	ctx    context.Context
	url    string
	client *http.Client
	wg     sync.WaitGroup
}

// NewWebhook creates a webhook sink. Cancelling ctx aborts deliveries in
// flight.
func NewWebhook(ctx context.Context, url string) *Webhook {
	return &Webhook{
		ctx: ctx,
		url: url,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Notify sends the event asynchronously
func (w *Webhook) Notify(ev Event) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.send(ev); err != nil {
			logging.Error("Notify", "Webhook delivery failed", err)
		}
	}()
}

// Wait blocks until in-flight deliveries finish
func (w *Webhook) Wait() {
	w.wg.Wait()
}

func (w *Webhook) send(ev Event) error {
	msg := ev.Message()
	data, err := json.Marshal(webhookPayload{Content: msg, Text: msg, Event: ev})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(w.ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
