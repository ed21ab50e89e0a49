package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-widget-relay/internal/relay"
)

const (
	defaultTimeout = 10 * time.Second
	maxReplyBytes  = 1 << 20
)

// StatusError captures a non-2xx response from the upstream webhook.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Webhook posts engine payloads to an automation webhook and hands the
// response body back untouched. All schema handling lives in the relay
// normalizer.
type Webhook struct {
	url    string
	client *http.Client
}

type WebhookOption func(*Webhook)

func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.client = client
	}
}

func NewWebhook(url string, opts ...WebhookOption) (*Webhook, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("engine: webhook url must not be empty")
	}
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Webhook) Ask(ctx context.Context, payload relay.EnginePayload) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("engine: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("engine: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("engine: read reply body: %w", err)
	}
	return body, nil
}
