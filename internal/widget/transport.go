package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport sends one ChatRequest to the relay and parses the reply.
// Failures are surfaced verbatim: fallback substitution is the relay's
// job, not the client's.
type Transport struct {
	apiURL string
	client *http.Client
}

type TransportOption func(*Transport)

func WithHTTPClient(client *http.Client) TransportOption {
	return func(t *Transport) {
		t.client = client
	}
}

func NewTransport(apiURL string, opts ...TransportOption) (*Transport, error) {
	apiURL = strings.TrimSpace(apiURL)
	if apiURL == "" {
		return nil, errors.New("widget: api url must not be empty")
	}
	t := &Transport{
		apiURL: apiURL,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *Transport) Send(ctx context.Context, req ChatRequest) (Reply, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, fmt.Errorf("widget: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiURL, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("widget: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return Reply{}, fmt.Errorf("widget: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Reply{}, fmt.Errorf("widget: relay returned status %d", resp.StatusCode)
	}

	var reply Reply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("widget: decode reply: %w", err)
	}
	return reply, nil
}
