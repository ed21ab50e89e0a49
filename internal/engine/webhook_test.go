package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chat-widget-relay/internal/relay"
)

func TestNewWebhook_EmptyURL(t *testing.T) {
	_, err := NewWebhook("  ")
	require.Error(t, err)
}

func TestWebhook_Ask_PassesPayloadAndBodyThrough(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"assistant_message":"Hi","ui_hints":{"k":"v"}}`))
	}))
	defer srv.Close()

	web, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	raw, err := web.Ask(context.Background(), relay.EnginePayload{
		ConversationID: "conv-1",
		Message:        "Hello",
		Source:         relay.SourceTag,
	})
	require.NoError(t, err)
	// Body comes back verbatim; the normalizer owns all coercion.
	require.JSONEq(t, `{"assistant_message":"Hi","ui_hints":{"k":"v"}}`, string(raw))

	require.Equal(t, "conv-1", received["conversation_id"])
	require.Equal(t, "Hello", received["message"])
	require.Equal(t, relay.SourceTag, received["source"])
}

func TestWebhook_Ask_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	web, err := NewWebhook(srv.URL)
	require.NoError(t, err)

	_, err = web.Ask(context.Background(), relay.EnginePayload{Message: "Hello"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "upstream exploded")
}

func TestWebhook_Ask_NetworkError(t *testing.T) {
	web, err := NewWebhook("http://127.0.0.1:1",
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	require.NoError(t, err)

	_, err = web.Ask(context.Background(), relay.EnginePayload{Message: "Hello"})
	require.Error(t, err)
}

func TestWebhook_Ask_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	web, err := NewWebhook(srv.URL, WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
	require.NoError(t, err)

	_, err = web.Ask(context.Background(), relay.EnginePayload{Message: "Hello"})
	require.Error(t, err)
}
