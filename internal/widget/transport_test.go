package widget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTransport_EmptyURL(t *testing.T) {
	_, err := NewTransport("")
	require.Error(t, err)
}

func TestTransport_Send_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "Hello", req["user_message"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"assistant_message": "Hi there",
			"conversation_id": "conv-1",
			"quick_replies": [{"label":"Buy","value":"buy"}],
			"ui_hints": {"detected_language":"en"}
		}`))
	}))
	defer srv.Close()

	tr, err := NewTransport(srv.URL)
	require.NoError(t, err)

	reply, err := tr.Send(context.Background(), ChatRequest{UserMessage: "Hello"})
	require.NoError(t, err)
	require.Equal(t, "Hi there", reply.AssistantMessage)
	require.Equal(t, "conv-1", reply.ConversationID)
	require.Equal(t, []QuickReply{{Label: "Buy", Value: "buy"}}, reply.QuickReplies)
	require.Equal(t, "en", reply.UIHints["detected_language"])
}

func TestTransport_Send_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, err := NewTransport(srv.URL)
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), ChatRequest{UserMessage: "Hello"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestTransport_Send_NonParseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not-json"))
	}))
	defer srv.Close()

	tr, err := NewTransport(srv.URL)
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), ChatRequest{UserMessage: "Hello"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode reply")
}

func TestTransport_Send_NetworkError(t *testing.T) {
	tr, err := NewTransport("http://127.0.0.1:1",
		WithHTTPClient(&http.Client{Timeout: 200 * time.Millisecond}))
	require.NoError(t, err)

	_, err = tr.Send(context.Background(), ChatRequest{UserMessage: "Hello"})
	require.Error(t, err)
}
