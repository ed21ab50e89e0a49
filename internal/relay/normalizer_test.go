package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	raw   json.RawMessage
	err   error
	calls int
	last  EnginePayload
}

func (f *fakeEngine) Ask(_ context.Context, p EnginePayload) (json.RawMessage, error) {
	f.calls++
	f.last = p
	return f.raw, f.err
}

type fakeArchive struct {
	err   error
	calls int
	last  Exchange
}

func (f *fakeArchive) SaveExchange(_ context.Context, ex Exchange) error {
	f.calls++
	f.last = ex
	return f.err
}

func newTestNormalizer(t *testing.T, eng Engine, arc Archive) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(eng, arc, "fallback message", nil)
	require.NoError(t, err)
	return n
}

func TestNewNormalizer_NilEngine(t *testing.T) {
	_, err := NewNormalizer(nil, nil, "", nil)
	require.Error(t, err)
}

func TestNormalize_EmptyMessageSkipsEngine(t *testing.T) {
	eng := &fakeEngine{}
	n := newTestNormalizer(t, eng, nil)

	reply := n.Normalize(context.Background(), ChatRequest{UserMessage: "   "})

	require.Equal(t, 0, eng.calls, "engine must not be called for an empty message")
	require.Equal(t, "fallback message", reply.AssistantMessage)
}

func TestNormalize_BuildsEnginePayload(t *testing.T) {
	eng := &fakeEngine{raw: json.RawMessage(`{}`)}
	n := newTestNormalizer(t, eng, nil)

	n.Normalize(context.Background(), ChatRequest{
		ConversationID: "conv-1",
		UserMessage:    "  Hello  ",
		Metadata: Metadata{
			Language: "es",
			PageURL:  "https://example.com/listing",
			ClientID: "agency-1",
			Category: "buy",
		},
	})

	require.Equal(t, 1, eng.calls)
	require.Equal(t, EnginePayload{
		ConversationID: "conv-1",
		Message:        "Hello",
		Language:       "es",
		Source:         SourceTag,
		PageURL:        "https://example.com/listing",
		ClientID:       "agency-1",
		Category:       "buy",
	}, eng.last)
}

// Every upstream outcome must yield the full normalized shape.
func TestNormalize_UpstreamOutcomes(t *testing.T) {
	cases := []struct {
		name string
		raw  json.RawMessage
		err  error
		want Reply
	}{
		{
			name: "engine error",
			err:  errors.New("connection refused"),
			want: Reply{AssistantMessage: "fallback message", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
		{
			name: "non-json body",
			raw:  json.RawMessage(`<html>oops</html>`),
			want: Reply{AssistantMessage: "fallback message", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
		{
			name: "json array body",
			raw:  json.RawMessage(`[1,2,3]`),
			want: Reply{AssistantMessage: "fallback message", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
		{
			name: "empty object",
			raw:  json.RawMessage(`{}`),
			want: Reply{AssistantMessage: "fallback message", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
		{
			name: "full reply",
			raw: json.RawMessage(`{
				"assistant_message": "Hola",
				"conversation_id": "conv-9",
				"quick_replies": [{"label":"Buy","value":"buy"}],
				"ui_hints": {"detected_language":"es"}
			}`),
			want: Reply{
				AssistantMessage: "Hola",
				ConversationID:   "conv-9",
				QuickReplies:     []QuickReply{{Label: "Buy", Value: "buy"}},
				UIHints:          map[string]any{"detected_language": "es"},
			},
		},
		{
			name: "each field independently malformed",
			raw:  json.RawMessage(`{"assistant_message":42,"conversation_id":{},"quick_replies":"nope","ui_hints":[]}`),
			want: Reply{AssistantMessage: "fallback message", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
		{
			name: "good message with malformed extras",
			raw:  json.RawMessage(`{"assistant_message":"Hi","quick_replies":17}`),
			want: Reply{AssistantMessage: "Hi", QuickReplies: []QuickReply{}, UIHints: map[string]any{}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng := &fakeEngine{raw: tc.raw, err: tc.err}
			n := newTestNormalizer(t, eng, nil)

			reply := n.Normalize(context.Background(), ChatRequest{UserMessage: "Hello"})

			require.Equal(t, tc.want, reply)
			require.NotNil(t, reply.QuickReplies)
			require.NotNil(t, reply.UIHints)
		})
	}
}

func TestNormalize_FallbackIsFixedPoint(t *testing.T) {
	n := newTestNormalizer(t, &fakeEngine{}, nil)

	fallback := n.safeFallback()
	raw, err := json.Marshal(fallback)
	require.NoError(t, err)

	require.Equal(t, fallback, n.coerce(raw))
}

func TestNormalize_QuickReplyElementCoercion(t *testing.T) {
	eng := &fakeEngine{raw: json.RawMessage(`{
		"assistant_message": "Hi",
		"quick_replies": [{"label":"Buy","value":"buy"}, "broken", {"label":"Rent","value":"rent"}, 42]
	}`)}
	n := newTestNormalizer(t, eng, nil)

	reply := n.Normalize(context.Background(), ChatRequest{UserMessage: "Hello"})

	require.Equal(t, []QuickReply{{Label: "Buy", Value: "buy"}, {Label: "Rent", Value: "rent"}}, reply.QuickReplies)
}

func TestNormalize_ArchiveReceivesExchange(t *testing.T) {
	eng := &fakeEngine{raw: json.RawMessage(`{"assistant_message":"Hi","conversation_id":"conv-2"}`)}
	arc := &fakeArchive{}
	n := newTestNormalizer(t, eng, arc)

	n.Normalize(context.Background(), ChatRequest{
		UserMessage: "Hello",
		Metadata:    Metadata{Language: "en", ClientID: "agency-1"},
	})

	require.Equal(t, 1, arc.calls)
	require.Equal(t, "conv-2", arc.last.ConversationID)
	require.Equal(t, "Hello", arc.last.UserMessage)
	require.Equal(t, "Hi", arc.last.AssistantMessage)
	require.Equal(t, "agency-1", arc.last.ClientID)
}

func TestNormalize_ArchiveFailureDoesNotAffectReply(t *testing.T) {
	eng := &fakeEngine{raw: json.RawMessage(`{"assistant_message":"Hi"}`)}
	arc := &fakeArchive{err: errors.New("db down")}
	n := newTestNormalizer(t, eng, arc)

	reply := n.Normalize(context.Background(), ChatRequest{UserMessage: "Hello"})

	require.Equal(t, "Hi", reply.AssistantMessage)
}

func TestNormalize_NoRetryOnFailure(t *testing.T) {
	eng := &fakeEngine{err: errors.New("boom")}
	n := newTestNormalizer(t, eng, nil)

	n.Normalize(context.Background(), ChatRequest{UserMessage: "Hello"})

	require.Equal(t, 1, eng.calls)
}
