package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
)

// DefaultFallbackMessage is the reply text used whenever the upstream
// engine fails or answers with something unusable.
const DefaultFallbackMessage = "Sorry, I am having trouble connecting right now. " +
	"Please try again in a moment or contact our team directly."

// Normalizer turns whatever the upstream engine returns into a Reply the
// widget can rely on. It never returns an error to its caller: every
// failure mode collapses into the configured fallback reply.
type Normalizer struct {
	engine   Engine
	archive  Archive
	fallback string
	log      *slog.Logger
}

func NewNormalizer(engine Engine, archive Archive, fallbackMessage string, log *slog.Logger) (*Normalizer, error) {
	if engine == nil {
		return nil, errors.New("relay: engine must not be nil")
	}
	if strings.TrimSpace(fallbackMessage) == "" {
		fallbackMessage = DefaultFallbackMessage
	}
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		engine:   engine,
		archive:  archive,
		fallback: fallbackMessage,
		log:      log,
	}, nil
}

// Normalize forwards one user message upstream and returns a well-formed
// Reply. The engine is called at most once; there is no retry.
func (n *Normalizer) Normalize(ctx context.Context, req ChatRequest) Reply {
	message := strings.TrimSpace(req.UserMessage)
	if message == "" {
		// The HTTP boundary rejects this before we are called; re-check
		// so the invariant holds for every caller.
		return n.safeFallback()
	}

	payload := EnginePayload{
		ConversationID: req.ConversationID,
		Message:        message,
		Language:       req.Metadata.Language,
		Source:         SourceTag,
		PageURL:        req.Metadata.PageURL,
		ClientID:       req.Metadata.ClientID,
		Category:       req.Metadata.Category,
	}

	raw, err := n.engine.Ask(ctx, payload)
	if err != nil {
		n.log.Warn("upstream engine call failed", "error", err)
		return n.safeFallback()
	}

	reply := n.coerce(raw)
	n.archiveExchange(ctx, req, reply)
	return reply
}

// coerce maps a loose upstream body onto the Reply shape. Each field is
// validated independently: a malformed field falls back to its default
// without discarding the rest of the reply.
func (n *Normalizer) coerce(raw json.RawMessage) Reply {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		n.log.Warn("upstream reply is not a JSON object", "error", err)
		return n.safeFallback()
	}
	return Reply{
		AssistantMessage: stringField(fields["assistant_message"], n.fallback),
		ConversationID:   stringField(fields["conversation_id"], ""),
		QuickReplies:     quickReplyField(fields["quick_replies"]),
		UIHints:          hintsField(fields["ui_hints"]),
	}
}

func (n *Normalizer) safeFallback() Reply {
	return Reply{
		AssistantMessage: n.fallback,
		ConversationID:   "",
		QuickReplies:     []QuickReply{},
		UIHints:          map[string]any{},
	}
}

func (n *Normalizer) archiveExchange(ctx context.Context, req ChatRequest, reply Reply) {
	if n.archive == nil {
		return
	}
	conversationID := reply.ConversationID
	if conversationID == "" {
		conversationID = req.ConversationID
	}
	err := n.archive.SaveExchange(ctx, Exchange{
		ConversationID:   conversationID,
		UserMessage:      strings.TrimSpace(req.UserMessage),
		AssistantMessage: reply.AssistantMessage,
		Language:         req.Metadata.Language,
		ClientID:         req.Metadata.ClientID,
	})
	if err != nil {
		n.log.Warn("failed to archive exchange", "error", err)
	}
}

func stringField(raw json.RawMessage, def string) string {
	if raw == nil {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return def
	}
	return s
}

func quickReplyField(raw json.RawMessage) []QuickReply {
	out := []QuickReply{}
	if raw == nil {
		return out
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return out
	}
	for _, elem := range elems {
		var qr QuickReply
		if err := json.Unmarshal(elem, &qr); err != nil {
			continue
		}
		out = append(out, qr)
	}
	return out
}

func hintsField(raw json.RawMessage) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	var hints map[string]any
	if err := json.Unmarshal(raw, &hints); err != nil || hints == nil {
		return map[string]any{}
	}
	return hints
}
