package relay

import (
	"context"
	"encoding/json"
	"time"
)

// SourceTag identifies this channel to the upstream engine.
const SourceTag = "website_widget"

// Metadata carries optional client context alongside a user message.
type Metadata struct {
	Language string `json:"language,omitempty"`
	PageURL  string `json:"page_url,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// ChatRequest is the inbound widget → relay body.
type ChatRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	UserMessage    string   `json:"user_message"`
	Metadata       Metadata `json:"metadata,omitempty"`
}

// EnginePayload is the relay → upstream engine request body.
type EnginePayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
	Language       string `json:"language,omitempty"`
	Source         string `json:"source"`
	PageURL        string `json:"page_url,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
	Category       string `json:"category,omitempty"`
}

// QuickReply is a suggested next user utterance.
type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Reply is the normalized relay → widget response. Every field is always
// present: the widget depends on this shape and nothing else.
type Reply struct {
	AssistantMessage string         `json:"assistant_message"`
	ConversationID   string         `json:"conversation_id"`
	QuickReplies     []QuickReply   `json:"quick_replies"`
	UIHints          map[string]any `json:"ui_hints"`
}

// Engine is the upstream automation engine. The reply body is returned
// verbatim: no schema is assumed beyond "bytes that may contain JSON".
type Engine interface {
	Ask(ctx context.Context, payload EnginePayload) (json.RawMessage, error)
}

// Exchange is one completed user/assistant turn.
type Exchange struct {
	ConversationID   string
	UserMessage      string
	AssistantMessage string
	Language         string
	ClientID         string
	CreatedAt        time.Time
}

// Archive persists completed exchanges. Best-effort: a failing archive
// never blocks a reply.
type Archive interface {
	SaveExchange(ctx context.Context, ex Exchange) error
}

// HistoryReader is implemented by archives that can read transcripts back.
type HistoryReader interface {
	History(ctx context.Context, conversationID string) ([]Exchange, error)
}
