package widget

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Message is one immutable conversation entry.
type Message struct {
	ID        string `json:"id"`
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// SessionState is the durable per-client conversation snapshot.
type SessionState struct {
	ConversationID string    `json:"conversationId,omitempty"`
	Language       string    `json:"language,omitempty"`
	IsOpen         bool      `json:"isOpen,omitempty"`
	Messages       []Message `json:"messages"`
}

// QuickReply is a suggested next user utterance. Selecting one sends its
// Value as both the message text and a category hint.
type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Metadata travels with each outbound message.
type Metadata struct {
	Language string `json:"language,omitempty"`
	PageURL  string `json:"page_url,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Category string `json:"category,omitempty"`
}

// ChatRequest is the widget → relay body.
type ChatRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	UserMessage    string   `json:"user_message"`
	Metadata       Metadata `json:"metadata,omitempty"`
}

// Reply is the normalized relay response, the only shape the widget
// depends on.
type Reply struct {
	AssistantMessage string         `json:"assistant_message"`
	ConversationID   string         `json:"conversation_id"`
	QuickReplies     []QuickReply   `json:"quick_replies"`
	UIHints          map[string]any `json:"ui_hints"`
}
