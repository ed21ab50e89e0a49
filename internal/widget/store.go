package widget

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	storagePrefix = "chat_widget_state_"

	// MaxStoredMessages bounds the persisted and in-memory history.
	// Oldest entries are dropped first.
	MaxStoredMessages = 50
)

// Store persists SessionState as one JSON blob per client id. Persistence
// is best-effort: the controller's in-memory state stays authoritative,
// so read and write failures degrade to an empty or unsaved state instead
// of surfacing.
type Store struct {
	dir      string
	clientID string
}

func NewStore(dir, clientID string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("widget: store dir must not be empty")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("widget: client id must not be empty")
	}
	return &Store{dir: dir, clientID: clientID}, nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, storagePrefix+s.clientID+".json")
}

// Load returns the previously persisted state, or an empty state when the
// blob is missing, unreadable, or malformed. A messages field that is not
// a JSON array resets the history but keeps the session metadata.
func (s *Store) Load() SessionState {
	empty := SessionState{Messages: []Message{}}

	data, err := os.ReadFile(s.path())
	if err != nil {
		return empty
	}

	var probe struct {
		ConversationID string          `json:"conversationId"`
		Language       string          `json:"language"`
		IsOpen         bool            `json:"isOpen"`
		Messages       json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return empty
	}

	state := SessionState{
		ConversationID: probe.ConversationID,
		Language:       probe.Language,
		IsOpen:         probe.IsOpen,
		Messages:       []Message{},
	}
	var messages []Message
	if err := json.Unmarshal(probe.Messages, &messages); err == nil && messages != nil {
		state.Messages = messages
	}
	return state
}

// Save truncates the history to the newest MaxStoredMessages entries and
// writes the whole state atomically. Failures are swallowed.
func (s *Store) Save(state SessionState) {
	state.Messages = truncateMessages(state.Messages)

	data, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path())
}

func truncateMessages(messages []Message) []Message {
	if len(messages) > MaxStoredMessages {
		return messages[len(messages)-MaxStoredMessages:]
	}
	return messages
}
