package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chat-widget-relay/internal/relay"
)

const (
	transcriptPrefix = "transcript:"
	transcriptTTL    = 24 * time.Hour
	maxExchanges     = 200
)

// storedExchange is the JSON shape kept per conversation key.
type storedExchange struct {
	UserMessage      string `json:"user_message"`
	AssistantMessage string `json:"assistant_message"`
	Language         string `json:"language,omitempty"`
	ClientID         string `json:"client_id,omitempty"`
	CreatedAt        int64  `json:"created_at"`
}

// Redis archives exchanges as one JSON blob per conversation with a
// rolling TTL, keeping only the newest maxExchanges entries.
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedis(rdb *redis.Client) (*Redis, error) {
	if rdb == nil {
		return nil, errors.New("archive: redis client must not be nil")
	}
	return &Redis{rdb: rdb, now: time.Now}, nil
}

func (r *Redis) SaveExchange(ctx context.Context, ex relay.Exchange) error {
	key := transcriptPrefix + ex.ConversationID

	existing, err := r.load(ctx, key)
	if err != nil {
		return err
	}

	existing = append(existing, storedExchange{
		UserMessage:      ex.UserMessage,
		AssistantMessage: ex.AssistantMessage,
		Language:         ex.Language,
		ClientID:         ex.ClientID,
		CreatedAt:        r.now().UnixMilli(),
	})
	existing = trimExchanges(existing, maxExchanges)

	data, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("archive: marshal transcript: %w", err)
	}
	if err := r.rdb.Set(ctx, key, data, transcriptTTL).Err(); err != nil {
		return fmt.Errorf("archive: save transcript: %w", err)
	}
	return nil
}

func (r *Redis) History(ctx context.Context, conversationID string) ([]relay.Exchange, error) {
	stored, err := r.load(ctx, transcriptPrefix+conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]relay.Exchange, 0, len(stored))
	for _, ex := range stored {
		out = append(out, relay.Exchange{
			ConversationID:   conversationID,
			UserMessage:      ex.UserMessage,
			AssistantMessage: ex.AssistantMessage,
			Language:         ex.Language,
			ClientID:         ex.ClientID,
			CreatedAt:        time.UnixMilli(ex.CreatedAt),
		})
	}
	return out, nil
}

func (r *Redis) load(ctx context.Context, key string) ([]storedExchange, error) {
	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return []storedExchange{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: load transcript: %w", err)
	}
	var out []storedExchange
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("archive: unmarshal transcript: %w", err)
	}
	return out, nil
}

// trimExchanges keeps the newest limit entries, dropping the oldest first.
func trimExchanges(exchanges []storedExchange, limit int) []storedExchange {
	if len(exchanges) > limit {
		return exchanges[len(exchanges)-limit:]
	}
	return exchanges
}
