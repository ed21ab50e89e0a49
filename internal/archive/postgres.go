package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chat-widget-relay/internal/relay"
)

// Postgres archives exchanges to a relational transcript table.
//
// Expected schema:
//
//	CREATE TABLE exchanges (
//	    id                BIGSERIAL PRIMARY KEY,
//	    conversation_id   TEXT NOT NULL,
//	    user_message      TEXT NOT NULL,
//	    assistant_message TEXT NOT NULL,
//	    language          TEXT NOT NULL DEFAULT '',
//	    client_id         TEXT NOT NULL DEFAULT '',
//	    created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) (*Postgres, error) {
	if db == nil {
		return nil, errors.New("archive: db must not be nil")
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveExchange(ctx context.Context, ex relay.Exchange) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO exchanges (conversation_id, user_message, assistant_message, language, client_id)
		VALUES ($1, $2, $3, $4, $5)
	`,
		ex.ConversationID,
		ex.UserMessage,
		ex.AssistantMessage,
		ex.Language,
		ex.ClientID,
	)
	if err != nil {
		return fmt.Errorf("archive: save exchange: %w", err)
	}
	return nil
}

func (p *Postgres) History(ctx context.Context, conversationID string) ([]relay.Exchange, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT conversation_id, user_message, assistant_message, language, client_id, created_at
		FROM exchanges
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("archive: query history: %w", err)
	}
	defer rows.Close()

	var out []relay.Exchange
	for rows.Next() {
		var ex relay.Exchange
		if err := rows.Scan(
			&ex.ConversationID,
			&ex.UserMessage,
			&ex.AssistantMessage,
			&ex.Language,
			&ex.ClientID,
			&ex.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("archive: scan history row: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}
