package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"chat-widget-relay/internal/relay"
)

// replyGuard pins the completion to the loose upstream reply shape the
// normalizer already knows how to coerce.
const replyGuard = `You are an assistant for a website chat widget.
Answer ONLY with valid JSON, no text outside the JSON. Format:
{"assistant_message":"string","conversation_id":"string","quick_replies":[{"label":"string","value":"string"}],"ui_hints":{}}
Echo the conversation_id you were given. Set ui_hints.detected_language to
the ISO code of the language the user wrote in.`

// OpenAI is an alternative upstream engine for deployments without an
// automation webhook: the model itself produces the loose reply shape.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("engine: openai api key must not be empty")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

func (o *OpenAI) Ask(ctx context.Context, payload relay.EnginePayload) (json.RawMessage, error) {
	input, err := json.Marshal(map[string]string{
		"conversation_id": payload.ConversationID,
		"message":         payload.Message,
		"language":        payload.Language,
		"category":        payload.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: marshal input: %w", err)
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: replyGuard},
			{Role: openai.ChatMessageRoleUser, Content: string(input)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("engine: openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("engine: empty choices in completion")
	}
	return json.RawMessage(resp.Choices[0].Message.Content), nil
}
