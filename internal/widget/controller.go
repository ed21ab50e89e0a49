package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultGreeting is synthesized as the first bot message of a brand
	// new conversation.
	DefaultGreeting = "Hi! 👋 You can write to me in your own language. How can I help " +
		"you today? Are you interested in buying, selling, renting, or do you " +
		"have a question about a property?"

	// DefaultApology is appended when the relay itself is unreachable.
	DefaultApology = "Sorry, I was unable to process that. Please try again."
)

var (
	// ErrEmptyMessage rejects a send whose text is empty after trimming.
	// Nothing happens: no state mutation, no network call.
	ErrEmptyMessage = errors.New("widget: message is empty")

	// ErrSendInFlight rejects a send while another one is outstanding.
	// The message is dropped, not queued.
	ErrSendInFlight = errors.New("widget: a send is already in flight")
)

// StateStore persists session state between controller lifetimes.
type StateStore interface {
	Load() SessionState
	Save(state SessionState)
}

// Transporter delivers one outbound request to the relay.
type Transporter interface {
	Send(ctx context.Context, req ChatRequest) (Reply, error)
}

// Config carries the per-deployment knobs of a widget instance.
type Config struct {
	ClientID         string
	PageURL          string
	LanguageFallback string
	Greeting         string // DefaultGreeting when empty
	Apology          string // DefaultApology when empty
}

// Controller is the conversational state machine. It owns the session
// state exclusively and guarantees at most one outbound send in flight,
// so replies always land in the order the sends were issued.
type Controller struct {
	cfg       Config
	store     StateStore
	transport Transporter
	renderer  Renderer

	mu           sync.Mutex
	sending      bool
	state        SessionState
	quickReplies []QuickReply

	now   func() time.Time
	newID func() string
}

// New restores persisted state, synthesizes the greeting on first ever
// load, and performs the initial render. A returned Controller is fully
// initialized: there is no separate ready flag to check.
func New(cfg Config, store StateStore, transport Transporter, renderer Renderer) (*Controller, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("widget: client id must not be empty")
	}
	if store == nil {
		return nil, errors.New("widget: state store must not be nil")
	}
	if transport == nil {
		return nil, errors.New("widget: transport must not be nil")
	}
	if renderer == nil {
		return nil, errors.New("widget: renderer must not be nil")
	}
	if cfg.Greeting == "" {
		cfg.Greeting = DefaultGreeting
	}
	if cfg.Apology == "" {
		cfg.Apology = DefaultApology
	}

	c := &Controller{
		cfg:       cfg,
		store:     store,
		transport: transport,
		renderer:  renderer,
		now:       time.Now,
		newID:     uuid.NewString,
	}

	c.state = store.Load()
	if c.state.Messages == nil {
		c.state.Messages = []Message{}
	}
	if len(c.state.Messages) == 0 {
		c.appendMessage(SenderBot, cfg.Greeting)
		c.store.Save(c.state)
	}

	renderer.RenderMessages(c.messagesSnapshot())
	renderer.SetOpen(c.state.IsOpen)
	return c, nil
}

// Send delivers one user message. It rejects empty text and concurrent
// sends; on acceptance the user message is appended and persisted before
// the network call, and the typing indicator is cleared on every exit
// path. A transport failure resolves to a fixed apology message and is
// returned for the caller to log.
func (c *Controller) Send(ctx context.Context, text string, extra Metadata) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return ErrSendInFlight
	}
	c.sending = true
	c.appendMessage(SenderUser, text)
	c.quickReplies = nil
	c.store.Save(c.state)
	req := ChatRequest{
		ConversationID: c.state.ConversationID,
		UserMessage:    text,
		Metadata:       c.buildMetadata(extra),
	}
	messages := c.messagesSnapshot()
	c.mu.Unlock()

	c.renderer.RenderMessages(messages)
	c.renderer.RenderQuickReplies([]QuickReply{})
	c.renderer.ShowTyping()

	defer func() {
		c.renderer.HideTyping()
		c.mu.Lock()
		c.sending = false
		c.mu.Unlock()
	}()

	reply, err := c.transport.Send(ctx, req)
	if err != nil {
		c.mu.Lock()
		c.appendMessage(SenderBot, c.cfg.Apology)
		c.store.Save(c.state)
		messages = c.messagesSnapshot()
		c.mu.Unlock()

		c.renderer.RenderMessages(messages)
		return fmt.Errorf("widget: send failed: %w", err)
	}

	c.mu.Lock()
	c.applyReply(reply)
	c.store.Save(c.state)
	messages = c.messagesSnapshot()
	replies := append([]QuickReply{}, c.quickReplies...)
	c.mu.Unlock()

	c.renderer.RenderMessages(messages)
	c.renderer.RenderQuickReplies(replies)
	return nil
}

// SelectQuickReply sends the reply's value as the next user message with
// a matching category hint. A displayed reply list is valid for exactly
// one send: accepting the send clears it.
func (c *Controller) SelectQuickReply(ctx context.Context, reply QuickReply) error {
	return c.Send(ctx, reply.Value, Metadata{Category: reply.Value})
}

// Open marks the widget visible and persists the flag.
func (c *Controller) Open() {
	c.setOpen(true)
}

// Close hides the widget and persists the flag.
func (c *Controller) Close() {
	c.setOpen(false)
}

// State returns a copy of the current session state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.state
	state.Messages = append([]Message{}, c.state.Messages...)
	return state
}

// applyReply merges a normalized reply into session state. Must be called
// with the lock held.
func (c *Controller) applyReply(reply Reply) {
	// A conversation id, once assigned, is sticky: an empty value from
	// the relay never clears it.
	if reply.ConversationID != "" {
		c.state.ConversationID = reply.ConversationID
	}
	if lang := detectedLanguage(reply.UIHints); lang != "" {
		c.state.Language = lang
	}
	if reply.AssistantMessage != "" {
		c.appendMessage(SenderBot, reply.AssistantMessage)
	}
	c.quickReplies = reply.QuickReplies
}

func (c *Controller) appendMessage(sender Sender, text string) {
	c.state.Messages = append(c.state.Messages, Message{
		ID:        c.newID(),
		Sender:    sender,
		Text:      text,
		Timestamp: c.now().UnixMilli(),
	})
	c.state.Messages = truncateMessages(c.state.Messages)
}

func (c *Controller) buildMetadata(extra Metadata) Metadata {
	md := Metadata{
		Language: c.state.Language,
		PageURL:  c.cfg.PageURL,
		ClientID: c.cfg.ClientID,
	}
	if md.Language == "" {
		md.Language = c.cfg.LanguageFallback
	}
	if extra.Language != "" {
		md.Language = extra.Language
	}
	if extra.PageURL != "" {
		md.PageURL = extra.PageURL
	}
	if extra.ClientID != "" {
		md.ClientID = extra.ClientID
	}
	if extra.Category != "" {
		md.Category = extra.Category
	}
	return md
}

func (c *Controller) messagesSnapshot() []Message {
	return append([]Message{}, c.state.Messages...)
}

func (c *Controller) setOpen(open bool) {
	c.mu.Lock()
	c.state.IsOpen = open
	c.store.Save(c.state)
	c.mu.Unlock()
	c.renderer.SetOpen(open)
}

// detectedLanguage extracts a language hint from ui_hints. Last detected
// language wins; non-string values are ignored as untrusted input.
func detectedLanguage(hints map[string]any) string {
	for _, key := range []string{"language", "detected_language"} {
		if v, ok := hints[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
