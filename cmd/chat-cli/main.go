package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/joho/godotenv"

	"chat-widget-relay/internal/widget"
)

// chat-cli drives the widget core from a terminal: the same controller,
// store, and transport a page embed would use, behind a plain-text
// renderer.
func main() {
	_ = godotenv.Load()

	apiURL := flag.String("api", "http://localhost:8080/api/chat", "relay chat endpoint")
	clientID := flag.String("client", "chat-cli", "client id used to namespace stored state")
	stateDir := flag.String("state-dir", defaultStateDir(), "directory for persisted session state")
	language := flag.String("lang", "", "fallback language hint")
	flag.Parse()

	store, err := widget.NewStore(*stateDir, *clientID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	transport, err := widget.NewTransport(*apiURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	renderer := &consoleRenderer{out: os.Stdout}
	ctrl, err := widget.New(widget.Config{
		ClientID:         *clientID,
		LanguageFallback: *language,
	}, store, transport, renderer)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctrl.Open()

	fmt.Println("Type a message, a quick-reply number, or /quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "/quit" {
			break
		}

		if n, convErr := strconv.Atoi(line); convErr == nil {
			if reply, ok := renderer.quickReply(n); ok {
				if err := ctrl.SelectQuickReply(context.Background(), reply); err != nil {
					reportSendError(err)
				}
				continue
			}
		}

		if err := ctrl.Send(context.Background(), line, widget.Metadata{}); err != nil {
			reportSendError(err)
		}
	}
	ctrl.Close()
}

func reportSendError(err error) {
	switch {
	case errors.Is(err, widget.ErrEmptyMessage):
		// nothing to send
	case errors.Is(err, widget.ErrSendInFlight):
		fmt.Println("(still waiting for the previous reply)")
	default:
		// The controller already rendered the apology message.
	}
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".chat-widget"
	}
	return filepath.Join(dir, "chat-widget")
}

// consoleRenderer prints controller events to the terminal. It remembers
// the rendered message count so each event prints only new entries, and
// the last quick replies so they can be selected by number.
type consoleRenderer struct {
	mu      sync.Mutex
	out     *os.File
	printed int
	replies []widget.QuickReply
}

func (r *consoleRenderer) RenderMessages(messages []widget.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(messages) < r.printed {
		r.printed = 0
	}
	for _, m := range messages[r.printed:] {
		fmt.Fprintf(r.out, "[%s] %s\n", m.Sender, m.Text)
	}
	r.printed = len(messages)
}

func (r *consoleRenderer) RenderQuickReplies(replies []widget.QuickReply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = replies
	for i, reply := range replies {
		fmt.Fprintf(r.out, "  %d) %s\n", i+1, reply.Label)
	}
}

func (r *consoleRenderer) ShowTyping() {
	fmt.Fprintln(r.out, "...")
}

func (r *consoleRenderer) HideTyping() {}

func (r *consoleRenderer) SetOpen(bool) {}

func (r *consoleRenderer) quickReply(n int) (widget.QuickReply, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 || n > len(r.replies) {
		return widget.QuickReply{}, false
	}
	return r.replies[n-1], true
}
