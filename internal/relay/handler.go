package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	normalizer *Normalizer
	log        *slog.Logger
}

func NewHandler(normalizer *Normalizer, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{normalizer: normalizer, log: log}
}

// HandleChat — entry point for the widget.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.UserMessage) == "" {
		http.Error(w, "user_message is required", http.StatusBadRequest)
		return
	}

	// Widgets embedded on pages that do not pass page_url still carry a
	// usable Referer.
	if req.Metadata.PageURL == "" {
		req.Metadata.PageURL = r.Header.Get("Referer")
	}

	reply := h.normalizer.Normalize(r.Context(), req)
	h.writeJSON(w, http.StatusOK, reply)
}

// HandleHistory returns the archived transcript for a conversation. Only
// registered when the configured archive supports reads.
func (h *Handler) HandleHistory(reader HistoryReader) http.HandlerFunc {
	type exchange struct {
		ConversationID   string `json:"conversation_id"`
		UserMessage      string `json:"user_message"`
		AssistantMessage string `json:"assistant_message"`
		Language         string `json:"language,omitempty"`
		CreatedAt        int64  `json:"created_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		if conversationID == "" {
			http.Error(w, "conversation id is required", http.StatusBadRequest)
			return
		}
		history, err := reader.History(r.Context(), conversationID)
		if err != nil {
			h.log.Error("failed to read history", "conversation_id", conversationID, "error", err)
			http.Error(w, "processing error", http.StatusInternalServerError)
			return
		}
		out := make([]exchange, 0, len(history))
		for _, ex := range history {
			out = append(out, exchange{
				ConversationID:   ex.ConversationID,
				UserMessage:      ex.UserMessage,
				AssistantMessage: ex.AssistantMessage,
				Language:         ex.Language,
				CreatedAt:        ex.CreatedAt.UnixMilli(),
			})
		}
		h.writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to encode response", "error", err)
	}
}
