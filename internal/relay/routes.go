package relay

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the relay endpoints. The history route is only
// exposed when the archive can read transcripts back.
func RegisterRoutes(r chi.Router, h *Handler, archive Archive) {
	r.Post("/api/chat", h.HandleChat)
	r.Get("/health", h.HandleHealth)

	if reader, ok := archive.(HistoryReader); ok {
		r.Get("/api/conversations/{conversationID}/history", h.HandleHistory(reader))
	}
}
