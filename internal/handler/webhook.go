package handler

import (
	"log/slog"
	"net/http"

	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/moderation"
)

// WebhookHandler receives GroupMe callbacks and runs them through the
// moderation pipeline.
type WebhookHandler struct {
	mod     *moderation.Moderator
	version string
	logger  *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(mod *moderation.Moderator, version string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{mod: mod, version: version, logger: logger}
}

// Status is a lightweight health endpoint for uptime checks. It requires no
// credentials and reveals nothing about configured keys.
// GET /status
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "anticlanker",
		"version":   h.version,
		"endpoints": []string{"/kill-da-clanker", "/ai", "/admin_ui"},
	})
}

// Callback handles one GroupMe webhook delivery. GroupMe retries on non-2xx,
// so classification failures return 502 to get a retry rather than silently
// dropping the message.
// POST /kill-da-clanker
func (h *WebhookHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var msg model.CallbackMessage
	if err := readJSON(r, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid callback payload: "+err.Error())
		return
	}

	h.logger.Info("group message received",
		"sender", msg.Name, "user_id", msg.UserID, "message_id", msg.ID)

	status, err := h.mod.HandleMessage(r.Context(), &msg)
	if err != nil {
		h.logger.Error("moderation failed", "message_id", msg.ID, "error", err)
		writeError(w, http.StatusBadGateway, "Moderation pipeline error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
