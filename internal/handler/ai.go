package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/anticlanker/anticlanker/internal/classifier"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/server/middleware"
)

// AIHandler serves the key-protected model invocation endpoints.
type AIHandler struct {
	cls    *classifier.Classifier
	logger *slog.Logger
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(cls *classifier.Classifier, logger *slog.Logger) *AIHandler {
	return &AIHandler{cls: cls, logger: logger}
}

// Prompt forwards text to the active model with the standard prompt
// scaffolding. Callers may override the system message, attach extra
// context entries, and enable the model's reasoning mode.
// POST /ai
func (h *AIHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	var req model.ClassifyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "'text' is required")
		return
	}

	principal := middleware.GetPrincipal(r.Context())
	caller := "unknown"
	project := ""
	if principal != nil {
		caller = principal.Name
		project = principal.Project
	}
	h.logger.Info("model invocation", "caller", caller, "project", project)

	resp, err := h.cls.Prompt(r.Context(), req.Text, req.SystemMessage, req.Data, req.Think)
	if err != nil {
		h.logger.Error("model invocation failed", "caller", caller, "error", err)
		writeError(w, http.StatusInternalServerError, "Model error or unavailable")
		return
	}

	writeJSON(w, http.StatusOK, model.ClassifyResponse{
		Model:   resp.Model,
		Content: resp.Message.Content,
	})
}

// Login validates the presented key and echoes the caller's identity. The
// key-protected middleware has already authenticated the request, so this
// handler only reports what the key resolves to.
// POST /auth/login
func (h *AIHandler) Login(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipal(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	h.logger.Info("login check", "name", principal.Name, "role", principal.Role)
	writeJSON(w, http.StatusOK, model.LoginResponse{
		Status:   "ok",
		Name:     principal.Name,
		Role:     principal.Role,
		Projects: principal.Projects,
	})
}
