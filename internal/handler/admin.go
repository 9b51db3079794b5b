package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/anticlanker/anticlanker/internal/classifier"
	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/service"
)

// AdminHandler serves the key lifecycle and model management endpoints. Every
// route here sits behind the admin-key middleware.
type AdminHandler struct {
	auth   *service.AuthService
	models *classifier.Client
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(auth *service.AuthService, models *classifier.Client, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{auth: auth, models: models, logger: logger}
}

// ---------------------------------------------------------------------------
// Key lifecycle
// ---------------------------------------------------------------------------

// generateKeyRequest is the expected payload for GenerateKey. Projects may be
// a comma separated string or a JSON array.
type generateKeyRequest struct {
	Name     string      `json:"name"`
	Projects interface{} `json:"projects"`
	Role     string      `json:"role"`
	Notes    string      `json:"notes"`
}

// generateKeyResponse includes the plaintext secret, shown once only.
type generateKeyResponse struct {
	Name      string         `json:"name"`
	Secret    string         `json:"secret"` // Plaintext, shown ONCE.
	Role      string         `json:"role"`
	Projects  model.Projects `json:"projects"`
	Notes     string         `json:"notes,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// GenerateKey mints a new named API key, stores only its digest, and returns
// the plaintext secret exactly once.
// POST /admin/generate-key
func (h *AdminHandler) GenerateKey(w http.ResponseWriter, r *http.Request) {
	var req generateKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "'name' is required to create a key")
		return
	}

	projects := model.ParseProjects(req.Projects)
	cred, plaintext, err := h.auth.MintKey(r.Context(), req.Name, projects, req.Role, req.Notes)
	if err != nil {
		if errors.Is(err, keystore.ErrDuplicateName) {
			writeError(w, http.StatusConflict, "Key name already exists: "+req.Name)
			return
		}
		h.logger.Error("key generation failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create key")
		return
	}

	h.logger.Info("api key created", "name", cred.Name, "role", cred.Role, "projects", cred.Projects)
	writeJSON(w, http.StatusCreated, generateKeyResponse{
		Name:      cred.Name,
		Secret:    plaintext,
		Role:      cred.Role,
		Projects:  cred.Projects,
		Notes:     cred.Notes,
		CreatedAt: cred.CreatedAt,
	})
}

// ListKeys returns metadata for every key ever created, including revoked
// ones. Secrets and full digests are never included.
// GET /admin/list-keys
func (h *AdminHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.auth.ListKeys(r.Context())
	if err != nil {
		h.logger.Error("key listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list keys")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"keys": keys})
}

// revokeKeyRequest is the expected payload for RevokeKey.
type revokeKeyRequest struct {
	Name string `json:"name"`
}

// RevokeKey permanently disables a key by name. The record stays for audit
// and the name can never be reused.
// POST /admin/revoke-key
func (h *AdminHandler) RevokeKey(w http.ResponseWriter, r *http.Request) {
	var req revokeKeyRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "'name' is required in body")
		return
	}

	if err := h.auth.RevokeKey(r.Context(), req.Name); err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Key name not found")
			return
		}
		h.logger.Error("key revocation failed", "name", req.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to revoke key")
		return
	}

	h.logger.Info("api key revoked", "name", req.Name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked", "name": req.Name})
}

// ---------------------------------------------------------------------------
// Model management
// ---------------------------------------------------------------------------

// ListModels returns the models present on the inference host.
// POST /admin/models/list
func (h *AdminHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.models.ListModels(r.Context())
	if err != nil {
		h.logger.Error("model listing failed", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to list models: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models": models,
		"active": h.models.Model(),
	})
}

// modelRequest is the shared payload for the pull/delete/switch endpoints.
type modelRequest struct {
	Model string `json:"model"`
}

func readModelName(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req modelRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return "", false
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "'model' is required")
		return "", false
	}
	return req.Model, true
}

// PullModel downloads a model onto the inference host.
// POST /admin/models/pull
func (h *AdminHandler) PullModel(w http.ResponseWriter, r *http.Request) {
	name, ok := readModelName(w, r)
	if !ok {
		return
	}
	if err := h.models.PullModel(r.Context(), name); err != nil {
		h.logger.Error("model pull failed", "model", name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to pull model: "+err.Error())
		return
	}
	h.logger.Info("model pulled", "model", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "pulled", "model": name})
}

// DeleteModel removes a model from the inference host.
// POST /admin/models/delete
func (h *AdminHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	name, ok := readModelName(w, r)
	if !ok {
		return
	}
	if err := h.models.DeleteModel(r.Context(), name); err != nil {
		h.logger.Error("model delete failed", "model", name, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to delete model: "+err.Error())
		return
	}
	h.logger.Info("model deleted", "model", name)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "model": name})
}

// SwitchModel changes the active classification model. The target must
// already exist on the inference host.
// POST /admin/models/switch
func (h *AdminHandler) SwitchModel(w http.ResponseWriter, r *http.Request) {
	name, ok := readModelName(w, r)
	if !ok {
		return
	}
	active, err := h.models.SetModel(r.Context(), name)
	if err != nil {
		h.logger.Warn("model switch rejected", "model", name, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Info("model switched", "model", active)
	writeJSON(w, http.StatusOK, map[string]string{"status": "switched", "model": active})
}
