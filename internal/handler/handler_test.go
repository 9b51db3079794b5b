package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anticlanker/anticlanker/internal/keystore"
	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/server/middleware"
	"github.com/anticlanker/anticlanker/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	store, err := keystore.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return service.NewAuthService(store)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postJSON(t *testing.T, h http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("POST", "/x", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

// ---------------------------------------------------------------------------
// Key lifecycle
// ---------------------------------------------------------------------------

func TestGenerateKeyReturnsSecretOnce(t *testing.T) {
	authSvc := newAuthService(t)
	h := NewAdminHandler(authSvc, nil, discardLogger())

	rr := postJSON(t, h.GenerateKey, map[string]interface{}{
		"name":     "webhook-bot",
		"projects": "groupme, Discord",
		"role":     "service",
		"notes":    "integration key",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201: %s", rr.Code, rr.Body.String())
	}

	var resp generateKeyResponse
	decodeJSON(t, rr, &resp)
	if resp.Secret == "" {
		t.Error("plaintext secret missing from creation response")
	}
	if resp.Name != "webhook-bot" || resp.Role != "service" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(resp.Projects) != 2 {
		t.Errorf("projects: got %v", resp.Projects)
	}

	// The minted key must authenticate.
	if _, err := authSvc.VerifyKey(context.Background(), "webhook-bot", resp.Secret); err != nil {
		t.Errorf("minted key does not verify: %v", err)
	}
}

func TestGenerateKeyMissingName(t *testing.T) {
	h := NewAdminHandler(newAuthService(t), nil, discardLogger())

	rr := postJSON(t, h.GenerateKey, map[string]string{"role": "user"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestGenerateKeyDuplicateName(t *testing.T) {
	h := NewAdminHandler(newAuthService(t), nil, discardLogger())

	body := map[string]string{"name": "bot"}
	if rr := postJSON(t, h.GenerateKey, body); rr.Code != http.StatusCreated {
		t.Fatalf("first create: got %d", rr.Code)
	}
	rr := postJSON(t, h.GenerateKey, body)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate create: got %d, want 409", rr.Code)
	}
}

func TestListKeysNeverExposesSecrets(t *testing.T) {
	authSvc := newAuthService(t)
	h := NewAdminHandler(authSvc, nil, discardLogger())

	rr := postJSON(t, h.GenerateKey, map[string]string{"name": "bot"})
	var created generateKeyResponse
	decodeJSON(t, rr, &created)

	req := httptest.NewRequest("GET", "/admin/list-keys", nil)
	lr := httptest.NewRecorder()
	h.ListKeys(lr, req)
	if lr.Code != http.StatusOK {
		t.Fatalf("list status: got %d", lr.Code)
	}
	if bytes.Contains(lr.Body.Bytes(), []byte(created.Secret)) {
		t.Error("listing leaks the plaintext secret")
	}

	var listing struct {
		Keys []model.KeyListing `json:"keys"`
	}
	decodeJSON(t, lr, &listing)
	if len(listing.Keys) != 1 || listing.Keys[0].Name != "bot" {
		t.Errorf("listing: %+v", listing.Keys)
	}
	if listing.Keys[0].HashPreview == "" {
		t.Error("hash preview missing")
	}
}

func TestRevokeKey(t *testing.T) {
	authSvc := newAuthService(t)
	h := NewAdminHandler(authSvc, nil, discardLogger())

	postJSON(t, h.GenerateKey, map[string]string{"name": "bot"})

	rr := postJSON(t, h.RevokeKey, map[string]string{"name": "bot"})
	if rr.Code != http.StatusOK {
		t.Fatalf("revoke status: got %d: %s", rr.Code, rr.Body.String())
	}

	// Revoking twice, or revoking an unknown name, is 404.
	if rr := postJSON(t, h.RevokeKey, map[string]string{"name": "bot"}); rr.Code != http.StatusNotFound {
		t.Errorf("second revoke: got %d, want 404", rr.Code)
	}
	if rr := postJSON(t, h.RevokeKey, map[string]string{"name": "ghost"}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown name: got %d, want 404", rr.Code)
	}

	// Missing name is a 400, not a 404.
	if rr := postJSON(t, h.RevokeKey, map[string]string{}); rr.Code != http.StatusBadRequest {
		t.Errorf("missing name: got %d, want 400", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Webhook and status
// ---------------------------------------------------------------------------

func TestStatusEndpoint(t *testing.T) {
	h := NewWebhookHandler(nil, "1.2.3", discardLogger())

	req := httptest.NewRequest("GET", "/status", nil)
	rr := httptest.NewRecorder()
	h.Status(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp map[string]interface{}
	decodeJSON(t, rr, &resp)
	if resp["status"] != "ok" || resp["service"] != "anticlanker" || resp["version"] != "1.2.3" {
		t.Errorf("payload: %v", resp)
	}
}

func TestCallbackRejectsMalformedPayload(t *testing.T) {
	h := NewWebhookHandler(nil, "dev", discardLogger())

	req := httptest.NewRequest("POST", "/kill-da-clanker", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Callback(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestLoginEchoesPrincipal(t *testing.T) {
	h := NewAIHandler(nil, discardLogger())

	principal := &middleware.Principal{
		Name:     "bot",
		Role:     "service",
		Projects: model.Projects{"groupme"},
	}
	req := httptest.NewRequest("POST", "/auth/login", nil)
	req = req.WithContext(middleware.WithPrincipal(req.Context(), principal))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp model.LoginResponse
	decodeJSON(t, rr, &resp)
	if resp.Status != "ok" || resp.Name != "bot" || resp.Role != "service" {
		t.Errorf("login response: %+v", resp)
	}
}

// ---------------------------------------------------------------------------
// OpenAPI
// ---------------------------------------------------------------------------

func TestOpenAPISpec(t *testing.T) {
	h := NewOpenAPIHandler("dev")

	req := httptest.NewRequest("GET", "/openapi.json", nil)
	rr := httptest.NewRecorder()
	h.ServeSpec(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var doc struct {
		OpenAPI string                 `json:"openapi"`
		Paths   map[string]interface{} `json:"paths"`
	}
	decodeJSON(t, rr, &doc)
	if doc.OpenAPI == "" {
		t.Error("openapi version missing")
	}
	for _, path := range []string{"/status", "/kill-da-clanker", "/ai", "/admin/generate-key", "/admin/revoke-key"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("path %s missing from spec", path)
		}
	}
}
