package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/anticlanker/anticlanker/internal/model"
	"github.com/anticlanker/anticlanker/internal/service"
)

// Credential intake headers, with query-parameter fallbacks for clients that
// cannot set headers. The query path is only honored when AllowQueryParams
// is enabled, since query strings end up in access logs and browser history.
const (
	APIKeyHeader     = "X-API-Key"
	APIKeyNameHeader = "X-API-Key-Name"
	APIProjectHeader = "X-API-Project"
	AdminKeyHeader   = "X-API-Admin-Key"

	apiKeyParam     = "api_key"
	apiKeyNameParam = "api_key_name"
	adminKeyParam   = "admin_key"
	projectParam    = "project"
)

type contextKeyAuth string

// PrincipalKey is the context key for the authenticated principal.
const PrincipalKey contextKeyAuth = "auth_principal"

// Principal is the identity a request authenticated as, attached to the
// context for downstream handlers to audit-log. It never carries the secret.
type Principal struct {
	Name     string
	Role     string
	Projects model.Projects
	Project  string // claimed project, empty when none was presented
	IsAdmin  bool
}

// Options configures credential intake for the authorization middleware.
type Options struct {
	// AllowQueryParams accepts api_key / api_key_name / admin_key / project
	// query parameters as a fallback. Headers always win when both are set.
	AllowQueryParams bool
}

// RequireAdmin returns an HTTP middleware that admits only requests carrying
// the admin secret. Missing and invalid secrets both produce a 401 with an
// identical body so callers cannot tell which case occurred.
func RequireAdmin(authSvc *service.AuthService, logger *slog.Logger, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := intake(r, AdminKeyHeader, adminKeyParam, opts)
			if secret == "" {
				logger.Warn("request rejected", "path", r.URL.Path, "reason", "missing admin credential")
				writeUnauthorized(w)
				return
			}

			admin, err := authSvc.VerifyAdmin(r.Context(), secret)
			if err != nil {
				logger.Warn("request rejected", "path", r.URL.Path, "reason", "invalid admin credential")
				writeUnauthorized(w)
				return
			}

			principal := &Principal{Name: admin.Name, Role: model.RoleAdmin, IsAdmin: true}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// RequireAPIKey returns an HTTP middleware that admits only requests carrying
// a valid API key. Callers that present the claimed identity alongside the
// secret get a single indexed lookup plus one argon2 check; a bare secret is
// verified against every active credential instead. Keys with a restricted
// project scope must additionally claim a
// permitted project or the request is rejected with 403.
func RequireAPIKey(authSvc *service.AuthService, logger *slog.Logger, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := intake(r, APIKeyNameHeader, apiKeyNameParam, opts)
			secret := intake(r, APIKeyHeader, apiKeyParam, opts)
			if secret == "" {
				logger.Warn("request rejected", "path", r.URL.Path, "reason", "missing api credential")
				writeUnauthorized(w)
				return
			}

			// A claimed identity makes verification a single lookup. Without
			// one the secret is checked against every active credential.
			var (
				cred *model.Credential
				err  error
			)
			if name != "" {
				cred, err = authSvc.VerifyKey(r.Context(), name, secret)
			} else {
				cred, err = authSvc.VerifyKeyUnclaimed(r.Context(), secret)
			}
			if err != nil {
				logger.Warn("request rejected", "path", r.URL.Path, "identity", name, "reason", "invalid api credential")
				writeUnauthorized(w)
				return
			}

			project := intake(r, APIProjectHeader, projectParam, opts)
			if !authSvc.Authorize(cred, project) {
				logger.Warn("request rejected", "path", r.URL.Path, "identity", cred.Name, "project", project, "reason", "project scope mismatch")
				writeAuthError(w, http.StatusForbidden, "project not permitted for this API key")
				return
			}

			principal := &Principal{
				Name:     cred.Name,
				Role:     cred.Role,
				Projects: cred.Projects,
				Project:  project,
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil if no principal is present (i.e., a public route).
func GetPrincipal(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalKey).(*Principal); ok {
		return p
	}
	return nil
}

// intake reads a credential value from a header, falling back to the query
// parameter when permitted. The header takes precedence if both are present.
func intake(r *http.Request, header, param string, opts Options) string {
	if v := r.Header.Get(header); v != "" {
		return v
	}
	if opts.AllowQueryParams {
		return r.URL.Query().Get(param)
	}
	return ""
}

// writeUnauthorized emits the single 401 body shared by the missing- and
// invalid-credential cases.
func writeUnauthorized(w http.ResponseWriter) {
	writeAuthError(w, http.StatusUnauthorized, "unauthorized")
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{ //nolint:errcheck
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
