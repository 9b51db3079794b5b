package handler

import (
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPIHandler serves the static OpenAPI 3 description of the service. The
// document is assembled once at startup; the surface does not change at
// runtime.
type OpenAPIHandler struct {
	doc *openapi3.T
}

// NewOpenAPIHandler builds the spec document.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{doc: buildSpec(version)}
}

// ServeSpec returns the OpenAPI document.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.doc)
}

func buildSpec(version string) *openapi3.T {
	paths := openapi3.NewPaths()

	paths.Set("/status", &openapi3.PathItem{
		Get: operation("Service health check", "status", nil),
	})
	paths.Set("/kill-da-clanker", &openapi3.PathItem{
		Post: operation("GroupMe webhook callback", "callback", nil),
	})
	paths.Set("/ai", &openapi3.PathItem{
		Post: operation("Invoke the classification model", "invokeModel", []string{"apiKey"}),
	})
	paths.Set("/auth/login", &openapi3.PathItem{
		Post: operation("Validate an API key and return its identity", "login", []string{"apiKey"}),
	})
	paths.Set("/admin/generate-key", &openapi3.PathItem{
		Post: operation("Create a named API key", "generateKey", []string{"adminKey"}),
	})
	paths.Set("/admin/list-keys", &openapi3.PathItem{
		Get: operation("List key metadata", "listKeys", []string{"adminKey"}),
	})
	paths.Set("/admin/revoke-key", &openapi3.PathItem{
		Post: operation("Revoke a key by name", "revokeKey", []string{"adminKey"}),
	})
	paths.Set("/admin/models/list", &openapi3.PathItem{
		Post: operation("List models on the inference host", "listModels", []string{"adminKey"}),
	})
	paths.Set("/admin/models/pull", &openapi3.PathItem{
		Post: operation("Pull a model", "pullModel", []string{"adminKey"}),
	})
	paths.Set("/admin/models/delete", &openapi3.PathItem{
		Post: operation("Delete a model", "deleteModel", []string{"adminKey"}),
	})
	paths.Set("/admin/models/switch", &openapi3.PathItem{
		Post: operation("Switch the active model", "switchModel", []string{"adminKey"}),
	})

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "anticlanker",
			Description: "GroupMe spam moderation service with keyed model access",
			Version:     version,
		},
		Paths: paths,
		Components: &openapi3.Components{
			SecuritySchemes: openapi3.SecuritySchemes{
				"apiKey": &openapi3.SecuritySchemeRef{
					Value: openapi3.NewSecurityScheme().
						WithType("apiKey").
						WithIn("header").
						WithName("X-API-Key").
						WithDescription("Key secret, paired with the X-API-Key-Name header"),
				},
				"adminKey": &openapi3.SecuritySchemeRef{
					Value: openapi3.NewSecurityScheme().
						WithType("apiKey").
						WithIn("header").
						WithName("X-API-Admin-Key"),
				},
			},
		},
	}
}

func operation(summary, id string, schemes []string) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.Summary = summary
	op.OperationID = id
	op.AddResponse(http.StatusOK, openapi3.NewResponse().WithDescription("Success"))
	for _, scheme := range schemes {
		req := openapi3.NewSecurityRequirement().Authenticate(scheme)
		if op.Security == nil {
			op.Security = openapi3.NewSecurityRequirements()
		}
		op.Security.With(req)
	}
	return op
}
