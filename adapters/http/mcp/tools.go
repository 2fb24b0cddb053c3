package mcp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
)

// toolOrder fixes the advertised tool order.
var toolOrder = []string{"list_schemas", "get_schema_spec", "register_frontend", "check_health"}

// toolHandlerFunc runs one tool call. Failures come back as IsError
// results, never as JSON-RPC errors; the call reached the tool, the
// tool's operation failed.
type toolHandlerFunc func(r *http.Request, args json.RawMessage) toolsCallResult

func (s *Server) toolHandler(name string) (toolHandlerFunc, bool) {
	switch name {
	case "list_schemas":
		return s.toolListSchemas, true
	case "get_schema_spec":
		return s.toolGetSchemaSpec, true
	case "register_frontend":
		return s.toolRegisterFrontend, true
	case "check_health":
		return s.toolCheckHealth, true
	}
	return nil, false
}

func (s *Server) toolDescriptions() []toolDescription {
	return []toolDescription{
		{
			Name:        "list_schemas",
			Description: "List all content schemas with their registration status and the URLs used to inspect and claim them.",
			InputSchema: objectSchema(nil, nil),
		},
		{
			Name:        "get_schema_spec",
			Description: "Fetch the plaintext specification document for one schema, including its content definition and, while the schema awaits registration, the registration code and claim instructions.",
			InputSchema: objectSchema(map[string]any{
				"slug": map[string]any{"type": "string", "description": "Schema slug from list_schemas"},
			}, []string{"slug"}),
		},
		{
			Name:        "register_frontend",
			Description: "Claim a waiting schema: present its registration code and bind a frontend URL to it. Optionally configure the cache revalidation webhook.",
			InputSchema: objectSchema(map[string]any{
				"slug":                  map[string]any{"type": "string", "description": "Schema slug"},
				"code":                  map[string]any{"type": "string", "description": "Registration code from the schema spec"},
				"frontend_url":          map[string]any{"type": "string", "description": "Public base URL of the frontend"},
				"revalidation_endpoint": map[string]any{"type": "string", "description": "Relative path of the frontend's revalidation webhook"},
				"revalidation_secret":   map[string]any{"type": "string", "description": "Shared secret appended to revalidation calls"},
				"slug_structure":        map[string]any{"type": "string", "description": "URL pattern for pages, defaults to /:slug"},
			}, []string{"slug", "code", "frontend_url"}),
		},
		{
			Name:        "check_health",
			Description: "Probe a URL with a bounded HEAD request and report online/offline with latency.",
			InputSchema: objectSchema(map[string]any{
				"url": map[string]any{"type": "string", "description": "URL to probe"},
			}, []string{"url"}),
		},
	}
}

func objectSchema(properties map[string]any, required []string) map[string]any {
	if properties == nil {
		properties = map[string]any{}
	}
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (s *Server) toolListSchemas(r *http.Request, _ json.RawMessage) toolsCallResult {
	summaries, err := s.catalog.List(r.Context(), baseURL(r))
	if err != nil {
		s.logger.Error().Err(err).Msg("list_schemas failed")
		return errorResult("Internal error listing schemas")
	}
	return jsonResult(map[string]any{"schemas": summaries})
}

func (s *Server) toolGetSchemaSpec(r *http.Request, args json.RawMessage) toolsCallResult {
	var params struct {
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Slug == "" {
		return errorResult("slug is required")
	}

	text, err := s.catalog.RenderSpec(r.Context(), params.Slug, baseURL(r))
	if err != nil {
		return s.domainError(err, "Schema not found: "+params.Slug)
	}
	return textResult(text)
}

func (s *Server) toolRegisterFrontend(r *http.Request, args json.RawMessage) toolsCallResult {
	var params struct {
		Slug                 string `json:"slug"`
		Code                 string `json:"code"`
		FrontendURL          string `json:"frontend_url"`
		RevalidationEndpoint string `json:"revalidation_endpoint"`
		RevalidationSecret   string `json:"revalidation_secret"`
		SlugStructure        string `json:"slug_structure"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if params.Slug == "" || params.Code == "" || params.FrontendURL == "" {
		return errorResult("slug, code and frontend_url are required")
	}

	claimed, err := s.registration.Claim(r.Context(), params.Slug, schema.ClaimRequest{
		Code:                 params.Code,
		FrontendURL:          params.FrontendURL,
		RevalidationEndpoint: params.RevalidationEndpoint,
		RevalidationSecret:   params.RevalidationSecret,
		SlugStructure:        params.SlugStructure,
	})
	if err != nil {
		return s.domainError(err, "Schema not found: "+params.Slug)
	}

	return jsonResult(map[string]any{
		"success":             true,
		"message":             "Frontend registered",
		"slug":                claimed.Slug,
		"registration_status": claimed.RegistrationStatus,
		"frontend_url":        claimed.FrontendURL,
	})
}

func (s *Server) toolCheckHealth(r *http.Request, args json.RawMessage) toolsCallResult {
	var params struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.URL == "" {
		return errorResult("url is required")
	}
	return jsonResult(s.health.Check(r.Context(), params.URL))
}

// domainError renders the shared error taxonomy as tool failures.
func (s *Server) domainError(err error, notFoundMsg string) toolsCallResult {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return errorResult(notFoundMsg)
	case errors.Is(err, schema.ErrInvalidState):
		return errorResult("Operation not valid for the current registration status")
	case errors.Is(err, schema.ErrForbidden):
		return errorResult("Invalid registration code")
	case errors.Is(err, schema.ErrNotConfigured):
		return errorResult("Schema has no revalidation endpoint configured")
	default:
		s.logger.Error().Err(err).Msg("tool call failed")
		return errorResult("Internal error")
	}
}

func jsonResult(v any) toolsCallResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("Internal error encoding result")
	}
	return textResult(string(data))
}

func baseURL(r *http.Request) string {
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		proto = fwd
	}
	return proto + "://" + r.Host
}
