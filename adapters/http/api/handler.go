// Package api provides the REST/JSON surface of the CMS backend. Every
// operation delegates to the app services; nothing here touches the
// domain state machine directly.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JaYani55/service-cms-sub001/app"
	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides the schema API endpoints.
type Handler struct {
	catalog      *app.CatalogService
	registration *app.RegistrationService
	revalidation *app.RevalidationService
	health       *app.HealthService
	logs         *app.AgentLogService
	schemas      ports.SchemaStore
	logger       zerolog.Logger
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Catalog      *app.CatalogService
	Registration *app.RegistrationService
	Revalidation *app.RevalidationService
	Health       *app.HealthService
	Logs         *app.AgentLogService
	Schemas      ports.SchemaStore
	Logger       zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		catalog:      deps.Catalog,
		registration: deps.Registration,
		revalidation: deps.Revalidation,
		health:       deps.Health,
		logs:         deps.Logs,
		schemas:      deps.Schemas,
		logger:       deps.Logger,
	}
}

// Router returns the schema API router. The caller mounts it under
// /api/schemas. "logs" and "health" are reserved path segments and can
// never collide with a slug: slugs are generated, and generated slugs
// for those names would shadow static routes that chi matches first.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListSchemas)
	r.Post("/", h.CreateSchema)

	r.Post("/health/domain", h.CheckDomain)

	// Log management is exempt from auditing so that reading the audit
	// trail does not append to it.
	r.Group(func(r chi.Router) {
		r.Use(SkipAudit)
		r.Get("/logs", h.ListLogs)
		r.Get("/logs/stats", h.LogStats)
		r.Get("/logs/download", h.DownloadLogs)
		r.Delete("/logs", h.DeleteLogs)
		r.Delete("/logs/{id}", h.DeleteLog)
	})

	r.Group(func(r chi.Router) {
		r.Use(TagSlug)
		r.Get("/{slug}", h.GetSchema)
		r.Put("/{slug}", h.UpdateSchema)
		r.Delete("/{slug}", h.ArchiveSchema)
		r.Get("/{slug}/spec.txt", h.GetSpec)
		r.Post("/{slug}/register", h.Register)
		r.Post("/{slug}/revalidate", h.Revalidate)
		r.Get("/{slug}/health", h.CheckSchemaHealth)
		r.Post("/{slug}/registration/start", h.StartRegistration)
		r.Delete("/{slug}/registration", h.CancelRegistration)
		r.Get("/{slug}/registration/status", h.RegistrationStatus)
	})

	return r
}

// -----------------------------------------------------------------------------
// Discovery and spec
// -----------------------------------------------------------------------------

// ListSchemas handles GET / — the discovery document agents start from.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r)
	summaries, err := h.catalog.List(r.Context(), base)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"schemas":      summaries,
		"mcp_endpoint": base + "/api/mcp",
	})
}

// GetSpec handles GET /{slug}/spec.txt. The spec document is plaintext,
// and so is its not-found error: the consumer is an agent reading prose,
// not a JSON client.
func (h *Handler) GetSpec(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	text, err := h.catalog.RenderSpec(r.Context(), slug, requestBaseURL(r))
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if errors.Is(err, ports.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Schema not found: " + slug + "\n"))
			return
		}
		h.logger.Error().Err(err).Str("slug", slug).Msg("spec render failed")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal error\n"))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// -----------------------------------------------------------------------------
// Registration handshake
// -----------------------------------------------------------------------------

// RegisterRequest is the claim body a frontend POSTs.
type RegisterRequest struct {
	Code                 string `json:"code"`
	FrontendURL          string `json:"frontend_url"`
	RevalidationEndpoint string `json:"revalidation_endpoint,omitempty"`
	RevalidationSecret   string `json:"revalidation_secret,omitempty"`
	SlugStructure        string `json:"slug_structure,omitempty"`
}

// Register handles POST /{slug}/register — the code handshake.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Code == "" || req.FrontendURL == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "code and frontend_url are required")
		return
	}

	claimed, err := h.registration.Claim(r.Context(), slug, schema.ClaimRequest{
		Code:                 req.Code,
		FrontendURL:          req.FrontendURL,
		RevalidationEndpoint: req.RevalidationEndpoint,
		RevalidationSecret:   req.RevalidationSecret,
		SlugStructure:        req.SlugStructure,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Frontend registered",
		"schema":  schemaView(claimed),
	})
}

// StartRegistration handles POST /{slug}/registration/start.
func (h *Handler) StartRegistration(w http.ResponseWriter, r *http.Request) {
	sc, err := h.schemas.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	started, err := h.registration.Start(r.Context(), sc.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaView(started))
}

// CancelRegistration handles DELETE /{slug}/registration. Idempotent.
func (h *Handler) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	sc, err := h.schemas.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if err := h.registration.Cancel(r.Context(), sc.ID); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// RegistrationStatus handles GET /{slug}/registration/status — the
// projection the schema owner's UI polls while waiting for a claim.
func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	sc, err := h.schemas.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	proj, err := h.registration.Status(r.Context(), sc.ID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proj)
}

// -----------------------------------------------------------------------------
// Revalidation and health
// -----------------------------------------------------------------------------

// Revalidate handles POST /{slug}/revalidate.
func (h *Handler) Revalidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PageSlug string `json:"page_slug"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.PageSlug == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "page_slug is required")
		return
	}

	result, err := h.revalidation.Trigger(r.Context(), chi.URLParam(r, "slug"), req.PageSlug)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// CheckSchemaHealth handles GET /{slug}/health. Probe failures are part
// of the 200 body, never an HTTP error.
func (h *Handler) CheckSchemaHealth(w http.ResponseWriter, r *http.Request) {
	result := h.health.CheckSchema(r.Context(), chi.URLParam(r, "slug"))
	writeJSON(w, http.StatusOK, result)
}

// CheckDomain handles POST /health/domain for an arbitrary URL.
func (h *Handler) CheckDomain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "url is required")
		return
	}
	writeJSON(w, http.StatusOK, h.health.Check(r.Context(), req.URL))
}

// -----------------------------------------------------------------------------
// Schema CRUD
// -----------------------------------------------------------------------------

// SchemaBody is the create/update payload.
type SchemaBody struct {
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Definition      json.RawMessage `json:"definition,omitempty"`
	LLMInstructions string          `json:"llm_instructions,omitempty"`
}

// CreateSchema handles POST /.
func (h *Handler) CreateSchema(w http.ResponseWriter, r *http.Request) {
	var req SchemaBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "name is required")
		return
	}

	sc, err := h.catalog.Create(r.Context(), req.Name, req.Description, req.Definition)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, schemaView(sc))
}

// GetSchema handles GET /{slug}.
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	sc, err := h.catalog.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaView(sc))
}

// UpdateSchema handles PUT /{slug}.
func (h *Handler) UpdateSchema(w http.ResponseWriter, r *http.Request) {
	var req SchemaBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	sc, err := h.catalog.UpdateContent(r.Context(), chi.URLParam(r, "slug"), req.Name, req.Description, req.Definition, req.LLMInstructions)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schemaView(sc))
}

// ArchiveSchema handles DELETE /{slug}.
func (h *Handler) ArchiveSchema(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Archive(r.Context(), chi.URLParam(r, "slug")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// -----------------------------------------------------------------------------
// Log management
// -----------------------------------------------------------------------------

// ListLogs handles GET /logs.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	f, err := logFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	page, err := h.logs.List(r.Context(),
		f,
		parseIntQuery(r, "limit", 50),
		parseIntQuery(r, "offset", 0),
	)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// LogStats handles GET /logs/stats.
func (h *Handler) LogStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.logs.Stats(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// DownloadLogs handles GET /logs/download as a JSON attachment.
func (h *Handler) DownloadLogs(w http.ResponseWriter, r *http.Request) {
	f, err := logFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	entries, err := h.logs.Download(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="agent-logs.json"`)
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(entries)
}

// DeleteLogs handles DELETE /logs: by filter, or everything with
// confirm=true.
func (h *Handler) DeleteLogs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") == "true" {
		n, err := h.logs.DeleteAll(r.Context(), true)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
		return
	}

	f, err := logFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if f == (agentlog.Filter{}) {
		writeError(w, http.StatusBadRequest, "confirm_required", "Unfiltered delete requires confirm=true")
		return
	}
	n, err := h.logs.DeleteByFilter(r.Context(), f)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// DeleteLog handles DELETE /logs/{id}.
func (h *Handler) DeleteLog(w http.ResponseWriter, r *http.Request) {
	if err := h.logs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// logFilter builds an audit filter from query parameters.
func logFilter(r *http.Request) (agentlog.Filter, error) {
	q := r.URL.Query()
	f := agentlog.Filter{
		SchemaSlug: q.Get("schema_slug"),
		Method:     q.Get("method"),
		MinStatus:  parseIntQuery(r, "min_status", 0),
	}
	var err error
	if f.Since, err = parseTimeQuery(q.Get("since")); err != nil {
		return agentlog.Filter{}, err
	}
	if f.Until, err = parseTimeQuery(q.Get("until")); err != nil {
		return agentlog.Filter{}, err
	}
	return f, nil
}

func parseTimeQuery(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("time filters must be RFC3339 timestamps")
	}
	return t, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// SchemaView is the JSON projection of a schema. The registration code
// is never serialized; it travels only inside the spec document.
type SchemaView struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Slug               string                    `json:"slug"`
	Description        string                    `json:"description,omitempty"`
	Definition         json.RawMessage           `json:"definition,omitempty"`
	LLMInstructions    string                    `json:"llm_instructions,omitempty"`
	IsDefault          bool                      `json:"is_default"`
	RegistrationStatus schema.RegistrationStatus `json:"registration_status"`
	FrontendURL        string                    `json:"frontend_url,omitempty"`
	SlugStructure      string                    `json:"slug_structure,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
}

func schemaView(sc schema.Schema) SchemaView {
	return SchemaView{
		ID:                 sc.ID,
		Name:               sc.Name,
		Slug:               sc.Slug,
		Description:        sc.Description,
		Definition:         sc.Definition,
		LLMInstructions:    sc.LLMInstructions,
		IsDefault:          sc.IsDefault,
		RegistrationStatus: sc.RegistrationStatus,
		FrontendURL:        sc.FrontendURL,
		SlugStructure:      sc.SlugStructure,
		CreatedAt:          sc.CreatedAt,
		UpdatedAt:          sc.UpdatedAt,
	}
}

// writeDomainError maps domain and storage errors onto the HTTP
// taxonomy. Storage details never reach the client.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Schema not found")
	case errors.Is(err, schema.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", "Operation not valid for the current registration status")
	case errors.Is(err, schema.ErrForbidden):
		writeError(w, http.StatusForbidden, "invalid_code", "Invalid registration code")
	case errors.Is(err, schema.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "not_configured", "Schema has no revalidation endpoint configured")
	case errors.Is(err, app.ErrConfirmRequired):
		writeError(w, http.StatusBadRequest, "confirm_required", "Pass confirm=true to delete all entries")
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal error")
	}
}

// requestBaseURL derives the externally visible origin from the inbound
// request, honoring the forwarded proto set by a fronting proxy.
func requestBaseURL(r *http.Request) string {
	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		proto = fwd
	}
	return proto + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func parseIntQuery(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
