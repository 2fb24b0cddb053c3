package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
	"github.com/rs/zerolog"
)

// CatalogService handles schema discovery, spec rendering, and schema CRUD.
type CatalogService struct {
	schemas ports.SchemaStore
	pages   ports.PageStore
	clock   ports.Clock
	ids     ports.IDGenerator
	logger  zerolog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(schemas ports.SchemaStore, pages ports.PageStore, clock ports.Clock, ids ports.IDGenerator, logger zerolog.Logger) *CatalogService {
	return &CatalogService{schemas: schemas, pages: pages, clock: clock, ids: ids, logger: logger}
}

// SchemaSummary is one discovery-listing entry, decorated with the URLs
// an agent needs to inspect and claim the schema.
type SchemaSummary struct {
	ID                 string                    `json:"id"`
	Name               string                    `json:"name"`
	Slug               string                    `json:"slug"`
	Description        string                    `json:"description,omitempty"`
	IsDefault          bool                      `json:"is_default"`
	RegistrationStatus schema.RegistrationStatus `json:"registration_status"`
	FrontendURL        string                    `json:"frontend_url,omitempty"`
	SpecURL            string                    `json:"spec_url"`
	RegisterURL        string                    `json:"register_url"`
}

// List returns all non-archived schemas, default schemas first then
// alphabetical, each decorated with spec/register URLs derived from the
// caller's own origin.
func (s *CatalogService) List(ctx context.Context, baseURL string) ([]SchemaSummary, error) {
	schemas, err := s.schemas.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	summaries := make([]SchemaSummary, 0, len(schemas))
	for _, sc := range schemas {
		summaries = append(summaries, SchemaSummary{
			ID:                 sc.ID,
			Name:               sc.Name,
			Slug:               sc.Slug,
			Description:        sc.Description,
			IsDefault:          sc.IsDefault,
			RegistrationStatus: sc.RegistrationStatus,
			FrontendURL:        sc.FrontendURL,
			SpecURL:            fmt.Sprintf("%s/api/schemas/%s/spec.txt", baseURL, sc.Slug),
			RegisterURL:        fmt.Sprintf("%s/api/schemas/%s/register", baseURL, sc.Slug),
		})
	}
	return summaries, nil
}

// RenderSpec produces the plaintext spec document for a schema,
// including the live page count.
func (s *CatalogService) RenderSpec(ctx context.Context, slug, baseURL string) (string, error) {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("render spec %q: %w", slug, err)
	}

	pageCount, err := s.pages.CountBySchema(ctx, sc.ID)
	if err != nil {
		// The count is decoration; a failed count must not hide the spec.
		s.logger.Warn().Err(err).Str("schema_id", sc.ID).Msg("page count failed")
		pageCount = 0
	}

	return schema.RenderSpec(sc, pageCount, baseURL), nil
}

// Get retrieves a schema by slug.
func (s *CatalogService) Get(ctx context.Context, slug string) (schema.Schema, error) {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("get schema %q: %w", slug, err)
	}
	return sc, nil
}

// Create stores a new schema. The schema starts in waiting with a fresh
// registration code: creating it is the start of its registration.
func (s *CatalogService) Create(ctx context.Context, name, description string, definition json.RawMessage) (schema.Schema, error) {
	sc := schema.New(s.ids.New(), name, description, definition, s.clock.Now())
	if err := s.schemas.Create(ctx, sc); err != nil {
		return schema.Schema{}, fmt.Errorf("create schema: %w", err)
	}
	s.logger.Info().Str("schema_id", sc.ID).Str("slug", sc.Slug).Msg("schema created")
	return sc, nil
}

// UpdateContent edits name, description, definition, and agent
// instructions without touching registration state. A name change
// re-derives the slug.
func (s *CatalogService) UpdateContent(ctx context.Context, slug, name, description string, definition json.RawMessage, llmInstructions string) (schema.Schema, error) {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("update schema %q: %w", slug, err)
	}

	now := s.clock.Now()
	if name != "" && name != sc.Name {
		sc = schema.Rename(sc, name, now)
	}
	if description != "" {
		sc.Description = description
	}
	if len(definition) > 0 {
		sc.Definition = definition
	}
	if llmInstructions != "" {
		sc.LLMInstructions = llmInstructions
	}
	sc.UpdatedAt = now

	if err := s.schemas.Update(ctx, sc); err != nil {
		return schema.Schema{}, fmt.Errorf("update schema %q: %w", slug, err)
	}
	return sc, nil
}

// Archive soft-deletes a schema; it disappears from discovery but its
// rows remain.
func (s *CatalogService) Archive(ctx context.Context, slug string) error {
	sc, err := s.schemas.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("archive schema %q: %w", slug, err)
	}
	if err := s.schemas.Update(ctx, schema.Archive(sc, s.clock.Now())); err != nil {
		return fmt.Errorf("archive schema %q: %w", slug, err)
	}
	s.logger.Info().Str("schema_id", sc.ID).Str("slug", sc.Slug).Msg("schema archived")
	return nil
}
