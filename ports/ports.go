// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/domain/page"
	"github.com/JaYani55/service-cms-sub001/domain/schema"
)

// ErrNotFound is returned by stores when an entity does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// SchemaStore persists content schemas.
type SchemaStore interface {
	// Get retrieves a schema by ID.
	Get(ctx context.Context, id string) (schema.Schema, error)

	// GetBySlug retrieves a schema by its unique slug.
	GetBySlug(ctx context.Context, slug string) (schema.Schema, error)

	// List returns all non-archived schemas, default schemas first,
	// then alphabetically by name.
	List(ctx context.Context) ([]schema.Schema, error)

	// Create stores a new schema.
	Create(ctx context.Context, s schema.Schema) error

	// Update modifies an existing schema.
	Update(ctx context.Context, s schema.Schema) error

	// ClaimRegistration persists a claimed schema conditionally: the row
	// is written only while its stored status is still waiting, so of two
	// concurrent claims exactly one wins. Returns false when the
	// condition no longer held.
	ClaimRegistration(ctx context.Context, s schema.Schema) (bool, error)
}

// PageStore persists content pages.
type PageStore interface {
	// Get retrieves a page by ID.
	Get(ctx context.Context, id string) (page.Page, error)

	// ListBySchema returns pages referencing a schema, newest first.
	ListBySchema(ctx context.Context, schemaID string, limit, offset int) ([]page.Page, error)

	// CountBySchema returns the number of pages referencing a schema.
	CountBySchema(ctx context.Context, schemaID string) (int, error)

	// Create stores a new page.
	Create(ctx context.Context, p page.Page) error

	// Update modifies an existing page.
	Update(ctx context.Context, p page.Page) error
}

// AgentLogStore persists the append-only audit trail.
type AgentLogStore interface {
	// Create appends one audit entry.
	Create(ctx context.Context, e agentlog.Entry) error

	// List returns entries matching the filter, newest first.
	List(ctx context.Context, f agentlog.Filter, limit, offset int) ([]agentlog.Entry, error)

	// Count returns the number of entries matching the filter.
	Count(ctx context.Context, f agentlog.Filter) (int64, error)

	// Stats aggregates the trail.
	Stats(ctx context.Context) (agentlog.Stats, error)

	// Delete removes a single entry.
	Delete(ctx context.Context, id string) error

	// DeleteByFilter removes entries matching the filter and reports
	// how many were removed.
	DeleteByFilter(ctx context.Context, f agentlog.Filter) (int64, error)

	// DeleteAll truncates the trail.
	DeleteAll(ctx context.Context) (int64, error)
}
