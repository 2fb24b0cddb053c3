// Package page provides value types and pure functions for content pages.
// A page is bound to exactly one schema; the reference is non-owning and
// never affects the schema's registration lifecycle.
package page

import (
	"encoding/json"
	"time"

	"github.com/JaYani55/service-cms-sub001/domain/schema"
)

// Status represents a page's publication state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Page represents a content instance conforming to a schema (value type).
type Page struct {
	ID          string
	SchemaID    string // required, non-owning reference
	Name        string
	Slug        string // derived from Name; not unique across schemas
	Content     json.RawMessage
	Status      Status
	PublishedAt *time.Time // set only on transition into StatusPublished
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New creates a draft page bound to a schema.
// This is a PURE function.
func New(id, schemaID, name string, content json.RawMessage, now time.Time) Page {
	return Page{
		ID:        id,
		SchemaID:  schemaID,
		Name:      name,
		Slug:      schema.GenerateSlug(name),
		Content:   content,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Publish transitions a page into StatusPublished, stamping PublishedAt.
// Re-publishing an already published page keeps the original timestamp.
// This is a PURE function - returns a new Page.
func Publish(p Page, now time.Time) Page {
	if p.Status != StatusPublished {
		published := now
		p.PublishedAt = &published
	}
	p.Status = StatusPublished
	p.UpdatedAt = now
	return p
}

// Unpublish reverts a page to draft. PublishedAt is cleared.
// This is a PURE function - returns a new Page.
func Unpublish(p Page, now time.Time) Page {
	p.Status = StatusDraft
	p.PublishedAt = nil
	p.UpdatedAt = now
	return p
}

// Archive soft-deletes a page.
// This is a PURE function - returns a new Page.
func Archive(p Page, now time.Time) Page {
	p.Status = StatusArchived
	p.UpdatedAt = now
	return p
}
