// Package memory provides in-memory implementations of the storage ports,
// used by tests and ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JaYani55/service-cms-sub001/domain/schema"
	"github.com/JaYani55/service-cms-sub001/ports"
)

// SchemaStore is an in-memory ports.SchemaStore.
type SchemaStore struct {
	mu      sync.RWMutex
	schemas map[string]schema.Schema
}

// NewSchemaStore creates an empty in-memory schema store.
func NewSchemaStore() *SchemaStore {
	return &SchemaStore{schemas: make(map[string]schema.Schema)}
}

func (s *SchemaStore) Get(_ context.Context, id string) (schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schemas[id]
	if !ok {
		return schema.Schema{}, ports.ErrNotFound
	}
	return sc, nil
}

func (s *SchemaStore) GetBySlug(_ context.Context, slug string) (schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.schemas {
		if sc.Slug == slug {
			return sc, nil
		}
	}
	return schema.Schema{}, ports.ErrNotFound
}

func (s *SchemaStore) List(_ context.Context) ([]schema.Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.Schema
	for _, sc := range s.schemas {
		if sc.RegistrationStatus != schema.StatusArchived {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDefault != out[j].IsDefault {
			return out[i].IsDefault
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *SchemaStore) Create(_ context.Context, sc schema.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[sc.ID] = sc
	return nil
}

func (s *SchemaStore) Update(_ context.Context, sc schema.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schemas[sc.ID]; !ok {
		return ports.ErrNotFound
	}
	s.schemas[sc.ID] = sc
	return nil
}

func (s *SchemaStore) ClaimRegistration(_ context.Context, sc schema.Schema) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.schemas[sc.ID]
	if !ok {
		return false, ports.ErrNotFound
	}
	if current.RegistrationStatus != schema.StatusWaiting {
		return false, nil
	}
	s.schemas[sc.ID] = sc
	return true, nil
}

var _ ports.SchemaStore = (*SchemaStore)(nil)
