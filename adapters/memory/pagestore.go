package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JaYani55/service-cms-sub001/domain/page"
	"github.com/JaYani55/service-cms-sub001/ports"
)

// PageStore is an in-memory ports.PageStore.
type PageStore struct {
	mu    sync.RWMutex
	pages map[string]page.Page
}

// NewPageStore creates an empty in-memory page store.
func NewPageStore() *PageStore {
	return &PageStore{pages: make(map[string]page.Page)}
}

func (s *PageStore) Get(_ context.Context, id string) (page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[id]
	if !ok {
		return page.Page{}, ports.ErrNotFound
	}
	return p, nil
}

func (s *PageStore) ListBySchema(_ context.Context, schemaID string, limit, offset int) ([]page.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []page.Page
	for _, p := range s.pages {
		if p.SchemaID == schemaID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *PageStore) CountBySchema(_ context.Context, schemaID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.pages {
		if p.SchemaID == schemaID {
			n++
		}
	}
	return n, nil
}

func (s *PageStore) Create(_ context.Context, p page.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[p.ID] = p
	return nil
}

func (s *PageStore) Update(_ context.Context, p page.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[p.ID]; !ok {
		return ports.ErrNotFound
	}
	s.pages[p.ID] = p
	return nil
}

var _ ports.PageStore = (*PageStore)(nil)
