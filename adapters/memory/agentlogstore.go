package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/JaYani55/service-cms-sub001/domain/agentlog"
	"github.com/JaYani55/service-cms-sub001/ports"
)

// AgentLogStore is an in-memory ports.AgentLogStore.
type AgentLogStore struct {
	mu      sync.RWMutex
	entries []agentlog.Entry

	// FailCreates makes Create return an error; tests use it to verify
	// that auditing never affects the audited request.
	FailCreates bool
}

// NewAgentLogStore creates an empty in-memory agent log store.
func NewAgentLogStore() *AgentLogStore {
	return &AgentLogStore{}
}

// Entries returns a snapshot of everything recorded so far.
func (s *AgentLogStore) Entries() []agentlog.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agentlog.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *AgentLogStore) Create(_ context.Context, e agentlog.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreates {
		return errors.New("store unavailable")
	}
	s.entries = append(s.entries, e)
	return nil
}

func matches(e agentlog.Entry, f agentlog.Filter) bool {
	if f.SchemaSlug != "" && e.SchemaSlug != f.SchemaSlug {
		return false
	}
	if f.Method != "" && !strings.EqualFold(e.Method, f.Method) {
		return false
	}
	if f.MinStatus > 0 && e.StatusCode < f.MinStatus {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

func (s *AgentLogStore) List(_ context.Context, f agentlog.Filter, limit, offset int) ([]agentlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []agentlog.Entry
	for _, e := range s.entries {
		if matches(e, f) {
			out = append(out, e)
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

func (s *AgentLogStore) Count(_ context.Context, f agentlog.Filter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, e := range s.entries {
		if matches(e, f) {
			n++
		}
	}
	return n, nil
}

func (s *AgentLogStore) Stats(_ context.Context) (agentlog.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := agentlog.Stats{
		ByMethod:     make(map[string]int64),
		BySchemaSlug: make(map[string]int64),
	}
	var totalDuration int64
	for _, e := range s.entries {
		stats.Total++
		if e.StatusCode >= 400 {
			stats.ErrorCount++
		}
		totalDuration += int64(e.DurationMS)
		stats.ByMethod[e.Method]++
		if e.SchemaSlug != "" {
			stats.BySchemaSlug[e.SchemaSlug]++
		}
	}
	if stats.Total > 0 {
		stats.AvgDuration = float64(totalDuration) / float64(stats.Total)
	}
	return stats, nil
}

func (s *AgentLogStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *AgentLogStore) DeleteByFilter(_ context.Context, f agentlog.Filter) (int64, error) {
	if f == (agentlog.Filter{}) {
		return 0, errors.New("refusing unfiltered delete; use DeleteAll")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []agentlog.Entry
	var removed int64
	for _, e := range s.entries {
		if matches(e, f) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

func (s *AgentLogStore) DeleteAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.entries))
	s.entries = nil
	return n, nil
}

var _ ports.AgentLogStore = (*AgentLogStore)(nil)
