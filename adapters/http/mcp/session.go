package mcp

import (
	"sync"
	"time"

	"github.com/JaYani55/service-cms-sub001/ports"
)

// sessionTTL is how long an idle session survives before a sweep
// removes it.
const sessionTTL = 30 * time.Minute

// session is the per-connection state of one agent. Each concurrent
// connection gets its own session; a new one is only minted when the
// client presents no session ID or presents one that has expired.
type session struct {
	id          string
	initialized bool
	createdAt   time.Time

	mu       sync.Mutex
	lastSeen time.Time
	// events feeds the SSE stream when the client opens one. Sends are
	// non-blocking: a slow or absent stream drops events rather than
	// stalling request handling.
	events chan []byte
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > sessionTTL
}

// sessionRegistry tracks live sessions by ID.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	clock    ports.Clock
	ids      ports.IDGenerator
}

func newSessionRegistry(clock ports.Clock, ids ports.IDGenerator) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
		clock:    clock,
		ids:      ids,
	}
}

// acquire returns the session for the given ID, minting a fresh one
// when the ID is empty, unknown, or expired. The returned session's
// lastSeen is always current.
func (r *sessionRegistry) acquire(id string) *session {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		if s, ok := r.sessions[id]; ok && !s.expired(now) {
			s.touch(now)
			return s
		}
		delete(r.sessions, id)
	}

	s := &session{
		id:        r.ids.New(),
		createdAt: now,
		lastSeen:  now,
		events:    make(chan []byte, 16),
	}
	r.sessions[s.id] = s
	r.sweepLocked(now)
	return s
}

// drop removes a session, typically when its event stream disconnects.
func (r *sessionRegistry) drop(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// sweepLocked drops expired sessions. Called with r.mu held, piggybacked
// on session creation so no background goroutine is needed.
func (r *sessionRegistry) sweepLocked(now time.Time) {
	for id, s := range r.sessions {
		if s.expired(now) {
			delete(r.sessions, id)
		}
	}
}
