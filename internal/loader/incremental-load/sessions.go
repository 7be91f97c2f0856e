// internal/loader/incremental-load/sessions.go
package incrementalload

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type sessionEntry[T Item] struct {
	controller *Controller[T]
	lastUsed   time.Time
}

// Sessions owns one Controller per client session. Controllers are never
// shared between sessions.
type Sessions[T Item] struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry[T]
	factory  func() *Controller[T]
	idleTTL  time.Duration
	now      func() time.Time
}

func NewSessions[T Item](factory func() *Controller[T], idleTTL time.Duration) *Sessions[T] {
	return &Sessions[T]{
		sessions: make(map[uuid.UUID]*sessionEntry[T]),
		factory:  factory,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (s *Sessions[T]) Create() (uuid.UUID, *Controller[T]) {
	id := uuid.New()
	ctrl := s.factory()

	s.mu.Lock()
	s.sessions[id] = &sessionEntry[T]{controller: ctrl, lastUsed: s.now()}
	s.mu.Unlock()
	return id, ctrl
}

// Get returns the session controller and marks it as used.
func (s *Sessions[T]) Get(id uuid.UUID) (*Controller[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.controller, true
}

// Close tears the session down and aborts its requests.
func (s *Sessions[T]) Close(id uuid.UUID) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		e.controller.Close()
	}
	return ok
}

// Sweep closes sessions idle for longer than the TTL.
func (s *Sessions[T]) Sweep() int {
	if s.idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idleTTL)

	s.mu.Lock()
	var expired []*Controller[T]
	for id, e := range s.sessions {
		if e.lastUsed.Before(cutoff) {
			expired = append(expired, e.controller)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}
	return len(expired)
}

func (s *Sessions[T]) CloseAll() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[uuid.UUID]*sessionEntry[T])
	s.mu.Unlock()

	for _, e := range all {
		e.controller.Close()
	}
}

func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
