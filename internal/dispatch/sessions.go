package dispatch

import "sync"

const defaultSessionLimit = 1024

type session struct {
	controller *Controller
	lastUsed   uint64
}

// Sessions keeps one Controller per vendor, created lazily on first use.
// Once more than the limit of vendors are held the least recently used
// session is dropped; its queue is rebuilt by the next refresh.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	factory  func(vendorID string) *Controller
	limit    int
	tick     uint64
}

type SessionsOption func(*Sessions)

// WithSessionLimit caps the number of vendor sessions held at once.
// Values below one are ignored.
func WithSessionLimit(n int) SessionsOption {
	return func(s *Sessions) {
		if n > 0 {
			s.limit = n
		}
	}
}

func NewSessions(factory func(vendorID string) *Controller, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		sessions: make(map[string]*session),
		factory:  factory,
		limit:    defaultSessionLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) For(vendorID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tick++
	if sess, ok := s.sessions[vendorID]; ok {
		sess.lastUsed = s.tick
		return sess.controller
	}

	if len(s.sessions) >= s.limit {
		s.evictOldest()
	}
	c := s.factory(vendorID)
	s.sessions[vendorID] = &session{controller: c, lastUsed: s.tick}
	return c
}

// Len reports how many vendor sessions are currently held.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) evictOldest() {
	var (
		oldest    string
		oldestUse uint64
		found     bool
	)
	for id, sess := range s.sessions {
		if !found || sess.lastUsed < oldestUse {
			oldest, oldestUse, found = id, sess.lastUsed, true
		}
	}
	if found {
		delete(s.sessions, oldest)
	}
}
