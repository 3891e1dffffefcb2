package router

import "sync"

// Sessions keeps one Router per chat session id. When full, the least
// recently used session is dropped.
type Sessions struct {
	factory func() *Router
	max     int

	mu       sync.Mutex
	clock    uint64
	sessions map[string]*session
}

type session struct {
	router   *Router
	lastUsed uint64
}

// NewSessions creates a session table holding at most max sessions
// (1024 when max <= 0).
func NewSessions(max int, factory func() *Router) *Sessions {
	if max <= 0 {
		max = 1024
	}
	return &Sessions{factory: factory, max: max, sessions: map[string]*session{}}
}

// Get returns the router for id, creating it on first use.
func (s *Sessions) Get(id string) *Router {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock++
	if sess, ok := s.sessions[id]; ok {
		sess.lastUsed = s.clock
		return sess.router
	}
	if len(s.sessions) >= s.max {
		s.evictOldest()
	}
	sess := &session{router: s.factory(), lastUsed: s.clock}
	s.sessions[id] = sess
	return sess.router
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Sessions) evictOldest() {
	var oldestID string
	var oldest uint64
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastUsed < oldest {
			oldestID, oldest = id, sess.lastUsed
		}
	}
	delete(s.sessions, oldestID)
}
