// Package history keeps the per-session conversation log. The store is
// the only per-session mutable state in the process.
package history

import (
	"sync"

	"github.com/medassist-ai/medassist/datatypes"
)

// MaxTurns caps the number of turns retained per session. Older turns
// are evicted oldest-first.
const MaxTurns = 20

// Store is the session history collaborator used by the chat service and
// the clear endpoint.
//
// Append must be atomic with respect to the cap: callers append a full
// user/assistant exchange in one call and the store enforces the cap
// under a single critical section, so a concurrent reader never observes
// an over-long or half-written history.
type Store interface {
	Append(sessionID string, turns ...datatypes.Turn)
	Recent(sessionID string, n int) []datatypes.Turn
	Clear(sessionID string)
}

// MemoryStore is an in-memory Store keyed by session ID with per-session
// locking.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionHistory
}

type sessionHistory struct {
	mu    sync.Mutex
	turns []datatypes.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionHistory)}
}

func (s *MemoryStore) session(id string) *sessionHistory {
	s.mu.RLock()
	h, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.sessions[id]; ok {
		return h
	}
	h = &sessionHistory{}
	s.sessions[id] = h
	return h
}

// Append adds turns to the session's history, creating the session on
// first use, and evicts oldest turns beyond MaxTurns.
func (s *MemoryStore) Append(sessionID string, turns ...datatypes.Turn) {
	h := s.session(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, turns...)
	if overflow := len(h.turns) - MaxTurns; overflow > 0 {
		h.turns = append([]datatypes.Turn(nil), h.turns[overflow:]...)
	}
}

// Recent returns a copy of the last n turns, oldest first. n <= 0 or
// n larger than the history returns everything.
func (s *MemoryStore) Recent(sessionID string, n int) []datatypes.Turn {
	h := s.session(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()

	if n <= 0 || n > len(h.turns) {
		n = len(h.turns)
	}
	out := make([]datatypes.Turn, n)
	copy(out, h.turns[len(h.turns)-n:])
	return out
}

// Clear drops the session's history. Clearing an unknown session is a
// no-op.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}
