// Package memory provides in-process implementations of domain ports.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrEmptySession is returned when writing without a session id.
var ErrEmptySession = errors.New("memory: session id cannot be empty")

type sessionEntry struct {
	term      string
	expiresAt time.Time
}

// SessionStore implements student.SessionStore in memory with a sliding TTL.
// Expired entries are dropped lazily on access and by Sweep.
type SessionStore struct {
	mu      sync.Mutex
	entries map[string]sessionEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewSessionStore creates a store. ttl <= 0 keeps entries forever.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		entries: make(map[string]sessionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// LastSearchTerm returns the stored term, or "" when absent or expired.
func (s *SessionStore) LastSearchTerm(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return "", nil
	}
	if s.expired(e) {
		delete(s.entries, sessionID)
		return "", nil
	}
	return e.term, nil
}

// SetLastSearchTerm overwrites the stored term and refreshes its TTL. An empty
// term clears it.
func (s *SessionStore) SetLastSearchTerm(_ context.Context, sessionID, term string) error {
	if sessionID == "" {
		return ErrEmptySession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if term == "" {
		delete(s.entries, sessionID)
		return nil
	}

	e := sessionEntry{term: term}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[sessionID] = e
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *SessionStore) expired(e sessionEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
