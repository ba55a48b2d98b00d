package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const fieldLastTerm = "last_term"

// SessionStore implements student.SessionStore on top of Cache.
// Each write refreshes the session TTL.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewSessionStore creates a store. ttl <= 0 uses TTLSessionData.
func NewSessionStore(cache *Cache, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = TTLSessionData
	}
	return &SessionStore{
		cache: cache,
		ttl:   ttl,
	}
}

// LastSearchTerm returns the stored term, or "" when the session has none.
func (s *SessionStore) LastSearchTerm(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", nil
	}

	term, err := s.cache.GetString(ctx, SessionKey(sessionID, fieldLastTerm))
	if errors.Is(err, ErrCacheMiss) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis: read session %s: %w", sessionID, err)
	}
	return term, nil
}

// SetLastSearchTerm overwrites the stored term. An empty term clears it.
func (s *SessionStore) SetLastSearchTerm(ctx context.Context, sessionID, term string) error {
	if sessionID == "" {
		return ErrCacheKeyEmpty
	}
	key := SessionKey(sessionID, fieldLastTerm)
	if term == "" {
		if err := s.cache.Delete(ctx, key); err != nil {
			return fmt.Errorf("redis: clear session %s: %w", sessionID, err)
		}
		return nil
	}
	if err := s.cache.SetString(ctx, key, term, s.ttl); err != nil {
		return fmt.Errorf("redis: write session %s: %w", sessionID, err)
	}
	return nil
}
