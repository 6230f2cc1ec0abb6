// internal/cache/session.go
package cache

import (
	"context"
	"encoding/json"
	"time"

	"shiftwork-backend/internal/models"
)

// SessionStore keeps authenticated-principal snapshots in a dedicated cache
// namespace with a TTL, replacing any process-wide session map. Entries expire
// on their own; Revoke removes one eagerly.
type SessionStore struct {
	cache *Cache
	ttl   time.Duration
}

func NewSessionStore(c *Cache, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: c, ttl: ttl}
}

// Put stores the principal under the session token.
func (s *SessionStore) Put(ctx context.Context, token string, p models.Principal) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	s.cache.Set(ctx, SessionKey(token), data, s.ttl)
}

// Lookup returns the principal for token, if the session is still live.
func (s *SessionStore) Lookup(ctx context.Context, token string) (models.Principal, bool) {
	data, ok := s.cache.Get(ctx, SessionKey(token))
	if !ok {
		return models.Principal{}, false
	}
	var p models.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Principal{}, false
	}
	return p, true
}

// Revoke removes the session eagerly.
func (s *SessionStore) Revoke(ctx context.Context, token string) {
	s.cache.Delete(ctx, SessionKey(token))
}
