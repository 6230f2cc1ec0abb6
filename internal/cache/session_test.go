// internal/cache/session_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftwork-backend/internal/models"
)

func TestSessionStore_PutLookupRevoke(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewSessionStore(c, time.Hour)
	ctx := context.Background()

	principal := models.Principal{ID: "venue-1", Email: "venue@example.com", Role: "venue"}
	store.Put(ctx, "token-abc", principal)

	got, ok := store.Lookup(ctx, "token-abc")
	require.True(t, ok)
	assert.Equal(t, principal.ID, got.ID)
	assert.Equal(t, principal.Role, got.Role)

	store.Revoke(ctx, "token-abc")

	_, ok = store.Lookup(ctx, "token-abc")
	assert.False(t, ok)
}

func TestSessionStore_ExpiresWithTTL(t *testing.T) {
	c, mr := newTestCache(t)
	store := NewSessionStore(c, time.Minute)
	ctx := context.Background()

	store.Put(ctx, "token-abc", models.Principal{ID: "pro-1", Role: "professional"})
	mr.FastForward(2 * time.Minute)

	_, ok := store.Lookup(ctx, "token-abc")
	assert.False(t, ok)
}
