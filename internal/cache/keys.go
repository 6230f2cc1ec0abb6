// internal/cache/keys.go
package cache

import (
	"fmt"
	"hash/fnv"
	"strings"

	"shiftwork-backend/internal/models"
)

// Key namespaces. Single-entity keys are "entityType:id"; filtered-list keys
// are "entityType:list:<hash>" over a canonical encoding of the filter set,
// so logically identical filters always map to the same entry.
const (
	shiftNamespace        = "shift"
	subscriptionNamespace = "subscription"
	sessionNamespace      = "session"
)

// ShiftKey returns the cache key for a single shift.
func ShiftKey(id string) string {
	return shiftNamespace + ":" + id
}

// ShiftListPattern matches every filtered shift listing. Write paths
// invalidate by this pattern because the list hashes are opaque.
func ShiftListPattern() string {
	return shiftNamespace + ":list:*"
}

// ShiftListKey returns the cache key for a filtered shift listing. The filter
// fields are encoded in a fixed order, so field ordering in the caller can
// never produce distinct keys for equal filters.
func ShiftListKey(f models.ShiftFilters) string {
	var b strings.Builder
	b.WriteString("venue=")
	b.WriteString(f.VenueID)
	b.WriteString("|status=")
	b.WriteString(string(f.Status))
	b.WriteString("|location=")
	b.WriteString(f.Location)
	b.WriteString("|skill=")
	b.WriteString(f.Skill)
	b.WriteString("|from=")
	if !f.From.IsZero() {
		b.WriteString(f.From.UTC().Format("2006-01-02T15:04:05Z"))
	}
	b.WriteString("|to=")
	if !f.To.IsZero() {
		b.WriteString(f.To.UTC().Format("2006-01-02T15:04:05Z"))
	}
	fmt.Fprintf(&b, "|limit=%d|offset=%d", f.Limit, f.Offset)

	h := fnv.New64a()
	_, _ = h.Write([]byte(b.String()))
	return fmt.Sprintf("%s:list:%016x", shiftNamespace, h.Sum64())
}

// SubscriptionKey returns the cache key for a requester's subscription mirror.
func SubscriptionKey(email string) string {
	return subscriptionNamespace + ":" + strings.ToLower(email)
}

// SessionKey returns the cache key for a session token.
func SessionKey(token string) string {
	return sessionNamespace + ":" + token
}
