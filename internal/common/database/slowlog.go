// internal/common/database/slowlog.go
package database

import (
	"sync"
	"time"
)

// SlowQuery is one recorded slow operation.
type SlowQuery struct {
	Name       string        `json:"name"`
	Duration   time.Duration `json:"duration"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// SlowQueryLog is a fixed-capacity ring buffer of the most recent slow
// operations. Oldest entries are evicted once the capacity is reached; the
// collection never grows unbounded.
type SlowQueryLog struct {
	mu       sync.Mutex
	entries  []SlowQuery
	capacity int
	next     int
	full     bool
}

func NewSlowQueryLog(capacity int) *SlowQueryLog {
	if capacity <= 0 {
		capacity = 100
	}
	return &SlowQueryLog{
		entries:  make([]SlowQuery, capacity),
		capacity: capacity,
	}
}

// Record appends q, evicting the oldest entry when full.
func (l *SlowQueryLog) Record(q SlowQuery) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = q
	l.next = (l.next + 1) % l.capacity
	if l.next == 0 {
		l.full = true
	}
}

// Snapshot returns the recorded entries in insertion order, oldest first.
func (l *SlowQueryLog) Snapshot() []SlowQuery {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]SlowQuery, l.next)
		copy(out, l.entries[:l.next])
		return out
	}

	out := make([]SlowQuery, 0, l.capacity)
	out = append(out, l.entries[l.next:]...)
	out = append(out, l.entries[:l.next]...)
	return out
}

// Len reports how many entries are currently held.
func (l *SlowQueryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.full {
		return l.capacity
	}
	return l.next
}
