package portal

import (
	"sync"
	"time"
)

type planningKey struct {
	userID string
	day    string // YYYY-MM-DD
}

type planningEntry struct {
	events    []PlanningEvent
	fetchedAt time.Time
}

// PlanningCache is a small in-memory TTL cache for planning results, keyed by
// (user, day). Reads share a lock; writes are exclusive. The clock is injected
// so expiry is testable without wall time.
type PlanningCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[planningKey]planningEntry
}

func NewPlanningCache(ttl time.Duration, now func() time.Time) *PlanningCache {
	if now == nil {
		now = time.Now
	}
	return &PlanningCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[planningKey]planningEntry),
	}
}

// Get returns the cached events when the entry is younger than the TTL.
func (pc *PlanningCache) Get(userID, day string) ([]PlanningEvent, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	entry, ok := pc.entries[planningKey{userID, day}]
	if !ok {
		return nil, false
	}
	if pc.now().Sub(entry.fetchedAt) >= pc.ttl {
		return nil, false
	}
	return entry.events, true
}

// Put stores events for (user, day), stamping them with the current time.
func (pc *PlanningCache) Put(userID, day string, events []PlanningEvent) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.entries[planningKey{userID, day}] = planningEntry{events: events, fetchedAt: pc.now()}
}
