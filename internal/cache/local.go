package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value     []byte
	expiresAt time.Time
}

// Local is an in-process TTL map. Expired entries are dropped lazily on
// read and by Sweep.
type Local struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time
}

// NewLocal creates an empty local tier.
func NewLocal() *Local {
	return &Local{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

// Get returns the value and its remaining TTL.
func (l *Local) Get(key string) ([]byte, time.Duration, bool) {
	l.mu.RLock()
	e, ok := l.entries[key]
	l.mu.RUnlock()
	if !ok {
		return nil, 0, false
	}
	remaining := e.expiresAt.Sub(l.now())
	if remaining <= 0 {
		l.mu.Lock()
		if cur, ok := l.entries[key]; ok && !cur.expiresAt.After(l.now()) {
			delete(l.entries, key)
		}
		l.mu.Unlock()
		return nil, 0, false
	}
	return e.value, remaining, true
}

// Set stores value for ttl. A non-positive ttl deletes the key.
func (l *Local) Set(key string, value []byte, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ttl <= 0 {
		delete(l.entries, key)
		return
	}
	l.entries[key] = localEntry{value: value, expiresAt: l.now().Add(ttl)}
}

// Delete removes key.
func (l *Local) Delete(key string) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Sweep removes expired entries and returns how many were removed.
func (l *Local) Sweep() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, e := range l.entries {
		if !e.expiresAt.After(now) {
			delete(l.entries, k)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (l *Local) Clear() {
	l.mu.Lock()
	l.entries = make(map[string]localEntry)
	l.mu.Unlock()
}

// RunSweeper sweeps every interval until ctx is done.
func (l *Local) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
