package cache

import (
	"context"
	"sync"
	"time"

	"github.com/okian/scoreline/internal/domain/stats"
)

type memEntry struct {
	snap    stats.Snapshot
	expires time.Time
}

// Memory is a process-local StatsCache with per-entry expiry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	opts    options
}

var _ StatsCache = (*Memory)(nil)

// NewMemory constructs an empty memory cache.
func NewMemory(opts ...Option) *Memory {
	o := defaults()
	for _, opt := range opts {
		opt(&o)
	}
	return &Memory{entries: make(map[string]memEntry), opts: o}
}

func (c *Memory) Get(_ context.Context, userID string) (stats.Snapshot, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || !c.opts.now().Before(e.expires) {
		return stats.Snapshot{}, false, nil
	}
	return e.snap, true, nil
}

func (c *Memory) Set(_ context.Context, snap stats.Snapshot) error {
	c.mu.Lock()
	c.entries[snap.UserID] = memEntry{snap: snap, expires: c.opts.now().Add(c.opts.ttl)}
	c.mu.Unlock()
	return nil
}

func (c *Memory) Invalidate(_ context.Context, userIDs ...string) error {
	c.mu.Lock()
	for _, id := range userIDs {
		delete(c.entries, id)
	}
	c.mu.Unlock()
	return nil
}

// Len reports how many entries are held, expired ones included.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
