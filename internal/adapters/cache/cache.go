// Package cache holds advisory caches for derived user statistics. A cache
// miss or failure never changes a result; it only costs a recompute.
package cache

import (
	"context"
	"time"

	"github.com/okian/scoreline/internal/domain/stats"
)

const defaultTTL = 5 * time.Minute

// StatsCache stores per-user stats snapshots.
type StatsCache interface {
	// Get returns the cached snapshot and whether it was present.
	Get(ctx context.Context, userID string) (stats.Snapshot, bool, error)
	Set(ctx context.Context, snap stats.Snapshot) error
	// Invalidate drops the snapshots of the given users.
	Invalidate(ctx context.Context, userIDs ...string) error
}

// Nop caches nothing.
type Nop struct{}

var _ StatsCache = Nop{}

func (Nop) Get(context.Context, string) (stats.Snapshot, bool, error) { return stats.Snapshot{}, false, nil }
func (Nop) Set(context.Context, stats.Snapshot) error                 { return nil }
func (Nop) Invalidate(context.Context, ...string) error               { return nil }

// Option configures a cache.
type Option func(*options)

type options struct {
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func defaults() options {
	return options{ttl: defaultTTL, prefix: "scoreline:stats:", now: time.Now}
}

// WithTTL sets how long a snapshot stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the key namespace used by the redis cache.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithClock overrides the time source used for expiry in the memory cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
