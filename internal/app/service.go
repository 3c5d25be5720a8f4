// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/scoreline/internal/adapters/cache"
	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
)

const (
	defaultOperationTimeout   = 5 * time.Second
	defaultLeaderboardLimit   = 20
	defaultMaxLeaderboard     = 100
	defaultRefreshConcurrency = 8
	unknownUsername           = "Unknown"
)

// Service implements match, prediction, user and analytics operations on
// top of a repository.Store.
type Service struct {
	store repository.Store
	cache cache.StatsCache

	// Configuration
	now                   func() time.Time
	opTimeout             time.Duration
	leaderboardLimit      int
	maxLeaderboardLimit   int
	defaultMinPredictions int
	refreshConcurrency    int

	statsFlight singleflight.Group

	// genMu guards gens, a per-user counter bumped on every invalidation.
	// A recompute only caches its snapshot if the counter did not move.
	genMu sync.Mutex
	gens  map[string]uint64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStatsCache sets the cache used for per-user stats snapshots.
func WithStatsCache(c cache.StatsCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOperationTimeout bounds every store interaction.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithLeaderboardLimits sets the default and maximum leaderboard size.
func WithLeaderboardLimits(def, max int) Option {
	return func(s *Service) {
		if def > 0 && max >= def {
			s.leaderboardLimit = def
			s.maxLeaderboardLimit = max
		}
	}
}

// WithDefaultMinPredictions sets the leaderboard qualification floor used
// when a request does not carry one.
func WithDefaultMinPredictions(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.defaultMinPredictions = n
		}
	}
}

// WithRefreshConcurrency caps parallel stats recomputation.
func WithRefreshConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.refreshConcurrency = n
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:               store,
		cache:               cache.Nop{},
		now:                 time.Now,
		opTimeout:           defaultOperationTimeout,
		leaderboardLimit:    defaultLeaderboardLimit,
		maxLeaderboardLimit: defaultMaxLeaderboard,
		refreshConcurrency:  defaultRefreshConcurrency,
		gens:                make(map[string]uint64),
		logger:              logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time { return s.now().UTC() }

// op derives the bounded context used for one store interaction.
func (s *Service) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// conflict turns a lost optimistic guard into a state error.
func conflict(err error, op, entity string) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %s %s: %v", model.ErrInvalidState, op, entity, err)
	}
	return err
}

// invalidate drops cached stats. Cache failures are logged, never returned.
func (s *Service) invalidate(ctx context.Context, userIDs ...string) {
	if len(userIDs) == 0 {
		return
	}
	s.genMu.Lock()
	for _, id := range userIDs {
		s.gens[id]++
	}
	s.genMu.Unlock()
	for _, id := range userIDs {
		s.statsFlight.Forget(id)
	}
	if err := s.cache.Invalidate(ctx, userIDs...); err != nil {
		s.cacheFailed(ctx, "invalidate", err)
	}
}

func (s *Service) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}
