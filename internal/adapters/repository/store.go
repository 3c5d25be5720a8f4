// Package repository defines the persistence contracts for matches,
// predictions and users, plus an in-memory implementation.
package repository

import (
	"context"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
)

// MatchRepository persists matches.
type MatchRepository interface {
	// Create inserts a new match.
	Create(ctx context.Context, m model.Match) error
	// Get returns the match or an error wrapping model.ErrNotFound.
	Get(ctx context.Context, id string) (model.Match, error)
	// GetForUpdate is Get that also holds the row until the surrounding
	// transaction ends, so no concurrent transition can commit in between.
	GetForUpdate(ctx context.Context, id string) (model.Match, error)
	// List returns matches passing f ordered by ScheduledAt, then ID.
	List(ctx context.Context, f model.MatchFilter) ([]model.Match, error)
	// Count returns how many matches pass f, ignoring pagination.
	Count(ctx context.Context, f model.MatchFilter) (int, error)
	// Update replaces the stored match only if its status still equals
	// expected. A mismatch returns ErrConflict.
	Update(ctx context.Context, m model.Match, expected model.MatchStatus) error
	// IncrementPredictions atomically adds delta to the prediction counter.
	IncrementPredictions(ctx context.Context, id string, delta int) error
	// LockDue locks every unlocked pending or postponed match scheduled at or
	// before cutoff and returns how many changed.
	LockDue(ctx context.Context, cutoff, now time.Time) (int, error)
}

// PredictionRepository persists predictions.
type PredictionRepository interface {
	// Create inserts p. A second prediction for the same (user, match)
	// returns an error wrapping model.ErrDuplicate.
	Create(ctx context.Context, p model.Prediction) error
	Get(ctx context.Context, id string) (model.Prediction, error)
	GetByUserAndMatch(ctx context.Context, userID, matchID string) (model.Prediction, error)
	// List returns predictions passing f ordered by CreatedAt, then ID.
	List(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error)
	Count(ctx context.Context, f model.PredictionFilter) (int, error)
	// Update replaces an unscored prediction. ErrConflict if it was scored meanwhile.
	Update(ctx context.Context, p model.Prediction) error
	// Settle stores the scoring outcome of p only while the stored copy is
	// unscored. It reports false when another writer scored it first.
	Settle(ctx context.Context, p model.Prediction) (bool, error)
	// Delete removes an unscored prediction. ErrConflict if it is scored.
	Delete(ctx context.Context, id string) error
	// DeleteByUser removes every prediction of userID, scored or not, and
	// returns how many were removed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// UserRepository persists users.
type UserRepository interface {
	// Create inserts u. Username (case-insensitive) and email are unique.
	Create(ctx context.Context, u model.User) error
	Get(ctx context.Context, id string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	// GetByEmail matches the normalised (lower-case) address exactly.
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// List returns users passing f ordered by CreatedAt, then ID.
	List(ctx context.Context, f model.UserFilter) ([]model.User, error)
	Count(ctx context.Context, f model.UserFilter) (int, error)
	// Update replaces profile fields and the active flag. Counters are left alone.
	Update(ctx context.Context, u model.User) error
	// IncrementTotals atomically adds to the denormalised counters.
	IncrementTotals(ctx context.Context, id string, predictions, points int) error
	// SetTotals overwrites the denormalised counters.
	SetTotals(ctx context.Context, id string, predictions, points int, now time.Time) error
	// Delete removes the user. Their predictions must be gone first.
	Delete(ctx context.Context, id string) error
}

// Store groups the repositories and provides transactions.
type Store interface {
	Matches() MatchRepository
	Predictions() PredictionRepository
	Users() UserRepository
	// Tx runs fn against a transactional view. Changes become visible to
	// other readers only, and all at once, when fn returns nil.
	Tx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close() error
}

// page applies offset and limit to n items and returns the [lo, hi) bounds.
func page(n, offset, limit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > n {
		offset = n
	}
	hi := n
	if limit > 0 && offset+limit < n {
		hi = offset + limit
	}
	return offset, hi
}
