package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/lifecycle"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// CreateMatch schedules a new pending match.
func (s *Service) CreateMatch(ctx context.Context, spec model.MatchSpec) (model.Match, error) {
	const op = "service.create_match"
	m, err := model.NewMatch(spec, s.clock())
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	if err := s.store.Matches().Create(ctx, m); err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "match created", logger.String("match_id", m.ID), logger.String("fixture", m.String()))
	return m, nil
}

// CreateMatches schedules every valid spec and skips the rest.
func (s *Service) CreateMatches(ctx context.Context, specs []model.MatchSpec) ([]model.Match, error) {
	out := make([]model.Match, 0, len(specs))
	for i, spec := range specs {
		m, err := s.CreateMatch(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s.logger.Warn(ctx, "skipping match", logger.Int("index", i), logger.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetMatch returns the match with id.
func (s *Service) GetMatch(ctx context.Context, id string) (model.Match, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Matches().Get(ctx, id)
}

// ListMatches returns a page of matches and the unpaginated total.
func (s *Service) ListMatches(ctx context.Context, f model.MatchFilter) ([]model.Match, int, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	ms, err := s.store.Matches().List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Matches().Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ms, total, nil
}

// UpcomingMatches lists pending or postponed matches scheduled within the next days.
func (s *Service) UpcomingMatches(ctx context.Context, days, limit int) ([]model.Match, error) {
	if days <= 0 {
		days = 7
	}
	now := s.clock()
	ms, _, err := s.ListMatches(ctx, model.MatchFilter{
		Statuses:      []model.MatchStatus{model.StatusPending, model.StatusPostponed},
		ScheduledFrom: now,
		ScheduledTo:   now.Add(time.Duration(days) * 24 * time.Hour),
		Limit:         limit,
	})
	return ms, err
}

// PredictableMatches lists matches currently open for predictions.
func (s *Service) PredictableMatches(ctx context.Context, limit int) ([]model.Match, error) {
	yes := true
	ms, _, err := s.ListMatches(ctx, model.MatchFilter{Predictable: &yes, Limit: limit})
	return ms, err
}

// UpdateMatchDetails edits teams, sport, league or season.
func (s *Service) UpdateMatchDetails(ctx context.Context, id string, d model.MatchDetails) (model.Match, error) {
	return s.transition(ctx, id, "edit", func(m model.Match) (model.Match, error) {
		return m.WithDetails(d, s.clock())
	})
}

// StartMatch moves the match to live and locks predictions.
func (s *Service) StartMatch(ctx context.Context, id string) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionStart, func(m model.Match) (model.Match, error) {
		return lifecycle.Start(m, s.clock())
	})
}

// CancelMatch makes the match terminal without a result.
func (s *Service) CancelMatch(ctx context.Context, id, reason string) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionCancel, func(m model.Match) (model.Match, error) {
		return lifecycle.Cancel(m, reason, s.clock())
	})
}

// PostponeMatch marks the match postponed, optionally with a new time.
func (s *Service) PostponeMatch(ctx context.Context, id string, newTime *time.Time) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionPostpone, func(m model.Match) (model.Match, error) {
		return lifecycle.Postpone(m, newTime, s.clock())
	})
}

// RescheduleMatch returns the match to pending at a new future time.
func (s *Service) RescheduleMatch(ctx context.Context, id string, at time.Time) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionReschedule, func(m model.Match) (model.Match, error) {
		return lifecycle.Reschedule(m, at, s.clock())
	})
}

// LockMatch closes predictions. Locking a locked match is a no-op.
func (s *Service) LockMatch(ctx context.Context, id string) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionLock, func(m model.Match) (model.Match, error) {
		next, _ := lifecycle.Lock(m, s.clock())
		return next, nil
	})
}

// UnlockMatch reopens predictions on a pending or postponed match.
func (s *Service) UnlockMatch(ctx context.Context, id string) (model.Match, error) {
	return s.transition(ctx, id, lifecycle.TransitionUnlock, func(m model.Match) (model.Match, error) {
		return lifecycle.Unlock(m, s.clock())
	})
}

// AutoLockStartingMatches locks every open match starting within
// minutesBefore minutes and returns how many changed.
func (s *Service) AutoLockStartingMatches(ctx context.Context, minutesBefore int) (int, error) {
	const op = "service.auto_lock"
	now := s.clock()
	ctx, cancel := s.op(ctx)
	defer cancel()
	n, err := s.store.Matches().LockDue(ctx, lifecycle.LockCutoff(now, minutesBefore), now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordMatchesAutoLocked(n)
	if n > 0 {
		s.logger.Info(ctx, "auto-locked matches", logger.Int("count", n), logger.Int("minutes_before", minutesBefore))
	}
	return n, nil
}

// transition applies fn to the stored match and writes the result back
// guarded by the status it was read in.
func (s *Service) transition(ctx context.Context, id, name string, fn func(model.Match) (model.Match, error)) (model.Match, error) {
	op := "service.match." + name
	ctx, cancel := s.op(ctx)
	defer cancel()

	var out model.Match
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		cur, err := tx.Matches().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		if err := tx.Matches().Update(ctx, next, cur.Status); err != nil {
			return conflict(err, name, "match")
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Match{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordMatchTransition(name)
	s.logger.Debug(ctx, "match transition", logger.String("match_id", id), logger.String("transition", name),
		logger.String("status", string(out.Status)))
	return out, nil
}
