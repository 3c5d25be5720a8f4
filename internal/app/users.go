package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// RegisterUser creates an active user. Username and email must be unused.
func (s *Service) RegisterUser(ctx context.Context, username, email, displayName string) (model.User, error) {
	const op = "service.register_user"
	u, err := model.NewUser(username, email, displayName, s.clock())
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	if err := s.store.Users().Create(ctx, u); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordUserRegistered()
	s.logger.Info(ctx, "user registered", logger.String("user_id", u.ID), logger.String("username", u.Username))
	return u, nil
}

// GetUser returns the user with id.
func (s *Service) GetUser(ctx context.Context, id string) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Users().Get(ctx, id)
}

// GetUserByUsername looks a user up case-insensitively.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Users().GetByUsername(ctx, username)
}

// GetUserByEmail looks a user up by address. Case and surrounding space
// are ignored, matching how addresses are stored.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListUsers returns a page of users and the unpaginated total.
func (s *Service) ListUsers(ctx context.Context, f model.UserFilter) ([]model.User, int, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	users, err := s.store.Users().List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.Users().Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateUser changes the email and/or display name.
func (s *Service) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (model.User, error) {
	const op = "service.update_user"
	return s.mutateUser(ctx, op, id, func(u model.User) (model.User, error) {
		return u.WithUpdate(upd, s.clock())
	})
}

// ActivateUser re-enables a user.
func (s *Service) ActivateUser(ctx context.Context, id string) (model.User, error) {
	return s.setActive(ctx, id, true)
}

// DeactivateUser disables a user. Inactive users cannot predict.
func (s *Service) DeactivateUser(ctx context.Context, id string) (model.User, error) {
	return s.setActive(ctx, id, false)
}

func (s *Service) setActive(ctx context.Context, id string, active bool) (model.User, error) {
	const op = "service.set_active"
	return s.mutateUser(ctx, op, id, func(u model.User) (model.User, error) {
		u.Active = active
		u.UpdatedAt = s.clock()
		return u, nil
	})
}

// RecordLogin stamps the user's last login time.
func (s *Service) RecordLogin(ctx context.Context, id string) (model.User, error) {
	const op = "service.record_login"
	return s.mutateUser(ctx, op, id, func(u model.User) (model.User, error) {
		now := s.clock()
		u.LastLoginAt = &now
		u.UpdatedAt = now
		return u, nil
	})
}

func (s *Service) mutateUser(ctx context.Context, op, id string, fn func(model.User) (model.User, error)) (model.User, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	cur, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	next, err := fn(cur)
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Users().Update(ctx, next); err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return next, nil
}

// DeleteUser deactivates the user, or with hard removes the user together
// with every prediction they made. Match counters drop accordingly.
func (s *Service) DeleteUser(ctx context.Context, id string, hard bool) error {
	const op = "service.delete_user"
	if !hard {
		if _, err := s.DeactivateUser(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	ctx, cancel := s.op(ctx)
	defer cancel()

	removed := 0
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().Get(ctx, id); err != nil {
			return err
		}
		preds, err := tx.Predictions().List(ctx, model.PredictionFilter{UserID: id})
		if err != nil {
			return err
		}
		for _, p := range preds {
			if err := tx.Matches().IncrementPredictions(ctx, p.MatchID, -1); err != nil {
				return err
			}
		}
		if removed, err = tx.Predictions().DeleteByUser(ctx, id); err != nil {
			return err
		}
		return tx.Users().Delete(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	s.logger.Info(ctx, "user deleted", logger.String("user_id", id), logger.Int("predictions", removed))
	return nil
}

// RecalculateUserTotals rebuilds the user's prediction count and points
// from the prediction log in one transaction and returns the updated user.
func (s *Service) RecalculateUserTotals(ctx context.Context, id string) (model.User, error) {
	const op = "service.recalculate_user_totals"
	ctx, cancel := s.op(ctx)
	defer cancel()

	var out model.User
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		if _, err := tx.Users().Get(ctx, id); err != nil {
			return err
		}
		preds, err := tx.Predictions().List(ctx, model.PredictionFilter{UserID: id})
		if err != nil {
			return err
		}
		points := 0
		for _, p := range preds {
			if p.IsScored && p.Points != nil {
				points += *p.Points
			}
		}
		if err := tx.Users().SetTotals(ctx, id, len(preds), points, s.clock()); err != nil {
			return err
		}
		out, err = tx.Users().Get(ctx, id)
		return err
	})
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, id)
	return out, nil
}
