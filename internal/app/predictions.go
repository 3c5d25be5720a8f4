package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// CreatePrediction stores a user's forecast for a predictable match and
// bumps the match and user counters in the same transaction.
func (s *Service) CreatePrediction(ctx context.Context, userID, matchID string, home, away int) (model.Prediction, error) {
	const op = "service.create_prediction"
	p, err := model.NewPrediction(userID, matchID, home, away, s.clock())
	if err != nil {
		metrics.RecordPredictionRejected(rejectReason(err))
		return model.Prediction{}, fmt.Errorf("%s: %w", op, err)
	}
	ctx, cancel := s.op(ctx)
	defer cancel()

	err = s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		if err := canPredict(ctx, tx, userID, matchID, true); err != nil {
			return err
		}
		if err := tx.Predictions().Create(ctx, p); err != nil {
			return err
		}
		if err := tx.Matches().IncrementPredictions(ctx, matchID, 1); err != nil {
			return err
		}
		return tx.Users().IncrementTotals(ctx, userID, 1, 0)
	})
	if err != nil {
		metrics.RecordPredictionRejected(rejectReason(err))
		return model.Prediction{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordPredictionCreated()
	s.invalidate(ctx, userID)
	s.logger.Debug(ctx, "prediction created",
		logger.String("prediction_id", p.ID),
		logger.String("user_id", userID),
		logger.String("match_id", matchID),
		logger.String("score", p.PredictedLine()),
	)
	return p, nil
}

// UpdatePrediction changes the predicted score. Only the owner may do so,
// only before scoring, and only while the match is predictable.
func (s *Service) UpdatePrediction(ctx context.Context, id, userID string, home, away *int) (model.Prediction, error) {
	const op = "service.update_prediction"
	ctx, cancel := s.op(ctx)
	defer cancel()

	var out model.Prediction
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		p, err := ownedUnscored(ctx, tx, id, userID, "update")
		if err != nil {
			return err
		}
		m, err := tx.Matches().GetForUpdate(ctx, p.MatchID)
		if err != nil {
			return err
		}
		if reason, ok := matchOpen(m); !ok {
			return model.NotAllowed(reason)
		}
		next, err := p.WithScores(home, away, s.clock())
		if err != nil {
			return err
		}
		if err := tx.Predictions().Update(ctx, next); err != nil {
			return conflict(err, "update", "prediction")
		}
		out = next
		return nil
	})
	if err != nil {
		return model.Prediction{}, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)
	return out, nil
}

// DeletePrediction removes an unscored prediction owned by userID and
// decrements the counters it contributed to.
func (s *Service) DeletePrediction(ctx context.Context, id, userID string) error {
	const op = "service.delete_prediction"
	ctx, cancel := s.op(ctx)
	defer cancel()

	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		p, err := ownedUnscored(ctx, tx, id, userID, "delete")
		if err != nil {
			return err
		}
		if err := tx.Predictions().Delete(ctx, id); err != nil {
			return conflict(err, "delete", "prediction")
		}
		if err := tx.Matches().IncrementPredictions(ctx, p.MatchID, -1); err != nil {
			return err
		}
		return tx.Users().IncrementTotals(ctx, userID, -1, 0)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// GetPrediction returns the prediction with id.
func (s *Service) GetPrediction(ctx context.Context, id string) (model.Prediction, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Predictions().Get(ctx, id)
}

// GetUserPrediction returns userID's prediction for matchID.
func (s *Service) GetUserPrediction(ctx context.Context, userID, matchID string) (model.Prediction, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Predictions().GetByUserAndMatch(ctx, userID, matchID)
}

// UserPredictions lists a user's predictions, optionally only scored ones.
func (s *Service) UserPredictions(ctx context.Context, userID string, scoredOnly bool, limit, offset int) ([]model.Prediction, error) {
	f := model.PredictionFilter{UserID: userID, Limit: limit, Offset: offset}
	if scoredOnly {
		f.Scored = &scoredOnly
	}
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.store.Predictions().List(ctx, f)
}

// MatchPredictions lists every prediction for a match.
func (s *Service) MatchPredictions(ctx context.Context, matchID string) ([]model.Prediction, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	if _, err := s.store.Matches().Get(ctx, matchID); err != nil {
		return nil, err
	}
	return s.store.Predictions().List(ctx, model.PredictionFilter{MatchID: matchID})
}

// CanUserPredict reports whether userID may create a prediction for
// matchID and, when not, why.
func (s *Service) CanUserPredict(ctx context.Context, userID, matchID string) (bool, string, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	err := canPredict(ctx, s.store, userID, matchID, false)
	if err == nil {
		if _, err := s.store.Predictions().GetByUserAndMatch(ctx, userID, matchID); err == nil {
			return false, "prediction already exists", nil
		} else if !errors.Is(err, model.ErrNotFound) {
			return false, "", err
		}
		return true, "", nil
	}
	switch {
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrPredictionNotAllowed):
		return false, err.Error(), nil
	default:
		return false, "", err
	}
}

// canPredict checks that the user exists and is active and that the match
// exists and is open. Inside a transaction lock holds the match row so it
// cannot leave the open state before the caller's write commits.
func canPredict(ctx context.Context, st repository.Store, userID, matchID string, lock bool) error {
	u, err := st.Users().Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.Active {
		return model.NotAllowed("user is inactive")
	}
	get := st.Matches().Get
	if lock {
		get = st.Matches().GetForUpdate
	}
	m, err := get(ctx, matchID)
	if err != nil {
		return err
	}
	if reason, ok := matchOpen(m); !ok {
		return model.NotAllowed(reason)
	}
	return nil
}

func matchOpen(m model.Match) (string, bool) {
	switch {
	case m.Predictable():
		return "", true
	case m.Status != model.StatusPending && m.Status != model.StatusPostponed:
		return fmt.Sprintf("match is %s", m.Status), false
	default:
		return "predictions are locked", false
	}
}

func ownedUnscored(ctx context.Context, tx repository.Store, id, userID, action string) (model.Prediction, error) {
	p, err := tx.Predictions().Get(ctx, id)
	if err != nil {
		return model.Prediction{}, err
	}
	if p.UserID != userID {
		return model.Prediction{}, model.NotAllowed("prediction belongs to another user")
	}
	if p.IsScored {
		return model.Prediction{}, &model.StateError{Op: action, Entity: "prediction", Status: "scored"}
	}
	return p, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, model.ErrValidation):
		return "validation"
	case errors.Is(err, model.ErrDuplicate):
		return "duplicate"
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrPredictionNotAllowed):
		return "not_allowed"
	default:
		return "error"
	}
}
