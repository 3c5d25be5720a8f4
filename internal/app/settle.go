package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scoreline/internal/adapters/repository"
	"github.com/okian/scoreline/internal/domain/lifecycle"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/scoring"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// settlement is what one scoring pass changed.
type settlement struct {
	results []scoring.Result
	users   []string
}

func (st settlement) count() int { return len(st.results) }

// FinishMatch records the final score, settles every unscored prediction
// and adds the points to their owners, all in one transaction. It returns
// the finished match and how many predictions were scored.
func (s *Service) FinishMatch(ctx context.Context, id string, home, away int) (model.Match, int, error) {
	const op = "service.finish_match"
	ctx, cancel := s.op(ctx)
	defer cancel()

	var (
		out model.Match
		st  settlement
	)
	start := time.Now()
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		cur, err := tx.Matches().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		next, err := lifecycle.Finish(cur, home, away, s.clock())
		if err != nil {
			return err
		}
		if err := tx.Matches().Update(ctx, next, cur.Status); err != nil {
			return conflict(err, lifecycle.TransitionFinish, "match")
		}
		out = next
		st, err = s.settle(ctx, tx, next)
		return err
	})
	if err != nil {
		return model.Match{}, 0, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordMatchTransition(lifecycle.TransitionFinish)
	s.settled(ctx, out, st, start)
	return out, st.count(), nil
}

// ScoreFinishedMatch re-runs scoring for a finished match. Already scored
// predictions are left alone, so a second run returns 0.
func (s *Service) ScoreFinishedMatch(ctx context.Context, id string) (int, error) {
	const op = "service.score_finished_match"
	ctx, cancel := s.op(ctx)
	defer cancel()

	var (
		m  model.Match
		st settlement
	)
	start := time.Now()
	err := s.store.Tx(ctx, func(ctx context.Context, tx repository.Store) error {
		cur, err := tx.Matches().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Finished() {
			return &model.StateError{Op: "score", Entity: "match", Status: string(cur.Status)}
		}
		m = cur
		st, err = s.settle(ctx, tx, cur)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.settled(ctx, m, st, start)
	return st.count(), nil
}

// ScorePendingMatches sweeps every finished match for unscored predictions.
func (s *Service) ScorePendingMatches(ctx context.Context) (int, error) {
	const op = "service.score_pending_matches"
	ms, _, err := s.ListMatches(ctx, model.MatchFilter{Statuses: []model.MatchStatus{model.StatusFinished}})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	total := 0
	for _, m := range ms {
		n, err := s.ScoreFinishedMatch(ctx, m.ID)
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}
		total += n
	}
	return total, nil
}

// settle scores each unscored prediction of m inside tx. A prediction that
// another writer settled first is skipped and contributes no points.
func (s *Service) settle(ctx context.Context, tx repository.Store, m model.Match) (settlement, error) {
	unscored := false
	preds, err := tx.Predictions().List(ctx, model.PredictionFilter{MatchID: m.ID, Scored: &unscored})
	if err != nil {
		return settlement{}, err
	}
	now := s.clock()
	var st settlement
	for _, p := range preds {
		res, err := scoring.Evaluate(p, m)
		if err != nil {
			return settlement{}, err
		}
		scored, err := p.Settle(res.Points, res.Rationale, *m.HomeScore, *m.AwayScore, now)
		if err != nil {
			return settlement{}, err
		}
		ok, err := tx.Predictions().Settle(ctx, scored)
		if err != nil {
			return settlement{}, err
		}
		if !ok {
			continue
		}
		if err := tx.Users().IncrementTotals(ctx, p.UserID, 0, res.Points); err != nil {
			return settlement{}, err
		}
		st.results = append(st.results, res)
		st.users = append(st.users, p.UserID)
	}
	return st, nil
}

// settled publishes metrics and drops cached stats after a committed pass.
func (s *Service) settled(ctx context.Context, m model.Match, st settlement, start time.Time) {
	for _, r := range st.results {
		metrics.RecordPredictionScored(string(r.Category), r.Points)
	}
	metrics.RecordScoringLatency(float64(time.Since(start).Microseconds()) / 1000)
	s.invalidate(ctx, st.users...)
	s.logger.Info(ctx, "match scored",
		logger.String("match_id", m.ID),
		logger.String("result", m.String()),
		logger.Int("scored", st.count()),
	)
}
