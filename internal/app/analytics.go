package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/scoreline/internal/domain/leaderboard"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/stats"
	"github.com/okian/scoreline/internal/domain/summary"
	"github.com/okian/scoreline/internal/domain/trend"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

// UserStats returns the user's statistics, from cache when possible.
// Concurrent misses for one user share a single recompute.
func (s *Service) UserStats(ctx context.Context, userID string) (stats.Snapshot, error) {
	const op = "service.user_stats"
	if snap, ok, err := s.cache.Get(ctx, userID); err != nil {
		s.cacheFailed(ctx, "get", err)
	} else if ok {
		metrics.RecordStatsCacheHit()
		return snap, nil
	}
	metrics.RecordStatsCacheMiss()

	// The shared recompute must not die with whichever caller started it.
	fctx := context.WithoutCancel(ctx)
	v, err, _ := s.statsFlight.Do(userID, func() (any, error) {
		return s.computeStats(fctx, userID)
	})
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return v.(stats.Snapshot), nil
}

// RefreshUserStats recomputes and re-caches one user's statistics.
func (s *Service) RefreshUserStats(ctx context.Context, userID string) (stats.Snapshot, error) {
	const op = "service.refresh_user_stats"
	s.invalidate(ctx, userID)
	snap, err := s.computeStats(ctx, userID)
	if err != nil {
		return stats.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// RefreshAllUserStats recomputes every user's statistics with bounded
// parallelism and returns how many were refreshed.
func (s *Service) RefreshAllUserStats(ctx context.Context) (int, error) {
	const op = "service.refresh_all_user_stats"
	users, _, err := s.ListUsers(ctx, model.UserFilter{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.refreshConcurrency)
	for _, u := range users {
		id := u.ID
		g.Go(func() error {
			_, err := s.RefreshUserStats(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Info(ctx, "user stats refreshed", logger.Int("users", len(users)))
	return len(users), nil
}

// computeStats aggregates the user's prediction log. The result is cached
// only when no write invalidated the user while it was being read.
func (s *Service) computeStats(ctx context.Context, userID string) (stats.Snapshot, error) {
	gen := s.generation(userID)
	qctx, cancel := s.op(ctx)
	defer cancel()
	if _, err := s.store.Users().Get(qctx, userID); err != nil {
		return stats.Snapshot{}, err
	}
	preds, err := s.store.Predictions().List(qctx, model.PredictionFilter{UserID: userID})
	if err != nil {
		return stats.Snapshot{}, err
	}
	snap := stats.Aggregate(userID, preds, s.clock())
	if s.generation(userID) != gen {
		return snap, nil
	}
	if err := s.cache.Set(ctx, snap); err != nil {
		s.cacheFailed(ctx, "set", err)
		return snap, nil
	}
	if s.generation(userID) != gen {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.cacheFailed(ctx, "invalidate", err)
		}
	}
	return snap, nil
}

func (s *Service) cacheFailed(ctx context.Context, action string, err error) {
	metrics.RecordStatsCacheError()
	s.logger.Warn(ctx, "stats cache "+action+" failed", logger.Error(err))
}

// LeaderboardRequest carries the raw leaderboard parameters. Empty strings
// and nil pointers take the configured defaults.
type LeaderboardRequest struct {
	Metric         string
	Period         string
	Limit          int
	MinPredictions *int
}

// Leaderboard ranks users over the requested period and joins usernames.
func (s *Service) Leaderboard(ctx context.Context, req LeaderboardRequest) (leaderboard.Board, error) {
	const op = "service.leaderboard"
	start := time.Now()
	metric, err := leaderboard.ParseMetric(req.Metric)
	if err != nil {
		return leaderboard.Board{}, fmt.Errorf("%s: %w", op, err)
	}
	p, err := period.Parse(req.Period, period.AllTime)
	if err != nil {
		return leaderboard.Board{}, fmt.Errorf("%s: %w", op, err)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.leaderboardLimit
	}
	if limit > s.maxLeaderboardLimit {
		limit = s.maxLeaderboardLimit
	}
	minPreds := s.defaultMinPredictions
	if req.MinPredictions != nil {
		if *req.MinPredictions < 0 {
			return leaderboard.Board{}, fmt.Errorf("%s: %w", op, model.Invalid("min_predictions", "must not be negative"))
		}
		minPreds = *req.MinPredictions
	}

	now := s.clock()
	preds, err := s.scoredIn(ctx, period.Resolve(p, now))
	if err != nil {
		return leaderboard.Board{}, fmt.Errorf("%s: %w", op, err)
	}
	board, err := leaderboard.Rank(preds, leaderboard.Query{
		Metric:         metric,
		Period:         p,
		Limit:          limit,
		MinPredictions: minPreds,
		Now:            now,
	})
	if err != nil {
		return leaderboard.Board{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.joinUsernames(ctx, board.Entries); err != nil {
		return leaderboard.Board{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordLeaderboardQuery(string(metric), string(p), float64(time.Since(start).Microseconds())/1000)
	return board, nil
}

func (s *Service) joinUsernames(ctx context.Context, entries []leaderboard.Entry) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	for i := range entries {
		u, err := s.store.Users().Get(ctx, entries[i].UserID)
		switch {
		case err == nil:
			entries[i].Username = u.Username
		case errors.Is(err, model.ErrNotFound):
			entries[i].Username = unknownUsername
		default:
			return err
		}
	}
	return nil
}

// scoredIn lists scored predictions whose ScoredAt falls in w.
func (s *Service) scoredIn(ctx context.Context, w period.Window) ([]model.Prediction, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()
	scored := true
	return s.store.Predictions().List(ctx, model.PredictionFilter{Scored: &scored, ScoredFrom: w.Start, ScoredTo: w.End})
}

// UserTrend buckets the user's scored predictions by day over the period.
func (s *Service) UserTrend(ctx context.Context, userID, periodName string) (trend.Trend, error) {
	const op = "service.user_trend"
	p, err := period.Parse(periodName, period.Month)
	if err != nil {
		return trend.Trend{}, fmt.Errorf("%s: %w", op, err)
	}
	qctx, cancel := s.op(ctx)
	defer cancel()
	if _, err := s.store.Users().Get(qctx, userID); err != nil {
		return trend.Trend{}, fmt.Errorf("%s: %w", op, err)
	}
	scored := true
	preds, err := s.store.Predictions().List(qctx, model.PredictionFilter{UserID: userID, Scored: &scored})
	if err != nil {
		return trend.Trend{}, fmt.Errorf("%s: %w", op, err)
	}
	return trend.Analyze(userID, preds, p, s.clock()), nil
}

// MatchSummary aggregates the predictions placed on a match.
func (s *Service) MatchSummary(ctx context.Context, matchID string) (summary.MatchSummary, error) {
	const op = "service.match_summary"
	ctx, cancel := s.op(ctx)
	defer cancel()
	m, err := s.store.Matches().Get(ctx, matchID)
	if err != nil {
		return summary.MatchSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	preds, err := s.store.Predictions().List(ctx, model.PredictionFilter{MatchID: matchID})
	if err != nil {
		return summary.MatchSummary{}, fmt.Errorf("%s: %w", op, err)
	}
	return summary.Summarize(m, preds), nil
}

// Distribution counts scoring categories over the period.
func (s *Service) Distribution(ctx context.Context, periodName string) (stats.Distribution, error) {
	const op = "service.distribution"
	p, err := period.Parse(periodName, period.AllTime)
	if err != nil {
		return stats.Distribution{}, fmt.Errorf("%s: %w", op, err)
	}
	w := period.Resolve(p, s.clock())
	preds, err := s.scoredIn(ctx, w)
	if err != nil {
		return stats.Distribution{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats.Distribute(preds, p, w), nil
}

// LeagueStats groups matches by league. A non-empty league narrows the
// result to leagues whose name contains it, ignoring case.
func (s *Service) LeagueStats(ctx context.Context, league string) ([]stats.League, error) {
	const op = "service.league_stats"
	ctx, cancel := s.op(ctx)
	defer cancel()
	ms, err := s.store.Matches().List(ctx, model.MatchFilter{League: strings.TrimSpace(league)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats.ByLeague(ms), nil
}

// SystemStats is a point-in-time overview of the whole system.
type SystemStats struct {
	TotalUsers             int       `json:"total_users"`
	ActiveUsers            int       `json:"active_users"`
	TotalMatches           int       `json:"total_matches"`
	FinishedMatches        int       `json:"finished_matches"`
	PendingMatches         int       `json:"pending_matches"`
	TotalPredictions       int       `json:"total_predictions"`
	ScoredPredictions      int       `json:"scored_predictions"`
	AvgPredictionsPerMatch float64   `json:"avg_predictions_per_match"`
	AvgPredictionsPerUser  float64   `json:"avg_predictions_per_user"`
	GlobalAccuracyPercent  float64   `json:"global_accuracy_percent"`
	GeneratedAt            time.Time `json:"generated_at"`
}

// SystemStats gathers the counts concurrently.
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	const op = "service.system_stats"
	ctx, cancel := s.op(ctx)
	defer cancel()

	var (
		out  SystemStats
		hits int
		yes  = true
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.TotalUsers, err = s.store.Users().Count(gctx, model.UserFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.ActiveUsers, err = s.store.Users().Count(gctx, model.UserFilter{ActiveOnly: true})
		return err
	})
	g.Go(func() (err error) {
		out.TotalMatches, err = s.store.Matches().Count(gctx, model.MatchFilter{})
		return err
	})
	g.Go(func() (err error) {
		out.FinishedMatches, err = s.store.Matches().Count(gctx, model.MatchFilter{Statuses: []model.MatchStatus{model.StatusFinished}})
		return err
	})
	g.Go(func() (err error) {
		out.PendingMatches, err = s.store.Matches().Count(gctx, model.MatchFilter{Statuses: []model.MatchStatus{model.StatusPending}})
		return err
	})
	g.Go(func() (err error) {
		out.TotalPredictions, err = s.store.Predictions().Count(gctx, model.PredictionFilter{})
		return err
	})
	g.Go(func() error {
		scored, err := s.store.Predictions().List(gctx, model.PredictionFilter{Scored: &yes})
		if err != nil {
			return err
		}
		out.ScoredPredictions = len(scored)
		for _, p := range scored {
			if p.Hit() {
				hits++
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return SystemStats{}, fmt.Errorf("%s: %w", op, err)
	}
	out.AvgPredictionsPerMatch = stats.Ratio(out.TotalPredictions, out.TotalMatches)
	out.AvgPredictionsPerUser = stats.Ratio(out.TotalPredictions, out.TotalUsers)
	out.GlobalAccuracyPercent = stats.Percent(hits, out.ScoredPredictions)
	out.GeneratedAt = s.clock()
	return out, nil
}

// PublishStoreRecords sets the per-table record gauges from row counts.
func (s *Service) PublishStoreRecords(ctx context.Context) error {
	const op = "service.publish_store_records"
	ctx, cancel := s.op(ctx)
	defer cancel()

	users, err := s.store.Users().Count(ctx, model.UserFilter{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	matches, err := s.store.Matches().Count(ctx, model.MatchFilter{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	preds, err := s.store.Predictions().Count(ctx, model.PredictionFilter{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	metrics.UpdateStoreRecords("users", users)
	metrics.UpdateStoreRecords("matches", matches)
	metrics.UpdateStoreRecords("predictions", preds)
	return nil
}
