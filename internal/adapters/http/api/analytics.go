package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/scoreline/internal/app"
	"github.com/okian/scoreline/internal/domain/leaderboard"
	"github.com/okian/scoreline/internal/domain/scoring"
	"github.com/okian/scoreline/internal/domain/stats"
	"github.com/okian/scoreline/internal/domain/summary"
	"github.com/okian/scoreline/internal/domain/trend"
	"github.com/okian/scoreline/pkg/logger"
)

// AnalyticsDependencies defines the read-side analytics the handlers need.
type AnalyticsDependencies interface {
	UserStats(ctx context.Context, userID string) (stats.Snapshot, error)
	UserTrend(ctx context.Context, userID, period string) (trend.Trend, error)
	MatchSummary(ctx context.Context, matchID string) (summary.MatchSummary, error)
	Leaderboard(ctx context.Context, req service.LeaderboardRequest) (leaderboard.Board, error)
	Distribution(ctx context.Context, period string) (stats.Distribution, error)
	SystemStats(ctx context.Context) (service.SystemStats, error)
	LeagueStats(ctx context.Context, league string) ([]stats.League, error)
}

type statsResponse struct {
	stats.Snapshot
	Hits              int     `json:"hits"`
	AccuracyPercent   float64 `json:"accuracy_percent"`
	ExactScorePercent float64 `json:"exact_score_percent"`
	AveragePoints     float64 `json:"average_points"`
	PointsEfficiency  float64 `json:"points_efficiency"`
}

type summaryResponse struct {
	summary.MatchSummary
	HomeWinPercent float64 `json:"home_win_percent"`
	DrawPercent    float64 `json:"draw_percent"`
	AwayWinPercent float64 `json:"away_win_percent"`
}

type leaderboardResponse struct {
	leaderboard.Board
	TopScore int `json:"top_score"`
}

type leaguesResponse struct {
	Leagues []stats.League `json:"leagues"`
}

type distributionResponse struct {
	stats.Distribution
	Shares map[scoring.Category]float64 `json:"shares"`
}

// AnalyticsHandler handles stats, trend, summary and leaderboard requests.
type AnalyticsHandler struct {
	deps   AnalyticsDependencies
	logger logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsDependencies, l logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps, logger: l}
}

// HandleUserStats handles GET /users/{id}/stats.
func (h *AnalyticsHandler) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.UserStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.user_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Snapshot:          snap,
		Hits:              snap.Hits(),
		AccuracyPercent:   snap.AccuracyPercent(),
		ExactScorePercent: snap.ExactScorePercent(),
		AveragePoints:     snap.AveragePoints(),
		PointsEfficiency:  snap.PointsEfficiency(),
	})
}

// HandleUserTrend handles GET /users/{id}/trend?period=.
func (h *AnalyticsHandler) HandleUserTrend(w http.ResponseWriter, r *http.Request) {
	tr, err := h.deps.UserTrend(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.user_trend", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// HandleMatchSummary handles GET /matches/{id}/summary.
func (h *AnalyticsHandler) HandleMatchSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.deps.MatchSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.match_summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		MatchSummary:   sum,
		HomeWinPercent: sum.HomeWinPercent(),
		DrawPercent:    sum.DrawPercent(),
		AwayWinPercent: sum.AwayWinPercent(),
	})
}

// HandleLeaderboard handles GET /leaderboard?metric=&period=&limit=&min_predictions=.
func (h *AnalyticsHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.leaderboard"
	q := r.URL.Query()
	req := service.LeaderboardRequest{Metric: q.Get("metric"), Period: q.Get("period")}
	var err error
	if req.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	if q.Get("min_predictions") != "" {
		n, err := queryInt(r, "min_predictions", 0)
		if err != nil {
			writeServiceError(r.Context(), w, h.logger, op, err)
			return
		}
		req.MinPredictions = &n
	}
	board, err := h.deps.Leaderboard(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{Board: board, TopScore: board.TopScore()})
}

// HandleDistribution handles GET /analytics/distribution?period=.
func (h *AnalyticsHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Distribution(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.distribution", err)
		return
	}
	shares := make(map[scoring.Category]float64, len(scoring.Categories))
	for _, c := range scoring.Categories {
		shares[c] = d.Share(c)
	}
	writeJSON(w, http.StatusOK, distributionResponse{Distribution: d, Shares: shares})
}

// HandleSystem handles GET /analytics/system.
func (h *AnalyticsHandler) HandleSystem(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.SystemStats(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.system_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleLeagues handles GET /analytics/leagues?league=.
func (h *AnalyticsHandler) HandleLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := h.deps.LeagueStats(r.Context(), r.URL.Query().Get("league"))
	if err != nil {
		writeServiceError(r.Context(), w, h.logger, "api.league_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, leaguesResponse{Leagues: leagues})
}
