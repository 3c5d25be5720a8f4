// Package leaderboard ranks users over a period from their scored predictions.
package leaderboard

import (
	"sort"
	"strings"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/scoring"
	"github.com/okian/scoreline/internal/domain/stats"
)

// Metric selects the ranking key.
type Metric string

const (
	MetricPoints      Metric = "points"
	MetricAccuracy    Metric = "accuracy"
	MetricExactScores Metric = "exact_scores"
	// MetricEfficiency ranks like MetricAccuracy.
	MetricEfficiency Metric = "efficiency"
)

// Metrics lists the supported ranking keys.
var Metrics = []Metric{MetricPoints, MetricAccuracy, MetricExactScores, MetricEfficiency}

// ParseMetric validates s. An empty string means points.
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MetricPoints, nil
	}
	m := Metric(s)
	for _, known := range Metrics {
		if m == known {
			return m, nil
		}
	}
	return "", model.Invalid("metric", "unknown metric %q", s)
}

// Query parameterises one ranking.
type Query struct {
	Metric         Metric
	Period         period.Period
	Limit          int // <= 0 returns every qualified user
	MinPredictions int
	Now            time.Time
}

// Entry is one ranked row.
type Entry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"user_id"`
	Username         string  `json:"username"`
	TotalPoints      int     `json:"total_points"`
	TotalPredictions int     `json:"total_predictions"`
	ExactScores      int     `json:"exact_scores"`
	Hits             int     `json:"hits"`
	AccuracyPercent  float64 `json:"accuracy_percent"`
}

// AveragePoints is points per ranked prediction.
func (e Entry) AveragePoints() float64 { return stats.Ratio(e.TotalPoints, e.TotalPredictions) }

// Board is a ranked leaderboard.
type Board struct {
	Metric            Metric        `json:"metric"`
	Period            period.Period `json:"period"`
	Entries           []Entry       `json:"entries"`
	TotalParticipants int           `json:"total_participants"`
	PeriodStart       *time.Time    `json:"period_start,omitempty"`
	PeriodEnd         *time.Time    `json:"period_end,omitempty"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// TopScore is the points total of the first entry, zero when empty.
func (b Board) TopScore() int {
	if len(b.Entries) == 0 {
		return 0
	}
	return b.Entries[0].TotalPoints
}

// UserIDs lists the ranked users in order.
func (b Board) UserIDs() []string {
	ids := make([]string, len(b.Entries))
	for i, e := range b.Entries {
		ids[i] = e.UserID
	}
	return ids
}

// Rank groups scored predictions inside the query window by user and orders
// them by the metric, then by prediction count, then by user ID. Ranks are
// sequential; users tied on every key still get distinct ranks.
func Rank(preds []model.Prediction, q Query) (Board, error) {
	if q.Metric == "" {
		q.Metric = MetricPoints
	}
	if _, err := ParseMetric(string(q.Metric)); err != nil {
		return Board{}, err
	}
	if q.Period == "" {
		q.Period = period.AllTime
	}
	if _, err := period.Parse(string(q.Period), period.AllTime); err != nil {
		return Board{}, err
	}

	w := period.Resolve(q.Period, q.Now)
	board := Board{Metric: q.Metric, Period: q.Period, GeneratedAt: q.Now.UTC(), Entries: []Entry{}}
	if w.Bounded() {
		start, end := w.Start, w.End
		board.PeriodStart, board.PeriodEnd = &start, &end
	}

	groups := make(map[string]*Entry)
	for i := range preds {
		p := preds[i]
		if !p.IsScored || p.ScoredAt == nil || !w.Contains(*p.ScoredAt) {
			continue
		}
		e, ok := groups[p.UserID]
		if !ok {
			e = &Entry{UserID: p.UserID}
			groups[p.UserID] = e
		}
		pts := p.PointsValue()
		e.TotalPredictions++
		e.TotalPoints += pts
		if pts > 0 {
			e.Hits++
		}
		if pts == scoring.PointsExact {
			e.ExactScores++
		}
	}

	floor := q.MinPredictions
	if floor < 0 {
		floor = 0
	}
	entries := make([]Entry, 0, len(groups))
	for _, e := range groups {
		if e.TotalPredictions < floor {
			continue
		}
		e.AccuracyPercent = stats.Percent(e.Hits, e.TotalPredictions)
		entries = append(entries, *e)
	}

	key := sortKey(q.Metric)
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if ka, kb := key(a), key(b); ka != kb {
			return ka > kb
		}
		if a.TotalPredictions != b.TotalPredictions {
			return a.TotalPredictions > b.TotalPredictions
		}
		return a.UserID < b.UserID
	})

	board.TotalParticipants = len(entries)
	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	board.Entries = entries
	return board, nil
}

func sortKey(m Metric) func(Entry) float64 {
	switch m {
	case MetricAccuracy, MetricEfficiency:
		return func(e Entry) float64 { return e.AccuracyPercent }
	case MetricExactScores:
		return func(e Entry) float64 { return float64(e.ExactScores) }
	default:
		return func(e Entry) float64 { return float64(e.TotalPoints) }
	}
}
