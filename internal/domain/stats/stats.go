// Package stats aggregates a user's prediction history into counts, ratios and streaks.
package stats

import (
	"sort"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/scoring"
)

// Snapshot is the derived statistics of one user. Ratios are methods so the
// stored form only holds counts.
type Snapshot struct {
	UserID             string     `json:"user_id"`
	TotalPredictions   int        `json:"total_predictions"`
	ScoredPredictions  int        `json:"scored_predictions"`
	PendingPredictions int        `json:"pending_predictions"`
	ExactScores        int        `json:"exact_scores"`
	CorrectDifferences int        `json:"correct_differences"`
	CorrectOutcomes    int        `json:"correct_outcomes"`
	Incorrect          int        `json:"incorrect"`
	TotalPoints        int        `json:"total_points"`
	CurrentStreak      int        `json:"current_streak"`
	BestStreak         int        `json:"best_streak"`
	WorstStreak        int        `json:"worst_streak"`
	FirstPredictionAt  *time.Time `json:"first_prediction_at,omitempty"`
	LastPredictionAt   *time.Time `json:"last_prediction_at,omitempty"`
	ComputedAt         time.Time  `json:"computed_at"`
}

// Hits is the number of scored predictions that earned points.
func (s Snapshot) Hits() int {
	return s.ExactScores + s.CorrectDifferences + s.CorrectOutcomes
}

// AccuracyPercent is the share of scored predictions that earned points.
func (s Snapshot) AccuracyPercent() float64 { return Percent(s.Hits(), s.ScoredPredictions) }

// ExactScorePercent is the share of scored predictions that were exact.
func (s Snapshot) ExactScorePercent() float64 { return Percent(s.ExactScores, s.ScoredPredictions) }

// AveragePoints is points per scored prediction.
func (s Snapshot) AveragePoints() float64 { return Ratio(s.TotalPoints, s.ScoredPredictions) }

// PointsEfficiency compares earned points with the maximum possible.
func (s Snapshot) PointsEfficiency() float64 {
	return Percent(s.TotalPoints, s.ScoredPredictions*scoring.MaxPoints)
}

// Aggregate builds a snapshot from every prediction the user has made.
// Order of preds does not matter.
func Aggregate(userID string, preds []model.Prediction, now time.Time) Snapshot {
	s := Snapshot{UserID: userID, TotalPredictions: len(preds), ComputedAt: now.UTC()}

	scored := make([]model.Prediction, 0, len(preds))
	for i := range preds {
		p := preds[i]
		created := p.CreatedAt
		if s.FirstPredictionAt == nil || created.Before(*s.FirstPredictionAt) {
			s.FirstPredictionAt = &created
		}
		if s.LastPredictionAt == nil || created.After(*s.LastPredictionAt) {
			s.LastPredictionAt = &created
		}
		if !p.IsScored {
			continue
		}
		scored = append(scored, p)
		s.TotalPoints += p.PointsValue()
		switch scoring.CategoryForPoints(p.PointsValue()) {
		case scoring.CategoryExact:
			s.ExactScores++
		case scoring.CategoryDifference:
			s.CorrectDifferences++
		case scoring.CategoryOutcome:
			s.CorrectOutcomes++
		default:
			s.Incorrect++
		}
	}
	s.ScoredPredictions = len(scored)
	s.PendingPredictions = s.TotalPredictions - s.ScoredPredictions

	SortByScoredAt(scored)
	hits := make([]bool, len(scored))
	for i, p := range scored {
		hits[i] = p.Hit()
	}
	s.CurrentStreak, s.BestStreak, s.WorstStreak = Streaks(hits)
	return s
}

// SortByScoredAt orders scored predictions chronologically, ties by ID.
func SortByScoredAt(preds []model.Prediction) {
	sort.SliceStable(preds, func(i, j int) bool {
		a, b := scoredAt(preds[i]), scoredAt(preds[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return preds[i].ID < preds[j].ID
	})
}

func scoredAt(p model.Prediction) time.Time {
	if p.ScoredAt == nil {
		return time.Time{}
	}
	return *p.ScoredAt
}

// Streaks scans a chronological hit/miss sequence once. current is the
// trailing run of hits, best the longest run of hits, worst the longest run
// of misses.
func Streaks(hits []bool) (current, best, worst int) {
	var hitRun, missRun int
	for _, hit := range hits {
		if hit {
			hitRun++
			missRun = 0
			if hitRun > best {
				best = hitRun
			}
		} else {
			missRun++
			hitRun = 0
			if missRun > worst {
				worst = missRun
			}
		}
	}
	return hitRun, best, worst
}
