// Package summary describes how the crowd predicted a single match.
package summary

import (
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/stats"
)

// MatchSummary aggregates the predictions placed on one match.
type MatchSummary struct {
	MatchID            string            `json:"match_id"`
	HomeTeam           string            `json:"home_team"`
	AwayTeam           string            `json:"away_team"`
	Status             model.MatchStatus `json:"status"`
	TotalPredictions   int               `json:"total_predictions"`
	HomeWin            int               `json:"home_win"`
	Draw               int               `json:"draw"`
	AwayWin            int               `json:"away_win"`
	MostPredictedScore string            `json:"most_predicted_score,omitempty"`
	MostPredictedCount int               `json:"most_predicted_count"`
	AvgPredictedHome   float64           `json:"avg_predicted_home"`
	AvgPredictedAway   float64           `json:"avg_predicted_away"`
	ActualHome         *int              `json:"actual_home,omitempty"`
	ActualAway         *int              `json:"actual_away,omitempty"`
}

// HomeWinPercent is the share of predictions backing the home side.
func (s MatchSummary) HomeWinPercent() float64 { return stats.Percent(s.HomeWin, s.TotalPredictions) }

// DrawPercent is the share of predictions calling a draw.
func (s MatchSummary) DrawPercent() float64 { return stats.Percent(s.Draw, s.TotalPredictions) }

// AwayWinPercent is the share of predictions backing the away side.
func (s MatchSummary) AwayWinPercent() float64 { return stats.Percent(s.AwayWin, s.TotalPredictions) }

// Summarize aggregates preds for m. Predictions for other matches are ignored.
// Among equally popular scorelines the one that appears first in preds wins.
func Summarize(m model.Match, preds []model.Prediction) MatchSummary {
	s := MatchSummary{
		MatchID:    m.ID,
		HomeTeam:   m.HomeTeam,
		AwayTeam:   m.AwayTeam,
		Status:     m.Status,
		ActualHome: m.HomeScore,
		ActualAway: m.AwayScore,
	}

	counts := make(map[string]int)
	var order []string
	var homeGoals, awayGoals int
	for i := range preds {
		p := preds[i]
		if p.MatchID != m.ID {
			continue
		}
		s.TotalPredictions++
		homeGoals += p.PredictedHome
		awayGoals += p.PredictedAway
		switch p.PredictedOutcome() {
		case model.OutcomeHomeWin:
			s.HomeWin++
		case model.OutcomeAwayWin:
			s.AwayWin++
		default:
			s.Draw++
		}
		line := p.PredictedLine()
		if counts[line] == 0 {
			order = append(order, line)
		}
		counts[line]++
	}
	for _, line := range order {
		if counts[line] > s.MostPredictedCount {
			s.MostPredictedCount = counts[line]
			s.MostPredictedScore = line
		}
	}
	s.AvgPredictedHome = stats.Ratio(homeGoals, s.TotalPredictions)
	s.AvgPredictedAway = stats.Ratio(awayGoals, s.TotalPredictions)
	return s
}
