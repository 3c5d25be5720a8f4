package stats

import (
	"sort"

	"github.com/okian/scoreline/internal/domain/model"
)

// League aggregates the matches of one league. Goal averages only count
// finished matches.
type League struct {
	League           string  `json:"league"`
	TotalMatches     int     `json:"total_matches"`
	FinishedMatches  int     `json:"finished_matches"`
	PendingMatches   int     `json:"pending_matches"`
	TotalPredictions int     `json:"total_predictions"`
	AvgHomeGoals     float64 `json:"avg_home_goals"`
	AvgAwayGoals     float64 `json:"avg_away_goals"`
}

// ByLeague groups ms by league, busiest league first. Ties sort by name.
func ByLeague(ms []model.Match) []League {
	type acc struct {
		League
		home, away int
	}
	groups := make(map[string]*acc)
	for _, m := range ms {
		g, ok := groups[m.League]
		if !ok {
			g = &acc{League: League{League: m.League}}
			groups[m.League] = g
		}
		g.TotalMatches++
		g.TotalPredictions += m.TotalPredictions
		switch m.Status {
		case model.StatusFinished:
			g.FinishedMatches++
			g.home += *m.HomeScore
			g.away += *m.AwayScore
		case model.StatusPending:
			g.PendingMatches++
		}
	}

	out := make([]League, 0, len(groups))
	for _, g := range groups {
		g.AvgHomeGoals = Ratio(g.home, g.FinishedMatches)
		g.AvgAwayGoals = Ratio(g.away, g.FinishedMatches)
		out = append(out, g.League)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalMatches != out[j].TotalMatches {
			return out[i].TotalMatches > out[j].TotalMatches
		}
		return out[i].League < out[j].League
	})
	return out
}
