package stats

import (
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/scoring"
)

// Distribution counts scored predictions per accuracy category.
type Distribution struct {
	Period             period.Period `json:"period"`
	ExactScores        int           `json:"exact_scores"`
	CorrectDifferences int           `json:"correct_differences"`
	CorrectOutcomes    int           `json:"correct_outcomes"`
	Incorrect          int           `json:"incorrect"`
	Total              int           `json:"total"`
}

// Share returns the percentage of the total that falls in c.
func (d Distribution) Share(c scoring.Category) float64 {
	return Percent(d.Count(c), d.Total)
}

// Count returns the count for c.
func (d Distribution) Count(c scoring.Category) int {
	switch c {
	case scoring.CategoryExact:
		return d.ExactScores
	case scoring.CategoryDifference:
		return d.CorrectDifferences
	case scoring.CategoryOutcome:
		return d.CorrectOutcomes
	case scoring.CategoryIncorrect:
		return d.Incorrect
	}
	return 0
}

// Distribute counts scored predictions whose scoring time falls in w.
func Distribute(preds []model.Prediction, p period.Period, w period.Window) Distribution {
	d := Distribution{Period: p}
	for i := range preds {
		pr := preds[i]
		if !pr.IsScored || pr.ScoredAt == nil || !w.Contains(*pr.ScoredAt) {
			continue
		}
		d.Total++
		switch scoring.CategoryForPoints(pr.PointsValue()) {
		case scoring.CategoryExact:
			d.ExactScores++
		case scoring.CategoryDifference:
			d.CorrectDifferences++
		case scoring.CategoryOutcome:
			d.CorrectOutcomes++
		default:
			d.Incorrect++
		}
	}
	return d
}
