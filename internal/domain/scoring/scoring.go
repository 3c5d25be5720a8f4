// Package scoring awards points for a predicted scoreline against the actual one.
package scoring

import (
	"fmt"

	"github.com/okian/scoreline/internal/domain/model"
)

// Point values per category.
const (
	PointsExact      = 3
	PointsDifference = 2
	PointsOutcome    = 1
	PointsIncorrect  = 0

	MaxPoints = PointsExact
)

// Category names the accuracy class of a scored prediction.
type Category string

const (
	CategoryExact      Category = "exact_score"
	CategoryDifference Category = "correct_difference"
	CategoryOutcome    Category = "correct_outcome"
	CategoryIncorrect  Category = "incorrect"
)

// Categories lists every category from best to worst.
var Categories = []Category{CategoryExact, CategoryDifference, CategoryOutcome, CategoryIncorrect}

// Result is the scoring verdict for one prediction.
type Result struct {
	Points    int      `json:"points"`
	Category  Category `json:"category"`
	Rationale string   `json:"rationale"`
}

// Score compares a predicted scoreline with the actual one. The first rule
// that matches wins: exact score, then outcome plus goal difference, then
// outcome alone.
func Score(predHome, predAway, actualHome, actualAway int) Result {
	predicted := fmt.Sprintf("%d-%d", predHome, predAway)
	actual := fmt.Sprintf("%d-%d", actualHome, actualAway)

	if predHome == actualHome && predAway == actualAway {
		return Result{
			Points:    PointsExact,
			Category:  CategoryExact,
			Rationale: fmt.Sprintf("exact score: predicted %s, actual %s", predicted, actual),
		}
	}

	po := model.OutcomeOf(predHome, predAway)
	ao := model.OutcomeOf(actualHome, actualAway)
	if po == ao {
		pd, ad := predHome-predAway, actualHome-actualAway
		if pd == ad {
			return Result{
				Points:   PointsDifference,
				Category: CategoryDifference,
				Rationale: fmt.Sprintf("correct outcome and goal difference: predicted %s (diff %+d), actual %s (diff %+d)",
					predicted, pd, actual, ad),
			}
		}
		return Result{
			Points:    PointsOutcome,
			Category:  CategoryOutcome,
			Rationale: fmt.Sprintf("correct outcome (%s): predicted %s, actual %s", ao, predicted, actual),
		}
	}

	return Result{
		Points:    PointsIncorrect,
		Category:  CategoryIncorrect,
		Rationale: fmt.Sprintf("incorrect: predicted %s (%s), actual %s (%s)", predicted, po, actual, ao),
	}
}

// Evaluate scores p against a finished match.
func Evaluate(p model.Prediction, m model.Match) (Result, error) {
	if !m.Finished() {
		return Result{}, &model.StateError{Op: "score against", Entity: "match", Status: string(m.Status)}
	}
	return Score(p.PredictedHome, p.PredictedAway, *m.HomeScore, *m.AwayScore), nil
}

// CategoryForPoints maps an awarded point value back to its category.
func CategoryForPoints(points int) Category {
	switch points {
	case PointsExact:
		return CategoryExact
	case PointsDifference:
		return CategoryDifference
	case PointsOutcome:
		return CategoryOutcome
	default:
		return CategoryIncorrect
	}
}
