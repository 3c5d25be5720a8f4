// Package trend buckets a user's scored predictions per day and classifies
// whether their accuracy is moving up or down.
package trend

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/stats"
)

// Direction of a user's accuracy over the period.
type Direction string

const (
	Improving Direction = "improving"
	Declining Direction = "declining"
	Stable    Direction = "stable"
)

const (
	// edgeBuckets is how many buckets each end of the series contributes.
	edgeBuckets = 3
	// threshold is the accuracy swing, in percentage points, that counts as a trend.
	threshold = 5.0
)

// Point aggregates one UTC calendar day.
type Point struct {
	Date            time.Time `json:"date"`
	PredictionsMade int       `json:"predictions_made"`
	PointsEarned    int       `json:"points_earned"`
	Hits            int       `json:"hits"`
	AccuracyPercent float64   `json:"accuracy_percent"`
}

// Trend is the per-day series for one user.
type Trend struct {
	UserID           string        `json:"user_id"`
	Period           period.Period `json:"period"`
	Points           []Point       `json:"points"`
	Direction        Direction     `json:"direction"`
	TotalPoints      int           `json:"total_points"`
	AvgDailyAccuracy float64       `json:"avg_daily_accuracy"`
}

// Analyze builds the daily series for the user's predictions scored inside the period.
func Analyze(userID string, preds []model.Prediction, p period.Period, now time.Time) Trend {
	w := period.Resolve(p, now)
	byDay := make(map[time.Time]*Point)
	for i := range preds {
		pr := preds[i]
		if pr.UserID != userID || !pr.IsScored || pr.ScoredAt == nil || !w.Contains(*pr.ScoredAt) {
			continue
		}
		at := pr.ScoredAt.UTC()
		day := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
		pt, ok := byDay[day]
		if !ok {
			pt = &Point{Date: day}
			byDay[day] = pt
		}
		pt.PredictionsMade++
		pt.PointsEarned += pr.PointsValue()
		if pr.Hit() {
			pt.Hits++
		}
	}

	t := Trend{UserID: userID, Period: p, Points: make([]Point, 0, len(byDay))}
	for _, pt := range byDay {
		pt.AccuracyPercent = stats.Percent(pt.Hits, pt.PredictionsMade)
		t.Points = append(t.Points, *pt)
		t.TotalPoints += pt.PointsEarned
	}
	sort.Slice(t.Points, func(i, j int) bool { return t.Points[i].Date.Before(t.Points[j].Date) })

	t.Direction = Classify(t.Points)
	if len(t.Points) > 0 {
		t.AvgDailyAccuracy = stats.Round2(stat.Mean(accuracies(t.Points), nil))
	}
	return t
}

// Classify compares the mean accuracy of the last buckets with the first ones.
func Classify(points []Point) Direction {
	if len(points) < 2 {
		return Stable
	}
	n := edgeBuckets
	if len(points) < n {
		n = len(points)
	}
	acc := accuracies(points)
	first := stat.Mean(acc[:n], nil)
	last := stat.Mean(acc[len(acc)-n:], nil)
	switch diff := last - first; {
	case diff > threshold:
		return Improving
	case diff < -threshold:
		return Declining
	default:
		return Stable
	}
}

func accuracies(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.AccuracyPercent
	}
	return out
}
