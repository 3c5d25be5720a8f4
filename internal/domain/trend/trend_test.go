package trend_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/trend"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, 7, 20, 22, 0, 0, 0, time.UTC)

func day(daysAgo int, hour int) time.Time {
	d := now.AddDate(0, 0, -daysAgo)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func pred(id, user string, points int, at time.Time) model.Prediction {
	return model.Prediction{ID: id, UserID: user, IsScored: true, Points: &points, ScoredAt: &at}
}

func pts(acc ...float64) []trend.Point {
	out := make([]trend.Point, len(acc))
	for i, a := range acc {
		out[i] = trend.Point{AccuracyPercent: a}
	}
	return out
}

func TestClassify(t *testing.T) {
	Convey("Fewer than two buckets is stable", t, func() {
		So(trend.Classify(nil), ShouldEqual, trend.Stable)
		So(trend.Classify(pts(100)), ShouldEqual, trend.Stable)
	})

	Convey("A rise above five points is improving", t, func() {
		So(trend.Classify(pts(40, 40, 40, 50, 50, 50)), ShouldEqual, trend.Improving)
	})

	Convey("A drop below minus five is declining", t, func() {
		So(trend.Classify(pts(60, 60, 60, 50, 50, 50)), ShouldEqual, trend.Declining)
	})

	Convey("Exactly five points is stable", t, func() {
		So(trend.Classify(pts(50, 50, 50, 55, 55, 55)), ShouldEqual, trend.Stable)
		So(trend.Classify(pts(55, 50)), ShouldEqual, trend.Stable)
	})

	Convey("With two buckets the windows overlap fully", t, func() {
		So(trend.Classify(pts(0, 100)), ShouldEqual, trend.Stable)
	})

	Convey("With four buckets the windows share the middle", t, func() {
		// first = mean(0,50,50) = 33.3, last = mean(50,50,100) = 66.7
		So(trend.Classify(pts(0, 50, 50, 100)), ShouldEqual, trend.Improving)
	})
}

func TestAnalyze(t *testing.T) {
	Convey("Given a user's predictions over several days", t, func() {
		var preds []model.Prediction
		add := func(daysAgo, hour, points int) {
			preds = append(preds, pred(fmt.Sprintf("p%d", len(preds)), "u1", points, day(daysAgo, hour)))
		}
		add(3, 10, 0)
		add(3, 11, 0)
		add(2, 9, 1)
		add(2, 21, 0)
		add(1, 12, 3)
		add(0, 8, 2)
		add(0, 9, 1)
		preds = append(preds, pred("other", "u2", 3, day(0, 1)))
		preds = append(preds, model.Prediction{ID: "pending", UserID: "u1"})

		tr := trend.Analyze("u1", preds, period.AllTime, now)

		Convey("Buckets are chronological per UTC day", func() {
			So(len(tr.Points), ShouldEqual, 4)
			So(tr.Points[0].Date, ShouldEqual, day(3, 0))
			So(tr.Points[0].AccuracyPercent, ShouldEqual, 0)
			So(tr.Points[1].PredictionsMade, ShouldEqual, 2)
			So(tr.Points[1].AccuracyPercent, ShouldEqual, 50.0)
			So(tr.Points[3].PointsEarned, ShouldEqual, 3)
		})

		Convey("Totals and direction are derived from the buckets", func() {
			So(tr.TotalPoints, ShouldEqual, 7)
			So(tr.AvgDailyAccuracy, ShouldEqual, 62.5)
			So(tr.Direction, ShouldEqual, trend.Improving)
		})

		Convey("The period restricts buckets", func() {
			dayTrend := trend.Analyze("u1", preds, period.Day, now)
			So(len(dayTrend.Points), ShouldEqual, 1)
			So(dayTrend.Direction, ShouldEqual, trend.Stable)
		})
	})

	Convey("No predictions give an empty stable trend", t, func() {
		tr := trend.Analyze("u1", nil, period.Month, now)
		So(tr.Points, ShouldBeEmpty)
		So(tr.Direction, ShouldEqual, trend.Stable)
		So(tr.AvgDailyAccuracy, ShouldEqual, 0)
	})
}
