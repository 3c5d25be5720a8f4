package stats_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	"github.com/okian/scoreline/internal/domain/scoring"
	"github.com/okian/scoreline/internal/domain/stats"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func scored(id string, points int, at time.Time) model.Prediction {
	pts := points
	ts := at
	return model.Prediction{ID: id, UserID: "u1", IsScored: true, Points: &pts, ScoredAt: &ts, CreatedAt: at.Add(-time.Hour)}
}

func TestStreaks(t *testing.T) {
	Convey("Given hit, hit, miss, hit", t, func() {
		cur, best, worst := stats.Streaks([]bool{true, true, false, true})
		So(cur, ShouldEqual, 1)
		So(best, ShouldEqual, 2)
		So(worst, ShouldEqual, 1)
	})

	Convey("Given an empty history", t, func() {
		cur, best, worst := stats.Streaks(nil)
		So(cur, ShouldEqual, 0)
		So(best, ShouldEqual, 0)
		So(worst, ShouldEqual, 0)
	})

	Convey("Given a history ending in misses", t, func() {
		cur, best, worst := stats.Streaks([]bool{true, false, false, false})
		So(cur, ShouldEqual, 0)
		So(best, ShouldEqual, 1)
		So(worst, ShouldEqual, 3)
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given a mixed history delivered out of order", t, func() {
		preds := []model.Prediction{
			scored("d", 1, base.Add(3*time.Hour)),
			scored("a", 3, base),
			scored("c", 0, base.Add(2*time.Hour)),
			scored("b", 2, base.Add(time.Hour)),
			{ID: "e", UserID: "u1", CreatedAt: base.Add(5 * time.Hour)},
		}

		s := stats.Aggregate("u1", preds, base.Add(6*time.Hour))

		Convey("Counts are sums per category", func() {
			So(s.TotalPredictions, ShouldEqual, 5)
			So(s.ScoredPredictions, ShouldEqual, 4)
			So(s.PendingPredictions, ShouldEqual, 1)
			So(s.ExactScores, ShouldEqual, 1)
			So(s.CorrectDifferences, ShouldEqual, 1)
			So(s.CorrectOutcomes, ShouldEqual, 1)
			So(s.Incorrect, ShouldEqual, 1)
			So(s.TotalPoints, ShouldEqual, 6)
		})

		Convey("Streaks follow scoring order, not input order", func() {
			So(s.CurrentStreak, ShouldEqual, 1)
			So(s.BestStreak, ShouldEqual, 2)
			So(s.WorstStreak, ShouldEqual, 1)
		})

		Convey("Ratios are rounded to two places", func() {
			So(s.AccuracyPercent(), ShouldEqual, 75.0)
			So(s.ExactScorePercent(), ShouldEqual, 25.0)
			So(s.AveragePoints(), ShouldEqual, 1.5)
			So(s.PointsEfficiency(), ShouldEqual, 50.0)
		})

		Convey("First and last prediction times come from creation", func() {
			So(*s.FirstPredictionAt, ShouldEqual, base.Add(-time.Hour))
			So(*s.LastPredictionAt, ShouldEqual, base.Add(5*time.Hour))
		})
	})

	Convey("Given no scored predictions", t, func() {
		s := stats.Aggregate("u1", []model.Prediction{{ID: "x", CreatedAt: base}}, base)
		So(s.ScoredPredictions, ShouldEqual, 0)
		So(s.AccuracyPercent(), ShouldEqual, 0)
		So(s.AveragePoints(), ShouldEqual, 0)
		So(s.PointsEfficiency(), ShouldEqual, 0)
		So(s.ExactScorePercent(), ShouldEqual, 0)
	})

	Convey("Given nothing at all", t, func() {
		s := stats.Aggregate("u1", nil, base)
		So(s.TotalPredictions, ShouldEqual, 0)
		So(s.FirstPredictionAt, ShouldBeNil)
		So(s.CurrentStreak, ShouldEqual, 0)
	})

	Convey("Equal scoring times fall back to ID order", t, func() {
		preds := []model.Prediction{scored("b", 0, base), scored("a", 3, base)}
		s := stats.Aggregate("u1", preds, base)
		// a (hit) then b (miss)
		So(s.CurrentStreak, ShouldEqual, 0)
		So(s.BestStreak, ShouldEqual, 1)
	})
}

func TestRatios(t *testing.T) {
	Convey("Ratios round half away from zero to two places", t, func() {
		So(stats.Percent(1, 3), ShouldEqual, 33.33)
		So(stats.Percent(2, 3), ShouldEqual, 66.67)
		So(stats.Ratio(5, 3), ShouldEqual, 1.67)
		So(stats.Round2(2.345), ShouldEqual, 2.35)
		So(stats.Percent(3, 0), ShouldEqual, 0)
		So(stats.Ratio(3, 0), ShouldEqual, 0)
	})
}

func TestDistribute(t *testing.T) {
	Convey("Given predictions across two days", t, func() {
		now := time.Date(2025, 4, 2, 18, 0, 0, 0, time.UTC)
		var preds []model.Prediction
		for i, pts := range []int{3, 2, 1, 0, 0} {
			preds = append(preds, scored(fmt.Sprint(i), pts, now.Add(-time.Duration(i)*time.Hour)))
		}
		preds = append(preds, scored("old", 3, now.AddDate(0, 0, -1)))
		preds = append(preds, model.Prediction{ID: "pending"})

		Convey("All time counts every scored prediction", func() {
			d := stats.Distribute(preds, period.AllTime, period.Resolve(period.AllTime, now))
			So(d.Total, ShouldEqual, 6)
			So(d.ExactScores, ShouldEqual, 2)
			So(d.Share(scoring.CategoryIncorrect), ShouldEqual, 33.33)
		})

		Convey("Day restricts to today", func() {
			d := stats.Distribute(preds, period.Day, period.Resolve(period.Day, now))
			So(d.Total, ShouldEqual, 5)
			So(d.Count(scoring.CategoryExact), ShouldEqual, 1)
			So(d.Share(scoring.CategoryIncorrect), ShouldEqual, 40.0)
		})

		Convey("An empty distribution has zero shares", func() {
			d := stats.Distribute(nil, period.Day, period.Resolve(period.Day, now))
			So(d.Share(scoring.CategoryExact), ShouldEqual, 0)
		})
	})
}

func TestByLeague(t *testing.T) {
	Convey("Given matches across two leagues", t, func() {
		h1, a1, h2, a2 := 3, 1, 0, 0
		ms := []model.Match{
			{League: "Serie A", Status: model.StatusFinished, HomeScore: &h1, AwayScore: &a1, TotalPredictions: 4},
			{League: "Serie A", Status: model.StatusFinished, HomeScore: &h2, AwayScore: &a2, TotalPredictions: 2},
			{League: "Serie A", Status: model.StatusPending, TotalPredictions: 1},
			{League: "Eredivisie", Status: model.StatusLive},
		}

		out := stats.ByLeague(ms)

		So(out, ShouldHaveLength, 2)
		So(out[0].League, ShouldEqual, "Serie A")
		So(out[0].TotalMatches, ShouldEqual, 3)
		So(out[0].FinishedMatches, ShouldEqual, 2)
		So(out[0].PendingMatches, ShouldEqual, 1)
		So(out[0].TotalPredictions, ShouldEqual, 7)
		So(out[0].AvgHomeGoals, ShouldEqual, 1.5)
		So(out[0].AvgAwayGoals, ShouldEqual, 0.5)

		Convey("A league without finished matches averages zero goals", func() {
			So(out[1].League, ShouldEqual, "Eredivisie")
			So(out[1].AvgHomeGoals, ShouldEqual, 0)
		})
	})

	Convey("No matches yield no leagues", t, func() {
		So(stats.ByLeague(nil), ShouldBeEmpty)
	})
}
