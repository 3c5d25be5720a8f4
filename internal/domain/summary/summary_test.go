package summary_test

import (
	"testing"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/summary"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSummarize(t *testing.T) {
	Convey("Given a finished match and its predictions", t, func() {
		h, a := 2, 1
		m := model.Match{ID: "m1", HomeTeam: "Lyon", AwayTeam: "Nice", Status: model.StatusFinished, HomeScore: &h, AwayScore: &a}
		preds := []model.Prediction{
			{MatchID: "m1", PredictedHome: 1, PredictedAway: 0},
			{MatchID: "m1", PredictedHome: 2, PredictedAway: 2},
			{MatchID: "m1", PredictedHome: 2, PredictedAway: 2},
			{MatchID: "m1", PredictedHome: 1, PredictedAway: 0},
			{MatchID: "m1", PredictedHome: 0, PredictedAway: 3},
			{MatchID: "m2", PredictedHome: 9, PredictedAway: 9},
		}

		s := summary.Summarize(m, preds)

		Convey("Outcome counts and shares are computed", func() {
			So(s.TotalPredictions, ShouldEqual, 5)
			So(s.HomeWin, ShouldEqual, 2)
			So(s.Draw, ShouldEqual, 2)
			So(s.AwayWin, ShouldEqual, 1)
			So(s.HomeWinPercent(), ShouldEqual, 40.0)
			So(s.AwayWinPercent(), ShouldEqual, 20.0)
		})

		Convey("Among tied scorelines the earliest one wins", func() {
			So(s.MostPredictedScore, ShouldEqual, "1-0")
			So(s.MostPredictedCount, ShouldEqual, 2)
		})

		Convey("Averages and the actual score are reported", func() {
			So(s.AvgPredictedHome, ShouldEqual, 1.2)
			So(s.AvgPredictedAway, ShouldEqual, 1.4)
			So(*s.ActualHome, ShouldEqual, 2)
		})
	})

	Convey("A match without predictions summarizes to zeros", t, func() {
		s := summary.Summarize(model.Match{ID: "m1", Status: model.StatusPending}, nil)
		So(s.TotalPredictions, ShouldEqual, 0)
		So(s.MostPredictedScore, ShouldEqual, "")
		So(s.DrawPercent(), ShouldEqual, 0)
		So(s.AvgPredictedHome, ShouldEqual, 0)
		So(s.ActualHome, ShouldBeNil)
	})
}
