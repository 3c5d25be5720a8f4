package leaderboard_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/scoreline/internal/domain/leaderboard"
	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, 6, 18, 20, 0, 0, 0, time.UTC) // Wednesday

type builder struct {
	preds []model.Prediction
	seq   int
}

func (b *builder) add(user string, at time.Time, points ...int) {
	for _, p := range points {
		b.seq++
		pts := p
		ts := at
		b.preds = append(b.preds, model.Prediction{
			ID:       fmt.Sprintf("p%03d", b.seq),
			UserID:   user,
			IsScored: true,
			Points:   &pts,
			ScoredAt: &ts,
		})
	}
}

func TestRank(t *testing.T) {
	Convey("Given three users with scored predictions", t, func() {
		b := &builder{}
		b.add("alice", now.Add(-time.Hour), 3, 3, 0, 1)   // 7 pts, 4 preds, 75%
		b.add("bob", now.Add(-2*time.Hour), 2, 2, 2, 1, 0) // 7 pts, 5 preds, 80%
		b.add("carol", now.Add(-3*time.Hour), 1, 1)        // 2 pts, 2 preds, 100%
		b.preds = append(b.preds, model.Prediction{ID: "pending", UserID: "dave"})

		Convey("Points ranking breaks ties by prediction count", func() {
			board, err := leaderboard.Rank(b.preds, leaderboard.Query{Metric: leaderboard.MetricPoints, Now: now})
			So(err, ShouldBeNil)
			So(board.UserIDs(), ShouldResemble, []string{"bob", "alice", "carol"})
			So(board.Entries[0].Rank, ShouldEqual, 1)
			So(board.Entries[1].Rank, ShouldEqual, 2)
			So(board.TotalParticipants, ShouldEqual, 3)
			So(board.TopScore(), ShouldEqual, 7)
			So(board.PeriodStart, ShouldBeNil)
		})

		Convey("Accuracy ranking uses the rounded hit percentage", func() {
			board, err := leaderboard.Rank(b.preds, leaderboard.Query{Metric: leaderboard.MetricAccuracy, Now: now})
			So(err, ShouldBeNil)
			So(board.UserIDs(), ShouldResemble, []string{"carol", "bob", "alice"})
			So(board.Entries[0].AccuracyPercent, ShouldEqual, 100.0)
			So(board.Entries[1].AccuracyPercent, ShouldEqual, 80.0)
		})

		Convey("Efficiency is an alias of accuracy", func() {
			a, _ := leaderboard.Rank(b.preds, leaderboard.Query{Metric: leaderboard.MetricAccuracy, Now: now})
			e, _ := leaderboard.Rank(b.preds, leaderboard.Query{Metric: leaderboard.MetricEfficiency, Now: now})
			So(e.UserIDs(), ShouldResemble, a.UserIDs())
		})

		Convey("Exact score ranking counts three-point predictions", func() {
			board, _ := leaderboard.Rank(b.preds, leaderboard.Query{Metric: leaderboard.MetricExactScores, Now: now})
			So(board.Entries[0].UserID, ShouldEqual, "alice")
			So(board.Entries[0].ExactScores, ShouldEqual, 2)
		})

		Convey("minPredictions=5 excludes a user with exactly four", func() {
			board, _ := leaderboard.Rank(b.preds, leaderboard.Query{MinPredictions: 5, Now: now})
			So(board.UserIDs(), ShouldResemble, []string{"bob"})
			So(board.TotalParticipants, ShouldEqual, 1)
		})

		Convey("Limit truncates but participants count every qualified user", func() {
			board, _ := leaderboard.Rank(b.preds, leaderboard.Query{Limit: 2, Now: now})
			So(len(board.Entries), ShouldEqual, 2)
			So(board.TotalParticipants, ShouldEqual, 3)
		})
	})

	Convey("Given users tied on every key", t, func() {
		b := &builder{}
		b.add("zed", now.Add(-time.Minute), 3, 1)
		b.add("amy", now.Add(-time.Minute), 1, 3)

		board, err := leaderboard.Rank(b.preds, leaderboard.Query{Now: now})
		So(err, ShouldBeNil)

		Convey("Ranks are sequential, not shared", func() {
			So(board.Entries[0].TotalPoints, ShouldEqual, board.Entries[1].TotalPoints)
			So(board.Entries[0].Rank, ShouldEqual, 1)
			So(board.Entries[1].Rank, ShouldEqual, 2)
		})

		Convey("User ID decides the order", func() {
			So(board.UserIDs(), ShouldResemble, []string{"amy", "zed"})
		})
	})

	Convey("Given predictions scored before and inside this week", t, func() {
		b := &builder{}
		b.add("early", time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC), 3, 3, 3) // Sunday
		b.add("late", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), 1)         // Monday 00:00

		board, err := leaderboard.Rank(b.preds, leaderboard.Query{Period: period.Week, Now: now})
		So(err, ShouldBeNil)
		So(board.UserIDs(), ShouldResemble, []string{"late"})
		So(*board.PeriodStart, ShouldEqual, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC))
		So(*board.PeriodEnd, ShouldEqual, now)
	})

	Convey("Given no data", t, func() {
		board, err := leaderboard.Rank(nil, leaderboard.Query{Now: now})
		So(err, ShouldBeNil)
		So(board.Entries, ShouldBeEmpty)
		So(board.TotalParticipants, ShouldEqual, 0)
		So(board.TopScore(), ShouldEqual, 0)
	})

	Convey("Unknown metrics and periods are validation errors", t, func() {
		_, err := leaderboard.Rank(nil, leaderboard.Query{Metric: "style", Now: now})
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		_, err = leaderboard.Rank(nil, leaderboard.Query{Period: "decade", Now: now})
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
	})
}
