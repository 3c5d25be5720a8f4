package model_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	model "github.com/okian/scoreline/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)

func intp(v int) *int { return &v }

func TestNewMatch(t *testing.T) {
	convey.Convey("Given a match spec", t, func() {
		spec := model.MatchSpec{
			HomeTeam:    "  Arsenal ",
			AwayTeam:    "Chelsea",
			ScheduledAt: now.Add(48 * time.Hour),
			League:      "Premier League",
		}

		convey.Convey("When it is valid", func() {
			m, err := model.NewMatch(spec, now)

			convey.Convey("Then a pending unlocked football match is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(m.ID, convey.ShouldNotBeEmpty)
				convey.So(m.HomeTeam, convey.ShouldEqual, "Arsenal")
				convey.So(m.Sport, convey.ShouldEqual, model.SportFootball)
				convey.So(m.Status, convey.ShouldEqual, model.StatusPending)
				convey.So(m.PredictionsLocked, convey.ShouldBeFalse)
				convey.So(m.Predictable(), convey.ShouldBeTrue)
				convey.So(m.Check(), convey.ShouldBeNil)
				convey.So(m.ScoreLine(), convey.ShouldEqual, "vs")
			})
		})

		convey.Convey("When the teams are the same ignoring case", func() {
			spec.AwayTeam = "ARSENAL"
			_, err := model.NewMatch(spec, now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When a team name is empty or too long", func() {
			spec.HomeTeam = "   "
			_, err := model.NewMatch(spec, now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)

			spec.HomeTeam = strings.Repeat("x", model.MaxTeamNameLen+1)
			_, err = model.NewMatch(spec, now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("When the schedule is not in the future", func() {
			spec.ScheduledAt = now
			_, err := model.NewMatch(spec, now)
			var verr *model.ValidationError
			convey.So(errors.As(err, &verr), convey.ShouldBeTrue)
			convey.So(verr.Field, convey.ShouldEqual, "scheduled_at")
		})

		convey.Convey("When the sport is unknown", func() {
			spec.Sport = model.Sport("curling")
			_, err := model.NewMatch(spec, now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})
	})
}

func TestMatchDerivedValues(t *testing.T) {
	convey.Convey("Given a finished match 3-1", t, func() {
		at := now
		m := model.Match{Status: model.StatusFinished, HomeScore: intp(3), AwayScore: intp(1), PredictionsLocked: true, FinishedAt: &at}

		convey.So(m.Check(), convey.ShouldBeNil)
		o, ok := m.Outcome()
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(o, convey.ShouldEqual, model.OutcomeHomeWin)
		d, _ := m.GoalDifference()
		convey.So(d, convey.ShouldEqual, 2)
		total, _ := m.TotalGoals()
		convey.So(total, convey.ShouldEqual, 4)
		convey.So(m.ScoreLine(), convey.ShouldEqual, "3-1")

		convey.Convey("A finished match without a finish time breaks the invariant", func() {
			m.FinishedAt = nil
			var verr *model.ValidationError
			convey.So(errors.As(m.Check(), &verr), convey.ShouldBeTrue)
			convey.So(verr.Field, convey.ShouldEqual, "finished_at")
		})
	})

	convey.Convey("Given a pending match", t, func() {
		m := model.Match{Status: model.StatusPending}
		_, ok := m.Outcome()
		convey.So(ok, convey.ShouldBeFalse)

		convey.Convey("Scores without finished status break the invariant", func() {
			m.HomeScore, m.AwayScore = intp(1), intp(0)
			convey.So(m.Check(), convey.ShouldNotBeNil)
		})

		convey.Convey("A finish time without finished status breaks the invariant", func() {
			at := now
			m.FinishedAt = &at
			convey.So(m.Check(), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("A live unlocked match breaks the invariant", t, func() {
		m := model.Match{Status: model.StatusLive}
		convey.So(m.Check(), convey.ShouldNotBeNil)
	})
}

func TestMatchWithDetails(t *testing.T) {
	convey.Convey("Given a pending match", t, func() {
		m, err := model.NewMatch(model.MatchSpec{HomeTeam: "A", AwayTeam: "B", ScheduledAt: now.Add(time.Hour)}, now)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Editing the league trims and stamps the update", func() {
			league := "  Serie A "
			later := now.Add(time.Minute)
			out, err := m.WithDetails(model.MatchDetails{League: &league}, later)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.League, convey.ShouldEqual, "Serie A")
			convey.So(out.UpdatedAt, convey.ShouldEqual, later)
		})

		convey.Convey("Editing a cancelled match is an invalid state", func() {
			m.Status = model.StatusCancelled
			name := "C"
			_, err := m.WithDetails(model.MatchDetails{HomeTeam: &name}, now)
			convey.So(errors.Is(err, model.ErrInvalidState), convey.ShouldBeTrue)
		})
	})
}

func TestMatchFilter(t *testing.T) {
	convey.Convey("Given a match", t, func() {
		m := model.Match{HomeTeam: "Real Madrid", AwayTeam: "Barcelona", League: "La Liga", Sport: model.SportFootball, Status: model.StatusPending, ScheduledAt: now}

		convey.So(model.MatchFilter{}.Matches(m), convey.ShouldBeTrue)
		convey.So(model.MatchFilter{Team: "BARC"}.Matches(m), convey.ShouldBeTrue)
		convey.So(model.MatchFilter{Team: "barca"}.Matches(m), convey.ShouldBeFalse)
		convey.So(model.MatchFilter{League: "liga"}.Matches(m), convey.ShouldBeTrue)
		convey.So(model.MatchFilter{Statuses: []model.MatchStatus{model.StatusLive}}.Matches(m), convey.ShouldBeFalse)
		convey.So(model.MatchFilter{ScheduledFrom: now.Add(time.Second)}.Matches(m), convey.ShouldBeFalse)
		no := false
		convey.So(model.MatchFilter{Predictable: &no}.Matches(m), convey.ShouldBeFalse)
	})
}

func TestPrediction(t *testing.T) {
	userID := "6f1d4a2e-3c1b-4d55-9e0a-0a1b2c3d4e5f"
	matchID := "8a7b6c5d-4e3f-4a1b-9c8d-7e6f5a4b3c2d"

	convey.Convey("Given valid prediction input", t, func() {
		p, err := model.NewPrediction(userID, matchID, 2, 1, now)
		convey.So(err, convey.ShouldBeNil)
		convey.So(p.IsScored, convey.ShouldBeFalse)
		convey.So(p.PredictedOutcome(), convey.ShouldEqual, model.OutcomeHomeWin)
		convey.So(p.PredictedDifference(), convey.ShouldEqual, 1)
		convey.So(p.PredictedLine(), convey.ShouldEqual, "2-1")
		convey.So(p.PointsValue(), convey.ShouldEqual, 0)

		convey.Convey("Updating scores before settlement works", func() {
			out, err := p.WithScores(intp(0), nil, now)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.PredictedHome, convey.ShouldEqual, 0)
			convey.So(out.PredictedAway, convey.ShouldEqual, 1)
			convey.So(out.UpdatedAt, convey.ShouldNotBeNil)
		})

		convey.Convey("Settling once records the outcome", func() {
			s, err := p.Settle(3, "exact", 2, 1, now)
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.IsScored, convey.ShouldBeTrue)
			convey.So(s.Hit(), convey.ShouldBeTrue)
			convey.So(*s.ActualHome, convey.ShouldEqual, 2)

			convey.Convey("And settling again is rejected", func() {
				_, err := s.Settle(0, "x", 0, 0, now)
				convey.So(errors.Is(err, model.ErrInvalidState), convey.ShouldBeTrue)
			})

			convey.Convey("And edits are rejected", func() {
				_, err := s.WithScores(intp(1), nil, now)
				convey.So(errors.Is(err, model.ErrInvalidState), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given out-of-range or malformed input", t, func() {
		_, err := model.NewPrediction(userID, matchID, 100, 1, now)
		convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		_, err = model.NewPrediction(userID, matchID, 1, -1, now)
		convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		_, err = model.NewPrediction("not-a-uuid", matchID, 1, 1, now)
		convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
	})
}

func TestNewUser(t *testing.T) {
	convey.Convey("Given registration input", t, func() {
		convey.Convey("Valid input yields an active user with a lowercased email", func() {
			u, err := model.NewUser("striker_9", "Striker@Example.COM", "", now)
			convey.So(err, convey.ShouldBeNil)
			convey.So(u.Active, convey.ShouldBeTrue)
			convey.So(u.Email, convey.ShouldEqual, "striker@example.com")
			convey.So(u.Name(), convey.ShouldEqual, "striker_9")
			convey.So(u.AveragePoints(), convey.ShouldEqual, 0)
		})

		convey.Convey("Bad usernames are rejected", func() {
			for _, name := range []string{"ab", "9lives", "has space", strings.Repeat("a", 31)} {
				_, err := model.NewUser(name, "a@b.io", "", now)
				convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
			}
		})

		convey.Convey("A bad email is rejected", func() {
			_, err := model.NewUser("keeper", "nope", "", now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)
		})

		convey.Convey("Profile updates are validated", func() {
			u, _ := model.NewUser("keeper", "k@b.io", "Keeper", now)
			long := strings.Repeat("n", model.MaxDisplayNameLen+1)
			_, err := u.WithUpdate(model.UserUpdate{DisplayName: &long}, now)
			convey.So(errors.Is(err, model.ErrValidation), convey.ShouldBeTrue)

			mail := "NEW@b.io"
			out, err := u.WithUpdate(model.UserUpdate{Email: &mail}, now)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out.Email, convey.ShouldEqual, "new@b.io")
		})
	})
}

func TestErrorKinds(t *testing.T) {
	convey.Convey("Error helpers wrap the sentinel kinds", t, func() {
		convey.So(errors.Is(model.NotFound("match", "x"), model.ErrNotFound), convey.ShouldBeTrue)
		convey.So(errors.Is(model.NotAllowed("locked"), model.ErrPredictionNotAllowed), convey.ShouldBeTrue)
		err := &model.StateError{Op: "start", Entity: "match", Status: "finished"}
		convey.So(errors.Is(err, model.ErrInvalidState), convey.ShouldBeTrue)
		convey.So(err.Error(), convey.ShouldContainSubstring, "finished")
	})
}
