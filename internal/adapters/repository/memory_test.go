package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scoreline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func newMatch(home, away string, at time.Time) model.Match {
	m, err := model.NewMatch(model.MatchSpec{HomeTeam: home, AwayTeam: away, ScheduledAt: at}, t0.Add(-time.Hour))
	if err != nil {
		panic(err)
	}
	return m
}

func newUser(name string) model.User {
	u, err := model.NewUser(name, name+"@example.com", "", t0)
	if err != nil {
		panic(err)
	}
	return u
}

func TestMemoryStore_Matches(t *testing.T) {
	Convey("Given a memory store with two matches", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		defer s.Close()

		late := newMatch("Porto", "Benfica", t0.Add(48*time.Hour))
		soon := newMatch("Ajax", "PSV", t0.Add(10*time.Minute))
		So(s.Matches().Create(ctx, late), ShouldBeNil)
		So(s.Matches().Create(ctx, soon), ShouldBeNil)

		Convey("List orders by schedule and paginates", func() {
			all, err := s.Matches().List(ctx, model.MatchFilter{})
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
			So(all[0].ID, ShouldEqual, soon.ID)

			pageTwo, _ := s.Matches().List(ctx, model.MatchFilter{Limit: 1, Offset: 1})
			So(len(pageTwo), ShouldEqual, 1)
			So(pageTwo[0].ID, ShouldEqual, late.ID)

			n, _ := s.Matches().Count(ctx, model.MatchFilter{Team: "ajax"})
			So(n, ShouldEqual, 1)
		})

		Convey("Get of an unknown id is NotFound", func() {
			_, err := s.Matches().Get(ctx, uuid.NewString())
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Update is guarded by the expected status", func() {
			live := soon
			live.Status = model.StatusLive
			live.PredictionsLocked = true
			So(s.Matches().Update(ctx, live, model.StatusPending), ShouldBeNil)

			err := s.Matches().Update(ctx, live, model.StatusPending)
			So(errors.Is(err, ErrConflict), ShouldBeTrue)
		})

		Convey("Update never overwrites the prediction counter", func() {
			So(s.Matches().IncrementPredictions(ctx, late.ID, 2), ShouldBeNil)
			stale := late
			stale.League = "Liga"
			So(s.Matches().Update(ctx, stale, model.StatusPending), ShouldBeNil)
			got, _ := s.Matches().Get(ctx, late.ID)
			So(got.TotalPredictions, ShouldEqual, 2)
			So(got.League, ShouldEqual, "Liga")
		})

		Convey("The counter never drops below zero", func() {
			So(s.Matches().IncrementPredictions(ctx, late.ID, -3), ShouldBeNil)
			got, _ := s.Matches().Get(ctx, late.ID)
			So(got.TotalPredictions, ShouldEqual, 0)
		})

		Convey("LockDue locks only matches inside the cutoff, once", func() {
			n, err := s.Matches().LockDue(ctx, t0.Add(15*time.Minute), t0)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			got, _ := s.Matches().Get(ctx, soon.ID)
			So(got.PredictionsLocked, ShouldBeTrue)

			n, _ = s.Matches().LockDue(ctx, t0.Add(15*time.Minute), t0)
			So(n, ShouldEqual, 0)
		})

		Convey("Invalid matches are rejected before storage", func() {
			bad := newMatch("X", "Y", t0.Add(time.Hour))
			bad.Status = model.StatusLive
			So(errors.Is(s.Matches().Create(ctx, bad), model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestMemoryStore_Predictions(t *testing.T) {
	Convey("Given a stored prediction", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		defer s.Close()

		u := newUser("winger")
		m := newMatch("Celtic", "Rangers", t0.Add(time.Hour))
		p, _ := model.NewPrediction(u.ID, m.ID, 1, 0, t0)
		So(s.Predictions().Create(ctx, p), ShouldBeNil)

		Convey("A second prediction for the same pair is a duplicate", func() {
			again, _ := model.NewPrediction(u.ID, m.ID, 2, 2, t0)
			err := s.Predictions().Create(ctx, again)
			So(errors.Is(err, model.ErrDuplicate), ShouldBeTrue)
		})

		Convey("It can be found by pair", func() {
			got, err := s.Predictions().GetByUserAndMatch(ctx, u.ID, m.ID)
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, p.ID)
		})

		Convey("Settle applies once", func() {
			scored, _ := p.Settle(1, "outcome", 2, 0, t0)
			ok, err := s.Predictions().Settle(ctx, scored)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			ok, err = s.Predictions().Settle(ctx, scored)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			Convey("And scored predictions cannot be updated or deleted", func() {
				So(errors.Is(s.Predictions().Update(ctx, p), ErrConflict), ShouldBeTrue)
				So(errors.Is(s.Predictions().Delete(ctx, p.ID), ErrConflict), ShouldBeTrue)
			})

			Convey("And the scored filter sees it", func() {
				yes := true
				n, _ := s.Predictions().Count(ctx, model.PredictionFilter{Scored: &yes})
				So(n, ShouldEqual, 1)
			})
		})

		Convey("Delete frees the pair for a new prediction", func() {
			So(s.Predictions().Delete(ctx, p.ID), ShouldBeNil)
			again, _ := model.NewPrediction(u.ID, m.ID, 2, 2, t0)
			So(s.Predictions().Create(ctx, again), ShouldBeNil)
		})
	})

	Convey("Concurrent creates for one pair admit exactly one winner", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		defer s.Close()

		userID, matchID := uuid.NewString(), uuid.NewString()
		var wins, dups int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, _ := model.NewPrediction(userID, matchID, i%10, 0, t0)
				err := s.Predictions().Create(ctx, p)
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case errors.Is(err, model.ErrDuplicate):
					atomic.AddInt32(&dups, 1)
				}
			}(i)
		}
		wg.Wait()
		So(wins, ShouldEqual, 1)
		So(dups, ShouldEqual, 31)
	})
}

func TestMemoryStore_Users(t *testing.T) {
	Convey("Given a registered user", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		defer s.Close()

		u := newUser("Keeper")
		So(s.Users().Create(ctx, u), ShouldBeNil)

		Convey("Usernames are unique ignoring case", func() {
			dup := newUser("keeper")
			dup.Email = "other@example.com"
			So(errors.Is(s.Users().Create(ctx, dup), model.ErrDuplicate), ShouldBeTrue)

			got, err := s.Users().GetByUsername(ctx, "KEEPER")
			So(err, ShouldBeNil)
			So(got.ID, ShouldEqual, u.ID)
		})

		Convey("Emails are unique across updates", func() {
			other := newUser("defender")
			So(s.Users().Create(ctx, other), ShouldBeNil)
			other.Email = u.Email
			So(errors.Is(s.Users().Update(ctx, other), model.ErrDuplicate), ShouldBeTrue)
		})

		Convey("Update keeps counters and IncrementTotals adjusts them", func() {
			So(s.Users().IncrementTotals(ctx, u.ID, 1, 3), ShouldBeNil)
			u.DisplayName = "The Wall"
			So(s.Users().Update(ctx, u), ShouldBeNil)
			got, _ := s.Users().Get(ctx, u.ID)
			So(got.DisplayName, ShouldEqual, "The Wall")
			So(got.TotalPredictions, ShouldEqual, 1)
			So(got.TotalPoints, ShouldEqual, 3)
		})

		Convey("Filters narrow listings", func() {
			u.Active = false
			So(s.Users().Update(ctx, u), ShouldBeNil)
			n, _ := s.Users().Count(ctx, model.UserFilter{ActiveOnly: true})
			So(n, ShouldEqual, 0)
			list, _ := s.Users().List(ctx, model.UserFilter{Search: "kee"})
			So(len(list), ShouldEqual, 1)
		})
	})
}

func TestMemoryStore_Tx(t *testing.T) {
	Convey("Given a store with one match", t, func() {
		ctx := context.Background()
		s := NewMemoryStore()
		defer s.Close()
		m := newMatch("Lazio", "Roma", t0.Add(time.Hour))
		So(s.Matches().Create(ctx, m), ShouldBeNil)

		Convey("A failing transaction leaves no trace", func() {
			boom := errors.New("boom")
			err := s.Tx(ctx, func(ctx context.Context, tx Store) error {
				if err := tx.Matches().IncrementPredictions(ctx, m.ID, 5); err != nil {
					return err
				}
				if err := tx.Users().Create(ctx, newUser("ghost")); err != nil {
					return err
				}
				return boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)

			got, _ := s.Matches().Get(ctx, m.ID)
			So(got.TotalPredictions, ShouldEqual, 0)
			n, _ := s.Users().Count(ctx, model.UserFilter{})
			So(n, ShouldEqual, 0)
		})

		Convey("A committed transaction becomes visible at once", func() {
			var inside int
			err := s.Tx(ctx, func(ctx context.Context, tx Store) error {
				if err := tx.Matches().IncrementPredictions(ctx, m.ID, 1); err != nil {
					return err
				}
				got, _ := tx.Matches().Get(ctx, m.ID)
				inside = got.TotalPredictions
				return nil
			})
			So(err, ShouldBeNil)
			So(inside, ShouldEqual, 1)
			got, _ := s.Matches().Get(ctx, m.ID)
			So(got.TotalPredictions, ShouldEqual, 1)
		})

		Convey("Readers see the old state while a transaction is open", func() {
			entered := make(chan struct{})
			release := make(chan struct{})
			done := make(chan error, 1)
			go func() {
				done <- s.Tx(ctx, func(ctx context.Context, tx Store) error {
					if err := tx.Matches().IncrementPredictions(ctx, m.ID, 7); err != nil {
						return err
					}
					close(entered)
					<-release
					return nil
				})
			}()
			<-entered
			got, err := s.Matches().Get(ctx, m.ID)
			So(err, ShouldBeNil)
			So(got.TotalPredictions, ShouldEqual, 0)
			close(release)
			So(<-done, ShouldBeNil)
			got, _ = s.Matches().Get(ctx, m.ID)
			So(got.TotalPredictions, ShouldEqual, 7)
		})

		Convey("A cancelled context aborts the commit", func() {
			cctx, cancel := context.WithCancel(ctx)
			err := s.Tx(cctx, func(ctx context.Context, tx Store) error {
				_ = tx.Matches().IncrementPredictions(ctx, m.ID, 1)
				cancel()
				return nil
			})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			got, _ := s.Matches().Get(ctx, m.ID)
			So(got.TotalPredictions, ShouldEqual, 0)
		})
	})
}

func TestPage(t *testing.T) {
	Convey("page clamps offsets and limits", t, func() {
		cases := []struct{ n, off, lim, lo, hi int }{
			{10, 0, 0, 0, 10},
			{10, 2, 3, 2, 5},
			{10, 8, 5, 8, 10},
			{10, 12, 5, 10, 10},
			{10, -1, 2, 0, 2},
		}
		for _, c := range cases {
			lo, hi := page(c.n, c.off, c.lim)
			So(fmt.Sprint(lo, hi), ShouldEqual, fmt.Sprint(c.lo, c.hi))
		}
	})
}
