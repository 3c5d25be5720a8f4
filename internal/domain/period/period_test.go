package period_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/scoreline/internal/domain/model"
	"github.com/okian/scoreline/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolve(t *testing.T) {
	Convey("Given Thursday 2025-03-13 17:45 UTC", t, func() {
		now := time.Date(2025, 3, 13, 17, 45, 0, 0, time.UTC)

		Convey("all_time has no lower bound", func() {
			w := period.Resolve(period.AllTime, now)
			So(w.Bounded(), ShouldBeFalse)
			So(w.End, ShouldEqual, now)
			So(w.Contains(time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("day starts at midnight", func() {
			w := period.Resolve(period.Day, now)
			So(w.Start, ShouldEqual, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
		})

		Convey("week starts on the most recent Monday", func() {
			w := period.Resolve(period.Week, now)
			So(w.Start, ShouldEqual, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
		})

		Convey("month and year start on their first day", func() {
			So(period.Resolve(period.Month, now).Start, ShouldEqual, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
			So(period.Resolve(period.Year, now).Start, ShouldEqual, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
		})

		Convey("the window is closed at both ends", func() {
			w := period.Resolve(period.Day, now)
			So(w.Contains(w.Start), ShouldBeTrue)
			So(w.Contains(now), ShouldBeTrue)
			So(w.Contains(now.Add(time.Second)), ShouldBeFalse)
			So(w.Contains(w.Start.Add(-time.Nanosecond)), ShouldBeFalse)
		})
	})

	Convey("On a Monday the week starts today", t, func() {
		now := time.Date(2025, 3, 10, 0, 30, 0, 0, time.UTC)
		So(period.Resolve(period.Week, now).Start, ShouldEqual, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	})

	Convey("On a Sunday the week started six days ago", t, func() {
		now := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
		So(period.Resolve(period.Week, now).Start, ShouldEqual, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))
	})

	Convey("Non-UTC input is normalized", t, func() {
		loc := time.FixedZone("UTC+3", 3*3600)
		now := time.Date(2025, 3, 14, 1, 0, 0, 0, loc) // 13th 22:00 UTC
		So(period.Resolve(period.Day, now).Start, ShouldEqual, time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC))
	})
}

func TestParse(t *testing.T) {
	Convey("Parse accepts known periods and a default", t, func() {
		p, err := period.Parse(" WEEK ", period.AllTime)
		So(err, ShouldBeNil)
		So(p, ShouldEqual, period.Week)

		p, err = period.Parse("", period.Month)
		So(err, ShouldBeNil)
		So(p, ShouldEqual, period.Month)

		_, err = period.Parse("fortnight", period.AllTime)
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
	})
}
