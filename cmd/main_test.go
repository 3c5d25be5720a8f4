package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreline/internal/config"
	"github.com/okian/scoreline/pkg/logger"
	"github.com/okian/scoreline/pkg/metrics"
)

func TestBuild(t *testing.T) {
	convey.Convey("Given the default in-memory configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		app, err := build(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer app.close(ctx, logger.Nop())

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			app.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			return w
		}

		convey.Convey("Then health, docs and API routes are served", func() {
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/matches").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/leaderboard").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then both background jobs are registered", func() {
			app.sched.Start()
			convey.So(app.sched.RunNow("auto_lock"), convey.ShouldBeNil)
			convey.So(app.sched.RunNow("score_sweep"), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given disabled jobs", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.AutoLockInterval = 0
		cfg.ScoreSweepInterval = 0

		app, err := build(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer app.close(ctx, logger.Nop())

		convey.So(app.sched.RunNow("auto_lock"), convey.ShouldNotBeNil)
	})

	convey.Convey("Given unreachable backends", t, func() {
		ctx := context.Background()

		convey.Convey("A malformed postgres URL fails the build", func() {
			cfg := config.New(ctx)
			cfg.Store = config.StorePostgres
			cfg.PostgresURL = "postgres://%zz"
			_, err := build(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("A malformed redis URL fails the build", func() {
			cfg := config.New(ctx)
			cfg.RedisURL = "not-a-redis-url"
			_, err := build(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a built application", t, func() {
		ctx := context.Background()
		app, err := build(ctx, config.New(ctx), logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer app.close(ctx, logger.Nop())

		convey.Convey("Then the updaters publish gauges without panicking", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(ctx, app.svc, logger.Nop()) }, convey.ShouldNotPanic)

			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			convey.So(strings.Join(names, " "), convey.ShouldContainSubstring, "goroutine")
		})

		convey.Convey("Then table sizes come from a single publisher", func() {
			_, err := app.svc.RegisterUser(ctx, "gauge", "gauge@example.com", "")
			convey.So(err, convey.ShouldBeNil)
			updateServiceMetrics(ctx, app.svc, logger.Nop())

			families, err := metrics.GetRegistry().Gather()
			convey.So(err, convey.ShouldBeNil)
			got := map[string]float64{}
			for _, f := range families {
				if f.GetName() != "scoreline_predictions_store_records" {
					continue
				}
				for _, m := range f.GetMetric() {
					got[m.GetLabel()[0].GetValue()] = m.GetGauge().GetValue()
				}
			}
			convey.So(got["users"], convey.ShouldEqual, 1)
			convey.So(got["matches"], convey.ShouldEqual, 0)
			convey.So(got["predictions"], convey.ShouldEqual, 0)
		})
	})
}

func TestConfigureMetrics(t *testing.T) {
	convey.Convey("Given a metrics refresh interval in the config", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.MetricsRefreshInterval = 3 * time.Second
		defer configureMetrics(config.New(ctx))

		configureMetrics(cfg)

		convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 3*time.Second)
	})
}
