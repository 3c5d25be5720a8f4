package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreline/internal/domain/stats"
)

// mockRedis keeps values in a map and records calls.
type mockRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	deleted []string
	failAll error
}

func newMockRedis() *mockRedis {
	return &mockRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.failAll != nil {
		return redis.NewStringResult("", m.failAll)
	}
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	if m.failAll != nil {
		return redis.NewStatusResult("", m.failAll)
	}
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (m *mockRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	if m.failAll != nil {
		return redis.NewIntResult(0, m.failAll)
	}
	for _, k := range keys {
		delete(m.values, k)
		m.deleted = append(m.deleted, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockRedis) Ping(_ context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.failAll)
}

func TestRedisCache(t *testing.T) {
	Convey("Given a redis-backed cache", t, func() {
		ctx := context.Background()
		client := newMockRedis()
		c := NewRedis(client, WithTTL(time.Minute), WithKeyPrefix("t:"))
		snap := stats.Snapshot{UserID: "u1", TotalPoints: 9, ScoredPredictions: 4, ExactScores: 2}

		Convey("A miss is not an error", func() {
			_, ok, err := c.Get(ctx, "u1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Set then Get round-trips with the configured TTL", func() {
			So(c.Set(ctx, snap), ShouldBeNil)
			So(client.ttls["t:u1"], ShouldEqual, time.Minute)

			got, ok, err := c.Get(ctx, "u1")
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(got.TotalPoints, ShouldEqual, 9)
			So(got.AccuracyPercent(), ShouldEqual, 50.0)
		})

		Convey("Invalidate deletes prefixed keys", func() {
			So(c.Set(ctx, snap), ShouldBeNil)
			So(c.Invalidate(ctx, "u1", "u2"), ShouldBeNil)
			So(client.deleted, ShouldResemble, []string{"t:u1", "t:u2"})
			_, ok, _ := c.Get(ctx, "u1")
			So(ok, ShouldBeFalse)
			So(c.Invalidate(ctx), ShouldBeNil)
		})

		Convey("Backend failures surface as errors", func() {
			client.failAll = errors.New("connection refused")
			_, _, err := c.Get(ctx, "u1")
			So(err, ShouldNotBeNil)
			So(c.Set(ctx, snap), ShouldNotBeNil)
			So(c.Invalidate(ctx, "u1"), ShouldNotBeNil)
			So(c.Ping(ctx), ShouldNotBeNil)
		})

		Convey("Corrupt payloads are reported", func() {
			client.values["t:u1"] = "{not json"
			_, _, err := c.Get(ctx, "u1")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMemoryCache(t *testing.T) {
	Convey("Given a memory cache with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		c := NewMemory(WithTTL(time.Minute), WithClock(func() time.Time { return now }))

		So(c.Set(ctx, stats.Snapshot{UserID: "u1", TotalPoints: 4}), ShouldBeNil)

		Convey("Entries are served until they expire", func() {
			got, ok, _ := c.Get(ctx, "u1")
			So(ok, ShouldBeTrue)
			So(got.TotalPoints, ShouldEqual, 4)

			now = now.Add(time.Minute)
			_, ok, _ = c.Get(ctx, "u1")
			So(ok, ShouldBeFalse)
		})

		Convey("Invalidate removes entries", func() {
			So(c.Invalidate(ctx, "u1"), ShouldBeNil)
			So(c.Len(), ShouldEqual, 0)
		})
	})

	Convey("Nop never hits", t, func() {
		var c StatsCache = Nop{}
		So(c.Set(context.Background(), stats.Snapshot{UserID: "x"}), ShouldBeNil)
		_, ok, err := c.Get(context.Background(), "x")
		So(ok, ShouldBeFalse)
		So(err, ShouldBeNil)
	})
}
