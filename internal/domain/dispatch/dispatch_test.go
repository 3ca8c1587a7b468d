package dispatch_test

import (
	"context"
	"sync/atomic"
	"testing"

	dispatch "github.com/attunehq/attune/internal/domain/dispatch"
	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeCache struct {
	invalidated []string
	cleared     atomic.Int32
}

func (f *fakeCache) InvalidateScope(identifier string) int {
	f.invalidated = append(f.invalidated, identifier)
	return 1
}

func (f *fakeCache) Clear() { f.cleared.Add(1) }

type fakeScope struct {
	signals atomic.Int32
}

func (f *fakeScope) Signal(ctx context.Context) { f.signals.Add(1) }

type fakeThrottle struct {
	resets atomic.Int32
}

func (f *fakeThrottle) Reset() { f.resets.Add(1) }

func TestDispatch(t *testing.T) {
	Convey("Given a dispatcher wired to a cache and two scopes", t, func() {
		ctx := context.Background()
		c := &fakeCache{}
		quick := &fakeScope{}
		full := &fakeScope{}
		th := &fakeThrottle{}
		d := dispatch.New(c, quick, full, th)

		Convey("When an answer is submitted for a team", func() {
			d.Dispatch(ctx, model.Event{Kind: model.AnswerSubmitted, TeamID: "Team1"})

			Convey("Then the team is invalidated and the quick scope signaled", func() {
				So(c.invalidated, ShouldResemble, []string{"Team1"})
				So(quick.signals.Load(), ShouldEqual, 1)
				So(full.signals.Load(), ShouldEqual, 0)
				So(c.cleared.Load(), ShouldEqual, 0)
			})

			Convey("Then the team is queued for the quick refresh", func() {
				So(d.DrainPending(), ShouldResemble, []string{"Team1"})
				So(d.DrainPending(), ShouldBeNil) // drained
			})
		})

		Convey("When a team's state changes", func() {
			d.Dispatch(ctx, model.Event{Kind: model.TeamStateChanged, TeamID: "Team2"})

			Convey("Then both scopes are signaled", func() {
				So(c.invalidated, ShouldResemble, []string{"Team2"})
				So(quick.signals.Load(), ShouldEqual, 1)
				So(full.signals.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the metric mode toggles", func() {
			d.Dispatch(ctx, model.Event{Kind: model.MetricModeToggled})

			Convey("Then the cache is cleared outright and both scopes signaled", func() {
				So(c.cleared.Load(), ShouldEqual, 1)
				So(c.invalidated, ShouldBeEmpty)
				So(quick.signals.Load(), ShouldEqual, 1)
				So(full.signals.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the game resets", func() {
			d.Dispatch(ctx, model.Event{Kind: model.AnswerSubmitted, TeamID: "Team3"})
			d.Dispatch(ctx, model.Event{Kind: model.GameReset})

			Convey("Then cache, throttle and pending work are all reset", func() {
				So(c.cleared.Load(), ShouldEqual, 1)
				So(th.resets.Load(), ShouldEqual, 1)
				So(d.DrainPending(), ShouldBeNil)
			})
		})
	})
}
