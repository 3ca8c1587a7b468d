package config_test

import (
	"runtime"
	"testing"

	"github.com/attunehq/attune/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.CacheMaxEntries, convey.ShouldEqual, 4_096)
			convey.So(cfg.QuickIntervalMS, convey.ShouldEqual, 2_000)
			convey.So(cfg.FullIntervalMS, convey.ShouldEqual, 10_000)
			convey.So(cfg.SignificanceThreshold, convey.ShouldEqual, 0.15)
			convey.So(cfg.ShardCount, convey.ShouldEqual, 16)
		})
	})
}
