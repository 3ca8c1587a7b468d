package cache_test

import (
	"fmt"
	"testing"

	cache "github.com/attunehq/attune/internal/domain/cache"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSelectiveInvalidation(t *testing.T) {
	Convey("Given cached entries for teams with overlapping names", t, func() {
		c := cache.New()
		defer c.Close()

		teams := []string{"Team1", "Team11", "Team21", "MyTeam1"}
		for _, team := range teams {
			c.Set(cache.NewKey(cache.FamilyCorrelation, team), "snap-"+team)
		}

		Convey("When invalidating Team1", func() {
			count := c.InvalidateScope("Team1")

			Convey("Then exactly the Team1 entry is marked stale", func() {
				So(count, ShouldEqual, 1)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "Team1")), ShouldBeTrue)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "Team11")), ShouldBeFalse)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "Team21")), ShouldBeFalse)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "MyTeam1")), ShouldBeFalse)
			})

			Convey("Then the other teams' values are untouched", func() {
				for _, team := range []string{"Team11", "Team21", "MyTeam1"} {
					v, ok := c.Get(cache.NewKey(cache.FamilyCorrelation, team), false)
					So(ok, ShouldBeTrue)
					So(v, ShouldEqual, "snap-"+team)
				}
			})
		})

		Convey("When a team is named after a key family token", func() {
			c.Set(cache.NewKey(cache.FamilyCorrelation, "correlation"), "snap-correlation")
			c.Set(cache.NewKey(cache.FamilySuccess, "digest"), "snap-digest")

			count := c.InvalidateScope("correlation")

			Convey("Then only that team's entry is marked, never the family", func() {
				So(count, ShouldEqual, 1)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "correlation")), ShouldBeTrue)
				So(c.IsStale(cache.NewKey(cache.FamilyCorrelation, "Team1")), ShouldBeFalse)
				So(c.IsStale(cache.NewKey(cache.FamilySuccess, "digest")), ShouldBeFalse)
			})
		})

		Convey("When invalidating a team with entries across key families", func() {
			c.Set(cache.NewKey(cache.FamilySuccess, "Team1"), "success-Team1")
			c.Set(cache.NewKey(cache.FamilyDigest, "Team1"), "digest-Team1")

			count := c.InvalidateScope("Team1")

			Convey("Then every family's entry for that team is marked", func() {
				So(count, ShouldEqual, 3)
			})
		})
	})
}

func TestStaleButUsable(t *testing.T) {
	Convey("Given a cached entry that has been invalidated", t, func() {
		c := cache.New()
		defer c.Close()

		key := cache.NewKey(cache.FamilyCorrelation, "Team1")
		c.Set(key, "old-value")
		c.InvalidateScope("Team1")

		Convey("When reading with stale entries allowed", func() {
			v, ok := c.Get(key, true)

			Convey("Then the previous value is still served", func() {
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "old-value")
			})
		})

		Convey("When reading fresh-only", func() {
			_, ok := c.Get(key, false)

			Convey("Then the entry reads as absent but is not deleted", func() {
				So(ok, ShouldBeFalse)
				So(c.Len(), ShouldEqual, 1)

				v, stillThere := c.Get(key, true)
				So(stillThere, ShouldBeTrue)
				So(v, ShouldEqual, "old-value")
			})
		})

		Convey("When a fresh value is written", func() {
			c.Set(key, "new-value")

			Convey("Then staleness is cleared", func() {
				v, ok := c.Get(key, false)
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "new-value")
				So(c.IsStale(key), ShouldBeFalse)
			})
		})
	})
}

func TestLRUEviction(t *testing.T) {
	Convey("Given a cache bounded to three entries", t, func() {
		c := cache.New(cache.WithMaxEntries(3))
		defer c.Close()

		for i := 1; i <= 3; i++ {
			c.Set(cache.NewKey(cache.FamilyDigest, fmt.Sprintf("team-%d", i)), i)
		}

		Convey("When inserting a fourth distinct key", func() {
			c.Set(cache.NewKey(cache.FamilyDigest, "team-4"), 4)

			Convey("Then the least-recently-used key is evicted", func() {
				So(c.Len(), ShouldEqual, 3)
				_, ok := c.Get(cache.NewKey(cache.FamilyDigest, "team-1"), true)
				So(ok, ShouldBeFalse)

				_, ok = c.Get(cache.NewKey(cache.FamilyDigest, "team-4"), true)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the oldest key is touched before inserting", func() {
			_, ok := c.Get(cache.NewKey(cache.FamilyDigest, "team-1"), true)
			So(ok, ShouldBeTrue)

			c.Set(cache.NewKey(cache.FamilyDigest, "team-4"), 4)

			Convey("Then recency promotion saves it and team-2 goes instead", func() {
				_, ok := c.Get(cache.NewKey(cache.FamilyDigest, "team-1"), true)
				So(ok, ShouldBeTrue)

				_, ok = c.Get(cache.NewKey(cache.FamilyDigest, "team-2"), true)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestRemoveStaleAndClear(t *testing.T) {
	Convey("Given a cache with a mix of fresh and stale entries", t, func() {
		c := cache.New()
		defer c.Close()

		c.Set(cache.NewKey(cache.FamilyCorrelation, "Team1"), 1)
		c.Set(cache.NewKey(cache.FamilyCorrelation, "Team2"), 2)
		c.Set(cache.NewKey(cache.FamilyCorrelation, "Team3"), 3)
		c.InvalidateScope("Team1")
		c.InvalidateScope("Team2")

		Convey("When removing stale entries", func() {
			removed := c.RemoveStale()

			Convey("Then only the stale ones are physically deleted", func() {
				So(removed, ShouldEqual, 2)
				So(c.Len(), ShouldEqual, 1)

				_, ok := c.Get(cache.NewKey(cache.FamilyCorrelation, "Team3"), false)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When clearing everything", func() {
			c.Clear()

			Convey("Then the cache is empty regardless of staleness", func() {
				So(c.Len(), ShouldEqual, 0)
				_, ok := c.Get(cache.NewKey(cache.FamilyCorrelation, "Team3"), true)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestCacheStats(t *testing.T) {
	Convey("Given a cache under mixed traffic", t, func() {
		c := cache.New(cache.WithMaxEntries(2))
		defer c.Close()

		key1 := cache.NewKey(cache.FamilySuccess, "Team1")
		c.Set(key1, "v1")

		c.Get(key1, true)                                  // hit
		c.Get(cache.NewKey(cache.FamilySuccess, "nope"), true) // miss
		c.InvalidateScope("Team1")
		c.Get(key1, true) // stale serve

		c.Set(cache.NewKey(cache.FamilySuccess, "Team2"), "v2")
		c.Set(cache.NewKey(cache.FamilySuccess, "Team3"), "v3") // evicts

		Convey("When reading the counters", func() {
			stats := c.Stats()

			Convey("Then each class of activity is counted", func() {
				So(stats.Hits, ShouldEqual, 2)
				So(stats.Misses, ShouldEqual, 1)
				So(stats.StaleServes, ShouldEqual, 1)
				So(stats.Invalidations, ShouldEqual, 1)
				So(stats.Evictions, ShouldEqual, 1)
			})
		})
	})
}
