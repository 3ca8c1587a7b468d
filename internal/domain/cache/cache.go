// Package cache implements the selective snapshot cache: a bounded LRU
// store whose invalidation marks entries stale instead of deleting them.
// Stale entries remain readable until a caller opts out, so viewers always
// get some snapshot while recomputation is throttled.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/attunehq/attune/pkg/metrics"
)

// entry is a single cached snapshot with its staleness flag. Recency is
// carried by position in the LRU list.
type entry struct {
	key           Key
	value         any
	stale         bool
	lastWrittenAt time.Time
}

// Stats counts cache activity since construction.
type Stats struct {
	Hits          uint64
	Misses        uint64
	StaleServes   uint64
	Evictions     uint64
	Invalidations uint64
	StaleRemoved  uint64
}

// Cache is a thread-safe LRU snapshot store with stale-but-usable reads and
// component-exact scoped invalidation. All mutation happens under one lock;
// values themselves are treated as immutable once stored.
type Cache struct {
	mu         sync.Mutex
	data       map[string]*list.Element
	lru        *list.List
	maxEntries int

	sweepInterval time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once

	stats Stats
	clock func() time.Time
}

// New creates a cache with configuration options and starts the stale-entry
// sweeper if a sweep interval is configured.
func New(opts ...Option) *Cache {
	c := &Cache{
		data:       make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: defaultMaxEntries,
		stopChan:   make(chan struct{}),
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.startSweeper()

	return c
}

// Get returns the cached value for key. A stale entry is returned only when
// allowStale is true; with allowStale=false a stale entry reads as absent
// but is NOT deleted, forcing the caller onto the recompute path while the
// old value stays available for other readers. Hits promote recency.
func (c *Cache) Get(key Key, allowStale bool) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key.index()]
	if !found {
		c.stats.Misses++
		metrics.RecordCacheMiss()
		return nil, false
	}

	e := elem.Value.(*entry)
	if e.stale && !allowStale {
		c.stats.Misses++
		metrics.RecordCacheMiss()
		return nil, false
	}

	c.lru.MoveToFront(elem)
	c.stats.Hits++
	metrics.RecordCacheHit()
	if e.stale {
		c.stats.StaleServes++
		metrics.RecordCacheStaleServe()
	}
	return e.value, true
}

// Set inserts or overwrites the value for key, marks it fresh, and promotes
// recency. At capacity the least-recently-used entry is evicted first, so
// the configured maximum is never exceeded.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, found := c.data[key.index()]; found {
		e := elem.Value.(*entry)
		e.value = value
		e.stale = false
		e.lastWrittenAt = c.clock()
		c.lru.MoveToFront(elem)
		return
	}

	if c.maxEntries > 0 && c.lru.Len() >= c.maxEntries {
		c.evictOldest()
	}

	e := &entry{
		key:           key,
		value:         value,
		lastWrittenAt: c.clock(),
	}
	c.data[key.index()] = c.lru.PushFront(e)
	metrics.UpdateCacheEntries(c.lru.Len())
}

// InvalidateScope marks stale every entry whose key's team component equals
// identifier exactly. Entries are never deleted here; readers keep seeing
// the old value until a fresh one is computed. Returns the number of
// entries marked.
func (c *Cache) InvalidateScope(identifier string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		e := elem.Value.(*entry)
		if !e.stale && e.key.matchesTeam(identifier) {
			e.stale = true
			count++
		}
	}
	if count > 0 {
		c.stats.Invalidations += uint64(count)
		metrics.RecordCacheInvalidations(count)
		metrics.UpdateCacheStaleEntries(c.staleLenLocked())
	}
	return count
}

// RemoveStale physically deletes every stale entry. Periodic reclamation,
// independent of invalidation. Returns the number removed.
func (c *Cache) RemoveStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).stale {
			c.removeElement(elem)
			count++
		}
		elem = prev
	}
	if count > 0 {
		c.stats.StaleRemoved += uint64(count)
		metrics.RecordCacheStaleRemoved(count)
		metrics.UpdateCacheEntries(c.lru.Len())
		metrics.UpdateCacheStaleEntries(0)
	}
	return count
}

// Clear wipes the cache unconditionally, bypassing staleness semantics.
// Used only for global resets and metric-mode flips, where cached values no
// longer mean anything.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[string]*list.Element)
	c.lru.Init()
	metrics.UpdateCacheEntries(0)
	metrics.UpdateCacheStaleEntries(0)
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// StaleLen returns the current number of stale entries.
func (c *Cache) StaleLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.staleLenLocked()
}

// IsStale reports whether key is present and marked stale.
func (c *Cache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, found := c.data[key.index()]
	return found && elem.Value.(*entry).stale
}

// Stats returns a snapshot of the activity counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

// staleLenLocked counts stale entries. Caller holds c.mu.
func (c *Cache) staleLenLocked() int {
	count := 0
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if elem.Value.(*entry).stale {
			count++
		}
	}
	return count
}

// evictOldest drops the least-recently-used entry. Caller holds c.mu.
func (c *Cache) evictOldest() {
	if elem := c.lru.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
		metrics.RecordCacheEviction()
	}
}

// removeElement unlinks an entry from both structures. Caller holds c.mu.
func (c *Cache) removeElement(elem *list.Element) {
	c.lru.Remove(elem)
	delete(c.data, elem.Value.(*entry).key.index())
}

// startSweeper launches the periodic stale-entry reclamation goroutine.
func (c *Cache) startSweeper() {
	if c.sweepInterval <= 0 {
		return
	}

	ticker := time.NewTicker(c.sweepInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.RemoveStale()
			case <-c.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}
