// Package titlecache keeps a bounded set of fully fetched titles in memory.
//
// Concurrent misses for the same id share a single fetch. The least
// recently used entries (by fetch or hit time) are evicted once the cache
// grows past its capacity, and a background sweep enforces the bound when
// the capacity is lowered.
package titlecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"anicat/internal/logging"
	"anicat/internal/media"
)

// Defaults.
const (
	DefaultCapacity      = 20
	DefaultSweepInterval = 3 * time.Minute
)

// ErrNilFetcher is returned by Get when the cache has no fetcher.
var ErrNilFetcher = errors.New("titlecache: nil fetcher")

// Fetcher loads a full title record, embeds included.
type Fetcher interface {
	FetchFullTitle(ctx context.Context, id string) (media.Title, error)
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Fetches   int64
	Evictions int64
}

type entry struct {
	title     media.Title
	fetchedAt time.Time
}

// Cache is a bounded, coalescing title cache. The zero value is not usable;
// use New.
type Cache struct {
	fetcher       Fetcher
	capacity      int
	sweepInterval time.Duration
	now           func() time.Time
	log           logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry
	waiters map[string]int
	gens    map[string]uint64 // bumped by Invalidate
	group   singleflight.Group

	loopMu sync.Mutex
	stop   chan struct{}
	done   chan struct{}

	hits      atomic.Int64
	misses    atomic.Int64
	fetches   atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity sets the maximum number of retained titles.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithSweepInterval sets how often the background sweep runs.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithClock replaces time.Now for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Cache) { c.log = l }
}

// New creates a cache backed by fetcher. The sweep loop is not started.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher:       fetcher,
		capacity:      DefaultCapacity,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		entries:       make(map[string]*entry),
		waiters:       make(map[string]int),
		gens:          make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = logging.OrStandard(c.log).WithField("component", "titlecache")
	return c
}

// Get returns the title with the given id, fetching it on a miss.
// Concurrent misses for one id share a fetch that outlives any single
// caller; the result is kept only if some caller is still waiting for it.
// Fetch errors reach every waiter and are not cached. A caller that joins a
// fetch started before an Invalidate waits for it to finish, then fetches
// again.
func (c *Cache) Get(ctx context.Context, id string) (media.Title, error) {
	if c.fetcher == nil {
		return media.Title{}, ErrNilFetcher
	}

	counted := false
	for {
		c.mu.Lock()
		if e, ok := c.entries[id]; ok {
			e.fetchedAt = c.now()
			title := e.title
			c.mu.Unlock()
			c.hits.Add(1)
			return title, nil
		}
		gen := c.gens[id]
		c.waiters[id]++
		fetchCtx := context.WithoutCancel(ctx)
		ch := c.group.DoChan(id, func() (any, error) {
			return c.fetch(fetchCtx, id, gen)
		})
		c.mu.Unlock()
		if !counted {
			c.misses.Add(1)
			counted = true
		}

		select {
		case res := <-ch:
			c.leave(id)
			if res.Err != nil {
				return media.Title{}, fmt.Errorf("fetching title %s: %w", id, res.Err)
			}
			got := res.Val.(fetched)
			if got.gen != gen {
				// The flight predates an invalidation; it has finished, so
				// the next pass starts a fresh one.
				continue
			}
			return got.title, nil
		case <-ctx.Done():
			c.leave(id)
			return media.Title{}, ctx.Err()
		}
	}
}

// fetched is a flight result tagged with the generation it started under.
type fetched struct {
	title media.Title
	gen   uint64
}

func (c *Cache) fetch(ctx context.Context, id string, gen uint64) (fetched, error) {
	c.fetches.Add(1)
	log := c.log.WithField("title", id)

	title, err := c.fetcher.FetchFullTitle(ctx, id)
	if err != nil {
		log.WithError(err).Debug("fetch failed")
		return fetched{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.gens[id] != gen:
		log.Debug("title invalidated during fetch, dropping result")
		return fetched{title: title, gen: gen}, nil
	case c.waiters[id] == 0:
		log.Debug("no waiters left, dropping fetched title")
		return fetched{title: title, gen: gen}, nil
	}
	c.entries[id] = &entry{title: title, fetchedAt: c.now()}
	if n := c.evictLocked(); n > 0 {
		log.WithField("evicted", n).Debug("evicted oldest titles")
	}
	return fetched{title: title, gen: gen}, nil
}

func (c *Cache) leave(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.waiters[id] <= 1 {
		delete(c.waiters, id)
		return
	}
	c.waiters[id]--
}

// evictLocked drops the oldest entries until the cache fits its capacity.
// Ties on fetchedAt are broken by id.
func (c *Cache) evictLocked() int {
	evicted := 0
	for len(c.entries) > c.capacity {
		var (
			oldestID string
			oldestAt time.Time
			found    bool
		)
		for id, e := range c.entries {
			if !found || e.fetchedAt.Before(oldestAt) || (e.fetchedAt.Equal(oldestAt) && id < oldestID) {
				oldestID, oldestAt, found = id, e.fetchedAt, true
			}
		}
		delete(c.entries, oldestID)
		evicted++
	}
	c.evictions.Add(int64(evicted))
	return evicted
}

// Peek returns a cached title without fetching or refreshing it.
func (c *Cache) Peek(id string) mo.Option[media.Title] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[id]; ok {
		return mo.Some(e.title)
	}
	return mo.None[media.Title]()
}

// Invalidate removes id from the cache. A fetch already in flight for id
// still completes, but its result is not stored.
func (c *Cache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.gens[id]++
}

// Contains reports whether id is cached.
func (c *Cache) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// Len returns the number of cached titles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// SetCapacity changes the bound. Existing entries over the new bound are
// evicted by the next insert or sweep. Values below 1 are ignored.
func (c *Cache) SetCapacity(n int) {
	if n < 1 {
		return
	}
	c.mu.Lock()
	c.capacity = n
	c.mu.Unlock()
}

// Sweep evicts entries over capacity and returns how many were removed.
func (c *Cache) Sweep() int {
	c.mu.Lock()
	n := c.evictLocked()
	c.mu.Unlock()

	if n > 0 {
		c.log.WithField("evicted", n).Debug("sweep evicted titles")
	}
	return n
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Fetches:   c.fetches.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Start launches the sweep loop. Calling Start on a running cache is a no-op.
func (c *Cache) Start() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.stop != nil {
		return
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.sweepLoop(c.stop, c.done)
}

// Stop ends the sweep loop and waits for it to exit. It is safe to call
// more than once, and on a cache that was never started.
func (c *Cache) Stop() {
	c.loopMu.Lock()
	defer c.loopMu.Unlock()
	if c.stop == nil {
		return
	}

	close(c.stop)
	<-c.done
	c.stop, c.done = nil, nil
}

func (c *Cache) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-stop:
			return
		}
	}
}
