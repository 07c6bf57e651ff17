/*
Copyright 2025 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package clockcache provides a fixed-capacity, thread-safe, in-memory
// cache with CLOCK (second chance) eviction and in-use pinning.
//
// Access looks a key up and, on a miss, admits the supplied value, evicting
// another entry if needed. The returned *Value pins the underlying cell:
// even if the entry is evicted from its slot while held, the payload stays
// valid until the matching Release. Eviction is governed by a clock hand
// sweeping the slot array, clearing per-entry reference bits and skipping
// pinned entries.
package clockcache // import "github.com/vimeo/clockcache"

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vimeo/clockcache/keyidx"

	"github.com/jedisct1/dlog"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.opencensus.io/trace"
)

// Cache is a fixed-capacity associative cache keyed by string. All public
// methods are safe for concurrent use; a single mutex serializes every
// operation, so value-free callbacks run under it and must not call back
// into the cache.
type Cache struct {
	name      string
	valueFree func([]byte)

	mu      sync.Mutex
	ring    *slotRing
	idx     *keyidx.Table
	tracker *keyspaceTracker
	closed  bool

	// counters, guarded by mu
	nhits     int64
	nmisses   int64
	nevict    int64
	nforced   int64
	nreleases int64
	ndetached int64 // currently live evicted-but-pinned cells
}

// Option configures a Cache at construction time.
type Option interface {
	apply(*Cache)
}

type funcOption struct {
	f func(*Cache)
}

func (fo *funcOption) apply(c *Cache) {
	fo.f(c)
}

func newFuncOption(f func(*Cache)) *funcOption {
	return &funcOption{f: f}
}

// WithName sets the name used to tag metrics and prefix log lines;
// defaults to "clockcache".
func WithName(name string) Option {
	return newFuncOption(func(c *Cache) {
		c.name = name
	})
}

// WithValueFree installs a function invoked exactly once per payload when
// its cell dies (on eviction with no holders, on the final Release of an
// evicted cell, or on Close). It runs with the cache mutex held and must
// not call back into the cache.
func WithValueFree(free func([]byte)) Option {
	return newFuncOption(func(c *Cache) {
		c.valueFree = free
	})
}

// WithKeyspaceTracking enables a HyperLogLog sketch of every key ever
// requested; the estimate is reported by Stats.
func WithKeyspaceTracking() Option {
	return newFuncOption(func(c *Cache) {
		c.tracker = newKeyspaceTracker()
	})
}

// New creates a Cache with the given slot capacity.
func New(capacity int, opts ...Option) (*Cache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("clockcache: capacity must be positive, got %d", capacity)
	}
	c := &Cache{
		name: "clockcache",
		ring: newSlotRing(capacity),
		idx:  keyidx.New(capacity),
	}
	for _, opt := range opts {
		opt.apply(c)
	}
	return c, nil
}

// Access looks key up, admitting value on a miss. On a hit the cached
// payload is returned and the supplied value is ignored; hits never
// overwrite. The returned Value is pinned and must be balanced by a
// Release. Returns nil if the cache has been closed. ctx carries metric
// tags and the trace span only; Access never blocks on it.
func (c *Cache) Access(ctx context.Context, key string, value []byte) *Value {
	ctx, _ = tag.New(ctx, tag.Upsert(CacheNameKey, c.name))
	ctx, span := trace.StartSpan(ctx, "clockcache.(*Cache).Access")
	startTime := time.Now()
	defer func() {
		stats.Record(ctx, MAccessLatencyMilliseconds.M(sinceInMilliseconds(startTime)))
		span.End()
	}()
	stats.Record(ctx, MAccesses.M(1), MKeyLength.M(int64(len(key))), MValueLength.M(int64(len(value))))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		dlog.Errorf("[%s] access on closed cache: key [%s]", c.name, key)
		span.SetStatus(trace.Status{Code: trace.StatusCodeFailedPrecondition, Message: "cache closed"})
		return nil
	}
	if c.tracker != nil {
		c.tracker.observe(key)
	}

	if slot, ok := c.idx.Lookup(key); ok {
		if v := c.ring.cells[slot]; v != nil {
			v.refcount++
			v.refBit = true
			c.nhits++
			stats.Record(ctx, MCacheHits.M(1))
			span.Annotatef(nil, "Cache hit")
			dlog.Debugf("[%s] cache hit: key [%s] slot %d ref=%d bit=1", c.name, key, slot, v.refcount)
			return v
		}
	}

	victim, forced := c.ring.findVictim()
	if forced {
		c.nforced++
		stats.Record(ctx, MForcedEvictions.M(1))
		dlog.Warnf("[%s] no unpinned victim found, forcing eviction of slot %d", c.name, victim)
	}
	c.retireLocked(ctx, victim)
	v := c.ring.admit(victim, key, value)
	c.idx.Insert(key, victim)

	c.nmisses++
	stats.Record(ctx, MCacheMisses.M(1))
	span.Annotatef(nil, "Cache miss")
	dlog.Debugf("[%s] cache miss: stored key [%s] in slot %d ref=1 bit=1", c.name, key, victim)
	return v
}

// AccessMarshal marshals src and admits the bytes under key (or pins the
// existing entry on a hit, ignoring src's bytes).
func (c *Cache) AccessMarshal(ctx context.Context, key string, src Codec) (*Value, error) {
	data, err := src.MarshalBinary()
	if err != nil {
		return nil, err
	}
	v := c.Access(ctx, key, data)
	if v == nil {
		return nil, errors.New("clockcache: cache closed")
	}
	return v, nil
}

// retireLocked vacates slot i: the key is removed from the index and the
// resident cell either dies (no holders) or is detached with its payload
// intact until the last holder releases it.
func (c *Cache) retireLocked(ctx context.Context, i int) {
	if !c.ring.occupied(i) {
		return
	}
	c.idx.Erase(c.ring.keys[i])
	old := c.ring.cells[i]
	c.ring.clear(i)
	c.nevict++
	stats.Record(ctx, MEvictions.M(1))
	if old.pinned() {
		old.slot = slotEvicted
		c.ndetached++
		stats.Record(ctx, MDetachedCells.M(1))
		dlog.Debugf("[%s] evicted pinned cell from slot %d (ref=%d); kept alive for holders", c.name, i, old.refcount)
		return
	}
	c.freeLocked(old)
}

// Release unpins v. When the last holder of an evicted cell releases it,
// the cell dies and the value-free callback runs. Release(nil) is a no-op.
func (c *Cache) Release(v *Value) {
	if v == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	v.refcount--
	c.nreleases++
	if v.refcount < 0 {
		dlog.Errorf("[%s] unbalanced release (ref=%d)", c.name, v.refcount)
		return
	}
	if v.refcount == 0 && v.slot == slotEvicted {
		c.ndetached--
		c.freeLocked(v)
	}
}

// freeLocked runs the value-free callback and marks the cell dead.
func (c *Cache) freeLocked(v *Value) {
	if c.valueFree != nil {
		c.valueFree(v.data)
	}
	v.data = nil
}

// Close retires every slot and frees every resident cell, even pinned ones
// (with a warning: callers are expected to release all holders first).
// Cells already evicted but still held are left to die at their final
// Release. Close is idempotent; Access on a closed cache returns nil.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	for i := range c.ring.cells {
		if !c.ring.occupied(i) {
			continue
		}
		c.idx.Erase(c.ring.keys[i])
		v := c.ring.cells[i]
		c.ring.clear(i)
		if v.pinned() {
			dlog.Warnf("[%s] freeing held value in slot %d (ref=%d) on close", c.name, i, v.refcount)
		}
		c.freeLocked(v)
	}
	c.closed = true
}

// Len returns the number of occupied slots.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for i := range c.ring.cells {
		if c.ring.occupied(i) {
			n++
		}
	}
	return n
}

// Capacity returns the fixed slot capacity supplied at creation.
func (c *Cache) Capacity() int {
	return c.ring.capacity()
}

// Name returns the cache's name.
func (c *Cache) Name() string {
	return c.name
}

// Stats is a snapshot of the cache's counters.
type Stats struct {
	Hits            int64
	Misses          int64
	Evictions       int64
	ForcedEvictions int64
	Releases        int64
	DetachedCells   int64 // evicted cells currently kept alive by holders
	DistinctKeys    uint64
}

// Stats returns a consistent snapshot of the counters. DistinctKeys is zero
// unless WithKeyspaceTracking was given.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{
		Hits:            c.nhits,
		Misses:          c.nmisses,
		Evictions:       c.nevict,
		ForcedEvictions: c.nforced,
		Releases:        c.nreleases,
		DetachedCells:   c.ndetached,
	}
	if c.tracker != nil {
		s.DistinctKeys = c.tracker.estimate()
	}
	return s
}

// StateString formats the occupied slots as "[i: key, ref=R, bit=B]"
// together with the clock hand position.
func (c *Cache) StateString() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Cache) stateLocked() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hand=%d", c.ring.hand)
	for i := range c.ring.cells {
		if !c.ring.occupied(i) {
			continue
		}
		v := c.ring.cells[i]
		bit := 0
		if v.refBit {
			bit = 1
		}
		fmt.Fprintf(&b, " [%d: %s, ref=%d, bit=%d]", i, c.ring.keys[i], v.refcount, bit)
	}
	return b.String()
}

// LogState logs the current state snapshot at info level.
func (c *Cache) LogState() {
	c.mu.Lock()
	state := c.stateLocked()
	c.mu.Unlock()
	dlog.Infof("[%s] cache state: %s", c.name, state)
}
