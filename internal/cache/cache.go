package cache

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// DefaultTTL applies to sources without an entry in Options.TTLs.
const DefaultTTL = 5 * time.Minute

type Options struct {
	// TTLs maps a source name to the lifetime of its entries.
	TTLs       map[string]time.Duration
	DefaultTTL time.Duration
	Now        func() time.Time
	Logger     *zap.Logger
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.insertedAt.Add(e.ttl))
}

// Cache is an in-memory key/value store with per-entry expiry. Expired
// entries are invisible to readers and reclaimed lazily or by Sweep.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	ttls       map[string]time.Duration
	defaultTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
	sweeps atomic.Int64
}

func New[V any](opts Options) *Cache[V] {
	c := &Cache[V]{
		entries:    map[string]entry[V]{},
		ttls:       lo.Assign(opts.TTLs),
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
		logger:     opts.Logger,
	}
	if c.defaultTTL <= 0 {
		c.defaultTTL = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Key composes a cache key from a source, an operation and its arguments.
// Arguments are canonicalized, so maps with the same pairs always collide.
func Key(source, op string, args map[string]string) string {
	return SourcePrefix(source) + op + "|" + Signature(args)
}

// SourcePrefix is the prefix shared by every key of a source.
func SourcePrefix(source string) string {
	return source + "|"
}

// Signature hashes the non-empty pairs of args in key order.
func Signature(args map[string]string) string {
	keys := lo.Keys(args)
	slices.Sort(keys)

	h := xxhash.New()
	for _, k := range keys {
		v := args[k]
		if v == "" {
			continue
		}
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("=")
		_, _ = h.WriteString(v)
		_, _ = h.WriteString(";")
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// TTLFor returns the default lifetime of a key, based on its source prefix.
func (c *Cache[V]) TTLFor(key string) time.Duration {
	source, _, _ := strings.Cut(key, "|")
	if ttl, ok := c.ttls[source]; ok && ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

// Get returns the value for key. Absent and expired entries both report
// found = false.
func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.now()

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && !e.expired(now) {
		c.hits.Add(1)
		return e.value, true
	}
	c.misses.Add(1)
	if ok {
		c.evict(key, e.insertedAt)
	}
	var zero V
	return zero, false
}

// evict removes key if it still holds the expired entry inserted at insertedAt.
func (c *Cache[V]) evict(key string, insertedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[key]; ok && cur.insertedAt.Equal(insertedAt) && cur.expired(c.now()) {
		delete(c.entries, key)
	}
}

// Set stores value under key, replacing any previous entry and resetting its
// clock. A non-positive ttl selects the key's default.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.TTLFor(key)
	}
	e := entry[V]{value: value, insertedAt: c.now(), ttl: ttl}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidatePrefix drops every entry whose key starts with prefix and returns
// how many were removed.
func (c *Cache[V]) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Sweep deletes all expired entries in one critical section.
func (c *Cache[V]) Sweep() int {
	now := c.now()

	c.mu.Lock()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	c.mu.Unlock()

	c.sweeps.Add(1)
	if n > 0 {
		c.logger.Debug("cache sweep", zap.Int("removed", n))
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (c *Cache[V]) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = map[string]entry[V]{}
	c.mu.Unlock()
}

type Stats struct {
	Entries int
	Expired int
	Hits    int64
	Misses  int64
	Sweeps  int64
}

func (c *Cache[V]) Stats() Stats {
	now := c.now()

	c.mu.RLock()
	s := Stats{Entries: len(c.entries)}
	for _, e := range c.entries {
		if e.expired(now) {
			s.Expired++
		}
	}
	c.mu.RUnlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Sweeps = c.sweeps.Load()
	return s
}
