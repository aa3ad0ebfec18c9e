package rbac

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"akshayapatra/internal/metrics"

	"golang.org/x/sync/singleflight"
)

// Entry is a resolved authorization decision for one staff identifier.
// Entries are immutable once stored; callers must not modify them.
type Entry struct {
	Role Role
	// AssignedRole is the stored role, kept while a ban masks Role
	AssignedRole Role
	Permissions  map[Permission]struct{}
	Pages        []string
	ComputedAt   time.Time
	ExpiresAt    time.Time
}

// Has reports whether the entry grants p
func (e *Entry) Has(p Permission) bool {
	_, ok := e.Permissions[p]
	return ok
}

// NewEntry builds the cache entry for a role computed at the given instant
func NewEntry(role Role, computedAt time.Time) *Entry {
	return &Entry{
		Role:         role,
		AssignedRole: role,
		Permissions:  permissionSet(PermissionsFor(role)...),
		Pages:        PagesFor(role),
		ComputedAt:   computedAt,
	}
}

// CacheStats is a point-in-time view of cache usage
type CacheStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	TTL     string `json:"ttl"`
}

// Cache holds per-user authorization entries with a bounded freshness window.
//
// Every key carries a generation that Invalidate bumps, and Flush bumps a global
// epoch. A computation only stores its result if neither changed while it ran,
// so a lookup that raced an invalidation can never put a stale entry back.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	gens    map[string]uint64
	epoch   uint64
	ttl     time.Duration
	now     func() time.Time
	group   singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache creates an empty cache whose entries live at most ttl
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		gens:    make(map[string]uint64),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a fresh entry without computing one
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.ExpiresAt) {
		return nil, false
	}
	return e, true
}

// GetOrCompute returns the cached entry for key or runs compute once and stores
// the result. Concurrent misses for the same key share a single computation.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (*Entry, error)) (*Entry, error) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Before(e.ExpiresAt) {
			c.mu.Unlock()
			c.hits.Add(1)
			metrics.IncRBACCache("hit")
			return e, nil
		}
		delete(c.entries, key)
	}
	gen, epoch := c.gens[key], c.epoch
	c.mu.Unlock()

	c.misses.Add(1)
	metrics.IncRBACCache("miss")

	flightKey := key + "#" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
	// the shared computation must not die with whichever caller started it
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		e, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, gen, epoch, e)
		return e, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (c *Cache) store(key string, gen, epoch uint64, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	maxExpiry := c.now().Add(c.ttl)
	if e.ExpiresAt.IsZero() || e.ExpiresAt.After(maxExpiry) {
		e.ExpiresAt = maxExpiry
	}
	if c.gens[key] != gen || c.epoch != epoch {
		return
	}
	c.entries[key] = e
}

// Invalidate drops the entry for key and discards any computation in flight for it
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gens[key]++
	c.mu.Unlock()
}

// Flush drops every entry
func (c *Cache) Flush() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.gens = make(map[string]uint64)
	c.epoch++
	c.mu.Unlock()
}

// Len returns the number of stored entries, fresh or not
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries: c.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		TTL:     c.ttl.String(),
	}
}
