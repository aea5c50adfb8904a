package revalidate

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/goliatone/go-sitecms/internal/logging"
	"github.com/goliatone/go-sitecms/pkg/interfaces"
)

// Route names a group of paths sharing a freshness interval.
type Route struct {
	Name     string
	Interval time.Duration
}

var (
	RouteHome     = Route{Name: "home", Interval: time.Hour}
	RouteBlog     = Route{Name: "blog", Interval: time.Hour}
	RouteBlogPost = Route{Name: "blog-post", Interval: 24 * time.Hour}
	RouteLegal    = Route{Name: "legal", Interval: 24 * time.Hour}
	RoutePage     = Route{Name: "page", Interval: time.Hour}
)

// Entry is one rendered response.
type Entry struct {
	Status      int       `json:"status"`
	ContentType string    `json:"content_type"`
	Location    string    `json:"location,omitempty"`
	Body        []byte    `json:"body"`
	RenderedAt  time.Time `json:"rendered_at"`
}

// State reports how Serve satisfied a request.
type State string

const (
	StateFresh State = "fresh"
	StateStale State = "stale"
	StateMiss  State = "miss"
)

type RenderFunc func(ctx context.Context) (Entry, error)

type routeEntry struct {
	entry      Entry
	expires    time.Time
	stale      bool
	refreshing bool
}

// RouteCache serves rendered paths with stale-while-revalidate semantics:
// fresh entries are returned directly, stale entries are returned while one
// background render replaces them, and misses render synchronously.
// Only responses below 400 are stored, and at most capacity paths are kept
// with least recently used eviction.
type RouteCache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *routeEntry]
	capacity int
	renders  singleflight.Group
	pending  sync.WaitGroup
	now      func() time.Time
	logger   interfaces.Logger
}

type RouteCacheOption func(*RouteCache)

func WithRouteClock(clock func() time.Time) RouteCacheOption {
	return func(c *RouteCache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// DefaultRouteCapacity is the number of paths kept when no capacity is set.
const DefaultRouteCapacity = 2048

// WithRouteCapacity bounds the number of cached paths. Non-positive values
// keep DefaultRouteCapacity.
func WithRouteCapacity(size int) RouteCacheOption {
	return func(c *RouteCache) {
		if size > 0 {
			c.capacity = size
		}
	}
}

func WithRouteLogger(logger interfaces.Logger) RouteCacheOption {
	return func(c *RouteCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewRouteCache(opts ...RouteCacheOption) *RouteCache {
	c := &RouteCache{
		capacity: DefaultRouteCapacity,
		now:      time.Now,
		logger:   logging.NoOp(),
	}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.New[string, *routeEntry](c.capacity)
	if err != nil {
		// only fails for a non-positive size, which the option rejects
		panic(err)
	}
	c.entries = entries
	return c
}

func (c *RouteCache) Serve(ctx context.Context, route Route, path string, render RenderFunc) (Entry, State, error) {
	c.mu.Lock()
	current, ok := c.entries.Get(path)
	if ok {
		if !current.stale && c.now().Before(current.expires) {
			entry := current.entry
			c.mu.Unlock()
			return entry, StateFresh, nil
		}
		entry := current.entry
		if !current.refreshing {
			current.refreshing = true
			c.pending.Add(1)
			go c.refresh(context.WithoutCancel(ctx), route, path, render)
		}
		c.mu.Unlock()
		return entry, StateStale, nil
	}
	c.mu.Unlock()

	result, err, _ := c.renders.Do(path, func() (any, error) {
		return c.render(ctx, route, path, render)
	})
	if err != nil {
		return Entry{}, StateMiss, err
	}
	return result.(Entry), StateMiss, nil
}

func (c *RouteCache) refresh(ctx context.Context, route Route, path string, render RenderFunc) {
	defer c.pending.Done()
	if _, err := c.render(ctx, route, path, render); err != nil {
		c.logger.Warn("revalidate.route.refresh_failed", "path", path, "route", route.Name, "error", err)
		c.mu.Lock()
		if current, ok := c.entries.Peek(path); ok {
			current.refreshing = false
		}
		c.mu.Unlock()
	}
}

func (c *RouteCache) render(ctx context.Context, route Route, path string, render RenderFunc) (Entry, error) {
	entry, err := render(ctx)
	if err != nil {
		return Entry{}, err
	}
	now := c.now()
	if entry.RenderedAt.IsZero() {
		entry.RenderedAt = now
	}
	c.mu.Lock()
	if entry.Status < 400 {
		c.entries.Add(path, &routeEntry{entry: entry, expires: now.Add(route.Interval)})
	} else {
		c.entries.Remove(path)
	}
	c.mu.Unlock()
	return entry, nil
}

// RevalidatePath marks path stale so the next request triggers a refresh.
// It reports whether the path was cached.
func (c *RouteCache) RevalidatePath(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, ok := c.entries.Peek(path)
	if ok {
		current.stale = true
	}
	return ok
}

// RevalidateAll marks every cached path stale.
func (c *RouteCache) RevalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, current := range c.entries.Values() {
		current.stale = true
	}
	return c.entries.Len()
}

// Len reports the number of cached paths.
func (c *RouteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Wait blocks until background refreshes started so far have finished.
func (c *RouteCache) Wait() {
	c.pending.Wait()
}
