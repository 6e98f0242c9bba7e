package tunes

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// ParseFunc decodes a raw document into an entity. It must be total:
// malformed fields map to defaults, never to an error.
type ParseFunc[T any] func(data map[string]any, id string) T

// CollectionConfig wires a Collection to its backing store and cache.
type CollectionConfig[T any] struct {
	// Name is the collection path in the document store. It doubles as
	// the persistent cache key suffix and the metrics label.
	Name string

	// OrderBy is the field collection scans are sorted by. Empty means
	// document-id order.
	OrderBy string

	// Parse decodes one document, ID extracts an entity's document id.
	Parse ParseFunc[T]
	ID    func(T) string

	// Sort, when set, reorders a fetched batch client-side after
	// parsing. Used where the order spans more than one field.
	Sort func([]T)

	Remote  docstore.Store
	Local   cache.LocalStore
	TTL     time.Duration
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Collection is a read-mostly repository over one document-store
// collection with a two-tier read path: a TTL-bound persistent cache
// first, then a process-local list kept from the last successful
// fetch, then a remote scan. Concurrent cold-cache readers are
// coalesced into a single scan.
type Collection[T any] struct {
	name    string
	orderBy string
	parse   ParseFunc[T]
	id      func(T) string
	sort    func([]T)
	remote  docstore.Store
	local   *cache.Cache[[]T]
	logger  *observability.Logger
	metrics *observability.Metrics

	group singleflight.Group

	// The in-process tier: the last fetched list plus the error slot
	// that replays a failed fetch to later readers until a refresh
	// clears it.
	mu      sync.Mutex
	list    []T
	lastErr error
}

// NewCollection builds a Collection from its config. Logger and
// Metrics may be nil.
func NewCollection[T any](cfg CollectionConfig[T]) *Collection[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Collection[T]{
		name:    cfg.Name,
		orderBy: cfg.OrderBy,
		parse:   cfg.Parse,
		id:      cfg.ID,
		sort:    cfg.Sort,
		remote:  cfg.Remote,
		local:   cache.New[[]T](cfg.Name, cfg.TTL, cfg.Local, logger),
		logger:  logger,
		metrics: cfg.Metrics,
	}
}

// Name returns the collection path.
func (c *Collection[T]) Name() string { return c.name }

// GetAll returns the full collection. With forceRefresh false it
// serves the persistent cache when fresh, then the in-process list
// from the last successful fetch, and only scans the remote store when
// both are empty. A remembered fetch error takes precedence over the
// in-process list so callers keep seeing the failure until Refresh.
func (c *Collection[T]) GetAll(ctx context.Context, forceRefresh bool) ([]T, error) {
	if forceRefresh {
		c.resetState()
		return c.fetch(ctx)
	}

	if cached, ok := c.local.Get(); ok {
		c.metrics.RecordCacheHit(ctx, c.name)
		c.storeState(cached, nil)
		return cached, nil
	}
	c.metrics.RecordCacheMiss(ctx, c.name)

	if list, err, ok := c.loadState(); ok {
		if err != nil {
			return nil, err
		}
		// Re-seed the persistent cache so the next reader does not
		// fall through to this tier again.
		c.local.Set(list)
		return list, nil
	}

	return c.fetch(ctx)
}

// GetByID returns a single entity. It is served from the persistent
// cache when the collection is already cached, otherwise it falls back
// to a remote point read. A missing document is (zero, false, nil),
// not an error.
func (c *Collection[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if id == "" {
		return zero, false, docstore.Errorf(docstore.InvalidArgument, "%s: id is required", c.name)
	}

	if cached, ok := c.local.Get(); ok {
		for _, entity := range cached {
			if c.id(entity) == id {
				return entity, true, nil
			}
		}
		// A fresh cache holds the whole collection, so a miss here is
		// authoritative only if the document was present at fetch
		// time. Fall through to the remote store to catch documents
		// written since.
	}

	doc, err := c.remote.Get(ctx, c.name, id)
	if err != nil {
		if docstore.IsNotFound(err) {
			return zero, false, nil
		}
		wrapped := c.describeError(err)
		c.logger.LogError(ctx, "point read failed", err, "collection", c.name, "id", id)
		return zero, false, wrapped
	}
	return c.parse(doc.Data, doc.ID), true, nil
}

// Refresh drops both cache tiers, clears any remembered fetch error
// and scans the remote store.
func (c *Collection[T]) Refresh(ctx context.Context) ([]T, error) {
	c.local.Clear()
	c.resetState()
	return c.fetch(ctx)
}

// Add creates a document and refreshes the repository so subsequent
// reads observe it. The write failing leaves the caches untouched.
func (c *Collection[T]) Add(ctx context.Context, id string, data map[string]any) error {
	if id == "" {
		return docstore.Errorf(docstore.InvalidArgument, "%s: id is required", c.name)
	}
	if err := c.remote.Set(ctx, c.name, id, data, docstore.SetOptions{}); err != nil {
		return c.describeError(err)
	}
	c.refreshAfterWrite(ctx)
	return nil
}

// Update merges fields into an existing document and refreshes.
func (c *Collection[T]) Update(ctx context.Context, id string, data map[string]any) error {
	if id == "" {
		return docstore.Errorf(docstore.InvalidArgument, "%s: id is required", c.name)
	}
	if err := c.remote.Set(ctx, c.name, id, data, docstore.SetOptions{Merge: true}); err != nil {
		return c.describeError(err)
	}
	c.refreshAfterWrite(ctx)
	return nil
}

// Delete removes a document and refreshes.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return docstore.Errorf(docstore.InvalidArgument, "%s: id is required", c.name)
	}
	if err := c.remote.Delete(ctx, c.name, id); err != nil {
		return c.describeError(err)
	}
	c.refreshAfterWrite(ctx)
	return nil
}

// Warmup pre-populates the caches at startup. It satisfies
// cache.WarmupProvider.
func (c *Collection[T]) Warmup(ctx context.Context) error {
	_, err := c.GetAll(ctx, false)
	return err
}

func (c *Collection[T]) fetch(ctx context.Context) ([]T, error) {
	v, err, _ := c.group.Do("fetch", func() (any, error) {
		return c.fetchRemote(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (c *Collection[T]) fetchRemote(ctx context.Context) ([]T, error) {
	start := time.Now()
	docs, err := c.remote.GetAll(ctx, c.name, docstore.Query{OrderBy: c.orderBy})
	if err != nil {
		wrapped := c.describeError(err)
		c.storeState(nil, wrapped)
		c.metrics.RecordError(ctx, c.name, docstore.CodeOf(err).String())
		c.logger.LogError(ctx, "collection scan failed", err, "collection", c.name)
		return nil, wrapped
	}
	c.metrics.RecordCollectionScan(ctx, c.name, time.Since(start))

	entities := make([]T, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, c.parse(doc.Data, doc.ID))
	}
	if c.sort != nil {
		c.sort(entities)
	}

	c.local.Set(entities)
	c.storeState(entities, nil)
	c.logger.LogInfo(ctx, "collection fetched", "collection", c.name, "count", len(entities))
	return entities, nil
}

// refreshAfterWrite repopulates the caches after a successful
// mutation. The write already landed, so a refresh failure is logged
// and swallowed; the caches stay cleared and the next read refetches.
func (c *Collection[T]) refreshAfterWrite(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil {
		c.logger.LogWarn(ctx, "refresh after write failed", "collection", c.name, "error", err)
	}
}

// describeError wraps a store failure with an operator-facing message
// keyed off the error code, preserving the code and cause.
func (c *Collection[T]) describeError(err error) error {
	code := docstore.CodeOf(err)
	var msg string
	switch code {
	case docstore.PermissionDenied:
		msg = "you do not have permission to read " + c.name
	case docstore.Unavailable:
		msg = "the " + c.name + " service is unreachable, check your network connection"
	case docstore.NotFound:
		msg = "no " + c.name + " data was found"
	default:
		msg = "failed to fetch " + c.name + " data"
	}
	return docstore.NewError(code, msg, err)
}

// loadState snapshots the in-process tier. The third return reports
// whether the tier holds anything, a list or a remembered error.
func (c *Collection[T]) loadState() ([]T, error, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr != nil {
		return nil, c.lastErr, true
	}
	if len(c.list) == 0 {
		return nil, nil, false
	}
	out := make([]T, len(c.list))
	copy(out, c.list)
	return out, nil, true
}

func (c *Collection[T]) storeState(list []T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = c.list[:0]
	c.list = append(c.list, list...)
	c.lastErr = err
}

func (c *Collection[T]) resetState() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = nil
	c.lastErr = nil
}

// setError records a fetch failure into the error slot without
// touching the list. Used by read paths outside fetchRemote.
func (c *Collection[T]) setError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
}

// clearError clears the error slot after a read succeeded through
// another path, such as the materialized list view.
func (c *Collection[T]) clearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = nil
}
