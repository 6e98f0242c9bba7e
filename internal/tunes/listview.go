package tunes

import (
	"context"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// ListViewDocument is the materialized projection of the whole tunes
// collection, stored as a single document so the list screen costs one
// read instead of one per tune.
type ListViewDocument struct {
	Data        []TuneListItem
	LastUpdated time.Time
	Version     int
	TotalCount  int
}

// ParseListViewDocument decodes the materialized document. A document
// with no usable data slice is malformed, and so is one written by a
// newer schema than this code understands; both force callers down the
// collection-scan fallback.
func ParseListViewDocument(data map[string]any) (*ListViewDocument, error) {
	raw, ok := data["data"].([]any)
	if !ok || len(raw) == 0 {
		return nil, docstore.Errorf(docstore.MalformedData, "list view document has no data")
	}
	version := intField(data, "version", 0)
	if version > ListViewVersion {
		return nil, docstore.Errorf(docstore.MalformedData, "list view document version %d is newer than supported version %d", version, ListViewVersion)
	}

	items := make([]TuneListItem, 0, len(raw))
	for _, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, ParseTuneListItem(fields, stringField(fields, "id", "")))
	}
	if len(items) == 0 {
		return nil, docstore.Errorf(docstore.MalformedData, "list view document has no decodable items")
	}

	doc := &ListViewDocument{
		Data:       items,
		Version:    version,
		TotalCount: intField(data, "totalCount", len(items)),
	}
	if ts, ok := timeField(data, "lastUpdated"); ok {
		doc.LastUpdated = ts
	}
	return doc, nil
}

func (d *ListViewDocument) data() map[string]any {
	items := make([]any, 0, len(d.Data))
	for _, item := range d.Data {
		items = append(items, item.data())
	}
	return map[string]any{
		"data":        items,
		"lastUpdated": d.LastUpdated,
		"version":     d.Version,
		"totalCount":  d.TotalCount,
	}
}

// TuneRepository is the Collection repository for tunes plus the
// list-view read path and its rebuild.
type TuneRepository struct {
	*Collection[Tune]

	remote  docstore.Store
	list    *cache.Cache[[]TuneListItem]
	cleaner *CleanupCoordinator
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// TuneRepositoryConfig wires a TuneRepository. Cleaner is optional;
// without it list-view reads skip the opportunistic cleanup.
type TuneRepositoryConfig struct {
	Remote  docstore.Store
	Local   cache.LocalStore
	TTL     time.Duration
	Cleaner *CleanupCoordinator
	Logger  *observability.Logger
	Metrics *observability.Metrics
}

func NewTuneRepository(cfg TuneRepositoryConfig) *TuneRepository {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &TuneRepository{
		Collection: NewCollection(CollectionConfig[Tune]{
			Name:    CollectionTunes,
			OrderBy: "tuneNo",
			Parse:   ParseTune,
			ID:      func(t Tune) string { return t.ID },
			Remote:  cfg.Remote,
			Local:   cfg.Local,
			TTL:     cfg.TTL,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		}),
		remote:  cfg.Remote,
		list:    cache.New[[]TuneListItem]("tunes_list_view", cfg.TTL, cfg.Local, logger),
		cleaner: cfg.Cleaner,
		logger:  logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// GetForListView returns the trimmed list projection. The read chain
// is: persistent list cache, then the materialized document, then a
// full collection scan. The cheaper tiers never mask a total failure;
// if every tier misses, the scan's error is returned.
func (r *TuneRepository) GetForListView(ctx context.Context, forceRefresh bool) ([]TuneListItem, error) {
	if forceRefresh {
		// Forced refresh distrusts the materialized document too, so
		// it goes straight to the source collection.
		r.list.Clear()
		return r.scanListItems(ctx)
	}

	if cached, ok := r.list.Get(); ok {
		r.metrics.RecordCacheHit(ctx, "tunes_list_view")
		r.metrics.RecordListViewRead(ctx, "cache")
		return cached, nil
	}
	r.metrics.RecordCacheMiss(ctx, "tunes_list_view")

	if items, ok := r.readListViewDocument(ctx); ok {
		return items, nil
	}

	return r.scanListItems(ctx)
}

// RefreshListView drops the list cache and rereads through the full
// chain.
func (r *TuneRepository) RefreshListView(ctx context.Context) ([]TuneListItem, error) {
	return r.GetForListView(ctx, true)
}

// readListViewDocument tries the materialized document tier. Any miss,
// a missing document, a malformed one or a store failure, is reported
// as !ok so the caller falls through to the collection scan.
func (r *TuneRepository) readListViewDocument(ctx context.Context) ([]TuneListItem, bool) {
	raw, err := r.remote.Get(ctx, CollectionCache, ListViewDocID)
	if err != nil {
		if docstore.IsNotFound(err) {
			r.logger.LogInfo(ctx, "list view document missing, falling back to scan")
		} else {
			r.logger.LogWarn(ctx, "list view document read failed, falling back to scan", "error", err)
		}
		return nil, false
	}

	doc, err := ParseListViewDocument(raw.Data)
	if err != nil {
		r.logger.LogWarn(ctx, "list view document unusable, falling back to scan", "error", err)
		return nil, false
	}

	r.list.Set(doc.Data)
	r.clearError()
	r.metrics.RecordListViewRead(ctx, "document")

	if r.cleaner != nil {
		// Piggybacked housekeeping. It must never fail the read.
		r.cleaner.Run(ctx, doc)
	}
	return doc.Data, true
}

// scanListItems is the last tier: a full collection scan projected
// down to list items. Failures land in the repository error slot so
// plain GetAll callers replay them too.
func (r *TuneRepository) scanListItems(ctx context.Context) ([]TuneListItem, error) {
	tunes, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]TuneListItem, 0, len(tunes))
	for _, t := range tunes {
		items = append(items, ListItemOf(t))
	}
	r.list.Set(items)
	r.metrics.RecordListViewRead(ctx, "scan")
	return items, nil
}

// RebuildListView scans the full collection and replaces the
// materialized document wholesale, stale entries included. It returns
// the document it wrote.
func (r *TuneRepository) RebuildListView(ctx context.Context) (*ListViewDocument, error) {
	start := r.now()
	tunes, err := r.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]TuneListItem, 0, len(tunes))
	for _, t := range tunes {
		items = append(items, ListItemOf(t))
	}
	doc := &ListViewDocument{
		Data:        items,
		LastUpdated: r.now().UTC(),
		Version:     ListViewVersion,
		TotalCount:  len(items),
	}

	// Full replace, not a merge: rebuild is the only writer and a
	// merge would leave removed tunes behind.
	if err := r.remote.Set(ctx, CollectionCache, ListViewDocID, doc.data(), docstore.SetOptions{}); err != nil {
		return nil, docstore.NewError(docstore.CodeOf(err), "failed to write list view document", err)
	}

	r.list.Set(items)
	r.clearError()
	r.metrics.RecordRebuild(ctx, len(items), time.Since(start))
	r.logger.LogInfo(ctx, "list view rebuilt", "tunes", len(items), "duration", time.Since(start))
	return doc, nil
}
