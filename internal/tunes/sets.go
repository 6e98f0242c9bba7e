package tunes

import (
	"context"
	"slices"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// SetRepository is the Collection repository for sets.
type SetRepository struct {
	*Collection[Set]
}

func NewSetRepository(remote docstore.Store, local cache.LocalStore, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *SetRepository {
	return &SetRepository{
		Collection: NewCollection(CollectionConfig[Set]{
			Name:    CollectionSets,
			OrderBy: "order",
			Parse:   ParseSet,
			ID:      func(s Set) string { return s.ID },
			Remote:  remote,
			Local:   local,
			TTL:     ttl,
			Logger:  logger,
			Metrics: metrics,
		}),
	}
}

// GetByTuneID returns every set whose composition includes the tune.
// It works off the full cached set list, so a cold cache costs one
// scan, not one query per tune.
func (r *SetRepository) GetByTuneID(ctx context.Context, tuneID string) ([]Set, error) {
	if tuneID == "" {
		return nil, docstore.Errorf(docstore.InvalidArgument, "sets: tune id is required")
	}
	all, err := r.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []Set
	for _, s := range all {
		if slices.Contains(s.TuneIDs, tuneID) {
			out = append(out, s)
		}
	}
	return out, nil
}
