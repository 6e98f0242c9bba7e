package tunes

import (
	"context"
	"sort"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/cache"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// TuneSetRepository manages the tune-to-set membership edges. Queries
// prefer the cached full list and fall back to filtered remote reads;
// bulk mutations go through an atomic batch so a set is never left
// half written.
type TuneSetRepository struct {
	*Collection[TuneSet]

	remote docstore.Store
	now    func() time.Time
}

func NewTuneSetRepository(remote docstore.Store, local cache.LocalStore, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *TuneSetRepository {
	return &TuneSetRepository{
		Collection: NewCollection(CollectionConfig[TuneSet]{
			Name:    CollectionTuneSets,
			Parse:   ParseTuneSet,
			ID:      func(ts TuneSet) string { return ts.ID },
			Sort:    sortTuneSets,
			Remote:  remote,
			Local:   local,
			TTL:     ttl,
			Logger:  logger,
			Metrics: metrics,
		}),
		remote: remote,
		now:    time.Now,
	}
}

// GetByTuneID returns the memberships of one tune, ordered by set then
// position.
func (r *TuneSetRepository) GetByTuneID(ctx context.Context, tuneID string) ([]TuneSet, error) {
	if cached, ok := r.local.Get(); ok {
		var out []TuneSet
		for _, ts := range cached {
			if ts.TuneID == tuneID {
				out = append(out, ts)
			}
		}
		sortTuneSets(out)
		return out, nil
	}

	docs, err := r.remote.GetAll(ctx, CollectionTuneSets, docstore.Query{
		Filters: []docstore.Filter{{Field: "tuneId", Value: tuneID}},
	})
	if err != nil {
		return nil, r.describeError(err)
	}
	out := make([]TuneSet, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ParseTuneSet(doc.Data, doc.ID))
	}
	sortTuneSets(out)
	return out, nil
}

// GetBySetID returns the members of one set in position order.
func (r *TuneSetRepository) GetBySetID(ctx context.Context, setID string) ([]TuneSet, error) {
	if cached, ok := r.local.Get(); ok {
		var out []TuneSet
		for _, ts := range cached {
			if ts.SetID == setID {
				out = append(out, ts)
			}
		}
		sortByPosition(out)
		return out, nil
	}

	docs, err := r.remote.GetAll(ctx, CollectionTuneSets, docstore.Query{
		Filters: []docstore.Filter{{Field: "setId", Value: setID}},
	})
	if err != nil {
		return nil, r.describeError(err)
	}
	out := make([]TuneSet, 0, len(docs))
	for _, doc := range docs {
		out = append(out, ParseTuneSet(doc.Data, doc.ID))
	}
	sortByPosition(out)
	return out, nil
}

// AddTuneSet creates a single membership edge with the current time as
// both timestamps and returns its document id.
func (r *TuneSetRepository) AddTuneSet(ctx context.Context, tuneID, setID string, position int) (string, error) {
	if tuneID == "" || setID == "" {
		return "", docstore.Errorf(docstore.InvalidArgument, "tuneSets: tune id and set id are required")
	}
	now := r.now().UTC().Format(time.RFC3339)
	ts := TuneSet{
		ID:        TuneSetID(tuneID, setID),
		TuneID:    tuneID,
		SetID:     setID,
		Position:  position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Add(ctx, ts.ID, ts.data()); err != nil {
		return "", err
	}
	return ts.ID, nil
}

// AddTunesToSet writes one membership edge per tune in a single atomic
// batch, positions assigned 1..n in input order. Deterministic ids
// make re-adding an existing tune an overwrite, not a duplicate.
func (r *TuneSetRepository) AddTunesToSet(ctx context.Context, setID string, tuneIDs []string) error {
	if setID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tuneSets: set id is required")
	}
	if len(tuneIDs) == 0 {
		return nil
	}

	now := r.now().UTC().Format(time.RFC3339)
	batch := r.remote.Batch()
	for i, tuneID := range tuneIDs {
		ts := TuneSet{
			ID:        TuneSetID(tuneID, setID),
			TuneID:    tuneID,
			SetID:     setID,
			Position:  i + 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		batch.Set(CollectionTuneSets, ts.ID, ts.data())
	}
	if err := batch.Commit(ctx); err != nil {
		return r.describeError(err)
	}
	r.refreshAfterWrite(ctx)
	return nil
}

// RemoveTuneFromSet deletes one membership edge.
func (r *TuneSetRepository) RemoveTuneFromSet(ctx context.Context, tuneID, setID string) error {
	if tuneID == "" || setID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "tuneSets: tune id and set id are required")
	}
	return r.Delete(ctx, TuneSetID(tuneID, setID))
}

// RemoveAllTunesFromSet deletes every membership edge of a set in one
// atomic batch.
func (r *TuneSetRepository) RemoveAllTunesFromSet(ctx context.Context, setID string) error {
	members, err := r.GetBySetID(ctx, setID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}

	batch := r.remote.Batch()
	for _, ts := range members {
		batch.Delete(CollectionTuneSets, ts.ID)
	}
	if err := batch.Commit(ctx); err != nil {
		return r.describeError(err)
	}
	r.refreshAfterWrite(ctx)
	return nil
}

func sortByPosition(list []TuneSet) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Position < list[j].Position
	})
}
