package user

import (
	"context"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

// Favorites manages the users/<uid>/favorites sub-collection. Each
// favorite is keyed by tune id with a store-assigned addedAt
// timestamp.
type Favorites struct {
	store  docstore.Store
	logger *observability.Logger
}

func NewFavorites(store docstore.Store, logger *observability.Logger) *Favorites {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Favorites{store: store, logger: logger}
}

func favoritesPath(uid string) string {
	return "users/" + uid + "/favorites"
}

// Check reports whether the tune is favorited. Failures degrade to
// false so the UI renders an unfilled star instead of an error.
func (f *Favorites) Check(ctx context.Context, uid, tuneID string) bool {
	if uid == "" || tuneID == "" {
		return false
	}
	_, err := f.store.Get(ctx, favoritesPath(uid), tuneID)
	if err != nil {
		if !docstore.IsNotFound(err) {
			f.logger.LogWarn(ctx, "favorite check failed", "user", uid, "tune", tuneID, "error", err)
		}
		return false
	}
	return true
}

// List returns the user's favorite tune ids. Failures degrade to an
// empty list.
func (f *Favorites) List(ctx context.Context, uid string) []string {
	if uid == "" {
		return nil
	}
	docs, err := f.store.GetAll(ctx, favoritesPath(uid), docstore.Query{})
	if err != nil {
		f.logger.LogWarn(ctx, "favorites list failed", "user", uid, "error", err)
		return nil
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids
}

// Add favorites a tune, stamping addedAt with the store clock. The
// optional note is only written when non-empty.
func (f *Favorites) Add(ctx context.Context, uid, tuneID, note string) error {
	if uid == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "favorites: uid and tune id are required")
	}
	data := map[string]any{
		"tuneId":  tuneID,
		"addedAt": docstore.ServerTime,
	}
	if note != "" {
		data["note"] = note
	}
	return f.store.Set(ctx, favoritesPath(uid), tuneID, data, docstore.SetOptions{})
}

// Remove unfavorites a tune.
func (f *Favorites) Remove(ctx context.Context, uid, tuneID string) error {
	if uid == "" || tuneID == "" {
		return docstore.Errorf(docstore.InvalidArgument, "favorites: uid and tune id are required")
	}
	return f.store.Delete(ctx, favoritesPath(uid), tuneID)
}
