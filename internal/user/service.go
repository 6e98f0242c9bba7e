// Package user owns per-user data: the profile document, the personal
// tune log sub-collection, favorites, and table display settings.
package user

import (
	"context"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
	"github.com/tempakyousuke/learn-irish/internal/platform/observability"
)

const profileCollection = "users"

// Profile is the user's own document.
type Profile struct {
	ID                  string
	CreationTime        string
	LastTunesCleanupAt  time.Time
	HasCleanupMarker    bool
	TableHeaderSettings *TableHeaderSettings
}

// Service reads and writes profile documents.
type Service struct {
	store  docstore.Store
	logger *observability.Logger
	now    func() time.Time
}

func NewService(store docstore.Store, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Get returns the user's profile. A missing document is (zero, false,
// nil), not an error.
func (s *Service) Get(ctx context.Context, uid string) (Profile, bool, error) {
	if uid == "" {
		return Profile{}, false, docstore.Errorf(docstore.InvalidArgument, "users: uid is required")
	}
	doc, err := s.store.Get(ctx, profileCollection, uid)
	if err != nil {
		if docstore.IsNotFound(err) {
			return Profile{}, false, nil
		}
		return Profile{}, false, err
	}
	return parseProfile(doc.Data, uid), true, nil
}

// EnsureCreationTime records when the account was created, once.
// Existing values are never overwritten; an empty creationTime means
// "now".
func (s *Service) EnsureCreationTime(ctx context.Context, uid, creationTime string) error {
	if uid == "" {
		return docstore.Errorf(docstore.InvalidArgument, "users: uid is required")
	}
	profile, found, err := s.Get(ctx, uid)
	if err != nil {
		return err
	}
	if found && profile.CreationTime != "" {
		return nil
	}
	if creationTime == "" {
		creationTime = s.now().UTC().Format(time.RFC3339)
	}
	return s.store.Set(ctx, profileCollection, uid, map[string]any{
		"creationTime": creationTime,
	}, docstore.SetOptions{Merge: true})
}

// LastTunesCleanupAt returns the user's cleanup watermark, reporting
// whether one has ever been written.
func (s *Service) LastTunesCleanupAt(ctx context.Context, uid string) (time.Time, bool, error) {
	profile, found, err := s.Get(ctx, uid)
	if err != nil {
		return time.Time{}, false, err
	}
	if !found || !profile.HasCleanupMarker {
		return time.Time{}, false, nil
	}
	return profile.LastTunesCleanupAt, true, nil
}

// SetLastTunesCleanupAt advances the cleanup watermark.
func (s *Service) SetLastTunesCleanupAt(ctx context.Context, uid string, t time.Time) error {
	if uid == "" {
		return docstore.Errorf(docstore.InvalidArgument, "users: uid is required")
	}
	return s.store.Set(ctx, profileCollection, uid, map[string]any{
		"lastTunesCleanupAt": t.UTC(),
	}, docstore.SetOptions{Merge: true})
}

func parseProfile(data map[string]any, uid string) Profile {
	p := Profile{ID: uid}
	if v, ok := data["creationTime"].(string); ok {
		p.CreationTime = v
	}
	if ts, ok := timeValue(data["lastTunesCleanupAt"]); ok {
		p.LastTunesCleanupAt = ts
		p.HasCleanupMarker = true
	}
	if raw, ok := data["tableHeaderSettings"].(map[string]any); ok {
		settings := parseTableHeaderSettings(raw)
		p.TableHeaderSettings = &settings
	}
	return p
}

// timeValue accepts native time values and RFC3339 strings, the two
// encodings timestamps survive storage round trips in.
func timeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	default:
		return time.Time{}, false
	}
}
