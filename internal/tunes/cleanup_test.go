package tunes

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeMarkers is an in-memory CleanupMarkers with injectable failures.
type fakeMarkers struct {
	markers map[string]time.Time

	readErr  error
	writeErr error

	readCalls  int
	writeCalls int
}

func (f *fakeMarkers) LastTunesCleanupAt(ctx context.Context, userID string) (time.Time, bool, error) {
	f.readCalls++
	if f.readErr != nil {
		return time.Time{}, false, f.readErr
	}
	t, ok := f.markers[userID]
	return t, ok, nil
}

func (f *fakeMarkers) SetLastTunesCleanupAt(ctx context.Context, userID string, t time.Time) error {
	f.writeCalls++
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.markers == nil {
		f.markers = map[string]time.Time{}
	}
	f.markers[userID] = t
	return nil
}

type cleanupRecorder struct {
	calls    int
	lastUser string
	lastIDs  []string
	err      error
}

func (r *cleanupRecorder) cleanup(ctx context.Context, userID string, validIDs []string) error {
	r.calls++
	r.lastUser = userID
	r.lastIDs = validIDs
	return r.err
}

func listViewDocAt(updated time.Time, ids ...string) *ListViewDocument {
	items := make([]TuneListItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, TuneListItem{ID: id})
	}
	return &ListViewDocument{
		Data:        items,
		LastUpdated: updated,
		Version:     ListViewVersion,
		TotalCount:  len(items),
	}
}

func signedIn(uid string) CurrentUserFunc {
	return func() (string, bool) { return uid, uid != "" }
}

func TestCleanup_RunsAndAdvancesMarker(t *testing.T) {
	markers := &fakeMarkers{}
	rec := &cleanupRecorder{}
	c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

	updated := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	c.Run(context.Background(), listViewDocAt(updated, "t1", "t2", "t3"))

	if rec.calls != 1 {
		t.Fatalf("expected one cleanup invocation, got %d", rec.calls)
	}
	if rec.lastUser != "u1" {
		t.Errorf("cleanup ran for %q", rec.lastUser)
	}
	if len(rec.lastIDs) != 3 || rec.lastIDs[0] != "t1" || rec.lastIDs[2] != "t3" {
		t.Errorf("unexpected valid ids: %v", rec.lastIDs)
	}
	if got := markers.markers["u1"]; !got.Equal(updated) {
		t.Errorf("marker = %v, want %v", got, updated)
	}
}

func TestCleanup_SkipsWithoutSignedInUser(t *testing.T) {
	markers := &fakeMarkers{}
	rec := &cleanupRecorder{}
	c := NewCleanupCoordinator(markers, signedIn(""), rec.cleanup, nil, nil)

	c.Run(context.Background(), listViewDocAt(time.Now(), "t1"))

	if rec.calls != 0 {
		t.Error("cleanup must not run without a user")
	}
	if markers.readCalls != 0 {
		t.Error("marker must not be consulted without a user")
	}
}

func TestCleanup_SkipsWhenDocumentHasNoTimestamp(t *testing.T) {
	markers := &fakeMarkers{}
	rec := &cleanupRecorder{}
	c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

	c.Run(context.Background(), listViewDocAt(time.Time{}, "t1"))
	c.Run(context.Background(), nil)

	if rec.calls != 0 {
		t.Error("cleanup must skip when the document has no usable timestamp")
	}
}

func TestCleanup_SkipsWhenMarkerIsCurrent(t *testing.T) {
	updated := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"marker equals lastUpdated": updated,
		"marker newer":              updated.Add(time.Hour),
	}
	for name, marker := range cases {
		t.Run(name, func(t *testing.T) {
			markers := &fakeMarkers{markers: map[string]time.Time{"u1": marker}}
			rec := &cleanupRecorder{}
			c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

			c.Run(context.Background(), listViewDocAt(updated, "t1"))

			if rec.calls != 0 {
				t.Error("cleanup must not re-run for an already covered document")
			}
			if markers.writeCalls != 0 {
				t.Error("marker must not be rewritten on skip")
			}
		})
	}
}

func TestCleanup_RunsWhenMarkerIsOlder(t *testing.T) {
	updated := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	markers := &fakeMarkers{markers: map[string]time.Time{"u1": updated.Add(-time.Hour)}}
	rec := &cleanupRecorder{}
	c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

	c.Run(context.Background(), listViewDocAt(updated, "t1"))

	if rec.calls != 1 {
		t.Fatalf("expected cleanup to run for stale marker, got %d calls", rec.calls)
	}
	if got := markers.markers["u1"]; !got.Equal(updated) {
		t.Errorf("marker = %v, want %v", got, updated)
	}
}

func TestCleanup_FailuresAreSwallowed(t *testing.T) {
	updated := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	t.Run("marker read fails", func(t *testing.T) {
		markers := &fakeMarkers{readErr: errors.New("store down")}
		rec := &cleanupRecorder{}
		c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

		c.Run(context.Background(), listViewDocAt(updated, "t1"))

		if rec.calls != 0 {
			t.Error("cleanup must not run when the marker is unreadable")
		}
	})

	t.Run("cleanup call fails", func(t *testing.T) {
		markers := &fakeMarkers{}
		rec := &cleanupRecorder{err: errors.New("boom")}
		c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

		c.Run(context.Background(), listViewDocAt(updated, "t1"))

		if markers.writeCalls != 0 {
			t.Error("marker must not advance when cleanup fails")
		}
	})

	t.Run("marker write fails", func(t *testing.T) {
		markers := &fakeMarkers{writeErr: errors.New("boom")}
		rec := &cleanupRecorder{}
		c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)

		// Must not panic or propagate; the pass just repeats next time.
		c.Run(context.Background(), listViewDocAt(updated, "t1"))

		if rec.calls != 1 {
			t.Errorf("expected cleanup attempted, got %d", rec.calls)
		}
	})
}

func TestCleanup_SecondRunIsIdempotent(t *testing.T) {
	updated := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	markers := &fakeMarkers{}
	rec := &cleanupRecorder{}
	c := NewCleanupCoordinator(markers, signedIn("u1"), rec.cleanup, nil, nil)
	doc := listViewDocAt(updated, "t1", "t2")

	c.Run(context.Background(), doc)
	c.Run(context.Background(), doc)

	if rec.calls != 1 {
		t.Errorf("expected exactly one cleanup for the same document, got %d", rec.calls)
	}
}
