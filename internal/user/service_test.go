package user

import (
	"context"
	"testing"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
)

func TestService_Get_MissingProfile(t *testing.T) {
	svc := NewService(docstore.NewMemory(), nil)

	_, found, err := svc.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("missing profile must not error: %v", err)
	}
	if found {
		t.Error("expected found=false")
	}
}

func TestService_Get_EmptyUIDRejected(t *testing.T) {
	svc := NewService(docstore.NewMemory(), nil)

	_, _, err := svc.Get(context.Background(), "")
	if docstore.CodeOf(err) != docstore.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestService_EnsureCreationTime_SetsOnce(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, nil)
	ctx := context.Background()

	if err := svc.EnsureCreationTime(ctx, "u1", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	// A second call with a different value must not overwrite.
	if err := svc.EnsureCreationTime(ctx, "u1", "2026-08-31T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	profile, found, err := svc.Get(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if profile.CreationTime != "2024-01-01T00:00:00Z" {
		t.Errorf("CreationTime = %q, want original value preserved", profile.CreationTime)
	}
}

func TestService_EnsureCreationTime_EmptyValueMeansNow(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }

	if err := svc.EnsureCreationTime(context.Background(), "u1", ""); err != nil {
		t.Fatal(err)
	}
	profile, _, _ := svc.Get(context.Background(), "u1")
	if profile.CreationTime != "2026-08-31T12:00:00Z" {
		t.Errorf("CreationTime = %q", profile.CreationTime)
	}
}

func TestService_EnsureCreationTime_PreservesOtherFields(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, nil)
	ctx := context.Background()

	marker := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if err := svc.SetLastTunesCleanupAt(ctx, "u1", marker); err != nil {
		t.Fatal(err)
	}
	if err := svc.EnsureCreationTime(ctx, "u1", "2026-08-31T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	profile, _, _ := svc.Get(ctx, "u1")
	if !profile.HasCleanupMarker || !profile.LastTunesCleanupAt.Equal(marker) {
		t.Errorf("merge write clobbered cleanup marker: %+v", profile)
	}
}

func TestService_CleanupMarker_RoundTrip(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, found, err := svc.LastTunesCleanupAt(ctx, "u1"); err != nil || found {
		t.Fatalf("fresh user must have no marker: found=%v err=%v", found, err)
	}

	marker := time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC)
	if err := svc.SetLastTunesCleanupAt(ctx, "u1", marker); err != nil {
		t.Fatal(err)
	}

	got, found, err := svc.LastTunesCleanupAt(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("marker not found after write: found=%v err=%v", found, err)
	}
	if !got.Equal(marker) {
		t.Errorf("marker = %v, want %v", got, marker)
	}
}

func TestService_CleanupMarker_StringEncoding(t *testing.T) {
	// Document stores that serialize through JSON hand timestamps back
	// as RFC3339 strings rather than time values.
	store := docstore.NewMemory()
	store.Seed(profileCollection, "u1", map[string]any{
		"lastTunesCleanupAt": "2026-08-30T18:00:00Z",
	})
	svc := NewService(store, nil)

	got, found, err := svc.LastTunesCleanupAt(context.Background(), "u1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	want := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("marker = %v, want %v", got, want)
	}
}

func TestService_Get_MalformedMarkerIgnored(t *testing.T) {
	store := docstore.NewMemory()
	store.Seed(profileCollection, "u1", map[string]any{
		"creationTime":       "2024-01-01T00:00:00Z",
		"lastTunesCleanupAt": "not a timestamp",
	})
	svc := NewService(store, nil)

	profile, found, err := svc.Get(context.Background(), "u1")
	if err != nil || !found {
		t.Fatalf("found=%v err=%v", found, err)
	}
	if profile.HasCleanupMarker {
		t.Error("malformed marker must read as absent")
	}
	if profile.CreationTime != "2024-01-01T00:00:00Z" {
		t.Errorf("CreationTime = %q", profile.CreationTime)
	}
}
