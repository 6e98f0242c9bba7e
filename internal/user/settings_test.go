package user

import (
	"context"
	"testing"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
)

func TestTableSettings_Get_DefaultsWhenProfileMissing(t *testing.T) {
	ts := NewTableSettings(docstore.NewMemory(), nil)

	settings, err := ts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("missing profile must yield defaults, got %v", err)
	}
	if settings != DefaultTableHeaderSettings() {
		t.Errorf("settings = %+v, want defaults", settings)
	}
}

func TestTableSettings_Get_DefaultsWhenFieldMissing(t *testing.T) {
	store := docstore.NewMemory()
	store.Seed(profileCollection, "u1", map[string]any{"creationTime": "2024-01-01T00:00:00Z"})
	ts := NewTableSettings(store, nil)

	settings, err := ts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if settings != DefaultTableHeaderSettings() {
		t.Errorf("settings = %+v, want defaults", settings)
	}
}

func TestTableSettings_UpdateThenGet_RoundTrip(t *testing.T) {
	store := docstore.NewMemory()
	ts := NewTableSettings(store, nil)
	ctx := context.Background()

	want := TableHeaderSettings{Key: true, Mode: true, LastPlayedDate: true}
	if err := ts.Update(ctx, "u1", want); err != nil {
		t.Fatal(err)
	}

	got, err := ts.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
	if ts.Local() != want {
		t.Errorf("Local() = %+v, want %+v", ts.Local(), want)
	}
}

func TestTableSettings_Update_RollsBackOnWriteFailure(t *testing.T) {
	store := docstore.NewMemory()
	ts := NewTableSettings(store, nil)
	ctx := context.Background()

	before := TableHeaderSettings{Rhythm: true}
	if err := ts.Update(ctx, "u1", before); err != nil {
		t.Fatal(err)
	}

	store.SetErr = docstore.Errorf(docstore.Unavailable, "store down")
	err := ts.Update(ctx, "u1", TableHeaderSettings{Mode: true})
	if err == nil {
		t.Fatal("expected write failure to propagate")
	}
	if ts.Local() != before {
		t.Errorf("Local() = %+v, want rollback to %+v", ts.Local(), before)
	}
}

func TestTableSettings_Update_MergePreservesProfile(t *testing.T) {
	store := docstore.NewMemory()
	store.Seed(profileCollection, "u1", map[string]any{"creationTime": "2024-01-01T00:00:00Z"})
	ts := NewTableSettings(store, nil)

	if err := ts.Update(context.Background(), "u1", TableHeaderSettings{Key: true}); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Get(context.Background(), profileCollection, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Data["creationTime"] != "2024-01-01T00:00:00Z" {
		t.Error("settings write clobbered the rest of the profile")
	}
}

func TestOptimistic_CommitAppliesBeforePersist(t *testing.T) {
	o := NewOptimistic(1)

	var seen int
	err := o.Commit(2, func(v int) error {
		seen = o.Get()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if seen != 2 {
		t.Errorf("persist observed %d, want the new value applied first", seen)
	}
	if o.Get() != 2 {
		t.Errorf("Get = %d, want 2", o.Get())
	}
}

func TestOptimistic_CommitRestoresOnError(t *testing.T) {
	o := NewOptimistic("a")

	err := o.Commit("b", func(string) error {
		return docstore.Errorf(docstore.Unavailable, "nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if o.Get() != "a" {
		t.Errorf("Get = %q, want rollback to a", o.Get())
	}
}
