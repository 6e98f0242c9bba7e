package user

import (
	"context"
	"testing"
	"time"

	"github.com/tempakyousuke/learn-irish/internal/docstore"
)

func TestFavorites_AddCheckRemove(t *testing.T) {
	store := docstore.NewMemory()
	fav := NewFavorites(store, nil)
	ctx := context.Background()

	if fav.Check(ctx, "u1", "t1") {
		t.Error("fresh tune must not be favorited")
	}

	if err := fav.Add(ctx, "u1", "t1", ""); err != nil {
		t.Fatal(err)
	}
	if !fav.Check(ctx, "u1", "t1") {
		t.Error("tune should be favorited after Add")
	}

	if err := fav.Remove(ctx, "u1", "t1"); err != nil {
		t.Fatal(err)
	}
	if fav.Check(ctx, "u1", "t1") {
		t.Error("tune should be gone after Remove")
	}
}

func TestFavorites_Add_StampsServerTime(t *testing.T) {
	store := docstore.NewMemory()
	added := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	store.SetNow(func() time.Time { return added })
	fav := NewFavorites(store, nil)
	ctx := context.Background()

	if err := fav.Add(ctx, "u1", "t1", "learn the B part"); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Get(ctx, favoritesPath("u1"), "t1")
	if err != nil {
		t.Fatal(err)
	}
	ts, ok := doc.Data["addedAt"].(time.Time)
	if !ok || !ts.Equal(added) {
		t.Errorf("addedAt = %v, want store clock %v", doc.Data["addedAt"], added)
	}
	if doc.Data["note"] != "learn the B part" {
		t.Errorf("note = %v", doc.Data["note"])
	}
}

func TestFavorites_Add_OmitsEmptyNote(t *testing.T) {
	store := docstore.NewMemory()
	fav := NewFavorites(store, nil)

	if err := fav.Add(context.Background(), "u1", "t1", ""); err != nil {
		t.Fatal(err)
	}
	doc, _ := store.Get(context.Background(), favoritesPath("u1"), "t1")
	if _, present := doc.Data["note"]; present {
		t.Error("empty note must not be written")
	}
}

func TestFavorites_List(t *testing.T) {
	store := docstore.NewMemory()
	fav := NewFavorites(store, nil)
	ctx := context.Background()

	for _, id := range []string{"t3", "t1", "t2"} {
		if err := fav.Add(ctx, "u1", id, ""); err != nil {
			t.Fatal(err)
		}
	}

	ids := fav.List(ctx, "u1")
	if len(ids) != 3 {
		t.Fatalf("List = %v, want 3 ids", ids)
	}
}

func TestFavorites_DegradeOnFailure(t *testing.T) {
	store := docstore.NewMemory()
	store.GetErr = docstore.Errorf(docstore.Unavailable, "store down")
	store.GetAllErr = docstore.Errorf(docstore.Unavailable, "store down")
	fav := NewFavorites(store, nil)
	ctx := context.Background()

	if fav.Check(ctx, "u1", "t1") {
		t.Error("Check must degrade to false on store failure")
	}
	if ids := fav.List(ctx, "u1"); ids != nil {
		t.Errorf("List must degrade to nil, got %v", ids)
	}
}
