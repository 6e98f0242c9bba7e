package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemory_Get_MissingIsNotFound(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "tunes", "nope")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMemory_SetGet_RoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "tunes", "t1", map[string]any{"name": "The Butterfly"}, SetOptions{}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	doc, err := m.Get(ctx, "tunes", "t1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.ID != "t1" || doc.Data["name"] != "The Butterfly" {
		t.Errorf("unexpected document: %+v", doc)
	}
}

func TestMemory_Set_ReplaceVersusMerge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Seed("tunes", "t1", map[string]any{"name": "A", "rhythm": "jig"})

	// Merge keeps unrelated fields.
	if err := m.Set(ctx, "tunes", "t1", map[string]any{"name": "B"}, SetOptions{Merge: true}); err != nil {
		t.Fatal(err)
	}
	doc, _ := m.Get(ctx, "tunes", "t1")
	if doc.Data["name"] != "B" || doc.Data["rhythm"] != "jig" {
		t.Errorf("merge lost fields: %+v", doc.Data)
	}

	// Replace drops them.
	if err := m.Set(ctx, "tunes", "t1", map[string]any{"name": "C"}, SetOptions{}); err != nil {
		t.Fatal(err)
	}
	doc, _ = m.Get(ctx, "tunes", "t1")
	if doc.Data["name"] != "C" {
		t.Errorf("replace did not apply: %+v", doc.Data)
	}
	if _, ok := doc.Data["rhythm"]; ok {
		t.Errorf("replace kept stale field: %+v", doc.Data)
	}
}

func TestMemory_GetAll_OrderByAndFilters(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Seed("tunes", "c", map[string]any{"tuneNo": "3", "rhythm": "reel"})
	m.Seed("tunes", "a", map[string]any{"tuneNo": "1", "rhythm": "jig"})
	m.Seed("tunes", "b", map[string]any{"tuneNo": "2", "rhythm": "reel"})

	docs, err := m.GetAll(ctx, "tunes", Query{OrderBy: "tuneNo"})
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for i, want := range []string{"a", "b", "c"} {
		if docs[i].ID != want {
			t.Errorf("docs[%d].ID = %s, want %s", i, docs[i].ID, want)
		}
	}

	reels, err := m.GetAll(ctx, "tunes", Query{Filters: []Filter{{Field: "rhythm", Value: "reel"}}})
	if err != nil {
		t.Fatalf("filtered GetAll failed: %v", err)
	}
	if len(reels) != 2 {
		t.Errorf("expected 2 reels, got %d", len(reels))
	}
}

func TestMemory_GetAll_DefaultsToIDOrder(t *testing.T) {
	m := NewMemory()
	m.Seed("tunes", "z", nil)
	m.Seed("tunes", "a", nil)

	docs, err := m.GetAll(context.Background(), "tunes", Query{})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].ID != "a" || docs[1].ID != "z" {
		t.Errorf("expected id order, got %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestMemory_GetAll_Desc(t *testing.T) {
	m := NewMemory()
	m.Seed("tunes", "a", map[string]any{"tuneNo": "1"})
	m.Seed("tunes", "b", map[string]any{"tuneNo": "2"})

	docs, err := m.GetAll(context.Background(), "tunes", Query{OrderBy: "tuneNo", Desc: true})
	if err != nil {
		t.Fatal(err)
	}
	if docs[0].ID != "b" {
		t.Errorf("expected descending order, got %s first", docs[0].ID)
	}
}

func TestMemory_GetAll_DescKeepsEqualKeysStable(t *testing.T) {
	m := NewMemory()
	m.Seed("sets", "a", map[string]any{"order": 1})
	m.Seed("sets", "b", map[string]any{"order": 1})
	m.Seed("sets", "c", map[string]any{"order": 2})

	docs, err := m.GetAll(context.Background(), "sets", Query{OrderBy: "order", Desc: true})
	if err != nil {
		t.Fatal(err)
	}
	// Descending must only move c to the front; the tied documents keep
	// their stored (id) order rather than being swapped by the reversal.
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if docs[i].ID != id {
			t.Fatalf("order = [%s %s %s], want %v", docs[0].ID, docs[1].ID, docs[2].ID, want)
		}
	}
}

func TestMemory_Delete_AbsentIsNoError(t *testing.T) {
	m := NewMemory()
	if err := m.Delete(context.Background(), "tunes", "nope"); err != nil {
		t.Fatalf("deleting absent document: %v", err)
	}
}

func TestMemory_Batch_AppliesAllOperations(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed("tuneSets", "old", nil)

	b := m.Batch()
	b.Set("tuneSets", "x_1", map[string]any{"position": 1})
	b.Set("tuneSets", "y_1", map[string]any{"position": 2})
	b.Delete("tuneSets", "old")
	if err := b.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if m.Count("tuneSets") != 2 {
		t.Errorf("expected 2 documents after batch, got %d", m.Count("tuneSets"))
	}
	if _, err := m.Get(ctx, "tuneSets", "old"); !IsNotFound(err) {
		t.Error("expected batched delete to apply")
	}
}

func TestMemory_Batch_CommitFailureLeavesStoreUntouched(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed("tuneSets", "keep", nil)
	m.CommitErr = errors.New("transaction conflict")

	b := m.Batch()
	b.Set("tuneSets", "new", map[string]any{"position": 1})
	b.Delete("tuneSets", "keep")

	if err := b.Commit(ctx); err == nil {
		t.Fatal("expected commit error")
	}

	if m.Count("tuneSets") != 1 {
		t.Errorf("expected store unchanged, got %d documents", m.Count("tuneSets"))
	}
	if _, err := m.Get(ctx, "tuneSets", "keep"); err != nil {
		t.Error("expected existing document to survive failed batch")
	}
}

func TestMemory_ServerTimeResolvedAtWrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.SetNow(func() time.Time { return fixed })

	if err := m.Set(ctx, "users/u1/favorites", "t1", map[string]any{
		"tuneId":  "t1",
		"addedAt": ServerTime,
	}, SetOptions{}); err != nil {
		t.Fatal(err)
	}

	doc, err := m.Get(ctx, "users/u1/favorites", "t1")
	if err != nil {
		t.Fatal(err)
	}
	ts, ok := doc.Data["addedAt"].(time.Time)
	if !ok {
		t.Fatalf("addedAt = %T, want time.Time", doc.Data["addedAt"])
	}
	if !ts.Equal(fixed) {
		t.Errorf("addedAt = %v, want %v", ts, fixed)
	}
}

func TestMemory_DocumentsAreIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	m.Seed("tunes", "t1", map[string]any{"name": "A"})

	doc, _ := m.Get(ctx, "tunes", "t1")
	doc.Data["name"] = "mutated"

	again, _ := m.Get(ctx, "tunes", "t1")
	if again.Data["name"] != "A" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestError_CodeTaxonomy(t *testing.T) {
	base := errors.New("boom")
	err := NewError(Unavailable, "cannot reach store", base)

	if CodeOf(err) != Unavailable {
		t.Errorf("CodeOf = %v, want Unavailable", CodeOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("expected cause to be preserved through Unwrap")
	}
	if CodeOf(base) != Unknown {
		t.Errorf("CodeOf(plain error) = %v, want Unknown", CodeOf(base))
	}
	if CodeOf(nil) != Unknown {
		t.Errorf("CodeOf(nil) = %v, want Unknown", CodeOf(nil))
	}

	nf := Errorf(NotFound, "document %s missing", "t1")
	if !IsNotFound(nf) {
		t.Error("expected IsNotFound for NotFound error")
	}
	if IsNotFound(err) {
		t.Error("IsNotFound must be false for other codes")
	}
}
