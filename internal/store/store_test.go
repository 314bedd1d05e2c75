package store

import (
	"fmt"
	"sync"
	"testing"
)

func item(recipient, price int64) TrackedItem {
	return TrackedItem{
		RecipientID:    recipient,
		Title:          "thing",
		InitialPrice:   price,
		LastKnownPrice: price,
	}
}

func TestUpsertLastWriteWins(t *testing.T) {
	s := New()
	s.Upsert("u1", item(1, 500))
	s.Upsert("u1", item(2, 750))

	got, ok := s.Get("u1")
	if !ok {
		t.Fatal("item not found")
	}
	if got.RecipientID != 2 || got.LastKnownPrice != 750 {
		t.Fatalf("got %+v, want recipient 2 at 750", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestUpsertSetsURLAndAddedAt(t *testing.T) {
	s := New()
	s.Upsert("u1", item(1, 100))
	got, _ := s.Get("u1")
	if got.SourceURL != "u1" {
		t.Fatalf("SourceURL = %q", got.SourceURL)
	}
	if got.AddedAt.IsZero() {
		t.Fatal("AddedAt not set")
	}
}

func TestListByRecipientOrder(t *testing.T) {
	s := New()
	s.Upsert("a", item(7, 100))
	s.Upsert("b", item(8, 200))
	s.Upsert("c", item(7, 300))
	// Re-tracking keeps the original position.
	s.Upsert("a", item(7, 150))

	got := s.ListByRecipient(7)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].URL != "a" || got[1].URL != "c" {
		t.Fatalf("order = [%s %s], want [a c]", got[0].URL, got[1].URL)
	}
	if got[0].Item.LastKnownPrice != 150 {
		t.Fatalf("overwrite lost: %+v", got[0].Item)
	}
}

func TestUpdatePriceRatchet(t *testing.T) {
	s := New()
	s.Upsert("u", item(1, 500))

	if s.UpdatePrice("u", 600) {
		t.Fatal("higher price must not update")
	}
	if s.UpdatePrice("u", 500) {
		t.Fatal("equal price must not update")
	}
	if s.UpdatePrice("u", 0) {
		t.Fatal("non-positive price must not update")
	}
	if !s.UpdatePrice("u", 450) {
		t.Fatal("strictly lower price must update")
	}
	got, _ := s.Get("u")
	if got.LastKnownPrice != 450 {
		t.Fatalf("LastKnownPrice = %d, want 450", got.LastKnownPrice)
	}
	if got.InitialPrice != 500 {
		t.Fatalf("InitialPrice changed: %d", got.InitialPrice)
	}
	if s.UpdatePrice("missing", 10) {
		t.Fatal("unknown url must not update")
	}
}

func TestSnapshotOrdered(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		s.Upsert(fmt.Sprintf("u%d", i), item(1, int64(100+i)))
	}
	snap := s.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("len = %d", len(snap))
	}
	for i, e := range snap {
		if want := fmt.Sprintf("u%d", i); e.URL != want {
			t.Fatalf("snap[%d] = %s, want %s", i, e.URL, want)
		}
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Upsert(fmt.Sprintf("u%d", n%10), item(int64(n), int64(n)))
			s.UpdatePrice(fmt.Sprintf("u%d", n%10), 1)
			s.ListByRecipient(int64(n))
		}(i)
	}
	wg.Wait()
	if s.Len() != 10 {
		t.Fatalf("Len = %d, want 10", s.Len())
	}
}
