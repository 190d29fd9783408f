package checkpoint

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{Kind: KindCursor, Endpoint: "search_recent"}

	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, key, &Entry{Cursor: "B"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	entry, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Cursor != "B" {
		t.Errorf("Cursor = %q, want B", entry.Cursor)
	}
	if entry.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped on Set")
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_SetCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := Key{Kind: KindStream, Endpoint: "filtered_stream"}

	entry := &Entry{LastEventAt: time.Unix(1700000000, 0)}
	if err := store.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	entry.LastEventAt = time.Time{}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.LastEventAt.Unix() != 1700000000 {
		t.Errorf("stored entry was mutated through the caller's pointer")
	}
}

func TestMemoryStore_SetNil(t *testing.T) {
	if err := NewMemoryStore().Set(context.Background(), Key{}, nil); err == nil {
		t.Error("Set(nil) should fail")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(partition int) {
			defer wg.Done()
			key := Key{Kind: KindStream, Endpoint: "compliance", Params: map[string][]string{"partition": {string(rune('1' + partition))}}}
			for j := 0; j < 100; j++ {
				_ = store.Set(ctx, key, &Entry{LastEventAt: time.Now()})
				_, _ = store.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 4 {
		t.Errorf("Len() = %d, want 4", store.Len())
	}
}

func TestEntry_Age(t *testing.T) {
	if (&Entry{}).Age() != 0 {
		t.Error("Age() of unsaved entry should be 0")
	}
	e := &Entry{SavedAt: time.Now().Add(-time.Minute)}
	if e.Age() < time.Minute {
		t.Errorf("Age() = %v, want >= 1m", e.Age())
	}
}
