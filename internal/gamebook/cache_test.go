package gamebook

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
)

func TestCacheReplaceBumpsVersion(t *testing.T) {
	t.Parallel()

	cache := NewCache[int]()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return fixed }

	items := []int{10, 20}
	snapshot := cache.Replace(3, items)
	items[0] = 99

	if snapshot.Version != 1 {
		t.Fatalf("expected version 1, got %d", snapshot.Version)
	}
	if snapshot.Key != 3 {
		t.Fatalf("expected key 3, got %d", snapshot.Key)
	}
	if !snapshot.FetchedAt.Equal(fixed) {
		t.Fatalf("expected fetch time %v, got %v", fixed, snapshot.FetchedAt)
	}

	value, err := cache.At(snapshot.Version, 0)
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if value != 10 {
		t.Fatalf("expected cached copy to be unaffected by caller mutation, got %d", value)
	}
}

func TestCacheAtRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	cache := NewCache[string]()
	old := cache.Replace(0, []string{"a", "b"})
	cache.Replace(0, []string{"c"})

	if _, err := cache.At(old.Version, 0); !eris.Is(err, ErrStaleCache) {
		t.Fatalf("expected ErrStaleCache, got %v", err)
	}

	current := cache.Snapshot()
	cache.Invalidate()

	if cache.Version() != current.Version+1 {
		t.Fatalf("expected invalidate to bump version to %d, got %d", current.Version+1, cache.Version())
	}
	if _, err := cache.At(cache.Version(), 0); !eris.Is(err, ErrStaleCache) {
		t.Fatalf("expected invalidated cache to be stale, got %v", err)
	}
	if len(cache.Snapshot().Items) != 0 {
		t.Fatalf("expected no items after invalidate")
	}
}

func TestCacheAtRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	cache := NewCache[int]()
	snapshot := cache.Replace(0, []int{})

	for _, index := range []int{-1, 0, 1} {
		if _, err := cache.At(snapshot.Version, index); !eris.Is(err, ErrIndexOutOfRange) {
			t.Fatalf("expected ErrIndexOutOfRange for index %d, got %v", index, err)
		}
	}
}

func TestCacheSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	cache := NewCache[int]()
	cache.Replace(0, []int{1, 2, 3})

	snapshot := cache.Snapshot()
	snapshot.Items[0] = 42

	value, err := cache.At(snapshot.Version, 0)
	if err != nil {
		t.Fatalf("At returned error: %v", err)
	}
	if value != 1 {
		t.Fatalf("expected cache to keep 1, got %d", value)
	}
}
