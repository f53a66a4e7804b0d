package statectx_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/harelstate/statecraft/internal/statectx"
)

func TestStoreBasic(t *testing.T) {
	s := statectx.New()

	s.Set("key", "value")
	if got, _ := s.Get("key"); got != "value" {
		t.Errorf("expected 'value', got %v", got)
	}

	if _, ok := s.Get("missing"); ok {
		t.Error("expected ok=false for missing key")
	}

	s.Delete("key")
	if _, ok := s.Get("key"); ok {
		t.Error("expected ok=false after delete")
	}
}

func TestStoreKeysAreInsertionOrdered(t *testing.T) {
	s := statectx.New()
	s.Set("c", 3)
	s.Set("a", 1)
	s.Set("b", 2)

	keys := s.Keys()
	want := []string{"c", "a", "b"}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key order mismatch at %d: want %s got %s", i, want[i], keys[i])
		}
	}
}

func TestStoreSnapshotIsDefensiveCopy(t *testing.T) {
	s := statectx.New()
	s.Set("a", 1)

	snap := s.Snapshot()
	snap["b"] = 2

	if _, ok := s.Get("b"); ok {
		t.Error("mutating the snapshot should not affect the store")
	}
}

func TestStoreRestoreReplaces(t *testing.T) {
	s := statectx.New()
	s.Set("old", "value")

	s.Restore(map[string]any{"new": "data"})

	if _, ok := s.Get("old"); ok {
		t.Error("Restore should discard old keys, not merge")
	}
	if got, _ := s.Get("new"); got != "data" {
		t.Error("Restore should set new data")
	}
}

func TestStoreRestoreNilClears(t *testing.T) {
	s := statectx.New()
	s.Set("key", "value")

	s.Restore(nil)

	if len(s.Snapshot()) != 0 {
		t.Error("Restore(nil) should clear the store")
	}
}

func TestStoreConcurrency(t *testing.T) {
	s := statectx.New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Set(fmt.Sprintf("key%d", id), id)
		}(i)
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.Get(fmt.Sprintf("key%d", id))
		}(i)
	}
	wg.Wait()
}
