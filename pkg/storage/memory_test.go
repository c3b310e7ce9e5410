package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func testEntry(key string, price float64) Entry {
	return Entry{
		Key:            key,
		ModelVersion:   "gbrt-test",
		Color:          "Azul",
		DaysInUse:      180,
		PredictedPrice: price,
	}
}

func TestKey(t *testing.T) {
	base := Key("v1", "Azul", 180)

	if len(base) != 32 {
		t.Errorf("Key() length = %d, want 32", len(base))
	}
	if Key("v1", "Azul", 180) != base {
		t.Error("Key() is not stable for identical input")
	}

	tests := []struct {
		name string
		key  string
	}{
		{"different version", Key("v2", "Azul", 180)},
		{"different color", Key("v1", "Preta", 180)},
		{"different days", Key("v1", "Azul", 180.5)},
		{"separator shift", Key("v1Azul", "", 180)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == base {
				t.Errorf("Key() collided with base key %s", base)
			}
		})
	}
}

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.Len() != 0 {
		t.Errorf("New store should be empty, got %d entries", store.Len())
	}
}

func TestMemoryStore_Put_Get(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{
			name:    "valid entry",
			entry:   testEntry("abc", 24000),
			wantErr: false,
		},
		{
			name: "empty color",
			entry: Entry{
				Key:            "def",
				ModelVersion:   "gbrt-test",
				PredictedPrice: 5000,
			},
			wantErr: false,
		},
		{
			name:    "missing key",
			entry:   testEntry("", 1),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			ctx := context.Background()

			err := store.Put(ctx, tt.entry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Put() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			got, found, err := store.Get(ctx, tt.entry.Key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !found {
				t.Fatal("Get() found = false, want true")
			}
			if got.PredictedPrice != tt.entry.PredictedPrice {
				t.Errorf("PredictedPrice = %v, want %v", got.PredictedPrice, tt.entry.PredictedPrice)
			}
			if got.Color != tt.entry.Color {
				t.Errorf("Color = %q, want %q", got.Color, tt.entry.Color)
			}
			if got.CreatedAt.IsZero() {
				t.Error("CreatedAt should be set by Put")
			}
		})
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, found, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Get() found = true for missing key")
	}
}

func TestMemoryStore_Put_Replaces(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Put(ctx, testEntry("k", 100)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, testEntry("k", 200)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, _, _ := store.Get(ctx, "k")
	if got.PredictedPrice != 200 {
		t.Errorf("PredictedPrice = %v, want 200", got.PredictedPrice)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Put(ctx, testEntry("k", 1)); err == nil {
		t.Error("Put() with canceled context should fail")
	}
	if _, _, err := store.Get(ctx, "k"); err == nil {
		t.Error("Get() with canceled context should fail")
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%5)
				_ = store.Put(ctx, testEntry(key, float64(j)))
				_, _, _ = store.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Errorf("Len() = %d, want 50", store.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_ = store.Put(ctx, testEntry("k", 1))

	if !store.Delete("k") {
		t.Error("Delete() = false for existing key")
	}
	if store.Delete("k") {
		t.Error("Delete() = true for already deleted key")
	}
	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("entry still present after Delete")
	}
}

func TestMemoryStore_TTL_Expiration(t *testing.T) {
	store := NewMemoryStoreWithTTL(100*time.Millisecond, 50*time.Millisecond)
	defer store.Stop()

	ctx := context.Background()
	if err := store.Put(ctx, testEntry("k", 1)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if _, found, _ := store.Get(ctx, "k"); !found {
		t.Fatal("entry should be present before TTL")
	}

	time.Sleep(250 * time.Millisecond)

	if _, found, _ := store.Get(ctx, "k"); found {
		t.Error("entry should have expired")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d after cleanup, want 0", store.Len())
	}
}

func TestMemoryStore_ExpiredHiddenBeforeSweep(t *testing.T) {
	store := NewMemoryStoreWithTTL(50*time.Millisecond, time.Hour)
	defer store.Stop()

	ctx := context.Background()
	entry := testEntry("old", 1)
	entry.CreatedAt = time.Now().Add(-time.Second)
	_ = store.Put(ctx, entry)

	if _, found, _ := store.Get(ctx, "old"); found {
		t.Error("Get() returned an entry older than the TTL")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1 until the sweep runs", store.Len())
	}
}

func TestMemoryStore_Stop_Idempotent(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Second)
	store.Stop()
	store.Stop()

	plain := NewMemoryStore()
	plain.Stop()
	if err := plain.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestMemoryStore_Ping(t *testing.T) {
	if err := NewMemoryStore().Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestMemoryStore_MaxEntries_EvictsOldest(t *testing.T) {
	store := NewMemoryStore(WithMaxEntries(3))
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		e := testEntry(fmt.Sprintf("k%d", i), float64(i))
		e.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.Put(ctx, e); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	if err := store.Put(ctx, testEntry("k3", 3)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
	if _, found, _ := store.Get(ctx, "k0"); found {
		t.Error("oldest entry k0 should have been evicted")
	}
	for _, key := range []string{"k1", "k2", "k3"} {
		if _, found, _ := store.Get(ctx, key); !found {
			t.Errorf("entry %s missing", key)
		}
	}
}

func TestMemoryStore_MaxEntries_ReplaceDoesNotEvict(t *testing.T) {
	store := NewMemoryStore(WithMaxEntries(2))
	ctx := context.Background()

	_ = store.Put(ctx, testEntry("a", 1))
	_ = store.Put(ctx, testEntry("b", 2))
	_ = store.Put(ctx, testEntry("a", 10))

	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}
	got, found, _ := store.Get(ctx, "a")
	if !found || got.PredictedPrice != 10 {
		t.Errorf("Get(a) = %+v, %v; want replaced entry", got, found)
	}
	if _, found, _ := store.Get(ctx, "b"); !found {
		t.Error("entry b evicted by a replacement")
	}
}

func TestMemoryStore_MaxEntries_DropsExpiredFirst(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Hour, WithMaxEntries(2))
	defer store.Stop()
	ctx := context.Background()

	stale := testEntry("stale", 1)
	stale.CreatedAt = time.Now().Add(-2 * time.Minute)
	_ = store.Put(ctx, stale)
	_ = store.Put(ctx, testEntry("fresh", 2))
	_ = store.Put(ctx, testEntry("new", 3))

	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
	if _, found, _ := store.Get(ctx, "fresh"); !found {
		t.Error("fresh entry evicted while an expired one was present")
	}
	if _, found, _ := store.Get(ctx, "new"); !found {
		t.Error("new entry missing")
	}
}

func TestMemoryStore_MaxEntries_Bounded(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Hour, WithMaxEntries(100))
	defer store.Stop()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		if err := store.Put(ctx, testEntry(fmt.Sprintf("days-%d", i), float64(i))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	if store.Len() != 100 {
		t.Errorf("Len() = %d, want 100", store.Len())
	}
}
