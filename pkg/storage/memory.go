package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MemoryStore implements an in-memory prediction cache.
// It is safe for concurrent use by multiple goroutines.
//
// With a TTL configured, entries older than the TTL are invisible to Get and
// a background goroutine removes them periodically. Call Stop when done with
// a store created by NewMemoryStoreWithTTL.
//
// With a size limit configured, inserting a new key into a full store first
// drops expired entries and then evicts the oldest entry.
type MemoryStore struct {
	mu            sync.RWMutex
	entries       map[string]Entry
	ttl           time.Duration
	maxEntries    int
	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	cleanupDone   chan struct{}
	stopped       bool
	stopMu        sync.Mutex
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the number of entries held. n <= 0 means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

// NewMemoryStore creates a cache whose entries never expire.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// NewMemoryStoreWithTTL creates a cache that drops entries older than ttl.
// cleanupInterval controls how often expired entries are swept (default 1m).
func NewMemoryStoreWithTTL(ttl, cleanupInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	if ttl <= 0 {
		panic("TTL must be positive")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}

	store := &MemoryStore{
		entries:       make(map[string]Entry),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(cleanupInterval),
		stopCleanup:   make(chan struct{}),
		cleanupDone:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(store)
	}

	go store.runCleanup()

	return store
}

// Stop shuts down the cleanup goroutine and waits for it to exit.
// Safe to call more than once, and on a store without TTL.
func (s *MemoryStore) Stop() {
	if s.cleanupTicker == nil {
		return
	}

	s.stopMu.Lock()
	defer s.stopMu.Unlock()

	if s.stopped {
		return
	}

	close(s.stopCleanup)
	<-s.cleanupDone
	s.cleanupTicker.Stop()
	s.stopped = true
}

// Close satisfies io.Closer so callers can release any store the same way.
func (s *MemoryStore) Close() error {
	s.Stop()
	return nil
}

func (s *MemoryStore) runCleanup() {
	defer close(s.cleanupDone)

	for {
		select {
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropExpired(time.Now())
}

// dropExpired must be called with mu held.
func (s *MemoryStore) dropExpired(now time.Time) {
	for key, entry := range s.entries {
		if s.expired(entry, now) {
			delete(s.entries, key)
		}
	}
}

// makeRoom must be called with mu held.
func (s *MemoryStore) makeRoom(now time.Time) {
	if len(s.entries) < s.maxEntries {
		return
	}
	s.dropExpired(now)

	for len(s.entries) >= s.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range s.entries {
			if oldestKey == "" || entry.CreatedAt.Before(oldest) {
				oldestKey, oldest = key, entry.CreatedAt
			}
		}
		delete(s.entries, oldestKey)
	}
}

func (s *MemoryStore) expired(entry Entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(entry.CreatedAt) > s.ttl
}

// Put stores an entry, replacing any entry with the same key.
// A zero CreatedAt is set to the current time. A new key in a full store
// evicts the oldest entry.
func (s *MemoryStore) Put(ctx context.Context, entry Entry) error {
	if entry.Key == "" {
		return errors.New("cache key required")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.Key]; !exists && s.maxEntries > 0 {
		s.makeRoom(time.Now())
	}
	s.entries[entry.Key] = entry
	return nil
}

// Get returns the entry for key. Expired entries are reported as not found.
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	select {
	case <-ctx.Done():
		return Entry{}, false, ctx.Err()
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[key]
	if !found || s.expired(entry, time.Now()) {
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Len returns the number of entries held, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Delete removes an entry. Returns true if one existed.
func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, existed := s.entries[key]
	delete(s.entries, key)
	return existed
}

// Ping always succeeds; it lets health checks treat every backend alike.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
