package cache

import (
	"context"
	"sync"
)

const layerMemory = "memory"

// MemoryStore keeps entries in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	opts    options
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]Entry),
		opts:    buildOptions(opts),
	}
}

// Peek returns a copy of the stored entry.
func (s *MemoryStore) Peek(_ context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	entry.Value = append([]byte(nil), entry.Value...)
	return &entry, nil
}

// PeekMetadata returns the entry metadata.
func (s *MemoryStore) PeekMetadata(_ context.Context, key string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}

	meta := entry.Metadata
	return &meta, nil
}

// GetOrExpire returns the value, evicting it if expired.
func (s *MemoryStore) GetOrExpire(ctx context.Context, key string) ([]byte, error) {
	return getOrExpire(ctx, s, layerMemory, s.opts.now(), key)
}

// Put stores a copy of value.
func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttlSecs int64, contentHash string) error {
	entry := Entry{
		Metadata: Metadata{
			Timestamp:   s.opts.now().Unix(),
			TTLSeconds:  ttlSecs,
			ContentHash: contentHash,
		},
		Value: append([]byte(nil), value...),
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	CacheWrittenBytes.WithLabelValues(layerMemory).Add(float64(len(value)))
	return nil
}

// Remove deletes the entry.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// PresentAndValid reports whether a non-expired entry exists.
func (s *MemoryStore) PresentAndValid(ctx context.Context, key string) (bool, error) {
	return presentAndValid(ctx, s, s.opts.now(), key)
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
