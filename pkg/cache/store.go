package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store persists cache entries keyed by string.
//
// Stores do not serialize the read-decide-write sequence of their callers:
// two callers that both observe a miss for the same key may both write it,
// and the last write wins. Implementations only guard their own internal
// data structures.
type Store interface {
	// Peek returns the raw entry, expired or not. It never mutates the store.
	// Returns ErrCacheMiss if the key doesn't exist.
	Peek(ctx context.Context, key string) (*Entry, error)

	// PeekMetadata returns the entry's metadata without reading its value.
	// Returns ErrCacheMiss if the key doesn't exist.
	PeekMetadata(ctx context.Context, key string) (*Metadata, error)

	// GetOrExpire returns the value if present and not expired. Expired
	// entries are removed and reported as ErrCacheMiss.
	GetOrExpire(ctx context.Context, key string) ([]byte, error)

	// Put writes the entry, replacing any previous one. The timestamp is
	// always reset to now. ttlSecs <= 0 means the entry never expires.
	Put(ctx context.Context, key string, value []byte, ttlSecs int64, contentHash string) error

	// Remove deletes the entry. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// PresentAndValid reports whether a non-expired entry exists for key.
	PresentAndValid(ctx context.Context, key string) (bool, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source used for timestamps and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// backend is the subset of Store a concrete storage medium implements;
// expiry handling on top of it is shared.
type backend interface {
	Peek(ctx context.Context, key string) (*Entry, error)
	PeekMetadata(ctx context.Context, key string) (*Metadata, error)
	Remove(ctx context.Context, key string) error
}

// getOrExpire implements lazy eviction: expired entries are physically
// removed on read.
func getOrExpire(ctx context.Context, b backend, layer string, now time.Time, key string) ([]byte, error) {
	entry, err := b.Peek(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues(layer).Inc()
		}
		return nil, err
	}

	if entry.IsExpired(now, 0) {
		if err := b.Remove(ctx, key); err != nil {
			return nil, err
		}
		CacheEvictions.WithLabelValues(layer).Inc()
		CacheMisses.WithLabelValues(layer).Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues(layer).Inc()
	return entry.Value, nil
}

func presentAndValid(ctx context.Context, b backend, now time.Time, key string) (bool, error) {
	meta, err := b.PeekMetadata(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !meta.IsExpired(now, 0), nil
}
