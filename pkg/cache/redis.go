package cache

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	layerRedis = "redis"

	// DefaultRedisPrefix namespaces cache keys in Redis.
	DefaultRedisPrefix = "legiscan:cache:"

	fieldValue     = "value"
	fieldTimestamp = "timestamp"
	fieldTTL       = "ttl_secs"
	fieldHash      = "object_hash"
)

// RedisStore keeps entries as Redis hashes.
//
// Entries are stored without a Redis TTL: expired entries must stay readable
// through Peek until they are evicted on read or removed explicitly.
type RedisStore struct {
	redis  *redis.Client
	prefix string
	opts   options
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new cache store with Redis backend.
func NewRedisStore(redisClient *redis.Client, opts ...Option) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: DefaultRedisPrefix,
		opts:   buildOptions(opts),
	}
}

// WithPrefix returns a copy of the store that namespaces keys under prefix.
func (s *RedisStore) WithPrefix(prefix string) *RedisStore {
	cp := *s
	cp.prefix = prefix
	return &cp
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + key
}

// Peek reads the whole hash.
func (s *RedisStore) Peek(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.redis.HGetAll(ctx, s.redisKey(key)).Result()
	if err != nil {
		CacheErrors.WithLabelValues(layerRedis, "peek").Inc()
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrCacheMiss
	}

	meta, err := parseMetadata(fields[fieldTimestamp], fields[fieldTTL], fields[fieldHash])
	if err != nil {
		CacheErrors.WithLabelValues(layerRedis, "peek").Inc()
		return nil, err
	}

	value, ok := fields[fieldValue]
	if !ok {
		CacheErrors.WithLabelValues(layerRedis, "peek").Inc()
		return nil, fmt.Errorf("%w: value missing for %q", ErrInvalidEntry, key)
	}

	return &Entry{Metadata: *meta, Value: []byte(value)}, nil
}

// PeekMetadata reads the metadata fields only.
func (s *RedisStore) PeekMetadata(ctx context.Context, key string) (*Metadata, error) {
	vals, err := s.redis.HMGet(ctx, s.redisKey(key), fieldTimestamp, fieldTTL, fieldHash).Result()
	if err != nil {
		CacheErrors.WithLabelValues(layerRedis, "peek").Inc()
		return nil, fmt.Errorf("redis hmget: %w", err)
	}
	if vals[0] == nil {
		return nil, ErrCacheMiss
	}

	str := func(v interface{}) string {
		s, _ := v.(string)
		return s
	}

	meta, err := parseMetadata(str(vals[0]), str(vals[1]), str(vals[2]))
	if err != nil {
		CacheErrors.WithLabelValues(layerRedis, "peek").Inc()
		return nil, err
	}
	return meta, nil
}

// GetOrExpire returns the value, evicting it if expired.
func (s *RedisStore) GetOrExpire(ctx context.Context, key string) ([]byte, error) {
	return getOrExpire(ctx, s, layerRedis, s.opts.now(), key)
}

// Put replaces the hash in a single transaction.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttlSecs int64, contentHash string) error {
	rk := s.redisKey(key)

	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, rk)
	pipe.HSet(ctx, rk,
		fieldValue, value,
		fieldTimestamp, s.opts.now().Unix(),
		fieldTTL, ttlSecs,
		fieldHash, contentHash,
	)
	if _, err := pipe.Exec(ctx); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "put").Inc()
		return fmt.Errorf("redis hset: %w", err)
	}

	CacheWrittenBytes.WithLabelValues(layerRedis).Add(float64(len(value)))
	return nil
}

// Remove deletes the hash.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.redisKey(key)).Err(); err != nil {
		CacheErrors.WithLabelValues(layerRedis, "remove").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// PresentAndValid reports whether a non-expired entry exists.
func (s *RedisStore) PresentAndValid(ctx context.Context, key string) (bool, error) {
	return presentAndValid(ctx, s, s.opts.now(), key)
}

func parseMetadata(timestamp, ttl, hash string) (*Metadata, error) {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidEntry, err)
	}
	ttlSecs, err := strconv.ParseInt(ttl, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: ttl: %v", ErrInvalidEntry, err)
	}
	return &Metadata{Timestamp: ts, TTLSeconds: ttlSecs, ContentHash: hash}, nil
}

