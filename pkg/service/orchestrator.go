package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
)

// Get serves req from the cache, fetching it from LegiScan on a miss.
//
// An entry is a hit when it is present and not expired by its own stored
// TTL. policy only determines the TTL written when the response is
// (re)fetched. Transport errors are returned unchanged and leave the cache
// untouched.
func (s *Service) Get(ctx context.Context, req client.Request, policy expiration.Policy) (*legiscan.Response, error) {
	key, err := req.CacheKey()
	if err != nil {
		return nil, err
	}

	entry, err := s.peek(ctx, key)
	if err != nil {
		return nil, err
	}
	if entry != nil && !entry.IsExpired(s.now(), 0) {
		var resp legiscan.Response
		decodeErr := s.codec.Unmarshal(entry.Value, &resp)
		if decodeErr == nil {
			ServiceHits.WithLabelValues(req.Op).Inc()
			s.logger.Debug().Str("key", key).Msg("Serving from cache")
			return &resp, nil
		}
		s.logger.Warn().Err(decodeErr).Str("key", key).Msg("Cached entry unreadable, refetching")
	}

	ServiceFetches.WithLabelValues(req.Op).Inc()
	s.logger.Debug().Str("key", key).Msg("Fetching from LegiScan")

	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	value, err := s.codec.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.put(ctx, key, value, policy, ""); err != nil {
		return nil, err
	}
	return resp, nil
}

// GetOp is Get with the policy registered for the request's operation.
func (s *Service) GetOp(ctx context.Context, req client.Request) (*legiscan.Response, error) {
	return s.Get(ctx, req, s.Policy(req.Op))
}

// peek returns the entry for key, or nil on a miss.
func (s *Service) peek(ctx context.Context, key string) (*cache.Entry, error) {
	entry, err := s.store.Peek(ctx, key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache %s: %w", key, err)
	}
	return entry, nil
}

// put writes value with the TTL policy assigns to an entry created now.
// A bounded policy always stores at least one second; a stored zero would
// read as never expiring.
func (s *Service) put(ctx context.Context, key string, value []byte, policy expiration.Policy, hash string) error {
	now := s.now()
	ttl := expiration.ComputeTTLSecs(policy, now, now, key)
	if ttl == 0 {
		ttl = 1
	}
	if err := s.store.Put(ctx, key, value, ttl, hash); err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Int64("ttl", ttl).Msg("Cached response")
	return nil
}
