// Package service is the cached LegiScan API. Every operation derives a
// cache key from its request, serves fresh entries from the store and only
// calls LegiScan on a miss or after expiry.
//
// Example usage:
//
//	svc, err := service.New(service.Options{APIKey: os.Getenv("LEGISCAN_API_KEY")})
//	if err != nil {
//	    return err
//	}
//	bill, err := svc.Bill(ctx, 1132030)
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/Sternrassler/legiscan-client/pkg/logging"
	"github.com/Sternrassler/legiscan-client/pkg/quota"
	"github.com/rs/zerolog"
)

// DefaultCacheSubdir is the cache directory below the user's home.
const DefaultCacheSubdir = "appdata/poliscore/legiscan"

// Fetcher performs upstream LegiScan calls. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req client.Request) (*legiscan.Response, error)
	FetchRaw(ctx context.Context, req client.Request) ([]byte, error)
}

// Options configures a Service.
type Options struct {
	// APIKey is used to build the default client when Fetcher is nil
	APIKey string

	// BaseURL overrides the LegiScan endpoint of the default client
	BaseURL string

	// Quota is passed to the default client
	Quota *quota.Tracker

	// Fetcher replaces the default client
	Fetcher Fetcher

	// Store replaces the default filesystem store
	Store cache.Store

	// CacheDir is the root of the default filesystem store
	// (default: $HOME/appdata/poliscore/legiscan)
	CacheDir string

	// Codec serializes responses into entries (default: JSON)
	Codec cache.Codec

	// Policies maps operations to expiration policies
	// (default: expiration.DefaultTable)
	Policies expiration.Table

	// Logger (default: component logger from the global logger)
	Logger *zerolog.Logger

	// Now is the time source (default: time.Now)
	Now func() time.Time
}

// Service is the cached LegiScan API.
type Service struct {
	fetcher  Fetcher
	store    cache.Store
	codec    cache.Codec
	policies expiration.Table
	logger   zerolog.Logger
	now      func() time.Time
}

// New builds a Service, filling in defaults for unset options.
func New(opts Options) (*Service, error) {
	fetcher := opts.Fetcher
	if fetcher == nil {
		cfg := client.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		cfg.Quota = opts.Quota
		c, err := client.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("create client: %w", err)
		}
		fetcher = c
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store := opts.Store
	if store == nil {
		dir := opts.CacheDir
		if dir == "" {
			var err error
			if dir, err = DefaultCacheDir(); err != nil {
				return nil, err
			}
		}
		fs, err := cache.NewFileStore(dir, cache.WithClock(now))
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		store = fs
	}

	codec := opts.Codec
	if codec == nil {
		codec = cache.JSONCodec{}
	}

	policies := opts.Policies
	if policies == nil {
		policies = expiration.DefaultTable()
	}

	logger := logging.NewLogger(logging.ComponentService)
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	return &Service{
		fetcher:  fetcher,
		store:    store,
		codec:    codec,
		policies: policies,
		logger:   logger,
		now:      now,
	}, nil
}

// DefaultCacheDir returns $HOME/appdata/poliscore/legiscan.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultCacheSubdir), nil
}

// Store returns the underlying cache store.
func (s *Service) Store() cache.Store {
	return s.store
}

// Policy returns the expiration policy for an operation. Operations
// missing from the table expire hourly.
func (s *Service) Policy(op string) expiration.Policy {
	return s.policies.For(op, expiration.Hourly())
}
