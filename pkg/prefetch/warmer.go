package prefetch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/Sternrassler/legiscan-client/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Config holds warmer configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel bill loads.
	// LegiScan's quota is monthly, so this only bounds burstiness.
	MaxConcurrency int
	// Timeout per bill load
	Timeout time.Duration
}

// DefaultConfig returns a conservative configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        30 * time.Second,
	}
}

// Source is the subset of the cached service the warmer needs.
type Source interface {
	MasterList(ctx context.Context, sessionID int) (json.RawMessage, error)
	Bill(ctx context.Context, billID int) (json.RawMessage, error)
}

// Result reports a warm-up.
type Result struct {
	Total  int
	Warmed int
	Failed map[int]error
}

// Warmer loads bills into the cache.
type Warmer struct {
	source Source
	config Config
	logger zerolog.Logger
}

// NewWarmer creates a new warmer.
func NewWarmer(source Source, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &Warmer{source: source, config: config, logger: logging.NewLogger(logging.ComponentPrefetch)}
}

// WarmSession loads every bill of a session's master list.
func (w *Warmer) WarmSession(ctx context.Context, sessionID int) (*Result, error) {
	raw, err := w.source.MasterList(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load master list: %w", err)
	}
	bills, err := legiscan.ParseMasterList(raw)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(bills))
	for i, b := range bills {
		ids[i] = b.BillID
	}
	return w.WarmBills(ctx, ids)
}

// WarmBills loads the given bills in parallel. Failed bills are reported
// in the result; the error is non-nil if any failed.
func (w *Warmer) WarmBills(ctx context.Context, billIDs []int) (*Result, error) {
	start := time.Now()
	result := &Result{Total: len(billIDs), Failed: make(map[int]error)}

	w.logger.Info().
		Int("bills", len(billIDs)).
		Int("concurrency", w.config.MaxConcurrency).
		Msg("Starting cache warm-up")

	var mu sync.Mutex
	p := pool.New().WithContext(ctx).WithMaxGoroutines(w.config.MaxConcurrency)

	for _, id := range billIDs {
		p.Go(func(ctx context.Context) error {
			billCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
			defer cancel()

			_, err := w.source.Bill(billCtx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				w.logger.Warn().Err(err).Int("bill_id", id).Msg("Bill warm-up failed")
				result.Failed[id] = err
				return err
			}
			result.Warmed++
			if result.Warmed%50 == 0 {
				w.logger.Info().
					Int("warmed", result.Warmed).
					Int("total", result.Total).
					Float64("progress_pct", float64(result.Warmed)/float64(result.Total)*100).
					Msg("Warm-up progress")
			}
			return nil
		})
	}

	err := p.Wait()

	w.logger.Info().
		Int("warmed", result.Warmed).
		Int("failed", len(result.Failed)).
		Dur("duration", time.Since(start)).
		Msg("Warm-up complete")

	if err != nil {
		return result, fmt.Errorf("warm-up incomplete (%d/%d bills): %w", result.Warmed, result.Total, err)
	}
	return result, nil
}
