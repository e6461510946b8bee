package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrQuotaExhausted is returned when the monthly quota is used up.
var ErrQuotaExhausted = errors.New("legiscan monthly quota exhausted")

// Prometheus metrics for quota tracking.
var (
	legiscanQuotaUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "legiscan_quota_used",
		Help: "Number of LegiScan queries used in the current month",
	})

	legiscanQuotaBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "legiscan_quota_blocks_total",
		Help: "Total number of requests blocked because the monthly quota was exhausted",
	})
)

// Counter stores per-month request counts.
type Counter interface {
	// Get returns the count for month.
	Get(ctx context.Context, month string) (int64, error)

	// Incr adds one to the count for month and returns the new count.
	Incr(ctx context.Context, month string) (int64, error)

	// Decr takes back one Incr.
	Decr(ctx context.Context, month string) error
}

// MemoryCounter counts in process memory.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounter creates an empty counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

// Get returns the count for month.
func (c *MemoryCounter) Get(_ context.Context, month string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[month], nil
}

// Incr adds one to the count for month.
func (c *MemoryCounter) Incr(_ context.Context, month string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[month]++
	return c.counts[month], nil
}

// Decr subtracts one from the count for month.
func (c *MemoryCounter) Decr(_ context.Context, month string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[month]--
	return nil
}

// RedisCounter shares counts between processes through Redis.
type RedisCounter struct {
	redis *redis.Client
}

// NewRedisCounter creates a Redis backed counter.
func NewRedisCounter(redisClient *redis.Client) *RedisCounter {
	return &RedisCounter{redis: redisClient}
}

// Get returns the count for month.
func (c *RedisCounter) Get(ctx context.Context, month string) (int64, error) {
	n, err := c.redis.Get(ctx, RedisKeyPrefix+month).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get quota count: %w", err)
	}
	return n, nil
}

// Incr adds one to the count for month. Keys expire after the month is over.
func (c *RedisCounter) Incr(ctx context.Context, month string) (int64, error) {
	key := RedisKeyPrefix + month

	pipe := c.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 40*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr quota count: %w", err)
	}
	return incr.Val(), nil
}

// Decr subtracts one from the count for month.
func (c *RedisCounter) Decr(ctx context.Context, month string) error {
	if err := c.redis.Decr(ctx, RedisKeyPrefix+month).Err(); err != nil {
		return fmt.Errorf("decr quota count: %w", err)
	}
	return nil
}

// Tracker gates upstream requests on the monthly quota.
type Tracker struct {
	counter Counter
	limit   int64
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTracker creates a quota tracker. A limit <= 0 disables enforcement but
// still counts requests.
func NewTracker(counter Counter, limit int64, logger zerolog.Logger) *Tracker {
	return &Tracker{
		counter: counter,
		limit:   limit,
		logger:  logger,
		now:     time.Now,
	}
}

// GetState returns usage for the current month.
func (t *Tracker) GetState(ctx context.Context) (State, error) {
	month := MonthKey(t.now())
	used, err := t.counter.Get(ctx, month)
	if err != nil {
		return State{}, err
	}
	return State{Month: month, Used: used, Limit: t.limit}, nil
}

// Acquire records one request against the quota. The decision is made on
// the count Incr returns, so concurrent callers cannot overshoot the limit;
// an increment past the limit is taken back and ErrQuotaExhausted returned.
func (t *Tracker) Acquire(ctx context.Context) error {
	state := State{Month: MonthKey(t.now()), Limit: t.limit}

	used, err := t.counter.Incr(ctx, state.Month)
	if err != nil {
		return fmt.Errorf("record quota use: %w", err)
	}
	state.Used = used

	if !state.Unlimited() && used > state.Limit {
		if err := t.counter.Decr(ctx, state.Month); err != nil {
			t.logger.Warn().Err(err).Str("month", state.Month).Msg("Failed to release quota slot")
		}
		t.logger.Error().
			Str("month", state.Month).
			Int64("limit", state.Limit).
			Msg("LegiScan quota exhausted - blocking request")

		legiscanQuotaBlocksTotal.Inc()
		return ErrQuotaExhausted
	}

	legiscanQuotaUsed.Set(float64(used))

	if state.NeedsWarning() {
		t.logger.Warn().
			Int64("used", used).
			Int64("remaining", state.Remaining()).
			Msg("LegiScan quota nearly exhausted")
	}

	return nil
}
