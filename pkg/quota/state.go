// Package quota tracks LegiScan API usage against the monthly query quota.
// Every upstream request counts; cache hits do not.
package quota

import (
	"time"
)

// Redis keys for quota state storage.
const (
	// RedisKeyPrefix is followed by the month, e.g. legiscan:quota:2024-05
	RedisKeyPrefix = "legiscan:quota:"
)

const (
	// DefaultMonthlyLimit is the query quota of a LegiScan public API key.
	DefaultMonthlyLimit = 30000

	// WarningRatio logs warnings once this share of the quota is used.
	WarningRatio = 0.9
)

// MonthKey returns the quota period containing t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// State is the usage for one quota period.
type State struct {
	// Month is the quota period (YYYY-MM, UTC)
	Month string `json:"month"`

	// Used is the number of upstream requests made this period
	Used int64 `json:"used"`

	// Limit is the monthly quota. Zero means unlimited.
	Limit int64 `json:"limit"`
}

// Unlimited reports whether no quota is enforced.
func (s State) Unlimited() bool {
	return s.Limit <= 0
}

// Remaining returns the requests left this period, or -1 when unlimited.
func (s State) Remaining() int64 {
	if s.Unlimited() {
		return -1
	}
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// Exhausted reports whether no requests are left.
func (s State) Exhausted() bool {
	return !s.Unlimited() && s.Used >= s.Limit
}

// NeedsWarning reports whether usage passed WarningRatio but is not exhausted.
func (s State) NeedsWarning() bool {
	if s.Unlimited() || s.Exhausted() {
		return false
	}
	return float64(s.Used) >= float64(s.Limit)*WarningRatio
}
