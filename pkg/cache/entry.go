package cache

import (
	"time"
)

// RefreshFrequency is a minimum freshness window a caller can demand when
// checking an entry for expiry.
type RefreshFrequency time.Duration

const (
	// Hourly accepts entries up to one hour old.
	Hourly RefreshFrequency = RefreshFrequency(time.Hour)

	// Daily accepts entries up to one day old.
	Daily RefreshFrequency = RefreshFrequency(24 * time.Hour)

	// Weekly accepts entries up to one week old.
	Weekly RefreshFrequency = RefreshFrequency(7 * 24 * time.Hour)
)

// Duration returns the window as a time.Duration.
func (f RefreshFrequency) Duration() time.Duration {
	return time.Duration(f)
}

// Metadata describes a cache entry without its value.
type Metadata struct {
	// Timestamp is when the entry was written (epoch seconds)
	Timestamp int64 `json:"timestamp"`

	// TTLSeconds is the lifetime of the entry. Zero or negative means the
	// entry never expires.
	TTLSeconds int64 `json:"ttl_secs"`

	// ContentHash is the upstream fingerprint of the value, if one is known
	ContentHash string `json:"object_hash,omitempty"`
}

// Entry is a cached LegiScan response.
type Entry struct {
	Metadata

	// Value is the encoded payload (a serialized response or raw bytes)
	Value []byte `json:"value"`
}

// NeverExpires reports whether the entry carries the "never" sentinel.
func (m Metadata) NeverExpires() bool {
	return m.TTLSeconds <= 0
}

// CreatedAt returns the write time of the entry.
func (m Metadata) CreatedAt() time.Time {
	return time.Unix(m.Timestamp, 0)
}

// IsExpired reports whether the entry is stale at now.
//
// minFreshness widens the validity window: the entry stays valid for
// max(minFreshness, TTL). Entries that never expire are never stale,
// whatever minFreshness is.
func (m Metadata) IsExpired(now time.Time, minFreshness RefreshFrequency) bool {
	if m.NeverExpires() {
		return false
	}

	valid := m.TTLSeconds
	if override := int64(minFreshness.Duration() / time.Second); override > valid {
		valid = override
	}

	return now.Unix() > m.Timestamp+valid
}

// TTL returns the time until expiration at now.
// Returns 0 if already expired and -1 if the entry never expires.
func (m Metadata) TTL(now time.Time) time.Duration {
	if m.NeverExpires() {
		return -1
	}
	ttl := time.Duration(m.Timestamp+m.TTLSeconds-now.Unix()) * time.Second
	if ttl < 0 {
		return 0
	}
	return ttl
}
