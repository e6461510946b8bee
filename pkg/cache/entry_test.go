package cache

import (
	"testing"
	"time"
)

func TestMetadata_IsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name         string
		meta         Metadata
		minFreshness RefreshFrequency
		want         bool
	}{
		{
			name: "expired entry",
			meta: Metadata{Timestamp: now.Add(-2 * time.Hour).Unix(), TTLSeconds: 3600},
			want: true,
		},
		{
			name: "valid entry",
			meta: Metadata{Timestamp: now.Add(-30 * time.Minute).Unix(), TTLSeconds: 3600},
			want: false,
		},
		{
			name: "exactly at boundary is still valid",
			meta: Metadata{Timestamp: now.Add(-1 * time.Hour).Unix(), TTLSeconds: 3600},
			want: false,
		},
		{
			name: "one second past boundary",
			meta: Metadata{Timestamp: now.Add(-1*time.Hour - time.Second).Unix(), TTLSeconds: 3600},
			want: true,
		},
		{
			name: "never expires with zero ttl",
			meta: Metadata{Timestamp: 0, TTLSeconds: 0},
			want: false,
		},
		{
			name: "never expires with negative ttl",
			meta: Metadata{Timestamp: 0, TTLSeconds: -1},
			want: false,
		},
		{
			name:         "freshness override widens window",
			meta:         Metadata{Timestamp: now.Add(-2 * time.Hour).Unix(), TTLSeconds: 3600},
			minFreshness: Daily,
			want:         false,
		},
		{
			name:         "smaller override does not shrink window",
			meta:         Metadata{Timestamp: now.Add(-30 * time.Minute).Unix(), TTLSeconds: 7200},
			minFreshness: Hourly,
			want:         false,
		},
		{
			name:         "override ignored for never-expiring entries",
			meta:         Metadata{Timestamp: 0, TTLSeconds: -1},
			minFreshness: Hourly,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.IsExpired(now, tt.minFreshness); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetadata_NeverExpiresForArbitraryElapsedTime(t *testing.T) {
	meta := Metadata{Timestamp: 0, TTLSeconds: -1}
	far := time.Unix(0, 0).Add(100 * 365 * 24 * time.Hour)

	if meta.IsExpired(far, 0) {
		t.Error("entry with never ttl reported expired")
	}
}

func TestMetadata_TTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		meta Metadata
		want time.Duration
	}{
		{
			name: "one hour remaining",
			meta: Metadata{Timestamp: now.Unix(), TTLSeconds: 3600},
			want: time.Hour,
		},
		{
			name: "already expired",
			meta: Metadata{Timestamp: now.Add(-2 * time.Hour).Unix(), TTLSeconds: 3600},
			want: 0,
		},
		{
			name: "never expires",
			meta: Metadata{Timestamp: now.Unix(), TTLSeconds: -1},
			want: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.TTL(now); got != tt.want {
				t.Errorf("TTL() = %v, want %v", got, tt.want)
			}
		})
	}
}
