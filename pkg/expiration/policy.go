// Package expiration computes cache lifetimes for LegiScan responses.
//
// LegiScan publishes updates on a fixed schedule, so most policies anchor
// expiry to wall-clock boundaries (07:00 US Eastern) rather than a rolling
// window.
package expiration

import (
	"fmt"
	"time"
	_ "time/tzdata" // zone data for hosts without a system zoneinfo
)

// PublishZone is the civil timezone of the upstream publish schedule.
const PublishZone = "America/New_York"

// PublishHour is the hour of day the upstream publishes.
const PublishHour = 7

// NeverTTL is the TTL sentinel for entries that never expire.
const NeverTTL int64 = -1

var publishLocation = mustLoadLocation(PublishZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("load location %s: %v", name, err))
	}
	return loc
}

// Policy determines how long a cache entry stays fresh.
type Policy interface {
	// TTL returns the lifetime of an entry created at createdAt.
	// ok is false when the entry never expires.
	TTL(createdAt time.Time, key string) (ttl time.Duration, ok bool)
}

// Func adapts a function into a Policy.
type Func func(createdAt time.Time, key string) (time.Duration, bool)

// TTL calls f.
func (f Func) TTL(createdAt time.Time, key string) (time.Duration, bool) {
	return f(createdAt, key)
}

// ComputeTTLSecs returns the remaining lifetime in whole seconds of an entry
// created at createdAt, as seen at now: max(0, ttl - elapsed). It returns
// NeverTTL if the policy never expires entries.
func ComputeTTLSecs(p Policy, now, createdAt time.Time, key string) int64 {
	ttl, ok := p.TTL(createdAt, key)
	if !ok {
		return NeverTTL
	}

	remaining := int64(ttl/time.Second) - int64(now.Sub(createdAt)/time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

type neverPolicy struct{}

func (neverPolicy) TTL(time.Time, string) (time.Duration, bool) { return 0, false }

func (neverPolicy) String() string { return "never" }

// Never returns a policy for content that is immutable once published.
func Never() Policy {
	return neverPolicy{}
}

type fixedPolicy time.Duration

func (p fixedPolicy) TTL(time.Time, string) (time.Duration, bool) {
	return time.Duration(p), true
}

func (p fixedPolicy) String() string { return time.Duration(p).String() }

// Fixed returns a policy expiring entries d after they were created.
func Fixed(d time.Duration) Policy {
	return fixedPolicy(d)
}

// Hourly returns a fixed one-hour policy.
func Hourly() Policy {
	return Fixed(time.Hour)
}

type dailyPolicy struct{}

func (dailyPolicy) TTL(createdAt time.Time, _ string) (time.Duration, bool) {
	local := createdAt.In(publishLocation)
	y, m, d := local.Date()

	next := time.Date(y, m, d, PublishHour, 0, 0, 0, publishLocation)
	if !next.After(local) {
		next = time.Date(y, m, d+1, PublishHour, 0, 0, 0, publishLocation)
	}
	return next.Sub(local), true
}

func (dailyPolicy) String() string { return "daily" }

// Daily returns a policy expiring entries at the next 07:00 Eastern after
// creation.
func Daily() Policy {
	return dailyPolicy{}
}

type weeklyPolicy struct{}

func (weeklyPolicy) TTL(createdAt time.Time, _ string) (time.Duration, bool) {
	local := createdAt.In(publishLocation)
	y, m, d := local.Date()

	daysUntilSunday := (7 - int(local.Weekday())) % 7
	next := time.Date(y, m, d+daysUntilSunday, PublishHour, 0, 0, 0, publishLocation)
	if !next.After(local) {
		next = time.Date(y, m, d+daysUntilSunday+7, PublishHour, 0, 0, 0, publishLocation)
	}
	return next.Sub(local), true
}

func (weeklyPolicy) String() string { return "weekly" }

// Weekly returns a policy expiring entries at the next Sunday 07:00 Eastern
// after creation.
func Weekly() Policy {
	return weeklyPolicy{}
}

// Parse resolves a policy name: never, hourly, daily, weekly, or a Go
// duration of at least one second such as "3h".
func Parse(s string) (Policy, error) {
	switch s {
	case "never":
		return Never(), nil
	case "hourly":
		return Hourly(), nil
	case "daily":
		return Daily(), nil
	case "weekly":
		return Weekly(), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("unknown expiration policy %q", s)
	}
	if d < time.Second {
		return nil, fmt.Errorf("expiration duration must be at least 1s (got %s)", d)
	}
	return Fixed(d), nil
}
