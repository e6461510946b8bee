// Package coalesce collapses concurrent identical requests into one
// upstream call. It wraps the service from the outside: the cache core
// itself does not lock per key.
package coalesce

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var sharedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "legiscan_coalesced_requests_total",
	Help: "Requests answered by another in-flight call for the same key",
})

// Group coalesces calls by key.
type Group struct {
	sf singleflight.Group
}

// Do runs fn once per key among concurrent callers and hands every caller
// the same result. shared reports whether the result was shared with
// other callers.
//
// A caller whose ctx ends stops waiting and gets ctx.Err(); the call itself
// keeps running for the remaining callers. A key is released as soon as its
// call returns, so a failure is only shared with callers already waiting.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, shared bool, err error) {
	ch := g.sf.DoChan(key, func() (any, error) {
		// detached so one caller's cancellation does not fail the others
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Shared {
			sharedTotal.Inc()
		}
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
