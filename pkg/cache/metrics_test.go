package cache

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCacheWrittenBytes_Accumulates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	counter := CacheWrittenBytes.WithLabelValues(layerMemory)
	before := testutil.ToFloat64(counter)

	if err := store.Put(ctx, "getbill/1", []byte("abcd"), 60, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "getbill/1", []byte("ef"), 60, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if got := testutil.ToFloat64(counter) - before; got != 6 {
		t.Errorf("written bytes grew by %v, want 6", got)
	}
}
