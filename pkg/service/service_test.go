package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// t0 is Tuesday 2024-01-02 10:00 US Eastern.
var t0 = time.Date(2024, time.January, 2, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeFetcher answers from canned responses keyed by op and counts calls.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*legiscan.Response
	raw       map[string][]byte
	errs      map[string]error
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string]*legiscan.Response),
		raw:       make(map[string][]byte),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) respond(op, field, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[op] = legiscan.NewResponse(field, json.RawMessage(payload))
}

func (f *fakeFetcher) respondRaw(op string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw[op] = data
}

func (f *fakeFetcher) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *fakeFetcher) Fetch(_ context.Context, req client.Request) (*legiscan.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Op]++
	if err := f.errs[req.Op]; err != nil {
		return nil, err
	}
	resp, ok := f.responses[req.Op]
	if !ok {
		return nil, &client.APIError{Op: req.Op, Message: "no canned response"}
	}
	return resp, nil
}

func (f *fakeFetcher) FetchRaw(_ context.Context, req client.Request) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Op]++
	if err := f.errs[req.Op]; err != nil {
		return nil, err
	}
	data, ok := f.raw[req.Op]
	if !ok {
		return nil, &client.APIError{Op: req.Op, Message: "no canned response"}
	}
	return data, nil
}

func (f *fakeFetcher) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeFetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type testEnv struct {
	svc     *Service
	fetcher *fakeFetcher
	store   *cache.MemoryStore
	clock   *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fakeClock{now: t0}
	fetcher := newFakeFetcher()
	store := cache.NewMemoryStore(cache.WithClock(clock.Now))
	logger := zerolog.Nop()

	svc, err := New(Options{
		Fetcher: fetcher,
		Store:   store,
		Logger:  &logger,
		Now:     clock.Now,
	})
	require.NoError(t, err)

	return &testEnv{svc: svc, fetcher: fetcher, store: store, clock: clock}
}

func TestNew_Defaults(t *testing.T) {
	dir := t.TempDir()
	svc, err := New(Options{APIKey: "abc", CacheDir: dir})
	require.NoError(t, err)

	fs, ok := svc.Store().(*cache.FileStore)
	require.True(t, ok, "default store should be the filesystem store")
	assert.Equal(t, dir, fs.Root())
	assert.Equal(t, expiration.Weekly(), svc.Policy("getPerson"))
	assert.Equal(t, expiration.Hourly(), svc.Policy("getSomethingNew"))
}

func TestNew_RequiresAPIKeyWithoutFetcher(t *testing.T) {
	_, err := New(Options{CacheDir: t.TempDir()})
	assert.Error(t, err)
}

func TestGet_MissThenHit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getBill", legiscan.FieldBill, `{"bill_id":42}`)

	req := client.NewRequest("getBill", "id", "42")

	first, err := env.svc.Get(ctx, req, expiration.Fixed(3*time.Hour))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bill_id":42}`, string(first.Field(legiscan.FieldBill)))
	assert.Equal(t, 1, env.fetcher.Calls("getBill"))

	meta, err := env.store.PeekMetadata(ctx, "getbill/42")
	require.NoError(t, err)
	assert.Equal(t, int64(3*3600), meta.TTLSeconds)
	assert.Equal(t, t0.Unix(), meta.Timestamp)

	env.clock.Advance(2 * time.Hour)
	second, err := env.svc.Get(ctx, req, expiration.Fixed(3*time.Hour))
	require.NoError(t, err)
	assert.JSONEq(t, `{"bill_id":42}`, string(second.Field(legiscan.FieldBill)))
	assert.Equal(t, 1, env.fetcher.TotalCalls(), "hit must not reach the transport")
}

func TestGet_ExpiredRefetches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getMasterList", legiscan.FieldMasterList, `{"session":{"session_id":1}}`)

	req := client.NewRequest("getMasterList", "state", "CA")
	_, err := env.svc.Get(ctx, req, expiration.Hourly())
	require.NoError(t, err)

	env.clock.Advance(time.Hour + time.Second)
	_, err = env.svc.Get(ctx, req, expiration.Hourly())
	require.NoError(t, err)
	assert.Equal(t, 2, env.fetcher.Calls("getMasterList"))

	meta, err := env.store.PeekMetadata(ctx, "getmasterlist/ca")
	require.NoError(t, err)
	assert.Equal(t, env.clock.Now().Unix(), meta.Timestamp, "rewrite resets the timestamp")
}

func TestGet_StoredTTLDecidesFreshness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getBill", legiscan.FieldBill, `{"bill_id":1}`)
	req := client.NewRequest("getBill", "id", "1")

	_, err := env.svc.Get(ctx, req, expiration.Fixed(time.Hour))
	require.NoError(t, err)

	// A longer policy on the read does not extend the stored lifetime.
	env.clock.Advance(2 * time.Hour)
	_, err = env.svc.Get(ctx, req, expiration.Fixed(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, env.fetcher.Calls("getBill"))

	meta, err := env.store.PeekMetadata(ctx, "getbill/1")
	require.NoError(t, err)
	assert.Equal(t, int64(24*3600), meta.TTLSeconds)
}

func TestGet_NeverPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getBillText", legiscan.FieldBillText, `{"doc_id":9}`)
	req := client.NewRequest("getBillText", "id", "9")

	_, err := env.svc.GetOp(ctx, req)
	require.NoError(t, err)

	meta, err := env.store.PeekMetadata(ctx, "getbilltext/9")
	require.NoError(t, err)
	assert.Equal(t, expiration.NeverTTL, meta.TTLSeconds)

	env.clock.Advance(5 * 365 * 24 * time.Hour)
	_, err = env.svc.GetOp(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, env.fetcher.Calls("getBillText"))
}

func TestGet_SubSecondTTLStillExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getSessionList", legiscan.FieldSessions, `[]`)

	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	env.clock.now = time.Date(2024, time.March, 5, 6, 59, 59, 500_000_000, eastern)

	req := client.NewRequest("getSessionList", "state", "CA")
	_, err = env.svc.Get(ctx, req, expiration.Daily())
	require.NoError(t, err)

	meta, err := env.store.PeekMetadata(ctx, "getsessionlist/ca")
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.TTLSeconds)

	env.clock.Advance(2 * time.Second)
	_, err = env.svc.Get(ctx, req, expiration.Daily())
	require.NoError(t, err)
	assert.Equal(t, 2, env.fetcher.Calls("getSessionList"), "entry past the boundary must refetch")

	env.clock.Advance(30 * 24 * time.Hour)
	_, err = env.svc.Get(ctx, req, expiration.Daily())
	require.NoError(t, err)
	assert.Equal(t, 3, env.fetcher.Calls("getSessionList"))
}

func TestGet_TransportErrorPropagates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	upstream := &client.HTTPError{Op: "getBill", StatusCode: 503, Status: "Service Unavailable"}
	env.fetcher.fail("getBill", upstream)

	_, err := env.svc.Get(ctx, client.NewRequest("getBill", "id", "5"), expiration.Hourly())

	var httpErr *client.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Same(t, upstream, httpErr)
	assert.Equal(t, 0, env.store.Len(), "failed fetch must not write the cache")
}

func TestGet_InvalidKey(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Get(context.Background(), client.Request{}, expiration.Hourly())
	assert.ErrorIs(t, err, cache.ErrInvalidKey)
	assert.Equal(t, 0, env.fetcher.TotalCalls())
}

// failingStore reports a storage fault on every read.
type failingStore struct {
	cache.Store
}

var errDisk = errors.New("disk on fire")

func (failingStore) Peek(context.Context, string) (*cache.Entry, error) {
	return nil, errDisk
}

func TestGet_StorageErrorPropagates(t *testing.T) {
	fetcher := newFakeFetcher()
	logger := zerolog.Nop()
	svc, err := New(Options{
		Fetcher: fetcher,
		Store:   failingStore{Store: cache.NewMemoryStore()},
		Logger:  &logger,
	})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), client.NewRequest("getBill", "id", "1"), expiration.Hourly())
	assert.ErrorIs(t, err, errDisk)
	assert.Equal(t, 0, fetcher.TotalCalls())
}

func TestGet_UnreadableEntryRefetches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getPerson", legiscan.FieldPerson, `{"people_id":3}`)

	require.NoError(t, env.store.Put(ctx, "getperson/3", []byte("not json"), 3600, ""))

	resp, err := env.svc.Person(ctx, 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"people_id":3}`, string(resp))
	assert.Equal(t, 1, env.fetcher.Calls("getPerson"))
}

func TestGet_ConcurrentMissesBothFetch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getRollCall", legiscan.FieldRollCall, `{"roll_call_id":8}`)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.RollCall(ctx, 8)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// No per-key locking: every caller may fetch, the entry is written once per fetch.
	calls := env.fetcher.Calls("getRollCall")
	assert.GreaterOrEqual(t, calls, 1)
	assert.LessOrEqual(t, calls, 4)
	assert.Equal(t, 1, env.store.Len())
}

func datasetListPayload(entries ...legiscan.DatasetSummary) string {
	data, err := json.Marshal(entries)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func datasetPayload(sessionID int, hash, zip string) string {
	return fmt.Sprintf(`{"session_id":%d,"dataset_hash":%q,"zip":%q}`, sessionID, hash, zip)
}
