package service

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawKey = "getdatasetraw/ak/json/2041"

var caDataset = legiscan.DatasetSummary{
	SessionID:   2041,
	StateID:     5,
	YearStart:   2023,
	YearEnd:     2024,
	DatasetHash: "h1",
	AccessKey:   "ak",
}

func rawIdentity() DatasetIdentity {
	return DatasetIdentity{SessionID: 2041, AccessKey: "ak", Format: "json"}
}

func TestDatasetRaw_MissDownloadsAndStores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respondRaw("getDatasetRaw", []byte("zip-v1"))

	id := rawIdentity()
	id.ExpectedHash = "h1"
	got, err := env.svc.DatasetRaw(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "zip-v1", string(got))

	entry, err := env.store.Peek(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, "h1", entry.ContentHash)

	weekly := expiration.ComputeTTLSecs(expiration.Weekly(), t0, t0, rawKey)
	assert.Equal(t, weekly, entry.TTLSeconds)
	assert.Equal(t, 0, env.fetcher.Calls("getDatasetList"), "miss with known hash needs no lookup")
}

func TestDatasetRaw_MissWithoutHashStoresEmptyHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respondRaw("getDatasetRaw", []byte("zip-v1"))

	_, err := env.svc.DatasetRaw(ctx, rawIdentity())
	require.NoError(t, err)

	meta, err := env.store.PeekMetadata(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, "", meta.ContentHash)
	assert.Equal(t, 0, env.fetcher.Calls("getDatasetList"))
}

func TestDatasetRaw_FreshHit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Put(ctx, rawKey, []byte("cached"), 3600, "h1"))

	env.clock.Advance(30 * time.Minute)
	got, err := env.svc.DatasetRaw(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.Equal(t, 0, env.fetcher.TotalCalls())
}

func TestDatasetRaw_ExpiredHashMatchReuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getDatasetList", legiscan.FieldDatasetList, datasetListPayload(caDataset))
	require.NoError(t, env.store.Put(ctx, rawKey, []byte("cached"), 3600, "h1"))

	env.clock.Advance(2 * time.Hour)
	got, err := env.svc.DatasetRaw(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.Equal(t, 0, env.fetcher.Calls("getDatasetRaw"), "matching hash must not download")
	assert.Equal(t, 1, env.fetcher.Calls("getDatasetList"))

	meta, err := env.store.PeekMetadata(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, t0.Unix(), meta.Timestamp, "hash match does not rewrite the entry")

	// The list itself is cached, so a second check costs nothing upstream.
	_, err = env.svc.DatasetRaw(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, 1, env.fetcher.Calls("getDatasetList"))
	assert.Equal(t, 0, env.fetcher.Calls("getDatasetRaw"))
}

func TestDatasetRaw_ExpiredHashChangedDownloads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	changed := caDataset
	changed.DatasetHash = "h2"
	env.fetcher.respond("getDatasetList", legiscan.FieldDatasetList, datasetListPayload(changed))
	env.fetcher.respondRaw("getDatasetRaw", []byte("zip-v2"))
	require.NoError(t, env.store.Put(ctx, rawKey, []byte("cached"), 3600, "h1"))

	env.clock.Advance(2 * time.Hour)
	got, err := env.svc.DatasetRaw(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, "zip-v2", string(got))
	assert.Equal(t, 1, env.fetcher.Calls("getDatasetRaw"))

	entry, err := env.store.Peek(ctx, rawKey)
	require.NoError(t, err)
	assert.Equal(t, "h2", entry.ContentHash)
	assert.Equal(t, env.clock.Now().Unix(), entry.Timestamp)
}

func TestDatasetRaw_ExpectedHashSkipsLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Put(ctx, rawKey, []byte("cached"), 3600, "h1"))

	env.clock.Advance(2 * time.Hour)
	id := rawIdentity()
	id.ExpectedHash = "h1"
	got, err := env.svc.DatasetRaw(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.Equal(t, 0, env.fetcher.TotalCalls())
}

func TestDatasetRaw_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fetcher.respond("getDatasetList", legiscan.FieldDatasetList, datasetListPayload(caDataset))

	key := "getdatasetraw/ak/json/9999"
	require.NoError(t, env.store.Put(ctx, key, []byte("cached"), 60, "h1"))
	env.clock.Advance(time.Hour)

	_, err := env.svc.DatasetRaw(ctx, DatasetIdentity{SessionID: 9999, AccessKey: "ak"})
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.Equal(t, 0, env.fetcher.Calls("getDatasetRaw"))
}

func TestDataset_StoresUpstreamHash(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	zip := base64.StdEncoding.EncodeToString([]byte("PK"))
	env.fetcher.respond("getDataset", legiscan.FieldDataset, datasetPayload(2041, "h1", zip))

	ds, err := env.svc.Dataset(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, 2041, ds.SessionID)
	archive, err := ds.Archive()
	require.NoError(t, err)
	assert.Equal(t, "PK", string(archive))

	meta, err := env.store.PeekMetadata(ctx, "getdataset/ak/json/2041")
	require.NoError(t, err)
	assert.Equal(t, "h1", meta.ContentHash)

	// Expired, list still says h1: served from cache.
	env.fetcher.respond("getDatasetList", legiscan.FieldDatasetList, datasetListPayload(caDataset))
	env.clock.Advance(8 * 24 * time.Hour)
	again, err := env.svc.Dataset(ctx, rawIdentity())
	require.NoError(t, err)
	assert.Equal(t, "h1", again.DatasetHash)
	assert.Equal(t, 1, env.fetcher.Calls("getDataset"))
}

func TestDatasetRaw_MinimumFreshness(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Put(ctx, rawKey, []byte("cached"), 3600, "h1"))

	env.clock.Advance(3 * time.Hour)
	got, err := env.svc.datasetRawEntry(ctx, rawIdentity(), cache.Daily)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.Equal(t, 0, env.fetcher.TotalCalls(), "entry younger than a day is fresh under a daily window")
}
