package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/expiration"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
)

// ErrDatasetNotFound is returned when the dataset list has no entry for a
// session.
var ErrDatasetNotFound = errors.New("dataset not found")

// DefaultDatasetFormat is the archive format requested when none is set.
const DefaultDatasetFormat = "json"

// DatasetIdentity identifies one downloadable session dataset.
type DatasetIdentity struct {
	SessionID int
	AccessKey string
	Format    string

	// ExpectedHash is the current dataset hash if the caller already knows
	// it. When empty, it is looked up in the dataset list.
	ExpectedHash string
}

// IdentityOf returns the identity of a dataset list entry.
func IdentityOf(d legiscan.DatasetSummary) DatasetIdentity {
	return DatasetIdentity{
		SessionID:    d.SessionID,
		AccessKey:    d.AccessKey,
		Format:       DefaultDatasetFormat,
		ExpectedHash: d.DatasetHash,
	}
}

func (id DatasetIdentity) request(op string) client.Request {
	format := id.Format
	if format == "" {
		format = DefaultDatasetFormat
	}
	return client.NewRequest(op,
		"id", strconv.Itoa(id.SessionID),
		"access_key", id.AccessKey,
		"format", format,
	)
}

// Dataset returns the getDataset payload (session metadata plus base64
// archive), downloading it only when the cached copy is expired and the
// upstream hash has changed.
func (s *Service) Dataset(ctx context.Context, id DatasetIdentity) (*legiscan.Dataset, error) {
	value, err := s.datasetEntry(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return s.decodeDataset(value)
}

// DatasetRaw returns the raw dataset archive with the same hash-gated
// refresh as Dataset.
func (s *Service) DatasetRaw(ctx context.Context, id DatasetIdentity) ([]byte, error) {
	return s.datasetRawEntry(ctx, id, 0)
}

func (s *Service) datasetEntry(ctx context.Context, id DatasetIdentity, minFreshness cache.RefreshFrequency) ([]byte, error) {
	req := id.request("getDataset")
	return s.resolve(ctx, req, id, minFreshness, func(ctx context.Context, _ string) ([]byte, string, error) {
		resp, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			return nil, "", err
		}
		var ds legiscan.Dataset
		if err := resp.Decode(legiscan.FieldDataset, &ds); err != nil {
			return nil, "", err
		}
		value, err := s.codec.Marshal(resp)
		if err != nil {
			return nil, "", fmt.Errorf("encode dataset %d: %w", id.SessionID, err)
		}
		return value, ds.DatasetHash, nil
	})
}

func (s *Service) datasetRawEntry(ctx context.Context, id DatasetIdentity, minFreshness cache.RefreshFrequency) ([]byte, error) {
	req := id.request("getDatasetRaw")
	return s.resolve(ctx, req, id, minFreshness, func(ctx context.Context, hash string) ([]byte, string, error) {
		value, err := s.fetcher.FetchRaw(ctx, req)
		if err != nil {
			return nil, "", err
		}
		// The archive carries no hash of its own; record the one we were
		// given or looked up, which may be empty.
		return value, hash, nil
	})
}

// downloadFunc fetches a dataset and returns the entry value and the hash
// to store with it. hash is the known current hash, possibly empty.
type downloadFunc func(ctx context.Context, hash string) (value []byte, storedHash string, err error)

// resolve implements the hash-gated refresh shared by both dataset forms.
//
//   - fresh entry: returned as is
//   - expired entry: the current hash (given, or from the dataset list) is
//     compared with the stored one; on a match the cached value is returned
//     without downloading and without rewriting the entry
//   - otherwise: download and store with the dataset policy
func (s *Service) resolve(ctx context.Context, req client.Request, id DatasetIdentity, minFreshness cache.RefreshFrequency, download downloadFunc) ([]byte, error) {
	key, err := req.CacheKey()
	if err != nil {
		return nil, err
	}

	entry, err := s.peek(ctx, key)
	if err != nil {
		return nil, err
	}

	hash := id.ExpectedHash
	if entry != nil {
		if !entry.IsExpired(s.now(), minFreshness) {
			ServiceHits.WithLabelValues(req.Op).Inc()
			s.logger.Debug().Str("key", key).Msg("Serving dataset from cache")
			return entry.Value, nil
		}

		if hash == "" {
			if hash, err = s.currentDatasetHash(ctx, id.SessionID); err != nil {
				return nil, err
			}
		}
		if hash == entry.ContentHash {
			DatasetHashMatches.Inc()
			s.logger.Info().
				Str("key", key).
				Str("hash", hash).
				Msg("Dataset unchanged upstream, reusing cached copy")
			return entry.Value, nil
		}
	}

	ServiceFetches.WithLabelValues(req.Op).Inc()
	s.logger.Debug().Str("key", key).Msg("Downloading dataset from LegiScan")

	value, storedHash, err := download(ctx, hash)
	if err != nil {
		return nil, err
	}
	policy := s.policies.For(req.Op, expiration.Weekly())
	if err := s.put(ctx, key, value, policy, storedHash); err != nil {
		return nil, err
	}
	return value, nil
}

// currentDatasetHash looks up the session in the (cached) dataset list.
func (s *Service) currentDatasetHash(ctx context.Context, sessionID int) (string, error) {
	list, err := s.DatasetList(ctx, "", 0)
	if err != nil {
		return "", fmt.Errorf("look up dataset hash: %w", err)
	}
	for _, d := range list {
		if d.SessionID == sessionID {
			return d.DatasetHash, nil
		}
	}
	return "", fmt.Errorf("session %d: %w", sessionID, ErrDatasetNotFound)
}

func (s *Service) decodeDataset(value []byte) (*legiscan.Dataset, error) {
	var resp legiscan.Response
	if err := s.codec.Unmarshal(value, &resp); err != nil {
		return nil, fmt.Errorf("decode cached dataset: %w", err)
	}
	var ds legiscan.Dataset
	if err := resp.Decode(legiscan.FieldDataset, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}
