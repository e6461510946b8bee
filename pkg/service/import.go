package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
)

// DatasetResult summarizes a dataset imported into the cache.
type DatasetResult struct {
	Dataset     legiscan.DatasetSummary
	BillIDs     []int
	PeopleIDs   []int
	RollCallIDs []int
}

// archive directories and the operation their records are cached under
var importKinds = map[string]struct {
	op    string
	field string
}{
	"bill":   {op: "getBill", field: legiscan.FieldBill},
	"people": {op: "getPerson", field: legiscan.FieldPerson},
	"vote":   {op: "getRollCall", field: legiscan.FieldRollCall},
}

// CacheDataset downloads a dataset (subject to the hash check) and seeds
// the cache with its bills, people and roll calls so that later Bill,
// Person and RollCall calls are served locally. Records already cached are
// overwritten.
//
// freshness is the minimum age before the cached archive is rechecked
// upstream; zero uses the stored TTL alone.
func (s *Service) CacheDataset(ctx context.Context, dataset legiscan.DatasetSummary, freshness cache.RefreshFrequency) (*DatasetResult, error) {
	start := time.Now()

	id := IdentityOf(dataset)
	archive, err := s.datasetRawEntry(ctx, id, freshness)
	if err != nil {
		return nil, err
	}

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open dataset %d archive: %w", dataset.SessionID, err)
	}

	result := &DatasetResult{Dataset: dataset}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || path.Ext(f.Name) != ".json" {
			continue
		}
		kind := path.Base(path.Dir(f.Name))
		target, ok := importKinds[kind]
		if !ok {
			continue
		}

		recordID, err := s.importRecord(ctx, f, target.op, target.field)
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", f.Name, err)
		}
		DatasetImports.WithLabelValues(kind).Inc()

		switch kind {
		case "bill":
			result.BillIDs = append(result.BillIDs, recordID)
		case "people":
			result.PeopleIDs = append(result.PeopleIDs, recordID)
		case "vote":
			result.RollCallIDs = append(result.RollCallIDs, recordID)
		}
	}

	s.logger.Info().
		Int("session_id", dataset.SessionID).
		Int("bills", len(result.BillIDs)).
		Int("people", len(result.PeopleIDs)).
		Int("roll_calls", len(result.RollCallIDs)).
		Dur("duration", time.Since(start)).
		Msg("Dataset imported into cache")

	return result, nil
}

// importRecord caches one archive file as the response of op for the
// record's id and returns the id.
func (s *Service) importRecord(ctx context.Context, f *zip.File, op, field string) (int, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return 0, err
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return 0, fmt.Errorf("decode record: %w", err)
	}
	payload, ok := wrapper[field]
	if !ok {
		return 0, fmt.Errorf("record has no %q field", field)
	}

	recordID, err := recordIDOf(field, payload)
	if err != nil {
		return 0, err
	}

	req := client.NewRequest(op, "id", strconv.Itoa(recordID))
	key, err := req.CacheKey()
	if err != nil {
		return 0, err
	}
	value, err := s.codec.Marshal(legiscan.NewResponse(field, payload))
	if err != nil {
		return 0, err
	}
	if err := s.put(ctx, key, value, s.Policy(op), ""); err != nil {
		return 0, err
	}
	return recordID, nil
}

func recordIDOf(field string, payload json.RawMessage) (int, error) {
	var recordID int
	switch field {
	case legiscan.FieldBill:
		var ref legiscan.BillRef
		if err := json.Unmarshal(payload, &ref); err != nil {
			return 0, err
		}
		recordID = ref.BillID
	case legiscan.FieldPerson:
		var ref legiscan.PersonRef
		if err := json.Unmarshal(payload, &ref); err != nil {
			return 0, err
		}
		recordID = ref.PeopleID
	case legiscan.FieldRollCall:
		var ref legiscan.RollCallRef
		if err := json.Unmarshal(payload, &ref); err != nil {
			return 0, err
		}
		recordID = ref.RollCallID
	}
	if recordID <= 0 {
		return 0, fmt.Errorf("%s record has no id", field)
	}
	return recordID, nil
}

// CacheDatasetForState imports the regular (non-special) session dataset
// of a state and year.
func (s *Service) CacheDatasetForState(ctx context.Context, state string, year int, freshness cache.RefreshFrequency) (*DatasetResult, error) {
	list, err := s.DatasetList(ctx, state, year)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		if !d.IsSpecial() {
			return s.CacheDataset(ctx, d, freshness)
		}
	}
	return nil, fmt.Errorf("%s %d regular session: %w", strings.ToUpper(state), year, ErrDatasetNotFound)
}

// CacheDatasetForSession imports the dataset of one session of a state and year.
func (s *Service) CacheDatasetForSession(ctx context.Context, state string, year, sessionID int, freshness cache.RefreshFrequency) (*DatasetResult, error) {
	list, err := s.DatasetList(ctx, state, year)
	if err != nil {
		return nil, err
	}
	for _, d := range list {
		if d.SessionID == sessionID {
			return s.CacheDataset(ctx, d, freshness)
		}
	}
	return nil, fmt.Errorf("session %d: %w", sessionID, ErrDatasetNotFound)
}
