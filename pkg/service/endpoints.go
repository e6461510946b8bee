package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
)

// DefaultMonitorRecord is the monitor list record requested when none is given.
const DefaultMonitorRecord = "current"

// field runs req through Get with the operation's policy and returns one
// payload field.
func (s *Service) field(ctx context.Context, req client.Request, name string) (json.RawMessage, error) {
	resp, err := s.GetOp(ctx, req)
	if err != nil {
		return nil, err
	}
	raw := resp.Field(name)
	if raw == nil {
		return nil, fmt.Errorf("%s response has no %q field", req.Op, name)
	}
	return raw, nil
}

func stateParam(state string) (string, error) {
	if !legiscan.ValidState(state) {
		return "", fmt.Errorf("unknown state %q", state)
	}
	return strings.ToUpper(state), nil
}

// SessionList returns the sessions of a state.
func (s *Service) SessionList(ctx context.Context, state string) (json.RawMessage, error) {
	st, err := stateParam(state)
	if err != nil {
		return nil, err
	}
	return s.field(ctx, client.NewRequest("getSessionList", "state", st), legiscan.FieldSessions)
}

// MasterList returns the bills of a session.
func (s *Service) MasterList(ctx context.Context, sessionID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getMasterList", "id", strconv.Itoa(sessionID)), legiscan.FieldMasterList)
}

// MasterListForState returns the bills of the state's current session.
func (s *Service) MasterListForState(ctx context.Context, state string) (json.RawMessage, error) {
	st, err := stateParam(state)
	if err != nil {
		return nil, err
	}
	return s.field(ctx, client.NewRequest("getMasterList", "state", st), legiscan.FieldMasterList)
}

// MasterListRaw returns the bill numbers and change hashes of a session.
func (s *Service) MasterListRaw(ctx context.Context, sessionID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getMasterListRaw", "id", strconv.Itoa(sessionID)), legiscan.FieldMasterList)
}

// MasterListRawForState is MasterListRaw for the state's current session.
func (s *Service) MasterListRawForState(ctx context.Context, state string) (json.RawMessage, error) {
	st, err := stateParam(state)
	if err != nil {
		return nil, err
	}
	return s.field(ctx, client.NewRequest("getMasterListRaw", "state", st), legiscan.FieldMasterList)
}

// Bill returns a bill.
func (s *Service) Bill(ctx context.Context, billID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getBill", "id", strconv.Itoa(billID)), legiscan.FieldBill)
}

// BillText returns a bill text document.
func (s *Service) BillText(ctx context.Context, docID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getBillText", "id", strconv.Itoa(docID)), legiscan.FieldBillText)
}

// Amendment returns an amendment document.
func (s *Service) Amendment(ctx context.Context, amendmentID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getAmendment", "id", strconv.Itoa(amendmentID)), legiscan.FieldAmendment)
}

// Supplement returns a supplement document.
func (s *Service) Supplement(ctx context.Context, supplementID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getSupplement", "id", strconv.Itoa(supplementID)), legiscan.FieldSupplement)
}

// RollCall returns a roll call vote.
func (s *Service) RollCall(ctx context.Context, rollCallID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getRollCall", "id", strconv.Itoa(rollCallID)), legiscan.FieldRollCall)
}

// Person returns a legislator.
func (s *Service) Person(ctx context.Context, peopleID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getPerson", "id", strconv.Itoa(peopleID)), legiscan.FieldPerson)
}

// SessionPeople returns the legislators active in a session.
func (s *Service) SessionPeople(ctx context.Context, sessionID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getSessionPeople", "id", strconv.Itoa(sessionID)), legiscan.FieldSessionPeople)
}

// SponsoredList returns the bills sponsored by a legislator.
func (s *Service) SponsoredList(ctx context.Context, peopleID int) (json.RawMessage, error) {
	return s.field(ctx, client.NewRequest("getSponsoredList", "id", strconv.Itoa(peopleID)), legiscan.FieldSponsoredBills)
}

// DatasetList returns the available datasets. state and year are optional
// filters; pass "" and 0 to list everything.
func (s *Service) DatasetList(ctx context.Context, state string, year int) ([]legiscan.DatasetSummary, error) {
	var kv []string
	if state != "" {
		st, err := stateParam(state)
		if err != nil {
			return nil, err
		}
		kv = append(kv, "state", st)
	}
	if year > 0 {
		kv = append(kv, "year", strconv.Itoa(year))
	}

	raw, err := s.field(ctx, client.NewRequest("getDatasetList", kv...), legiscan.FieldDatasetList)
	if err != nil {
		return nil, err
	}

	var list []legiscan.DatasetSummary
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode datasetlist: %w", err)
	}
	return list, nil
}

// MonitorList returns the bills on the account's monitor list. record
// defaults to "current".
func (s *Service) MonitorList(ctx context.Context, record string) (json.RawMessage, error) {
	if record == "" {
		record = DefaultMonitorRecord
	}
	return s.field(ctx, client.NewRequest("getMonitorList", "record", record), legiscan.FieldMonitorList)
}

// MonitorListRaw is the change-hash form of MonitorList.
func (s *Service) MonitorListRaw(ctx context.Context, record string) (json.RawMessage, error) {
	if record == "" {
		record = DefaultMonitorRecord
	}
	return s.field(ctx, client.NewRequest("getMonitorListRaw", "record", record), legiscan.FieldMonitorList)
}
