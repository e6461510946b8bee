package legiscan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MasterListBill is one bill of a getMasterList or getMasterListRaw payload.
type MasterListBill struct {
	BillID     int    `json:"bill_id"`
	Number     string `json:"number"`
	ChangeHash string `json:"change_hash"`
	Title      string `json:"title,omitempty"`
	LastAction string `json:"last_action,omitempty"`
}

// ParseMasterList decodes a master list payload. LegiScan sends the bills
// as an object keyed "0", "1", ... next to a "session" object; the bills are
// returned in key order.
func ParseMasterList(raw json.RawMessage) ([]MasterListBill, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode masterlist: %w", err)
	}

	type indexed struct {
		idx  int
		bill MasterListBill
	}
	bills := make([]indexed, 0, len(fields))
	for name, value := range fields {
		idx, err := strconv.Atoi(name)
		if err != nil {
			continue // "session"
		}
		var b MasterListBill
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, fmt.Errorf("decode masterlist entry %s: %w", name, err)
		}
		bills = append(bills, indexed{idx: idx, bill: b})
	}

	sort.Slice(bills, func(i, j int) bool { return bills[i].idx < bills[j].idx })

	out := make([]MasterListBill, len(bills))
	for i, b := range bills {
		out[i] = b.bill
	}
	return out, nil
}
