package expiration

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Table maps LegiScan operations to their expiration policy.
type Table map[string]Policy

// DefaultTable returns the policy for every cached LegiScan operation.
//
// Texts, amendments, supplements and roll calls never change once
// published. Lists follow the upstream publish cycle.
func DefaultTable() Table {
	return Table{
		"getSessionList":    Daily(),
		"getMasterList":     Hourly(),
		"getMasterListRaw":  Hourly(),
		"getBill":           Fixed(3 * time.Hour),
		"getBillText":       Never(),
		"getAmendment":      Never(),
		"getSupplement":     Never(),
		"getRollCall":       Never(),
		"getPerson":         Weekly(),
		"getSessionPeople":  Weekly(),
		"getSponsoredList":  Daily(),
		"getDatasetList":    Weekly(),
		"getDataset":        Weekly(),
		"getDatasetRaw":     Weekly(),
		"getMonitorList":    Hourly(),
		"getMonitorListRaw": Hourly(),
	}
}

// For returns the policy registered for op, or fallback if none is.
func (t Table) For(op string, fallback Policy) Policy {
	if p, ok := t[op]; ok {
		return p
	}
	return fallback
}

// Override returns a copy of t with the given operation policies replaced.
// Values are parsed with Parse.
func (t Table) Override(overrides map[string]string) (Table, error) {
	out := make(Table, len(t)+len(overrides))
	for op, p := range t {
		out[op] = p
	}

	ops := make([]string, 0, len(overrides))
	for op := range overrides {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		p, err := Parse(strings.TrimSpace(overrides[op]))
		if err != nil {
			return nil, fmt.Errorf("policy override for %s: %w", op, err)
		}
		out[strings.TrimSpace(op)] = p
	}
	return out, nil
}
