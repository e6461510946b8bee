// Package legiscan holds the LegiScan response envelope and the few
// response shapes the cache itself needs to read.
package legiscan

import (
	"encoding/json"
	"fmt"
)

// Response statuses returned by LegiScan.
const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Alert is the error detail LegiScan attaches to failed calls.
type Alert struct {
	Message string `json:"message"`
}

// Response is a LegiScan API response envelope.
//
// Every operation answers {"status": "...", "<field>": {...}}. The payload
// fields are kept raw; mapping them onto typed objects is left to callers.
type Response struct {
	Status string
	Alert  *Alert
	Fields map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Status = ""
	r.Alert = nil
	if s, ok := raw["status"]; ok {
		if err := json.Unmarshal(s, &r.Status); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		delete(raw, "status")
	}
	if a, ok := raw["alert"]; ok {
		r.Alert = &Alert{}
		if err := json.Unmarshal(a, r.Alert); err != nil {
			return fmt.Errorf("decode alert: %w", err)
		}
		delete(raw, "alert")
	}

	r.Fields = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Response) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["status"] = r.Status
	if r.Alert != nil {
		out["alert"] = r.Alert
	}
	return json.Marshal(out)
}

// OK reports whether the call succeeded.
func (r *Response) OK() bool {
	return r.Status == StatusOK
}

// Field returns the raw payload field, or nil if absent.
func (r *Response) Field(name string) json.RawMessage {
	return r.Fields[name]
}

// Decode unmarshals the named payload field into v.
func (r *Response) Decode(name string, v any) error {
	raw, ok := r.Fields[name]
	if !ok {
		return fmt.Errorf("response has no %q field", name)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// NewResponse builds a successful response carrying one payload field.
func NewResponse(field string, payload json.RawMessage) *Response {
	return &Response{
		Status: StatusOK,
		Fields: map[string]json.RawMessage{field: payload},
	}
}
