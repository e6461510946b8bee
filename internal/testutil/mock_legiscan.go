// Package testutil provides testing utilities for the LegiScan client.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock LegiScan operation.
type MockResponse struct {
	StatusCode  int
	Body        []byte
	ContentType string
	Delay       time.Duration
}

// MockLegiScan is a configurable mock LegiScan API server. Handlers are
// registered per operation (the op query parameter).
type MockLegiScan struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount int
	opCounts     map[string]int
	lastQuery    url.Values
}

// NewMockLegiScan creates a new mock LegiScan server.
func NewMockLegiScan() *MockLegiScan {
	mock := &MockLegiScan{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		opCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		op := query.Get("op")

		mock.mu.Lock()
		mock.requestCount++
		mock.opCounts[op]++
		mock.lastQuery = query
		handler, exists := mock.handlers[op]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		writeResponse(w, NewErrorResponse(fmt.Sprintf("Unknown operation: %s", op)))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockLegiScan) URL() string {
	return m.server.URL + "/"
}

// Close shuts down the mock server.
func (m *MockLegiScan) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockLegiScan) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.opCounts = make(map[string]int)
	m.lastQuery = nil
}

// SetHandler sets a custom handler for an operation.
func (m *MockLegiScan) SetHandler(op string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[op] = handler
}

// SetResponse configures a fixed response for an operation.
func (m *MockLegiScan) SetResponse(op string, resp MockResponse) {
	m.SetHandler(op, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockLegiScan) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetOpCount returns the number of requests made for one operation.
func (m *MockLegiScan) GetOpCount(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opCounts[op]
}

// LastQuery returns the query parameters of the most recent request.
func (m *MockLegiScan) LastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastQuery
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}

// NewOKResponse creates a status OK envelope carrying one payload field.
func NewOKResponse(field, payload string) MockResponse {
	return MockResponse{
		StatusCode:  http.StatusOK,
		Body:        []byte(fmt.Sprintf(`{"status":"OK",%q:%s}`, field, payload)),
		ContentType: "application/json",
	}
}

// NewErrorResponse creates a status ERROR envelope, which LegiScan sends
// with HTTP 200.
func NewErrorResponse(message string) MockResponse {
	return MockResponse{
		StatusCode:  http.StatusOK,
		Body:        []byte(fmt.Sprintf(`{"status":"ERROR","alert":{"message":%q}}`, message)),
		ContentType: "application/json",
	}
}

// NewRawResponse creates a binary response such as a getDatasetRaw archive.
func NewRawResponse(data []byte) MockResponse {
	return MockResponse{
		StatusCode:  http.StatusOK,
		Body:        data,
		ContentType: "application/zip",
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode:  http.StatusInternalServerError,
		Body:        []byte("internal server error"),
		ContentType: "text/plain",
	}
}

// BuildZip packs the given files into an in-memory zip archive.
func BuildZip(files map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
