package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrMissingOp is returned for a request without an operation.
	ErrMissingOp = errors.New("request has no op")
)

// ErrorClass represents a classification of upstream failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassAPI represents a 200 response with status ERROR.
	ErrorClassAPI ErrorClass = "api"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a body that is not a LegiScan envelope.
	ErrorClassDecode ErrorClass = "decode"
)

// classifyStatus maps a non-2xx HTTP status onto an error class.
func classifyStatus(code int) ErrorClass {
	if code >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// HTTPError is returned when LegiScan answers with a non-2xx status.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Err        error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("legiscan %s: http %d (%s): %v", e.Op, e.StatusCode, e.Status, e.Err)
	}
	return fmt.Sprintf("legiscan %s: http %d (%s)", e.Op, e.StatusCode, e.Status)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Class returns the error classification.
func (e *HTTPError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// APIError is returned when LegiScan answers with status ERROR. Message is
// the alert text LegiScan sent along.
type APIError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("legiscan %s: status ERROR", e.Op)
	}
	return fmt.Sprintf("legiscan %s: %s", e.Op, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
