// Package client provides the LegiScan HTTP transport with quota
// accounting and error classification. It does not cache and does not
// retry; caching lives in pkg/service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/Sternrassler/legiscan-client/pkg/logging"
	"github.com/Sternrassler/legiscan-client/pkg/quota"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the public LegiScan API endpoint.
const DefaultBaseURL = "https://api.legiscan.com/"

// Prometheus metrics for LegiScan client operations.
var (
	legiscanRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legiscan_requests_total",
		Help: "Total LegiScan requests by operation and status",
	}, []string{"op", "status"})

	legiscanRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legiscan_request_duration_seconds",
		Help:    "LegiScan request duration in seconds by operation",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"op"})

	legiscanErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "legiscan_errors_total",
		Help: "Total LegiScan errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// APIKey is the LegiScan API key (required)
	APIKey string

	// BaseURL of the API (default: DefaultBaseURL)
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per request. Dataset archives can be large.
	Timeout time.Duration

	// Quota accounts each upstream request against the monthly allowance.
	// Nil disables quota tracking.
	Quota *quota.Tracker
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:    apiKey,
		BaseURL:   DefaultBaseURL,
		UserAgent: "legiscan-client/1.0",
		Timeout:   60 * time.Second,
	}
}

// Client is the LegiScan transport.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// New creates a new LegiScan client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		config:     cfg,
		logger:     logging.NewLogger(logging.ComponentClient),
	}, nil
}

// URL returns the full request URL including the API key.
func (c *Client) URL(req Request) string {
	u := *c.baseURL
	values := req.Values()
	values.Set(cache.AuthParam, c.config.APIKey)
	u.RawQuery = values.Encode()
	return u.String()
}

// Fetch performs the request and decodes the LegiScan envelope. A response
// with status ERROR is returned as *APIError.
func (c *Client) Fetch(ctx context.Context, req Request) (*legiscan.Response, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp legiscan.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		legiscanErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		legiscanRequestsTotal.WithLabelValues(req.Op, "decode_error").Inc()
		return nil, fmt.Errorf("decode %s response: %w", req.Op, err)
	}
	if !resp.OK() {
		return nil, c.apiError(req, &resp)
	}

	legiscanRequestsTotal.WithLabelValues(req.Op, "ok").Inc()
	return &resp, nil
}

// FetchRaw performs the request and returns the body unchanged. It is used
// for operations that answer with binary content, such as getDatasetRaw.
// A JSON body carrying status ERROR is still reported as *APIError.
func (c *Client) FetchRaw(ctx context.Context, req Request) ([]byte, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '{' {
		var resp legiscan.Response
		if json.Unmarshal(trimmed, &resp) == nil && resp.Status == legiscan.StatusError {
			return nil, c.apiError(req, &resp)
		}
	}

	legiscanRequestsTotal.WithLabelValues(req.Op, "ok").Inc()
	return body, nil
}

func (c *Client) apiError(req Request, resp *legiscan.Response) error {
	legiscanErrorsTotal.WithLabelValues(string(ErrorClassAPI)).Inc()
	legiscanRequestsTotal.WithLabelValues(req.Op, "api_error").Inc()

	apiErr := &APIError{Op: req.Op}
	if resp.Alert != nil {
		apiErr.Message = resp.Alert.Message
	}
	c.logger.Warn().
		Str("op", req.Op).
		Str("alert", apiErr.Message).
		Msg("LegiScan returned an error status")
	return apiErr
}

// do executes one HTTP round trip and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req Request) ([]byte, error) {
	if req.Op == "" {
		return nil, ErrMissingOp
	}

	if c.config.Quota != nil {
		if err := c.config.Quota.Acquire(ctx); err != nil {
			if errors.Is(err, quota.ErrQuotaExhausted) {
				legiscanRequestsTotal.WithLabelValues(req.Op, "quota_blocked").Inc()
			}
			return nil, fmt.Errorf("%s: %w", req.Op, err)
		}
	}

	startTime := time.Now()
	defer func() {
		legiscanRequestDuration.WithLabelValues(req.Op).Observe(time.Since(startTime).Seconds())
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(req), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.config.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().Str("op", req.Op).Msg("Executing LegiScan request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		legiscanErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		legiscanRequestsTotal.WithLabelValues(req.Op, "network_error").Inc()
		c.logger.Error().Err(err).Str("op", req.Op).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s request: %w", req.Op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		legiscanErrorsTotal.WithLabelValues(string(class)).Inc()
		legiscanRequestsTotal.WithLabelValues(req.Op, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("op", req.Op).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("LegiScan request error")
		return nil, &HTTPError{
			Op:         req.Op,
			StatusCode: resp.StatusCode,
			Status:     strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		}
	}
	if err != nil {
		legiscanErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		legiscanRequestsTotal.WithLabelValues(req.Op, "network_error").Inc()
		return nil, fmt.Errorf("read %s response: %w", req.Op, err)
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
