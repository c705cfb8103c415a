// Package fxrate provides a client for the exchangerate.host latest-rates API
package fxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/time/rate"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://api.exchangerate.host"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 5 // requests per second

	// DefaultRatePath locates the rate in an exchangerate.host style response.
	// {TO} is replaced by the target currency code.
	DefaultRatePath = "$.rates.{TO}"
)

// Client implements the FXClient interface
type Client struct {
	baseURL    string
	apiKey     string
	ratePath   string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

var _ interfaces.FXClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithAPIKey sets the access key sent as the access_key parameter
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithRatePath sets the JSONPath expression that selects the rate in the
// provider response, for providers that nest rates differently.
func WithRatePath(path string) ClientOption {
	return func(c *Client) {
		if strings.TrimSpace(path) != "" {
			c.ratePath = path
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new FX rate client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		ratePath: DefaultRatePath,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("FX API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (e *APIError) Unwrap() error { return common.ErrUpstream }

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if c.apiKey != "" {
		params.Set("access_key", c.apiKey)
	}
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", path).Str("base", params.Get("base")).Str("symbols", params.Get("symbols")).Msg("FX API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fx request: %v", common.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: failed to decode fx response: %v", common.ErrUpstream, err)
	}

	return nil
}

// GetRate returns the number of units of to bought by one unit of from.
// A missing, non-numeric or non-positive rate yields ErrRateUnavailable.
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	params := url.Values{}
	params.Set("base", from)
	params.Set("symbols", to)

	var jobj interface{}
	if err := c.get(ctx, "/latest", params, &jobj); err != nil {
		return 0, err
	}

	path := strings.ReplaceAll(c.ratePath, "{TO}", to)
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		c.logger.Debug().Str("path", path).Err(err).Msg("FX rate path not found")
		return 0, fmt.Errorf("%w: FX rate not available %s->%s", common.ErrRateUnavailable, from, to)
	}
	// wildcard paths return a list; keep the first match
	if jlist, ok := jval.([]interface{}); ok && len(jlist) > 0 {
		jval = jlist[0]
	}

	r, ok := jval.(float64)
	if !ok || r <= 0 {
		return 0, fmt.Errorf("%w: FX rate not available %s->%s", common.ErrRateUnavailable, from, to)
	}
	return r, nil
}
