// Package api implements the authenticated REST client used by every resource
// service.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/slok/sprites/internal/log"
	"github.com/slok/sprites/internal/metrics"
	"github.com/slok/sprites/internal/model"
)

// DefaultBaseURL is the production API URL.
const DefaultBaseURL = "https://api.sprites.dev"

const requestIDHeader = "x-request-id"

// ClientConfig is the configuration of the Client.
type ClientConfig struct {
	BaseURL string
	Token   string
	// RateLimit is the maximum requests per second, 0 means unlimited.
	RateLimit float64
	// Timeout is the timeout for each request, 0 means no timeout. Streamed
	// operations can take long, so no default is set.
	Timeout time.Duration
	// HTTPClient is the underlying HTTP client (optional).
	HTTPClient      *http.Client
	MetricsRecorder metrics.Recorder
	Logger          log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL host is required")
	}

	if c.Token == "" {
		return fmt.Errorf("token is required")
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit can't be negative")
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}

	if c.MetricsRecorder == nil {
		c.MetricsRecorder = metrics.Noop
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.Client"})

	return nil
}

// Client is the Sprites API REST client.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	baseURL string
	token   string
	metrics metrics.Recorder
	logger  log.Logger
}

// NewClient returns a new API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	err := cfg.defaults()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w: %w", err, model.ErrNotValid)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	r := resty.NewWithClient(cfg.HTTPClient).
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.Token).
		SetTimeout(cfg.Timeout).
		SetLogger(restyLogger{logger: cfg.Logger})

	return &Client{
		resty:   r,
		limiter: limiter,
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		metrics: cfg.MetricsRecorder,
		logger:  cfg.Logger,
	}, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// WebsocketURL returns the base URL with the WebSocket scheme (http->ws, https->wss).
func (c *Client) WebsocketURL() string {
	switch {
	case strings.HasPrefix(c.baseURL, "https"):
		return "wss" + strings.TrimPrefix(c.baseURL, "https")
	case strings.HasPrefix(c.baseURL, "http"):
		return "ws" + strings.TrimPrefix(c.baseURL, "http")
	default:
		return c.baseURL
	}
}

// AuthHeaders returns the headers that authenticate a WebSocket connection.
func (c *Client) AuthHeaders() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	return h
}

// Get gets the resource on path and decodes its JSON into out (optional).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, query, nil, out)
}

// Post posts body as JSON and decodes the JSON response into out (optional).
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, path, nil, body, out)
}

// Put puts body as JSON and decodes the JSON response into out (optional).
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, path, nil, body, out)
}

// Delete deletes the resource on path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	// No content.
	if resp.StatusCode() == http.StatusNoContent || len(resp.Body()) == 0 || out == nil {
		return nil
	}

	err = json.Unmarshal(resp.Body(), out)
	if err != nil {
		return fmt.Errorf("could not decode %s %s response: %w", method, path, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*resty.Response, error) {
	err := c.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	reqID := ulid.Make().String()
	logger := c.logger.WithValues(log.Kv{"req_id": reqID, "method": method, "path": path})

	req := c.resty.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, reqID)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.metrics.ObserveAPIRequest(ctx, method, path, 0, time.Since(start))
		return nil, fmt.Errorf("could not execute %s %s request: %w", method, path, err)
	}
	c.metrics.ObserveAPIRequest(ctx, method, path, resp.StatusCode(), time.Since(start))
	logger.Debugf("request finished with status %d in %s", resp.StatusCode(), resp.Time())

	if !resp.IsSuccess() {
		return nil, NewAPIError(resp.StatusCode(), resp.Body())
	}

	return resp, nil
}

type restyLogger struct {
	logger log.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.logger.Errorf(format, v...) }
func (r restyLogger) Warnf(format string, v ...any)  { r.logger.Warningf(format, v...) }
func (r restyLogger) Debugf(format string, v ...any) { r.logger.Debugf(format, v...) }
