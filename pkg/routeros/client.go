// Package routeros is a thin client for the MikroTik RouterOS REST API.
// It speaks plain HTTP to the router: the target device keeps the
// management path on the LAN side and TLS would only burn memory there.
package routeros

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultTimeout bounds ordinary request/response calls.
	DefaultTimeout = 15 * time.Second

	// FireAndForgetTimeout is used for calls that only need to reach the
	// router; the response is discarded because the router keeps working
	// on the operation after the deadline. Such calls are never retried.
	FireAndForgetTimeout = 500 * time.Millisecond
)

// Config carries the router endpoint and credentials. When Token is set it
// is used as a bearer token and Username/Password are ignored for the call.
type Config struct {
	Address  string
	Username string
	Password string
	Token    string
}

// Client issues authenticated requests against the router's /rest surface.
// Config swaps can arrive from the settings handler while other handlers
// have calls in flight, so cfg is read and written under mu.
type Client struct {
	mu  sync.Mutex
	cfg Config

	http   *http.Client
	logger zerolog.Logger

	// onRequest, when set, observes every attempted call (metrics hook).
	onRequest func(method string, failed bool)
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger.With().Str("component", "routeros").Logger(),
	}
}

// SetConfig swaps the endpoint/credentials, e.g. after a settings update.
// Calls already in flight finish against the config they started with.
func (c *Client) SetConfig(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

func (c *Client) config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// OnRequest registers an observer invoked after every call attempt.
func (c *Client) OnRequest(fn func(method string, failed bool)) { c.onRequest = fn }

// APIError is the single error shape for transport-level failures. The
// router being unreachable and the call timing out are deliberately not
// distinguished; callers must not assume partial success either way.
type APIError struct {
	Code string
	Err  error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("routeros: %s: %v", e.Code, e.Err)
	}
	return "routeros: " + e.Code
}

func (e *APIError) Unwrap() error { return e.Err }

// ParseError reports malformed JSON from the router. Callers decide whether
// to propagate it or to degrade to an empty result set.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("routeros: malformed response from %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Do performs one call against the router and returns the raw response
// body. Any response the router produces, including HTTP error statuses, is
// returned as-is; only transport failures become errors. timeout <= 0 falls
// back to DefaultTimeout. A short timeout is honored exactly as given.
func (c *Client) Do(ctx context.Context, method, path string, body []byte, timeout time.Duration) ([]byte, error) {
	cfg := c.config()
	if cfg.Address == "" {
		return nil, &APIError{Code: "router_not_configured"}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := "http://" + strings.TrimSuffix(cfg.Address, "/") + "/rest" + path

	var rd io.Reader
	if len(body) > 0 {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		c.observe(method, true)
		return nil, &APIError{Code: "request_failed", Err: err}
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	} else {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("router call failed")
		c.observe(method, true)
		return nil, &APIError{Code: "request_failed", Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		c.observe(method, true)
		return nil, &APIError{Code: "request_failed", Err: err}
	}
	c.observe(method, false)
	return data, nil
}

// getList fetches path and decodes a JSON array into out.
func (c *Client) getList(ctx context.Context, path string, out any) error {
	data, err := c.Do(ctx, http.MethodGet, path, nil, 0)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Path: path, Err: err}
	}
	return nil
}

// MutationFailed reports whether a mutation response body carries a
// RouterOS error object.
func MutationFailed(body []byte) bool {
	var probe struct {
		Error   any `json:"error"`
		Message any `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Error != nil
}

func (c *Client) observe(method string, failed bool) {
	if c.onRequest != nil {
		c.onRequest(method, failed)
	}
}
