// Package backend is the REST client for the relay backend.
package backend

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

	"go.uber.org/zap"

	"github.com/DoyleJ11/relay-dashboard/internal/metrics"
	"github.com/DoyleJ11/relay-dashboard/internal/telemetry"
	"github.com/DoyleJ11/relay-dashboard/internal/types"
)

const (
	OpConfigure     = "configure"
	OpDisconnectAll = "disconnect_all"
	OpResetAll      = "reset_max_values"
	OpResetTag      = "reset_max_values_tag"
	OpStatus        = "status"
)

// maxErrorBody caps how much of an error response is kept as message text.
const maxErrorBody = 4 << 10

var ErrInvalidBaseURL = errors.New("invalid backend url")

// HTTPError is a non-2xx answer from the backend. Its message is the
// response body text, or a per-operation fallback when the body is empty.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	switch e.Op {
	case OpResetAll, OpResetTag:
		return "Ошибка сброса"
	case OpStatus:
		return "Не удалось получить статус"
	default:
		return "Ошибка сервера"
	}
}

type Client struct {
	root    *url.URL
	http    *http.Client
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client for baseURL (scheme and host) with every endpoint
// mounted under basePath, e.g. "/socket".
func New(baseURL, basePath string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidBaseURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidBaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Trim(basePath, "/")
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""

	c := &Client{
		root: u,
		http: &http.Client{Timeout: timeout},
		log:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(name string) string {
	u := *c.root
	u.Path = u.Path + "/" + name
	return u.String()
}

// LiveURL is the websocket endpoint of the push channel.
func (c *Client) LiveURL() string {
	u := *c.root
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws"
	return u.String()
}

func (c *Client) Configure(ctx context.Context, url1, url2 string) error {
	return c.post(ctx, OpConfigure, "set_wss_url", types.ConfigureRequest{URL: url1, URL2: url2})
}

func (c *Client) DisconnectAll(ctx context.Context) error {
	return c.post(ctx, OpDisconnectAll, "disconnect_all", nil)
}

func (c *Client) ResetMaxValues(ctx context.Context) error {
	return c.post(ctx, OpResetAll, "reset_max_values", nil)
}

// ResetMaxValuesTag clears one player's max values. Integer tags are sent as
// JSON numbers, anything else as a string.
func (c *Client) ResetMaxValuesTag(ctx context.Context, tag string) error {
	return c.post(ctx, OpResetTag, "reset_max_values_tag", types.ResetTagRequest{Tag: EncodeTag(tag)})
}

func EncodeTag(tag string) json.RawMessage {
	if _, err := strconv.ParseInt(tag, 10, 64); err == nil {
		return json.RawMessage(tag)
	}
	b, _ := json.Marshal(tag)
	return b
}

func (c *Client) Status(ctx context.Context) (telemetry.StatusReport, error) {
	var report telemetry.StatusReport
	started := time.Now()
	err := c.do(ctx, OpStatus, http.MethodGet, "status", nil, &report)
	c.metrics.ObserveREST(OpStatus, started, err)
	return report, err
}

func (c *Client) post(ctx context.Context, op, name string, body any) error {
	started := time.Now()
	err := c.do(ctx, op, http.MethodPost, name, body, nil)
	c.metrics.ObserveREST(op, started, err)
	return err
}

func (c *Client) do(ctx context.Context, op, method, name string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(name), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend request failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		herr := &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(text))}
		c.log.Warn("backend rejected request",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", herr.Body),
		)
		return herr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}
