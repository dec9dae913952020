// Package client talks to the Study Buddy backend over its HTTP contract.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

const (
	// DefaultBaseURL is the backend API root used when none is configured.
	DefaultBaseURL = "http://localhost:8000/api"

	// DefaultTimeout bounds every non-streaming request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxUploadBytes is the largest PDF the backend accepts.
	DefaultMaxUploadBytes int64 = 10 << 20

	healthTimeout = 3 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, including the /api prefix.
	BaseURL string

	// Token returns the bearer token to send. It is consulted on every request
	// so a sign in or sign out takes effect immediately.
	Token func() string

	// OnUnauthorized runs whenever the backend answers 401.
	OnUnauthorized func()

	// Timeout bounds non-streaming requests. Chat streams and downloads are
	// bounded by their context only.
	Timeout time.Duration

	// MaxUploadBytes is the largest file UploadDocument accepts.
	MaxUploadBytes int64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	root *url.URL

	token          func() string
	onUnauthorized func()
	timeout        time.Duration
	maxUpload      int64

	http   *http.Client
	logger *slog.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}

	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", raw, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be http or https", raw)
	}

	root := *base
	root.Path = strings.TrimSuffix(base.Path, "/api")
	if root.Path == "" {
		root.Path = "/"
	}

	c := &Client{
		base:           base,
		root:           &root,
		token:          cfg.Token,
		onUnauthorized: cfg.OnUnauthorized,
		timeout:        cfg.Timeout,
		maxUpload:      cfg.MaxUploadBytes,
		http:           cfg.HTTPClient,
		logger:         cfg.Logger,
	}

	if c.token == nil {
		c.token = func() string { return "" }
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxUpload <= 0 {
		c.maxUpload = DefaultMaxUploadBytes
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}

	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

func (c *Client) endpoint(segments ...string) string {
	return c.base.JoinPath(segments...).String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("ngrok-skip-browser-warning", "true")
	req.Header.Set("User-Agent", utils.UserAgent())

	return req, nil
}

// send performs req and returns the response when the status is 2xx. Any
// other status is drained into an *APIError.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	c.logger.Debug("backend request", "method", req.Method, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := newAPIError(resp.StatusCode, body)

	c.logger.Debug("backend error",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"detail", apiErr.Detail,
	)

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	return nil, apiErr
}

// doJSON sends in (if non-nil) as JSON and decodes the response into out
// (if non-nil), bounded by the client timeout.
func (c *Client) doJSON(ctx context.Context, method, target string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, target, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	return decodeBody(resp, out)
}

func decodeBody(resp *http.Response, out any) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", resp.Request.URL.Path, err)
	}
	return nil
}
