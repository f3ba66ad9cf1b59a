package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.threadline.dev/v1"
const defaultUserAgent = "threadline-sdk/" + Version

// Config wires authentication, base URL, and telemetry for the API client.
type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	HTTPClient  *http.Client
	Telemetry   TelemetryHooks
	UserAgent   string
	// Retry overrides the default retry policy for every request.
	// Individual calls can override it again via WithRetry/DisableRetry.
	Retry *RetryConfig
}

// Client provides high-level helpers for interacting with the Threadline API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	auth       authChain
	telemetry  TelemetryHooks
	userAgent  string
	retryCfg   RetryConfig

	// Grouped service clients.
	Assistants *AssistantsClient
	Threads    *ThreadsClient
	Messages   *MessagesClient
	Runs       *RunsClient
}

// NewClient validates the configuration and returns a ready-to-use Client.
func NewClient(cfg Config) (*Client, error) {
	auth := buildAuthChain(cfg)
	if len(auth) == 0 {
		return nil, errors.New("sdk: api key or access token required")
	}
	rawBaseURL := cfg.BaseURL
	if rawBaseURL == "" {
		rawBaseURL = defaultBaseURL
	}
	baseURL, err := normalizeBaseURL(rawBaseURL)
	if err != nil {
		return nil, err
	}
	retryCfg := defaultRetryConfig()
	if cfg.Retry != nil {
		retryCfg = cfg.Retry.normalized()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	client := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		auth:       auth,
		telemetry:  cfg.Telemetry,
		userAgent:  userAgent,
		retryCfg:   retryCfg,
	}
	client.Assistants = &AssistantsClient{client: client}
	client.Threads = &ThreadsClient{client: client}
	client.Messages = &MessagesClient{client: client}
	client.Runs = &RunsClient{client: client}
	return client, nil
}

// ClientOption customizes a client built with NewClientWithKey.
type ClientOption func(*Config)

// WithBaseURL points the client at a non-default API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(cfg *Config) { cfg.BaseURL = baseURL }
}

// WithHTTPClient supplies a custom HTTP client (timeouts, transports, proxies).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(cfg *Config) { cfg.HTTPClient = httpClient }
}

// WithTelemetry attaches observability hooks to the client.
func WithTelemetry(hooks TelemetryHooks) ClientOption {
	return func(cfg *Config) { cfg.Telemetry = hooks }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cfg *Config) { cfg.UserAgent = ua }
}

// WithRetryConfig sets the default retry policy for every request.
func WithRetryConfig(retry RetryConfig) ClientOption {
	return func(cfg *Config) { cfg.Retry = &retry }
}

// NewClientWithKey builds a client authenticated with a parsed secret key.
//
// Example:
//
//	key, err := sdk.ParseSecretKey(os.Getenv("THREADLINE_API_KEY"))
//	if err != nil { /* handle */ }
//	client, err := sdk.NewClientWithKey(key)
func NewClientWithKey(key SecretKey, opts ...ClientOption) (*Client, error) {
	cfg := Config{APIKey: key.String()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return NewClient(cfg)
}

// normalizeBaseURL strips trailing slashes so path joins stay predictable.
func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("sdk: base URL required")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("sdk: invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("sdk: base URL %q needs a scheme and host", trimmed)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return strings.TrimSuffix(u.String(), "/"), nil
}

func buildAuthChain(cfg Config) authChain {
	var chain authChain
	if token := strings.TrimSpace(cfg.AccessToken); token != "" {
		// Tolerate a pasted "Bearer xyz" value without doubling the scheme.
		if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		chain = append(chain, bearerAuth(token))
	}
	if cfg.APIKey != "" {
		chain = append(chain, apiKeyAuth(cfg.APIKey))
	}
	return chain
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	injectTraceparent(ctx, req)
	return req, nil
}

func (c *Client) prepare(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.auth.Apply(req)
}

// send performs the request with retries and returns the raw response.
//
// Responses with status >= 400 are returned without error so callers can
// decode the error envelope themselves (see decodeAPIError). A nil timeout
// uses the request's own context deadline; a nil retry uses the client
// default policy.
func (c *Client) send(req *http.Request, timeout *time.Duration, retry *RetryConfig) (*http.Response, RetryMetadata, error) {
	cfg := c.retryCfg
	if retry != nil {
		cfg = retry.normalized()
	}
	meta := RetryMetadata{MaxAttempts: cfg.MaxAttempts}

	baseCtx := req.Context()
	cancel := context.CancelFunc(func() {})
	if timeout != nil && *timeout > 0 {
		baseCtx, cancel = context.WithTimeout(baseCtx, *timeout)
		req = req.WithContext(baseCtx)
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if delay := cfg.backoffDelay(attempt); delay > 0 {
			meta.LastBackoff = delay
			select {
			case <-baseCtx.Done():
				cancel()
				return nil, meta, baseCtx.Err()
			case <-time.After(delay):
			}
		}

		attemptReq, err := cloneForAttempt(req, attempt)
		if err != nil {
			cancel()
			return nil, meta, err
		}

		meta.Attempts = attempt
		c.prepare(attemptReq)
		if c.telemetry.OnHTTPRequest != nil {
			c.telemetry.OnHTTPRequest(baseCtx, attemptReq)
		}
		c.telemetry.log(baseCtx, LogLevelInfo, "http_request", map[string]any{
			"method":  attemptReq.Method,
			"url":     attemptReq.URL.String(),
			"attempt": attempt,
		})
		start := time.Now()
		resp, err := c.httpClient.Do(attemptReq)
		if c.telemetry.OnHTTPResponse != nil {
			c.telemetry.OnHTTPResponse(baseCtx, attemptReq, resp, err, time.Since(start))
		}
		c.telemetry.metric(baseCtx, "sdk_http_request_latency_ms", float64(time.Since(start).Milliseconds()), map[string]string{
			"path": attemptReq.URL.Path,
		})
		if err != nil {
			lastErr = err
			meta.LastError = err.Error()
			if baseCtx.Err() != nil || !cfg.retryableMethod(req.Method) || attempt == cfg.MaxAttempts {
				cancel()
				return nil, meta, err
			}
			continue
		}
		meta.LastStatus = resp.StatusCode
		if retryableStatus(resp.StatusCode) && cfg.retryableMethod(req.Method) && attempt < cfg.MaxAttempts {
			drainAndClose(resp.Body)
			continue
		}
		resp.Body = cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
		return resp, meta, nil
	}
	cancel()
	if lastErr == nil {
		lastErr = errors.New("sdk: retries exhausted without a response")
	}
	return nil, meta, lastErr
}

// sendAndDecode issues a JSON request and decodes the response body into out.
// A nil out discards the body (used for DELETE-style endpoints).
func (c *Client) sendAndDecode(ctx context.Context, method, path string, payload, out any, opts callOptions) error {
	req, err := c.newJSONRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	applyCallHeaders(req, opts)
	resp, _, err := c.send(req, opts.timeout, opts.retry)
	if err != nil {
		return err
	}
	//nolint:errcheck // best-effort cleanup on return
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		drainBody(resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// sendStreaming is like send but never applies an overall timeout; streaming
// callers guard liveness with StreamTimeouts instead.
func (c *Client) sendStreaming(req *http.Request, retry *RetryConfig) (*http.Response, RetryMetadata, error) {
	return c.send(req, nil, retry)
}

func (c *Client) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// cloneForAttempt rewinds the request body for retries. Bodies built by
// newJSONRequest always carry GetBody, so JSON requests rewind for free.
func cloneForAttempt(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	if req.Body != nil && req.GetBody == nil {
		return nil, errors.New("sdk: request body cannot be replayed for retry")
	}
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}

func drainAndClose(body io.ReadCloser) {
	drainBody(body)
	//nolint:errcheck // best-effort cleanup between attempts
	_ = body.Close()
}

func drainBody(body io.Reader) {
	//nolint:errcheck // best-effort drain keeps connections reusable
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 1<<20))
}

// cancelReadCloser ties a per-call timeout's cancel func to the response body
// so the timer is released once the caller finishes reading.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}
