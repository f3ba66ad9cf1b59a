package sdk

import (
	"net/http"
	"strings"
	"time"

	"github.com/threadline/threadline/sdk/go/headers"
)

// CallOption customizes a single API call (headers, timeout, retry policy).
type CallOption func(*callOptions)

type callOptions struct {
	headers        http.Header
	timeout        *time.Duration
	retry          *RetryConfig
	streamTimeouts *StreamTimeouts
}

// WithRequestID sets the X-Threadline-Request-Id header for the request.
// Reusing the same id across retries of one logical call makes it idempotent.
func WithRequestID(requestID string) CallOption {
	return func(opts *callOptions) {
		clean := strings.TrimSpace(requestID)
		if clean == "" {
			return
		}
		if opts.headers == nil {
			opts.headers = make(http.Header)
		}
		opts.headers.Set(headers.RequestID, clean)
	}
}

// WithHeader attaches an arbitrary header to the underlying HTTP request.
func WithHeader(key, value string) CallOption {
	return func(opts *callOptions) {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return
		}
		if opts.headers == nil {
			opts.headers = make(http.Header)
		}
		opts.headers.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
}

// WithHeaders attaches multiple headers to the underlying HTTP request.
func WithHeaders(hdrs map[string]string) CallOption {
	return func(opts *callOptions) {
		if len(hdrs) == 0 {
			return
		}
		if opts.headers == nil {
			opts.headers = make(http.Header)
		}
		for key, value := range hdrs {
			k := strings.TrimSpace(key)
			v := strings.TrimSpace(value)
			if k == "" || v == "" {
				continue
			}
			opts.headers.Add(k, v)
		}
	}
}

// WithTimeout overrides the request timeout for this call (0 disables timeout).
func WithTimeout(timeout time.Duration) CallOption {
	return func(opts *callOptions) {
		opts.timeout = &timeout
	}
}

// WithRetry overrides the retry policy for this call.
func WithRetry(cfg RetryConfig) CallOption {
	return func(opts *callOptions) {
		copy := cfg
		if copy.BaseBackoff == 0 {
			copy.BaseBackoff = defaultRetryConfig().BaseBackoff
		}
		if copy.MaxBackoff == 0 {
			copy.MaxBackoff = defaultRetryConfig().MaxBackoff
		}
		opts.retry = &copy
	}
}

// DisableRetry forces a single attempt for this call.
func DisableRetry() CallOption {
	return func(opts *callOptions) {
		cfg := RetryConfig{MaxAttempts: 1, BaseBackoff: 0, MaxBackoff: 0, RetryPost: false}
		opts.retry = &cfg
	}
}

// WithStreamTimeouts guards a streaming call with TTFT/idle/total timeouts.
// Non-streaming calls ignore this option.
func WithStreamTimeouts(timeouts StreamTimeouts) CallOption {
	return func(opts *callOptions) {
		opts.streamTimeouts = &timeouts
	}
}

func buildCallOptions(options []CallOption) callOptions {
	if len(options) == 0 {
		return callOptions{}
	}
	cfg := callOptions{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	cfg.headers = sanitizeHeaders(cfg.headers)
	return cfg
}

func applyCallHeaders(req *http.Request, opts callOptions) {
	for key, values := range opts.headers {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
}

func sanitizeHeaders(hdrs http.Header) http.Header {
	if len(hdrs) == 0 {
		return nil
	}
	out := make(http.Header, len(hdrs))
	for key, values := range hdrs {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		for _, value := range values {
			v := strings.TrimSpace(value)
			if v == "" {
				continue
			}
			out.Add(k, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
