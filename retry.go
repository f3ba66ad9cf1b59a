package sdk

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	defaultRetryAttempts    = 3
	defaultRetryBaseBackoff = 300 * time.Millisecond
	defaultRetryMaxBackoff  = 5 * time.Second
)

// RetryConfig controls how transient failures are retried. The zero value
// means "use the client default"; DisableRetry turns retries off per call.
type RetryConfig struct {
	// MaxAttempts counts the first try plus retries. Values below 1 are
	// normalized to 1.
	MaxAttempts int
	// BaseBackoff seeds the exponential delay: attempt n waits
	// BaseBackoff * 2^(n-2), jittered 0.5x-1.5x, capped at MaxBackoff.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// RetryPost opts POST requests into retries. Off by default because run
	// and message creation are not idempotent unless the caller pins a
	// request id (WithRequestID).
	RetryPost bool
}

// RetryMetadata describes what the retry loop actually did for one logical
// call. Surfaced through telemetry log fields.
type RetryMetadata struct {
	Attempts    int
	MaxAttempts int
	LastBackoff time.Duration
	LastStatus  int
	LastError   string
}

func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: defaultRetryAttempts,
		BaseBackoff: defaultRetryBaseBackoff,
		MaxBackoff:  defaultRetryMaxBackoff,
	}
}

func (r RetryConfig) normalized() RetryConfig {
	cfg := r
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = defaultRetryBaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultRetryMaxBackoff
	}
	return cfg
}

// backoffDelay returns the sleep before the given 1-based attempt. The first
// attempt never waits.
func (r RetryConfig) backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	delay := float64(r.BaseBackoff) * math.Pow(2, float64(attempt-2))
	ceiling := float64(r.MaxBackoff)
	if delay > ceiling {
		delay = ceiling
	}
	// jitter 0.5x..1.5x
	jittered := time.Duration(delay * (0.5 + rand.Float64()))
	if jittered > r.MaxBackoff {
		jittered = r.MaxBackoff
	}
	return jittered
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// retryableMethod reports whether the HTTP method may be retried under cfg.
func (r RetryConfig) retryableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	case http.MethodPost:
		return r.RetryPost
	default:
		return false
	}
}
