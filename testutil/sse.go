// Package testutil provides helpers for SDK tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"time"
)

// SSEStep describes one server-sent event to emit with an optional delay.
// Empty Event or Data fields suppress the corresponding line.
type SSEStep struct {
	Delay time.Duration
	Event string
	Data  string
}

// SSEServerConfig configures the SSE test server.
type SSEServerConfig struct {
	Status      int
	ContentType string
	Headers     map[string]string
	FinalDelay  time.Duration
}

// NewSSEServer returns an httptest server that streams server-sent events with delays.
func NewSSEServer(steps []SSEStep, cfg SSEServerConfig) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := cfg.Status
		if status == 0 {
			status = http.StatusOK
		}
		contentType := cfg.ContentType
		if contentType == "" {
			contentType = "text/event-stream"
		}
		w.Header().Set("Content-Type", contentType)
		for k, v := range cfg.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(status)
		flusher, _ := w.(http.Flusher)
		// Commit the response headers before replaying steps so clients
		// observe the stream as open while step delays elapse.
		if flusher != nil {
			flusher.Flush()
		}
		for _, step := range steps {
			if step.Delay > 0 {
				time.Sleep(step.Delay)
			}
			if step.Event != "" {
				_, _ = w.Write([]byte("event: " + step.Event + "\n"))
			}
			if step.Data != "" {
				_, _ = w.Write([]byte("data: " + step.Data + "\n"))
			}
			_, _ = w.Write([]byte("\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
		if cfg.FinalDelay > 0 {
			time.Sleep(cfg.FinalDelay)
		}
	}))
}
