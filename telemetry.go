package sdk

import (
	"context"
	"net/http"
	"time"
)

// TelemetryHooks lets hosts observe SDK activity without the SDK taking a
// logging or metrics dependency. Every field is optional; nil hooks cost one
// branch. Hooks run synchronously on the calling goroutine, so they must not
// block.
type TelemetryHooks struct {
	// OnHTTPRequest fires after the request is fully built (auth, trace and
	// correlation headers applied) and before it is sent. Fires once per
	// attempt when retries are enabled.
	OnHTTPRequest func(ctx context.Context, req *http.Request)
	// OnHTTPResponse fires when an attempt completes, even when err != nil.
	// resp is nil on transport errors.
	OnHTTPResponse func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration)
	// OnStreamEvent fires for every event decoded from a run stream.
	OnStreamEvent func(ctx context.Context, event RunStreamEvent)
	// OnLogEntry receives structured log records emitted by the SDK.
	OnLogEntry func(ctx context.Context, entry LogEntry)
	// OnMetric receives counters and latency gauges (sdk_http_request_latency_ms,
	// sdk_stream_events_total).
	OnMetric func(ctx context.Context, metric Metric)
}

// LogLevel encodes the severity of a LogEntry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
)

// LogEntry is one structured log record.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
}

// Metric is one observability datapoint.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
}

func (t TelemetryHooks) log(ctx context.Context, level LogLevel, msg string, fields map[string]any) {
	if t.OnLogEntry == nil {
		return
	}
	t.OnLogEntry(ctx, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (t TelemetryHooks) metric(ctx context.Context, name string, value float64, labels map[string]string) {
	if t.OnMetric == nil {
		return
	}
	t.OnMetric(ctx, Metric{Name: name, Value: value, Labels: labels})
}

func (t TelemetryHooks) streamEvent(ctx context.Context, event RunStreamEvent) {
	if t.OnStreamEvent != nil {
		t.OnStreamEvent(ctx, event)
	}
	t.metric(ctx, "sdk_stream_events_total", 1, map[string]string{"event": event.EventName()})
}
