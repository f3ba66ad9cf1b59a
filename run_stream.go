package sdk

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/threadline/threadline/sdk/go/assistant"
	"github.com/threadline/threadline/sdk/go/headers"
	"github.com/threadline/threadline/sdk/go/routes"
)

// Server-sent event names emitted on a run stream, in the order they can
// appear. Every run event carries a Run snapshot, step events a RunStep,
// message events a ThreadMessage or MessageDelta.
const (
	StreamEventThreadCreated     = "thread.created"
	StreamEventRunCreated        = "thread.run.created"
	StreamEventRunQueued         = "thread.run.queued"
	StreamEventRunInProgress     = "thread.run.in_progress"
	StreamEventRunRequiresAction = "thread.run.requires_action"
	StreamEventRunCompleted      = "thread.run.completed"
	StreamEventRunIncomplete     = "thread.run.incomplete"
	StreamEventRunFailed         = "thread.run.failed"
	StreamEventRunCancelling     = "thread.run.cancelling"
	StreamEventRunCancelled      = "thread.run.cancelled"
	StreamEventRunExpired        = "thread.run.expired"
	StreamEventStepCreated       = "thread.run.step.created"
	StreamEventStepInProgress    = "thread.run.step.in_progress"
	StreamEventStepDelta         = "thread.run.step.delta"
	StreamEventStepCompleted     = "thread.run.step.completed"
	StreamEventStepFailed        = "thread.run.step.failed"
	StreamEventStepCancelled     = "thread.run.step.cancelled"
	StreamEventStepExpired       = "thread.run.step.expired"
	StreamEventMessageCreated    = "thread.message.created"
	StreamEventMessageInProgress = "thread.message.in_progress"
	StreamEventMessageDelta      = "thread.message.delta"
	StreamEventMessageCompleted  = "thread.message.completed"
	StreamEventMessageIncomplete = "thread.message.incomplete"
	StreamEventError             = "error"
	StreamEventDone              = "done"
)

// RunStreamEventKind groups stream event names into coarse families so
// consumers can switch without enumerating every name.
type RunStreamEventKind string

const (
	RunStreamEventKindThread  RunStreamEventKind = "thread"
	RunStreamEventKindRun     RunStreamEventKind = "run"
	RunStreamEventKindStep    RunStreamEventKind = "step"
	RunStreamEventKindMessage RunStreamEventKind = "message"
	RunStreamEventKindError   RunStreamEventKind = "error"
	RunStreamEventKindOther   RunStreamEventKind = "other"
)

func classifyStreamEvent(name string) RunStreamEventKind {
	switch {
	case name == StreamEventError:
		return RunStreamEventKindError
	case strings.HasPrefix(name, "thread.run.step"):
		return RunStreamEventKindStep
	case strings.HasPrefix(name, "thread.run"):
		return RunStreamEventKindRun
	case strings.HasPrefix(name, "thread.message"):
		return RunStreamEventKindMessage
	case name == StreamEventThreadCreated:
		return RunStreamEventKindThread
	default:
		return RunStreamEventKindOther
	}
}

// RunStreamEvent is one decoded server-sent event. Data holds the verbatim
// payload; the typed accessors decode it on demand.
type RunStreamEvent struct {
	Kind RunStreamEventKind
	Name string
	Data json.RawMessage
}

// EventName returns the verbatim event name, or the kind for unnamed events.
func (e RunStreamEvent) EventName() string {
	if e.Name != "" {
		return e.Name
	}
	return string(e.Kind)
}

// Run decodes the payload as a run snapshot. ok is false for non-run events.
func (e RunStreamEvent) Run() (*Run, bool) {
	if e.Kind != RunStreamEventKindRun {
		return nil, false
	}
	var run Run
	if err := json.Unmarshal(e.Data, &run); err != nil {
		return nil, false
	}
	return &run, true
}

// Step decodes the payload as a run step. ok is false for non-step events and
// for step deltas.
func (e RunStreamEvent) Step() (*RunStep, bool) {
	if e.Kind != RunStreamEventKindStep || e.Name == StreamEventStepDelta {
		return nil, false
	}
	var step RunStep
	if err := json.Unmarshal(e.Data, &step); err != nil {
		return nil, false
	}
	return &step, true
}

// Message decodes the payload as a thread message. ok is false for non-message
// events and for message deltas.
func (e RunStreamEvent) Message() (*ThreadMessage, bool) {
	if e.Kind != RunStreamEventKindMessage || e.Name == StreamEventMessageDelta {
		return nil, false
	}
	var msg ThreadMessage
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return nil, false
	}
	return &msg, true
}

// MessageDelta decodes the payload of a thread.message.delta event. ok is
// false for every other event.
func (e RunStreamEvent) MessageDelta() (*MessageDelta, bool) {
	if e.Name != StreamEventMessageDelta {
		return nil, false
	}
	var delta MessageDelta
	if err := json.Unmarshal(e.Data, &delta); err != nil {
		return nil, false
	}
	return &delta, true
}

// Thread decodes the payload of a thread.created event.
func (e RunStreamEvent) Thread() (*Thread, bool) {
	if e.Name != StreamEventThreadCreated {
		return nil, false
	}
	var thread Thread
	if err := json.Unmarshal(e.Data, &thread); err != nil {
		return nil, false
	}
	return &thread, true
}

// Err converts an error event into an APIError. Returns nil for every other
// event.
func (e RunStreamEvent) Err() error {
	if e.Kind != RunStreamEventKindError {
		return nil
	}
	apiErr := APIError{Message: "run stream error"}
	var payload struct {
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Data, &payload); err == nil {
		switch {
		case payload.Error != nil:
			apiErr.Code = payload.Error.Code
			apiErr.Status = payload.Error.Status
			if payload.Error.Message != "" {
				apiErr.Message = payload.Error.Message
			}
		default:
			apiErr.Code = payload.Code
			if payload.Message != "" {
				apiErr.Message = payload.Message
			}
		}
	}
	return apiErr
}

// RunStream is a pull-based iterator over the server-sent events of a
// streaming run. Call Next until it reports completion, then Close. Close is
// idempotent and safe to defer alongside the loop.
type RunStream struct {
	ctx       context.Context
	cancel    context.CancelFunc
	reader    *bufio.Reader
	body      io.ReadCloser
	telemetry TelemetryHooks
	monitor   *streamTimeoutMonitor
	requestID string

	done      chan struct{}
	closeOnce sync.Once
	closed    bool
	finalRun  *Run
}

func newRunStream(ctx context.Context, body io.ReadCloser, requestID string, telemetry TelemetryHooks, timeouts StreamTimeouts) *RunStream {
	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	stream := &RunStream{
		ctx:       streamCtx,
		cancel:    cancel,
		reader:    bufio.NewReader(body),
		body:      body,
		telemetry: telemetry,
		requestID: requestID,
		done:      done,
		monitor:   newStreamTimeoutMonitor(streamCtx, timeouts, done, cancel),
	}
	go func() {
		select {
		case <-streamCtx.Done():
			//nolint:errcheck // best-effort cleanup on context cancellation
			_ = stream.Close()
		case <-stream.done:
		}
	}()
	stream.monitor.start()
	return stream
}

// Next returns the next event. ok is false once the terminal done event (or
// end of stream) is reached; after that Next keeps returning ok=false.
func (s *RunStream) Next() (RunStreamEvent, bool, error) {
	if s.closed {
		return RunStreamEvent{}, false, nil
	}
	for {
		eventName, data, err := s.readEvent()
		if err != nil {
			if terr := s.monitor.timeoutErr(); terr != nil && s.ctx.Err() != nil {
				//nolint:errcheck // best-effort cleanup after timeout
				_ = s.Close()
				return RunStreamEvent{}, false, terr
			}
			if errors.Is(err, io.EOF) {
				//nolint:errcheck // best-effort cleanup at end of stream
				_ = s.Close()
				return RunStreamEvent{}, false, nil
			}
			if s.ctx.Err() != nil {
				return RunStreamEvent{}, false, s.ctx.Err()
			}
			return RunStreamEvent{}, false, err
		}
		if eventName == "" && len(data) == 0 {
			continue
		}
		s.monitor.signalActivity()
		if eventName == StreamEventDone || string(bytes.TrimSpace(data)) == "[DONE]" {
			//nolint:errcheck // best-effort cleanup after terminal event
			_ = s.Close()
			return RunStreamEvent{}, false, nil
		}
		s.monitor.signalFirst()
		event := RunStreamEvent{
			Kind: classifyStreamEvent(eventName),
			Name: eventName,
			Data: append([]byte(nil), data...),
		}
		if run, ok := event.Run(); ok {
			s.finalRun = run
		}
		s.telemetry.streamEvent(s.ctx, event)
		return event, true, nil
	}
}

// readEvent consumes one SSE frame: optional "event:" line plus one or more
// "data:" lines, terminated by a blank line. Comment lines are skipped.
func (s *RunStream) readEvent() (string, []byte, error) {
	var eventName string
	var dataBuilder strings.Builder
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" {
				return "", nil, io.EOF
			}
			if errors.Is(err, io.EOF) {
				line = strings.TrimRight(line, "\r\n")
				if line == "" {
					return eventName, []byte(dataBuilder.String()), nil
				}
			} else {
				return "", nil, err
			}
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return eventName, []byte(dataBuilder.String()), nil
		}
		switch {
		case strings.HasPrefix(line, ":"):
			continue
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			if dataBuilder.Len() > 0 {
				dataBuilder.WriteByte('\n')
			}
			dataBuilder.WriteString(strings.TrimSpace(line[len("data:"):]))
		}
	}
}

// Close releases the stream. Further Next calls report completion.
func (s *RunStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed = true
		close(s.done)
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// RequestID returns the server-assigned id for the streaming request, when
// the server sent one.
func (s *RunStream) RequestID() string {
	return s.requestID
}

// FinalRun returns the most recent run snapshot seen on the stream, usually
// the terminal one once the stream has drained. Nil if no run event arrived.
func (s *RunStream) FinalRun() *Run {
	return s.finalRun
}

// CreateStream starts a run and subscribes to its events over SSE. The
// request is serialized with the streaming flag set on a copy; the caller's
// request is left untouched.
func (c *RunsClient) CreateStream(ctx context.Context, threadID string, request RunRequest, opts ...CallOption) (*RunStream, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRuns, "{thread_id}", url.PathEscape(threadID))
	return c.openStream(ctx, path, request.withStream(true), options)
}

// SubmitToolOutputsStream answers a run in requires_action and subscribes to
// the resumed run's events over SSE.
func (c *RunsClient) SubmitToolOutputsStream(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput, opts ...CallOption) (*RunStream, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(runID) == "" {
		return nil, ConfigError{Reason: "run id is required"}
	}
	if len(outputs) == 0 {
		return nil, ConfigError{Reason: "at least one tool output is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRunsSubmitToolOutputs, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{run_id}", url.PathEscape(runID))
	return c.openStream(ctx, path, submitToolOutputsPayload{ToolOutputs: outputs, Stream: true}, options)
}

func (c *RunsClient) openStream(ctx context.Context, path string, payload any, options callOptions) (*RunStream, error) {
	req, err := c.client.newJSONRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	applyCallHeaders(req, options)

	resp, _, err := c.client.sendStreaming(req, options.retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		//nolint:errcheck // best-effort cleanup on return
		defer func() { _ = resp.Body.Close() }()
		return nil, decodeAPIError(resp)
	}
	contentType := resp.Header.Get("Content-Type")
	if !isEventStreamContentType(contentType) {
		//nolint:errcheck // best-effort cleanup on protocol violation
		_ = resp.Body.Close()
		return nil, StreamProtocolError{
			ExpectedContentType: "text/event-stream",
			ReceivedContentType: contentType,
			Status:              resp.StatusCode,
		}
	}

	var timeouts StreamTimeouts
	if options.streamTimeouts != nil {
		timeouts = *options.streamTimeouts
	}
	return newRunStream(ctx, resp.Body, requestIDFromHeaders(resp.Header), c.client.telemetry, timeouts), nil
}

func isEventStreamContentType(contentType string) bool {
	mediaType := contentType
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/event-stream")
}

func requestIDFromHeaders(h http.Header) string {
	if h == nil {
		return ""
	}
	return h.Get(headers.RequestID)
}
