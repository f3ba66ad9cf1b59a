package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/threadline/threadline/sdk/go/assistant"
	"github.com/threadline/threadline/sdk/go/routes"
)

// Run is the server's record of a single assistant execution against a
// thread. Sampling knobs, tools and limits echo what the creating request
// resolved; status and the timestamp fields advance as the run progresses.
type Run struct {
	ID                  string                        `json:"id"`
	Object              string                        `json:"object"`
	CreatedAt           int64                         `json:"created_at"`
	ThreadID            string                        `json:"thread_id"`
	AssistantID         string                        `json:"assistant_id"`
	Status              RunStatus                     `json:"status"`
	RequiredAction      *RequiredAction               `json:"required_action,omitempty"`
	LastError           *RunError                     `json:"last_error,omitempty"`
	ExpiresAt           int64                         `json:"expires_at,omitempty"`
	StartedAt           int64                         `json:"started_at,omitempty"`
	CancelledAt         int64                         `json:"cancelled_at,omitempty"`
	FailedAt            int64                         `json:"failed_at,omitempty"`
	CompletedAt         int64                         `json:"completed_at,omitempty"`
	IncompleteDetails   *IncompleteDetails            `json:"incomplete_details,omitempty"`
	Model               ModelID                       `json:"model,omitempty"`
	Instructions        string                        `json:"instructions,omitempty"`
	Tools               []assistant.Tool              `json:"tools,omitempty"`
	Metadata            map[string]string             `json:"metadata,omitempty"`
	Usage               *assistant.Usage              `json:"usage,omitempty"`
	Temperature         *float64                      `json:"temperature,omitempty"`
	TopP                *float64                      `json:"top_p,omitempty"`
	MaxPromptTokens     int64                         `json:"max_prompt_tokens,omitempty"`
	MaxCompletionTokens int64                         `json:"max_completion_tokens,omitempty"`
	TruncationStrategy  *assistant.TruncationStrategy `json:"truncation_strategy,omitempty"`
	ToolChoice          assistant.ToolChoice          `json:"tool_choice,omitzero"`
	ParallelToolCalls   bool                          `json:"parallel_tool_calls,omitempty"`
	ResponseFormat      *assistant.ResponseFormat     `json:"response_format,omitempty"`
}

// PendingToolCalls returns the tool calls the run is blocked on, or nil when
// the run is not waiting for tool outputs.
func (r *Run) PendingToolCalls() []assistant.ToolCall {
	if r == nil || r.RequiredAction == nil || r.RequiredAction.SubmitToolOutputs == nil {
		return nil
	}
	return r.RequiredAction.SubmitToolOutputs.ToolCalls
}

// RunError describes why a run failed.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RunFailedError is returned by helpers that drive a run to completion when
// the run lands in a non-successful terminal state. The full run is attached
// for inspection.
type RunFailedError struct {
	Run *Run
}

// Error implements the error interface.
func (e RunFailedError) Error() string {
	if e.Run == nil {
		return "sdk: run failed"
	}
	if e.Run.LastError != nil {
		return fmt.Sprintf("sdk: run %s %s: %s: %s", e.Run.ID, e.Run.Status, e.Run.LastError.Code, e.Run.LastError.Message)
	}
	return fmt.Sprintf("sdk: run %s ended with status %s", e.Run.ID, e.Run.Status)
}

// IncompleteDetails explains why a run stopped short of completion, such as
// hitting a token ceiling.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// RequiredActionSubmitToolOutputs is the only required-action type the API
// emits today.
const RequiredActionSubmitToolOutputs = "submit_tool_outputs"

// RequiredAction describes what the caller must do before a run in
// requires_action can proceed.
type RequiredAction struct {
	Type              string                   `json:"type"`
	SubmitToolOutputs *SubmitToolOutputsAction `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputsAction lists the tool calls awaiting outputs.
type SubmitToolOutputsAction struct {
	ToolCalls []assistant.ToolCall `json:"tool_calls"`
}

// RunsClient executes assistants against threads.
type RunsClient struct {
	client *Client
}

func (c *RunsClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("sdk: runs client not initialized")
	}
	return nil
}

// Create starts a run on the thread. The request is sent exactly as built;
// a copy flagged for the blocking transport is serialized so the caller's
// request keeps its streaming flag.
func (c *RunsClient) Create(ctx context.Context, threadID string, request RunRequest, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRuns, "{thread_id}", url.PathEscape(threadID))
	return c.roundTrip(ctx, http.MethodPost, path, request.withStream(false), options)
}

// Get fetches the current state of a run.
func (c *RunsClient) Get(ctx context.Context, threadID, runID string, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(runID) == "" {
		return nil, ConfigError{Reason: "run id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRunsByID, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{run_id}", url.PathEscape(runID))
	return c.roundTrip(ctx, http.MethodGet, path, nil, options)
}

// List pages through the runs on a thread, newest first by default.
func (c *RunsClient) List(ctx context.Context, threadID string, params ListOptions, opts ...CallOption) (*ListPage[Run], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRuns, "{thread_id}", url.PathEscape(threadID))
	path = appendListQuery(path, params)

	var page ListPage[Run]
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &page, options); err != nil {
		return nil, err
	}
	return &page, nil
}

// Cancel requests cancellation of an in-flight run. The run transitions
// through cancelling before reaching a terminal status; poll or Wait to
// observe the final state.
func (c *RunsClient) Cancel(ctx context.Context, threadID, runID string, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(runID) == "" {
		return nil, ConfigError{Reason: "run id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRunsCancel, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{run_id}", url.PathEscape(runID))
	return c.roundTrip(ctx, http.MethodPost, path, nil, options)
}

type submitToolOutputsPayload struct {
	ToolOutputs []assistant.ToolOutput `json:"tool_outputs"`
	Stream      bool                   `json:"stream,omitempty"`
}

// SubmitToolOutputs answers a run in requires_action with the outputs of the
// requested tool calls and resumes it.
func (c *RunsClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput, opts ...CallOption) (*Run, error) {
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
	return c.roundTrip(ctx, http.MethodPost, path, submitToolOutputsPayload{ToolOutputs: outputs}, options)
}

type threadAndRunPayload struct {
	runRequestPayload
	Thread *ThreadRequest `json:"thread,omitempty"`
}

// CreateThreadAndRun creates a thread and immediately starts a run on it in
// one round trip. A nil thread starts from an empty thread.
func (c *RunsClient) CreateThreadAndRun(ctx context.Context, thread *ThreadRequest, request RunRequest, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	options := buildCallOptions(opts)

	payload := threadAndRunPayload{
		runRequestPayload: request.withStream(false).payload(),
		Thread:            thread,
	}
	return c.roundTrip(ctx, http.MethodPost, routes.ThreadAndRun, payload, options)
}

// defaultPollInterval paces Wait's status checks.
const defaultPollInterval = 800 * time.Millisecond

// WaitOptions tunes Wait's polling loop.
type WaitOptions struct {
	// PollInterval is the delay between status checks. Zero uses the default.
	PollInterval time.Duration
}

// Wait polls a run until it reaches a terminal status and returns the final
// snapshot. A run parked in requires_action never terminates on its own, so
// Wait returns it as soon as it is observed rather than polling forever.
// Cancel the context to bound the overall wait.
func (c *RunsClient) Wait(ctx context.Context, threadID, runID string, wait WaitOptions, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	interval := wait.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		run, err := c.Get(ctx, threadID, runID, opts...)
		if err != nil {
			return nil, err
		}
		if run.Status.IsTerminal() || run.Status == RunStatusRequiresAction {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// roundTrip posts or fetches a run endpoint and decodes the Run snapshot.
func (c *RunsClient) roundTrip(ctx context.Context, method, path string, payload any, options callOptions) (*Run, error) {
	req, err := c.client.newJSONRequest(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	applyCallHeaders(req, options)
	resp, _, err := c.client.send(req, options.timeout, options.retry)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // best-effort cleanup on return
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp)
	}
	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, err
	}
	return &run, nil
}
