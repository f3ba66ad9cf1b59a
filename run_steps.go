package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
	"github.com/threadline/threadline/sdk/go/routes"
)

// RunStepType discriminates what a run step did.
type RunStepType string

const (
	// RunStepTypeMessageCreation marks a step that wrote a message to the
	// thread.
	RunStepTypeMessageCreation RunStepType = "message_creation"
	// RunStepTypeToolCalls marks a step that invoked tools.
	RunStepTypeToolCalls RunStepType = "tool_calls"
)

// RunStep is one unit of work the assistant performed during a run, either
// creating a message or calling tools.
type RunStep struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	CreatedAt   int64             `json:"created_at"`
	RunID       string            `json:"run_id"`
	AssistantID string            `json:"assistant_id"`
	ThreadID    string            `json:"thread_id"`
	Type        RunStepType       `json:"type"`
	Status      RunStepStatus     `json:"status"`
	StepDetails StepDetails       `json:"step_details"`
	LastError   *RunError         `json:"last_error,omitempty"`
	ExpiredAt   int64             `json:"expired_at,omitempty"`
	CancelledAt int64             `json:"cancelled_at,omitempty"`
	FailedAt    int64             `json:"failed_at,omitempty"`
	CompletedAt int64             `json:"completed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Usage       *assistant.Usage  `json:"usage,omitempty"`
}

// StepDetails carries the payload matching the step's type; exactly one of
// the detail fields is populated.
type StepDetails struct {
	Type            RunStepType          `json:"type"`
	MessageCreation *MessageCreationStep `json:"message_creation,omitempty"`
	ToolCalls       []assistant.ToolCall `json:"tool_calls,omitempty"`
}

// MessageCreationStep points at the message a step added to the thread.
type MessageCreationStep struct {
	MessageID string `json:"message_id"`
}

// ListSteps pages through the steps of a run, newest first by default.
func (c *RunsClient) ListSteps(ctx context.Context, threadID, runID string, params ListOptions, opts ...CallOption) (*ListPage[RunStep], error) {
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

	path := strings.ReplaceAll(routes.ThreadRunSteps, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{run_id}", url.PathEscape(runID))
	path = appendListQuery(path, params)

	var page ListPage[RunStep]
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &page, options); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStep fetches a single run step.
func (c *RunsClient) GetStep(ctx context.Context, threadID, runID, stepID string, opts ...CallOption) (*RunStep, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(runID) == "" {
		return nil, ConfigError{Reason: "run id is required"}
	}
	if strings.TrimSpace(stepID) == "" {
		return nil, ConfigError{Reason: "step id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadRunStepsByID, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{run_id}", url.PathEscape(runID))
	path = strings.ReplaceAll(path, "{step_id}", url.PathEscape(stepID))

	var step RunStep
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &step, options); err != nil {
		return nil, err
	}
	return &step, nil
}
