package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// ============================================================================
// Convenience Methods
// ============================================================================

// AskOptions configures optional settings for Ask.
type AskOptions struct {
	// Model overrides the assistant's default model for this run.
	Model string
	// Instructions replaces the assistant's instructions for this run.
	Instructions string
	// Metadata is attached to the created thread.
	Metadata map[string]string
	// Wait tunes the polling loop.
	Wait WaitOptions
}

// Ask sends a one-shot prompt to an assistant on a fresh thread and returns
// just the text of the reply.
//
// This is the most ergonomic way to get a quick answer. The thread is left
// in place afterwards; its id is discarded, so use the Threads and Runs
// clients directly when the conversation should continue.
//
// Example:
//
//	answer, err := client.Ask(ctx, "asst_abc", "What is 2 + 2?", nil)
//	if err != nil { /* handle */ }
//	fmt.Println(answer) // "4"
func (c *Client) Ask(ctx context.Context, assistantID, prompt string, opts *AskOptions, callOpts ...CallOption) (string, error) {
	if opts == nil {
		opts = &AskOptions{}
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ConfigError{Reason: "prompt is required"}
	}

	builder := NewRunRequestBuilder(assistantID)
	if opts.Model != "" {
		builder = builder.Model(ModelID(opts.Model))
	}
	if opts.Instructions != "" {
		builder = builder.Instructions(opts.Instructions)
	}
	request, err := builder.Build()
	if err != nil {
		return "", err
	}

	thread := &ThreadRequest{
		Messages: []assistant.Message{assistant.NewUserMessage(prompt)},
		Metadata: opts.Metadata,
	}

	run, err := c.Runs.CreateThreadAndRun(ctx, thread, request, callOpts...)
	if err != nil {
		return "", err
	}
	run, err = c.Runs.Wait(ctx, run.ThreadID, run.ID, opts.Wait, callOpts...)
	if err != nil {
		return "", err
	}
	switch {
	case run.Status == RunStatusCompleted:
	case run.Status == RunStatusRequiresAction:
		return "", ConfigError{Reason: "assistant requested tool outputs; drive the run with RunWithTools"}
	default:
		return "", RunFailedError{Run: run}
	}

	text, err := lastRunMessageText(ctx, c, run.ThreadID, run.ID, callOpts)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ProtocolError{Message: "run produced no text output"}
	}
	return text, nil
}

// Tool loop turn limit constants.
const (
	// DefaultMaxTurns is the default limit for tool-output submissions (100).
	DefaultMaxTurns = 100
	// NoTurnLimit disables the turn limit. Use with caution as this
	// can lead to runaway tool loops and API costs.
	NoTurnLimit = -1
)

// RunWithToolsOptions configures the RunWithTools loop.
type RunWithToolsOptions struct {
	// Registry maps tool names to handlers. Required.
	Registry *ToolRegistry
	// MaxTurns limits the number of tool-output submissions.
	// Default is 100. Set to NoTurnLimit (-1) for unlimited turns.
	MaxTurns int
	// Wait tunes the polling loop between submissions.
	Wait WaitOptions
}

// RunWithToolsResult contains the result of a completed tool loop.
type RunWithToolsResult struct {
	// Output is the final text response (if any).
	Output string
	// Run is the final, completed run. Its Usage covers the whole loop;
	// the server accounts for every model turn within the one run.
	Run *Run
	// ToolCalls is the number of individual tool calls executed.
	ToolCalls int
	// Submissions is the number of tool-output submissions made.
	Submissions int
}

// MaxTurnsError is returned when a tool loop hits its turn limit while the
// run still requires action. The run is cancelled before returning so it
// does not hold the thread until expiry.
type MaxTurnsError struct {
	MaxTurns  int
	LastRun   *Run
	ToolCalls int
}

// Error implements the error interface.
func (e MaxTurnsError) Error() string {
	return fmt.Sprintf("sdk: run still required action after %d tool-output submissions", e.MaxTurns)
}

// RunWithTools starts a run and services its tool calls to completion.
//
// Whenever the run parks in requires_action, the pending calls are executed
// through the registry and the outputs submitted back, until the run reaches
// a terminal state or MaxTurns submissions have been made. Handler errors are
// not fatal: they are formatted into the output text so the model can read
// and recover from them.
//
// Example:
//
//	registry := sdk.NewToolRegistry()
//	registry.Register("get_weather", func(ctx context.Context, args map[string]any, call assistant.ToolCall) (any, error) {
//		return fetchWeather(ctx, args["city"].(string))
//	})
//
//	result, err := client.RunWithTools(ctx, threadID, request, sdk.RunWithToolsOptions{
//		Registry: registry,
//	})
func (c *Client) RunWithTools(ctx context.Context, threadID string, request RunRequest, opts RunWithToolsOptions, callOpts ...CallOption) (*RunWithToolsResult, error) {
	if opts.Registry == nil {
		return nil, ConfigError{Reason: "tool registry is required"}
	}

	maxTurns := opts.MaxTurns
	if maxTurns == 0 {
		maxTurns = DefaultMaxTurns
	} else if maxTurns < 0 {
		maxTurns = int(^uint(0) >> 1) // max int - effectively no limit
	}

	run, err := c.Runs.Create(ctx, threadID, request, callOpts...)
	if err != nil {
		return nil, err
	}

	var toolCalls, submissions int
	for {
		run, err = c.Runs.Wait(ctx, threadID, run.ID, opts.Wait, callOpts...)
		if err != nil {
			return nil, err
		}
		if run.Status != RunStatusRequiresAction {
			break
		}

		if submissions >= maxTurns {
			//nolint:errcheck // best-effort cleanup on return
			_, _ = c.Runs.Cancel(ctx, threadID, run.ID, callOpts...)
			return nil, MaxTurnsError{
				MaxTurns:  maxTurns,
				LastRun:   run,
				ToolCalls: toolCalls,
			}
		}

		calls := run.PendingToolCalls()
		if len(calls) == 0 {
			return nil, ProtocolError{Message: "run requires action but lists no tool calls"}
		}

		results := opts.Registry.ExecuteAll(ctx, calls)
		toolCalls += len(calls)
		submissions++

		run, err = c.Runs.SubmitToolOutputs(ctx, threadID, run.ID, opts.Registry.ResultsToOutputs(results), callOpts...)
		if err != nil {
			return nil, err
		}
	}

	if run.Status != RunStatusCompleted {
		return nil, RunFailedError{Run: run}
	}

	output, err := lastRunMessageText(ctx, c, threadID, run.ID, callOpts)
	if err != nil {
		return nil, err
	}

	return &RunWithToolsResult{
		Output:      output,
		Run:         run,
		ToolCalls:   toolCalls,
		Submissions: submissions,
	}, nil
}
