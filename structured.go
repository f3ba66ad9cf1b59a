package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// StructuredErrorKind says which stage of structured output handling failed.
type StructuredErrorKind string

const (
	// StructuredErrorKindDecode: the response is not valid JSON.
	StructuredErrorKindDecode StructuredErrorKind = "decode"
	// StructuredErrorKindValidation: the response is JSON but breaks the schema.
	StructuredErrorKindValidation StructuredErrorKind = "validation"
)

// ValidationIssue is one field-level schema violation.
type ValidationIssue struct {
	// Path locates the offending field in dot notation ("address.city").
	// nil for root-level violations.
	Path *string
	// Message describes the violation.
	Message string
}

// AttemptRecord preserves what one structured attempt produced and why it was
// rejected.
type AttemptRecord struct {
	// Attempt is 1-based.
	Attempt int
	// RawJSON is the text the model produced.
	RawJSON string
	// Error says why it was rejected.
	Error StructuredErrorDetail
}

// StructuredErrorDetail carries either a decode message or validation issues,
// depending on Kind.
type StructuredErrorDetail struct {
	Kind    StructuredErrorKind
	Message string
	Issues  []ValidationIssue
}

func (d StructuredErrorDetail) summary() string {
	if d.Kind == StructuredErrorKindDecode {
		return d.Message
	}
	parts := make([]string, 0, len(d.Issues))
	for _, issue := range d.Issues {
		if issue.Path != nil {
			parts = append(parts, fmt.Sprintf("%s: %s", *issue.Path, issue.Message))
		} else {
			parts = append(parts, issue.Message)
		}
	}
	return strings.Join(parts, "; ")
}

// StructuredDecodeError is returned when the first (and only) attempt
// produced output that is not JSON at all.
type StructuredDecodeError struct {
	RawJSON string
	Message string
	Attempt int
}

func (e StructuredDecodeError) Error() string {
	return fmt.Sprintf("structured output decode error (attempt %d): %s", e.Attempt, e.Message)
}

// StructuredExhaustedError is returned when every allowed attempt was
// rejected. AllAttempts preserves the full history for debugging prompts.
type StructuredExhaustedError struct {
	LastRawJSON string
	AllAttempts []AttemptRecord
	FinalError  StructuredErrorDetail
}

func (e StructuredExhaustedError) Error() string {
	return fmt.Sprintf("structured output failed after %d attempts: %s", len(e.AllAttempts), e.FinalError.summary())
}

// RetryHandler decides what feedback to put on the thread between structured
// attempts.
type RetryHandler interface {
	// OnValidationError returns the messages to append before the retry run,
	// or nil to stop retrying. The model's rejected response is already on
	// the thread; only corrective feedback needs to be added.
	OnValidationError(attempt int, rawJSON string, err StructuredErrorDetail) []assistant.Message
}

// DefaultRetryHandler feeds the validation summary back as a user message.
type DefaultRetryHandler struct{}

func (DefaultRetryHandler) OnValidationError(_ int, _ string, err StructuredErrorDetail) []assistant.Message {
	return []assistant.Message{
		assistant.NewUserMessage(fmt.Sprintf(
			"The previous response did not match the expected schema. Error: %s. Please provide a response that matches the schema exactly.",
			err.summary(),
		)),
	}
}

// StructuredOptions configures structured output behavior.
type StructuredOptions struct {
	// MaxRetries is the number of retry runs after a rejected first attempt
	// (default 0: one attempt total).
	MaxRetries int
	// RetryHandler customizes feedback between attempts. DefaultRetryHandler
	// when nil.
	RetryHandler RetryHandler
	// SchemaName names the schema inside response_format (default "response").
	SchemaName string
	// Wait tunes the polling loop for each run.
	Wait WaitOptions
}

// validateAgainstSchema checks raw model output against the compiled schema.
// nil means valid.
func validateAgainstSchema(schema *jsonschema.Schema, rawJSON string) *StructuredErrorDetail {
	var data any
	if err := json.Unmarshal([]byte(rawJSON), &data); err != nil {
		return &StructuredErrorDetail{Kind: StructuredErrorKindDecode, Message: err.Error()}
	}

	err := schema.Validate(data)
	if err == nil {
		return nil
	}
	detail := &StructuredErrorDetail{Kind: StructuredErrorKindValidation}
	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		detail.Issues = collectIssues(validationErr)
	} else {
		detail.Issues = []ValidationIssue{{Message: err.Error()}}
	}
	return detail
}

// collectIssues flattens the validator's error tree into issues the retry
// feedback (and callers) can read.
func collectIssues(err *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	if err.Message != "" {
		issues = append(issues, ValidationIssue{
			Path:    dotPath(err.InstanceLocation),
			Message: err.Message,
		})
	}
	for _, cause := range err.Causes {
		issues = append(issues, collectIssues(cause)...)
	}
	return issues
}

// dotPath converts a JSON Pointer instance location ("#/address/city") to dot
// notation. Returns nil for the root.
func dotPath(location string) *string {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(location, "#"), "/")
	if trimmed == "" {
		return nil
	}
	path := strings.ReplaceAll(trimmed, "/", ".")
	return &path
}

// compileSchema prepares a schema for local validation. Draft 2020-12 is the
// draft the platform defines response formats against.
func compileSchema(schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// StructuredResult is the successful outcome of Structured.
type StructuredResult[T any] struct {
	// Value is the parsed, validated result.
	Value T
	// Attempts counts the runs made (1 = first run succeeded).
	Attempts int
	// Run is the final, successful run.
	Run *Run
}

// Structured executes a run with structured output and automatic schema
// generation from type T, then decodes and validates the response. It
// supports retry runs with validation error feedback.
//
// The builder supplies everything about the run except the response format,
// which Structured derives from T (json_schema with strict = true). Each
// retry appends corrective feedback to the thread and starts a fresh run; the
// thread accumulates the failed responses and the feedback, so the model sees
// its own mistakes.
//
// Example:
//
//	type Person struct {
//	    Name string `json:"name"`
//	    Age  int    `json:"age"`
//	}
//
//	builder := sdk.NewRunRequestBuilder("asst_abc").UserMessage("Extract: John, 30")
//	result, err := sdk.Structured[Person](ctx, client, threadID, builder, sdk.StructuredOptions{MaxRetries: 2})
func Structured[T any](
	ctx context.Context,
	client *Client,
	threadID string,
	builder *RunRequestBuilder,
	opts StructuredOptions,
	callOpts ...CallOption,
) (*StructuredResult[T], error) {
	if client == nil {
		return nil, ConfigError{Reason: "client is required"}
	}
	if builder == nil {
		return nil, ConfigError{Reason: "run request builder is required"}
	}

	schemaName := opts.SchemaName
	if schemaName == "" {
		schemaName = "response"
	}
	format, err := JSONSchemaFormatFromType[T](schemaName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}
	compiledSchema, err := compileSchema(format.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema for validation: %w", err)
	}

	// The request is built once; retries reuse it on the same thread after
	// appending feedback messages.
	request, err := builder.JSONSchema(format).Build()
	if err != nil {
		return nil, err
	}

	retryHandler := opts.RetryHandler
	if retryHandler == nil {
		retryHandler = DefaultRetryHandler{}
	}

	var attempts []AttemptRecord
	maxAttempts := opts.MaxRetries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		run, err := runToCompletion(ctx, client, threadID, request, opts.Wait, callOpts)
		if err != nil {
			return nil, err
		}

		rawJSON, err := lastRunMessageText(ctx, client, threadID, run.ID, callOpts)
		if err != nil {
			return nil, err
		}

		// Validate before decoding; validation errors carry field paths the
		// model can act on.
		errDetail := validateAgainstSchema(compiledSchema, rawJSON)
		if errDetail == nil {
			var value T
			if err := json.Unmarshal([]byte(rawJSON), &value); err != nil {
				errDetail = &StructuredErrorDetail{Kind: StructuredErrorKindDecode, Message: err.Error()}
			} else {
				return &StructuredResult[T]{Value: value, Attempts: attempt, Run: run}, nil
			}
		}

		attempts = append(attempts, AttemptRecord{Attempt: attempt, RawJSON: rawJSON, Error: *errDetail})

		// A lone attempt that did not even decode gets the specific error
		// type so callers can tell "not JSON" from "wrong shape".
		if errDetail.Kind == StructuredErrorKindDecode && attempt == 1 && maxAttempts == 1 {
			return nil, StructuredDecodeError{RawJSON: rawJSON, Message: errDetail.Message, Attempt: attempt}
		}

		exhausted := StructuredExhaustedError{
			LastRawJSON: rawJSON,
			AllAttempts: attempts,
			FinalError:  *errDetail,
		}
		if attempt >= maxAttempts {
			return nil, exhausted
		}
		feedback := retryHandler.OnValidationError(attempt, rawJSON, *errDetail)
		if feedback == nil {
			return nil, exhausted
		}
		for _, msg := range feedback {
			if _, err := client.Messages.Create(ctx, threadID, msg, callOpts...); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("sdk: structured retry loop exited without a result after %d attempts", maxAttempts)
}

// runToCompletion starts a run and polls it to a terminal state, converting
// failures into errors. Structured runs have no tools, so requires_action is
// a misuse of the API surface rather than a state to service.
func runToCompletion(ctx context.Context, client *Client, threadID string, request RunRequest, wait WaitOptions, callOpts []CallOption) (*Run, error) {
	run, err := client.Runs.Create(ctx, threadID, request, callOpts...)
	if err != nil {
		return nil, err
	}
	run, err = client.Runs.Wait(ctx, threadID, run.ID, wait, callOpts...)
	if err != nil {
		return nil, err
	}
	switch {
	case run.Status == RunStatusCompleted:
		return run, nil
	case run.Status == RunStatusRequiresAction:
		return nil, ConfigError{Reason: "structured run requested tool outputs; use RunWithTools for tool-calling runs"}
	default:
		return nil, RunFailedError{Run: run}
	}
}

// lastRunMessageText fetches the newest message the run wrote and returns its
// concatenated text.
func lastRunMessageText(ctx context.Context, client *Client, threadID, runID string, callOpts []CallOption) (string, error) {
	page, err := client.Messages.List(ctx, threadID, ListOptions{
		RunID: runID,
		Order: ListOrderDesc,
		Limit: 1,
	}, callOpts...)
	if err != nil {
		return "", err
	}
	if len(page.Data) == 0 {
		return "", ProtocolError{Message: "run completed without producing a message"}
	}
	return page.Data[0].Text(), nil
}
