package sdk

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// FunctionToolFromType builds a function tool whose parameter schema is
// derived from T via TypeToJSONSchema.
//
// Example:
//
//	type GetWeatherParams struct {
//	    Location string `json:"location" description:"City name"`
//	    Unit     string `json:"unit,omitempty" enum:"celsius,fahrenheit" default:"celsius"`
//	}
//
//	tool, err := FunctionToolFromType[GetWeatherParams]("get_weather", "Get weather for a location")
func FunctionToolFromType[T any](name, description string) (assistant.Tool, error) {
	var zero T
	schema, err := json.Marshal(TypeToJSONSchema(zero, nil))
	if err != nil {
		return assistant.Tool{}, err
	}
	return NewFunctionTool(name, description, json.RawMessage(schema))
}

// MustFunctionToolFromType is FunctionToolFromType panicking on error, for
// static tool declarations.
func MustFunctionToolFromType[T any](name, description string) assistant.Tool {
	tool, err := FunctionToolFromType[T](name, description)
	if err != nil {
		panic(err)
	}
	return tool
}

// NewFunctionTool builds a function tool from an explicit parameter schema.
// schema may be a json.RawMessage, []byte, string, or any JSON-encodable
// value (map, tagged struct).
func NewFunctionTool(name, description string, schema any) (assistant.Tool, error) {
	toolName, err := assistant.ParseToolName(name)
	if err != nil {
		return assistant.Tool{}, err
	}
	params, err := rawSchema(schema)
	if err != nil {
		return assistant.Tool{}, err
	}
	return assistant.Tool{
		Type: assistant.ToolTypeFunction,
		Function: &assistant.FunctionTool{
			Name:        toolName,
			Description: description,
			Parameters:  params,
		},
	}, nil
}

// MustFunctionTool is NewFunctionTool panicking on error.
func MustFunctionTool(name, description string, schema any) assistant.Tool {
	tool, err := NewFunctionTool(name, description, schema)
	if err != nil {
		panic(err)
	}
	return tool
}

func rawSchema(schema any) (json.RawMessage, error) {
	switch v := schema.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	case string:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(v)
	}
}

// ToolArgsError reports that a tool call carried arguments that do not parse
// or validate. Message is phrased so it can be sent back to the model as the
// tool output.
type ToolArgsError struct {
	Message      string
	ToolCallID   assistant.ToolCallID
	ToolName     assistant.ToolName
	RawArguments string
	Cause        error
}

func (e *ToolArgsError) Error() string { return e.Message }

func (e *ToolArgsError) Unwrap() error { return e.Cause }

func newToolArgsError(call assistant.ToolCall, msg string, cause error) *ToolArgsError {
	name, raw := callFunction(call)
	return &ToolArgsError{
		Message:      msg + " for tool '" + name.String() + "': " + cause.Error(),
		ToolCallID:   call.ID,
		ToolName:     name,
		RawArguments: raw,
		Cause:        cause,
	}
}

// callFunction extracts the function name and raw arguments, tolerating calls
// without function details.
func callFunction(call assistant.ToolCall) (assistant.ToolName, string) {
	if call.Function == nil {
		return "", ""
	}
	return call.Function.Name, call.Function.Arguments
}

// ParseToolArgs unmarshals the call's arguments into target, which must be a
// pointer. Empty arguments decode as the empty object, matching how models
// emit no-parameter calls.
//
// Example:
//
//	type WeatherArgs struct {
//	    Location string `json:"location"`
//	    Unit     string `json:"unit"`
//	}
//
//	var args WeatherArgs
//	if err := sdk.ParseToolArgs(toolCall, &args); err != nil {
//	    // err.Error() is suitable to send back to the model
//	}
func ParseToolArgs(call assistant.ToolCall, target any) error {
	_, raw := callFunction(call)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		argsErr := newToolArgsError(call, "failed to parse arguments", err)
		argsErr.RawArguments = raw
		return argsErr
	}
	return nil
}

// MustParseToolArgs is ParseToolArgs panicking on error.
func MustParseToolArgs(call assistant.ToolCall, target any) {
	if err := ParseToolArgs(call, target); err != nil {
		panic(err)
	}
}

// ParseToolArgsMap decodes the call's arguments into a map for dynamic
// access. The map is never nil.
func ParseToolArgsMap(call assistant.ToolCall) (map[string]any, error) {
	var args map[string]any
	if err := ParseToolArgs(call, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// Validator is implemented by argument structs that check themselves beyond
// what JSON decoding enforces.
type Validator interface {
	Validate() error
}

// ParseAndValidateToolArgs is ParseToolArgs plus a Validate() pass when the
// target implements Validator.
func ParseAndValidateToolArgs(call assistant.ToolCall, target any) error {
	if err := ParseToolArgs(call, target); err != nil {
		return err
	}
	v, ok := target.(Validator)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return newToolArgsError(call, "invalid arguments", err)
	}
	return nil
}

// ToolHandler executes one tool call. args holds the decoded arguments; call
// carries the raw invocation for handlers that need the id or raw payload.
// The returned value is serialized as the tool output.
type ToolHandler func(ctx context.Context, args map[string]any, call assistant.ToolCall) (any, error)

// ToolExecutionResult is the outcome of dispatching one tool call.
type ToolExecutionResult struct {
	ToolCallID assistant.ToolCallID
	ToolName   assistant.ToolName
	Result     any
	Error      error
	// IsRetryable marks argument-shaped failures (JSON parse or validation):
	// the output sent back asks the model to correct the call.
	IsRetryable bool
}

// ToolRegistry dispatches a run's pending tool calls to registered handlers.
//
//	registry := sdk.NewToolRegistry().
//		Register("get_weather", func(ctx context.Context, args map[string]any, call assistant.ToolCall) (any, error) {
//			return map[string]any{"temp": 21, "unit": "celsius"}, nil
//		})
//
//	results := registry.ExecuteAll(ctx, run.PendingToolCalls())
//	outputs := registry.ResultsToOutputs(results)
type ToolRegistry struct {
	handlers map[assistant.ToolName]ToolHandler
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{handlers: map[assistant.ToolName]ToolHandler{}}
}

// Register binds a handler to a tool name, returning the registry for
// chaining. Registering a name twice replaces the handler.
func (r *ToolRegistry) Register(name assistant.ToolName, handler ToolHandler) *ToolRegistry {
	r.handlers[name] = handler
	return r
}

// Unregister removes a handler, reporting whether one was bound.
func (r *ToolRegistry) Unregister(name assistant.ToolName) bool {
	_, ok := r.handlers[name]
	delete(r.handlers, name)
	return ok
}

// Has reports whether a handler is bound to name.
func (r *ToolRegistry) Has(name assistant.ToolName) bool {
	_, ok := r.handlers[name]
	return ok
}

// RegisteredTools lists the bound tool names.
func (r *ToolRegistry) RegisteredTools() []assistant.ToolName {
	names := make([]assistant.ToolName, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Execute dispatches a single call. Unknown tools and malformed arguments
// never reach a handler; they come back as errors on the result.
func (r *ToolRegistry) Execute(ctx context.Context, call assistant.ToolCall) ToolExecutionResult {
	name, rawArgs := callFunction(call)
	out := ToolExecutionResult{ToolCallID: call.ID, ToolName: name}

	handler, ok := r.handlers[name]
	if !ok {
		out.Error = &UnknownToolError{ToolName: name, Available: r.RegisteredTools()}
		return out
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			out.Error = err
			out.IsRetryable = true
			return out
		}
		if args == nil { // literal null arguments
			args = map[string]any{}
		}
	}

	out.Result, out.Error = handler(ctx, args, call)
	if out.Error != nil {
		// Handler-reported argument errors are the model's to fix.
		_, out.IsRetryable = out.Error.(*ToolArgsError)
	}
	return out
}

// ExecuteAll dispatches every call, preserving input order in the results.
func (r *ToolRegistry) ExecuteAll(ctx context.Context, calls []assistant.ToolCall) []ToolExecutionResult {
	results := make([]ToolExecutionResult, len(calls))
	for i, call := range calls {
		results[i] = r.Execute(ctx, call)
	}
	return results
}

// ResultsToOutputs converts execution results into the outputs for
// SubmitToolOutputs. Errors become text the model can read; retryable errors
// ask it to correct the arguments.
func (r *ToolRegistry) ResultsToOutputs(results []ToolExecutionResult) []assistant.ToolOutput {
	outputs := make([]assistant.ToolOutput, len(results))
	for i, res := range results {
		outputs[i] = assistant.ToolOutput{
			ToolCallID: res.ToolCallID,
			Output:     outputText(res),
		}
	}
	return outputs
}

func outputText(res ToolExecutionResult) string {
	switch {
	case res.Error != nil && res.IsRetryable:
		return FormatToolErrorForModel(res)
	case res.Error != nil:
		return "Error: " + res.Error.Error()
	}
	if s, ok := res.Result.(string); ok {
		return s
	}
	data, err := json.Marshal(res.Result)
	if err != nil {
		return "Error: failed to marshal tool result"
	}
	return string(data)
}

// UnknownToolError reports a call to a tool with no registered handler.
type UnknownToolError struct {
	ToolName  assistant.ToolName
	Available []assistant.ToolName
}

func (e *UnknownToolError) Error() string {
	if len(e.Available) == 0 {
		return "unknown tool: '" + e.ToolName.String() + "'. No tools registered."
	}
	names := make([]string, len(e.Available))
	for i, name := range e.Available {
		names[i] = name.String()
	}
	return "unknown tool: '" + e.ToolName.String() + "'. Available: " + strings.Join(names, ", ")
}

// FormatToolErrorForModel renders a failed execution as output text that
// tells the model what went wrong and, for retryable failures, to correct the
// call.
func FormatToolErrorForModel(result ToolExecutionResult) string {
	msg := "Tool call error for '" + result.ToolName.String() + "': " + result.Error.Error()
	if result.IsRetryable {
		msg += "\n\nPlease correct the arguments and try again."
	}
	return msg
}

// HasRetryableErrors reports whether any result carries a retryable error.
func HasRetryableErrors(results []ToolExecutionResult) bool {
	for _, r := range results {
		if r.Error != nil && r.IsRetryable {
			return true
		}
	}
	return false
}

// GetRetryableErrors filters results down to the retryable failures.
func GetRetryableErrors(results []ToolExecutionResult) []ToolExecutionResult {
	var retryable []ToolExecutionResult
	for _, r := range results {
		if r.Error != nil && r.IsRetryable {
			retryable = append(retryable, r)
		}
	}
	return retryable
}
