package sdk

import (
	"encoding/json"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// RunRequest is the payload for starting a run against a thread.
//
// Values are immutable once built: construct via NewRunRequest or
// RunRequestBuilder, which resolve the tool choice, reset stale tool call
// arguments, and pick the response format at construction time. The only
// fields that change afterwards are the assistant id and the streaming flag,
// and only on copies made by the transport layer - a caller-held request
// never mutates.
type RunRequest struct {
	assistantID            string
	model                  ModelID
	instructions           string
	additionalInstructions string
	additionalMessages     []assistant.Message
	tools                  []assistant.Tool
	metadata               map[string]string
	temperature            *float64
	topP                   *float64
	stream                 bool
	maxPromptTokens        int64
	maxCompletionTokens    int64
	truncation             *assistant.TruncationStrategy
	toolChoice             assistant.ToolChoice
	parallelToolCalls      *bool
	responseFormat         assistant.ResponseFormatType
	jsonSchema             *assistant.JSONSchemaFormat
}

// AssistantID returns the id of the assistant that will execute the run.
func (r RunRequest) AssistantID() string { return r.assistantID }

// Model returns the model override, or the empty id when the assistant's
// configured model applies.
func (r RunRequest) Model() ModelID { return r.model }

// Instructions returns the instruction override for this run.
func (r RunRequest) Instructions() string { return r.instructions }

// AdditionalInstructions returns text appended to the assistant's instructions.
func (r RunRequest) AdditionalInstructions() string { return r.additionalInstructions }

// AdditionalMessages returns a copy of the messages appended to the thread
// before the run starts.
func (r RunRequest) AdditionalMessages() []assistant.Message {
	if r.additionalMessages == nil {
		return nil
	}
	out := make([]assistant.Message, len(r.additionalMessages))
	for i, msg := range r.additionalMessages {
		out[i] = msg.Clone()
	}
	return out
}

// Tools returns a copy of the tools available to the run.
func (r RunRequest) Tools() []assistant.Tool {
	if r.tools == nil {
		return nil
	}
	out := make([]assistant.Tool, len(r.tools))
	for i, tool := range r.tools {
		out[i] = tool.Clone()
	}
	return out
}

// Metadata returns a copy of the run metadata.
func (r RunRequest) Metadata() map[string]string {
	if r.metadata == nil {
		return nil
	}
	out := make(map[string]string, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// Temperature returns the sampling temperature, or nil when unset.
func (r RunRequest) Temperature() *float64 {
	if r.temperature == nil {
		return nil
	}
	v := *r.temperature
	return &v
}

// TopP returns the nucleus sampling cutoff, or nil when unset.
func (r RunRequest) TopP() *float64 {
	if r.topP == nil {
		return nil
	}
	v := *r.topP
	return &v
}

// Stream reports whether the run was dispatched over a streaming transport.
func (r RunRequest) Stream() bool { return r.stream }

// MaxPromptTokens returns the prompt token ceiling (0 = unset).
func (r RunRequest) MaxPromptTokens() int64 { return r.maxPromptTokens }

// MaxCompletionTokens returns the completion token ceiling (0 = unset).
func (r RunRequest) MaxCompletionTokens() int64 { return r.maxCompletionTokens }

// Truncation returns the thread truncation strategy, or nil when unset.
func (r RunRequest) Truncation() *assistant.TruncationStrategy {
	if r.truncation == nil {
		return nil
	}
	t := r.truncation.Clone()
	return &t
}

// ToolChoice returns the resolved tool choice. The zero value means unset.
func (r RunRequest) ToolChoice() assistant.ToolChoice {
	return r.toolChoice.Clone()
}

// ParallelToolCalls returns the parallel tool call flag, or nil when unset.
func (r RunRequest) ParallelToolCalls() *bool {
	if r.parallelToolCalls == nil {
		return nil
	}
	v := *r.parallelToolCalls
	return &v
}

// ResponseFormat returns the resolved response format, or nil when the
// default (plain text) applies.
func (r RunRequest) ResponseFormat() *assistant.ResponseFormat {
	return r.resolveResponseFormat()
}

// withAssistantID returns a copy bound to a different assistant. Only the
// transport layer uses this; the caller's request is left untouched.
func (r RunRequest) withAssistantID(assistantID string) RunRequest {
	r.assistantID = assistantID
	return r
}

// withStream returns a copy flagged for the streaming transport. Only the
// transport layer uses this; the caller's request is left untouched.
func (r RunRequest) withStream(stream bool) RunRequest {
	r.stream = stream
	return r
}

func (r RunRequest) resolveResponseFormat() *assistant.ResponseFormat {
	if r.jsonSchema != nil {
		format := assistant.ResponseFormat{
			Type:       assistant.ResponseFormatTypeJSONSchema,
			JSONSchema: r.jsonSchema,
		}
		clone := format.Clone()
		return &clone
	}
	switch r.responseFormat {
	case "", assistant.ResponseFormatTypeText:
		return nil
	default:
		return &assistant.ResponseFormat{Type: r.responseFormat}
	}
}

// runRequestPayload mirrors the wire contract for run creation. Every key is
// fixed snake_case; absent optional fields are omitted entirely, never null.
type runRequestPayload struct {
	AssistantID            string                        `json:"assistant_id"`
	Model                  ModelID                       `json:"model,omitempty"`
	Instructions           string                        `json:"instructions,omitempty"`
	AdditionalInstructions string                        `json:"additional_instructions,omitempty"`
	AdditionalMessages     []assistant.Message           `json:"additional_messages,omitempty"`
	Tools                  []assistant.Tool              `json:"tools,omitempty"`
	Metadata               map[string]string             `json:"metadata,omitempty"`
	Temperature            *float64                      `json:"temperature,omitempty"`
	TopP                   *float64                      `json:"top_p,omitempty"`
	Stream                 bool                          `json:"stream,omitempty"`
	MaxPromptTokens        int64                         `json:"max_prompt_tokens,omitempty"`
	MaxCompletionTokens    int64                         `json:"max_completion_tokens,omitempty"`
	TruncationStrategy     *assistant.TruncationStrategy `json:"truncation_strategy,omitempty"`
	ToolChoice             *assistant.ToolChoice         `json:"tool_choice,omitempty"`
	ParallelToolCalls      *bool                         `json:"parallel_tool_calls,omitempty"`
	ResponseFormat         *assistant.ResponseFormat     `json:"response_format,omitempty"`
}

func (r RunRequest) payload() runRequestPayload {
	p := runRequestPayload{
		AssistantID:            r.assistantID,
		Model:                  r.model,
		Instructions:           r.instructions,
		AdditionalInstructions: r.additionalInstructions,
		AdditionalMessages:     r.additionalMessages,
		Tools:                  r.tools,
		Metadata:               r.metadata,
		Temperature:            r.temperature,
		TopP:                   r.topP,
		Stream:                 r.stream,
		MaxPromptTokens:        r.maxPromptTokens,
		MaxCompletionTokens:    r.maxCompletionTokens,
		TruncationStrategy:     r.truncation,
		ParallelToolCalls:      r.parallelToolCalls,
		ResponseFormat:         r.resolveResponseFormat(),
	}
	if !r.toolChoice.IsZero() {
		choice := r.toolChoice.Clone()
		p.ToolChoice = &choice
	}
	return p
}

// MarshalJSON serializes the request in its wire shape.
func (r RunRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.payload())
}

// UnknownToolChoiceError is returned when a tool choice names a function that
// none of the supplied tools provide.
type UnknownToolChoiceError struct {
	Choice    string
	Available []assistant.ToolName
}

func (e *UnknownToolChoiceError) Error() string {
	if len(e.Available) == 0 {
		return "invalid tool choice '" + e.Choice + "': no function tools supplied"
	}
	names := make([]string, len(e.Available))
	for i, name := range e.Available {
		names[i] = name.String()
	}
	return "invalid tool choice '" + e.Choice + "': no supplied tool matches. Available: " + strings.Join(names, ", ")
}

// resolveToolChoice maps the builder's raw choice string onto the wire union:
//
//   - no tools: unset (omitted from the payload), whatever the choice says
//   - empty choice, tools supplied: the "auto" literal
//   - "auto"/"none"/"required": passed through as the literal
//   - anything else: the first supplied tool whose function name contains the
//     string becomes a function reference; no match is an error
func resolveToolChoice(choice string, tools []assistant.Tool) (assistant.ToolChoice, error) {
	if len(tools) == 0 {
		return assistant.ToolChoice{}, nil
	}
	trimmed := strings.TrimSpace(choice)
	if trimmed == "" {
		return assistant.ToolChoice{Type: assistant.ToolChoiceAuto}, nil
	}
	switch assistant.ToolChoiceType(trimmed) {
	case assistant.ToolChoiceAuto, assistant.ToolChoiceNone, assistant.ToolChoiceRequired:
		return assistant.ToolChoice{Type: assistant.ToolChoiceType(trimmed)}, nil
	}
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		if strings.Contains(tool.Function.Name.String(), trimmed) {
			return assistant.FunctionChoice(tool.Function.Name), nil
		}
	}
	return assistant.ToolChoice{}, &UnknownToolChoiceError{Choice: trimmed, Available: functionNames(tools)}
}

func functionNames(tools []assistant.Tool) []assistant.ToolName {
	var names []assistant.ToolName
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		names = append(names, tool.Function.Name)
	}
	return names
}
