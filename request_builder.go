package sdk

import (
	"fmt"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
)

// NewRunRequest constructs a validated minimal request for the given
// assistant. Use RunRequestBuilder when the run needs more than defaults.
func NewRunRequest(assistantID string) (RunRequest, error) {
	return NewRunRequestBuilder(assistantID).Build()
}

// RunRequestBuilder provides a fluent builder with validation. Build resolves
// the tool choice and response format and returns an immutable RunRequest;
// the builder can be reused or discarded afterwards without affecting
// previously built requests.
type RunRequestBuilder struct {
	assistantID            string
	model                  ModelID
	instructions           string
	additionalInstructions string
	additionalMessages     []assistant.Message
	tools                  []assistant.Tool
	metadata               map[string]string
	temperature            *float64
	topP                   *float64
	maxPromptTokens        int64
	maxCompletionTokens    int64
	truncation             *assistant.TruncationStrategy
	toolChoice             string
	parallelToolCalls      *bool
	responseFormat         assistant.ResponseFormatType
	jsonSchema             *assistant.JSONSchemaFormat
}

// NewRunRequestBuilder seeds the builder with the assistant that will execute
// the run.
func NewRunRequestBuilder(assistantID string) *RunRequestBuilder {
	return &RunRequestBuilder{assistantID: assistantID}
}

// Model overrides the assistant's configured model for this run.
func (b *RunRequestBuilder) Model(model ModelID) *RunRequestBuilder {
	b.model = model
	return b
}

// Instructions replaces the assistant's instructions for this run.
func (b *RunRequestBuilder) Instructions(instructions string) *RunRequestBuilder {
	b.instructions = instructions
	return b
}

// AdditionalInstructions appends text to the assistant's instructions without
// replacing them.
func (b *RunRequestBuilder) AdditionalInstructions(instructions string) *RunRequestBuilder {
	b.additionalInstructions = instructions
	return b
}

// Message appends a message to add to the thread before the run starts.
func (b *RunRequestBuilder) Message(msg assistant.Message) *RunRequestBuilder {
	b.additionalMessages = append(b.additionalMessages, msg)
	return b
}

// UserMessage appends a plain-text user message.
func (b *RunRequestBuilder) UserMessage(text string) *RunRequestBuilder {
	return b.Message(assistant.NewUserMessage(text))
}

// AssistantMessage appends a plain-text assistant message.
func (b *RunRequestBuilder) AssistantMessage(text string) *RunRequestBuilder {
	return b.Message(assistant.NewAssistantMessage(text))
}

// Messages replaces the additional message list.
func (b *RunRequestBuilder) Messages(msgs []assistant.Message) *RunRequestBuilder {
	b.additionalMessages = msgs
	return b
}

// Tool appends a tool the run may invoke.
func (b *RunRequestBuilder) Tool(tool assistant.Tool) *RunRequestBuilder {
	b.tools = append(b.tools, tool)
	return b
}

// Tools replaces the tool list.
func (b *RunRequestBuilder) Tools(tools []assistant.Tool) *RunRequestBuilder {
	b.tools = tools
	return b
}

// Metadata sets the metadata map. The API allows at most sixteen entries,
// keys up to 64 characters and values up to 512; limits are enforced
// server-side, not here.
func (b *RunRequestBuilder) Metadata(metadata map[string]string) *RunRequestBuilder {
	b.metadata = metadata
	return b
}

// MetadataEntry adds a single metadata key/value.
func (b *RunRequestBuilder) MetadataEntry(key, value string) *RunRequestBuilder {
	if key == "" || value == "" {
		return b
	}
	if b.metadata == nil {
		b.metadata = make(map[string]string)
	}
	b.metadata[key] = value
	return b
}

// Temperature sets the sampling temperature. The API accepts values in
// [0, 2]; the range is enforced server-side, not here.
func (b *RunRequestBuilder) Temperature(temp float64) *RunRequestBuilder {
	b.temperature = &temp
	return b
}

// TopP sets the nucleus sampling cutoff. The API accepts values in [0, 1];
// the range is enforced server-side, not here.
func (b *RunRequestBuilder) TopP(topP float64) *RunRequestBuilder {
	b.topP = &topP
	return b
}

// MaxPromptTokens caps the prompt tokens the run may consume across turns.
func (b *RunRequestBuilder) MaxPromptTokens(max int64) *RunRequestBuilder {
	b.maxPromptTokens = max
	return b
}

// MaxCompletionTokens caps the completion tokens the run may produce across
// turns.
func (b *RunRequestBuilder) MaxCompletionTokens(max int64) *RunRequestBuilder {
	b.maxCompletionTokens = max
	return b
}

// Truncation sets the strategy for dropping thread history when the context
// window fills.
func (b *RunRequestBuilder) Truncation(strategy assistant.TruncationStrategy) *RunRequestBuilder {
	b.truncation = &strategy
	return b
}

// ToolChoice steers tool selection. Accepts the "auto", "none" and "required"
// literals, or any fragment of a supplied tool's function name: Build resolves
// the fragment to the first tool whose name contains it and fails when none
// does. Leave empty to let Build pick the default.
func (b *RunRequestBuilder) ToolChoice(choice string) *RunRequestBuilder {
	b.toolChoice = choice
	return b
}

// ParallelToolCalls controls whether the model may request several tool calls
// in one turn.
func (b *RunRequestBuilder) ParallelToolCalls(enabled bool) *RunRequestBuilder {
	b.parallelToolCalls = &enabled
	return b
}

// ResponseFormat sets the enumerated response format. Plain text is the
// default and is omitted from the payload.
func (b *RunRequestBuilder) ResponseFormat(format assistant.ResponseFormatType) *RunRequestBuilder {
	b.responseFormat = format
	return b
}

// JSONSchema constrains the response to a JSON schema. Takes precedence over
// ResponseFormat when both are set.
func (b *RunRequestBuilder) JSONSchema(schema assistant.JSONSchemaFormat) *RunRequestBuilder {
	b.jsonSchema = &schema
	return b
}

// Build validates the staged fields, resolves the tool choice and response
// format, and returns the immutable request. Supplied tools and messages are
// deep-copied so later edits to the caller's values cannot leak in; any tool
// carrying stale call arguments has them cleared on the copy.
func (b *RunRequestBuilder) Build() (RunRequest, error) {
	assistantID := strings.TrimSpace(b.assistantID)
	if assistantID == "" {
		return RunRequest{}, fmt.Errorf("assistant id is required")
	}

	var messages []assistant.Message
	if b.additionalMessages != nil {
		messages = make([]assistant.Message, len(b.additionalMessages))
		for i, msg := range b.additionalMessages {
			if err := msg.Validate(); err != nil {
				return RunRequest{}, fmt.Errorf("additional message %d: %w", i, err)
			}
			messages[i] = msg.Clone()
		}
	}

	var tools []assistant.Tool
	if b.tools != nil {
		tools = make([]assistant.Tool, len(b.tools))
		for i, tool := range b.tools {
			if tool.Type == "" {
				return RunRequest{}, fmt.Errorf("tool %d: type is required", i)
			}
			if tool.Type == assistant.ToolTypeFunction {
				if tool.Function == nil {
					return RunRequest{}, fmt.Errorf("tool %d: function definition is required", i)
				}
				if err := tool.Function.Name.Validate(); err != nil {
					return RunRequest{}, fmt.Errorf("tool %d: %w", i, err)
				}
			}
			clone := tool.Clone()
			if clone.Function != nil {
				clone.Function.Arguments = ""
			}
			tools[i] = clone
		}
	}

	choice, err := resolveToolChoice(b.toolChoice, tools)
	if err != nil {
		return RunRequest{}, err
	}

	var truncation *assistant.TruncationStrategy
	if b.truncation != nil {
		if err := b.truncation.Validate(); err != nil {
			return RunRequest{}, err
		}
		t := b.truncation.Clone()
		truncation = &t
	}

	var jsonSchema *assistant.JSONSchemaFormat
	if b.jsonSchema != nil {
		if strings.TrimSpace(b.jsonSchema.Name) == "" {
			return RunRequest{}, fmt.Errorf("json schema name is required")
		}
		s := b.jsonSchema.Clone()
		jsonSchema = &s
	}

	var metadata map[string]string
	if b.metadata != nil {
		metadata = make(map[string]string, len(b.metadata))
		for k, v := range b.metadata {
			metadata[k] = v
		}
	}

	return RunRequest{
		assistantID:            assistantID,
		model:                  b.model,
		instructions:           b.instructions,
		additionalInstructions: b.additionalInstructions,
		additionalMessages:     messages,
		tools:                  tools,
		metadata:               metadata,
		temperature:            copyFloat(b.temperature),
		topP:                   copyFloat(b.topP),
		maxPromptTokens:        b.maxPromptTokens,
		maxCompletionTokens:    b.maxCompletionTokens,
		truncation:             truncation,
		toolChoice:             choice,
		parallelToolCalls:      copyBool(b.parallelToolCalls),
		responseFormat:         b.responseFormat,
		jsonSchema:             jsonSchema,
	}, nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
