package assistant

import (
	"bytes"
	"encoding/json"
)

// MessageRole identifies the author of a thread message.
type MessageRole string

const (
	// RoleUser identifies input from the human.
	RoleUser MessageRole = "user"
	// RoleAssistant identifies output produced by the assistant.
	RoleAssistant MessageRole = "assistant"
)

type ContentPartType string

const (
	ContentPartTypeText     ContentPartType = "text"
	ContentPartTypeImageURL ContentPartType = "image_url"
)

// ContentPart represents one chunk of message content.
type ContentPart struct {
	Type     ContentPartType `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *ImageURL       `json:"image_url,omitempty"`
}

// ImageURL references an externally hosted image.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func TextPart(text string) ContentPart {
	return ContentPart{Type: ContentPartTypeText, Text: text}
}

func ImagePart(url string) ContentPart {
	return ContentPart{Type: ContentPartTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// Message is a thread message supplied alongside a run or thread creation.
//
// Only user and assistant roles are accepted here; system-level guidance
// belongs in the assistant's instructions.
type Message struct {
	Role     MessageRole       `json:"role"`
	Content  []ContentPart     `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate returns an error when the message breaks the wire contract.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return NewValidationError("message role must be %q or %q, got %q", RoleUser, RoleAssistant, m.Role)
	}
	if len(m.Content) == 0 {
		return NewValidationError("message content is required")
	}
	return nil
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Content != nil {
		out.Content = make([]ContentPart, len(m.Content))
		for i, part := range m.Content {
			out.Content[i] = part
			if part.ImageURL != nil {
				img := *part.ImageURL
				out.Content[i].ImageURL = &img
			}
		}
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextPart(text)}}
}

// ToolType identifies the kind of tool.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
)

// Tool represents a tool the assistant may invoke during a run.
// Today only function tools are supported; additional tool types are additive.
type Tool struct {
	Type     ToolType      `json:"type"`
	Function *FunctionTool `json:"function,omitempty"`
}

// FunctionTool defines a custom function the assistant can call.
type FunctionTool struct {
	Name        ToolName        `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
	// Arguments carries the call payload when this value doubles as an
	// invocation record (e.g. echoed back from a previous turn). Run creation
	// clears it so stale arguments are never sent with a tool definition.
	Arguments string `json:"arguments,omitempty"`
}

// Clone returns a deep copy of the tool.
func (t Tool) Clone() Tool {
	out := t
	if t.Function != nil {
		fn := t.Function.Clone()
		out.Function = &fn
	}
	return out
}

// Clone returns a deep copy of the function definition.
func (f FunctionTool) Clone() FunctionTool {
	out := f
	if f.Parameters != nil {
		out.Parameters = append(json.RawMessage(nil), f.Parameters...)
	}
	return out
}

// ToolChoiceType controls when the assistant should use tools.
type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceRequired ToolChoiceType = "required"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceFunction ToolChoiceType = "function"
)

// ToolChoice constrains how the assistant selects tools for a run.
//
// It is a tagged union with three wire shapes: the zero value (unset, omitted
// from payloads), a bare string literal ("auto", "none", "required"), and a
// function reference object that pins a specific tool.
type ToolChoice struct {
	Type     ToolChoiceType
	Function *ToolName
}

// IsZero reports whether the choice is unset.
func (c ToolChoice) IsZero() bool {
	return c.Type == "" && c.Function == nil
}

// Clone returns a copy of the choice.
func (c ToolChoice) Clone() ToolChoice {
	out := c
	if c.Function != nil {
		name := *c.Function
		out.Function = &name
	}
	return out
}

// FunctionChoice pins the run to a specific function tool.
func FunctionChoice(name ToolName) ToolChoice {
	return ToolChoice{Type: ToolChoiceFunction, Function: &name}
}

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case "":
		return []byte("null"), nil
	case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired:
		return json.Marshal(string(c.Type))
	case ToolChoiceFunction:
		if c.Function == nil {
			return nil, NewValidationError("function tool choice requires a function name")
		}
		payload := struct {
			Type     ToolChoiceType `json:"type"`
			Function struct {
				Name ToolName `json:"name"`
			} `json:"function"`
		}{Type: ToolChoiceFunction}
		payload.Function.Name = *c.Function
		return json.Marshal(payload)
	default:
		return nil, NewValidationError("unknown tool choice type %q", c.Type)
	}
}

func (c *ToolChoice) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*c = ToolChoice{}
		return nil
	}
	if trimmed[0] == '"' {
		var literal string
		if err := json.Unmarshal(trimmed, &literal); err != nil {
			return err
		}
		switch ToolChoiceType(literal) {
		case ToolChoiceAuto, ToolChoiceNone, ToolChoiceRequired:
			*c = ToolChoice{Type: ToolChoiceType(literal)}
			return nil
		default:
			return NewValidationError("unknown tool choice literal %q", literal)
		}
	}
	var payload struct {
		Type     ToolChoiceType `json:"type"`
		Function *struct {
			Name ToolName `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return err
	}
	if payload.Type != ToolChoiceFunction || payload.Function == nil {
		return NewValidationError("tool choice object must have type %q and a function name", ToolChoiceFunction)
	}
	name := payload.Function.Name
	*c = ToolChoice{Type: ToolChoiceFunction, Function: &name}
	return nil
}

// ToolCall represents a tool invocation requested by the assistant.
type ToolCall struct {
	ID       ToolCallID    `json:"id"`
	Type     ToolType      `json:"type"`
	Function *FunctionCall `json:"function,omitempty"`
}

// FunctionCall contains function invocation details.
type FunctionCall struct {
	Name      ToolName `json:"name"`
	Arguments string   `json:"arguments"` // JSON string
}

// NewToolCall creates a function tool call.
func NewToolCall(id ToolCallID, name ToolName, args string) ToolCall {
	return ToolCall{
		ID:       id,
		Type:     ToolTypeFunction,
		Function: &FunctionCall{Name: name, Arguments: args},
	}
}

// ToolOutput is the result of executing one tool call, submitted back to a
// run paused in requires_action.
type ToolOutput struct {
	ToolCallID ToolCallID `json:"tool_call_id"`
	Output     string     `json:"output"`
}

// ResponseFormatType captures the supported response format options.
type ResponseFormatType string

const (
	ResponseFormatTypeText       ResponseFormatType = "text"
	ResponseFormatTypeJSONObject ResponseFormatType = "json_object"
	ResponseFormatTypeJSONSchema ResponseFormatType = "json_schema"
)

// JSONSchemaFormat models the json_schema payload for structured outputs.
type JSONSchemaFormat struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Strict      *bool           `json:"strict,omitempty"`
}

// Clone returns a deep copy of the format.
func (f JSONSchemaFormat) Clone() JSONSchemaFormat {
	out := f
	if f.Schema != nil {
		out.Schema = append(json.RawMessage(nil), f.Schema...)
	}
	if f.Strict != nil {
		strict := *f.Strict
		out.Strict = &strict
	}
	return out
}

// ResponseFormat configures how the assistant must shape its reply.
type ResponseFormat struct {
	Type       ResponseFormatType `json:"type"`
	JSONSchema *JSONSchemaFormat  `json:"json_schema,omitempty"`
}

// IsStructured reports whether the format requires structured output handling.
func (f *ResponseFormat) IsStructured() bool {
	if f == nil {
		return false
	}
	return f.Type == ResponseFormatTypeJSONSchema
}

// Clone returns a deep copy of the format.
func (f ResponseFormat) Clone() ResponseFormat {
	out := f
	if f.JSONSchema != nil {
		schema := f.JSONSchema.Clone()
		out.JSONSchema = &schema
	}
	return out
}

// TruncationType selects the strategy for dropping old thread context.
type TruncationType string

const (
	TruncationAuto         TruncationType = "auto"
	TruncationLastMessages TruncationType = "last_messages"
)

// TruncationStrategy controls how a thread is truncated before a run when it
// exceeds the context window.
type TruncationStrategy struct {
	Type         TruncationType `json:"type"`
	LastMessages *int           `json:"last_messages,omitempty"`
}

// NewAutoTruncation lets the platform decide which messages to drop.
func NewAutoTruncation() *TruncationStrategy {
	return &TruncationStrategy{Type: TruncationAuto}
}

// NewLastMessagesTruncation keeps only the n most recent messages.
func NewLastMessagesTruncation(n int) *TruncationStrategy {
	return &TruncationStrategy{Type: TruncationLastMessages, LastMessages: &n}
}

// Validate returns an error when the strategy breaks the wire contract.
func (t TruncationStrategy) Validate() error {
	switch t.Type {
	case TruncationAuto:
		if t.LastMessages != nil {
			return NewValidationError("auto truncation must not set last_messages")
		}
	case TruncationLastMessages:
		if t.LastMessages == nil || *t.LastMessages < 1 {
			return NewValidationError("last_messages truncation requires last_messages >= 1")
		}
	default:
		return NewValidationError("unknown truncation type %q", t.Type)
	}
	return nil
}

// Clone returns a deep copy of the strategy.
func (t TruncationStrategy) Clone() TruncationStrategy {
	out := t
	if t.LastMessages != nil {
		n := *t.LastMessages
		out.LastMessages = &n
	}
	return out
}

// Usage provides token accounting for a completed run or run step.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// NewUsage creates a Usage with auto-calculated total if zero.
func NewUsage(prompt, completion, total int64) Usage {
	if total == 0 {
		total = prompt + completion
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      total,
	}
}
