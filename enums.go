package sdk

import (
	"encoding/json"
	"strings"
)

// RunStatus encodes the lifecycle state of a run.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusIncomplete     RunStatus = "incomplete"
	RunStatusExpired        RunStatus = "expired"
)

// ParseRunStatus normalizes known statuses while keeping unrecognized values.
func ParseRunStatus(val string) RunStatus {
	normalized := strings.TrimSpace(strings.ToLower(val))
	switch normalized {
	case "":
		return ""
	case "queued":
		return RunStatusQueued
	case "in_progress":
		return RunStatusInProgress
	case "requires_action":
		return RunStatusRequiresAction
	case "cancelling", "canceling":
		return RunStatusCancelling
	case "cancelled", "canceled":
		return RunStatusCancelled
	case "failed":
		return RunStatusFailed
	case "completed":
		return RunStatusCompleted
	case "incomplete":
		return RunStatusIncomplete
	case "expired":
		return RunStatusExpired
	default:
		return RunStatus(val)
	}
}

// IsTerminal reports whether the run has reached a final state.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCancelled, RunStatusFailed, RunStatusCompleted, RunStatusIncomplete, RunStatusExpired:
		return true
	default:
		return false
	}
}

// IsOther reports whether the value is not one of the known constants.
func (s RunStatus) IsOther() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling,
		RunStatusCancelled, RunStatusFailed, RunStatusCompleted, RunStatusIncomplete, RunStatusExpired:
		return false
	default:
		return strings.TrimSpace(string(s)) != ""
	}
}

func (s RunStatus) String() string {
	return string(s)
}

func (s RunStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *RunStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseRunStatus(raw)
	return nil
}

// RunStepStatus encodes the lifecycle state of a single run step.
type RunStepStatus string

const (
	RunStepStatusInProgress RunStepStatus = "in_progress"
	RunStepStatusCancelled  RunStepStatus = "cancelled"
	RunStepStatusFailed     RunStepStatus = "failed"
	RunStepStatusCompleted  RunStepStatus = "completed"
	RunStepStatusExpired    RunStepStatus = "expired"
)

// ParseRunStepStatus normalizes known step statuses while keeping unrecognized values.
func ParseRunStepStatus(val string) RunStepStatus {
	normalized := strings.TrimSpace(strings.ToLower(val))
	switch normalized {
	case "":
		return ""
	case "in_progress":
		return RunStepStatusInProgress
	case "cancelled", "canceled":
		return RunStepStatusCancelled
	case "failed":
		return RunStepStatusFailed
	case "completed":
		return RunStepStatusCompleted
	case "expired":
		return RunStepStatusExpired
	default:
		return RunStepStatus(val)
	}
}

// IsTerminal reports whether the step has reached a final state.
func (s RunStepStatus) IsTerminal() bool {
	switch s {
	case RunStepStatusCancelled, RunStepStatusFailed, RunStepStatusCompleted, RunStepStatusExpired:
		return true
	default:
		return false
	}
}

func (s RunStepStatus) String() string {
	return string(s)
}

func (s RunStepStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

func (s *RunStepStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseRunStepStatus(raw)
	return nil
}

// ModelID enumerates common model identifiers while allowing arbitrary ids.
type ModelID string

const (
	ModelOpenAIGPT4o                   ModelID = "openai/gpt-4o"
	ModelOpenAIGPT4oMini               ModelID = "openai/gpt-4o-mini"
	ModelOpenAIGPT51                   ModelID = "openai/gpt-5.1"
	ModelAnthropicClaude35HaikuLatest  ModelID = "anthropic/claude-3-5-haiku-latest"
	ModelAnthropicClaude35SonnetLatest ModelID = "anthropic/claude-3-5-sonnet-latest"
	ModelEcho1                         ModelID = "echo-1"
)

// NewModelID wraps a raw model identifier without validation.
func NewModelID(raw string) ModelID {
	return ModelID(strings.TrimSpace(raw))
}

// ParseModelID normalizes well-known models and preserves custom identifiers.
func ParseModelID(val string) ModelID {
	trimmed := strings.TrimSpace(val)
	switch strings.ToLower(trimmed) {
	case "":
		return ""
	case "openai/gpt-4o":
		return ModelOpenAIGPT4o
	case "openai/gpt-4o-mini":
		return ModelOpenAIGPT4oMini
	case "openai/gpt-5.1":
		return ModelOpenAIGPT51
	case "anthropic/claude-3-5-haiku-latest":
		return ModelAnthropicClaude35HaikuLatest
	case "anthropic/claude-3-5-sonnet-latest":
		return ModelAnthropicClaude35SonnetLatest
	case "echo-1":
		return ModelEcho1
	default:
		return ModelID(trimmed)
	}
}

// IsOther reports whether the model is not one of the built-in constants.
func (m ModelID) IsOther() bool {
	switch m {
	case ModelOpenAIGPT4o, ModelOpenAIGPT4oMini, ModelOpenAIGPT51,
		ModelAnthropicClaude35HaikuLatest, ModelAnthropicClaude35SonnetLatest, ModelEcho1:
		return false
	default:
		return strings.TrimSpace(string(m)) != ""
	}
}

// IsEmpty reports whether the model was left blank.
func (m ModelID) IsEmpty() bool {
	return strings.TrimSpace(string(m)) == ""
}

func (m ModelID) String() string {
	return string(m)
}

func (m ModelID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

func (m *ModelID) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ParseModelID(raw)
	return nil
}
