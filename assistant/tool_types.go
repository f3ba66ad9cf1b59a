package assistant

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const (
	maxToolNameBytes   = 128
	maxToolCallIDBytes = 1024
)

// Dot-separated segments, each starting with a lowercase letter.
var toolNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// ToolName identifies a function tool. Names are lowercase segments of
// letters, digits and underscores, optionally joined by dots ("get_weather",
// "fs.search"), and at most 128 bytes.
type ToolName string

// ParseToolName checks raw against the tool name grammar.
func ParseToolName(raw string) (ToolName, error) {
	n := ToolName(raw)
	if err := n.Validate(); err != nil {
		return "", err
	}
	return n, nil
}

func (n ToolName) String() string { return string(n) }

func (n ToolName) Validate() error {
	if err := validateWireID("tool name", string(n), maxToolNameBytes); err != nil {
		return err
	}
	if !toolNameRe.MatchString(string(n)) {
		return fmt.Errorf("malformed tool name %q", string(n))
	}
	return nil
}

func (n *ToolName) UnmarshalJSON(data []byte) error {
	return unmarshalParsed(data, ParseToolName, n)
}

// ToolCallID correlates a tool invocation requested by a run with the output
// submitted for it. The server assigns it; clients pass it back unchanged.
type ToolCallID string

// ParseToolCallID checks raw is usable as a tool call id.
func ParseToolCallID(raw string) (ToolCallID, error) {
	id := ToolCallID(raw)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

func (id ToolCallID) String() string { return string(id) }

func (id ToolCallID) Validate() error {
	return validateWireID("tool call id", string(id), maxToolCallIDBytes)
}

func (id *ToolCallID) UnmarshalJSON(data []byte) error {
	return unmarshalParsed(data, ParseToolCallID, id)
}

// validateWireID applies the checks shared by identifiers sent on the wire.
func validateWireID(what, raw string, maxBytes int) error {
	if raw == "" {
		return fmt.Errorf("%s is required", what)
	}
	if len(raw) > maxBytes {
		return fmt.Errorf("%s exceeds %d bytes", what, maxBytes)
	}
	if strings.ContainsFunc(raw, unicode.IsSpace) {
		return fmt.Errorf("%s must not contain whitespace", what)
	}
	return nil
}

func unmarshalParsed[T ~string](data []byte, parse func(string) (T, error), out *T) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := parse(raw)
	if err != nil {
		return err
	}
	*out = v
	return nil
}
