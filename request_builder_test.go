package sdk

import (
	"strings"
	"testing"

	"github.com/threadline/threadline/sdk/go/assistant"
)

func TestRunRequestBuilderRequiresAssistantID(t *testing.T) {
	for _, id := range []string{"", "   ", "\t\n"} {
		if _, err := NewRunRequestBuilder(id).Build(); err == nil {
			t.Fatalf("expected error for assistant id %q", id)
		}
	}

	req, err := NewRunRequestBuilder("  asst_1  ").Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.AssistantID() != "asst_1" {
		t.Fatalf("expected trimmed id, got %q", req.AssistantID())
	}
}

func TestRunRequestBuilderValidatesMessages(t *testing.T) {
	t.Run("empty content", func(t *testing.T) {
		_, err := NewRunRequestBuilder("asst_1").
			Message(assistant.Message{Role: assistant.RoleUser}).
			Build()
		if err == nil || !strings.Contains(err.Error(), "additional message 0") {
			t.Fatalf("expected message validation error, got %v", err)
		}
	})

	t.Run("bad role", func(t *testing.T) {
		_, err := NewRunRequestBuilder("asst_1").
			UserMessage("ok").
			Message(assistant.Message{Role: "system", Content: []assistant.ContentPart{assistant.TextPart("x")}}).
			Build()
		if err == nil || !strings.Contains(err.Error(), "additional message 1") {
			t.Fatalf("expected role validation error, got %v", err)
		}
	})

	t.Run("roles and order preserved", func(t *testing.T) {
		req, err := NewRunRequestBuilder("asst_1").
			UserMessage("question").
			AssistantMessage("prior answer").
			UserMessage("follow-up").
			Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		msgs := req.AdditionalMessages()
		if len(msgs) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(msgs))
		}
		if msgs[0].Role != assistant.RoleUser || msgs[1].Role != assistant.RoleAssistant || msgs[2].Role != assistant.RoleUser {
			t.Fatalf("unexpected roles %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
		}
	})
}

func TestRunRequestBuilderValidatesTools(t *testing.T) {
	t.Run("missing type", func(t *testing.T) {
		_, err := NewRunRequestBuilder("asst_1").
			Tool(assistant.Tool{Function: &assistant.FunctionTool{Name: "ok_tool"}}).
			Build()
		if err == nil || !strings.Contains(err.Error(), "type is required") {
			t.Fatalf("expected tool type error, got %v", err)
		}
	})

	t.Run("function tool without definition", func(t *testing.T) {
		_, err := NewRunRequestBuilder("asst_1").
			Tool(assistant.Tool{Type: assistant.ToolTypeFunction}).
			Build()
		if err == nil || !strings.Contains(err.Error(), "function definition is required") {
			t.Fatalf("expected function definition error, got %v", err)
		}
	})

	t.Run("invalid function name", func(t *testing.T) {
		_, err := NewRunRequestBuilder("asst_1").
			Tool(assistant.Tool{
				Type:     assistant.ToolTypeFunction,
				Function: &assistant.FunctionTool{Name: "Get Weather"},
			}).
			Build()
		if err == nil || !strings.Contains(err.Error(), "tool 0") {
			t.Fatalf("expected tool name error, got %v", err)
		}
	})
}

func TestRunRequestBuilderValidatesTruncation(t *testing.T) {
	t.Run("auto rejects last_messages", func(t *testing.T) {
		n := 5
		_, err := NewRunRequestBuilder("asst_1").
			Truncation(assistant.TruncationStrategy{Type: assistant.TruncationAuto, LastMessages: &n}).
			Build()
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("last_messages requires positive count", func(t *testing.T) {
		zero := 0
		_, err := NewRunRequestBuilder("asst_1").
			Truncation(assistant.TruncationStrategy{Type: assistant.TruncationLastMessages, LastMessages: &zero}).
			Build()
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("valid strategies pass", func(t *testing.T) {
		if _, err := NewRunRequestBuilder("asst_1").Truncation(*assistant.NewAutoTruncation()).Build(); err != nil {
			t.Fatalf("auto: %v", err)
		}
		if _, err := NewRunRequestBuilder("asst_1").Truncation(*assistant.NewLastMessagesTruncation(3)).Build(); err != nil {
			t.Fatalf("last_messages: %v", err)
		}
	})
}

func TestRunRequestBuilderMetadata(t *testing.T) {
	t.Run("entry skips empty key or value", func(t *testing.T) {
		req, err := NewRunRequestBuilder("asst_1").
			MetadataEntry("", "value").
			MetadataEntry("key", "").
			MetadataEntry("env", "prod").
			Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		metadata := req.Metadata()
		if len(metadata) != 1 || metadata["env"] != "prod" {
			t.Fatalf("unexpected metadata %v", metadata)
		}
	})

	t.Run("map is copied at build time", func(t *testing.T) {
		source := map[string]string{"env": "prod"}
		req, err := NewRunRequestBuilder("asst_1").Metadata(source).Build()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
		source["env"] = "changed"
		if req.Metadata()["env"] != "prod" {
			t.Fatal("builder map leaked into built request")
		}
	})
}

func TestRunRequestBuilderCopiesSamplingPointers(t *testing.T) {
	builder := NewRunRequestBuilder("asst_1").Temperature(0.2).TopP(0.8)
	first, err := builder.Build()
	if err != nil {
		t.Fatalf("build first: %v", err)
	}
	second, err := builder.Temperature(1.5).Build()
	if err != nil {
		t.Fatalf("build second: %v", err)
	}

	if got := *first.Temperature(); got != 0.2 {
		t.Fatalf("first request temperature changed: %v", got)
	}
	if got := *second.Temperature(); got != 1.5 {
		t.Fatalf("second request temperature wrong: %v", got)
	}
	if got := *first.TopP(); got != 0.8 {
		t.Fatalf("unexpected top_p %v", got)
	}
}
