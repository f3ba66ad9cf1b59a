package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/threadline/threadline/sdk/go/assistant"
)

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/runs" && r.Method == http.MethodPost:
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if payload["assistant_id"] != "asst_1" {
				t.Fatalf("unexpected assistant_id %v", payload["assistant_id"])
			}
			if payload["instructions"] != "Answer with a bare number." {
				t.Fatalf("unexpected instructions %v", payload["instructions"])
			}
			thread := payload["thread"].(map[string]any)
			messages := thread["messages"].([]any)
			first := messages[0].(map[string]any)
			content := first["content"].([]any)
			part := content[0].(map[string]any)
			if part["text"] != "What is 2 + 2?" {
				t.Fatalf("unexpected prompt %v", part["text"])
			}
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_new", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_new/runs/run_1" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_new", "assistant_id": "asst_1", "status": "completed"}`)
		case r.URL.Path == "/threads/thr_new/messages" && r.Method == http.MethodGet:
			if got := r.URL.Query().Get("run_id"); got != "run_1" {
				t.Fatalf("unexpected run_id filter %q", got)
			}
			fmt.Fprint(w, `{
				"object": "list",
				"data": [{"id": "msg_1", "thread_id": "thr_new", "role": "assistant", "run_id": "run_1", "content": [{"type": "text", "text": {"value": "4"}}]}],
				"has_more": false
			}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	answer, err := client.Ask(context.Background(), "asst_1", "What is 2 + 2?", &AskOptions{
		Instructions: "Answer with a bare number.",
	})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "4" {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestAskRequiresPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	_, err := client.Ask(context.Background(), "asst_1", "   ", nil)
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestAskRejectsToolRequiringAssistant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/runs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_new", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_new/runs/run_1" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{
				"id": "run_1",
				"thread_id": "thr_new",
				"assistant_id": "asst_1",
				"status": "requires_action",
				"required_action": {
					"type": "submit_tool_outputs",
					"submit_tool_outputs": {"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{}"}}]}
				}
			}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	_, err := client.Ask(context.Background(), "asst_1", "weather?", nil)
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(cfgErr.Reason, "RunWithTools") {
		t.Fatalf("unexpected reason %q", cfgErr.Reason)
	}
}

func TestRunWithTools(t *testing.T) {
	submitted := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/thr_1/runs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1" && r.Method == http.MethodGet:
			if submitted {
				fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "completed", "usage": {"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52}}`)
				return
			}
			fmt.Fprint(w, `{
				"id": "run_1",
				"thread_id": "thr_1",
				"assistant_id": "asst_1",
				"status": "requires_action",
				"required_action": {
					"type": "submit_tool_outputs",
					"submit_tool_outputs": {
						"tool_calls": [
							{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\": \"Oslo\"}"}},
							{"id": "call_2", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\": \"Bergen\"}"}}
						]
					}
				}
			}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1/submit_tool_outputs" && r.Method == http.MethodPost:
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			outputs := payload["tool_outputs"].([]any)
			if len(outputs) != 2 {
				t.Fatalf("expected 2 outputs, got %d", len(outputs))
			}
			first := outputs[0].(map[string]any)
			if first["tool_call_id"] != "call_1" || !strings.Contains(first["output"].(string), "Oslo") {
				t.Fatalf("unexpected output %v", first)
			}
			submitted = true
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "in_progress"}`)
		case r.URL.Path == "/threads/thr_1/messages" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{
				"object": "list",
				"data": [{"id": "msg_1", "thread_id": "thr_1", "role": "assistant", "run_id": "run_1", "content": [{"type": "text", "text": {"value": "Oslo is colder than Bergen."}}]}],
				"has_more": false
			}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	registry := NewToolRegistry().
		Register("get_weather", func(ctx context.Context, args map[string]any, call assistant.ToolCall) (any, error) {
			return map[string]any{"city": args["city"], "temp": 5}, nil
		})

	request, err := NewRunRequestBuilder("asst_1").Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	result, err := client.RunWithTools(context.Background(), "thr_1", request, RunWithToolsOptions{Registry: registry})
	if err != nil {
		t.Fatalf("run with tools: %v", err)
	}
	if result.Output != "Oslo is colder than Bergen." {
		t.Fatalf("unexpected output %q", result.Output)
	}
	if result.ToolCalls != 2 {
		t.Fatalf("expected 2 tool calls, got %d", result.ToolCalls)
	}
	if result.Submissions != 1 {
		t.Fatalf("expected 1 submission, got %d", result.Submissions)
	}
	if result.Run.Usage == nil || result.Run.Usage.TotalTokens != 52 {
		t.Fatalf("unexpected usage %+v", result.Run.Usage)
	}
}

func TestRunWithToolsRequiresRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	request, err := NewRunRequestBuilder("asst_1").Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	_, err = client.RunWithTools(context.Background(), "thr_1", request, RunWithToolsOptions{})
	var cfgErr ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestRunWithToolsMaxTurns(t *testing.T) {
	cancelled := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/thr_1/runs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1" && r.Method == http.MethodGet:
			// The run keeps asking for more tool outputs.
			fmt.Fprint(w, `{
				"id": "run_1",
				"thread_id": "thr_1",
				"assistant_id": "asst_1",
				"status": "requires_action",
				"required_action": {
					"type": "submit_tool_outputs",
					"submit_tool_outputs": {"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "step", "arguments": "{}"}}]}
				}
			}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1/submit_tool_outputs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "in_progress"}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1/cancel" && r.Method == http.MethodPost:
			cancelled = true
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "cancelling"}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	registry := NewToolRegistry().
		Register("step", func(ctx context.Context, args map[string]any, call assistant.ToolCall) (any, error) {
			return "ok", nil
		})

	request, err := NewRunRequestBuilder("asst_1").Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	_, err = client.RunWithTools(context.Background(), "thr_1", request, RunWithToolsOptions{
		Registry: registry,
		MaxTurns: 1,
	})
	var turnsErr MaxTurnsError
	if !errors.As(err, &turnsErr) {
		t.Fatalf("expected MaxTurnsError, got %v", err)
	}
	if turnsErr.MaxTurns != 1 || turnsErr.ToolCalls != 1 {
		t.Fatalf("unexpected error fields %+v", turnsErr)
	}
	if turnsErr.LastRun == nil || turnsErr.LastRun.Status != RunStatusRequiresAction {
		t.Fatalf("unexpected last run %+v", turnsErr.LastRun)
	}
	if !cancelled {
		t.Fatal("expected the stuck run to be cancelled")
	}
}

func TestRunWithToolsSurfacesRunFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/thr_1/runs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "expired"}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	registry := NewToolRegistry()
	request, err := NewRunRequestBuilder("asst_1").Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	_, err = client.RunWithTools(context.Background(), "thr_1", request, RunWithToolsOptions{Registry: registry})
	var failedErr RunFailedError
	if !errors.As(err, &failedErr) {
		t.Fatalf("expected RunFailedError, got %v", err)
	}
	if failedErr.Run.Status != RunStatusExpired {
		t.Fatalf("unexpected status %q", failedErr.Run.Status)
	}
}

func TestRunWithToolsRejectsEmptyActionList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/thr_1/runs" && r.Method == http.MethodPost:
			fmt.Fprint(w, `{"id": "run_1", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "queued"}`)
		case r.URL.Path == "/threads/thr_1/runs/run_1" && r.Method == http.MethodGet:
			fmt.Fprint(w, `{
				"id": "run_1",
				"thread_id": "thr_1",
				"assistant_id": "asst_1",
				"status": "requires_action",
				"required_action": {"type": "submit_tool_outputs", "submit_tool_outputs": {"tool_calls": []}}
			}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	registry := NewToolRegistry()
	request, err := NewRunRequestBuilder("asst_1").Build()
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	_, err = client.RunWithTools(context.Background(), "thr_1", request, RunWithToolsOptions{Registry: registry})
	var protoErr ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}
