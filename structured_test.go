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

type person struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// structuredServer simulates the run lifecycle for structured output tests:
// each created run completes immediately, and the message a run "wrote" is
// looked up by run id.
func structuredServer(t *testing.T, messagesByRun map[string]string, feedback *[]string) *httptest.Server {
	t.Helper()
	runCount := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/threads/thr_1/runs" && r.Method == http.MethodPost:
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			rf, ok := payload["response_format"].(map[string]any)
			if !ok {
				t.Fatalf("missing response_format in %v", payload)
			}
			js, ok := rf["json_schema"].(map[string]any)
			if !ok || js["strict"] != true {
				t.Fatalf("unexpected json_schema %v", rf["json_schema"])
			}
			runCount++
			fmt.Fprintf(w, `{"id": "run_%d", "thread_id": "thr_1", "assistant_id": "asst_1", "status": "queued"}`, runCount)
		case strings.HasPrefix(r.URL.Path, "/threads/thr_1/runs/") && r.Method == http.MethodGet:
			runID := strings.TrimPrefix(r.URL.Path, "/threads/thr_1/runs/")
			fmt.Fprintf(w, `{"id": %q, "thread_id": "thr_1", "assistant_id": "asst_1", "status": "completed"}`, runID)
		case r.URL.Path == "/threads/thr_1/messages" && r.Method == http.MethodGet:
			runID := r.URL.Query().Get("run_id")
			raw, ok := messagesByRun[runID]
			if !ok {
				t.Fatalf("no message configured for run %q", runID)
			}
			fmt.Fprintf(w, `{
				"object": "list",
				"data": [{"id": "msg_1", "thread_id": "thr_1", "role": "assistant", "run_id": %q, "content": [{"type": "text", "text": {"value": %q}}]}],
				"has_more": false
			}`, runID, raw)
		case r.URL.Path == "/threads/thr_1/messages" && r.Method == http.MethodPost:
			var msg map[string]any
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				t.Fatalf("decode feedback: %v", err)
			}
			content := msg["content"].([]any)
			part := content[0].(map[string]any)
			*feedback = append(*feedback, part["text"].(string))
			fmt.Fprint(w, `{"id": "msg_fb", "thread_id": "thr_1", "role": "user", "content": [{"type": "text", "text": {"value": "feedback"}}]}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
}

func TestStructuredFirstAttemptSucceeds(t *testing.T) {
	var feedback []string
	srv := structuredServer(t, map[string]string{
		"run_1": `{"name": "John", "age": 30}`,
	}, &feedback)
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	result, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{})
	if err != nil {
		t.Fatalf("structured: %v", err)
	}
	if result.Value.Name != "John" || result.Value.Age != 30 {
		t.Fatalf("unexpected value %+v", result.Value)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", result.Attempts)
	}
	if result.Run == nil || result.Run.ID != "run_1" {
		t.Fatalf("unexpected run %+v", result.Run)
	}
	if len(feedback) != 0 {
		t.Fatalf("no feedback expected, got %v", feedback)
	}
}

func TestStructuredRetriesOnValidationFailure(t *testing.T) {
	var feedback []string
	srv := structuredServer(t, map[string]string{
		"run_1": `{"name": "John"}`,
		"run_2": `{"name": "John", "age": 30}`,
	}, &feedback)
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	result, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{
		MaxRetries: 2,
		SchemaName: "person",
	})
	if err != nil {
		t.Fatalf("structured: %v", err)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", result.Attempts)
	}
	if result.Run.ID != "run_2" {
		t.Fatalf("unexpected final run %q", result.Run.ID)
	}
	if len(feedback) != 1 {
		t.Fatalf("expected 1 feedback message, got %d", len(feedback))
	}
	if !strings.Contains(feedback[0], "did not match the expected schema") {
		t.Fatalf("unexpected feedback %q", feedback[0])
	}
}

func TestStructuredDecodeErrorOnFirstAttempt(t *testing.T) {
	var feedback []string
	srv := structuredServer(t, map[string]string{
		"run_1": "I cannot answer in JSON.",
	}, &feedback)
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	_, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{})
	var decodeErr StructuredDecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected StructuredDecodeError, got %v", err)
	}
	if decodeErr.Attempt != 1 {
		t.Fatalf("unexpected attempt %d", decodeErr.Attempt)
	}
	if decodeErr.RawJSON != "I cannot answer in JSON." {
		t.Fatalf("unexpected raw json %q", decodeErr.RawJSON)
	}
}

func TestStructuredExhaustsRetries(t *testing.T) {
	var feedback []string
	srv := structuredServer(t, map[string]string{
		"run_1": `{"name": "John"}`,
		"run_2": `{"age": 30}`,
	}, &feedback)
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	_, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{MaxRetries: 1})
	var exhaustedErr StructuredExhaustedError
	if !errors.As(err, &exhaustedErr) {
		t.Fatalf("expected StructuredExhaustedError, got %v", err)
	}
	if len(exhaustedErr.AllAttempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(exhaustedErr.AllAttempts))
	}
	if exhaustedErr.AllAttempts[0].Attempt != 1 || exhaustedErr.AllAttempts[1].Attempt != 2 {
		t.Fatalf("unexpected attempt numbering %+v", exhaustedErr.AllAttempts)
	}
	if exhaustedErr.FinalError.Kind != StructuredErrorKindValidation {
		t.Fatalf("unexpected final error kind %q", exhaustedErr.FinalError.Kind)
	}
	if len(exhaustedErr.FinalError.Issues) == 0 {
		t.Fatal("expected validation issues")
	}
	if exhaustedErr.LastRawJSON != `{"age": 30}` {
		t.Fatalf("unexpected last raw json %q", exhaustedErr.LastRawJSON)
	}
	if len(feedback) != 1 {
		t.Fatalf("expected 1 feedback message, got %d", len(feedback))
	}
}

type stopRetryHandler struct{}

func (stopRetryHandler) OnValidationError(int, string, StructuredErrorDetail) []assistant.Message {
	return nil
}

func TestStructuredHandlerCanStopRetrying(t *testing.T) {
	var feedback []string
	srv := structuredServer(t, map[string]string{
		"run_1": `{"name": "John"}`,
	}, &feedback)
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	_, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{
		MaxRetries:   3,
		RetryHandler: stopRetryHandler{},
	})
	var exhaustedErr StructuredExhaustedError
	if !errors.As(err, &exhaustedErr) {
		t.Fatalf("expected StructuredExhaustedError, got %v", err)
	}
	if len(exhaustedErr.AllAttempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(exhaustedErr.AllAttempts))
	}
	if len(feedback) != 0 {
		t.Fatalf("no feedback expected, got %v", feedback)
	}
}

func TestStructuredSurfacesRunFailure(t *testing.T) {
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
				"status": "failed",
				"last_error": {"code": "server_error", "message": "model crashed"}
			}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	builder := NewRunRequestBuilder("asst_1").UserMessage("Extract: John, 30")

	_, err := Structured[person](context.Background(), client, "thr_1", builder, StructuredOptions{})
	var failedErr RunFailedError
	if !errors.As(err, &failedErr) {
		t.Fatalf("expected RunFailedError, got %v", err)
	}
	if failedErr.Run == nil || failedErr.Run.LastError == nil {
		t.Fatalf("expected run with last error, got %+v", failedErr.Run)
	}
	if !strings.Contains(failedErr.Error(), "model crashed") {
		t.Fatalf("unexpected error text %q", failedErr.Error())
	}
}
