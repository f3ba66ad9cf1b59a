package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/threadline/threadline/sdk/go/assistant"
)

func TestThreadsCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads":
			if r.Method != http.MethodPost {
				t.Fatalf("unexpected method %s", r.Method)
			}
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			messages, ok := payload["messages"].([]any)
			if !ok || len(messages) != 1 {
				t.Fatalf("unexpected messages %v", payload["messages"])
			}
			metadata, ok := payload["metadata"].(map[string]any)
			if !ok || metadata["session"] != "abc" {
				t.Fatalf("unexpected metadata %v", payload["metadata"])
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{
				"id": "thr_1",
				"object": "thread",
				"created_at": 1700000000,
				"metadata": {"session": "abc"}
			}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	thread, err := client.Threads.Create(context.Background(), &ThreadRequest{
		Messages: []assistant.Message{assistant.NewUserMessage("hi")},
		Metadata: map[string]string{"session": "abc"},
	})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if thread.ID != "thr_1" {
		t.Fatalf("unexpected thread id %q", thread.ID)
	}
	if thread.Metadata["session"] != "abc" {
		t.Fatalf("unexpected metadata %v", thread.Metadata)
	}
}

func TestThreadsCreateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads":
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(payload) != 0 {
				t.Fatalf("expected empty payload, got %v", payload)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "thr_2", "object": "thread"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	thread, err := client.Threads.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if thread.ID != "thr_2" {
		t.Fatalf("unexpected thread id %q", thread.ID)
	}
}

func TestThreadsCreateValidatesSeedMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	_, err := client.Threads.Create(context.Background(), &ThreadRequest{
		Messages: []assistant.Message{{Role: assistant.RoleUser}},
	})
	if err == nil {
		t.Fatal("expected validation error for message without content")
	}
}

func TestThreadsGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads/thr_1":
			if r.Method != http.MethodGet {
				t.Fatalf("unexpected method %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "thr_1", "object": "thread", "created_at": 1700000000}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	thread, err := client.Threads.Get(context.Background(), "thr_1")
	if err != nil {
		t.Fatalf("get thread: %v", err)
	}
	if thread.CreatedAt != 1700000000 {
		t.Fatalf("unexpected created_at %d", thread.CreatedAt)
	}
}

func TestThreadsUpdateMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads/thr_1":
			if r.Method != http.MethodPost {
				t.Fatalf("unexpected method %s", r.Method)
			}
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			metadata, ok := payload["metadata"].(map[string]any)
			if !ok || metadata["topic"] != "travel" {
				t.Fatalf("unexpected metadata %v", payload["metadata"])
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "thr_1", "object": "thread", "metadata": {"topic": "travel"}}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	thread, err := client.Threads.Update(context.Background(), "thr_1", map[string]string{"topic": "travel"})
	if err != nil {
		t.Fatalf("update thread: %v", err)
	}
	if thread.Metadata["topic"] != "travel" {
		t.Fatalf("unexpected metadata %v", thread.Metadata)
	}
}

func TestThreadsDelete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads/thr_1":
			if r.Method != http.MethodDelete {
				t.Fatalf("unexpected method %s", r.Method)
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id": "thr_1", "object": "thread.deleted", "deleted": true}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	ack, err := client.Threads.Delete(context.Background(), "thr_1")
	if err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	if !ack.Deleted {
		t.Fatal("expected deleted ack")
	}
}

func TestThreadsRequireID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, "tl_sk_test")
	var cfgErr ConfigError
	if _, err := client.Threads.Get(context.Background(), ""); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if _, err := client.Threads.Delete(context.Background(), "  "); !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
