package sdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
	"github.com/threadline/threadline/sdk/go/routes"
)

// Thread is a conversation container. Messages accumulate on it and runs
// execute against it.
type Thread struct {
	ID        string            `json:"id"`
	Object    string            `json:"object"`
	CreatedAt int64             `json:"created_at"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ThreadRequest is the payload for creating a thread, standalone or inline
// via CreateThreadAndRun.
type ThreadRequest struct {
	// Messages seeds the thread's history.
	Messages []assistant.Message `json:"messages,omitempty"`
	// Metadata follows the same server-side bounds as run metadata.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Validate checks the seed messages.
func (r ThreadRequest) Validate() error {
	for i, msg := range r.Messages {
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	return nil
}

// ThreadsClient manages conversation threads.
type ThreadsClient struct {
	client *Client
}

func (c *ThreadsClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("sdk: threads client not initialized")
	}
	return nil
}

// Create makes a new thread. A nil request creates an empty one.
func (c *ThreadsClient) Create(ctx context.Context, request *ThreadRequest, opts ...CallOption) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if request != nil {
		if err := request.Validate(); err != nil {
			return nil, err
		}
	}
	options := buildCallOptions(opts)

	payload := request
	if payload == nil {
		payload = &ThreadRequest{}
	}
	var thread Thread
	if err := c.client.sendAndDecode(ctx, http.MethodPost, routes.Threads, payload, &thread, options); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Get fetches a thread by id.
func (c *ThreadsClient) Get(ctx context.Context, threadID string, opts ...CallOption) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadsByID, "{thread_id}", url.PathEscape(threadID))
	var thread Thread
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &thread, options); err != nil {
		return nil, err
	}
	return &thread, nil
}

type updateMetadataPayload struct {
	Metadata map[string]string `json:"metadata"`
}

// Update replaces the thread's metadata.
func (c *ThreadsClient) Update(ctx context.Context, threadID string, metadata map[string]string, opts ...CallOption) (*Thread, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadsByID, "{thread_id}", url.PathEscape(threadID))
	var thread Thread
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, updateMetadataPayload{Metadata: metadata}, &thread, options); err != nil {
		return nil, err
	}
	return &thread, nil
}

// Delete removes a thread and everything on it.
func (c *ThreadsClient) Delete(ctx context.Context, threadID string, opts ...CallOption) (*Deleted, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadsByID, "{thread_id}", url.PathEscape(threadID))
	var ack Deleted
	if err := c.client.sendAndDecode(ctx, http.MethodDelete, path, nil, &ack, options); err != nil {
		return nil, err
	}
	return &ack, nil
}
