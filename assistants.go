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

// Assistant is a named model configuration that runs execute against.
type Assistant struct {
	ID             string                    `json:"id"`
	Object         string                    `json:"object"`
	CreatedAt      int64                     `json:"created_at"`
	Name           string                    `json:"name,omitempty"`
	Description    string                    `json:"description,omitempty"`
	Model          ModelID                   `json:"model"`
	Instructions   string                    `json:"instructions,omitempty"`
	Tools          []assistant.Tool          `json:"tools,omitempty"`
	Metadata       map[string]string         `json:"metadata,omitempty"`
	Temperature    *float64                  `json:"temperature,omitempty"`
	TopP           *float64                  `json:"top_p,omitempty"`
	ResponseFormat *assistant.ResponseFormat `json:"response_format,omitempty"`
}

// AssistantRequest creates or updates an assistant. On update, zero-valued
// fields are omitted and left unchanged server-side.
type AssistantRequest struct {
	Model          ModelID                   `json:"model,omitempty"`
	Name           string                    `json:"name,omitempty"`
	Description    string                    `json:"description,omitempty"`
	Instructions   string                    `json:"instructions,omitempty"`
	Tools          []assistant.Tool          `json:"tools,omitempty"`
	Metadata       map[string]string         `json:"metadata,omitempty"`
	Temperature    *float64                  `json:"temperature,omitempty"`
	TopP           *float64                  `json:"top_p,omitempty"`
	ResponseFormat *assistant.ResponseFormat `json:"response_format,omitempty"`
}

// Deleted acknowledges a delete for any resource type.
type Deleted struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// AssistantsClient manages assistant configurations.
type AssistantsClient struct {
	client *Client
}

func (c *AssistantsClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("sdk: assistants client not initialized")
	}
	return nil
}

// Create registers a new assistant. The model is required.
func (c *AssistantsClient) Create(ctx context.Context, request AssistantRequest, opts ...CallOption) (*Assistant, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if request.Model.IsEmpty() {
		return nil, ConfigError{Reason: "model is required"}
	}
	options := buildCallOptions(opts)

	var out Assistant
	if err := c.client.sendAndDecode(ctx, http.MethodPost, routes.Assistants, request, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches an assistant by id.
func (c *AssistantsClient) Get(ctx context.Context, assistantID string, opts ...CallOption) (*Assistant, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assistantID) == "" {
		return nil, ConfigError{Reason: "assistant id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.AssistantsByID, "{assistant_id}", url.PathEscape(assistantID))
	var out Assistant
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}

// List pages through assistants, newest first by default.
func (c *AssistantsClient) List(ctx context.Context, params ListOptions, opts ...CallOption) (*ListPage[Assistant], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	options := buildCallOptions(opts)

	path := appendListQuery(routes.Assistants, params)
	var page ListPage[Assistant]
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &page, options); err != nil {
		return nil, err
	}
	return &page, nil
}

// Update modifies an assistant. Only the fields set on the request change.
func (c *AssistantsClient) Update(ctx context.Context, assistantID string, request AssistantRequest, opts ...CallOption) (*Assistant, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assistantID) == "" {
		return nil, ConfigError{Reason: "assistant id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.AssistantsByID, "{assistant_id}", url.PathEscape(assistantID))
	var out Assistant
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, request, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an assistant. Threads and runs it produced survive.
func (c *AssistantsClient) Delete(ctx context.Context, assistantID string, opts ...CallOption) (*Deleted, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assistantID) == "" {
		return nil, ConfigError{Reason: "assistant id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.AssistantsByID, "{assistant_id}", url.PathEscape(assistantID))
	var ack Deleted
	if err := c.client.sendAndDecode(ctx, http.MethodDelete, path, nil, &ack, options); err != nil {
		return nil, err
	}
	return &ack, nil
}

// CreateRun starts a run on the thread using a request originally built for
// another assistant. The id is rebound on a copy at dispatch, so one request
// can drive several assistants without rebuilding it.
func (c *AssistantsClient) CreateRun(ctx context.Context, assistantID, threadID string, request RunRequest, opts ...CallOption) (*Run, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(assistantID) == "" {
		return nil, ConfigError{Reason: "assistant id is required"}
	}
	return c.client.Runs.Create(ctx, threadID, request.withAssistantID(assistantID), opts...)
}
