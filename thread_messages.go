package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/threadline/threadline/sdk/go/assistant"
	"github.com/threadline/threadline/sdk/go/routes"
)

// ThreadMessage is the server's record of a message on a thread. Messages an
// assistant produced carry the AssistantID and RunID linkage.
type ThreadMessage struct {
	ID                string                `json:"id"`
	Object            string                `json:"object"`
	CreatedAt         int64                 `json:"created_at"`
	ThreadID          string                `json:"thread_id"`
	Status            string                `json:"status,omitempty"`
	IncompleteDetails *IncompleteDetails    `json:"incomplete_details,omitempty"`
	CompletedAt       int64                 `json:"completed_at,omitempty"`
	IncompleteAt      int64                 `json:"incomplete_at,omitempty"`
	Role              assistant.MessageRole `json:"role"`
	Content           []MessageContent      `json:"content"`
	AssistantID       string                `json:"assistant_id,omitempty"`
	RunID             string                `json:"run_id,omitempty"`
	Metadata          map[string]string     `json:"metadata,omitempty"`
}

// Text concatenates the message's text parts. Non-text parts are skipped.
func (m *ThreadMessage) Text() string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range m.Content {
		if part.Text != nil {
			b.WriteString(part.Text.Value)
		}
	}
	return b.String()
}

// MessageContent is one part of a stored message's content.
type MessageContent struct {
	Type     string              `json:"type"`
	Text     *MessageText        `json:"text,omitempty"`
	ImageURL *assistant.ImageURL `json:"image_url,omitempty"`
}

// MessageText is the text payload of a content part. Annotations are kept raw;
// their shapes vary by source and most callers never look at them.
type MessageText struct {
	Value       string            `json:"value"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// MessageDelta is an incremental content update delivered on a run stream.
type MessageDelta struct {
	ID     string           `json:"id"`
	Object string           `json:"object"`
	Delta  MessageDeltaBody `json:"delta"`
}

// MessageDeltaBody holds the changed fields of a streamed message update.
type MessageDeltaBody struct {
	Role    assistant.MessageRole `json:"role,omitempty"`
	Content []MessageDeltaContent `json:"content,omitempty"`
}

// MessageDeltaContent addresses one content part by index and carries the
// appended fragment.
type MessageDeltaContent struct {
	Index    int                 `json:"index"`
	Type     string              `json:"type"`
	Text     *MessageText        `json:"text,omitempty"`
	ImageURL *assistant.ImageURL `json:"image_url,omitempty"`
}

// Text concatenates the delta's text fragments.
func (d *MessageDelta) Text() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range d.Delta.Content {
		if part.Text != nil {
			b.WriteString(part.Text.Value)
		}
	}
	return b.String()
}

// MessagesClient manages the messages on a thread.
type MessagesClient struct {
	client *Client
}

func (c *MessagesClient) ensureInitialized() error {
	if c == nil || c.client == nil {
		return fmt.Errorf("sdk: messages client not initialized")
	}
	return nil
}

// Create appends a message to the thread.
func (c *MessagesClient) Create(ctx context.Context, threadID string, msg assistant.Message, opts ...CallOption) (*ThreadMessage, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadMessages, "{thread_id}", url.PathEscape(threadID))
	var out ThreadMessage
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, msg, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a message by id.
func (c *MessagesClient) Get(ctx context.Context, threadID, messageID string, opts ...CallOption) (*ThreadMessage, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(messageID) == "" {
		return nil, ConfigError{Reason: "message id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadMessagesByID, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{message_id}", url.PathEscape(messageID))
	var out ThreadMessage
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}

// List pages through the thread's messages, newest first by default. Set
// params.RunID to restrict the page to messages a single run produced.
func (c *MessagesClient) List(ctx context.Context, threadID string, params ListOptions, opts ...CallOption) (*ListPage[ThreadMessage], error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadMessages, "{thread_id}", url.PathEscape(threadID))
	path = appendListQuery(path, params)

	var page ListPage[ThreadMessage]
	if err := c.client.sendAndDecode(ctx, http.MethodGet, path, nil, &page, options); err != nil {
		return nil, err
	}
	return &page, nil
}

// Update replaces a message's metadata.
func (c *MessagesClient) Update(ctx context.Context, threadID, messageID string, metadata map[string]string, opts ...CallOption) (*ThreadMessage, error) {
	if err := c.ensureInitialized(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(threadID) == "" {
		return nil, ConfigError{Reason: "thread id is required"}
	}
	if strings.TrimSpace(messageID) == "" {
		return nil, ConfigError{Reason: "message id is required"}
	}
	options := buildCallOptions(opts)

	path := strings.ReplaceAll(routes.ThreadMessagesByID, "{thread_id}", url.PathEscape(threadID))
	path = strings.ReplaceAll(path, "{message_id}", url.PathEscape(messageID))
	var out ThreadMessage
	if err := c.client.sendAndDecode(ctx, http.MethodPost, path, updateMetadataPayload{Metadata: metadata}, &out, options); err != nil {
		return nil, err
	}
	return &out, nil
}
