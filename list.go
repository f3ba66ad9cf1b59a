package sdk

import (
	"net/url"
	"strconv"
)

// ListOrder fixes the sort direction of list endpoints.
type ListOrder string

const (
	// ListOrderAsc sorts oldest first.
	ListOrderAsc ListOrder = "asc"
	// ListOrderDesc sorts newest first (the server default).
	ListOrderDesc ListOrder = "desc"
)

// ListOptions carries the cursor pagination parameters shared by every list
// endpoint. Zero values are omitted and the server defaults apply (limit 20,
// newest first).
type ListOptions struct {
	// Limit caps the page size, between 1 and 100.
	Limit int
	// Order sorts by creation time.
	Order ListOrder
	// After resumes the page immediately following this object id.
	After string
	// Before ends the page immediately preceding this object id.
	Before string
	// RunID restricts thread messages to those produced by one run. Ignored
	// by endpoints that do not filter on runs.
	RunID string
}

// ListPage is one page of a cursor-paginated list. FirstID and LastID feed
// the Before/After cursors of the neighbouring pages.
type ListPage[T any] struct {
	Object  string `json:"object"`
	Data    []T    `json:"data"`
	FirstID string `json:"first_id,omitempty"`
	LastID  string `json:"last_id,omitempty"`
	HasMore bool   `json:"has_more"`
}

func appendListQuery(path string, params ListOptions) string {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Order != "" {
		q.Set("order", string(params.Order))
	}
	if params.After != "" {
		q.Set("after", params.After)
	}
	if params.Before != "" {
		q.Set("before", params.Before)
	}
	if params.RunID != "" {
		q.Set("run_id", params.RunID)
	}
	if enc := q.Encode(); enc != "" {
		return path + "?" + enc
	}
	return path
}
