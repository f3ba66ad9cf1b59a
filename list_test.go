package sdk

import "testing"

func TestAppendListQuery(t *testing.T) {
	cases := []struct {
		name string
		opts ListOptions
		want string
	}{
		{"empty", ListOptions{}, "/threads/thr_1/messages"},
		{"limit", ListOptions{Limit: 5}, "/threads/thr_1/messages?limit=5"},
		{"full", ListOptions{Limit: 10, Order: ListOrderAsc, After: "msg_2", Before: "msg_9", RunID: "run_1"},
			"/threads/thr_1/messages?after=msg_2&before=msg_9&limit=10&order=asc&run_id=run_1"},
		{"order only", ListOptions{Order: ListOrderDesc}, "/threads/thr_1/messages?order=desc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := appendListQuery("/threads/thr_1/messages", tc.opts)
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAppendListQueryEscapesCursor(t *testing.T) {
	got := appendListQuery("/assistants", ListOptions{After: "id with space"})
	if got != "/assistants?after=id+with+space" {
		t.Fatalf("unexpected query %q", got)
	}
}
