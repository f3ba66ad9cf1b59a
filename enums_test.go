package sdk

import (
	"encoding/json"
	"testing"
)

func TestParseRunStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want RunStatus
	}{
		{"queued", RunStatusQueued},
		{"in_progress", RunStatusInProgress},
		{"requires_action", RunStatusRequiresAction},
		{"cancelling", RunStatusCancelling},
		{"canceling", RunStatusCancelling},
		{"cancelled", RunStatusCancelled},
		{"canceled", RunStatusCancelled},
		{"COMPLETED", RunStatusCompleted},
		{" failed ", RunStatusFailed},
		{"expired", RunStatusExpired},
		{"incomplete", RunStatusIncomplete},
		{"", ""},
		{"paused", RunStatus("paused")},
	}
	for _, tc := range cases {
		if got := ParseRunStatus(tc.raw); got != tc.want {
			t.Errorf("ParseRunStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	terminal := []RunStatus{RunStatusCancelled, RunStatusFailed, RunStatusCompleted, RunStatusIncomplete, RunStatusExpired}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	active := []RunStatus{RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling, RunStatus("paused"), ""}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestRunStatusIsOther(t *testing.T) {
	if RunStatusQueued.IsOther() {
		t.Fatalf("queued is a known status")
	}
	if !RunStatus("paused").IsOther() {
		t.Fatalf("paused should be other")
	}
	if RunStatus("  ").IsOther() {
		t.Fatalf("blank status should not be other")
	}
}

func TestRunStatusJSONRoundTrip(t *testing.T) {
	var s RunStatus
	if err := json.Unmarshal([]byte(`"canceled"`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s != RunStatusCancelled {
		t.Fatalf("expected normalized cancelled, got %q", s)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `"cancelled"` {
		t.Fatalf("unexpected marshal output %s", out)
	}
}

func TestParseRunStepStatus(t *testing.T) {
	if got := ParseRunStepStatus("canceled"); got != RunStepStatusCancelled {
		t.Fatalf("expected cancelled, got %q", got)
	}
	if got := ParseRunStepStatus("in_progress"); got != RunStepStatusInProgress {
		t.Fatalf("expected in_progress, got %q", got)
	}
	if got := ParseRunStepStatus("weird"); got != RunStepStatus("weird") {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if RunStepStatusInProgress.IsTerminal() {
		t.Fatalf("in_progress step is not terminal")
	}
	if !RunStepStatusExpired.IsTerminal() {
		t.Fatalf("expired step is terminal")
	}
}

func TestParseModelID(t *testing.T) {
	if got := ParseModelID(" OpenAI/GPT-4o "); got != ModelOpenAIGPT4o {
		t.Fatalf("expected %s, got %q", ModelOpenAIGPT4o, got)
	}
	if got := ParseModelID("acme/custom-model"); got != ModelID("acme/custom-model") {
		t.Fatalf("expected passthrough, got %q", got)
	}
	if !ParseModelID("acme/custom-model").IsOther() {
		t.Fatalf("custom model should be other")
	}
	if ModelOpenAIGPT4oMini.IsOther() {
		t.Fatalf("built-in model should not be other")
	}
}

func TestModelIDIsEmpty(t *testing.T) {
	if !NewModelID("   ").IsEmpty() {
		t.Fatalf("blank model should be empty")
	}
	if NewModelID("echo-1").IsEmpty() {
		t.Fatalf("echo-1 is not empty")
	}
	if NewModelID(" echo-1 ") != ModelEcho1 {
		t.Fatalf("expected trimmed model id")
	}
}
