package sdk

// Version is the published SDK version.
// 0.6.0: Breaking - RunRequest is immutable after Build; tool choice is resolved at
// construction time (name fragments match against supplied tools) instead of at send time.
// 0.5.0: Add run streaming (CreateStream, SubmitToolOutputsStream) with TTFT/idle/total
// stream timeouts, plus Structured[T] for schema-validated assistant output.
// 0.4.0: Add ToolRegistry dispatch for requires_action loops and RunWithTools.
// 0.3.0: Add run steps, thread message updates, and list pagination options.
const Version = "0.6.0"
