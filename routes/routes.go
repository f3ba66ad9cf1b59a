// Package routes provides shared API route constants used by both
// the API server and SDK clients to prevent path mismatches.
package routes

// API route paths - these constants are shared between server and clients
// to ensure compile-time safety and prevent endpoint mismatches.
const (
	// Assistants creates an assistant or lists the project's assistants.
	Assistants = "/assistants"

	// AssistantsByID fetches, updates, or deletes a single assistant.
	AssistantsByID = "/assistants/{assistant_id}"

	// Threads creates a conversation thread.
	Threads = "/threads"

	// ThreadsByID fetches, updates, or deletes a single thread.
	ThreadsByID = "/threads/{thread_id}"

	// ThreadMessages creates or lists messages on a thread.
	ThreadMessages = "/threads/{thread_id}/messages"

	// ThreadMessagesByID fetches or updates a single thread message.
	ThreadMessagesByID = "/threads/{thread_id}/messages/{message_id}"

	// ThreadRuns starts a run on an existing thread, or lists the thread's runs.
	ThreadRuns = "/threads/{thread_id}/runs"

	// ThreadRunsByID fetches or updates a single run.
	ThreadRunsByID = "/threads/{thread_id}/runs/{run_id}"

	// ThreadRunsCancel requests cancellation of an in-progress run.
	ThreadRunsCancel = "/threads/{thread_id}/runs/{run_id}/cancel"

	// ThreadRunsSubmitToolOutputs resumes a run waiting in requires_action.
	ThreadRunsSubmitToolOutputs = "/threads/{thread_id}/runs/{run_id}/submit_tool_outputs"

	// ThreadRunSteps lists the steps taken by a run.
	ThreadRunSteps = "/threads/{thread_id}/runs/{run_id}/steps"

	// ThreadRunStepsByID fetches a single run step.
	ThreadRunStepsByID = "/threads/{thread_id}/runs/{run_id}/steps/{step_id}"

	// ThreadAndRun creates a thread and immediately starts a run on it.
	ThreadAndRun = "/threads/runs"
)
