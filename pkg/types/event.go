package types

// EventType classifies progress events emitted while a task runs.
type EventType string

const (
	// EventTaskStarted fires once when the orchestration loop begins.
	EventTaskStarted EventType = "task_started"

	// EventStatusChanged fires whenever the task moves through the workflow
	// (planning, generating, awaiting_review, revising, publishing).
	EventStatusChanged EventType = "status_changed"

	// EventToolCall fires before a tool call is dispatched.
	EventToolCall EventType = "tool_call"

	// EventToolResult fires when a dispatched call resolves.
	EventToolResult EventType = "tool_result"

	// EventWarning fires for non-terminal anomalies, like an unverifiable
	// publish confirmation.
	EventWarning EventType = "warning"

	// EventTaskFinished fires once with the terminal outcome.
	EventTaskFinished EventType = "task_finished"
)

// Event is one progress notification. Events are display hints for the
// front end; the task record stays the source of truth.
type Event struct {
	Type   EventType
	Detail string
}

// EventSink receives progress events. A nil sink drops them.
type EventSink func(Event)
