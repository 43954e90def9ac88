package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks where a task is in the create-review-publish workflow.
type TaskStatus string

const (
	StatusPlanning       TaskStatus = "planning"
	StatusGenerating     TaskStatus = "generating"
	StatusAwaitingReview TaskStatus = "awaiting_review"
	StatusRevising       TaskStatus = "revising"
	StatusPublishing     TaskStatus = "publishing"
	StatusDone           TaskStatus = "done"
	StatusFailed         TaskStatus = "failed"
)

// ToolCall is the model's request to invoke a named tool. The ID correlates
// the call with the single ToolResult it resolves to.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// NewToolCall creates a tool call with a fresh correlation ID.
func NewToolCall(name string, args json.RawMessage) ToolCall {
	return ToolCall{ID: uuid.New().String(), Name: name, Arguments: args}
}

// Turn is one iteration of the orchestration loop: the model's proposed
// action and the results its tool calls resolved to. Turns are append-only;
// once recorded they are never mutated, only read back into context.
type Turn struct {
	Index   int
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

// Task is one end-to-end content-creation-and-publish request. It owns the
// ordered turn log and the revision counter; the orchestrator is its only
// writer.
type Task struct {
	ID            string
	Goal          string
	KnowledgeRefs []string
	Status        TaskStatus
	Turns         []*Turn
	RevisionCount int
	CreatedAt     time.Time
}

// NewTask creates a task in the planning state.
func NewTask(goal string, knowledgeRefs ...string) *Task {
	return &Task{
		ID:            uuid.New().String(),
		Goal:          goal,
		KnowledgeRefs: knowledgeRefs,
		Status:        StatusPlanning,
		CreatedAt:     time.Now(),
	}
}

// AppendTurn records a new turn at the end of the task's turn log and
// returns it for result accumulation.
func (t *Task) AppendTurn(text string, calls []ToolCall) *Turn {
	turn := &Turn{Index: len(t.Turns), Text: text, Calls: calls}
	t.Turns = append(t.Turns, turn)
	return turn
}

// OutcomeStatus is the terminal disposition of a task.
type OutcomeStatus string

const (
	OutcomeDone      OutcomeStatus = "done"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// TaskOutcome is what the orchestrator returns when the loop exits. Reason
// is human-readable and always set for non-done outcomes.
type TaskOutcome struct {
	Status OutcomeStatus
	Kind   ErrorKind
	Reason string
}

// DoneOutcome marks successful completion.
func DoneOutcome() *TaskOutcome {
	return &TaskOutcome{Status: OutcomeDone}
}

// FailedOutcome marks terminal failure with a classified reason.
func FailedOutcome(kind ErrorKind, reason string) *TaskOutcome {
	return &TaskOutcome{Status: OutcomeFailed, Kind: kind, Reason: reason}
}

// CancelledOutcome marks cooperative cancellation.
func CancelledOutcome(reason string) *TaskOutcome {
	return &TaskOutcome{Status: OutcomeCancelled, Reason: reason}
}
