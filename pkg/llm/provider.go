// Package llm provides abstractions for the model backend.
//
// The orchestrator treats the backend as a request/response capability:
// it hands over the conversation context plus the available tool schemas and
// receives either final text or a list of tool-call intents. Any transport
// satisfying this contract is acceptable; the openai subpackage implements
// it against OpenAI-compatible chat completion APIs.
package llm

import (
	"context"

	"github.com/redpen-ai/redpen/pkg/types"
)

// ToolSchema describes one invocable tool to the model backend.
type ToolSchema struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object for the tool's arguments.
	Parameters map[string]interface{}
}

// Action is the model's decision for one turn: either final text (no tool
// calls — the content is considered ready) or one or more tool calls to
// dispatch, in the order the model proposed them.
type Action struct {
	Text  string
	Calls []types.ToolCall
}

// IsFinal reports whether the action carries no tool calls.
func (a *Action) IsFinal() bool { return len(a.Calls) == 0 }

// Provider is the model backend contract.
type Provider interface {
	// Complete sends the conversation and tool schemas to the backend and
	// returns its next action. The call has no side effects on session
	// state; it may suspend for network latency and honors ctx cancellation.
	Complete(ctx context.Context, messages []*types.Message, tools []ToolSchema) (*Action, error)

	// Model returns the model name in use.
	Model() string
}
