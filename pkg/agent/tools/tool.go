// Package tools defines the capability contract every agent tool implements
// and the registry the invocation layer resolves tool names against.
//
// Local tools (knowledge reads) and remote tools (image generation, search)
// implement the same interface, differing only in execution strategy. Tools
// with special invocation semantics — the blocking review checkpoint, the
// self-recovering browser state machine — opt out of the invoker's default
// timeout/retry handling through the Policy override.
package tools

import (
	"context"
	"encoding/json"
)

// Tool is an invocable capability the agent can call.
//
// Execute receives the raw JSON arguments from the model's tool-call intent
// and returns a result payload. Failures should be returned as
// *types.ToolError so the invocation layer can classify them; untyped
// errors are treated as local io failures.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns what this tool does, phrased for the model.
	Description() string

	// Schema returns the JSON Schema object for the tool's arguments.
	Schema() map[string]interface{}

	// Execute runs the tool and returns its result payload.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// Policy describes how the invocation layer treats one tool.
type Policy struct {
	// NoTimeout exempts the tool from the per-call timeout. Set by tools
	// that suspend on a human decision with unbounded latency.
	NoTimeout bool

	// NoRetry exempts the tool from transient-failure retries. Set by
	// tools that manage their own recovery, where a blind re-invocation
	// could repeat a side effect on a live remote session.
	NoRetry bool
}

// PolicyOverrider is an optional interface tools implement to opt out of
// the invoker's default timeout/retry policy.
type PolicyOverrider interface {
	InvokePolicy() Policy
}

// PolicyFor returns the tool's invocation policy, defaulting to the
// standard timeout-and-retry handling.
func PolicyFor(t Tool) Policy {
	if o, ok := t.(PolicyOverrider); ok {
		return o.InvokePolicy()
	}
	return Policy{}
}

// SessionCloser is an optional interface for tools that hold live external
// sessions. The orchestrator's cleanup path closes them before returning a
// terminal outcome, so no partial session progress dangles across tasks.
type SessionCloser interface {
	CloseSession(ctx context.Context) error
}

// ObjectSchema builds a JSON Schema object from properties and required
// field names.
func ObjectSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
