package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies tool failures. The invocation layer and the
// orchestrator make policy decisions (retry, terminate) on the kind alone,
// never on the message text.
type ErrorKind string

const (
	// ErrKindIO marks local resource access failures (file reads, decode).
	ErrKindIO ErrorKind = "io"

	// ErrKindProtocol marks malformed or unreachable remote tool endpoints.
	ErrKindProtocol ErrorKind = "protocol"

	// ErrKindTimeout marks transient timeouts; the only retryable kind.
	ErrKindTimeout ErrorKind = "timeout"

	// ErrKindNotFound marks an unknown tool or action name.
	ErrKindNotFound ErrorKind = "not_found"

	// ErrKindAlreadySubmitted marks the browser state machine's duplicate
	// publish guard.
	ErrKindAlreadySubmitted ErrorKind = "already_submitted"

	// ErrKindRejected marks a human reject decision.
	ErrKindRejected ErrorKind = "rejected"

	// ErrKindTurnLimit marks turn budget exhaustion.
	ErrKindTurnLimit ErrorKind = "turn_limit_exceeded"

	// ErrKindFatalAutomation marks unrecoverable browser automation failures.
	ErrKindFatalAutomation ErrorKind = "fatal_automation"
)

// Transient reports whether failures of this kind are expected to sometimes
// self-resolve on retry.
func (k ErrorKind) Transient() bool {
	return k == ErrKindTimeout
}

// ToolError is a typed tool failure. Tools return it so the invocation layer
// can normalize failures into ToolResult without string matching.
type ToolError struct {
	Kind    ErrorKind
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewToolError creates a ToolError with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Untyped errors default to
// ErrKindIO, the local failure class.
func KindOf(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindIO
}

// ResultStatus is the tag of the ToolResult variant.
type ResultStatus string

const (
	ResultOK      ResultStatus = "ok"
	ResultTimeout ResultStatus = "timeout"
	ResultError   ResultStatus = "error"
)

// ToolResult is the tagged outcome of one dispatched tool call. Every
// dispatched ToolCall resolves to exactly one ToolResult; no call is left
// pending across turns.
type ToolResult struct {
	// CallID correlates the result with the ToolCall that produced it.
	CallID string

	// Tool is the name of the tool that was invoked.
	Tool string

	Status  ResultStatus
	Payload string    // set when Status == ResultOK
	Kind    ErrorKind // set when Status == ResultError
	Message string    // set when Status == ResultError
}

// OkResult creates a success result carrying the tool's payload.
func OkResult(callID, tool, payload string) ToolResult {
	return ToolResult{CallID: callID, Tool: tool, Status: ResultOK, Payload: payload}
}

// TimeoutResult creates a transient timeout result.
func TimeoutResult(callID, tool string) ToolResult {
	return ToolResult{CallID: callID, Tool: tool, Status: ResultTimeout}
}

// ErrResult creates an error result with the given kind and message.
func ErrResult(callID, tool string, kind ErrorKind, message string) ToolResult {
	return ToolResult{CallID: callID, Tool: tool, Status: ResultError, Kind: kind, Message: message}
}

// ResultFromError normalizes a tool execution error into a ToolResult.
// Timeouts become the timeout variant so the invoker's retry policy can
// see them; everything else becomes an error result with its kind.
func ResultFromError(callID, tool string, err error) ToolResult {
	kind := KindOf(err)
	if kind == ErrKindTimeout {
		return TimeoutResult(callID, tool)
	}
	return ErrResult(callID, tool, kind, err.Error())
}

// IsOK reports whether the result is the success variant.
func (r ToolResult) IsOK() bool { return r.Status == ResultOK }

// IsTimeout reports whether the result is the timeout variant.
func (r ToolResult) IsTimeout() bool { return r.Status == ResultTimeout }

// IsError reports whether the result is the error variant.
func (r ToolResult) IsError() bool { return r.Status == ResultError }
