// Package review implements the blocking human-review checkpoint. The tool
// presents a draft to a Reviewer and returns the verdict as a structured
// payload; it never times out and is never retried, since either would
// discard or duplicate a pending human decision.
package review

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/types"
)

// ToolName is the registered name of the review checkpoint tool.
const ToolName = "request_review"

// Decision is the reviewer's verdict on a draft.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionRevise  Decision = "revise"
	DecisionReject  Decision = "reject"
)

// Outcome is the structured review result carried in the tool payload.
type Outcome struct {
	Decision Decision `json:"decision"`
	Feedback string   `json:"feedback,omitempty"`
}

// ParseOutcome decodes a review tool payload.
func ParseOutcome(payload string) (*Outcome, error) {
	var out Outcome
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, fmt.Errorf("decoding review outcome: %w", err)
	}
	switch out.Decision {
	case DecisionApprove, DecisionRevise, DecisionReject:
		return &out, nil
	default:
		return nil, fmt.Errorf("unknown review decision %q", out.Decision)
	}
}

// Draft is the content presented to the reviewer.
type Draft struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Media []string `json:"media,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// Reviewer blocks until a human (or a scripted stand-in, in tests) has
// examined the draft and decided.
type Reviewer interface {
	Review(ctx context.Context, draft Draft) (*Outcome, error)
}

// Tool exposes the checkpoint to the agent loop.
type Tool struct {
	reviewer Reviewer
}

// New creates the review tool around the given reviewer.
func New(reviewer Reviewer) *Tool {
	return &Tool{reviewer: reviewer}
}

func (t *Tool) Name() string {
	return ToolName
}

func (t *Tool) Description() string {
	return "Present the current draft to the human reviewer and wait for a decision. " +
		"Call this exactly once per draft version, after the content is complete and before publishing. " +
		"The result contains the decision (approve, revise, or reject) and optional feedback."
}

func (t *Tool) Schema() map[string]interface{} {
	return tools.ObjectSchema(map[string]interface{}{
		"title": map[string]interface{}{
			"type":        "string",
			"description": "Title of the draft note",
		},
		"body": map[string]interface{}{
			"type":        "string",
			"description": "Full body text of the draft, markdown allowed",
		},
		"media": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Paths of images to publish with the note",
		},
		"notes": map[string]interface{}{
			"type":        "string",
			"description": "Anything the reviewer should know about this revision",
		},
	}, []string{"title", "body"})
}

// InvokePolicy exempts the checkpoint from timeout and retry.
func (t *Tool) InvokePolicy() tools.Policy {
	return tools.Policy{NoTimeout: true, NoRetry: true}
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var draft Draft
	if err := json.Unmarshal(args, &draft); err != nil {
		return "", types.NewToolError(types.ErrKindIO, "invalid review arguments: %v", err)
	}
	if draft.Title == "" && draft.Body == "" {
		return "", types.NewToolError(types.ErrKindIO, "review requires a non-empty draft")
	}

	outcome, err := t.reviewer.Review(ctx, draft)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", types.NewToolError(types.ErrKindIO, "review failed: %v", err)
	}

	encoded, err := json.Marshal(outcome)
	if err != nil {
		return "", types.NewToolError(types.ErrKindIO, "encoding review outcome: %v", err)
	}
	return string(encoded), nil
}
