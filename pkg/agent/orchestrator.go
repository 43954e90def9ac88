package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/llm"
	"github.com/redpen-ai/redpen/pkg/llm/tokenizer"
	"github.com/redpen-ai/redpen/pkg/logging"
	"github.com/redpen-ai/redpen/pkg/tools/review"
	"github.com/redpen-ai/redpen/pkg/types"
)

const cleanupTimeout = 30 * time.Second

// Options configures an orchestrator run.
type Options struct {
	// MaxTurns bounds the number of model iterations per task.
	MaxTurns int
	// MaxRevisions bounds review-requested rewrites. Zero means unlimited.
	MaxRevisions int
	// TokenBudget bounds the conversation size; oldest messages are dropped
	// first. Zero disables trimming.
	TokenBudget int
	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string
	// OnEvent receives progress events. Nil drops them.
	OnEvent types.EventSink
}

// Orchestrator drives the agent loop: assemble context, ask the model for
// the next action, dispatch its tool calls in order, fold the results back,
// repeat until a final answer or a terminal failure. It is the only writer
// of the task record.
type Orchestrator struct {
	provider llm.Provider
	registry *tools.Registry
	invoker  *Invoker
	opts     Options
	tok      *tokenizer.Tokenizer
	log      *logging.Logger
}

// New creates an orchestrator. A zero MaxTurns defaults to 50.
func New(provider llm.Provider, registry *tools.Registry, invoker *Invoker, opts Options) *Orchestrator {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 50
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	log, _ := logging.New("agent")
	return &Orchestrator{
		provider: provider,
		registry: registry,
		invoker:  invoker,
		opts:     opts,
		tok:      tokenizer.New(),
		log:      log,
	}
}

// Run executes the task to a terminal outcome. Whatever the outcome, every
// tool holding a live session (the browser) is closed before Run returns;
// cleanup runs on a fresh context so cancellation cannot skip it.
func (o *Orchestrator) Run(ctx context.Context, task *types.Task) *types.TaskOutcome {
	outcome := o.run(ctx, task)
	o.closeSessions()

	switch outcome.Status {
	case types.OutcomeDone:
		task.Status = types.StatusDone
	default:
		task.Status = types.StatusFailed
	}
	o.log.Infof("task %s finished: %s %s", task.ID, outcome.Status, outcome.Reason)
	o.emit(types.EventTaskFinished, "%s", string(outcome.Status))
	return outcome
}

func (o *Orchestrator) emit(t types.EventType, format string, args ...interface{}) {
	if o.opts.OnEvent != nil {
		o.opts.OnEvent(types.Event{Type: t, Detail: fmt.Sprintf(format, args...)})
	}
}

func (o *Orchestrator) setStatus(task *types.Task, status types.TaskStatus) {
	if task.Status == status {
		return
	}
	task.Status = status
	o.emit(types.EventStatusChanged, "%s", string(status))
}

func (o *Orchestrator) run(ctx context.Context, task *types.Task) *types.TaskOutcome {
	sess := newSession(task, o.opts.SystemPrompt)
	schemas := o.toolSchemas()
	o.log.Infof("task %s started: %s", task.ID, task.Goal)
	o.emit(types.EventTaskStarted, "%s", task.Goal)

	for turn := 0; turn < o.opts.MaxTurns; turn++ {
		if ctx.Err() != nil {
			return types.CancelledOutcome("task cancelled")
		}
		switch task.Status {
		case types.StatusPlanning, types.StatusRevising:
			o.setStatus(task, types.StatusGenerating)
		}

		action, err := o.provider.Complete(ctx, sess.messages, schemas)
		if err != nil {
			if ctx.Err() != nil {
				return types.CancelledOutcome("task cancelled")
			}
			return types.FailedOutcome(types.ErrKindProtocol, fmt.Sprintf("model backend: %v", err))
		}

		rec := task.AppendTurn(action.Text, action.Calls)
		sess.appendAssistant(action.Text)

		if action.IsFinal() {
			return types.DoneOutcome()
		}

		for _, call := range action.Calls {
			if ctx.Err() != nil {
				return types.CancelledOutcome("task cancelled")
			}
			if call.Name == review.ToolName {
				o.setStatus(task, types.StatusAwaitingReview)
			}
			o.emit(types.EventToolCall, "%s", call.Name)

			res := o.invoker.Invoke(ctx, call)
			rec.Results = append(rec.Results, res)
			o.emit(types.EventToolResult, "%s: %s", call.Name, res.Status)

			if ctx.Err() != nil {
				return types.CancelledOutcome("task cancelled")
			}
			if call.Name == review.ToolName {
				if outcome := o.handleReview(task, sess, res); outcome != nil {
					return outcome
				}
				continue
			}
			if outcome := o.handleResult(sess, res); outcome != nil {
				return outcome
			}
		}

		sess.trim(o.tok, o.opts.TokenBudget)
	}

	return types.FailedOutcome(types.ErrKindTurnLimit, "turn limit exceeded")
}

// handleResult folds a non-review result into the session, or returns the
// terminal outcome a failed result maps to.
func (o *Orchestrator) handleResult(sess *session, res types.ToolResult) *types.TaskOutcome {
	switch {
	case res.IsOK():
		// Advisory tools (publish confirmation) report anomalies in-band.
		if strings.HasPrefix(res.Payload, "Warning:") {
			o.emit(types.EventWarning, "%s: %s", res.Tool, res.Payload)
		}
		sess.fold(res)
		return nil
	case res.IsTimeout():
		return types.FailedOutcome(types.ErrKindTimeout, fmt.Sprintf("tool '%s' timed out", res.Tool))
	default:
		return types.FailedOutcome(res.Kind, fmt.Sprintf("tool '%s' failed: %s", res.Tool, res.Message))
	}
}

// handleReview applies the reviewer's decision to the task. A nil return
// means the loop continues; non-nil is the terminal outcome.
func (o *Orchestrator) handleReview(task *types.Task, sess *session, res types.ToolResult) *types.TaskOutcome {
	if !res.IsOK() {
		return types.FailedOutcome(res.Kind, fmt.Sprintf("review checkpoint failed: %s", res.Message))
	}
	out, err := review.ParseOutcome(res.Payload)
	if err != nil {
		return types.FailedOutcome(types.ErrKindIO, fmt.Sprintf("review checkpoint: %v", err))
	}

	switch out.Decision {
	case review.DecisionApprove:
		o.log.Infof("task %s: draft approved after %d revision(s)", task.ID, task.RevisionCount)
		o.setStatus(task, types.StatusPublishing)
		sess.foldText("The reviewer approved the draft. Publish it now exactly as approved.")
		return nil
	case review.DecisionRevise:
		task.RevisionCount++
		if o.opts.MaxRevisions > 0 && task.RevisionCount > o.opts.MaxRevisions {
			return types.FailedOutcome(types.ErrKindTurnLimit,
				fmt.Sprintf("revision limit exceeded after %d revisions", o.opts.MaxRevisions))
		}
		o.log.Infof("task %s: revision %d requested", task.ID, task.RevisionCount)
		o.setStatus(task, types.StatusRevising)
		sess.foldText(fmt.Sprintf("The reviewer requested changes:\n%s\nRevise the draft and request review again.", out.Feedback))
		return nil
	default: // reject
		o.log.Infof("task %s: draft rejected", task.ID)
		return types.FailedOutcome(types.ErrKindRejected, "rejected by user")
	}
}

func (o *Orchestrator) toolSchemas() []llm.ToolSchema {
	var schemas []llm.ToolSchema
	for _, t := range o.registry.List() {
		schemas = append(schemas, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return schemas
}

// closeSessions shuts down every session-holding tool. Errors are logged,
// not propagated: by this point the outcome is already decided.
func (o *Orchestrator) closeSessions() {
	closers := o.registry.Closers()
	if len(closers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	for _, c := range closers {
		if err := c.CloseSession(ctx); err != nil {
			o.log.Warnf("session close: %v", err)
		}
	}
}
