package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/logging"
	"github.com/redpen-ai/redpen/pkg/types"
)

// Invoker executes one tool call with timeout, error normalization, and a
// bounded retry that applies only to transient failures.
//
// Two tool classes are exempted from the default policy: blocking tools
// (the review checkpoint) get no timeout — re-issuing a human-review prompt
// on timeout would silently discard a pending decision — and retry-exempt
// tools (browser automation) surface failures immediately, because their
// recovery is managed inside the tool.
type Invoker struct {
	registry *tools.Registry
	timeout  time.Duration
	retries  int
	log      *logging.Logger
}

// NewInvoker creates an invoker over the given registry.
func NewInvoker(registry *tools.Registry, timeout time.Duration, retries int, log *logging.Logger) *Invoker {
	if retries < 0 {
		retries = 0
	}
	return &Invoker{registry: registry, timeout: timeout, retries: retries, log: log}
}

// Invoke resolves the named tool and executes the call. It always returns
// exactly one ToolResult; an unknown name resolves to not_found without any
// dispatch attempt.
func (inv *Invoker) Invoke(ctx context.Context, call types.ToolCall) types.ToolResult {
	tool, ok := inv.registry.Get(call.Name)
	if !ok {
		return types.ErrResult(call.ID, call.Name, types.ErrKindNotFound, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	pol := tools.PolicyFor(tool)
	attempts := 1
	if !pol.NoRetry {
		attempts += inv.retries
	}

	var res types.ToolResult
	for attempt := 1; attempt <= attempts; attempt++ {
		res = inv.attempt(ctx, tool, call, pol)
		if !res.IsTimeout() || attempt == attempts || ctx.Err() != nil {
			return res
		}
		inv.log.Warnf("tool %s timed out, retrying (%d/%d)", call.Name, attempt, attempts-1)
	}
	return res
}

func (inv *Invoker) attempt(ctx context.Context, tool tools.Tool, call types.ToolCall, pol tools.Policy) types.ToolResult {
	execCtx := ctx
	if !pol.NoTimeout && inv.timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, inv.timeout)
		defer cancel()
	}

	payload, err := tool.Execute(execCtx, call.Arguments)
	if err != nil {
		// Distinguish our per-call deadline from a cancelled parent; parent
		// cancellation is the orchestrator's concern, not a tool timeout.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return types.TimeoutResult(call.ID, call.Name)
		}
		return types.ResultFromError(call.ID, call.Name, err)
	}
	return types.OkResult(call.ID, call.Name, payload)
}
