package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/llm"
	"github.com/redpen-ai/redpen/pkg/tools/review"
	"github.com/redpen-ai/redpen/pkg/types"
)

// scriptProvider replays a fixed sequence of actions; the last action
// repeats if the loop asks for more.
type scriptProvider struct {
	actions []*llm.Action
	calls   int
}

func (p *scriptProvider) Complete(ctx context.Context, messages []*types.Message, schemas []llm.ToolSchema) (*llm.Action, error) {
	idx := p.calls
	if idx >= len(p.actions) {
		idx = len(p.actions) - 1
	}
	p.calls++
	return p.actions[idx], nil
}

func (p *scriptProvider) Model() string { return "test-model" }

func callTo(name string, args string) types.ToolCall {
	return types.NewToolCall(name, json.RawMessage(args))
}

// reviewStub drives the checkpoint with scripted decisions.
type reviewStub struct {
	outcomes []*review.Outcome
	calls    int
}

func (r *reviewStub) Review(ctx context.Context, draft review.Draft) (*review.Outcome, error) {
	out := r.outcomes[r.calls]
	r.calls++
	return out, nil
}

// closerTool records close calls so tests can assert cleanup ordering.
type closerTool struct {
	stubTool
	closedAt []time.Time
}

func (c *closerTool) CloseSession(ctx context.Context) error {
	c.closedAt = append(c.closedAt, time.Now())
	return nil
}

func newOrchestrator(t *testing.T, provider llm.Provider, reg *tools.Registry, opts Options) *Orchestrator {
	t.Helper()
	inv := newTestInvoker(t, reg, time.Second, 0)
	return New(provider, reg, inv, opts)
}

func TestRunFinalAnswerCompletes(t *testing.T) {
	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "发布完成，任务结束。"},
	}}
	orch := newOrchestrator(t, provider, tools.NewRegistry(), Options{})

	task := types.NewTask("写一篇杭州周末笔记")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeDone, outcome.Status)
	assert.Equal(t, types.StatusDone, task.Status)
	require.Len(t, task.Turns, 1)
	assert.Equal(t, "发布完成，任务结束。", task.Turns[0].Text)
}

func TestRunDispatchesEveryCallInOrder(t *testing.T) {
	reg := tools.NewRegistry()
	first := &stubTool{name: "first", payload: "p1"}
	second := &stubTool{name: "second", payload: "p2"}
	require.NoError(t, reg.Register(first))
	require.NoError(t, reg.Register(second))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "研究一下", Calls: []types.ToolCall{callTo("first", `{}`), callTo("second", `{}`)}},
		{Text: "done"},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeDone, outcome.Status)
	require.Len(t, task.Turns, 2)
	require.Len(t, task.Turns[0].Results, 2, "every dispatched call resolves to exactly one result")
	assert.Equal(t, "first", task.Turns[0].Results[0].Tool)
	assert.Equal(t, "second", task.Turns[0].Results[1].Tool)
	assert.Equal(t, task.Turns[0].Calls[0].ID, task.Turns[0].Results[0].CallID)
}

func TestRunApproveThenPublish(t *testing.T) {
	reg := tools.NewRegistry()
	stub := &reviewStub{outcomes: []*review.Outcome{{Decision: review.DecisionApprove}}}
	require.NoError(t, reg.Register(review.New(stub)))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "draft ready", Calls: []types.ToolCall{
			callTo(review.ToolName, `{"title": "标题", "body": "正文"}`),
		}},
		{Text: "published, all done"},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeDone, outcome.Status)
	assert.Equal(t, 1, stub.calls, "review runs exactly once per draft")
	assert.Equal(t, 0, task.RevisionCount)
}

func TestRunReviseLoopCountsRevisions(t *testing.T) {
	reg := tools.NewRegistry()
	stub := &reviewStub{outcomes: []*review.Outcome{
		{Decision: review.DecisionRevise, Feedback: "加点 emoji"},
		{Decision: review.DecisionApprove},
	}}
	require.NoError(t, reg.Register(review.New(stub)))

	reviewCall := func() types.ToolCall {
		return callTo(review.ToolName, `{"title": "标题", "body": "正文"}`)
	}
	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "v1", Calls: []types.ToolCall{reviewCall()}},
		{Text: "v2", Calls: []types.ToolCall{reviewCall()}},
		{Text: "done"},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeDone, outcome.Status)
	assert.Equal(t, 2, stub.calls)
	assert.Equal(t, 1, task.RevisionCount)
}

func TestRunRejectFailsTask(t *testing.T) {
	reg := tools.NewRegistry()
	stub := &reviewStub{outcomes: []*review.Outcome{{Decision: review.DecisionReject}}}
	require.NoError(t, reg.Register(review.New(stub)))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "draft", Calls: []types.ToolCall{
			callTo(review.ToolName, `{"title": "标题", "body": "正文"}`),
		}},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Equal(t, types.ErrKindRejected, outcome.Kind)
	assert.Equal(t, "rejected by user", outcome.Reason)
	assert.Equal(t, types.StatusFailed, task.Status)
}

func TestRunRevisionLimit(t *testing.T) {
	reg := tools.NewRegistry()
	stub := &reviewStub{outcomes: []*review.Outcome{
		{Decision: review.DecisionRevise, Feedback: "再改"},
		{Decision: review.DecisionRevise, Feedback: "还要改"},
	}}
	require.NoError(t, reg.Register(review.New(stub)))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "v1", Calls: []types.ToolCall{callTo(review.ToolName, `{"title": "t", "body": "b"}`)}},
		{Text: "v2", Calls: []types.ToolCall{callTo(review.ToolName, `{"title": "t", "body": "b"}`)}},
	}}
	orch := newOrchestrator(t, provider, reg, Options{MaxRevisions: 1})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Equal(t, types.ErrKindTurnLimit, outcome.Kind)
	assert.Contains(t, outcome.Reason, "revision limit")
}

func TestRunTurnLimitExceeded(t *testing.T) {
	reg := tools.NewRegistry()
	echo := &stubTool{name: "echo", payload: "ok"}
	require.NoError(t, reg.Register(echo))

	// The model never stops calling tools.
	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "more", Calls: []types.ToolCall{callTo("echo", `{}`)}},
	}}
	orch := newOrchestrator(t, provider, reg, Options{MaxTurns: 3})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Equal(t, types.ErrKindTurnLimit, outcome.Kind)
	assert.Equal(t, "turn limit exceeded", outcome.Reason)
	assert.Equal(t, 3, provider.calls, "the budget bounds model iterations exactly")
}

func TestRunToolFailureTerminatesWithKind(t *testing.T) {
	reg := tools.NewRegistry()
	broken := &stubTool{name: "broken", err: types.NewToolError(types.ErrKindFatalAutomation, "browser crashed")}
	require.NoError(t, reg.Register(broken))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "try", Calls: []types.ToolCall{callTo("broken", `{}`)}},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	task := types.NewTask("goal")
	outcome := orch.Run(context.Background(), task)

	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Equal(t, types.ErrKindFatalAutomation, outcome.Kind)
	assert.Contains(t, outcome.Reason, "broken")
}

func TestRunUnknownToolFails(t *testing.T) {
	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "use it", Calls: []types.ToolCall{callTo("ghost", `{}`)}},
	}}
	orch := newOrchestrator(t, provider, tools.NewRegistry(), Options{})

	outcome := orch.Run(context.Background(), types.NewTask("goal"))
	assert.Equal(t, types.OutcomeFailed, outcome.Status)
	assert.Equal(t, types.ErrKindNotFound, outcome.Kind)
}

func TestRunClosesSessionsOnEveryOutcome(t *testing.T) {
	cases := []struct {
		name    string
		actions []*llm.Action
		status  types.OutcomeStatus
	}{
		{
			name:    "done",
			actions: []*llm.Action{{Text: "finished"}},
			status:  types.OutcomeDone,
		},
		{
			name: "failed",
			actions: []*llm.Action{
				{Text: "x", Calls: []types.ToolCall{callTo("ghost", `{}`)}},
			},
			status: types.OutcomeFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := tools.NewRegistry()
			closer := &closerTool{stubTool: stubTool{name: "session", payload: "ok"}}
			require.NoError(t, reg.Register(closer))

			provider := &scriptProvider{actions: tc.actions}
			orch := newOrchestrator(t, provider, reg, Options{})

			outcome := orch.Run(context.Background(), types.NewTask("goal"))
			assert.Equal(t, tc.status, outcome.Status)
			assert.Len(t, closer.closedAt, 1, "session-holding tools close on every terminal path")
		})
	}
}

func TestRunCancellationClosesBeforeReturning(t *testing.T) {
	reg := tools.NewRegistry()
	closer := &closerTool{stubTool: stubTool{name: "session", payload: "ok"}}
	require.NoError(t, reg.Register(closer))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "loop", Calls: []types.ToolCall{callTo("session", `{}`)}},
	}}
	orch := newOrchestrator(t, provider, reg, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := orch.Run(ctx, types.NewTask("goal"))
	assert.Equal(t, types.OutcomeCancelled, outcome.Status)
	assert.Len(t, closer.closedAt, 1)
	assert.Zero(t, closer.attempts, "no tool dispatch after cancellation")
}

func TestRunEmitsProgressEvents(t *testing.T) {
	reg := tools.NewRegistry()
	echo := &stubTool{name: "echo", payload: "ok"}
	require.NoError(t, reg.Register(echo))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "work", Calls: []types.ToolCall{callTo("echo", `{}`)}},
		{Text: "done"},
	}}

	var events []types.Event
	inv := newTestInvoker(t, reg, time.Second, 0)
	orch := New(provider, reg, inv, Options{OnEvent: func(e types.Event) {
		events = append(events, e)
	}})

	orch.Run(context.Background(), types.NewTask("goal"))

	var kinds []types.EventType
	for _, e := range events {
		kinds = append(kinds, e.Type)
	}
	assert.Equal(t, []types.EventType{
		types.EventTaskStarted,
		types.EventStatusChanged, // generating
		types.EventToolCall,
		types.EventToolResult,
		types.EventTaskFinished,
	}, kinds)
}

func TestRunSurfacesAdvisoryWarnings(t *testing.T) {
	reg := tools.NewRegistry()
	checker := &stubTool{name: "checker", payload: "Warning: no confirmation of publication found"}
	require.NoError(t, reg.Register(checker))

	provider := &scriptProvider{actions: []*llm.Action{
		{Text: "verify", Calls: []types.ToolCall{callTo("checker", `{}`)}},
		{Text: "done"},
	}}

	var warnings []string
	inv := newTestInvoker(t, reg, time.Second, 0)
	orch := New(provider, reg, inv, Options{OnEvent: func(e types.Event) {
		if e.Type == types.EventWarning {
			warnings = append(warnings, e.Detail)
		}
	}})

	outcome := orch.Run(context.Background(), types.NewTask("goal"))

	assert.Equal(t, types.OutcomeDone, outcome.Status, "an advisory warning never fails the task")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "no confirmation")
}

func TestTrimKeepsSystemAndGoal(t *testing.T) {
	task := types.NewTask("the goal")
	sess := newSession(task, "the system prompt")
	for i := 0; i < 40; i++ {
		sess.foldText(fmt.Sprintf("filler message %d with some padding text to occupy tokens", i))
	}

	orch := newOrchestrator(t, &scriptProvider{actions: []*llm.Action{{Text: "x"}}}, tools.NewRegistry(), Options{})
	before := len(sess.messages)
	sess.trim(orch.tok, 200)

	assert.Less(t, len(sess.messages), before)
	assert.Equal(t, types.RoleSystem, sess.messages[0].Role)
	assert.Contains(t, sess.messages[1].Content, "the goal")
}
