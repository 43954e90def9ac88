package review

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
	"github.com/redpen-ai/redpen/pkg/types"
)

// scriptedReviewer returns canned outcomes in order.
type scriptedReviewer struct {
	outcomes []*Outcome
	err      error
	seen     []Draft
}

func (s *scriptedReviewer) Review(ctx context.Context, draft Draft) (*Outcome, error) {
	s.seen = append(s.seen, draft)
	if s.err != nil {
		return nil, s.err
	}
	out := s.outcomes[0]
	if len(s.outcomes) > 1 {
		s.outcomes = s.outcomes[1:]
	}
	return out, nil
}

func execute(t *testing.T, tool *Tool, draft map[string]interface{}) (string, error) {
	t.Helper()
	raw, err := json.Marshal(draft)
	require.NoError(t, err)
	return tool.Execute(context.Background(), raw)
}

func TestApproveRoundTrip(t *testing.T) {
	rev := &scriptedReviewer{outcomes: []*Outcome{{Decision: DecisionApprove}}}
	tool := New(rev)

	payload, err := execute(t, tool, map[string]interface{}{
		"title": "周末去处", "body": "正文", "media": []string{"/tmp/a.png"},
	})
	require.NoError(t, err)

	out, err := ParseOutcome(payload)
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, out.Decision)

	require.Len(t, rev.seen, 1)
	assert.Equal(t, "周末去处", rev.seen[0].Title)
	assert.Equal(t, []string{"/tmp/a.png"}, rev.seen[0].Media)
}

func TestReviseCarriesFeedback(t *testing.T) {
	rev := &scriptedReviewer{outcomes: []*Outcome{{Decision: DecisionRevise, Feedback: "标题太平了"}}}
	tool := New(rev)

	payload, err := execute(t, tool, map[string]interface{}{"title": "t", "body": "b"})
	require.NoError(t, err)

	out, err := ParseOutcome(payload)
	require.NoError(t, err)
	assert.Equal(t, DecisionRevise, out.Decision)
	assert.Equal(t, "标题太平了", out.Feedback)
}

func TestEmptyDraftRefused(t *testing.T) {
	tool := New(&scriptedReviewer{outcomes: []*Outcome{{Decision: DecisionApprove}}})
	_, err := execute(t, tool, map[string]interface{}{})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindIO, types.KindOf(err))
}

func TestReviewerErrorWrapped(t *testing.T) {
	tool := New(&scriptedReviewer{err: errors.New("terminal closed")})
	_, err := execute(t, tool, map[string]interface{}{"title": "t", "body": "b"})
	require.Error(t, err)
	assert.Equal(t, types.ErrKindIO, types.KindOf(err))
}

func TestCancellationPassesThrough(t *testing.T) {
	blocking := &blockingReviewer{}
	tool := New(blocking)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		raw, _ := json.Marshal(map[string]interface{}{"title": "t", "body": "b"})
		_, err := tool.Execute(ctx, raw)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("review did not unblock on cancellation")
	}
}

type blockingReviewer struct{}

func (b *blockingReviewer) Review(ctx context.Context, draft Draft) (*Outcome, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestParseOutcomeRejectsUnknownDecision(t *testing.T) {
	_, err := ParseOutcome(`{"decision": "maybe"}`)
	require.Error(t, err)
}

func TestPolicyExemptsTimeoutAndRetry(t *testing.T) {
	tool := New(&scriptedReviewer{outcomes: []*Outcome{{Decision: DecisionApprove}}})
	pol := tools.PolicyFor(tool)
	assert.True(t, pol.NoTimeout, "a pending human decision must never be timed out")
	assert.True(t, pol.NoRetry, "re-prompting would duplicate the decision")
}
