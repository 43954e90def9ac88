package agent

import (
	"fmt"
	"strings"

	"github.com/redpen-ai/redpen/pkg/llm/tokenizer"
	"github.com/redpen-ai/redpen/pkg/types"
)

// session is the mutable per-run state: the task record plus the
// conversation the model sees. It is owned by a single Run call and never
// shared across goroutines.
type session struct {
	task     *types.Task
	messages []*types.Message
}

func newSession(task *types.Task, systemPrompt string) *session {
	s := &session{task: task}
	s.messages = append(s.messages, types.NewSystemMessage(systemPrompt))
	s.messages = append(s.messages, types.NewUserMessage(goalMessage(task)))
	return s
}

func (s *session) appendAssistant(text string) {
	if text != "" {
		s.messages = append(s.messages, types.NewAssistantMessage(text))
	}
}

// fold records a tool result into the conversation as a user message.
func (s *session) fold(res types.ToolResult) {
	s.messages = append(s.messages, types.NewUserMessage(
		fmt.Sprintf("Tool '%s' result:\n%s", res.Tool, res.Payload)))
}

func (s *session) foldText(text string) {
	s.messages = append(s.messages, types.NewUserMessage(text))
}

// trim drops the oldest non-system messages until the conversation fits the
// token budget. The system prompt and the original goal are always kept.
func (s *session) trim(tok *tokenizer.Tokenizer, budget int) {
	if budget <= 0 {
		return
	}
	const keptHead = 2 // system prompt + goal
	for len(s.messages) > keptHead+2 && tok.CountMessages(s.messages) > budget {
		s.messages = append(s.messages[:keptHead], s.messages[keptHead+1:]...)
	}
}

func goalMessage(task *types.Task) string {
	var b strings.Builder
	b.WriteString(task.Goal)
	if len(task.KnowledgeRefs) > 0 {
		b.WriteString("\n\nReference material for this task:\n")
		for _, ref := range task.KnowledgeRefs {
			b.WriteString("- ")
			b.WriteString(ref)
			b.WriteString("\n")
		}
	}
	return b.String()
}
