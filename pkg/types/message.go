// Package types defines the shared data model for redpen: conversation
// messages, tasks and turns, tool calls, and the tagged tool result variant
// consumed by the orchestrator.
package types

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem is the system prompt role.
	RoleSystem Role = "system"

	// RoleUser is the user (or tool-result feedback) role.
	RoleUser Role = "user"

	// RoleAssistant is the model's role.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in the conversation context sent to the model
// backend. Tool results are folded back into the conversation as user
// messages, so only the three chat roles exist.
type Message struct {
	Role    Role
	Content string
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}
