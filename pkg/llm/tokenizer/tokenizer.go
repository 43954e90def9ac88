// Package tokenizer provides client-side token counting backed by
// tiktoken-go, with a character heuristic fallback when the encoding
// cannot be initialized.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/redpen-ai/redpen/pkg/types"
)

// perMessageOverhead approximates the role and framing tokens the chat
// format adds around each message.
const perMessageOverhead = 4

// Tokenizer counts tokens with the cl100k_base encoding.
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// New creates a tokenizer. A non-nil Tokenizer with a nil encoding is
// returned on initialization failure; counting then falls back to the
// heuristic.
func New() *Tokenizer {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Tokenizer{}
	}
	return &Tokenizer{encoding: enc}
}

// Count returns the token count of text.
func (t *Tokenizer) Count(text string) int {
	if t.encoding != nil {
		return len(t.encoding.Encode(text, nil, nil))
	}
	// Rough estimate: one token per four characters.
	return (len(text) + 3) / 4
}

// CountMessages returns the token count of a message list including the
// per-message chat framing overhead.
func (t *Tokenizer) CountMessages(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		total += t.Count(msg.Content) + perMessageOverhead
	}
	return total
}
