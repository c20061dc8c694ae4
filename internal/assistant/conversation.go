// ABOUTME: Conversation keeps the assistant exchange history for one relay session
// ABOUTME: Identified by a UUID that changes on Reset

package assistant

import (
	"github.com/google/uuid"
)

// maxTurns bounds the history sent with each request.
const maxTurns = 20

// Conversation is owned by the relay loop and not safe for concurrent use.
type Conversation struct {
	id    string
	turns []Turn
}

// NewConversation starts an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{id: uuid.NewString()}
}

// ID identifies the conversation in logs.
func (c *Conversation) ID() string { return c.id }

// Len returns the number of recorded turns.
func (c *Conversation) Len() int { return len(c.turns) }

// Request builds a request for instr carrying a copy of the history.
func (c *Conversation) Request(instr string) Request {
	history := make([]Turn, len(c.turns))
	copy(history, c.turns)
	return Request{ConversationID: c.id, Instruction: instr, History: history}
}

// Record appends a finished exchange, dropping the oldest turns past maxTurns.
func (c *Conversation) Record(instr string, resp Response) {
	c.turns = append(c.turns, Turn{Instruction: instr, Response: resp})
	if over := len(c.turns) - maxTurns; over > 0 {
		c.turns = append(c.turns[:0], c.turns[over:]...)
	}
}

// Reset forgets all turns and starts a new conversation id.
func (c *Conversation) Reset() {
	c.turns = nil
	c.id = uuid.NewString()
}
