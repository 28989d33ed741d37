package agents

import "stock-agent/models"

// ConversationMemory holds the user/assistant turns of one agent.
// It is not shared between agents and is not safe for concurrent use.
type ConversationMemory struct {
	messages []models.Message
}

// NewConversationMemory creates an empty memory
func NewConversationMemory() *ConversationMemory {
	return &ConversationMemory{}
}

// Messages returns a copy of the stored turns, oldest first
func (m *ConversationMemory) Messages() []models.Message {
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// SaveTurn appends a completed exchange
func (m *ConversationMemory) SaveTurn(input, output string) {
	m.messages = append(m.messages, models.UserMessage(input), models.AssistantMessage(output))
}

// Len returns the number of stored messages
func (m *ConversationMemory) Len() int {
	return len(m.messages)
}
