// Package chat builds and renders the conversation with the routine advisor.
package chat

import (
	"sync"
	"time"

	"RoutineBuilder/internal/session"
)

// SystemPrompt keeps the advisor on the products and beauty topics.
const SystemPrompt = `You are a friendly L'Oréal beauty advisor. Using only the products the user selected, build a clear, step-by-step routine: say when (morning/evening) and in which order to use each product, and why. After the routine is generated, answer follow-up questions about the routine or about skincare, haircare, makeup, fragrance and related beauty topics. Politely decline unrelated questions. Keep answers concise and use short numbered steps.`

// History is the running conversation. The system prompt is always the first message.
type History struct {
	mu       sync.Mutex
	messages []session.Message
}

// NewHistory starts a conversation with systemPrompt (SystemPrompt when empty).
func NewHistory(systemPrompt string) *History {
	h := &History{}
	h.reset(systemPrompt)
	return h
}

// FromMessages rebuilds a history from stored messages, adding SystemPrompt if none leads them.
func FromMessages(messages []session.Message) *History {
	h := &History{}
	if len(messages) == 0 || messages[0].Role != session.RoleSystem {
		h.messages = append(h.messages, session.Message{Role: session.RoleSystem, Content: SystemPrompt, Timestamp: time.Now()})
	}
	h.messages = append(h.messages, messages...)
	return h
}

// AddUser appends a user message and returns a snapshot including it.
func (h *History) AddUser(content string) []session.Message {
	return h.add(session.RoleUser, content)
}

// AddAssistant appends an assistant message.
func (h *History) AddAssistant(content string) {
	h.add(session.RoleAssistant, content)
}

func (h *History) add(role, content string) []session.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, session.Message{Role: role, Content: content, Timestamp: time.Now()})
	return h.snapshot()
}

// Messages returns every message, system prompt included.
func (h *History) Messages() []session.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshot()
}

// Visible returns the messages a user should see: everything but system messages.
func (h *History) Visible() []session.Message {
	return Visible(h.Messages())
}

// Len counts every message, system prompt included.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Reset drops everything but the system prompt.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	prompt := SystemPrompt
	if len(h.messages) > 0 && h.messages[0].Role == session.RoleSystem {
		prompt = h.messages[0].Content
	}
	h.reset(prompt)
}

func (h *History) reset(systemPrompt string) {
	if systemPrompt == "" {
		systemPrompt = SystemPrompt
	}
	h.messages = []session.Message{{Role: session.RoleSystem, Content: systemPrompt, Timestamp: time.Now()}}
}

func (h *History) snapshot() []session.Message {
	out := make([]session.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Visible filters out system-role messages.
func Visible(messages []session.Message) []session.Message {
	out := make([]session.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == session.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	return out
}
