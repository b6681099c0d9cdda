package session

import (
	"time"

	"github.com/google/uuid"
)

// Chat roles understood by the worker.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a persisted conversation with the routine advisor
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	WorkerURL string    `json:"worker_url"`
	Messages  []Message `json:"messages"`
}

// New starts an empty session bound to a worker endpoint.
func New(workerURL string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		WorkerURL: workerURL,
		Messages:  []Message{},
	}
}
