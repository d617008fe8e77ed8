package memory

import (
	"context"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn of a visitor conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionData is everything stored for a chat session.
type SessionData struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	Metadata  Metadata  `json:"metadata"`
}

type Metadata struct {
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

func newSession(sessionID string, now time.Time) *SessionData {
	return &SessionData{
		SessionID: sessionID,
		Messages:  []Message{},
		Metadata: Metadata{
			StartedAt:    now,
			LastActivity: now,
		},
	}
}

// appendMessage adds msg and keeps at most max messages (max <= 0 keeps all).
// MessageCount tracks every message ever added, not just the retained ones.
func (s *SessionData) appendMessage(userID string, msg Message, max int) {
	if s.UserID == "" {
		s.UserID = userID
	}
	if s.Metadata.MessageCount == 0 && len(s.Messages) == 0 {
		s.Metadata.StartedAt = msg.Timestamp
	}
	s.Messages = append(s.Messages, msg)
	if max > 0 && len(s.Messages) > max {
		s.Messages = append([]Message(nil), s.Messages[len(s.Messages)-max:]...)
	}
	s.Metadata.LastActivity = msg.Timestamp
	s.Metadata.MessageCount++
}

// Store persists sessions. RedisStore is used in production and MemoryStore
// when no Redis is configured.
type Store interface {
	// LoadSession returns an empty session when none exists.
	LoadSession(ctx context.Context, sessionID string) (*SessionData, error)
	SaveMessage(ctx context.Context, sessionID, userID string, msg Message) error
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)
	ClearSession(ctx context.Context, sessionID string) error
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
