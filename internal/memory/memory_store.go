package memory

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests. Sessions
// expire ttl after their last message.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*SessionData
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
}

func NewMemoryStore(ttl time.Duration, maxMessages int) *MemoryStore {
	return &MemoryStore{
		sessions:    make(map[string]*SessionData),
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         time.Now,
	}
}

// live returns the session if present and not expired. Caller holds mu.
func (s *MemoryStore) live(sessionID string) (*SessionData, bool) {
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.ttl > 0 && s.now().Sub(session.Metadata.LastActivity) > s.ttl {
		return nil, false
	}
	return session, true
}

func (s *MemoryStore) LoadSession(_ context.Context, sessionID string) (*SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.live(sessionID)
	if !ok {
		return newSession(sessionID, s.now()), nil
	}
	cp := *session
	cp.Messages = append([]Message(nil), session.Messages...)
	return &cp, nil
}

func (s *MemoryStore) SaveMessage(_ context.Context, sessionID, userID string, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(sessionID)
	if !ok {
		session = newSession(sessionID, msg.Timestamp)
		s.sessions[sessionID] = session
	}
	session.appendMessage(userID, msg, s.maxMessages)
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, sessionID string) ([]Message, error) {
	session, err := s.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return session.Messages, nil
}

func (s *MemoryStore) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) SessionExists(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.live(sessionID)
	return ok, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
