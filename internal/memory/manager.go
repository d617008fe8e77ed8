package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

// DefaultMaxCachedSessions bounds the in-process buffer cache.
const DefaultMaxCachedSessions = 1000

// Manager keeps a LangChainGo buffer per session in front of a Store.
// histMu guards the buffers themselves, which are not safe for concurrent use.
// The store is the source of truth: a cached buffer whose session the store
// no longer holds is discarded.
type Manager struct {
	store       Store
	mu          sync.Mutex
	sessions    map[string]*cachedSession
	histMu      sync.Mutex
	maxMessages int
	ttl         time.Duration
	maxSessions int
	logger      *zap.Logger
	now         func() time.Time
}

type cachedSession struct {
	buf      *memory.ConversationBuffer
	lastUsed time.Time
}

type ManagerOption func(*Manager)

// WithSessionTTL drops cached buffers idle for longer than ttl.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) { m.ttl = ttl }
}

// WithMaxCachedSessions caps the number of cached buffers; the least
// recently used are evicted first.
func WithMaxCachedSessions(n int) ManagerOption {
	return func(m *Manager) { m.maxSessions = n }
}

// NewManager wraps store. maxMessages bounds the history rendered into
// prompts; zero means unbounded.
func NewManager(store Store, maxMessages int, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:       store,
		sessions:    make(map[string]*cachedSession),
		maxMessages: maxMessages,
		maxSessions: DefaultMaxCachedSessions,
		logger:      logger.Named("memory"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) expired(c *cachedSession, now time.Time) bool {
	return m.ttl > 0 && now.Sub(c.lastUsed) > m.ttl
}

// session returns the cached buffer for sessionID, loading it from the
// store on first use or once the cached copy has gone stale.
func (m *Manager) session(ctx context.Context, sessionID string) (*memory.ConversationBuffer, error) {
	now := m.now()

	m.mu.Lock()
	cached, ok := m.sessions[sessionID]
	if ok && m.expired(cached, now) {
		delete(m.sessions, sessionID)
		ok = false
	}
	if ok {
		cached.lastUsed = now
	}
	m.mu.Unlock()

	if ok {
		stale, err := m.stale(ctx, sessionID, cached.buf)
		if err != nil {
			return nil, err
		}
		if !stale {
			return cached.buf, nil
		}
		m.mu.Lock()
		if m.sessions[sessionID] == cached {
			delete(m.sessions, sessionID)
		}
		m.mu.Unlock()
		m.logger.Debug("dropped stale session", zap.String("session_id", sessionID))
	}

	data, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	buf := memory.NewConversationBuffer()
	for _, msg := range data.Messages {
		chatMsg, ok := toChatMessage(msg)
		if !ok {
			m.logger.Warn("skipping message with unknown role",
				zap.String("session_id", sessionID),
				zap.String("role", msg.Role))
			continue
		}
		if err := buf.ChatHistory.AddMessage(ctx, chatMsg); err != nil {
			return nil, fmt.Errorf("failed to add message to memory: %w", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[sessionID]; ok && !m.expired(existing, now) {
		existing.lastUsed = now
		return existing.buf, nil
	}
	m.sessions[sessionID] = &cachedSession{buf: buf, lastUsed: now}
	m.evictLocked(now)
	m.logger.Debug("session loaded",
		zap.String("session_id", sessionID),
		zap.Int("messages", len(data.Messages)))
	return buf, nil
}

// stale reports whether buf holds history the store has since expired or
// cleared. Messages reach the store before the buffer, so a non-empty
// buffer for a missing session can only be left over.
func (m *Manager) stale(ctx context.Context, sessionID string, buf *memory.ConversationBuffer) (bool, error) {
	m.histMu.Lock()
	messages, err := buf.ChatHistory.Messages(ctx)
	m.histMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("failed to get messages: %w", err)
	}
	if len(messages) == 0 {
		return false, nil
	}
	exists, err := m.store.SessionExists(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return !exists, nil
}

// evictLocked drops expired buffers, then the least recently used ones,
// until the cache fits. Caller holds mu.
func (m *Manager) evictLocked(now time.Time) {
	if m.maxSessions <= 0 || len(m.sessions) <= m.maxSessions {
		return
	}
	for id, c := range m.sessions {
		if m.expired(c, now) {
			delete(m.sessions, id)
		}
	}
	for len(m.sessions) > m.maxSessions {
		var oldestID string
		var oldest time.Time
		for id, c := range m.sessions {
			if oldestID == "" || c.lastUsed.Before(oldest) {
				oldestID, oldest = id, c.lastUsed
			}
		}
		delete(m.sessions, oldestID)
	}
}

func toChatMessage(msg Message) (llms.ChatMessage, bool) {
	switch msg.Role {
	case RoleUser:
		return llms.HumanChatMessage{Content: msg.Content}, true
	case RoleAssistant:
		return llms.AIChatMessage{Content: msg.Content}, true
	case RoleSystem:
		return llms.SystemChatMessage{Content: msg.Content}, true
	default:
		return nil, false
	}
}

func (m *Manager) save(ctx context.Context, sessionID, userID, role, content string) error {
	buf, err := m.session(ctx, sessionID)
	if err != nil {
		return err
	}

	msg := Message{Role: role, Content: content, Timestamp: m.now()}
	if err := m.store.SaveMessage(ctx, sessionID, userID, msg); err != nil {
		return fmt.Errorf("failed to persist %s message: %w", role, err)
	}

	chatMsg, _ := toChatMessage(msg)
	m.histMu.Lock()
	err = buf.ChatHistory.AddMessage(ctx, chatMsg)
	m.histMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to add %s message to memory: %w", role, err)
	}
	return nil
}

func (m *Manager) SaveUserMessage(ctx context.Context, sessionID, userID, message string) error {
	return m.save(ctx, sessionID, userID, RoleUser, message)
}

func (m *Manager) SaveAssistantMessage(ctx context.Context, sessionID, userID, message string) error {
	return m.save(ctx, sessionID, userID, RoleAssistant, message)
}

// RecordTurn stores a visitor message and the agent's reply.
func (m *Manager) RecordTurn(ctx context.Context, sessionID, userID, userMessage, reply string) error {
	if err := m.SaveUserMessage(ctx, sessionID, userID, userMessage); err != nil {
		return err
	}
	return m.SaveAssistantMessage(ctx, sessionID, userID, reply)
}

// FormattedHistory renders the most recent messages as "User: ..." and
// "Assistant: ..." lines. An empty session yields "".
func (m *Manager) FormattedHistory(ctx context.Context, sessionID string) (string, error) {
	buf, err := m.session(ctx, sessionID)
	if err != nil {
		return "", err
	}

	m.histMu.Lock()
	messages, err := buf.ChatHistory.Messages(ctx)
	m.histMu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}
	if m.maxMessages > 0 && len(messages) > m.maxMessages {
		messages = messages[len(messages)-m.maxMessages:]
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", msg.Content)
		case llms.SystemChatMessage:
			fmt.Fprintf(&b, "System: %s\n", msg.Content)
		}
	}
	return b.String(), nil
}

// Messages returns the stored messages for a session.
func (m *Manager) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	return m.store.GetMessages(ctx, sessionID)
}

func (m *Manager) ClearSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if err := m.store.ClearSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	m.logger.Debug("session cleared", zap.String("session_id", sessionID))
	return nil
}

func (m *Manager) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	return m.store.SessionExists(ctx, sessionID)
}

// ActiveSessions returns the number of cached sessions.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

func (m *Manager) Close() error {
	return m.store.Close()
}
