package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockAdapter implements Adapter for tests. It records sent messages and
// serves users and members registered with AddUser and SetMember.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan InboundMessage
	sent      []OutboundMessage
	users     map[string]User
	members   map[int64]map[int64]Member
	sendErr   error
}

// NewMockAdapter creates a MockAdapter with a buffered inbound channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound: make(chan InboundMessage, 100),
		users:   make(map[string]User),
		members: make(map[int64]map[int64]Member),
	}
}

func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

func (m *MockAdapter) Send(ctx context.Context, msg OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *MockAdapter) ResolveUser(ctx context.Context, identifier string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(strings.TrimPrefix(identifier, "@"))
	if u, ok := m.users[key]; ok {
		return u, nil
	}
	return User{}, fmt.Errorf("%w: %s", ErrUserNotFound, identifier)
}

func (m *MockAdapter) GetChatMember(ctx context.Context, chatID, userID int64) (Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mem, ok := m.members[chatID][userID]; ok {
		return mem, nil
	}
	return Member{UserID: userID, Status: StatusMember}, nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// --- Test helpers ---

// SimulateInbound queues a message as if it came from the platform.
func (m *MockAdapter) SimulateInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.inbound <- msg
}

// AddUser registers u under its id and username.
func (m *MockAdapter) AddUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strconv.FormatInt(u.ID, 10)] = u
	if u.UserName != "" {
		m.users[strings.ToLower(u.UserName)] = u
	}
}

// SetMember sets the membership returned for userID in chatID.
func (m *MockAdapter) SetMember(chatID int64, mem Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[chatID] == nil {
		m.members[chatID] = make(map[int64]Member)
	}
	m.members[chatID][mem.UserID] = mem
}

// FailSends makes every Send return err. Pass nil to restore.
func (m *MockAdapter) FailSends(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// LastSent returns the most recently sent message.
func (m *MockAdapter) LastSent() (OutboundMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return OutboundMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of every sent message.
func (m *MockAdapter) AllSent() []OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OutboundMessage, len(m.sent))
	copy(out, m.sent)
	return out
}
