package calls

import (
	"context"
	"fmt"
	"sync"
)

// Call records one MockGateway invocation.
type Call struct {
	Op             string // "join" or "leave"
	AssistantIndex int
	ChatID         int64
	Source         MediaSource
}

// MockGateway is an in-memory Gateway for tests and dry runs.
type MockGateway struct {
	mu     sync.Mutex
	calls  []Call
	joined map[int64]int

	// NoCall lists chats without a running voice chat.
	NoCall map[int64]bool
	// JoinErr, when set, is returned from every JoinCall.
	JoinErr error
}

// NewMockGateway creates a MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{joined: make(map[int64]int), NoCall: make(map[int64]bool)}
}

func (m *MockGateway) JoinCall(_ context.Context, assistantIndex int, chatID int64, src MediaSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "join", AssistantIndex: assistantIndex, ChatID: chatID, Source: src})
	if m.JoinErr != nil {
		return m.JoinErr
	}
	if m.NoCall[chatID] {
		return ErrNoActiveGroupCall
	}
	m.joined[chatID] = assistantIndex
	return nil
}

func (m *MockGateway) LeaveCall(_ context.Context, assistantIndex int, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "leave", AssistantIndex: assistantIndex, ChatID: chatID})
	if _, ok := m.joined[chatID]; !ok {
		return fmt.Errorf("calls: not in a call in %d", chatID)
	}
	delete(m.joined, chatID)
	return nil
}

// Calls returns a copy of every recorded invocation.
func (m *MockGateway) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Joined returns the assistant currently in chatID's call.
func (m *MockGateway) Joined(chatID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx, ok := m.joined[chatID]
	return idx, ok
}
