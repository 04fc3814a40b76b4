package chat

import (
	"context"
	"errors"
	"testing"
	"time"
)

var _ Adapter = (*MockAdapter)(nil)

func TestMockAdapter_ConnectAndClose(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Connect(ctx); err == nil {
		t.Fatal("Connect after Close should fail")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("double Close should succeed: %v", err)
	}
}

func TestMockAdapter_RequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	if _, err := m.Listen(ctx); err == nil {
		t.Error("Listen before Connect should fail")
	}
	if err := m.Send(ctx, OutboundMessage{Text: "hi"}); err == nil {
		t.Error("Send before Connect should fail")
	}
}

func TestMockAdapter_SimulateInbound(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)
	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatal(err)
	}

	m.SimulateInbound(InboundMessage{ChatID: -1, UserID: 5, Text: "/play x"})
	select {
	case msg := <-ch:
		if msg.Text != "/play x" || msg.Timestamp.IsZero() {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestMockAdapter_SendRecords(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)

	m.Send(ctx, OutboundMessage{ChatID: -1, Text: "one"})
	m.Send(ctx, OutboundMessage{ChatID: -1, Text: "two", Keyboard: [][]Button{{{Text: "Close", Data: "close"}}}})
	if m.SentCount() != 2 {
		t.Fatalf("SentCount = %d, want 2", m.SentCount())
	}
	last, _ := m.LastSent()
	if last.Text != "two" || len(last.Keyboard) != 1 {
		t.Errorf("LastSent = %+v", last)
	}

	m.FailSends(errors.New("flood wait"))
	if err := m.Send(ctx, OutboundMessage{Text: "three"}); err == nil {
		t.Error("expected injected send error")
	}
}

func TestMockAdapter_ResolveUser(t *testing.T) {
	m := NewMockAdapter()
	m.AddUser(User{ID: 42, UserName: "Alice"})
	ctx := context.Background()

	for _, id := range []string{"42", "@alice", "ALICE"} {
		u, err := m.ResolveUser(ctx, id)
		if err != nil || u.ID != 42 {
			t.Errorf("ResolveUser(%q) = (%+v, %v)", id, u, err)
		}
	}
	if _, err := m.ResolveUser(ctx, "@bob"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestMember(t *testing.T) {
	tests := []struct {
		m         Member
		admin     bool
		canManage bool
	}{
		{Member{Status: StatusCreator}, true, true},
		{Member{Status: StatusAdministrator, CanManageVideoChats: true}, true, true},
		{Member{Status: StatusAdministrator}, true, false},
		{Member{Status: StatusMember, CanManageVideoChats: true}, false, false},
	}
	for _, tt := range tests {
		if got := tt.m.IsAdmin(); got != tt.admin {
			t.Errorf("%+v IsAdmin = %v, want %v", tt.m, got, tt.admin)
		}
		if got := tt.m.CanManageCalls(); got != tt.canManage {
			t.Errorf("%+v CanManageCalls = %v, want %v", tt.m, got, tt.canManage)
		}
	}

	mock := NewMockAdapter()
	mock.SetMember(-1, Member{UserID: 7, Status: StatusAdministrator})
	got, _ := mock.GetChatMember(context.Background(), -1, 7)
	if !got.IsAdmin() {
		t.Error("SetMember not honored")
	}
	got, _ = mock.GetChatMember(context.Background(), -1, 8)
	if got.Status != StatusMember {
		t.Errorf("default status = %q, want member", got.Status)
	}
}
