package telegram

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zulandar/yukki/internal/chat"
)

var _ chat.Adapter = (*Adapter)(nil)

type fakeAPI struct {
	mu      sync.Mutex
	updates chan tgbotapi.Update
	sent    []tgbotapi.Chattable
	chats   map[string]tgbotapi.Chat
	members map[int64]tgbotapi.ChatMember
	stopped bool
	sendErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		updates: make(chan tgbotapi.Update, 10),
		chats:   make(map[string]tgbotapi.Chat),
		members: make(map[int64]tgbotapi.ChatMember),
	}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel { return f.updates }

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetChat(cfg tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error) {
	key := cfg.SuperGroupUsername
	if key == "" {
		key = strconv.FormatInt(cfg.ChatID, 10)
	}
	if c, ok := f.chats[key]; ok {
		return c, nil
	}
	return tgbotapi.Chat{}, errors.New("Bad Request: chat not found")
}

func (f *fakeAPI) GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error) {
	if m, ok := f.members[cfg.UserID]; ok {
		return m, nil
	}
	return tgbotapi.ChatMember{}, errors.New("Bad Request: user not found")
}

func connected(t *testing.T, api *fakeAPI) *Adapter {
	t.Helper()
	a, err := New(AdapterOpts{API: api})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(AdapterOpts{}); err == nil {
		t.Fatal("expected error without token")
	}
}

func TestListen_ConvertsMessages(t *testing.T) {
	api := newFakeAPI()
	a := connected(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := a.Listen(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Listen(ctx); err == nil {
		t.Error("second Listen should fail")
	}

	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: -1, Type: "private"}}} // no text, dropped
	api.updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID:      9,
		From:           &tgbotapi.User{ID: 5, UserName: "alice"},
		Chat:           &tgbotapi.Chat{ID: -100, Type: "supergroup", Title: "Music"},
		Text:           "/play song",
		Date:           1700000000,
		ReplyToMessage: &tgbotapi.Message{From: &tgbotapi.User{ID: 6}},
	}}

	select {
	case msg := <-ch:
		if msg.ChatID != -100 || msg.UserID != 5 || msg.Text != "/play song" || msg.MessageID != 9 {
			t.Errorf("msg = %+v", msg)
		}
		if msg.ReplyToUserID != 6 || msg.ChatType != chat.ChatSupergroup {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestConvertMessage_AnonymousAdmin(t *testing.T) {
	msg, ok := convertMessage(&tgbotapi.Message{
		From:       &tgbotapi.User{ID: 1087968824, UserName: "GroupAnonymousBot"},
		SenderChat: &tgbotapi.Chat{ID: -100},
		Chat:       &tgbotapi.Chat{ID: -100, Type: "supergroup"},
		Text:       "/stop",
	})
	if !ok {
		t.Fatal("message dropped")
	}
	if msg.UserID != 0 || msg.SenderChatID != -100 {
		t.Errorf("msg = %+v, want anonymous sender", msg)
	}
}

func TestSend_Keyboard(t *testing.T) {
	api := newFakeAPI()
	a := connected(t, api)

	err := a.Send(context.Background(), chat.OutboundMessage{
		ChatID:  -1,
		ReplyTo: 3,
		Text:    "hi",
		Keyboard: [][]chat.Button{
			{{Text: "Docs", URL: "https://example.org"}, {Text: "Close", Data: "close"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	mc, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", api.sent[0])
	}
	if mc.ChatID != -1 || mc.ReplyToMessageID != 3 || mc.Text != "hi" {
		t.Errorf("config = %+v", mc)
	}
	kb, ok := mc.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || len(kb.InlineKeyboard[0]) != 2 {
		t.Fatalf("markup = %#v", mc.ReplyMarkup)
	}
	if kb.InlineKeyboard[0][0].URL == nil || *kb.InlineKeyboard[0][0].URL != "https://example.org" {
		t.Error("url button not built")
	}
	if kb.InlineKeyboard[0][1].CallbackData == nil || *kb.InlineKeyboard[0][1].CallbackData != "close" {
		t.Error("data button not built")
	}
}

func TestSend_Errors(t *testing.T) {
	api := newFakeAPI()
	a, _ := New(AdapterOpts{API: api})
	if err := a.Send(context.Background(), chat.OutboundMessage{ChatID: 1, Text: "x"}); err == nil {
		t.Error("Send before Connect should fail")
	}
	a.Connect(context.Background())
	api.sendErr = errors.New("Forbidden: bot was kicked")
	if err := a.Send(context.Background(), chat.OutboundMessage{ChatID: 1, Text: "x"}); err == nil {
		t.Error("expected send error")
	}
}

func TestResolveUser(t *testing.T) {
	api := newFakeAPI()
	api.chats["@alice"] = tgbotapi.Chat{ID: 42, Type: "private", UserName: "alice"}
	api.chats["42"] = api.chats["@alice"]
	api.chats["@music"] = tgbotapi.Chat{ID: -100, Type: "channel"}
	a := connected(t, api)
	ctx := context.Background()

	for _, id := range []string{"alice", "@alice", "42"} {
		u, err := a.ResolveUser(ctx, id)
		if err != nil || u.ID != 42 {
			t.Errorf("ResolveUser(%q) = (%+v, %v)", id, u, err)
		}
	}
	for _, id := range []string{"@music", "@nobody", ""} {
		if _, err := a.ResolveUser(ctx, id); !errors.Is(err, chat.ErrUserNotFound) {
			t.Errorf("ResolveUser(%q) err = %v, want ErrUserNotFound", id, err)
		}
	}
}

func TestGetChatMember(t *testing.T) {
	api := newFakeAPI()
	api.members[5] = tgbotapi.ChatMember{Status: "administrator", CanManageVoiceChats: true}
	api.members[6] = tgbotapi.ChatMember{Status: "creator"}
	a := connected(t, api)
	ctx := context.Background()

	m, err := a.GetChatMember(ctx, -1, 5)
	if err != nil || !m.CanManageCalls() {
		t.Errorf("member 5 = (%+v, %v)", m, err)
	}
	m, _ = a.GetChatMember(ctx, -1, 6)
	if !m.CanManageCalls() || !m.IsAdmin() {
		t.Errorf("creator = %+v", m)
	}
	if _, err := a.GetChatMember(ctx, -1, 7); err == nil {
		t.Error("expected error for unknown member")
	}
}

func TestClose(t *testing.T) {
	a := connected(t, newFakeAPI())
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("double Close: %v", err)
	}
	if err := a.Connect(context.Background()); err == nil {
		t.Error("Connect after Close should fail")
	}
}
