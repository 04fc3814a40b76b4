// Package telegram implements the chat Adapter over the Telegram Bot API
// using long polling.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/zulandar/yukki/internal/chat"
	"go.uber.org/zap"
)

// pollTimeout is the long-polling timeout in seconds.
const pollTimeout = 60

// botAPI is the subset of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// AdapterOpts holds parameters for creating an Adapter.
type AdapterOpts struct {
	BotToken string
	Log      *zap.Logger
	// For testing: inject a fake API instead of connecting to Telegram.
	API botAPI
}

// Adapter implements chat.Adapter for Telegram.
type Adapter struct {
	api      botAPI
	token    string
	log      *zap.Logger
	username string

	mu        sync.Mutex
	connected bool
	closed    bool
	listening bool
	cancel    context.CancelFunc
	inbound   chan chat.InboundMessage
	closeOnce sync.Once
}

// New creates a Telegram Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.API == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Adapter{
		api:     opts.API,
		token:   opts.BotToken,
		log:     opts.Log.Named("telegram"),
		inbound: make(chan chat.InboundMessage, 100),
	}, nil
}

// Username returns the bot's username once connected.
func (a *Adapter) Username() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.username
}

// Connect authenticates with the Bot API.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("telegram: adapter already closed")
	}
	if a.connected {
		return nil
	}
	if a.api == nil {
		bot, err := tgbotapi.NewBotAPI(a.token)
		if err != nil {
			return fmt.Errorf("telegram: connect: %w", err)
		}
		a.api = bot
		a.username = bot.Self.UserName
		a.log.Info("authorized", zap.String("username", bot.Self.UserName))
	}
	a.connected = true
	return nil
}

// Listen starts long polling and returns the inbound channel.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.InboundMessage, error) {
	a.mu.Lock()
	if !a.connected {
		a.mu.Unlock()
		return nil, fmt.Errorf("telegram: not connected")
	}
	if a.listening {
		a.mu.Unlock()
		return nil, fmt.Errorf("telegram: already listening")
	}
	listenCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.listening = true
	a.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message"}
	updates := a.api.GetUpdatesChan(u)

	go func() {
		defer a.closeInbound()
		defer a.api.StopReceivingUpdates()
		for {
			select {
			case <-listenCtx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				msg, ok := convertMessage(upd.Message)
				if !ok {
					continue
				}
				select {
				case a.inbound <- msg:
				case <-listenCtx.Done():
					return
				}
			}
		}
	}()
	return a.inbound, nil
}

// Send delivers msg, attaching an inline keyboard when one is set.
func (a *Adapter) Send(ctx context.Context, msg chat.OutboundMessage) error {
	a.mu.Lock()
	connected := a.connected
	a.mu.Unlock()
	if !connected {
		return fmt.Errorf("telegram: not connected")
	}

	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	out.ReplyToMessageID = msg.ReplyTo
	out.DisableWebPagePreview = true
	if len(msg.Keyboard) > 0 {
		out.ReplyMarkup = keyboard(msg.Keyboard)
	}
	if _, err := a.api.Send(out); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", msg.ChatID, err)
	}
	return nil
}

// ResolveUser looks up a user by numeric id or @username.
func (a *Adapter) ResolveUser(ctx context.Context, identifier string) (chat.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return chat.User{}, fmt.Errorf("%w: empty identifier", chat.ErrUserNotFound)
	}

	var cfg tgbotapi.ChatInfoConfig
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = "@" + strings.TrimPrefix(identifier, "@")
	}
	c, err := a.api.GetChat(cfg)
	if err != nil {
		return chat.User{}, fmt.Errorf("%w: %s: %v", chat.ErrUserNotFound, identifier, err)
	}
	if c.Type != chat.ChatPrivate {
		return chat.User{}, fmt.Errorf("%w: %s is a %s", chat.ErrUserNotFound, identifier, c.Type)
	}
	return chat.User{ID: c.ID, UserName: c.UserName, FirstName: c.FirstName}, nil
}

// GetChatMember returns userID's membership in chatID.
func (a *Adapter) GetChatMember(ctx context.Context, chatID, userID int64) (chat.Member, error) {
	m, err := a.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return chat.Member{}, fmt.Errorf("telegram: get member %d in %d: %w", userID, chatID, err)
	}
	return chat.Member{
		UserID:              userID,
		Status:              m.Status,
		CanManageVideoChats: m.IsCreator() || m.CanManageVoiceChats,
	}, nil
}

// Close stops polling and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	cancel := a.cancel
	listening := a.listening
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if !listening {
		a.closeInbound()
	}
	return nil
}

func (a *Adapter) closeInbound() {
	a.closeOnce.Do(func() { close(a.inbound) })
}

// convertMessage maps a Bot API message to an InboundMessage. Non-text
// messages are dropped.
func convertMessage(m *tgbotapi.Message) (chat.InboundMessage, bool) {
	if m == nil || m.Chat == nil || m.Text == "" {
		return chat.InboundMessage{}, false
	}
	msg := chat.InboundMessage{
		ChatID:    m.Chat.ID,
		ChatType:  m.Chat.Type,
		ChatTitle: m.Chat.Title,
		MessageID: m.MessageID,
		Text:      m.Text,
		Timestamp: m.Time(),
	}
	if m.From != nil {
		msg.UserID = m.From.ID
		msg.UserName = m.From.UserName
	}
	if m.SenderChat != nil {
		msg.SenderChatID = m.SenderChat.ID
		// Anonymous admins arrive from the group's bot account.
		msg.UserID = 0
	}
	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		msg.ReplyToUserID = m.ReplyToMessage.From.ID
	}
	return msg, true
}

func keyboard(rows [][]chat.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
