// Package bot is the Telegram-facing daemon: it pumps inbound messages
// through the access checks and routes commands to the components.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/zulandar/yukki/internal/app"
	"github.com/zulandar/yukki/internal/chat"
	"go.uber.org/zap"
)

// DefaultWorkers bounds how many messages are handled concurrently.
const DefaultWorkers = 16

// Opts holds parameters for creating a Bot.
type Opts struct {
	App     *app.App
	Adapter chat.Adapter
	Workers int // defaults to DefaultWorkers
	Log     *zap.Logger
}

// Bot handles inbound chat messages.
type Bot struct {
	app      *app.App
	adapter  chat.Adapter
	workers  int
	log      *zap.Logger
	commands map[string]command
}

// New creates a Bot.
func New(opts Opts) (*Bot, error) {
	if opts.App == nil {
		return nil, fmt.Errorf("bot: app is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("bot: adapter is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	b := &Bot{
		app:     opts.App,
		adapter: opts.Adapter,
		workers: opts.Workers,
		log:     opts.Log.Named("bot"),
	}
	b.commands = b.commandTable()
	return b, nil
}

// Run connects the adapter and handles messages until ctx is cancelled or
// the adapter closes its inbound channel. In-flight handlers are waited
// for before Run returns.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.adapter.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}
	inbound, err := b.adapter.Listen(ctx)
	if err != nil {
		b.adapter.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}
	b.log.Info("bot online", zap.Int("workers", b.workers))

	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot shutting down")
			if err := b.adapter.Close(); err != nil {
				b.log.Warn("close adapter", zap.Error(err))
			}
			return nil

		case msg, ok := <-inbound:
			if !ok {
				b.log.Info("inbound channel closed")
				return nil
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				b.handleSafely(ctx, msg)
			}()
		}
	}
}

func (b *Bot) handleSafely(ctx context.Context, msg chat.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("handler panic",
				zap.Int64("chat_id", msg.ChatID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	b.Handle(ctx, msg)
}

// Handle processes one inbound message synchronously.
func (b *Bot) Handle(ctx context.Context, msg chat.InboundMessage) {
	if b.app.Lists.Ignored(msg.UserID, msg.ChatID) {
		return
	}
	b.app.Lists.Track(ctx, msg.UserID, msg.ChatID)

	name, args, ok := parseCommand(msg.Text, b.username())
	if !ok {
		b.matchFilters(ctx, msg)
		return
	}
	cmd, ok := b.commands[name]
	if !ok {
		return
	}

	r := &request{
		msg:  msg,
		name: name,
		args: args,
		sudo: b.app.Sudo.Has(msg.UserID),
	}
	if b.app.Settings.InMaintenance(ctx) && !r.sudo {
		b.log.Debug("dropped during maintenance", zap.Int64("chat_id", msg.ChatID), zap.String("command", name))
		return
	}
	r.lang = b.app.Settings.Language(ctx, msg.ChatID)

	if !b.allowed(ctx, r, cmd.guard) {
		return
	}
	cmd.run(ctx, r)
}

// username returns the bot's own username when the adapter knows it.
func (b *Bot) username() string {
	if u, ok := b.adapter.(interface{ Username() string }); ok {
		return u.Username()
	}
	return ""
}

// request is one parsed command invocation.
type request struct {
	msg  chat.InboundMessage
	name string
	args []string
	lang string
	sudo bool
}

func (b *Bot) reply(ctx context.Context, r *request, key string, args ...any) {
	b.send(ctx, chat.OutboundMessage{
		ChatID:  r.msg.ChatID,
		ReplyTo: r.msg.MessageID,
		Text:    t(r.lang, key, args...),
	})
}

func (b *Bot) send(ctx context.Context, out chat.OutboundMessage) {
	if err := b.adapter.Send(ctx, out); err != nil {
		b.log.Warn("send reply", zap.Int64("chat_id", out.ChatID), zap.Error(err))
	}
}
