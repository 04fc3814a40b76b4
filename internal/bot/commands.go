package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/yukki/internal/assistant"
	"github.com/zulandar/yukki/internal/calls"
	"github.com/zulandar/yukki/internal/chat"
	"github.com/zulandar/yukki/internal/player"
	"github.com/zulandar/yukki/internal/settings"
	"github.com/zulandar/yukki/internal/sudo"
	"go.uber.org/zap"
)

func (b *Bot) cmdHelp(ctx context.Context, r *request) {
	b.reply(ctx, r, "help")
}

// cmdPlay handles /play, /vplay and their channel variants.
func (b *Bot) cmdPlay(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/"+r.name+" <url>")
		return
	}
	b.stream(ctx, r, r.args[0], strings.Contains(r.name, "vplay"))
}

// stream starts url in the command's target chat once the sender passes
// the chat's play type.
func (b *Bot) stream(ctx context.Context, r *request, url string, video bool) {
	if r.msg.SenderChatID != 0 {
		b.reply(ctx, r, "anonymous_admin")
		return
	}
	target, ok := b.target(ctx, r)
	if !ok {
		return
	}
	if b.app.Settings.PlayType(ctx, r.msg.ChatID) == "Admins" && !r.sudo &&
		!b.app.Auth.Has(ctx, r.msg.ChatID, r.msg.UserID) {
		m, err := b.adapter.GetChatMember(ctx, r.msg.ChatID, r.msg.UserID)
		if err != nil || !m.CanManageCalls() {
			b.reply(ctx, r, "play_admins_only")
			return
		}
	}

	idx, err := b.app.Player.Play(ctx, target, url, video)
	var badIndex *assistant.InvalidAssistantIndexError
	switch {
	case err == nil:
		kind := t(r.lang, "kind_audio")
		if video {
			kind = t(r.lang, "kind_video")
		}
		b.reply(ctx, r, "streaming", kind, idx)
	case errors.Is(err, player.ErrVideoLimit):
		b.reply(ctx, r, "video_limit", b.app.Admission.Limit(ctx))
	case errors.Is(err, calls.ErrNoActiveGroupCall):
		b.reply(ctx, r, "no_active_call")
	case errors.Is(err, assistant.ErrNoAssistantAvailable):
		b.reply(ctx, r, "no_assistant")
	case errors.As(err, &badIndex):
		b.log.Warn("assistant has no call session", zap.Int64("chat_id", target), zap.Int("assistant", badIndex.Index))
		b.reply(ctx, r, "play_failed", badIndex)
	default:
		b.log.Error("play failed", zap.Int64("chat_id", target), zap.Error(err))
		b.reply(ctx, r, "play_failed", err)
	}
}

// cmdStop handles /stop and its aliases. Without the admin exemption only
// call admins, authorized users and sudoers may stop a stream.
func (b *Bot) cmdStop(ctx context.Context, r *request) {
	if r.msg.SenderChatID != 0 {
		b.reply(ctx, r, "anonymous_admin")
		return
	}
	target, ok := b.target(ctx, r)
	if !ok {
		return
	}
	if !b.app.Active.Has(target) && !b.app.Active.HasVideo(target) {
		b.reply(ctx, r, "not_streaming")
		return
	}
	if !b.app.Settings.IsNonAdmin(ctx, r.msg.ChatID) && !b.streamController(ctx, r) {
		return
	}

	switch err := b.app.Player.Stop(ctx, target); {
	case err == nil:
		b.reply(ctx, r, "stopped")
	case errors.Is(err, player.ErrNotStreaming):
		b.reply(ctx, r, "not_streaming")
	default:
		b.log.Warn("stop failed", zap.Int64("chat_id", target), zap.Error(err))
		b.reply(ctx, r, "stop_failed", err)
	}
}

func (b *Bot) cmdLang(ctx context.Context, r *request) {
	if len(r.args) == 0 || !hasLanguage(strings.ToLower(r.args[0])) {
		b.reply(ctx, r, "lang_unknown", strings.Join(Languages(), ", "))
		return
	}
	lang := strings.ToLower(r.args[0])
	if err := b.app.Settings.Set(ctx, r.msg.ChatID, settings.Language, lang); err != nil {
		b.reply(ctx, r, "invalid_value", lang, "language")
		return
	}
	r.lang = lang
	b.reply(ctx, r, "lang_set", lang)
}

func (b *Bot) cmdPlayMode(ctx context.Context, r *request) {
	b.setChoice(ctx, r, settings.PlayMode, "/playmode direct|inline", map[string]string{
		"direct": "Direct",
		"inline": "Inline",
	})
}

func (b *Bot) cmdPlayType(ctx context.Context, r *request) {
	b.setChoice(ctx, r, settings.PlayType, "/playtype everyone|admins", map[string]string{
		"everyone": "Everyone",
		"admins":   "Admins",
	})
}

// cmdAuthMode toggles whether non-admins may use admin commands like /stop.
func (b *Bot) cmdAuthMode(ctx context.Context, r *request) {
	b.setChoice(ctx, r, settings.NonAdmin, "/authmode on|off", map[string]string{
		"on":  "true",
		"off": "false",
	})
}

// setChoice stores the canonical value for the first argument.
func (b *Bot) setChoice(ctx context.Context, r *request, kind settings.Kind, usage string, choices map[string]string) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", usage)
		return
	}
	value, ok := choices[strings.ToLower(r.args[0])]
	if !ok {
		b.reply(ctx, r, "usage", usage)
		return
	}
	if err := b.app.Settings.Set(ctx, r.msg.ChatID, kind, value); err != nil {
		b.reply(ctx, r, "invalid_value", value, kind.Name)
		return
	}
	b.reply(ctx, r, "setting_set", kind.Name, value)
}

func (b *Bot) cmdChannelPlay(ctx context.Context, r *request) {
	const usage = "/channelplay <channel-id>|disable"
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", usage)
		return
	}
	if strings.EqualFold(r.args[0], "disable") {
		if err := b.app.Settings.SetChannelID(ctx, r.msg.ChatID, 0); err != nil {
			b.reply(ctx, r, "invalid_value", r.args[0], "channel")
			return
		}
		b.reply(ctx, r, "channel_cleared")
		return
	}
	id, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil || id >= 0 {
		b.reply(ctx, r, "bad_chat_id")
		return
	}
	if err := b.app.Settings.SetChannelID(ctx, r.msg.ChatID, id); err != nil {
		b.reply(ctx, r, "invalid_value", r.args[0], "channel")
		return
	}
	b.reply(ctx, r, "setting_set", settings.ChannelMode.Name, r.args[0])
}

func (b *Bot) cmdQuality(ctx context.Context, r *request) {
	usage := fmt.Sprintf("/quality audio %s | /quality video %s",
		strings.Join(settings.AudioPresets, "|"), strings.Join(settings.VideoPresets, "|"))
	if len(r.args) != 2 {
		b.reply(ctx, r, "usage", usage)
		return
	}
	var kind settings.Kind
	switch strings.ToLower(r.args[0]) {
	case "audio":
		kind = settings.AudioQuality
	case "video":
		kind = settings.VideoQuality
	default:
		b.reply(ctx, r, "usage", usage)
		return
	}
	value := r.args[1]
	if err := b.app.Settings.Set(ctx, r.msg.ChatID, kind, value); err != nil {
		b.reply(ctx, r, "invalid_value", value, kind.Name)
		return
	}
	b.reply(ctx, r, "setting_set", kind.Name, value)
}

// cmdAssistant shows the chat's assistant, or picks a different one with
// "/assistant change".
func (b *Bot) cmdAssistant(ctx context.Context, r *request) {
	var (
		live *assistant.Live
		err  error
		key  = "assistant_show"
	)
	if len(r.args) > 0 && strings.EqualFold(r.args[0], "change") {
		live, err = b.app.Assistants.Reassign(ctx, r.msg.ChatID)
		key = "assistant_changed"
	} else {
		live, err = b.app.Assistants.Resolve(ctx, r.msg.ChatID)
	}
	if err != nil {
		if errors.Is(err, assistant.ErrNoAssistantAvailable) {
			b.reply(ctx, r, "no_assistant")
			return
		}
		b.reply(ctx, r, "play_failed", err)
		return
	}
	b.reply(ctx, r, key, live.Index, live.Client.Name())
}

// resolveTarget finds the user a command acts on: the replied-to user,
// or the first argument as an id or @username.
func (b *Bot) resolveTarget(ctx context.Context, r *request) (chat.User, bool) {
	if len(r.args) == 0 {
		if r.msg.ReplyToUserID != 0 {
			return chat.User{ID: r.msg.ReplyToUserID}, true
		}
		b.reply(ctx, r, "user_not_found")
		return chat.User{}, false
	}
	u, err := b.adapter.ResolveUser(ctx, r.args[0])
	if err != nil {
		if !errors.Is(err, chat.ErrUserNotFound) {
			b.log.Warn("resolve user", zap.String("identifier", r.args[0]), zap.Error(err))
		}
		b.reply(ctx, r, "user_not_found")
		return chat.User{}, false
	}
	return u, true
}

func (b *Bot) cmdAddSudo(ctx context.Context, r *request) {
	u, ok := b.resolveTarget(ctx, r)
	if !ok {
		return
	}
	id := u.ID
	if !b.app.Sudo.Add(ctx, id) {
		b.reply(ctx, r, "sudo_exists", id)
		return
	}
	b.reply(ctx, r, "sudo_added", id)
}

func (b *Bot) cmdDelSudo(ctx context.Context, r *request) {
	u, ok := b.resolveTarget(ctx, r)
	if !ok {
		return
	}
	id := u.ID
	if b.app.Sudo.IsOwner(id) {
		b.reply(ctx, r, "owner_protected")
		return
	}
	if !b.app.Sudo.Remove(ctx, id) {
		b.reply(ctx, r, "sudo_missing", id)
		return
	}
	b.reply(ctx, r, "sudo_removed", id)
}

func (b *Bot) cmdSudoList(ctx context.Context, r *request) {
	var others []int64
	for _, id := range b.app.Sudo.List() {
		if !b.app.Sudo.IsOwner(id) {
			others = append(others, id)
		}
	}
	b.reply(ctx, r, "sudo_list", joinIDs(b.app.Sudo.Owners()), joinIDs(others))
}

func (b *Bot) cmdVideoLimit(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "vlimit_show", b.app.Admission.Limit(ctx))
		return
	}
	n, err := strconv.Atoi(r.args[0])
	if err != nil || n < 0 {
		b.reply(ctx, r, "usage", "/vlimit <0..n>")
		return
	}
	if err := b.app.Admission.SetLimit(ctx, n); err != nil {
		b.reply(ctx, r, "usage", "/vlimit <0..n>")
		return
	}
	b.reply(ctx, r, "vlimit_show", n)
}

func (b *Bot) cmdMaintenance(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/maintenance on|off")
		return
	}
	var on bool
	switch strings.ToLower(r.args[0]) {
	case "on", "enable":
		on = true
	case "off", "disable":
	default:
		b.reply(ctx, r, "usage", "/maintenance on|off")
		return
	}
	if err := b.app.Settings.SetMaintenance(ctx, on); err != nil {
		b.reply(ctx, r, "store_error")
		return
	}
	if on {
		b.reply(ctx, r, "maintenance_on")
	} else {
		b.reply(ctx, r, "maintenance_off")
	}
}

// cmdUserList handles /gban, /ungban, /block and /unblock.
func (b *Bot) cmdUserList(ctx context.Context, r *request) {
	set, label := b.app.Lists.Gbanned, "gbanned users"
	if strings.HasSuffix(r.name, "block") {
		set, label = b.app.Lists.Blocked, "blocked users"
	}
	u, ok := b.resolveTarget(ctx, r)
	if !ok {
		return
	}
	if !strings.HasPrefix(r.name, "un") && b.app.Sudo.Has(u.ID) {
		b.reply(ctx, r, "sudo_protected")
		return
	}
	b.toggle(ctx, r, set, u.ID, label, !strings.HasPrefix(r.name, "un"))
}

// cmdChatList handles /blacklistchat and /whitelistchat.
func (b *Bot) cmdChatList(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "bad_chat_id")
		return
	}
	id, err := strconv.ParseInt(r.args[0], 10, 64)
	if err != nil || id >= 0 {
		b.reply(ctx, r, "bad_chat_id")
		return
	}
	b.toggle(ctx, r, b.app.Lists.Blacklisted, id, "blacklisted chats", r.name == "blacklistchat")
}

func (b *Bot) toggle(ctx context.Context, r *request, set *sudo.IDSet, id int64, label string, add bool) {
	switch {
	case add && set.Add(ctx, id):
		b.reply(ctx, r, "list_added", id, label)
	case add:
		b.reply(ctx, r, "list_exists", id, label)
	case set.Remove(ctx, id):
		b.reply(ctx, r, "list_removed", id, label)
	default:
		b.reply(ctx, r, "list_missing", id, label)
	}
}

func (b *Bot) cmdStats(ctx context.Context, r *request) {
	noteStats, err := b.app.Notes.Count(ctx)
	if err != nil {
		b.log.Warn("count notes", zap.Error(err))
	}
	filterStats, err := b.app.Filters.Count(ctx)
	if err != nil {
		b.log.Warn("count filters", zap.Error(err))
	}
	playlistStats, err := b.app.Playlists.Count(ctx)
	if err != nil {
		b.log.Warn("count playlists", zap.Error(err))
	}
	b.reply(ctx, r, "stats",
		b.app.Lists.ServedChats.Count(),
		b.app.Lists.ServedUsers.Count(),
		b.app.Active.Count(),
		b.app.Active.CountVideo(),
		b.app.Admission.Limit(ctx),
		len(b.app.Sudo.List()),
		noteStats.Entries, noteStats.Chats,
		filterStats.Entries, filterStats.Chats,
		playlistStats.Entries, playlistStats.Chats,
	)
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
