package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// guard is the access level a command requires.
type guard int

const (
	guardNone  guard = iota
	guardAdmin       // sudoer, or chat admin allowed to manage video chats
	guardSudo
	guardOwner
)

type command struct {
	guard guard
	run   func(ctx context.Context, r *request)
}

func (b *Bot) commandTable() map[string]command {
	return map[string]command{
		"start": {guardNone, b.cmdHelp},
		"help":  {guardNone, b.cmdHelp},

		"play":   {guardNone, b.cmdPlay},
		"vplay":  {guardNone, b.cmdPlay},
		"cplay":  {guardNone, b.cmdPlay},
		"cvplay": {guardNone, b.cmdPlay},
		"stop":   {guardNone, b.cmdStop},
		"end":    {guardNone, b.cmdStop},
		"cstop":  {guardNone, b.cmdStop},
		"cend":   {guardNone, b.cmdStop},

		"lang":        {guardAdmin, b.cmdLang},
		"playmode":    {guardAdmin, b.cmdPlayMode},
		"playtype":    {guardAdmin, b.cmdPlayType},
		"authmode":    {guardAdmin, b.cmdAuthMode},
		"channelplay": {guardAdmin, b.cmdChannelPlay},
		"quality":     {guardAdmin, b.cmdQuality},
		"assistant":   {guardAdmin, b.cmdAssistant},
		"auth":        {guardAdmin, b.cmdAuth},
		"unauth":      {guardAdmin, b.cmdUnauth},
		"authusers":   {guardNone, b.cmdAuthUsers},

		"addsudo":  {guardOwner, b.cmdAddSudo},
		"delsudo":  {guardOwner, b.cmdDelSudo},
		"sudolist": {guardNone, b.cmdSudoList},

		"vlimit":        {guardSudo, b.cmdVideoLimit},
		"maintenance":   {guardSudo, b.cmdMaintenance},
		"gban":          {guardSudo, b.cmdUserList},
		"ungban":        {guardSudo, b.cmdUserList},
		"block":         {guardSudo, b.cmdUserList},
		"unblock":       {guardSudo, b.cmdUserList},
		"blacklistchat": {guardSudo, b.cmdChatList},
		"whitelistchat": {guardSudo, b.cmdChatList},
		"stats":         {guardSudo, b.cmdStats},

		"save":       {guardAdmin, b.cmdSave},
		"get":        {guardNone, b.cmdGet},
		"notes":      {guardNone, b.cmdNotes},
		"clear":      {guardAdmin, b.cmdClear},
		"clearall":   {guardAdmin, b.cmdClearAll},
		"filter":     {guardAdmin, b.cmdFilter},
		"filters":    {guardNone, b.cmdFilters},
		"stopfilter": {guardAdmin, b.cmdStopFilter},

		"playlist":     {guardNone, b.cmdPlaylist},
		"addplaylist":  {guardNone, b.cmdAddPlaylist},
		"delplaylist":  {guardNone, b.cmdDelPlaylist},
		"playplaylist": {guardNone, b.cmdPlayPlaylist},
	}
}

// parseCommand splits "/name@bot arg..." into the lowercased name and its
// arguments. Commands addressed to another bot are rejected.
func parseCommand(text, self string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name, target, addressed := strings.Cut(fields[0], "@")
	if addressed && self != "" && !strings.EqualFold(target, self) {
		return "", nil, false
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// argText returns the raw text after the command and its first n
// arguments, keeping line breaks.
func argText(text string, n int) string {
	rest := strings.TrimSpace(text)
	for i := 0; i <= n; i++ {
		idx := strings.IndexAny(rest, " \t\n")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimLeft(rest[idx:], " \t\n")
	}
	return rest
}

// allowed applies g to r, replying with the reason when access is denied.
func (b *Bot) allowed(ctx context.Context, r *request, g guard) bool {
	switch g {
	case guardAdmin:
		return b.callAdmin(ctx, r)
	case guardSudo:
		if !r.sudo {
			b.reply(ctx, r, "sudo_only")
			return false
		}
	case guardOwner:
		if !b.app.Sudo.IsOwner(r.msg.UserID) {
			b.reply(ctx, r, "owner_only")
			return false
		}
	}
	return true
}

// callAdmin reports whether the sender may manage the chat's voice chat.
// Sudoers always may; anonymous admins are asked to reveal themselves.
func (b *Bot) callAdmin(ctx context.Context, r *request) bool {
	return b.checkAdmin(ctx, r, false)
}

// streamController is callAdmin extended to the chat's authorized users,
// for commands that only control the running stream.
func (b *Bot) streamController(ctx context.Context, r *request) bool {
	return b.checkAdmin(ctx, r, true)
}

func (b *Bot) checkAdmin(ctx context.Context, r *request, allowAuth bool) bool {
	if r.msg.SenderChatID != 0 {
		b.reply(ctx, r, "anonymous_admin")
		return false
	}
	if r.sudo {
		return true
	}
	if allowAuth && b.app.Auth.Has(ctx, r.msg.ChatID, r.msg.UserID) {
		return true
	}
	m, err := b.adapter.GetChatMember(ctx, r.msg.ChatID, r.msg.UserID)
	if err != nil {
		b.log.Warn("get chat member", zap.Int64("chat_id", r.msg.ChatID), zap.Int64("user_id", r.msg.UserID), zap.Error(err))
		b.reply(ctx, r, "member_error", err)
		return false
	}
	if !m.CanManageCalls() {
		b.reply(ctx, r, "admin_only")
		return false
	}
	return true
}

// isChannelCommand reports whether name targets the chat's linked
// channel, as /cplay and /cstop do.
func isChannelCommand(name string) bool {
	switch name {
	case "cplay", "cvplay", "cstop", "cend":
		return true
	}
	return false
}

// target returns the chat a play or stop command acts on.
func (b *Bot) target(ctx context.Context, r *request) (int64, bool) {
	if !isChannelCommand(r.name) {
		return r.msg.ChatID, true
	}
	id, ok := b.app.Settings.ChannelID(ctx, r.msg.ChatID)
	if !ok {
		b.reply(ctx, r, "channel_not_set")
		return 0, false
	}
	return id, true
}
