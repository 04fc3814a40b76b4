package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zulandar/yukki/internal/chat"
	"github.com/zulandar/yukki/internal/models"
	"github.com/zulandar/yukki/internal/notes"
	"github.com/zulandar/yukki/internal/sudo"
)

// displayName renders u for replies, falling back to the id.
func displayName(u chat.User) string {
	switch {
	case u.UserName != "":
		return "@" + u.UserName
	case u.FirstName != "":
		return u.FirstName
	default:
		return strconv.FormatInt(u.ID, 10)
	}
}

// cmdAuth lets a member control streams without admin rights.
func (b *Bot) cmdAuth(ctx context.Context, r *request) {
	if r.msg.ChatID > 0 {
		b.reply(ctx, r, "group_only")
		return
	}
	u, ok := b.resolveTarget(ctx, r)
	if !ok {
		return
	}
	name := displayName(u)
	added, err := b.app.Auth.Add(ctx, r.msg.ChatID, sudo.AuthUser{ID: u.ID, Name: name, AddedBy: r.msg.UserID})
	switch {
	case errors.Is(err, sudo.ErrAuthListFull):
		b.reply(ctx, r, "auth_full", sudo.MaxAuthUsers)
	case err != nil:
		b.storeFailed(ctx, r, err)
	case !added:
		b.reply(ctx, r, "auth_exists", name)
	default:
		b.reply(ctx, r, "auth_added", name)
	}
}

func (b *Bot) cmdUnauth(ctx context.Context, r *request) {
	if r.msg.ChatID > 0 {
		b.reply(ctx, r, "group_only")
		return
	}
	u, ok := b.resolveTarget(ctx, r)
	if !ok {
		return
	}
	removed, err := b.app.Auth.Remove(ctx, r.msg.ChatID, u.ID)
	switch {
	case err != nil:
		b.storeFailed(ctx, r, err)
	case !removed:
		b.reply(ctx, r, "auth_missing", displayName(u))
	default:
		b.reply(ctx, r, "auth_removed", displayName(u))
	}
}

func (b *Bot) cmdAuthUsers(ctx context.Context, r *request) {
	users, err := b.app.Auth.List(ctx, r.msg.ChatID)
	if err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	if len(users) == 0 {
		b.reply(ctx, r, "auth_empty")
		return
	}
	lines := make([]string, len(users))
	for i, u := range users {
		lines[i] = fmt.Sprintf("- %s (%d), added by %d", u.Name, u.ID, u.AddedBy)
	}
	b.reply(ctx, r, "auth_list", strings.Join(lines, "\n"))
}

// Playlists belong to the sender, so they follow the user across chats.

func (b *Bot) cmdPlaylist(ctx context.Context, r *request) {
	names, err := b.app.Playlists.Names(ctx, r.msg.UserID)
	if err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	if len(names) == 0 {
		b.reply(ctx, r, "playlist_empty")
		return
	}
	b.reply(ctx, r, "playlist_list", "- "+strings.Join(names, "\n- "))
}

func (b *Bot) cmdAddPlaylist(ctx context.Context, r *request) {
	if r.msg.SenderChatID != 0 {
		b.reply(ctx, r, "anonymous_admin")
		return
	}
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/addplaylist <url> [title]")
		return
	}
	item := models.PlaylistItem{URL: r.args[0], Title: argText(r.msg.Text, 1)}
	if item.Title == "" {
		item.Title = item.URL
	}
	if err := item.Validate(); err != nil {
		b.reply(ctx, r, "entry_invalid", err)
		return
	}
	name := notes.Normalize(item.Title)
	switch err := b.app.Playlists.Save(ctx, r.msg.UserID, name, item); {
	case errors.Is(err, notes.ErrFull):
		b.reply(ctx, r, "playlist_full", notes.MaxPlaylistItems)
	case err != nil:
		b.storeFailed(ctx, r, err)
	default:
		b.reply(ctx, r, "playlist_added", name)
	}
}

func (b *Bot) cmdDelPlaylist(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/delplaylist <title>")
		return
	}
	name := notes.Normalize(strings.Join(r.args, " "))
	ok, err := b.app.Playlists.Delete(ctx, r.msg.UserID, name)
	switch {
	case err != nil:
		b.storeFailed(ctx, r, err)
	case !ok:
		b.reply(ctx, r, "playlist_missing", name)
	default:
		b.reply(ctx, r, "playlist_deleted", name)
	}
}

// cmdPlayPlaylist streams one saved track as audio.
func (b *Bot) cmdPlayPlaylist(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/playplaylist <title>")
		return
	}
	name := notes.Normalize(strings.Join(r.args, " "))
	item, ok, err := b.app.Playlists.Get(ctx, r.msg.UserID, name)
	switch {
	case err != nil:
		b.storeFailed(ctx, r, err)
	case !ok:
		b.reply(ctx, r, "playlist_missing", name)
	default:
		b.stream(ctx, r, item.URL, false)
	}
}
