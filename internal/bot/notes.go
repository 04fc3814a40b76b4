package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/zulandar/yukki/internal/chat"
	"github.com/zulandar/yukki/internal/models"
	"github.com/zulandar/yukki/internal/notes"
	"go.uber.org/zap"
)

// buttonPattern matches "[label](buttonurl://URL)", optionally suffixed
// with ":same" to stay on the previous button's row.
var buttonPattern = regexp.MustCompile(`\[([^\]]+)\]\(buttonurl:(?://)?([^)\s]+?)(:same)?\)`)

// parseEntry turns note text with inline button markup into an Entry.
func parseEntry(text string) models.Entry {
	var rows [][]models.Button
	for _, m := range buttonPattern.FindAllStringSubmatch(text, -1) {
		btn := models.Button{Text: strings.TrimSpace(m[1]), URL: m[2]}
		if m[3] != "" && len(rows) > 0 {
			rows[len(rows)-1] = append(rows[len(rows)-1], btn)
			continue
		}
		rows = append(rows, []models.Button{btn})
	}
	body := strings.TrimSpace(buttonPattern.ReplaceAllString(text, ""))
	if len(rows) == 0 {
		return models.Entry{Type: models.EntryText, Text: body}
	}
	return models.Entry{Type: models.EntryButtons, Text: body, Buttons: rows}
}

// entryMessage renders e as a reply to msg. Media entries carry only
// their caption, since the gateway sends text.
func entryMessage(msg chat.InboundMessage, e models.Entry) chat.OutboundMessage {
	out := chat.OutboundMessage{ChatID: msg.ChatID, ReplyTo: msg.MessageID, Text: e.Text}
	if e.Type == models.EntryMedia && out.Text == "" {
		out.Text = "[" + e.MediaKind + "]"
	}
	for _, row := range e.Buttons {
		buttons := make([]chat.Button, len(row))
		for i, btn := range row {
			buttons[i] = chat.Button{Text: btn.Text, URL: btn.URL}
		}
		out.Keyboard = append(out.Keyboard, buttons)
	}
	return out
}

func (b *Bot) cmdSave(ctx context.Context, r *request) {
	b.saveEntry(ctx, r, b.app.Notes, "/save <name> <text>", "note_saved")
}

func (b *Bot) cmdFilter(ctx context.Context, r *request) {
	if r.msg.ChatID > 0 {
		b.reply(ctx, r, "group_only")
		return
	}
	b.saveEntry(ctx, r, b.app.Filters, "/filter <keyword> <reply>", "filter_saved")
}

func (b *Bot) saveEntry(ctx context.Context, r *request, book *notes.Book[models.Entry], usage, savedKey string) {
	if len(r.args) < 2 {
		b.reply(ctx, r, "usage", usage)
		return
	}
	name := notes.Normalize(r.args[0])
	entry := parseEntry(argText(r.msg.Text, 1))
	if err := entry.Validate(); err != nil {
		b.reply(ctx, r, "entry_invalid", err)
		return
	}
	if err := book.Save(ctx, r.msg.ChatID, name, entry); err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	b.reply(ctx, r, savedKey, name)
}

func (b *Bot) cmdGet(ctx context.Context, r *request) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", "/get <name>")
		return
	}
	e, ok, err := b.app.Notes.Get(ctx, r.msg.ChatID, r.args[0])
	if err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	if !ok {
		b.reply(ctx, r, "note_missing", notes.Normalize(r.args[0]))
		return
	}
	b.send(ctx, entryMessage(r.msg, e))
}

func (b *Bot) cmdNotes(ctx context.Context, r *request) {
	b.listNames(ctx, r, b.app.Notes, "notes_list", "notes_empty")
}

func (b *Bot) cmdFilters(ctx context.Context, r *request) {
	b.listNames(ctx, r, b.app.Filters, "filters_list", "filters_empty")
}

func (b *Bot) listNames(ctx context.Context, r *request, book *notes.Book[models.Entry], listKey, emptyKey string) {
	names, err := book.Names(ctx, r.msg.ChatID)
	if err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	if len(names) == 0 {
		b.reply(ctx, r, emptyKey)
		return
	}
	b.reply(ctx, r, listKey, "- "+strings.Join(names, "\n- "))
}

func (b *Bot) cmdClear(ctx context.Context, r *request) {
	b.deleteEntry(ctx, r, b.app.Notes, "/clear <name>", "note_deleted")
}

func (b *Bot) cmdStopFilter(ctx context.Context, r *request) {
	b.deleteEntry(ctx, r, b.app.Filters, "/stopfilter <keyword>", "filter_deleted")
}

func (b *Bot) deleteEntry(ctx context.Context, r *request, book *notes.Book[models.Entry], usage, deletedKey string) {
	if len(r.args) == 0 {
		b.reply(ctx, r, "usage", usage)
		return
	}
	name := notes.Normalize(strings.Join(r.args, " "))
	ok, err := book.Delete(ctx, r.msg.ChatID, name)
	if err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	if !ok {
		b.reply(ctx, r, "note_missing", name)
		return
	}
	b.reply(ctx, r, deletedKey, name)
}

func (b *Bot) cmdClearAll(ctx context.Context, r *request) {
	if err := b.app.Notes.DeleteAll(ctx, r.msg.ChatID); err != nil {
		b.storeFailed(ctx, r, err)
		return
	}
	b.reply(ctx, r, "notes_cleared")
}

// matchFilters replies with the first filter whose keyword appears as a
// whole word in a group message.
func (b *Bot) matchFilters(ctx context.Context, msg chat.InboundMessage) {
	if msg.ChatID > 0 || msg.Text == "" {
		return
	}
	names, err := b.app.Filters.Names(ctx, msg.ChatID)
	if err != nil {
		b.log.Warn("load filters", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
		return
	}
	if len(names) == 0 {
		return
	}
	text := " " + strings.Join(strings.Fields(strings.ToLower(msg.Text)), " ") + " "
	for _, name := range names {
		if !strings.Contains(text, " "+name+" ") {
			continue
		}
		e, ok, err := b.app.Filters.Get(ctx, msg.ChatID, name)
		if err != nil || !ok {
			return
		}
		b.send(ctx, entryMessage(msg, e))
		return
	}
}

func (b *Bot) storeFailed(ctx context.Context, r *request, err error) {
	b.log.Warn("store operation failed",
		zap.Int64("chat_id", r.msg.ChatID),
		zap.String("command", r.name),
		zap.Error(err),
	)
	b.reply(ctx, r, "store_error")
}
