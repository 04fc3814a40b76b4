package models

import (
	"errors"
	"fmt"
	"net/url"
)

// Entry types.
const (
	EntryText    = "text"
	EntryMedia   = "media"
	EntryButtons = "buttons"
)

// Media kinds accepted by a media entry.
var mediaKinds = map[string]bool{
	"photo":     true,
	"video":     true,
	"audio":     true,
	"document":  true,
	"animation": true,
	"sticker":   true,
	"voice":     true,
}

// Button is one URL button of a buttons entry.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Entry is a saved note or filter reply. Type selects which of the other
// fields are meaningful.
type Entry struct {
	Type      string     `json:"type"`
	Text      string     `json:"text,omitempty"`
	FileID    string     `json:"file_id,omitempty"`
	MediaKind string     `json:"media_kind,omitempty"`
	Buttons   [][]Button `json:"buttons,omitempty"`
}

// Validate checks that the fields required by the entry type are set.
func (e Entry) Validate() error {
	switch e.Type {
	case EntryText:
		if e.Text == "" {
			return errors.New("models: text entry has no text")
		}
	case EntryMedia:
		if e.FileID == "" {
			return errors.New("models: media entry has no file id")
		}
		if !mediaKinds[e.MediaKind] {
			return fmt.Errorf("models: unknown media kind %q", e.MediaKind)
		}
	case EntryButtons:
		if e.Text == "" {
			return errors.New("models: buttons entry has no text")
		}
		if len(e.Buttons) == 0 {
			return errors.New("models: buttons entry has no buttons")
		}
		for i, row := range e.Buttons {
			if len(row) == 0 {
				return fmt.Errorf("models: buttons row %d is empty", i)
			}
			for _, b := range row {
				if b.Text == "" {
					return fmt.Errorf("models: button in row %d has no label", i)
				}
				u, err := url.Parse(b.URL)
				if err != nil || u.Scheme == "" || u.Host == "" {
					return fmt.Errorf("models: button %q has invalid url %q", b.Text, b.URL)
				}
			}
		}
	default:
		return fmt.Errorf("models: unknown entry type %q", e.Type)
	}
	return nil
}
