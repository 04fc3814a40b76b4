package models

import (
	"errors"
	"fmt"
	"net/url"
)

// PlaylistItem is one saved track of a user's playlist.
type PlaylistItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Validate checks that the item has a title and an http(s) URL.
func (p PlaylistItem) Validate() error {
	if p.Title == "" {
		return errors.New("models: playlist item has no title")
	}
	u, err := url.Parse(p.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("models: playlist item has invalid url %q", p.URL)
	}
	return nil
}
