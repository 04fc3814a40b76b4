// Package notes stores the per-chat saved notes and keyword filters and
// the per-user playlists. Each collection is one JSON object of name to
// item.
package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/zulandar/yukki/internal/models"
	"github.com/zulandar/yukki/internal/store"
)

var (
	// ErrEmptyName is returned when a name is blank after trimming.
	ErrEmptyName = errors.New("notes: name is empty")
	// ErrFull is returned when saving a new name into a book at its limit.
	ErrFull = errors.New("notes: collection is full")
)

// MaxPlaylistItems caps one user's playlist.
const MaxPlaylistItems = 30

// Item is a value a Book can hold.
type Item interface {
	Validate() error
}

// Stats counts entries across all chats.
type Stats struct {
	Chats   int `json:"chats"`
	Entries int `json:"entries"`
}

// Book is one collection kind (notes, filters or playlists).
type Book[T Item] struct {
	store       *store.Store
	table       string
	countFilter store.Filter
	limit       int // zero for no limit
}

// NewNotes returns the saved-notes book.
func NewNotes(s *store.Store) *Book[models.Entry] {
	return &Book[models.Entry]{store: s, table: store.TableNotes, countFilter: store.AllKeys}
}

// NewFilters returns the keyword-filters book. Filters only exist in
// groups, so Count ignores positive chat ids.
func NewFilters(s *store.Store) *Book[models.Entry] {
	return &Book[models.Entry]{store: s, table: store.TableFilters, countFilter: store.NegativeKeys}
}

// NewPlaylists returns the playlists book, keyed by user id and holding
// at most MaxPlaylistItems tracks per user.
func NewPlaylists(s *store.Store) *Book[models.PlaylistItem] {
	return &Book[models.PlaylistItem]{
		store:       s,
		table:       store.TablePlaylists,
		countFilter: store.PositiveKeys,
		limit:       MaxPlaylistItems,
	}
}

// Normalize lowercases and trims a name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (b *Book[T]) load(ctx context.Context, chatID int64) (map[string]T, error) {
	entries := map[string]T{}
	if _, err := b.store.GetJSON(ctx, b.table, chatID, &entries); err != nil {
		return nil, fmt.Errorf("notes: load %s for %d: %w", b.table, chatID, err)
	}
	return entries, nil
}

// Get returns the entry saved under name.
func (b *Book[T]) Get(ctx context.Context, chatID int64, name string) (T, bool, error) {
	entries, err := b.load(ctx, chatID)
	if err != nil {
		var zero T
		return zero, false, err
	}
	e, ok := entries[Normalize(name)]
	return e, ok, nil
}

// Names returns the saved names in sorted order.
func (b *Book[T]) Names(ctx context.Context, chatID int64) ([]string, error) {
	entries, err := b.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(entries)), nil
}

// Save validates e and stores it under name, replacing any previous entry.
// A new name in a book at its limit fails with ErrFull.
func (b *Book[T]) Save(ctx context.Context, chatID int64, name string, e T) error {
	name = Normalize(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := e.Validate(); err != nil {
		return err
	}
	entries, err := b.load(ctx, chatID)
	if err != nil {
		return err
	}
	if _, exists := entries[name]; !exists && b.limit > 0 && len(entries) >= b.limit {
		return ErrFull
	}
	entries[name] = e
	return b.store.SetJSON(ctx, b.table, chatID, entries)
}

// Delete removes name, reporting whether it existed. The chat's row is
// dropped once its last entry is gone.
func (b *Book[T]) Delete(ctx context.Context, chatID int64, name string) (bool, error) {
	entries, err := b.load(ctx, chatID)
	if err != nil {
		return false, err
	}
	name = Normalize(name)
	if _, ok := entries[name]; !ok {
		return false, nil
	}
	delete(entries, name)
	if len(entries) == 0 {
		_, err = b.store.Delete(ctx, b.table, chatID)
	} else {
		err = b.store.SetJSON(ctx, b.table, chatID, entries)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// DeleteAll removes every entry of chatID.
func (b *Book[T]) DeleteAll(ctx context.Context, chatID int64) error {
	_, err := b.store.Delete(ctx, b.table, chatID)
	return err
}

// Count returns how many chats have entries and how many entries exist.
// Rows that fail to decode are skipped.
func (b *Book[T]) Count(ctx context.Context) (Stats, error) {
	rows, err := b.store.Rows(ctx, b.table, b.countFilter)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, r := range rows {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal([]byte(r.Value), &entries); err != nil {
			continue
		}
		st.Chats++
		st.Entries += len(entries)
	}
	return st, nil
}
