package notes

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/models"
	"github.com/zulandar/yukki/internal/store"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(config.StoreConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "yukki.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var rules = models.Entry{Type: models.EntryText, Text: "no spam"}

func TestSaveGetNames(t *testing.T) {
	b := NewNotes(testStore(t))
	ctx := context.Background()

	if err := b.Save(ctx, -1, "  Rules ", rules); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := b.Save(ctx, -1, "links", models.Entry{
		Type:    models.EntryButtons,
		Text:    "see",
		Buttons: [][]models.Button{{{Text: "site", URL: "https://example.org"}}},
	}); err != nil {
		t.Fatalf("Save buttons: %v", err)
	}

	e, ok, err := b.Get(ctx, -1, "RULES")
	if err != nil || !ok {
		t.Fatalf("Get = (%v, %v)", ok, err)
	}
	if e.Text != "no spam" {
		t.Errorf("Text = %q", e.Text)
	}
	if _, ok, _ := b.Get(ctx, -2, "rules"); ok {
		t.Error("notes leaked across chats")
	}

	names, err := b.Names(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "links" || names[1] != "rules" {
		t.Errorf("Names = %v, want [links rules]", names)
	}
}

func TestSave_Rejects(t *testing.T) {
	b := NewNotes(testStore(t))
	ctx := context.Background()
	if err := b.Save(ctx, -1, "   ", rules); !errors.Is(err, ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
	if err := b.Save(ctx, -1, "x", models.Entry{Type: models.EntryMedia}); err == nil {
		t.Error("expected validation error")
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	b := NewFilters(s)
	ctx := context.Background()
	b.Save(ctx, -1, "hi", rules)
	b.Save(ctx, -1, "bye", rules)

	if ok, err := b.Delete(ctx, -1, "missing"); err != nil || ok {
		t.Errorf("Delete missing = (%v, %v)", ok, err)
	}
	if ok, err := b.Delete(ctx, -1, "HI"); err != nil || !ok {
		t.Errorf("Delete = (%v, %v)", ok, err)
	}
	if _, ok, _ := s.Get(ctx, store.TableFilters, -1); !ok {
		t.Error("row dropped while entries remain")
	}
	b.Delete(ctx, -1, "bye")
	if _, ok, _ := s.Get(ctx, store.TableFilters, -1); ok {
		t.Error("row kept after last entry deleted")
	}
}

func TestDeleteAllAndCount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	notes := NewNotes(s)
	filters := NewFilters(s)

	notes.Save(ctx, -1, "a", rules)
	notes.Save(ctx, -1, "b", rules)
	notes.Save(ctx, 5, "c", rules)
	filters.Save(ctx, -1, "a", rules)
	filters.Save(ctx, 5, "private", rules)

	st, err := notes.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Chats != 2 || st.Entries != 3 {
		t.Errorf("notes Count = %+v, want 2 chats 3 entries", st)
	}
	st, err = filters.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Chats != 1 || st.Entries != 1 {
		t.Errorf("filters Count = %+v, want only group chats counted", st)
	}

	if err := notes.DeleteAll(ctx, -1); err != nil {
		t.Fatal(err)
	}
	names, _ := notes.Names(ctx, -1)
	if len(names) != 0 {
		t.Errorf("Names after DeleteAll = %v", names)
	}
}

func TestStoreDown(t *testing.T) {
	s := testStore(t)
	b := NewNotes(s)
	s.Close()
	if _, _, err := b.Get(context.Background(), -1, "x"); !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestPlaylists(t *testing.T) {
	s := testStore(t)
	p := NewPlaylists(s)
	ctx := context.Background()
	song := models.PlaylistItem{URL: "https://example.org/song.mp3", Title: "Song"}

	if err := p.Save(ctx, 7, song.Title, song); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := p.Get(ctx, 7, "song")
	if err != nil || !ok || got.URL != song.URL {
		t.Fatalf("Get = (%+v, %v, %v)", got, ok, err)
	}
	if err := p.Save(ctx, 7, "bad", models.PlaylistItem{URL: "nope", Title: "bad"}); err == nil {
		t.Error("expected validation error")
	}

	for i := 1; i < MaxPlaylistItems; i++ {
		if err := p.Save(ctx, 7, "track "+strconv.Itoa(i), song); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if err := p.Save(ctx, 7, "one more", song); !errors.Is(err, ErrFull) {
		t.Errorf("Save past the limit: err = %v, want ErrFull", err)
	}
	if err := p.Save(ctx, 7, "song", song); err != nil {
		t.Errorf("overwriting in a full playlist: %v", err)
	}

	p.Save(ctx, 8, "song", song)
	st, err := p.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Chats != 2 || st.Entries != MaxPlaylistItems+1 {
		t.Errorf("Count = %+v", st)
	}
}
