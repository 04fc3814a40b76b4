package sudo

import (
	"context"
	"testing"

	"github.com/zulandar/yukki/internal/store"
)

func TestLists_IgnoredAndTrack(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, store.TableGbannedUsers, 13, ""); err != nil {
		t.Fatal(err)
	}

	l := NewLists(s, nil)
	if err := l.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !l.Ignored(13, -1) {
		t.Error("gbanned user not ignored")
	}
	l.Blocked.Add(ctx, 14)
	if !l.Ignored(14, -1) {
		t.Error("blocked user not ignored")
	}
	l.Blacklisted.Add(ctx, -500)
	if !l.Ignored(1, -500) {
		t.Error("blacklisted chat not ignored")
	}
	if l.Ignored(1, -1) {
		t.Error("ordinary update ignored")
	}

	l.Track(ctx, 1, -1)
	l.Track(ctx, 2, 2)
	if l.ServedUsers.Count() != 2 {
		t.Errorf("served users = %v, want [1 2]", l.ServedUsers.List())
	}
	if l.ServedChats.Count() != 1 || !l.ServedChats.Has(-1) {
		t.Errorf("served chats = %v, want [-1]", l.ServedChats.List())
	}

	reloaded := NewLists(s, nil)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !reloaded.Blacklisted.Has(-500) || !reloaded.ServedChats.Has(-1) {
		t.Error("sets not persisted across reload")
	}
}

func TestLists_LoadReportsFailure(t *testing.T) {
	s := testStore(t)
	s.Close()
	if err := NewLists(s, nil).Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
