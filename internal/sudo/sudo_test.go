package sudo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zulandar/yukki/internal/config"
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

func testRegistry(t *testing.T, s *store.Store, owners ...int64) *Registry {
	t.Helper()
	r, err := New(Opts{Store: s, Owners: owners})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func TestNew_NilStore(t *testing.T) {
	if _, err := New(Opts{}); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestLoad_OwnersWithEmptyList(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, 10, 20)

	for _, id := range []int64{10, 20} {
		if !r.Has(id) {
			t.Errorf("Has(%d) = false, want owner present", id)
		}
		if !r.IsOwner(id) {
			t.Errorf("IsOwner(%d) = false", id)
		}
	}
	keys, err := s.Keys(context.Background(), store.TableSudoers, store.AllKeys)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("persisted sudoers = %v, want owners written", keys)
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	r := testRegistry(t, s, 10)
	if err := r.Load(ctx); err != nil {
		t.Fatal(err)
	}
	testRegistry(t, s, 10)

	n, err := s.Count(ctx, store.TableSudoers, store.AllKeys)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("sudoer rows = %d, want 1 after repeated loads", n)
	}
}

func TestLoad_PersistedSudoers(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, store.TableSudoers, 99, ""); err != nil {
		t.Fatal(err)
	}
	r := testRegistry(t, s, 10)
	if !r.Has(99) {
		t.Error("persisted sudoer 99 not loaded")
	}
	if r.IsOwner(99) {
		t.Error("IsOwner(99) = true for a non-owner")
	}
	if got := r.List(); len(got) != 2 || got[0] != 10 || got[1] != 99 {
		t.Errorf("List = %v, want [10 99]", got)
	}
}

func TestAddRemove_Idempotence(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, 1)
	ctx := context.Background()

	if !r.Add(ctx, 5) {
		t.Error("first Add = false, want true")
	}
	if r.Add(ctx, 5) {
		t.Error("second Add = true, want false")
	}
	if r.Remove(ctx, 6) {
		t.Error("Remove of non-member = true, want false")
	}
	if !r.Remove(ctx, 5) {
		t.Error("Remove of member = false, want true")
	}
	if r.Has(5) {
		t.Error("Has(5) after Remove")
	}

	restarted := testRegistry(t, s, 1)
	if restarted.Has(5) {
		t.Error("removed sudoer came back after restart")
	}
}

func TestRemove_OwnerNotProtected(t *testing.T) {
	r := testRegistry(t, testStore(t), 1)
	if !r.Remove(context.Background(), 1) {
		t.Error("Remove(owner) = false; the registry itself does not protect owners")
	}
	if r.Has(1) {
		t.Error("owner still present after raw Remove")
	}
	if !r.IsOwner(1) {
		t.Error("IsOwner must keep reporting config owners")
	}
}

func TestStoreDown_AddStillUpdatesMemory(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, 1)
	s.Close()
	if !r.Add(context.Background(), 7) {
		t.Fatal("Add = false with store down")
	}
	if !r.Has(7) {
		t.Error("Has(7) = false")
	}
}

func TestIDSet_SignFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	for _, id := range []int64{-100, 5, -200} {
		if err := s.Set(ctx, store.TableBlacklistedChats, id, ""); err != nil {
			t.Fatal(err)
		}
	}
	set := NewIDSet(s, store.TableBlacklistedChats, store.NegativeKeys, nil)
	if err := set.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if set.Count() != 2 || set.Has(5) {
		t.Errorf("List = %v, want only negative ids", set.List())
	}
}

func TestIDSet_LoadError(t *testing.T) {
	s := testStore(t)
	s.Close()
	set := NewIDSet(s, store.TableGbannedUsers, store.PositiveKeys, nil)
	if err := set.Load(context.Background()); err == nil {
		t.Fatal("expected error loading from a closed store")
	}
}
