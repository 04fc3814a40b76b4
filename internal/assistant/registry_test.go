package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/store"
)

type fakeClient struct{ name string }

func (c fakeClient) Name() string { return c.name }

type fakeSession struct{ index int }

func (s fakeSession) Index() int { return s.index }

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

// testPool builds a pool of size n where the listed indices are offline.
func testPool(n int, offline ...int) *StaticPool {
	members := make([]*Member, n)
	for i := range members {
		members[i] = &Member{
			Client: fakeClient{name: "assistant-" + strconv.Itoa(i+1)},
			Calls:  fakeSession{index: i + 1},
		}
	}
	for _, idx := range offline {
		members[idx-1] = nil
	}
	return NewStaticPool(members)
}

func testRegistry(t *testing.T, s *store.Store, pool Pool) *Registry {
	t.Helper()
	r, err := New(Opts{Store: s, Pool: pool})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Opts{Pool: testPool(1)}); err == nil || !strings.Contains(err.Error(), "store is required") {
		t.Errorf("err = %v, want store is required", err)
	}
	if _, err := New(Opts{Store: testStore(t)}); err == nil || !strings.Contains(err.Error(), "pool is required") {
		t.Errorf("err = %v, want pool is required", err)
	}
}

func TestStaticPool(t *testing.T) {
	p := testPool(3, 2)
	if got := p.Live(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Live() = %v, want [1 3]", got)
	}
	if p.Size() != 3 {
		t.Errorf("Size() = %d, want 3", p.Size())
	}
	s, err := p.CallSession(3)
	if err != nil || s.Index() != 3 {
		t.Errorf("CallSession(3) = (%v, %v)", s, err)
	}

	for _, idx := range []int{0, 2, 4} {
		_, err := p.CallSession(idx)
		var invalid *InvalidAssistantIndexError
		if !errors.As(err, &invalid) {
			t.Fatalf("CallSession(%d) err = %v, want InvalidAssistantIndexError", idx, err)
		}
		if invalid.Index != idx || invalid.PoolSize != 2 {
			t.Errorf("error = %+v, want index %d pool size 2", invalid, idx)
		}
		if !strings.Contains(err.Error(), strconv.Itoa(idx)) || !strings.Contains(err.Error(), "2 call instances") {
			t.Errorf("message = %q should name index and pool size", err.Error())
		}
	}
}

func TestResolve_InRangeAndIdempotent(t *testing.T) {
	r := testRegistry(t, testStore(t), testPool(3))
	ctx := context.Background()

	for chat := int64(-10); chat < 0; chat++ {
		first, err := r.Resolve(ctx, chat)
		if err != nil {
			t.Fatalf("Resolve(%d): %v", chat, err)
		}
		if first.Index < 1 || first.Index > 3 {
			t.Fatalf("Resolve(%d) = %d, out of range", chat, first.Index)
		}
		second, err := r.Resolve(ctx, chat)
		if err != nil {
			t.Fatal(err)
		}
		if second.Index != first.Index {
			t.Errorf("Resolve(%d) = %d then %d, want stable", chat, first.Index, second.Index)
		}
		if first.Client.Name() != "assistant-"+strconv.Itoa(first.Index) {
			t.Errorf("Client = %q for index %d", first.Client.Name(), first.Index)
		}
	}
}

func TestResolve_PersistsAndSurvivesRestart(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	r := testRegistry(t, s, testPool(3))

	got, err := r.Resolve(ctx, -100)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, _ := s.Get(ctx, store.TableAssistants, -100)
	if !ok || v != strconv.Itoa(got.Index) {
		t.Fatalf("stored = (%q, %v), want %d", v, ok, got.Index)
	}

	restarted := testRegistry(t, s, testPool(3))
	again, err := restarted.Resolve(ctx, -100)
	if err != nil {
		t.Fatal(err)
	}
	if again.Index != got.Index {
		t.Errorf("after restart = %d, want %d", again.Index, got.Index)
	}
}

func TestResolve_PoolShrinkScenario(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, store.TableAssistants, 100, "2"); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		r := testRegistry(t, s, testPool(3, 2))
		got, err := r.Resolve(ctx, 100)
		if err != nil {
			t.Fatal(err)
		}
		if got.Index != 1 && got.Index != 3 {
			t.Fatalf("Resolve = %d, want 1 or 3", got.Index)
		}
		v, _, _ := s.Get(ctx, store.TableAssistants, 100)
		if v != strconv.Itoa(got.Index) {
			t.Fatalf("stored = %q, want %d", v, got.Index)
		}
		// Put the stale row back for the next round.
		s.Set(ctx, store.TableAssistants, 100, "2")
	}
}

func TestReassign_AvoidsCurrent(t *testing.T) {
	r := testRegistry(t, testStore(t), testPool(3))
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		before, err := r.Resolve(ctx, -5)
		if err != nil {
			t.Fatal(err)
		}
		after, err := r.Reassign(ctx, -5)
		if err != nil {
			t.Fatal(err)
		}
		if after.Index == before.Index {
			t.Fatalf("Reassign returned current index %d", after.Index)
		}
	}
}

func TestReassign_UsesStoredIndexWhenCold(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, store.TableAssistants, -5, "1"); err != nil {
		t.Fatal(err)
	}
	r := testRegistry(t, s, testPool(2))
	got, err := r.Reassign(ctx, -5)
	if err != nil {
		t.Fatal(err)
	}
	if got.Index != 2 {
		t.Errorf("Reassign = %d, want 2", got.Index)
	}
}

func TestReassign_SingleAssistant(t *testing.T) {
	r := testRegistry(t, testStore(t), testPool(1))
	ctx := context.Background()
	if _, err := r.Resolve(ctx, -5); err != nil {
		t.Fatal(err)
	}
	got, err := r.Reassign(ctx, -5)
	if err != nil {
		t.Fatal(err)
	}
	if got.Index != 1 {
		t.Errorf("Reassign = %d, want 1", got.Index)
	}
}

func TestResolveForCalls_ReplacesOfflineAssignment(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	// The cached index 2 goes offline; the picker always returns the
	// first candidate.
	r, err := New(Opts{Store: s, Pool: testPool(3, 2), Intn: func(int) int { return 0 }})
	if err != nil {
		t.Fatal(err)
	}
	r.assigned[-1] = 2

	idx, err := r.ResolveForCalls(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("ResolveForCalls = %d, want 1", idx)
	}
	if v, _, _ := s.Get(ctx, store.TableAssistants, -1); v != "1" {
		t.Errorf("stored = %q, want 1", v)
	}
}

func TestResolveForCalls_PicksFromWholePool(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Set(ctx, store.TableAssistants, -1, "9"); err != nil {
		t.Fatal(err)
	}
	var calls []int
	r, err := New(Opts{Store: s, Pool: testPool(3), Intn: func(n int) int {
		calls = append(calls, n)
		return n - 1
	}})
	if err != nil {
		t.Fatal(err)
	}
	idx, err := r.ResolveForCalls(ctx, -1)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 3 {
		t.Errorf("ResolveForCalls = %d, want 3", idx)
	}
	if len(calls) != 1 || calls[0] != 3 {
		t.Errorf("picker called with %v, want [3]", calls)
	}
}

func TestCallSession(t *testing.T) {
	r := testRegistry(t, testStore(t), testPool(2))
	ctx := context.Background()
	cs, err := r.CallSession(ctx, -7)
	if err != nil {
		t.Fatal(err)
	}
	idx, _ := r.Assigned(-7)
	if cs.Index() != idx {
		t.Errorf("CallSession().Index() = %d, want %d", cs.Index(), idx)
	}
}

func TestEmptyPool(t *testing.T) {
	r := testRegistry(t, testStore(t), testPool(2, 1, 2))
	ctx := context.Background()

	if _, err := r.Resolve(ctx, -1); !errors.Is(err, ErrNoAssistantAvailable) {
		t.Errorf("Resolve err = %v, want ErrNoAssistantAvailable", err)
	}
	if _, err := r.ResolveForCalls(ctx, -1); !errors.Is(err, ErrNoAssistantAvailable) {
		t.Errorf("ResolveForCalls err = %v, want ErrNoAssistantAvailable", err)
	}
	if _, err := r.Reassign(ctx, -1); !errors.Is(err, ErrNoAssistantAvailable) {
		t.Errorf("Reassign err = %v, want ErrNoAssistantAvailable", err)
	}
	if _, err := r.CallSession(ctx, -1); !errors.Is(err, ErrNoAssistantAvailable) {
		t.Errorf("CallSession err = %v, want ErrNoAssistantAvailable", err)
	}
}

func TestStoreDown_StillAssigns(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, testPool(2))
	s.Close()
	ctx := context.Background()

	got, err := r.Resolve(ctx, -1)
	if err != nil {
		t.Fatalf("Resolve with store down: %v", err)
	}
	again, _ := r.Resolve(ctx, -1)
	if again.Index != got.Index {
		t.Errorf("Resolve not stable with store down: %d then %d", got.Index, again.Index)
	}
}

func TestForget(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, testPool(3))
	ctx := context.Background()
	got, _ := r.Resolve(ctx, -1)
	r.Forget(-1)
	if _, ok := r.Assigned(-1); ok {
		t.Fatal("Assigned after Forget should be empty")
	}
	again, _ := r.Resolve(ctx, -1)
	if again.Index != got.Index {
		t.Errorf("Resolve after Forget = %d, want stored %d", again.Index, got.Index)
	}
}

func TestConcurrentResolvePaths(t *testing.T) {
	s := testStore(t)
	r := testRegistry(t, s, testPool(4))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				r.Resolve(ctx, -1)
			} else {
				r.ResolveForCalls(ctx, -1)
			}
		}(i)
	}
	wg.Wait()

	cached, ok := r.Assigned(-1)
	if !ok {
		t.Fatal("no assignment cached")
	}
	v, _, _ := s.Get(ctx, store.TableAssistants, -1)
	if v != strconv.Itoa(cached) {
		t.Errorf("store = %q, cache = %d; want them to agree", v, cached)
	}
}
