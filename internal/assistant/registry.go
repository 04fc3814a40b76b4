// Package assistant assigns one of the bot's assistant accounts to each
// chat and keeps that assignment stable across restarts.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"sync"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// ErrNoAssistantAvailable is returned when the live pool is empty.
var ErrNoAssistantAvailable = errors.New("assistant: no assistant available")

// Live is a resolved assistant.
type Live struct {
	Index  int
	Client Client
}

// Opts configures a Registry.
type Opts struct {
	Store *store.Store
	Pool  Pool
	Log   *zap.Logger
	// Intn returns a value in [0, n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// Registry maps chats to assistant indices. The in-memory map is
// authoritative once populated; the store backs it across restarts.
type Registry struct {
	store *store.Store
	pool  Pool
	log   *zap.Logger
	intn  func(int) int

	mu       sync.Mutex
	assigned map[int64]int
}

// New creates a Registry.
func New(opts Opts) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("assistant: store is required")
	}
	if opts.Pool == nil {
		return nil, fmt.Errorf("assistant: pool is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	return &Registry{
		store:    opts.Store,
		pool:     opts.Pool,
		log:      opts.Log.Named("assistant"),
		intn:     opts.Intn,
		assigned: make(map[int64]int),
	}, nil
}

// Pool returns the pool the registry assigns from.
func (r *Registry) Pool() Pool { return r.pool }

// Resolve returns the assistant for chatID. A cached or stored assignment
// is used while it names a live assistant; otherwise a new one is picked
// at random, avoiding the previous index when another is available.
func (r *Registry) Resolve(ctx context.Context, chatID int64) (*Live, error) {
	r.mu.Lock()
	idx, err := r.resolve(ctx, chatID, true)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.live(idx)
}

// Reassign forces a new assignment for chatID, preferring any index other
// than the current one.
func (r *Registry) Reassign(ctx context.Context, chatID int64) (*Live, error) {
	live := r.pool.Live()
	if len(live) == 0 {
		return nil, ErrNoAssistantAvailable
	}

	r.mu.Lock()
	prev, ok := r.assigned[chatID]
	if !ok {
		prev, _ = r.stored(ctx, chatID)
	}
	idx := r.assign(ctx, chatID, live, prev, true)
	r.mu.Unlock()
	return r.live(idx)
}

// ResolveForCalls returns the index of the assistant that should own the
// next call in chatID. It follows the same lookup as Resolve but, when a
// new assignment is needed, picks uniformly from the whole live pool.
func (r *Registry) ResolveForCalls(ctx context.Context, chatID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolve(ctx, chatID, false)
}

// CallSession returns the call session of the assistant owning calls in
// chatID.
func (r *Registry) CallSession(ctx context.Context, chatID int64) (CallSession, error) {
	idx, err := r.ResolveForCalls(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return r.pool.CallSession(idx)
}

// Assigned returns the cached assignment for chatID without touching the
// store.
func (r *Registry) Assigned(chatID int64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.assigned[chatID]
	return idx, ok
}

// Forget drops the cached assignment for chatID. The stored row is kept.
func (r *Registry) Forget(chatID int64) {
	r.mu.Lock()
	delete(r.assigned, chatID)
	r.mu.Unlock()
}

// resolve must be called with r.mu held.
func (r *Registry) resolve(ctx context.Context, chatID int64, avoid bool) (int, error) {
	live := r.pool.Live()
	if len(live) == 0 {
		return 0, ErrNoAssistantAvailable
	}

	if idx, ok := r.assigned[chatID]; ok {
		if slices.Contains(live, idx) {
			return idx, nil
		}
		r.log.Info("cached assistant offline, reassigning", zap.Int64("chat_id", chatID), zap.Int("index", idx))
		return r.assign(ctx, chatID, live, idx, avoid), nil
	}

	idx, ok := r.stored(ctx, chatID)
	if ok && slices.Contains(live, idx) {
		r.assigned[chatID] = idx
		return idx, nil
	}
	return r.assign(ctx, chatID, live, idx, avoid), nil
}

// assign picks a new index from live, writes it to the cache and the
// store, and returns it. With avoid set, prev is excluded unless it is
// the only candidate. Must be called with r.mu held.
func (r *Registry) assign(ctx context.Context, chatID int64, live []int, prev int, avoid bool) int {
	candidates := live
	if avoid && len(live) > 1 {
		others := make([]int, 0, len(live))
		for _, idx := range live {
			if idx != prev {
				others = append(others, idx)
			}
		}
		if len(others) > 0 {
			candidates = others
		}
	}
	idx := candidates[r.intn(len(candidates))]

	r.assigned[chatID] = idx
	if err := r.store.Set(ctx, store.TableAssistants, chatID, strconv.Itoa(idx)); err != nil {
		r.log.Warn("persist assistant", zap.Int64("chat_id", chatID), zap.Int("index", idx), zap.Error(err))
	}
	return idx
}

// stored reads the persisted assignment. Store failures and malformed
// rows count as absent.
func (r *Registry) stored(ctx context.Context, chatID int64) (int, bool) {
	v, ok, err := r.store.Get(ctx, store.TableAssistants, chatID)
	if err != nil {
		r.log.Warn("read assistant", zap.Int64("chat_id", chatID), zap.Error(err))
		return 0, false
	}
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(v)
	if err != nil {
		r.log.Warn("malformed assistant row", zap.Int64("chat_id", chatID), zap.String("value", v))
		return 0, false
	}
	return idx, true
}

func (r *Registry) live(idx int) (*Live, error) {
	c, err := r.pool.Client(idx)
	if err != nil {
		return nil, err
	}
	return &Live{Index: idx, Client: c}, nil
}
