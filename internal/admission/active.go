package admission

import (
	"slices"
	"sync"
)

// ActiveCalls tracks chats with a running stream. It is process-local and
// starts empty on every boot.
type ActiveCalls struct {
	mu    sync.RWMutex
	audio map[int64]struct{}
	video map[int64]struct{}
}

// NewActiveCalls creates an empty registry.
func NewActiveCalls() *ActiveCalls {
	return &ActiveCalls{
		audio: make(map[int64]struct{}),
		video: make(map[int64]struct{}),
	}
}

func (a *ActiveCalls) Add(chatID int64) { a.add(a.audio, chatID) }
func (a *ActiveCalls) Remove(chatID int64) { a.remove(a.audio, chatID) }
func (a *ActiveCalls) Has(chatID int64) bool { return a.has(a.audio, chatID) }
func (a *ActiveCalls) List() []int64 { return a.list(a.audio) }
func (a *ActiveCalls) Count() int { return a.count(a.audio) }

func (a *ActiveCalls) AddVideo(chatID int64) { a.add(a.video, chatID) }
func (a *ActiveCalls) RemoveVideo(chatID int64) { a.remove(a.video, chatID) }
func (a *ActiveCalls) HasVideo(chatID int64) bool { return a.has(a.video, chatID) }
func (a *ActiveCalls) ListVideo() []int64 { return a.list(a.video) }
func (a *ActiveCalls) CountVideo() int { return a.count(a.video) }

// videoState returns the video count and whether chatID is in the set,
// read under one lock.
func (a *ActiveCalls) videoState(chatID int64) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.video[chatID]
	return len(a.video), ok
}

func (a *ActiveCalls) add(set map[int64]struct{}, id int64) {
	a.mu.Lock()
	set[id] = struct{}{}
	a.mu.Unlock()
}

func (a *ActiveCalls) remove(set map[int64]struct{}, id int64) {
	a.mu.Lock()
	delete(set, id)
	a.mu.Unlock()
}

func (a *ActiveCalls) has(set map[int64]struct{}, id int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := set[id]
	return ok
}

func (a *ActiveCalls) count(set map[int64]struct{}) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(set)
}

func (a *ActiveCalls) list(set map[int64]struct{}) []int64 {
	a.mu.RLock()
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	a.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
