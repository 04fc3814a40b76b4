package sudo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// IDSet is a set of chat or user ids held in memory and persisted one row
// per id. Membership checks never touch the store.
type IDSet struct {
	store  *store.Store
	table  string
	filter store.Filter
	log    *zap.Logger

	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewIDSet creates an empty set backed by table. Load only reads keys
// matching filter.
func NewIDSet(s *store.Store, table string, filter store.Filter, log *zap.Logger) *IDSet {
	if log == nil {
		log = zap.NewNop()
	}
	return &IDSet{
		store:  s,
		table:  table,
		filter: filter,
		log:    log.With(zap.String("table", table)),
		ids:    make(map[int64]struct{}),
	}
}

// Load adds every persisted id to the set.
func (s *IDSet) Load(ctx context.Context) error {
	keys, err := s.store.Keys(ctx, s.table, s.filter)
	if err != nil {
		return fmt.Errorf("sudo: load %s: %w", s.table, err)
	}
	s.mu.Lock()
	for _, id := range keys {
		s.ids[id] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

// Add inserts id, returning false if it was already present. A store
// failure is logged; the in-memory set is still updated.
func (s *IDSet) Add(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	if err := s.store.Set(ctx, s.table, id, ""); err != nil {
		s.log.Warn("persist id", zap.Int64("id", id), zap.Error(err))
	}
	return true
}

// ensure inserts id and upserts its row whether or not it was present.
func (s *IDSet) ensure(ctx context.Context, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[id] = struct{}{}
	if err := s.store.Set(ctx, s.table, id, ""); err != nil {
		s.log.Warn("persist id", zap.Int64("id", id), zap.Error(err))
	}
}

// Remove deletes id, returning false if it was not present.
func (s *IDSet) Remove(ctx context.Context, id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	if _, err := s.store.Delete(ctx, s.table, id); err != nil {
		s.log.Warn("delete id", zap.Int64("id", id), zap.Error(err))
	}
	return true
}

func (s *IDSet) Has(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// List returns the ids in ascending order.
func (s *IDSet) List() []int64 {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

func (s *IDSet) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
