// Package sudo keeps the set of privileged users and the ban and
// blacklist sets consulted on every inbound update.
package sudo

import (
	"context"
	"fmt"
	"slices"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// Registry holds the sudoers: the static owners from config plus the
// persisted list.
type Registry struct {
	owners []int64
	set    *IDSet
	log    *zap.Logger
}

// Opts configures a Registry.
type Opts struct {
	Store  *store.Store
	Owners []int64
	Log    *zap.Logger
}

// New creates a Registry. Call Load before use.
func New(opts Opts) (*Registry, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("sudo: store is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	log := opts.Log.Named("sudo")
	return &Registry{
		owners: slices.Clone(opts.Owners),
		set:    NewIDSet(opts.Store, store.TableSudoers, store.AllKeys, log),
		log:    log,
	}, nil
}

// Load seeds the owners into the set and the persisted list, then adds
// every persisted sudoer. It is safe to call more than once.
func (r *Registry) Load(ctx context.Context) error {
	for _, id := range r.owners {
		r.set.ensure(ctx, id)
	}
	if err := r.set.Load(ctx); err != nil {
		return err
	}
	r.log.Info("sudoers loaded", zap.Int("count", r.set.Count()))
	return nil
}

// Add makes userID a sudoer. It returns false if userID already was one.
func (r *Registry) Add(ctx context.Context, userID int64) bool {
	return r.set.Add(ctx, userID)
}

// Remove revokes userID. It returns false if userID was not a sudoer.
// Owners are not protected here; callers decide whether to allow it.
func (r *Registry) Remove(ctx context.Context, userID int64) bool {
	return r.set.Remove(ctx, userID)
}

// Has reports whether userID is a sudoer.
func (r *Registry) Has(userID int64) bool {
	return r.set.Has(userID)
}

// IsOwner reports whether userID is one of the static owners.
func (r *Registry) IsOwner(userID int64) bool {
	return slices.Contains(r.owners, userID)
}

// Owners returns the static owner ids.
func (r *Registry) Owners() []int64 {
	return slices.Clone(r.owners)
}

// List returns every sudoer in ascending order, owners included.
func (r *Registry) List() []int64 {
	return r.set.List()
}
