// Package admission enforces the process-wide limit on concurrent video
// streams.
package admission

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// LimitKey is the store key of the video stream limit.
const LimitKey int64 = 123456

// Opts configures a Controller.
type Opts struct {
	Store  *store.Store
	Active *ActiveCalls
	// DefaultLimit applies while no limit has been stored.
	DefaultLimit int
	Log          *zap.Logger
}

// Controller decides whether a chat may start a video stream.
type Controller struct {
	store        *store.Store
	active       *ActiveCalls
	defaultLimit int
	log          *zap.Logger

	mu     sync.Mutex
	limit  int
	loaded bool
}

// New creates a Controller.
func New(opts Opts) (*Controller, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("admission: store is required")
	}
	if opts.Active == nil {
		return nil, fmt.Errorf("admission: active calls are required")
	}
	if opts.DefaultLimit < 0 {
		return nil, fmt.Errorf("admission: default limit must not be negative")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Controller{
		store:        opts.Store,
		active:       opts.Active,
		defaultLimit: opts.DefaultLimit,
		log:          opts.Log.Named("admission"),
	}, nil
}

// AdmitVideo reports whether chatID may start or continue a video stream.
// A chat already streaming video is always admitted while the limit is
// positive. AdmitVideo never changes the active set; the caller adds the
// chat once the stream has started.
func (c *Controller) AdmitVideo(ctx context.Context, chatID int64) bool {
	limit := c.Limit(ctx)
	if limit == 0 {
		return false
	}
	count, streaming := c.active.videoState(chatID)
	if count == limit && !streaming {
		return false
	}
	return true
}

// Limit returns the video stream limit, reading the store on first use.
// A store failure yields the configured default without caching it.
func (c *Controller) Limit(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.limit
	}

	v, ok, err := c.store.Get(ctx, store.TableVideoCalls, LimitKey)
	if err != nil {
		c.log.Warn("read video limit", zap.Error(err))
		return c.defaultLimit
	}
	limit := c.defaultLimit
	if ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.log.Warn("malformed video limit", zap.String("value", v))
		} else {
			limit = n
		}
	}
	c.limit, c.loaded = limit, true
	return limit
}

// SetLimit changes the video stream limit. Zero disables video streams.
func (c *Controller) SetLimit(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("admission: limit must not be negative, got %d", n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limit, c.loaded = n, true
	if err := c.store.Set(ctx, store.TableVideoCalls, LimitKey, strconv.Itoa(n)); err != nil {
		c.log.Warn("write video limit", zap.Int("limit", n), zap.Error(err))
	}
	return nil
}
