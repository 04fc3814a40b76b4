// Package settings caches per-chat settings in memory in front of the
// durable store. Reads fall back to per-kind defaults; writes go to the
// cache first and then to the store.
package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/maypok86/otter"
	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

// ErrInvalidValue is returned by Set for a value the kind does not accept.
var ErrInvalidValue = errors.New("settings: invalid value")

// MaintenanceKey is the store key of the process-wide maintenance flag.
const MaintenanceKey int64 = 1

// Audio and video quality presets, best first.
var (
	AudioPresets = []string{"STUDIO", "HIGH", "MEDIUM", "LOW"}
	VideoPresets = []string{"UHD_4K", "QHD_2K", "FHD_1080p", "HD_720p", "SD_480p", "SD_360p"}
)

// Kind describes one independent setting: where it is stored, what it
// defaults to, and which values it accepts.
type Kind struct {
	Name    string
	Table   string
	Default string
	Valid   func(string) bool
}

// Setting kinds.
var (
	Language     = Kind{Name: "language", Table: store.TableLanguage, Default: "en", Valid: validLanguage}
	PlayMode     = Kind{Name: "playmode", Table: store.TablePlayMode, Default: "Direct", Valid: oneOf("Direct", "Inline")}
	PlayType     = Kind{Name: "playtype", Table: store.TablePlayType, Default: "Everyone", Valid: oneOf("Everyone", "Admins")}
	ChannelMode  = Kind{Name: "channel", Table: store.TableChannelPlayMode, Default: "", Valid: validChannel}
	NonAdmin     = Kind{Name: "nonadmin", Table: store.TableAdminAuth, Default: "false", Valid: oneOf("true", "false")}
	AudioQuality = Kind{Name: "audioquality", Table: store.TableAudioQuality, Default: "STUDIO", Valid: oneOf(AudioPresets...)}
	VideoQuality = Kind{Name: "videoquality", Table: store.TableVideoQuality, Default: "UHD_4K", Valid: oneOf(VideoPresets...)}
	Maintenance  = Kind{Name: "maintenance", Table: store.TableOnOff, Default: "off", Valid: oneOf("on", "off")}
)

// Kinds lists every per-chat kind, in display order.
var Kinds = []Kind{Language, PlayMode, PlayType, ChannelMode, NonAdmin, AudioQuality, VideoQuality}

type key struct {
	chat int64
	kind string
}

// Opts configures a Cache.
type Opts struct {
	Store           *store.Store
	Capacity        int
	DefaultLanguage string
	Log             *zap.Logger
}

// Cache is the settings cache. It is safe for concurrent use.
type Cache struct {
	store   *store.Store
	log     *zap.Logger
	defLang string
	entries otter.Cache[key, string]

	mu sync.Mutex
	// unsaved pins values whose store write failed, so cache eviction
	// cannot revert them to the stored value or the default.
	unsaved map[key]string
}

// New creates a settings Cache.
func New(opts Opts) (*Cache, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("settings: store is required")
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 10000
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	entries, err := otter.MustBuilder[key, string](opts.Capacity).Build()
	if err != nil {
		return nil, fmt.Errorf("settings: build cache: %w", err)
	}
	return &Cache{
		store:   opts.Store,
		log:     opts.Log.Named("settings"),
		defLang: opts.DefaultLanguage,
		entries: entries,
		unsaved: make(map[key]string),
	}, nil
}

// Default returns the value kind takes when nothing is stored.
func (c *Cache) Default(kind Kind) string {
	if kind.Name == Language.Name && c.defLang != "" {
		return c.defLang
	}
	return kind.Default
}

// Get returns the setting for chatID. A missing row yields the kind's
// default, which is neither cached nor written back. A store failure is
// logged and also yields the default.
func (c *Cache) Get(ctx context.Context, chatID int64, kind Kind) string {
	k := key{chat: chatID, kind: kind.Name}
	if v, ok := c.entries.Get(k); ok {
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.unsaved[k]; ok {
		return v
	}
	if v, ok := c.entries.Get(k); ok {
		return v
	}
	v, ok, err := c.store.Get(ctx, kind.Table, chatID)
	if err != nil {
		c.log.Warn("read setting", zap.String("kind", kind.Name), zap.Int64("chat_id", chatID), zap.Error(err))
		return c.Default(kind)
	}
	if !ok {
		return c.Default(kind)
	}
	c.entries.Set(k, v)
	return v
}

// Set validates value, stores it in the cache and writes it through to the
// store. A store write failure is logged, not returned; the value is then
// pinned in memory until a later Set of the same setting reaches the store
// or the process restarts.
func (c *Cache) Set(ctx context.Context, chatID int64, kind Kind, value string) error {
	if kind.Valid != nil && !kind.Valid(value) {
		return fmt.Errorf("%w: %s %q", ErrInvalidValue, kind.Name, value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	k := key{chat: chatID, kind: kind.Name}
	c.entries.Set(k, value)
	if err := c.store.Set(ctx, kind.Table, chatID, value); err != nil {
		c.log.Warn("write setting", zap.String("kind", kind.Name), zap.Int64("chat_id", chatID), zap.Error(err))
		c.unsaved[k] = value
		return nil
	}
	delete(c.unsaved, k)
	return nil
}

// Evict drops the cached value of one setting. The next Get reads the
// store again, unless the value is pinned after a failed write.
func (c *Cache) Evict(chatID int64, kind Kind) {
	c.entries.Delete(key{chat: chatID, kind: kind.Name})
}

// Clear drops every cached value. Pinned values survive.
func (c *Cache) Clear() {
	c.entries.Clear()
}

func (c *Cache) Language(ctx context.Context, chatID int64) string {
	return c.Get(ctx, chatID, Language)
}

func (c *Cache) PlayMode(ctx context.Context, chatID int64) string {
	return c.Get(ctx, chatID, PlayMode)
}

func (c *Cache) PlayType(ctx context.Context, chatID int64) string {
	return c.Get(ctx, chatID, PlayType)
}

// ChannelID returns the channel linked to chatID for channel play, if any.
func (c *Cache) ChannelID(ctx context.Context, chatID int64) (int64, bool) {
	v := c.Get(ctx, chatID, ChannelMode)
	if v == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SetChannelID links chatID to a channel. Zero removes the link.
func (c *Cache) SetChannelID(ctx context.Context, chatID, channelID int64) error {
	if channelID == 0 {
		return c.Set(ctx, chatID, ChannelMode, "")
	}
	return c.Set(ctx, chatID, ChannelMode, strconv.FormatInt(channelID, 10))
}

// IsNonAdmin reports whether chatID lets non-admins use admin commands.
func (c *Cache) IsNonAdmin(ctx context.Context, chatID int64) bool {
	return c.Get(ctx, chatID, NonAdmin) == "true"
}

func (c *Cache) SetNonAdmin(ctx context.Context, chatID int64, on bool) error {
	return c.Set(ctx, chatID, NonAdmin, strconv.FormatBool(on))
}

func (c *Cache) AudioQuality(ctx context.Context, chatID int64) string {
	return c.Get(ctx, chatID, AudioQuality)
}

func (c *Cache) VideoQuality(ctx context.Context, chatID int64) string {
	return c.Get(ctx, chatID, VideoQuality)
}

// InMaintenance reports whether the bot is in maintenance mode.
func (c *Cache) InMaintenance(ctx context.Context) bool {
	return c.Get(ctx, MaintenanceKey, Maintenance) == "on"
}

func (c *Cache) SetMaintenance(ctx context.Context, on bool) error {
	v := "off"
	if on {
		v = "on"
	}
	return c.Set(ctx, MaintenanceKey, Maintenance, v)
}

func oneOf(values ...string) func(string) bool {
	return func(v string) bool { return slices.Contains(values, v) }
}

func validLanguage(v string) bool {
	if len(v) < 2 || len(v) > 8 {
		return false
	}
	for _, r := range v {
		if (r < 'a' || r > 'z') && r != '-' {
			return false
		}
	}
	return true
}

func validChannel(v string) bool {
	if v == "" {
		return true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	return err == nil && id != 0
}
