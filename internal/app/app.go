// Package app assembles the bot's components from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/zulandar/yukki/internal/admission"
	"github.com/zulandar/yukki/internal/assistant"
	"github.com/zulandar/yukki/internal/calls"
	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/models"
	"github.com/zulandar/yukki/internal/notes"
	"github.com/zulandar/yukki/internal/player"
	"github.com/zulandar/yukki/internal/settings"
	"github.com/zulandar/yukki/internal/store"
	"github.com/zulandar/yukki/internal/sudo"
	"go.uber.org/zap"
)

// App holds every long-lived component. Fields are set by New and never
// replaced.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Settings   *settings.Cache
	Assistants *assistant.Registry
	Active     *admission.ActiveCalls
	Admission  *admission.Controller
	Sudo       *sudo.Registry
	Lists      *sudo.Lists
	Auth       *sudo.AuthUsers
	Notes      *notes.Book[models.Entry]
	Filters    *notes.Book[models.Entry]
	Playlists  *notes.Book[models.PlaylistItem]
	Player     *player.Player
	Log        *zap.Logger
}

// Opts holds parameters for New.
type Opts struct {
	Config  *config.Config
	Store   *store.Store
	Pool    assistant.Pool // defaults to BuildPool(Config)
	Gateway calls.Gateway  // defaults to an ExecGateway over Config.Calls
	Log     *zap.Logger
}

// New builds every component over an open, migrated store and loads the
// sudoers and access lists. A failure to load the access lists is logged
// and startup continues with whatever was read.
func New(ctx context.Context, opts Opts) (*App, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("app: config is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("app: store is required")
	}
	cfg := opts.Config
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	pool := opts.Pool
	if pool == nil {
		pool = BuildPool(cfg)
	}
	gw := opts.Gateway
	if gw == nil {
		if cfg.Calls.Command == "" {
			return nil, fmt.Errorf("app: calls.command is required when no gateway is given")
		}
		var err error
		if gw, err = calls.NewExecGateway(cfg.Calls.Command, cfg.Calls.Args...); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	a := &App{Config: cfg, Store: opts.Store, Log: log, Active: admission.NewActiveCalls()}

	var err error
	if a.Settings, err = settings.New(settings.Opts{
		Store:           opts.Store,
		Capacity:        cfg.Cache.Capacity,
		DefaultLanguage: cfg.DefaultLanguage,
		Log:             log,
	}); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.Assistants, err = assistant.New(assistant.Opts{Store: opts.Store, Pool: pool, Log: log}); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.Admission, err = admission.New(admission.Opts{
		Store:        opts.Store,
		Active:       a.Active,
		DefaultLimit: cfg.StreamLimit(),
		Log:          log,
	}); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.Sudo, err = sudo.New(sudo.Opts{Store: opts.Store, Owners: cfg.OwnerIDs, Log: log}); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if err := a.Sudo.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Lists = sudo.NewLists(opts.Store, log)
	if err := a.Lists.Load(ctx); err != nil {
		log.Warn("access lists partially loaded", zap.Error(err))
	}
	a.Auth = sudo.NewAuthUsers(opts.Store, log)
	a.Notes = notes.NewNotes(opts.Store)
	a.Filters = notes.NewFilters(opts.Store)
	a.Playlists = notes.NewPlaylists(opts.Store)
	if a.Player, err = player.New(player.Opts{
		Assistants: a.Assistants,
		Admission:  a.Admission,
		Active:     a.Active,
		Settings:   a.Settings,
		Gateway:    gw,
		Log:        log,
	}); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	log.Info("components ready",
		zap.Int("assistants", pool.Size()),
		zap.Int("live", len(pool.Live())),
		zap.Int("sudoers", len(a.Sudo.List())),
	)
	return a, nil
}
