package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/yukki/internal/app"
	"github.com/zulandar/yukki/internal/backup"
	"github.com/zulandar/yukki/internal/bot"
	"github.com/zulandar/yukki/internal/chat/telegram"
	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/dashboard"
	"github.com/zulandar/yukki/internal/logging"
	"github.com/zulandar/yukki/internal/store"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot",
		Long: `Connects to Telegram and serves commands until interrupted.
Also starts the status dashboard and the backup schedule when configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBot(ctx, cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runBot(ctx context.Context, cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer log.Sync()

	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Migrate(ctx); err != nil {
		return err
	}

	a, err := app.New(ctx, app.Opts{Config: cfg, Store: s, Log: log})
	if err != nil {
		return err
	}
	adapter, err := telegram.New(telegram.AdapterOpts{BotToken: cfg.BotToken, Log: log})
	if err != nil {
		return err
	}
	b, err := bot.New(bot.Opts{App: a, Adapter: adapter, Log: log})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Dashboard.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := dashboard.Start(ctx, dashboard.StartOpts{App: a, Port: cfg.Dashboard.Port, Log: log}); err != nil {
				log.Error("dashboard stopped", zap.Error(err))
			}
		}()
	}
	if cfg.Backup.Cron != "" && s.Driver() != "sqlite" {
		log.Warn("scheduled backups need the sqlite driver", zap.String("driver", s.Driver()))
	} else if cfg.Backup.Cron != "" {
		sched, err := backup.NewScheduler(backup.Opts{Source: s, Cron: cfg.Backup.Cron, Dir: cfg.Backup.Dir, Log: log})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Yukki %s starting with %d assistants\n", Version, len(cfg.Assistants))
	return b.Run(ctx)
}
