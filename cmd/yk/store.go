package main

import (
	"context"
	"fmt"

	"github.com/zulandar/yukki/internal/config"
	"github.com/zulandar/yukki/internal/store"
)

// openStore loads the config at path and opens its migrated store.
func openStore(ctx context.Context, path string) (*config.Config, *store.Store, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	s, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, nil, err
	}
	return cfg, s, nil
}
