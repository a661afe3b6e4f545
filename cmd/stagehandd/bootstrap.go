package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"stagehand/internal/bus"
	"stagehand/internal/config"
	"stagehand/internal/daemon"
	"stagehand/internal/services/obs"
	"stagehand/internal/services/youtube"
	"stagehand/internal/store"
)

func buildDaemon(ctx context.Context, cfg *config.Config, st *store.Store, logger *slog.Logger) (*daemon.Daemon, error) {
	client, err := youtube.NewService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init broadcast client: %w", err)
	}

	return daemon.New(daemon.Deps{
		Config: cfg,
		Store:  st,
		Logger: logger,
		Events: bus.New(logger),
		Client: client,
		Dialer: obs.NewDialer(cfg),
	})
}

func buildSocketPath(cfg *config.Config) string {
	if cfg == nil {
		return filepath.Join("", "stagehand.sock")
	}
	return filepath.Join(cfg.Paths.LogDir, "stagehand.sock")
}
