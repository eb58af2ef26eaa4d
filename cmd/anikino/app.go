package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mmcdole/anikino/internal/complement"
	"github.com/mmcdole/anikino/internal/config"
	"github.com/mmcdole/anikino/internal/logging"
	"github.com/mmcdole/anikino/internal/mirror"
	"github.com/mmcdole/anikino/internal/playback"
	"github.com/mmcdole/anikino/internal/player"
	"github.com/mmcdole/anikino/internal/provider/hianime"
	"github.com/mmcdole/anikino/internal/provider/jikan"
	"github.com/mmcdole/anikino/internal/resolver"
	"github.com/mmcdole/anikino/internal/store"
)

// app holds the wired services shared by every command
type app struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *store.ComplementStore
	complements *complement.Service
	coordinator *playback.Coordinator
	launcher    *player.Launcher

	logCloser io.Closer // nil when logging fell back to the null logger
}

func newApp(configDir string) (*app, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger, logCloser = logging.NullLogger(), nil
	}
	slog.SetDefault(logger)

	st, err := store.NewComplementStore(cfg.Store.Path)
	if err != nil {
		if logCloser != nil {
			logCloser.Close()
		}
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	metadata := jikan.NewClient(cfg.Providers.MetadataURL, jikan.Options{
		Timeout:    cfg.Providers.Timeout,
		RatePerSec: cfg.Providers.MetadataRatePerSec,
		Proxy:      cfg.Providers.Proxy,
	}, logger)

	streaming := hianime.NewClient(cfg.Providers.StreamingURL, cfg.Providers.Timeout, logger)
	if cfg.Providers.Proxy != "" {
		streaming.SetProxy(cfg.Providers.Proxy)
	}

	complements := complement.NewService(metadata, streaming, st, logger)

	res := resolver.New(streaming, mirror.NewTracker(), cfg.Resolver.Cooldown, logger)
	res.SetDefaultCategory(cfg.Resolver.Category())

	coordinator := playback.NewCoordinator(complements, res, playback.Options{
		SessionAttempts: cfg.Resolver.SessionAttempts,
		MaxAttempts:     cfg.Resolver.MaxAttempts,
		AutoLink:        cfg.Sync.AutoLink,
	}, logger)

	return &app{
		cfg:         cfg,
		logger:      logger,
		store:       st,
		complements: complements,
		coordinator: coordinator,
		launcher:    player.NewLauncher(cfg.Player.Command, cfg.Player.Args, cfg.Player.StartFlag, logger),
		logCloser:   logCloser,
	}, nil
}

func (a *app) Close() error {
	err := a.store.Close()
	if a.logCloser != nil {
		err = errors.Join(err, a.logCloser.Close())
	}
	return err
}
