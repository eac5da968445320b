// Package cli is the terminal front end. It wires the local cache, the
// HTTP client and the sync engine together and exposes them as commands.
package cli

import (
	"context"
	"database/sql"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/linkdeck/internal/client/api"
	"github.com/dmitrijs2005/linkdeck/internal/client/cache"
	"github.com/dmitrijs2005/linkdeck/internal/client/config"
	"github.com/dmitrijs2005/linkdeck/internal/client/sync"
	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/vault"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	cache  *cache.Cache
	client *api.HTTPClient
	engine *sync.Engine
	vault  *vault.Session
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	c, db, err := cache.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	client := api.NewHTTPClient(cfg.ServerEndpointAddr, cfg.SyncPassword, cfg.RequestTimeout)
	engine := sync.NewEngine(client, c, logger, cfg.DebounceInterval)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		cache:  c,
		client: client,
		engine: engine,
		vault:  vault.NewSession(),
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}
