// Package server initializes and runs the sync server: it selects the
// key-value backend, builds the versioned document store and starts the
// HTTP endpoint, handling graceful shutdown on OS signals.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/linkdeck/internal/logging"
	"github.com/dmitrijs2005/linkdeck/internal/server/auth"
	"github.com/dmitrijs2005/linkdeck/internal/server/config"
	"github.com/dmitrijs2005/linkdeck/internal/server/docstore"
	"github.com/dmitrijs2005/linkdeck/internal/server/httpapi"
	"github.com/dmitrijs2005/linkdeck/internal/server/kv"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *docstore.Store
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	backend, err := selectBackend(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("kv backend init error: %w", err)
	}

	store := docstore.New(backend, logger)
	authenticator := auth.New(c.SyncPassword, c.TokenValidityDuration)
	server := httpapi.NewServer(c.EndpointAddr, logger, store, authenticator, c.CORSAllowedOrigins)

	return &App{config: c, logger: logger, store: store, server: server}, nil
}

func selectBackend(ctx context.Context, c *config.Config) (kv.Store, error) {
	switch c.Backend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "redis":
		store := kv.NewRedisStore(c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return store, nil
	case "postgres":
		return kv.NewPostgresStore(ctx, c.DatabaseDSN)
	case "s3":
		return kv.NewS3Store(ctx, kv.S3Config{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown kv backend %q", c.Backend)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
