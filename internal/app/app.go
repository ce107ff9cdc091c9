// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"path"

	pubsubclient "cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openglam/smithsonian-harvester/internal/api"
	"github.com/openglam/smithsonian-harvester/internal/config"
	"github.com/openglam/smithsonian-harvester/internal/harvest"
	"github.com/openglam/smithsonian-harvester/internal/metrics"
	"github.com/openglam/smithsonian-harvester/internal/publisher"
	pubsubpub "github.com/openglam/smithsonian-harvester/internal/publisher/pubsub"
	"github.com/openglam/smithsonian-harvester/internal/storage"
	"github.com/openglam/smithsonian-harvester/internal/storage/gcs"
	"github.com/openglam/smithsonian-harvester/internal/storage/local"
	storagememory "github.com/openglam/smithsonian-harvester/internal/storage/memory"
	storememory "github.com/openglam/smithsonian-harvester/internal/store/memory"
	"github.com/openglam/smithsonian-harvester/internal/store/postgres"
)

// App holds the shared, long-lived services for one harvester run.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	RunID     string
	Blob      storage.Provider
	Store     harvest.ImageStore
	Publisher publisher.Provider

	pgStore   *postgres.Store
	pubsubPub *pubsubpub.Publisher
	opsServer *http.Server
}

// New builds the App from configuration, failing fast when any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.Init()

	a := &App{
		Config: cfg,
		Logger: logger,
		RunID:  uuid.NewString(),
	}

	if err := a.initBlob(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx, cfg); err != nil {
		return nil, err
	}
	a.startOpsServer(cfg)

	logger.Info("application services initialized",
		zap.String("run_id", a.RunID),
		zap.String("store_provider", cfg.Store.Provider),
		zap.String("storage_provider", cfg.Storage.Provider),
	)
	return a, nil
}

func (a *App) initBlob(ctx context.Context, cfg config.Config) error {
	switch cfg.Storage.Provider {
	case "local":
		blob, err := local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return fmt.Errorf("init local storage: %w", err)
		}
		a.Blob = blob
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("init gcs client: %w", err)
		}
		blob, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.Bucket})
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.Blob = blob
	case "memory":
		a.Blob = storagememory.NewBlobStore()
	default:
		return fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
	return nil
}

func (a *App) initStore(ctx context.Context, cfg config.Config) error {
	switch cfg.Store.Provider {
	case "memory":
		objectPath := path.Join(cfg.Store.Prefix, a.RunID+".tsv")
		st, err := storememory.New(a.Blob, objectPath, a.Logger)
		if err != nil {
			return fmt.Errorf("init memory store: %w", err)
		}
		a.Store = st
	case "postgres":
		st, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.Store.Postgres.DSN,
			Table:    cfg.Store.Postgres.Table,
			MaxConns: cfg.Store.Postgres.MaxConns,
			MinConns: cfg.Store.Postgres.MinConns,
		})
		if err != nil {
			return fmt.Errorf("init postgres store: %w", err)
		}
		a.pgStore = st
		a.Store = st
	default:
		return fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}
	return nil
}

func (a *App) initPublisher(ctx context.Context, cfg config.Config) error {
	if cfg.PubSub.TopicName == "" {
		return nil
	}
	client, err := pubsubclient.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub client: %w", err)
	}
	pub, err := pubsubpub.New(client)
	if err != nil {
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.pubsubPub = pub
	a.Publisher = pub
	return nil
}

func (a *App) startOpsServer(cfg config.Config) {
	if cfg.Server.Listen == "" {
		return
	}
	srv := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: api.NewServer(a.Logger).Handler(),
	}
	a.opsServer = srv
	go func() {
		a.Logger.Info("ops server listening", zap.String("addr", cfg.Server.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("ops server failed", zap.Error(err))
		}
	}()
}

// Close gracefully shuts down all services in the container.
func (a *App) Close(ctx context.Context) {
	if a.opsServer != nil {
		if err := a.opsServer.Shutdown(ctx); err != nil {
			a.Logger.Warn("ops server shutdown", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.pubsubPub != nil {
		if err := a.pubsubPub.Close(); err != nil {
			a.Logger.Warn("pubsub close", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}
