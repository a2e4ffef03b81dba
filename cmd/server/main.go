package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/internal/config"
	infrahttp "github.com/wellqio/api/internal/infra/http"
	"github.com/wellqio/api/internal/infra/fetchers"
	"github.com/wellqio/api/internal/infra/jobs"
	"github.com/wellqio/api/internal/infra/postgres"
	"github.com/wellqio/api/internal/infra/redis"
	"github.com/wellqio/api/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := initLogger(cfg)
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Environment)

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	if cfg.Database.MigrateOnStart {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			log.Error("failed to run migrations", "error", err)
			return 1
		}
	}

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	store, err := newDocumentStore(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize document store", "error", err)
		return 1
	}
	log.Info("document store initialized", "backend", cfg.Storage.Backend)

	repos := NewRepositories(db)
	log.Info("repositories initialized")

	jobClient := jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		MaxRetry:      cfg.Jobs.MaxRetry,
		IngestTimeout: cfg.Jobs.IngestTimeout,
	}, log)
	defer closeWithLog(jobClient, "job client", log)

	deps := &ServiceDeps{
		Config:      cfg,
		Log:         log,
		Repos:       repos,
		RedisClient: redisClient,
		JobClient:   jobClient,
		Store:       store,
	}
	services := NewServices(deps)
	log.Info("services initialized")

	handlers := NewHandlers(cfg, services, repos, jobClient, db, redisClient)
	router := infrahttp.NewRouter(cfg, handlers, log)
	server := infrahttp.NewServer(&cfg.Server, router, log)

	workers, err := NewWorkers(cfg, services, repos, jobClient, deps)
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}
	if err := workers.Start(ctx, log); err != nil {
		log.Error("failed to start workers", "error", err)
		return 1
	}

	go func() {
		if err := server.Start(); err != nil {
			log.Error("server error", "error", err)
		}
	}()
	log.Info("application started", "http_addr", cfg.Server.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	workers.Stop(log)

	if err := server.Shutdown(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

func initLogger(cfg *config.Config) *logger.Logger {
	var log *logger.Logger
	if cfg.App.IsProduction() {
		log = logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	} else {
		log = logger.NewDevelopment()
	}
	log.SetDefault()
	return log
}

// newDocumentStore picks the staging backend for scan and SBOM documents.
func newDocumentStore(ctx context.Context, cfg *config.Config) (ingest.DocumentStore, error) {
	if cfg.Storage.Backend == "s3" {
		return fetchers.NewS3Store(ctx, &cfg.Storage)
	}
	return fetchers.NewFileStore(cfg.Storage.LocalDir)
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
