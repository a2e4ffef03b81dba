package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/logger"
)

// WorkerConfig holds the configuration for the job worker.
type WorkerConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Concurrency   int
}

// Worker processes background jobs.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *logger.Logger
}

// NewWorker creates a new background job worker with all task handlers
// registered.
func NewWorker(
	cfg WorkerConfig,
	ingestService *ingest.Service,
	sbomService *app.SBOMService,
	threatIntel *app.ThreatIntelService,
	store ingest.DocumentStore,
	log *logger.Logger,
) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				QueueIngest:      8,
				QueueMaintenance: 2,
			},
			Logger: asynqLogger{log.With("component", "job_worker")},
		},
	)

	mux := asynq.NewServeMux()

	ingestHandler := NewIngestTaskHandler(ingestService, log)
	mux.HandleFunc(TypeScanIngest, ingestHandler.HandleScanIngest)

	sbomHandler := NewSBOMTaskHandler(sbomService, store, log)
	mux.HandleFunc(TypeSBOMDigest, sbomHandler.HandleSBOMDigest)

	intelHandler := NewThreatIntelTaskHandler(threatIntel, log)
	mux.HandleFunc(TypeThreatIntelSync, intelHandler.HandleSync)

	return &Worker{
		server: server,
		mux:    mux,
		logger: log,
	}
}

// Start starts the worker.
func (w *Worker) Start() error {
	w.logger.Info("starting job worker")
	return w.server.Start(w.mux)
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() {
	w.logger.Info("stopping job worker")
	w.server.Shutdown()
}

// Run runs the worker until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Start(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.Stop()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
		return nil
	}
}

// asynqLogger adapts our structured logger to asynq's logging interface.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
