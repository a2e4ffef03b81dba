package main

import (
	"context"
	"fmt"

	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/internal/infra/controller"
	"github.com/wellqio/api/internal/infra/jobs"
	"github.com/wellqio/api/pkg/logger"
)

// Workers bundles the background processing machinery: the asynq worker,
// the reconciliation controllers and the sync scheduler.
type Workers struct {
	worker      *jobs.Worker
	controllers *controller.Manager
	scheduler   *controller.ThreatIntelScheduler
}

// NewWorkers wires the job worker, controllers and scheduler.
func NewWorkers(cfg *config.Config, services *Services, repos *Repositories, jobClient *jobs.Client, deps *ServiceDeps) (*Workers, error) {
	worker := jobs.NewWorker(
		jobs.WorkerConfig{
			RedisAddr:     cfg.Redis.Addr(),
			RedisPassword: cfg.Redis.Password,
			RedisDB:       cfg.Redis.DB,
			Concurrency:   cfg.Jobs.Concurrency,
		},
		services.Ingest,
		services.SBOM,
		services.ThreatIntel,
		deps.Store,
		deps.Log,
	)

	manager := controller.NewManager(controller.NewMetrics(), deps.Log)
	manager.Register(controller.NewScanRecoveryController(
		repos.Scan,
		controller.ScanRecoveryConfig{},
		deps.Log,
	))
	manager.Register(controller.NewRiskAcceptanceController(
		repos.Finding,
		controller.RiskAcceptanceConfig{},
		deps.Log,
	))

	scheduler, err := controller.NewThreatIntelScheduler(jobClient, cfg.ThreatIntel.SyncSchedule, deps.Log)
	if err != nil {
		return nil, fmt.Errorf("threat intel scheduler: %w", err)
	}

	return &Workers{
		worker:      worker,
		controllers: manager,
		scheduler:   scheduler,
	}, nil
}

// Start launches all background processing.
func (w *Workers) Start(ctx context.Context, log *logger.Logger) error {
	if err := w.worker.Start(); err != nil {
		return fmt.Errorf("start job worker: %w", err)
	}
	if err := w.controllers.Start(ctx); err != nil {
		return fmt.Errorf("start controllers: %w", err)
	}
	w.scheduler.Start()
	log.Info("workers started")
	return nil
}

// Stop shuts background processing down in reverse start order.
func (w *Workers) Stop(log *logger.Logger) {
	w.scheduler.Stop()
	if err := w.controllers.Stop(); err != nil {
		log.Error("stop controllers", "error", err)
	}
	w.worker.Stop()
	log.Info("workers stopped")
}
