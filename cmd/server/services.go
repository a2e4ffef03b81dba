package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/internal/infra/fetchers"
	"github.com/wellqio/api/internal/infra/jobs"
	"github.com/wellqio/api/internal/infra/redis"
	"github.com/wellqio/api/pkg/logger"
)

// Services bundles all application services.
type Services struct {
	Workspace   *app.WorkspaceService
	Product     *app.ProductService
	Release     *app.ReleaseService
	Artifact    *app.ArtifactService
	Ingest      *ingest.Service
	SBOM        *app.SBOMService
	Triage      *app.TriageService
	Risk        *app.RiskService
	ThreatIntel *app.ThreatIntelService
}

// ServiceDeps carries everything service construction needs.
type ServiceDeps struct {
	Config      *config.Config
	Log         *logger.Logger
	Repos       *Repositories
	RedisClient *redis.Client
	JobClient   *jobs.Client
	Store       ingest.DocumentStore
}

// NewServices wires all application services.
func NewServices(deps *ServiceDeps) *Services {
	cfg := deps.Config
	log := deps.Log
	repos := deps.Repos

	artifactService := app.NewArtifactService(repos.Artifact, repos.SourceRepo, log)

	registry := ingest.NewRegistry(
		ingest.NewTrivyParser(),
		ingest.NewTrufflehogParser(),
		ingest.NewXrayParser(),
	)
	reconciler := ingest.NewReconciler(
		repos.Finding,
		ingest.ReconcilePolicy{PreserveTriaged: cfg.Ingest.PreserveTriaged},
		log,
	)
	ingestService := ingest.NewService(
		registry,
		reconciler,
		artifactService,
		repos.Scan,
		repos.Release,
		deps.Store,
		redis.NewScopeLock(deps.RedisClient, log),
		deps.JobClient,
		ingest.NewMetrics(prometheus.DefaultRegisterer),
		ingest.Config{
			DedupWindow:  cfg.Ingest.DedupWindow,
			ScopeLockTTL: cfg.Jobs.ScopeLockTTL,
		},
		log,
	)

	return &Services{
		Workspace:   app.NewWorkspaceService(repos.Workspace, log),
		Product:     app.NewProductService(repos.Product, log),
		Release:     app.NewReleaseService(repos.Release, repos.Artifact, log),
		Artifact:    artifactService,
		Ingest:      ingestService,
		SBOM:        app.NewSBOMService(repos.Component, repos.Release, deps.Store, deps.JobClient, log),
		Triage:      app.NewTriageService(repos.Finding, repos.Approval, log),
		Risk: app.NewRiskService(
			repos.Finding, repos.Scan, repos.Release, repos.Artifact, repos.Component,
			cfg.Risk, log,
		),
		ThreatIntel: app.NewThreatIntelService(
			repos.EPSS, repos.KEV, repos.SyncStatus, repos.Finding,
			fetchers.NewFeedFetcher(cfg.ThreatIntel.FetchTimeout),
			cfg.ThreatIntel, log,
		),
	}
}
