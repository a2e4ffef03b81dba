package main

import (
	infrahttp "github.com/wellqio/api/internal/infra/http"
	"github.com/wellqio/api/internal/infra/http/handler"
	"github.com/wellqio/api/internal/infra/jobs"
	"github.com/wellqio/api/internal/infra/postgres"
	"github.com/wellqio/api/internal/infra/redis"
	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/pkg/validator"
)

// NewHandlers builds the HTTP handler set from the service layer.
func NewHandlers(
	cfg *config.Config,
	services *Services,
	repos *Repositories,
	jobClient *jobs.Client,
	db *postgres.DB,
	redisClient *redis.Client,
) infrahttp.Handlers {
	v := validator.New()

	return infrahttp.Handlers{
		Catalog: handler.NewCatalogHandler(
			services.Workspace, services.Product, services.Release, services.Artifact, v,
		),
		Scans:    handler.NewScanHandler(services.Ingest, repos.Scan, v),
		Findings: handler.NewFindingHandler(services.Triage, v),
		Approvals: handler.NewApprovalHandler(services.Triage, v),
		Releases: handler.NewReleaseHandler(
			services.Release, services.SBOM, services.Risk, repos.Component, v,
			cfg.Ingest.MaxDocumentBytes,
		),
		ThreatIntel: handler.NewThreatIntelHandler(services.ThreatIntel, jobClient),
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"postgres": db,
			"redis":    redisClient,
		}),
	}
}
