package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/internal/infra/http/handler"
	"github.com/wellqio/api/internal/infra/http/middleware"
	"github.com/wellqio/api/pkg/logger"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Catalog     *handler.CatalogHandler
	Scans       *handler.ScanHandler
	Findings    *handler.FindingHandler
	Approvals   *handler.ApprovalHandler
	Releases    *handler.ReleaseHandler
	ThreatIntel *handler.ThreatIntelHandler
	Health      *handler.HealthHandler
}

// NewRouter wires the middleware chain and all API routes.
func NewRouter(cfg *config.Config, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(log, cfg.App.IsProduction()))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics)
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	r.Use(middleware.Decompress(middleware.DecompressConfig{
		MaxDecompressedSize: cfg.Ingest.MaxDocumentBytes,
	}))

	r.Get("/health", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/workspaces", func(r chi.Router) {
			r.Post("/", h.Catalog.EnsureWorkspace)
			r.Get("/", h.Catalog.ListWorkspaces)
			r.Route("/{workspaceID}", func(r chi.Router) {
				r.Get("/", h.Catalog.GetWorkspace)
				r.Post("/products", h.Catalog.EnsureProduct)
				r.Get("/products", h.Catalog.ListProducts)
				r.Get("/artifacts", h.Catalog.ListArtifacts)
				r.Post("/releases/{releaseID}/artifacts", h.Releases.LinkArtifacts)
			})
		})

		r.Route("/products/{productID}", func(r chi.Router) {
			r.Post("/releases", h.Catalog.EnsureRelease)
			r.Get("/releases", h.Catalog.ListReleases)
		})

		r.Route("/releases/{releaseID}", func(r chi.Router) {
			r.Post("/sbom", h.Releases.SubmitSBOM)
			r.Get("/sbom", h.Releases.ExportSBOM)
			r.Get("/components", h.Releases.ListComponents)
			r.Get("/risk", h.Releases.Risk)
			r.Get("/scans", h.Scans.ListByRelease)
		})

		r.Route("/scans", func(r chi.Router) {
			r.Post("/", h.Scans.Submit)
			r.Get("/{scanID}", h.Scans.Get)
		})
		r.Get("/artifacts/{artifactID}/scans", h.Scans.ListByArtifact)

		r.Route("/findings", func(r chi.Router) {
			r.Get("/", h.Findings.List)
			r.Route("/{findingID}", func(r chi.Router) {
				r.Get("/", h.Findings.Get)
				r.Post("/reopen", h.Findings.Reopen)
				r.Post("/status-requests", h.Findings.RequestStatusChange)
				r.Get("/approvals", h.Approvals.ListByFinding)
			})
		})

		r.Route("/approvals", func(r chi.Router) {
			r.Get("/pending", h.Approvals.ListPending)
			r.Post("/{requestID}/approve", h.Approvals.Approve)
			r.Post("/{requestID}/reject", h.Approvals.Reject)
		})

		r.Route("/threat-intel", func(r chi.Router) {
			r.Get("/status", h.ThreatIntel.Statuses)
			r.Post("/sync", h.ThreatIntel.TriggerSync)
		})
	})

	return r
}
