package main

import (
	"github.com/wellqio/api/internal/infra/postgres"
)

// Repositories bundles every persistence adapter.
type Repositories struct {
	Workspace   *postgres.WorkspaceRepository
	Product     *postgres.ProductRepository
	Release     *postgres.ReleaseRepository
	Artifact    *postgres.ArtifactRepository
	SourceRepo  *postgres.SourceRepoRepository
	Scan        *postgres.ScanRepository
	Finding     *postgres.FindingRepository
	Component   *postgres.ComponentRepository
	Approval    *postgres.ApprovalRepository
	EPSS        *postgres.EPSSRepository
	KEV         *postgres.KEVRepository
	SyncStatus  *postgres.SyncStatusRepository
}

// NewRepositories constructs all repositories over one database handle.
func NewRepositories(db *postgres.DB) *Repositories {
	return &Repositories{
		Workspace:  postgres.NewWorkspaceRepository(db),
		Product:    postgres.NewProductRepository(db),
		Release:    postgres.NewReleaseRepository(db),
		Artifact:   postgres.NewArtifactRepository(db),
		SourceRepo: postgres.NewSourceRepoRepository(db),
		Scan:       postgres.NewScanRepository(db),
		Finding:    postgres.NewFindingRepository(db),
		Component:  postgres.NewComponentRepository(db),
		Approval:   postgres.NewApprovalRepository(db),
		EPSS:       postgres.NewEPSSRepository(db),
		KEV:        postgres.NewKEVRepository(db),
		SyncStatus: postgres.NewSyncStatusRepository(db),
	}
}
