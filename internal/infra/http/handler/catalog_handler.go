package handler

import (
	"net/http"
	"time"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/product"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/workspace"
	"github.com/wellqio/api/pkg/validator"
)

// CatalogHandler exposes the workspace, product, release and artifact
// catalog. Writes are ensure-shaped: pipelines call them repeatedly and
// get the same entity back.
type CatalogHandler struct {
	workspaces *app.WorkspaceService
	products   *app.ProductService
	releases   *app.ReleaseService
	artifacts  *app.ArtifactService
	validator  *validator.Validator
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(
	workspaces *app.WorkspaceService,
	products *app.ProductService,
	releases *app.ReleaseService,
	artifacts *app.ArtifactService,
	v *validator.Validator,
) *CatalogHandler {
	return &CatalogHandler{
		workspaces: workspaces,
		products:   products,
		releases:   releases,
		artifacts:  artifacts,
		validator:  v,
	}
}

type workspaceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toWorkspaceResponse(ws *workspace.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:          ws.ID().String(),
		Name:        ws.Name(),
		Slug:        ws.Slug(),
		Description: ws.Description(),
		CreatedAt:   ws.CreatedAt(),
	}
}

type ensureWorkspaceRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

// EnsureWorkspace handles POST /api/v1/workspaces.
func (h *CatalogHandler) EnsureWorkspace(w http.ResponseWriter, r *http.Request) {
	var req ensureWorkspaceRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ws, err := h.workspaces.Ensure(r.Context(), req.Name, req.Description)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(ws))
}

// ListWorkspaces handles GET /api/v1/workspaces.
func (h *CatalogHandler) ListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.workspaces.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]workspaceResponse, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, toWorkspaceResponse(ws))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// GetWorkspace handles GET /api/v1/workspaces/{workspaceID}.
func (h *CatalogHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "workspaceID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	ws, err := h.workspaces.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkspaceResponse(ws))
}

type productResponse struct {
	ID          string   `json:"id"`
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Criticality string   `json:"criticality"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID().String(),
		WorkspaceID: p.WorkspaceID().String(),
		Name:        p.Name(),
		Type:        string(p.ProductType()),
		Criticality: string(p.Criticality()),
		Description: p.Description(),
		Tags:        p.Tags(),
	}
}

type ensureProductRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=300"`
	Type        string `json:"type" validate:"required,product_type"`
	Criticality string `json:"criticality" validate:"required,criticality"`
}

// EnsureProduct handles POST /api/v1/workspaces/{workspaceID}/products.
func (h *CatalogHandler) EnsureProduct(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req ensureProductRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	p, err := h.products.Ensure(
		r.Context(), workspaceID, req.Name,
		product.Type(req.Type), product.Criticality(req.Criticality),
	)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(p))
}

// ListProducts handles GET /api/v1/workspaces/{workspaceID}/products.
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	products, err := h.products.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

type releaseResponse struct {
	ID         string    `json:"id"`
	ProductID  string    `json:"product_id"`
	Name       string    `json:"name"`
	CommitHash string    `json:"commit_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toReleaseResponse(rel *release.Release) releaseResponse {
	return releaseResponse{
		ID:         rel.ID().String(),
		ProductID:  rel.ProductID().String(),
		Name:       rel.Name(),
		CommitHash: rel.CommitHash(),
		CreatedAt:  rel.CreatedAt(),
	}
}

type ensureReleaseRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=200"`
	CommitHash string `json:"commit_hash" validate:"max=64"`
}

// EnsureRelease handles POST /api/v1/products/{productID}/releases.
func (h *CatalogHandler) EnsureRelease(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req ensureReleaseRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	rel, err := h.releases.Ensure(r.Context(), productID, req.Name, req.CommitHash)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReleaseResponse(rel))
}

// ListReleases handles GET /api/v1/products/{productID}/releases.
func (h *CatalogHandler) ListReleases(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	releases, err := h.releases.ListByProduct(r.Context(), productID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]releaseResponse, 0, len(releases))
	for _, rel := range releases {
		out = append(out, toReleaseResponse(rel))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

type artifactResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Version   string  `json:"version"`
	Type      string  `json:"type"`
	RepoID    *string `json:"repo_id,omitempty"`
	LastSeen  string  `json:"last_seen"`
}

func toArtifactResponse(a *artifact.Artifact) artifactResponse {
	resp := artifactResponse{
		ID:       a.ID().String(),
		Name:     a.Name(),
		Version:  a.Version(),
		Type:     string(a.ArtifactType()),
		LastSeen: a.UpdatedAt().Format(time.RFC3339),
	}
	if id := a.RepoID(); id != nil {
		str := id.String()
		resp.RepoID = &str
	}
	return resp
}

// ListArtifacts handles GET /api/v1/workspaces/{workspaceID}/artifacts.
func (h *CatalogHandler) ListArtifacts(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	artifacts, err := h.artifacts.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]artifactResponse, 0, len(artifacts))
	for _, a := range artifacts {
		out = append(out, toArtifactResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}
