package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// SBOMTaskHandler digests staged SBOM documents.
type SBOMTaskHandler struct {
	service *app.SBOMService
	store   ingest.DocumentStore
	logger  *logger.Logger
}

// NewSBOMTaskHandler creates a new SBOMTaskHandler.
func NewSBOMTaskHandler(service *app.SBOMService, store ingest.DocumentStore, log *logger.Logger) *SBOMTaskHandler {
	return &SBOMTaskHandler{
		service: service,
		store:   store,
		logger:  log.With("component", "sbom_task_handler"),
	}
}

// HandleSBOMDigest fetches the staged document, diffs it against the
// release's component baseline and removes the document once digested.
func (h *SBOMTaskHandler) HandleSBOMDigest(ctx context.Context, task *asynq.Task) error {
	var payload SBOMDigestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	releaseID, err := shared.IDFromString(payload.ReleaseID)
	if err != nil {
		return fmt.Errorf("invalid release id %q: %v: %w", payload.ReleaseID, err, asynq.SkipRetry)
	}

	doc, err := h.store.Get(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("fetch staged sbom: %w", err)
	}

	result, err := h.service.Digest(ctx, releaseID, doc)
	if err != nil {
		return fmt.Errorf("digest sbom: %w", err)
	}

	if err := h.store.Delete(ctx, payload.ObjectKey); err != nil {
		h.logger.Warn("failed to delete staged sbom", "key", payload.ObjectKey, "error", err)
	}

	h.logger.Info("sbom digested",
		"release_id", payload.ReleaseID,
		"new", result.New,
		"removed", result.Removed,
		"unchanged", result.Unchanged,
	)
	return nil
}
