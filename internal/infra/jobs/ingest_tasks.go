package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// IngestTaskHandler processes staged scan documents.
type IngestTaskHandler struct {
	service *ingest.Service
	logger  *logger.Logger
}

// NewIngestTaskHandler creates a new IngestTaskHandler.
func NewIngestTaskHandler(service *ingest.Service, log *logger.Logger) *IngestTaskHandler {
	return &IngestTaskHandler{
		service: service,
		logger:  log.With("component", "ingest_task_handler"),
	}
}

// HandleScanIngest reconciles one staged scan document. ErrScopeBusy is
// returned as-is so asynq retries with backoff; on the last retry the scan
// is marked failed so it does not stay PENDING forever.
func (h *IngestTaskHandler) HandleScanIngest(ctx context.Context, task *asynq.Task) error {
	var payload ScanIngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	scanID, err := shared.IDFromString(payload.ScanID)
	if err != nil {
		return fmt.Errorf("invalid scan id %q: %v: %w", payload.ScanID, err, asynq.SkipRetry)
	}

	err = h.service.Process(ctx, scanID, payload.ObjectKey)
	if err == nil {
		return nil
	}

	if errors.Is(err, ingest.ErrScopeBusy) {
		h.logger.Info("scope busy, retrying", "scan_id", payload.ScanID)
		return err
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		h.logger.Error("scan processing exhausted retries",
			"scan_id", payload.ScanID,
			"error", err,
		)
		if failErr := h.service.MarkFailed(ctx, scanID, err.Error()); failErr != nil {
			h.logger.Error("failed to mark scan failed", "scan_id", payload.ScanID, "error", failErr)
		}
	}
	return err
}
