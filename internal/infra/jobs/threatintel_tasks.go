package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/domain/threatintel"
	"github.com/wellqio/api/pkg/logger"
)

// ThreatIntelTaskHandler runs feed syncs in the background.
type ThreatIntelTaskHandler struct {
	service *app.ThreatIntelService
	logger  *logger.Logger
}

// NewThreatIntelTaskHandler creates a new ThreatIntelTaskHandler.
func NewThreatIntelTaskHandler(service *app.ThreatIntelService, log *logger.Logger) *ThreatIntelTaskHandler {
	return &ThreatIntelTaskHandler{
		service: service,
		logger:  log.With("component", "threatintel_task_handler"),
	}
}

// HandleSync syncs both feeds and enriches findings. A disabled source is
// not an error; anything else fails the task.
func (h *ThreatIntelTaskHandler) HandleSync(ctx context.Context, _ *asynq.Task) error {
	results := h.service.SyncAll(ctx)

	var failed error
	for _, result := range results {
		switch {
		case result.Err == nil:
			h.logger.Info("feed synced", "source", result.Source, "records", result.Records)
		case errors.Is(result.Err, threatintel.ErrSourceDisabled):
			h.logger.Info("feed disabled, skipped", "source", result.Source)
		default:
			h.logger.Error("feed sync failed", "source", result.Source, "error", result.Err)
			failed = result.Err
		}
	}

	if failed != nil {
		return fmt.Errorf("threat intel sync failed: %w", failed)
	}
	return nil
}
