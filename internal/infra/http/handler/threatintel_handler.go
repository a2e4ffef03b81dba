package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/domain/threatintel"
)

// SyncEnqueuer schedules a background threat intel sync run.
type SyncEnqueuer interface {
	EnqueueThreatIntelSync(ctx context.Context) error
}

// ThreatIntelHandler exposes feed sync status and manual sync triggers.
type ThreatIntelHandler struct {
	service  *app.ThreatIntelService
	enqueuer SyncEnqueuer
}

// NewThreatIntelHandler creates a new ThreatIntelHandler.
func NewThreatIntelHandler(service *app.ThreatIntelService, enqueuer SyncEnqueuer) *ThreatIntelHandler {
	return &ThreatIntelHandler{service: service, enqueuer: enqueuer}
}

type syncStatusResponse struct {
	Source        string     `json:"source"`
	Enabled       bool       `json:"enabled"`
	State         string     `json:"state"`
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	RecordsSynced int64      `json:"records_synced"`
}

func toSyncStatusResponse(s *threatintel.SyncStatus) syncStatusResponse {
	return syncStatusResponse{
		Source:        s.Source(),
		Enabled:       s.Enabled(),
		State:         string(s.State()),
		LastSyncAt:    s.LastSyncAt(),
		LastError:     s.LastError(),
		RecordsSynced: s.RecordsSynced(),
	}
}

// Statuses handles GET /api/v1/threat-intel/status.
func (h *ThreatIntelHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.Statuses(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]syncStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, toSyncStatusResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// TriggerSync handles POST /api/v1/threat-intel/sync. The sync runs in
// the background worker, not in the request.
func (h *ThreatIntelHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.enqueuer.EnqueueThreatIntelSync(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "sync scheduled"})
}
