// Package jobs runs the asynq-backed background pipeline: scan
// reconciliation, SBOM digestion and threat-intel feed sync.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// Task types.
const (
	TypeScanIngest      = "ingest:scan"
	TypeSBOMDigest      = "sbom:digest"
	TypeThreatIntelSync = "threatintel:sync"
)

// Queue names, processing-heavy work separated from feed maintenance.
const (
	QueueIngest      = "ingest"
	QueueMaintenance = "maintenance"
)

// ScanIngestPayload identifies a staged scan document.
type ScanIngestPayload struct {
	ScanID    string `json:"scan_id"`
	ObjectKey string `json:"object_key"`
}

// SBOMDigestPayload identifies a staged SBOM document.
type SBOMDigestPayload struct {
	ReleaseID string `json:"release_id"`
	ObjectKey string `json:"object_key"`
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MaxRetry      int
	IngestTimeout time.Duration
}

// Client enqueues background jobs using asynq.
type Client struct {
	client *asynq.Client
	cfg    ClientConfig
	logger *logger.Logger
}

// NewClient creates a new job client.
func NewClient(cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = 5
	}
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = 10 * time.Minute
	}

	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}),
		cfg:    cfg,
		logger: log.With("component", "job_client"),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueScanIngest queues reconciliation of a staged scan document.
func (c *Client) EnqueueScanIngest(ctx context.Context, scanID shared.ID, objectKey string) error {
	payload, err := json.Marshal(ScanIngestPayload{ScanID: scanID.String(), ObjectKey: objectKey})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TypeScanIngest, payload),
		asynq.Queue(QueueIngest),
		asynq.MaxRetry(c.cfg.MaxRetry),
		asynq.Timeout(c.cfg.IngestTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue scan ingest: %w", err)
	}

	c.logger.Info("scan ingest queued", "task_id", info.ID, "scan_id", scanID.String(), "queue", info.Queue)
	return nil
}

// EnqueueSBOMDigest queues digestion of a staged SBOM document.
func (c *Client) EnqueueSBOMDigest(ctx context.Context, releaseID shared.ID, objectKey string) error {
	payload, err := json.Marshal(SBOMDigestPayload{ReleaseID: releaseID.String(), ObjectKey: objectKey})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TypeSBOMDigest, payload),
		asynq.Queue(QueueIngest),
		asynq.MaxRetry(c.cfg.MaxRetry),
		asynq.Timeout(c.cfg.IngestTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue sbom digest: %w", err)
	}

	c.logger.Info("sbom digest queued", "task_id", info.ID, "release_id", releaseID.String(), "queue", info.Queue)
	return nil
}

// EnqueueThreatIntelSync queues a full feed sync. Used by the scheduler
// and the manual sync endpoint.
func (c *Client) EnqueueThreatIntelSync(ctx context.Context) error {
	info, err := c.client.EnqueueContext(ctx, asynq.NewTask(TypeThreatIntelSync, nil),
		asynq.Queue(QueueMaintenance),
		asynq.MaxRetry(1),
		asynq.Timeout(30*time.Minute),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue threat intel sync: %w", err)
	}

	c.logger.Info("threat intel sync queued", "task_id", info.ID, "queue", info.Queue)
	return nil
}
