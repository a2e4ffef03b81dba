package controller

import (
	"context"
	"time"

	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/logger"
)

// ScanRecoveryConfig tunes the stale scan reaper.
type ScanRecoveryConfig struct {
	// Interval is how often to look for stale scans. Default 5 minutes.
	Interval time.Duration

	// StuckThreshold is how long a scan may stay non-terminal before it
	// is failed. Must exceed the ingest job timeout plus its retries,
	// otherwise a healthy retry chain gets cut short. Default 2 hours.
	StuckThreshold time.Duration
}

// ScanRecoveryController fails scans whose processing never finished, so
// submissions do not report PENDING forever after a worker crash.
type ScanRecoveryController struct {
	scans  scan.Repository
	cfg    ScanRecoveryConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewScanRecoveryController creates a new ScanRecoveryController.
func NewScanRecoveryController(scans scan.Repository, cfg ScanRecoveryConfig, log *logger.Logger) *ScanRecoveryController {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = 2 * time.Hour
	}
	return &ScanRecoveryController{
		scans:  scans,
		cfg:    cfg,
		logger: log.With("controller", "scan_recovery"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (c *ScanRecoveryController) Name() string            { return "scan_recovery" }
func (c *ScanRecoveryController) Interval() time.Duration { return c.cfg.Interval }

// Reconcile fails every scan still non-terminal past the threshold.
func (c *ScanRecoveryController) Reconcile(ctx context.Context) (int, error) {
	cutoff := c.now().Add(-c.cfg.StuckThreshold)

	failed, err := c.scans.FailStale(ctx, cutoff, "processing did not finish")
	if err != nil {
		return 0, err
	}
	if failed > 0 {
		c.logger.Warn("stale scans failed", "count", failed, "cutoff", cutoff)
	}
	return failed, nil
}
