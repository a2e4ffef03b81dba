package controller

import (
	"context"
	"time"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/logger"
)

// RiskAcceptanceConfig tunes the risk acceptance expiry sweep.
type RiskAcceptanceConfig struct {
	// Interval is how often to sweep for expired acceptances. Default 1
	// hour.
	Interval time.Duration
}

// RiskAcceptanceController reverts WONT_FIX findings whose acceptance
// deadline passed back to OPEN, so accepted risk does not outlive the
// decision that accepted it.
type RiskAcceptanceController struct {
	findings finding.Repository
	cfg      RiskAcceptanceConfig
	logger   *logger.Logger
	now      func() time.Time
}

// NewRiskAcceptanceController creates a new RiskAcceptanceController.
func NewRiskAcceptanceController(findings finding.Repository, cfg RiskAcceptanceConfig, log *logger.Logger) *RiskAcceptanceController {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &RiskAcceptanceController{
		findings: findings,
		cfg:      cfg,
		logger:   log.With("controller", "risk_acceptance"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *RiskAcceptanceController) Name() string            { return "risk_acceptance" }
func (c *RiskAcceptanceController) Interval() time.Duration { return c.cfg.Interval }

// Reconcile reopens every finding whose acceptance deadline passed.
func (c *RiskAcceptanceController) Reconcile(ctx context.Context) (int, error) {
	expired, err := c.findings.ExpireRiskAcceptances(ctx, c.now())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		c.logger.Info("risk acceptances expired", "count", expired)
	}
	return expired, nil
}
